// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/viper"

	"github.com/fd1az/backrun-engine/business/execution/domain"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Quoter       QuoterConfig       `mapstructure:"quoter"`
	Distribution DistributionConfig `mapstructure:"distribution"`
	Feed         FeedConfig         `mapstructure:"feed"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
}

// EngineConfig holds the capture engine's settings.
type EngineConfig struct {
	BookAddress       string         `mapstructure:"book_address"`  // address the engine trades from
	AdminAddress      string         `mapstructure:"admin_address"` // authorized for administrative calls
	RecipientShareBps uint16         `mapstructure:"recipient_share_bps"`
	ConfigID          string         `mapstructure:"config_id"` // distribution config for profit
	Funding           []FundingEntry `mapstructure:"funding"`   // working capital minted at startup
	TUIMode           bool           `mapstructure:"-"`         // set at runtime, not from config file
}

// FundingEntry seeds the book with working capital in one token.
type FundingEntry struct {
	Token  string `mapstructure:"token"`
	Amount string `mapstructure:"amount"` // base units, base-10
}

// TokenHex returns the funding token as common.Address.
func (e *FundingEntry) TokenHex() common.Address {
	return common.HexToAddress(e.Token)
}

// AmountInt returns the funding amount as big.Int.
func (e *FundingEntry) AmountInt() (*big.Int, error) {
	v, ok := new(big.Int).SetString(e.Amount, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("invalid funding amount %q", e.Amount)
	}
	return v, nil
}

// BookAddressHex returns the book address as common.Address.
func (c *EngineConfig) BookAddressHex() common.Address {
	return common.HexToAddress(c.BookAddress)
}

// AdminAddressHex returns the admin address as common.Address.
func (c *EngineConfig) AdminAddressHex() common.Address {
	return common.HexToAddress(c.AdminAddress)
}

// QuoterConfig holds the quoting service endpoint.
type QuoterConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ShareEntry is one recipient's share in a distribution config.
type ShareEntry struct {
	Recipient string `mapstructure:"recipient"`
	ShareBps  uint16 `mapstructure:"share_bps"`
}

// ShareConfig is a named revenue split loaded at startup.
type ShareConfig struct {
	ID      string       `mapstructure:"id"`
	Entries []ShareEntry `mapstructure:"entries"`
}

// DistributionConfig holds revenue distribution settings.
type DistributionConfig struct {
	Fallback string        `mapstructure:"fallback"` // receives under-allocated remainders
	Configs  []ShareConfig `mapstructure:"configs"`
}

// FallbackHex returns the fallback recipient as common.Address.
func (c *DistributionConfig) FallbackHex() common.Address {
	return common.HexToAddress(c.Fallback)
}

// PoolConfig identifies one tracked pool and its protocol family. Pools that
// also carry a token pair are registered on the in-memory book with the given
// reserves so that routes can execute against them.
type PoolConfig struct {
	Address string `mapstructure:"address"`
	Dex     string `mapstructure:"dex"`

	Token0   string `mapstructure:"token0"`
	Token1   string `mapstructure:"token1"`
	FeeBps   uint16 `mapstructure:"fee_bps"`
	Reserve0 string `mapstructure:"reserve0"`
	Reserve1 string `mapstructure:"reserve1"`
}

// HasPair reports whether the pool carries a tradable token pair.
func (p *PoolConfig) HasPair() bool {
	return p.Token0 != "" || p.Token1 != ""
}

// ReserveInt parses one of the pool's reserve fields.
func (p *PoolConfig) ReserveInt(raw string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(raw, 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("invalid pool reserve %q", raw)
	}
	return v, nil
}

// FeedConfig holds the swap log subscription settings.
type FeedConfig struct {
	WebSocketURL    string        `mapstructure:"websocket_url"`
	Pools           []PoolConfig  `mapstructure:"pools"`
	EventsPerSecond float64       `mapstructure:"events_per_second"`
	Burst           int           `mapstructure:"burst"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
}

// TrackedPools returns the feed's pool set keyed by address.
func (c *FeedConfig) TrackedPools() (map[common.Address]domain.DexProtocolType, error) {
	pools := make(map[common.Address]domain.DexProtocolType, len(c.Pools))
	for i, p := range c.Pools {
		if !common.IsHexAddress(p.Address) {
			return nil, fmt.Errorf("feed.pools[%d]: invalid address %q", i, p.Address)
		}
		dex, err := domain.ParseDexProtocolType(p.Dex)
		if err != nil {
			return nil, fmt.Errorf("feed.pools[%d]: %w", i, err)
		}
		pools[common.HexToAddress(p.Address)] = dex
	}
	return pools, nil
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	// Config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	// Environment variables
	v.SetEnvPrefix("BACKRUN")
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use env vars
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "BACKRUN_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "BACKRUN_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "BACKRUN_LOG_LEVEL", "LOG_LEVEL")

	// Engine
	v.BindEnv("engine.book_address", "BACKRUN_BOOK_ADDRESS")
	v.BindEnv("engine.admin_address", "BACKRUN_ADMIN_ADDRESS")
	v.BindEnv("engine.recipient_share_bps", "BACKRUN_RECIPIENT_SHARE_BPS")
	v.BindEnv("engine.config_id", "BACKRUN_CONFIG_ID")

	// Quoter
	v.BindEnv("quoter.base_url", "BACKRUN_QUOTER_URL", "QUOTER_URL")
	v.BindEnv("quoter.timeout", "BACKRUN_QUOTER_TIMEOUT")

	// Distribution
	v.BindEnv("distribution.fallback", "BACKRUN_DISTRIBUTION_FALLBACK")

	// Feed
	v.BindEnv("feed.websocket_url", "BACKRUN_FEED_WS_URL", "ETH_WS_URL")
	v.BindEnv("feed.events_per_second", "BACKRUN_FEED_EVENTS_PER_SECOND")

	// Telemetry
	v.BindEnv("telemetry.enabled", "BACKRUN_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "BACKRUN_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "BACKRUN_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "backrun-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")

	// Engine defaults
	v.SetDefault("engine.recipient_share_bps", 0)
	v.SetDefault("engine.config_id", "default")

	// Quoter defaults
	v.SetDefault("quoter.timeout", "5s")

	// Feed defaults
	v.SetDefault("feed.events_per_second", 50)
	v.SetDefault("feed.burst", 25)
	v.SetDefault("feed.read_timeout", "60s")
	v.SetDefault("feed.write_timeout", "10s")

	// Telemetry defaults
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "backrun-engine")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// maxRecipientShareBps mirrors the hook's cap so a bad value fails at load
// time instead of at module startup.
const maxRecipientShareBps = 5000

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Engine.BookAddress) {
		return fmt.Errorf("invalid engine.book_address: %q", c.Engine.BookAddress)
	}
	if !common.IsHexAddress(c.Engine.AdminAddress) {
		return fmt.Errorf("invalid engine.admin_address: %q", c.Engine.AdminAddress)
	}
	if c.Engine.RecipientShareBps > maxRecipientShareBps {
		return fmt.Errorf("engine.recipient_share_bps %d exceeds cap %d", c.Engine.RecipientShareBps, maxRecipientShareBps)
	}
	if c.Engine.ConfigID == "" {
		return fmt.Errorf("engine.config_id is required")
	}
	if c.Quoter.BaseURL == "" {
		return fmt.Errorf("quoter.base_url is required")
	}
	if c.Distribution.Fallback != "" && !common.IsHexAddress(c.Distribution.Fallback) {
		return fmt.Errorf("invalid distribution.fallback: %q", c.Distribution.Fallback)
	}
	for i, sc := range c.Distribution.Configs {
		if sc.ID == "" {
			return fmt.Errorf("distribution.configs[%d]: id is required", i)
		}
		for j, e := range sc.Entries {
			if !common.IsHexAddress(e.Recipient) {
				return fmt.Errorf("distribution.configs[%d].entries[%d]: invalid recipient %q", i, j, e.Recipient)
			}
		}
	}
	for i, f := range c.Engine.Funding {
		if !common.IsHexAddress(f.Token) {
			return fmt.Errorf("engine.funding[%d]: invalid token %q", i, f.Token)
		}
		if _, err := f.AmountInt(); err != nil {
			return fmt.Errorf("engine.funding[%d]: %w", i, err)
		}
	}
	if c.Feed.WebSocketURL == "" {
		return fmt.Errorf("feed.websocket_url is required")
	}
	if _, err := c.Feed.TrackedPools(); err != nil {
		return err
	}
	for i, p := range c.Feed.Pools {
		if !p.HasPair() {
			continue
		}
		if !common.IsHexAddress(p.Token0) || !common.IsHexAddress(p.Token1) {
			return fmt.Errorf("feed.pools[%d]: token pair must be two addresses", i)
		}
		if p.FeeBps >= 10000 {
			return fmt.Errorf("feed.pools[%d]: fee_bps %d out of range", i, p.FeeBps)
		}
		if _, err := p.ReserveInt(p.Reserve0); err != nil {
			return fmt.Errorf("feed.pools[%d]: %w", i, err)
		}
		if _, err := p.ReserveInt(p.Reserve1); err != nil {
			return fmt.Errorf("feed.pools[%d]: %w", i, err)
		}
	}
	return nil
}
