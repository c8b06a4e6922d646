package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/fd1az/backrun-engine/business/execution/domain"
)

const validYAML = `
app:
  name: backrun-engine
  log_level: debug

engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
  recipient_share_bps: 1000
  config_id: default
  funding:
    - token: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
      amount: "1000000000000000000"

quoter:
  base_url: "http://localhost:8080"
  timeout: 3s

distribution:
  fallback: "0x9999999999999999999999999999999999999999"
  configs:
    - id: default
      entries:
        - recipient: "0x4444444444444444444444444444444444444444"
          share_bps: 7000
        - recipient: "0x5555555555555555555555555555555555555555"
          share_bps: 3000

feed:
  websocket_url: "ws://localhost:8546"
  pools:
    - address: "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc"
      dex: uniswap-v2
      token0: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
      token1: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
      fee_bps: 30
      reserve0: "1000000000000000000000"
      reserve1: "3000000000000"
    - address: "0x88e6a0c2ddd26feeb64f039a2c41296fcb3f5640"
      dex: uniswap-v3
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.App.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.App.LogLevel)
	}
	if cfg.Engine.RecipientShareBps != 1000 {
		t.Errorf("recipient share = %d, want 1000", cfg.Engine.RecipientShareBps)
	}
	if cfg.Quoter.BaseURL != "http://localhost:8080" {
		t.Errorf("quoter url = %q", cfg.Quoter.BaseURL)
	}
	if len(cfg.Distribution.Configs) != 1 || len(cfg.Distribution.Configs[0].Entries) != 2 {
		t.Fatalf("distribution configs not parsed: %+v", cfg.Distribution.Configs)
	}

	if len(cfg.Engine.Funding) != 1 {
		t.Fatalf("funding not parsed: %+v", cfg.Engine.Funding)
	}
	if amt, err := cfg.Engine.Funding[0].AmountInt(); err != nil || amt.String() != "1000000000000000000" {
		t.Errorf("funding amount = %v, %v", amt, err)
	}

	pools, err := cfg.Feed.TrackedPools()
	if err != nil {
		t.Fatalf("TrackedPools failed: %v", err)
	}
	if len(pools) != 2 {
		t.Fatalf("got %d pools, want 2", len(pools))
	}
	for addr, dex := range pools {
		if dex != domain.DexUniswapV2 && dex != domain.DexUniswapV3 {
			t.Errorf("pool %s has unexpected dex %s", addr.Hex(), dex)
		}
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Feed.EventsPerSecond != 50 {
		t.Errorf("events per second = %v, want default 50", cfg.Feed.EventsPerSecond)
	}
	if cfg.Telemetry.PrometheusPort != 9090 {
		t.Errorf("prometheus port = %d, want default 9090", cfg.Telemetry.PrometheusPort)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func() string
	}{
		{
			"missing book address",
			func() string {
				return `
engine:
  admin_address: "0x00000000000000000000000000000000000000ad"
quoter:
  base_url: "http://localhost:8080"
feed:
  websocket_url: "ws://localhost:8546"
`
			},
		},
		{
			"recipient share above cap",
			func() string {
				return `
engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
  recipient_share_bps: 5001
quoter:
  base_url: "http://localhost:8080"
feed:
  websocket_url: "ws://localhost:8546"
`
			},
		},
		{
			"unknown pool dex",
			func() string {
				return `
engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
quoter:
  base_url: "http://localhost:8080"
feed:
  websocket_url: "ws://localhost:8546"
  pools:
    - address: "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc"
      dex: curve-v2
`
			},
		},
		{
			"pool pair without reserves",
			func() string {
				return `
engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
quoter:
  base_url: "http://localhost:8080"
feed:
  websocket_url: "ws://localhost:8546"
  pools:
    - address: "0xb4e16d0168e52d35cacd2c6185b44281ec28c9dc"
      dex: uniswap-v2
      token0: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
      token1: "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
`
			},
		},
		{
			"negative funding amount",
			func() string {
				return `
engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
  funding:
    - token: "0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2"
      amount: "-5"
quoter:
  base_url: "http://localhost:8080"
feed:
  websocket_url: "ws://localhost:8546"
`
			},
		},
		{
			"bad fallback address",
			func() string {
				return `
engine:
  book_address: "0x00000000000000000000000000000000000000fd"
  admin_address: "0x00000000000000000000000000000000000000ad"
quoter:
  base_url: "http://localhost:8080"
distribution:
  fallback: "not-an-address"
feed:
  websocket_url: "ws://localhost:8546"
`
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, tt.mutate())); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}
