package feed

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
	"github.com/fd1az/backrun-engine/internal/ratelimit"
	"github.com/fd1az/backrun-engine/internal/wsconn"
)

const (
	tracerName = "swapfeed"
	meterName  = "swapfeed"
)

// SubscriberConfig holds configuration for the swap log subscription.
type SubscriberConfig struct {
	WSURL string

	// Pools maps tracked pool addresses to their protocol family.
	Pools map[common.Address]execdomain.DexProtocolType

	// EventsPerSecond bounds how many swap events per second are delivered
	// downstream; excess events are dropped, not queued.
	EventsPerSecond float64
	Burst           int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DefaultSubscriberConfig returns sensible defaults.
func DefaultSubscriberConfig(wsURL string, pools map[common.Address]execdomain.DexProtocolType) SubscriberConfig {
	return SubscriberConfig{
		WSURL:           wsURL,
		Pools:           pools,
		EventsPerSecond: 50,
		Burst:           25,
		ReadTimeout:     60 * time.Second,
		WriteTimeout:    10 * time.Second,
	}
}

// EventHandler consumes decoded swap events.
type EventHandler func(ctx context.Context, ev *domain.SwapEvent)

// subscriberMetrics holds OTEL metric instruments.
type subscriberMetrics struct {
	logsReceived  metric.Int64Counter
	eventsDecoded metric.Int64Counter
	eventsDropped metric.Int64Counter
	decodeErrors  metric.Int64Counter
}

// Subscriber maintains a WebSocket log subscription over the tracked pools
// and delivers decoded swap events to a handler.
type Subscriber struct {
	config  SubscriberConfig
	decoder *Decoder
	limiter *ratelimit.Limiter
	logger  logger.LoggerInterface

	conn   *wsconn.Client
	connMu sync.RWMutex

	handler   EventHandler
	handlerMu sync.RWMutex

	nextID  atomic.Int64
	running atomic.Bool

	tracer  trace.Tracer
	metrics *subscriberMetrics
}

// NewSubscriber creates a swap log subscriber.
func NewSubscriber(cfg SubscriberConfig, log logger.LoggerInterface) (*Subscriber, error) {
	if len(cfg.Pools) == 0 {
		return nil, apperror.New(apperror.CodeConfigurationError,
			apperror.WithContext("no pools configured for the swap feed"))
	}

	s := &Subscriber{
		config:  cfg,
		decoder: NewDecoder(cfg.Pools),
		limiter: ratelimit.NewWithBurst(cfg.EventsPerSecond, cfg.Burst),
		logger:  log,
		tracer:  otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Subscriber) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &subscriberMetrics{}

	s.metrics.logsReceived, err = meter.Int64Counter(
		"swapfeed_logs_total",
		metric.WithDescription("Raw log notifications received"),
	)
	if err != nil {
		return err
	}

	s.metrics.eventsDecoded, err = meter.Int64Counter(
		"swapfeed_events_total",
		metric.WithDescription("Swap events decoded and delivered"),
	)
	if err != nil {
		return err
	}

	s.metrics.eventsDropped, err = meter.Int64Counter(
		"swapfeed_events_dropped_total",
		metric.WithDescription("Swap events dropped by the rate limiter"),
	)
	if err != nil {
		return err
	}

	s.metrics.decodeErrors, err = meter.Int64Counter(
		"swapfeed_decode_errors_total",
		metric.WithDescription("Log notifications that failed to decode"),
	)
	return err
}

// OnSwap registers the handler for decoded swap events.
func (s *Subscriber) OnSwap(handler EventHandler) {
	s.handlerMu.Lock()
	s.handler = handler
	s.handlerMu.Unlock()
}

// Start connects to the node and subscribes to swap logs of the tracked
// pools. It retries the initial connection until ctx is cancelled.
func (s *Subscriber) Start(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "swapfeed.start",
		trace.WithAttributes(attribute.Int("pools", len(s.config.Pools))),
	)
	defer span.End()

	wsCfg := wsconn.DefaultConfig(s.config.WSURL, "swapfeed")
	wsCfg.ReadTimeout = s.config.ReadTimeout
	wsCfg.WriteTimeout = s.config.WriteTimeout

	conn, err := wsconn.New(wsCfg)
	if err != nil {
		span.RecordError(err)
		return err
	}

	conn.OnMessage(s.handleMessage)
	conn.OnStateChange(func(state wsconn.State, err error) {
		if state == wsconn.StateConnected && s.running.Load() {
			// Resubscribe after every reconnect; subscriptions do not
			// survive the underlying connection.
			go s.subscribe(context.Background())
		}
		if err != nil {
			s.logger.Warn(context.Background(), "swap feed connection state changed",
				"state", string(state), "error", err)
		}
	})

	if err := conn.ConnectWithRetry(ctx); err != nil {
		span.RecordError(err)
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("swap feed connect failed"))
	}

	s.connMu.Lock()
	s.conn = conn
	s.connMu.Unlock()

	s.running.Store(true)

	if err := s.subscribe(ctx); err != nil {
		return err
	}

	s.logger.Info(ctx, "swap feed started",
		"url", s.config.WSURL,
		"pools", len(s.config.Pools),
	)
	return nil
}

// subscribe issues the eth_subscribe request for the tracked pools.
func (s *Subscriber) subscribe(ctx context.Context) error {
	s.connMu.RLock()
	conn := s.conn
	s.connMu.RUnlock()
	if conn == nil {
		return apperror.New(apperror.CodeWebSocketClosed,
			apperror.WithContext("swap feed not started"))
	}

	addresses := make([]string, 0, len(s.config.Pools))
	for addr := range s.config.Pools {
		addresses = append(addresses, addr.Hex())
	}

	req := map[string]any{
		"jsonrpc": "2.0",
		"id":      s.nextID.Add(1),
		"method":  "eth_subscribe",
		"params": []any{
			"logs",
			map[string]any{
				"address": addresses,
				"topics":  [][]string{{v2SwapTopic.Hex(), v3SwapTopic.Hex()}},
			},
		},
	}

	if err := conn.SendJSON(ctx, req); err != nil {
		return apperror.New(apperror.CodeWebSocketConnectionError,
			apperror.WithCause(err),
			apperror.WithContext("swap log subscription failed"))
	}
	return nil
}

// subscriptionNotice is the JSON-RPC push frame for an active subscription.
type subscriptionNotice struct {
	Method string `json:"method"`
	Params struct {
		Subscription string          `json:"subscription"`
		Result       json.RawMessage `json:"result"`
	} `json:"params"`
}

func (s *Subscriber) handleMessage(ctx context.Context, msg []byte) {
	s.metrics.logsReceived.Add(ctx, 1)

	var notice subscriptionNotice
	if err := json.Unmarshal(msg, &notice); err != nil || notice.Method != "eth_subscription" {
		// Subscription confirmations and errors land here too.
		return
	}

	var log types.Log
	if err := json.Unmarshal(notice.Params.Result, &log); err != nil {
		s.metrics.decodeErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "undecodable log notification", "error", err)
		return
	}

	ev, err := s.decoder.Decode(&log)
	if err != nil {
		s.metrics.decodeErrors.Add(ctx, 1)
		s.logger.Warn(ctx, "swap log decode failed",
			"pool", log.Address.Hex(), "error", err)
		return
	}
	if ev == nil {
		return
	}

	if !s.limiter.Allow() {
		s.metrics.eventsDropped.Add(ctx, 1)
		return
	}

	s.handlerMu.RLock()
	handler := s.handler
	s.handlerMu.RUnlock()
	if handler == nil {
		return
	}

	s.metrics.eventsDecoded.Add(ctx, 1)
	handler(ctx, ev)
}

// Stop closes the subscription and the underlying connection.
func (s *Subscriber) Stop() error {
	s.running.Store(false)

	s.connMu.Lock()
	conn := s.conn
	s.conn = nil
	s.connMu.Unlock()

	if conn != nil {
		return conn.Close()
	}
	return nil
}

// IsRunning reports whether the feed is active.
func (s *Subscriber) IsRunning() bool {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.running.Load() && s.conn != nil && s.conn.IsConnected()
}
