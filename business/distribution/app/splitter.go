package app

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/backrun-engine/business/distribution/domain"
	"github.com/fd1az/backrun-engine/internal/access"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
)

const (
	tracerName = "github.com/fd1az/backrun-engine/business/distribution/app"
	meterName  = "github.com/fd1az/backrun-engine/business/distribution/app"
)

// splitterMetrics holds OTEL metric instruments.
type splitterMetrics struct {
	distributions metric.Int64Counter
	payouts       metric.Int64Counter
}

// Splitter holds named share configs and pays realized revenue out of the
// ledger according to them. Config changes are an administrative operation
// and require an authorized caller.
type Splitter struct {
	mu       sync.RWMutex
	configs  map[string]domain.Config
	fallback common.Address

	ledger Ledger
	auth   access.Authorizer

	tracer  trace.Tracer
	metrics *splitterMetrics
	logger  logger.LoggerInterface
}

// NewSplitter creates a Splitter paying out of ledger. fallback receives the
// uncovered remainder of under-allocated configs and may be zero if every
// config allocates the full 10000 bps.
func NewSplitter(ledger Ledger, auth access.Authorizer, fallback common.Address, log logger.LoggerInterface) (*Splitter, error) {
	s := &Splitter{
		configs:  make(map[string]domain.Config),
		fallback: fallback,
		ledger:   ledger,
		auth:     auth,
		tracer:   otel.Tracer(tracerName),
		logger:   log,
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Splitter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	s.metrics = &splitterMetrics{}

	s.metrics.distributions, err = meter.Int64Counter(
		"backrun_distributions_total",
		metric.WithDescription("Revenue distributions performed"),
		metric.WithUnit("{distribution}"),
	)
	if err != nil {
		return err
	}

	s.metrics.payouts, err = meter.Int64Counter(
		"backrun_payouts_total",
		metric.WithDescription("Individual recipient payouts performed"),
		metric.WithUnit("{payout}"),
	)
	return err
}

// SetConfig validates and stores a share config under its ID, replacing any
// previous config with that ID.
func (s *Splitter) SetConfig(ctx context.Context, caller common.Address, cfg domain.Config) error {
	if err := s.auth.Authorize(ctx, caller); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return apperror.Validation(apperror.CodeInvalidInput, err.Error())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.ID] = cfg

	s.logger.Info(ctx, "distribution config set",
		"config_id", cfg.ID,
		"entries", len(cfg.Entries),
		"total_bps", cfg.TotalBps(),
	)
	return nil
}

// Config returns the config stored under id.
func (s *Splitter) Config(id string) (domain.Config, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[id]
	return cfg, ok
}

// SetFallback replaces the fallback recipient.
func (s *Splitter) SetFallback(ctx context.Context, caller, fallback common.Address) error {
	if err := s.auth.Authorize(ctx, caller); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fallback = fallback
	return nil
}

// Distribute pays amount of token out of payer's balance according to the
// config stored under configID, returning the payouts in config order.
//
// The payouts always sum to exactly amount. A drift between the two would
// mean funds created or destroyed and is reported as a fatal invariant
// violation, never absorbed.
func (s *Splitter) Distribute(ctx context.Context, token, payer common.Address, amount *big.Int, configID string) ([]domain.Payout, error) {
	if amount == nil || amount.Sign() < 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "distribution amount must be >= 0")
	}

	ctx, span := s.tracer.Start(ctx, "splitter.distribute",
		trace.WithAttributes(
			attribute.String("config_id", configID),
			attribute.String("token", token.Hex()),
			attribute.String("amount", amount.String()),
		),
	)
	defer span.End()

	s.mu.RLock()
	cfg, ok := s.configs[configID]
	fallback := s.fallback
	s.mu.RUnlock()

	if !ok {
		err := apperror.New(apperror.CodeConfigNotFound, apperror.WithContext(configID))
		span.RecordError(err)
		span.SetStatus(codes.Error, "config not found")
		return nil, err
	}

	// With the amount validated above, the only way Split can fail is an
	// under-allocated config with no fallback recipient to absorb the gap.
	payouts, err := cfg.Split(amount, fallback)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "split failed")
		return nil, apperror.New(apperror.CodeMissingFallback, apperror.WithCause(err))
	}

	paid := new(big.Int)
	for _, p := range payouts {
		if err := s.ledger.Transfer(ctx, token, payer, p.Recipient, p.Amount); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "payout transfer failed")
			return nil, err
		}
		paid.Add(paid, p.Amount)
		s.metrics.payouts.Add(ctx, 1)
	}

	if paid.Cmp(amount) != 0 {
		err := apperror.New(apperror.CodeDistributionDrift,
			apperror.WithContext("paid "+paid.String()+" of "+amount.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "distribution drift")
		return nil, err
	}

	s.metrics.distributions.Add(ctx, 1)
	span.SetAttributes(attribute.Int("payouts", len(payouts)))
	span.SetStatus(codes.Ok, "distributed")

	s.logger.Info(ctx, "revenue distributed",
		"config_id", configID,
		"token", token.Hex(),
		"amount", amount.String(),
		"payouts", len(payouts),
	)

	return payouts, nil
}
