package app

import (
	"context"
	"math/big"
	"strconv"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	distdomain "github.com/fd1az/backrun-engine/business/distribution/domain"
	execapp "github.com/fd1az/backrun-engine/business/execution/app"
	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/internal/access"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
	"github.com/fd1az/backrun-engine/internal/reentrancy"
)

const (
	tracerName = "github.com/fd1az/backrun-engine/business/hook/app"
	meterName  = "github.com/fd1az/backrun-engine/business/hook/app"

	// MaxRecipientShareBps caps the swap recipient's cut of realized profit.
	MaxRecipientShareBps = 5000
)

// hookMetrics holds OTEL metric instruments.
type hookMetrics struct {
	swapsObserved  metric.Int64Counter
	reentrantSkips metric.Int64Counter
	errorsAbsorbed metric.Int64Counter
	profitCaptured metric.Int64Counter
}

// Hook reacts to swap completions by triggering backruns and distributing
// realized profit.
//
// The hook is the single failsafe seam of the engine: quoting and execution
// failures are absorbed into a zero result so the feed never stalls on a
// failed opportunity. Invariant violations are the exception and propagate:
// a leftover balance or a distribution drift means the books are wrong, and
// that must never be silently dropped.
type Hook struct {
	guard    *reentrancy.Guard
	router   BackrunRouter
	splitter Distributor
	ledger   Ledger
	auth     access.Authorizer

	settingsMu        sync.RWMutex
	recipientShareBps uint16
	configID          string

	tracer  trace.Tracer
	metrics *hookMetrics
	logger  logger.LoggerInterface
}

// Config holds the hook's tunable settings.
type Config struct {
	RecipientShareBps uint16 // swap recipient's cut of profit, capped at 5000
	ConfigID          string // distribution config for the remainder
}

// NewHook creates a Hook. The recipient share is validated against the cap.
func NewHook(router BackrunRouter, splitter Distributor, ledger Ledger, auth access.Authorizer, cfg Config, log logger.LoggerInterface) (*Hook, error) {
	if cfg.RecipientShareBps > MaxRecipientShareBps {
		return nil, apperror.New(apperror.CodeShareCapExceeded,
			apperror.WithContext("recipient share "+itoa(cfg.RecipientShareBps)+" bps"))
	}

	h := &Hook{
		guard:             reentrancy.New(),
		router:            router,
		splitter:          splitter,
		ledger:            ledger,
		auth:              auth,
		recipientShareBps: cfg.RecipientShareBps,
		configID:          cfg.ConfigID,
		tracer:            otel.Tracer(tracerName),
		logger:            log,
	}
	if err := h.initMetrics(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Hook) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	h.metrics = &hookMetrics{}

	h.metrics.swapsObserved, err = meter.Int64Counter(
		"backrun_hook_swaps_total",
		metric.WithDescription("Swap completions delivered to the hook"),
		metric.WithUnit("{swap}"),
	)
	if err != nil {
		return err
	}

	h.metrics.reentrantSkips, err = meter.Int64Counter(
		"backrun_hook_reentrant_skips_total",
		metric.WithDescription("Invocations skipped by the reentrancy guard"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return err
	}

	h.metrics.errorsAbsorbed, err = meter.Int64Counter(
		"backrun_hook_errors_absorbed_total",
		metric.WithDescription("Execution failures absorbed into a zero result"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return err
	}

	h.metrics.profitCaptured, err = meter.Int64Counter(
		"backrun_hook_profit_captured_total",
		metric.WithDescription("Triggers that realized and distributed profit"),
		metric.WithUnit("{trigger}"),
	)
	return err
}

// OnSwapCompleted handles one observed swap completion.
//
// The returned result is zero when no profit was captured, whether because
// the quote was empty, the invocation was reentrant, or execution failed and
// was rolled back. A non-nil error is returned only for invariant violations.
func (h *Hook) OnSwapCompleted(ctx context.Context, ev *domain.SwapEvent) (*execdomain.ExecutionResult, error) {
	ctx, span := h.tracer.Start(ctx, "hook.on_swap_completed",
		trace.WithAttributes(attribute.String("pool", ev.Pool.String())),
	)
	defer span.End()

	h.metrics.swapsObserved.Add(ctx, 1)

	// Reentrant delivery yields a zero result rather than aborting: a nested
	// trigger fired by our own route execution is expected traffic.
	if !h.guard.TryEnter() {
		h.metrics.reentrantSkips.Add(ctx, 1)
		span.AddEvent("reentrant_skip")
		span.SetStatus(codes.Ok, "reentrant invocation skipped")
		return execdomain.ZeroResult(), nil
	}
	defer h.guard.Exit()

	if err := ev.Validate(); err != nil {
		h.metrics.errorsAbsorbed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Ok, "invalid event absorbed")
		h.logger.Warn(ctx, "dropping invalid swap event", "event", ev.String(), "error", err)
		return execdomain.ZeroResult(), nil
	}

	shareBps, configID := h.settings()

	req := &execdomain.BackrunRequest{
		Pool:       ev.Pool,
		AmountIn:   ev.AmountIn,
		ZeroForOne: ev.ZeroForOne,
		Recipient:  ev.Recipient,
		ConfigID:   configID,
	}

	self := h.router.Self()

	var result *execdomain.ExecutionResult
	err := h.ledger.Atomically(ctx, func(ctx context.Context) error {
		res, err := h.router.TriggerBackrun(ctx, req)
		if err != nil {
			return err
		}
		if res.IsZero() {
			result = res
			return nil
		}

		// Execution left the profit sitting on the book. After payout the
		// balance must return exactly to its pre-trigger level; a residue
		// means profit was created or withheld and is never absorbed.
		expected := new(big.Int).Sub(h.ledger.BalanceOf(res.Token, self), res.Profit)

		if err := h.distribute(ctx, self, ev.Recipient, res, shareBps, configID); err != nil {
			return err
		}

		if got := h.ledger.BalanceOf(res.Token, self); got.Cmp(expected) != 0 {
			return apperror.New(apperror.CodeLeftoverBalance,
				apperror.WithContext("token "+res.Token.Hex()+" holds "+got.String()+", expected "+expected.String()))
		}

		result = res
		return nil
	})

	if err != nil {
		if isInvariantViolation(err) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "invariant violation")
			return nil, err
		}
		h.metrics.errorsAbsorbed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Ok, "execution failure absorbed")
		h.logger.Info(ctx, "backrun attempt absorbed",
			"event", ev.String(),
			"code", string(apperror.GetCode(err)),
			"error", err,
		)
		return execdomain.ZeroResult(), nil
	}

	if !result.IsZero() {
		h.metrics.profitCaptured.Add(ctx, 1)
		span.SetAttributes(attribute.String("profit", result.Profit.String()))
	}
	span.SetStatus(codes.Ok, "handled")

	return result, nil
}

// distribute pays the recipient's capped cut and routes the remainder
// through the splitter.
func (h *Hook) distribute(ctx context.Context, self, recipient common.Address, res *execdomain.ExecutionResult, shareBps uint16, configID string) error {
	recipientCut := new(big.Int).Mul(res.Profit, big.NewInt(int64(shareBps)))
	recipientCut.Div(recipientCut, big.NewInt(distdomain.BpsDenominator))

	if recipientCut.Sign() > 0 {
		if recipient == (common.Address{}) {
			// No recipient to pay; the cut joins the configured split.
			recipientCut.SetInt64(0)
		} else if err := h.ledger.Transfer(ctx, res.Token, self, recipient, recipientCut); err != nil {
			return err
		}
	}

	rest := new(big.Int).Sub(res.Profit, recipientCut)
	if rest.Sign() > 0 {
		if _, err := h.splitter.Distribute(ctx, res.Token, self, rest, configID); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hook) settings() (uint16, string) {
	h.settingsMu.RLock()
	defer h.settingsMu.RUnlock()
	return h.recipientShareBps, h.configID
}

// SetRecipientShare updates the swap recipient's profit cut.
func (h *Hook) SetRecipientShare(ctx context.Context, caller common.Address, bps uint16) error {
	if err := h.auth.Authorize(ctx, caller); err != nil {
		return err
	}
	if bps > MaxRecipientShareBps {
		return apperror.New(apperror.CodeShareCapExceeded,
			apperror.WithContext(itoa(bps)+" bps, cap "+itoa(MaxRecipientShareBps)))
	}
	h.settingsMu.Lock()
	defer h.settingsMu.Unlock()
	h.recipientShareBps = bps
	return nil
}

// SetConfigID updates the distribution config used for the profit remainder.
func (h *Hook) SetConfigID(ctx context.Context, caller common.Address, id string) error {
	if err := h.auth.Authorize(ctx, caller); err != nil {
		return err
	}
	if id == "" {
		return apperror.Validation(apperror.CodeInvalidInput, "config id must not be empty")
	}
	h.settingsMu.Lock()
	defer h.settingsMu.Unlock()
	h.configID = id
	return nil
}

// SetQuoter swaps the router's quoter endpoint.
func (h *Hook) SetQuoter(ctx context.Context, caller common.Address, q execapp.Quoter) error {
	if err := h.auth.Authorize(ctx, caller); err != nil {
		return err
	}
	h.router.SetQuoter(q)
	return nil
}

// isInvariantViolation reports whether err must propagate instead of being
// absorbed into a zero result.
func isInvariantViolation(err error) bool {
	code := apperror.GetCode(err)
	return code == apperror.CodeLeftoverBalance || code == apperror.CodeDistributionDrift
}

func itoa(v uint16) string {
	return strconv.Itoa(int(v))
}
