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

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
)

const (
	tracerName = "github.com/fd1az/backrun-engine/business/execution/app"
	meterName  = "github.com/fd1az/backrun-engine/business/execution/app"
)

// routerMetrics holds OTEL metric instruments.
type routerMetrics struct {
	quotesRequested metric.Int64Counter
	zeroQuotes      metric.Int64Counter
	routesExecuted  metric.Int64Counter
	routesFailed    metric.Int64Counter
}

// Router is the orchestration entry point of the execution context: it turns
// a backrun trigger into an executed route and a realized profit.
//
// The Router is deliberately not failsafe. Quoting and execution errors
// propagate to the caller so that direct invocations get a hard failure
// signal; the hook integration layer is the single place that absorbs them.
type Router struct {
	quoterMu sync.RWMutex
	quoter   Quoter

	executor *RouteExecutor
	ledger   Ledger
	self     common.Address

	tracer  trace.Tracer
	metrics *routerMetrics
	logger  logger.LoggerInterface
}

// NewRouter creates a Router trading on behalf of the book address self.
func NewRouter(quoter Quoter, executor *RouteExecutor, ledger Ledger, self common.Address, log logger.LoggerInterface) (*Router, error) {
	r := &Router{
		quoter:   quoter,
		executor: executor,
		ledger:   ledger,
		self:     self,
		tracer:   otel.Tracer(tracerName),
		logger:   log,
	}
	if err := r.initMetrics(); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *Router) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	r.metrics = &routerMetrics{}

	r.metrics.quotesRequested, err = meter.Int64Counter(
		"backrun_quotes_requested_total",
		metric.WithDescription("Total quotes requested from the quoter"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	r.metrics.zeroQuotes, err = meter.Int64Counter(
		"backrun_zero_quotes_total",
		metric.WithDescription("Quotes that carried no profitable route"),
		metric.WithUnit("{quote}"),
	)
	if err != nil {
		return err
	}

	r.metrics.routesExecuted, err = meter.Int64Counter(
		"backrun_routes_executed_total",
		metric.WithDescription("Routes executed to completion"),
		metric.WithUnit("{route}"),
	)
	if err != nil {
		return err
	}

	r.metrics.routesFailed, err = meter.Int64Counter(
		"backrun_routes_failed_total",
		metric.WithDescription("Routes aborted by a hop or breakeven failure"),
		metric.WithUnit("{route}"),
	)
	return err
}

// SetQuoter replaces the quoter endpoint. Authorization is enforced by the
// administrative surface that exposes this.
func (r *Router) SetQuoter(q Quoter) {
	r.quoterMu.Lock()
	defer r.quoterMu.Unlock()
	r.quoter = q
}

func (r *Router) currentQuoter() Quoter {
	r.quoterMu.RLock()
	defer r.quoterMu.RUnlock()
	return r.quoter
}

// Self returns the router's book address.
func (r *Router) Self() common.Address {
	return r.self
}

// TriggerBackrun asks the quoter for a route, executes it if profitable, and
// returns the realized profit and its token. A zero quote is a no-op result,
// not a failure. Execution errors propagate unabsorbed.
func (r *Router) TriggerBackrun(ctx context.Context, req *domain.BackrunRequest) (*domain.ExecutionResult, error) {
	ctx, span := r.tracer.Start(ctx, "router.trigger_backrun",
		trace.WithAttributes(
			attribute.String("pool", req.Pool.String()),
			attribute.Bool("zero_for_one", req.ZeroForOne),
		),
	)
	defer span.End()

	if err := req.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid request")
		return nil, apperror.Validation(apperror.CodeInvalidInput, err.Error())
	}
	span.SetAttributes(attribute.String("amount_in", req.AmountIn.String()))

	r.metrics.quotesRequested.Add(ctx, 1)
	quote, err := r.currentQuoter().GetQuote(ctx, req.Pool, req.ZeroForOne, req.AmountIn)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "quote failed")
		return nil, apperror.Wrap(err, apperror.CodeQuoteFailed, req.Pool.String())
	}

	if quote.IsZero() {
		r.metrics.zeroQuotes.Add(ctx, 1)
		span.AddEvent("zero_quote")
		span.SetStatus(codes.Ok, "no profitable route")
		return domain.ZeroResult(), nil
	}

	if err := quote.Validate(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "invalid quote")
		return nil, apperror.New(apperror.CodeInvalidQuote, apperror.WithContext(err.Error()))
	}

	amountIn := quote.Route.AmountIn
	profitToken := quote.Route.Tokens[quote.InitialHopIndex]

	out, err := r.executor.ExecuteRoute(ctx, &quote.Route, quote.InitialHopIndex, amountIn)
	if err != nil {
		r.metrics.routesFailed.Add(ctx, 1)
		span.RecordError(err)
		span.SetStatus(codes.Error, "route aborted")
		return nil, err
	}

	// Breakeven comparison against the input-side obligation. A loss-making
	// trade is aborted, never forced through.
	if out.Cmp(amountIn) <= 0 {
		r.metrics.routesFailed.Add(ctx, 1)
		err := apperror.New(apperror.CodeUnprofitableRoute,
			apperror.WithContext("out "+out.String()+" vs in "+amountIn.String()))
		span.RecordError(err)
		span.SetStatus(codes.Error, "at or below breakeven")
		return nil, err
	}

	profit := new(big.Int).Sub(out, amountIn)
	r.metrics.routesExecuted.Add(ctx, 1)
	span.SetAttributes(
		attribute.String("profit", profit.String()),
		attribute.String("profit_token", profitToken.Hex()),
	)
	span.SetStatus(codes.Ok, "executed")

	r.logger.Info(ctx, "backrun executed",
		"pool", req.Pool.String(),
		"hops", quote.Route.Hops(),
		"profit", profit.String(),
		"token", profitToken.Hex(),
	)

	return &domain.ExecutionResult{Profit: profit, Token: profitToken}, nil
}
