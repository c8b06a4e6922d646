// Package quoterhttp implements the Quoter port against the external quoting
// service's REST API, with a circuit breaker in front of it.
package quoterhttp

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/circuitbreaker"
	"github.com/fd1az/backrun-engine/internal/httpclient"
	"github.com/fd1az/backrun-engine/internal/logger"
)

const (
	tracerName = "quoterhttp"

	quoteEndpoint = "/v1/quote"

	httpTimeout = 5 * time.Second
)

// Config holds configuration for the quoter client.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Client calls the quoting service over HTTP.
type Client struct {
	client  httpclient.Client
	breaker *circuitbreaker.CircuitBreaker[*domain.Quote]
	logger  logger.LoggerInterface
	tracer  trace.Tracer
}

// NewClient creates a quoter client for the given endpoint.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = httpTimeout
	}

	tracer := otel.Tracer(tracerName)

	client, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("quoter"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithTraceOptions(tracer, httpclient.TraceRequest, httpclient.TraceResponse),
		httpclient.WithHeaders(map[string]string{
			"Accept": "application/json",
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	return &Client{
		client:  client,
		breaker: circuitbreaker.New[*domain.Quote](circuitbreaker.DefaultConfig("quoter")),
		logger:  log,
		tracer:  tracer,
	}, nil
}

// quoteResponse is the wire form of a quote. Amounts are decimal strings,
// pool ids and tokens hex, per-hop meta 0x-prefixed bytes.
type quoteResponse struct {
	Profit          string     `json:"profit"`
	InitialHopIndex int        `json:"initialHopIndex"`
	Route           *routeJSON `json:"route,omitempty"`
	AmountsOut      []string   `json:"amountsOut,omitempty"`
}

type routeJSON struct {
	AmountIn string     `json:"amountIn"`
	Pools    []poolJSON `json:"pools"`
	Meta     []string   `json:"meta"`
	Tokens   []string   `json:"tokens"`
}

type poolJSON struct {
	ID  string `json:"id"`
	Dex string `json:"dex"`
}

// GetQuote asks the quoting service for a backrun route reacting to the given
// trigger swap. A response with zero profit carries no route.
func (c *Client) GetQuote(ctx context.Context, pool domain.PoolRef, zeroForOne bool, amountIn *big.Int) (*domain.Quote, error) {
	ctx, span := c.tracer.Start(ctx, "quoter.get_quote",
		trace.WithAttributes(
			attribute.String("pool", pool.String()),
			attribute.Bool("zero_for_one", zeroForOne),
			attribute.String("amount_in", amountIn.String()),
		),
	)
	defer span.End()

	quote, err := c.breaker.Execute(func() (*domain.Quote, error) {
		return c.fetchQuote(ctx, pool, zeroForOne, amountIn)
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	span.SetAttributes(attribute.String("profit", quote.Profit.String()))
	return quote, nil
}

func (c *Client) fetchQuote(ctx context.Context, pool domain.PoolRef, zeroForOne bool, amountIn *big.Int) (*domain.Quote, error) {
	var result quoteResponse
	resp, err := c.client.NewRequestWithOptions(
		httpclient.WithLabels(
			httpclient.NewLabel("endpoint", "quote"),
			httpclient.NewLabel("dex", pool.Dex.String()),
		),
		httpclient.WithResponseErrorHandler(quoterErrorHandler),
	).
		SetQueryParam("pool", pool.ID.Hex()).
		SetQueryParam("dex", pool.Dex.String()).
		SetQueryParam("zeroForOne", strconv.FormatBool(zeroForOne)).
		SetQueryParam("amountIn", amountIn.String()).
		SetResult(&result).
		Get(ctx, quoteEndpoint)

	if err != nil {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithCause(err),
			apperror.WithContext("quote request failed"))
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodeQuoteFailed,
			apperror.WithContext(fmt.Sprintf("HTTP %d: %s", resp.StatusCode, resp.String())))
	}

	quote, err := result.toDomain()
	if err != nil {
		return nil, apperror.New(apperror.CodeInvalidQuote,
			apperror.WithCause(err),
			apperror.WithContext("malformed quote response"))
	}

	c.logger.Debug(ctx, "quote received",
		"pool", pool.String(),
		"profit", quote.Profit.String())

	return quote, nil
}

func (r *quoteResponse) toDomain() (*domain.Quote, error) {
	profit, err := parseAmount(r.Profit)
	if err != nil {
		return nil, fmt.Errorf("profit: %w", err)
	}

	quote := &domain.Quote{
		Profit:          profit,
		InitialHopIndex: r.InitialHopIndex,
	}
	if profit.Sign() == 0 {
		return quote, nil
	}
	if r.Route == nil {
		return nil, fmt.Errorf("nonzero profit without a route")
	}

	route, err := r.Route.toDomain()
	if err != nil {
		return nil, fmt.Errorf("route: %w", err)
	}
	quote.Route = *route

	quote.AmountsOut = make([]*big.Int, len(r.AmountsOut))
	for i, s := range r.AmountsOut {
		out, err := parseAmount(s)
		if err != nil {
			return nil, fmt.Errorf("amount out %d: %w", i, err)
		}
		quote.AmountsOut[i] = out
	}

	return quote, nil
}

func (r *routeJSON) toDomain() (*domain.SwapRoute, error) {
	amountIn, err := parseAmount(r.AmountIn)
	if err != nil {
		return nil, fmt.Errorf("amount in: %w", err)
	}

	route := &domain.SwapRoute{
		Pools:    make([]domain.PoolRef, len(r.Pools)),
		Meta:     make([][]byte, len(r.Meta)),
		Tokens:   make([]common.Address, len(r.Tokens)),
		AmountIn: amountIn,
	}

	for i, p := range r.Pools {
		dex, err := domain.ParseDexProtocolType(p.Dex)
		if err != nil {
			return nil, fmt.Errorf("pool %d: %w", i, err)
		}
		route.Pools[i] = domain.PoolRef{ID: common.HexToHash(p.ID), Dex: dex}
	}
	for i, m := range r.Meta {
		if m == "" || m == "0x" {
			continue
		}
		b, err := hexutil.Decode(m)
		if err != nil {
			return nil, fmt.Errorf("meta %d: %w", i, err)
		}
		route.Meta[i] = b
	}
	for i, t := range r.Tokens {
		route.Tokens[i] = common.HexToAddress(t)
	}

	return route, nil
}

func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}

// quoterAPIError represents an error response from the quoting service.
type quoterAPIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *quoterAPIError) Error() string {
	return fmt.Sprintf("quoter error %s: %s", e.Code, e.Message)
}

// quoterErrorHandler parses quoting service error responses.
func quoterErrorHandler(statusCode int, body []byte) error {
	if statusCode >= 400 {
		var apiErr quoterAPIError
		if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Code != "" {
			return &apiErr
		}
		return fmt.Errorf("HTTP %d: %s", statusCode, string(body))
	}
	return nil
}
