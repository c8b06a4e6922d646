package app

import (
	"context"
	"math/big"
	"testing"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

// stubQuoter returns a fixed quote or error for every request.
type stubQuoter struct {
	quote *domain.Quote
	err   error
}

func (q *stubQuoter) GetQuote(context.Context, domain.PoolRef, bool, *big.Int) (*domain.Quote, error) {
	return q.quote, q.err
}

func testRequest() *domain.BackrunRequest {
	return &domain.BackrunRequest{
		Pool:       poolRef(0x01, domain.DexUniswapV2),
		AmountIn:   big.NewInt(1_000),
		ZeroForOne: true,
	}
}

func newTestRouter(t *testing.T, env *twoHopEnv, quote *domain.Quote, quoteErr error) *Router {
	t.Helper()
	r, err := NewRouter(&stubQuoter{quote: quote, err: quoteErr}, env.executor, env.ledger, testSelf, testLogger())
	if err != nil {
		t.Fatalf("NewRouter failed: %v", err)
	}
	return r
}

func TestRouter_ZeroQuoteIsNoOp(t *testing.T) {
	env := newTwoHopEnv(t)
	router := newTestRouter(t, env, &domain.Quote{Profit: new(big.Int)}, nil)

	res, err := router.TriggerBackrun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("TriggerBackrun failed: %v", err)
	}
	if !res.IsZero() {
		t.Errorf("result = %+v, want zero result", res)
	}
	if got := env.ledger.BalanceOf(tokenWETH, testSelf); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("zero quote must not move funds, self WETH = %s", got)
	}
}

func TestRouter_ProfitableRoute(t *testing.T) {
	env := newTwoHopEnv(t)
	quote := &domain.Quote{
		Profit:     big.NewInt(50),
		Route:      env.route,
		AmountsOut: []*big.Int{big.NewInt(200), big.NewInt(150)},
	}
	router := newTestRouter(t, env, quote, nil)

	res, err := router.TriggerBackrun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("TriggerBackrun failed: %v", err)
	}

	// Route input 100, final output 150: realized profit is the difference,
	// regardless of the quoter's own estimate.
	if res.Profit.Cmp(big.NewInt(50)) != 0 {
		t.Errorf("profit = %s, want 50", res.Profit)
	}
	if res.Token != tokenWETH {
		t.Errorf("profit token = %s, want WETH", res.Token.Hex())
	}
}

func TestRouter_MidRouteQuote(t *testing.T) {
	env := newTwoHopEnv(t)
	env.ledger.Mint(tokenUSDC, testSelf, big.NewInt(200))
	env.pool1.out = big.NewInt(180)

	route := env.route
	route.AmountIn = big.NewInt(150)
	quote := &domain.Quote{
		Profit:          big.NewInt(30),
		Route:           route,
		AmountsOut:      []*big.Int{big.NewInt(150), big.NewInt(180)},
		InitialHopIndex: 1,
	}
	router := newTestRouter(t, env, quote, nil)

	res, err := router.TriggerBackrun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("TriggerBackrun failed: %v", err)
	}
	if res.Profit.Cmp(big.NewInt(30)) != 0 {
		t.Errorf("profit = %s, want 30", res.Profit)
	}
	// A mid-route start realizes profit in the token at the initial hop.
	if res.Token != tokenUSDC {
		t.Errorf("profit token = %s, want USDC", res.Token.Hex())
	}
}

func TestRouter_UnprofitableRouteAborts(t *testing.T) {
	env := newTwoHopEnv(t)
	env.pool2.out = big.NewInt(100) // exactly breakeven

	quote := &domain.Quote{
		Profit:     big.NewInt(1),
		Route:      env.route,
		AmountsOut: []*big.Int{big.NewInt(200), big.NewInt(100)},
	}
	router := newTestRouter(t, env, quote, nil)

	_, err := router.TriggerBackrun(context.Background(), testRequest())
	if !apperror.IsCode(err, apperror.CodeUnprofitableRoute) {
		t.Fatalf("err = %v, want UNPROFITABLE_ROUTE", err)
	}
}

func TestRouter_QuoteFailurePropagates(t *testing.T) {
	env := newTwoHopEnv(t)
	router := newTestRouter(t, env, nil, apperror.New(apperror.CodeExternalServiceError))

	_, err := router.TriggerBackrun(context.Background(), testRequest())
	if err == nil {
		t.Fatal("expected error from failing quoter")
	}
	if !apperror.IsAppError(err) {
		t.Fatalf("err = %v, want AppError", err)
	}
}

func TestRouter_InvalidQuoteRejected(t *testing.T) {
	env := newTwoHopEnv(t)

	route := env.route
	route.Tokens = route.Tokens[:2] // structurally broken
	quote := &domain.Quote{
		Profit:     big.NewInt(10),
		Route:      route,
		AmountsOut: []*big.Int{big.NewInt(200), big.NewInt(150)},
	}
	router := newTestRouter(t, env, quote, nil)

	_, err := router.TriggerBackrun(context.Background(), testRequest())
	if !apperror.IsCode(err, apperror.CodeInvalidQuote) {
		t.Fatalf("err = %v, want INVALID_QUOTE", err)
	}
}

func TestRouter_InvalidRequestRejected(t *testing.T) {
	env := newTwoHopEnv(t)
	router := newTestRouter(t, env, &domain.Quote{Profit: new(big.Int)}, nil)

	req := testRequest()
	req.AmountIn = new(big.Int) // zero input

	_, err := router.TriggerBackrun(context.Background(), req)
	if !apperror.IsCode(err, apperror.CodeInvalidInput) {
		t.Fatalf("err = %v, want INVALID_INPUT", err)
	}
}

func TestRouter_SetQuoterSwapsEndpoint(t *testing.T) {
	env := newTwoHopEnv(t)
	router := newTestRouter(t, env, nil, apperror.New(apperror.CodeExternalServiceError))

	router.SetQuoter(&stubQuoter{quote: &domain.Quote{Profit: new(big.Int)}})

	res, err := router.TriggerBackrun(context.Background(), testRequest())
	if err != nil {
		t.Fatalf("TriggerBackrun after SetQuoter failed: %v", err)
	}
	if !res.IsZero() {
		t.Errorf("result = %+v, want zero result", res)
	}
}
