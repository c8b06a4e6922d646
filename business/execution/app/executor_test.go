package app

import (
	"context"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
)

var (
	testSelf = common.HexToAddress("0x00000000000000000000000000000000000000fd")

	tokenWETH = common.HexToAddress("0xc02aaa39b223fe8d0a0e5c4f27ead9083c756cc2")
	tokenUSDC = common.HexToAddress("0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48")
	tokenDAI  = common.HexToAddress("0x6b175474e89094c44da98b954eedeac495271d0f")
)

func testLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "test", nil)
}

func poolRef(id byte, dex domain.DexProtocolType) domain.PoolRef {
	var h common.Hash
	h[31] = id
	return domain.PoolRef{ID: h, Dex: dex}
}

// fakePool settles swaps against a memledger with a fixed output amount.
// Its behavior knobs model the pool misbehavior the executor must reject.
type fakePool struct {
	ledger *memledger.Ledger
	addr   common.Address
	out    *big.Int

	swapErr     error
	skipRepay   bool
	repayTwice  bool
	repayToken  common.Address // overrides the input token when set
	overDemand  bool           // demand more than the committed obligation
	underDemand *big.Int       // demand this instead of the full obligation
	zeroOutput  bool
}

func (p *fakePool) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, _ []byte) (*big.Int, error) {
	if p.swapErr != nil {
		return nil, p.swapErr
	}
	if p.zeroOutput {
		return new(big.Int), nil
	}
	if err := p.ledger.Transfer(ctx, tokenOut, p.addr, recipient, p.out); err != nil {
		return nil, err
	}
	return new(big.Int).Set(p.out), nil
}

func (p *fakePool) Loan(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, _ []byte, repay LoanCallback) (*big.Int, error) {
	if p.swapErr != nil {
		return nil, p.swapErr
	}
	// Output is advanced before repayment is demanded.
	if !p.zeroOutput {
		if err := p.ledger.Transfer(ctx, tokenOut, p.addr, recipient, p.out); err != nil {
			return nil, err
		}
	}
	if !p.skipRepay {
		demandToken := tokenIn
		if p.repayToken != (common.Address{}) {
			demandToken = p.repayToken
		}
		demand := new(big.Int).Set(amountIn)
		if p.overDemand {
			demand.Add(demand, big.NewInt(1))
		}
		if p.underDemand != nil {
			demand.Set(p.underDemand)
		}
		if err := repay(ctx, demandToken, demand); err != nil {
			return nil, err
		}
		if p.repayTwice {
			if err := repay(ctx, demandToken, demand); err != nil {
				return nil, err
			}
		}
	}
	if p.zeroOutput {
		return new(big.Int), nil
	}
	return new(big.Int).Set(p.out), nil
}

// mapResolver resolves pool refs from a fixed map.
type mapResolver map[common.Hash]Pool

func (m mapResolver) Resolve(ref domain.PoolRef) (Pool, error) {
	p, ok := m[ref.ID]
	if !ok {
		return nil, apperror.New(apperror.CodePoolNotFound, apperror.WithContext(ref.String()))
	}
	return p, nil
}

// twoHopEnv wires a cyclic WETH -> USDC -> WETH route over one funds-first
// pool and one callback pool, with the ledger seeded for both.
type twoHopEnv struct {
	ledger   *memledger.Ledger
	executor *RouteExecutor
	route    domain.SwapRoute
	pool1    *fakePool
	pool2    *fakePool
}

func newTwoHopEnv(t *testing.T) *twoHopEnv {
	t.Helper()

	ledger := memledger.New()

	ref1 := poolRef(0x01, domain.DexUniswapV2)
	ref2 := poolRef(0x02, domain.DexUniswapV3)

	pool1 := &fakePool{ledger: ledger, addr: ref1.Address(), out: big.NewInt(200)}
	pool2 := &fakePool{ledger: ledger, addr: ref2.Address(), out: big.NewInt(150)}

	ledger.Mint(tokenWETH, testSelf, big.NewInt(100))
	ledger.Mint(tokenUSDC, pool1.addr, big.NewInt(1_000))
	ledger.Mint(tokenWETH, pool2.addr, big.NewInt(1_000))

	executor := NewRouteExecutor(
		ledger,
		mapResolver{ref1.ID: pool1, ref2.ID: pool2},
		NewAdapterRegistry(),
		testSelf,
		testLogger(),
	)

	route := domain.SwapRoute{
		Pools:    []domain.PoolRef{ref1, ref2},
		Meta:     [][]byte{nil, nil},
		Tokens:   []common.Address{tokenWETH, tokenUSDC, tokenWETH},
		AmountIn: big.NewInt(100),
	}

	return &twoHopEnv{ledger: ledger, executor: executor, route: route, pool1: pool1, pool2: pool2}
}

func TestRouteExecutor_TwoHopCycle(t *testing.T) {
	env := newTwoHopEnv(t)

	out, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
	if err != nil {
		t.Fatalf("ExecuteRoute failed: %v", err)
	}
	if out.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("out = %s, want 150", out)
	}

	// 100 WETH into pool1, 200 USDC out; 200 USDC repaid to pool2, 150 WETH out.
	if got := env.ledger.BalanceOf(tokenWETH, testSelf); got.Cmp(big.NewInt(150)) != 0 {
		t.Errorf("self WETH = %s, want 150", got)
	}
	if got := env.ledger.BalanceOf(tokenUSDC, testSelf); got.Sign() != 0 {
		t.Errorf("self USDC = %s, want 0", got)
	}
	if got := env.ledger.BalanceOf(tokenWETH, env.pool1.addr); got.Cmp(big.NewInt(100)) != 0 {
		t.Errorf("pool1 WETH = %s, want 100", got)
	}
	if got := env.ledger.BalanceOf(tokenUSDC, env.pool2.addr); got.Cmp(big.NewInt(200)) != 0 {
		t.Errorf("pool2 USDC = %s, want 200", got)
	}
}

func TestRouteExecutor_MidRouteStartWrapsAround(t *testing.T) {
	env := newTwoHopEnv(t)

	// Start at hop 1 (USDC -> WETH via pool2), wrap to hop 0.
	env.ledger.Mint(tokenUSDC, testSelf, big.NewInt(200))
	env.pool1.out = big.NewInt(180) // hop 0 consumes the 150 WETH from hop 1

	out, err := env.executor.ExecuteRoute(context.Background(), &env.route, 1, big.NewInt(200))
	if err != nil {
		t.Fatalf("ExecuteRoute failed: %v", err)
	}
	if out.Cmp(big.NewInt(180)) != 0 {
		t.Errorf("out = %s, want 180", out)
	}
}

func TestRouteExecutor_MidRouteStartRequiresCycle(t *testing.T) {
	env := newTwoHopEnv(t)
	env.route.Tokens[2] = tokenDAI // break the cycle

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 1, big.NewInt(200))
	if !apperror.IsCode(err, apperror.CodeRouteNotCyclic) {
		t.Fatalf("err = %v, want ROUTE_NOT_CYCLIC", err)
	}
}

func TestRouteExecutor_StartHopOutOfRange(t *testing.T) {
	env := newTwoHopEnv(t)

	for _, start := range []int{-1, 2} {
		_, err := env.executor.ExecuteRoute(context.Background(), &env.route, start, big.NewInt(100))
		if !apperror.IsCode(err, apperror.CodeInvalidInput) {
			t.Errorf("start %d: err = %v, want INVALID_INPUT", start, err)
		}
	}
}

func TestRouteExecutor_HopFailureAborts(t *testing.T) {
	env := newTwoHopEnv(t)
	env.pool2.swapErr = apperror.New(apperror.CodePoolCallFailed, apperror.WithContext("LOK"))

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
	if !apperror.IsCode(err, apperror.CodePoolCallFailed) {
		t.Fatalf("err = %v, want POOL_CALL_FAILED", err)
	}
}

func TestRouteExecutor_RepaymentNotTaken(t *testing.T) {
	env := newTwoHopEnv(t)
	env.pool2.skipRepay = true

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
	if !apperror.IsCode(err, apperror.CodeRepaymentNotTaken) {
		t.Fatalf("err = %v, want REPAYMENT_NOT_TAKEN", err)
	}
}

func TestRouteExecutor_RejectsMisbehavingRepayDemand(t *testing.T) {
	tests := []struct {
		name  string
		tweak func(p *fakePool)
		code  apperror.Code
	}{
		{
			"duplicate demand",
			func(p *fakePool) { p.repayTwice = true },
			apperror.CodePoolCallFailed,
		},
		{
			"wrong token",
			func(p *fakePool) { p.repayToken = tokenDAI },
			apperror.CodePoolCallFailed,
		},
		{
			"demand above obligation",
			func(p *fakePool) { p.overDemand = true },
			apperror.CodeInsufficientOutput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTwoHopEnv(t)
			tt.tweak(env.pool2)

			_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
			if !apperror.IsCode(err, tt.code) {
				t.Fatalf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestRouteExecutor_UnderDemandedRepaymentLeavesNoResidue(t *testing.T) {
	env := newTwoHopEnv(t)

	// Pool2 borrows 200 USDC worth of output but only demands 150 back. The
	// 50 USDC surplus would sit on the router while the route reports a clean
	// 150 WETH; the post-route balance check must reject that.
	env.pool2.underDemand = big.NewInt(150)

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
	if !apperror.IsCode(err, apperror.CodeLeftoverBalance) {
		t.Fatalf("err = %v, want LEFTOVER_BALANCE", err)
	}
}

func TestRouteExecutor_ZeroOutputRejected(t *testing.T) {
	env := newTwoHopEnv(t)
	env.pool1.zeroOutput = true

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(100))
	if !apperror.IsCode(err, apperror.CodeInsufficientOutput) {
		t.Fatalf("err = %v, want INSUFFICIENT_OUTPUT", err)
	}
}

func TestRouteExecutor_InsufficientWorkingCapital(t *testing.T) {
	env := newTwoHopEnv(t)

	_, err := env.executor.ExecuteRoute(context.Background(), &env.route, 0, big.NewInt(500))
	if !apperror.IsCode(err, apperror.CodeInsufficientBalance) {
		t.Fatalf("err = %v, want INSUFFICIENT_BALANCE", err)
	}
}
