package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/internal/apperror"
	"github.com/fd1az/backrun-engine/internal/logger"
)

// RouteExecutor performs the hops of a decoded route against the correct
// adapter convention, propagating hop n's output as hop n+1's input.
//
// The executor is not failsafe: any hop failure aborts the route and the
// error propagates to the caller. Rollback of balance changes is the
// responsibility of the enclosing ledger unit of work.
type RouteExecutor struct {
	ledger   Ledger
	pools    PoolResolver
	registry *AdapterRegistry
	self     common.Address
	logger   logger.LoggerInterface
}

// NewRouteExecutor creates a RouteExecutor operating funds on behalf of the
// router book address self.
func NewRouteExecutor(ledger Ledger, pools PoolResolver, registry *AdapterRegistry, self common.Address, log logger.LoggerInterface) *RouteExecutor {
	return &RouteExecutor{
		ledger:   ledger,
		pools:    pools,
		registry: registry,
		self:     self,
		logger:   log,
	}
}

// ExecuteRoute folds the route's hops left-to-right starting at startHop,
// wrapping around to hop 0 after the last hop. A mid-route start reflects
// where the triggering swap already moved price and requires a cyclic token
// path. Returns the output amount of the final hop.
func (e *RouteExecutor) ExecuteRoute(ctx context.Context, route *domain.SwapRoute, startHop int, amountIn *big.Int) (*big.Int, error) {
	if err := route.Validate(); err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidInput, err.Error())
	}
	n := route.Hops()
	if startHop < 0 || startHop >= n {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "start hop index out of range")
	}
	if startHop != 0 && !route.IsCyclic() {
		return nil, apperror.New(apperror.CodeRouteNotCyclic)
	}
	if amountIn == nil || amountIn.Sign() <= 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amount in must be positive")
	}

	// Pre-route balances of every token the route touches. After the final
	// hop each balance must match exactly: spend amountIn of the start token,
	// receive the final output, and hold nothing else. A pool that shortpays
	// or underdemands strands funds mid-route and must not report success.
	before := make(map[common.Address]*big.Int, len(route.Tokens))
	for _, token := range route.Tokens {
		if _, ok := before[token]; !ok {
			before[token] = e.ledger.BalanceOf(token, e.self)
		}
	}

	amount := new(big.Int).Set(amountIn)
	for i := 0; i < n; i++ {
		hop := (startHop + i) % n
		out, err := e.ExecuteHop(ctx, route, hop, amount)
		if err != nil {
			return nil, err
		}
		e.logger.Debug(ctx, "hop executed",
			"hop", hop,
			"pool", route.Pools[hop].String(),
			"amount_in", amount.String(),
			"amount_out", out.String(),
		)
		amount = out
	}

	startToken := route.Tokens[startHop]
	finalToken := route.Tokens[(startHop+n-1)%n+1]
	for token, prior := range before {
		want := new(big.Int).Set(prior)
		if token == startToken {
			want.Sub(want, amountIn)
		}
		if token == finalToken {
			want.Add(want, amount)
		}
		if got := e.ledger.BalanceOf(token, e.self); got.Cmp(want) != 0 {
			return nil, apperror.New(apperror.CodeLeftoverBalance,
				apperror.WithContext("token "+token.Hex()+" holds "+got.String()+" after route, expected "+want.String()))
		}
	}
	return amount, nil
}

// ExecuteHop performs a single hop of the route, settling through the
// convention the adapter registry assigns to the hop's protocol family.
func (e *RouteExecutor) ExecuteHop(ctx context.Context, route *domain.SwapRoute, hop int, amountIn *big.Int) (*big.Int, error) {
	ref := route.Pools[hop]

	conv, err := e.registry.ConventionFor(ref.Dex)
	if err != nil {
		return nil, err
	}

	pool, err := e.pools.Resolve(ref)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodePoolNotFound, ref.String())
	}

	tokenIn := route.Tokens[hop]
	tokenOut := route.Tokens[hop+1]
	meta := route.Meta[hop]

	switch conv {
	case domain.FundsFirst:
		return e.fundsFirstHop(ctx, pool, ref, tokenIn, tokenOut, amountIn, meta)
	case domain.BorrowThenRepay:
		return e.borrowThenRepayHop(ctx, pool, ref, tokenIn, tokenOut, amountIn, meta)
	default:
		// Unreachable while the registry stays total over the enum.
		return nil, apperror.New(apperror.CodeUnknownProtocol, apperror.WithContext(ref.Dex.String()))
	}
}

// fundsFirstHop transfers the input to the pool before invoking the swap and
// expects the output credited back to the router.
func (e *RouteExecutor) fundsFirstHop(ctx context.Context, pool Pool, ref domain.PoolRef, tokenIn, tokenOut common.Address, amountIn *big.Int, meta []byte) (*big.Int, error) {
	if err := e.ledger.Transfer(ctx, tokenIn, e.self, ref.Address(), amountIn); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInsufficientBalance, "pre-funding hop input")
	}

	out, err := pool.Swap(ctx, tokenIn, tokenOut, amountIn, e.self, meta)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodePoolCallFailed, ref.String())
	}
	if out == nil || out.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInsufficientOutput, apperror.WithContext(ref.String()))
	}
	return out, nil
}

// borrowThenRepayHop invokes the pool's loan entry point. The repayment
// amount is committed before the call; the pool is expected to demand it
// exactly once through the callback before completing. The callback is the
// only nested call the executor accepts mid-hop.
func (e *RouteExecutor) borrowThenRepayHop(ctx context.Context, pool Pool, ref domain.PoolRef, tokenIn, tokenOut common.Address, amountIn *big.Int, meta []byte) (*big.Int, error) {
	// Committed obligation: the pool may demand at most this, in this token.
	obligation := new(big.Int).Set(amountIn)
	repaid := false

	repay := func(ctx context.Context, repayToken common.Address, repayAmount *big.Int) error {
		if repaid {
			return apperror.New(apperror.CodePoolCallFailed,
				apperror.WithContext("duplicate repayment demand"))
		}
		if repayToken != tokenIn {
			return apperror.New(apperror.CodePoolCallFailed,
				apperror.WithContext("repayment demanded in unexpected token"))
		}
		// A demand below the obligation leaves the surplus stranded on the
		// book; the post-route balance check rejects the whole route then.
		if repayAmount == nil || repayAmount.Cmp(obligation) > 0 {
			return apperror.New(apperror.CodeInsufficientOutput,
				apperror.WithContext("repayment demand exceeds committed obligation"))
		}
		repaid = true
		return e.ledger.Transfer(ctx, repayToken, e.self, ref.Address(), repayAmount)
	}

	out, err := pool.Loan(ctx, tokenIn, tokenOut, amountIn, e.self, meta, repay)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodePoolCallFailed, ref.String())
	}
	if !repaid {
		return nil, apperror.New(apperror.CodeRepaymentNotTaken, apperror.WithContext(ref.String()))
	}
	if out == nil || out.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInsufficientOutput, apperror.WithContext(ref.String()))
	}
	return out, nil
}
