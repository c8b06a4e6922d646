// Package app contains application services and port definitions for the
// execution context: the adapter registry, the route executor, and the
// arbitrage router.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/domain"
)

// Quoter is the external route/profit oracle. It is queried fresh for every
// trigger; the engine never caches quotes.
type Quoter interface {
	// GetQuote returns the best backrun route for a completed swap on pool,
	// or a zero quote when no profitable route exists.
	GetQuote(ctx context.Context, pool domain.PoolRef, zeroForOne bool, amountIn *big.Int) (*domain.Quote, error)
}

// LoanCallback receives the repayment demand of a borrow-then-repay pool
// mid-flight. The callee must move repayAmount of repayToken to the pool
// before returning.
type LoanCallback func(ctx context.Context, repayToken common.Address, repayAmount *big.Int) error

// Pool is the call surface of one liquidity pool. Which entry point the
// executor uses is decided by the adapter registry, not by the pool.
type Pool interface {
	// Swap performs a funds-first swap: amountIn of tokenIn must already
	// have been transferred to the pool. Output is credited to recipient.
	Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, meta []byte) (*big.Int, error)

	// Loan performs a borrow-then-repay swap: the pool credits the output
	// to recipient first, then invokes repay for the committed input before
	// completing. Output is returned after repayment settles.
	Loan(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, meta []byte, repay LoanCallback) (*big.Int, error)
}

// PoolResolver maps a route's pool reference to a live pool call surface.
type PoolResolver interface {
	Resolve(ref domain.PoolRef) (Pool, error)
}

// Ledger is the token book the engine moves funds on. Implementations must
// make Atomically an all-or-nothing bracket: if fn returns an error, every
// balance change made inside it is rolled back.
type Ledger interface {
	BalanceOf(token, owner common.Address) *big.Int
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}
