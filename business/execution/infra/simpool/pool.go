// Package simpool provides constant-product pools settled on the in-memory
// ledger. They back the route executor when the engine runs against its own
// book instead of live chain state.
package simpool

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/fd1az/backrun-engine/business/execution/app"
	"github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/execution/infra/memledger"
	"github.com/fd1az/backrun-engine/internal/apperror"
)

const bpsDenominator = 10000

// Pool is a two-token constant-product pool. Its reserves are the ledger
// balances held at the pool's own address.
type Pool struct {
	ledger *memledger.Ledger
	addr   common.Address
	token0 common.Address
	token1 common.Address
	feeBps uint16
}

// NewPool creates a pool trading token0 against token1 at addr.
func NewPool(ledger *memledger.Ledger, addr, token0, token1 common.Address, feeBps uint16) (*Pool, error) {
	if addr == (common.Address{}) {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "pool address must be nonzero")
	}
	if token0 == (common.Address{}) || token1 == (common.Address{}) || token0 == token1 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "pool needs two distinct nonzero tokens")
	}
	if feeBps >= bpsDenominator {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "fee must be below 10000 bps")
	}
	return &Pool{
		ledger: ledger,
		addr:   addr,
		token0: token0,
		token1: token1,
		feeBps: feeBps,
	}, nil
}

// Address returns the pool's settlement address on the ledger.
func (p *Pool) Address() common.Address {
	return p.addr
}

func (p *Pool) checkPair(tokenIn, tokenOut common.Address) error {
	ok := (tokenIn == p.token0 && tokenOut == p.token1) ||
		(tokenIn == p.token1 && tokenOut == p.token0)
	if !ok {
		return apperror.New(apperror.CodePoolCallFailed,
			apperror.WithContext("token pair not traded by this pool"))
	}
	return nil
}

// quoteOut prices amountIn against pre-trade reserves with the pool fee.
func quoteOut(reserveIn, reserveOut, amountIn *big.Int, feeBps uint16) *big.Int {
	if reserveIn.Sign() <= 0 || reserveOut.Sign() <= 0 {
		return new(big.Int)
	}
	inWithFee := new(big.Int).Mul(amountIn, big.NewInt(int64(bpsDenominator-feeBps)))
	num := new(big.Int).Mul(reserveOut, inWithFee)
	den := new(big.Int).Mul(reserveIn, big.NewInt(bpsDenominator))
	den.Add(den, inWithFee)
	return num.Div(num, den)
}

// Swap settles a funds-first trade: the input must already sit on the pool's
// balance when Swap is called, and the output is pushed to recipient.
func (p *Pool) Swap(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, meta []byte) (*big.Int, error) {
	if err := p.checkPair(tokenIn, tokenOut); err != nil {
		return nil, err
	}

	reserveIn := p.ledger.BalanceOf(tokenIn, p.addr)
	if reserveIn.Cmp(amountIn) < 0 {
		return nil, apperror.New(apperror.CodePoolCallFailed,
			apperror.WithContext("swap input was not funded"))
	}
	// The input already landed, so the pre-trade reserve excludes it.
	prior := new(big.Int).Sub(reserveIn, amountIn)
	reserveOut := p.ledger.BalanceOf(tokenOut, p.addr)

	out := quoteOut(prior, reserveOut, amountIn, p.feeBps)
	if out.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInsufficientOutput,
			apperror.WithContext("pool cannot price this trade"))
	}

	if err := p.ledger.Transfer(ctx, tokenOut, p.addr, recipient, out); err != nil {
		return nil, apperror.Wrap(err, apperror.CodePoolCallFailed, "paying swap output")
	}
	return out, nil
}

// Loan settles a borrow-then-repay trade: the output is advanced to recipient
// first, then the repay callback must move the committed input to the pool.
func (p *Pool) Loan(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, recipient common.Address, meta []byte, repay app.LoanCallback) (*big.Int, error) {
	if err := p.checkPair(tokenIn, tokenOut); err != nil {
		return nil, err
	}

	reserveIn := p.ledger.BalanceOf(tokenIn, p.addr)
	reserveOut := p.ledger.BalanceOf(tokenOut, p.addr)

	out := quoteOut(reserveIn, reserveOut, amountIn, p.feeBps)
	if out.Sign() <= 0 {
		return nil, apperror.New(apperror.CodeInsufficientOutput,
			apperror.WithContext("pool cannot price this trade"))
	}

	if err := p.ledger.Transfer(ctx, tokenOut, p.addr, recipient, out); err != nil {
		return nil, apperror.Wrap(err, apperror.CodePoolCallFailed, "advancing loan output")
	}

	before := p.ledger.BalanceOf(tokenIn, p.addr)
	if err := repay(ctx, tokenIn, amountIn); err != nil {
		return nil, err
	}
	received := new(big.Int).Sub(p.ledger.BalanceOf(tokenIn, p.addr), before)
	if received.Cmp(amountIn) < 0 {
		return nil, apperror.New(apperror.CodePoolCallFailed,
			apperror.WithContext("loan repayment not received"))
	}

	return out, nil
}

// Resolver maps pool references to registered simulated pools.
type Resolver struct {
	pools map[common.Hash]app.Pool
}

// NewResolver creates an empty resolver.
func NewResolver() *Resolver {
	return &Resolver{pools: make(map[common.Hash]app.Pool)}
}

// Register binds a pool to its reference ID.
func (r *Resolver) Register(ref domain.PoolRef, pool app.Pool) {
	r.pools[ref.ID] = pool
}

// Resolve returns the pool registered for ref.
func (r *Resolver) Resolve(ref domain.PoolRef) (app.Pool, error) {
	pool, ok := r.pools[ref.ID]
	if !ok {
		return nil, apperror.New(apperror.CodePoolNotFound, apperror.WithContext(ref.String()))
	}
	return pool, nil
}
