package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// MaxInputAmount bounds a trigger's input amount to 112 bits, matching the
// widest amount a v2-style pair can represent.
var MaxInputAmount = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 112), big.NewInt(1))

// BackrunRequest is a single trigger instance. It is constructed per swap
// completion and never persisted.
type BackrunRequest struct {
	Pool       PoolRef
	AmountIn   *big.Int
	ZeroForOne bool
	Recipient  common.Address
	ConfigID   string
}

// Validate checks the request before it reaches the router.
func (r *BackrunRequest) Validate() error {
	if !r.Pool.Dex.Valid() {
		return fmt.Errorf("invalid dex protocol tag %d", uint8(r.Pool.Dex))
	}
	if r.Pool.ID == (common.Hash{}) {
		return fmt.Errorf("zero trigger pool id")
	}
	if r.AmountIn == nil || r.AmountIn.Sign() <= 0 {
		return fmt.Errorf("input amount must be positive")
	}
	if r.AmountIn.Cmp(MaxInputAmount) > 0 {
		return fmt.Errorf("input amount exceeds 112-bit bound")
	}
	return nil
}

// ExecutionResult is the outcome of one router invocation: either both fields
// are zero, or Profit is positive and Token identifies the profit token.
type ExecutionResult struct {
	Profit *big.Int
	Token  common.Address
}

// ZeroResult returns the no-op result used for zero quotes and skipped calls.
func ZeroResult() *ExecutionResult {
	return &ExecutionResult{Profit: new(big.Int)}
}

// IsZero reports whether the result carries no profit.
func (r *ExecutionResult) IsZero() bool {
	return r == nil || r.Profit == nil || r.Profit.Sign() == 0
}
