// Package domain contains the swap completion events that trigger backruns.
package domain

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
)

// SwapEvent is one observed swap completion on a tracked pool. It carries
// everything needed to construct a backrun trigger.
type SwapEvent struct {
	Pool       execdomain.PoolRef
	Sender     common.Address
	Recipient  common.Address
	AmountIn   *big.Int
	ZeroForOne bool

	TxHash common.Hash
	Block  uint64
}

// Validate checks the event before it reaches the hook.
func (e *SwapEvent) Validate() error {
	if !e.Pool.Dex.Valid() {
		return fmt.Errorf("invalid dex protocol tag %d", uint8(e.Pool.Dex))
	}
	if e.Pool.ID == (common.Hash{}) {
		return fmt.Errorf("zero pool id")
	}
	if e.AmountIn == nil || e.AmountIn.Sign() <= 0 {
		return fmt.Errorf("swap input amount must be positive")
	}
	if e.AmountIn.Cmp(execdomain.MaxInputAmount) > 0 {
		return fmt.Errorf("swap input amount exceeds 112-bit bound")
	}
	return nil
}

// String returns a short identifier for logging.
func (e *SwapEvent) String() string {
	return fmt.Sprintf("%s tx=%s", e.Pool, e.TxHash.Hex()[:10])
}
