// Package app implements the revenue splitter service.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Ledger is the balance book the splitter pays out of.
type Ledger interface {
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
}
