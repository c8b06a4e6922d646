// Package app implements the hook integration layer: the failsafe seam
// between observed swap completions and the backrun router.
package app

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	distdomain "github.com/fd1az/backrun-engine/business/distribution/domain"
	execapp "github.com/fd1az/backrun-engine/business/execution/app"
	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
)

// BackrunRouter is the execution-context entry point the hook drives.
type BackrunRouter interface {
	TriggerBackrun(ctx context.Context, req *execdomain.BackrunRequest) (*execdomain.ExecutionResult, error)
	SetQuoter(q execapp.Quoter)
	Self() common.Address
}

// Distributor pays realized profit out according to a named share config.
type Distributor interface {
	Distribute(ctx context.Context, token, payer common.Address, amount *big.Int, configID string) ([]distdomain.Payout, error)
}

// Ledger is the balance book the hook settles against. Atomically brackets
// one trigger's execution and distribution into a single unit of work.
type Ledger interface {
	BalanceOf(token, owner common.Address) *big.Int
	Transfer(ctx context.Context, token, from, to common.Address, amount *big.Int) error
	Atomically(ctx context.Context, fn func(ctx context.Context) error) error
}

// Reporter surfaces capture activity to an operator interface.
type Reporter interface {
	Start(ctx context.Context) error
	ReportSwap(ev *domain.SwapEvent)
	ReportCapture(ev *domain.SwapEvent, result *execdomain.ExecutionResult)
	UpdateFeedStatus(connected bool)
	Stop() error
}
