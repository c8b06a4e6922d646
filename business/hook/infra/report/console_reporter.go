// Package report contains reporter adapters for the hook context.
package report

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"os"
	"time"

	"github.com/ethereum/go-ethereum/common"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/internal/asset"
)

// formatAmount renders a raw token amount through the asset registry when the
// token is known, falling back to raw base units.
func formatAmount(reg *asset.Registry, token common.Address, amount *big.Int) string {
	if reg != nil {
		if a, ok := reg.Get(asset.NewTokenAssetID(asset.ChainIDEthereum, token)); ok {
			return asset.NewAmount(a, amount).String()
		}
	}
	return fmt.Sprintf("%s (%s)", amount.String(), token.Hex())
}

// ConsoleReporter implements Reporter for CLI output.
type ConsoleReporter struct {
	out    io.Writer
	assets *asset.Registry
}

// NewConsoleReporter creates a new ConsoleReporter.
func NewConsoleReporter(assets *asset.Registry) *ConsoleReporter {
	return &ConsoleReporter{
		out:    os.Stdout,
		assets: assets,
	}
}

// Start initializes the console reporter.
func (r *ConsoleReporter) Start(ctx context.Context) error {
	fmt.Fprintln(r.out, "Backrun Engine Started")
	fmt.Fprintln(r.out, "======================")
	return nil
}

// ReportSwap is a no-op for the console; plain swaps would drown the output.
func (r *ConsoleReporter) ReportSwap(ev *domain.SwapEvent) {}

// ReportCapture outputs a realized capture to the console.
func (r *ConsoleReporter) ReportCapture(ev *domain.SwapEvent, result *execdomain.ExecutionResult) {
	if result.IsZero() {
		return
	}
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintln(r.out, "BACKRUN CAPTURED")
	fmt.Fprintln(r.out, "================================================================================")
	fmt.Fprintf(r.out, "Block:          #%d\n", ev.Block)
	fmt.Fprintf(r.out, "Trigger pool:   %s (%s)\n", ev.Pool.Address().Hex(), ev.Pool.Dex)
	fmt.Fprintf(r.out, "Trigger tx:     %s\n", ev.TxHash.Hex())
	fmt.Fprintf(r.out, "Trigger input:  %s\n", ev.AmountIn.String())
	fmt.Fprintln(r.out, "--------------------------------------------------------------------------------")
	fmt.Fprintf(r.out, "Profit:         %s\n", formatAmount(r.assets, result.Token, result.Profit))
	fmt.Fprintln(r.out, "================================================================================")
}

// UpdateFeedStatus outputs feed connection changes.
func (r *ConsoleReporter) UpdateFeedStatus(connected bool) {
	status := "disconnected"
	if connected {
		status = "connected"
	}
	fmt.Fprintf(r.out, "[%s] swap feed: %s\n", time.Now().Format("15:04:05"), status)
}

// Stop gracefully shuts down the console reporter.
func (r *ConsoleReporter) Stop() error {
	fmt.Fprintln(r.out, "")
	fmt.Fprintln(r.out, "Backrun Engine Stopped")
	return nil
}
