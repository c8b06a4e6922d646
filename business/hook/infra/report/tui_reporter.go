package report

import (
	"context"

	execdomain "github.com/fd1az/backrun-engine/business/execution/domain"
	"github.com/fd1az/backrun-engine/business/hook/domain"
	"github.com/fd1az/backrun-engine/internal/asset"
	"github.com/fd1az/backrun-engine/pkg/ui"
)

// TUIReporter implements Reporter for the Bubble Tea TUI.
type TUIReporter struct {
	assets *asset.Registry
}

// NewTUIReporter creates a new TUIReporter.
func NewTUIReporter(assets *asset.Registry) *TUIReporter {
	return &TUIReporter{assets: assets}
}

// Start is a no-op; the TUI program is started by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// ReportSwap forwards a tracked swap to the TUI.
func (r *TUIReporter) ReportSwap(ev *domain.SwapEvent) {
	ui.Send(ui.SwapMsg{
		Pool:     ev.Pool.Address().Hex(),
		Dex:      ev.Pool.Dex.String(),
		AmountIn: ev.AmountIn.String(),
		Block:    ev.Block,
	})
}

// ReportCapture forwards a realized capture to the TUI.
func (r *TUIReporter) ReportCapture(ev *domain.SwapEvent, result *execdomain.ExecutionResult) {
	if result.IsZero() {
		return
	}
	ui.Send(ui.CaptureMsg{
		Pool:   ev.Pool.Address().Hex(),
		Profit: formatAmount(r.assets, result.Token, result.Profit),
		Token:  result.Token.Hex(),
		TxHash: ev.TxHash.Hex(),
	})
}

// UpdateFeedStatus forwards feed connection changes to the TUI.
func (r *TUIReporter) UpdateFeedStatus(connected bool) {
	ui.Send(ui.FeedStatusMsg{Connected: connected})
}

// Stop is a no-op; the TUI program is stopped by main.
func (r *TUIReporter) Stop() error {
	return nil
}
