// Package ui provides the Bubble Tea TUI for the backrun engine.
package ui

import "time"

// Message types for TUI updates

// SwapMsg is sent when a tracked pool reports a completed swap.
type SwapMsg struct {
	Pool     string
	Dex      string
	AmountIn string
	Block    uint64
}

// CaptureMsg is sent when a trigger realizes profit.
type CaptureMsg struct {
	Pool   string
	Profit string
	Token  string
	TxHash string
}

// FeedStatusMsg is sent when the swap feed connection changes state.
type FeedStatusMsg struct {
	Connected bool
	Latency   time.Duration
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// WelcomeCompleteMsg signals the welcome screen is done (timeout or keypress).
type WelcomeCompleteMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}

// StartupMsg is sent during application startup to show progress.
type StartupMsg struct {
	Step    string // Current step name
	Status  string // "connecting", "connected", "failed"
	Message string // Optional message
}
