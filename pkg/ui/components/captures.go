// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// CaptureRow represents one realized capture in the list.
type CaptureRow struct {
	Timestamp string
	Block     uint64
	Pool      string
	Dex       string
	Profit    string
	TxHash    string
}

// CapturesComponent renders the captures list.
type CapturesComponent struct {
	rows    []CaptureRow
	maxRows int
}

// NewCapturesComponent creates a new captures component.
func NewCapturesComponent(maxRows int) *CapturesComponent {
	return &CapturesComponent{
		rows:    make([]CaptureRow, 0),
		maxRows: maxRows,
	}
}

// Add adds a new capture to the list.
func (c *CapturesComponent) Add(row CaptureRow) {
	c.rows = append([]CaptureRow{row}, c.rows...)
	if len(c.rows) > c.maxRows {
		c.rows = c.rows[:c.maxRows]
	}
}

// Clear clears all captures.
func (c *CapturesComponent) Clear() {
	c.rows = make([]CaptureRow, 0)
}

// Count returns the number of stored captures.
func (c *CapturesComponent) Count() int {
	return len(c.rows)
}

// View renders the captures component.
func (c *CapturesComponent) View() string {
	if len(c.rows) == 0 {
		return "No captures yet..."
	}

	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED"))
	profitStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))

	result := headerStyle.Render(fmt.Sprintf("CAPTURES (last %d)", c.maxRows)) + "\n"
	result += "┌──────────┬─────────┬──────────────┬─────────────┬──────────────────────┐\n"
	result += "│   Time   │  Block  │     Pool     │     Dex     │        Profit        │\n"
	result += "├──────────┼─────────┼──────────────┼─────────────┼──────────────────────┤\n"

	for _, row := range c.rows {
		result += fmt.Sprintf("│ %-8s │%8d │ %-12s │ %-11s │ %s│\n",
			row.Timestamp,
			row.Block,
			shorten(row.Pool, 12),
			row.Dex,
			profitStyle.Render(fmt.Sprintf("%-21s", shorten(row.Profit, 21))),
		)
	}
	result += "└──────────┴─────────┴──────────────┴─────────────┴──────────────────────┘"
	return result
}

// shorten truncates s to n runes with a trailing ellipsis.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
