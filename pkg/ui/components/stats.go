// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
)

// Stats holds engine statistics for display.
type Stats struct {
	SwapsObserved int64
	Captures      int64
	Errors        int64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	valueStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	errorStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)

	captureRate := float64(0)
	if s.stats.SwapsObserved > 0 {
		captureRate = float64(s.stats.Captures) / float64(s.stats.SwapsObserved) * 100
	}

	errorsDisplay := valueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = errorStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return style.Render("STATS") + "\n" +
		fmt.Sprintf("Swaps observed: %s  │  Captures: %s (%.1f%%)  │  Errors: %s",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.SwapsObserved)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Captures)),
			captureRate,
			errorsDisplay,
		)
}
