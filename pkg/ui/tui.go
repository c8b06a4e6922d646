// Package ui provides the Bubble Tea TUI for the backrun engine.
package ui

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/backrun-engine/pkg/ui/components"
)

// StartupStep represents a step in the startup process.
type StartupStep struct {
	Name   string
	Status string // "pending", "connecting", "connected", "failed"
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseStartup   Phase = "startup"   // Loading/connecting
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	captures *components.CapturesComponent
	stats    *components.StatsComponent

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready         bool
	quitting      bool
	paused        bool
	width         int
	height        int
	currentBlock  uint64
	feedConnected bool
	lastUpdate    time.Time
	errors        []ErrorEntry // Persistent error panel (last 3)
	logs          []string     // Recent log messages

	// Startup state
	startupSteps []*StartupStep
	startupTime  time.Time

	// Activity tracking
	swapsObserved int64
	captureCount  int64
	errorCount    int64
	activityFeed  []string
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		captures:     components.NewCapturesComponent(50),
		stats:        components.NewStatsComponent(),
		phase:        PhaseWelcome,
		welcomeStart: now,
		logs:         make([]string, 0, 10),
		errors:       make([]ErrorEntry, 0, 3),
		activityFeed: make([]string, 0, 8),
		startupSteps: []*StartupStep{
			{Name: "Loading configuration", Status: "done"},
			{Name: "Seeding the book", Status: "pending"},
			{Name: "Connecting swap feed", Status: "pending"},
		},
		startupTime: now,
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to startup
		if m.phase == PhaseWelcome {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			// Trigger callback directly (don't use Send() from within Update)
			if OnStartModules != nil {
				go OnStartModules()
			}
			return m, tickCmd()
		}
		switch msg.String() {
		case "c":
			m.captures.Clear()
			return m, nil
		case "p":
			m.paused = !m.paused
			return m, nil
		case "e":
			m.errors = make([]ErrorEntry, 0, 3)
			return m, nil
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		// Check if welcome timeout has elapsed
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.phase = PhaseStartup
			m.startupTime = time.Now()
			if OnStartModules != nil {
				go OnStartModules()
			}
		}
		return m, tickCmd()

	case SwapMsg:
		if m.paused {
			return m, nil
		}
		m.swapsObserved++
		m.currentBlock = msg.Block
		m.lastUpdate = time.Now()
		activity := fmt.Sprintf("swap on %s (%s), in %s", shortAddr(msg.Pool), msg.Dex, msg.AmountIn)
		m.activityFeed = addActivity(m.activityFeed, activity)

	case CaptureMsg:
		m.captureCount++
		m.lastUpdate = time.Now()
		m.captures.Add(components.CaptureRow{
			Timestamp: time.Now().Format("15:04:05"),
			Block:     m.currentBlock,
			Pool:      shortAddr(msg.Pool),
			Dex:       "",
			Profit:    msg.Profit,
			TxHash:    msg.TxHash,
		})
		m.activityFeed = addActivity(m.activityFeed, "captured "+msg.Profit)

	case FeedStatusMsg:
		m.feedConnected = msg.Connected
		m.lastUpdate = time.Now()
		if msg.Connected {
			m.setStep("Connecting swap feed", "connected")
			m.setStep("Seeding the book", "done")
			m.phase = PhaseDashboard
		}

	case ErrorMsg:
		m.errorCount++
		m.logs = addLog(m.logs, "error", msg.Error.Error())
		m.errors = append(m.errors, ErrorEntry{
			Message:   msg.Error.Error(),
			Timestamp: time.Now(),
		})
		if len(m.errors) > 3 {
			m.errors = m.errors[len(m.errors)-3:]
		}

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)

	case StartupMsg:
		m.setStep(msg.Step, msg.Status)
	}

	return m, nil
}

func (m *Model) setStep(name, status string) {
	for _, step := range m.startupSteps {
		if step.Name == name {
			step.Status = status
		}
	}
}

// shortAddr compresses a hex address for display.
func shortAddr(s string) string {
	if len(s) <= 12 {
		return s
	}
	return s[:8] + "…" + s[len(s)-4:]
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// addActivity adds an activity message and returns the updated slice (keeps last 6).
func addActivity(feed []string, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	line := fmt.Sprintf("[%s] %s", timestamp, message)
	feed = append(feed, line)
	if len(feed) > 6 {
		feed = feed[len(feed)-6:]
	}
	return feed
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "Shutting down...\n"
	}
	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	default:
		return m.renderDashboard()
	}
}

func (m Model) renderWelcomeScreen() string {
	title := TitleStyle.Render(" BACKRUN ENGINE ")
	subtitle := MutedValue.Render("DEX backrun capture · press any key to start")
	content := lipgloss.JoinVertical(lipgloss.Center, "", title, "", subtitle, "")
	if m.width > 0 {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
	}
	return content
}

func (m Model) renderStartupScreen() string {
	var lines []string
	lines = append(lines, HeaderStyle.Render("Starting up"), "")
	for _, step := range m.startupSteps {
		icon := "·"
		style := MutedValue
		switch step.Status {
		case "connected", "done":
			icon = "✓"
			style = StatusConnected
		case "connecting":
			icon = "…"
			style = StatusReconnecting
		case "failed":
			icon = "✗"
			style = StatusDisconnected
		}
		lines = append(lines, fmt.Sprintf("  %s %s", style.Render(icon), step.Name))
	}
	lines = append(lines, "", HelpStyle.Render(fmt.Sprintf("elapsed %s", time.Since(m.startupTime).Round(time.Second))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m Model) renderDashboard() string {
	m.stats.Update(components.Stats{
		SwapsObserved: m.swapsObserved,
		Captures:      m.captureCount,
		Errors:        m.errorCount,
	})

	sections := []string{
		m.renderStatusBar(),
		BoxStyle.Render(m.stats.View()),
		BoxStyle.Render(m.captures.View()),
		BoxStyle.Render(m.renderActivityFeed()),
	}

	if len(m.errors) > 0 {
		var lines []string
		lines = append(lines, StatusDisconnected.Render("ERRORS (e to clear)"))
		for _, e := range m.errors {
			lines = append(lines, fmt.Sprintf("[%s] %s", e.Timestamp.Format("15:04:05"), e.Message))
		}
		sections = append(sections, BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, lines...)))
	}

	sections = append(sections, HelpStyle.Render("q quit · p pause · c clear · e clear errors"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderActivityFeed() string {
	if len(m.activityFeed) == 0 {
		return MutedValue.Render("Waiting for swaps...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, m.activityFeed...)
}

func (m Model) renderStatusBar() string {
	feed := StatusDisconnected.Render("feed: down")
	if m.feedConnected {
		feed = StatusConnected.Render("feed: up")
	}
	paused := ""
	if m.paused {
		paused = StatusReconnecting.Render("  PAUSED")
	}
	block := MutedValue.Render(fmt.Sprintf("block #%d", m.currentBlock))
	return HeaderStyle.Render("BACKRUN ENGINE") + "  " + feed + "  " + block + paused
}

// Program is the global Bubble Tea program handle, set by main.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
var OnStartModules func()

// Send delivers a message to the running TUI program, if any.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	// Call OnStartModules callback when StartModulesMsg is sent
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
