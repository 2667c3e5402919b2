package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/embedstyle/stylehost/metrics"
)

var quitKey = key.NewBinding(
	key.WithKeys("q", "ctrl+c"),
	key.WithHelp("q", "quit"),
)

// StatsModel is a Bubble Tea model for the host metrics view.
type StatsModel struct {
	viewType string
	data     any
	width    int
	height   int
	quitting bool
}

// NewStatsModel creates a new stats model.
func NewStatsModel(viewType string, data any) StatsModel {
	return StatsModel{
		viewType: viewType,
		data:     data,
	}
}

// Init implements tea.Model.
func (m StatsModel) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m StatsModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, quitKey) {
			m.quitting = true
			return m, tea.Quit
		}
	}

	return m, nil
}

// View implements tea.Model.
func (m StatsModel) View() string {
	if m.quitting {
		return ""
	}

	var content string
	switch m.viewType {
	case "stats_metrics":
		content = m.renderStatsMetrics()
	default:
		content = fmt.Sprintf("Unknown view type: %s", m.viewType)
	}

	help := HelpStyle.Render("Press q or Ctrl+C to quit")
	return content + "\n" + help
}

func (m StatsModel) renderStatsMetrics() string {
	snap, ok := m.data.(metrics.Snapshot)
	if !ok {
		return "Invalid data type for stats_metrics"
	}

	var b strings.Builder
	b.WriteString(TitleStyle.Render("Host Metrics"))
	b.WriteString("\n\n")

	compileBoxes := []string{
		m.renderStatBox("Started", snap.CompilesStarted, highlightColor),
		m.renderStatBox("Succeeded", snap.CompilesSucceeded, successColor),
		m.renderStatBox("Failed", snap.CompilesFailed, errorColor),
		m.renderStatBox("Aborted", snap.CompilesAborted, warningColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, compileBoxes...))
	b.WriteString("\n\n")

	callbackBoxes := []string{
		m.renderStatBox("Functions", snap.FunctionCalls, highlightColor),
		m.renderStatBox("Canonicalize", snap.CanonicalizeRequests, highlightColor),
		m.renderStatBox("Imports", snap.ImportRequests, highlightColor),
		m.renderStatBox("File Imports", snap.FileImportRequests, highlightColor),
		m.renderStatBox("Log Events", snap.LogEvents, mutedColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, callbackBoxes...))
	b.WriteString("\n\n")

	transportBoxes := []string{
		m.renderStatBox("Protocol Errors", snap.ProtocolErrors, errorColor),
		m.renderStatBox("Transport Errors", snap.TransportErrors, errorColor),
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, transportBoxes...))
	b.WriteString("\n\n")

	b.WriteString(fmt.Sprintf("%s %s\n",
		LabelStyle.Render("Telemetry:"),
		ValueStyle.Render(snap.Telemetry)))
	b.WriteString(fmt.Sprintf("%s %s",
		LabelStyle.Render("Archive:"),
		ValueStyle.Render(snap.Archive)))

	return b.String()
}

func (m StatsModel) renderStatBox(label string, value int64, color lipgloss.Color) string {
	boxStyle := StatBoxStyle.BorderForeground(color)

	valueStr := StatValueStyle.Foreground(color).Render(fmt.Sprintf("%d", value))
	labelStr := StatLabelStyle.Render(label)

	content := lipgloss.JoinVertical(lipgloss.Center, valueStr, labelStr)

	return boxStyle.Render(content)
}

// RunStatsTUI runs the stats TUI.
func RunStatsTUI(viewType string, data any) error {
	model := NewStatsModel(viewType, data)
	p := tea.NewProgram(model, tea.WithAltScreen())
	_, err := p.Run()
	return err
}

// RenderStatsStatic renders stats data without full TUI (for fallback).
func RenderStatsStatic(viewType string, data any) string {
	model := NewStatsModel(viewType, data)
	model.width = 80
	model.height = 24
	return lipgloss.NewStyle().Padding(1, 2).Render(model.View())
}
