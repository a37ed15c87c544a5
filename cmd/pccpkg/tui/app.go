package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/procomputerltd/pcc-joomla/pkg/pccpkg/types"
)

// AppState represents the current state of the application.
type AppState int

const (
	StatePicking AppState = iota
	StateBuilding
	StateComplete
)

// BuildFunc builds one extension by name.
type BuildFunc func(ctx context.Context, name string) types.BuildReport

// Options configures the TUI application.
type Options struct {
	// Title names the installation, e.g. its display name.
	Title      string
	Extensions []types.ExtensionInfo
	Build      BuildFunc
}

// Model is the main Bubble Tea model for the picker.
type Model struct {
	state   AppState
	picker  PickerModel
	options Options

	ctx    context.Context
	cancel context.CancelFunc

	queue   []string
	current int
	spinner spinner.Model
	reports []types.BuildReport

	width  int
	height int
}

// buildDoneMsg carries the report of one finished build.
type buildDoneMsg struct {
	report types.BuildReport
}

// NewModel creates a new TUI model with the given options.
func NewModel(opts Options) Model {
	ctx, cancel := context.WithCancel(context.Background())

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(primaryColor)

	return Model{
		state:   StatePicking,
		picker:  NewPickerModel(opts.Title, opts.Extensions),
		options: opts,
		ctx:     ctx,
		cancel:  cancel,
		spinner: s,
		width:   80,
		height:  24,
	}
}

// Init initializes the model.
func (m Model) Init() tea.Cmd {
	return nil
}

// State returns the current state.
func (m Model) State() AppState {
	return m.state
}

// Reports returns the reports of the builds run so far.
func (m Model) Reports() []types.BuildReport {
	return m.reports
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.picker.SetDimensions(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())

	case spinner.TickMsg:
		if m.state != StateBuilding {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case buildDoneMsg:
		m.reports = append(m.reports, msg.report)
		m.current++
		if m.current >= len(m.queue) || m.ctx.Err() != nil {
			m.state = StateComplete
			return m, nil
		}
		return m, m.buildNext()
	}
	return m, nil
}

func (m Model) handleKey(key string) (tea.Model, tea.Cmd) {
	if key == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	switch m.state {
	case StatePicking:
		switch key {
		case "q", "esc":
			m.cancel()
			return m, tea.Quit
		case "enter":
			if !m.picker.HasSelection() {
				if e, ok := m.picker.Current(); ok {
					m.queue = []string{e.Name}
				}
			} else {
				m.queue = m.picker.Selected()
			}
			if len(m.queue) == 0 || m.options.Build == nil {
				return m, nil
			}
			m.state = StateBuilding
			m.current = 0
			return m, tea.Batch(m.spinner.Tick, m.buildNext())
		default:
			m.picker.HandleKey(key)
		}

	case StateBuilding:
		if key == "q" || key == "esc" {
			// The running build stops at its next checkpoint.
			m.cancel()
		}

	case StateComplete:
		switch key {
		case "q", "esc", "enter":
			return m, tea.Quit
		}
	}
	return m, nil
}

// buildNext runs the queued build at m.current.
func (m Model) buildNext() tea.Cmd {
	name := m.queue[m.current]
	build := m.options.Build
	ctx := m.ctx
	return func() tea.Msg {
		return buildDoneMsg{report: build(ctx, name)}
	}
}

// View renders the current state.
func (m Model) View() string {
	switch m.state {
	case StateBuilding:
		return m.viewBuilding()
	case StateComplete:
		return m.viewComplete()
	}
	return m.picker.View()
}

func (m Model) contentWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	return w
}

func (m Model) viewBuilding() string {
	width := m.contentWidth()
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Building %d of %d", m.current+1, len(m.queue))))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	for i, name := range m.queue {
		switch {
		case i < len(m.reports):
			b.WriteString(reportLine(m.reports[i], width))
		case i == m.current:
			b.WriteString(m.spinner.View() + " " + name)
		default:
			b.WriteString(mutedTextStyle.Render("  " + name))
		}
		b.WriteString("\n")
	}
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	b.WriteString(renderHelp("q", "stop after this build"))
	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func (m Model) viewComplete() string {
	width := m.contentWidth()
	var ok, failed int
	for _, r := range m.reports {
		if r.Success {
			ok++
		} else {
			failed++
		}
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render("Build complete"))
	b.WriteString("\n")
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	for _, r := range m.reports {
		b.WriteString(reportLine(r, width))
		b.WriteString("\n")
		for _, msg := range r.Messages {
			style := warningTextStyle
			if msg.Severity == "error" {
				style = errorTextStyle
			}
			b.WriteString("    " + style.Render(truncate(msg.Text, width-4)))
			b.WriteString("\n")
		}
	}
	b.WriteString(renderDivider(width))
	b.WriteString("\n")
	summary := successTextStyle.Render(fmt.Sprintf("%d built", ok))
	if failed > 0 {
		summary += ", " + errorTextStyle.Render(fmt.Sprintf("%d failed", failed))
	}
	if skipped := len(m.queue) - len(m.reports); skipped > 0 {
		summary += ", " + mutedTextStyle.Render(fmt.Sprintf("%d skipped", skipped))
	}
	b.WriteString(summary + "  " + renderHelp("enter", "exit"))
	return outerBoxStyle.Width(m.width - 2).Render(b.String())
}

func reportLine(r types.BuildReport, width int) string {
	if !r.Success {
		return errorTextStyle.Render("✗ ") + r.Extension
	}
	line := fmt.Sprintf("%s  %s", r.Extension, r.HumanSize())
	if r.Output != "" {
		line += "  " + r.Output
	}
	return successTextStyle.Render("✓ ") + truncate(line, width-2)
}

// Run starts the TUI and returns the reports of the builds it ran.
func Run(opts Options) ([]types.BuildReport, error) {
	p := tea.NewProgram(NewModel(opts), tea.WithAltScreen())
	final, err := p.Run()
	if err != nil {
		return nil, err
	}
	if m, ok := final.(Model); ok {
		return m.Reports(), nil
	}
	return nil, nil
}
