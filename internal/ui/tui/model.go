package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"calltree/internal/core/app"
	"calltree/internal/ui/render"
)

var (
	titleStyle = lipgloss.NewStyle().
			MarginLeft(2).
			Foreground(lipgloss.Color("#3B82F6")).
			Bold(true)

	summaryStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#10B981")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F87171")).
			Bold(true)

	statusStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#64748B")).
			Italic(true)

	docStyle = lipgloss.NewStyle().Margin(1, 2)
)

// UpdateMsg delivers a fresh analysis result to the running UI.
type UpdateMsg struct {
	Report *app.Report
	Err    error
}

type Model struct {
	path       string
	viewport   viewport.Model
	report     *app.Report
	err        error
	lastUpdate time.Time
	ready      bool
}

func NewModel(path string) Model {
	return Model{path: path}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		headerHeight := 4
		if !m.ready {
			m.viewport = viewport.New(msg.Width, msg.Height-headerHeight)
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = msg.Height - headerHeight
		}
		m.refreshContent()

	case UpdateMsg:
		m.report = msg.Report
		m.err = msg.Err
		m.lastUpdate = time.Now()
		m.refreshContent()
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m *Model) refreshContent() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.treeContent())
}

func (m Model) treeContent() string {
	if m.err != nil {
		return errorStyle.Render(m.err.Error())
	}
	if m.report == nil {
		return statusStyle.Render("waiting for first analysis...")
	}
	if len(m.report.Tree) == 0 {
		return statusStyle.Render("no functions found")
	}
	return strings.Join(m.report.Tree, "\n")
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("calltree — " + m.path))
	b.WriteString("\n")

	if m.report != nil {
		b.WriteString(summaryStyle.Render(render.FormatSummary(m.report.Summary)))
		status := fmt.Sprintf("  updated %s", m.lastUpdate.Format("15:04:05"))
		if m.report.CacheHit {
			status += " (cached)"
		}
		b.WriteString(statusStyle.Render(status))
	} else {
		b.WriteString(statusStyle.Render("watching..."))
	}
	b.WriteString("\n\n")

	if m.ready {
		b.WriteString(m.viewport.View())
	}
	b.WriteString("\n")
	b.WriteString(statusStyle.Render("q to quit"))

	return docStyle.Render(b.String())
}
