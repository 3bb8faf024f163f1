// Package reportview scrolls a rendered report in a viewport.
package reportview

import (
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/models"
)

var windows = []models.WindowKind{models.WindowToday, models.WindowWeek, models.WindowMonth, models.WindowAllTime}

// WindowMsg asks the parent to load the report for Kind.
type WindowMsg struct {
	Kind models.WindowKind
}

type Model struct {
	viewport viewport.Model
	render   func(models.Report) string
	report   *models.Report
	window   int
	next     key.Binding
}

func New(render func(models.Report) string, width, height int) Model {
	return Model{
		viewport: viewport.New(width, height),
		render:   render,
		next: key.NewBinding(
			key.WithKeys("w"),
			key.WithHelp("w", "next window"),
		),
	}
}

// Window is the report window currently selected.
func (m Model) Window() models.WindowKind { return windows[m.window] }

// ShortHelp lists the window switch key.
func (m Model) ShortHelp() []key.Binding { return []key.Binding{m.next} }

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && key.Matches(msg, m.next) {
		m.window = (m.window + 1) % len(windows)
		kind := windows[m.window]
		return m, func() tea.Msg { return WindowMsg{Kind: kind} }
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if m.report == nil {
		return "Loading report..."
	}
	return m.viewport.View()
}

func (m *Model) SetSize(width, height int) {
	m.viewport.Width = width
	m.viewport.Height = height
}

func (m *Model) SetReport(rep models.Report) {
	m.report = &rep
	m.viewport.SetContent(m.render(rep))
	m.viewport.GotoTop()
}
