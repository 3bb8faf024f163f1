package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/tui/components/reportview"
	"github.com/julianstephens/routinely/internal/tui/components/routinelist"
)

type listsMsg struct {
	due      []models.RoutineStatus
	routines []models.Routine
}

type reportMsg struct {
	report models.Report
}

// doneMsg reports a finished mutation. The lists are reloaded after it.
type doneMsg struct {
	status string
}

type errMsg struct {
	err error
}

func (m Model) loadLists() tea.Cmd {
	return func() tea.Msg {
		due, err := m.backend.ListDue(m.ctx, m.owner, m.clock.Now())
		if err != nil {
			return errMsg{err}
		}
		routines, err := m.backend.ListRoutines(m.ctx, m.owner)
		if err != nil {
			return errMsg{err}
		}
		return listsMsg{due: due, routines: routines}
	}
}

func (m Model) loadReport(kind models.WindowKind) tea.Cmd {
	return func() tea.Msg {
		rep, err := m.backend.Aggregate(m.ctx, m.owner, kind)
		if err != nil {
			return errMsg{err}
		}
		return reportMsg{report: rep}
	}
}

func (m Model) apply(action command.Action) tea.Cmd {
	return func() tea.Msg {
		res, err := m.backend.Apply(m.ctx, m.owner, action)
		if err != nil {
			return errMsg{err}
		}
		switch action.Kind {
		case command.KindComplete:
			return doneMsg{status: "✓ Completed for " + res.Entry.Date}
		case command.KindToggle:
			state := "paused"
			if res.Routine.IsActive {
				state = "active"
			}
			return doneMsg{status: fmt.Sprintf("✓ %s is now %s", res.Routine.Name, state)}
		case command.KindDelete:
			return doneMsg{status: "✓ Routine deleted"}
		default:
			return doneMsg{status: "✓ " + action.Kind.String()}
		}
	}
}

func (m Model) toggleReminder(id string) tea.Cmd {
	return func() tea.Msg {
		r, err := m.backend.ToggleReminder(m.ctx, m.owner, id)
		if err != nil {
			return errMsg{err}
		}
		state := "off"
		if r.ReminderEnabled {
			state = "on"
		}
		return doneMsg{status: fmt.Sprintf("✓ Reminders for %s are %s", r.Name, state)}
	}
}

func (m Model) createRoutine(fm *RoutineForm) tea.Cmd {
	in := fm.Input()
	return func() tea.Msg {
		r, err := m.backend.CreateRoutine(m.ctx, m.owner, in)
		if err != nil {
			return errMsg{err}
		}
		return doneMsg{status: fmt.Sprintf("✓ Added %s (%s)", r.Name, r.FormatRecurrence())}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.state == StateAddRoutine {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		h, v := docStyle.GetFrameSize()
		contentHeight := msg.Height - v - 3
		m.today.SetSize(msg.Width-h, contentHeight)
		m.routines.SetSize(msg.Width-h, contentHeight)
		m.report.SetSize(msg.Width-h, contentHeight)
		return m, nil

	case listsMsg:
		m.today.SetDue(msg.due)
		m.routines.SetRoutines(msg.routines)
		return m, nil

	case reportMsg:
		m.report.SetReport(msg.report)
		return m, nil

	case doneMsg:
		m.status, m.err = msg.status, nil
		return m, tea.Batch(m.loadLists(), m.loadReport(m.report.Window()))

	case errMsg:
		m.err = msg.err
		return m, nil

	case routinelist.ActionMsg:
		return m, m.apply(msg.Action)

	case routinelist.ToggleReminderMsg:
		return m, m.toggleReminder(msg.ID)

	case routinelist.AddRoutineMsg:
		m.draft = &RoutineForm{}
		m.form = NewRoutineForm(m.draft)
		m.state = StateAddRoutine
		return m, m.form.Init()

	case reportview.WindowMsg:
		return m, m.loadReport(msg.Kind)

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.Tab):
			m.state = (m.state + 1) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.ShiftTab):
			m.state = (m.state - 1 + SessionState(len(tabTitles))) % SessionState(len(tabTitles))
			return m, nil
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
			return m, nil
		case key.Matches(msg, m.keys.Refresh):
			return m, tea.Batch(m.loadLists(), m.loadReport(m.report.Window()))
		}
	}

	var cmd tea.Cmd
	switch m.state {
	case StateToday:
		m.today, cmd = m.today.Update(msg)
	case StateRoutines:
		m.routines, cmd = m.routines.Update(msg)
	case StateReport:
		m.report, cmd = m.report.Update(msg)
	}
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && msg.Type == tea.KeyEsc {
		m.state = StateRoutines
		return m, nil
	}

	form, cmd := m.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.state = StateRoutines
		return m, tea.Batch(cmd, m.createRoutine(m.draft))
	case huh.StateAborted:
		m.state = StateRoutines
	}
	return m, cmd
}
