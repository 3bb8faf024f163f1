// Package routinelist shows routines in a bubbles list. In due mode it
// lists today's routines and emits complete/skip/postpone actions; in all
// mode it lists every routine and emits management actions.
package routinelist

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/models"
)

type Mode int

const (
	ModeDue Mode = iota
	ModeAll
)

// ActionMsg asks the parent to apply an action to a routine.
type ActionMsg struct {
	Action command.Action
}

type AddRoutineMsg struct{}

type ToggleReminderMsg struct {
	ID string
}

type DueItem struct {
	Status models.RoutineStatus
}

func (i DueItem) Title() string {
	if i.Status.Done {
		return "✓ " + i.Status.Name
	}
	return "○ " + i.Status.Name
}

func (i DueItem) Description() string {
	if i.Status.Done {
		return i.Status.TimeOfDay + " | completed today"
	}
	return i.Status.TimeOfDay + " | not completed today"
}

func (i DueItem) FilterValue() string { return i.Status.Name }

type RoutineItem struct {
	Routine models.Routine
}

func (i RoutineItem) Title() string {
	if !i.Routine.IsActive {
		return "[PAUSED] " + i.Routine.Name
	}
	return i.Routine.Name
}

func (i RoutineItem) Description() string {
	bell := "reminder on"
	if !i.Routine.ReminderEnabled {
		bell = "reminder off"
	}
	return fmt.Sprintf("%s | %s | done %d time(s)", i.Routine.FormatRecurrence(), bell, i.Routine.CompletedCount)
}

func (i RoutineItem) FilterValue() string { return i.Routine.Name }

type KeyMap struct {
	Complete key.Binding
	Skip     key.Binding
	Postpone key.Binding
	Add      key.Binding
	Toggle   key.Binding
	Reminder key.Binding
	Delete   key.Binding
}

func DefaultKeyMap() KeyMap {
	return KeyMap{
		Complete: key.NewBinding(
			key.WithKeys("m", "enter"),
			key.WithHelp("m", "mark done"),
		),
		Skip: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "skip"),
		),
		Postpone: key.NewBinding(
			key.WithKeys("p"),
			key.WithHelp("p", "postpone"),
		),
		Add: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "add"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "pause/resume"),
		),
		Reminder: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "reminder on/off"),
		),
		Delete: key.NewBinding(
			key.WithKeys("d"),
			key.WithHelp("d", "delete"),
		),
	}
}

type Model struct {
	list list.Model
	keys KeyMap
	mode Mode
}

func New(mode Mode, width, height int) Model {
	l := list.New(nil, list.NewDefaultDelegate(), width, height)
	l.SetShowTitle(false)
	l.SetShowHelp(false)
	l.KeyMap.Quit.SetEnabled(false)

	m := Model{list: l, keys: DefaultKeyMap(), mode: mode}
	extra := func() []key.Binding { return m.actionKeys() }
	m.list.AdditionalShortHelpKeys = extra
	m.list.AdditionalFullHelpKeys = extra
	return m
}

func (m Model) actionKeys() []key.Binding {
	if m.mode == ModeDue {
		return []key.Binding{m.keys.Complete, m.keys.Skip, m.keys.Postpone}
	}
	return []key.Binding{m.keys.Add, m.keys.Toggle, m.keys.Reminder, m.keys.Delete}
}

// ShortHelp lists the mode's action keys.
func (m Model) ShortHelp() []key.Binding { return m.actionKeys() }

func (m *Model) SetDue(due []models.RoutineStatus) {
	items := make([]list.Item, len(due))
	for i, s := range due {
		items[i] = DueItem{Status: s}
	}
	m.list.SetItems(items)
}

func (m *Model) SetRoutines(routines []models.Routine) {
	items := make([]list.Item, len(routines))
	for i, r := range routines {
		items[i] = RoutineItem{Routine: r}
	}
	m.list.SetItems(items)
}

// Len is the number of listed routines.
func (m Model) Len() int { return len(m.list.Items()) }

func (m Model) selectedID() (string, bool) {
	switch i := m.list.SelectedItem().(type) {
	case DueItem:
		return i.Status.RoutineID, true
	case RoutineItem:
		return i.Routine.ID, true
	}
	return "", false
}

func emit(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok && m.list.FilterState() != list.Filtering {
		if m.mode == ModeAll && key.Matches(msg, m.keys.Add) {
			return m, emit(AddRoutineMsg{})
		}
		id, ok := m.selectedID()
		if ok {
			switch m.mode {
			case ModeDue:
				switch {
				case key.Matches(msg, m.keys.Complete):
					return m, emit(ActionMsg{Action: command.Complete(id)})
				case key.Matches(msg, m.keys.Skip):
					return m, emit(ActionMsg{Action: command.Skip(id)})
				case key.Matches(msg, m.keys.Postpone):
					return m, emit(ActionMsg{Action: command.Postpone(id)})
				}
			case ModeAll:
				switch {
				case key.Matches(msg, m.keys.Toggle):
					return m, emit(ActionMsg{Action: command.Action{Kind: command.KindToggle, RoutineID: id}})
				case key.Matches(msg, m.keys.Delete):
					return m, emit(ActionMsg{Action: command.Action{Kind: command.KindDelete, RoutineID: id}})
				case key.Matches(msg, m.keys.Reminder):
					return m, emit(ToggleReminderMsg{ID: id})
				}
			}
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	if len(m.list.Items()) == 0 && m.list.FilterState() != list.Filtering {
		if m.mode == ModeDue {
			return "\n  Nothing due today."
		}
		return "\n  No routines yet.\n  Press 'a' to add one."
	}
	return m.list.View()
}

func (m *Model) SetSize(width, height int) {
	m.list.SetSize(width, height)
}
