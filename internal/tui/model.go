// Package tui is the interactive dashboard: today's due routines, the
// routine list and the reports.
package tui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/tui/components/reportview"
	"github.com/julianstephens/routinely/internal/tui/components/routinelist"
)

// Backend is the part of the engine the dashboard drives.
type Backend interface {
	ListDue(ctx context.Context, ownerID string, date time.Time) ([]models.RoutineStatus, error)
	ListRoutines(ctx context.Context, ownerID string) ([]models.Routine, error)
	CreateRoutine(ctx context.Context, ownerID string, in engine.RoutineInput) (models.Routine, error)
	ToggleReminder(ctx context.Context, ownerID, id string) (models.Routine, error)
	Apply(ctx context.Context, ownerID string, action command.Action) (engine.ActionResult, error)
	Aggregate(ctx context.Context, ownerID string, kind models.WindowKind) (models.Report, error)
}

type SessionState int

const (
	StateToday SessionState = iota
	StateRoutines
	StateReport
	StateAddRoutine
)

var tabTitles = []string{"Today", "Routines", "Report"}

type Model struct {
	ctx      context.Context
	backend  Backend
	owner    string
	clock    clock.Clock
	state    SessionState
	keys     KeyMap
	help     help.Model
	today    routinelist.Model
	routines routinelist.Model
	report   reportview.Model
	form     *huh.Form
	draft    *RoutineForm
	status   string
	err      error
	quitting bool
	width    int
	height   int
}

// NewModel builds the dashboard for owner. render formats reports.
func NewModel(ctx context.Context, backend Backend, owner string, clk clock.Clock, render func(models.Report) string) Model {
	if clk == nil {
		clk = clock.System{}
	}
	return Model{
		ctx:      ctx,
		backend:  backend,
		owner:    owner,
		clock:    clk,
		state:    StateToday,
		keys:     DefaultKeyMap(),
		help:     help.New(),
		today:    routinelist.New(routinelist.ModeDue, 0, 0),
		routines: routinelist.New(routinelist.ModeAll, 0, 0),
		report:   reportview.New(render, 0, 0),
	}
}

func (m Model) ShortHelp() []key.Binding {
	keys := []key.Binding{m.keys.Tab, m.keys.Quit, m.keys.Help}
	switch m.state {
	case StateToday:
		keys = append(keys, m.today.ShortHelp()...)
	case StateRoutines:
		keys = append(keys, m.routines.ShortHelp()...)
	case StateReport:
		keys = append(keys, m.report.ShortHelp()...)
	}
	return keys
}

func (m Model) FullHelp() [][]key.Binding {
	global := []key.Binding{m.keys.Tab, m.keys.ShiftTab, m.keys.Quit, m.keys.Help, m.keys.Refresh}
	return [][]key.Binding{global, m.ShortHelp()[3:]}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadLists(), m.loadReport(m.report.Window()))
}
