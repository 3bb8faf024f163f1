package tui

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/tui/components/reportview"
	"github.com/julianstephens/routinely/internal/tui/components/routinelist"
)

type fakeBackend struct {
	due      []models.RoutineStatus
	routines []models.Routine
	applied  []command.Action
	created  []engine.RoutineInput
	kinds    []models.WindowKind
	failWith error
}

func (f *fakeBackend) ListDue(context.Context, string, time.Time) ([]models.RoutineStatus, error) {
	return f.due, f.failWith
}

func (f *fakeBackend) ListRoutines(context.Context, string) ([]models.Routine, error) {
	return f.routines, f.failWith
}

func (f *fakeBackend) CreateRoutine(_ context.Context, _ string, in engine.RoutineInput) (models.Routine, error) {
	f.created = append(f.created, in)
	return models.Routine{Name: in.Name, TimeOfDay: in.TimeOfDay, Frequency: constants.Frequency(in.Frequency)}, f.failWith
}

func (f *fakeBackend) ToggleReminder(_ context.Context, _ string, id string) (models.Routine, error) {
	return models.Routine{ID: id, Name: "Stretch"}, f.failWith
}

func (f *fakeBackend) Apply(_ context.Context, _ string, action command.Action) (engine.ActionResult, error) {
	f.applied = append(f.applied, action)
	res := engine.ActionResult{Action: action}
	switch action.Kind {
	case command.KindComplete:
		res.Entry = &models.CompletionEntry{RoutineID: action.RoutineID, Date: "2024-01-15"}
	case command.KindToggle:
		res.Routine = &models.Routine{ID: action.RoutineID, Name: "Stretch"}
	}
	return res, f.failWith
}

func (f *fakeBackend) Aggregate(_ context.Context, _ string, kind models.WindowKind) (models.Report, error) {
	f.kinds = append(f.kinds, kind)
	return models.Report{Window: models.Window{Kind: kind}, Completed: 1, Total: 2, SuccessRate: 50}, f.failWith
}

func renderStub(rep models.Report) string {
	return "report " + string(rep.Window.Kind)
}

func setupModel(t *testing.T, backend *fakeBackend) Model {
	t.Helper()
	m := NewModel(context.Background(), backend, "alice", clock.NewManual(time.Date(2024, 1, 15, 9, 0, 0, 0, time.UTC)), renderStub)
	m = send(t, m, tea.WindowSizeMsg{Width: 100, Height: 40})
	m = send(t, m, m.loadLists()())
	return m
}

// send feeds msg to m and drains the chain of single messages it produces.
func send(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	for i := 0; msg != nil && i < 10; i++ {
		next, cmd := m.Update(msg)
		m = next.(Model)
		msg = nil
		if cmd == nil {
			break
		}
		out := cmd()
		if _, batch := out.(tea.BatchMsg); batch {
			break
		}
		msg = out
	}
	return m
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestTodayMarkDone(t *testing.T) {
	backend := &fakeBackend{
		due: []models.RoutineStatus{{RoutineID: "r1", Name: "Stretch", TimeOfDay: "07:30"}},
	}
	m := setupModel(t, backend)
	if m.today.Len() != 1 {
		t.Fatalf("expected one due routine, got %d", m.today.Len())
	}

	m = send(t, m, runes("m"))
	if len(backend.applied) != 1 || backend.applied[0] != command.Complete("r1") {
		t.Fatalf("expected complete action, got %+v", backend.applied)
	}
	if m.status != "✓ Completed for 2024-01-15" {
		t.Errorf("unexpected status %q", m.status)
	}

	m = send(t, m, runes("s"))
	if backend.applied[1] != command.Skip("r1") {
		t.Errorf("expected skip, got %+v", backend.applied[1])
	}
}

func TestRoutinesTabActions(t *testing.T) {
	backend := &fakeBackend{
		routines: []models.Routine{{ID: "r1", Name: "Stretch", IsActive: true, ReminderEnabled: true, Frequency: constants.FrequencyDaily, TimeOfDay: "07:30"}},
	}
	m := setupModel(t, backend)
	m = send(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if m.state != StateRoutines {
		t.Fatalf("expected routines tab, got %v", m.state)
	}

	m = send(t, m, runes("x"))
	if len(backend.applied) != 1 || backend.applied[0].Kind != command.KindToggle {
		t.Fatalf("expected toggle, got %+v", backend.applied)
	}
	m = send(t, m, runes("r"))
	if !strings.Contains(m.status, "Reminders for Stretch are off") {
		t.Errorf("unexpected status %q", m.status)
	}

	next, _ := m.Update(runes("a"))
	next, _ = next.(Model).Update(routinelist.AddRoutineMsg{})
	m = next.(Model)
	if m.state != StateAddRoutine || m.form == nil {
		t.Fatalf("expected add form, got state %v", m.state)
	}
	next, _ = m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if m = next.(Model); m.state != StateRoutines {
		t.Errorf("esc should close the form, got %v", m.state)
	}
}

func TestCreateRoutineFromForm(t *testing.T) {
	backend := &fakeBackend{}
	m := setupModel(t, backend)
	fm := &RoutineForm{Name: " Journal ", Description: "Write one page", TimeOfDay: "21:00"}
	NewRoutineForm(fm)
	if fm.Frequency != string(constants.FrequencyDaily) {
		t.Errorf("expected daily default, got %q", fm.Frequency)
	}

	m = send(t, m, m.createRoutine(fm)())
	if len(backend.created) != 1 || backend.created[0].Name != "Journal" {
		t.Fatalf("unexpected create input %+v", backend.created)
	}
	if !strings.HasPrefix(m.status, "✓ Added Journal") {
		t.Errorf("unexpected status %q", m.status)
	}
}

func TestReportWindowCycle(t *testing.T) {
	backend := &fakeBackend{}
	m := setupModel(t, backend)
	m = send(t, m, m.loadReport(m.report.Window())())
	m.state = StateReport

	m = send(t, m, runes("w"))
	if m.report.Window() != models.WindowWeek {
		t.Errorf("expected week window, got %s", m.report.Window())
	}
	if last := backend.kinds[len(backend.kinds)-1]; last != models.WindowWeek {
		t.Errorf("expected week report load, got %s", last)
	}
	if !strings.Contains(m.View(), "report week") {
		t.Errorf("report not rendered: %q", m.View())
	}

	var rv reportview.Model = m.report
	for i := 0; i < 3; i++ {
		rv, _ = rv.Update(runes("w"))
	}
	if rv.Window() != models.WindowToday {
		t.Errorf("window should wrap to today, got %s", rv.Window())
	}
}

func TestErrorShownInStatus(t *testing.T) {
	backend := &fakeBackend{}
	m := setupModel(t, backend)
	backend.failWith = errors.New("store read failed")

	m = send(t, m, routinelist.ActionMsg{Action: command.Complete("r1")})
	if m.err == nil || !strings.Contains(m.View(), "Error: store read failed") {
		t.Errorf("expected error in view, got %q", m.View())
	}
}

func TestQuit(t *testing.T) {
	m := setupModel(t, &fakeBackend{})
	next, cmd := m.Update(runes("q"))
	if !next.(Model).quitting || cmd == nil {
		t.Fatal("expected quit")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected tea.QuitMsg")
	}
}
