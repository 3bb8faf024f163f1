package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/models"
	"github.com/julianstephens/routinely/internal/storage"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store := NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Init(context.Background()); err != nil {
		t.Fatalf("failed to init store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func testRoutine(id, owner string) models.Routine {
	created := time.Date(2024, 1, 8, 9, 0, 0, 0, time.UTC)
	return models.Routine{
		ID:              id,
		OwnerID:         owner,
		Name:            "Morning run",
		Description:     "Run around the park",
		TimeOfDay:       "06:00",
		Frequency:       constants.FrequencyWeekly,
		AnchorDate:      created,
		IsActive:        true,
		ReminderEnabled: true,
		CreatedAt:       created,
		UpdatedAt:       created,
	}
}

func entryFor(r models.Routine, date string, at time.Time) models.CompletionEntry {
	return models.CompletionEntry{
		ID:          r.ID + "-" + date,
		RoutineID:   r.ID,
		OwnerID:     r.OwnerID,
		CompletedAt: at,
		Date:        date,
	}
}

func TestLoadUninitialized(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "missing.db"))
	if err := store.Load(context.Background()); err == nil {
		t.Error("expected error loading a missing database")
	}
}

func TestInitThenLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	store := NewStore(path)
	if err := store.Init(ctx); err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	store.Close()

	reopened := NewStore(path)
	defer reopened.Close()
	if err := reopened.Load(ctx); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if n, err := reopened.Migrate(ctx); err != nil || n != 0 {
		t.Errorf("expected no pending migrations, got %d, %v", n, err)
	}
}

func TestRoutineCRUD(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatalf("AddRoutine failed: %v", err)
	}

	got, err := store.GetRoutine(ctx, "alice", "r1")
	if err != nil {
		t.Fatalf("GetRoutine failed: %v", err)
	}
	if got.Name != r.Name || got.Frequency != r.Frequency || !got.AnchorDate.Equal(r.AnchorDate) {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.IsActive || !got.ReminderEnabled || got.LastCompletedAt != nil {
		t.Errorf("unexpected flags: %+v", got)
	}

	if _, err := store.GetRoutine(ctx, "bob", "r1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("foreign owner should get NotFound, got %v", err)
	}

	modified, err := store.ModifyRoutine(ctx, "alice", "r1", func(r *models.Routine) error {
		r.Name = "Evening run"
		r.IsActive = false
		r.CompletedCount = 99
		return nil
	})
	if err != nil {
		t.Fatalf("ModifyRoutine failed: %v", err)
	}
	got, _ = store.GetRoutine(ctx, "alice", "r1")
	if got.Name != "Evening run" || got.IsActive || modified.Name != got.Name {
		t.Errorf("update not applied: %+v", got)
	}
	if got.CompletedCount != 0 {
		t.Errorf("ModifyRoutine must not touch the counter, got %d", got.CompletedCount)
	}

	rejected := errors.New("rejected")
	if _, err := store.ModifyRoutine(ctx, "alice", "r1", func(r *models.Routine) error {
		r.Name = "Never stored"
		return rejected
	}); !errors.Is(err, rejected) {
		t.Errorf("expected fn error returned, got %v", err)
	}
	if got, _ = store.GetRoutine(ctx, "alice", "r1"); got.Name != "Evening run" {
		t.Errorf("failed modify must not write, got %q", got.Name)
	}

	noop := func(*models.Routine) error { return nil }
	if _, err := store.ModifyRoutine(ctx, "alice", "nope", noop); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound updating missing routine, got %v", err)
	}
	if _, err := store.ModifyRoutine(ctx, "bob", "r1", noop); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound for foreign owner, got %v", err)
	}

	if err := store.AddRoutine(ctx, testRoutine("r2", "alice")); err != nil {
		t.Fatal(err)
	}
	if err := store.AddRoutine(ctx, testRoutine("r3", "bob")); err != nil {
		t.Fatal(err)
	}
	own, err := store.GetRoutinesForOwner(ctx, "alice")
	if err != nil || len(own) != 2 {
		t.Errorf("expected 2 routines for alice, got %d, %v", len(own), err)
	}
	all, err := store.GetAllRoutines(ctx)
	if err != nil || len(all) != 3 {
		t.Errorf("expected 3 routines, got %d, %v", len(all), err)
	}
}

func TestCompleteRoutineIsIdempotentPerDay(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 1, 15, 6, 5, 0, 0, time.UTC)
	first, created, err := store.CompleteRoutine(ctx, entryFor(r, "2024-01-15", at))
	if err != nil || !created {
		t.Fatalf("first completion: created=%v err=%v", created, err)
	}

	second := entryFor(r, "2024-01-15", at.Add(time.Hour))
	second.ID = "other-id"
	got, created, err := store.CompleteRoutine(ctx, second)
	if err != nil {
		t.Fatalf("second completion failed: %v", err)
	}
	if created {
		t.Error("second completion on the same date must not create an entry")
	}
	if got.ID != first.ID || !got.CompletedAt.Equal(at) {
		t.Errorf("expected the original entry back, got %+v", got)
	}

	stored, _ := store.GetRoutine(ctx, "alice", "r1")
	if stored.CompletedCount != 1 {
		t.Errorf("expected completed_count 1, got %d", stored.CompletedCount)
	}
	if stored.LastCompletedAt == nil || !stored.LastCompletedAt.Equal(at) {
		t.Errorf("expected last_completed_at %v, got %v", at, stored.LastCompletedAt)
	}

	entries, _ := store.GetAllEntriesForOwner(ctx, "alice")
	if len(entries) != 1 {
		t.Errorf("expected 1 ledger entry, got %d", len(entries))
	}
}

func TestCompleteRoutineRejectsForeignOwner(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}

	e := entryFor(r, "2024-01-15", time.Now())
	e.OwnerID = "mallory"
	if _, _, err := store.CompleteRoutine(ctx, e); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}

	e = entryFor(testRoutine("ghost", "alice"), "2024-01-15", time.Now())
	if _, _, err := store.CompleteRoutine(ctx, e); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound for unknown routine, got %v", err)
	}

	stored, _ := store.GetRoutine(ctx, "alice", "r1")
	if stored.CompletedCount != 0 {
		t.Errorf("counter must be unchanged, got %d", stored.CompletedCount)
	}
}

func TestConcurrentCompletionCountsOnce(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	guarded := storage.NewGuarded(store, 10*time.Second)
	r := testRoutine("r1", "alice")
	if err := guarded.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			e := entryFor(r, "2024-01-15", time.Date(2024, 1, 15, 6, i, 0, 0, time.UTC))
			e.ID = e.ID + string(rune('a'+i))
			if _, _, err := guarded.CompleteRoutine(ctx, e); err != nil {
				t.Errorf("completion %d failed: %v", i, err)
			}
		}(i)
	}
	wg.Wait()

	stored, _ := store.GetRoutine(ctx, "alice", "r1")
	if stored.CompletedCount != 1 {
		t.Errorf("expected completed_count 1, got %d", stored.CompletedCount)
	}
}

func TestEntriesWindowAndDeleteKeepsLedger(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}

	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-08", "2024-02-01"} {
		at, _ := time.Parse(constants.DateFormat, d)
		if _, _, err := store.CompleteRoutine(ctx, entryFor(r, d, at)); err != nil {
			t.Fatal(err)
		}
	}

	window, err := store.GetEntriesForOwner(ctx, "alice", "2024-01-01", "2024-01-07")
	if err != nil {
		t.Fatal(err)
	}
	if len(window) != 2 || window[0].Date != "2024-01-01" || window[1].Date != "2024-01-02" {
		t.Errorf("unexpected window: %+v", window)
	}

	if _, err := store.GetEntry(ctx, "r1", "2024-01-08"); err != nil {
		t.Errorf("GetEntry failed: %v", err)
	}
	if _, err := store.GetEntry(ctx, "r1", "2024-01-09"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}

	if err := store.DeleteRoutine(ctx, "alice", "r1"); err != nil {
		t.Fatalf("DeleteRoutine failed: %v", err)
	}
	if err := store.DeleteRoutine(ctx, "alice", "r1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("second delete should be NotFound, got %v", err)
	}

	all, _ := store.GetAllEntriesForOwner(ctx, "alice")
	if len(all) != 4 {
		t.Errorf("ledger must survive routine deletion, got %d entries", len(all))
	}
}

func TestCompleteRollsBackWhenCounterUpdateFails(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetDB().Exec(`
		CREATE TRIGGER fail_counter BEFORE UPDATE OF completed_count ON routines
		BEGIN SELECT RAISE(ABORT, 'counter locked'); END`); err != nil {
		t.Fatal(err)
	}

	at := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	if _, _, err := store.CompleteRoutine(ctx, entryFor(r, "2024-01-15", at)); err == nil {
		t.Fatal("expected completion to fail")
	}

	entries, err := store.GetAllEntriesForOwner(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("ledger entry must be rolled back, got %+v", entries)
	}
	stored, _ := store.GetRoutine(ctx, "alice", "r1")
	if stored.CompletedCount != 0 || stored.LastCompletedAt != nil {
		t.Errorf("routine must be unchanged, got count=%d last=%v", stored.CompletedCount, stored.LastCompletedAt)
	}

	if _, err := store.GetDB().Exec("DROP TRIGGER fail_counter"); err != nil {
		t.Fatal(err)
	}
	if _, created, err := store.CompleteRoutine(ctx, entryFor(r, "2024-01-15", at)); err != nil || !created {
		t.Errorf("retry after failure should record the day, got created=%v err=%v", created, err)
	}
}

func TestRepairCounters(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r := testRoutine("r1", "alice")
	if err := store.AddRoutine(ctx, r); err != nil {
		t.Fatal(err)
	}
	at := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	if _, _, err := store.CompleteRoutine(ctx, entryFor(r, "2024-01-15", at)); err != nil {
		t.Fatal(err)
	}

	if _, err := store.GetDB().Exec("UPDATE routines SET completed_count = 7 WHERE id = 'r1'"); err != nil {
		t.Fatal(err)
	}

	n, err := store.RepairCounters(ctx)
	if err != nil {
		t.Fatalf("RepairCounters failed: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 drifted routine, got %d", n)
	}
	stored, _ := store.GetRoutine(ctx, "alice", "r1")
	if stored.CompletedCount != 1 {
		t.Errorf("expected counter repaired to 1, got %d", stored.CompletedCount)
	}
	if stored.LastCompletedAt == nil || !stored.LastCompletedAt.Equal(at) {
		t.Errorf("expected last completion %v, got %v", at, stored.LastCompletedAt)
	}

	if n, _ := store.RepairCounters(ctx); n != 0 {
		t.Errorf("expected no drift after repair, got %d", n)
	}
}

func TestTasks(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	tasks := []models.Task{
		{ID: "t1", OwnerID: "alice", Title: "Pay rent", DueDate: "2024-01-10", DueTime: "09:00", Priority: constants.PriorityHigh, ReminderEnabled: true, CreatedAt: created},
		{ID: "t2", OwnerID: "alice", Title: "Call mom", DueDate: "2024-01-11", Priority: constants.PriorityLow, ReminderEnabled: true, CreatedAt: created},
		{ID: "t3", OwnerID: "bob", Title: "Dentist", DueDate: "2024-01-10", DueTime: "15:30", Priority: constants.PriorityMedium, CreatedAt: created},
	}
	for _, task := range tasks {
		if err := store.AddTask(ctx, task); err != nil {
			t.Fatalf("AddTask failed: %v", err)
		}
	}

	due, err := store.GetTasksDueBetween(ctx, "2024-01-09", "2024-01-11")
	if err != nil {
		t.Fatal(err)
	}
	if len(due) != 1 || due[0].ID != "t1" {
		t.Errorf("expected only t1 (timed, reminder on), got %+v", due)
	}

	done := time.Date(2024, 1, 10, 8, 0, 0, 0, time.UTC)
	if err := store.CompleteTask(ctx, "alice", "t1", done); err != nil {
		t.Fatalf("CompleteTask failed: %v", err)
	}
	if err := store.CompleteTask(ctx, "alice", "t1", done.Add(time.Hour)); err != nil {
		t.Fatalf("second CompleteTask failed: %v", err)
	}
	got, _ := store.GetTask(ctx, "alice", "t1")
	if !got.Completed || got.CompletedAt == nil || !got.CompletedAt.Equal(done) {
		t.Errorf("expected first completion time kept, got %+v", got)
	}

	open, _ := store.GetTasksForOwner(ctx, "alice", false)
	if len(open) != 1 || open[0].ID != "t2" {
		t.Errorf("expected only t2 open, got %+v", open)
	}
	everything, _ := store.GetTasksForOwner(ctx, "alice", true)
	if len(everything) != 2 {
		t.Errorf("expected 2 tasks, got %d", len(everything))
	}

	if err := store.DeleteTask(ctx, "bob", "t1"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("foreign delete should be NotFound, got %v", err)
	}
	if err := store.DeleteTask(ctx, "alice", "t2"); err != nil {
		t.Errorf("DeleteTask failed: %v", err)
	}
}

func TestTaskSnoozeAndModify(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	task := models.Task{ID: "t1", OwnerID: "alice", Title: "Pay rent", DueDate: "2024-01-10", DueTime: "09:00", Priority: constants.PriorityHigh, ReminderEnabled: true, CreatedAt: created}
	if err := store.AddTask(ctx, task); err != nil {
		t.Fatal(err)
	}

	until := time.Date(2024, 1, 10, 9, 30, 0, 0, time.FixedZone("UTC+6", 6*3600))
	snoozed, err := store.ModifyTask(ctx, "alice", "t1", func(tk *models.Task) error {
		tk.SnoozeUntil = &until
		return nil
	})
	if err != nil {
		t.Fatalf("ModifyTask failed: %v", err)
	}
	if snoozed.SnoozeUntil == nil {
		t.Fatal("expected snooze_until set")
	}

	from := until.Truncate(time.Minute)
	hits, err := store.GetSnoozedTasksBetween(ctx, from, from.Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].SnoozeUntil == nil || !hits[0].SnoozeUntil.Equal(until) {
		t.Errorf("expected t1 in the snooze minute, got %+v", hits)
	}
	if hits, _ := store.GetSnoozedTasksBetween(ctx, from.Add(time.Minute), from.Add(2*time.Minute)); len(hits) != 0 {
		t.Errorf("expected nothing in the next minute, got %+v", hits)
	}

	if err := store.CompleteTask(ctx, "alice", "t1", created); err != nil {
		t.Fatal(err)
	}
	got, _ := store.GetTask(ctx, "alice", "t1")
	if got.SnoozeUntil != nil {
		t.Errorf("completing clears the snooze, got %v", got.SnoozeUntil)
	}
	if hits, _ := store.GetSnoozedTasksBetween(ctx, from, from.Add(time.Minute)); len(hits) != 0 {
		t.Errorf("completed tasks never fire, got %+v", hits)
	}

	if _, err := store.ModifyTask(ctx, "bob", "t1", func(*models.Task) error { return nil }); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("foreign modify should be NotFound, got %v", err)
	}
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	if _, err := store.GetPreferences(ctx, "alice"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected NotFound, got %v", err)
	}

	p := models.UserPreferences{OwnerID: "alice", Timezone: "Asia/Dhaka", NotificationsEnabled: true, Language: "en", UpdatedAt: time.Now()}
	if err := store.SavePreferences(ctx, p); err != nil {
		t.Fatalf("SavePreferences failed: %v", err)
	}
	p.NotificationsEnabled = false
	if err := store.SavePreferences(ctx, p); err != nil {
		t.Fatalf("second SavePreferences failed: %v", err)
	}

	got, err := store.GetPreferences(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.Timezone != "Asia/Dhaka" || got.NotificationsEnabled {
		t.Errorf("unexpected preferences: %+v", got)
	}

	all, _ := store.GetAllPreferences(ctx)
	if len(all) != 1 {
		t.Errorf("expected 1 preference row, got %d", len(all))
	}
}

func TestStats(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)
	r1 := testRoutine("r1", "alice")
	r2 := testRoutine("r2", "bob")
	r2.IsActive = false
	for _, r := range []models.Routine{r1, r2} {
		if err := store.AddRoutine(ctx, r); err != nil {
			t.Fatal(err)
		}
	}
	if _, _, err := store.CompleteRoutine(ctx, entryFor(r1, "2024-01-15", time.Now())); err != nil {
		t.Fatal(err)
	}

	st, err := store.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if st.Owners != 2 || st.Routines != 2 || st.Active != 1 || st.Completions != 1 {
		t.Errorf("unexpected stats: %+v", st)
	}
}
