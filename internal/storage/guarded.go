package storage

import (
	"context"
	"hash/fnv"
	"sync"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	apperrors "github.com/julianstephens/routinely/internal/errors"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// Guarded wraps a Provider with per-owner write serialization, a bounded
// timeout on every call and typed store errors. OnWrite, when set, runs after
// every successful mutation.
type Guarded struct {
	inner   Provider
	timeout time.Duration
	stripes [constants.OwnerLockStripes]sync.Mutex
	OnWrite func()
}

// NewGuarded wraps inner. A non-positive timeout selects the default.
func NewGuarded(inner Provider, timeout time.Duration) *Guarded {
	if timeout <= 0 {
		timeout = constants.DefaultStoreTimeout
	}
	return &Guarded{inner: inner, timeout: timeout}
}

// Inner returns the wrapped provider.
func (g *Guarded) Inner() Provider { return g.inner }

func (g *Guarded) lock(ownerID string) func() {
	h := fnv.New32a()
	h.Write([]byte(ownerID))
	m := &g.stripes[h.Sum32()%constants.OwnerLockStripes]
	m.Lock()
	return m.Unlock
}

func (g *Guarded) write(ctx context.Context, op, ownerID string, fn func(ctx context.Context) error) error {
	unlock := g.lock(ownerID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		err = apperrors.StoreWrite(op, err)
		logger.Debug("Store write failed", "op", op, "owner", ownerID, "error", err)
		return err
	}
	if g.OnWrite != nil {
		g.OnWrite()
	}
	return nil
}

func (g *Guarded) read(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	return apperrors.StoreRead(op, fn(ctx))
}

func (g *Guarded) Init(ctx context.Context) error { return g.inner.Init(ctx) }
func (g *Guarded) Load(ctx context.Context) error { return g.inner.Load(ctx) }
func (g *Guarded) Close() error                   { return g.inner.Close() }
func (g *Guarded) GetConfigPath() string          { return g.inner.GetConfigPath() }

func (g *Guarded) AddRoutine(ctx context.Context, r models.Routine) error {
	return g.write(ctx, "add routine", r.OwnerID, func(ctx context.Context) error {
		return g.inner.AddRoutine(ctx, r)
	})
}

func (g *Guarded) GetRoutine(ctx context.Context, ownerID, id string) (r models.Routine, err error) {
	err = g.read(ctx, "get routine", func(ctx context.Context) error {
		r, err = g.inner.GetRoutine(ctx, ownerID, id)
		return err
	})
	return r, err
}

func (g *Guarded) GetRoutinesForOwner(ctx context.Context, ownerID string) (rs []models.Routine, err error) {
	err = g.read(ctx, "list routines", func(ctx context.Context) error {
		rs, err = g.inner.GetRoutinesForOwner(ctx, ownerID)
		return err
	})
	return rs, err
}

func (g *Guarded) GetAllRoutines(ctx context.Context) (rs []models.Routine, err error) {
	err = g.read(ctx, "list all routines", func(ctx context.Context) error {
		rs, err = g.inner.GetAllRoutines(ctx)
		return err
	})
	return rs, err
}

// ModifyRoutine holds the owner's lock across the read, fn and the write.
func (g *Guarded) ModifyRoutine(ctx context.Context, ownerID, id string, fn func(*models.Routine) error) (r models.Routine, err error) {
	err = g.write(ctx, "modify routine", ownerID, func(ctx context.Context) error {
		r, err = g.inner.ModifyRoutine(ctx, ownerID, id, fn)
		return err
	})
	return r, err
}

func (g *Guarded) DeleteRoutine(ctx context.Context, ownerID, id string) error {
	return g.write(ctx, "delete routine", ownerID, func(ctx context.Context) error {
		return g.inner.DeleteRoutine(ctx, ownerID, id)
	})
}

func (g *Guarded) CompleteRoutine(ctx context.Context, entry models.CompletionEntry) (e models.CompletionEntry, created bool, err error) {
	err = g.write(ctx, "complete routine", entry.OwnerID, func(ctx context.Context) error {
		e, created, err = g.inner.CompleteRoutine(ctx, entry)
		return err
	})
	return e, created, err
}

func (g *Guarded) GetEntry(ctx context.Context, routineID, date string) (e models.CompletionEntry, err error) {
	err = g.read(ctx, "get entry", func(ctx context.Context) error {
		e, err = g.inner.GetEntry(ctx, routineID, date)
		return err
	})
	return e, err
}

func (g *Guarded) GetEntriesForOwner(ctx context.Context, ownerID, startDate, endDate string) (es []models.CompletionEntry, err error) {
	err = g.read(ctx, "list entries", func(ctx context.Context) error {
		es, err = g.inner.GetEntriesForOwner(ctx, ownerID, startDate, endDate)
		return err
	})
	return es, err
}

func (g *Guarded) GetAllEntriesForOwner(ctx context.Context, ownerID string) (es []models.CompletionEntry, err error) {
	err = g.read(ctx, "list all entries", func(ctx context.Context) error {
		es, err = g.inner.GetAllEntriesForOwner(ctx, ownerID)
		return err
	})
	return es, err
}

func (g *Guarded) RepairCounters(ctx context.Context) (n int, err error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	n, err = g.inner.RepairCounters(ctx)
	if err != nil {
		return 0, apperrors.StoreWrite("repair counters", err)
	}
	if n > 0 && g.OnWrite != nil {
		g.OnWrite()
	}
	return n, nil
}

func (g *Guarded) AddTask(ctx context.Context, t models.Task) error {
	return g.write(ctx, "add task", t.OwnerID, func(ctx context.Context) error {
		return g.inner.AddTask(ctx, t)
	})
}

func (g *Guarded) GetTask(ctx context.Context, ownerID, id string) (t models.Task, err error) {
	err = g.read(ctx, "get task", func(ctx context.Context) error {
		t, err = g.inner.GetTask(ctx, ownerID, id)
		return err
	})
	return t, err
}

func (g *Guarded) GetTasksForOwner(ctx context.Context, ownerID string, includeCompleted bool) (ts []models.Task, err error) {
	err = g.read(ctx, "list tasks", func(ctx context.Context) error {
		ts, err = g.inner.GetTasksForOwner(ctx, ownerID, includeCompleted)
		return err
	})
	return ts, err
}

func (g *Guarded) GetTasksDueBetween(ctx context.Context, startDate, endDate string) (ts []models.Task, err error) {
	err = g.read(ctx, "list due tasks", func(ctx context.Context) error {
		ts, err = g.inner.GetTasksDueBetween(ctx, startDate, endDate)
		return err
	})
	return ts, err
}

func (g *Guarded) GetSnoozedTasksBetween(ctx context.Context, from, to time.Time) (ts []models.Task, err error) {
	err = g.read(ctx, "list snoozed tasks", func(ctx context.Context) error {
		ts, err = g.inner.GetSnoozedTasksBetween(ctx, from, to)
		return err
	})
	return ts, err
}

func (g *Guarded) ModifyTask(ctx context.Context, ownerID, id string, fn func(*models.Task) error) (t models.Task, err error) {
	err = g.write(ctx, "modify task", ownerID, func(ctx context.Context) error {
		t, err = g.inner.ModifyTask(ctx, ownerID, id, fn)
		return err
	})
	return t, err
}

func (g *Guarded) CompleteTask(ctx context.Context, ownerID, id string, at time.Time) error {
	return g.write(ctx, "complete task", ownerID, func(ctx context.Context) error {
		return g.inner.CompleteTask(ctx, ownerID, id, at)
	})
}

func (g *Guarded) DeleteTask(ctx context.Context, ownerID, id string) error {
	return g.write(ctx, "delete task", ownerID, func(ctx context.Context) error {
		return g.inner.DeleteTask(ctx, ownerID, id)
	})
}

func (g *Guarded) GetPreferences(ctx context.Context, ownerID string) (p models.UserPreferences, err error) {
	err = g.read(ctx, "get preferences", func(ctx context.Context) error {
		p, err = g.inner.GetPreferences(ctx, ownerID)
		return err
	})
	return p, err
}

func (g *Guarded) GetAllPreferences(ctx context.Context) (ps []models.UserPreferences, err error) {
	err = g.read(ctx, "list preferences", func(ctx context.Context) error {
		ps, err = g.inner.GetAllPreferences(ctx)
		return err
	})
	return ps, err
}

func (g *Guarded) SavePreferences(ctx context.Context, p models.UserPreferences) error {
	return g.write(ctx, "save preferences", p.OwnerID, func(ctx context.Context) error {
		return g.inner.SavePreferences(ctx, p)
	})
}

func (g *Guarded) Stats(ctx context.Context) (st Stats, err error) {
	err = g.read(ctx, "stats", func(ctx context.Context) error {
		st, err = g.inner.Stats(ctx)
		return err
	})
	return st, err
}
