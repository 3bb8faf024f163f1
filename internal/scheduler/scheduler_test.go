package scheduler

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/models"
)

type fakeScanner struct {
	err   error
	ticks atomic.Int32
	block chan struct{}
}

func (f *fakeScanner) Tick(ctx context.Context, now time.Time) ([]models.Notification, error) {
	f.ticks.Add(1)
	if f.block != nil {
		<-f.block
	}
	if f.err != nil {
		return nil, f.err
	}
	return []models.Notification{{OwnerID: "alice", RoutineID: "r1", DueAt: now}}, nil
}

type fakeDispatcher struct {
	mu      sync.Mutex
	batches int
	ctxErr  error
}

func (f *fakeDispatcher) Dispatch(ctx context.Context, n []models.Notification) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches++
	f.ctxErr = ctx.Err()
	return len(n)
}

func TestUntilNext(t *testing.T) {
	now := time.Date(2024, 1, 15, 7, 29, 45, 0, time.UTC)
	if got := untilNext(now, time.Minute); got != 15*time.Second {
		t.Errorf("expected 15s to the next minute, got %v", got)
	}
	if got := untilNext(now.Truncate(time.Minute), time.Minute); got != time.Minute {
		t.Errorf("expected a full minute on the boundary, got %v", got)
	}
}

func TestRunOnce(t *testing.T) {
	sc := &fakeScanner{}
	d := &fakeDispatcher{}
	l := &Loop{Scanner: sc, Dispatcher: d}

	res, err := l.RunOnce(context.Background(), time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if res.Due != 1 || res.Sent != 1 || d.batches != 1 {
		t.Errorf("unexpected tick result %+v (batches=%d)", res, d.batches)
	}
}

func TestRunOnceScanFailureSendsNothing(t *testing.T) {
	sc := &fakeScanner{err: errors.New("store unavailable")}
	d := &fakeDispatcher{}
	l := &Loop{Scanner: sc, Dispatcher: d}

	if _, err := l.RunOnce(context.Background(), time.Now()); err == nil {
		t.Fatal("expected scan error")
	}
	if d.batches != 0 {
		t.Errorf("expected no dispatch after failed scan, got %d", d.batches)
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	sc := &fakeScanner{}
	d := &fakeDispatcher{}
	l := &Loop{Scanner: sc, Dispatcher: d, Clock: clock.System{}, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	deadline := time.After(2 * time.Second)
	for sc.ticks.Load() < 3 {
		select {
		case <-deadline:
			t.Fatal("loop did not tick")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned %v", err)
	}
}

func TestRunFinishesInFlightTick(t *testing.T) {
	sc := &fakeScanner{block: make(chan struct{})}
	d := &fakeDispatcher{}
	l := &Loop{Scanner: sc, Dispatcher: d, Interval: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()

	for sc.ticks.Load() == 0 {
		time.Sleep(time.Millisecond)
	}
	cancel()
	select {
	case <-done:
		t.Fatal("Run returned before the tick finished")
	case <-time.After(20 * time.Millisecond):
	}
	close(sc.block)
	<-done

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.batches != 1 || d.ctxErr != nil {
		t.Errorf("expected the in-flight batch to dispatch uncancelled, got batches=%d ctxErr=%v", d.batches, d.ctxErr)
	}
}

func TestMemoryGuard(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 1, 15, 7, 30, 0, 0, time.UTC))
	g := NewMemoryGuard(2*time.Minute, clk)
	ctx := context.Background()

	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Fatal("first acquire should succeed")
	}
	if ok, _ := g.Acquire(ctx, "k"); ok {
		t.Error("second acquire within ttl should fail")
	}
	if ok, _ := g.Acquire(ctx, "other"); !ok {
		t.Error("distinct key should succeed")
	}
	clk.Advance(2 * time.Minute)
	if ok, _ := g.Acquire(ctx, "k"); !ok {
		t.Error("acquire after ttl should succeed")
	}
}

type fakeRedis struct {
	keys map[string]time.Duration
	err  error
}

func (f *fakeRedis) SetNX(_ context.Context, key string, _ interface{}, ttl time.Duration) *redis.BoolCmd {
	if f.err != nil {
		return redis.NewBoolResult(false, f.err)
	}
	if _, ok := f.keys[key]; ok {
		return redis.NewBoolResult(false, nil)
	}
	f.keys[key] = ttl
	return redis.NewBoolResult(true, nil)
}

func TestRedisGuard(t *testing.T) {
	fr := &fakeRedis{keys: map[string]time.Duration{}}
	g := &RedisGuard{client: fr, prefix: "routinely:sent:", ttl: time.Minute}
	ctx := context.Background()

	if ok, err := g.Acquire(ctx, "alice|routine|r1|2024-01-15T07:30:00Z"); !ok || err != nil {
		t.Fatalf("first acquire: ok=%v err=%v", ok, err)
	}
	if ok, _ := g.Acquire(ctx, "alice|routine|r1|2024-01-15T07:30:00Z"); ok {
		t.Error("duplicate acquire should fail")
	}
	if ttl := fr.keys["routinely:sent:alice|routine|r1|2024-01-15T07:30:00Z"]; ttl != time.Minute {
		t.Errorf("expected prefixed key with ttl, got %v", fr.keys)
	}

	fr.err = errors.New("connection refused")
	if _, err := g.Acquire(ctx, "x"); err == nil {
		t.Error("expected redis error to surface")
	}
	if err := g.Close(); err != nil {
		t.Errorf("Close without client: %v", err)
	}
}

func TestNewRedisGuardBadURL(t *testing.T) {
	if _, err := NewRedisGuard(context.Background(), "not-a-url"); err == nil {
		t.Error("expected parse error")
	}
}
