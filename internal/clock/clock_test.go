package clock

import (
	"sync"
	"testing"
	"time"
)

func TestSystemClock(t *testing.T) {
	before := time.Now()
	got := System{}.Now()
	if got.Before(before) {
		t.Errorf("system clock went backwards: %v < %v", got, before)
	}
}

func TestManualClock(t *testing.T) {
	start := time.Date(2024, 1, 15, 6, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Errorf("expected %v, got %v", start, c.Now())
	}

	if got := c.Advance(time.Minute); !got.Equal(start.Add(time.Minute)) {
		t.Errorf("Advance returned %v", got)
	}

	later := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	c.Set(later)
	if !c.Now().Equal(later) {
		t.Errorf("expected %v after Set, got %v", later, c.Now())
	}
}

func TestManualClockConcurrent(t *testing.T) {
	c := NewManual(time.Unix(0, 0))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.Advance(time.Second)
			_ = c.Now()
		}()
	}
	wg.Wait()

	if got := c.Now().Unix(); got != 50 {
		t.Errorf("expected 50 seconds elapsed, got %d", got)
	}
}
