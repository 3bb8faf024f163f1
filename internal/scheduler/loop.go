// Package scheduler drives the reminder scan once per minute.
package scheduler

import (
	"context"
	"time"

	"github.com/julianstephens/routinely/internal/clock"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/models"
)

// Scanner produces the notifications due at now.
type Scanner interface {
	Tick(ctx context.Context, now time.Time) ([]models.Notification, error)
}

// Dispatcher delivers a batch and reports how many were sent.
type Dispatcher interface {
	Dispatch(ctx context.Context, notifications []models.Notification) int
}

// Loop runs scan and dispatch on every interval boundary.
type Loop struct {
	Scanner    Scanner
	Dispatcher Dispatcher
	Clock      clock.Clock
	Interval   time.Duration
}

// TickResult summarizes one tick.
type TickResult struct {
	At   time.Time
	Due  int
	Sent int
}

func (l *Loop) interval() time.Duration {
	if l.Interval <= 0 {
		return constants.DefaultTickInterval
	}
	return l.Interval
}

func (l *Loop) now() time.Time {
	if l.Clock == nil {
		return time.Now()
	}
	return l.Clock.Now()
}

// untilNext is the wait from now to the next interval boundary.
func untilNext(now time.Time, interval time.Duration) time.Duration {
	return now.Truncate(interval).Add(interval).Sub(now)
}

// Run ticks on each interval boundary until ctx is done. A tick that has
// started runs to completion before Run returns.
func (l *Loop) Run(ctx context.Context) error {
	interval := l.interval()
	timer := time.NewTimer(untilNext(l.now(), interval))
	defer timer.Stop()

	log := logger.Component("scheduler")
	log.Info("Scheduler started", "interval", interval)
	for {
		select {
		case <-ctx.Done():
			log.Info("Scheduler stopped")
			return nil
		case <-timer.C:
		}

		if _, err := l.RunOnce(context.WithoutCancel(ctx), l.now()); err != nil {
			log.Warn("Tick skipped", "error", err)
		}
		if ctx.Err() != nil {
			log.Info("Scheduler stopped")
			return nil
		}
		timer.Reset(untilNext(l.now(), interval))
	}
}

// RunOnce scans at now and dispatches the result. A failed scan sends
// nothing.
func (l *Loop) RunOnce(ctx context.Context, now time.Time) (TickResult, error) {
	res := TickResult{At: now}
	notifications, err := l.Scanner.Tick(ctx, now)
	if err != nil {
		logger.Error("Scan failed", "at", now.Format(time.RFC3339), "error", err)
		return res, err
	}
	res.Due = len(notifications)
	if res.Due == 0 {
		return res, nil
	}

	res.Sent = l.Dispatcher.Dispatch(ctx, notifications)
	logger.Info("Tick complete", "at", now.Format(time.RFC3339), "due", res.Due, "sent", res.Sent)
	return res, nil
}
