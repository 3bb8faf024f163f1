package cli

import (
	"fmt"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/dispatch"
	"github.com/julianstephens/routinely/internal/logger"
	"github.com/julianstephens/routinely/internal/notifier"
	"github.com/julianstephens/routinely/internal/scanner"
	"github.com/julianstephens/routinely/internal/scheduler"
)

// newSender builds the configured message sender and its cleanup.
func newSender(ctx *Context) (dispatch.MessageSender, func() error, error) {
	noop := func() error { return nil }
	switch ctx.Config.Sender {
	case constants.SenderTray:
		return notifier.NewTraySender(), noop, nil
	case constants.SenderAMQP:
		s, err := notifier.NewAMQPSender(ctx.Config.AMQPURL, ctx.Config.AMQPQueue)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return notifier.NewConsoleSender(ctx.Out), noop, nil
	}
}

// newGuard returns the Redis guard when configured, else fallback.
func newGuard(ctx *Context, fallback dispatch.Guard) (dispatch.Guard, func() error, error) {
	if ctx.Config.RedisURL == "" {
		return fallback, func() error { return nil }, nil
	}
	g, err := scheduler.NewRedisGuard(ctx.Ctx(), ctx.Config.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return g, g.Close, nil
}

func (c *Context) newLoop(sender dispatch.MessageSender, guard dispatch.Guard) *scheduler.Loop {
	d := dispatch.New(sender, c.Engine().Preferences())
	if guard != nil {
		d = d.WithGuard(guard)
	}
	return &scheduler.Loop{
		Scanner:    scanner.New(c.Store(), c.Config.Location()),
		Dispatcher: d,
		Clock:      c.Clock,
		Interval:   c.Config.TickInterval,
	}
}

// NotifyCmd runs a single tick, for cron.
type NotifyCmd struct {
	DryRun bool `help:"Print reminders to stdout instead of sending them."`
}

func (c *NotifyCmd) Run(ctx *Context) error {
	var (
		sender  dispatch.MessageSender = notifier.NewConsoleSender(ctx.Out)
		cleanup                        = func() error { return nil }
		err     error
	)
	if !c.DryRun {
		if sender, cleanup, err = newSender(ctx); err != nil {
			return err
		}
	}
	defer cleanup()

	guard, closeGuard, err := newGuard(ctx, nil)
	if err != nil {
		return err
	}
	defer closeGuard()

	res, err := ctx.newLoop(sender, guard).RunOnce(ctx.Ctx(), ctx.Clock.Now())
	if err != nil {
		return fmt.Errorf("scan failed: %w", err)
	}
	if c.DryRun {
		ctx.printf("%d reminder(s) due at %s\n", res.Due, res.At.Format(time.RFC3339))
	}
	return nil
}

// ServeCmd runs the scheduler until interrupted.
type ServeCmd struct{}

func (c *ServeCmd) Run(ctx *Context) error {
	sender, cleanup, err := newSender(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	guard, closeGuard, err := newGuard(ctx, scheduler.NewMemoryGuard(constants.DedupKeyTTL, ctx.Clock))
	if err != nil {
		return err
	}
	defer closeGuard()

	if n, err := ctx.Engine().Repair(ctx.Ctx()); err != nil {
		logger.Warn("Counter check failed", "error", err)
	} else if n > 0 {
		ctx.printf("Repaired %d routine counter(s)\n", n)
	}

	ctx.printf("Scheduler running with %s sender. Press Ctrl+C to stop.\n", ctx.Config.Sender)
	if err := ctx.newLoop(sender, guard).Run(ctx.Ctx()); err != nil {
		return err
	}
	ctx.println("Scheduler stopped.")
	return nil
}
