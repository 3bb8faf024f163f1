package cli

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/models"
)

type TaskAddCmd struct {
	Title       string `arg:"" help:"Task title."`
	Description string `short:"d" help:"Optional details."`
	Due         string `help:"Due date (YYYY-MM-DD). Defaults to today."`
	At          string `help:"Due time (HH:MM). Enables a reminder at that minute."`
	Priority    string `short:"p" enum:"low,medium,high" default:"medium" help:"Priority (low, medium, high)."`
	NoReminder  bool   `help:"Do not send a reminder at the due time."`
}

func (c *TaskAddCmd) Run(ctx *Context) error {
	t, err := ctx.Engine().CreateTask(ctx.Ctx(), ctx.Owner, engine.TaskInput{
		Title:       c.Title,
		Description: c.Description,
		DueDate:     c.Due,
		DueTime:     c.At,
		Priority:    c.Priority,
		Reminder:    !c.NoReminder,
	})
	if err != nil {
		return err
	}
	when := t.DueDate
	if t.DueTime != "" {
		when += " " + t.DueTime
	}
	ctx.printf("✓ Added task %q due %s [%s]\n", t.Title, when, t.ID)
	return nil
}

type TaskListCmd struct {
	All      bool `help:"Include completed tasks."`
	Upcoming *int `help:"Only open tasks due within this many days." placeholder:"DAYS"`
}

func (c *TaskListCmd) Run(ctx *Context) error {
	var (
		tasks []models.Task
		err   error
	)
	if c.Upcoming != nil {
		tasks, err = ctx.Engine().UpcomingTasks(ctx.Ctx(), ctx.Owner, *c.Upcoming)
	} else {
		tasks, err = ctx.Engine().ListTasks(ctx.Ctx(), ctx.Owner, c.All)
	}
	if err != nil {
		return err
	}
	if len(tasks) == 0 {
		ctx.println("No tasks found")
		return nil
	}

	today, err := ctx.parseDate("today")
	if err != nil {
		return err
	}
	todayStr := today.Format(constants.DateFormat)

	ctx.println("Tasks:")
	for _, t := range tasks {
		status := "open"
		switch {
		case t.Completed:
			status = "done"
		case t.IsOverdue(todayStr):
			status = "overdue"
		case t.IsSnoozed(ctx.Clock.Now()):
			status = "snoozed"
		}
		due := t.DueDate
		if t.DueTime != "" {
			due += " " + t.DueTime
		}
		line := fmt.Sprintf("  [%s] %s - due %s (%s)  %s", status, t.Title, due, t.Priority, t.ID)
		if t.Completed {
			line = inactiveStyle.Render(line)
		}
		ctx.println(line)
		if t.Description != "" {
			ctx.printf("      %s\n", t.Description)
		}
	}
	return nil
}

type TaskCompleteCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskCompleteCmd) Run(ctx *Context) error {
	if err := ctx.Engine().CompleteTask(ctx.Ctx(), ctx.Owner, c.ID); err != nil {
		return err
	}
	ctx.println("✓ Task completed")
	return nil
}

type TaskDeleteCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskDeleteCmd) Run(ctx *Context) error {
	if err := ctx.Engine().DeleteTask(ctx.Ctx(), ctx.Owner, c.ID); err != nil {
		return err
	}
	ctx.println("✓ Task deleted")
	return nil
}

type TaskEditCmd struct {
	ID          string  `arg:"" help:"Task ID."`
	Title       *string `help:"New title."`
	Description *string `short:"d" help:"New details."`
	Due         *string `help:"New due date (YYYY-MM-DD)."`
	At          *string `help:"New due time (HH:MM). Empty clears it."`
	Priority    *string `short:"p" help:"New priority (low, medium, high)."`
	Reminder    bool    `xor:"reminder" help:"Send a reminder at the due time."`
	NoReminder  bool    `xor:"reminder" help:"Stop sending a reminder at the due time."`
}

func (c *TaskEditCmd) Run(ctx *Context) error {
	upd := engine.TaskUpdate{
		Title:       c.Title,
		Description: c.Description,
		DueDate:     c.Due,
		DueTime:     c.At,
		Priority:    c.Priority,
	}
	if c.Reminder || c.NoReminder {
		on := c.Reminder
		upd.Reminder = &on
	}
	t, err := ctx.Engine().UpdateTask(ctx.Ctx(), ctx.Owner, c.ID, upd)
	if err != nil {
		return err
	}
	ctx.printf("✓ Updated task %q due %s\n", t.Title, strings.TrimSpace(t.DueDate+" "+t.DueTime))
	return nil
}

type TaskSnoozeCmd struct {
	ID    string        `arg:"" help:"Task ID."`
	For   time.Duration `help:"How long to snooze." default:"15m"`
	Until string        `help:"Snooze until this local time (HH:MM today, or YYYY-MM-DD HH:MM)."`
}

func (c *TaskSnoozeCmd) Run(ctx *Context) error {
	until := ctx.Clock.Now().Add(c.For)
	if c.Until != "" {
		at, err := c.parseUntil(ctx)
		if err != nil {
			return err
		}
		until = at
	}
	t, err := ctx.Engine().SnoozeTask(ctx.Ctx(), ctx.Owner, c.ID, until)
	if err != nil {
		return err
	}
	loc, err := ctx.Engine().Preferences().GetTimezone(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	ctx.printf("✓ Snoozed %q until %s\n", t.Title, t.SnoozeUntil.In(loc).Format(constants.DateFormat+" "+constants.TimeFormat))
	return nil
}

func (c *TaskSnoozeCmd) parseUntil(ctx *Context) (time.Time, error) {
	loc, err := ctx.Engine().Preferences().GetTimezone(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return time.Time{}, err
	}
	value := strings.TrimSpace(c.Until)
	if !strings.Contains(value, " ") {
		value = ctx.today(loc).Format(constants.DateFormat) + " " + value
	}
	at, err := time.ParseInLocation(constants.DateFormat+" "+constants.TimeFormat, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --until %q (expected HH:MM or YYYY-MM-DD HH:MM)", c.Until)
	}
	return at, nil
}

type TaskStatsCmd struct {
	JSON bool `help:"Print as JSON."`
}

func (c *TaskStatsCmd) Run(ctx *Context) error {
	st, err := ctx.Engine().TaskStats(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.printJSON(st)
	}

	ctx.println(titleStyle.Render("Task statistics"))
	ctx.println(row("Total", st.Total))
	ctx.println(row("Completed", st.Completed))
	ctx.println(row("Open", st.Open))
	ctx.println(row("Overdue", st.Overdue))
	ctx.println(row("Snoozed", st.Snoozed))
	ctx.println(row("Completion", fmt.Sprintf("%s %.1f%%", bar(st.CompletionRate), st.CompletionRate)))

	priorities := make([]string, 0, len(st.ByPriority))
	for p := range st.ByPriority {
		priorities = append(priorities, string(p))
	}
	sort.Strings(priorities)
	for _, p := range priorities {
		ctx.println(row("  "+p, st.ByPriority[constants.Priority(p)]))
	}
	return nil
}
