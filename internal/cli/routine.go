package cli

import (
	"bufio"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/command"
	"github.com/julianstephens/routinely/internal/constants"
	"github.com/julianstephens/routinely/internal/engine"
	"github.com/julianstephens/routinely/internal/session"
)

type RoutineAddCmd struct {
	Name        string `arg:"" optional:"" help:"Routine name. Omit to be prompted for every field."`
	Description string `short:"d" help:"What the routine involves (5-500 characters)."`
	Time        string `short:"t" help:"Time of day (HH:MM)."`
	Frequency   string `short:"f" help:"daily, weekly or monthly." default:"daily"`
}

func (c *RoutineAddCmd) Run(ctx *Context) error {
	in := engine.RoutineInput{Name: c.Name, Description: c.Description, TimeOfDay: c.Time, Frequency: c.Frequency}
	if c.Name == "" {
		draft, err := promptRoutine(ctx)
		if err != nil {
			return err
		}
		in = engine.RoutineInput{
			Name:        draft.Name,
			Description: draft.Description,
			TimeOfDay:   draft.TimeOfDay,
			Frequency:   string(draft.Frequency),
		}
	}

	r, err := ctx.Engine().CreateRoutine(ctx.Ctx(), ctx.Owner, in)
	if err != nil {
		return err
	}
	ctx.printf("✓ Added %q (%s) [%s]\n", r.Name, r.FormatRecurrence(), r.ID)
	return nil
}

var promptText = map[session.Step]string{
	session.StepName:        "Name: ",
	session.StepDescription: "Description: ",
	session.StepTime:        "Time (HH:MM): ",
	session.StepFrequency:   "Frequency (daily/weekly/monthly): ",
}

// promptRoutine walks the draft steps on ctx.In, re-asking after invalid
// answers. Typing "cancel" abandons the draft.
func promptRoutine(ctx *Context) (session.Draft, error) {
	drafts := session.NewDrafts(session.NewStore[session.Draft](constants.DefaultSessionTTL, ctx.Clock))
	draft := drafts.Start(ctx.Owner)
	scanner := bufio.NewScanner(ctx.In)

	for draft.Step != session.StepDone {
		ctx.printf("%s", promptText[draft.Step])
		if !scanner.Scan() {
			drafts.Cancel(ctx.Owner)
			if err := scanner.Err(); err != nil {
				return session.Draft{}, err
			}
			return session.Draft{}, errCancelled
		}
		answer := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(answer), "cancel") {
			drafts.Cancel(ctx.Owner)
			return session.Draft{}, errCancelled
		}
		next, err := drafts.Answer(ctx.Owner, answer)
		if err != nil {
			ctx.printf("  %v\n", err)
		}
		draft = next
	}
	return draft, nil
}

type RoutineListCmd struct {
	ActiveOnly bool `help:"Show only active routines."`
}

var (
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	doneStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
)

func (c *RoutineListCmd) Run(ctx *Context) error {
	routines, err := ctx.Engine().ListRoutines(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	if len(routines) == 0 {
		ctx.println("No routines found")
		return nil
	}

	ctx.println("Routines:")
	for _, r := range routines {
		if c.ActiveOnly && !r.IsActive {
			continue
		}
		status := "active"
		if !r.IsActive {
			status = "paused"
		}
		bell := "🔔"
		if !r.ReminderEnabled {
			bell = "🔕"
		}
		line := fmt.Sprintf("  [%s] %s %s - %s, done %d time(s)  %s", status, bell, r.Name, r.FormatRecurrence(), r.CompletedCount, r.ID)
		if !r.IsActive {
			line = inactiveStyle.Render(line)
		}
		ctx.println(line)
	}
	return nil
}

type RoutineEditCmd struct {
	ID          string  `arg:"" help:"Routine ID."`
	Name        *string `help:"New name."`
	Description *string `help:"New description."`
	Time        *string `help:"New time of day (HH:MM)."`
	Frequency   *string `help:"New frequency."`
}

func (c *RoutineEditCmd) Run(ctx *Context) error {
	r, err := ctx.Engine().UpdateRoutine(ctx.Ctx(), ctx.Owner, c.ID, engine.RoutineUpdate{
		Name:        c.Name,
		Description: c.Description,
		TimeOfDay:   c.Time,
		Frequency:   c.Frequency,
	})
	if err != nil {
		return err
	}
	ctx.printf("✓ Updated %q (%s)\n", r.Name, r.FormatRecurrence())
	return nil
}

type RoutineToggleCmd struct {
	ID string `arg:"" help:"Routine ID."`
}

func (c *RoutineToggleCmd) Run(ctx *Context) error {
	r, err := ctx.Engine().ToggleActive(ctx.Ctx(), ctx.Owner, c.ID)
	if err != nil {
		return err
	}
	state := "paused"
	if r.IsActive {
		state = "active"
	}
	ctx.printf("✓ %q is now %s\n", r.Name, state)
	return nil
}

type RoutineReminderCmd struct {
	ID string `arg:"" help:"Routine ID."`
}

func (c *RoutineReminderCmd) Run(ctx *Context) error {
	r, err := ctx.Engine().ToggleReminder(ctx.Ctx(), ctx.Owner, c.ID)
	if err != nil {
		return err
	}
	state := "off"
	if r.ReminderEnabled {
		state = "on"
	}
	ctx.printf("✓ Reminders for %q are %s\n", r.Name, state)
	return nil
}

type RoutineDeleteCmd struct {
	ID string `arg:"" help:"Routine ID."`
}

func (c *RoutineDeleteCmd) Run(ctx *Context) error {
	if err := ctx.Engine().DeleteRoutine(ctx.Ctx(), ctx.Owner, c.ID); err != nil {
		return err
	}
	ctx.println("✓ Routine deleted. Its completion history is kept.")
	return nil
}

type DueCmd struct {
	Date string `arg:"" optional:"" help:"Date (YYYY-MM-DD or 'today')." default:"today"`
}

func (c *DueCmd) Run(ctx *Context) error {
	date, err := ctx.parseDate(c.Date)
	if err != nil {
		return err
	}
	due, err := ctx.Engine().ListDue(ctx.Ctx(), ctx.Owner, date)
	if err != nil {
		return err
	}
	if len(due) == 0 {
		ctx.printf("Nothing due on %s\n", date.Format(constants.DateFormat))
		return nil
	}

	ctx.printf("Due on %s:\n", date.Format(constants.DateFormat))
	for _, s := range due {
		mark := "[ ]"
		line := fmt.Sprintf("%s %s", s.TimeOfDay, s.Name)
		if s.Done {
			mark = doneStyle.Render("[✓]")
		}
		ctx.printf("  %s %s  %s\n", mark, line, s.RoutineID)
	}
	return nil
}

type CompleteCmd struct {
	ID string `arg:"" help:"Routine ID."`
}

func (c *CompleteCmd) Run(ctx *Context) error {
	return (&ActCmd{Payload: command.Complete(c.ID).Payload()}).Run(ctx)
}

// ActCmd applies a reminder action payload such as "complete_<id>".
type ActCmd struct {
	Payload string `arg:"" help:"Action payload (complete_<id>, skip_<id>, postpone_<id>, toggle_<id>, delete_<id>)."`
}

func (c *ActCmd) Run(ctx *Context) error {
	action, err := command.Parse(c.Payload)
	if err != nil {
		return err
	}
	res, err := ctx.Engine().Apply(ctx.Ctx(), ctx.Owner, action)
	if err != nil {
		return err
	}

	switch action.Kind {
	case command.KindComplete:
		streak, err := ctx.Engine().Streak(ctx.Ctx(), ctx.Owner, action.RoutineID)
		if err != nil {
			return err
		}
		ctx.printf("✓ Completed for %s (streak: %d)\n", res.Entry.Date, streak)
	case command.KindToggle:
		ctx.printf("✓ %q toggled\n", res.Routine.Name)
	default:
		ctx.printf("✓ %s\n", action.Kind)
	}
	return nil
}
