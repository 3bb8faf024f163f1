package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/routinely/internal/models"
)

type ReportCmd struct {
	Window string `arg:"" optional:"" enum:"today,week,month,all" default:"today" help:"Report window (today, week, month, all)."`
	JSON   bool   `help:"Print the report as JSON."`
}

func (c *ReportCmd) Run(ctx *Context) error {
	rep, err := ctx.Engine().Aggregate(ctx.Ctx(), ctx.Owner, models.WindowKind(c.Window))
	if err != nil {
		return err
	}
	if c.JSON {
		return ctx.printJSON(rep)
	}
	ctx.println(RenderReport(rep))
	return nil
}

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Width(22)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("63")).Padding(0, 1)
	barFull    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	barEmpty   = lipgloss.NewStyle().Foreground(lipgloss.Color("238"))
)

const barWidth = 20

func bar(rate float64) string {
	filled := int(rate / 100 * barWidth)
	if filled > barWidth {
		filled = barWidth
	}
	return barFull.Render(strings.Repeat("█", filled)) + barEmpty.Render(strings.Repeat("░", barWidth-filled))
}

func row(label string, value interface{}) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), fmt.Sprint(value))
}

// RenderReport formats a report for the terminal.
func RenderReport(rep models.Report) string {
	var lines []string
	title := map[models.WindowKind]string{
		models.WindowToday:   "Today",
		models.WindowWeek:    "This week",
		models.WindowMonth:   "This month",
		models.WindowAllTime: "All time",
	}[rep.Window.Kind]
	if rep.Start != "" {
		if rep.Start == rep.End {
			title += "  " + rep.Start
		} else {
			title += fmt.Sprintf("  %s → %s", rep.Start, rep.End)
		}
	}
	lines = append(lines, titleStyle.Render(title), "")

	if rep.Window.Kind != models.WindowAllTime {
		lines = append(lines,
			row("Completed", fmt.Sprintf("%d / %d", rep.Completed, rep.Total)),
			row("Success rate", fmt.Sprintf("%s %.2f%%", bar(rep.SuccessRate), rep.SuccessRate)),
		)
	} else {
		lines = append(lines, row("Completions", rep.Completed))
	}

	switch {
	case rep.Today != nil:
		if len(rep.Today.Routines) > 0 {
			lines = append(lines, "")
		}
		for _, s := range rep.Today.Routines {
			mark := "[ ]"
			if s.Done {
				mark = doneStyle.Render("[✓]")
			}
			lines = append(lines, fmt.Sprintf("%s %s %s", mark, s.TimeOfDay, s.Name))
		}
	case rep.Week != nil:
		w := rep.Week
		lines = append(lines,
			row("Daily routines", w.DailyRoutines),
			row("Active days", fmt.Sprintf("%d / 7", w.ActiveDays)),
			row("Weekly routines", fmt.Sprintf("%d / %d", w.WeeklyCompleted, w.WeeklyDue)),
			row("Monthly routines", fmt.Sprintf("%d / %d", w.MonthlyCompleted, w.MonthlyDue)),
			"",
		)
		for _, d := range w.Days {
			lines = append(lines, row(d.Date, strings.Repeat("■", d.Count)))
		}
	case rep.Month != nil:
		m := rep.Month
		lines = append(lines,
			row("Active days", fmt.Sprintf("%d / %d", m.ActiveDays, m.DaysInMonth)),
			row("Average per day", fmt.Sprintf("%.2f", m.AveragePerDay)),
			row("Best day", m.BestDayCount),
		)
		if len(m.Weeks) > 0 {
			lines = append(lines, "")
		}
		for _, wk := range m.Weeks {
			lines = append(lines, row(fmt.Sprintf("Week %d", wk.Week), wk.Count))
		}
	case rep.AllTime != nil:
		a := rep.AllTime
		lines = append(lines,
			row("Active days", a.ActiveDays),
			row("Average per day", fmt.Sprintf("%.2f", a.AveragePerActiveDay)),
		)
		if a.TopRoutine != nil {
			name := a.TopRoutine.Name
			if name == "" {
				name = "(deleted) " + a.TopRoutine.RoutineID
			}
			lines = append(lines, row("Most completed", fmt.Sprintf("%s (%d)", name, a.TopRoutine.Count)))
		}
	}

	return boxStyle.Render(strings.Join(lines, "\n"))
}
