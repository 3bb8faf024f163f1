package cli

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/julianstephens/routinely/internal/tui"
)

// TuiCmd opens the interactive dashboard.
type TuiCmd struct{}

func (c *TuiCmd) Run(ctx *Context) error {
	m := tui.NewModel(ctx.Ctx(), ctx.Engine(), ctx.Owner, ctx.Clock, RenderReport)
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx.Ctx()))
	_, err := p.Run()
	return err
}
