package cli

type DebugCmd struct {
	DBPath      *DebugDBPathCmd      `cmd:"" help:"Show database path."`
	DumpRoutine *DebugDumpRoutineCmd `cmd:"" help:"Dump a routine as JSON."`
	Stats       *DebugStatsCmd       `cmd:"" help:"Show system-wide totals."`
}

type DebugDBPathCmd struct{}

func (cmd *DebugDBPathCmd) Run(ctx *Context) error {
	return ctx.printJSON(map[string]string{"path": ctx.Store().GetConfigPath()})
}

type DebugDumpRoutineCmd struct {
	ID string `arg:"" help:"ID of the routine to dump."`
}

func (cmd *DebugDumpRoutineCmd) Run(ctx *Context) error {
	r, err := ctx.Store().GetRoutine(ctx.Ctx(), ctx.Owner, cmd.ID)
	if err != nil {
		return err
	}
	return ctx.printJSON(r)
}

type DebugStatsCmd struct{}

func (cmd *DebugStatsCmd) Run(ctx *Context) error {
	stats, err := ctx.Engine().Stats(ctx.Ctx())
	if err != nil {
		return err
	}
	return ctx.printJSON(stats)
}

// ExportCmd prints everything stored for the owner as JSON.
type ExportCmd struct{}

func (cmd *ExportCmd) Run(ctx *Context) error {
	exp, err := ctx.Engine().Export(ctx.Ctx(), ctx.Owner)
	if err != nil {
		return err
	}
	return ctx.printJSON(exp)
}

// RepairCmd recomputes routine counters from the ledger.
type RepairCmd struct{}

func (cmd *RepairCmd) Run(ctx *Context) error {
	n, err := ctx.Engine().Repair(ctx.Ctx())
	if err != nil {
		return err
	}
	if n == 0 {
		ctx.println("All routine counters match the ledger.")
		return nil
	}
	ctx.printf("✓ Repaired %d routine counter(s)\n", n)
	return nil
}
