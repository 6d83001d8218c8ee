package commands

import (
	"context"
	"flag"
	"io"

	"taskdeck/internal/app"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
)

func init() {
	Register(&StatsCmd{})
}

// StatsCmd prints the task aggregate.
type StatsCmd struct{}

func (c *StatsCmd) Name() string      { return "stats" }
func (c *StatsCmd) Aliases() []string { return nil }
func (c *StatsCmd) Synopsis() string  { return "Show task totals and completion rate" }
func (c *StatsCmd) Usage() string     { return "taskdeck stats [common flags]" }
func (c *StatsCmd) NeedsAuth() bool   { return true }

func (c *StatsCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *StatsCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	stats, err := a.Tasks.Stats(ctx)
	if err != nil {
		return fail(errOut, err, "taskdeck stats")
	}

	output.FormatStats(out, stats)
	return exitcode.Success
}
