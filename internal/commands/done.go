package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdeck/internal/api"
	"taskdeck/internal/app"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
)

func init() {
	Register(&DoneCmd{})
	Register(&ReopenCmd{})
}

// DoneCmd marks a task done.
type DoneCmd struct{}

func (c *DoneCmd) Name() string      { return "done" }
func (c *DoneCmd) Aliases() []string { return []string{"complete"} }
func (c *DoneCmd) Synopsis() string  { return "Mark a task done" }
func (c *DoneCmd) Usage() string     { return "taskdeck done [common flags] <task-id>" }
func (c *DoneCmd) NeedsAuth() bool   { return true }

func (c *DoneCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *DoneCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setStatus(ctx, cfg, a, args, api.StatusDone, out, errOut)
}

// ReopenCmd marks a task pending again.
type ReopenCmd struct{}

func (c *ReopenCmd) Name() string      { return "reopen" }
func (c *ReopenCmd) Aliases() []string { return nil }
func (c *ReopenCmd) Synopsis() string  { return "Mark a done task pending again" }
func (c *ReopenCmd) Usage() string     { return "taskdeck reopen [common flags] <task-id>" }
func (c *ReopenCmd) NeedsAuth() bool   { return true }

func (c *ReopenCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ReopenCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	return setStatus(ctx, cfg, a, args, api.StatusPending, out, errOut)
}

// setStatus is the shared status-toggle implementation for done and reopen.
func setStatus(ctx context.Context, cfg *config.Config, a *app.App, args []string, status string, out, errOut io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}

	_, msg, err := a.Tasks.Update(ctx, args[0], api.UpdateTask{Status: &status})
	if err != nil {
		return fail(errOut, err, "")
	}

	if !cfg.Quiet {
		if msg == "" {
			msg = "ok"
		}
		fmt.Fprintln(out, msg)
	}
	return exitcode.Success
}
