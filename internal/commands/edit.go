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
	Register(&EditCmd{})
}

// EditCmd patches task fields. Only flags the user actually set go into the
// request; everything else is left unchanged server-side.
type EditCmd struct {
	fs          *flag.FlagSet
	title       string
	description string
	status      string
	priority    string
	category    string
	due         string
	tags        string
}

func (c *EditCmd) Name() string      { return "edit" }
func (c *EditCmd) Aliases() []string { return nil }
func (c *EditCmd) Synopsis() string  { return "Edit task fields" }
func (c *EditCmd) Usage() string {
	return "taskdeck edit [common flags] [--title <t>] [--desc <text>] [--status pending|done] [--priority <p>] [--category <c>] [--due <date>] [--tags a,b] <task-id>"
}
func (c *EditCmd) NeedsAuth() bool { return true }

func (c *EditCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.title, "title", "", "")
	fs.StringVar(&c.description, "desc", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.category, "category", "", "")
	fs.StringVar(&c.due, "due", "", "")
	fs.StringVar(&c.tags, "tags", "", "")
	// kept so Run can tell which flags were explicitly set
	c.fs = fs
}

func (c *EditCmd) visited() map[string]bool {
	set := make(map[string]bool)
	if c.fs != nil {
		c.fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	}
	return set
}

func (c *EditCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 1 || args[0] == "" {
		fmt.Fprintln(errOut, "error: task id required")
		return exitcode.UserError
	}

	var in api.UpdateTask
	set := c.visited()
	if set["title"] {
		in.Title = &c.title
	}
	if set["desc"] {
		in.Description = &c.description
	}
	if set["status"] {
		in.Status = &c.status
	}
	if set["priority"] {
		in.Priority = &c.priority
	}
	if set["category"] {
		in.Category = &c.category
	}
	if set["due"] {
		in.DueDate = &c.due
	}
	if set["tags"] {
		tags := splitTags(c.tags)
		in.Tags = &tags
	}

	if in == (api.UpdateTask{}) {
		fmt.Fprintln(errOut, "error: nothing to change")
		return exitcode.UserError
	}

	_, msg, err := a.Tasks.Update(ctx, args[0], in)
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
