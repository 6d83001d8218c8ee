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
	"taskdeck/internal/output"
)

func init() {
	Register(&ListCmd{})
}

// ListCmd implements the list command.
type ListCmd struct {
	page      int
	limit     int
	search    string
	status    string
	priority  string
	sortBy    string
	sortOrder string
	refresh   bool
}

// SetPage sets the page number (for testing).
func (c *ListCmd) SetPage(page int) {
	c.page = page
}

func (c *ListCmd) Name() string      { return "list" }
func (c *ListCmd) Aliases() []string { return []string{"ls"} }
func (c *ListCmd) Synopsis() string  { return "List tasks" }
func (c *ListCmd) Usage() string {
	return "taskdeck list [common flags] [--page <n>] [--limit <n>] [--search <text>] [--status pending|done] [--priority low|medium|high|urgent] [--sort <field>] [--order asc|desc] [--refresh]"
}
func (c *ListCmd) NeedsAuth() bool { return true }

func (c *ListCmd) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.page, "page", 1, "")
	fs.IntVar(&c.limit, "limit", 10, "")
	fs.StringVar(&c.search, "search", "", "")
	fs.StringVar(&c.status, "status", "", "")
	fs.StringVar(&c.priority, "priority", "", "")
	fs.StringVar(&c.sortBy, "sort", "", "")
	fs.StringVar(&c.sortOrder, "order", "", "")
	fs.BoolVar(&c.refresh, "refresh", false, "")
}

func (c *ListCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if c.page < 1 {
		fmt.Fprintf(errOut, "error: invalid page number: %d\n", c.page)
		return exitcode.UserError
	}
	if len(args) > 0 {
		fmt.Fprintf(errOut, "error: unexpected argument: %s\n", args[0])
		return exitcode.UserError
	}

	// "all" means no status filter, matching the dashboard default.
	status := c.status
	if status == "all" {
		status = ""
	}

	params := api.ListParams{
		Page:      c.page,
		Limit:     c.limit,
		Search:    c.search,
		Status:    status,
		Priority:  c.priority,
		SortBy:    c.sortBy,
		SortOrder: c.sortOrder,
	}

	var (
		page *api.TaskPage
		err  error
	)
	if c.refresh {
		page, err = a.Tasks.Refresh(ctx, params)
	} else {
		page, err = a.Tasks.List(ctx, params)
	}
	if err != nil {
		return fail(errOut, err, "taskdeck list")
	}

	if len(page.Tasks) == 0 {
		if !cfg.Quiet {
			fmt.Fprintln(out, "no tasks found")
		}
		return exitcode.Success
	}

	output.FormatPage(out, page)
	return exitcode.Success
}
