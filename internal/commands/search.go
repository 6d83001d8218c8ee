package commands

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"taskdeck/internal/api"
	"taskdeck/internal/app"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
	"taskdeck/internal/output"
	"taskdeck/internal/query"
)

func init() {
	Register(&SearchCmd{})
}

// SearchCmd reads search input line by line and runs a debounced task query
// per settled value: a line becomes a request only after 300ms of silence,
// so fast input issues one call for the final text.
type SearchCmd struct {
	delay time.Duration
	in    io.Reader
}

// SetDelay overrides the debounce delay (for testing).
func (c *SearchCmd) SetDelay(d time.Duration) { c.delay = d }

// SetInput overrides stdin (for testing).
func (c *SearchCmd) SetInput(r io.Reader) { c.in = r }

func (c *SearchCmd) Name() string      { return "search" }
func (c *SearchCmd) Aliases() []string { return nil }
func (c *SearchCmd) Synopsis() string  { return "Interactive task search (reads stdin)" }
func (c *SearchCmd) Usage() string     { return "taskdeck search [common flags]" }
func (c *SearchCmd) NeedsAuth() bool   { return true }

func (c *SearchCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *SearchCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	in := c.in
	if in == nil {
		in = os.Stdin
	}
	delay := c.delay
	if delay == 0 {
		delay = query.DefaultDebounce
	}

	// emitMu serializes result printing; the debouncer fires from a timer
	// goroutine.
	var emitMu sync.Mutex
	code := exitcode.Success

	emit := func(term string) {
		emitMu.Lock()
		defer emitMu.Unlock()
		page, err := a.Tasks.List(ctx, api.ListParams{Search: term})
		if err != nil {
			code = fail(errOut, err, "")
			return
		}
		fmt.Fprintf(out, "> %s\n", term)
		if len(page.Tasks) == 0 {
			fmt.Fprintln(out, "no tasks found")
			return
		}
		output.FormatPage(out, page)
	}

	d := query.NewDebouncer(delay, emit)
	defer d.Stop()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		d.Update(scanner.Text())
	}
	d.Flush()

	// Wait out any emission already in flight from the timer goroutine.
	emitMu.Lock()
	defer emitMu.Unlock()

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(errOut, "error: %v\n", err)
		return exitcode.UserError
	}
	return code
}
