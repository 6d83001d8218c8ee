package commands

import (
	"context"
	"flag"
	"fmt"
	"io"

	"taskdeck/internal/app"
	"taskdeck/internal/config"
	"taskdeck/internal/exitcode"
)

func init() {
	Register(&HelpCmd{})
}

// HelpCmd implements the help command.
type HelpCmd struct{}

func (c *HelpCmd) Name() string      { return "help" }
func (c *HelpCmd) Aliases() []string { return nil }
func (c *HelpCmd) Synopsis() string  { return "Print usage" }
func (c *HelpCmd) Usage() string     { return "taskdeck help" }
func (c *HelpCmd) NeedsAuth() bool   { return false }

func (c *HelpCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *HelpCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	fmt.Fprint(out, helpText)
	return exitcode.Success
}

const helpText = `Usage:
  taskdeck                                           List tasks (first page)
  taskdeck list [--page <n>] [--limit <n>] [--search <text>] [--status <s>]
                [--priority <p>] [--sort <field>] [--order asc|desc] [--refresh]
  taskdeck add [--desc <text>] [--priority <p>] [--category <c>] [--due <date>]
               [--tags a,b] <title...>
  taskdeck done <task-id>
  taskdeck reopen <task-id>
  taskdeck edit [--title <t>] [--desc <text>] [--status <s>] [--priority <p>]
                [--category <c>] [--due <date>] [--tags a,b] <task-id>
  taskdeck rm <task-id>
  taskdeck show <task-id>
  taskdeck stats
  taskdeck search                                    Debounced search over stdin
  taskdeck login <email> <password>
  taskdeck register --name <name> <email> <password>
  taskdeck logout
  taskdeck whoami
  taskdeck forgot-password <email>
  taskdeck reset-password <reset-token> <new-password>
  taskdeck help
  taskdeck version

Common flags:
  --config <dir>   Override config directory
  --quiet          Suppress informational output
  --debug          Print debug logs to stderr
`
