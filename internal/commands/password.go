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
	Register(&ForgotPasswordCmd{})
	Register(&ResetPasswordCmd{})
}

// ForgotPasswordCmd implements the forgot-password command.
type ForgotPasswordCmd struct{}

func (c *ForgotPasswordCmd) Name() string      { return "forgot-password" }
func (c *ForgotPasswordCmd) Aliases() []string { return nil }
func (c *ForgotPasswordCmd) Synopsis() string  { return "Request a password reset email" }
func (c *ForgotPasswordCmd) Usage() string {
	return "taskdeck forgot-password [common flags] <email>"
}
func (c *ForgotPasswordCmd) NeedsAuth() bool { return false }

func (c *ForgotPasswordCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ForgotPasswordCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 1 {
		fmt.Fprintln(errOut, "error: email required")
		return exitcode.UserError
	}

	msg, err := a.Client.ForgotPassword(ctx, api.ForgotPasswordRequest{Email: args[0]})
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

// ResetPasswordCmd implements the reset-password command. A successful reset
// signs the user in with the newly issued token.
type ResetPasswordCmd struct{}

func (c *ResetPasswordCmd) Name() string      { return "reset-password" }
func (c *ResetPasswordCmd) Aliases() []string { return nil }
func (c *ResetPasswordCmd) Synopsis() string  { return "Reset password with a token from email" }
func (c *ResetPasswordCmd) Usage() string {
	return "taskdeck reset-password [common flags] <reset-token> <new-password>"
}
func (c *ResetPasswordCmd) NeedsAuth() bool { return false }

func (c *ResetPasswordCmd) RegisterFlags(fs *flag.FlagSet) {}

func (c *ResetPasswordCmd) Run(ctx context.Context, cfg *config.Config, a *app.App, args []string, out, errOut io.Writer) int {
	if len(args) != 2 {
		fmt.Fprintln(errOut, "error: reset token and new password required")
		return exitcode.UserError
	}

	resp, err := a.Client.ResetPassword(ctx, api.ResetPasswordRequest{Token: args[0], Password: args[1]})
	if err != nil {
		return fail(errOut, err, "")
	}

	if err := a.Config.EnsureDir(); err != nil {
		fmt.Fprintf(errOut, "error: failed to create config directory: %v\n", err)
		return exitcode.AuthError
	}
	if err := a.Session.Login(resp.Token, &resp.User); err != nil {
		fmt.Fprintf(errOut, "error: failed to save token: %v\n", err)
		return exitcode.AuthError
	}

	if !cfg.Quiet {
		fmt.Fprintf(out, "password reset; logged in as %s <%s>\n", resp.User.Name, resp.User.Email)
	}
	return exitcode.Success
}
