package commands

import (
	"errors"
	"fmt"
	"io"

	"taskdeck/internal/api"
	"taskdeck/internal/exitcode"
)

// fail prints err in the error taxonomy's terms and returns the exit code.
// 401 means the session is gone (the token has already been cleared).
// Validation failures list every field. Other 4xx are user errors. Anything
// else is a backend/network failure; retryHint names the command to rerun.
func fail(errOut io.Writer, err error, retryHint string) int {
	if api.IsUnauthorized(err) {
		fmt.Fprintln(errOut, "error: session expired (run: taskdeck login)")
		return exitcode.AuthError
	}

	var ae *api.Error
	if errors.As(err, &ae) {
		if len(ae.Fields) > 0 {
			fmt.Fprintf(errOut, "error: %s\n", ae.Message)
			for _, fe := range ae.Fields {
				fmt.Fprintf(errOut, "  - %s\n", fe.Message)
			}
			return exitcode.UserError
		}
		if ae.Status >= 400 && ae.Status < 500 {
			fmt.Fprintf(errOut, "error: %v\n", err)
			return exitcode.UserError
		}
	}

	fmt.Fprintf(errOut, "error: %v\n", err)
	if retryHint != "" {
		fmt.Fprintf(errOut, "(retry: %s)\n", retryHint)
	}
	return exitcode.BackendError
}
