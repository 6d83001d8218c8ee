package testutil

import (
	"testing"
	"time"

	"taskdeck/internal/app"
	"taskdeck/internal/config"
)

// NewApp builds a client stack wired to the fake backend, with config and
// token storage under a per-test temp directory.
func NewApp(t *testing.T, b *Backend) *app.App {
	t.Helper()

	cfg := &config.Config{
		Dir:            t.TempDir(),
		APIURL:         b.APIURL(),
		RequestTimeout: 2 * time.Second,
		LogLevel:       "error",
	}
	a, err := app.New(cfg)
	if err != nil {
		t.Fatalf("failed to build app: %v", err)
	}
	return a
}
