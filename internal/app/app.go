// Package app wires the client stack together: config, token store, HTTP
// client, cached task service and session store.
package app

import (
	"log/slog"
	"os"
	"strings"

	"taskdeck/internal/api"
	"taskdeck/internal/auth"
	"taskdeck/internal/config"
	"taskdeck/internal/session"
	"taskdeck/internal/tasks"
)

// App holds one process's client stack. Constructed once and passed by
// reference to commands; nothing here is a package-level singleton.
type App struct {
	Config  *config.Config
	Log     *slog.Logger
	Tokens  *auth.TokenStore
	Client  *api.Client
	Tasks   tasks.API
	Session *session.Store
}

// New builds the stack from config.
func New(cfg *config.Config) (*App, error) {
	log := NewLogger(cfg)
	tokens := auth.NewTokenStore(cfg.TokenPath())
	client, err := api.New(cfg.APIURL, cfg.RequestTimeout, tokens, log)
	if err != nil {
		return nil, err
	}
	return &App{
		Config:  cfg,
		Log:     log,
		Tokens:  tokens,
		Client:  client,
		Tasks:   tasks.NewService(client),
		Session: session.New(client, tokens, log),
	}, nil
}

// NewLogger builds a text slog logger on stderr. --debug forces debug level,
// otherwise the configured level applies (default info).
func NewLogger(cfg *config.Config) *slog.Logger {
	level := parseLevel(cfg.LogLevel)
	if cfg.Debug {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	return slog.New(handler)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info", "":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
