// Package api implements the typed HTTP client for the task backend.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/auth"
)

const logoutPath = "/auth/logout"

// Client talks to the task backend. Every request carries a Bearer token when
// one is stored, a generated X-Request-ID, and a fixed timeout. A 401 on any
// endpoint except logout clears the stored token before the error is returned,
// so subsequent reads see "no session".
type Client struct {
	base   string
	http   *http.Client
	tokens *auth.TokenStore
	log    *slog.Logger
}

// New creates a Client for the given base URL, e.g. http://localhost:5000/api.
func New(baseURL string, timeout time.Duration, tokens *auth.TokenStore, log *slog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid API base URL: %q", baseURL)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		base:   strings.TrimRight(baseURL, "/"),
		http:   &http.Client{Timeout: timeout},
		tokens: tokens,
		log:    log,
	}, nil
}

// do sends one JSON request and decodes the response into out (when non-nil).
// bearer overrides the stored token when non-empty; logout uses it to notify
// the backend after the local token is already gone.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any, bearer string) error {
	reqURL := c.base + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var payload io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		payload = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, payload)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if bearer == "" {
		bearer = c.tokens.Token()
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	c.log.Debug("api request", "method", method, "path", path)
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api request failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.log.Debug("api response", "method", method, "path", path, "status", resp.StatusCode)

	if resp.StatusCode >= 400 {
		return c.errorFrom(resp, path)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// errorFrom turns an error response into an *Error, applying the global
// 401 side effect. The logout endpoint is exempt: clearing there would race
// the session teardown that already happened locally.
func (c *Client) errorFrom(resp *http.Response, path string) error {
	apiErr := &Error{Status: resp.StatusCode}

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err == nil && len(data) > 0 {
		var we wireError
		if json.Unmarshal(data, &we) == nil && we.Message != "" {
			apiErr = we.toError(resp.StatusCode)
		}
	}

	if resp.StatusCode == http.StatusUnauthorized && path != logoutPath {
		if err := c.tokens.Clear(); err != nil {
			c.log.Warn("failed to clear token after 401", "err", err)
		}
	}
	return apiErr
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, in LoginRequest) (*AuthResponse, error) {
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, in, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// Register creates a new account.
func (c *Client) Register(ctx context.Context, in RegisterRequest) (*AuthResponse, error) {
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, in, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// ForgotPassword requests a reset email. Returns the server message.
func (c *Client) ForgotPassword(ctx context.Context, in ForgotPasswordRequest) (string, error) {
	if err := validatePayload(in); err != nil {
		return "", err
	}
	var out struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/forgot-password", nil, in, &out, ""); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ResetPassword consumes a reset token and signs the user in.
func (c *Client) ResetPassword(ctx context.Context, in ResetPasswordRequest) (*AuthResponse, error) {
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	var out AuthResponse
	if err := c.do(ctx, http.MethodPost, "/auth/reset-password", nil, in, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// Me resolves the current session to its user.
func (c *Client) Me(ctx context.Context) (*User, error) {
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, nil, &out, ""); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// UpdateProfile patches account fields.
func (c *Client) UpdateProfile(ctx context.Context, in ProfileUpdate) (*User, error) {
	if err := validatePayload(in); err != nil {
		return nil, err
	}
	var out struct {
		User User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPut, "/auth/profile", nil, in, &out, ""); err != nil {
		return nil, err
	}
	return &out.User, nil
}

// Logout invalidates the session server-side. token is passed explicitly
// because the local credential is cleared before this call is made.
func (c *Client) Logout(ctx context.Context, token string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, logoutPath, nil, nil, &out, token); err != nil {
		return "", err
	}
	return out.Message, nil
}

// ListTasks fetches one page of tasks.
func (c *Client) ListTasks(ctx context.Context, p ListParams) (*TaskPage, error) {
	var out TaskPage
	if err := c.do(ctx, http.MethodGet, "/tasks", p.Values(), nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetTask fetches a single task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	var out struct {
		Task Task `json:"task"`
	}
	if err := c.do(ctx, http.MethodGet, "/tasks/"+url.PathEscape(id), nil, nil, &out, ""); err != nil {
		return nil, err
	}
	return &out.Task, nil
}

// CreateTask creates a task. Returns the created task and the server message.
func (c *Client) CreateTask(ctx context.Context, in CreateTask) (*Task, string, error) {
	if err := validatePayload(in); err != nil {
		return nil, "", err
	}
	var out struct {
		Task    Task   `json:"task"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPost, "/tasks", nil, in, &out, ""); err != nil {
		return nil, "", err
	}
	return &out.Task, out.Message, nil
}

// UpdateTask patches a task. Returns the updated task and the server message.
func (c *Client) UpdateTask(ctx context.Context, id string, in UpdateTask) (*Task, string, error) {
	if err := validatePayload(in); err != nil {
		return nil, "", err
	}
	var out struct {
		Task    Task   `json:"task"`
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodPut, "/tasks/"+url.PathEscape(id), nil, in, &out, ""); err != nil {
		return nil, "", err
	}
	return &out.Task, out.Message, nil
}

// DeleteTask deletes a task. Returns the server message.
func (c *Client) DeleteTask(ctx context.Context, id string) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodDelete, "/tasks/"+url.PathEscape(id), nil, nil, &out, ""); err != nil {
		return "", err
	}
	return out.Message, nil
}

// Stats fetches the derived task aggregate.
func (c *Client) Stats(ctx context.Context) (*TaskStats, error) {
	var out TaskStats
	if err := c.do(ctx, http.MethodGet, "/tasks/stats", nil, nil, &out, ""); err != nil {
		return nil, err
	}
	return &out, nil
}
