package api_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/api"
	"taskdeck/internal/auth"
	"taskdeck/internal/testutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newClient(t *testing.T, baseURL string) (*api.Client, *auth.TokenStore) {
	t.Helper()
	tokens := auth.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	client, err := api.New(baseURL, 2*time.Second, tokens, discardLogger())
	require.NoError(t, err)
	return client, tokens
}

func TestNewRejectsInvalidBaseURL(t *testing.T) {
	tokens := auth.NewTokenStore(filepath.Join(t.TempDir(), "token.json"))
	for _, bad := range []string{"", "localhost", "/just/a/path"} {
		_, err := api.New(bad, time.Second, tokens, discardLogger())
		assert.Error(t, err, "base URL %q", bad)
	}
}

func TestRequestCarriesBearerAndRequestID(t *testing.T) {
	var gotAuth, gotReqID, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotReqID = r.Header.Get("X-Request-ID")
		gotCT = r.Header.Get("Content-Type")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"tasks":[],"pagination":{"currentPage":1,"totalPages":1,"totalTasks":0,"limit":10}}`))
	}))
	defer srv.Close()

	client, tokens := newClient(t, srv.URL)
	require.NoError(t, tokens.Save("secret-token"))

	_, err := client.ListTasks(context.Background(), api.ListParams{})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, "application/json", gotCT)
	_, err = uuid.Parse(gotReqID)
	assert.NoError(t, err, "X-Request-ID must be a UUID, got %q", gotReqID)
}

func TestUnauthorizedResponseClearsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"success":false,"message":"Not authorized, token failed"}`))
	}))
	defer srv.Close()

	client, tokens := newClient(t, srv.URL)
	require.NoError(t, tokens.Save("stale"))

	_, err := client.ListTasks(context.Background(), api.ListParams{})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))
	assert.Equal(t, "Not authorized, token failed", api.Message(err, ""))
	assert.Empty(t, tokens.Token(), "any 401 invalidates the stored session")
}

func TestUnauthorizedLogoutKeepsToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	client, tokens := newClient(t, srv.URL)
	require.NoError(t, tokens.Save("current"))

	_, err := client.Logout(context.Background(), "already-cleared-token")
	require.Error(t, err)
	assert.Equal(t, "current", tokens.Token(),
		"the logout endpoint is exempt from the 401 clearing rule")
}

func TestErrorBodyIsPropagated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"success":false,"message":"Validation failed","errors":[{"field":"title","message":"title is required"}]}`))
	}))
	defer srv.Close()

	client, _ := newClient(t, srv.URL)

	_, _, err := client.CreateTask(context.Background(), api.CreateTask{Title: "x"})
	require.Error(t, err)

	var ae *api.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusBadRequest, ae.Status)
	assert.Equal(t, "Validation failed", ae.Message)
	require.Len(t, ae.Fields, 1)
	assert.Equal(t, "title", ae.Fields[0].Field)
	assert.True(t, api.IsValidation(err))
}

func TestPayloadValidationSkipsNetwork(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
	}))
	defer srv.Close()

	client, _ := newClient(t, srv.URL)

	_, err := client.Login(context.Background(), api.LoginRequest{Email: "not-an-email", Password: "hunter22"})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	_, _, err = client.CreateTask(context.Background(), api.CreateTask{Title: "", Priority: "asap"})
	require.Error(t, err)
	assert.True(t, api.IsValidation(err))

	assert.Equal(t, int32(0), hits.Load(), "invalid payloads never reach the wire")
}

func TestTaskRoundTrip(t *testing.T) {
	b := testutil.NewBackend(t)
	client, tokens := newClient(t, b.APIURL())

	id := b.SeedUser("Ada", "ada@example.com", "hunter22")
	require.NoError(t, tokens.Save(b.SeedToken(id)))
	ctx := context.Background()

	created, msg, err := client.CreateTask(ctx, api.CreateTask{Title: "Buy milk", Priority: "high"})
	require.NoError(t, err)
	assert.Equal(t, "Task created successfully", msg)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, api.StatusPending, created.Status)

	page, err := client.ListTasks(ctx, api.ListParams{})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Buy milk", page.Tasks[0].Title)

	status := api.StatusDone
	updated, _, err := client.UpdateTask(ctx, created.ID, api.UpdateTask{Status: &status})
	require.NoError(t, err)
	assert.Equal(t, api.StatusDone, updated.Status)
	assert.NotEmpty(t, updated.CompletedAt)

	stats, err := client.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalTasks)
	assert.Equal(t, 1, stats.CompletedTasks)
	assert.Equal(t, "100", stats.CompletionRate)

	delMsg, err := client.DeleteTask(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Task deleted successfully", delMsg)

	_, err = client.GetTask(ctx, created.ID)
	require.Error(t, err)
	assert.Equal(t, http.StatusNotFound, api.StatusOf(err))
}

func TestListFiltersReachTheWire(t *testing.T) {
	b := testutil.NewBackend(t)
	client, tokens := newClient(t, b.APIURL())

	id := b.SeedUser("Ada", "ada@example.com", "hunter22")
	require.NoError(t, tokens.Save(b.SeedToken(id)))
	b.SeedTask(id, "Buy milk", api.StatusPending, "high")
	b.SeedTask(id, "Write report", api.StatusDone, "low")
	b.SeedTask(id, "Buy eggs", api.StatusPending, "low")

	ctx := context.Background()

	page, err := client.ListTasks(ctx, api.ListParams{Search: "buy"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Pagination.TotalTasks)

	page, err = client.ListTasks(ctx, api.ListParams{Status: api.StatusDone})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Write report", page.Tasks[0].Title)

	page, err = client.ListTasks(ctx, api.ListParams{Priority: "high"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 1)
	assert.Equal(t, "Buy milk", page.Tasks[0].Title)

	page, err = client.ListTasks(ctx, api.ListParams{Limit: 2, SortBy: "title", SortOrder: "asc"})
	require.NoError(t, err)
	require.Len(t, page.Tasks, 2)
	assert.Equal(t, "Buy eggs", page.Tasks[0].Title)
	assert.Equal(t, 2, page.Pagination.TotalPages)
	assert.True(t, page.Pagination.HasNextPage)
}

func TestAuthFlowAgainstBackend(t *testing.T) {
	b := testutil.NewBackend(t)
	client, _ := newClient(t, b.APIURL())
	ctx := context.Background()

	resp, err := client.Register(ctx, api.RegisterRequest{
		Name: "Ada", Email: "ada@example.com", Password: "hunter22",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)

	resp, err = client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	_, err = client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "wrong-pass"})
	require.Error(t, err)
	assert.True(t, api.IsUnauthorized(err))

	msg, err := client.ForgotPassword(ctx, api.ForgotPasswordRequest{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, "Password reset email sent", msg)

	b.SeedResetToken("reset-123", "ada@example.com")
	resp, err = client.ResetPassword(ctx, api.ResetPasswordRequest{Token: "reset-123", Password: "new-pass-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Token)

	resp, err = client.Login(ctx, api.LoginRequest{Email: "ada@example.com", Password: "new-pass-1"})
	require.NoError(t, err)
	assert.Equal(t, "Login successful", resp.Message)
}

func TestUpdateProfile(t *testing.T) {
	b := testutil.NewBackend(t)
	client, tokens := newClient(t, b.APIURL())

	id := b.SeedUser("Ada", "ada@example.com", "hunter22")
	require.NoError(t, tokens.Save(b.SeedToken(id)))

	name := "Ada Lovelace"
	user, err := client.UpdateProfile(context.Background(), api.ProfileUpdate{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", user.Name)

	me, err := client.Me(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", me.Name)
}
