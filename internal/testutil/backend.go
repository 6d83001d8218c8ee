// Package testutil provides testing utilities, chiefly an in-memory fake of
// the task backend served over HTTP.
package testutil

import (
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"taskdeck/internal/api"
)

type account struct {
	user     api.User
	password string
}

// Backend is an in-memory implementation of the task API for tests. It
// records per-route call counts and supports failure injection and
// per-route delays.
type Backend struct {
	mu     sync.Mutex
	srv    *httptest.Server
	users  map[string]*account // email -> account
	byID   map[string]*account // user id -> account
	tokens map[string]string   // token -> user id
	resets map[string]string   // reset token -> email
	tasks  map[string][]api.Task
	seq    int

	calls  map[string]int
	fails  map[string]*failSpec
	delays map[string]time.Duration
}

type failSpec struct {
	status  int
	message string
	times   int
}

// NewBackend starts a fake backend. It is closed automatically.
func NewBackend(t interface{ Cleanup(func()) }) *Backend {
	b := &Backend{
		users:  make(map[string]*account),
		byID:   make(map[string]*account),
		tokens: make(map[string]string),
		resets: make(map[string]string),
		tasks:  make(map[string][]api.Task),
		calls:  make(map[string]int),
		fails:  make(map[string]*failSpec),
		delays: make(map[string]time.Duration),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", b.handle("POST /auth/login", b.login))
	mux.HandleFunc("POST /api/auth/register", b.handle("POST /auth/register", b.register))
	mux.HandleFunc("POST /api/auth/forgot-password", b.handle("POST /auth/forgot-password", b.forgotPassword))
	mux.HandleFunc("POST /api/auth/reset-password", b.handle("POST /auth/reset-password", b.resetPassword))
	mux.HandleFunc("GET /api/auth/me", b.handle("GET /auth/me", b.me))
	mux.HandleFunc("PUT /api/auth/profile", b.handle("PUT /auth/profile", b.updateProfile))
	mux.HandleFunc("POST /api/auth/logout", b.handle("POST /auth/logout", b.logout))
	mux.HandleFunc("GET /api/tasks", b.handle("GET /tasks", b.listTasks))
	mux.HandleFunc("GET /api/tasks/stats", b.handle("GET /tasks/stats", b.stats))
	mux.HandleFunc("POST /api/tasks", b.handle("POST /tasks", b.createTask))
	mux.HandleFunc("GET /api/tasks/{id}", b.handle("GET /tasks/{id}", b.getTask))
	mux.HandleFunc("PUT /api/tasks/{id}", b.handle("PUT /tasks/{id}", b.updateTask))
	mux.HandleFunc("DELETE /api/tasks/{id}", b.handle("DELETE /tasks/{id}", b.deleteTask))

	b.srv = httptest.NewServer(mux)
	t.Cleanup(b.srv.Close)
	return b
}

// APIURL returns the backend base URL including the /api prefix.
func (b *Backend) APIURL() string {
	return b.srv.URL + "/api"
}

// Calls returns how many requests hit a route, e.g. "GET /tasks".
func (b *Backend) Calls(route string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.calls[route]
}

// ResetCalls zeroes all call counters.
func (b *Backend) ResetCalls() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = make(map[string]int)
}

// FailNext makes the next n requests to a route fail with the given status.
func (b *Backend) FailNext(route string, status, times int, message string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.fails[route] = &failSpec{status: status, message: message, times: times}
}

// SetRouteDelay delays every response on a route.
func (b *Backend) SetRouteDelay(route string, d time.Duration) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.delays[route] = d
}

// SeedUser creates an account and returns its id.
func (b *Backend) SeedUser(name, email, password string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	id := uuid.NewString()
	acc := &account{
		user:     api.User{ID: id, Name: name, Email: email},
		password: password,
	}
	b.users[email] = acc
	b.byID[id] = acc
	return id
}

// SeedToken registers a valid session token for a user id and returns it.
func (b *Backend) SeedToken(userID string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	token := "tok-" + uuid.NewString()
	b.tokens[token] = userID
	return token
}

// SeedResetToken registers a password-reset token for an email.
func (b *Backend) SeedResetToken(token, email string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resets[token] = email
}

// SeedTask adds a task for a user and returns it.
func (b *Backend) SeedTask(userID, title, status, priority string) api.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.addTask(userID, api.CreateTask{Title: title, Status: status, Priority: priority})
}

// UserTasks returns a snapshot of a user's tasks, looked up by email.
func (b *Backend) UserTasks(email string) []api.Task {
	b.mu.Lock()
	defer b.mu.Unlock()
	acc, ok := b.users[email]
	if !ok {
		return nil
	}
	return append([]api.Task(nil), b.tasks[acc.user.ID]...)
}

// RevokeToken invalidates a session token server-side.
func (b *Backend) RevokeToken(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.tokens, token)
}

// addTask must be called with b.mu held.
func (b *Backend) addTask(userID string, in api.CreateTask) api.Task {
	b.seq++
	status := in.Status
	if status == "" {
		status = api.StatusPending
	}
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(time.Duration(b.seq) * time.Second)
	task := api.Task{
		ID:          uuid.NewString(),
		Title:       in.Title,
		Description: in.Description,
		Status:      status,
		Priority:    in.Priority,
		Category:    in.Category,
		Tags:        in.Tags,
		DueDate:     in.DueDate,
		User:        userID,
		CreatedAt:   now.Format(time.RFC3339),
		UpdatedAt:   now.Format(time.RFC3339),
	}
	if status == api.StatusDone {
		task.CompletedAt = task.CreatedAt
	}
	b.tasks[userID] = append(b.tasks[userID], task)
	return task
}

// handle wraps a route handler with counting, delay and failure injection.
func (b *Backend) handle(route string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.calls[route]++
		delay := b.delays[route]
		var injected *failSpec
		if f := b.fails[route]; f != nil && f.times > 0 {
			f.times--
			injected = f
		}
		b.mu.Unlock()

		if delay > 0 {
			time.Sleep(delay)
		}
		if injected != nil {
			writeError(w, injected.status, injected.message)
			return
		}
		fn(w, r)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "message": message})
}

// authedUser resolves the bearer token; responds 401 when missing/invalid.
func (b *Backend) authedUser(w http.ResponseWriter, r *http.Request) (*account, bool) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	id, ok := b.tokens[raw]
	var acc *account
	if ok {
		acc = b.byID[id]
	}
	b.mu.Unlock()
	if raw == "" || !ok || acc == nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
		return nil, false
	}
	return acc, true
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var in struct{ Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	acc, ok := b.users[in.Email]
	b.mu.Unlock()
	if !ok || acc.password != in.Password {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	token := b.SeedToken(acc.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Login successful",
		"token": token, "user": acc.user,
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var in struct{ Name, Email, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	_, exists := b.users[in.Email]
	b.mu.Unlock()
	if exists {
		writeError(w, http.StatusBadRequest, "User already exists")
		return
	}
	id := b.SeedUser(in.Name, in.Email, in.Password)
	token := b.SeedToken(id)
	b.mu.Lock()
	user := b.byID[id].user
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true, "message": "Registration successful",
		"token": token, "user": user,
	})
}

func (b *Backend) forgotPassword(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Password reset email sent",
	})
}

func (b *Backend) resetPassword(w http.ResponseWriter, r *http.Request) {
	var in struct{ Token, Password string }
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	email, ok := b.resets[in.Token]
	var acc *account
	if ok {
		acc = b.users[email]
		acc.password = in.Password
		delete(b.resets, in.Token)
	}
	b.mu.Unlock()
	if !ok || acc == nil {
		writeError(w, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	token := b.SeedToken(acc.user.ID)
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true, "message": "Password reset successful",
		"token": token, "user": acc.user,
	})
}

func (b *Backend) me(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": acc.user})
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	var in struct {
		Name *string `json:"name"`
	}
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	b.mu.Lock()
	if in.Name != nil {
		acc.user.Name = *in.Name
	}
	user := acc.user
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	b.mu.Lock()
	delete(b.tokens, raw)
	b.mu.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"message": "Logged out successfully"})
}

func (b *Backend) listTasks(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()

	b.mu.Lock()
	all := append([]api.Task(nil), b.tasks[acc.user.ID]...)
	b.mu.Unlock()

	var filtered []api.Task
	search := strings.ToLower(q.Get("search"))
	for _, t := range all {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if s := q.Get("status"); s != "" && t.Status != s {
			continue
		}
		if p := q.Get("priority"); p != "" && t.Priority != p {
			continue
		}
		filtered = append(filtered, t)
	}

	sortTasks(filtered, q.Get("sortBy"), q.Get("sortOrder"))

	page := atoiDefault(q.Get("page"), 1)
	limit := atoiDefault(q.Get("limit"), 10)
	total := len(filtered)
	totalPages := (total + limit - 1) / limit
	if totalPages < 1 {
		totalPages = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}

	tasks := filtered[start:end]
	if tasks == nil {
		tasks = []api.Task{}
	}
	writeJSON(w, http.StatusOK, api.TaskPage{
		Tasks: tasks,
		Pagination: api.Pagination{
			CurrentPage: page,
			TotalPages:  totalPages,
			TotalTasks:  total,
			HasNextPage: page < totalPages,
			HasPrevPage: page > 1,
			Limit:       limit,
		},
	})
}

var priorityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "urgent": 3}

func sortTasks(tasks []api.Task, sortBy, order string) {
	if sortBy == "" {
		sortBy = "createdAt"
	}
	desc := order == "desc" || (order == "" && sortBy == "createdAt")
	sort.SliceStable(tasks, func(i, j int) bool {
		a, z := tasks[i], tasks[j]
		if desc {
			a, z = z, a
		}
		switch sortBy {
		case "title":
			return a.Title < z.Title
		case "dueDate":
			return a.DueDate < z.DueDate
		case "priority":
			return priorityRank[a.Priority] < priorityRank[z.Priority]
		default:
			return a.CreatedAt < z.CreatedAt
		}
	})
}

func atoiDefault(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return def
	}
	return n
}

func (b *Backend) createTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	var in api.CreateTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if strings.TrimSpace(in.Title) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"success": false, "message": "Validation failed",
			"errors": []map[string]string{{"field": "title", "message": "title is required"}},
		})
		return
	}
	b.mu.Lock()
	task := b.addTask(acc.user.ID, in)
	b.mu.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{
		"task": task, "message": "Task created successfully",
	})
}

func (b *Backend) findTask(userID, id string) (int, bool) {
	for i, t := range b.tasks[userID] {
		if t.ID == id {
			return i, true
		}
	}
	return 0, false
}

func (b *Backend) getTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	i, found := b.findTask(acc.user.ID, id)
	var task api.Task
	if found {
		task = b.tasks[acc.user.ID][i]
	}
	b.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"task": task})
}

func (b *Backend) updateTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	var in api.UpdateTask
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	i, found := b.findTask(acc.user.ID, id)
	var task api.Task
	if found {
		t := &b.tasks[acc.user.ID][i]
		if in.Title != nil {
			t.Title = *in.Title
		}
		if in.Description != nil {
			t.Description = *in.Description
		}
		if in.Status != nil && *in.Status != t.Status {
			t.Status = *in.Status
			if t.Status == api.StatusDone {
				t.CompletedAt = time.Now().UTC().Format(time.RFC3339)
			} else {
				t.CompletedAt = ""
			}
		}
		if in.Priority != nil {
			t.Priority = *in.Priority
		}
		if in.Category != nil {
			t.Category = *in.Category
		}
		if in.Tags != nil {
			t.Tags = *in.Tags
		}
		if in.DueDate != nil {
			t.DueDate = *in.DueDate
		}
		t.UpdatedAt = time.Now().UTC().Format(time.RFC3339)
		task = *t
	}
	b.mu.Unlock()

	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"task": task, "message": "Task updated successfully",
	})
}

func (b *Backend) deleteTask(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")
	b.mu.Lock()
	i, found := b.findTask(acc.user.ID, id)
	if found {
		list := b.tasks[acc.user.ID]
		b.tasks[acc.user.ID] = append(list[:i], list[i+1:]...)
	}
	b.mu.Unlock()
	if !found {
		writeError(w, http.StatusNotFound, "Task not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"message": "Task deleted successfully"})
}

func (b *Backend) stats(w http.ResponseWriter, r *http.Request) {
	acc, ok := b.authedUser(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	var done, pending int
	for _, t := range b.tasks[acc.user.ID] {
		if t.Status == api.StatusDone {
			done++
		} else {
			pending++
		}
	}
	b.mu.Unlock()

	total := done + pending
	rate := 0
	if total > 0 {
		rate = int(math.Round(100 * float64(done) / float64(total)))
	}
	writeJSON(w, http.StatusOK, api.TaskStats{
		TotalTasks:     total,
		CompletedTasks: done,
		PendingTasks:   pending,
		CompletionRate: fmt.Sprintf("%d", rate),
	})
}
