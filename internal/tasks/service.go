// Package tasks is the cached query/mutation layer over the task API.
//
// Reads go through a shared result cache keyed by the exact parameter tuple;
// mutations reconcile that cache after the backend confirms: replace or remove
// the affected task in every held list page, then mark list, single-task and
// stats entries stale so differently-filtered pages refetch on their next read.
package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdeck/internal/api"
	"taskdeck/internal/query"
)

const (
	// ListFreshness is how long a list page is served without a refetch.
	ListFreshness = 30 * time.Second

	// StatsFreshness is how long the stats aggregate is served without a refetch.
	StatsFreshness = time.Minute

	// maxRetries is the number of extra attempts after a failed read.
	maxRetries = 2
)

// Cache key prefixes. "tasks|" and "task|" are distinct by construction so
// invalidating one never touches the other.
const (
	listPrefix = "tasks|"
	taskPrefix = "task|"
	statsKey   = "stats"
)

// API is the read/mutate surface commands consume. *Service implements it.
type API interface {
	List(ctx context.Context, p api.ListParams) (*api.TaskPage, error)
	Refresh(ctx context.Context, p api.ListParams) (*api.TaskPage, error)
	Get(ctx context.Context, id string) (*api.Task, error)
	Create(ctx context.Context, in api.CreateTask) (*api.Task, string, error)
	Update(ctx context.Context, id string, in api.UpdateTask) (*api.Task, string, error)
	Delete(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (*api.TaskStats, error)
}

// Client is the part of the HTTP client the service depends on.
type Client interface {
	ListTasks(ctx context.Context, p api.ListParams) (*api.TaskPage, error)
	GetTask(ctx context.Context, id string) (*api.Task, error)
	CreateTask(ctx context.Context, in api.CreateTask) (*api.Task, string, error)
	UpdateTask(ctx context.Context, id string, in api.UpdateTask) (*api.Task, string, error)
	DeleteTask(ctx context.Context, id string) (string, error)
	Stats(ctx context.Context) (*api.TaskStats, error)
}

// Service implements API over a Client and a shared query cache.
type Service struct {
	client Client
	cache  *query.Cache
}

// NewService creates a Service with its own cache.
func NewService(client Client) *Service {
	return NewServiceWithCache(client, query.New())
}

// NewServiceWithCache creates a Service over an existing cache.
func NewServiceWithCache(client Client, cache *query.Cache) *Service {
	return &Service{client: client, cache: cache}
}

// Cache exposes the underlying cache for inspection.
func (s *Service) Cache() *query.Cache { return s.cache }

// listPolicy: fresh for 30s, up to 2 extra attempts, but a 401 propagates
// immediately so the caller can route to sign-in.
func listPolicy() query.Policy {
	return query.Policy{
		Freshness: ListFreshness,
		Retries:   maxRetries,
		RetryOn:   func(err error) bool { return !api.IsUnauthorized(err) },
	}
}

// List returns one page of tasks, cached per exact parameter tuple.
func (s *Service) List(ctx context.Context, p api.ListParams) (*api.TaskPage, error) {
	p = normalize(p)
	v, err := s.cache.Get(ctx, ListKey(p), listPolicy(), func(ctx context.Context) (any, error) {
		return s.client.ListTasks(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.TaskPage), nil
}

// Refresh bypasses the freshness window for one list key.
func (s *Service) Refresh(ctx context.Context, p api.ListParams) (*api.TaskPage, error) {
	p = normalize(p)
	v, err := s.cache.Refetch(ctx, ListKey(p), listPolicy(), func(ctx context.Context) (any, error) {
		return s.client.ListTasks(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.TaskPage), nil
}

// Get returns one task by id. Single-task reads have no freshness window;
// the key exists so mutations can invalidate any held copy.
func (s *Service) Get(ctx context.Context, id string) (*api.Task, error) {
	pol := query.Policy{
		Retries: maxRetries,
		RetryOn: func(err error) bool { return !api.IsUnauthorized(err) },
	}
	v, err := s.cache.Get(ctx, taskPrefix+id, pol, func(ctx context.Context) (any, error) {
		return s.client.GetTask(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.Task), nil
}

// Stats returns the derived aggregate, fresh for 60s, retried up to twice
// regardless of failure kind.
func (s *Service) Stats(ctx context.Context) (*api.TaskStats, error) {
	pol := query.Policy{Freshness: StatsFreshness, Retries: maxRetries}
	v, err := s.cache.Get(ctx, statsKey, pol, func(ctx context.Context) (any, error) {
		return s.client.Stats(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*api.TaskStats), nil
}

// Create sends a new task. On success the list and stats caches are marked
// stale. Returns the created task and the server message.
func (s *Service) Create(ctx context.Context, in api.CreateTask) (*api.Task, string, error) {
	task, msg, err := s.client.CreateTask(ctx, in)
	if err != nil {
		return nil, "", mutationError(err, "Failed to create task")
	}
	s.cache.Invalidate(listPrefix)
	s.cache.Invalidate(statsKey)
	return task, msg, nil
}

// Update patches a task. After the backend confirms, the updated task
// replaces its old copy in every held list page (so the visible list changes
// before any refetch), then list, single-task and stats entries are marked
// stale so other filter combinations reconcile on their next read.
func (s *Service) Update(ctx context.Context, id string, in api.UpdateTask) (*api.Task, string, error) {
	task, msg, err := s.client.UpdateTask(ctx, id, in)
	if err != nil {
		return nil, "", mutationError(err, "Failed to update task")
	}

	s.cache.Patch(listPrefix, func(_ string, data any) (any, bool) {
		page, ok := data.(*api.TaskPage)
		if !ok {
			return nil, false
		}
		return replaceTask(page, *task)
	})
	s.cache.Invalidate(listPrefix)
	s.cache.Invalidate(taskPrefix + id)
	s.cache.Invalidate(statsKey)
	return task, msg, nil
}

// Delete removes a task. After the backend confirms, the task is removed
// from every held list page, then list and stats entries are marked stale.
func (s *Service) Delete(ctx context.Context, id string) (string, error) {
	msg, err := s.client.DeleteTask(ctx, id)
	if err != nil {
		return "", mutationError(err, "Failed to delete task")
	}

	s.cache.Patch(listPrefix, func(_ string, data any) (any, bool) {
		page, ok := data.(*api.TaskPage)
		if !ok {
			return nil, false
		}
		return removeTask(page, id)
	})
	s.cache.Invalidate(listPrefix)
	s.cache.Invalidate(taskPrefix + id)
	s.cache.Invalidate(statsKey)
	return msg, nil
}

// replaceTask returns a copy of page with the matching task replaced.
// Pages are never mutated in place; earlier readers may still hold them.
func replaceTask(page *api.TaskPage, updated api.Task) (*api.TaskPage, bool) {
	idx := -1
	for i := range page.Tasks {
		if page.Tasks[i].ID == updated.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	next := *page
	next.Tasks = make([]api.Task, len(page.Tasks))
	copy(next.Tasks, page.Tasks)
	next.Tasks[idx] = updated
	return &next, true
}

// removeTask returns a copy of page without the matching task.
func removeTask(page *api.TaskPage, id string) (*api.TaskPage, bool) {
	idx := -1
	for i := range page.Tasks {
		if page.Tasks[i].ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, false
	}
	next := *page
	next.Tasks = make([]api.Task, 0, len(page.Tasks)-1)
	next.Tasks = append(next.Tasks, page.Tasks[:idx]...)
	next.Tasks = append(next.Tasks, page.Tasks[idx+1:]...)
	return &next, true
}

// mutationError leaves server-provided messages intact and wraps everything
// else with the per-operation fallback.
func mutationError(err error, fallback string) error {
	var ae *api.Error
	if errors.As(err, &ae) && ae.Message != "" {
		return err
	}
	return fmt.Errorf("%s: %w", fallback, err)
}

// normalize applies the default page and page size.
func normalize(p api.ListParams) api.ListParams {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit < 1 {
		p.Limit = 10
	}
	return p
}

// ListKey builds the cache key for a parameter tuple. Empty filter values are
// omitted, matching what goes on the wire.
func ListKey(p api.ListParams) string {
	var b strings.Builder
	b.WriteString(listPrefix)
	b.WriteString(fmt.Sprintf("page=%d|limit=%d", p.Page, p.Limit))
	for _, kv := range [][2]string{
		{"search", p.Search},
		{"status", p.Status},
		{"priority", p.Priority},
		{"sortBy", p.SortBy},
		{"sortOrder", p.SortOrder},
	} {
		if kv[1] != "" {
			fmt.Fprintf(&b, "|%s=%s", kv[0], kv[1])
		}
	}
	return b.String()
}
