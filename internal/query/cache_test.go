package query_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskdeck/internal/query"
)

func countingFetch(calls *int, v any) query.FetchFunc {
	return func(ctx context.Context) (any, error) {
		*calls++
		return v, nil
	}
}

func TestGetServesFreshDataWithoutRefetching(t *testing.T) {
	c := query.New()
	calls := 0
	p := query.Policy{Freshness: time.Minute}

	v, err := c.Get(context.Background(), "k", p, countingFetch(&calls, "one"))
	require.NoError(t, err)
	assert.Equal(t, "one", v)

	v, err = c.Get(context.Background(), "k", p, countingFetch(&calls, "two"))
	require.NoError(t, err)
	assert.Equal(t, "one", v, "second read within the freshness window must be served from cache")
	assert.Equal(t, 1, calls)
}

func TestZeroFreshnessRefetchesEveryRead(t *testing.T) {
	c := query.New()
	calls := 0

	_, err := c.Get(context.Background(), "k", query.Policy{}, countingFetch(&calls, 1))
	require.NoError(t, err)
	_, err = c.Get(context.Background(), "k", query.Policy{}, countingFetch(&calls, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestFreshnessExpiryTriggersRefetch(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	c := query.NewWithClock(func() time.Time { return now })
	calls := 0
	p := query.Policy{Freshness: 30 * time.Second}

	_, err := c.Get(context.Background(), "k", p, countingFetch(&calls, "a"))
	require.NoError(t, err)

	now = now.Add(29 * time.Second)
	_, err = c.Get(context.Background(), "k", p, countingFetch(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, 1, calls, "29s old is still fresh")

	now = now.Add(2 * time.Second)
	v, err := c.Get(context.Background(), "k", p, countingFetch(&calls, "c"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "31s old must refetch")
	assert.Equal(t, "c", v)
}

func TestRefetchBypassesFreshness(t *testing.T) {
	c := query.New()
	calls := 0
	p := query.Policy{Freshness: time.Minute}

	_, err := c.Get(context.Background(), "k", p, countingFetch(&calls, "a"))
	require.NoError(t, err)
	v, err := c.Refetch(context.Background(), "k", p, countingFetch(&calls, "b"))
	require.NoError(t, err)
	assert.Equal(t, "b", v)
	assert.Equal(t, 2, calls)
}

func TestRetriesTransientFailures(t *testing.T) {
	c := query.New()
	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		if calls < 3 {
			return nil, errors.New("transient")
		}
		return "ok", nil
	}

	v, err := c.Get(context.Background(), "k", query.Policy{Retries: 2}, fetch)
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 3, calls)
}

func TestRetriesExhaustedReturnsLastError(t *testing.T) {
	c := query.New()
	calls := 0
	boom := errors.New("boom")
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return nil, boom
	}

	_, err := c.Get(context.Background(), "k", query.Policy{Retries: 2}, fetch)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 3, calls)

	_, state, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, query.Failed, state)
}

func TestRetryOnStopsNonRetryableFailures(t *testing.T) {
	c := query.New()
	calls := 0
	fatal := errors.New("unauthorized")
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return nil, fatal
	}
	p := query.Policy{
		Retries: 2,
		RetryOn: func(err error) bool { return !errors.Is(err, fatal) },
	}

	_, err := c.Get(context.Background(), "k", p, fetch)
	require.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, calls, "non-retryable failures must not be retried")
}

func TestInvalidateKeepsDataButForcesRefetch(t *testing.T) {
	c := query.New()
	calls := 0
	p := query.Policy{Freshness: time.Minute}

	_, err := c.Get(context.Background(), "tasks|a", p, countingFetch(&calls, "held"))
	require.NoError(t, err)

	c.Invalidate("tasks|")

	// The data stays visible until a new read lands.
	data, state, ok := c.Peek("tasks|a")
	require.True(t, ok)
	assert.Equal(t, query.Success, state)
	assert.Equal(t, "held", data)

	_, err = c.Get(context.Background(), "tasks|a", p, countingFetch(&calls, "fresh"))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "invalidated entries must refetch on the next read")
}

func TestInvalidateIsPrefixScoped(t *testing.T) {
	c := query.New()
	calls := 0
	p := query.Policy{Freshness: time.Minute}

	_, _ = c.Get(context.Background(), "tasks|a", p, countingFetch(&calls, 1))
	_, _ = c.Get(context.Background(), "stats", p, countingFetch(&calls, 2))

	c.Invalidate("tasks|")

	_, err := c.Get(context.Background(), "stats", p, countingFetch(&calls, 3))
	require.NoError(t, err)
	assert.Equal(t, 2, calls, "entries outside the prefix stay fresh")
}

func TestPatchRewritesSuccessfulEntriesOnly(t *testing.T) {
	c := query.New()
	calls := 0
	p := query.Policy{Freshness: time.Minute}

	_, _ = c.Get(context.Background(), "tasks|a", p, countingFetch(&calls, "a"))
	_, _ = c.Get(context.Background(), "tasks|b", p, countingFetch(&calls, "b"))
	_, _ = c.Get(context.Background(), "stats", p, countingFetch(&calls, "s"))
	_, err := c.Get(context.Background(), "tasks|bad", query.Policy{}, func(ctx context.Context) (any, error) {
		return nil, errors.New("down")
	})
	require.Error(t, err)

	var patched []string
	c.Patch("tasks|", func(key string, data any) (any, bool) {
		patched = append(patched, key)
		if key == "tasks|b" {
			return nil, false
		}
		return data.(string) + "!", true
	})

	assert.ElementsMatch(t, []string{"tasks|a", "tasks|b"}, patched,
		"failed entries and other prefixes are never offered to the patch")

	data, _, _ := c.Peek("tasks|a")
	assert.Equal(t, "a!", data)
	data, _, _ = c.Peek("tasks|b")
	assert.Equal(t, "b", data, "declined patches leave the entry unchanged")
	data, _, _ = c.Peek("stats")
	assert.Equal(t, "s", data)
}

func TestSupersededFetchLosesToNewerOne(t *testing.T) {
	c := query.New()

	started := make(chan struct{})
	release := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := c.Get(context.Background(), "k", query.Policy{}, func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return "slow", nil
		})
		// The superseded caller still gets its own result.
		assert.NoError(t, err)
		assert.Equal(t, "slow", v)
	}()

	<-started
	v, err := c.Refetch(context.Background(), "k", query.Policy{}, func(ctx context.Context) (any, error) {
		return "fast", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "fast", v)

	close(release)
	wg.Wait()

	data, state, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, query.Success, state)
	assert.Equal(t, "fast", data, "the newer fetch must win regardless of completion order")
}

func TestCancelledFetchStoresNothing(t *testing.T) {
	c := query.New()

	ctx, cancel := context.WithCancel(context.Background())
	_, err := c.Get(ctx, "k", query.Policy{Retries: 2}, func(ctx context.Context) (any, error) {
		cancel()
		return nil, ctx.Err()
	})
	require.ErrorIs(t, err, context.Canceled)

	data, state, ok := c.Peek("k")
	require.True(t, ok)
	assert.Equal(t, query.Idle, state, "a cancelled fetch restores the prior state")
	assert.Nil(t, data)

	// The key is still usable afterwards.
	v, err := c.Get(context.Background(), "k", query.Policy{}, func(ctx context.Context) (any, error) {
		return "later", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "later", v)
}

func TestKeysListsPrefixMatches(t *testing.T) {
	c := query.New()
	p := query.Policy{Freshness: time.Minute}
	calls := 0
	_, _ = c.Get(context.Background(), "tasks|a", p, countingFetch(&calls, 1))
	_, _ = c.Get(context.Background(), "tasks|b", p, countingFetch(&calls, 2))
	_, _ = c.Get(context.Background(), "stats", p, countingFetch(&calls, 3))

	assert.ElementsMatch(t, []string{"tasks|a", "tasks|b"}, c.Keys("tasks|"))
}
