package query_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"taskdeck/internal/query"
)

type recorder struct {
	mu   sync.Mutex
	vals []string
}

func (r *recorder) emit(v string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.vals = append(r.vals, v)
}

func (r *recorder) values() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.vals...)
}

func TestDebouncerCollapsesRapidUpdates(t *testing.T) {
	var rec recorder
	d := query.NewDebouncer(50*time.Millisecond, rec.emit)
	defer d.Stop()

	for _, v := range []string{"m", "mi", "mil", "milk"} {
		d.Update(v)
	}

	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"milk"}, rec.values(),
		"rapid updates must collapse into one emission of the final value")
}

func TestDebouncerEmitsAgainAfterSilence(t *testing.T) {
	var rec recorder
	d := query.NewDebouncer(30*time.Millisecond, rec.emit)
	defer d.Stop()

	d.Update("first")
	time.Sleep(120 * time.Millisecond)
	d.Update("second")
	time.Sleep(120 * time.Millisecond)

	assert.Equal(t, []string{"first", "second"}, rec.values())
}

func TestFlushEmitsPendingImmediately(t *testing.T) {
	var rec recorder
	d := query.NewDebouncer(time.Hour, rec.emit)
	defer d.Stop()

	d.Update("pending")
	d.Flush()
	assert.Equal(t, []string{"pending"}, rec.values())

	// Nothing pending: a second flush is a no-op.
	d.Flush()
	assert.Equal(t, []string{"pending"}, rec.values())
}

func TestStopDropsPendingValue(t *testing.T) {
	var rec recorder
	d := query.NewDebouncer(30*time.Millisecond, rec.emit)

	d.Update("dropped")
	d.Stop()
	time.Sleep(120 * time.Millisecond)

	assert.Empty(t, rec.values())
}
