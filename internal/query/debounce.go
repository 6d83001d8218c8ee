package query

import (
	"sync"
	"time"
)

// DefaultDebounce is the delay used for the search input.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays emission of the latest value until the input has been
// silent for the configured duration. Rapid successive updates collapse to a
// single emission of the final value.
type Debouncer struct {
	delay time.Duration
	emit  func(string)

	mu      sync.Mutex
	timer   *time.Timer
	pending string
	has     bool
}

// NewDebouncer creates a debouncer calling emit after delay of silence.
func NewDebouncer(delay time.Duration, emit func(string)) *Debouncer {
	return &Debouncer{delay: delay, emit: emit}
}

// Update records a new input value and restarts the silence timer.
func (d *Debouncer) Update(value string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pending = value
	d.has = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	if !d.has {
		d.mu.Unlock()
		return
	}
	value := d.pending
	d.has = false
	d.timer = nil
	d.mu.Unlock()
	d.emit(value)
}

// Flush emits any pending value immediately.
func (d *Debouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.fire()
}

// Stop cancels any pending emission.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.has = false
}
