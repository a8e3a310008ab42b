// Package watch re-validates the evidence corpus when its files change on
// disk.
package watch

import (
	"sync"
	"time"
)

// Debouncer holds a callback until a quiet period has passed. Editors save
// in bursts; the corpus should be re-validated once per burst, not once per
// write.
type Debouncer struct {
	quiet time.Duration
	fire  func()

	mu      sync.Mutex
	pending *time.Timer
}

// NewDebouncer fires the callback once no trigger has arrived for quiet.
func NewDebouncer(quiet time.Duration, fire func()) *Debouncer {
	return &Debouncer{quiet: quiet, fire: fire}
}

// Trigger restarts the quiet period.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
	}
	d.pending = time.AfterFunc(d.quiet, d.fire)
}

// Stop discards any pending callback. A later Trigger arms it again.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.pending != nil {
		d.pending.Stop()
		d.pending = nil
	}
}
