package performance

import (
	"sync"
	"time"
)

// Debouncer provides debouncing functionality for bursty events such as
// file-system notifications
type Debouncer struct {
	mutex    sync.Mutex
	timers   map[string]*time.Timer
	duration time.Duration
}

// NewDebouncer creates a new debouncer with the specified duration
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		timers:   make(map[string]*time.Timer),
		duration: duration,
	}
}

// Debounce executes the function after the debounce duration has passed
// If called again with the same key before the duration expires, the previous call is cancelled
func (d *Debouncer) Debounce(key string, fn func()) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.duration, func() {
		d.mutex.Lock()
		// A newer call may have replaced this timer after it fired.
		if d.timers[key] != timer {
			d.mutex.Unlock()
			return
		}
		delete(d.timers, key)
		d.mutex.Unlock()
		fn()
	})
	d.timers[key] = timer
}

// Pending reports how many keys have a call scheduled
func (d *Debouncer) Pending() int {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	return len(d.timers)
}

// Cancel cancels a pending debounced function call
func (d *Debouncer) Cancel(key string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if timer, exists := d.timers[key]; exists {
		timer.Stop()
		delete(d.timers, key)
	}
}

// Clear cancels all pending debounced function calls
func (d *Debouncer) Clear() {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	for key, timer := range d.timers {
		timer.Stop()
		delete(d.timers, key)
	}
}
