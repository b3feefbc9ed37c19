package performance

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestDebounceCollapsesBursts(t *testing.T) {
	d := NewDebouncer(30 * time.Millisecond)

	var calls atomic.Int32
	done := make(chan struct{}, 1)
	for i := 0; i < 5; i++ {
		d.Debounce("config", func() {
			calls.Add(1)
			done <- struct{}{}
		})
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("debounced call never ran")
	}
	time.Sleep(60 * time.Millisecond)

	if got := calls.Load(); got != 1 {
		t.Fatalf("calls=%d want=1", got)
	}
	if d.Pending() != 0 {
		t.Fatalf("pending=%d want=0", d.Pending())
	}
}

func TestDebounceCancel(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	var calls atomic.Int32
	d.Debounce("a", func() { calls.Add(1) })
	d.Debounce("b", func() { calls.Add(1) })
	d.Cancel("a")
	d.Clear()

	time.Sleep(60 * time.Millisecond)
	if got := calls.Load(); got != 0 {
		t.Fatalf("calls=%d want=0", got)
	}
}
