package render

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/jonboulle/clockwork"
)

// ErrPipelineFatal means the GPU kept failing and the host must tear down
// and rebuild the whole pipeline.
var ErrPipelineFatal = errors.New("render pipeline failed repeatedly")

// FaultTracker counts GPU failures inside a sliding window and escalates once
// threshold failures fall inside it.
type FaultTracker struct {
	mu        sync.Mutex
	clock     clockwork.Clock
	threshold int
	window    time.Duration
	faults    []time.Time
	total     int
	last      error
}

// NewFaultTracker returns a tracker. A threshold below one disables
// escalation; a zero window counts failures forever.
func NewFaultTracker(clock clockwork.Clock, threshold int, window time.Duration) *FaultTracker {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &FaultTracker{
		clock:     clock,
		threshold: threshold,
		window:    window,
	}
}

// Record notes one failure. It returns an error wrapping ErrPipelineFatal
// when the failure pushes the tracker over its threshold.
func (f *FaultTracker) Record(err error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.clock.Now()
	f.faults = append(f.faults, now)
	f.total++
	f.last = err
	f.expire(now)

	log.Warn("gpu failure", "err", err, "recent", len(f.faults), "threshold", f.threshold)

	if f.threshold > 0 && len(f.faults) >= f.threshold {
		return fmt.Errorf("%w: %d failures, last: %v", ErrPipelineFatal, len(f.faults), err)
	}
	return nil
}

// Recent returns the failures still inside the window.
func (f *FaultTracker) Recent() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.expire(f.clock.Now())
	return len(f.faults)
}

// Total returns every failure ever recorded.
func (f *FaultTracker) Total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.total
}

// Reset forgets the window, typically after the pipeline was rebuilt.
func (f *FaultTracker) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults = f.faults[:0]
	f.last = nil
}

func (f *FaultTracker) expire(now time.Time) {
	if f.window <= 0 {
		return
	}
	cut := 0
	for cut < len(f.faults) && now.Sub(f.faults[cut]) > f.window {
		cut++
	}
	f.faults = f.faults[cut:]
}
