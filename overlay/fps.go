package overlay

import (
	"math"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// minElapsed floors the measured interval so two ticks landing inside the
// same millisecond report 1000.0 instead of Inf.
const minElapsed = time.Millisecond

// FPSTracker measures the interval between successive detection ticks. The
// first Tick after construction measures from construction time, so the
// initial value reflects startup latency rather than a tick interval.
type FPSTracker struct {
	mu   sync.Mutex
	clk  clock.Clock
	last time.Time
	fps  float64
}

// NewFPSTracker seeds the tracker with the current time. A nil clk uses the
// wall clock.
func NewFPSTracker(clk clock.Clock) *FPSTracker {
	if clk == nil {
		clk = clock.New()
	}
	return &FPSTracker{clk: clk, last: clk.Now()}
}

// Tick records a tick and returns the frames-per-second value derived from
// the elapsed interval, rounded to one decimal place. Always positive and
// finite.
func (t *FPSTracker) Tick() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clk.Now()
	elapsed := now.Sub(t.last)
	if elapsed < minElapsed {
		elapsed = minElapsed
	}
	t.last = now
	t.fps = math.Round(10/elapsed.Seconds()) / 10
	return t.fps
}

// Current returns the most recently computed value without recording a tick.
func (t *FPSTracker) Current() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.fps
}
