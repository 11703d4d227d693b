package playback

import (
	"math/rand/v2"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Clock schedules callbacks. The engine never sleeps; every suspension
// point goes through AfterFunc.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// WallClock returns a Clock backed by time.AfterFunc.
func WallClock() Clock {
	return wallClock{}
}

// Range is an inclusive [Min, Max] delay window.
type Range struct {
	Min time.Duration
	Max time.Duration
}

func (r Range) span() time.Duration {
	if r.Max <= r.Min {
		return 0
	}
	return r.Max - r.Min + 1
}

// Jitter returns a value in [0, n). It must return 0 when n <= 0.
type Jitter func(n time.Duration) time.Duration

// RandomJitter draws uniformly from [0, n).
func RandomJitter(n time.Duration) time.Duration {
	if n <= 0 {
		return 0
	}
	return rand.N(n)
}

// NoJitter always returns 0, pinning every delay to its Min.
func NoJitter(time.Duration) time.Duration {
	return 0
}

// Pacing controls how fast a conversation plays back.
type Pacing struct {
	// AutoPlay is the pause between turns while auto-play runs.
	AutoPlay Range
	// Typing is how long a persona "types" before its turn is shown.
	Typing Range
	// Tick is the elapsed-time unit.
	Tick time.Duration
}

// DefaultPacing returns the pacing used by the demo.
func DefaultPacing() Pacing {
	return Pacing{
		AutoPlay: Range{Min: 1500 * time.Millisecond, Max: 3 * time.Second},
		Typing:   Range{Min: 800 * time.Millisecond, Max: 2 * time.Second},
		Tick:     time.Second,
	}
}

// Instant returns pacing with no delays. Elapsed time still ticks every second.
func Instant() Pacing {
	return Pacing{Tick: time.Second}
}

func (r Range) pick(j Jitter) time.Duration {
	d := r.Min + j(r.span())
	if d < 0 {
		return 0
	}
	return d
}
