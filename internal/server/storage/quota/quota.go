// Package quota implements a sliding-window usage tracker: it decides
// whether a new event of a given size would push the sum of recent event
// sizes over a fixed amount within a fixed trailing duration.
package quota

import (
	"sync"
	"time"
)

// Clock abstracts time.Now so tests can drive the window deterministically.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// RealClock is the production Clock backed by time.Now.
var RealClock Clock = realClock{}

type event struct {
	at     time.Time
	amount int64
}

// Tracker limits cumulative usage to amount per duration, evaluated as a
// trailing sliding window anchored at the current time.
type Tracker struct {
	mu       sync.Mutex
	amount   int64
	duration time.Duration
	clock    Clock
	events   []event
}

// New constructs a Tracker allowing at most amount units of usage in any
// trailing window of duration, using the real wall clock.
func New(amount int64, duration time.Duration) *Tracker {
	return NewWithClock(amount, duration, RealClock)
}

// NewWithClock is New with an injectable Clock, for testing.
func NewWithClock(amount int64, duration time.Duration, clock Clock) *Tracker {
	return &Tracker{
		amount:   amount,
		duration: duration,
		clock:    clock,
	}
}

// prune drops events older than duration relative to now. Caller must hold mu.
func (t *Tracker) prune(now time.Time) {
	cutoff := now.Add(-t.duration)
	i := 0
	for i < len(t.events) && t.events[i].at.Before(cutoff) {
		i++
	}
	if i > 0 {
		t.events = t.events[i:]
	}
}

// Check reports whether a new event of the given amount could be added
// without the windowed sum exceeding the tracker's quota. It does not
// record the event; callers that decide to proceed must call Add.
func (t *Tracker) Check(amount int64) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	t.prune(now)

	var sum int64
	for _, e := range t.events {
		sum += e.amount
	}
	return sum+amount <= t.amount
}

// Add records a new event of the given amount at the current time,
// regardless of whether it would violate the quota. Callers are expected to
// call Check first and only call Add when proceeding with the underlying
// operation.
func (t *Tracker) Add(amount int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.clock.Now()
	t.prune(now)
	t.events = append(t.events, event{at: now, amount: amount})
}
