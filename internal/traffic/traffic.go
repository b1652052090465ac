package traffic

import (
	"sync"
	"time"
)

// Outcome is the terminal result of one weather resolution.
type Outcome string

const (
	OutcomeLive        Outcome = "live"        // proxy or a provider answered
	OutcomeCached      Outcome = "cached"      // fresh cache hit
	OutcomeStale       Outcome = "stale"       // every live source failed, stale value served
	OutcomeUnavailable Outcome = "unavailable" // nothing to serve
)

// DefaultRetention bounds how far back a window may look.
const DefaultRetention = 5 * time.Minute

// Tracker maintains sliding windows of resolution outcomes and rate-limit
// denials. It is the single source for the degraded health state.
type Tracker struct {
	mu        sync.Mutex
	now       func() time.Time
	retention time.Duration
	outcomes  map[Outcome][]time.Time
	denied    []time.Time
}

// NewTracker returns a Tracker using time.Now when now is nil.
func NewTracker(now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{
		now:       now,
		retention: DefaultRetention,
		outcomes:  make(map[Outcome][]time.Time),
	}
}

// Record appends one outcome.
func (t *Tracker) Record(o Outcome) {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.outcomes[o] = append(t.outcomes[o], now)
	t.pruneLocked(now)
}

// RecordDenied records a rate-limit denial (429).
func (t *Tracker) RecordDenied() {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	t.denied = append(t.denied, now)
	t.pruneLocked(now)
}

// Count returns the number of o outcomes within the window.
func (t *Tracker) Count(o Outcome, window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.outcomes[o], t.now().Add(-window))
}

// DenialCount returns the number of rate-limit denials within the window.
func (t *Tracker) DenialCount(window time.Duration) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return countInWindow(t.denied, t.now().Add(-window))
}

// DegradedRate returns (degraded, total) within the window, where degraded
// counts stale and unavailable outcomes. Denials are excluded.
func (t *Tracker) DegradedRate(window time.Duration) (degraded, total int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	cutoff := t.now().Add(-window)
	for o, times := range t.outcomes {
		n := countInWindow(times, cutoff)
		total += n
		if o == OutcomeStale || o == OutcomeUnavailable {
			degraded += n
		}
	}
	return degraded, total
}

// Degraded reports whether at least pct percent of the resolutions in the
// window were stale or unavailable. An empty window is not degraded.
func (t *Tracker) Degraded(window time.Duration, pct float64) bool {
	degraded, total := t.DegradedRate(window)
	if total == 0 {
		return false
	}
	return float64(degraded)*100 >= pct*float64(total)
}

// Reset clears all recorded outcomes.
func (t *Tracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.outcomes = make(map[Outcome][]time.Time)
	t.denied = nil
}

// countInWindow counts timestamps that are not before the cutoff time.
func countInWindow(times []time.Time, cutoff time.Time) int {
	n := 0
	for _, ts := range times {
		if !ts.Before(cutoff) {
			n++
		}
	}
	return n
}

// pruneLocked drops timestamps older than the retention. Must be called with mutex held.
func (t *Tracker) pruneLocked(now time.Time) {
	cutoff := now.Add(-t.retention)
	prune := func(times []time.Time) []time.Time {
		i := 0
		for ; i < len(times) && times[i].Before(cutoff); i++ {
		}
		if i > 0 {
			return append(times[:0], times[i:]...)
		}
		return times
	}
	for o, times := range t.outcomes {
		t.outcomes[o] = prune(times)
	}
	t.denied = prune(t.denied)
}
