// Package observability provides query timing collection for comparing
// cached, uncached, and reloaded evaluation runs.
package observability

import (
	"fmt"
	"sort"
	"sync"
	"time"
)

// Timings records labeled wall-clock durations. It is an observational
// instrument: nothing in query correctness depends on it.
type Timings struct {
	mu      sync.RWMutex
	samples map[string][]time.Duration
	order   []string // labels in first-seen order
}

// NewTimings creates an empty timing tracker.
func NewTimings() *Timings {
	return &Timings{
		samples: make(map[string][]time.Duration),
	}
}

// Record adds one duration sample under a label.
func (t *Timings) Record(label string, d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.samples[label]; !ok {
		t.order = append(t.order, label)
	}
	t.samples[label] = append(t.samples[label], d)
}

// Last returns the most recent sample for a label.
func (t *Timings) Last(label string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.samples[label]
	if len(s) == 0 {
		return 0, false
	}
	return s[len(s)-1], true
}

// Mean returns the arithmetic mean of a label's samples.
func (t *Timings) Mean(label string) (time.Duration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	s := t.samples[label]
	if len(s) == 0 {
		return 0, false
	}
	var total time.Duration
	for _, d := range s {
		total += d
	}
	return total / time.Duration(len(s)), true
}

// Speedup returns how many times faster label b ran than label a, using the
// most recent sample of each.
func (t *Timings) Speedup(a, b string) (float64, error) {
	da, okA := t.Last(a)
	db, okB := t.Last(b)
	if !okA || !okB {
		return 0, fmt.Errorf("missing timing samples for %q or %q", a, b)
	}
	if db == 0 {
		return 0, fmt.Errorf("zero duration recorded for %q", b)
	}
	return float64(da) / float64(db), nil
}

// Labels returns all labels in first-seen order.
func (t *Timings) Labels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]string, len(t.order))
	copy(out, t.order)
	return out
}

// Summary renders one line per label with sample count and mean duration,
// sorted by label for stable output.
func (t *Timings) Summary() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()

	labels := make([]string, 0, len(t.samples))
	for label := range t.samples {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	lines := make([]string, 0, len(labels))
	for _, label := range labels {
		s := t.samples[label]
		var total time.Duration
		for _, d := range s {
			total += d
		}
		mean := total / time.Duration(len(s))
		lines = append(lines, fmt.Sprintf("%-24s n=%d mean=%s", label, len(s), mean))
	}
	return lines
}
