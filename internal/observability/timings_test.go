package observability

import (
	"strings"
	"testing"
	"time"
)

func TestTimings_RecordAndLast(t *testing.T) {
	tr := NewTimings()

	tr.Record("q4-uncached", 100*time.Millisecond)
	tr.Record("q4-uncached", 80*time.Millisecond)

	last, ok := tr.Last("q4-uncached")
	if !ok {
		t.Fatal("expected a sample")
	}
	if last != 80*time.Millisecond {
		t.Errorf("got %s, want the most recent sample", last)
	}

	if _, ok := tr.Last("missing"); ok {
		t.Error("expected no sample for unknown label")
	}
}

func TestTimings_Mean(t *testing.T) {
	tr := NewTimings()
	tr.Record("q1", 10*time.Millisecond)
	tr.Record("q1", 30*time.Millisecond)

	mean, ok := tr.Mean("q1")
	if !ok || mean != 20*time.Millisecond {
		t.Errorf("got %s, want 20ms", mean)
	}
}

func TestTimings_Speedup(t *testing.T) {
	tr := NewTimings()
	tr.Record("uncached", 200*time.Millisecond)
	tr.Record("cached", 50*time.Millisecond)

	speedup, err := tr.Speedup("uncached", "cached")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if speedup != 4.0 {
		t.Errorf("got speedup %v, want 4.0", speedup)
	}

	if _, err := tr.Speedup("uncached", "missing"); err == nil {
		t.Error("expected error for missing label")
	}
}

func TestTimings_LabelsPreserveOrder(t *testing.T) {
	tr := NewTimings()
	tr.Record("b", time.Millisecond)
	tr.Record("a", time.Millisecond)
	tr.Record("b", time.Millisecond)

	labels := tr.Labels()
	if len(labels) != 2 || labels[0] != "b" || labels[1] != "a" {
		t.Errorf("got %v, want first-seen order [b a]", labels)
	}
}

func TestTimings_Summary(t *testing.T) {
	tr := NewTimings()
	tr.Record("q1", 10*time.Millisecond)
	tr.Record("q1", 20*time.Millisecond)

	lines := tr.Summary()
	if len(lines) != 1 {
		t.Fatalf("expected one summary line, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "n=2") {
		t.Errorf("summary missing sample count: %q", lines[0])
	}
}
