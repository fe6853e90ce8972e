package materialize

import "testing"

func TestCommitMetricsTracksObservationCount(t *testing.T) {
	m := NewCommitMetrics()
	if m.Commits() != 0 {
		t.Fatalf("expected a fresh tracker to report 0 commits, got %d", m.Commits())
	}

	m.Observe(10)
	m.Observe(20)
	m.Observe(30)

	if m.Commits() != 3 {
		t.Errorf("expected 3 commits recorded, got %d", m.Commits())
	}
	if m.AverageMillis() <= 0 {
		t.Errorf("expected a positive smoothed average after observations, got %f", m.AverageMillis())
	}
}
