package materialize

import "github.com/VividCortex/ewma"

// CommitMetrics tracks how long successive Commit calls take, smoothed so
// a single slow migration (e.g. one with an unusually large replay-path
// tree) doesn't dominate the reported trend the way a raw last-value
// gauge would.
type CommitMetrics struct {
	avgMillis ewma.MovingAverage
	sumMillis float64
	commits   int
}

// NewCommitMetrics creates a tracker with a 5-sample moving average,
// matching the smoothing window used elsewhere in the ambient stack for
// throughput gauges.
func NewCommitMetrics() *CommitMetrics {
	return &CommitMetrics{avgMillis: ewma.NewMovingAverage(5)}
}

// Observe records one Commit call's wall-clock duration in milliseconds.
func (m *CommitMetrics) Observe(millis float64) {
	m.avgMillis.Add(millis)
	m.sumMillis += millis
	m.commits++
}

// AverageMillis returns the current smoothed commit duration. The ewma
// package's 5-sample average reports 0 until it has seen more than 10
// samples; until then this returns the plain mean of the durations
// observed so far (0 before the first one).
func (m *CommitMetrics) AverageMillis() float64 {
	if m.commits > 10 {
		return m.avgMillis.Value()
	}
	if m.commits == 0 {
		return 0
	}
	return m.sumMillis / float64(m.commits)
}

// Commits returns the number of Commit calls observed so far.
func (m *CommitMetrics) Commits() int { return m.commits }
