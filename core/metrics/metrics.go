package metrics

import (
	"time"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/report"
)

// RunResult is the outcome of one planning run to be recorded.
type RunResult struct {
	RunID     string
	Time      time.Time
	Status    milp.Status
	Objective float64
	Bound     float64
	Duration  time.Duration
	Nodes     int
	// Plan is nil when the run produced no readable solution.
	Plan *report.Plan
}

// MetricsSink records planning runs for observability purposes.
type MetricsSink interface {
	RecordRun(res RunResult) error
}

// ProgressRecorder records solver progress while a search is running.
type ProgressRecorder interface {
	RecordProgress(p milp.Progress) error
}

// NopSink implements MetricsSink with no-op methods.
type NopSink struct{}

func (NopSink) RecordRun(RunResult) error          { return nil }
func (NopSink) RecordProgress(milp.Progress) error { return nil }

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordRun forwards the record to all sinks and returns the first error
// encountered after trying every sink.
func (m *MultiSink) RecordRun(res RunResult) error {
	var first error
	for _, s := range m.Sinks {
		if err := s.RecordRun(res); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// RecordProgress forwards progress to the sinks that support it.
func (m *MultiSink) RecordProgress(p milp.Progress) error {
	var first error
	for _, s := range m.Sinks {
		if rec, ok := s.(ProgressRecorder); ok {
			if err := rec.RecordProgress(p); err != nil && first == nil {
				first = err
			}
		}
	}
	return first
}
