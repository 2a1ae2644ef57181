// Package runlog persists one record per planning run and queries them back.
// Records are stored either as JSON lines, optionally rotated, or in a
// SQLite table; the backend is chosen by name through Open.
package runlog

import (
	"context"
	"math"
	"time"

	"github.com/kilianp07/dustplan/core/factory"
	"github.com/kilianp07/dustplan/core/report"
)

// RunRecord captures the outcome of one solve.
type RunRecord struct {
	ID         string                      `json:"id"`
	Timestamp  time.Time                   `json:"timestamp"`
	Status     string                      `json:"status"`
	Objective  float64                     `json:"objective"`
	Bound      float64                     `json:"bound"`
	DurationMS int64                       `json:"duration_ms"`
	Nodes      int                         `json:"nodes"`
	Periods    int                         `json:"periods"`
	TotalCost  float64                     `json:"total_cost"`
	Sites      map[string]report.SiteTotal `json:"sites,omitempty"`
	Error      string                      `json:"error,omitempty"`
}

// Normalize replaces non-finite numbers, which JSON cannot encode, with zero.
func (r *RunRecord) Normalize() {
	for _, f := range []*float64{&r.Objective, &r.Bound, &r.TotalCost} {
		if math.IsNaN(*f) || math.IsInf(*f, 0) {
			*f = 0
		}
	}
}

// Query filters records. Zero fields match everything.
type Query struct {
	Start  time.Time
	End    time.Time
	Status string
}

func (q Query) match(r RunRecord) bool {
	if !q.Start.IsZero() && r.Timestamp.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Timestamp.After(q.End) {
		return false
	}
	return q.Status == "" || r.Status == q.Status
}

// Store persists RunRecords and supports querying.
type Store interface {
	Append(ctx context.Context, rec RunRecord) error
	Query(ctx context.Context, q Query) ([]RunRecord, error)
	Close() error
}

// Options configure the built-in backends.
type Options struct {
	Path       string `json:"path"`
	MaxSizeMB  int    `json:"max_size_mb"`
	MaxBackups int    `json:"max_backups"`
	MaxAgeDays int    `json:"max_age_days"`
}

var backends = factory.NewRegistry[Store]()

func init() {
	_ = backends.Register("jsonl", func(conf map[string]any) (Store, error) {
		var o Options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		if o.MaxSizeMB > 0 {
			return NewRotatingJSONLStore(o.Path, o.MaxSizeMB, o.MaxBackups, o.MaxAgeDays)
		}
		return NewJSONLStore(o.Path)
	})
	_ = backends.Register("sqlite", func(conf map[string]any) (Store, error) {
		var o Options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		return NewSQLiteStore(o.Path)
	})
}

// Open creates the store described by cfg.
func Open(cfg factory.ModuleConfig) (Store, error) {
	return backends.Create(cfg)
}
