package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
)

// PromSink records planning runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  prometheus.Histogram
	nodes     prometheus.Counter
	objective prometheus.Gauge
	cost      prometheus.Gauge
	pm        *prometheus.GaugeVec
	water     *prometheus.GaugeVec
	incumbent prometheus.Gauge

	gatherer prometheus.Gatherer
	textfile string
}

// PromOptions configure a PromSink.
type PromOptions struct {
	// Namespace prefixes every metric name; it defaults to "dustplan".
	Namespace string `json:"namespace"`
	// Textfile, when set, is rewritten after every run in the node_exporter
	// textfile collector format.
	Textfile string `json:"textfile"`
}

// NewPromSink registers planning metrics on the default Prometheus registerer.
// The Prometheus server should be started separately with StartPromServer.
func NewPromSink(opts PromOptions) (*PromSink, error) {
	return NewPromSinkWithRegistry(opts, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(opts PromOptions, reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	ns := opts.Namespace
	if ns == "" {
		ns = "dustplan"
	}
	s := &PromSink{textfile: opts.Textfile, gatherer: prometheus.DefaultGatherer}
	if g, ok := reg.(prometheus.Gatherer); ok {
		s.gatherer = g
	}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: ns, Name: "runs_total",
		Help: "Planning runs by solver status",
	}, []string{"status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: ns, Name: "solve_duration_seconds",
		Help:    "Wall time spent in the solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
	})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: ns, Name: "search_nodes_total",
		Help: "Branch-and-bound nodes explored",
	})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "plan_objective",
		Help: "Cumulative PM of the last readable plan",
	})); err != nil {
		return nil, err
	}
	if s.cost, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "plan_cost",
		Help: "Total cost of the last readable plan",
	})); err != nil {
		return nil, err
	}
	if s.pm, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: "site_pm",
		Help: "Planned PM concentration per site and month",
	}, []string{"site", "month"})); err != nil {
		return nil, err
	}
	if s.water, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: ns, Name: "site_water_tonnes",
		Help: "Planned water application per site and month",
	}, []string{"site", "month"})); err != nil {
		return nil, err
	}
	if s.incumbent, err = register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: ns, Name: "search_incumbent",
		Help: "Objective of the best solution found by the running search",
	})); err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing a collector registered earlier under the
// same descriptor.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) (T, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(T); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordRun updates the run counters and, when a plan is attached, the plan
// gauges.
func (s *PromSink) RecordRun(res coremetrics.RunResult) error {
	s.runs.WithLabelValues(res.Status.String()).Inc()
	s.duration.Observe(res.Duration.Seconds())
	s.nodes.Add(float64(res.Nodes))
	if p := res.Plan; p != nil {
		s.objective.Set(p.Objective)
		s.cost.Set(p.TotalCost)
		for _, sm := range p.Sites {
			month := strconv.Itoa(sm.Period)
			s.pm.WithLabelValues(sm.Site, month).Set(sm.PM)
			s.water.WithLabelValues(sm.Site, month).Set(sm.Water)
		}
	}
	if s.textfile != "" {
		return prometheus.WriteToTextfile(s.textfile, s.gatherer)
	}
	return nil
}

// RecordProgress tracks the incumbent of the running search.
func (s *PromSink) RecordProgress(p milp.Progress) error {
	if p.HasIncumbent {
		s.incumbent.Set(p.Incumbent)
	}
	return nil
}
