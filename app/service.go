// Package app wires configuration, model building, solving and the result
// outlets (run log, metrics, export, MQTT) into a planning service.
package app

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/dustplan/config"
	"github.com/kilianp07/dustplan/core/formulation"
	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
	coremqtt "github.com/kilianp07/dustplan/core/mqtt"
	"github.com/kilianp07/dustplan/core/report"
	"github.com/kilianp07/dustplan/core/runlog"
	"github.com/kilianp07/dustplan/infra/logger"
	"github.com/kilianp07/dustplan/infra/metrics"
	"github.com/kilianp07/dustplan/infra/mqtt"
	"github.com/kilianp07/dustplan/infra/solver"
	"github.com/kilianp07/dustplan/internal/eventbus"
	"github.com/kilianp07/dustplan/pkg/export"
)

// ErrVerification is returned when re-solving with every variable fixed at
// the plan's values does not reproduce the plan.
var ErrVerification = errors.New("plan verification failed")

const verifyTol = 1e-5

// Service plans dust control for the configured instance.
type Service struct {
	cfg       *config.Config
	solver    milp.Solver
	sink      coremetrics.MetricsSink
	store     runlog.Store
	publisher coremqtt.PlanPublisher
	progress  *eventbus.TypedBus[milp.Progress]
	collected <-chan struct{}
	log       logger.Logger
}

// Option overrides a collaborator built from the configuration.
type Option func(*Service)

// WithSolver replaces the branch-and-bound solver.
func WithSolver(s milp.Solver) Option { return func(svc *Service) { svc.solver = s } }

// WithSink replaces the configured metrics sinks.
func WithSink(s coremetrics.MetricsSink) Option { return func(svc *Service) { svc.sink = s } }

// WithStore replaces the configured run log.
func WithStore(s runlog.Store) Option { return func(svc *Service) { svc.store = s } }

// WithPublisher replaces the configured plan publisher.
func WithPublisher(p coremqtt.PlanPublisher) Option {
	return func(svc *Service) { svc.publisher = p }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("nil config")
	}
	svc := &Service{
		cfg:      cfg,
		progress: eventbus.NewTyped[milp.Progress](eventbus.WithBuffer(64)),
		log:      logger.New("service"),
	}
	for _, o := range opts {
		o(svc)
	}
	if svc.solver == nil {
		svc.solver = solver.New(logger.New("solver"), solver.WithProgress(svc.progress))
	}
	if svc.sink == nil {
		sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
		if err != nil {
			return nil, fmt.Errorf("metrics sink: %w", err)
		}
		svc.sink = sink
	}
	if svc.store == nil && cfg.Logging.On() {
		store, err := runlog.Open(cfg.Logging.Module())
		if err != nil {
			return nil, fmt.Errorf("run log: %w", err)
		}
		svc.store = store
	}
	if svc.publisher == nil {
		if cfg.MQTT.Enabled {
			pub, err := mqtt.NewPahoPublisher(cfg.MQTT, logger.New("mqtt_publisher"))
			if err != nil {
				svc.closeStore()
				return nil, fmt.Errorf("mqtt publisher: %w", err)
			}
			svc.publisher = pub
		} else {
			svc.publisher = coremqtt.NopPublisher{}
		}
	}
	if rec, ok := svc.sink.(coremetrics.ProgressRecorder); ok {
		svc.collected = metrics.StartProgressCollector(context.Background(), svc.progress, rec, svc.log)
	}
	return svc, nil
}

// RunOptions adjust a single planning run.
type RunOptions struct {
	// TimeLimit overrides the configured solver time limit when positive.
	TimeLimit time.Duration
	// Verify re-solves with every variable fixed and checks feasibility.
	Verify bool
	// ExportPath overrides the configured export path.
	ExportPath   string
	ExportFormat string
}

// Result is the outcome of a planning run.
type Result struct {
	RunID    string
	Model    *formulation.Model
	Solution *milp.Solution
	// Plan is nil when the solution could not be read.
	Plan *report.Plan
}

// Build validates the configured instance and builds its model without
// solving it.
func (s *Service) Build() (*formulation.Model, error) {
	set, err := s.cfg.Planning.Parameters()
	if err != nil {
		return nil, err
	}
	return formulation.Build(set)
}

// Plan builds, solves and reads the configured instance, then records the
// run and hands the plan to the export and publication outlets. The run is
// recorded even when no plan could be read.
func (s *Service) Plan(ctx context.Context, opts RunOptions) (*Result, error) {
	if err := s.solver.Available(); err != nil {
		return nil, err
	}
	m, err := s.Build()
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: uuid.NewString(), Model: m}
	st := m.Problem.Stats()
	s.log.Infow("model built", map[string]any{
		"run_id":      res.RunID,
		"continuous":  st.Continuous,
		"binary":      st.Binary,
		"constraints": len(m.Problem.Constraints()),
	})

	solveOpts := s.cfg.Solver.Options()
	if opts.TimeLimit > 0 {
		solveOpts.TimeLimit = opts.TimeLimit
	}
	started := time.Now()
	sol, err := s.solver.Solve(ctx, m.Problem, solveOpts)
	if err != nil {
		s.record(ctx, res, started, err)
		return res, fmt.Errorf("solve: %w", err)
	}
	res.Solution = sol
	res.Plan, err = report.Extract(m, sol, s.cfg.Solver.AcceptTimeLimit)
	if err == nil && opts.Verify {
		err = s.verify(ctx, m, sol, solveOpts)
	}
	s.record(ctx, res, started, err)
	if err != nil {
		return res, err
	}
	s.log.Infow("plan ready", map[string]any{
		"run_id":     res.RunID,
		"status":     res.Plan.Status,
		"objective":  res.Plan.Objective,
		"total_cost": res.Plan.TotalCost,
		"nodes":      sol.Nodes,
	})

	if err := s.export(res.Plan, opts); err != nil {
		return res, fmt.Errorf("export: %w", err)
	}
	if err := s.publisher.PublishPlan(ctx, res.RunID, res.Plan); err != nil {
		s.log.Errorf("publish plan %s: %v", res.RunID, err)
	}
	return res, nil
}

// verify checks the assignment against every constraint, then fixes it and
// re-solves; the fixed problem must reproduce the objective.
func (s *Service) verify(ctx context.Context, m *formulation.Model, sol *milp.Solution, opts milp.SolveOptions) error {
	if v := m.Problem.Check(sol.Values(), verifyTol); len(v) > 0 {
		return fmt.Errorf("%w: %d violated constraints, first %s", ErrVerification, len(v), v[0].Name)
	}
	fixed, err := m.Problem.WithFixed(sol.Values())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	again, err := s.solver.Solve(ctx, fixed, opts)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrVerification, err)
	}
	if again.Status != milp.StatusOptimal {
		return fmt.Errorf("%w: fixed problem is %s", ErrVerification, again.Status)
	}
	if math.Abs(again.Objective-sol.Objective) > verifyTol*math.Max(1, math.Abs(sol.Objective)) {
		return fmt.Errorf("%w: objective %g re-solves to %g", ErrVerification, sol.Objective, again.Objective)
	}
	s.log.Debugf("verified plan: objective %g reproduced", again.Objective)
	return nil
}

func (s *Service) record(ctx context.Context, res *Result, started time.Time, runErr error) {
	elapsed := time.Since(started)
	rr := coremetrics.RunResult{
		RunID:    res.RunID,
		Time:     started,
		Duration: elapsed,
		Plan:     res.Plan,
	}
	rec := runlog.RunRecord{
		ID:         res.RunID,
		Timestamp:  started,
		DurationMS: elapsed.Milliseconds(),
		Periods:    len(res.Model.Params.Periods()),
	}
	if sol := res.Solution; sol != nil {
		rr.Status, rr.Objective, rr.Bound, rr.Nodes = sol.Status, sol.Objective, sol.Bound, sol.Nodes
		rec.Status, rec.Objective, rec.Bound, rec.Nodes = sol.Status.String(), sol.Objective, sol.Bound, sol.Nodes
	} else {
		rec.Status = "ERROR"
	}
	if p := res.Plan; p != nil {
		rec.TotalCost = p.TotalCost
		rec.Sites = p.SiteTotals()
	}
	if runErr != nil {
		rec.Error = runErr.Error()
	}
	rec.Normalize()

	if res.Solution != nil {
		if err := s.sink.RecordRun(rr); err != nil {
			s.log.Warnf("record metrics: %v", err)
		}
	}
	if s.store != nil {
		if err := s.store.Append(ctx, rec); err != nil {
			s.log.Warnf("append run log: %v", err)
		}
	}
}

func (s *Service) export(p *report.Plan, opts RunOptions) error {
	path, format := s.cfg.Export.Path, s.cfg.Export.Format
	if opts.ExportPath != "" {
		path, format = opts.ExportPath, opts.ExportFormat
	}
	if path == "" {
		return nil
	}
	f, err := export.FormatFor(format, path)
	if err != nil {
		return err
	}
	if err := export.WriteFile(path, f, p); err != nil {
		return err
	}
	s.log.Infof("plan exported to %s", path)
	return nil
}

// Runs queries the run log.
func (s *Service) Runs(ctx context.Context, q runlog.Query) ([]runlog.RunRecord, error) {
	if s.store == nil {
		return nil, errors.New("run log disabled")
	}
	return s.store.Query(ctx, q)
}

// ServeMetrics exposes Prometheus metrics while ctx is alive when an address
// is configured.
func (s *Service) ServeMetrics(ctx context.Context) {
	addr := s.cfg.Metrics.PrometheusAddr
	if addr == "" {
		return
	}
	go func() {
		if err := metrics.StartPromServer(ctx, addr, s.log); err != nil {
			s.log.Errorf("prom server: %v", err)
		}
	}()
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.progress.Close()
	if s.collected != nil {
		<-s.collected
	}
	s.publisher.Close()
	return s.closeStore()
}

func (s *Service) closeStore() error {
	if s.store == nil {
		return nil
	}
	return s.store.Close()
}
