package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/config"
	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/runlog"
	"github.com/kilianp07/dustplan/infra/mqtt"
)

// singleSite is the reference values on one site fed by one source over
// two months.
func singleSite(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.Default()
	p := &cfg.Planning
	p.Months = 2
	p.Sites = []string{"R1"}
	p.Sources = []string{"F1"}
	p.Intermediate = []string{"N1"}
	p.Arcs = []config.ArcConfig{p.Arcs[0], p.Arcs[0]}
	p.Arcs[1].From, p.Arcs[1].To = "N1", "R1"
	cfg.Logging.Path = filepath.Join(t.TempDir(), "runs.jsonl")
	return cfg
}

type countingSink struct{ runs []coremetrics.RunResult }

func (c *countingSink) RecordRun(r coremetrics.RunResult) error {
	c.runs = append(c.runs, r)
	return nil
}

type stubSolver struct {
	unavailable error
	sol         *milp.Solution
}

func (s stubSolver) Available() error { return s.unavailable }
func (s stubSolver) Solve(context.Context, *milp.Problem, milp.SolveOptions) (*milp.Solution, error) {
	return s.sol, nil
}

func TestPlan_EndToEnd(t *testing.T) {
	cfg := singleSite(t)
	sink := &countingSink{}
	pub := mqtt.NewMockPublisher()
	svc, err := New(cfg, WithSink(sink), WithPublisher(pub))
	require.NoError(t, err)

	out := filepath.Join(t.TempDir(), "plan.csv")
	res, err := svc.Plan(context.Background(), RunOptions{Verify: true, ExportPath: out})
	require.NoError(t, err)
	require.NotNil(t, res.Plan)
	assert.Equal(t, "OPTIMAL", res.Plan.Status)
	assert.True(t, res.Plan.Proven)
	assert.Len(t, res.Plan.Sites, 2)
	assert.True(t, res.Plan.Sites[0].Maintenance)

	_, err = os.Stat(out)
	assert.NoError(t, err)
	assert.Equal(t, 1, pub.Count())
	require.Len(t, sink.runs, 1)
	assert.Equal(t, res.RunID, sink.runs[0].RunID)

	runs, err := svc.Runs(context.Background(), runlog.Query{Status: "OPTIMAL"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, res.RunID, runs[0].ID)
	assert.Equal(t, 2, runs[0].Periods)
	assert.Contains(t, runs[0].Sites, "R1")

	require.NoError(t, svc.Close())
	assert.True(t, pub.Closed)
}

func TestPlan_Infeasible(t *testing.T) {
	cfg := singleSite(t)
	one := 1.0
	cfg.Planning.PMMax.Default = &one
	cfg.Planning.MaxWater = config.Uniform(50.0)
	cfg.Planning.Months = 1
	svc, err := New(cfg, WithPublisher(mqtt.NewMockPublisher()))
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Plan(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, milp.ErrInfeasible)
	assert.Nil(t, res.Plan)

	runs, err := svc.Runs(context.Background(), runlog.Query{})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "INFEASIBLE", runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestPlan_SolverUnavailable(t *testing.T) {
	down := errors.New("engine down")
	svc, err := New(singleSite(t), WithSolver(stubSolver{unavailable: down}))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Plan(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, down)
}

func TestPlan_TimeLimitWithoutIncumbent(t *testing.T) {
	cfg := singleSite(t)
	cfg.Solver.AcceptTimeLimit = true
	stub := stubSolver{sol: milp.NewSolution(milp.StatusTimeLimit, 0, nil)}
	svc, err := New(cfg, WithSolver(stub))
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Plan(context.Background(), RunOptions{})
	assert.ErrorIs(t, err, milp.ErrTimeLimit)
}

func TestPlan_ShortAssignment(t *testing.T) {
	stub := stubSolver{sol: milp.NewSolution(milp.StatusOptimal, 0, []float64{1, 2})}
	svc, err := New(singleSite(t), WithSolver(stub), WithPublisher(mqtt.NewMockPublisher()))
	require.NoError(t, err)
	defer svc.Close()

	res, err := svc.Plan(context.Background(), RunOptions{Verify: true})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "2 values for")
	assert.Nil(t, res.Plan)
}

func TestPlan_ConfigurationError(t *testing.T) {
	cfg := singleSite(t)
	cfg.Planning.MaxWater.Default = nil
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Plan(context.Background(), RunOptions{})
	assert.Error(t, err)
	_, err = svc.Build()
	assert.Error(t, err)
}

func TestRuns_Disabled(t *testing.T) {
	cfg := singleSite(t)
	off := false
	cfg.Logging.Enabled = &off
	svc, err := New(cfg)
	require.NoError(t, err)
	defer svc.Close()

	_, err = svc.Runs(context.Background(), runlog.Query{})
	assert.Error(t, err)
}
