package solver

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/core/formulation"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params/paramstest"
)

func free(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = math.NaN()
	}
	return v
}

func TestDust_FixedWaterNoCover(t *testing.T) {
	m, err := formulation.Build(paramstest.MustBuild(paramstest.Single(2)))
	require.NoError(t, err)
	c := m.Catalog
	fix := free(m.Problem.NumVars())
	fix[c.WaterApplied("R1", 0).Index()] = 50
	fix[c.WaterApplied("R1", 1).Index()] = 0
	fix[c.CoverInstalled("R1", 0).Index()] = 0
	fix[c.CoverInstalled("R1", 1).Index()] = 0
	p, err := m.Problem.WithFixed(fix)
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 7.0, sol.Value(c.PM("R1", 0)), 1e-6)
	assert.InDelta(t, 9.0, sol.Value(c.PM("R1", 1)), 1e-6)
	assert.InDelta(t, 16.0, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Value(c.MaintenanceActive("R1", 0)), 1e-9)
}

func TestDust_Infeasible(t *testing.T) {
	in := paramstest.Single(1)
	for k := range in.PMMax {
		in.PMMax[k] = 1
	}
	in.MaxWater["R1"] = 50
	m, err := formulation.Build(paramstest.MustBuild(in))
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), m.Problem, milp.SolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
}

func TestDust_OptimumAndRoundTrip(t *testing.T) {
	m, err := formulation.Build(paramstest.MustBuild(paramstest.Single(2)))
	require.NoError(t, err)
	s := newSolver()

	sol, err := s.Solve(context.Background(), m.Problem, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.Empty(t, m.Problem.Check(sol.Values(), 1e-5))

	// Maintenance is forced in the first period and requires its water dose.
	assert.InDelta(t, 1, sol.Value(m.Catalog.MaintenanceActive("R1", 0)), 1e-9)
	assert.GreaterOrEqual(t, sol.Value(m.Catalog.WaterApplied("R1", 0)), 50-1e-6)
	// Period 0 extraction is capped by the period 0 inflow.
	assert.LessOrEqual(t, sol.Value(m.Catalog.WaterApplied("R1", 0)), 100+1e-6)

	fixed, err := m.Problem.WithFixed(sol.Values())
	require.NoError(t, err)
	again, err := s.Solve(context.Background(), fixed, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, again.Status)
	assert.InDelta(t, sol.Objective, again.Objective, 1e-6)
	assert.Equal(t, 1, again.Nodes)
}

func referenceModel(t *testing.T, periods int) *formulation.Model {
	t.Helper()
	in := paramstest.Uniform(paramstest.ReferenceNetwork(), model.NewHorizon(periods), paramstest.Reference())
	m, err := formulation.Build(paramstest.MustBuild(in))
	require.NoError(t, err)
	return m
}

func TestDust_ReferenceNetwork(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-site search")
	}
	m := referenceModel(t, 3)
	sol, err := newSolver().Solve(context.Background(), m.Problem, milp.SolveOptions{TimeLimit: time.Minute})
	require.NoError(t, err)
	require.Contains(t, []milp.Status{milp.StatusOptimal, milp.StatusTimeLimit}, sol.Status)
	require.True(t, sol.HasValues(), "an incumbent is found on the reference network")
	assert.Empty(t, m.Problem.Check(sol.Values(), 1e-5))
	assert.InDelta(t, m.Problem.Objective().Eval(sol.Values()), sol.Objective, 1e-6)
	assert.LessOrEqual(t, sol.Bound, sol.Objective+1e-6)

	// The objective covers every site of the network.
	total := 0.0
	for _, site := range []string{"R1", "R2", "R3"} {
		for p := 0; p < 3; p++ {
			total += sol.Value(m.Catalog.PM(site, p))
		}
	}
	assert.InDelta(t, total, sol.Objective, 1e-6)
}

func TestDust_TimeLimitHonoured(t *testing.T) {
	if testing.Short() {
		t.Skip("multi-site search")
	}
	m := referenceModel(t, 6)
	limit := 200 * time.Millisecond
	start := time.Now()
	sol, err := newSolver().Solve(context.Background(), m.Problem, milp.SolveOptions{TimeLimit: limit})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), limit+5*time.Second)
	if sol.Status == milp.StatusTimeLimit && sol.HasValues() {
		assert.Empty(t, m.Problem.Check(sol.Values(), 1e-5))
	}
}
