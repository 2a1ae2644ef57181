package report

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/core/formulation"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params/paramstest"
)

// solved returns the one-site, two-month model with 50 t of water and
// maintenance in the first month.
func solved(t *testing.T, status milp.Status) (*formulation.Model, *milp.Solution) {
	t.Helper()
	m, err := formulation.Build(paramstest.MustBuild(paramstest.Single(2)))
	require.NoError(t, err)
	c := m.Catalog
	values := make([]float64, m.Problem.NumVars())
	set := func(v milp.Var, x float64) { values[v.Index()] = x }
	set(c.WaterApplied("R1", 0), 50)
	set(c.WaterActive("R1", 0), 1)
	set(c.MaintenanceActive("R1", 0), 1)
	set(c.PM("R1", 0), 7)
	set(c.PM("R1", 1), 9)
	set(c.Flow(model.Arc{From: "F1", To: "N1"}, 0), 50)
	set(c.Flow(model.Arc{From: "N1", To: "R1"}, 0), 50)
	set(c.SourceInventory("F1", 0), 1000)
	set(c.SourceInventory("F1", 1), 1100)
	set(c.CoverWater("R1", 1), -1e-12)
	sol := milp.NewSolution(status, 16, values)
	sol.Bound = 15
	return m, sol
}

func TestExtract_Optimal(t *testing.T) {
	m, sol := solved(t, milp.StatusOptimal)
	plan, err := Extract(m, sol, false)
	require.NoError(t, err)

	assert.True(t, plan.Proven)
	assert.Equal(t, "OPTIMAL", plan.Status)
	want := []SiteMonth{
		{Site: "R1", Period: 0, PM: 7, Water: 50, WaterActive: true, Maintenance: true, Cost: 50*1 + 3},
		{Site: "R1", Period: 1, PM: 9},
	}
	if diff := cmp.Diff(want, plan.Sites); diff != "" {
		t.Fatalf("site rows mismatch (-want +got):\n%s", diff)
	}
	require.Len(t, plan.Flows, 4)
	assert.Equal(t, model.Arc{From: "F1", To: "N1"}, plan.Flows[0].Arc())
	assert.InDelta(t, 53+5*50+5*50, plan.TotalCost, 1e-9)
	assert.Equal(t, []SourceMonth{{"F1", 0, 1000}, {"F1", 1, 1100}}, plan.Sources)

	totals := plan.SiteTotals()
	assert.Equal(t, SiteTotal{PM: 16, Water: 50, Cost: 53, Maintenances: 1}, totals["R1"])
	assert.Len(t, plan.Site("R1"), 2)
}

func TestExtract_Statuses(t *testing.T) {
	m, _ := formulation.Build(paramstest.MustBuild(paramstest.Single(2)))
	cases := []struct {
		name string
		sol  *milp.Solution
		want error
	}{
		{"infeasible", milp.NewSolution(milp.StatusInfeasible, 0, nil), milp.ErrInfeasible},
		{"unbounded", milp.NewSolution(milp.StatusUnbounded, 0, nil), milp.ErrUnbounded},
		{"time limit without incumbent", milp.NewSolution(milp.StatusTimeLimit, 0, nil), milp.ErrTimeLimit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Extract(m, tc.sol, true)
			assert.True(t, errors.Is(err, tc.want), "got %v", err)
		})
	}
}

func TestExtract_TimeLimitPolicy(t *testing.T) {
	m, sol := solved(t, milp.StatusTimeLimit)
	_, err := Extract(m, sol, false)
	assert.True(t, errors.Is(err, milp.ErrTimeLimit))

	plan, err := Extract(m, sol, true)
	require.NoError(t, err)
	assert.False(t, plan.Proven)
	assert.Equal(t, 15.0, plan.Bound)
}

func TestWriteText(t *testing.T) {
	m, sol := solved(t, milp.StatusOptimal)
	plan, err := Extract(m, sol, false)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteText(&buf, plan))
	want := "Optimal objective value: 16\n" +
		"Site R1, Month 0, PM = 7.00, water = 50.00\n" +
		"Site R1, Month 1, PM = 9.00, water = 0.00\n"
	assert.Equal(t, want, buf.String())

	plan.Proven = false
	plan.Status = "TIME_LIMIT"
	buf.Reset()
	require.NoError(t, WriteText(&buf, plan))
	assert.Contains(t, buf.String(), "Best objective value (TIME_LIMIT, not proven optimal): 16\n")
}
