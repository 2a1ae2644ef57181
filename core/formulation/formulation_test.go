package formulation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params"
	"github.com/kilianp07/dustplan/core/params/paramstest"
)

var (
	arcIn  = model.Arc{From: "F1", To: "N1"}
	arcOut = model.Arc{From: "N1", To: "R1"}
)

// assignment builds a full value vector from per-variable settings; unset
// variables stay at zero.
type assignment struct {
	m      *Model
	values []float64
}

func newAssignment(m *Model) *assignment {
	return &assignment{m: m, values: make([]float64, m.Problem.NumVars())}
}

func (a *assignment) set(v milp.Var, x float64) *assignment {
	a.values[v.Index()] = x
	return a
}

func violated(vs []milp.Violation) []string {
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		out = append(out, v.Name)
	}
	return out
}

// scenario is one site over two periods: 50 t of water in period 0 under
// maintenance, nothing in period 1, no cover.
func scenario(t *testing.T) (*Model, *assignment) {
	t.Helper()
	m, err := Build(paramstest.MustBuild(paramstest.Single(2)))
	require.NoError(t, err)
	c := m.Catalog
	a := newAssignment(m).
		set(c.WaterApplied("R1", 0), 50).
		set(c.WaterActive("R1", 0), 1).
		set(c.MaintenanceActive("R1", 0), 1).
		set(c.PM("R1", 0), 7).
		set(c.PM("R1", 1), 9).
		set(c.Flow(arcIn, 0), 50).
		set(c.Flow(arcOut, 0), 50).
		set(c.SourceInventory("F1", 0), 1000).
		set(c.SourceInventory("F1", 1), 1100)
	return m, a
}

func TestBuild_Sizes(t *testing.T) {
	m, err := Build(paramstest.MustBuild(paramstest.Single(2)))
	require.NoError(t, err)
	s := m.Problem.Stats()
	assert.Equal(t, 24, m.Catalog.Len())
	assert.Equal(t, 10, s.Binary)
	assert.Equal(t, 14, s.Continuous)

	want := map[string]int{
		"R1": 4, "R2": 2, "R3": 4, "R4": 4, "R5": 2, "R6": 2, "R7": 2, "R8": 2, "R9": 2,
		"R10": 2, "R11": 7, "R12": 1, "R13": 2, "R14": 1, "R15": 1, "R16": 2, "R17": 2, "R18": 4,
	}
	assert.Equal(t, want, s.ByFamily)
	assert.Len(t, s.Families(), len(Families))
}

func TestBuild_UniqueNames(t *testing.T) {
	m, err := Build(paramstest.MustBuild(paramstest.Single(3)))
	require.NoError(t, err)
	seen := map[string]bool{}
	for i := 0; i < m.Problem.NumVars(); i++ {
		n := m.Problem.VarAt(i).Name
		assert.False(t, seen[n], "duplicate %s", n)
		seen[n] = true
	}
	v, ok := m.Problem.Lookup("flow[F1->N1,2]")
	require.True(t, ok)
	assert.Equal(t, m.Catalog.Flow(arcIn, 2), v)
}

func TestScenario_PMRecurrence(t *testing.T) {
	m, a := scenario(t)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))
	assert.InDelta(t, 16.0, m.Problem.Objective().Eval(a.values), 1e-12)

	a.set(m.Catalog.PM("R1", 1), 9.5)
	assert.Equal(t, []string{"R5[R1,1]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestWaterActivation(t *testing.T) {
	m, a := scenario(t)
	c := m.Catalog
	// Water without the activation flag.
	a.set(c.WaterActive("R1", 0), 0)
	assert.Contains(t, violated(m.Problem.Check(a.values, 1e-9)), "R1[R1,0,max]")

	// Active flag with less than the effective dose.
	m, a = scenario(t)
	a.set(c.WaterActive("R1", 1), 1)
	assert.Contains(t, violated(m.Problem.Check(a.values, 1e-9)), "R1[R1,1,min]")
}

func TestMaintenanceCadence(t *testing.T) {
	in := paramstest.Single(6)
	in.MaintenanceMaxGap = 3
	m, err := Build(paramstest.MustBuild(in))
	require.NoError(t, err)
	vs := m.Problem.Check(make([]float64, m.Problem.NumVars()), 1e-9)
	names := violated(vs)
	for _, want := range []string{"R9[R1,0]", "R9[R1,2]", "R9[R1,5]"} {
		assert.Contains(t, names, want)
	}

	// Maintenance at 0 and 3 covers every window of three periods.
	a := newAssignment(m)
	a.set(m.Catalog.MaintenanceActive("R1", 0), 1).set(m.Catalog.MaintenanceActive("R1", 3), 1)
	for _, v := range violated(m.Problem.Check(a.values, 1e-9)) {
		assert.NotContains(t, v, "R9[")
	}
	a.set(m.Catalog.MaintenanceActive("R1", 3), 0)
	assert.Contains(t, violated(m.Problem.Check(a.values, 1e-9)), "R9[R1,3]")
}

func coverViolations(m *Model, installs, present []float64) []string {
	a := newAssignment(m)
	for t := range installs {
		a.set(m.Catalog.CoverInstalled("R1", t), installs[t])
		a.set(m.Catalog.CoverPresent("R1", t), present[t])
	}
	var out []string
	for _, v := range m.Problem.Check(a.values, 1e-9) {
		if len(v.Name) > 4 && v.Name[:4] == "R11[" {
			out = append(out, v.Name)
		}
	}
	return out
}

func TestCoverPresence(t *testing.T) {
	m, err := BuildFamilies(paramstest.MustBuild(paramstest.Single(6)), []ConstraintFamily{Families[10]})
	require.NoError(t, err)

	assert.Empty(t, coverViolations(m, []float64{0, 1, 0, 0, 0, 0}, []float64{0, 1, 1, 1, 0, 0}))
	// Truncated at the horizon end.
	assert.Empty(t, coverViolations(m, []float64{0, 0, 0, 0, 1, 0}, []float64{0, 0, 0, 0, 1, 1}))
	// Presence ending early.
	assert.Equal(t, []string{"R11[R1,3,from1]"}, coverViolations(m, []float64{0, 1, 0, 0, 0, 0}, []float64{0, 1, 1, 0, 0, 0}))
	// Presence lingering without an install.
	assert.Equal(t, []string{"R11[R1,4,recent]"}, coverViolations(m, []float64{0, 1, 0, 0, 0, 0}, []float64{0, 1, 1, 1, 1, 0}))
	// Second install inside the window.
	assert.Contains(t, coverViolations(m, []float64{1, 0, 1, 0, 0, 0}, []float64{1, 1, 1, 1, 1, 0}), "R11[R1,0,single]")
	// Back-to-back installs one window apart are allowed.
	assert.Empty(t, coverViolations(m, []float64{1, 0, 0, 1, 0, 0}, []float64{1, 1, 1, 1, 1, 1}))
}

func TestCoverResilience(t *testing.T) {
	in := paramstest.Single(4)
	in.CoverDuration["R1"] = 4
	in.CoverWaterGrace = 2
	m, err := BuildFamilies(paramstest.MustBuild(in), []ConstraintFamily{Families[2]})
	require.NoError(t, err)
	c := m.Catalog

	a := newAssignment(m)
	for tt := 0; tt < 4; tt++ {
		a.set(c.CoverPresent("R1", tt), 1)
	}
	// Never watered: every full window of two present periods fails.
	assert.Equal(t, []string{"R3[R1,0,window]", "R3[R1,1,window]", "R3[R1,2,window]"}, violated(m.Problem.Check(a.values, 1e-9)))

	// Watering every other period satisfies the grace window.
	a.set(c.CoverWater("R1", 1), 40).set(c.CoverResilient("R1", 1), 1)
	a.set(c.CoverWater("R1", 3), 40).set(c.CoverResilient("R1", 3), 1)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))

	// rr cannot claim a requirement that was not met.
	a.set(c.CoverWater("R1", 3), 20)
	assert.Equal(t, []string{"R3[R1,3,watered]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestEffectiveReduction(t *testing.T) {
	m, err := BuildFamilies(paramstest.MustBuild(paramstest.Single(1)), []ConstraintFamily{Families[3]})
	require.NoError(t, err)
	c := m.Catalog
	a := newAssignment(m)
	a.set(c.CoverPresent("R1", 0), 1).set(c.CoverWater("R1", 0), 20).set(c.EffectiveCoverReduction("R1", 0), 2.5)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))
	a.set(c.EffectiveCoverReduction("R1", 0), 3)
	assert.Equal(t, []string{"R4[R1,0,water]"}, violated(m.Problem.Check(a.values, 1e-9)))
	a.set(c.CoverPresent("R1", 0), 0).set(c.CoverWater("R1", 0), 0).set(c.EffectiveCoverReduction("R1", 0), 0.1)
	assert.ElementsMatch(t, []string{"R4[R1,0,water]", "R4[R1,0,present]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestNetworkFamilies(t *testing.T) {
	m, a := scenario(t)
	c := m.Catalog

	// Unbalanced intermediate node.
	a.set(c.Flow(arcIn, 0), 60)
	assert.Equal(t, []string{"R13[N1,0]"}, violated(m.Problem.Check(a.values, 1e-9)))

	// Extraction above the period 0 inflow, even though demand is met.
	m, a = scenario(t)
	a.set(c.WaterApplied("R1", 0), 200)
	a.set(c.Flow(arcIn, 0), 200).set(c.Flow(arcOut, 0), 200)
	got := violated(m.Problem.Check(a.values, 1e-9))
	assert.Contains(t, got, "R16[F1,0]")
	assert.NotContains(t, got, "R17[R1,0]")

	// Inventory bookkeeping.
	m, a = scenario(t)
	a.set(c.SourceInventory("F1", 1), 1050)
	assert.Equal(t, []string{"R15[F1,1]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestSitePMCeiling(t *testing.T) {
	m, err := BuildFamilies(paramstest.MustBuild(paramstest.Single(2)), []ConstraintFamily{Families[5]})
	require.NoError(t, err)
	a := newAssignment(m)
	a.set(m.Catalog.PM("R1", 0), 25).set(m.Catalog.PM("R1", 1), 25)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))
	a.set(m.Catalog.PM("R1", 1), 25.5)
	assert.Equal(t, []string{"R6[R1,1]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestMaintenanceWater(t *testing.T) {
	in := paramstest.Single(2)
	in.MaintenanceMinWater["R1"] = 60
	m, err := Build(paramstest.MustBuild(in))
	require.NoError(t, err)
	// The scenario applies 50 t under maintenance.
	_, a := scenario(t)
	assert.Equal(t, []string{"R8[R1,0]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestInstallRequiresMaintenance(t *testing.T) {
	m, err := BuildFamilies(paramstest.MustBuild(paramstest.Single(2)), []ConstraintFamily{Families[9]})
	require.NoError(t, err)
	c := m.Catalog
	a := newAssignment(m)
	a.set(c.MaintenanceActive("R1", 0), 1).set(c.CoverInstalled("R1", 0), 1)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))
	a.set(c.CoverInstalled("R1", 1), 1)
	assert.Equal(t, []string{"R10[R1,1]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestSourceInitial(t *testing.T) {
	m, a := scenario(t)
	c := m.Catalog
	// Shifting both inventories keeps the balance but not the opening stock.
	a.set(c.SourceInventory("F1", 0), 900).set(c.SourceInventory("F1", 1), 1000)
	assert.Equal(t, []string{"R14[F1,0]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestArcCapacity(t *testing.T) {
	in := paramstest.Single(2)
	in.ArcCapacity[arcIn] = 40
	m, err := Build(paramstest.MustBuild(in))
	require.NoError(t, err)
	// The scenario routes 50 t over both arcs in period 0.
	_, a := scenario(t)
	assert.Equal(t, []string{"R18[F1->N1,0]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestBudget(t *testing.T) {
	in := paramstest.Single(2)
	in.Budget = 500
	m, err := Build(paramstest.MustBuild(in))
	require.NoError(t, err)
	_, a := scenario(t)
	// 50 water + 3 maintenance + 2 arcs × 50 t × 5 = 553.
	assert.Equal(t, []string{"R12"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestFleetCeiling(t *testing.T) {
	in := paramstest.Uniform(paramstest.ReferenceNetwork(), model.NewHorizon(1), paramstest.Reference())
	m, err := BuildFamilies(paramstest.MustBuild(in), []ConstraintFamily{Families[6]})
	require.NoError(t, err)
	a := newAssignment(m)
	a.set(m.Catalog.PM("R1", 0), 25).set(m.Catalog.PM("R2", 0), 25).set(m.Catalog.PM("R3", 0), 10)
	assert.Empty(t, m.Problem.Check(a.values, 1e-9))
	a.set(m.Catalog.PM("R3", 0), 11)
	assert.Equal(t, []string{"R7[0]"}, violated(m.Problem.Check(a.values, 1e-9)))
}

func TestBuild_UnknownVariable(t *testing.T) {
	bad := ConstraintFamily{ID: "RX", Name: "bad", Emit: func(p *params.Set, c *Catalog) []milp.Constraint {
		return []milp.Constraint{milp.LE("RX", milp.Sum(c.PM("R9", 0)), 1)}
	}}
	_, err := BuildFamilies(paramstest.MustBuild(paramstest.Single(1)), []ConstraintFamily{bad})
	require.Error(t, err)
	assert.True(t, errors.Is(err, milp.ErrUnknownVariable))
	assert.Contains(t, err.Error(), "PM[R9,0]")
}
