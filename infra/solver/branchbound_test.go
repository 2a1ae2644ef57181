package solver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/infra/logger"
	"github.com/kilianp07/dustplan/internal/eventbus"
)

// knapsack maximizes 5a + 4b + 3c under 2a + 3b + c ≤ 5 with binary items.
func knapsack(t *testing.T) (*milp.Problem, []milp.Var) {
	t.Helper()
	b := milp.NewBuilder()
	vars := make([]milp.Var, 3)
	for i, n := range []string{"a", "b", "c"} {
		v, err := b.NewVar(n, milp.Binary)
		require.NoError(t, err)
		vars[i] = v
	}
	var w, obj milp.Expr
	w.Add(2, vars[0]).Add(3, vars[1]).Add(1, vars[2])
	obj.Add(-5, vars[0]).Add(-4, vars[1]).Add(-3, vars[2])
	b.Add(milp.LE("weight", w, 5))
	b.Minimize(obj)
	p, err := b.Build()
	require.NoError(t, err)
	return p, vars
}

func newSolver(opts ...Option) *BranchAndBound {
	return New(logger.NopLogger{}, opts...)
}

func TestSolve_Knapsack(t *testing.T) {
	p, vars := knapsack(t)
	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, -9, sol.Objective, 1e-6)
	assert.InDelta(t, 1, sol.Value(vars[0]), 1e-9)
	assert.InDelta(t, 1, sol.Value(vars[1]), 1e-9)
	assert.InDelta(t, 0, sol.Value(vars[2]), 1e-9)
	assert.True(t, sol.Proven())
	assert.Greater(t, sol.Nodes, 1)
}

func TestSolve_ContinuousLP(t *testing.T) {
	b := milp.NewBuilder()
	x, _ := b.NewVar("x", milp.Continuous)
	y, _ := b.NewVar("y", milp.Continuous)
	var e milp.Expr
	e.Add(1, x).Add(2, y)
	b.Add(milp.GE("cover", e, 4), milp.LE("cap", milp.Sum(x), 3))
	b.Minimize(milp.Sum(x, y))
	p, err := b.Build()
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Objective, 1e-6)
	assert.InDelta(t, 2, sol.Value(y), 1e-6)
	assert.Equal(t, 1, sol.Nodes)
}

func TestSolve_IntegerInfeasible(t *testing.T) {
	b := milp.NewBuilder()
	y, _ := b.NewVar("y", milp.Binary)
	var e milp.Expr
	e.Add(2, y)
	b.Add(milp.EQ("half", e, 1))
	b.Minimize(milp.Sum(y))
	p, err := b.Build()
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, sol.Status)
	assert.False(t, sol.HasValues())
	assert.Equal(t, 3, sol.Nodes)
}

func TestSolve_Unbounded(t *testing.T) {
	b := milp.NewBuilder()
	x, _ := b.NewVar("x", milp.Continuous)
	b.Add(milp.GE("floor", milp.Sum(x), 1))
	var obj milp.Expr
	obj.Add(-1, x)
	b.Minimize(obj)
	p, err := b.Build()
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusUnbounded, sol.Status)
	assert.True(t, errors.Is(sol.Status.Err(), milp.ErrUnbounded))
}

func TestSolve_NodeLimit(t *testing.T) {
	p, _ := knapsack(t)
	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{MaxNodes: 1})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusTimeLimit, sol.Status)
	assert.False(t, sol.HasValues())
	assert.InDelta(t, -32.0/3, sol.Bound, 1e-6)
}

func TestSolve_Cancelled(t *testing.T) {
	p, _ := knapsack(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sol, err := newSolver().Solve(ctx, p, milp.SolveOptions{TimeLimit: time.Minute})
	require.NoError(t, err)
	assert.Equal(t, milp.StatusTimeLimit, sol.Status)
	assert.Equal(t, 0, sol.Nodes)
}

func TestSolve_SimplexFailure(t *testing.T) {
	orig := iterationLimit
	t.Cleanup(func() { iterationLimit = orig })
	iterationLimit = func(int, int) int { return 0 }

	p, _ := knapsack(t)
	_, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errIterationLimit))
	assert.True(t, errors.Is(newSolver().Available(), milp.ErrSolverUnavailable))
}

func TestSolve_RoundedPointRejected(t *testing.T) {
	// With a loose integrality tolerance the root value y = 1/3 counts as
	// integral, but rounding it to 0 breaks the cover row.
	b := milp.NewBuilder()
	y, _ := b.NewVar("y", milp.Binary)
	var e milp.Expr
	e.Add(3, y)
	b.Add(milp.GE("cover", e, 1))
	b.Minimize(milp.Sum(y))
	p, err := b.Build()
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{IntegralityTolerance: 0.45})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 1, sol.Value(y), 1e-9)
	assert.InDelta(t, 1, sol.Objective, 1e-9)
	assert.Empty(t, p.Check(sol.Values(), 1e-9))
	assert.Equal(t, 3, sol.Nodes)
}

func TestSolve_DependentRows(t *testing.T) {
	b := milp.NewBuilder()
	x, _ := b.NewVar("x", milp.Continuous)
	y, _ := b.NewVar("y", milp.Continuous)
	z, _ := b.NewVar("z", milp.Binary)
	var twice, obj milp.Expr
	twice.Add(2, x).Add(2, y)
	obj.Add(1, x).Add(2, y).Add(1, z)
	b.Add(
		milp.EQ("sum", milp.Sum(x, y), 1),
		milp.EQ("sum again", milp.Sum(x, y), 1),
		milp.EQ("sum doubled", twice, 2),
		milp.LE("gate", milp.Sum(y, z), 1),
	)
	b.Minimize(obj)
	p, err := b.Build()
	require.NoError(t, err)

	sol, err := newSolver().Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 1, sol.Objective, 1e-9)
	assert.InDelta(t, 1, sol.Value(x), 1e-9)
	assert.Empty(t, p.Check(sol.Values(), 1e-9))
}

func TestAvailable(t *testing.T) {
	assert.NoError(t, newSolver().Available())
}

func TestSolve_Progress(t *testing.T) {
	bus := eventbus.NewTyped[milp.Progress]()
	defer bus.Close()
	ch := bus.Subscribe()

	p, _ := knapsack(t)
	_, err := newSolver(WithProgress(bus)).Solve(context.Background(), p, milp.SolveOptions{})
	require.NoError(t, err)

	var kinds []milp.ProgressKind
	for done := false; !done; {
		select {
		case ev := <-ch:
			kinds = append(kinds, ev.Kind)
			if ev.Kind == milp.ProgressDone {
				assert.True(t, ev.HasIncumbent)
				assert.InDelta(t, -9, ev.Incumbent, 1e-6)
			}
		default:
			done = true
		}
	}
	assert.Contains(t, kinds, milp.ProgressIncumbent)
	assert.Equal(t, milp.ProgressDone, kinds[len(kinds)-1])
}
