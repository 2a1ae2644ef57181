package solver

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/dustplan/core/milp"
)

const (
	// box replaces infinite upper bounds. A relaxation that pushes an
	// unbounded variable onto it is reported as unbounded.
	box = 1e9

	primalTol   = 1e-7
	dualTol     = 1e-9
	pivotTol    = 1e-9
	ratioTol    = 1e-12
	residualTol = 1e-9
	checkEvery  = 16
)

// errInterrupted is returned when the stop callback fires inside a
// relaxation.
var errInterrupted = errors.New("relaxation interrupted")

// errIterationLimit is returned when the dual simplex does not converge.
var errIterationLimit = errors.New("simplex iteration limit reached")

// iterationLimit bounds the pivots of one relaxation. Tests lower it to
// simulate an engine failure.
var iterationLimit = func(rows, cols int) int { return 50*(rows+cols) + 1000 }

// relaxation is the continuous optimum of a problem under given bounds.
type relaxation struct {
	obj float64
	x   []float64
}

// tableau is a dense bounded dual simplex over every row of a problem.
// Columns [0, n) are the problem variables; column n+k is the slack of row k
// (+1 for ≤, −1 for ≥) or, for equality rows, an artificial fixed at zero.
// The last column holds the right-hand side. Costs never change between
// nodes, so the final basis of one relaxation is dual feasible for the next
// one and only the bounds move.
type tableau struct {
	p          *milp.Problem
	m, n, cols int

	a *mat.Dense // original [A | b]
	t *mat.Dense // B⁻¹[A | b]

	cost   []float64
	d      []float64 // reduced costs
	lo, hi []float64
	x      []float64 // column values; basic entries are refreshed by values
	basis  []int
	pos    []int // row of a basic column, -1 when nonbasic
	nz     []int

	pivots        int
	refactorAfter int
}

func newTableau(p *milp.Problem) *tableau {
	cons := p.Constraints()
	m, n := len(cons), p.NumVars()
	tb := &tableau{p: p, m: m, n: n, cols: n + m}
	tb.cost = make([]float64, tb.cols)
	for i, c := range p.Objective().Coefficients() {
		tb.cost[i] = c
	}
	tb.d = make([]float64, tb.cols)
	tb.lo = make([]float64, tb.cols)
	tb.hi = make([]float64, tb.cols)
	tb.x = make([]float64, tb.cols)
	tb.pos = make([]int, tb.cols)
	tb.basis = make([]int, m)
	tb.refactorAfter = max(1000, 2*m)
	for k, c := range cons {
		s := n + k
		if c.Sense != milp.Equal {
			tb.hi[s] = box
		}
	}
	if m == 0 {
		copy(tb.d, tb.cost)
		for j := range tb.pos {
			tb.pos[j] = -1
		}
		return tb
	}
	tb.a = mat.NewDense(m, tb.cols+1, nil)
	for k, c := range cons {
		row := tb.a.RawRowView(k)
		for i, coef := range c.Expr.Coefficients() {
			row[i] = coef
		}
		if c.Sense == milp.GreaterEqual {
			row[n+k] = -1
		} else {
			row[n+k] = 1
		}
		row[tb.cols] = c.RHS - c.Expr.Constant
	}
	tb.t = mat.NewDense(m, tb.cols+1, nil)
	tb.reset()
	return tb
}

// reset returns to the slack basis.
func (tb *tableau) reset() {
	tb.t.Copy(tb.a)
	for j := range tb.pos {
		tb.pos[j] = -1
	}
	for k := 0; k < tb.m; k++ {
		s := tb.n + k
		row := tb.t.RawRowView(k)
		if row[s] < 0 {
			floats.Scale(-1, row)
		}
		tb.basis[k] = s
		tb.pos[s] = k
	}
	copy(tb.d, tb.cost)
	tb.pivots = 0
}

// refactor rebuilds B⁻¹[A | b] and the reduced costs from the current basis.
func (tb *tableau) refactor() error {
	B := mat.NewDense(tb.m, tb.m, nil)
	for i, j := range tb.basis {
		for k := 0; k < tb.m; k++ {
			B.Set(k, i, tb.a.At(k, j))
		}
	}
	var lu mat.LU
	lu.Factorize(B)
	if err := lu.SolveTo(tb.t, false, tb.a); err != nil {
		return err
	}
	copy(tb.d, tb.cost)
	for i, j := range tb.basis {
		row := tb.t.RawRowView(i)
		row[j] = 1
		if cb := tb.cost[j]; cb != 0 {
			floats.AddScaled(tb.d, -cb, row[:tb.cols])
		}
	}
	for _, j := range tb.basis {
		tb.d[j] = 0
	}
	tb.pivots = 0
	return nil
}

// refresh refactors, falling back to the slack basis when the current basis
// cannot be factorized.
func (tb *tableau) refresh() {
	if err := tb.refactor(); err != nil {
		tb.reset()
	}
}

// bound installs the node bounds of the problem variables and places every
// nonbasic column on the bound its reduced cost prefers.
func (tb *tableau) bound(lo, hi []float64) error {
	for j := 0; j < tb.n; j++ {
		l, h := lo[j], math.Min(hi[j], box)
		if h < l-primalTol {
			return fmt.Errorf("%s: empty domain [%g, %g]: %w", tb.p.VarAt(j).Name, lo[j], hi[j], milp.ErrInfeasible)
		}
		tb.lo[j], tb.hi[j] = l, math.Max(h, l)
	}
	tb.place()
	return nil
}

func (tb *tableau) place() {
	for j := 0; j < tb.cols; j++ {
		if tb.pos[j] >= 0 {
			continue
		}
		if tb.d[j] < -dualTol && tb.hi[j] > tb.lo[j] {
			tb.x[j] = tb.hi[j]
		} else {
			tb.x[j] = tb.lo[j]
		}
	}
}

// values recomputes the basic columns from the nonbasic ones.
func (tb *tableau) values() {
	tb.nz = tb.nz[:0]
	for j := 0; j < tb.cols; j++ {
		if tb.pos[j] < 0 && tb.x[j] != 0 {
			tb.nz = append(tb.nz, j)
		}
	}
	for i := 0; i < tb.m; i++ {
		row := tb.t.RawRowView(i)
		v := row[tb.cols]
		for _, j := range tb.nz {
			v -= row[j] * tb.x[j]
		}
		tb.x[tb.basis[i]] = v
	}
}

// leaving returns the row whose basic column is furthest outside its bounds
// and whether it leaves at its upper bound; -1 when the basis is feasible.
func (tb *tableau) leaving() (int, bool) {
	r, up, worst := -1, false, 0.0
	for i, j := range tb.basis {
		v := tb.x[j]
		if gap := tb.lo[j] - v; gap > primalTol*(1+math.Abs(tb.lo[j])) && gap > worst {
			r, up, worst = i, false, gap
		}
		if gap := v - tb.hi[j]; gap > primalTol*(1+math.Abs(tb.hi[j])) && gap > worst {
			r, up, worst = i, true, gap
		}
	}
	return r, up
}

// entering runs the dual ratio test on row r. Ties go to the largest pivot.
func (tb *tableau) entering(r int, up bool) int {
	row := tb.t.RawRowView(r)
	j, best, piv := -1, math.Inf(1), 0.0
	for k := 0; k < tb.cols; k++ {
		if tb.pos[k] >= 0 || tb.hi[k] <= tb.lo[k] {
			continue
		}
		a := row[k]
		if math.Abs(a) < pivotTol {
			continue
		}
		atLower := tb.x[k] == tb.lo[k]
		// Moving k must push the leaving value back toward its bound.
		if up == (atLower == (a < 0)) {
			continue
		}
		ratio := math.Abs(tb.d[k]) / math.Abs(a)
		switch {
		case ratio < best-ratioTol:
			j, best, piv = k, ratio, math.Abs(a)
		case ratio <= best+ratioTol && math.Abs(a) > piv:
			j, best, piv = k, math.Min(best, ratio), math.Abs(a)
		}
	}
	return j
}

func (tb *tableau) pivot(r, j int) {
	row := tb.t.RawRowView(r)
	floats.Scale(1/row[j], row)
	row[j] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		ri := tb.t.RawRowView(i)
		if f := ri[j]; f != 0 {
			floats.AddScaled(ri, -f, row)
			ri[j] = 0
		}
	}
	if f := tb.d[j]; f != 0 {
		floats.AddScaled(tb.d, -f, row[:tb.cols])
		tb.d[j] = 0
	}
	leave := tb.basis[r]
	tb.pos[leave] = -1
	tb.basis[r] = j
	tb.pos[j] = r
	tb.pivots++
}

// dual restores primal feasibility while keeping the reduced costs dual
// feasible. It returns milp.ErrInfeasible when a violated row has no
// entering column.
func (tb *tableau) dual(stop func() bool) error {
	limit := iterationLimit(tb.m, tb.cols)
	for it := 0; ; it++ {
		if it >= limit {
			return errIterationLimit
		}
		if it%checkEvery == checkEvery-1 && stop() {
			return errInterrupted
		}
		tb.values()
		r, up := tb.leaving()
		if r < 0 {
			return nil
		}
		j := tb.entering(r, up)
		if j < 0 {
			return fmt.Errorf("%s: %w", tb.rowName(r), milp.ErrInfeasible)
		}
		leave := tb.basis[r]
		tb.pivot(r, j)
		if up {
			tb.x[leave] = tb.hi[leave]
		} else {
			tb.x[leave] = tb.lo[leave]
		}
	}
}

// rowName names the constraint whose slack or artificial is basic in row r,
// or the variable otherwise.
func (tb *tableau) rowName(r int) string {
	j := tb.basis[r]
	if j < tb.n {
		return tb.p.VarAt(j).Name
	}
	return tb.p.Constraints()[j-tb.n].Name
}

// residual is the largest scaled row residual of the current values.
func (tb *tableau) residual() float64 {
	worst := 0.0
	for k := 0; k < tb.m; k++ {
		row := tb.a.RawRowView(k)
		v := floats.Dot(row[:tb.cols], tb.x) - row[tb.cols]
		worst = math.Max(worst, math.Abs(v)/(1+math.Abs(row[tb.cols])))
	}
	return worst
}

// solve returns the relaxation under the bounds lo and hi. stop is polled
// between pivots; when it fires errInterrupted is returned.
func (tb *tableau) solve(lo, hi []float64, stop func() bool) (relaxation, error) {
	if tb.m > 0 && tb.pivots > tb.refactorAfter {
		tb.refresh()
	}
	if err := tb.bound(lo, hi); err != nil {
		return relaxation{}, err
	}
	for attempt := 0; tb.m > 0; attempt++ {
		if err := tb.dual(stop); err != nil {
			return relaxation{}, err
		}
		tb.values()
		if attempt > 0 || tb.residual() <= residualTol {
			break
		}
		tb.refresh()
		tb.place()
	}
	x := make([]float64, tb.n)
	for j := range x {
		x[j] = math.Min(tb.hi[j], math.Max(tb.lo[j], tb.x[j]))
		if math.IsInf(hi[j], 1) && x[j] >= box/2 {
			return relaxation{}, fmt.Errorf("%s: %w", tb.p.VarAt(j).Name, milp.ErrUnbounded)
		}
	}
	return relaxation{obj: tb.p.Objective().Eval(x), x: x}, nil
}
