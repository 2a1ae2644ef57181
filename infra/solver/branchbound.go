// Package solver provides a pure-Go MILP engine: a depth-first
// branch-and-bound over binary variables whose LP relaxations are solved by
// a warm-started bounded dual simplex on a gonum dense tableau.
package solver

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/dustplan/core/logger"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/internal/eventbus"
)

// feasibilityTol bounds the residual accepted on constraints whose variables
// are all fixed.
const feasibilityTol = 1e-6

// integralEps is the fraction below which a binary cannot be branched on.
const integralEps = 1e-9

// logEvery is the node interval between progress log lines.
const logEvery = 100

// Option configures a BranchAndBound.
type Option func(*BranchAndBound)

// WithProgress publishes search progress on bus.
func WithProgress(bus *eventbus.TypedBus[milp.Progress]) Option {
	return func(s *BranchAndBound) { s.progress = bus }
}

// BranchAndBound implements milp.Solver.
type BranchAndBound struct {
	log      logger.Logger
	progress *eventbus.TypedBus[milp.Progress]
}

// New returns a solver logging through log.
func New(log logger.Logger, opts ...Option) *BranchAndBound {
	s := &BranchAndBound{log: log}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Available solves min x subject to x + y = 1 to make sure the simplex runs.
func (s *BranchAndBound) Available() error {
	b := milp.NewBuilder()
	x, _ := b.NewVar("x", milp.Continuous)
	y, _ := b.NewVar("y", milp.Continuous)
	b.Add(milp.EQ("sum", milp.Sum(x, y), 1))
	b.Minimize(milp.Sum(x))
	p, err := b.Build()
	if err != nil {
		return fmt.Errorf("%w: %v", milp.ErrSolverUnavailable, err)
	}
	lo := []float64{0, 0}
	hi := []float64{math.Inf(1), math.Inf(1)}
	rel, err := newTableau(p).solve(lo, hi, func() bool { return false })
	if err != nil {
		return fmt.Errorf("%w: %v", milp.ErrSolverUnavailable, err)
	}
	if math.Abs(rel.x[x.Index()]) > 1e-9 || math.Abs(rel.x[y.Index()]-1) > 1e-9 {
		return fmt.Errorf("%w: unexpected self-test solution %v", milp.ErrSolverUnavailable, rel.x)
	}
	return nil
}

// node is an open subproblem: the original bounds tightened by branching.
// bound is the relaxation objective of its parent.
type node struct {
	lo, hi []float64
	bound  float64
}

type search struct {
	p        *milp.Problem
	tab      *tableau
	opts     milp.SolveOptions
	binaries []int
	start    time.Time
	deadline time.Time

	nodes        int
	incumbent    []float64
	incumbentObj float64
	rootBound    float64
}

// Solve runs the branch-and-bound until the tree is exhausted, the time limit
// or node budget is hit, or ctx is done. The last three yield
// StatusTimeLimit with the best incumbent, if any.
func (s *BranchAndBound) Solve(ctx context.Context, p *milp.Problem, opts milp.SolveOptions) (*milp.Solution, error) {
	if p == nil {
		return nil, errors.New("solve: nil problem")
	}
	opts = opts.WithDefaults()
	sr := &search{p: p, tab: newTableau(p), opts: opts, start: time.Now(), incumbentObj: math.Inf(1), rootBound: math.Inf(-1)}
	if opts.TimeLimit > 0 {
		sr.deadline = sr.start.Add(opts.TimeLimit)
	}
	root := node{lo: make([]float64, p.NumVars()), hi: make([]float64, p.NumVars()), bound: math.Inf(-1)}
	for i := 0; i < p.NumVars(); i++ {
		info := p.VarAt(i)
		root.lo[i], root.hi[i] = info.Lower, info.Upper
		if info.Domain == milp.Binary {
			sr.binaries = append(sr.binaries, i)
		}
	}
	s.log.Debugw("search started", map[string]any{
		"variables":   p.NumVars(),
		"binaries":    len(sr.binaries),
		"constraints": len(p.Constraints()),
	})

	stack := []node{root}
	interrupted := false
	for len(stack) > 0 {
		if sr.stop(ctx) {
			interrupted = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		sr.nodes++

		rel, err := sr.tab.solve(nd.lo, nd.hi, sr.expiry(ctx))
		switch {
		case errors.Is(err, errInterrupted):
			sr.nodes--
			stack = append(stack, nd)
			interrupted = true
		case errors.Is(err, milp.ErrInfeasible):
			if sr.nodes == 1 {
				sr.rootBound = math.Inf(1)
			}
			continue
		case errors.Is(err, milp.ErrUnbounded):
			s.log.Warnf("relaxation unbounded at node %d: %v", sr.nodes, err)
			return sr.finish(milp.StatusUnbounded, s), nil
		case err != nil:
			return nil, fmt.Errorf("node %d: %w", sr.nodes, err)
		}
		if interrupted {
			break
		}
		if sr.nodes == 1 {
			sr.rootBound = rel.obj
		}
		if sr.nodes%logEvery == 0 {
			s.report(sr, milp.ProgressNode)
		}
		if sr.pruned(rel.obj) {
			continue
		}
		j := sr.branchVar(rel.x, sr.opts.IntegralityTolerance)
		if j < 0 {
			if s.accept(ctx, sr, nd, rel) {
				continue
			}
			// The rounded point is not feasible: branch on any remaining
			// fractional binary instead.
			if j = sr.branchVar(rel.x, integralEps); j < 0 {
				continue
			}
		}
		down := node{lo: nd.lo, hi: clone(nd.hi), bound: rel.obj}
		down.hi[j] = 0
		up := node{lo: clone(nd.lo), hi: nd.hi, bound: rel.obj}
		up.lo[j] = 1
		// The child nearest to the relaxation value is explored first.
		if rel.x[j] >= 0.5 {
			stack = append(stack, down, up)
		} else {
			stack = append(stack, up, down)
		}
	}

	if interrupted {
		bound := sr.incumbentObj
		for _, nd := range stack {
			bound = math.Min(bound, nd.bound)
		}
		sol := sr.finish(milp.StatusTimeLimit, s)
		sol.Bound = bound
		return sol, nil
	}
	if sr.incumbent == nil {
		return sr.finish(milp.StatusInfeasible, s), nil
	}
	return sr.finish(milp.StatusOptimal, s), nil
}

// accept rounds the binaries of an integral relaxation, re-solves the
// continuous part with the binaries fixed and records the first candidate
// that passes Problem.Check when it improves the incumbent. It reports
// whether a feasible candidate was found.
func (s *BranchAndBound) accept(ctx context.Context, sr *search, nd node, rel relaxation) bool {
	lo, hi := clone(nd.lo), clone(nd.hi)
	rounded := clone(rel.x)
	for _, j := range sr.binaries {
		v := math.Round(rel.x[j])
		lo[j], hi[j], rounded[j] = v, v, v
	}
	var candidates [][]float64
	if !sr.expired(ctx) {
		snapped, err := sr.tab.solve(lo, hi, sr.expiry(ctx))
		if err == nil {
			candidates = append(candidates, snapped.x)
		} else {
			s.log.Debugw("re-solve with fixed binaries failed", map[string]any{"node": sr.nodes, "error": err.Error()})
		}
	}
	candidates = append(candidates, rounded)
	for _, x := range candidates {
		if v := sr.p.Check(x, feasibilityTol); len(v) > 0 {
			s.log.Debugw("candidate rejected", map[string]any{"node": sr.nodes, "violations": len(v), "first": v[0].Name})
			continue
		}
		if obj := sr.p.Objective().Eval(x); obj < sr.incumbentObj {
			sr.incumbent, sr.incumbentObj = x, obj
			s.report(sr, milp.ProgressIncumbent)
		}
		return true
	}
	return false
}

// expired reports whether ctx is done or the time limit has passed.
func (sr *search) expired(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	return !sr.deadline.IsZero() && time.Now().After(sr.deadline)
}

// expiry adapts expired to the callback polled inside a relaxation.
func (sr *search) expiry(ctx context.Context) func() bool {
	return func() bool { return sr.expired(ctx) }
}

func (sr *search) stop(ctx context.Context) bool {
	if sr.expired(ctx) {
		return true
	}
	return sr.opts.MaxNodes > 0 && sr.nodes >= sr.opts.MaxNodes
}

func (sr *search) pruned(obj float64) bool {
	if sr.incumbent == nil {
		return false
	}
	return obj >= sr.incumbentObj-sr.opts.Tolerance*math.Max(1, math.Abs(sr.incumbentObj))
}

// branchVar returns the most fractional binary of x, or -1 when no binary is
// further than tol from an integer. Ties go to the lowest index.
func (sr *search) branchVar(x []float64, tol float64) int {
	best, bestFrac := -1, tol
	for _, j := range sr.binaries {
		f := math.Abs(x[j] - math.Round(x[j]))
		if f > bestFrac {
			best, bestFrac = j, f
		}
	}
	return best
}

func (sr *search) finish(status milp.Status, s *BranchAndBound) *milp.Solution {
	var sol *milp.Solution
	switch {
	case status == milp.StatusOptimal:
		sol = milp.NewSolution(status, sr.incumbentObj, sr.incumbent)
		sol.Bound = sr.incumbentObj
	case status == milp.StatusTimeLimit && sr.incumbent != nil:
		sol = milp.NewSolution(status, sr.incumbentObj, sr.incumbent)
	default:
		sol = milp.NewSolution(status, 0, nil)
		sol.Bound = sr.rootBound
	}
	sol.Nodes = sr.nodes
	sol.Elapsed = time.Since(sr.start)
	s.report(sr, milp.ProgressDone)
	s.log.Debugw("search finished", map[string]any{
		"status":  status.String(),
		"nodes":   sr.nodes,
		"elapsed": sol.Elapsed.String(),
	})
	return sol
}

func (s *BranchAndBound) report(sr *search, kind milp.ProgressKind) {
	ev := milp.Progress{
		Kind:         kind,
		Nodes:        sr.nodes,
		HasIncumbent: sr.incumbent != nil,
		Bound:        sr.rootBound,
		Elapsed:      time.Since(sr.start),
	}
	if ev.HasIncumbent {
		ev.Incumbent = sr.incumbentObj
	}
	if kind != milp.ProgressDone {
		s.log.Debugw("search progress", map[string]any{
			"kind":      kind.String(),
			"nodes":     ev.Nodes,
			"incumbent": ev.Incumbent,
			"bound":     ev.Bound,
		})
	}
	if s.progress != nil {
		s.progress.Publish(ev)
	}
}

func clone(v []float64) []float64 { return append([]float64(nil), v...) }
