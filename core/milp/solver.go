package milp

import (
	"context"
	"time"
)

// Status is the outcome of a solve.
type Status int

const (
	StatusOptimal Status = iota
	StatusInfeasible
	StatusUnbounded
	StatusTimeLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "OPTIMAL"
	case StatusInfeasible:
		return "INFEASIBLE"
	case StatusUnbounded:
		return "UNBOUNDED"
	case StatusTimeLimit:
		return "TIME_LIMIT"
	default:
		return "UNKNOWN"
	}
}

// Err maps a non-optimal status to its sentinel error.
func (s Status) Err() error {
	switch s {
	case StatusInfeasible:
		return ErrInfeasible
	case StatusUnbounded:
		return ErrUnbounded
	case StatusTimeLimit:
		return ErrTimeLimit
	default:
		return nil
	}
}

// SolveOptions tunes a single solve call.
type SolveOptions struct {
	// TimeLimit stops the search and yields StatusTimeLimit. Zero means no
	// limit beyond the context deadline.
	TimeLimit time.Duration
	// Tolerance is the LP optimality tolerance.
	Tolerance float64
	// IntegralityTolerance is how far a binary may sit from 0 or 1 and still
	// count as integral.
	IntegralityTolerance float64
	// MaxNodes bounds the number of explored nodes; zero means unbounded.
	// Reaching it is reported as StatusTimeLimit.
	MaxNodes int
}

// WithDefaults fills zero tolerances.
func (o SolveOptions) WithDefaults() SolveOptions {
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-7
	}
	if o.IntegralityTolerance <= 0 {
		o.IntegralityTolerance = 1e-6
	}
	return o
}

// Solution is the result of a solve. Values are present for StatusOptimal
// and for StatusTimeLimit when an incumbent was found.
type Solution struct {
	Status    Status
	Objective float64
	// Bound is the best proven lower bound on the objective.
	Bound   float64
	Nodes   int
	Elapsed time.Duration
	values  []float64
}

// NewSolution builds a Solution. values may be nil when no assignment is
// available.
func NewSolution(status Status, objective float64, values []float64) *Solution {
	return &Solution{Status: status, Objective: objective, values: values}
}

// HasValues reports whether an assignment is attached.
func (s *Solution) HasValues() bool { return s.values != nil }

// Value returns the value of v. It panics when no assignment is attached.
func (s *Solution) Value(v Var) float64 {
	if s.values == nil {
		panic("milp: no values for status " + s.Status.String())
	}
	return s.values[v.Index()]
}

// Values returns a copy of the assignment indexed by Var.Index.
func (s *Solution) Values() []float64 {
	if s.values == nil {
		return nil
	}
	return append([]float64(nil), s.values...)
}

// Proven reports whether the objective is proven optimal.
func (s *Solution) Proven() bool { return s.Status == StatusOptimal }

// ProgressKind tags solver progress events.
type ProgressKind int

const (
	ProgressNode ProgressKind = iota
	ProgressIncumbent
	ProgressDone
)

func (k ProgressKind) String() string {
	switch k {
	case ProgressNode:
		return "node"
	case ProgressIncumbent:
		return "incumbent"
	case ProgressDone:
		return "done"
	default:
		return "unknown"
	}
}

// Progress is published by solvers while searching.
type Progress struct {
	Kind         ProgressKind
	Nodes        int
	Incumbent    float64
	HasIncumbent bool
	Bound        float64
	Elapsed      time.Duration
}

// Solver is the engine contract consumed by the planner. Solve blocks until
// the search ends, the time limit elapses or ctx is cancelled. An error is
// returned only when the engine itself failed; infeasible or unbounded
// problems are reported through Solution.Status.
type Solver interface {
	Available() error
	Solve(ctx context.Context, p *Problem, opts SolveOptions) (*Solution, error)
}
