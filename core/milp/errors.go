package milp

import "errors"

var (
	// ErrInfeasible is returned when the problem admits no assignment.
	ErrInfeasible = errors.New("model is infeasible")
	// ErrUnbounded is returned when the objective can decrease without limit.
	// For this planning model it points to a missing bound.
	ErrUnbounded = errors.New("model is unbounded")
	// ErrTimeLimit is returned when the search stopped before proving
	// optimality.
	ErrTimeLimit = errors.New("time limit reached")
	// ErrSolverUnavailable is returned when the engine cannot be invoked.
	ErrSolverUnavailable = errors.New("solver unavailable")
	// ErrUnknownVariable is returned when a constraint references a variable
	// that was not declared.
	ErrUnknownVariable = errors.New("unknown variable")
	// ErrDuplicateVariable is returned when a variable name is declared twice.
	ErrDuplicateVariable = errors.New("duplicate variable")
)
