// Package milp describes mixed-integer linear problems independently of the
// engine that solves them.
//
// A Builder declares variables and collects constraints and the objective.
// Build freezes them into an immutable Problem that a Solver consumes. The
// Solver contract returns a Solution whose Status must be checked before any
// value is read.
package milp

import (
	"fmt"
	"math"
)

// Domain is the value domain of a decision variable.
type Domain int

const (
	// Continuous variables take any value in [0, +Inf).
	Continuous Domain = iota
	// Binary variables take 0 or 1.
	Binary
)

func (d Domain) String() string {
	switch d {
	case Continuous:
		return "continuous"
	case Binary:
		return "binary"
	default:
		return "unknown"
	}
}

// Var is a handle to a declared variable. The zero Var is invalid.
type Var struct {
	id int
}

// Index returns the position of the variable in its Problem.
func (v Var) Index() int { return v.id - 1 }

// Valid reports whether the handle came from a Builder.
func (v Var) Valid() bool { return v.id > 0 }

// VarInfo describes a declared variable.
type VarInfo struct {
	Name   string
	Domain Domain
	Lower  float64
	Upper  float64
}

// Term is a coefficient applied to a variable.
type Term struct {
	Var  Var
	Coef float64
}

// Expr is a linear expression Σ coef·var + Constant.
type Expr struct {
	Terms    []Term
	Constant float64
}

// Sum returns the expression adding every variable with coefficient 1.
func Sum(vars ...Var) Expr {
	e := Expr{Terms: make([]Term, 0, len(vars))}
	for _, v := range vars {
		e.Terms = append(e.Terms, Term{Var: v, Coef: 1})
	}
	return e
}

// Add appends coef·v to the expression.
func (e *Expr) Add(coef float64, v Var) *Expr {
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// AddConst adds c to the constant part.
func (e *Expr) AddConst(c float64) *Expr {
	e.Constant += c
	return e
}

// AddExpr appends scale·o to the expression.
func (e *Expr) AddExpr(scale float64, o Expr) *Expr {
	for _, t := range o.Terms {
		e.Terms = append(e.Terms, Term{Var: t.Var, Coef: scale * t.Coef})
	}
	e.Constant += scale * o.Constant
	return e
}

// Eval returns the value of the expression for the assignment values,
// indexed by Var.Index.
func (e Expr) Eval(values []float64) float64 {
	s := e.Constant
	for _, t := range e.Terms {
		s += t.Coef * values[t.Var.Index()]
	}
	return s
}

// Coefficients merges duplicate variables and drops zero coefficients.
func (e Expr) Coefficients() map[int]float64 {
	out := make(map[int]float64, len(e.Terms))
	for _, t := range e.Terms {
		out[t.Var.Index()] += t.Coef
	}
	for k, c := range out {
		if c == 0 {
			delete(out, k)
		}
	}
	return out
}

// Sense is the relation of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	Equal
	GreaterEqual
)

func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case Equal:
		return "="
	case GreaterEqual:
		return ">="
	default:
		return "?"
	}
}

// Constraint is the linear relation Expr Sense RHS.
type Constraint struct {
	Name  string
	Expr  Expr
	Sense Sense
	RHS   float64
}

// LE builds expr <= rhs.
func LE(name string, expr Expr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: LessEqual, RHS: rhs}
}

// EQ builds expr = rhs.
func EQ(name string, expr Expr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: Equal, RHS: rhs}
}

// GE builds expr >= rhs.
func GE(name string, expr Expr, rhs float64) Constraint {
	return Constraint{Name: name, Expr: expr, Sense: GreaterEqual, RHS: rhs}
}

// Slack returns how far the assignment is from violating the constraint.
// A negative value is the size of the violation.
func (c Constraint) Slack(values []float64) float64 {
	lhs := c.Expr.Eval(values)
	switch c.Sense {
	case LessEqual:
		return c.RHS - lhs
	case GreaterEqual:
		return lhs - c.RHS
	default:
		return -math.Abs(lhs - c.RHS)
	}
}

func (c Constraint) String() string {
	return fmt.Sprintf("%s: %d terms %s %g", c.Name, len(c.Expr.Terms), c.Sense, c.RHS-c.Expr.Constant)
}
