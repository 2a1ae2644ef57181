package milp

import (
	"fmt"
	"math"
	"sort"
	"strings"
)

// Builder accumulates variables, constraints and the objective of one
// problem. It is not safe for concurrent use.
type Builder struct {
	vars  []VarInfo
	names map[string]Var
	cons  []Constraint
	obj   Expr
	err   error
	built bool
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{names: make(map[string]Var)}
}

// NewVar declares a variable with the given unique name and domain.
func (b *Builder) NewVar(name string, d Domain) (Var, error) {
	if b.built {
		return Var{}, fmt.Errorf("declare %s: builder already frozen", name)
	}
	if _, ok := b.names[name]; ok {
		return Var{}, fmt.Errorf("%w: %s", ErrDuplicateVariable, name)
	}
	info := VarInfo{Name: name, Domain: d, Lower: 0, Upper: math.Inf(1)}
	if d == Binary {
		info.Upper = 1
	}
	b.vars = append(b.vars, info)
	v := Var{id: len(b.vars)}
	b.names[name] = v
	return v, nil
}

// Lookup returns the variable declared under name.
func (b *Builder) Lookup(name string) (Var, bool) {
	v, ok := b.names[name]
	return v, ok
}

// Add appends constraints. The first invalid reference is kept and returned
// by Build; later calls become no-ops.
func (b *Builder) Add(cs ...Constraint) {
	if b.err != nil {
		return
	}
	for _, c := range cs {
		if err := b.checkExpr(c.Expr); err != nil {
			b.err = fmt.Errorf("constraint %s: %w", c.Name, err)
			return
		}
		b.cons = append(b.cons, c)
	}
}

// Minimize sets the objective to minimize expr.
func (b *Builder) Minimize(expr Expr) {
	if b.err != nil {
		return
	}
	if err := b.checkExpr(expr); err != nil {
		b.err = fmt.Errorf("objective: %w", err)
		return
	}
	b.obj = expr
}

func (b *Builder) checkExpr(e Expr) error {
	for _, t := range e.Terms {
		if !t.Var.Valid() || t.Var.Index() >= len(b.vars) {
			return ErrUnknownVariable
		}
		if math.IsNaN(t.Coef) || math.IsInf(t.Coef, 0) {
			return fmt.Errorf("non-finite coefficient on %s", b.vars[t.Var.Index()].Name)
		}
	}
	return nil
}

// Build freezes the builder into a Problem.
func (b *Builder) Build() (*Problem, error) {
	if b.err != nil {
		return nil, b.err
	}
	b.built = true
	return &Problem{
		vars:  append([]VarInfo(nil), b.vars...),
		cons:  append([]Constraint(nil), b.cons...),
		obj:   b.obj,
		names: b.names,
	}, nil
}

// Problem is an immutable minimization problem.
type Problem struct {
	vars  []VarInfo
	cons  []Constraint
	obj   Expr
	names map[string]Var
}

// NumVars returns the number of declared variables.
func (p *Problem) NumVars() int { return len(p.vars) }

// Var returns the description of v.
func (p *Problem) Var(v Var) VarInfo { return p.vars[v.Index()] }

// VarAt returns the description of the i-th variable.
func (p *Problem) VarAt(i int) VarInfo { return p.vars[i] }

// Lookup returns the variable declared under name.
func (p *Problem) Lookup(name string) (Var, bool) {
	v, ok := p.names[name]
	return v, ok
}

// Constraints returns the constraints in declaration order. Callers must not
// modify the returned slice.
func (p *Problem) Constraints() []Constraint { return p.cons }

// Objective returns the minimized expression.
func (p *Problem) Objective() Expr { return p.obj }

// WithFixed returns a copy of the problem whose variables have their lower
// and upper bounds set to the given values. values is indexed by Var.Index;
// NaN entries leave the variable free.
func (p *Problem) WithFixed(values []float64) (*Problem, error) {
	if len(values) != len(p.vars) {
		return nil, fmt.Errorf("fix: got %d values for %d variables", len(values), len(p.vars))
	}
	vars := append([]VarInfo(nil), p.vars...)
	for i, v := range values {
		if math.IsNaN(v) {
			continue
		}
		if vars[i].Domain == Binary {
			v = math.Round(v)
		}
		if v < vars[i].Lower || v > vars[i].Upper {
			return nil, fmt.Errorf("fix %s: %g outside [%g, %g]", vars[i].Name, v, vars[i].Lower, vars[i].Upper)
		}
		vars[i].Lower, vars[i].Upper = v, v
	}
	return &Problem{vars: vars, cons: p.cons, obj: p.obj, names: p.names}, nil
}

// AssignmentLength names the violation reported for an assignment of the
// wrong size.
const AssignmentLength = "assignment length"

// Violation reports a constraint or bound that an assignment breaks.
type Violation struct {
	Name   string
	Amount float64
}

// Check evaluates every bound, integrality requirement and constraint at
// values and returns those violated by more than tol. An assignment whose
// length differs from NumVars yields a single AssignmentLength violation
// carrying the size difference.
func (p *Problem) Check(values []float64, tol float64) []Violation {
	if len(values) != len(p.vars) {
		return []Violation{{Name: AssignmentLength, Amount: math.Abs(float64(len(values) - len(p.vars)))}}
	}
	var out []Violation
	for i, info := range p.vars {
		x := values[i]
		if x < info.Lower-tol {
			out = append(out, Violation{Name: info.Name + " lower bound", Amount: info.Lower - x})
		}
		if x > info.Upper+tol {
			out = append(out, Violation{Name: info.Name + " upper bound", Amount: x - info.Upper})
		}
		if info.Domain == Binary {
			if d := math.Abs(x - math.Round(x)); d > tol {
				out = append(out, Violation{Name: info.Name + " integrality", Amount: d})
			}
		}
	}
	for _, c := range p.cons {
		if s := c.Slack(values); s < -tol {
			out = append(out, Violation{Name: c.Name, Amount: -s})
		}
	}
	return out
}

// Stats summarizes the size of a problem.
type Stats struct {
	Continuous int
	Binary     int
	BySense    map[Sense]int
	ByFamily   map[string]int
}

// Families returns the constraint family names in sorted order.
func (s Stats) Families() []string {
	out := make([]string, 0, len(s.ByFamily))
	for f := range s.ByFamily {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		if len(out[i]) != len(out[j]) {
			return len(out[i]) < len(out[j])
		}
		return out[i] < out[j]
	})
	return out
}

// Stats counts variables by domain and constraints by sense and family.
// The family of a constraint is its name up to the first '['.
func (p *Problem) Stats() Stats {
	s := Stats{BySense: map[Sense]int{}, ByFamily: map[string]int{}}
	for _, v := range p.vars {
		if v.Domain == Binary {
			s.Binary++
		} else {
			s.Continuous++
		}
	}
	for _, c := range p.cons {
		s.BySense[c.Sense]++
		fam := c.Name
		if i := strings.IndexByte(fam, '['); i >= 0 {
			fam = fam[:i]
		}
		s.ByFamily[fam]++
	}
	return s
}
