// Package formulation turns a parameter set into the dust-control MILP.
//
// NewCatalog declares every decision variable for the whole horizon. Each
// constraint family is a pure function of the parameter set and the catalog
// returning its constraints; Build runs them in order on an explicit
// milp.Builder and returns the frozen problem together with the catalog
// needed to read the solution.
package formulation

import (
	"errors"
	"fmt"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/params"
)

// Model bundles the frozen problem with the catalog and parameters it was
// built from.
type Model struct {
	Problem *milp.Problem
	Catalog *Catalog
	Params  *params.Set
}

// Build declares the variables, emits every constraint family and sets the
// objective.
func Build(p *params.Set) (*Model, error) {
	return BuildFamilies(p, Families)
}

// BuildFamilies is Build restricted to the given families.
func BuildFamilies(p *params.Set, families []ConstraintFamily) (m *Model, err error) {
	if p == nil {
		return nil, errors.New("build model: nil parameter set")
	}
	defer func() {
		if r := recover(); r != nil {
			le, ok := r.(lookupError)
			if !ok {
				panic(r)
			}
			m, err = nil, fmt.Errorf("build model: %w", le)
		}
	}()
	b := milp.NewBuilder()
	cat, err := NewCatalog(b, p)
	if err != nil {
		return nil, fmt.Errorf("declare variables: %w", err)
	}
	for _, f := range families {
		b.Add(f.Emit(p, cat)...)
	}
	b.Minimize(Objective(p, cat))
	prob, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("build model: %w", err)
	}
	return &Model{Problem: prob, Catalog: cat, Params: p}, nil
}
