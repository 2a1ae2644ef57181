package formulation

import (
	"fmt"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params"
)

// Family names a group of decision variables sharing a domain and index set.
type Family string

const (
	WaterApplied            Family = "water_applied"
	CoverWater              Family = "cover_water"
	Flow                    Family = "flow"
	CoverInstalled          Family = "cover_installed"
	MaintenanceActive       Family = "maintenance_active"
	WaterActive             Family = "water_active"
	CoverPresent            Family = "cover_present"
	CoverResilient          Family = "rr"
	PM                      Family = "PM"
	SourceInventory         Family = "source_inventory"
	EffectiveCoverReduction Family = "effective_cover_reduction"
)

// siteFamilies are declared for every (site, period) pair.
var siteFamilies = []struct {
	family Family
	domain milp.Domain
}{
	{WaterApplied, milp.Continuous},
	{CoverWater, milp.Continuous},
	{CoverInstalled, milp.Binary},
	{MaintenanceActive, milp.Binary},
	{WaterActive, milp.Binary},
	{CoverPresent, milp.Binary},
	{CoverResilient, milp.Binary},
	{PM, milp.Continuous},
	{EffectiveCoverReduction, milp.Continuous},
}

type varKey struct {
	family Family
	entity string
	period int
}

// lookupError is raised by catalog accessors for an index outside the
// catalog and turned into an error by Build.
type lookupError struct{ key varKey }

func (e lookupError) Error() string {
	return fmt.Sprintf("%v: %s[%s,%d]", milp.ErrUnknownVariable, e.key.family, e.key.entity, e.key.period)
}

func (e lookupError) Unwrap() error { return milp.ErrUnknownVariable }

// Catalog holds every decision variable of the planning model, declared once
// for the whole horizon before any constraint is built.
type Catalog struct {
	vars map[varKey]milp.Var
}

// VarName formats the unique name of a variable.
func VarName(f Family, entity string, t int) string {
	return fmt.Sprintf("%s[%s,%d]", f, entity, t)
}

// NewCatalog declares all variables on b.
func NewCatalog(b *milp.Builder, p *params.Set) (*Catalog, error) {
	c := &Catalog{vars: make(map[varKey]milp.Var)}
	declare := func(f Family, entity string, t int, d milp.Domain) error {
		v, err := b.NewVar(VarName(f, entity, t), d)
		if err != nil {
			return err
		}
		c.vars[varKey{f, entity, t}] = v
		return nil
	}
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			for _, sf := range siteFamilies {
				if err := declare(sf.family, r, t, sf.domain); err != nil {
					return nil, err
				}
			}
		}
	}
	for _, a := range p.Arcs() {
		for _, t := range p.Periods() {
			if err := declare(Flow, a.String(), t, milp.Continuous); err != nil {
				return nil, err
			}
		}
	}
	for _, f := range p.Sources() {
		for _, t := range p.Periods() {
			if err := declare(SourceInventory, f, t, milp.Continuous); err != nil {
				return nil, err
			}
		}
	}
	return c, nil
}

func (c *Catalog) get(f Family, entity string, t int) milp.Var {
	k := varKey{f, entity, t}
	v, ok := c.vars[k]
	if !ok {
		panic(lookupError{key: k})
	}
	return v
}

// Len returns the number of declared variables.
func (c *Catalog) Len() int { return len(c.vars) }

// Lookup returns the variable of family f at (entity, t).
func (c *Catalog) Lookup(f Family, entity string, t int) (milp.Var, bool) {
	v, ok := c.vars[varKey{f, entity, t}]
	return v, ok
}

func (c *Catalog) WaterApplied(r string, t int) milp.Var { return c.get(WaterApplied, r, t) }
func (c *Catalog) CoverWater(r string, t int) milp.Var { return c.get(CoverWater, r, t) }
func (c *Catalog) CoverInstalled(r string, t int) milp.Var {
	return c.get(CoverInstalled, r, t)
}
func (c *Catalog) MaintenanceActive(r string, t int) milp.Var {
	return c.get(MaintenanceActive, r, t)
}
func (c *Catalog) WaterActive(r string, t int) milp.Var { return c.get(WaterActive, r, t) }
func (c *Catalog) CoverPresent(r string, t int) milp.Var { return c.get(CoverPresent, r, t) }

// CoverResilient is the rr flag: 1 when the cover's water requirement is
// fully met in period t.
func (c *Catalog) CoverResilient(r string, t int) milp.Var { return c.get(CoverResilient, r, t) }
func (c *Catalog) PM(r string, t int) milp.Var { return c.get(PM, r, t) }
func (c *Catalog) EffectiveCoverReduction(r string, t int) milp.Var {
	return c.get(EffectiveCoverReduction, r, t)
}
func (c *Catalog) Flow(a model.Arc, t int) milp.Var { return c.get(Flow, a.String(), t) }
func (c *Catalog) SourceInventory(f string, t int) milp.Var {
	return c.get(SourceInventory, f, t)
}
