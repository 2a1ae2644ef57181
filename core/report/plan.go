// Package report reads a solved planning model into a Plan and renders it.
package report

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/dustplan/core/formulation"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/model"
)

// SiteMonth is the decision for one site in one period.
type SiteMonth struct {
	Site               string  `json:"site"`
	Period             int     `json:"period"`
	PM                 float64 `json:"pm"`
	Water              float64 `json:"water"`
	CoverWater         float64 `json:"cover_water"`
	EffectiveReduction float64 `json:"effective_reduction"`
	WaterActive        bool    `json:"water_active"`
	Maintenance        bool    `json:"maintenance"`
	CoverInstalled     bool    `json:"cover_installed"`
	CoverPresent       bool    `json:"cover_present"`
	CoverResilient     bool    `json:"cover_resilient"`
	Cost               float64 `json:"cost"`
}

// ArcMonth is the water routed along an arc in one period.
type ArcMonth struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Period int     `json:"period"`
	Flow   float64 `json:"flow"`
	Cost   float64 `json:"cost"`
}

// SourceMonth is the inventory held by a source at the end of a period.
type SourceMonth struct {
	Source    string  `json:"source"`
	Period    int     `json:"period"`
	Inventory float64 `json:"inventory"`
}

// Plan is the extracted solution of a planning model.
type Plan struct {
	Status    string  `json:"status"`
	Proven    bool    `json:"proven"`
	Objective float64 `json:"objective"`
	// Bound is the best proven lower bound on the objective.
	Bound     float64       `json:"bound"`
	TotalCost float64       `json:"total_cost"`
	Budget    float64       `json:"budget"`
	Sites     []SiteMonth   `json:"sites"`
	Flows     []ArcMonth    `json:"flows"`
	Sources   []SourceMonth `json:"sources"`
}

// Extract reads sol into a Plan. Only OPTIMAL solutions are read, plus
// TIME_LIMIT solutions carrying an incumbent when acceptTimeLimit is set;
// every other outcome returns the status sentinel from core/milp.
func Extract(m *formulation.Model, sol *milp.Solution, acceptTimeLimit bool) (*Plan, error) {
	if m == nil || sol == nil {
		return nil, errors.New("extract: nil model or solution")
	}
	switch {
	case sol.Status == milp.StatusOptimal:
	case sol.Status == milp.StatusTimeLimit && !sol.HasValues():
		return nil, fmt.Errorf("extract: %w without an incumbent", milp.ErrTimeLimit)
	case sol.Status == milp.StatusTimeLimit && !acceptTimeLimit:
		return nil, fmt.Errorf("extract: %w (gap to bound %g)", milp.ErrTimeLimit, sol.Objective-sol.Bound)
	case sol.Status == milp.StatusTimeLimit:
	default:
		return nil, fmt.Errorf("extract: %w", sol.Status.Err())
	}
	if !sol.HasValues() {
		return nil, fmt.Errorf("extract: %s solution without values", sol.Status)
	}
	if n := len(sol.Values()); n != m.Problem.NumVars() {
		return nil, fmt.Errorf("extract: %d values for %d variables", n, m.Problem.NumVars())
	}

	p, c := m.Params, m.Catalog
	bit := func(v milp.Var) bool { return sol.Value(v) > 0.5 }
	val := func(v milp.Var) float64 { return clean(sol.Value(v)) }
	plan := &Plan{
		Status:    sol.Status.String(),
		Proven:    sol.Proven(),
		Objective: sol.Objective,
		Bound:     sol.Bound,
		Budget:    p.Budget(),
	}
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			sm := SiteMonth{
				Site:               r,
				Period:             t,
				PM:                 val(c.PM(r, t)),
				Water:              val(c.WaterApplied(r, t)),
				CoverWater:         val(c.CoverWater(r, t)),
				EffectiveReduction: val(c.EffectiveCoverReduction(r, t)),
				WaterActive:        bit(c.WaterActive(r, t)),
				Maintenance:        bit(c.MaintenanceActive(r, t)),
				CoverInstalled:     bit(c.CoverInstalled(r, t)),
				CoverPresent:       bit(c.CoverPresent(r, t)),
				CoverResilient:     bit(c.CoverResilient(r, t)),
			}
			sm.Cost = p.WaterCost(r, t)*sm.Water +
				p.CoverMaintenanceCost(r, t)*flag(sm.CoverPresent) +
				p.MaintenanceCost(r, t)*flag(sm.Maintenance) +
				p.CoverInstallCost(r, t)*flag(sm.CoverInstalled)
			plan.TotalCost += sm.Cost
			plan.Sites = append(plan.Sites, sm)
		}
	}
	for _, a := range p.Arcs() {
		for _, t := range p.Periods() {
			am := ArcMonth{From: a.From, To: a.To, Period: t, Flow: val(c.Flow(a, t))}
			am.Cost = p.ArcCost(a) * am.Flow
			plan.TotalCost += am.Cost
			plan.Flows = append(plan.Flows, am)
		}
	}
	for _, f := range p.Sources() {
		for _, t := range p.Periods() {
			plan.Sources = append(plan.Sources, SourceMonth{Source: f, Period: t, Inventory: val(c.SourceInventory(f, t))})
		}
	}
	return plan, nil
}

// clean drops solver noise around zero so it does not print as -0.00.
func clean(v float64) float64 {
	if math.Abs(v) < 1e-9 {
		return 0
	}
	return v
}

func flag(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// Site returns the rows of site r in period order.
func (p *Plan) Site(r string) []SiteMonth {
	var out []SiteMonth
	for _, sm := range p.Sites {
		if sm.Site == r {
			out = append(out, sm)
		}
	}
	return out
}

// SiteTotals sums water and PM per site.
func (p *Plan) SiteTotals() map[string]SiteTotal {
	out := make(map[string]SiteTotal)
	for _, sm := range p.Sites {
		t := out[sm.Site]
		t.PM += sm.PM
		t.Water += sm.Water
		t.Cost += sm.Cost
		if sm.CoverInstalled {
			t.Installs++
		}
		if sm.Maintenance {
			t.Maintenances++
		}
		out[sm.Site] = t
	}
	return out
}

// SiteTotal aggregates a site over the horizon.
type SiteTotal struct {
	PM           float64 `json:"pm"`
	Water        float64 `json:"water"`
	Cost         float64 `json:"cost"`
	Installs     int     `json:"installs"`
	Maintenances int     `json:"maintenances"`
}

// Arc returns the arc of a flow row.
func (a ArcMonth) Arc() model.Arc { return model.Arc{From: a.From, To: a.To} }
