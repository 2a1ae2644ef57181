package formulation

import (
	"fmt"

	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/params"
)

// ConstraintFamily is one group of constraints of the planning model.
type ConstraintFamily struct {
	ID   string
	Name string
	Emit func(*params.Set, *Catalog) []milp.Constraint
}

// Families lists the eighteen constraint families in model order.
var Families = []ConstraintFamily{
	{"R1", "water application consistency", WaterApplication},
	{"R2", "cover water capacity", CoverWaterCapacity},
	{"R3", "cover resilience window", CoverResilience},
	{"R4", "effective cover reduction", EffectiveReduction},
	{"R5", "PM recurrence", PMRecurrence},
	{"R6", "site PM ceiling", SitePMCeiling},
	{"R7", "fleet average PM ceiling", FleetPMCeiling},
	{"R8", "minimum water under maintenance", MaintenanceWater},
	{"R9", "maintenance cadence", MaintenanceCadence},
	{"R10", "installation requires maintenance", InstallRequiresMaintenance},
	{"R11", "cover presence", CoverPresence},
	{"R12", "budget", Budget},
	{"R13", "intermediate node balance", NodeBalance},
	{"R14", "source initial inventory", SourceInitial},
	{"R15", "source balance", SourceBalance},
	{"R16", "source extraction limit", SourceExtraction},
	{"R17", "site demand", SiteDemand},
	{"R18", "arc capacity", ArcCapacity},
}

func name(id, entity string, t int, tag string) string {
	if tag == "" {
		return fmt.Sprintf("%s[%s,%d]", id, entity, t)
	}
	return fmt.Sprintf("%s[%s,%d,%s]", id, entity, t, tag)
}

// WaterApplication gates water_applied with water_active:
// min_water·y ≤ x ≤ max_water·y.
func WaterApplication(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			x, y := c.WaterApplied(r, t), c.WaterActive(r, t)
			var lo, hi milp.Expr
			lo.Add(1, x).Add(-p.MinWater(r), y)
			hi.Add(1, x).Add(-p.MaxWater(r), y)
			out = append(out,
				milp.GE(name("R1", r, t, "min"), lo, 0),
				milp.LE(name("R1", r, t, "max"), hi, 0),
			)
		}
	}
	return out
}

// CoverWaterCapacity bounds cover water by the requirement when the cover is
// present and forces it to zero otherwise.
func CoverWaterCapacity(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var e milp.Expr
			e.Add(1, c.CoverWater(r, t)).Add(-p.CoverWaterRequirement(r), c.CoverPresent(r, t))
			out = append(out, milp.LE(name("R2", r, t, ""), e, 0))
		}
	}
	return out
}

// CoverResilience ties rr to a fully watered cover and, over every forward
// window of cover_water_grace periods starting while the cover is present,
// allows at most grace-1 present periods with the requirement unmet.
// Windows clipped by the horizon end relax accordingly.
func CoverResilience(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	h := p.Horizon()
	grace := p.CoverWaterGrace()
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var link milp.Expr
			link.Add(1, c.CoverWater(r, t)).Add(-p.CoverWaterRequirement(r), c.CoverResilient(r, t))
			out = append(out, milp.GE(name("R3", r, t, "watered"), link, 0))

			w := h.Forward(t, grace)
			n := float64(w.Len())
			var win milp.Expr
			for _, t2 := range w.Periods() {
				win.Add(1, c.CoverPresent(r, t2)).Add(-1, c.CoverResilient(r, t2))
			}
			// Σ(z−rr) ≤ (grace−1)·z[t] + |W|·(1−z[t])
			win.Add(n-float64(grace-1), c.CoverPresent(r, t))
			out = append(out, milp.LE(name("R3", r, t, "window"), win, n))
		}
	}
	return out
}

// EffectiveReduction credits the cover with the lesser of its watering
// fraction and its presence, both scaled by the maximum reduction.
func EffectiveReduction(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		beta, req := p.CoverMaxReduction(r), p.CoverWaterRequirement(r)
		for _, t := range p.Periods() {
			b := c.EffectiveCoverReduction(r, t)
			var water, present milp.Expr
			water.Add(1, b).Add(-beta/req, c.CoverWater(r, t))
			present.Add(1, b).Add(-beta, c.CoverPresent(r, t))
			out = append(out,
				milp.LE(name("R4", r, t, "water"), water, 0),
				milp.LE(name("R4", r, t, "present"), present, 0),
			)
		}
	}
	return out
}

// PMRecurrence carries PM from one period to the next:
// PM[t] = PM[t−1] + added − α·(water − cover water) − effective reduction,
// with PM[−1] = pm_base.
func PMRecurrence(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		alpha := p.WaterReductionRate(r)
		for _, t := range p.Periods() {
			var e milp.Expr
			e.Add(1, c.PM(r, t)).
				Add(alpha, c.WaterApplied(r, t)).
				Add(-alpha, c.CoverWater(r, t)).
				Add(1, c.EffectiveCoverReduction(r, t))
			rhs := p.PMAdded(r, t)
			if t == 0 {
				rhs += p.PMBase(r)
			} else {
				e.Add(-1, c.PM(r, t-1))
			}
			out = append(out, milp.EQ(name("R5", r, t, ""), e, rhs))
		}
	}
	return out
}

// SitePMCeiling keeps PM at or below the site threshold.
func SitePMCeiling(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			out = append(out, milp.LE(name("R6", r, t, ""), milp.Sum(c.PM(r, t)), p.PMMax(r, t)))
		}
	}
	return out
}

// FleetPMCeiling keeps the mean PM across sites at or below the period
// threshold.
func FleetPMCeiling(p *params.Set, c *Catalog) []milp.Constraint {
	sites := p.Sites()
	w := 1 / float64(len(sites))
	out := make([]milp.Constraint, 0, p.Horizon().Len())
	for _, t := range p.Periods() {
		var e milp.Expr
		for _, r := range sites {
			e.Add(w, c.PM(r, t))
		}
		out = append(out, milp.LE(fmt.Sprintf("R7[%d]", t), e, p.PMAverageMax(t)))
	}
	return out
}

// MaintenanceWater requires the wetting amount whenever maintenance happens.
func MaintenanceWater(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var e milp.Expr
			e.Add(1, c.WaterApplied(r, t)).Add(-p.MaintenanceMinWater(r), c.MaintenanceActive(r, t))
			out = append(out, milp.GE(name("R8", r, t, ""), e, 0))
		}
	}
	return out
}

// MaintenanceCadence requires a maintenance action in every window of
// maintenance_max_gap periods ending at t. Windows are clipped at period 0.
func MaintenanceCadence(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	h := p.Horizon()
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var e milp.Expr
			for _, t2 := range h.Trailing(t, p.MaintenanceMaxGap()).Periods() {
				e.Add(1, c.MaintenanceActive(r, t2))
			}
			out = append(out, milp.GE(name("R9", r, t, ""), e, 1))
		}
	}
	return out
}

// InstallRequiresMaintenance allows a cover installation only in a period
// with maintenance.
func InstallRequiresMaintenance(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var e milp.Expr
			e.Add(1, c.CoverInstalled(r, t)).Add(-1, c.MaintenanceActive(r, t))
			out = append(out, milp.LE(name("R10", r, t, ""), e, 0))
		}
	}
	return out
}

// CoverPresence derives cover_present from installations: present in t iff
// an installation happened in the trailing cover_duration window, and no two
// installations start within one forward window.
func CoverPresence(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	h := p.Horizon()
	for _, r := range p.Sites() {
		dur := p.CoverDuration(r)
		for _, t := range p.Periods() {
			z := c.CoverPresent(r, t)
			trailing := h.Trailing(t, dur)
			upper := milp.Sum(z)
			for _, t2 := range trailing.Periods() {
				y := c.CoverInstalled(r, t2)
				var lo milp.Expr
				lo.Add(1, z).Add(-1, y)
				out = append(out, milp.GE(name("R11", r, t, fmt.Sprintf("from%d", t2)), lo, 0))
				upper.Add(-1, y)
			}
			out = append(out, milp.LE(name("R11", r, t, "recent"), upper, 0))

			var once milp.Expr
			for _, t2 := range h.Forward(t, dur).Periods() {
				once.Add(1, c.CoverInstalled(r, t2))
			}
			out = append(out, milp.LE(name("R11", r, t, "single"), once, 1))
		}
	}
	return out
}

// Budget caps the total spending on water, covers, maintenance and transport.
func Budget(p *params.Set, c *Catalog) []milp.Constraint {
	var e milp.Expr
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			e.Add(p.WaterCost(r, t), c.WaterApplied(r, t)).
				Add(p.CoverMaintenanceCost(r, t), c.CoverPresent(r, t)).
				Add(p.MaintenanceCost(r, t), c.MaintenanceActive(r, t)).
				Add(p.CoverInstallCost(r, t), c.CoverInstalled(r, t))
		}
	}
	for _, a := range p.Arcs() {
		for _, t := range p.Periods() {
			e.Add(p.ArcCost(a), c.Flow(a, t))
		}
	}
	return []milp.Constraint{milp.LE("R12", e, p.Budget())}
}

// NodeBalance conserves flow at every intermediate node.
func NodeBalance(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	n := p.Network()
	for _, node := range n.Intermediate {
		in, outArcs := n.Inbound(node), n.Outbound(node)
		if len(in) == 0 && len(outArcs) == 0 {
			continue
		}
		for _, t := range p.Periods() {
			var e milp.Expr
			for _, a := range in {
				e.Add(1, c.Flow(a, t))
			}
			for _, a := range outArcs {
				e.Add(-1, c.Flow(a, t))
			}
			out = append(out, milp.EQ(name("R13", node, t, ""), e, 0))
		}
	}
	return out
}

// SourceInitial sets the inventory of every source in period 0.
func SourceInitial(p *params.Set, c *Catalog) []milp.Constraint {
	out := make([]milp.Constraint, 0, len(p.Sources()))
	for _, f := range p.Sources() {
		out = append(out, milp.EQ(name("R14", f, 0, ""), milp.Sum(c.SourceInventory(f, 0)), p.InitialInventory(f)))
	}
	return out
}

func outflow(p *params.Set, c *Catalog, f string, t int) milp.Expr {
	var e milp.Expr
	for _, a := range p.Network().Outbound(f) {
		e.Add(1, c.Flow(a, t))
	}
	return e
}

// SourceBalance updates source inventories for t > 0:
// W[t] = W[t−1] + inflow − outflow.
func SourceBalance(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, f := range p.Sources() {
		for _, t := range p.Periods() {
			if t == 0 {
				continue
			}
			var e milp.Expr
			e.Add(1, c.SourceInventory(f, t)).Add(-1, c.SourceInventory(f, t-1))
			e.AddExpr(1, outflow(p, c, f, t))
			out = append(out, milp.EQ(name("R15", f, t, ""), e, p.Inflow(f, t)))
		}
	}
	return out
}

// SourceExtraction limits outflow to what the source holds: the inflow alone
// in period 0, the previous inventory plus inflow afterwards.
func SourceExtraction(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, f := range p.Sources() {
		if len(p.Network().Outbound(f)) == 0 {
			continue
		}
		for _, t := range p.Periods() {
			e := outflow(p, c, f, t)
			if t > 0 {
				e.Add(-1, c.SourceInventory(f, t-1))
			}
			out = append(out, milp.LE(name("R16", f, t, ""), e, p.Inflow(f, t)))
		}
	}
	return out
}

// SiteDemand routes exactly the applied water into each site.
func SiteDemand(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	n := p.Network()
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			var e milp.Expr
			for _, a := range n.Inbound(r) {
				e.Add(1, c.Flow(a, t))
			}
			e.Add(-1, c.WaterApplied(r, t))
			out = append(out, milp.EQ(name("R17", r, t, ""), e, 0))
		}
	}
	return out
}

// ArcCapacity bounds the flow on each arc by its monthly capacity.
func ArcCapacity(p *params.Set, c *Catalog) []milp.Constraint {
	var out []milp.Constraint
	for _, a := range p.Arcs() {
		for _, t := range p.Periods() {
			out = append(out, milp.LE(name("R18", a.String(), t, ""), milp.Sum(c.Flow(a, t)), p.ArcCapacity(a)))
		}
	}
	return out
}

// Objective is the cumulative PM over all sites and periods.
func Objective(p *params.Set, c *Catalog) milp.Expr {
	var e milp.Expr
	for _, r := range p.Sites() {
		for _, t := range p.Periods() {
			e.Add(1, c.PM(r, t))
		}
	}
	return e
}
