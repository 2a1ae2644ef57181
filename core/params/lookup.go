package params

import (
	"fmt"

	"github.com/kilianp07/dustplan/core/model"
)

// Network returns the instance topology.
func (s *Set) Network() *model.Network { return s.network }

// Horizon returns the planning horizon.
func (s *Set) Horizon() model.Horizon { return s.horizon }

// Sites returns the tailings site identifiers.
func (s *Set) Sites() []string { return s.network.Sites }

// Sources returns the water source identifiers.
func (s *Set) Sources() []string { return s.network.Sources }

// Arcs returns the network arcs.
func (s *Set) Arcs() []model.Arc { return s.network.Arcs }

// Periods returns the ordered periods of the horizon.
func (s *Set) Periods() []int { return s.horizon.Periods() }

// Lookups below cannot miss for indices inside the instance: Build rejected
// incomplete coverage. A miss means the caller used an index outside the
// instance, which is a programming error.

func sp(m map[SitePeriod]float64, name, r string, t int) float64 {
	v, ok := m[SitePeriod{Site: r, Period: t}]
	if !ok {
		panic(fmt.Sprintf("params: %s[%s,%d] outside the instance", name, r, t))
	}
	return v
}

func ent(m map[string]float64, name, id string) float64 {
	v, ok := m[id]
	if !ok {
		panic(fmt.Sprintf("params: %s[%s] outside the instance", name, id))
	}
	return v
}

// WaterCost is the cost per ton of water applied at site r in period t.
func (s *Set) WaterCost(r string, t int) float64 { return sp(s.in.WaterCost, "water_cost", r, t) }

// CoverInstallCost is the cost of installing a cover at site r in period t.
func (s *Set) CoverInstallCost(r string, t int) float64 {
	return sp(s.in.CoverInstallCost, "cover_install_cost", r, t)
}

// CoverMaintenanceCost is the cost of keeping a cover at site r in period t.
func (s *Set) CoverMaintenanceCost(r string, t int) float64 {
	return sp(s.in.CoverMaintenanceCost, "cover_maintenance_cost", r, t)
}

// MaintenanceCost is the opportunity cost of maintaining site r in period t.
func (s *Set) MaintenanceCost(r string, t int) float64 {
	return sp(s.in.MaintenanceCost, "maintenance_cost", r, t)
}

// PMAdded is the PM deposited at site r during period t.
func (s *Set) PMAdded(r string, t int) float64 { return sp(s.in.PMAdded, "pm_added", r, t) }

// PMMax is the PM ceiling for site r in period t.
func (s *Set) PMMax(r string, t int) float64 { return sp(s.in.PMMax, "pm_max", r, t) }

// PMAverageMax is the fleet-average PM ceiling in period t.
func (s *Set) PMAverageMax(t int) float64 {
	v, ok := s.in.PMAverageMax[t]
	if !ok {
		panic(fmt.Sprintf("params: pm_average_max[%d] outside the instance", t))
	}
	return v
}

// PMBase is the PM concentration at site r before the first period.
func (s *Set) PMBase(r string) float64 { return ent(s.in.PMBase, "pm_base", r) }

// WaterReductionRate is the PM removed per ton of direct water at site r.
func (s *Set) WaterReductionRate(r string) float64 {
	return ent(s.in.WaterReductionRate, "water_reduction_rate", r)
}

// CoverMaxReduction is the PM a fully watered cover removes per period.
func (s *Set) CoverMaxReduction(r string) float64 {
	return ent(s.in.CoverMaxReduction, "cover_max_reduction", r)
}

// MaintenanceMinWater is the water needed to wet site r during maintenance.
func (s *Set) MaintenanceMinWater(r string) float64 {
	return ent(s.in.MaintenanceMinWater, "maintenance_min_water", r)
}

// CoverWaterRequirement is the monthly water that keeps the cover at its
// optimal level.
func (s *Set) CoverWaterRequirement(r string) float64 {
	return ent(s.in.CoverWaterRequirement, "cover_water_requirement", r)
}

// MaxWater caps the direct water applied to site r in a period.
func (s *Set) MaxWater(r string) float64 { return ent(s.in.MaxWater, "max_water", r) }

// MinWater is the minimum effective dose once site r is watered.
func (s *Set) MinWater(r string) float64 { return ent(s.in.MinWater, "min_water", r) }

// CoverDuration is the number of periods a cover persists after install.
func (s *Set) CoverDuration(r string) int {
	v, ok := s.in.CoverDuration[r]
	if !ok {
		panic(fmt.Sprintf("params: cover_duration[%s] outside the instance", r))
	}
	return v
}

// InitialInventory is the water stored at source f before period 0.
func (s *Set) InitialInventory(f string) float64 {
	return ent(s.in.InitialInventory, "initial_inventory", f)
}

// Inflow is the net water entering source f during period t.
func (s *Set) Inflow(f string, t int) float64 {
	v, ok := s.in.Inflow[SourcePeriod{Source: f, Period: t}]
	if !ok {
		panic(fmt.Sprintf("params: inflow[%s,%d] outside the instance", f, t))
	}
	return v
}

// ArcCost is the transport cost per ton on arc a.
func (s *Set) ArcCost(a model.Arc) float64 {
	v, ok := s.in.ArcCost[a]
	if !ok {
		panic(fmt.Sprintf("params: arc_cost[%s] outside the instance", a))
	}
	return v
}

// ArcCapacity is the monthly capacity of arc a.
func (s *Set) ArcCapacity(a model.Arc) float64 {
	v, ok := s.in.ArcCapacity[a]
	if !ok {
		panic(fmt.Sprintf("params: arc_capacity[%s] outside the instance", a))
	}
	return v
}

// Budget is the spending cap over the whole horizon.
func (s *Set) Budget() float64 { return s.in.Budget }

// MaintenanceMaxGap is the longest run of periods allowed without maintenance.
func (s *Set) MaintenanceMaxGap() int { return s.in.MaintenanceMaxGap }

// CoverWaterGrace is the window over which an under-watered cover is tolerated.
func (s *Set) CoverWaterGrace() int { return s.in.CoverWaterGrace }
