// Package params holds the immutable parameter set of a planning instance.
//
// Build checks that every indexed parameter covers its full index set
// (site × period, source × period, arc, ...) so the formulation can read any
// value without a presence check. A gap surfaces as a ConfigurationError
// before any constraint is generated.
package params

import (
	"fmt"
	"math"

	"github.com/kilianp07/dustplan/core/model"
)

// SitePeriod indexes a value by tailings site and period.
type SitePeriod struct {
	Site   string
	Period int
}

func (k SitePeriod) String() string { return fmt.Sprintf("[%s,%d]", k.Site, k.Period) }

// SourcePeriod indexes a value by water source and period.
type SourcePeriod struct {
	Source string
	Period int
}

func (k SourcePeriod) String() string { return fmt.Sprintf("[%s,%d]", k.Source, k.Period) }

// Input is the raw material for a Set. Maps are copied by Build.
type Input struct {
	Network *model.Network
	Horizon model.Horizon

	WaterCost            map[SitePeriod]float64
	CoverInstallCost     map[SitePeriod]float64
	CoverMaintenanceCost map[SitePeriod]float64
	MaintenanceCost      map[SitePeriod]float64
	PMAdded              map[SitePeriod]float64
	PMMax                map[SitePeriod]float64
	PMAverageMax         map[int]float64

	PMBase                map[string]float64
	WaterReductionRate    map[string]float64
	CoverMaxReduction     map[string]float64
	MaintenanceMinWater   map[string]float64
	CoverWaterRequirement map[string]float64
	MaxWater              map[string]float64
	MinWater              map[string]float64
	CoverDuration         map[string]int

	InitialInventory map[string]float64
	Inflow           map[SourcePeriod]float64

	ArcCost     map[model.Arc]float64
	ArcCapacity map[model.Arc]float64

	Budget            float64
	MaintenanceMaxGap int
	CoverWaterGrace   int
}

// Set is the validated, read-only parameter set.
type Set struct {
	network *model.Network
	horizon model.Horizon
	in      Input
}

// Build validates coverage and values and returns an immutable Set.
func Build(in Input) (*Set, error) {
	if in.Network == nil {
		return nil, invalid("network", "", "is required")
	}
	if in.Horizon.Len() == 0 {
		return nil, invalid("horizon", "", "must contain at least one period")
	}
	s := &Set{network: in.Network, horizon: in.Horizon}
	var err error
	sitePeriod := []struct {
		name   string
		src    map[SitePeriod]float64
		dst    *map[SitePeriod]float64
		nonNeg bool
	}{
		{"water_cost", in.WaterCost, &s.in.WaterCost, true},
		{"cover_install_cost", in.CoverInstallCost, &s.in.CoverInstallCost, true},
		{"cover_maintenance_cost", in.CoverMaintenanceCost, &s.in.CoverMaintenanceCost, true},
		{"maintenance_cost", in.MaintenanceCost, &s.in.MaintenanceCost, true},
		{"pm_added", in.PMAdded, &s.in.PMAdded, false},
		{"pm_max", in.PMMax, &s.in.PMMax, false},
	}
	for _, p := range sitePeriod {
		if *p.dst, err = copySitePeriod(p.name, p.src, in.Network.Sites, in.Horizon, p.nonNeg); err != nil {
			return nil, err
		}
	}
	s.in.PMAverageMax = make(map[int]float64, in.Horizon.Len())
	for _, t := range in.Horizon.Periods() {
		v, ok := in.PMAverageMax[t]
		if !ok {
			return nil, missing("pm_average_max", fmt.Sprintf("[%d]", t))
		}
		if err := finite("pm_average_max", fmt.Sprintf("[%d]", t), v); err != nil {
			return nil, err
		}
		s.in.PMAverageMax[t] = v
	}

	perSite := []struct {
		name     string
		src      map[string]float64
		dst      *map[string]float64
		positive bool
	}{
		{"pm_base", in.PMBase, &s.in.PMBase, false},
		{"water_reduction_rate", in.WaterReductionRate, &s.in.WaterReductionRate, false},
		{"cover_max_reduction", in.CoverMaxReduction, &s.in.CoverMaxReduction, false},
		{"maintenance_min_water", in.MaintenanceMinWater, &s.in.MaintenanceMinWater, false},
		{"cover_water_requirement", in.CoverWaterRequirement, &s.in.CoverWaterRequirement, true},
		{"max_water", in.MaxWater, &s.in.MaxWater, false},
		{"min_water", in.MinWater, &s.in.MinWater, false},
	}
	for _, p := range perSite {
		if *p.dst, err = copyEntity(p.name, p.src, in.Network.Sites, p.positive); err != nil {
			return nil, err
		}
	}
	s.in.CoverDuration = make(map[string]int, len(in.Network.Sites))
	for _, r := range in.Network.Sites {
		d, ok := in.CoverDuration[r]
		if !ok {
			return nil, missing("cover_duration", "["+r+"]")
		}
		if d <= 0 {
			return nil, invalid("cover_duration", "["+r+"]", "must be positive")
		}
		s.in.CoverDuration[r] = d
	}
	for _, r := range in.Network.Sites {
		if s.in.MinWater[r] > s.in.MaxWater[r] {
			return nil, invalid("min_water", "["+r+"]", "exceeds max_water")
		}
	}

	if s.in.InitialInventory, err = copyEntity("initial_inventory", in.InitialInventory, in.Network.Sources, false); err != nil {
		return nil, err
	}
	s.in.Inflow = make(map[SourcePeriod]float64, len(in.Network.Sources)*in.Horizon.Len())
	for _, f := range in.Network.Sources {
		for _, t := range in.Horizon.Periods() {
			k := SourcePeriod{Source: f, Period: t}
			v, ok := in.Inflow[k]
			if !ok {
				return nil, missing("inflow", k.String())
			}
			if err := nonNegative("inflow", k.String(), v); err != nil {
				return nil, err
			}
			s.in.Inflow[k] = v
		}
	}

	if s.in.ArcCost, err = copyArc("arc_cost", in.ArcCost, in.Network.Arcs); err != nil {
		return nil, err
	}
	if s.in.ArcCapacity, err = copyArc("arc_capacity", in.ArcCapacity, in.Network.Arcs); err != nil {
		return nil, err
	}

	if err := nonNegative("budget", "", in.Budget); err != nil {
		return nil, err
	}
	if in.MaintenanceMaxGap <= 0 {
		return nil, invalid("maintenance_max_gap", "", "must be positive")
	}
	if in.CoverWaterGrace <= 0 {
		return nil, invalid("cover_water_grace", "", "must be positive")
	}
	s.in.Budget = in.Budget
	s.in.MaintenanceMaxGap = in.MaintenanceMaxGap
	s.in.CoverWaterGrace = in.CoverWaterGrace
	return s, nil
}

func copySitePeriod(name string, src map[SitePeriod]float64, sites []string, h model.Horizon, nonNeg bool) (map[SitePeriod]float64, error) {
	if err := unknownSitePeriod(name, src, sites, h); err != nil {
		return nil, err
	}
	out := make(map[SitePeriod]float64, len(sites)*h.Len())
	for _, r := range sites {
		for _, t := range h.Periods() {
			k := SitePeriod{Site: r, Period: t}
			v, ok := src[k]
			if !ok {
				return nil, missing(name, k.String())
			}
			if err := finite(name, k.String(), v); err != nil {
				return nil, err
			}
			if nonNeg {
				if err := nonNegative(name, k.String(), v); err != nil {
					return nil, err
				}
			}
			out[k] = v
		}
	}
	return out, nil
}

func unknownSitePeriod(name string, src map[SitePeriod]float64, sites []string, h model.Horizon) error {
	known := make(map[string]bool, len(sites))
	for _, r := range sites {
		known[r] = true
	}
	for k := range src {
		if !known[k.Site] || !h.Contains(k.Period) {
			return invalid(name, k.String(), "refers to an unknown site or period")
		}
	}
	return nil
}

func copyEntity(name string, src map[string]float64, ids []string, positive bool) (map[string]float64, error) {
	out := make(map[string]float64, len(ids))
	for _, id := range ids {
		key := "[" + id + "]"
		v, ok := src[id]
		if !ok {
			return nil, missing(name, key)
		}
		if err := nonNegative(name, key, v); err != nil {
			return nil, err
		}
		if positive && v == 0 {
			return nil, invalid(name, key, "must be positive")
		}
		out[id] = v
	}
	return out, nil
}

func copyArc(name string, src map[model.Arc]float64, arcs []model.Arc) (map[model.Arc]float64, error) {
	out := make(map[model.Arc]float64, len(arcs))
	for _, a := range arcs {
		key := "[" + a.String() + "]"
		v, ok := src[a]
		if !ok {
			return nil, missing(name, key)
		}
		if err := nonNegative(name, key, v); err != nil {
			return nil, err
		}
		out[a] = v
	}
	return out, nil
}

func finite(name, key string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid(name, key, "must be finite")
	}
	return nil
}

func nonNegative(name, key string, v float64) error {
	if err := finite(name, key, v); err != nil {
		return err
	}
	if v < 0 {
		return invalid(name, key, "must not be negative")
	}
	return nil
}
