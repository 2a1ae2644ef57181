package config

import (
	"fmt"

	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params"
)

// ArcConfig is a directed network arc with its unit cost and capacity.
type ArcConfig struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	Cost     *float64 `json:"cost"`
	Capacity *float64 `json:"capacity"`
}

// PlanningConfig describes a planning instance: topology, horizon and every
// parameter of the dust model.
type PlanningConfig struct {
	Months       int         `json:"months"`
	Sites        []string    `json:"sites"`
	Sources      []string    `json:"sources"`
	Intermediate []string    `json:"intermediate"`
	Arcs         []ArcConfig `json:"arcs"`

	WaterCost            PerEntityPeriod `json:"water_cost"`
	CoverInstallCost     PerEntityPeriod `json:"cover_install_cost"`
	CoverMaintenanceCost PerEntityPeriod `json:"cover_maintenance_cost"`
	MaintenanceCost      PerEntityPeriod `json:"maintenance_cost"`
	PMAdded              PerEntityPeriod `json:"pm_added"`
	PMMax                PerEntityPeriod `json:"pm_max"`
	PMAverageMax         PerPeriod       `json:"pm_average_max"`

	PMBase                PerEntity[float64] `json:"pm_base"`
	WaterReductionRate    PerEntity[float64] `json:"water_reduction_rate"`
	CoverMaxReduction     PerEntity[float64] `json:"cover_max_reduction"`
	MaintenanceMinWater   PerEntity[float64] `json:"maintenance_min_water"`
	CoverWaterRequirement PerEntity[float64] `json:"cover_water_requirement"`
	MaxWater              PerEntity[float64] `json:"max_water"`
	MinWater              PerEntity[float64] `json:"min_water"`
	CoverDuration         PerEntity[int]     `json:"cover_duration"`

	InitialInventory PerEntity[float64] `json:"initial_inventory"`
	Inflow           PerEntityPeriod    `json:"inflow"`

	Budget            float64 `json:"budget"`
	MaintenanceMaxGap int     `json:"maintenance_max_gap"`
	CoverWaterGrace   int     `json:"cover_water_grace"`
}

// Network validates and returns the topology of the instance.
func (p PlanningConfig) Network() (*model.Network, error) {
	arcs := make([]model.Arc, len(p.Arcs))
	for i, a := range p.Arcs {
		arcs[i] = model.Arc{From: a.From, To: a.To}
	}
	return model.NewNetwork(p.Sites, p.Sources, p.Intermediate, arcs)
}

// ParameterInput expands defaults and overrides into a params.Input. Values
// left unset stay absent so params.Build reports them as missing. Errors
// match params.ErrConfiguration.
func (p PlanningConfig) ParameterInput() (params.Input, error) {
	in, err := p.parameterInput()
	if err != nil {
		return params.Input{}, fmt.Errorf("planning: %w: %w", params.ErrConfiguration, err)
	}
	return in, nil
}

func (p PlanningConfig) parameterInput() (params.Input, error) {
	if p.Months <= 0 {
		return params.Input{}, fmt.Errorf("months must be positive")
	}
	n, err := p.Network()
	if err != nil {
		return params.Input{}, err
	}
	h := model.NewHorizon(p.Months)
	periods := h.Periods()
	in := params.Input{
		Network:           n,
		Horizon:           h,
		Inflow:            map[params.SourcePeriod]float64{},
		ArcCost:           map[model.Arc]float64{},
		ArcCapacity:       map[model.Arc]float64{},
		Budget:            p.Budget,
		MaintenanceMaxGap: p.MaintenanceMaxGap,
		CoverWaterGrace:   p.CoverWaterGrace,
	}

	sitePeriod := []struct {
		name string
		src  PerEntityPeriod
		dst  *map[params.SitePeriod]float64
	}{
		{"water_cost", p.WaterCost, &in.WaterCost},
		{"cover_install_cost", p.CoverInstallCost, &in.CoverInstallCost},
		{"cover_maintenance_cost", p.CoverMaintenanceCost, &in.CoverMaintenanceCost},
		{"maintenance_cost", p.MaintenanceCost, &in.MaintenanceCost},
		{"pm_added", p.PMAdded, &in.PMAdded},
		{"pm_max", p.PMMax, &in.PMMax},
	}
	for _, sp := range sitePeriod {
		m := map[params.SitePeriod]float64{}
		if err := sp.src.expand(sp.name, n.Sites, periods, func(r string, t int, v float64) {
			m[params.SitePeriod{Site: r, Period: t}] = v
		}); err != nil {
			return params.Input{}, err
		}
		*sp.dst = m
	}
	if err := p.Inflow.expand("inflow", n.Sources, periods, func(f string, t int, v float64) {
		in.Inflow[params.SourcePeriod{Source: f, Period: t}] = v
	}); err != nil {
		return params.Input{}, err
	}
	if in.PMAverageMax, err = p.PMAverageMax.expand("pm_average_max", periods); err != nil {
		return params.Input{}, err
	}

	perSite := []struct {
		name string
		src  PerEntity[float64]
		dst  *map[string]float64
	}{
		{"pm_base", p.PMBase, &in.PMBase},
		{"water_reduction_rate", p.WaterReductionRate, &in.WaterReductionRate},
		{"cover_max_reduction", p.CoverMaxReduction, &in.CoverMaxReduction},
		{"maintenance_min_water", p.MaintenanceMinWater, &in.MaintenanceMinWater},
		{"cover_water_requirement", p.CoverWaterRequirement, &in.CoverWaterRequirement},
		{"max_water", p.MaxWater, &in.MaxWater},
		{"min_water", p.MinWater, &in.MinWater},
	}
	for _, ps := range perSite {
		if *ps.dst, err = ps.src.expand(ps.name, n.Sites); err != nil {
			return params.Input{}, err
		}
	}
	if in.CoverDuration, err = p.CoverDuration.expand("cover_duration", n.Sites); err != nil {
		return params.Input{}, err
	}
	if in.InitialInventory, err = p.InitialInventory.expand("initial_inventory", n.Sources); err != nil {
		return params.Input{}, err
	}

	for _, a := range p.Arcs {
		arc := model.Arc{From: a.From, To: a.To}
		if a.Cost != nil {
			in.ArcCost[arc] = *a.Cost
		}
		if a.Capacity != nil {
			in.ArcCapacity[arc] = *a.Capacity
		}
	}
	return in, nil
}

// Parameters builds the validated parameter set of the instance.
func (p PlanningConfig) Parameters() (*params.Set, error) {
	in, err := p.ParameterInput()
	if err != nil {
		return nil, err
	}
	return params.Build(in)
}
