// Package paramstest builds small, fully covered parameter inputs for tests.
//
// Single returns the one-site, one-source instance used by most formulation
// and solver tests; callers tweak individual maps before calling params.Build.
package paramstest

import (
	"github.com/kilianp07/dustplan/core/model"
	"github.com/kilianp07/dustplan/core/params"
)

// Values holds the uniform values applied to every index.
type Values struct {
	WaterCost, CoverInstallCost, CoverMaintenanceCost, MaintenanceCost float64
	PMBase, PMAdded, PMMax, PMAverageMax                               float64
	WaterReductionRate, CoverMaxReduction                              float64
	MaintenanceMinWater, CoverWaterRequirement, MaxWater, MinWater     float64
	CoverDuration                                                      int
	InitialInventory, Inflow                                           float64
	ArcCost, ArcCapacity                                               float64
	Budget                                                             float64
	MaintenanceMaxGap, CoverWaterGrace                                 int
}

// Reference returns the values of the reference instance.
func Reference() Values {
	return Values{
		WaterCost: 1, CoverInstallCost: 5, CoverMaintenanceCost: 2, MaintenanceCost: 3,
		PMBase: 10, PMAdded: 2, PMMax: 25, PMAverageMax: 20,
		WaterReductionRate: 0.1, CoverMaxReduction: 5,
		MaintenanceMinWater: 50, CoverWaterRequirement: 40, MaxWater: 300, MinWater: 50,
		CoverDuration:    3,
		InitialInventory: 1000, Inflow: 100,
		ArcCost: 5, ArcCapacity: 500,
		Budget:            10000,
		MaintenanceMaxGap: 4, CoverWaterGrace: 3,
	}
}

// Uniform fills an Input for the network and horizon with v at every index.
func Uniform(n *model.Network, h model.Horizon, v Values) params.Input {
	in := params.Input{
		Network:               n,
		Horizon:               h,
		WaterCost:             map[params.SitePeriod]float64{},
		CoverInstallCost:      map[params.SitePeriod]float64{},
		CoverMaintenanceCost:  map[params.SitePeriod]float64{},
		MaintenanceCost:       map[params.SitePeriod]float64{},
		PMAdded:               map[params.SitePeriod]float64{},
		PMMax:                 map[params.SitePeriod]float64{},
		PMAverageMax:          map[int]float64{},
		PMBase:                map[string]float64{},
		WaterReductionRate:    map[string]float64{},
		CoverMaxReduction:     map[string]float64{},
		MaintenanceMinWater:   map[string]float64{},
		CoverWaterRequirement: map[string]float64{},
		MaxWater:              map[string]float64{},
		MinWater:              map[string]float64{},
		CoverDuration:         map[string]int{},
		InitialInventory:      map[string]float64{},
		Inflow:                map[params.SourcePeriod]float64{},
		ArcCost:               map[model.Arc]float64{},
		ArcCapacity:           map[model.Arc]float64{},
		Budget:                v.Budget,
		MaintenanceMaxGap:     v.MaintenanceMaxGap,
		CoverWaterGrace:       v.CoverWaterGrace,
	}
	for _, r := range n.Sites {
		for _, t := range h.Periods() {
			k := params.SitePeriod{Site: r, Period: t}
			in.WaterCost[k] = v.WaterCost
			in.CoverInstallCost[k] = v.CoverInstallCost
			in.CoverMaintenanceCost[k] = v.CoverMaintenanceCost
			in.MaintenanceCost[k] = v.MaintenanceCost
			in.PMAdded[k] = v.PMAdded
			in.PMMax[k] = v.PMMax
		}
		in.PMBase[r] = v.PMBase
		in.WaterReductionRate[r] = v.WaterReductionRate
		in.CoverMaxReduction[r] = v.CoverMaxReduction
		in.MaintenanceMinWater[r] = v.MaintenanceMinWater
		in.CoverWaterRequirement[r] = v.CoverWaterRequirement
		in.MaxWater[r] = v.MaxWater
		in.MinWater[r] = v.MinWater
		in.CoverDuration[r] = v.CoverDuration
	}
	for _, t := range h.Periods() {
		in.PMAverageMax[t] = v.PMAverageMax
	}
	for _, f := range n.Sources {
		in.InitialInventory[f] = v.InitialInventory
		for _, t := range h.Periods() {
			in.Inflow[params.SourcePeriod{Source: f, Period: t}] = v.Inflow
		}
	}
	for _, a := range n.Arcs {
		in.ArcCost[a] = v.ArcCost
		in.ArcCapacity[a] = v.ArcCapacity
	}
	return in
}

// SingleNetwork is one source feeding one site through one intermediate node.
func SingleNetwork() *model.Network {
	n, err := model.NewNetwork(
		[]string{"R1"},
		[]string{"F1"},
		[]string{"N1"},
		[]model.Arc{{From: "F1", To: "N1"}, {From: "N1", To: "R1"}},
	)
	if err != nil {
		panic(err)
	}
	return n
}

// ReferenceNetwork is the three-site, two-source reference topology.
func ReferenceNetwork() *model.Network {
	n, err := model.NewNetwork(
		[]string{"R1", "R2", "R3"},
		[]string{"F1", "F2"},
		[]string{"N1", "N2"},
		[]model.Arc{
			{From: "F1", To: "N1"}, {From: "F2", To: "N1"}, {From: "N1", To: "N2"},
			{From: "N2", To: "R1"}, {From: "N2", To: "R2"}, {From: "N1", To: "R3"},
		},
	)
	if err != nil {
		panic(err)
	}
	return n
}

// Single returns a one-site instance over periods months with reference values.
func Single(periods int) params.Input {
	return Uniform(SingleNetwork(), model.NewHorizon(periods), Reference())
}

// MustBuild builds the input or panics.
func MustBuild(in params.Input) *params.Set {
	s, err := params.Build(in)
	if err != nil {
		panic(err)
	}
	return s
}
