package config

// ReferencePlanning is the reference instance: twelve months, three
// tailings sites fed by two sources through two intermediate nodes.
func ReferencePlanning() PlanningConfig {
	f := func(v float64) *float64 { return &v }
	arc := func(from, to string) ArcConfig {
		return ArcConfig{From: from, To: to, Cost: f(5), Capacity: f(500)}
	}
	return PlanningConfig{
		Months:       12,
		Sites:        []string{"R1", "R2", "R3"},
		Sources:      []string{"F1", "F2"},
		Intermediate: []string{"N1", "N2"},
		Arcs: []ArcConfig{
			arc("F1", "N1"), arc("F2", "N1"), arc("N1", "N2"),
			arc("N2", "R1"), arc("N2", "R2"), arc("N1", "R3"),
		},

		WaterCost:            PerEntityPeriod{Default: f(1)},
		CoverInstallCost:     PerEntityPeriod{Default: f(5)},
		CoverMaintenanceCost: PerEntityPeriod{Default: f(2)},
		MaintenanceCost:      PerEntityPeriod{Default: f(3)},
		PMAdded:              PerEntityPeriod{Default: f(2)},
		PMMax:                PerEntityPeriod{Default: f(25)},
		PMAverageMax:         PerPeriod{Default: f(20)},

		PMBase:                Uniform(10.0),
		WaterReductionRate:    Uniform(0.1),
		CoverMaxReduction:     Uniform(5.0),
		MaintenanceMinWater:   Uniform(50.0),
		CoverWaterRequirement: Uniform(40.0),
		MaxWater:              Uniform(300.0),
		MinWater:              Uniform(50.0),
		CoverDuration:         Uniform(3),

		InitialInventory: Uniform(1000.0),
		Inflow:           PerEntityPeriod{Default: f(100)},

		Budget:            10000,
		MaintenanceMaxGap: 4,
		CoverWaterGrace:   3,
	}
}
