package metrics

import (
	"time"

	coremetrics "github.com/kilianp07/dustplan/core/metrics"
	"github.com/kilianp07/dustplan/core/milp"
	"github.com/kilianp07/dustplan/core/report"
)

func sampleRun(ts time.Time) coremetrics.RunResult {
	return coremetrics.RunResult{
		RunID:     "run-1",
		Time:      ts,
		Status:    milp.StatusOptimal,
		Objective: 16,
		Bound:     15,
		Duration:  12 * time.Millisecond,
		Nodes:     3,
		Plan: &report.Plan{
			Status:    "OPTIMAL",
			Proven:    true,
			Objective: 16,
			Bound:     15,
			TotalCost: 553,
			Sites: []report.SiteMonth{
				{Site: "R1", Period: 0, PM: 7, Water: 50, WaterActive: true, Maintenance: true, Cost: 53},
				{Site: "R1", Period: 1, PM: 9},
			},
		},
	}
}
