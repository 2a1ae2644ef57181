package config

import (
	"fmt"
	"time"

	"github.com/kilianp07/dustplan/core/milp"
)

// SolverConfig tunes the branch-and-bound search.
type SolverConfig struct {
	TimeLimitSeconds     float64 `json:"time_limit_seconds"`
	Tolerance            float64 `json:"tolerance"`
	IntegralityTolerance float64 `json:"integrality_tolerance"`
	MaxNodes             int     `json:"max_nodes"`
	// AcceptTimeLimit reads the incumbent of a search stopped by the time
	// limit instead of failing the run.
	AcceptTimeLimit bool `json:"accept_time_limit"`
}

// SetDefaults bounds the search to two minutes.
func (c *SolverConfig) SetDefaults() {
	if c.TimeLimitSeconds == 0 {
		c.TimeLimitSeconds = 120
	}
}

// Validate rejects negative limits and tolerances.
func (c SolverConfig) Validate() error {
	if c.TimeLimitSeconds < 0 || c.Tolerance < 0 || c.IntegralityTolerance < 0 || c.MaxNodes < 0 {
		return fmt.Errorf("solver: limits and tolerances must not be negative")
	}
	if c.IntegralityTolerance >= 0.5 {
		return fmt.Errorf("solver: integrality_tolerance must be below 0.5")
	}
	return nil
}

// Options converts the section to solve options.
func (c SolverConfig) Options() milp.SolveOptions {
	return milp.SolveOptions{
		TimeLimit:            time.Duration(c.TimeLimitSeconds * float64(time.Second)),
		Tolerance:            c.Tolerance,
		IntegralityTolerance: c.IntegralityTolerance,
		MaxNodes:             c.MaxNodes,
	}.WithDefaults()
}

// ExportConfig writes every readable plan to Path when set.
type ExportConfig struct {
	Path string `json:"path"`
	// Format is "json" or "csv"; empty derives it from the extension.
	Format string `json:"format"`
}
