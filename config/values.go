package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// PerEntity is a value indexed by site or source: Default applies to every
// entity and Overrides replaces it for the named ones.
type PerEntity[T int | float64] struct {
	Default   *T           `json:"default"`
	Overrides map[string]T `json:"overrides"`
}

// Uniform returns a PerEntity holding v for every entity.
func Uniform[T int | float64](v T) PerEntity[T] { return PerEntity[T]{Default: &v} }

func (p PerEntity[T]) expand(name string, entities []string) (map[string]T, error) {
	if err := unknownKeys(name, keys(p.Overrides), entities); err != nil {
		return nil, err
	}
	out := make(map[string]T, len(entities))
	for _, e := range entities {
		if v, ok := p.Overrides[e]; ok {
			out[e] = v
		} else if p.Default != nil {
			out[e] = *p.Default
		}
	}
	return out, nil
}

// PerPeriod is a value indexed by period. Override keys are period numbers.
type PerPeriod struct {
	Default   *float64           `json:"default"`
	Overrides map[string]float64 `json:"overrides"`
}

func (p PerPeriod) expand(name string, periods []int) (map[int]float64, error) {
	over := make(map[int]float64, len(p.Overrides))
	for k, v := range p.Overrides {
		t, err := strconv.Atoi(k)
		if err != nil || t < 0 || t >= len(periods) {
			return nil, fmt.Errorf("%s: override %q is not a period of the horizon", name, k)
		}
		over[t] = v
	}
	out := make(map[int]float64, len(periods))
	for _, t := range periods {
		if v, ok := over[t]; ok {
			out[t] = v
		} else if p.Default != nil {
			out[t] = *p.Default
		}
	}
	return out, nil
}

// PerEntityPeriod is a value indexed by (entity, period). The most specific
// entry wins: Cells ("R1/3") over Entities ("R1") over Default.
type PerEntityPeriod struct {
	Default  *float64           `json:"default"`
	Entities map[string]float64 `json:"entities"`
	Cells    map[string]float64 `json:"cells"`
}

type cell struct {
	entity string
	period int
}

func (p PerEntityPeriod) expand(name string, entities []string, periods []int, set func(e string, t int, v float64)) error {
	if err := unknownKeys(name, keys(p.Entities), entities); err != nil {
		return err
	}
	cells := make(map[cell]float64, len(p.Cells))
	cellEntities := make([]string, 0, len(p.Cells))
	for k, v := range p.Cells {
		e, ts, ok := strings.Cut(k, "/")
		t, err := strconv.Atoi(ts)
		if !ok || err != nil || t < 0 || t >= len(periods) {
			return fmt.Errorf("%s: cell %q must be <entity>/<period> within the horizon", name, k)
		}
		cells[cell{e, t}] = v
		cellEntities = append(cellEntities, e)
	}
	if err := unknownKeys(name, cellEntities, entities); err != nil {
		return err
	}
	for _, e := range entities {
		for _, t := range periods {
			if v, ok := cells[cell{e, t}]; ok {
				set(e, t, v)
			} else if v, ok := p.Entities[e]; ok {
				set(e, t, v)
			} else if p.Default != nil {
				set(e, t, *p.Default)
			}
		}
	}
	return nil
}

func keys[T any](m map[string]T) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func unknownKeys(name string, got, known []string) error {
	set := make(map[string]bool, len(known))
	for _, k := range known {
		set[k] = true
	}
	for _, k := range got {
		if !set[k] {
			return fmt.Errorf("%s: unknown entity %q", name, k)
		}
	}
	return nil
}
