package model

// Horizon is the ordered list of monthly planning periods {0 … T-1}.
type Horizon struct {
	periods []int
}

// NewHorizon returns a horizon of n periods.
func NewHorizon(n int) Horizon {
	p := make([]int, n)
	for i := range p {
		p[i] = i
	}
	return Horizon{periods: p}
}

// Len returns the number of periods.
func (h Horizon) Len() int { return len(h.periods) }

// Periods returns the ordered period indices.
func (h Horizon) Periods() []int { return append([]int(nil), h.periods...) }

// Contains reports whether t is a period of the horizon.
func (h Horizon) Contains(t int) bool { return t >= 0 && t < len(h.periods) }

// Window is a half-open range of periods [Start, End).
type Window struct {
	Start int
	End   int
}

// Len returns the number of periods in the window.
func (w Window) Len() int {
	if w.End < w.Start {
		return 0
	}
	return w.End - w.Start
}

// Periods lists the periods of the window in order.
func (w Window) Periods() []int {
	out := make([]int, 0, w.Len())
	for t := w.Start; t < w.End; t++ {
		out = append(out, t)
	}
	return out
}

// Trailing returns the window of at most n periods ending at t (inclusive),
// clamped at the start of the horizon.
func (h Horizon) Trailing(t, n int) Window {
	start := t - n + 1
	if start < 0 {
		start = 0
	}
	return Window{Start: start, End: t + 1}
}

// Forward returns the window of at most n periods starting at t, clamped at
// the end of the horizon.
func (h Horizon) Forward(t, n int) Window {
	end := t + n
	if end > len(h.periods) {
		end = len(h.periods)
	}
	return Window{Start: t, End: end}
}
