package sim

import (
	"math"
	"sort"
)

// TransmissionPolicy maps a simulation day to the transmission rate beta.
// Implementations MUST be pure: the integrator evaluates them at arbitrary,
// non-monotonic stage times.
type TransmissionPolicy interface {
	Rate(day float64) float64
}

// ConstantRate applies one beta for the whole horizon.
type ConstantRate struct {
	Beta float64
}

func (c ConstantRate) Rate(_ float64) float64 { return c.Beta }

// Breakpoint switches the transmission rate to Beta from Day on.
type Breakpoint struct {
	Day  float64
	Beta float64
}

// PiecewiseConstant is a step function: Initial before the first breakpoint,
// then the Beta of the last breakpoint whose Day is <= day.
type PiecewiseConstant struct {
	initial float64
	breaks  []Breakpoint
}

// NewPiecewiseConstant builds a step policy. Breakpoint days must be strictly
// increasing and every rate finite and non-negative.
func NewPiecewiseConstant(initial float64, breaks ...Breakpoint) (*PiecewiseConstant, error) {
	const op = "build transmission policy"
	if !validRate(initial) {
		return nil, newError(KindConfiguration, op, Params{"beta": initial}, "initial rate must be finite and non-negative")
	}
	for i, b := range breaks {
		if !validRate(b.Beta) || math.IsNaN(b.Day) || math.IsInf(b.Day, 0) {
			return nil, newError(KindConfiguration, op, Params{"breakpoint": i, "day": b.Day, "beta": b.Beta}, "breakpoint must have a finite day and a finite non-negative rate")
		}
		if i > 0 && b.Day <= breaks[i-1].Day {
			return nil, newError(KindConfiguration, op, Params{"breakpoint": i, "day": b.Day, "previousDay": breaks[i-1].Day}, "breakpoint days must be strictly increasing")
		}
	}
	return &PiecewiseConstant{initial: initial, breaks: append([]Breakpoint(nil), breaks...)}, nil
}

// Rate returns beta for day using binary search over the breakpoints.
func (p *PiecewiseConstant) Rate(day float64) float64 {
	// first breakpoint strictly after day
	idx := sort.Search(len(p.breaks), func(i int) bool { return p.breaks[i].Day > day })
	if idx == 0 {
		return p.initial
	}
	return p.breaks[idx-1].Beta
}

// Breakpoints returns a copy of the change points.
func (p *PiecewiseConstant) Breakpoints() []Breakpoint {
	return append([]Breakpoint(nil), p.breaks...)
}

func validRate(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// BuildPolicy assembles the step policy for c: beta0 until the lockdown,
// beta1 after it, then one breakpoint per extra phase.
func BuildPolicy(c Config, d Derived) (*PiecewiseConstant, error) {
	breaks := []Breakpoint{{Day: float64(d.DaysBeforeLockdown), Beta: d.Beta1}}
	for _, ph := range c.Phases {
		breaks = append(breaks, Breakpoint{
			Day:  float64(daysBetween(c.FirstInfection, ph.Date)),
			Beta: ph.R * d.Gamma,
		})
	}
	return NewPiecewiseConstant(d.Beta0, breaks...)
}
