package sim

import (
	"math"
	"time"
)

// DateLayout is the calendar date format used in logs, errors and output.
const DateLayout = "2006-01-02"

// EpidemicState is one (S, E, I, R) sample.
type EpidemicState struct {
	S, E, I, R float64
}

// Total returns S+E+I+R.
func (s EpidemicState) Total() float64 { return s.S + s.E + s.I + s.R }

func (s EpidemicState) vector() [4]float64 { return [4]float64{s.S, s.E, s.I, s.R} }

func stateFromVector(v [4]float64) EpidemicState {
	return EpidemicState{S: v[0], E: v[1], I: v[2], R: v[3]}
}

func (s EpidemicState) finite() bool {
	for _, v := range s.vector() {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Trajectory holds one state per simulation day as four aligned sequences.
// It is produced once by Integrate and read-only afterwards.
type Trajectory struct {
	S, E, I, R []float64
}

// Len returns the number of simulated days.
func (t Trajectory) Len() int { return len(t.S) }

// At returns the state on day i.
func (t Trajectory) At(i int) EpidemicState {
	return EpidemicState{S: t.S[i], E: t.E[i], I: t.I[i], R: t.R[i]}
}

func newTrajectory(n int) Trajectory {
	return Trajectory{
		S: make([]float64, n),
		E: make([]float64, n),
		I: make([]float64, n),
		R: make([]float64, n),
	}
}

func (t Trajectory) set(i int, s EpidemicState) {
	t.S[i], t.E[i], t.I[i], t.R[i] = s.S, s.E, s.I, s.R
}

// daysBetween returns whole calendar days from a to b.
func daysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(math.Round(bd.Sub(ad).Hours() / 24))
}

// addDays returns the calendar date n days after t.
func addDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}
