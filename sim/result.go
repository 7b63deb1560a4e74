package sim

import (
	"fmt"
	"time"

	"gonum.org/v1/gonum/floats"
)

// Point is one dated value of an aligned series.
type Point struct {
	Date  time.Time
	Value float64
}

// Series is a named, calendar-aligned sequence.
type Series struct {
	Name   string
	Points []Point
}

// Series names produced by Result.Aligned, in output order.
const (
	SeriesSusceptible        = "susceptible"
	SeriesExposed            = "exposed"
	SeriesInfectious         = "infectious"
	SeriesRecovered          = "recovered"
	SeriesDetectedCases      = "detected_cases"
	SeriesCumulativeCases    = "cumulative_cases"
	SeriesICULoad            = "icu_load"
	SeriesDeaths             = "deaths"
	SeriesInfectedPerMillion = "infected_per_million"
)

// Summary holds the scalars reported for a run.
type Summary struct {
	RunID              string    `yaml:"run_id"`
	Population         float64   `yaml:"population"`
	Sigma              float64   `yaml:"sigma"`
	Gamma              float64   `yaml:"gamma"`
	Beta0              float64   `yaml:"beta0"`
	Beta1              float64   `yaml:"beta1"`
	DoublingTime       float64   `yaml:"doubling_time"`
	DetectionFraction  float64   `yaml:"detection_fraction"`
	ResolvedOffset     int       `yaml:"resolved_offset"`
	OffsetAuto         bool      `yaml:"offset_auto"`
	Discrepancy        float64   `yaml:"discrepancy"`
	LockdownDate       time.Time `yaml:"lockdown_date,omitempty"` // zero when the lockdown falls after the last simulated day
	PeakInfectiousDay  int       `yaml:"peak_infectious_day"`
	PeakInfectiousDate time.Time `yaml:"peak_infectious_date"`
	PeakICUDay         int       `yaml:"peak_icu_day"`
	PeakICUDate        time.Time `yaml:"peak_icu_date"`
	PeakICULoad        float64   `yaml:"peak_icu_load"`
	ICUOverflowDays    int       `yaml:"icu_overflow_days"`
	TotalDeaths        float64   `yaml:"total_deaths"`
}

// Result is the complete output of one pipeline run.
type Result struct {
	RunID       string
	Config      Config
	Derived     Derived
	Population  float64
	Dates       []time.Time // calendar date of each simulation day
	Trajectory  Trajectory
	Observables ObservableSeries
	Observed    ObservedSeries
	Alignment   Alignment
	Phases      []Breakpoint
	Summary     Summary
}

// Aligned returns the trajectory and observable series as dated points.
func (r *Result) Aligned() []Series {
	named := []struct {
		name   string
		values []float64
	}{
		{SeriesSusceptible, r.Trajectory.S},
		{SeriesExposed, r.Trajectory.E},
		{SeriesInfectious, r.Trajectory.I},
		{SeriesRecovered, r.Trajectory.R},
		{SeriesDetectedCases, r.Observables.DetectedCases},
		{SeriesCumulativeCases, r.Observables.CumulativeCases},
		{SeriesICULoad, r.Observables.ICULoad},
		{SeriesDeaths, r.Observables.Deaths},
		{SeriesInfectedPerMillion, r.Observables.InfectedPerMillion},
	}
	out := make([]Series, 0, len(named))
	for _, n := range named {
		points := make([]Point, len(n.values))
		for i, v := range n.values {
			points[i] = Point{Date: r.Dates[i], Value: v}
		}
		out = append(out, Series{Name: n.name, Points: points})
	}
	return out
}

// DayReport is a snapshot of the main quantities on one simulation day.
type DayReport struct {
	Day             int
	Date            time.Time
	Infectious      float64
	DetectedCases   float64
	CumulativeCases float64
	ICULoad         float64
	Recovered       float64
	Deaths          float64
	Population      float64
}

// Percent returns v as a percentage of the population.
func (d DayReport) Percent(v float64) float64 {
	return v * 100 / d.Population
}

// DayReport returns the snapshot of simulation day i.
func (r *Result) DayReport(i int) (DayReport, error) {
	if i < 0 || i >= r.Trajectory.Len() {
		return DayReport{}, fmt.Errorf("day %d outside simulated range [0, %d)", i, r.Trajectory.Len())
	}
	return DayReport{
		Day:             i,
		Date:            r.Dates[i],
		Infectious:      r.Trajectory.I[i],
		DetectedCases:   r.Observables.DetectedCases[i],
		CumulativeCases: r.Observables.CumulativeCases[i],
		ICULoad:         r.Observables.ICULoad[i],
		Recovered:       r.Trajectory.R[i],
		Deaths:          r.Observables.Deaths[i],
		Population:      r.Population,
	}, nil
}

func summarize(r *Result) Summary {
	d := r.Derived
	icu := r.Observables.ICULoad
	peakICU := floats.MaxIdx(icu)
	peakI := floats.MaxIdx(r.Trajectory.I)
	overflow := 0
	for _, v := range icu {
		if v > r.Config.ICUCapacity {
			overflow++
		}
	}
	var lockdownDate time.Time
	if d.DaysBeforeLockdown < len(r.Dates) {
		lockdownDate = r.Dates[d.DaysBeforeLockdown]
	}
	deaths := r.Observables.Deaths
	return Summary{
		RunID:              r.RunID,
		Population:         r.Population,
		Sigma:              d.Sigma,
		Gamma:              d.Gamma,
		Beta0:              d.Beta0,
		Beta1:              d.Beta1,
		DoublingTime:       d.DoublingTime,
		DetectionFraction:  r.Config.Epi.DetectionFraction,
		ResolvedOffset:     r.Alignment.Offset,
		OffsetAuto:         r.Alignment.Auto,
		Discrepancy:        r.Alignment.Discrepancy,
		LockdownDate:       lockdownDate,
		PeakInfectiousDay:  peakI,
		PeakInfectiousDate: r.Dates[peakI],
		PeakICUDay:         peakICU,
		PeakICUDate:        r.Dates[peakICU],
		PeakICULoad:        icu[peakICU],
		ICUOverflowDays:    overflow,
		TotalDeaths:        deaths[len(deaths)-1],
	}
}
