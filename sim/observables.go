package sim

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// ObservableSeries are the signals derived from a Trajectory. Each is indexed
// by simulation day and already shifted by its own reporting or biological lag.
type ObservableSeries struct {
	DetectedCases      []float64 // infectious found in tests, by report day
	CumulativeCases    []float64 // running sum of DetectedCases
	ICULoad            []float64 // occupied intensive-care beds
	Deaths             []float64 // cumulative deaths, by report day
	InfectedPerMillion []float64 // undelayed I/N * 1e6
}

// FatalityPolicy picks the incremental infection fatality rate for a day from
// the observed ICU load.
type FatalityPolicy struct {
	Capacity   float64
	WithICU    float64 // applied while load <= Capacity
	WithoutICU float64 // applied above Capacity
}

// Rate returns the IFR for the given ICU load.
func (f FatalityPolicy) Rate(icuLoad float64) float64 {
	if icuLoad <= f.Capacity {
		return f.WithICU
	}
	return f.WithoutICU
}

// DerivationParams carries everything ObservableDerivation needs besides the trajectory.
type DerivationParams struct {
	Population           float64
	DetectionFraction    float64
	ICURate              float64
	TimeInHospital       float64
	InfectiousDuration   float64
	DaysPresymptomatic   float64
	SymptomToHospitalLag float64
	HospitalToICULag     float64
	TestLag              float64
	CommunicationLag     float64
	ICUCorrectionDays    float64
	Fatality             FatalityPolicy
}

// Derivation assembles the derivation inputs for population n.
func (c Config) Derivation(d Derived, n float64) DerivationParams {
	e := c.Epi
	return DerivationParams{
		Population:           n,
		DetectionFraction:    e.DetectionFraction,
		ICURate:              e.ICURate,
		TimeInHospital:       e.TimeInHospital,
		InfectiousDuration:   d.InfectiousDuration,
		DaysPresymptomatic:   e.DaysPresymptomatic,
		SymptomToHospitalLag: e.SymptomToHospitalLag,
		HospitalToICULag:     e.HospitalToICULag,
		TestLag:              e.TestLag,
		CommunicationLag:     e.CommunicationLag,
		ICUCorrectionDays:    ICUCorrectionDelay(c.ICUCorrection, e.TimeInHospital, d.InfectiousDuration),
		Fatality: FatalityPolicy{
			Capacity:   c.ICUCapacity,
			WithICU:    e.IFRWithICU,
			WithoutICU: e.IFRWithoutICU,
		},
	}
}

// ICUCorrectionDelay is the heuristic extra ICU delay,
// (TimeInHospital/infectiousDuration - 1) * infectiousDuration. The rounded
// mode rounds half to even.
func ICUCorrectionDelay(mode ICUCorrection, timeInHospital, infectiousDuration float64) float64 {
	raw := (timeInHospital/infectiousDuration - 1) * infectiousDuration
	switch mode {
	case ICUCorrectionExact:
		return raw
	case ICUCorrectionNone:
		return 0
	default:
		return math.RoundToEven(raw)
	}
}

// DetectedLag is the delay from becoming infectious to a reported case.
func (p DerivationParams) DetectedLag() float64 {
	return p.DaysPresymptomatic + p.SymptomToHospitalLag + p.TestLag + p.CommunicationLag
}

// ICULag is the delay from becoming infectious to ICU admission.
func (p DerivationParams) ICULag() float64 {
	return p.DaysPresymptomatic + p.SymptomToHospitalLag + p.HospitalToICULag
}

// DeathLag is the delay applied to deaths accumulated from the recovered
// compartment. It is negative when the infectious period outlasts the
// remaining lags.
func (p DerivationParams) DeathLag() float64 {
	return -p.InfectiousDuration + p.DaysPresymptomatic + p.SymptomToHospitalLag + p.TimeInHospital + p.CommunicationLag
}

// DeriveObservables computes the lagged observable signals from t.
func DeriveObservables(t Trajectory, p DerivationParams) ObservableSeries {
	n := t.Len()

	detected := make([]float64, n)
	floats.ScaleTo(detected, p.DetectionFraction, t.I)
	detected = Delay(detected, p.DetectedLag())

	cumulative := make([]float64, n)
	floats.CumSum(cumulative, detected)

	// hospital stays outlast the infectious period
	icu := make([]float64, n)
	floats.ScaleTo(icu, p.ICURate*p.TimeInHospital/p.InfectiousDuration, t.I)
	icu = Delay(icu, p.ICULag())
	icu = Delay(icu, p.ICUCorrectionDays)

	// capacity is judged on the delayed, externally observable load
	deaths := AccumulateDeaths(t.R, icu, p.Fatality)
	deaths = Delay(deaths, p.DeathLag())

	perMillion := make([]float64, n)
	floats.ScaleTo(perMillion, 1e6/p.Population, t.I)

	return ObservableSeries{
		DetectedCases:      detected,
		CumulativeCases:    cumulative,
		ICULoad:            icu,
		Deaths:             deaths,
		InfectedPerMillion: perMillion,
	}
}

// AccumulateDeaths folds left over days:
// deaths[i] = deaths[i-1] + IFR(icu[i]) * (recovered[i] - recovered[i-1]),
// with recovered[-1] = deaths[-1] = 0.
func AccumulateDeaths(recovered, icu []float64, f FatalityPolicy) []float64 {
	deaths := make([]float64, len(recovered))
	prevR, prevD := 0.0, 0.0
	for i, r := range recovered {
		prevD += f.Rate(icu[i]) * (r - prevR)
		deaths[i] = prevD
		prevR = r
	}
	return deaths
}
