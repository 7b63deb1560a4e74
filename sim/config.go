package sim

import (
	"math"
	"time"
)

// Region identifies the area whose population and observed series feed a run.
// Country "all" aggregates every country except those in Exclude; Province
// "all" aggregates every province of Country.
type Region struct {
	Country  string   `yaml:"country"`
	Province string   `yaml:"province"`
	Exclude  []string `yaml:"exclude,omitempty"`
}

// AllProvinces is the Province (or Country) wildcard.
const AllProvinces = "all"

// Phase is an intervention change point after the lockdown: from Date on, the
// reproduction number is R.
type Phase struct {
	Date time.Time
	R    float64
}

// EpiParams groups the biological timing and rate constants.
type EpiParams struct {
	DaysPresymptomatic   float64 // infectious before symptom onset (default 2.5)
	DaysToIncubation     float64 // exposure to symptom onset (default 5.2)
	GenerationTime       float64 // 1/sigma + 0.5/gamma (default 4.6)
	DetectionFraction    float64 // share of infectious found in tests (default (1-0.35)/20)
	TimeInHospital       float64 // days (default 12)
	CommunicationLag     float64 // days from test result to publication (default 2)
	TestLag              float64 // days (default 3)
	SymptomToHospitalLag float64 // days (default 5)
	HospitalToICULag     float64 // days (default 5)
	IFRWithICU           float64 // infection fatality rate while ICU capacity lasts (default 0.01)
	IFRWithoutICU        float64 // infection fatality rate above ICU capacity (default 0.03)
	ICURate              float64 // share of infectious needing intensive care (default 0.02)
}

// ICUCorrection selects the extra delay applied to the ICU signal to account
// for hospital stays outlasting the infectious period.
type ICUCorrection string

const (
	// ICUCorrectionRounded delays by round(TimeInHospital - 1/gamma) days.
	ICUCorrectionRounded ICUCorrection = "rounded"
	// ICUCorrectionExact delays by TimeInHospital - 1/gamma without rounding.
	ICUCorrectionExact ICUCorrection = "exact"
	// ICUCorrectionNone applies no extra delay.
	ICUCorrectionNone ICUCorrection = "none"
)

var validICUCorrections = map[ICUCorrection]bool{
	ICUCorrectionRounded: true,
	ICUCorrectionExact:   true,
	ICUCorrectionNone:    true,
}

// OffsetMode is either automatic (search) or a fixed day offset.
type OffsetMode struct {
	Auto bool
	Days int
}

// AutoOffset requests an OffsetMatcher search.
func AutoOffset() OffsetMode { return OffsetMode{Auto: true} }

// FixedOffset skips the search and uses days directly.
func FixedOffset(days int) OffsetMode { return OffsetMode{Days: days} }

// Config is the complete, immutable parameter set of one pipeline run.
// Build it from DefaultConfig and override fields; the pipeline never mutates it.
type Config struct {
	Region         Region
	Population     float64 // > 0 overrides the DataSource lookup
	DaysTotal      int
	InitialExposed float64
	R0             float64
	R1             float64
	FirstInfection time.Time
	Lockdown       time.Time
	Phases         []Phase // additional change points after Lockdown, ordered by date
	ICUCapacity    float64
	Epi            EpiParams
	ICUCorrection  ICUCorrection
	Offset         OffsetMode
	Metric         Metric
	MaxOffset      int // search bound in days; 0 means DaysTotal
	MinOverlap     int // minimum overlapping days for a candidate offset
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		Region:         Region{Country: "US", Province: "Florida"},
		DaysTotal:      365,
		InitialExposed: 1,
		R0:             3.0,
		R1:             1.0,
		FirstInfection: time.Date(2020, time.February, 1, 0, 0, 0, 0, time.UTC),
		Lockdown:       time.Date(2020, time.April, 1, 0, 0, 0, 0, time.UTC),
		ICUCapacity:    5_604,
		Epi: EpiParams{
			DaysPresymptomatic:   2.5,
			DaysToIncubation:     5.2,
			GenerationTime:       4.6,
			DetectionFraction:    (1.0 - 0.35) / 20.0,
			TimeInHospital:       12,
			CommunicationLag:     2,
			TestLag:              3,
			SymptomToHospitalLag: 5,
			HospitalToICULag:     5,
			IFRWithICU:           0.01,
			IFRWithoutICU:        0.03,
			ICURate:              0.02,
		},
		ICUCorrection: ICUCorrectionRounded,
		Offset:        AutoOffset(),
		Metric:        MetricSquared,
		MinOverlap:    7,
	}
}

// Derived holds the model rates computed from a Config.
type Derived struct {
	Sigma              float64
	Gamma              float64
	Beta0              float64
	Beta1              float64
	InfectiousDuration float64 // 1/gamma
	DaysBeforeLockdown int
	DoublingTime       float64 // +Inf when R0 <= 1
}

// Validate checks ranges that do not depend on derived rates.
func (c Config) Validate() error {
	const op = "validate config"
	if c.DaysTotal < 1 {
		return newError(KindConfiguration, op, Params{"daysTotal": c.DaysTotal}, "daysTotal must be >= 1")
	}
	if c.Population < 0 || math.IsNaN(c.Population) || math.IsInf(c.Population, 0) {
		return newError(KindConfiguration, op, Params{"population": c.Population}, "population must be a finite non-negative number")
	}
	if !isPositiveFinite(c.InitialExposed) {
		return newError(KindConfiguration, op, Params{"initialExposed": c.InitialExposed}, "initial exposed count must be positive")
	}
	if !isNonNegativeFinite(c.R0) || !isNonNegativeFinite(c.R1) {
		return newError(KindConfiguration, op, Params{"r0": c.R0, "r1": c.R1}, "reproduction numbers must be finite and non-negative")
	}
	if !isNonNegativeFinite(c.ICUCapacity) {
		return newError(KindConfiguration, op, Params{"icuCapacity": c.ICUCapacity}, "ICU capacity must be finite and non-negative")
	}
	if c.Lockdown.Before(c.FirstInfection) {
		return newError(KindConfiguration, op, Params{"firstInfection": c.FirstInfection.Format(DateLayout), "lockdown": c.Lockdown.Format(DateLayout)},
			"lockdown precedes first infection")
	}
	prev := c.Lockdown
	for i, p := range c.Phases {
		if !p.Date.After(prev) {
			return newError(KindConfiguration, op, Params{"phase": i, "date": p.Date.Format(DateLayout)}, "phases must be strictly after lockdown and ordered by date")
		}
		if !isNonNegativeFinite(p.R) {
			return newError(KindConfiguration, op, Params{"phase": i, "r": p.R}, "phase reproduction number must be finite and non-negative")
		}
		prev = p.Date
	}
	e := c.Epi
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"daysPresymptomatic", e.DaysPresymptomatic},
		{"daysToIncubation", e.DaysToIncubation},
		{"generationTime", e.GenerationTime},
		{"communicationLag", e.CommunicationLag},
		{"testLag", e.TestLag},
		{"symptomToHospitalLag", e.SymptomToHospitalLag},
		{"hospitalToICULag", e.HospitalToICULag},
	} {
		if !isNonNegativeFinite(f.v) {
			return newError(KindConfiguration, op, Params{f.name: f.v}, "timing constant must be finite and non-negative")
		}
	}
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"detectionFraction", e.DetectionFraction},
		{"icuRate", e.ICURate},
		{"ifrWithICU", e.IFRWithICU},
		{"ifrWithoutICU", e.IFRWithoutICU},
	} {
		// written so that NaN fails
		if !(f.v >= 0 && f.v <= 1) {
			return newError(KindConfiguration, op, Params{f.name: f.v}, "rate must be within [0, 1]")
		}
	}
	if !isPositiveFinite(e.TimeInHospital) {
		return newError(KindConfiguration, op, Params{"timeInHospital": e.TimeInHospital}, "time in hospital must be finite and positive")
	}
	if !validICUCorrections[c.ICUCorrection] {
		return newError(KindConfiguration, op, Params{"icuCorrection": c.ICUCorrection}, "unknown ICU correction mode")
	}
	if !validMetrics[c.Metric] {
		return newError(KindConfiguration, op, Params{"metric": c.Metric}, "unknown discrepancy metric")
	}
	if c.MaxOffset < 0 || c.MinOverlap < 1 {
		return newError(KindConfiguration, op, Params{"maxOffset": c.MaxOffset, "minOverlap": c.MinOverlap}, "offset search bounds out of range")
	}
	return nil
}

// Derive validates c and computes sigma, gamma, the transmission rates and
// the analytic doubling time.
func (c Config) Derive() (Derived, error) {
	const op = "derive parameters"
	if err := c.Validate(); err != nil {
		return Derived{}, err
	}
	e := c.Epi
	sigma := 1.0 / (e.DaysToIncubation - e.DaysPresymptomatic)
	gamma := 1.0 / (2.0 * (e.GenerationTime - 1.0/sigma))
	if !isPositiveFinite(sigma) || !isPositiveFinite(gamma) {
		return Derived{}, newError(KindConfiguration, op, Params{
			"daysToIncubation":   e.DaysToIncubation,
			"daysPresymptomatic": e.DaysPresymptomatic,
			"generationTime":     e.GenerationTime,
			"sigma":              sigma,
			"gamma":              gamma,
		}, "timing constants yield non-positive or non-finite rates")
	}
	d := Derived{
		Sigma:              sigma,
		Gamma:              gamma,
		Beta0:              c.R0 * gamma,
		Beta1:              c.R1 * gamma,
		InfectiousDuration: 1.0 / gamma,
		DaysBeforeLockdown: daysBetween(c.FirstInfection, c.Lockdown),
		DoublingTime:       DoublingTime(c.R0, sigma, gamma),
	}
	return d, nil
}

// DoublingTime is the analytic early-phase doubling time of the SEIR system,
// ln 2 / s1 with s1 the dominant eigenvalue of the linearised (E, I) block.
func DoublingTime(r0, sigma, gamma float64) float64 {
	s := sigma + gamma
	s1 := 0.5 * (-s + math.Sqrt(s*s+4*sigma*gamma*(r0-1)))
	if !(s1 > 0) {
		return math.Inf(1)
	}
	return math.Ln2 / s1
}

func isPositiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func isNonNegativeFinite(v float64) bool {
	return v >= 0 && !math.IsInf(v, 0)
}
