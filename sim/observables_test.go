package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepTrajectory returns a trajectory whose I jumps from 0 to level on day
// jump and whose R grows by one person per day.
func stepTrajectory(n, jump int, level float64) Trajectory {
	traj := newTrajectory(n)
	for i := 0; i < n; i++ {
		if i >= jump {
			traj.I[i] = level
		}
		traj.R[i] = float64(i)
		traj.S[i] = 1e6 - traj.I[i] - traj.R[i]
	}
	return traj
}

// unitParams makes the ICU signal equal to I delayed by icuLag days and
// leaves deaths undelayed.
func unitParams(icuLag float64, capacity float64) DerivationParams {
	return DerivationParams{
		Population:         1e6,
		DetectionFraction:  0.5,
		ICURate:            1,
		TimeInHospital:     1,
		InfectiousDuration: 1,
		HospitalToICULag:   icuLag,
		Fatality:           FatalityPolicy{Capacity: capacity, WithICU: 0.01, WithoutICU: 0.03},
	}
}

func TestAccumulateDeaths_SwitchesRateAtCapacity(t *testing.T) {
	// GIVEN ICU load crossing capacity 100 on day 50 and R rising by 1 per day
	n := 80
	recovered := make([]float64, n)
	icu := make([]float64, n)
	for i := range recovered {
		recovered[i] = float64(i)
		if i >= 50 {
			icu[i] = 150
		} else {
			icu[i] = 100 // at capacity still counts as available
		}
	}

	// WHEN deaths are accumulated
	deaths := AccumulateDeaths(recovered, icu, FatalityPolicy{Capacity: 100, WithICU: 0.01, WithoutICU: 0.03})

	// THEN increments use the lower IFR before day 50 and the higher one after
	assert.Zero(t, deaths[0])
	for i := 1; i < n; i++ {
		want := 0.01
		if i >= 50 {
			want = 0.03
		}
		assert.InDelta(t, want, deaths[i]-deaths[i-1], 1e-12, "day %d", i)
	}
	assert.InDelta(t, 49*0.01+30*0.03, deaths[n-1], 1e-9)
}

func TestAccumulateDeaths_FirstDayUsesZeroBaseline(t *testing.T) {
	deaths := AccumulateDeaths([]float64{200, 300}, []float64{0, 0}, FatalityPolicy{Capacity: 1, WithICU: 0.1, WithoutICU: 1})
	assert.InDelta(t, 20, deaths[0], 1e-12)
	assert.InDelta(t, 30, deaths[1], 1e-12)
}

func TestDeriveObservables_IFRKeyedOnDelayedICULoad(t *testing.T) {
	// GIVEN latent I crossing capacity on day 40 and an ICU lag of 10 days
	traj := stepTrajectory(80, 40, 200)
	p := unitParams(10, 100)

	// WHEN observables are derived
	obs := DeriveObservables(traj, p)

	// THEN the observed ICU signal crosses on day 50 and the IFR follows it
	assert.Zero(t, obs.ICULoad[49])
	assert.Equal(t, 200.0, obs.ICULoad[50])
	for i := 1; i < 80; i++ {
		want := 0.01
		if i >= 50 {
			want = 0.03
		}
		assert.InDelta(t, want, obs.Deaths[i]-obs.Deaths[i-1], 1e-12, "day %d", i)
	}
}

func TestDeriveObservables_CumulativeCasesNonDecreasing(t *testing.T) {
	traj := stepTrajectory(60, 10, 300)
	p := unitParams(0, 1e9)
	p.DaysPresymptomatic = 2.5
	p.TestLag = 3

	obs := DeriveObservables(traj, p)

	for i := 1; i < len(obs.CumulativeCases); i++ {
		assert.GreaterOrEqual(t, obs.CumulativeCases[i], obs.CumulativeCases[i-1], "day %d", i)
	}
	// detected = I * 0.5 delayed by 5.5 days
	assert.Zero(t, obs.DetectedCases[14])
	assert.InDelta(t, 75, obs.DetectedCases[15], 1e-12)
	assert.InDelta(t, 150, obs.DetectedCases[16], 1e-12)
}

func TestDeriveObservables_DeathLagCanBeNegative(t *testing.T) {
	// GIVEN an infectious period longer than every other lag
	traj := stepTrajectory(30, 0, 0)
	p := unitParams(0, 1e9)
	p.InfectiousDuration = 4
	p.TimeInHospital = 1

	// WHEN observables are derived
	obs := DeriveObservables(traj, p)

	// THEN deaths are shifted three days backward
	require.Equal(t, -3.0, p.DeathLag())
	raw := AccumulateDeaths(traj.R, obs.ICULoad, p.Fatality)
	assert.InDelta(t, raw[13], obs.Deaths[10], 1e-12)
	assert.InDelta(t, raw[29], obs.Deaths[29], 1e-12)
}

func TestDeriveObservables_InfectedPerMillion(t *testing.T) {
	obs := DeriveObservables(stepTrajectory(5, 0, 250), unitParams(0, 1e9))
	assert.InDelta(t, 250, obs.InfectedPerMillion[3], 1e-9)
}

func TestICUCorrectionDelay_Modes(t *testing.T) {
	// 1/gamma = 3.8 for the defaults; 12 - 3.8 = 8.2
	assert.Equal(t, 8.0, ICUCorrectionDelay(ICUCorrectionRounded, 12, 3.8))
	assert.InDelta(t, 8.2, ICUCorrectionDelay(ICUCorrectionExact, 12, 3.8), 1e-12)
	assert.Zero(t, ICUCorrectionDelay(ICUCorrectionNone, 12, 3.8))
	assert.Equal(t, 2.0, ICUCorrectionDelay(ICUCorrectionRounded, 6.5, 4))
}

func TestDerivationParams_Lags(t *testing.T) {
	c := DefaultConfig()
	d, err := c.Derive()
	require.NoError(t, err)
	p := c.Derivation(d, testPopulation)

	assert.InDelta(t, 12.5, p.DetectedLag(), 1e-12)
	assert.InDelta(t, 12.5, p.ICULag(), 1e-12)
	assert.InDelta(t, -3.8+2.5+5+12+2, p.DeathLag(), 1e-9)
	assert.Equal(t, 8.0, p.ICUCorrectionDays)
}
