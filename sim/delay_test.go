package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seir-sim/seir-sim/sim/internal/testutil"
)

func TestDelay_Zero_ReturnsExactCopy(t *testing.T) {
	// GIVEN an arbitrary series
	v := []float64{1.5, -2, 3.25, 0, 7}

	// WHEN delayed by zero
	got := Delay(v, 0)

	// THEN the result equals the input exactly and is a distinct slice
	assert.Equal(t, v, got)
	got[0] = 99
	assert.Equal(t, 1.5, v[0], "input must not be aliased")
}

func TestDelay_IntegerShift_MovesImpulse(t *testing.T) {
	got := Delay(testutil.Impulse(20, 5), 3)

	want := testutil.Impulse(20, 8)
	assert.Equal(t, want, got)
}

func TestDelay_FractionalShift_SplitsImpulse(t *testing.T) {
	// GIVEN a unit impulse at index 5
	v := testutil.Impulse(20, 5)

	// WHEN delayed by 3.5 days
	got := Delay(v, 3.5)

	// THEN the mass is split evenly between indices 8 and 9
	assert.InDelta(t, 0.5, got[8], 1e-12)
	assert.InDelta(t, 0.5, got[9], 1e-12)
	for i, x := range got {
		if i != 8 && i != 9 {
			assert.Zero(t, x, "index %d", i)
		}
	}
}

func TestDelay_PositiveShift_ZeroFillsStart(t *testing.T) {
	got := Delay([]float64{4, 4, 4, 4, 4, 4}, 2)
	assert.Equal(t, []float64{0, 0, 4, 4, 4, 4}, got)
}

func TestDelay_NegativeShift_HoldsLastValue(t *testing.T) {
	// Backward shift of a cumulative series keeps its final level
	got := Delay([]float64{0, 1, 2, 3, 4}, -2)
	assert.Equal(t, []float64{2, 3, 4, 4, 4}, got)
}

func TestDelay_Composition_MatchesSingleShift(t *testing.T) {
	// GIVEN a ramp, on which linear interpolation is exact away from its start
	v := make([]float64, 60)
	for i := range v {
		v[i] = float64(i)
	}
	tests := []struct {
		name   string
		d1, d2 float64
	}{
		{"integers", 3, 4},
		{"fractions", 1.5, 2.25},
		{"chained lags", 2.5, 10},
		{"zero second", 7.5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// WHEN delayed in two stages and in one
			twice := Delay(Delay(v, tt.d1), tt.d2)
			once := Delay(v, tt.d1+tt.d2)

			// THEN both agree past the interpolation boundary
			start := int(tt.d1+tt.d2) + 2
			testutil.AssertSliceNear(t, "composed", once[start:], twice[start:], 1e-9)
		})
	}
}

func TestDelay_Composition_IntegerShiftsExactEverywhere(t *testing.T) {
	v := testutil.Logistic(40, 1000, 20, 0.3)
	require.Equal(t, Delay(v, 9), Delay(Delay(v, 4), 5))
}

func TestDelay_EmptySeries(t *testing.T) {
	assert.Empty(t, Delay(nil, 2.5))
}
