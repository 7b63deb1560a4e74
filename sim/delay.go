package sim

import "math"

// Delay shifts v forward in time by d steps: out[i] is v linearly interpolated
// at index i-d. Positions before the start read as zero and positions past the
// end read as the last sample, so a negative d shifts the series backward and
// holds its final value. Delay(v, 0) returns an exact copy. v is never modified.
//
// Fractional delays interpolate rather than round because lags are chained
// (presymptomatic + reporting + test + communication).
func Delay(v []float64, d float64) []float64 {
	out := make([]float64, len(v))
	if d == 0 {
		copy(out, v)
		return out
	}
	for i := range out {
		out[i] = sampleAt(v, float64(i)-d)
	}
	return out
}

// sampleAt linearly interpolates v at fractional index x.
func sampleAt(v []float64, x float64) float64 {
	n := len(v)
	if n == 0 {
		return 0
	}
	lo := math.Floor(x)
	frac := x - lo
	i := int(lo)
	a, b := valueAt(v, i), valueAt(v, i+1)
	if frac == 0 {
		return a
	}
	return a + (b-a)*frac
}

func valueAt(v []float64, i int) float64 {
	switch {
	case i < 0:
		return 0
	case i >= len(v):
		return v[len(v)-1]
	default:
		return v[i]
	}
}
