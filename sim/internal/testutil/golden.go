// Package testutil provides shared test infrastructure for the SEIR simulator.
// It consolidates golden dataset types and assertion helpers used across
// sim/ and its sub-package tests.
package testutil

import (
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

// GoldenDataset represents the structure of testdata/goldendataset.json.
type GoldenDataset struct {
	Tests []GoldenTestCase `json:"tests"`
}

// GoldenTestCase represents a single scenario from the golden dataset.
type GoldenTestCase struct {
	Name               string        `json:"name"`
	Population         float64       `json:"population"`
	InitialExposed     float64       `json:"initial_exposed"`
	DaysTotal          int           `json:"days_total"`
	DaysBeforeLockdown int           `json:"days_before_lockdown"`
	R0                 float64       `json:"r0"`
	R1                 float64       `json:"r1"`
	ICUCapacity        float64       `json:"icu_capacity"`
	Metrics            GoldenMetrics `json:"metrics"`
}

// GoldenMetrics represents the expected outputs of a golden scenario.
type GoldenMetrics struct {
	// Analytic scalars
	Sigma        float64 `json:"sigma"`
	Gamma        float64 `json:"gamma"`
	DoublingTime float64 `json:"doubling_time"`

	// Exact match metrics (day indices)
	PeakInfectiousDay int `json:"peak_infectious_day"`
	PeakICUDay        int `json:"peak_icu_day"`

	// Integrated quantities, compared with relative tolerance
	PeakInfectious float64 `json:"peak_infectious"`
	FinalRecovered float64 `json:"final_recovered"`
	TotalDeaths    float64 `json:"total_deaths"`
}

// LoadGoldenDataset loads the golden dataset from the testdata directory.
// The path is resolved relative to this source file: sim/internal/testutil/ → testdata/.
func LoadGoldenDataset(t *testing.T) *GoldenDataset {
	t.Helper()

	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("Failed to get current file path")
	}
	// Navigate from sim/internal/testutil/ to repo root testdata/
	path := filepath.Join(filepath.Dir(thisFile), "..", "..", "..", "testdata", "goldendataset.json")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read golden dataset: %v", err)
	}

	var dataset GoldenDataset
	if err := json.Unmarshal(data, &dataset); err != nil {
		t.Fatalf("Failed to parse golden dataset: %v", err)
	}

	return &dataset
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertSliceNear compares two slices element-wise with absolute tolerance.
func AssertSliceNear(t *testing.T, name string, want, got []float64, absTol float64) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("%s: length %d, want %d", name, len(got), len(want))
	}
	for i := range want {
		if math.Abs(want[i]-got[i]) > absTol {
			t.Errorf("%s[%d]: got %v, want %v", name, i, got[i], want[i])
		}
	}
}

// Impulse returns a series of length n that is 1 at index at and 0 elsewhere.
func Impulse(n, at int) []float64 {
	v := make([]float64, n)
	v[at] = 1
	return v
}

// Logistic returns n samples of a cumulative S-shaped curve with the given
// ceiling, midpoint and steepness; useful as a synthetic death curve.
func Logistic(n int, ceiling, midpoint, steepness float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = ceiling / (1 + math.Exp(-steepness*(float64(i)-midpoint)))
	}
	return v
}
