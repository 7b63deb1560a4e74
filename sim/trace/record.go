// Package trace provides decision-trace recording for a simulation run.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// PhaseRecord captures one change point of the transmission policy.
type PhaseRecord struct {
	Day  float64
	Beta float64
}

// OffsetRecord captures one candidate evaluated by the offset search.
type OffsetRecord struct {
	Offset      int
	Overlap     int
	Discrepancy float64
	Chosen      bool
}

// RegimeRecord captures a day on which the fatality regime changes, i.e. the
// observed ICU load crosses capacity in either direction.
type RegimeRecord struct {
	Day      int
	ICULoad  float64
	Capacity float64
	IFR      float64
	Overflow bool // true when load exceeds capacity from this day on
}
