package trace

import "math"

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	Phases           int
	OffsetCandidates int
	ChosenOffset     int
	BestDiscrepancy  float64
	Margin           float64 // runner-up discrepancy minus best; 0 with fewer than two candidates
	RegimeSwitches   int
	FirstOverflowDay int // -1 when ICU capacity is never exceeded
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{FirstOverflowDay: -1}
	if st == nil {
		return summary
	}

	summary.Phases = len(st.Phases)
	summary.OffsetCandidates = len(st.Offsets)

	if len(st.Offsets) > 0 {
		runnerUp := math.Inf(1)
		for _, o := range st.Offsets {
			if o.Chosen {
				summary.ChosenOffset = o.Offset
				summary.BestDiscrepancy = o.Discrepancy
				continue
			}
			if o.Discrepancy < runnerUp {
				runnerUp = o.Discrepancy
			}
		}
		if !math.IsInf(runnerUp, 1) {
			summary.Margin = runnerUp - summary.BestDiscrepancy
		}
	}

	summary.RegimeSwitches = len(st.Regimes)
	for _, r := range st.Regimes {
		if r.Overflow {
			summary.FirstOverflowDay = r.Day
			break
		}
	}

	return summary
}
