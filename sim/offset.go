package sim

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// ObservedPoint is one day of real-world data for a region.
type ObservedPoint struct {
	Date      time.Time
	Confirmed float64
	Deaths    float64
}

// ObservedSeries is real-world data ordered by date, one point per day.
type ObservedSeries []ObservedPoint

// Deaths returns the cumulative death counts in date order.
func (o ObservedSeries) Deaths() []float64 {
	out := make([]float64, len(o))
	for i, p := range o {
		out[i] = p.Deaths
	}
	return out
}

// Metric selects the discrepancy between simulated and observed values.
type Metric string

const (
	// MetricSquared is the mean squared difference of raw counts.
	MetricSquared Metric = "squared"
	// MetricAbsolute is the mean absolute difference of raw counts.
	MetricAbsolute Metric = "absolute"
	// MetricLog is the mean absolute difference of log(1+count), i.e. relative error.
	MetricLog Metric = "log"
)

var validMetrics = map[Metric]bool{
	MetricSquared:  true,
	MetricAbsolute: true,
	MetricLog:      true,
}

// IsValidMetric returns true if name is a recognized discrepancy metric.
func IsValidMetric(name string) bool {
	return validMetrics[Metric(name)]
}

// OffsetCandidate is one evaluated shift.
type OffsetCandidate struct {
	Offset      int
	Overlap     int
	Discrepancy float64
}

// Alignment is the resolved mapping from simulation day to observed day:
// simulated day i corresponds to observed day i - Offset.
type Alignment struct {
	Offset      int
	Auto        bool
	Overlap     int
	Discrepancy float64
	Candidates  []OffsetCandidate // every evaluated shift in search order; nil for fixed offsets
}

// OffsetMatcher finds the integer shift that best aligns a simulated series
// with an observed one. Offset k compares observed[j] with simulated[j+k], so
// observed data starting k days into the simulation yields a positive k.
type OffsetMatcher struct {
	Metric     Metric
	MaxOffset  int // candidates span [-MaxOffset, MaxOffset]
	MinOverlap int // candidates with fewer overlapping days are skipped
}

// NewOffsetMatcher builds the matcher configured by c.
func NewOffsetMatcher(c Config) OffsetMatcher {
	maxOffset := c.MaxOffset
	if maxOffset == 0 {
		maxOffset = c.DaysTotal
	}
	return OffsetMatcher{Metric: c.Metric, MaxOffset: maxOffset, MinOverlap: c.MinOverlap}
}

// Match searches every offset in [-MaxOffset, MaxOffset] and returns the one
// with minimal discrepancy. Among equal minima the smallest |offset| wins,
// and the non-negative offset wins between k and -k.
func (m OffsetMatcher) Match(simulated, observed []float64) (Alignment, error) {
	const op = "match offset"
	if len(simulated) == 0 || len(observed) == 0 {
		return Alignment{}, newError(KindAlignment, op, Params{"simulatedDays": len(simulated), "observedDays": len(observed)},
			"empty series")
	}
	minOverlap := m.MinOverlap
	if minOverlap > len(observed) {
		minOverlap = len(observed)
	}
	if minOverlap < 1 {
		minOverlap = 1
	}

	best := Alignment{Auto: true, Offset: math.MaxInt, Discrepancy: math.Inf(1)}
	candidates := make([]OffsetCandidate, 0, 2*m.MaxOffset+1)
	for _, k := range searchOrder(m.MaxOffset) {
		lo, hi := overlap(k, len(simulated), len(observed))
		if hi-lo < minOverlap {
			continue
		}
		d := discrepancy(m.Metric, simulated[lo+k:hi+k], observed[lo:hi])
		candidates = append(candidates, OffsetCandidate{Offset: k, Overlap: hi - lo, Discrepancy: d})
		if d < best.Discrepancy {
			best.Offset, best.Overlap, best.Discrepancy = k, hi-lo, d
		}
	}
	if best.Offset == math.MaxInt {
		return Alignment{}, newError(KindAlignment, op, Params{
			"simulatedDays": len(simulated),
			"observedDays":  len(observed),
			"maxOffset":     m.MaxOffset,
			"minOverlap":    minOverlap,
		}, "no candidate offset overlaps the observed series")
	}
	best.Candidates = candidates
	logrus.Debugf("offset search: best k=%d discrepancy=%g over %d days (%d candidates)",
		best.Offset, best.Discrepancy, best.Overlap, len(candidates))
	return best, nil
}

// Resolve applies mode: a search for automatic mode, otherwise the fixed
// offset scored against observed when the two overlap.
func (m OffsetMatcher) Resolve(mode OffsetMode, simulated, observed []float64) (Alignment, error) {
	if mode.Auto {
		return m.Match(simulated, observed)
	}
	a := Alignment{Offset: mode.Days}
	lo, hi := overlap(mode.Days, len(simulated), len(observed))
	if hi > lo {
		a.Overlap = hi - lo
		a.Discrepancy = discrepancy(m.Metric, simulated[lo+mode.Days:hi+mode.Days], observed[lo:hi])
	} else if len(observed) > 0 {
		logrus.Warnf("fixed offset %d leaves no overlap between %d simulated and %d observed days",
			mode.Days, len(simulated), len(observed))
	}
	return a, nil
}

// searchOrder lists 0, 1, -1, 2, -2, ... up to maxOffset so that the first
// strict minimum found is also the one with the smallest |offset|.
func searchOrder(maxOffset int) []int {
	order := make([]int, 0, 2*maxOffset+1)
	order = append(order, 0)
	for k := 1; k <= maxOffset; k++ {
		order = append(order, k, -k)
	}
	return order
}

// overlap returns the observed index range [lo, hi) that has a simulated
// counterpart at j+k.
func overlap(k, simLen, obsLen int) (lo, hi int) {
	lo = max(0, -k)
	hi = min(obsLen, simLen-k)
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func discrepancy(metric Metric, simulated, observed []float64) float64 {
	n := float64(len(observed))
	switch metric {
	case MetricAbsolute:
		return floats.Distance(simulated, observed, 1) / n
	case MetricLog:
		diffs := make([]float64, len(observed))
		for i := range diffs {
			diffs[i] = math.Abs(math.Log1p(math.Max(simulated[i], 0)) - math.Log1p(math.Max(observed[i], 0)))
		}
		return stat.Mean(diffs, nil)
	default:
		d := floats.Distance(simulated, observed, 2)
		return d * d / n
	}
}
