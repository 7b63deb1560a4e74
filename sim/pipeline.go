// sim/pipeline.go
package sim

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/seir-sim/seir-sim/sim/trace"
)

// DataSource supplies the external inputs of a run. Implementations live in
// sim/data; lookups are blocking and performed once before the pipeline starts.
type DataSource interface {
	// Population returns the head count of region. Unknown regions yield a
	// KindDataUnavailable error.
	Population(ctx context.Context, region Region) (float64, error)
	// Observed returns the observed series of region ordered by date. With
	// withDates false the Date fields are left zero.
	Observed(ctx context.Context, region Region, withDates bool) (ObservedSeries, error)
}

// Inputs are the externally supplied data a run consumes.
type Inputs struct {
	Population float64
	Observed   ObservedSeries
}

// Fetch resolves the Inputs of c from src. A positive c.Population overrides
// the population lookup. A nil src yields no observed data.
func Fetch(ctx context.Context, src DataSource, c Config) (Inputs, error) {
	in := Inputs{Population: c.Population}
	if src == nil {
		return in, nil
	}
	if in.Population <= 0 {
		n, err := src.Population(ctx, c.Region)
		if err != nil {
			return Inputs{}, err
		}
		in.Population = n
	}
	observed, err := src.Observed(ctx, c.Region, true)
	if err != nil {
		return Inputs{}, err
	}
	in.Observed = observed
	return in, nil
}

// Pipeline runs policy -> integration -> observables -> offset -> calendar
// alignment for one Config. A Pipeline owns no per-run state and may be
// shared; Trace, when set, must not be shared between concurrent runs.
type Pipeline struct {
	Config     Config
	Derived    Derived
	Integrator IntegratorOptions
	Trace      *trace.SimulationTrace
}

// NewPipeline validates c and derives the model rates.
func NewPipeline(c Config) (*Pipeline, error) {
	d, err := c.Derive()
	if err != nil {
		return nil, err
	}
	return &Pipeline{Config: c, Derived: d, Integrator: DefaultIntegratorOptions()}, nil
}

// Run fetches inputs from src and executes the pipeline.
func Run(ctx context.Context, c Config, src DataSource) (*Result, error) {
	p, err := NewPipeline(c)
	if err != nil {
		return nil, err
	}
	in, err := Fetch(ctx, src, c)
	if err != nil {
		return nil, err
	}
	return p.Run(in)
}

// Run executes one simulation. It either returns a complete Result or an
// error; there are no partial results.
func (p *Pipeline) Run(in Inputs) (*Result, error) {
	const op = "run pipeline"
	c, d := p.Config, p.Derived
	if !isPositiveFinite(in.Population) {
		return nil, newError(KindConfiguration, op, Params{"population": in.Population}, "population must be positive")
	}
	if c.InitialExposed > in.Population {
		return nil, newError(KindConfiguration, op, Params{"population": in.Population, "initialExposed": c.InitialExposed},
			"initial exposed exceeds population")
	}
	runID := uuid.New().String()
	log := logrus.WithField("run", runID)
	if p.Trace != nil {
		p.Trace.Config.RunID = runID
	}

	policy, err := BuildPolicy(c, d)
	if err != nil {
		return nil, err
	}
	if p.Trace.Enabled() {
		for _, b := range policy.Breakpoints() {
			p.Trace.RecordPhase(trace.PhaseRecord{Day: b.Day, Beta: b.Beta})
		}
	}

	model := CompartmentModel{N: in.Population, Policy: policy, Sigma: d.Sigma, Gamma: d.Gamma}
	y0 := EpidemicState{S: in.Population - c.InitialExposed, E: c.InitialExposed}
	traj, err := Integrate(model, y0, c.DaysTotal, p.Integrator)
	if err != nil {
		return nil, err
	}

	params := c.Derivation(d, in.Population)
	obs := DeriveObservables(traj, params)
	p.recordRegimes(obs.ICULoad, params.Fatality)

	matcher := NewOffsetMatcher(c)
	alignment, err := matcher.Resolve(c.Offset, obs.Deaths, in.Observed.Deaths())
	if err != nil {
		return nil, err
	}
	if p.Trace.Enabled() {
		for _, cand := range alignment.Candidates {
			p.Trace.RecordOffset(trace.OffsetRecord{
				Offset:      cand.Offset,
				Overlap:     cand.Overlap,
				Discrepancy: cand.Discrepancy,
				Chosen:      cand.Offset == alignment.Offset,
			})
		}
	}
	if len(in.Observed) > 0 && in.Observed[len(in.Observed)-1].Deaths == 0 {
		log.Warnf("observed series for %s has no deaths; offset %d is unreliable", c.Region.Country, alignment.Offset)
	}

	r := &Result{
		RunID:       runID,
		Config:      c,
		Derived:     d,
		Population:  in.Population,
		Dates:       calendar(c, in.Observed, alignment.Offset),
		Trajectory:  traj,
		Observables: obs,
		Observed:    in.Observed,
		Alignment:   alignment,
		Phases:      policy.Breakpoints(),
	}
	r.Summary = summarize(r)
	log.Infof("simulated %d days: offset=%d (auto=%v) peak ICU day %d (%.0f), total deaths %.0f",
		c.DaysTotal, alignment.Offset, alignment.Auto, r.Summary.PeakICUDay, r.Summary.PeakICULoad, r.Summary.TotalDeaths)
	return r, nil
}

// recordRegimes traces every day on which the ICU load crosses capacity.
func (p *Pipeline) recordRegimes(icu []float64, f FatalityPolicy) {
	if !p.Trace.Enabled() {
		return
	}
	overflow := false
	for day, load := range icu {
		if (load > f.Capacity) == overflow {
			continue
		}
		overflow = !overflow
		p.Trace.RecordRegime(trace.RegimeRecord{
			Day:      day,
			ICULoad:  load,
			Capacity: f.Capacity,
			IFR:      f.Rate(load),
			Overflow: overflow,
		})
	}
}

// calendar maps simulation day i to a date. With observed data, day i is
// observed day i-offset; otherwise the first infection anchors day offset.
func calendar(c Config, observed ObservedSeries, offset int) []time.Time {
	anchor := c.FirstInfection
	if len(observed) > 0 && !observed[0].Date.IsZero() {
		anchor = observed[0].Date
	}
	dates := make([]time.Time, c.DaysTotal)
	for i := range dates {
		dates[i] = addDays(anchor, i-offset)
	}
	return dates
}
