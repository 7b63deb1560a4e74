// Package sweep runs independent pipeline invocations over a parameter grid.
// Each point owns its Config, Trajectory and ObservableSeries; the only shared
// value is the read-only Inputs.
package sweep

import (
	"context"
	"fmt"
	"runtime"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/seir-sim/seir-sim/sim"
)

// Apply sets the swept parameter to value on c.
type Apply func(c *sim.Config, value float64)

// Parameters maps CLI parameter names to their Apply functions.
var Parameters = map[string]Apply{
	"r0":           func(c *sim.Config, v float64) { c.R0 = v },
	"r1":           func(c *sim.Config, v float64) { c.R1 = v },
	"icu-capacity": func(c *sim.Config, v float64) { c.ICUCapacity = v },
	"ifr":          func(c *sim.Config, v float64) { c.Epi.IFRWithICU = v },
	"detection":    func(c *sim.Config, v float64) { c.Epi.DetectionFraction = v },
}

// Point is the outcome of one swept value.
type Point struct {
	Value   float64
	Summary sim.Summary
}

// Options controls a sweep.
type Options struct {
	Workers int // 0 means GOMAXPROCS
}

// Run executes one pipeline per value, at most opts.Workers at a time, and
// returns the points in the order of values. The first failing run cancels
// the remaining ones and its error is returned.
func Run(ctx context.Context, base sim.Config, in sim.Inputs, apply Apply, values []float64, opts Options) ([]Point, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	points := make([]Point, len(values))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, v := range values {
		i, v := i, v
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			c := base
			c.Phases = append([]sim.Phase(nil), base.Phases...)
			apply(&c, v)
			p, err := sim.NewPipeline(c)
			if err != nil {
				return fmt.Errorf("sweep value %g: %w", v, err)
			}
			r, err := p.Run(in)
			if err != nil {
				return fmt.Errorf("sweep value %g: %w", v, err)
			}
			points[i] = Point{Value: v, Summary: r.Summary}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	logrus.Infof("sweep finished: %d runs on %d workers", len(values), workers)
	return points, nil
}

// Stats summarises one scalar across sweep points.
type Stats struct {
	Mean   float64
	StdDev float64
	Min    float64
	Max    float64
}

// Describe computes Stats of the scalar selected by field over points.
func Describe(points []Point, field func(sim.Summary) float64) Stats {
	if len(points) == 0 {
		return Stats{}
	}
	xs := make([]float64, len(points))
	for i, p := range points {
		xs[i] = field(p.Summary)
	}
	s := Stats{Min: xs[0], Max: xs[0]}
	for _, x := range xs {
		s.Min = min(s.Min, x)
		s.Max = max(s.Max, x)
	}
	if len(xs) > 1 {
		s.Mean, s.StdDev = stat.MeanStdDev(xs, nil)
	} else {
		s.Mean = xs[0]
	}
	return s
}
