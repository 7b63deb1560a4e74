// sim/integrator.go
package sim

import (
	"math"

	"github.com/sirupsen/logrus"
)

// IntegratorOptions controls the adaptive Dormand-Prince 5(4) solver.
type IntegratorOptions struct {
	RelTol   float64 // relative error tolerance per step
	AbsTol   float64 // absolute error tolerance per step (in persons)
	MinStep  float64 // smallest step (days) before reporting non-convergence
	MaxSteps int     // accepted+rejected step budget per simulated day
}

// DefaultIntegratorOptions keeps mass conservation well below 1e-6 relative error.
func DefaultIntegratorOptions() IntegratorOptions {
	return IntegratorOptions{
		RelTol:   1e-8,
		AbsTol:   1e-6,
		MinStep:  1e-10,
		MaxSteps: 100_000,
	}
}

// Dormand-Prince 5(4) tableau.
var (
	dpC = [7]float64{0, 1.0 / 5, 3.0 / 10, 4.0 / 5, 8.0 / 9, 1, 1}
	dpA = [7][6]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{44.0 / 45, -56.0 / 15, 32.0 / 9},
		{19372.0 / 6561, -25360.0 / 2187, 64448.0 / 6561, -212.0 / 729},
		{9017.0 / 3168, -355.0 / 33, 46732.0 / 5247, 49.0 / 176, -5103.0 / 18656},
		{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84},
	}
	// fifth-order weights equal the last stage row
	dpB = [7]float64{35.0 / 384, 0, 500.0 / 1113, 125.0 / 192, -2187.0 / 6784, 11.0 / 84, 0}
	// difference between fifth- and fourth-order weights
	dpE = [7]float64{71.0 / 57600, 0, -71.0 / 16695, 71.0 / 1920, -17253.0 / 339200, 22.0 / 525, -1.0 / 40}
)

// Integrate solves the model on the day grid 0..daysTotal-1 starting from y0.
// It returns an IntegrationError if the step size collapses, the step budget
// is exhausted or the state becomes non-finite; it never truncates output.
func Integrate(m CompartmentModel, y0 EpidemicState, daysTotal int, opts IntegratorOptions) (Trajectory, error) {
	const op = "integrate"
	if daysTotal < 1 {
		return Trajectory{}, newError(KindConfiguration, op, Params{"daysTotal": daysTotal}, "daysTotal must be >= 1")
	}
	if !y0.finite() {
		return Trajectory{}, newError(KindIntegration, op, Params{"day": 0}, "initial state is not finite")
	}
	traj := newTrajectory(daysTotal)
	traj.set(0, y0)

	y := y0.vector()
	h := 0.1
	steps := 0
	for day := 1; day < daysTotal; day++ {
		t := float64(day - 1)
		end := float64(day)
		budget := 0
		for t < end {
			if budget >= opts.MaxSteps {
				return Trajectory{}, newError(KindIntegration, op, Params{"day": day, "t": t, "steps": budget},
					"step budget exhausted")
			}
			budget++
			step := math.Min(h, end-t)
			last := step == end-t
			next, errNorm := dpStep(m, t, y, step, opts)
			if math.IsNaN(errNorm) || math.IsInf(errNorm, 0) {
				return Trajectory{}, newError(KindIntegration, op, Params{"day": day, "t": t, "h": step},
					"non-finite error estimate")
			}
			if errNorm <= 1 {
				t += step
				if last {
					t = end
				}
				y = next
				steps++
			}
			proposal := step * stepFactor(errNorm)
			if errNorm <= 1 && last && step < h {
				// step was shortened to land on the grid; keep the untruncated size
				proposal = math.Max(proposal, h)
			}
			h = proposal
			if errNorm > 1 && h < opts.MinStep {
				return Trajectory{}, newError(KindIntegration, op, Params{"day": day, "t": t, "h": h},
					"step size below minimum")
			}
		}
		s := stateFromVector(y)
		if !s.finite() {
			return Trajectory{}, newError(KindIntegration, op, Params{"day": day}, "state is not finite")
		}
		traj.set(day, s)
	}
	logrus.Debugf("integrated %d days in %d accepted steps", daysTotal, steps)
	return traj, nil
}

// dpStep advances y by h from t and returns the fifth-order solution with
// its scaled RMS error norm.
func dpStep(m CompartmentModel, t float64, y [4]float64, h float64, opts IntegratorOptions) ([4]float64, float64) {
	var k [7][4]float64
	for s := 0; s < 7; s++ {
		var ys [4]float64
		for j := range ys {
			acc := y[j]
			for r := 0; r < s; r++ {
				acc += h * dpA[s][r] * k[r][j]
			}
			ys[j] = acc
		}
		k[s] = m.derivative(t+dpC[s]*h, ys)
	}
	var next [4]float64
	sum := 0.0
	for j := range next {
		acc, errAcc := y[j], 0.0
		for s := 0; s < 7; s++ {
			acc += h * dpB[s] * k[s][j]
			errAcc += h * dpE[s] * k[s][j]
		}
		next[j] = acc
		scale := opts.AbsTol + opts.RelTol*math.Max(math.Abs(y[j]), math.Abs(acc))
		sum += (errAcc / scale) * (errAcc / scale)
	}
	return next, math.Sqrt(sum / float64(len(next)))
}

// stepFactor is the standard controller for a fifth-order method, clamped to [0.2, 5].
func stepFactor(errNorm float64) float64 {
	if errNorm == 0 {
		return 5
	}
	return math.Min(5, math.Max(0.2, 0.9*math.Pow(errNorm, -0.2)))
}
