// Package sim provides the SEIR epidemic simulation and alignment core.
//
// # Reading Guide
//
// Start with these files to understand one run:
//   - config.go: Config with documented defaults, validation and derived rates
//   - pipeline.go: the run order (policy, integration, observables, offset, calendar)
//   - observables.go: lagged signals and the ICU-dependent death fold
//
// # Architecture
//
// The sim package holds the numerical core; collaborators live in sub-packages:
//   - sim/data/: population table and observed case/death series (DataSource)
//   - sim/trace/: decision trace recording (policy phases, offset candidates, IFR regimes)
//   - sim/sweep/: parallel parameter sweeps over independent runs
//
// # Key Types
//
//   - TransmissionPolicy: day -> beta; PiecewiseConstant generalises the lockdown switch
//   - CompartmentModel: SEIR rate equations
//   - Integrate: adaptive Dormand-Prince 5(4) over the day grid
//   - Delay: fractional time shift with linear interpolation
//   - OffsetMatcher: integer shift minimising the death-curve discrepancy
//
// All failures are *Error values whose Kind is one of configuration,
// integration, alignment or data-unavailable.
package sim
