package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seir-sim/seir-sim/sim"
	"github.com/seir-sim/seir-sim/sim/sweep"
)

var (
	sweepParam   string    // Parameter name from sweep.Parameters
	sweepValues  []float64 // Values assigned to the parameter, one run each
	sweepWorkers int       // Concurrent runs; 0 uses GOMAXPROCS
)

// sweepCmd runs one simulation per parameter value against shared inputs
var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Run the simulation over a range of values for one parameter",
	Run: func(cmd *cobra.Command, args []string) {
		apply, ok := sweep.Parameters[sweepParam]
		if !ok {
			logrus.Fatalf("Unknown sweep parameter %q; valid: %s", sweepParam, sweepParameterNames())
		}
		if len(sweepValues) == 0 {
			logrus.Fatalf("No sweep values given")
		}
		c, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		in, err := sim.Fetch(cmd.Context(), fileSource(), c)
		if err != nil {
			logrus.Fatalf("Failed to load inputs: %v", err)
		}
		c = offsetFallback(c, in)

		logrus.Infof("Sweeping %s over %d values", sweepParam, len(sweepValues))
		points, err := sweep.Run(cmd.Context(), c, in, apply, sweepValues, sweep.Options{Workers: sweepWorkers})
		if err != nil {
			logrus.Fatalf("Sweep failed (%s): %v", sim.KindOf(err), err)
		}
		writeSweep(os.Stdout, sweepParam, points)
	},
}

func sweepParameterNames() string {
	names := make([]string, 0, len(sweep.Parameters))
	for name := range sweep.Parameters {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func init() {
	registerConfigFlags(sweepCmd)
	sweepCmd.Flags().StringVar(&sweepParam, "param", "r1", fmt.Sprintf("Parameter to sweep (%s)", sweepParameterNames()))
	sweepCmd.Flags().Float64SliceVar(&sweepValues, "values", nil, "Comma-separated values of the swept parameter")
	sweepCmd.Flags().IntVar(&sweepWorkers, "workers", 0, "Concurrent runs; 0 uses all CPUs")

	rootCmd.AddCommand(sweepCmd)
}
