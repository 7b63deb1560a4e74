package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/seir-sim/seir-sim/sim"
	"github.com/seir-sim/seir-sim/sim/data"
	"github.com/seir-sim/seir-sim/sim/trace"
)

var (
	logLevel         string // Log verbosity level
	defaultsFilePath string // Path to the scenario presets
	scenarioName     string // Preset in defaults.yaml; empty uses the file's default

	// Region and population
	country        string   // Country name as in the data files, or "all"
	province       string   // Province name, "" or "all" for the whole country
	exclude        []string // Countries left out of a "all" aggregate
	population     float64  // Overrides the population table when > 0
	populationFile string   // Population table (YAML)
	confirmedFile  string   // CSSE confirmed time series (CSV)
	deathsFile     string   // CSSE deaths time series (CSV)

	// Epidemic timeline
	daysTotal      int      // Simulated days
	initialExposed float64  // Exposed individuals on day 0
	r0             float64  // Reproduction number before lockdown
	r1             float64  // Reproduction number after lockdown
	firstInfection string   // Date of day 0
	lockdown       string   // Date the policy switches to r1
	phases         []string // Further change points as DATE:R
	icuCapacity    float64  // ICU beds

	// Biological constants
	daysPresymptomatic   float64
	daysToIncubation     float64
	generationTime       float64
	detectionFraction    float64
	timeInHospital       float64
	communicationLag     float64
	testLag              float64
	symptomToHospitalLag float64
	hospitalToICULag     float64
	ifrWithICU           float64
	ifrWithoutICU        float64
	icuRate              float64

	// Alignment
	icuCorrection string // rounded, exact or none
	offsetFlag    string // "auto" or a fixed day offset
	metric        string // squared, absolute or log
	maxOffset     int    // Offset search bound; 0 means the whole run
	minOverlap    int    // Minimum overlapping days per candidate offset

	// Output
	traceLevel string // Decision trace verbosity
	outputPath string // CSV file for the aligned series
)

// rootCmd is the base command for the CLI
var rootCmd = &cobra.Command{
	Use:   "seir-sim",
	Short: "SEIR epidemic simulator with death-curve alignment",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return fmt.Errorf("invalid log level: %s", logLevel)
		}
		logrus.SetLevel(level)
		return nil
	},
}

// runCmd executes one simulation using parameters from CLI flags
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one SEIR simulation and align it to observed deaths",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildConfig(cmd)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if !trace.IsValidTraceLevel(traceLevel) {
			logrus.Fatalf("Invalid trace level: %s", traceLevel)
		}

		if _, err := c.Derive(); err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		in, err := sim.Fetch(cmd.Context(), fileSource(), c)
		if err != nil {
			logrus.Fatalf("Failed to load inputs: %v", err)
		}
		c = offsetFallback(c, in)

		p, err := sim.NewPipeline(c)
		if err != nil {
			logrus.Fatalf("Invalid configuration: %v", err)
		}
		if trace.TraceLevel(traceLevel) == trace.TraceLevelDecisions {
			p.Trace = trace.NewSimulationTrace(trace.TraceConfig{Level: trace.TraceLevelDecisions})
		}

		logrus.Infof("Starting simulation of %s/%s: %d days, R0=%.2f, R1=%.2f, lockdown %s",
			c.Region.Country, c.Region.Province, c.DaysTotal, c.R0, c.R1, c.Lockdown.Format(sim.DateLayout))
		r, err := p.Run(in)
		if err != nil {
			logrus.Fatalf("Simulation failed (%s): %v", sim.KindOf(err), err)
		}

		if err := writeSummary(os.Stdout, r.Summary); err != nil {
			logrus.Fatalf("Failed to write summary: %v", err)
		}
		for _, day := range reportDays(r) {
			rep, err := r.DayReport(day)
			if err != nil {
				logrus.Fatalf("Failed to build day report: %v", err)
			}
			writeDayReport(os.Stdout, rep)
		}
		if p.Trace.Enabled() {
			writeTraceSummary(os.Stdout, trace.Summarize(p.Trace))
		}
		if outputPath != "" {
			if err := writeSeriesFile(outputPath, r); err != nil {
				logrus.Fatalf("Failed to write series: %v", err)
			}
			logrus.Infof("Aligned series written to %s", outputPath)
		}
		logrus.Info("Simulation complete.")
	},
}

// Execute runs the CLI root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// fileSource builds the DataSource from the data file flags.
func fileSource() sim.DataSource {
	return &data.FileSource{
		PopulationPath: populationFile,
		ConfirmedPath:  confirmedFile,
		DeathsPath:     deathsFile,
	}
}

// offsetFallback replaces an automatic offset by 0 when no observed series
// was loaded, since there is nothing to align against.
func offsetFallback(c sim.Config, in sim.Inputs) sim.Config {
	if c.Offset.Auto && len(in.Observed) == 0 {
		logrus.Warn("No observed data loaded; using offset 0 instead of auto")
		c.Offset = sim.FixedOffset(0)
	}
	return c
}

// reportDays lists the simulation days printed after a run: the lockdown
// day, when simulated, and the last day.
func reportDays(r *sim.Result) []int {
	last := r.Trajectory.Len() - 1
	lock := r.Derived.DaysBeforeLockdown
	if lock < last {
		return []int{lock, last}
	}
	return []int{last}
}

// buildConfig layers the built-in defaults, the selected scenario preset and
// the explicitly set flags, in that order.
func buildConfig(cmd *cobra.Command) (sim.Config, error) {
	c := sim.DefaultConfig()
	f := cmd.Flags()

	presets, err := loadDefaultsConfig(defaultsFilePath)
	switch {
	case err == nil:
		s, err := presets.lookupScenario(scenarioName)
		if err != nil {
			return c, err
		}
		if c, err = s.apply(c); err != nil {
			return c, err
		}
	case errors.Is(err, os.ErrNotExist) && !f.Changed("defaults") && scenarioName == "":
		logrus.Debugf("No defaults file at %s, using built-in defaults", defaultsFilePath)
	default:
		return c, err
	}

	if f.Changed("country") {
		c.Region.Country = country
		if !f.Changed("province") {
			c.Region.Province = ""
		}
	}
	if f.Changed("province") {
		c.Region.Province = province
	}
	if f.Changed("exclude") {
		c.Region.Exclude = exclude
	}
	if f.Changed("population") {
		c.Population = population
	}
	if f.Changed("days") {
		c.DaysTotal = daysTotal
	}
	if f.Changed("initial-exposed") {
		c.InitialExposed = initialExposed
	}
	if f.Changed("r0") {
		c.R0 = r0
	}
	if f.Changed("r1") {
		c.R1 = r1
	}
	if f.Changed("icu-capacity") {
		c.ICUCapacity = icuCapacity
	}
	if f.Changed("first-infection") {
		if c.FirstInfection, err = parseDate(firstInfection); err != nil {
			return c, err
		}
	}
	if f.Changed("lockdown") {
		if c.Lockdown, err = parseDate(lockdown); err != nil {
			return c, err
		}
	}
	if f.Changed("phase") {
		if c.Phases, err = parsePhases(phases); err != nil {
			return c, err
		}
	}

	epi := map[string]struct {
		dst *float64
		val float64
	}{
		"days-presymptomatic":     {&c.Epi.DaysPresymptomatic, daysPresymptomatic},
		"days-to-incubation":      {&c.Epi.DaysToIncubation, daysToIncubation},
		"generation-time":         {&c.Epi.GenerationTime, generationTime},
		"detection-fraction":      {&c.Epi.DetectionFraction, detectionFraction},
		"time-in-hospital":        {&c.Epi.TimeInHospital, timeInHospital},
		"communication-lag":       {&c.Epi.CommunicationLag, communicationLag},
		"test-lag":                {&c.Epi.TestLag, testLag},
		"symptom-to-hospital-lag": {&c.Epi.SymptomToHospitalLag, symptomToHospitalLag},
		"hospital-to-icu-lag":     {&c.Epi.HospitalToICULag, hospitalToICULag},
		"ifr-with-icu":            {&c.Epi.IFRWithICU, ifrWithICU},
		"ifr-without-icu":         {&c.Epi.IFRWithoutICU, ifrWithoutICU},
		"icu-rate":                {&c.Epi.ICURate, icuRate},
	}
	for name, e := range epi {
		if f.Changed(name) {
			*e.dst = e.val
		}
	}

	c.ICUCorrection = sim.ICUCorrection(icuCorrection)
	c.Metric = sim.Metric(metric)
	c.MaxOffset = maxOffset
	c.MinOverlap = minOverlap
	if c.Offset, err = parseOffset(offsetFlag); err != nil {
		return c, err
	}
	return c, nil
}

// parseOffset accepts "auto" or an integer day offset.
func parseOffset(s string) (sim.OffsetMode, error) {
	if strings.EqualFold(s, "auto") {
		return sim.AutoOffset(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return sim.OffsetMode{}, fmt.Errorf("invalid offset %q, expected \"auto\" or an integer", s)
	}
	return sim.FixedOffset(n), nil
}

// parsePhases parses DATE:R pairs such as 2020-05-01:1.3.
func parsePhases(specs []string) ([]sim.Phase, error) {
	out := make([]sim.Phase, 0, len(specs))
	for _, s := range specs {
		date, rs, ok := strings.Cut(s, ":")
		if !ok {
			return nil, fmt.Errorf("invalid phase %q, expected DATE:R", s)
		}
		d, err := parseDate(date)
		if err != nil {
			return nil, err
		}
		r, err := strconv.ParseFloat(rs, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid reproduction number in phase %q", s)
		}
		out = append(out, sim.Phase{Date: d, R: r})
	}
	return out, nil
}

// registerConfigFlags attaches the simulation parameter flags shared by run and sweep.
func registerConfigFlags(cmd *cobra.Command) {
	d := sim.DefaultConfig()
	e := d.Epi

	cmd.Flags().StringVar(&defaultsFilePath, "defaults", "defaults.yaml", "Path to scenario presets")
	cmd.Flags().StringVar(&scenarioName, "scenario", "", "Scenario preset from the defaults file")

	// Region and data files
	cmd.Flags().StringVar(&country, "country", d.Region.Country, "Country, or \"all\" for the world")
	cmd.Flags().StringVar(&province, "province", d.Region.Province, "Province, or \"all\" for the whole country")
	cmd.Flags().StringSliceVar(&exclude, "exclude", nil, "Countries excluded from a \"all\" aggregate")
	cmd.Flags().Float64Var(&population, "population", 0, "Population; overrides the population table when > 0")
	cmd.Flags().StringVar(&populationFile, "population-file", "", "Population table (YAML)")
	cmd.Flags().StringVar(&confirmedFile, "confirmed-file", "", "Confirmed cases time series (CSSE CSV)")
	cmd.Flags().StringVar(&deathsFile, "deaths-file", "", "Deaths time series (CSSE CSV)")

	// Timeline and transmission
	cmd.Flags().IntVar(&daysTotal, "days", d.DaysTotal, "Number of simulated days")
	cmd.Flags().Float64Var(&initialExposed, "initial-exposed", d.InitialExposed, "Exposed individuals on day 0")
	cmd.Flags().Float64Var(&r0, "r0", d.R0, "Reproduction number before lockdown")
	cmd.Flags().Float64Var(&r1, "r1", d.R1, "Reproduction number after lockdown")
	cmd.Flags().StringVar(&firstInfection, "first-infection", d.FirstInfection.Format(sim.DateLayout), "Date of the first infection (day 0)")
	cmd.Flags().StringVar(&lockdown, "lockdown", d.Lockdown.Format(sim.DateLayout), "Date the lockdown takes effect")
	cmd.Flags().StringSliceVar(&phases, "phase", nil, "Further change points after lockdown as DATE:R (repeatable)")
	cmd.Flags().Float64Var(&icuCapacity, "icu-capacity", d.ICUCapacity, "ICU beds available")

	// Biological constants
	cmd.Flags().Float64Var(&daysPresymptomatic, "days-presymptomatic", e.DaysPresymptomatic, "Infectious days before symptom onset")
	cmd.Flags().Float64Var(&daysToIncubation, "days-to-incubation", e.DaysToIncubation, "Days from exposure to symptom onset")
	cmd.Flags().Float64Var(&generationTime, "generation-time", e.GenerationTime, "Mean generation time in days")
	cmd.Flags().Float64Var(&detectionFraction, "detection-fraction", e.DetectionFraction, "Share of infectious individuals detected")
	cmd.Flags().Float64Var(&timeInHospital, "time-in-hospital", e.TimeInHospital, "Days spent in hospital")
	cmd.Flags().Float64Var(&communicationLag, "communication-lag", e.CommunicationLag, "Days from test result to publication")
	cmd.Flags().Float64Var(&testLag, "test-lag", e.TestLag, "Days from symptoms to test result")
	cmd.Flags().Float64Var(&symptomToHospitalLag, "symptom-to-hospital-lag", e.SymptomToHospitalLag, "Days from symptoms to hospitalisation")
	cmd.Flags().Float64Var(&hospitalToICULag, "hospital-to-icu-lag", e.HospitalToICULag, "Days from hospitalisation to ICU")
	cmd.Flags().Float64Var(&ifrWithICU, "ifr-with-icu", e.IFRWithICU, "Infection fatality rate while ICU capacity lasts")
	cmd.Flags().Float64Var(&ifrWithoutICU, "ifr-without-icu", e.IFRWithoutICU, "Infection fatality rate above ICU capacity")
	cmd.Flags().Float64Var(&icuRate, "icu-rate", e.ICURate, "Share of infectious needing intensive care")

	// Alignment
	cmd.Flags().StringVar(&icuCorrection, "icu-correction", string(d.ICUCorrection), "ICU delay correction (rounded, exact, none)")
	cmd.Flags().StringVar(&offsetFlag, "offset", "auto", "Day offset between simulation and observed data, or \"auto\"")
	cmd.Flags().StringVar(&metric, "metric", string(d.Metric), "Offset search discrepancy (squared, absolute, log)")
	cmd.Flags().IntVar(&maxOffset, "max-offset", d.MaxOffset, "Offset search bound in days; 0 searches the whole run")
	cmd.Flags().IntVar(&minOverlap, "min-overlap", d.MinOverlap, "Minimum overlapping days for a candidate offset")
}

// init sets up CLI flags and subcommands
func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log", "error", "Log level (trace, debug, info, warn, error, fatal, panic)")

	registerConfigFlags(runCmd)
	runCmd.Flags().StringVar(&traceLevel, "trace", string(trace.TraceLevelNone), "Decision trace level (none, decisions)")
	runCmd.Flags().StringVar(&outputPath, "output", "", "Write the aligned series to this CSV file")

	// Attach `run` as a subcommand to `root`
	rootCmd.AddCommand(runCmd)
}
