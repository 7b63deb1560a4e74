package cmd

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/seir-sim/seir-sim/sim"
	"github.com/seir-sim/seir-sim/sim/sweep"
	"github.com/seir-sim/seir-sim/sim/trace"
)

// writeSummary prints the run summary as a YAML document.
func writeSummary(w io.Writer, s sim.Summary) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(s); err != nil {
		return err
	}
	return enc.Close()
}

// writeDayReport prints the main quantities of one day with their share of
// the population.
func writeDayReport(w io.Writer, rep sim.DayReport) {
	fmt.Fprintf(w, "\nDay %d (%s)\n", rep.Day, rep.Date.Format(sim.DateLayout))
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	rows := []struct {
		label string
		value float64
	}{
		{"infectious", rep.Infectious},
		{"detected cases", rep.DetectedCases},
		{"cumulative cases", rep.CumulativeCases},
		{"ICU load", rep.ICULoad},
		{"recovered", rep.Recovered},
		{"deaths", rep.Deaths},
	}
	for _, r := range rows {
		fmt.Fprintf(tw, "  %s\t%.0f\t%.3f%%\t\n", r.label, r.value, rep.Percent(r.value))
	}
	tw.Flush()
}

// writeTraceSummary prints the aggregated decision trace.
func writeTraceSummary(w io.Writer, ts *trace.TraceSummary) {
	fmt.Fprintln(w, "\nDecision trace")
	fmt.Fprintf(w, "  policy phases: %d\n", ts.Phases)
	fmt.Fprintf(w, "  offset candidates: %d (chosen %d, discrepancy %g, margin %g)\n",
		ts.OffsetCandidates, ts.ChosenOffset, ts.BestDiscrepancy, ts.Margin)
	fmt.Fprintf(w, "  fatality regime switches: %d\n", ts.RegimeSwitches)
	if ts.FirstOverflowDay >= 0 {
		fmt.Fprintf(w, "  ICU capacity first exceeded on day %d\n", ts.FirstOverflowDay)
	}
}

// writeSeriesFile writes the aligned series of r as CSV to path.
func writeSeriesFile(path string, r *sim.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := writeSeriesCSV(f, r); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// writeSeriesCSV writes one row per simulated day: the day index, its
// calendar date, every aligned series and the matching observed values.
// Days without an observed counterpart leave the observed columns empty.
func writeSeriesCSV(w io.Writer, r *sim.Result) error {
	series := r.Aligned()
	header := []string{"day", "date"}
	for _, s := range series {
		header = append(header, s.Name)
	}
	header = append(header, "observed_confirmed", "observed_deaths")

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	row := make([]string, len(header))
	for i, date := range r.Dates {
		row[0] = strconv.Itoa(i)
		row[1] = date.Format(sim.DateLayout)
		for k, s := range series {
			row[2+k] = formatValue(s.Points[i].Value)
		}
		obsCol := 2 + len(series)
		row[obsCol], row[obsCol+1] = "", ""
		if j := i - r.Alignment.Offset; j >= 0 && j < len(r.Observed) {
			row[obsCol] = formatValue(r.Observed[j].Confirmed)
			row[obsCol+1] = formatValue(r.Observed[j].Deaths)
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// writeSweep prints one line per sweep point followed by the spread of the
// headline outcomes.
func writeSweep(w io.Writer, param string, points []sweep.Point) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "%s\toffset\tpeak ICU day\tpeak ICU load\toverflow days\ttotal deaths\n", param)
	for _, p := range points {
		s := p.Summary
		fmt.Fprintf(tw, "%g\t%d\t%d\t%.0f\t%d\t%.0f\n",
			p.Value, s.ResolvedOffset, s.PeakICUDay, s.PeakICULoad, s.ICUOverflowDays, s.TotalDeaths)
	}
	tw.Flush()

	fmt.Fprintln(w)
	stats := []struct {
		name  string
		field func(sim.Summary) float64
	}{
		{"total deaths", func(s sim.Summary) float64 { return s.TotalDeaths }},
		{"peak ICU load", func(s sim.Summary) float64 { return s.PeakICULoad }},
		{"resolved offset", func(s sim.Summary) float64 { return float64(s.ResolvedOffset) }},
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "outcome\tmean\tstddev\tmin\tmax")
	for _, st := range stats {
		d := sweep.Describe(points, st.field)
		fmt.Fprintf(tw, "%s\t%.1f\t%.1f\t%.1f\t%.1f\n", st.name, d.Mean, d.StdDev, d.Min, d.Max)
	}
	tw.Flush()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
