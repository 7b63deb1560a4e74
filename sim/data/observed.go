package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/seir-sim/seir-sim/sim"
)

// csseDateLayout is the column header date format of the CSSE time series.
const csseDateLayout = "1/2/06"

// csseLeadingColumns precede the date columns: Province/State, Country/Region, Lat, Long.
const csseLeadingColumns = 4

// TimeSeries is a parsed CSSE global time-series table (confirmed or deaths).
type TimeSeries struct {
	Dates []time.Time
	Rows  []TimeSeriesRow
}

// TimeSeriesRow is one province (or whole country) of a TimeSeries.
type TimeSeriesRow struct {
	Province string
	Country  string
	Values   []float64
}

// ParseTimeSeries reads a CSSE global time-series CSV.
func ParseTimeSeries(r io.Reader) (*TimeSeries, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read time series header: %w", err)
	}
	if len(header) <= csseLeadingColumns {
		return nil, fmt.Errorf("time series header has no date columns (%d columns)", len(header))
	}
	ts := &TimeSeries{Dates: make([]time.Time, 0, len(header)-csseLeadingColumns)}
	for _, h := range header[csseLeadingColumns:] {
		d, err := time.Parse(csseDateLayout, strings.TrimSpace(h))
		if err != nil {
			return nil, fmt.Errorf("parse date column %q: %w", h, err)
		}
		ts.Dates = append(ts.Dates, d)
	}

	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read time series line %d: %w", line, err)
		}
		if len(record) != len(header) {
			return nil, fmt.Errorf("time series line %d: %d fields, want %d", line, len(record), len(header))
		}
		row := TimeSeriesRow{
			Province: strings.TrimSpace(record[0]),
			Country:  strings.TrimSpace(record[1]),
			Values:   make([]float64, len(ts.Dates)),
		}
		for i, field := range record[csseLeadingColumns:] {
			field = strings.TrimSpace(field)
			if field == "" {
				continue
			}
			v, err := strconv.ParseFloat(field, 64)
			if err != nil {
				return nil, fmt.Errorf("time series line %d, column %d: %w", line, i+csseLeadingColumns+1, err)
			}
			row.Values[i] = v
		}
		ts.Rows = append(ts.Rows, row)
	}
	return ts, nil
}

// Aggregate sums the rows selected by region, per date. It reports whether
// any row matched.
func (ts *TimeSeries) Aggregate(region sim.Region) ([]float64, bool) {
	sum := make([]float64, len(ts.Dates))
	excluded := excludeSet(region.Exclude)
	allCountries := strings.EqualFold(region.Country, sim.AllProvinces)
	allProvinces := region.Province == "" || strings.EqualFold(region.Province, sim.AllProvinces)
	matched := false
	for _, row := range ts.Rows {
		switch {
		case allCountries:
			if excluded[strings.ToLower(row.Country)] {
				continue
			}
		case !strings.EqualFold(row.Country, region.Country):
			continue
		case !allProvinces && !strings.EqualFold(row.Province, region.Province):
			continue
		}
		matched = true
		for i, v := range row.Values {
			sum[i] += v
		}
	}
	return sum, matched
}

// Combine builds the observed series of region from the confirmed and deaths tables.
func Combine(confirmed, deaths *TimeSeries, region sim.Region, withDates bool) (sim.ObservedSeries, error) {
	params := sim.Params{"country": region.Country, "province": region.Province}
	if len(confirmed.Dates) != len(deaths.Dates) || (len(confirmed.Dates) > 0 && !confirmed.Dates[0].Equal(deaths.Dates[0])) {
		return nil, sim.NewDataUnavailableError("combine observed series", params,
			fmt.Errorf("confirmed and deaths tables cover different dates"))
	}
	c, okC := confirmed.Aggregate(region)
	d, okD := deaths.Aggregate(region)
	if !okC || !okD {
		return nil, sim.NewDataUnavailableError("combine observed series", params, fmt.Errorf("region not in time series"))
	}
	out := make(sim.ObservedSeries, len(c))
	for i := range out {
		out[i] = sim.ObservedPoint{Confirmed: c[i], Deaths: d[i]}
		if withDates {
			out[i].Date = confirmed.Dates[i]
		}
	}
	logrus.Debugf("observed series for %s/%s: %d days", region.Country, region.Province, len(out))
	return out, nil
}
