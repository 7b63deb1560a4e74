package data

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seir-sim/seir-sim/sim"
)

const populationYAML = `version: "1"
regions:
  - country: US
    province: Florida
    population: 21992985
  - country: US
    province: Texas
    population: 28995881
  - country: Germany
    population: 83166711
  - country: China
    population: 1402112000
  - country: Italy
    population: 60317116
`

const confirmedCSV = `Province/State,Country/Region,Lat,Long,3/1/20,3/2/20,3/3/20
Florida,US,27.7,-81.6,2,3,5
Texas,US,31.0,-100.0,1,1,2
,Germany,51.2,10.5,117,150,188
,Italy,41.9,12.6,1694,2036,2502
Hubei,China,30.9,112.3,66907,66907,67103
`

const deathsCSV = `Province/State,Country/Region,Lat,Long,3/1/20,3/2/20,3/3/20
Florida,US,27.7,-81.6,0,0,1
Texas,US,31.0,-100.0,0,0,0
,Germany,51.2,10.5,0,0,0
,Italy,41.9,12.6,34,52,79
Hubei,China,30.9,112.3,2761,2803,2834
`

func mustTable(t *testing.T) *PopulationTable {
	t.Helper()
	table, err := LoadPopulationTable(strings.NewReader(populationYAML))
	require.NoError(t, err)
	return table
}

func TestPopulationTable_Lookup(t *testing.T) {
	table := mustTable(t)
	tests := []struct {
		name   string
		region sim.Region
		want   float64
	}{
		{"province", sim.Region{Country: "US", Province: "Florida"}, 21992985},
		{"case insensitive", sim.Region{Country: "us", Province: "florida"}, 21992985},
		{"country entry", sim.Region{Country: "Germany", Province: "all"}, 83166711},
		{"provinces summed", sim.Region{Country: "US", Province: "all"}, 21992985 + 28995881},
		{"world without China", sim.Region{Country: "all", Exclude: []string{"China"}}, 83166711 + 60317116 + 21992985 + 28995881},
		{"world without US", sim.Region{Country: "all", Exclude: []string{"us"}}, 83166711 + 60317116 + 1402112000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := table.Lookup(tt.region)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPopulationTable_World_MatchesSeriesAggregation(t *testing.T) {
	// GIVEN a table where US appears only through its provinces
	table := mustTable(t)
	confirmed, err := ParseTimeSeries(strings.NewReader(confirmedCSV))
	require.NoError(t, err)
	world := sim.Region{Country: "all", Exclude: []string{"China"}}

	// WHEN the world population and world series are both aggregated
	population, err := table.Lookup(world)
	require.NoError(t, err)
	series, ok := confirmed.Aggregate(world)
	require.True(t, ok)

	// THEN the population covers every country the series counts
	wantSeries := []float64{2 + 1 + 117 + 1694, 3 + 1 + 150 + 2036, 5 + 2 + 188 + 2502}
	assert.Equal(t, wantSeries, series)
	assert.Equal(t, 21992985.0+28995881+83166711+60317116, population)
}

func TestPopulationTable_UnknownRegion_DataUnavailable(t *testing.T) {
	_, err := mustTable(t).Lookup(sim.Region{Country: "Atlantis"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, sim.ErrDataUnavailable))

	_, err = mustTable(t).Lookup(sim.Region{Country: "US", Province: "Ohio"})
	assert.True(t, errors.Is(err, sim.ErrDataUnavailable))
}

func TestLoadPopulationTable_StrictFields(t *testing.T) {
	// Typos must cause errors
	_, err := LoadPopulationTable(strings.NewReader("regions:\n  - country: US\n    populaton: 5\n"))
	assert.Error(t, err)

	_, err = LoadPopulationTable(strings.NewReader("regions:\n  - country: US\n    population: 0\n"))
	assert.Error(t, err)
}

func TestParseTimeSeries_DatesAndRows(t *testing.T) {
	ts, err := ParseTimeSeries(strings.NewReader(confirmedCSV))
	require.NoError(t, err)

	require.Len(t, ts.Dates, 3)
	assert.Equal(t, time.Date(2020, time.March, 1, 0, 0, 0, 0, time.UTC), ts.Dates[0])
	require.Len(t, ts.Rows, 5)
	assert.Equal(t, "Florida", ts.Rows[0].Province)
	assert.Equal(t, []float64{117, 150, 188}, ts.Rows[2].Values)
}

func TestParseTimeSeries_Malformed(t *testing.T) {
	tests := map[string]string{
		"no dates":     "Province/State,Country/Region,Lat,Long\n",
		"bad date":     "Province/State,Country/Region,Lat,Long,March\n",
		"short row":    "Province/State,Country/Region,Lat,Long,3/1/20\n,Germany,51\n",
		"bad number":   "Province/State,Country/Region,Lat,Long,3/1/20\n,Germany,51,10,many\n",
		"empty reader": "",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseTimeSeries(strings.NewReader(input))
			assert.Error(t, err)
		})
	}
}

func TestCombine_RegionSelection(t *testing.T) {
	confirmed, err := ParseTimeSeries(strings.NewReader(confirmedCSV))
	require.NoError(t, err)
	deaths, err := ParseTimeSeries(strings.NewReader(deathsCSV))
	require.NoError(t, err)

	// GIVEN a single province
	got, err := Combine(confirmed, deaths, sim.Region{Country: "US", Province: "Florida"}, true)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, sim.ObservedPoint{Date: time.Date(2020, time.March, 3, 0, 0, 0, 0, time.UTC), Confirmed: 5, Deaths: 1}, got[2])

	// GIVEN the world except China, without dates
	got, err = Combine(confirmed, deaths, sim.Region{Country: "all", Province: "all", Exclude: []string{"China"}}, false)
	require.NoError(t, err)
	assert.Equal(t, 2.0+1+117+1694, got[0].Confirmed)
	assert.Equal(t, []float64{34, 52, 80}, got.Deaths())
	assert.True(t, got[0].Date.IsZero())

	// GIVEN an unknown country
	_, err = Combine(confirmed, deaths, sim.Region{Country: "Atlantis"}, true)
	assert.True(t, errors.Is(err, sim.ErrDataUnavailable))
}

func TestCombine_MismatchedDates_DataUnavailable(t *testing.T) {
	confirmed, err := ParseTimeSeries(strings.NewReader(confirmedCSV))
	require.NoError(t, err)
	deaths, err := ParseTimeSeries(strings.NewReader("Province/State,Country/Region,Lat,Long,3/1/20\n,Germany,51,10,0\n"))
	require.NoError(t, err)

	_, err = Combine(confirmed, deaths, sim.Region{Country: "Germany"}, true)
	assert.Equal(t, sim.KindDataUnavailable, sim.KindOf(err))
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileSource_ServesDataSource(t *testing.T) {
	dir := t.TempDir()
	src := &FileSource{
		PopulationPath: writeFile(t, dir, "population.yaml", populationYAML),
		ConfirmedPath:  writeFile(t, dir, "confirmed.csv", confirmedCSV),
		DeathsPath:     writeFile(t, dir, "deaths.csv", deathsCSV),
	}
	ctx := context.Background()
	region := sim.Region{Country: "Italy", Province: "all"}

	n, err := src.Population(ctx, region)
	require.NoError(t, err)
	assert.Equal(t, 60317116.0, n)

	observed, err := src.Observed(ctx, region, true)
	require.NoError(t, err)
	assert.Equal(t, []float64{34, 52, 79}, observed.Deaths())
}

func TestFileSource_MissingFiles(t *testing.T) {
	ctx := context.Background()

	observed, err := (&FileSource{}).Observed(ctx, sim.Region{Country: "US"}, true)
	require.NoError(t, err)
	assert.Empty(t, observed)

	_, err = (&FileSource{}).Population(ctx, sim.Region{Country: "US"})
	assert.True(t, errors.Is(err, sim.ErrDataUnavailable))

	_, err = (&FileSource{ConfirmedPath: "/nonexistent/confirmed.csv", DeathsPath: "x"}).Observed(ctx, sim.Region{Country: "US"}, true)
	assert.True(t, errors.Is(err, sim.ErrDataUnavailable))
}

func TestFileSource_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := (&FileSource{PopulationPath: "population.yaml"}).Population(ctx, sim.Region{Country: "US"})
	assert.ErrorIs(t, err, context.Canceled)
}
