package data

import (
	"context"
	"fmt"
	"os"

	"github.com/seir-sim/seir-sim/sim"
)

// FileSource serves a sim.DataSource from local files: a population table in
// YAML and the CSSE confirmed and deaths time-series CSVs.
type FileSource struct {
	PopulationPath string
	ConfirmedPath  string
	DeathsPath     string
}

var _ sim.DataSource = (*FileSource)(nil)

// Population looks region up in the population table.
func (s *FileSource) Population(ctx context.Context, region sim.Region) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s.PopulationPath == "" {
		return 0, sim.NewDataUnavailableError("lookup population", sim.Params{"country": region.Country},
			fmt.Errorf("no population table configured"))
	}
	f, err := os.Open(s.PopulationPath)
	if err != nil {
		return 0, sim.NewDataUnavailableError("lookup population", sim.Params{"path": s.PopulationPath}, err)
	}
	defer f.Close()
	table, err := LoadPopulationTable(f)
	if err != nil {
		return 0, sim.NewDataUnavailableError("lookup population", sim.Params{"path": s.PopulationPath}, err)
	}
	return table.Lookup(region)
}

// Observed loads both time series and combines them for region. With no
// time-series files configured it returns an empty series.
func (s *FileSource) Observed(ctx context.Context, region sim.Region, withDates bool) (sim.ObservedSeries, error) {
	if s.ConfirmedPath == "" && s.DeathsPath == "" {
		return nil, nil
	}
	confirmed, err := loadTimeSeries(ctx, s.ConfirmedPath)
	if err != nil {
		return nil, err
	}
	deaths, err := loadTimeSeries(ctx, s.DeathsPath)
	if err != nil {
		return nil, err
	}
	return Combine(confirmed, deaths, region, withDates)
}

func loadTimeSeries(ctx context.Context, path string) (*TimeSeries, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params := sim.Params{"path": path}
	if path == "" {
		return nil, sim.NewDataUnavailableError("load time series", params, fmt.Errorf("both confirmed and deaths files are required"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, sim.NewDataUnavailableError("load time series", params, err)
	}
	defer f.Close()
	ts, err := ParseTimeSeries(f)
	if err != nil {
		return nil, sim.NewDataUnavailableError("load time series", params, err)
	}
	return ts, nil
}
