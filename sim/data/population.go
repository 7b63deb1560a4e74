// Package data provides the external collaborators of a simulation run:
// population lookup and observed case/death series for a region.
package data

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/seir-sim/seir-sim/sim"
)

// PopulationEntry is one row of the population table. An empty Province
// denotes the whole country.
type PopulationEntry struct {
	Country    string  `yaml:"country"`
	Province   string  `yaml:"province,omitempty"`
	Population float64 `yaml:"population"`
}

// PopulationTable is the population.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type PopulationTable struct {
	Version string            `yaml:"version"`
	Regions []PopulationEntry `yaml:"regions"`
}

// LoadPopulationTable parses a population table with strict field checking.
func LoadPopulationTable(r io.Reader) (*PopulationTable, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read population table: %w", err)
	}
	var table PopulationTable
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	if err := decoder.Decode(&table); err != nil {
		return nil, fmt.Errorf("parse population table: %w", err)
	}
	for i, e := range table.Regions {
		if e.Country == "" || e.Population <= 0 {
			return nil, fmt.Errorf("population table entry %d: country and positive population required", i)
		}
	}
	return &table, nil
}

// Lookup returns the population of region.
//
//   - Country "all" sums every country not in region.Exclude, using the
//     whole-country entry or, when there is none, the sum of its provinces.
//   - Province "" or "all" uses the whole-country entry, or sums the
//     country's provinces when there is none.
//   - Any other Province must match exactly.
func (t *PopulationTable) Lookup(region sim.Region) (float64, error) {
	params := sim.Params{"country": region.Country, "province": region.Province}
	if strings.EqualFold(region.Country, sim.AllProvinces) {
		excluded := excludeSet(region.Exclude)
		whole := make(map[string]float64)
		provinces := make(map[string]float64)
		for _, e := range t.Regions {
			country := strings.ToLower(e.Country)
			if excluded[country] {
				continue
			}
			if e.Province == "" {
				whole[country] = e.Population
			} else {
				provinces[country] += e.Population
			}
		}
		total := 0.0
		for _, n := range whole {
			total += n
		}
		// countries listed only by province
		for country, n := range provinces {
			if _, ok := whole[country]; !ok {
				total += n
			}
		}
		if total == 0 {
			return 0, sim.NewDataUnavailableError("lookup population", params, fmt.Errorf("no countries left after exclusions"))
		}
		return total, nil
	}

	wholeCountry := region.Province == "" || strings.EqualFold(region.Province, sim.AllProvinces)
	provinces, found := 0.0, false
	for _, e := range t.Regions {
		if !strings.EqualFold(e.Country, region.Country) {
			continue
		}
		switch {
		case wholeCountry && e.Province == "":
			return e.Population, nil
		case wholeCountry:
			provinces += e.Population
			found = true
		case strings.EqualFold(e.Province, region.Province):
			return e.Population, nil
		}
	}
	if found {
		return provinces, nil
	}
	return 0, sim.NewDataUnavailableError("lookup population", params, fmt.Errorf("region not in population table"))
}

func excludeSet(names []string) map[string]bool {
	set := make(map[string]bool, len(names))
	for _, n := range names {
		set[strings.ToLower(n)] = true
	}
	return set
}
