package cmd

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/seir-sim/seir-sim/sim"
)

// Scenario is a preset run configuration in defaults.yaml. Absent keys leave
// the built-in default in place; a key set to 0 applies 0.
type Scenario struct {
	Country        string          `yaml:"country"`
	Province       string          `yaml:"province"`
	Exclude        []string        `yaml:"exclude"`
	Population     *float64        `yaml:"population"`
	DaysTotal      *int            `yaml:"days_total"`
	InitialExposed *float64        `yaml:"initial_exposed"`
	R0             *float64        `yaml:"r0"`
	R1             *float64        `yaml:"r1"`
	FirstInfection string          `yaml:"first_infection"`
	Lockdown       string          `yaml:"lockdown"`
	Phases         []ScenarioPhase `yaml:"phases"`
	ICUCapacity    *float64        `yaml:"icu_capacity"`
	DetectionRate  *float64        `yaml:"detection_fraction"`
	IFRWithICU     *float64        `yaml:"ifr_with_icu"`
	IFRWithoutICU  *float64        `yaml:"ifr_without_icu"`
	ICURate        *float64        `yaml:"icu_rate"`
}

// ScenarioPhase is one post-lockdown change point of a Scenario.
type ScenarioPhase struct {
	Date string  `yaml:"date"`
	R    float64 `yaml:"r"`
}

// Config represents the full defaults.yaml structure.
// All top-level sections must be listed to satisfy KnownFields(true) strict parsing.
type Config struct {
	Version   string              `yaml:"version"`
	Default   string              `yaml:"default"`
	Scenarios map[string]Scenario `yaml:"scenarios"`
}

// loadDefaultsConfig parses defaults.yaml with strict field checking so that
// typos in scenario keys are reported instead of silently ignored.
func loadDefaultsConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read defaults file %s: %w", path, err)
	}
	var cfg Config
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse defaults file %s: %w", path, err)
	}
	return cfg, nil
}

// lookupScenario returns the named scenario, or the file's default scenario
// when name is empty.
func (c Config) lookupScenario(name string) (Scenario, error) {
	if name == "" {
		name = c.Default
	}
	if name == "" {
		return Scenario{}, nil
	}
	s, ok := c.Scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("unknown scenario %q", name)
	}
	return s, nil
}

// apply overlays the fields present in s on base.
func (s Scenario) apply(base sim.Config) (sim.Config, error) {
	c := base
	if s.Country != "" {
		c.Region = sim.Region{Country: s.Country, Province: s.Province, Exclude: s.Exclude}
	}
	setIfPresent(&c.Population, s.Population)
	setIfPresent(&c.DaysTotal, s.DaysTotal)
	setIfPresent(&c.InitialExposed, s.InitialExposed)
	setIfPresent(&c.R0, s.R0)
	setIfPresent(&c.R1, s.R1)
	setIfPresent(&c.ICUCapacity, s.ICUCapacity)
	setIfPresent(&c.Epi.DetectionFraction, s.DetectionRate)
	setIfPresent(&c.Epi.IFRWithICU, s.IFRWithICU)
	setIfPresent(&c.Epi.IFRWithoutICU, s.IFRWithoutICU)
	setIfPresent(&c.Epi.ICURate, s.ICURate)
	var err error
	if s.FirstInfection != "" {
		if c.FirstInfection, err = parseDate(s.FirstInfection); err != nil {
			return base, err
		}
	}
	if s.Lockdown != "" {
		if c.Lockdown, err = parseDate(s.Lockdown); err != nil {
			return base, err
		}
	}
	if len(s.Phases) > 0 {
		c.Phases = make([]sim.Phase, len(s.Phases))
		for i, p := range s.Phases {
			d, err := parseDate(p.Date)
			if err != nil {
				return base, err
			}
			c.Phases[i] = sim.Phase{Date: d, R: p.R}
		}
	}
	return c, nil
}

func setIfPresent[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

func parseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(sim.DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}
