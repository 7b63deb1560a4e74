package cmd

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/seir-sim/seir-sim/sim"
)

// parseConfigFlags registers the shared flags on a fresh command, parses
// args and builds the resulting configuration.
func parseConfigFlags(t *testing.T, args ...string) (sim.Config, error) {
	t.Helper()
	cmd := &cobra.Command{Use: "test"}
	registerConfigFlags(cmd)
	require.NoError(t, cmd.Flags().Parse(args))
	return buildConfig(cmd)
}

func TestBuildConfig_NoDefaultsFile_UsesBuiltIns(t *testing.T) {
	// GIVEN no defaults.yaml in the working directory and no flags
	// WHEN the configuration is built
	c, err := parseConfigFlags(t)
	require.NoError(t, err)

	// THEN it equals the built-in defaults
	assert.Equal(t, sim.DefaultConfig(), c)
}

func TestBuildConfig_ScenarioThenExplicitFlags(t *testing.T) {
	// GIVEN a defaults file with a germany scenario
	path := writeDefaults(t, `version: "1"
default: florida
scenarios:
  florida:
    country: US
    province: Florida
  germany:
    country: Germany
    province: all
    r1: 0.9
    lockdown: "2020-03-22"
    icu_capacity: 28000
`)

	// WHEN the scenario is selected and r1 is set on the command line
	c, err := parseConfigFlags(t, "--defaults", path, "--scenario", "germany", "--r1", "0.7", "--ifr-with-icu", "0.005")
	require.NoError(t, err)

	// THEN the preset applies
	assert.Equal(t, sim.Region{Country: "Germany", Province: "all"}, c.Region)
	assert.Equal(t, 28000.0, c.ICUCapacity)
	assert.Equal(t, time.Date(2020, 3, 22, 0, 0, 0, 0, time.UTC), c.Lockdown)

	// AND explicit flags win over the preset
	assert.Equal(t, 0.7, c.R1)
	assert.Equal(t, 0.005, c.Epi.IFRWithICU)

	// AND flags left at their defaults do not clobber the preset
	assert.Equal(t, sim.DefaultConfig().R0, c.R0)
}

func TestBuildConfig_CountryFlag_ClearsPresetProvince(t *testing.T) {
	c, err := parseConfigFlags(t, "--country", "Germany")
	require.NoError(t, err)
	assert.Equal(t, sim.Region{Country: "Germany"}, c.Region)

	c, err = parseConfigFlags(t, "--country", "all", "--exclude", "China,Korea, South")
	require.NoError(t, err)
	assert.Equal(t, "all", c.Region.Country)
	assert.Len(t, c.Region.Exclude, 3, "pflag splits slices on commas")
}

func TestBuildConfig_ExplicitMissingDefaults_Fails(t *testing.T) {
	_, err := parseConfigFlags(t, "--defaults", "does-not-exist.yaml")
	assert.Error(t, err)
}

func TestBuildConfig_ScenarioWithoutDefaultsFile_Fails(t *testing.T) {
	_, err := parseConfigFlags(t, "--scenario", "germany")
	assert.Error(t, err)
}

func TestBuildConfig_AlignmentFlags(t *testing.T) {
	c, err := parseConfigFlags(t,
		"--offset", "-12", "--metric", "log", "--icu-correction", "exact",
		"--max-offset", "40", "--min-overlap", "3",
		"--phase", "2020-05-01:1.3", "--phase", "2020-06-01:0.9")
	require.NoError(t, err)

	assert.Equal(t, sim.FixedOffset(-12), c.Offset)
	assert.Equal(t, sim.MetricLog, c.Metric)
	assert.Equal(t, sim.ICUCorrectionExact, c.ICUCorrection)
	assert.Equal(t, 40, c.MaxOffset)
	assert.Equal(t, 3, c.MinOverlap)
	require.Len(t, c.Phases, 2)
	assert.Equal(t, 0.9, c.Phases[1].R)
	assert.NoError(t, c.Validate())
}

func TestBuildConfig_InvalidDate(t *testing.T) {
	_, err := parseConfigFlags(t, "--lockdown", "2020-13-01")
	assert.Error(t, err)
}

func TestParseOffset(t *testing.T) {
	tests := []struct {
		in      string
		want    sim.OffsetMode
		wantErr bool
	}{
		{in: "auto", want: sim.AutoOffset()},
		{in: "AUTO", want: sim.AutoOffset()},
		{in: "0", want: sim.FixedOffset(0)},
		{in: "35", want: sim.FixedOffset(35)},
		{in: "-4", want: sim.FixedOffset(-4)},
		{in: "3.5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseOffset(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParsePhases(t *testing.T) {
	got, err := parsePhases([]string{"2020-05-01:1.25"})
	require.NoError(t, err)
	assert.Equal(t, []sim.Phase{{Date: time.Date(2020, 5, 1, 0, 0, 0, 0, time.UTC), R: 1.25}}, got)

	for _, bad := range []string{"2020-05-01", "2020-05-01:x", "May 1:1.0"} {
		_, err := parsePhases([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestOffsetFallback(t *testing.T) {
	c := sim.DefaultConfig()

	// GIVEN auto offset and no observed data
	// THEN the offset falls back to 0
	got := offsetFallback(c, sim.Inputs{Population: 1e6})
	assert.Equal(t, sim.FixedOffset(0), got.Offset)

	// AND with observed data the automatic search is kept
	got = offsetFallback(c, sim.Inputs{Population: 1e6, Observed: sim.ObservedSeries{{Deaths: 1}}})
	assert.Equal(t, sim.AutoOffset(), got.Offset)

	// AND a fixed offset is never touched
	c.Offset = sim.FixedOffset(12)
	got = offsetFallback(c, sim.Inputs{Population: 1e6})
	assert.Equal(t, sim.FixedOffset(12), got.Offset)
}
