package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "Nigeria", cfg.Analysis.Country)
	assert.Equal(t, 2018, cfg.Analysis.StartYear)
	assert.Equal(t, 2024, cfg.Analysis.EndYear)
	assert.Equal(t, "UCSB-CHG/CHIRPS/DAILY", cfg.Analysis.Dataset)
	assert.Equal(t, "FAO/GAUL/2015/level0", cfg.Analysis.BoundaryDataset)
	assert.Equal(t, 5000, cfg.Analysis.Scale)
	assert.Equal(t, 0.0, cfg.Vis.Min)
	assert.Equal(t, 300.0, cfg.Vis.Max)
	assert.Equal(t, []string{"lightblue", "blue", "yellow", "orange", "red"}, cfg.Vis.Palette)
}

func TestNewConfig_EnvironmentOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	t.Setenv("RAINFALL_COUNTRY", "Ghana")
	t.Setenv("RAINFALL_START_YEAR", "2020")
	t.Setenv("RAINFALL_VIS_PALETTE", "white,navy")
	t.Setenv("EE_TIMEOUT", "45s")

	cfg, err := NewConfig()
	require.NoError(t, err)

	assert.Equal(t, "Ghana", cfg.Analysis.Country)
	assert.Equal(t, 2020, cfg.Analysis.StartYear)
	assert.Equal(t, []string{"white", "navy"}, cfg.Vis.Palette)
	assert.Equal(t, "45s", cfg.EarthEngine.Timeout.String())
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Analysis: Analysis{Country: "Nigeria", StartYear: 2018, EndYear: 2024, Scale: 5000, Workers: 4},
			Vis:      Vis{Min: 0, Max: 300, Palette: []string{"blue", "red"}},
		}
	}

	cfg := base()
	assert.NoError(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.EndYear = 2017
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Vis.Max = 0
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Vis.Palette = []string{"blue"}
	assert.Error(t, cfg.Validate())

	cfg = base()
	cfg.Analysis.Workers = 0
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 1, cfg.Analysis.Workers)
}
