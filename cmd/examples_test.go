package cmd

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inference-sim/token-shaper/sim"
	"github.com/inference-sim/token-shaper/sim/workload"
)

// TestExamplePresets_LoadAndValidate verifies that every shipped preset
// decodes strictly and passes validation.
func TestExamplePresets_LoadAndValidate(t *testing.T) {
	for _, name := range []string{"default.yaml", "bursty-poisson.yaml", "trace-preset.yaml"} {
		t.Run(name, func(t *testing.T) {
			cfg, err := LoadPreset(filepath.Join("..", "examples", name), sim.DefaultConfig())
			require.NoError(t, err)
			assert.NoError(t, cfg.Validate())
		})
	}
}

func TestExamplePresets_DefaultMatchesBuiltIn(t *testing.T) {
	cfg, err := LoadPreset(filepath.Join("..", "examples", "default.yaml"), sim.DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, sim.DefaultConfig(), cfg)
}

func TestExampleTrace_Parses(t *testing.T) {
	// GIVEN the shipped three-packet trace
	records, err := workload.LoadTraceFile(filepath.Join("..", "examples", "trace.txt"))

	// THEN every record is read in order
	require.NoError(t, err)
	assert.Equal(t, []workload.TraceRecord{
		{InterArrivalMs: 2716, TokensNeeded: 2, ServiceMs: 9253},
		{InterArrivalMs: 7721, TokensNeeded: 1, ServiceMs: 15149},
		{InterArrivalMs: 972, TokensNeeded: 3, ServiceMs: 2614},
	}, records)
}
