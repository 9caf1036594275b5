package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, 50, cfg.Loader.MaxFileSizeMB)

	a := cfg.Analysis
	assert.Equal(t, 180, a.DeadStockThresholdDays)
	assert.Equal(t, 90, a.OverstockThresholdDays)
	assert.InDelta(t, 20.0, a.CustomerConcentrationWarningPct, 0.001)
	assert.InDelta(t, 30.0, a.CustomerConcentrationCriticalPct, 0.001)
	assert.InDelta(t, 0.5, a.MinSchemaConfidence, 0.001)
	assert.InDelta(t, 0.5, a.DeadStockRecoveryRate, 0.001)
	assert.InDelta(t, 0.2, a.ExcessStockRecoveryRate, 0.001)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
analysis:
  dead_stock_threshold_days: 120
  overstock_threshold_days: 60
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 120, cfg.Analysis.DeadStockThresholdDays)
	assert.Equal(t, 60, cfg.Analysis.OverstockThresholdDays)
	// untouched keys keep their defaults after a file merge
	assert.InDelta(t, 30.0, cfg.Analysis.CustomerConcentrationCriticalPct, 0.001)
}

func TestLoadFromFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadFromFile_EnvOverridesFile(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("server:\n  port: 9090\n"), 0644))

	t.Setenv("ERPLENS_SERVER_PORT", "7070")

	cfg, err := LoadFromFile(configPath)
	require.NoError(t, err)
	assert.Equal(t, 7070, cfg.Server.Port)
}

func TestAnalysisConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AnalysisConfig)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(a *AnalysisConfig) {},
		},
		{
			name:    "zero dead stock threshold",
			mutate:  func(a *AnalysisConfig) { a.DeadStockThresholdDays = 0 },
			wantErr: "dead stock threshold",
		},
		{
			name:    "negative overstock threshold",
			mutate:  func(a *AnalysisConfig) { a.OverstockThresholdDays = -1 },
			wantErr: "overstock threshold",
		},
		{
			name: "critical below warning",
			mutate: func(a *AnalysisConfig) {
				a.CustomerConcentrationWarningPct = 40
				a.CustomerConcentrationCriticalPct = 30
			},
			wantErr: "below warning",
		},
		{
			name:    "schema confidence above one",
			mutate:  func(a *AnalysisConfig) { a.MinSchemaConfidence = 1.5 },
			wantErr: "min schema confidence",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := DefaultAnalysis()
			tt.mutate(&a)
			err := a.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestConfigValidate_BadPort(t *testing.T) {
	cfg := Default()
	cfg.Server.Port = 70000
	err := cfg.validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid server port")
}
