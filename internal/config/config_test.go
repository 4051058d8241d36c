package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaultsAndResolvesPaths(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data:
  root: /data/backtests
  profile_path: profiles.yaml
instruments:
  - id: CLZ4
    bars: clz4/bars.csv
    trades: clz4/trades.csv
`))
	require.NoError(t, err)

	assert.Equal(t, "dev", cfg.App.Env)
	assert.Equal(t, "info", cfg.App.LogLevel)
	assert.Equal(t, ":8080", cfg.App.HTTPAddr)
	assert.Equal(t, filepath.Join("/data/backtests", "profiles.yaml"), cfg.Data.ProfilePath)

	require.Len(t, cfg.Instruments, 1)
	inst := cfg.Instruments[0]
	assert.Equal(t, "default", inst.Profile)
	assert.Equal(t, filepath.Join("/data/backtests", "clz4/bars.csv"), inst.Bars)
	assert.Equal(t, filepath.Join("/data/backtests", "clz4/trades.csv"), inst.Trades)
}

func TestLoadKeepsAbsolutePaths(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
data:
  root: /data/backtests
instruments:
  - id: CLZ4
    bars: /mnt/exports/bars.parquet
`))
	require.NoError(t, err)
	assert.Equal(t, "/mnt/exports/bars.parquet", cfg.Instruments[0].Bars)
	assert.Empty(t, cfg.Instruments[0].Trades)
}

func TestLoadRejectsDuplicateInstrument(t *testing.T) {
	_, err := Load(writeConfig(t, `
instruments:
  - id: CLZ4
    bars: a.csv
  - id: CLZ4
    bars: b.csv
`))
	assert.Error(t, err)
}

func TestLoadRejectsMissingBars(t *testing.T) {
	_, err := Load(writeConfig(t, `
instruments:
  - id: CLZ4
`))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadEmptyPath(t *testing.T) {
	_, err := Load("")
	assert.Error(t, err)
}
