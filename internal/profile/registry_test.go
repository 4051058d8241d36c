package profile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testProfilesYAML = `profiles:
  freqtrade:
    description: "freqtrade 回测导出"
    timezone: "UTC"
    collapse: "first-last"
    price_epsilon: 0.01
    trades:
      entry_time: ["open_date"]
      entry_price: ["open_rate"]
      exit_time: ["close_date"]
      exit_price: ["close_rate"]
      side: ["is_short"]
    indicators:
      - column: "ema_20"
        display_name: "EMA 20"
        kind: "line"
        pane: "price"
      - column: "macd_hist"
        kind: "histogram"
        pane: "macd"
`

func writeProfiles(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "profiles.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestNewRegistryLoadsProfiles(t *testing.T) {
	reg, err := NewRegistry(writeProfiles(t, testProfilesYAML))
	require.NoError(t, err)

	assert.Equal(t, []string{"default", "freqtrade"}, reg.IDs())

	ft, ok := reg.Profile("freqtrade")
	require.True(t, ok)
	assert.Equal(t, "freqtrade", ft.ID)
	assert.Equal(t, 0.01, ft.PriceEpsilon)
	assert.Equal(t, []string{"open_date"}, ft.TradeSynonyms().EntryTime)
	// 未覆盖的列沿用内置同义词。
	assert.Equal(t, Default().Trades.Quantity, ft.TradeSynonyms().Quantity)

	spec := ft.IndicatorSpecFor("macd_hist")
	assert.Equal(t, "macd_hist", spec.DisplayName)
	assert.Equal(t, "histogram", spec.Kind)
	assert.Equal(t, "macd", spec.Pane)
}

func TestNewRegistryEmptyPathIsStaticDefault(t *testing.T) {
	reg, err := NewRegistry("")
	require.NoError(t, err)
	assert.Equal(t, []string{"default"}, reg.IDs())

	p, ok := reg.Profile("")
	require.True(t, ok)
	assert.Equal(t, "default", p.ID)
	assert.Equal(t, CollapseFirstLast, p.CollapseMode())
}

func TestNewRegistryRejectsBadCollapse(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, `profiles:
  bad:
    collapse: "average"
`))
	assert.Error(t, err)
}

func TestNewRegistryRejectsUnknownKeys(t *testing.T) {
	_, err := NewRegistry(writeProfiles(t, `profiles:
  bad:
    colour: "blue"
`))
	assert.Error(t, err)
}

func TestNewRegistryMissingFile(t *testing.T) {
	_, err := NewRegistry(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestProfileLocationFallsBackToUTC(t *testing.T) {
	p := Profile{Timezone: "Not/AZone"}
	assert.Equal(t, "UTC", p.Location().String())
	p = Profile{Timezone: "America/Chicago"}
	assert.Equal(t, "America/Chicago", p.Location().String())
}

func TestIndicatorSpecDefaults(t *testing.T) {
	p := Profile{Indicators: []IndicatorSpec{{Column: "rsi"}}}
	spec := p.IndicatorSpecFor("rsi")
	assert.Equal(t, "rsi", spec.DisplayName)
	assert.Equal(t, "line", spec.Kind)
	assert.Equal(t, "rsi", spec.Pane)

	// 未声明的列同样取默认元数据。
	spec = p.IndicatorSpecFor("ema_20")
	assert.Equal(t, "ema_20", spec.DisplayName)
}

func TestRegistryOnChangeListener(t *testing.T) {
	reg, err := NewRegistry(writeProfiles(t, testProfilesYAML))
	require.NoError(t, err)

	called := 0
	reg.OnChange(func(Snapshot) { called++ })
	reg.notifyListeners()
	assert.Equal(t, 1, called)
}
