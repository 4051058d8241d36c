package rowsource

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenBarsByExtension(t *testing.T) {
	cols := DefaultBarColumns()

	src, err := OpenBars("data/bars.csv", cols)
	require.NoError(t, err)
	assert.IsType(t, &CSVBars{}, src)

	src, err = OpenBars("data/bars.parquet", cols)
	require.NoError(t, err)
	assert.IsType(t, &ParquetBars{}, src)

	for _, path := range []string{"bars.db", "bars.sqlite", "bars.sqlite3"} {
		src, err = OpenBars(path, cols)
		require.NoError(t, err)
		assert.IsType(t, &SQLiteBars{}, src)
	}

	_, err = OpenBars("bars.xlsx", cols)
	assert.Error(t, err)
}

func TestOpenTradesByExtension(t *testing.T) {
	src, err := OpenTrades("trades.csv")
	require.NoError(t, err)
	assert.IsType(t, &CSVTrades{}, src)

	for _, path := range []string{"trades.jsonl", "trades.ndjson", "trades.json"} {
		src, err = OpenTrades(path)
		require.NoError(t, err)
		assert.IsType(t, &JSONLTrades{}, src)
	}

	_, err = OpenTrades("trades.parquet")
	assert.Error(t, err)
}

func TestBarColumnsRoleOf(t *testing.T) {
	cols := DefaultBarColumns()
	assert.Equal(t, roleTime, cols.roleOf("Timestamp"))
	assert.Equal(t, roleOpen, cols.roleOf("o"))
	assert.Equal(t, roleVolume, cols.roleOf("VOL"))
	assert.Equal(t, roleIndicator, cols.roleOf("macd_hist"))
}

func TestBarColumnsMerge(t *testing.T) {
	merged := DefaultBarColumns().Merge(BarColumns{Time: []string{"bar_start"}})
	assert.Equal(t, roleTime, merged.roleOf("bar_start"))
	assert.Equal(t, roleIndicator, merged.roleOf("time"))
	// 未覆盖的角色沿用默认同义词。
	assert.Equal(t, roleClose, merged.roleOf("close"))
}
