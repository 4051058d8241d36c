package review

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradereview/internal/market"
	"tradereview/internal/profile"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testBarsCSV = `time,open,high,low,close,volume,rsi
1729771800,71.22,71.32,71.21,71.25,1200,41.0
1729772100,71.25,71.28,71.12,71.22,980,38.5
1729772400,71.22,71.45,71.20,71.43,1500,55.2
`
	testTradesCSV = `id,entry_time,entry_price,exit_time,exit_price,side,quantity,pnl
T1,1729771815,71.25,1729772410,71.43,long,2,0.36
T2,1729600000,71.00,,,short,1,
`
)

func writeTestData(t *testing.T) (barsPath, tradesPath string) {
	t.Helper()
	dir := t.TempDir()
	barsPath = filepath.Join(dir, "bars.csv")
	tradesPath = filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(barsPath, []byte(testBarsCSV), 0o644))
	require.NoError(t, os.WriteFile(tradesPath, []byte(testTradesCSV), 0o644))
	return barsPath, tradesPath
}

func newTestService(t *testing.T) *Service {
	t.Helper()
	barsPath, tradesPath := writeTestData(t)
	reg, err := profile.NewRegistry("")
	require.NoError(t, err)
	svc, err := NewService([]Instrument{
		{ID: "CLZ4", BarsPath: barsPath, TradesPath: tradesPath},
	}, reg)
	require.NoError(t, err)
	return svc
}

func TestServiceMeta(t *testing.T) {
	svc := newTestService(t)
	meta, err := svc.Meta(context.Background(), "CLZ4")
	require.NoError(t, err)
	assert.Equal(t, "CLZ4", meta.Contract)
	assert.Equal(t, 3, meta.BarCount)
	assert.Equal(t, int64(1729771800), meta.StartTime)
	assert.Equal(t, int64(1729772400), meta.EndTime)
	assert.Equal(t, int64(300), meta.IntervalSec)
	assert.Equal(t, []string{"rsi"}, meta.IndicatorIDs)
	assert.Equal(t, 2, meta.TradeCount)
}

func TestServiceUnknownContract(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Meta(context.Background(), "ESZ4")
	assert.ErrorIs(t, err, ErrUnknownContract)
}

func TestServiceBarsEmptyWindow(t *testing.T) {
	svc := newTestService(t)
	bars, err := svc.Bars(context.Background(), "CLZ4", 100, 200)
	require.NoError(t, err)
	assert.Empty(t, bars) // 窗口无数据是空集，不是错误
}

func TestServiceTradesWindowAndFlags(t *testing.T) {
	svc := newTestService(t)
	trades, err := svc.Trades(context.Background(), "CLZ4", 1729771800, 1729772400)
	require.NoError(t, err)
	// T2 的入场在窗口之外。
	require.Len(t, trades, 1)
	tr := trades[0]
	assert.Equal(t, "T1", tr.ID)
	assert.Empty(t, tr.Flags)

	// 全窗口时 T2 入场时刻远离所有 bar，带 TIME_SKEW。
	trades, err = svc.Trades(context.Background(), "CLZ4", 0, time.Now().Unix())
	require.NoError(t, err)
	require.Len(t, trades, 2)
	for _, tr := range trades {
		if tr.ID == "T2" {
			assert.Contains(t, tr.Flags, market.FlagTimeSkew)
		}
	}
}

// 源文件不变时重复查询命中缓存，返回同一数据集。
func TestServiceMemoization(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	ds1, err := svc.dataset(ctx, "CLZ4")
	require.NoError(t, err)
	ds2, err := svc.dataset(ctx, "CLZ4")
	require.NoError(t, err)
	assert.Same(t, ds1, ds2)
}

// 源文件变化改变指纹，下一次查询触发重建。
func TestServiceRebuildOnFileChange(t *testing.T) {
	barsPath, tradesPath := writeTestData(t)
	reg, err := profile.NewRegistry("")
	require.NoError(t, err)
	svc, err := NewService([]Instrument{
		{ID: "CLZ4", BarsPath: barsPath, TradesPath: tradesPath},
	}, reg)
	require.NoError(t, err)
	ctx := context.Background()

	ds1, err := svc.dataset(ctx, "CLZ4")
	require.NoError(t, err)

	extra := testBarsCSV + "1729772700,71.43,71.50,71.40,71.48,1100,60.1\n"
	require.NoError(t, os.WriteFile(barsPath, []byte(extra), 0o644))
	bump := time.Now().Add(2 * time.Second)
	require.NoError(t, os.Chtimes(barsPath, bump, bump))

	ds2, err := svc.dataset(ctx, "CLZ4")
	require.NoError(t, err)
	assert.NotSame(t, ds1, ds2)
	assert.Len(t, ds2.table.Bars, 4)
}

func TestServiceRejectsBadInstruments(t *testing.T) {
	reg, err := profile.NewRegistry("")
	require.NoError(t, err)

	_, err = NewService([]Instrument{{ID: "", BarsPath: "x.csv"}}, reg)
	assert.Error(t, err)
	_, err = NewService([]Instrument{{ID: "A"}}, reg)
	assert.Error(t, err)
	_, err = NewService([]Instrument{
		{ID: "A", BarsPath: "x.csv"},
		{ID: "A", BarsPath: "y.csv"},
	}, reg)
	assert.Error(t, err)
}

func TestServiceContractsSorted(t *testing.T) {
	barsPath, _ := writeTestData(t)
	reg, err := profile.NewRegistry("")
	require.NoError(t, err)
	svc, err := NewService([]Instrument{
		{ID: "NQZ4", BarsPath: barsPath},
		{ID: "CLZ4", BarsPath: barsPath},
	}, reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"CLZ4", "NQZ4"}, svc.Contracts())
}
