// Package review 实现回测产物的规范化与对齐引擎：
// 统一时钟、K 线表与指标投影、交易映射、对齐校验，以及范围查询服务。
package review

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"

	"tradereview/internal/market"
	"tradereview/internal/profile"
	"tradereview/internal/rowsource"
)

var (
	// ErrMalformedBar 表示 OHLCV 非有限或时间戳无法解析；
	// 该合约的表会整体中止，绝不返回半成品时间轴。
	ErrMalformedBar = errors.New("malformed bar")
	// ErrUnknownContract 表示请求了未在配置中声明的合约。
	ErrUnknownContract = errors.New("unknown contract")
)

// IngestStats 记录一次摄取的统计信息。
type IngestStats struct {
	Rows        int `json:"rows"`
	Collisions  int `json:"collisions"`
	OtherSymbol int `json:"other_symbol,omitempty"`
}

// BarTable 是单个合约按规范时间升序排列的 K 线表，
// 以及同一趟扫描投影出来的指标序列；构建完成后只读。
type BarTable struct {
	Contract string
	Bars     []market.Bar
	Series   []market.IndicatorSeries
	Interval int64 // 相邻 bar 时间差的中位数（秒）
	Stats    IngestStats
}

type barEntry struct {
	bar        market.Bar
	indicators map[string]float64
}

// BuildTable 对行来源做单趟扫描，同时产出 K 线表与指标序列。
// 同一时间戳的重复行保留最后一行并计入碰撞数；
// 非有限 OHLCV 或无法解析的时间戳直接中止整个合约的摄取。
func BuildTable(contract string, rows []rowsource.BarRow, prof profile.Profile) (*BarTable, error) {
	loc := prof.Location()
	entries := make(map[int64]barEntry, len(rows))
	stats := IngestStats{}

	for i, row := range rows {
		if row.Symbol != "" && contract != "" && !strings.EqualFold(row.Symbol, contract) {
			stats.OtherSymbol++
			continue
		}
		ts, err := market.NormalizeTime(row.Time, loc)
		if err != nil {
			return nil, fmt.Errorf("%w: 第 %d 行: %v", ErrMalformedBar, i+1, err)
		}
		if !finite(row.Open) || !finite(row.High) || !finite(row.Low) || !finite(row.Close) {
			return nil, fmt.Errorf("%w: 第 %d 行 OHLC 含非有限值", ErrMalformedBar, i+1)
		}
		bar := market.Bar{
			Time:  ts,
			Open:  row.Open,
			High:  row.High,
			Low:   row.Low,
			Close: row.Close,
		}
		if row.HasVolume && finite(row.Volume) && row.Volume >= 0 {
			bar.Volume = row.Volume
		}
		if _, exists := entries[ts]; exists {
			stats.Collisions++
		}
		indicators := make(map[string]float64, len(row.Indicators))
		for k, v := range row.Indicators {
			indicators[k] = v
		}
		entries[ts] = barEntry{bar: bar, indicators: indicators}
		stats.Rows++
	}

	times := make([]int64, 0, len(entries))
	for ts := range entries {
		times = append(times, ts)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })

	table := &BarTable{Contract: contract, Stats: stats}
	table.Bars = make([]market.Bar, 0, len(times))
	for _, ts := range times {
		table.Bars = append(table.Bars, entries[ts].bar)
	}
	table.Interval = medianInterval(times)
	table.Series = projectSeries(times, entries, prof)
	return table, nil
}

// projectSeries 把指标列投影成与时间轴对齐的序列。
// 非有限值直接缺位，不出现占位点；列顺序为档案声明优先、其余按列名排序。
func projectSeries(times []int64, entries map[int64]barEntry, prof profile.Profile) []market.IndicatorSeries {
	columns := make(map[string]bool)
	for _, e := range entries {
		for col := range e.indicators {
			columns[col] = true
		}
	}
	if len(columns) == 0 {
		return nil
	}

	var ordered []string
	for _, spec := range prof.Indicators {
		if columns[spec.Column] {
			ordered = append(ordered, spec.Column)
			delete(columns, spec.Column)
		}
	}
	rest := make([]string, 0, len(columns))
	for col := range columns {
		rest = append(rest, col)
	}
	sort.Strings(rest)
	ordered = append(ordered, rest...)

	series := make([]market.IndicatorSeries, 0, len(ordered))
	for _, col := range ordered {
		spec := prof.IndicatorSpecFor(col)
		s := market.IndicatorSeries{
			ID:          col,
			DisplayName: spec.DisplayName,
			Kind:        market.SeriesKind(spec.Kind),
			Pane:        spec.Pane,
		}
		for _, ts := range times {
			v, ok := entries[ts].indicators[col]
			if !ok || !finite(v) {
				continue
			}
			s.Points = append(s.Points, market.SeriesPoint{Time: ts, Value: v})
		}
		series = append(series, s)
	}
	return series
}

// medianInterval 用相邻时间差的中位数推断 bar 间隔，
// 源数据集周期各异，不能写死。
func medianInterval(times []int64) int64 {
	if len(times) < 2 {
		return 0
	}
	deltas := make([]int64, 0, len(times)-1)
	for i := 1; i < len(times); i++ {
		deltas = append(deltas, times[i]-times[i-1])
	}
	sort.Slice(deltas, func(i, j int) bool { return deltas[i] < deltas[j] })
	return deltas[len(deltas)/2]
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// BarsBetween 返回 [start, end]（含）内的 bar 子序列。
func (t *BarTable) BarsBetween(start, end int64) []market.Bar {
	if t == nil || len(t.Bars) == 0 || end < start {
		return nil
	}
	lo := sort.Search(len(t.Bars), func(i int) bool { return t.Bars[i].Time >= start })
	hi := sort.Search(len(t.Bars), func(i int) bool { return t.Bars[i].Time > end })
	if lo >= hi {
		return nil
	}
	return t.Bars[lo:hi]
}

// SeriesBetween 返回限制在 [start, end] 的指标序列；点集为空的序列保留壳，
// 前端据此得知该指标存在但在窗口内无值。
func (t *BarTable) SeriesBetween(start, end int64) []market.IndicatorSeries {
	if t == nil {
		return nil
	}
	out := make([]market.IndicatorSeries, 0, len(t.Series))
	for _, s := range t.Series {
		clipped := market.IndicatorSeries{
			ID:          s.ID,
			DisplayName: s.DisplayName,
			Kind:        s.Kind,
			Pane:        s.Pane,
		}
		lo := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Time >= start })
		hi := sort.Search(len(s.Points), func(i int) bool { return s.Points[i].Time > end })
		if lo < hi {
			clipped.Points = s.Points[lo:hi]
		}
		out = append(out, clipped)
	}
	return out
}

// IndicatorIDs 返回表内全部指标 id（投影顺序）。
func (t *BarTable) IndicatorIDs() []string {
	if t == nil {
		return nil
	}
	ids := make([]string, 0, len(t.Series))
	for _, s := range t.Series {
		ids = append(ids, s.ID)
	}
	return ids
}

// DefaultMaxSkew 返回缺省的时间偏差阈值：推断 bar 间隔的一半。
// 不足两根 bar 时无法推断，返回 0，使所有交易都会被标记偏差。
func (t *BarTable) DefaultMaxSkew() int64 {
	if t == nil {
		return 0
	}
	return t.Interval / 2
}
