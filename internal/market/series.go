package market

// SeriesKind 是指标序列的渲染提示，不参与任何计算。
type SeriesKind string

const (
	SeriesLine      SeriesKind = "line"
	SeriesHistogram SeriesKind = "histogram"
)

// PanePrice 表示叠加在主图上的指标；其他任意字符串各自成独立副图，
// 相同字符串的序列归入同一副图。
const PanePrice = "price"

// SeriesPoint 是指标序列中的单个点，Time 与 Bar 共用同一时间轴。
type SeriesPoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// IndicatorSeries 是与 K 线时间轴对齐的标量序列。
// 点集是 Bar 时间轴的子集：源数据中的非有限值直接缺位，不做插值。
type IndicatorSeries struct {
	ID          string        `json:"id"`
	DisplayName string        `json:"display_name"`
	Kind        SeriesKind    `json:"kind"`
	Pane        string        `json:"pane"`
	Points      []SeriesPoint `json:"points"`
}
