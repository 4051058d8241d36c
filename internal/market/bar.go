package market

// Bar 表示单根 OHLCV K 线，Time 为 UTC 秒（开盘时刻）。
type Bar struct {
	Time   int64   `json:"time"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume float64 `json:"volume,omitempty"`
}

// Meta 汇总单个合约的数据概况，供前端初始化使用。
type Meta struct {
	Contract     string   `json:"contract"`
	BarCount     int      `json:"bar_count"`
	StartTime    int64    `json:"start_time"`
	EndTime      int64    `json:"end_time"`
	IntervalSec  int64    `json:"interval_sec"`
	IndicatorIDs []string `json:"indicator_ids"`
	TradeCount   int      `json:"trade_count"`
	Collisions   int      `json:"collisions,omitempty"`
	SkippedRows  int      `json:"skipped_rows,omitempty"`
}
