package market

// Side 是交易方向，映射阶段统一为 long/short。
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// Trade 是一笔标准化后的回合交易（entry + exit）。
// Open 为 true 表示源数据缺少平仓腿，ExitTime/ExitPrice 无效。
// Flags 由校验器在每次查询时重新计算，不会缓存在源数据上。
type Trade struct {
	ID         string   `json:"id"`
	Side       Side     `json:"side"`
	Quantity   float64  `json:"quantity,omitempty"`
	EntryTime  int64    `json:"entry_time"`
	EntryPrice float64  `json:"entry_price"`
	ExitTime   int64    `json:"exit_time,omitempty"`
	ExitPrice  float64  `json:"exit_price,omitempty"`
	Open       bool     `json:"open,omitempty"`
	PnL        *float64 `json:"pnl,omitempty"`
	Tags       []string `json:"tags,omitempty"`
	Flags      []Flag   `json:"flags"`
}
