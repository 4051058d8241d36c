package market

// Flag 是附着在 Trade 上的非致命数据质量诊断。
// 它永远不会变成错误或阻断响应构造。
type Flag string

const (
	// FlagTimeSkew 表示交易时间与最近 bar 的偏差超过阈值。
	FlagTimeSkew Flag = "TIME_SKEW"
	// FlagPriceOutOfRange 表示任一腿的成交价落在最近 bar 的 [low-ε, high+ε] 之外。
	FlagPriceOutOfRange Flag = "PRICE_OUT_OF_RANGE"
)

// AllFlags 按固定顺序列出全部诊断，保证输出稳定、测试可穷举。
var AllFlags = []Flag{FlagTimeSkew, FlagPriceOutOfRange}

// Valid 判断是否为已知诊断。
func (f Flag) Valid() bool {
	for _, known := range AllFlags {
		if f == known {
			return true
		}
	}
	return false
}
