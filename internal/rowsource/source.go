// Package rowsource 把各种容器格式的回测产物解码成统一的原始行。
// 它只负责"把文件读成行"，所有规范化与缺失值策略都留给上层引擎。
package rowsource

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// BarRow 是一行未经规范化的 K 线数据。
// Time 保留源编码（整数、浮点或字符串），由引擎统一折算；
// OHLC 解析失败时为 NaN，交给引擎按硬错误处理；
// Indicators 中的 NaN 表示该时刻指标缺位。
type BarRow struct {
	Time       any
	Symbol     string
	Open       float64
	High       float64
	Low        float64
	Close      float64
	Volume     float64
	HasVolume  bool
	Indicators map[string]float64
}

// TradeRecord 是一条未映射的交易记录，键为源文件原始列名。
type TradeRecord map[string]string

// BarSource 抽象单个合约的 K 线行来源。
type BarSource interface {
	Rows(ctx context.Context) ([]BarRow, error)
	Name() string
}

// TradeSource 抽象交易记录来源。
type TradeSource interface {
	Records(ctx context.Context) ([]TradeRecord, error)
	Name() string
}

// BarColumns 声明 K 线各角色列的同义词表；未命中任何角色的数值列
// 一律视为预计算指标列。
type BarColumns struct {
	Time   []string
	Symbol []string
	Open   []string
	High   []string
	Low    []string
	Close  []string
	Volume []string
}

// DefaultBarColumns 覆盖野生数据集里常见的列名变体。
func DefaultBarColumns() BarColumns {
	return BarColumns{
		Time:   []string{"time", "t", "timestamp", "ts", "date", "datetime", "open_time"},
		Symbol: []string{"symbol", "instrument", "contract", "ticker"},
		Open:   []string{"open", "o"},
		High:   []string{"high", "h"},
		Low:    []string{"low", "l"},
		Close:  []string{"close", "c"},
		Volume: []string{"volume", "vol", "v"},
	}
}

// Merge 用非空的覆盖项替换默认同义词表。
func (c BarColumns) Merge(override BarColumns) BarColumns {
	pick := func(base, over []string) []string {
		if len(over) > 0 {
			return over
		}
		return base
	}
	return BarColumns{
		Time:   pick(c.Time, override.Time),
		Symbol: pick(c.Symbol, override.Symbol),
		Open:   pick(c.Open, override.Open),
		High:   pick(c.High, override.High),
		Low:    pick(c.Low, override.Low),
		Close:  pick(c.Close, override.Close),
		Volume: pick(c.Volume, override.Volume),
	}
}

type columnRole int

const (
	roleIndicator columnRole = iota
	roleTime
	roleSymbol
	roleOpen
	roleHigh
	roleLow
	roleClose
	roleVolume
)

func (c BarColumns) roleOf(name string) columnRole {
	name = strings.ToLower(strings.TrimSpace(name))
	match := func(syns []string) bool {
		for _, s := range syns {
			if name == strings.ToLower(s) {
				return true
			}
		}
		return false
	}
	switch {
	case match(c.Time):
		return roleTime
	case match(c.Symbol):
		return roleSymbol
	case match(c.Open):
		return roleOpen
	case match(c.High):
		return roleHigh
	case match(c.Low):
		return roleLow
	case match(c.Close):
		return roleClose
	case match(c.Volume):
		return roleVolume
	default:
		return roleIndicator
	}
}

// OpenBars 按扩展名选择 K 线来源实现。
func OpenBars(path string, cols BarColumns) (BarSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVBars(path, cols), nil
	case ".parquet":
		return NewParquetBars(path, cols), nil
	case ".db", ".sqlite", ".sqlite3":
		return NewSQLiteBars(path, "", cols), nil
	default:
		return nil, fmt.Errorf("不支持的 K 线文件格式: %s", path)
	}
}

// OpenTrades 按扩展名选择交易记录来源实现。
func OpenTrades(path string) (TradeSource, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return NewCSVTrades(path), nil
	case ".jsonl", ".ndjson", ".json":
		return NewJSONLTrades(path), nil
	default:
		return nil, fmt.Errorf("不支持的交易文件格式: %s", path)
	}
}
