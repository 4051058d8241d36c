// Package profile 管理"映射档案"：描述某一来源的列同义词表、指标元数据、
// 时区与校验参数。档案在摄取时一次性解析，引擎内部不做动态字段查找。
package profile

import (
	"strings"
	"time"

	"tradereview/internal/rowsource"

	"gopkg.in/yaml.v3"
)

// 多腿记录的折叠模式。
const (
	CollapseFirstLast = "first-last" // 首个入场腿 + 最后一个出场腿折叠为单回合
	CollapseSkip      = "skip"       // 多腿组整组跳过
)

// IndicatorSpec 声明单个指标列的展示元数据。
type IndicatorSpec struct {
	Column      string `mapstructure:"column" yaml:"column"`
	DisplayName string `mapstructure:"display_name" yaml:"display_name"`
	Kind        string `mapstructure:"kind" yaml:"kind"` // line | histogram
	Pane        string `mapstructure:"pane" yaml:"pane"` // "price" 叠加主图，其余独立副图
}

// BarColumnsSpec 覆盖 K 线角色列的同义词，空项沿用内置默认。
type BarColumnsSpec struct {
	Time   []string `mapstructure:"time" yaml:"time"`
	Symbol []string `mapstructure:"symbol" yaml:"symbol"`
	Open   []string `mapstructure:"open" yaml:"open"`
	High   []string `mapstructure:"high" yaml:"high"`
	Low    []string `mapstructure:"low" yaml:"low"`
	Close  []string `mapstructure:"close" yaml:"close"`
	Volume []string `mapstructure:"volume" yaml:"volume"`
}

// TradeColumnsSpec 声明交易记录各字段的同义词表。
type TradeColumnsSpec struct {
	ID         []string `mapstructure:"id" yaml:"id"`
	EntryTime  []string `mapstructure:"entry_time" yaml:"entry_time"`
	EntryPrice []string `mapstructure:"entry_price" yaml:"entry_price"`
	ExitTime   []string `mapstructure:"exit_time" yaml:"exit_time"`
	ExitPrice  []string `mapstructure:"exit_price" yaml:"exit_price"`
	Side       []string `mapstructure:"side" yaml:"side"`
	Quantity   []string `mapstructure:"quantity" yaml:"quantity"`
	PnL        []string `mapstructure:"pnl" yaml:"pnl"`
	Tags       []string `mapstructure:"tags" yaml:"tags"`
}

// Profile 是一份完整的映射档案。
type Profile struct {
	ID             string           `mapstructure:"-" yaml:"-"`
	Description    string           `mapstructure:"description" yaml:"description"`
	Timezone       string           `mapstructure:"timezone" yaml:"timezone"`
	Collapse       string           `mapstructure:"collapse" yaml:"collapse"`
	MaxSkewSeconds int64            `mapstructure:"max_skew_seconds" yaml:"max_skew_seconds"`
	PriceEpsilon   float64          `mapstructure:"price_epsilon" yaml:"price_epsilon"`
	Bars           BarColumnsSpec   `mapstructure:"bars" yaml:"bars"`
	Indicators     []IndicatorSpec  `mapstructure:"indicators" yaml:"indicators"`
	Trades         TradeColumnsSpec `mapstructure:"trades" yaml:"trades"`
}

// Default 返回内置档案：UTC、first-last 折叠、零 epsilon、自动 skew。
func Default() Profile {
	return Profile{
		ID:       "default",
		Timezone: "UTC",
		Collapse: CollapseFirstLast,
		Trades: TradeColumnsSpec{
			ID:         []string{"id", "trade_id"},
			EntryTime:  []string{"entry_time", "open_time", "open_date", "t_in"},
			EntryPrice: []string{"entry_price", "open_rate", "open_price", "p_in"},
			ExitTime:   []string{"exit_time", "close_time", "close_date", "t_out"},
			ExitPrice:  []string{"exit_price", "close_rate", "close_price", "p_out"},
			Side:       []string{"side", "direction", "is_short"},
			Quantity:   []string{"quantity", "qty", "amount", "size"},
			PnL:        []string{"pnl", "profit", "profit_abs"},
			Tags:       []string{"tags", "tag", "enter_tag"},
		},
	}
}

// Location 解析档案声明的时区，空值与解析失败回退 UTC。
func (p Profile) Location() *time.Location {
	tz := strings.TrimSpace(p.Timezone)
	if tz == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CollapseMode 返回生效的折叠模式，未声明时取 first-last。
func (p Profile) CollapseMode() string {
	if p.Collapse == CollapseSkip {
		return CollapseSkip
	}
	return CollapseFirstLast
}

// BarColumns 把档案的列覆盖合并到内置默认之上。
func (p Profile) BarColumns() rowsource.BarColumns {
	return rowsource.DefaultBarColumns().Merge(rowsource.BarColumns{
		Time:   p.Bars.Time,
		Symbol: p.Bars.Symbol,
		Open:   p.Bars.Open,
		High:   p.Bars.High,
		Low:    p.Bars.Low,
		Close:  p.Bars.Close,
		Volume: p.Bars.Volume,
	})
}

// TradeSynonyms 合并默认交易列同义词与档案覆盖。
func (p Profile) TradeSynonyms() TradeColumnsSpec {
	def := Default().Trades
	pick := func(base, over []string) []string {
		if len(over) > 0 {
			return over
		}
		return base
	}
	return TradeColumnsSpec{
		ID:         pick(def.ID, p.Trades.ID),
		EntryTime:  pick(def.EntryTime, p.Trades.EntryTime),
		EntryPrice: pick(def.EntryPrice, p.Trades.EntryPrice),
		ExitTime:   pick(def.ExitTime, p.Trades.ExitTime),
		ExitPrice:  pick(def.ExitPrice, p.Trades.ExitPrice),
		Side:       pick(def.Side, p.Trades.Side),
		Quantity:   pick(def.Quantity, p.Trades.Quantity),
		PnL:        pick(def.PnL, p.Trades.PnL),
		Tags:       pick(def.Tags, p.Trades.Tags),
	}
}

// IndicatorSpecFor 返回指定列的展示元数据；未声明的列
// 以列名为 id、独立副图、线型呈现。
func (p Profile) IndicatorSpecFor(column string) IndicatorSpec {
	for _, spec := range p.Indicators {
		if spec.Column == column {
			if spec.DisplayName == "" {
				spec.DisplayName = column
			}
			if spec.Kind == "" {
				spec.Kind = "line"
			}
			if spec.Pane == "" {
				spec.Pane = column
			}
			return spec
		}
	}
	return IndicatorSpec{Column: column, DisplayName: column, Kind: "line", Pane: column}
}

// Render 把档案渲染成 YAML 文本，用于启动日志与排障输出。
func (p Profile) Render() string {
	buf, err := yaml.Marshal(p)
	if err != nil {
		return ""
	}
	return string(buf)
}
