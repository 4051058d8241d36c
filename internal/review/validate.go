package review

import (
	"sort"

	"tradereview/internal/market"
)

// Validate 计算单笔交易相对 K 线表的诊断标记。
// 纯函数，永不失败：空表意味着没有任何 bar 可供对齐，
// 这本身就是值得暴露的数据质量信号，因此所有交易都会带 TIME_SKEW。
// 标记为交易级而非腿级：双腿同时越界时每种标记也只出现一次。
func Validate(tr market.Trade, table *BarTable, maxSkew int64, priceEpsilon float64) []market.Flag {
	flags := make([]market.Flag, 0, len(market.AllFlags))
	if table == nil || len(table.Bars) == 0 {
		return append(flags, market.FlagTimeSkew)
	}

	skewed := false
	priceOut := false

	check := func(t int64, price float64) {
		bar := nearestBar(table.Bars, t)
		if abs64(t-bar.Time) > maxSkew {
			skewed = true
		}
		if price < bar.Low-priceEpsilon || price > bar.High+priceEpsilon {
			priceOut = true
		}
	}

	check(tr.EntryTime, tr.EntryPrice)
	if !tr.Open {
		check(tr.ExitTime, tr.ExitPrice)
	}

	// 顺序与 AllFlags 保持一致，输出可确定性比对。
	if skewed {
		flags = append(flags, market.FlagTimeSkew)
	}
	if priceOut {
		flags = append(flags, market.FlagPriceOutOfRange)
	}
	return flags
}

// nearestBar 二分查找时间上最近的 bar。
// 距离相同时偏向交易时刻之前的 bar（floor），即"交易发生时处于活动状态的那根"。
func nearestBar(bars []market.Bar, t int64) market.Bar {
	idx := sort.Search(len(bars), func(i int) bool { return bars[i].Time > t })
	// idx 是第一根晚于 t 的 bar；idx-1 为 floor 候选。
	switch {
	case idx == 0:
		return bars[0]
	case idx == len(bars):
		return bars[idx-1]
	default:
		floor := bars[idx-1]
		ceil := bars[idx]
		if abs64(t-floor.Time) <= abs64(ceil.Time-t) {
			return floor
		}
		return ceil
	}
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}
