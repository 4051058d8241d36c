package review

import (
	"sort"
	"strconv"
	"strings"

	"tradereview/internal/market"
	"tradereview/internal/profile"
	"tradereview/internal/rowsource"

	"github.com/google/uuid"
)

// SkipReason 标识单条交易记录被跳过的原因。
type SkipReason string

const (
	SkipMissingField SkipReason = "MissingField"
	SkipUnknownSide  SkipReason = "UnknownSide"
	SkipBadTimestamp SkipReason = "BadTimestamp"
	SkipBadNumber    SkipReason = "BadNumber"
	SkipMultiLeg     SkipReason = "MultiLegSkipped"
)

// SkippedRecord 记录一条被跳过的记录及原因，绝不静默丢弃。
type SkippedRecord struct {
	Index  int        `json:"index"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// MapReport 汇总一次交易映射的结果。
type MapReport struct {
	Mapped  int             `json:"mapped"`
	Skipped []SkippedRecord `json:"skipped,omitempty"`
}

// SkipCount 返回被跳过的记录数。
func (r MapReport) SkipCount() int { return len(r.Skipped) }

// MapTrades 把异构列名的交易记录映射成标准 Trade。
// 单条坏记录只跳过并记录原因，不会让整批失效；
// 共享 id 的多腿记录按档案声明的折叠模式处理。
func MapTrades(records []rowsource.TradeRecord, prof profile.Profile) ([]market.Trade, MapReport) {
	loc := prof.Location()
	syns := prof.TradeSynonyms()
	report := MapReport{}

	type leg struct {
		trade    market.Trade
		index    int
		sourceID bool // id 来自源数据，可参与多腿分组
		hasQty   bool
	}
	var legs []leg

	for i, rec := range records {
		skip := func(reason SkipReason, detail string) {
			report.Skipped = append(report.Skipped, SkippedRecord{Index: i, Reason: reason, Detail: detail})
		}

		_, entryTimeRaw, ok := resolve(rec, syns.EntryTime)
		if !ok {
			skip(SkipMissingField, "entry_time")
			continue
		}
		_, entryPriceRaw, ok := resolve(rec, syns.EntryPrice)
		if !ok {
			skip(SkipMissingField, "entry_price")
			continue
		}
		sideKey, sideRaw, ok := resolve(rec, syns.Side)
		if !ok {
			skip(SkipMissingField, "side")
			continue
		}
		side, ok := normalizeSide(sideKey, sideRaw)
		if !ok {
			skip(SkipUnknownSide, sideRaw)
			continue
		}
		entryTime, err := market.NormalizeTime(entryTimeRaw, loc)
		if err != nil {
			skip(SkipBadTimestamp, "entry_time="+entryTimeRaw)
			continue
		}
		entryPrice, err := strconv.ParseFloat(entryPriceRaw, 64)
		if err != nil {
			skip(SkipBadNumber, "entry_price="+entryPriceRaw)
			continue
		}

		tr := market.Trade{
			Side:       side,
			EntryTime:  entryTime,
			EntryPrice: entryPrice,
			Open:       true,
		}
		l := leg{trade: tr, index: i}

		if _, exitTimeRaw, ok := resolve(rec, syns.ExitTime); ok {
			exitTime, err := market.NormalizeTime(exitTimeRaw, loc)
			if err != nil {
				skip(SkipBadTimestamp, "exit_time="+exitTimeRaw)
				continue
			}
			if exitTime < entryTime {
				skip(SkipBadTimestamp, "exit_time 早于 entry_time")
				continue
			}
			_, exitPriceRaw, ok := resolve(rec, syns.ExitPrice)
			if !ok {
				skip(SkipMissingField, "exit_price")
				continue
			}
			exitPrice, err := strconv.ParseFloat(exitPriceRaw, 64)
			if err != nil {
				skip(SkipBadNumber, "exit_price="+exitPriceRaw)
				continue
			}
			l.trade.ExitTime = exitTime
			l.trade.ExitPrice = exitPrice
			l.trade.Open = false
		}

		if _, qtyRaw, ok := resolve(rec, syns.Quantity); ok {
			if qty, err := strconv.ParseFloat(qtyRaw, 64); err == nil && qty >= 0 {
				l.trade.Quantity = qty
				l.hasQty = true
			}
		}
		if _, pnlRaw, ok := resolve(rec, syns.PnL); ok {
			if pnl, err := strconv.ParseFloat(pnlRaw, 64); err == nil {
				l.trade.PnL = &pnl
			}
		}
		if _, tagsRaw, ok := resolve(rec, syns.Tags); ok {
			l.trade.Tags = splitTags(tagsRaw)
		}
		if _, idRaw, ok := resolve(rec, syns.ID); ok {
			l.trade.ID = idRaw
			l.sourceID = true
		} else {
			l.trade.ID = uuid.NewString()
		}
		legs = append(legs, l)
	}

	// 按源 id 分组折叠多腿记录；合成 id 的腿各自独立成交易。
	groups := make(map[string][]int)
	var order []string
	for idx, l := range legs {
		key := l.trade.ID
		if !l.sourceID {
			key = "#" + strconv.Itoa(idx)
		}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], idx)
	}

	var trades []market.Trade
	for _, key := range order {
		idxs := groups[key]
		if len(idxs) == 1 {
			trades = append(trades, legs[idxs[0]].trade)
			report.Mapped++
			continue
		}
		if prof.CollapseMode() == profile.CollapseSkip {
			for _, idx := range idxs {
				report.Skipped = append(report.Skipped, SkippedRecord{
					Index:  legs[idx].index,
					Reason: SkipMultiLeg,
					Detail: legs[idx].trade.ID,
				})
			}
			continue
		}
		trades = append(trades, collapseFirstLast(legs[idxs[0]].trade.ID, idxs, func(i int) market.Trade { return legs[i].trade }))
		report.Mapped++
	}
	return trades, report
}

// collapseFirstLast 按首入场/末出场把多腿折叠为单回合。
func collapseFirstLast(id string, idxs []int, at func(int) market.Trade) market.Trade {
	sorted := append([]int(nil), idxs...)
	sort.Slice(sorted, func(a, b int) bool { return at(sorted[a]).EntryTime < at(sorted[b]).EntryTime })

	first := at(sorted[0])
	out := market.Trade{
		ID:         id,
		Side:       first.Side,
		EntryTime:  first.EntryTime,
		EntryPrice: first.EntryPrice,
		Open:       true,
	}
	var qty float64
	allQty := true
	var pnl float64
	allPnL := true
	tagSet := make(map[string]bool)
	for _, idx := range sorted {
		t := at(idx)
		if !t.Open && (out.Open || t.ExitTime > out.ExitTime) {
			out.ExitTime = t.ExitTime
			out.ExitPrice = t.ExitPrice
			out.Open = false
		}
		if t.Quantity > 0 {
			qty += t.Quantity
		} else {
			allQty = false
		}
		if t.PnL != nil {
			pnl += *t.PnL
		} else {
			allPnL = false
		}
		for _, tag := range t.Tags {
			tagSet[tag] = true
		}
	}
	if allQty {
		out.Quantity = qty
	}
	if allPnL {
		out.PnL = &pnl
	}
	if len(tagSet) > 0 {
		tags := make([]string, 0, len(tagSet))
		for tag := range tagSet {
			tags = append(tags, tag)
		}
		sort.Strings(tags)
		out.Tags = tags
	}
	return out
}

// resolve 按同义词表顺序取第一个存在且非空的字段。
func resolve(rec rowsource.TradeRecord, syns []string) (key, value string, ok bool) {
	for _, syn := range syns {
		for k, v := range rec {
			if strings.EqualFold(k, syn) && strings.TrimSpace(v) != "" {
				return k, strings.TrimSpace(v), true
			}
		}
	}
	return "", "", false
}

// normalizeSide 大小写不敏感地归一方向；is_short 布尔列按真假取向。
func normalizeSide(key, raw string) (market.Side, bool) {
	v := strings.ToLower(strings.TrimSpace(raw))
	if strings.EqualFold(strings.TrimSpace(key), "is_short") {
		switch v {
		case "true", "1":
			return market.SideShort, true
		case "false", "0":
			return market.SideLong, true
		default:
			return "", false
		}
	}
	switch v {
	case "long", "buy":
		return market.SideLong, true
	case "short", "sell":
		return market.SideShort, true
	default:
		return "", false
	}
}

func splitTags(raw string) []string {
	var tags []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}
