package review

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"

	"tradereview/internal/logger"
	"tradereview/internal/market"
	"tradereview/internal/profile"
	"tradereview/internal/rowsource"

	"golang.org/x/sync/singleflight"
)

// Instrument 声明一个可查询的合约及其数据来源。
type Instrument struct {
	ID         string
	BarsPath   string
	TradesPath string // 可为空：纯行情合约
	Profile    string // 映射档案 id，空取 default
}

// dataset 是一个合约摄取完成后的只读产物。
type dataset struct {
	fingerprint string
	table       *BarTable
	trades      []market.Trade
	report      MapReport
	profile     profile.Profile
}

// Service 是范围查询服务：按合约与闭区间时间窗返回 bars/series/trades。
// 摄取结果按源文件指纹做 memoization，singleflight 保证同一指纹
// 并发请求时至多构建一次，其余请求等待在途构建。
type Service struct {
	instruments map[string]Instrument
	profiles    *profile.Registry

	mu    sync.RWMutex
	cache map[string]*dataset
	sf    singleflight.Group
}

// NewService 构造查询服务并订阅档案热重载（档案变化使全部缓存失效）。
func NewService(instruments []Instrument, profiles *profile.Registry) (*Service, error) {
	if profiles == nil {
		return nil, fmt.Errorf("profile registry 不能为空")
	}
	m := make(map[string]Instrument, len(instruments))
	for _, inst := range instruments {
		id := strings.TrimSpace(inst.ID)
		if id == "" {
			return nil, fmt.Errorf("instrument id 不能为空")
		}
		if inst.BarsPath == "" {
			return nil, fmt.Errorf("instrument %s 缺少 bars 文件", id)
		}
		if _, dup := m[id]; dup {
			return nil, fmt.Errorf("instrument %s 重复声明", id)
		}
		m[id] = inst
	}
	s := &Service{
		instruments: m,
		profiles:    profiles,
		cache:       make(map[string]*dataset),
	}
	profiles.OnChange(func(profile.Snapshot) {
		s.invalidateAll()
		logger.Infof("映射档案变更，已清空数据集缓存")
	})
	return s, nil
}

// Contracts 返回全部已声明的合约 id（排序后）。
func (s *Service) Contracts() []string {
	ids := make([]string, 0, len(s.instruments))
	for id := range s.instruments {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Meta 返回合约的数据概况。
func (s *Service) Meta(ctx context.Context, contract string) (market.Meta, error) {
	ds, err := s.dataset(ctx, contract)
	if err != nil {
		return market.Meta{}, err
	}
	meta := market.Meta{
		Contract:     contract,
		BarCount:     len(ds.table.Bars),
		IntervalSec:  ds.table.Interval,
		IndicatorIDs: ds.table.IndicatorIDs(),
		TradeCount:   len(ds.trades),
		Collisions:   ds.table.Stats.Collisions,
		SkippedRows:  ds.report.SkipCount(),
	}
	if n := len(ds.table.Bars); n > 0 {
		meta.StartTime = ds.table.Bars[0].Time
		meta.EndTime = ds.table.Bars[n-1].Time
	}
	return meta, nil
}

// Bars 返回 [start, end]（含）内的 K 线。窗口无数据时返回空集而非错误。
func (s *Service) Bars(ctx context.Context, contract string, start, end int64) ([]market.Bar, error) {
	ds, err := s.dataset(ctx, contract)
	if err != nil {
		return nil, err
	}
	return ds.table.BarsBetween(start, end), nil
}

// Series 返回限制在窗口内的全部指标序列。
func (s *Service) Series(ctx context.Context, contract string, start, end int64) ([]market.IndicatorSeries, error) {
	ds, err := s.dataset(ctx, contract)
	if err != nil {
		return nil, err
	}
	return ds.table.SeriesBetween(start, end), nil
}

// Trades 返回与窗口相交的交易，诊断标记在每次查询时重新计算，
// 不会缓存在交易本体上。
func (s *Service) Trades(ctx context.Context, contract string, start, end int64) ([]market.Trade, error) {
	ds, err := s.dataset(ctx, contract)
	if err != nil {
		return nil, err
	}
	maxSkew := ds.profile.MaxSkewSeconds
	if maxSkew <= 0 {
		maxSkew = ds.table.DefaultMaxSkew()
	}
	eps := ds.profile.PriceEpsilon

	var out []market.Trade
	for _, tr := range ds.trades {
		if !tradeInRange(tr, start, end) {
			continue
		}
		tr.Flags = Validate(tr, ds.table, maxSkew, eps)
		out = append(out, tr)
	}
	return out, nil
}

// MapReport 返回合约当前数据集的映射报告（跳过明细）。
func (s *Service) MapReport(ctx context.Context, contract string) (MapReport, error) {
	ds, err := s.dataset(ctx, contract)
	if err != nil {
		return MapReport{}, err
	}
	return ds.report, nil
}

// tradeInRange 判断交易区间与查询窗口是否相交；未平仓交易只看入场时刻。
func tradeInRange(tr market.Trade, start, end int64) bool {
	last := tr.EntryTime
	if !tr.Open && tr.ExitTime > last {
		last = tr.ExitTime
	}
	return tr.EntryTime <= end && last >= start
}

func (s *Service) dataset(ctx context.Context, contract string) (*dataset, error) {
	inst, ok := s.instruments[strings.TrimSpace(contract)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownContract, contract)
	}
	fp, err := fingerprint(inst.BarsPath, inst.TradesPath)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 源文件失败: %w", inst.ID, err)
	}

	s.mu.RLock()
	cached := s.cache[inst.ID]
	s.mu.RUnlock()
	if cached != nil && cached.fingerprint == fp {
		return cached, nil
	}

	v, err, _ := s.sf.Do(inst.ID+"|"+fp, func() (any, error) {
		ds, err := s.build(ctx, inst, fp)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.cache[inst.ID] = ds
		s.mu.Unlock()
		return ds, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset), nil
}

func (s *Service) build(ctx context.Context, inst Instrument, fp string) (*dataset, error) {
	prof, ok := s.profiles.Profile(inst.Profile)
	if !ok {
		return nil, fmt.Errorf("instrument %s 引用了不存在的档案 %q", inst.ID, inst.Profile)
	}

	barSrc, err := rowsource.OpenBars(inst.BarsPath, prof.BarColumns())
	if err != nil {
		return nil, err
	}
	rows, err := barSrc.Rows(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 失败: %w", barSrc.Name(), err)
	}
	table, err := BuildTable(inst.ID, rows, prof)
	if err != nil {
		return nil, err
	}

	ds := &dataset{fingerprint: fp, table: table, profile: prof}
	if inst.TradesPath != "" {
		tradeSrc, err := rowsource.OpenTrades(inst.TradesPath)
		if err != nil {
			return nil, err
		}
		records, err := tradeSrc.Records(ctx)
		if err != nil {
			return nil, fmt.Errorf("读取 %s 失败: %w", tradeSrc.Name(), err)
		}
		ds.trades, ds.report = MapTrades(records, prof)
	}
	logger.Infof("合约 %s 摄取完成: bars=%d series=%d trades=%d collisions=%d skipped=%d",
		inst.ID, len(table.Bars), len(table.Series), len(ds.trades),
		table.Stats.Collisions, ds.report.SkipCount())
	return ds, nil
}

func (s *Service) invalidateAll() {
	s.mu.Lock()
	s.cache = make(map[string]*dataset)
	s.mu.Unlock()
}

// fingerprint 用路径+大小+修改时间标识源文件版本，重复查询不重复解析。
func fingerprint(paths ...string) (string, error) {
	var b strings.Builder
	for _, p := range paths {
		if p == "" {
			continue
		}
		st, err := os.Stat(p)
		if err != nil {
			return "", err
		}
		b.WriteString(p)
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(st.Size(), 10))
		b.WriteByte('|')
		b.WriteString(strconv.FormatInt(st.ModTime().UnixNano(), 10))
		b.WriteByte(';')
	}
	return b.String(), nil
}
