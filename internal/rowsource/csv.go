package rowsource

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
)

// CSVBars 读取宽表 CSV：首行表头声明时间/OHLCV 与任意数量的指标列。
type CSVBars struct {
	path string
	cols BarColumns
}

func NewCSVBars(path string, cols BarColumns) *CSVBars {
	return &CSVBars{path: path, cols: cols}
}

func (s *CSVBars) Name() string { return "csv:" + s.path }

func (s *CSVBars) Rows(ctx context.Context) ([]BarRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开 CSV 失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("读取 CSV 表头失败 (%s): %w", s.path, err)
	}
	roles := make([]columnRole, len(header))
	for i, name := range header {
		roles[i] = s.cols.roleOf(name)
	}

	var rows []BarRow
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取 CSV 行失败 (%s): %w", s.path, err)
		}
		row := BarRow{Indicators: make(map[string]float64)}
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			cell = strings.TrimSpace(cell)
			switch roles[i] {
			case roleTime:
				row.Time = cell
			case roleSymbol:
				row.Symbol = cell
			case roleOpen:
				row.Open = parseCell(cell)
			case roleHigh:
				row.High = parseCell(cell)
			case roleLow:
				row.Low = parseCell(cell)
			case roleClose:
				row.Close = parseCell(cell)
			case roleVolume:
				if cell != "" {
					row.Volume = parseCell(cell)
					row.HasVolume = !math.IsNaN(row.Volume)
				}
			default:
				row.Indicators[header[i]] = parseCell(cell)
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// parseCell 把单元格转成 float64，空值与非法值统一返回 NaN，
// 由引擎决定这是指标缺位还是 bar 硬错误。
func parseCell(cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}

// CSVTrades 读取表头驱动的交易记录 CSV，列名原样保留给映射器。
type CSVTrades struct {
	path string
}

func NewCSVTrades(path string) *CSVTrades { return &CSVTrades{path: path} }

func (s *CSVTrades) Name() string { return "csv:" + s.path }

func (s *CSVTrades) Records(ctx context.Context) ([]TradeRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开交易 CSV 失败: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("读取交易 CSV 表头失败 (%s): %w", s.path, err)
	}
	var records []TradeRecord
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		record, err := r.Read()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("读取交易 CSV 行失败 (%s): %w", s.path, err)
		}
		rec := make(TradeRecord, len(header))
		for i, cell := range record {
			if i >= len(header) {
				break
			}
			rec[strings.TrimSpace(header[i])] = strings.TrimSpace(cell)
		}
		records = append(records, rec)
	}
	return records, nil
}
