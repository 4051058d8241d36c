package rowsource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/parquet-go/parquet-go"
)

// ParquetBars 读取扁平 schema 的 parquet K 线文件。
// 列的角色分类与 CSV 一致：命中同义词表的列按角色取值，
// 其余数值列视为预计算指标。
type ParquetBars struct {
	path string
	cols BarColumns
}

func NewParquetBars(path string, cols BarColumns) *ParquetBars {
	return &ParquetBars{path: path, cols: cols}
}

func (s *ParquetBars) Name() string { return "parquet:" + s.path }

func (s *ParquetBars) Rows(ctx context.Context) ([]BarRow, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开 parquet 失败: %w", err)
	}
	defer f.Close()
	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("解析 parquet 失败 (%s): %w", s.path, err)
	}

	// 叶子列顺序与 Value.Column() 的索引一致。
	paths := pf.Schema().Columns()
	names := make([]string, len(paths))
	roles := make([]columnRole, len(paths))
	for i, p := range paths {
		names[i] = strings.Join(p, ".")
		roles[i] = s.cols.roleOf(names[i])
	}

	var out []BarRow
	buf := make([]parquet.Row, 256)
	for _, rg := range pf.RowGroups() {
		rows := rg.Rows()
		for {
			if err := ctx.Err(); err != nil {
				rows.Close()
				return nil, err
			}
			n, err := rows.ReadRows(buf)
			for _, pr := range buf[:n] {
				out = append(out, s.convertRow(pr, names, roles))
			}
			if err != nil {
				if errors.Is(err, io.EOF) {
					break
				}
				rows.Close()
				return nil, fmt.Errorf("读取 parquet 行失败 (%s): %w", s.path, err)
			}
		}
		if err := rows.Close(); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (s *ParquetBars) convertRow(pr parquet.Row, names []string, roles []columnRole) BarRow {
	row := BarRow{Indicators: make(map[string]float64)}
	for _, v := range pr {
		idx := v.Column()
		if idx < 0 || idx >= len(roles) {
			continue
		}
		switch roles[idx] {
		case roleTime:
			row.Time = timeValue(v)
		case roleSymbol:
			row.Symbol = v.String()
		case roleOpen:
			row.Open = floatValue(v)
		case roleHigh:
			row.High = floatValue(v)
		case roleLow:
			row.Low = floatValue(v)
		case roleClose:
			row.Close = floatValue(v)
		case roleVolume:
			if !v.IsNull() {
				row.Volume = floatValue(v)
				row.HasVolume = !math.IsNaN(row.Volume)
			}
		default:
			row.Indicators[names[idx]] = floatValue(v)
		}
	}
	return row
}

func timeValue(v parquet.Value) any {
	switch v.Kind() {
	case parquet.Int32:
		return int64(v.Int32())
	case parquet.Int64:
		return v.Int64()
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	default:
		return v.String()
	}
}

func floatValue(v parquet.Value) float64 {
	if v.IsNull() {
		return math.NaN()
	}
	switch v.Kind() {
	case parquet.Double:
		return v.Double()
	case parquet.Float:
		return float64(v.Float())
	case parquet.Int32:
		return float64(v.Int32())
	case parquet.Int64:
		return float64(v.Int64())
	case parquet.ByteArray, parquet.FixedLenByteArray:
		return parseCell(v.String())
	default:
		return math.NaN()
	}
}
