package rowsource

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"strings"

	_ "modernc.org/sqlite"
)

// SQLiteBars 读取 sqlite 形态的 K 线产物（如按合约落盘的 candles 库）。
// 通过 SELECT * 拿到全部列，再按同义词表分类，指标列无需预先声明。
type SQLiteBars struct {
	path  string
	table string
	cols  BarColumns
}

// NewSQLiteBars 构造 sqlite 来源，table 为空时默认 candles。
func NewSQLiteBars(path, table string, cols BarColumns) *SQLiteBars {
	if strings.TrimSpace(table) == "" {
		table = "candles"
	}
	return &SQLiteBars{path: path, table: table, cols: cols}
}

func (s *SQLiteBars) Name() string { return "sqlite:" + s.path }

func (s *SQLiteBars) Rows(ctx context.Context) ([]BarRow, error) {
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(5000)", s.path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开 sqlite 失败: %w", err)
	}
	defer db.Close()
	db.SetMaxOpenConns(1)

	if !validTableName(s.table) {
		return nil, fmt.Errorf("非法表名: %s", s.table)
	}
	rows, err := db.QueryContext(ctx, "SELECT * FROM "+s.table)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败 (%s): %w", s.table, s.path, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	roles := make([]columnRole, len(names))
	for i, name := range names {
		roles[i] = s.cols.roleOf(name)
	}

	var out []BarRow
	values := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("读取 sqlite 行失败: %w", err)
		}
		row := BarRow{Indicators: make(map[string]float64)}
		for i, v := range values {
			switch roles[i] {
			case roleTime:
				row.Time = sqlAny(v)
			case roleSymbol:
				row.Symbol = sqlString(v)
			case roleOpen:
				row.Open = sqlFloat(v)
			case roleHigh:
				row.High = sqlFloat(v)
			case roleLow:
				row.Low = sqlFloat(v)
			case roleClose:
				row.Close = sqlFloat(v)
			case roleVolume:
				if v != nil {
					row.Volume = sqlFloat(v)
					row.HasVolume = !math.IsNaN(row.Volume)
				}
			default:
				row.Indicators[names[i]] = sqlFloat(v)
			}
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func validTableName(name string) bool {
	for _, r := range name {
		ok := r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
		if !ok {
			return false
		}
	}
	return name != ""
}

func sqlAny(v any) any {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v
}

func sqlString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

func sqlFloat(v any) float64 {
	switch t := v.(type) {
	case nil:
		return math.NaN()
	case float64:
		return t
	case int64:
		return float64(t)
	case string:
		return parseCell(t)
	case []byte:
		return parseCell(string(t))
	default:
		return math.NaN()
	}
}
