package rowsource

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/tidwall/gjson"
)

// JSONLTrades 读取每行一条 JSON 的交易导出。
// 字段名随来源各异，这里只拍平成字符串键值对，同义词解析交给映射器。
type JSONLTrades struct {
	path string
}

func NewJSONLTrades(path string) *JSONLTrades { return &JSONLTrades{path: path} }

func (s *JSONLTrades) Name() string { return "jsonl:" + s.path }

func (s *JSONLTrades) Records(ctx context.Context) ([]TradeRecord, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, fmt.Errorf("打开交易 JSONL 失败: %w", err)
	}
	defer f.Close()

	var records []TradeRecord
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	lineNo := 0
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if !gjson.Valid(line) {
			return nil, fmt.Errorf("第 %d 行不是合法 JSON (%s)", lineNo, s.path)
		}
		rec := make(TradeRecord)
		gjson.Parse(line).ForEach(func(key, value gjson.Result) bool {
			switch value.Type {
			case gjson.JSON:
				if value.IsArray() {
					// 数组字段（如 tags）拍平成逗号分隔，映射器按需拆回。
					var parts []string
					value.ForEach(func(_, item gjson.Result) bool {
						parts = append(parts, item.String())
						return true
					})
					rec[key.String()] = strings.Join(parts, ",")
				} else {
					rec[key.String()] = value.Raw
				}
			case gjson.Null:
				// 显式 null 等价于字段缺失。
			default:
				rec[key.String()] = value.String()
			}
			return true
		})
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("读取交易 JSONL 失败 (%s): %w", s.path, err)
	}
	return records, nil
}
