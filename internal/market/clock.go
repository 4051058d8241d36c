package market

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// ErrMalformedTimestamp 表示时间戳在所有支持的编码下都无法解释。
var ErrMalformedTimestamp = errors.New("malformed timestamp")

// msThreshold 区分秒与毫秒编码：1e11 秒已是公元 5138 年，
// 而毫秒纪元在 1973 年就越过了这个量级，真实行情数据不会落入歧义区。
// 该阈值对整个数据集统一生效，绝不按行自适应。
const msThreshold = int64(100_000_000_000)

// 无时区信息的日历格式按声明的源时区解析。
var calendarLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006/01/02 15:04:05",
	"2006-01-02",
}

// NormalizeTime 把未知编码的源时间戳（整数秒、整数毫秒或日历表示）
// 统一成 UTC 秒。loc 为源数据声明的时区，nil 视为 UTC。
func NormalizeTime(v any, loc *time.Location) (int64, error) {
	if loc == nil {
		loc = time.UTC
	}
	switch t := v.(type) {
	case int64:
		return normalizeEpoch(t), nil
	case int:
		return normalizeEpoch(int64(t)), nil
	case int32:
		return normalizeEpoch(int64(t)), nil
	case uint64:
		return normalizeEpoch(int64(t)), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return 0, fmt.Errorf("%w: 非有限数值", ErrMalformedTimestamp)
		}
		return normalizeEpoch(int64(t)), nil
	case float32:
		return NormalizeTime(float64(t), loc)
	case time.Time:
		return t.UTC().Unix(), nil
	case string:
		return normalizeString(t, loc)
	default:
		return 0, fmt.Errorf("%w: 不支持的类型 %T", ErrMalformedTimestamp, v)
	}
}

func normalizeEpoch(v int64) int64 {
	if v >= msThreshold || v <= -msThreshold {
		return v / 1000
	}
	return v
}

func normalizeString(s string, loc *time.Location) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: 空字符串", ErrMalformedTimestamp)
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return normalizeEpoch(n), nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return NormalizeTime(f, loc)
	}
	for _, layout := range calendarLayouts {
		if ts, err := time.ParseInLocation(layout, s, loc); err == nil {
			return ts.UTC().Unix(), nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, s)
}
