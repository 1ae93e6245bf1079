package warehouse

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"
)

// ToInt64 将驱动返回的数值统一为 int64
func ToInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int64:
		return n, true
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case *big.Rat:
		if n == nil {
			return 0, false
		}
		f, _ := n.Float64()
		return int64(f), true
	case []byte:
		return parseInt(string(n))
	case string:
		return parseInt(n)
	}
	return 0, false
}

func parseInt(s string) (int64, bool) {
	s = strings.TrimSpace(s)
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, true
	}
	// NUMERIC 列可能以 "123.0" 形式返回
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return int64(f), true
	}
	return 0, false
}

// ToFloat64 将数值列转换为 float64
func ToFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case *big.Rat:
		if n == nil {
			return 0, false
		}
		f, _ := n.Float64()
		return f, true
	case []byte:
		f, err := strconv.ParseFloat(string(n), 64)
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	if i, ok := ToInt64(v); ok {
		return float64(i), true
	}
	return 0, false
}

// ToString 将文本列转换为 string，nil 返回空串
func ToString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	}
	return fmt.Sprint(v)
}

// ToBool 将布尔列（含 0/1、"t"/"f"）转换为 bool
func ToBool(v interface{}) (bool, bool) {
	switch b := v.(type) {
	case bool:
		return b, true
	case []byte:
		p, err := strconv.ParseBool(string(b))
		return p, err == nil
	case string:
		p, err := strconv.ParseBool(b)
		return p, err == nil
	}
	if i, ok := ToInt64(v); ok {
		return i != 0, true
	}
	return false, false
}

// ToUTCTime 将时间列转换为 UTC；无时区信息的时间按 UTC 解释
func ToUTCTime(v interface{}) *time.Time {
	switch t := v.(type) {
	case time.Time:
		u := asUTC(t)
		return &u
	case *time.Time:
		if t == nil {
			return nil
		}
		u := asUTC(*t)
		return &u
	case string:
		return parseTime(t)
	case []byte:
		return parseTime(string(t))
	}
	return nil
}

// asUTC lib/pq 将 timestamp without time zone 解析为零偏移的 FixedZone，统一换成 time.UTC
func asUTC(t time.Time) time.Time {
	return t.UTC()
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func parseTime(s string) *time.Time {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			u := t.UTC()
			return &u
		}
	}
	return nil
}
