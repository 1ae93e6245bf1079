package warehouse

import (
	"fmt"
	"strings"
	"time"
)

// Row 单行查询结果，键为列名
type Row = map[string]interface{}

// Table 表格化查询结果，Columns 保留查询返回的列顺序
type Table struct {
	Columns []string
	Rows    []Row
}

// NewTable 以给定列创建结果表
func NewTable(columns []string, rows ...Row) *Table {
	return &Table{Columns: columns, Rows: rows}
}

// Len 行数
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// Empty 是否无数据
func (t *Table) Empty() bool { return t.Len() == 0 }

// HasColumn 是否包含指定列
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Column 取出单列的所有值
func (t *Table) Column(name string) []interface{} {
	values := make([]interface{}, 0, len(t.Rows))
	for _, r := range t.Rows {
		values = append(values, r[name])
	}
	return values
}

// DropDuplicates 按 keys 去重并保留首次出现的行；keys 为空时按整行比较
func (t *Table) DropDuplicates(keys ...string) *Table {
	if len(keys) == 0 {
		keys = t.Columns
	}
	seen := make(map[string]struct{}, len(t.Rows))
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		k := rowKey(r, keys)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out.Rows = append(out.Rows, r)
	}
	return out
}

// DropColumns 删除指定列（不存在的列忽略）
func (t *Table) DropColumns(names ...string) *Table {
	drop := make(map[string]struct{}, len(names))
	for _, n := range names {
		drop[n] = struct{}{}
	}
	cols := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		if _, ok := drop[c]; !ok {
			cols = append(cols, c)
		}
	}
	return t.Select(cols...)
}

// Select 仅保留指定列，按参数顺序输出；表中不存在的列被忽略
func (t *Table) Select(names ...string) *Table {
	cols := make([]string, 0, len(names))
	for _, n := range names {
		if t.HasColumn(n) {
			cols = append(cols, n)
		}
	}
	out := &Table{Columns: cols, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		nr := make(Row, len(cols))
		for _, c := range cols {
			nr[c] = r[c]
		}
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// DropNA 删除指定列中存在空值的行；cols 为空时检查全部列
func (t *Table) DropNA(cols ...string) *Table {
	if len(cols) == 0 {
		cols = t.Columns
	}
	return t.Filter(func(r Row) bool {
		for _, c := range cols {
			if r[c] == nil {
				return false
			}
		}
		return true
	})
}

// Filter 保留 keep 返回 true 的行
func (t *Table) Filter(keep func(Row) bool) *Table {
	out := &Table{Columns: t.Columns, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		if keep(r) {
			out.Rows = append(out.Rows, r)
		}
	}
	return out
}

// WithColumn 为每行设置新列的值（已存在则覆盖）
func (t *Table) WithColumn(name string, value func(Row) interface{}) *Table {
	cols := t.Columns
	if !t.HasColumn(name) {
		cols = append(append([]string{}, t.Columns...), name)
	}
	out := &Table{Columns: cols, Rows: make([]Row, 0, len(t.Rows))}
	for _, r := range t.Rows {
		nr := make(Row, len(cols))
		for k, v := range r {
			nr[k] = v
		}
		nr[name] = value(r)
		out.Rows = append(out.Rows, nr)
	}
	return out
}

// Concat 纵向拼接，列取并集，缺失值为 nil
func Concat(tables ...*Table) *Table {
	out := &Table{}
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, c := range t.Columns {
			if !out.HasColumn(c) {
				out.Columns = append(out.Columns, c)
			}
		}
		out.Rows = append(out.Rows, t.Rows...)
	}
	return out
}

// rowKey 以 \x1f 分隔拼接 key 列的值；时间统一为 UTC 表示
func rowKey(r Row, keys []string) string {
	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('\x1f')
		}
		switch v := r[k].(type) {
		case nil:
			b.WriteString("\x00")
		case time.Time:
			b.WriteString(v.UTC().Format(time.RFC3339Nano))
		case *time.Time:
			if v == nil {
				b.WriteString("\x00")
			} else {
				b.WriteString(v.UTC().Format(time.RFC3339Nano))
			}
		case []byte:
			b.Write(v)
		default:
			fmt.Fprint(&b, v)
		}
	}
	return b.String()
}
