package warehouse

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Querier 只读查询接口
// params 以 @name 形式绑定；切片参数展开为 (a,b,c)，查询中写作 IN @name
type Querier interface {
	Query(ctx context.Context, query string, params map[string]interface{}) (*Table, error)
}

// Client 基于 gorm 原生 SQL 的查询客户端（数据仓库、LRS 直连共用）
type Client struct {
	db     *gorm.DB
	name   string
	logger *zap.Logger
}

// NewClient 创建查询客户端，name 仅用于日志区分数据源
func NewClient(db *gorm.DB, name string, logger *zap.Logger) *Client {
	return &Client{db: db, name: name, logger: logger}
}

// Query 执行查询并按列顺序返回结果
func (c *Client) Query(ctx context.Context, query string, params map[string]interface{}) (*Table, error) {
	start := time.Now()

	var args []interface{}
	// 未引用命名参数时不能传入 map，否则会被当作多余的位置参数
	if len(params) > 0 && strings.Contains(query, "@") {
		args = append(args, params)
	}

	rows, err := c.db.WithContext(ctx).Raw(query, args...).Rows()
	if err != nil {
		return nil, fmt.Errorf("%s 查询失败: %w", c.name, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("%s 读取列信息失败: %w", c.name, err)
	}

	table := NewTable(columns)
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("%s 读取行失败: %w", c.name, err)
		}

		row := make(Row, len(columns))
		for i, col := range columns {
			row[col] = normalize(values[i])
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s 遍历结果失败: %w", c.name, err)
	}

	c.logger.Debug("查询完成",
		zap.String("source", c.name),
		zap.Int("rows", table.Len()),
		zap.Duration("elapsed", time.Since(start)),
	)
	return table, nil
}

// normalize 文本列以 []byte 返回时转换为 string，便于比较与去重
func normalize(v interface{}) interface{} {
	switch t := v.(type) {
	case []byte:
		return string(t)
	case time.Time:
		return t.UTC()
	}
	return v
}
