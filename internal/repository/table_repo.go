package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const insertBatchSize = 1000

// TableRepository 按表名的通用写接口，供全量替换与访问事件追加使用
// rows 的键必须与目标表列名一致
type TableRepository interface {
	// DeleteAll 删除表中全部记录；where 非空时形如 "WHERE access_time > ?"
	DeleteAll(ctx context.Context, table, where string, params ...interface{}) (int64, error)
	BulkAppend(ctx context.Context, table string, rows []map[string]interface{}) (int64, error)
	// Replace 在同一事务中清空并重新写入
	Replace(ctx context.Context, table string, rows []map[string]interface{}) (deleted, inserted int64, err error)
}

type tableRepo struct {
	db *gorm.DB
}

// NewTableRepo 创建 TableRepository 实例
func NewTableRepo(db *gorm.DB) TableRepository {
	return &tableRepo{db: db}
}

func (r *tableRepo) DeleteAll(ctx context.Context, table, where string, params ...interface{}) (int64, error) {
	return deleteFrom(r.db.WithContext(ctx), table, where, params...)
}

func (r *tableRepo) BulkAppend(ctx context.Context, table string, rows []map[string]interface{}) (int64, error) {
	return appendRows(r.db.WithContext(ctx), table, rows)
}

func (r *tableRepo) Replace(ctx context.Context, table string, rows []map[string]interface{}) (deleted, inserted int64, err error) {
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var txErr error
		if deleted, txErr = deleteFrom(tx, table, ""); txErr != nil {
			return txErr
		}
		inserted, txErr = appendRows(tx, table, rows)
		return txErr
	})
	if err != nil {
		return 0, 0, err
	}
	return deleted, inserted, nil
}

func deleteFrom(db *gorm.DB, table, where string, params ...interface{}) (int64, error) {
	sql := "DELETE FROM ?"
	if where != "" {
		sql += " " + where
	}
	args := append([]interface{}{clause.Table{Name: table}}, params...)
	result := db.Exec(sql, args...)
	if result.Error != nil {
		return 0, fmt.Errorf("删除 %s 失败: %w", table, result.Error)
	}
	return result.RowsAffected, nil
}

func appendRows(db *gorm.DB, table string, rows []map[string]interface{}) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	result := db.Table(table).CreateInBatches(copyRows(rows), insertBatchSize)
	if result.Error != nil {
		return 0, fmt.Errorf("写入 %s 失败: %w", table, result.Error)
	}
	return int64(len(rows)), nil
}

// copyRows gorm 写入 map 时会回填主键（"@id"），复制一份以免污染调用方的行
func copyRows(rows []map[string]interface{}) []map[string]interface{} {
	out := make([]map[string]interface{}, len(rows))
	for i, r := range rows {
		c := make(map[string]interface{}, len(r))
		for k, v := range r {
			c[k] = v
		}
		out[i] = c
	}
	return out
}
