package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/model"
)

// SyncRunRepository 运行记录数据访问接口
type SyncRunRepository interface {
	Create(ctx context.Context, run *model.SyncRunLog) error
	Latest(ctx context.Context) (*model.SyncRunLog, error)
	// List 按开始时间倒序，limit <= 0 表示不限制
	List(ctx context.Context, limit int) ([]model.SyncRunLog, error)
}

type syncRunRepo struct {
	db *gorm.DB
}

// NewSyncRunRepo 创建 SyncRunRepository 实例
func NewSyncRunRepo(db *gorm.DB) SyncRunRepository {
	return &syncRunRepo{db: db}
}

func (r *syncRunRepo) Create(ctx context.Context, run *model.SyncRunLog) error {
	return r.db.WithContext(ctx).Create(run).Error
}

func (r *syncRunRepo) Latest(ctx context.Context) (*model.SyncRunLog, error) {
	var run model.SyncRunLog
	err := r.db.WithContext(ctx).
		Order("started_at DESC").
		First(&run).Error
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *syncRunRepo) List(ctx context.Context, limit int) ([]model.SyncRunLog, error) {
	var runs []model.SyncRunLog
	q := r.db.WithContext(ctx).Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&runs).Error
	return runs, err
}
