package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/zqian/my-learning-analytics/internal/model"
)

// ResourceRepository 资源目录数据访问接口
type ResourceRepository interface {
	// Upsert 按 resource_id 插入或原地更新 resource_type、name
	Upsert(ctx context.Context, resources []model.Resource) error
	UpdateName(ctx context.Context, resourceID, name string) (int64, error)
	Delete(ctx context.Context, resourceID string) (int64, error)
}

type resourceRepo struct {
	db *gorm.DB
}

// NewResourceRepo 创建 ResourceRepository 实例
func NewResourceRepo(db *gorm.DB) ResourceRepository {
	return &resourceRepo{db: db}
}

func (r *resourceRepo) Upsert(ctx context.Context, resources []model.Resource) error {
	if len(resources) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "resource_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"resource_type", "name"}),
		}).
		Create(&resources).Error
}

func (r *resourceRepo) UpdateName(ctx context.Context, resourceID, name string) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&model.Resource{}).
		Where("resource_id = ?", resourceID).
		Update("name", name)
	return result.RowsAffected, result.Error
}

func (r *resourceRepo) Delete(ctx context.Context, resourceID string) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("resource_id = ?", resourceID).
		Delete(&model.Resource{})
	return result.RowsAffected, result.Error
}
