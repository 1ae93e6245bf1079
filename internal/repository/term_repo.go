package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/model"
)

// TermRepository 学期数据访问接口（只追加）
type TermRepository interface {
	ListIDs(ctx context.Context) ([]int64, error)
	BatchCreate(ctx context.Context, terms []model.AcademicTerm) error
}

type termRepo struct {
	db *gorm.DB
}

// NewTermRepo 创建 TermRepository 实例
func NewTermRepo(db *gorm.DB) TermRepository {
	return &termRepo{db: db}
}

func (r *termRepo) ListIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.AcademicTerm{}).
		Pluck("id", &ids).Error
	return ids, err
}

func (r *termRepo) BatchCreate(ctx context.Context, terms []model.AcademicTerm) error {
	if len(terms) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Create(&terms).Error
}
