package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/model"
)

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	// ListSupportedIDs 当前需要同步的课程 ID（course 表中的全部课程）
	ListSupportedIDs(ctx context.Context) ([]int64, error)
	ListByIDs(ctx context.Context, ids []int64) ([]model.Course, error)
	// UpdateFields 仅写入 columns 指定的列
	UpdateFields(ctx context.Context, course *model.Course, columns []string) error
	// EarliestWatermark 最早的 data_last_updated；存在从未同步的课程或 ids 为空时返回 nil
	EarliestWatermark(ctx context.Context, ids []int64) (*time.Time, error)
	UpdateWatermark(ctx context.Context, ids []int64, ts time.Time) (int64, error)
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) ListSupportedIDs(ctx context.Context) ([]int64, error) {
	var ids []int64
	err := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Order("id ASC").
		Pluck("id", &ids).Error
	return ids, err
}

func (r *courseRepo) ListByIDs(ctx context.Context, ids []int64) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) UpdateFields(ctx context.Context, course *model.Course, columns []string) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(course).
		Select(columns).
		Updates(course).Error
}

func (r *courseRepo) EarliestWatermark(ctx context.Context, ids []int64) (*time.Time, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Select("id", "data_last_updated").
		Where("id IN ?", ids).
		Find(&courses).Error
	if err != nil {
		return nil, err
	}

	var earliest *time.Time
	for i := range courses {
		ts := courses[i].DataLastUpdated
		if ts == nil {
			return nil, nil
		}
		if earliest == nil || ts.Before(*earliest) {
			earliest = ts
		}
	}
	if earliest != nil {
		utc := earliest.UTC()
		earliest = &utc
	}
	return earliest, nil
}

func (r *courseRepo) UpdateWatermark(ctx context.Context, ids []int64, ts time.Time) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	result := r.db.WithContext(ctx).
		Model(&model.Course{}).
		Where("id IN ?", ids).
		Update("data_last_updated", ts)
	return result.RowsAffected, result.Error
}
