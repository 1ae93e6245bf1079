package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/internal/model"
)

// UserRepository 选课用户数据访问接口
type UserRepository interface {
	// LookupIDsBySISName 登录名 → user_id；同一用户在多门课程中出现时取任一行
	LookupIDsBySISName(ctx context.Context, names []string) (map[string]int64, error)
}

type userRepo struct {
	db *gorm.DB
}

// NewUserRepo 创建 UserRepository 实例
func NewUserRepo(db *gorm.DB) UserRepository {
	return &userRepo{db: db}
}

func (r *userRepo) LookupIDsBySISName(ctx context.Context, names []string) (map[string]int64, error) {
	result := make(map[string]int64, len(names))
	if len(names) == 0 {
		return result, nil
	}

	var users []model.EnrollmentUser
	err := r.db.WithContext(ctx).
		Select("sis_name", "user_id").
		Where("sis_name IN ?", names).
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if _, ok := result[u.SISName]; !ok {
			result[u.SISName] = u.UserID
		}
	}
	return result, nil
}
