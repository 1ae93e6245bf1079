package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
)

// CourseValidator 课程 ID 校验接口
//
// 校验是整次运行的闸门而不是过滤器：任一课程在数据仓库中不存在时返回
// *apperrors.ValidationFailure，调用方不得做任何写入。
// 运营库中没有课程时返回空的 RunContext，不视为错误。
type CourseValidator interface {
	Validate(ctx context.Context, runID string, startedAt time.Time) (*RunContext, error)
}

type courseValidator struct {
	repo      *repository.Repository
	warehouse warehouse.Querier
	logger    *zap.Logger
}

// NewCourseValidator 创建 CourseValidator 实例
func NewCourseValidator(repo *repository.Repository, wh warehouse.Querier, logger *zap.Logger) CourseValidator {
	return &courseValidator{repo: repo, warehouse: wh, logger: logger}
}

func (v *courseValidator) Validate(ctx context.Context, runID string, startedAt time.Time) (*RunContext, error) {
	supported, err := v.repo.Course.ListSupportedIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取待同步课程失败: %w", err)
	}

	var (
		invalid []int64
		courses []WarehouseCourse
	)
	for _, id := range supported {
		table, err := v.warehouse.Query(ctx, warehouse.CourseQuery, map[string]interface{}{
			"course_id": strconv.FormatInt(id, 10),
		})
		if err != nil {
			return nil, fmt.Errorf("查询课程 %d 失败: %w", id, err)
		}
		if table.Empty() {
			v.logger.Error("课程在数据仓库中不存在", zap.Int64("course_id", id))
			invalid = append(invalid, id)
			continue
		}
		courses = append(courses, toWarehouseCourse(id, table.Rows[0]))
	}

	if len(invalid) > 0 {
		return nil, &apperrors.ValidationFailure{InvalidIDs: invalid}
	}
	if len(courses) == 0 {
		v.logger.Info("运营库中没有需要同步的课程")
	}

	rc := NewRunContext(runID, startedAt, courses)
	v.logger.Info("课程 ID 已锁定", zap.Int64s("course_ids", rc.CourseIDs()))
	return rc, nil
}

// toWarehouseCourse 仓库 ID 无法解析时退回运营库中的 ID
func toWarehouseCourse(supportedID int64, row warehouse.Row) WarehouseCourse {
	wc := WarehouseCourse{
		ID:         supportedID,
		Name:       warehouse.ToString(row["name"]),
		StartAt:    warehouse.ToUTCTime(row["start_at"]),
		ConcludeAt: warehouse.ToUTCTime(row["conclude_at"]),
	}
	if id, ok := warehouse.ToInt64(row["id"]); ok {
		wc.ID = id
	}
	if canvasID, ok := warehouse.ToInt64(row["canvas_id"]); ok {
		wc.CanvasID = canvasID
	}
	if termID, ok := warehouse.ToInt64(row["enrollment_term_id"]); ok {
		wc.TermID = &termID
	}
	return wc
}
