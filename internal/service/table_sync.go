package service

import (
	"context"
	"fmt"
	"strconv"

	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// TableSyncer 全量替换同步接口
//
// 查询 → 去重（保留首行）→ 调整形状 → 在同一事务中清空并写入。
// 任一步失败都返回 StageFatal，调用方必须中止运行，不做自动重试。
type TableSyncer interface {
	Sync(ctx context.Context, desc TableDescriptor, rc *RunContext) StageResult
}

type tableSyncer struct {
	repo      *repository.Repository
	warehouse warehouse.Querier
	timeZone  string
	logger    *zap.Logger
}

// NewTableSyncer timeZone 用于换算作业截止时间与成绩发布时间的本地日期
func NewTableSyncer(repo *repository.Repository, wh warehouse.Querier, timeZone string, logger *zap.Logger) TableSyncer {
	return &tableSyncer{repo: repo, warehouse: wh, timeZone: timeZone, logger: logger}
}

func (s *tableSyncer) Sync(ctx context.Context, desc TableDescriptor, rc *RunContext) StageResult {
	var (
		out   summary
		parts []*warehouse.Table
	)

	switch desc.Scope {
	case ScopeBulk:
		t, err := s.fetch(ctx, desc, nil, 0)
		if err != nil {
			return fatalResult(desc.Table, "", err)
		}
		parts = append(parts, t)
		out.line("%d %s : ", t.Len(), desc.Table)
	default:
		for _, courseID := range rc.CourseIDs() {
			params := map[string]interface{}{
				"course_id": strconv.FormatInt(courseID, 10),
				"time_zone": s.timeZone,
			}
			t, err := s.fetch(ctx, desc, params, courseID)
			if err != nil {
				return fatalResult(desc.Table, "", fmt.Errorf("课程 %d: %w", courseID, err))
			}
			parts = append(parts, t)
			out.line("%d %s : %d", t.Len(), desc.Table, courseID)
		}
	}

	all := warehouse.Concat(parts...)
	if len(desc.Columns) > 0 {
		all = all.Select(desc.Columns...)
	}

	deleted, inserted, err := s.repo.Table.Replace(ctx, desc.Table, all.Rows)
	if err != nil {
		s.logger.Error("全量替换失败", zap.String("table", desc.Table), zap.Error(err))
		return fatalResult(desc.Table, "", err)
	}

	s.logger.Info("全量替换完成",
		zap.String("table", desc.Table),
		zap.Int64("deleted", deleted),
		zap.Int64("inserted", inserted),
	)
	text := fmt.Sprintf("\n%d rows deleted from %s\n", deleted, desc.Table) + out.String()
	return succeeded(desc.Table, text, inserted)
}

// fetch 单次查询并完成形状调整与去重
func (s *tableSyncer) fetch(ctx context.Context, desc TableDescriptor, params map[string]interface{}, courseID int64) (*warehouse.Table, error) {
	t, err := s.warehouse.Query(ctx, desc.Query, params)
	if err != nil {
		return nil, fmt.Errorf("查询 %s 失败: %w", desc.Table, err)
	}
	if desc.Reshape != nil {
		t = desc.Reshape(t, courseID)
	}
	t = t.DropDuplicates(desc.DedupeKey...)
	s.logger.Debug("查询完成", zap.String("table", desc.Table), zap.Int64("course_id", courseID), zap.Int("rows", t.Len()))
	return t, nil
}
