package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// CanvasResourceSyncer 以 Canvas 文件信息修正资源名称
// 可用文件更新名称，不可用文件从资源目录删除；失败与资源访问同步同属污染类错误
type CanvasResourceSyncer interface {
	Sync(ctx context.Context, rc *RunContext) StageResult
}

type canvasResourceSyncer struct {
	repo      *repository.Repository
	warehouse warehouse.Querier
	logger    *zap.Logger
}

// NewCanvasResourceSyncer 创建 CanvasResourceSyncer 实例
func NewCanvasResourceSyncer(repo *repository.Repository, wh warehouse.Querier, logger *zap.Logger) CanvasResourceSyncer {
	return &canvasResourceSyncer{repo: repo, warehouse: wh, logger: logger}
}

func (s *canvasResourceSyncer) Sync(ctx context.Context, rc *RunContext) StageResult {
	ids := rc.CourseIDs()
	if len(ids) == 0 {
		return skipped(StageCanvasResource, "no locked courses", "")
	}

	files, err := s.warehouse.Query(ctx, warehouse.CanvasFileQuery, map[string]interface{}{"course_ids": ids})
	if err != nil {
		return taintedResult(StageCanvasResource, "", fmt.Errorf("查询 file_dim 失败: %w", err))
	}

	var (
		out     summary
		changed int64
	)
	for _, row := range files.Rows {
		id := warehouse.ToString(row["id"])
		if id == "" {
			continue
		}
		if warehouse.ToString(row["file_state"]) == "available" {
			name := warehouse.ToString(row["display_name"])
			if _, err := s.repo.Resource.UpdateName(ctx, id, name); err != nil {
				return taintedResult(StageCanvasResource, out.String(), fmt.Errorf("更新资源 %s 名称失败: %w", id, err))
			}
			out.line("Row %s updated to %s", id, name)
		} else {
			if _, err := s.repo.Resource.Delete(ctx, id); err != nil {
				return taintedResult(StageCanvasResource, out.String(), fmt.Errorf("删除资源 %s 失败: %w", id, err))
			}
			out.line("Row %s removed as it is not available", id)
		}
		changed++
	}

	s.logger.Info("Canvas 资源名称同步完成", zap.Int64("rows", changed))
	return succeeded(StageCanvasResource, out.String(), changed)
}
