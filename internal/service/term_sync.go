package service

import (
	"context"
	"fmt"

	mapset "github.com/deckarep/golang-set/v2"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
)

// TermSyncer 学期同步接口
// 只插入运营库中不存在的学期，已有学期不更新、不删除
type TermSyncer interface {
	Sync(ctx context.Context) StageResult
}

type termSyncer struct {
	repo      *repository.Repository
	warehouse warehouse.Querier
	logger    *zap.Logger
}

// NewTermSyncer 创建 TermSyncer 实例
func NewTermSyncer(repo *repository.Repository, wh warehouse.Querier, logger *zap.Logger) TermSyncer {
	return &termSyncer{repo: repo, warehouse: wh, logger: logger}
}

func (s *termSyncer) Sync(ctx context.Context) StageResult {
	table, err := s.warehouse.Query(ctx, warehouse.TermQuery, nil)
	if err != nil {
		return fatalResult(StageTerm, "", fmt.Errorf("查询学期失败: %w", err))
	}

	existingIDs, err := s.repo.Term.ListIDs(ctx)
	if err != nil {
		return fatalResult(StageTerm, "", fmt.Errorf("读取已有学期失败: %w", err))
	}
	existing := mapset.NewThreadUnsafeSet(existingIDs...)

	var (
		newTerms []model.AcademicTerm
		newIDs   []int64
	)
	seen := mapset.NewThreadUnsafeSet[int64]()
	for _, row := range table.Rows {
		id, ok := warehouse.ToInt64(row["id"])
		if !ok || existing.Contains(id) || !seen.Add(id) {
			continue
		}
		term := model.AcademicTerm{
			ID:        id,
			Name:      warehouse.ToString(row["name"]),
			DateStart: warehouse.ToUTCTime(row["date_start"]),
			DateEnd:   warehouse.ToUTCTime(row["date_end"]),
		}
		term.CanvasID, _ = warehouse.ToInt64(row["canvas_id"])
		newTerms = append(newTerms, term)
		newIDs = append(newIDs, id)
	}

	if len(newTerms) == 0 {
		s.logger.Info("没有需要新增的学期")
		return succeeded(StageTerm, "No new terms were found to add to the academic_terms table.\n", 0)
	}

	if err := s.repo.Term.BatchCreate(ctx, newTerms); err != nil {
		s.logger.Error("写入学期失败", zap.Error(err))
		return fatalResult(StageTerm, "", fmt.Errorf("写入 academic_terms 失败: %w", err))
	}

	msg := fmt.Sprintf("Added %d new records to academic_terms table: %s", len(newTerms), apperrors.FormatIDs(newIDs))
	s.logger.Info("新增学期", zap.Int64s("term_ids", newIDs))
	return succeeded(StageTerm, msg+"\n", int64(len(newTerms)))
}
