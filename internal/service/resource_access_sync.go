package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/config"
	"github.com/zqian/my-learning-analytics/internal/lrs"
	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
)

const (
	resourceAccessTable = "resource_access"
	// sentinelUserID 事件源无法给出 user_id 时输出 -1，并在 user_login_name 中给出登录名
	sentinelUserID = -1
	loginNameCol   = "user_login_name"
	unionSeparator = "  UNION ALL   "
)

// 访问事件去重键
var accessDedupeKey = []string{"resource_id", "user_id", "access_time"}

// 资源目录列，写入事件表前删除
var catalogColumns = []string{"resource_id", "resource_type", "name"}

// ResourceAccessSyncer 资源访问事件增量同步接口
// 任何失败都返回 StageTainted：已完成的阶段保留，水位不推进
type ResourceAccessSyncer interface {
	Sync(ctx context.Context, rc *RunContext) StageResult
}

// ResourceAccessOptions 资源访问同步配置
type ResourceAccessOptions struct {
	Kinds                 map[string]config.ResourceKindConfig
	BatchSize             int
	CanvasDataIDIncrement int64
	CostPerTB             float64
}

type resourceAccessSyncer struct {
	repo   *repository.Repository
	source lrs.Source
	opts   ResourceAccessOptions
	logger *zap.Logger
}

// NewResourceAccessSyncer 创建 ResourceAccessSyncer 实例
func NewResourceAccessSyncer(repo *repository.Repository, source lrs.Source, opts ResourceAccessOptions, logger *zap.Logger) ResourceAccessSyncer {
	if opts.BatchSize <= 0 {
		opts.BatchSize = 1000
	}
	return &resourceAccessSyncer{repo: repo, source: source, opts: opts, logger: logger}
}

func (s *resourceAccessSyncer) Sync(ctx context.Context, rc *RunContext) StageResult {
	var out summary
	ids := rc.CourseIDs()

	if s.source == nil {
		return taintedResult(StageResourceAccess, "", errors.New("未配置访问事件源"))
	}

	// ── 1. 增量起点与窗口内旧数据清理 ──
	cutoff, err := s.repo.Course.EarliestWatermark(ctx, ids)
	if err != nil {
		return taintedResult(StageResourceAccess, "", fmt.Errorf("读取课程水位失败: %w", err))
	}
	deleted, err := s.clearWindow(ctx, ids, cutoff)
	if err != nil {
		return taintedResult(StageResourceAccess, "", err)
	}
	out.write(fmt.Sprintf("\n%d rows deleted from %s\n", deleted, resourceAccessTable))

	// ── 2~9. 分批拉取与写入 ──
	query := s.buildQuery(cutoff)
	var (
		totalBilled   int64
		totalInserted int64
	)
	for _, batch := range splitIDs(ids, s.opts.BatchSize) {
		n, billed, err := s.syncBatch(ctx, query, batch, cutoff)
		totalBilled += billed
		if err != nil {
			s.logger.Error("资源访问同步失败", zap.Int64s("course_ids", batch), zap.Error(err))
			return taintedResult(StageResourceAccess, out.String(), err)
		}
		if n < 0 {
			continue
		}
		totalInserted += n
		out.line("%d rows for courses %s", n, apperrors.FormatIDs(batch))
	}

	if s.source.Kind() == lrs.KindBigQuery {
		cost := lrs.QueryCost{BytesBilled: totalBilled}
		tb := cost.TBytes()
		price := math.Round(s.opts.CostPerTB*tb*100) / 100
		out.line("TBytes billed for BQ: %s = $%.2f", strconv.FormatFloat(tb, 'g', -1, 64), price)
	}
	return succeeded(StageResourceAccess, out.String(), totalInserted)
}

// clearWindow 删除即将重新拉取的事件
// 有水位时删除水位之后的事件；存在从未同步的课程时全量拉取，删除这些课程的全部事件
func (s *resourceAccessSyncer) clearWindow(ctx context.Context, ids []int64, cutoff *time.Time) (int64, error) {
	if cutoff != nil {
		s.logger.Info("删除水位之后的访问事件", zap.Time("data_last_updated", *cutoff))
		n, err := s.repo.Table.DeleteAll(ctx, resourceAccessTable, "WHERE access_time > ?", *cutoff)
		if err != nil {
			return 0, fmt.Errorf("清理访问事件失败: %w", err)
		}
		return n, nil
	}
	if len(ids) == 0 {
		return 0, nil
	}
	s.logger.Info("存在从未同步的课程，删除锁定课程的全部访问事件", zap.Int64s("course_ids", ids))
	n, err := s.repo.Table.DeleteAll(ctx, resourceAccessTable, "WHERE course_id IN ?", ids)
	if err != nil {
		return 0, fmt.Errorf("清理访问事件失败: %w", err)
	}
	return n, nil
}

// buildQuery 按资源类型名称排序后以 UNION ALL 拼接
func (s *resourceAccessSyncer) buildQuery(cutoff *time.Time) string {
	names := make([]string, 0, len(s.opts.Kinds))
	for name := range s.opts.Kinds {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		kind := s.opts.Kinds[name]
		q := strings.Join(kind.Query, " ")
		if cutoff != nil {
			cond := kind.DataLastUpdatedCondition
			if cond == "" {
				cond = s.source.CutoffCondition()
			}
			if cond = strings.TrimSpace(cond); cond != "" {
				q += " " + cond + " "
			}
		}
		parts = append(parts, q)
	}
	return strings.Join(parts, unionSeparator)
}

// resolvesLoginName 任一资源类型声明会输出登录名时需要身份解析
func (s *resourceAccessSyncer) resolvesLoginName() bool {
	for _, k := range s.opts.Kinds {
		if k.ResolvesLoginName {
			return true
		}
	}
	return false
}

// syncBatch 返回写入行数；批次无数据时返回 -1
func (s *resourceAccessSyncer) syncBatch(ctx context.Context, query string, batch []int64, cutoff *time.Time) (int64, int64, error) {
	short := make([]int64, len(batch))
	for i, id := range batch {
		short[i] = id - s.opts.CanvasDataIDIncrement
	}

	table, cost, err := s.source.Query(ctx, query, lrs.Params{
		CourseIDs:             batch,
		CourseIDsShort:        short,
		CanvasDataIDIncrement: s.opts.CanvasDataIDIncrement,
		DataLastUpdated:       cutoff,
	})
	if err != nil {
		return 0, 0, err
	}
	if table.Empty() {
		s.logger.Info("批次无访问数据，继续", zap.Int64s("course_ids", batch))
		return -1, cost.BytesBilled, nil
	}
	s.logger.Debug("访问事件行数", zap.Int("rows", table.Len()))

	// ── 身份解析 ──
	table = normalizeUserIDs(table)
	if s.resolvesLoginName() {
		if !table.HasColumn(loginNameCol) {
			s.logger.Warn("配置的查询缺少 user_login_name 列，跳过身份解析",
				zap.Error(apperrors.ErrMissingColumn))
		} else if table, err = s.resolveIdentities(ctx, table); err != nil {
			return 0, cost.BytesBilled, err
		}
	} else if hasSentinel(table) {
		s.logger.Warn("访问事件含哨兵 user_id，但没有资源类型配置 resolves_login_name，按原值写入",
			zap.Int64s("course_ids", batch),
			zap.Int64("sentinel", sentinelUserID),
		)
	}
	table = table.DropColumns(loginNameCol)

	// ── 去重 ──
	table = table.DropDuplicates(accessDedupeKey...)
	s.logger.Debug("去重后行数", zap.Int("rows", table.Len()))

	// ── 资源目录 upsert ──
	resources := catalogFrom(table)
	if err := s.repo.Resource.Upsert(ctx, resources); err != nil {
		return 0, cost.BytesBilled, fmt.Errorf("upsert resource 失败: %w", err)
	}

	// ── 追加访问事件 ──
	events := table.DropColumns(catalogColumns[1:]...)
	before := events.Len()
	events = events.DropNA()
	s.logger.Info("丢弃含空值的访问事件",
		zap.Int("dropped", before-events.Len()),
		zap.Int("total", before),
	)

	inserted, err := s.repo.Table.BulkAppend(ctx, resourceAccessTable, events.Rows)
	if err != nil {
		return 0, cost.BytesBilled, fmt.Errorf("写入 resource_access 失败: %w", err)
	}
	return inserted, cost.BytesBilled, nil
}

// resolveIdentities 以登录名查询 user_id 替换哨兵值，无法解析的行被丢弃
func (s *resourceAccessSyncer) resolveIdentities(ctx context.Context, table *warehouse.Table) (*warehouse.Table, error) {
	if !hasSentinel(table) {
		return table, nil
	}

	var names []string
	seen := make(map[string]struct{})
	for _, r := range table.Rows {
		if !isSentinel(r["user_id"]) || r[loginNameCol] == nil {
			continue
		}
		name := warehouse.ToString(r[loginNameCol])
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	resolved, err := s.repo.User.LookupIDsBySISName(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("按登录名查询用户失败: %w", err)
	}

	out := table.WithColumn("user_id", func(r warehouse.Row) interface{} {
		if !isSentinel(r["user_id"]) {
			return r["user_id"]
		}
		if id, ok := resolved[warehouse.ToString(r[loginNameCol])]; ok && r[loginNameCol] != nil {
			return id
		}
		return nil
	})
	before := out.Len()
	out = out.DropNA("user_id")
	s.logger.Debug("身份解析完成",
		zap.Int("resolved_names", len(resolved)),
		zap.Int("unresolved_rows", before-out.Len()),
	)
	return out, nil
}

func isSentinel(v interface{}) bool {
	id, ok := warehouse.ToInt64(v)
	return ok && id == sentinelUserID
}

func hasSentinel(t *warehouse.Table) bool {
	for _, r := range t.Rows {
		if isSentinel(r["user_id"]) {
			return true
		}
	}
	return false
}

// normalizeUserIDs 将可解析的 user_id 统一为 int64，保证去重键一致
func normalizeUserIDs(t *warehouse.Table) *warehouse.Table {
	if !t.HasColumn("user_id") {
		return t
	}
	return t.WithColumn("user_id", func(r warehouse.Row) interface{} {
		if id, ok := warehouse.ToInt64(r["user_id"]); ok {
			return id
		}
		return r["user_id"]
	})
}

// catalogFrom 从事件行提取资源目录，按 resource_id 去重
// 目录列含空值的行不参与 upsert，避免以空串覆盖已有名称
func catalogFrom(t *warehouse.Table) []model.Resource {
	catalog := t.Select(catalogColumns...).DropNA().DropDuplicates("resource_id")
	resources := make([]model.Resource, 0, catalog.Len())
	for _, r := range catalog.Rows {
		resources = append(resources, model.Resource{
			ResourceID:   warehouse.ToString(r["resource_id"]),
			ResourceType: warehouse.ToString(r["resource_type"]),
			Name:         warehouse.ToString(r["name"]),
		})
	}
	return resources
}

// splitIDs 按 size 切分课程 ID
func splitIDs(ids []int64, size int) [][]int64 {
	var batches [][]int64
	for i := 0; i < len(ids); i += size {
		end := i + size
		if end > len(ids) {
			end = len(ids)
		}
		batches = append(batches, ids[i:end])
	}
	return batches
}
