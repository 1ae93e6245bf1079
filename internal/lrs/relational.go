package lrs

import (
	"context"
	"fmt"

	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// RelationalSource 直连关系库的访问事件源
type RelationalSource struct {
	querier warehouse.Querier
	cutoff  string
	closeFn func() error
}

// NewRelationalSource cutoff 为通用增量条件（通常形如 "and event_time > @data_last_updated"），可为空
func NewRelationalSource(q warehouse.Querier, cutoff string, closeFn func() error) *RelationalSource {
	return &RelationalSource{querier: q, cutoff: cutoff, closeFn: closeFn}
}

func (s *RelationalSource) Kind() string { return KindRelational }

func (s *RelationalSource) CutoffCondition() string { return s.cutoff }

func (s *RelationalSource) Query(ctx context.Context, query string, p Params) (*warehouse.Table, QueryCost, error) {
	params := map[string]interface{}{
		"course_ids":               p.CourseIDs,
		"course_ids_short":         p.CourseIDsShort,
		"canvas_data_id_increment": p.CanvasDataIDIncrement,
	}
	if p.DataLastUpdated != nil {
		params["data_last_updated"] = *p.DataLastUpdated
	}

	table, err := s.querier.Query(ctx, query, params)
	if err != nil {
		return nil, QueryCost{}, fmt.Errorf("LRS 查询失败: %w", err)
	}
	return table, QueryCost{}, nil
}

func (s *RelationalSource) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}
