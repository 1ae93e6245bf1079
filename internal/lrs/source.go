package lrs

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/config"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
	"github.com/zqian/my-learning-analytics/pkg/database"
)

const (
	KindBigQuery   = "bigquery"
	KindRelational = "postgres"
)

// Params 访问事件查询的绑定参数
type Params struct {
	CourseIDs             []int64
	CourseIDsShort        []int64 // 减去 canvas_data_id_increment 后的 Canvas 课程 ID
	CanvasDataIDIncrement int64
	DataLastUpdated       *time.Time // 为空表示全量拉取
}

// QueryCost 单次查询的计费信息，直连模式下为零值
type QueryCost struct {
	BytesBilled int64
}

// TBytes 计费字节数换算为 TB
func (c QueryCost) TBytes() float64 {
	return float64(c.BytesBilled) / 1024 / 1024 / 1024 / 1024
}

// Source 访问事件源
// 两种实现共享同一契约：执行查询，返回结果表与（可选的）计费信息
type Source interface {
	Kind() string
	// CutoffCondition 资源类型未配置自己的增量条件时追加的通用条件，可能为空
	CutoffCondition() string
	Query(ctx context.Context, query string, params Params) (*warehouse.Table, QueryCost, error)
	Close() error
}

// NewSource 按 lrs.engine 选择事件源，仅在启动时调用一次
func NewSource(ctx context.Context, cfg *config.LRSConfig, logLevel string, logger *zap.Logger) (Source, error) {
	if cfg.IsBigQuery() {
		client, err := bigquery.NewClient(ctx, cfg.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("创建 BigQuery 客户端失败: %w", err)
		}
		logger.Info("访问事件源: BigQuery",
			zap.String("project", client.Project()),
			zap.String("location", cfg.Location),
		)
		return NewBigQuerySource(&bqJobRunner{client: client}, cfg.Location, logger), nil
	}

	db, err := database.NewReadOnlyDB(&cfg.DatabaseConfig, logLevel, logger)
	if err != nil {
		return nil, fmt.Errorf("连接 LRS 失败: %w", err)
	}
	logger.Info("访问事件源: 关系库直连", zap.String("host", cfg.Host))
	return NewRelationalSource(warehouse.NewClient(db, "lrs", logger), cfg.CutoffCondition, func() error {
		database.Close(db)
		return nil
	}), nil
}
