package lrs

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"

	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// bigQueryCutoff BigQuery 事件表的通用增量条件
const bigQueryCutoff = " and event_time > CAST(@data_last_updated as DATETIME) "

// jobRunner 提交查询作业并读取全部结果
type jobRunner interface {
	Run(ctx context.Context, query string, params []bigquery.QueryParameter, location string) (*warehouse.Table, int64, error)
	Close() error
}

// BigQuerySource 按扫描字节计费的访问事件源
type BigQuerySource struct {
	runner   jobRunner
	location string
	logger   *zap.Logger
}

// NewBigQuerySource location 必须与查询所引用数据集所在区域一致
func NewBigQuerySource(runner jobRunner, location string, logger *zap.Logger) *BigQuerySource {
	return &BigQuerySource{runner: runner, location: location, logger: logger}
}

func (s *BigQuerySource) Kind() string { return KindBigQuery }

func (s *BigQuerySource) CutoffCondition() string { return bigQueryCutoff }

func (s *BigQuerySource) Query(ctx context.Context, query string, p Params) (*warehouse.Table, QueryCost, error) {
	table, billed, err := s.runner.Run(ctx, query, queryParameters(p), s.location)
	if err != nil {
		return nil, QueryCost{}, fmt.Errorf("BigQuery 查询失败: %w", err)
	}
	s.logger.Debug("BigQuery 作业完成",
		zap.Int("rows", table.Len()),
		zap.Int64("bytes_billed", billed),
	)
	return table, QueryCost{BytesBilled: billed}, nil
}

func (s *BigQuerySource) Close() error { return s.runner.Close() }

// queryParameters 课程 ID 以 STRING 数组传入，与事件表中的字符串 ID 比较
func queryParameters(p Params) []bigquery.QueryParameter {
	params := []bigquery.QueryParameter{
		{Name: "course_ids", Value: idStrings(p.CourseIDs)},
		{Name: "course_ids_short", Value: idStrings(p.CourseIDsShort)},
		{Name: "canvas_data_id_increment", Value: p.CanvasDataIDIncrement},
	}
	if p.DataLastUpdated != nil {
		params = append(params, bigquery.QueryParameter{Name: "data_last_updated", Value: p.DataLastUpdated.UTC()})
	}
	return params
}

func idStrings(ids []int64) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = strconv.FormatInt(id, 10)
	}
	return out
}

// ── BigQuery 客户端实现 ──

type bqJobRunner struct {
	client *bigquery.Client
}

func (r *bqJobRunner) Run(ctx context.Context, query string, params []bigquery.QueryParameter, location string) (*warehouse.Table, int64, error) {
	q := r.client.Query(query)
	q.Parameters = params
	q.Location = location

	job, err := q.Run(ctx)
	if err != nil {
		return nil, 0, err
	}
	status, err := job.Wait(ctx)
	if err != nil {
		return nil, 0, err
	}
	if err := status.Err(); err != nil {
		return nil, 0, err
	}

	var billed int64
	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			billed = qs.TotalBytesBilled
		}
	}

	it, err := job.Read(ctx)
	if err != nil {
		return nil, 0, err
	}

	var rows [][]bigquery.Value
	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, 0, err
		}
		rows = append(rows, values)
	}
	return tableFromValues(it.Schema, rows), billed, nil
}

func (r *bqJobRunner) Close() error { return r.client.Close() }

// tableFromValues 按 schema 顺序组装结果表
func tableFromValues(schema bigquery.Schema, rows [][]bigquery.Value) *warehouse.Table {
	columns := make([]string, len(schema))
	for i, f := range schema {
		columns[i] = f.Name
	}
	table := warehouse.NewTable(columns)
	for _, values := range rows {
		row := make(warehouse.Row, len(columns))
		for i, col := range columns {
			if i < len(values) {
				row[col] = convertValue(values[i])
			}
		}
		table.Rows = append(table.Rows, row)
	}
	return table
}

// convertValue DATETIME 无时区，按 UTC 解释
func convertValue(v bigquery.Value) interface{} {
	switch t := v.(type) {
	case civil.DateTime:
		return t.In(time.UTC)
	case civil.Date:
		return t.In(time.UTC)
	case *big.Rat:
		if t == nil {
			return nil
		}
		f, _ := t.Float64()
		return f
	}
	return v
}
