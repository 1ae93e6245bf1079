package service

import (
	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
)

// StageStatus 阶段结果
type StageStatus string

const (
	StageSuccess StageStatus = "success"
	StageTainted StageStatus = "tainted" // 阶段失败但运行继续，水位不推进
	StageFatal   StageStatus = "fatal"   // 运行立即中止
	StageSkipped StageStatus = "skipped"
)

// 阶段名称
const (
	StageTerm           = "term"
	StageCourse         = "course"
	StageResourceAccess = "resource_access"
	StageCanvasResource = "canvas_resource"
	StageWatermark      = "watermark"
)

// StageResult 各阶段的显式结果，由编排器检查
type StageResult struct {
	Stage   string      `json:"stage"`
	Status  StageStatus `json:"status"`
	Rows    int64       `json:"rows"`
	Reason  string      `json:"reason,omitempty"`
	Summary string      `json:"-"`
	Err     error       `json:"-"`
}

func succeeded(stage, summary string, rows int64) StageResult {
	return StageResult{Stage: stage, Status: StageSuccess, Rows: rows, Summary: summary}
}

func skipped(stage, reason, summary string) StageResult {
	return StageResult{Stage: stage, Status: StageSkipped, Reason: reason, Summary: summary}
}

// fatalResult 全量替换类失败：中止运行
func fatalResult(stage, summary string, err error) StageResult {
	return StageResult{
		Stage:   stage,
		Status:  StageFatal,
		Reason:  err.Error(),
		Summary: summary,
		Err:     &apperrors.StageError{Stage: stage, Kind: apperrors.ErrSyncStage, Err: err},
	}
}

// taintedResult 资源同步类失败：记录后继续
func taintedResult(stage, summary string, err error) StageResult {
	return StageResult{
		Stage:   stage,
		Status:  StageTainted,
		Reason:  err.Error(),
		Summary: summary,
		Err:     &apperrors.StageError{Stage: stage, Kind: apperrors.ErrResourceSync, Err: err},
	}
}
