package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/zqian/my-learning-analytics/internal/dto"
	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/service"
	"github.com/zqian/my-learning-analytics/pkg/response"
)

// RunHandler 同步运行记录 HTTP 处理器
type RunHandler struct {
	historySvc service.HistoryService
}

// NewRunHandler 创建 RunHandler
func NewRunHandler(historySvc service.HistoryService) *RunHandler {
	return &RunHandler{historySvc: historySvc}
}

// Latest 最近一次运行
// GET /api/v1/runs/latest
func (h *RunHandler) Latest(c *gin.Context) {
	run, err := h.historySvc.Latest(c.Request.Context())
	if err != nil {
		h.handleError(c, err)
		return
	}
	response.OK(c, toRunResponse(run, true))
}

// List 运行记录列表（不含摘要全文）
// GET /api/v1/runs?limit=20
func (h *RunHandler) List(c *gin.Context) {
	var req dto.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	runs, err := h.historySvc.List(c.Request.Context(), req.GetLimit())
	if err != nil {
		h.handleError(c, err)
		return
	}

	list := make([]dto.RunResponse, 0, len(runs))
	for i := range runs {
		list = append(list, toRunResponse(&runs[i], false))
	}
	response.OK(c, list)
}

// Export 导出运行记录
// GET /api/v1/runs/export?limit=100
func (h *RunHandler) Export(c *gin.Context) {
	var req dto.RunListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	buf, filename, err := h.historySvc.Export(c.Request.Context(), req.Limit)
	if err != nil {
		h.handleError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
}

func (h *RunHandler) handleError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrHistoryEmpty):
		response.NotFound(c, 20101, "暂无同步运行记录")
	default:
		response.InternalError(c)
	}
}

func toRunResponse(run *model.SyncRunLog, withSummary bool) dto.RunResponse {
	resp := dto.RunResponse{
		RunID:           run.RunID,
		Status:          run.Status,
		Tainted:         run.Tainted,
		StartedAt:       run.StartedAt.UTC().Format(time.RFC3339),
		EndedAt:         run.EndedAt.UTC().Format(time.RFC3339),
		DurationSeconds: run.EndedAt.Sub(run.StartedAt).Seconds(),
		CourseIDs:       []int64{},
		Stages:          []dto.StageResponse{},
	}
	// 历史记录中的 JSON 损坏时返回空列表
	if len(run.LockedCourseIDs) > 0 {
		_ = json.Unmarshal(run.LockedCourseIDs, &resp.CourseIDs)
	}
	if len(run.Stages) > 0 {
		_ = json.Unmarshal(run.Stages, &resp.Stages)
	}
	if withSummary {
		resp.Summary = run.Summary
	}
	return resp
}
