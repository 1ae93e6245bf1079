package router

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/api/handler"
	"github.com/zqian/my-learning-analytics/internal/api/middleware"
)

// Setup 初始化 schedule 模式下的状态服务路由
func Setup(h *handler.Handler, logger *zap.Logger) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))

	// ── 健康检查 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		runs := v1.Group("/runs")
		{
			runs.GET("", h.Run.List)
			runs.GET("/latest", h.Run.Latest)
			runs.GET("/export", h.Run.Export)
		}
	}

	return r
}
