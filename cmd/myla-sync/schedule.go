package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/api/handler"
	"github.com/zqian/my-learning-analytics/internal/api/router"
	"github.com/zqian/my-learning-analytics/internal/scheduler"
)

var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "Stay resident, sync at sync.run_at_times and serve run status",
	RunE:  runSchedule,
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()
	logger := a.logger

	sched, err := scheduler.New(a.cfg.Sync.RunAtTimes, a.cfg.Sync.TimeZone, func(ctx context.Context) error {
		rep, err := a.svc.Sync.Run(ctx)
		printSummary(rep)
		return err
	}, logger)
	if err != nil {
		return err
	}

	// ── 状态服务 ──
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", a.cfg.Server.Port),
		Handler:      router.Setup(handler.NewHandler(a.svc), logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("状态服务已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("状态服务异常", zap.Error(err))
			stop()
		}
	}()

	err = sched.Run(ctx)
	logger.Info("收到关闭信号，开始优雅关闭...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("状态服务关闭异常", zap.Error(err))
	}

	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
