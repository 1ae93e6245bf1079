package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run a single sync and print the run summary",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := bootstrap(ctx, false)
	if err != nil {
		return err
	}
	defer a.close()

	rep, err := a.svc.Sync.Run(ctx)
	printSummary(rep)
	if err != nil {
		a.logger.Error("同步运行失败", zap.Error(err))
		return err
	}
	if rep.Tainted {
		a.logger.Warn("同步完成，但资源访问数据未完整更新", zap.String("run_id", rep.RunID))
	}
	return nil
}
