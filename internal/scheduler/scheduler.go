package scheduler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Job 一次调度触发的任务
type Job func(ctx context.Context) error

// Scheduler 按每天固定的 HH:MM 时刻触发任务
// 所有时刻共用一个 cron 条目，上一次任务未结束时本次触发被跳过
type Scheduler struct {
	schedule dailySchedule
	specs    []string
	loc      *time.Location
	job      Job
	logger   *zap.Logger
}

// dailySchedule 多个每日时刻合成的 cron.Schedule，Next 取最早的一个
type dailySchedule []cron.Schedule

func (d dailySchedule) Next(t time.Time) time.Time {
	var next time.Time
	for _, s := range d {
		if n := s.Next(t); next.IsZero() || n.Before(next) {
			next = n
		}
	}
	return next
}

// New 解析 run_at_times，timeZone 为空时使用 UTC
func New(runAtTimes []string, timeZone string, job Job, logger *zap.Logger) (*Scheduler, error) {
	if len(runAtTimes) == 0 {
		return nil, fmt.Errorf("sync.run_at_times 为空")
	}
	loc := time.UTC
	if timeZone != "" {
		l, err := time.LoadLocation(timeZone)
		if err != nil {
			return nil, fmt.Errorf("无效的时区 %q: %w", timeZone, err)
		}
		loc = l
	}

	s := &Scheduler{loc: loc, job: job, logger: logger}
	for _, at := range runAtTimes {
		spec, err := toCronSpec(at)
		if err != nil {
			return nil, err
		}
		sched, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("解析 cron 表达式 %q 失败: %w", spec, err)
		}
		s.specs = append(s.specs, spec)
		s.schedule = append(s.schedule, sched)
	}
	return s, nil
}

// toCronSpec "04:30" → "30 4 * * *"
func toCronSpec(at string) (string, error) {
	t, err := time.Parse("15:04", strings.TrimSpace(at))
	if err != nil {
		return "", fmt.Errorf("无效的运行时刻 %q（应为 HH:MM）: %w", at, err)
	}
	return fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()), nil
}

// NextRun 严格晚于 now 的下一个运行时刻（配置时区）
func (s *Scheduler) NextRun(now time.Time) time.Time {
	return s.schedule.Next(now.In(s.loc))
}

// Run 阻塞直到 ctx 取消；任务失败只记录日志，不影响后续调度
func (s *Scheduler) Run(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cl := cronLogger{l: s.logger.Sugar()}
	c := cron.New(
		cron.WithLocation(s.loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)
	c.Schedule(s.schedule, cron.FuncJob(func() {
		if err := s.job(ctx); err != nil {
			s.logger.Error("调度任务执行失败", zap.Error(err))
		}
		s.logger.Info("等待下一次运行", zap.Time("next_run", s.NextRun(time.Now())))
	}))

	c.Start()
	s.logger.Info("调度器已启动",
		zap.Strings("specs", s.specs),
		zap.String("time_zone", s.loc.String()),
		zap.Time("next_run", s.NextRun(time.Now())),
	)

	<-ctx.Done()
	// 等待正在执行的任务退出
	<-c.Stop().Done()
	s.logger.Info("调度器已停止")
	return ctx.Err()
}

// cronLogger 将 cron 内部日志接入 zap
type cronLogger struct {
	l *zap.SugaredLogger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.Debugw(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.Errorw(msg, append(keysAndValues, "error", err)...)
}
