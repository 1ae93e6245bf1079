package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/zqian/my-learning-analytics/config"
	"github.com/zqian/my-learning-analytics/internal/lrs"
	"github.com/zqian/my-learning-analytics/internal/repository"
	"github.com/zqian/my-learning-analytics/internal/service"
	"github.com/zqian/my-learning-analytics/internal/warehouse"
	"github.com/zqian/my-learning-analytics/pkg/database"
	"github.com/zqian/my-learning-analytics/pkg/lock"
	applogger "github.com/zqian/my-learning-analytics/pkg/logger"
	"github.com/zqian/my-learning-analytics/pkg/redis"
	"github.com/zqian/my-learning-analytics/pkg/secrets"
)

// app 进程级依赖，启动时构建一次
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	repo   *repository.Repository
	svc    *service.Service

	storeDB     *gorm.DB
	warehouseDB *gorm.DB
	source      lrs.Source
	rdb         *redis.Client
}

// storeOnly 为 true 时只连接运营库（history / courses 子命令）
func bootstrap(ctx context.Context, storeOnly bool) (*app, error) {
	// 1. 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	// 2. 初始化日志
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}

	// 3. 解析 Secrets Manager 中的密码
	if secrets.NeedsResolution(cfg) {
		resolver, err := secrets.NewResolver(ctx, logger)
		if err != nil {
			return nil, err
		}
		if err := resolver.ResolveConfig(ctx, cfg); err != nil {
			return nil, err
		}
	}

	// 4. 运营库
	a.storeDB, err = database.NewDB(&cfg.Store, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}
	a.repo = repository.NewRepository(a.storeDB)
	if storeOnly {
		a.svc = service.NewService(service.Deps{Config: cfg, Repo: a.repo, Logger: logger})
		return a, nil
	}

	// 5. 数据仓库
	a.warehouseDB, err = database.NewReadOnlyDB(&cfg.Warehouse.DatabaseConfig, cfg.Log.Level, logger)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("连接数据仓库失败: %w", err)
	}

	// 6. 访问事件源（资源视图关闭时不连接）
	if cfg.Sync.ResourceSyncEnabled() {
		a.source, err = lrs.NewSource(ctx, &cfg.LRS, cfg.Log.Level, logger)
		if err != nil {
			a.close()
			return nil, err
		}
	} else {
		logger.Info("show_resources_accessed 已禁用，跳过访问事件源")
	}

	// 7. 运行锁
	locker, err := a.newLocker()
	if err != nil {
		a.close()
		return nil, err
	}

	// 8. 依赖注入: Repository → Service
	a.svc = service.NewService(service.Deps{
		Config:    cfg,
		Repo:      a.repo,
		Warehouse: warehouse.NewClient(a.warehouseDB, "warehouse", logger),
		Source:    a.source,
		Locker:    locker,
		Logger:    logger,
		Clock:     time.Now,
	})
	return a, nil
}

func (a *app) newLocker() (lock.Locker, error) {
	switch a.cfg.Lock.Backend {
	case "redis":
		rdb, err := redis.NewClient(&a.cfg.Lock, a.logger)
		if err != nil {
			return nil, err
		}
		a.rdb = rdb
		return lock.NewRedisLocker(rdb, a.cfg.Lock.TTL, a.logger), nil
	case "table":
		return lock.NewTableLocker(a.storeDB, a.cfg.Lock.TTL, a.logger)
	default:
		return lock.NewNoopLocker(), nil
	}
}

func (a *app) close() {
	if a.source != nil {
		if err := a.source.Close(); err != nil {
			a.logger.Warn("关闭访问事件源失败", zap.Error(err))
		}
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	database.Close(a.warehouseDB)
	database.Close(a.storeDB)
	_ = a.logger.Sync()
}

// printSummary 运行摘要输出到标准输出，供 cron 邮件等外部收集
func printSummary(rep *service.RunReport) {
	if rep != nil {
		fmt.Fprint(os.Stdout, rep.Summary)
	}
}
