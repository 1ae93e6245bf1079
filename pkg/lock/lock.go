package lock

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
	"github.com/zqian/my-learning-analytics/pkg/redis"
)

// RunLockName 同步任务使用的锁名
const RunLockName = "dashboard-sync"

// Locker 保证同一时刻只有一次同步运行
// 调度器本身无法保证单实例时，在 CourseIdValidator 之前获取
type Locker interface {
	// Acquire 非阻塞获取锁；已被占用时返回 ErrRunLocked
	Acquire(ctx context.Context) (release func(), err error)
}

// ── 空实现 ──

type noopLocker struct{}

// NewNoopLocker 调度器已保证单实例时使用
func NewNoopLocker() Locker { return noopLocker{} }

func (noopLocker) Acquire(context.Context) (func(), error) { return func() {}, nil }

// ── Redis 实现 ──

type redisLocker struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewRedisLocker 基于 Redis SET NX 的锁，ttl 兜底进程崩溃后的遗留锁
func NewRedisLocker(client *redis.Client, ttl time.Duration, logger *zap.Logger) Locker {
	return &redisLocker{client: client, ttl: ttl, logger: logger}
}

func (l *redisLocker) Acquire(ctx context.Context) (func(), error) {
	token := uuid.New().String()
	ok, err := l.client.TryLock(ctx, RunLockName, token, l.ttl)
	if err != nil {
		return nil, fmt.Errorf("获取 Redis 锁失败: %w", err)
	}
	if !ok {
		return nil, apperrors.ErrRunLocked
	}

	return func() {
		// 使用独立 context，运行 context 取消后仍需释放
		released, err := l.client.Unlock(context.Background(), RunLockName, token)
		if err != nil {
			l.logger.Error("释放 Redis 锁失败", zap.Error(err))
			return
		}
		if !released {
			l.logger.Warn("Redis 锁已过期，未执行释放", zap.Duration("ttl", l.ttl))
		}
	}, nil
}

// ── 数据表实现 ──

// RunLockRecord 表锁记录，主键冲突即表示已被占用
type RunLockRecord struct {
	ID       string    `gorm:"primaryKey;type:varchar(64);column:id"`
	LockedAt time.Time `gorm:"not null;column:locked_at"`
	LockedBy string    `gorm:"type:varchar(255);column:locked_by"`
}

// TableName 指定表名
func (RunLockRecord) TableName() string { return "sync_run_lock" }

type tableLocker struct {
	db     *gorm.DB
	ttl    time.Duration
	logger *zap.Logger
}

// NewTableLocker 基于运营库表的锁，适用于未部署 Redis 的环境
func NewTableLocker(db *gorm.DB, ttl time.Duration, logger *zap.Logger) (Locker, error) {
	// 提前建表，避免首次 Acquire 时出现 no such table
	if err := db.AutoMigrate(&RunLockRecord{}); err != nil {
		return nil, fmt.Errorf("创建锁表失败: %w", err)
	}
	return &tableLocker{db: db, ttl: ttl, logger: logger}, nil
}

func (l *tableLocker) Acquire(ctx context.Context) (func(), error) {
	hostname, _ := os.Hostname()
	if hostname == "" {
		hostname = "unknown"
	}

	// 清理超过 ttl 的遗留锁（进程崩溃恢复）
	if l.ttl > 0 {
		l.db.WithContext(ctx).
			Where("id = ? AND locked_at < ?", RunLockName, time.Now().UTC().Add(-l.ttl)).
			Delete(&RunLockRecord{})
	}

	row := RunLockRecord{ID: RunLockName, LockedAt: time.Now().UTC(), LockedBy: hostname}
	if err := l.db.WithContext(ctx).Create(&row).Error; err != nil {
		var holder RunLockRecord
		if l.db.WithContext(ctx).Where("id = ?", RunLockName).First(&holder).Error == nil {
			l.logger.Warn("同步锁已被占用",
				zap.String("locked_by", holder.LockedBy),
				zap.Time("locked_at", holder.LockedAt),
			)
			return nil, apperrors.ErrRunLocked
		}
		return nil, fmt.Errorf("获取表锁失败: %w", err)
	}

	return func() {
		if err := l.db.Where("id = ? AND locked_by = ?", RunLockName, hostname).
			Delete(&RunLockRecord{}).Error; err != nil {
			l.logger.Error("释放表锁失败", zap.Error(err))
		}
	}, nil
}
