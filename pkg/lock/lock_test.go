package lock

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	apperrors "github.com/zqian/my-learning-analytics/pkg/errors"
)

func setupLockDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	return db
}

func TestTableLocker_SecondAcquireFails(t *testing.T) {
	db := setupLockDB(t)
	locker, err := NewTableLocker(db, time.Hour, zap.NewNop())
	require.NoError(t, err)
	ctx := context.Background()

	release, err := locker.Acquire(ctx)
	require.NoError(t, err)

	_, err = locker.Acquire(ctx)
	assert.ErrorIs(t, err, apperrors.ErrRunLocked)

	release()

	release, err = locker.Acquire(ctx)
	require.NoError(t, err, "释放后应可再次获取")
	release()
}

func TestTableLocker_StaleLockExpires(t *testing.T) {
	db := setupLockDB(t)
	locker, err := NewTableLocker(db, time.Hour, zap.NewNop())
	require.NoError(t, err)

	// 模拟崩溃进程遗留的锁
	require.NoError(t, db.Create(&RunLockRecord{
		ID:       RunLockName,
		LockedAt: time.Now().UTC().Add(-2 * time.Hour),
		LockedBy: "crashed-host",
	}).Error)

	release, err := locker.Acquire(context.Background())
	require.NoError(t, err)
	release()
}

func TestNoopLocker(t *testing.T) {
	locker := NewNoopLocker()
	for i := 0; i < 2; i++ {
		release, err := locker.Acquire(context.Background())
		require.NoError(t, err)
		release()
	}
}
