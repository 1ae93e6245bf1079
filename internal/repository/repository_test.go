package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
)

// ═══════════════════════════════════════════════════════════
// Test Setup
// ═══════════════════════════════════════════════════════════

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// 内存库每个连接独立，固定单连接
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.Course{},
		&model.AcademicTerm{},
		&model.EnrollmentUser{},
		&model.AssignmentGroup{},
		&model.WeightConsideration{},
		&model.Resource{},
		&model.ResourceAccess{},
		&model.SyncRunLog{},
	))
	return db
}

func ts(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

// ═══════════════════════════════════════════════════════════
// Course
// ═══════════════════════════════════════════════════════════

func TestCourse_ListSupportedIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]model.Course{{ID: 102, Name: "b"}, {ID: 101, Name: "a"}}).Error)

	ids, err := repo.Course.ListSupportedIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{101, 102}, ids)
}

func TestCourse_EarliestWatermark(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	d3, d5 := ts(3), ts(5)
	require.NoError(t, db.Create(&[]model.Course{
		{ID: 101, DataLastUpdated: &d5},
		{ID: 102, DataLastUpdated: &d3},
		{ID: 103},
	}).Error)

	got, err := repo.Course.EarliestWatermark(ctx, []int64{101, 102})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Equal(d3), "期望最早水位 %v，实际 %v", d3, got)

	got, err = repo.Course.EarliestWatermark(ctx, []int64{101, 103})
	require.NoError(t, err)
	assert.Nil(t, got, "存在从未同步的课程时应全量拉取")

	got, err = repo.Course.EarliestWatermark(ctx, nil)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestCourse_UpdateFieldsOnlyWritesSelectedColumns(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	start := ts(8)
	require.NoError(t, db.Create(&model.Course{ID: 101, Name: "old"}).Error)

	course := &model.Course{ID: 101, Name: "new", DateStart: &start, CanvasID: 999}
	require.NoError(t, repo.Course.UpdateFields(ctx, course, []string{"name", "date_start"}))

	var stored model.Course
	require.NoError(t, db.First(&stored, 101).Error)
	assert.Equal(t, "new", stored.Name)
	require.NotNil(t, stored.DateStart)
	assert.True(t, stored.DateStart.Equal(start))
	assert.Equal(t, int64(0), stored.CanvasID, "未选择的列不应被写入")
}

func TestCourse_UpdateWatermark(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]model.Course{{ID: 101}, {ID: 102}, {ID: 103}}).Error)

	n, err := repo.Course.UpdateWatermark(ctx, []int64{101, 102}, ts(9))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	var untouched model.Course
	require.NoError(t, db.First(&untouched, 103).Error)
	assert.Nil(t, untouched.DataLastUpdated)
}

// ═══════════════════════════════════════════════════════════
// Term / User
// ═══════════════════════════════════════════════════════════

func TestTerm_BatchCreateAndListIDs(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Term.BatchCreate(ctx, []model.AcademicTerm{
		{ID: 54, CanvasID: 4, Name: "Fall 2023"},
		{ID: 55, CanvasID: 5, Name: "Winter 2024"},
	}))
	require.NoError(t, repo.Term.BatchCreate(ctx, nil))

	ids, err := repo.Term.ListIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []int64{54, 55}, ids)
}

func TestUser_LookupIDsBySISName(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]model.EnrollmentUser{
		{UserID: 7, SISName: "abc", CourseID: 101},
		{UserID: 7, SISName: "abc", CourseID: 102},
		{UserID: 8, SISName: "def", CourseID: 101},
	}).Error)

	got, err := repo.User.LookupIDsBySISName(ctx, []string{"abc", "zzz"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"abc": 7}, got)
}

// ═══════════════════════════════════════════════════════════
// Table
// ═══════════════════════════════════════════════════════════

func TestTable_ReplaceIsIdempotent(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	rows := []map[string]interface{}{
		{"id": int64(1), "course_id": int64(101), "name": "Quizzes", "weight": 0.4},
		{"id": int64(2), "course_id": int64(101), "name": "Exams", "weight": 0.6},
	}

	deleted, inserted, err := repo.Table.Replace(ctx, "assignment_groups", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(0), deleted)
	assert.Equal(t, int64(2), inserted)

	deleted, inserted, err = repo.Table.Replace(ctx, "assignment_groups", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)
	assert.Equal(t, int64(2), inserted)

	var count int64
	require.NoError(t, db.Model(&model.AssignmentGroup{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "重复运行后行数不变")

	// 调用方的行不应被写入回填的键
	assert.Len(t, rows[0], 4)
	assert.NotContains(t, rows[0], "@id")
}

func TestTable_BulkAppendLeavesRowsUntouched(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	rows := []map[string]interface{}{
		{"resource_id": "f1", "user_id": int64(7), "course_id": int64(101), "access_time": ts(2)},
	}
	snapshot := map[string]interface{}{}
	for k, v := range rows[0] {
		snapshot[k] = v
	}

	n, err := repo.Table.BulkAppend(ctx, "resource_access", rows)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, snapshot, rows[0])

	_, err = repo.Table.DeleteAll(ctx, "resource_access", "")
	require.NoError(t, err)
	n, err = repo.Table.BulkAppend(ctx, "resource_access", rows)
	require.NoError(t, err, "同一批行可以再次写入")
	assert.Equal(t, int64(1), n)
}

func TestTable_ReplaceRollsBackOnInsertFailure(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&model.AssignmentGroup{ID: 1, CourseID: 101, Name: "kept"}).Error)

	_, _, err := repo.Table.Replace(ctx, "assignment_groups", []map[string]interface{}{
		{"id": int64(2), "no_such_column": "x"},
	})
	require.Error(t, err)

	var count int64
	require.NoError(t, db.Model(&model.AssignmentGroup{}).Count(&count).Error)
	assert.Equal(t, int64(1), count, "写入失败时删除应一并回滚")
}

func TestTable_DeleteAllWithWhereAndQuotedTableName(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	_, err := repo.Table.BulkAppend(ctx, "resource_access", []map[string]interface{}{
		{"resource_id": "f1", "user_id": int64(7), "course_id": int64(101), "access_time": ts(2)},
		{"resource_id": "f1", "user_id": int64(7), "course_id": int64(101), "access_time": ts(6)},
	})
	require.NoError(t, err)

	n, err := repo.Table.DeleteAll(ctx, "resource_access", "WHERE access_time > ?", ts(4))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// user 是保留字，表名需正确引用
	_, err = repo.Table.DeleteAll(ctx, "user", "")
	assert.NoError(t, err)
}

// ═══════════════════════════════════════════════════════════
// Resource
// ═══════════════════════════════════════════════════════════

func TestResource_UpsertKeepsSingleRowWithLatestName(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Resource.Upsert(ctx, []model.Resource{{ResourceID: "f1", ResourceType: "file", Name: "v1"}}))
	require.NoError(t, repo.Resource.Upsert(ctx, []model.Resource{{ResourceID: "f1", ResourceType: "file", Name: "v2"}}))

	var resources []model.Resource
	require.NoError(t, db.Find(&resources).Error)
	require.Len(t, resources, 1)
	assert.Equal(t, "v2", resources[0].Name)
}

func TestResource_UpdateNameAndDelete(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Resource.Upsert(ctx, []model.Resource{
		{ResourceID: "f1", Name: "a"},
		{ResourceID: "f2", Name: "b"},
	}))

	n, err := repo.Resource.UpdateName(ctx, "f1", "syllabus.pdf")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Resource.Delete(ctx, "f2")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = repo.Resource.Delete(ctx, "missing")
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

// ═══════════════════════════════════════════════════════════
// SyncRun
// ═══════════════════════════════════════════════════════════

func TestSyncRun_LatestAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := repository.NewRepository(db)
	ctx := context.Background()

	for i, status := range []string{model.RunStatusSuccess, model.RunStatusTainted, model.RunStatusInvalid} {
		require.NoError(t, repo.SyncRun.Create(ctx, &model.SyncRunLog{
			RunID:     uuid.New().String(),
			Status:    status,
			StartedAt: ts(i + 1),
			EndedAt:   ts(i + 1).Add(time.Minute),
			Summary:   "Start cron",
		}))
	}

	latest, err := repo.SyncRun.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.RunStatusInvalid, latest.Status)

	runs, err := repo.SyncRun.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, model.RunStatusTainted, runs[1].Status)
}

func TestSyncRun_LatestEmpty(t *testing.T) {
	repo := repository.NewRepository(setupTestDB(t))
	_, err := repo.SyncRun.Latest(context.Background())
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
