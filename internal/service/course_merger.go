package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zqian/my-learning-analytics/internal/model"
	"github.com/zqian/my-learning-analytics/internal/repository"
)

// CourseMerger 课程字段合并接口
//
// 名称与学期始终以仓库为准；开始/结束日期采用软更新：
// 仅当运营库中为空时写入，已有值（上次运行或管理员手动设置）保持不变。
type CourseMerger interface {
	// Merge 修改 course 并返回被更新的字段名，不做持久化
	Merge(course *model.Course, wc WarehouseCourse) []string
	MergeAll(ctx context.Context, rc *RunContext) StageResult
}

type courseMerger struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseMerger 创建 CourseMerger 实例
func NewCourseMerger(repo *repository.Repository, logger *zap.Logger) CourseMerger {
	return &courseMerger{repo: repo, logger: logger}
}

// fieldColumns 字段名 → 列名
var fieldColumns = map[string]string{
	"name":       "name",
	"term":       "term_id",
	"date_start": "date_start",
	"date_end":   "date_end",
}

func (m *courseMerger) Merge(course *model.Course, wc WarehouseCourse) []string {
	var updated []string

	if course.Name != wc.Name {
		course.Name = wc.Name
		m.logger.Info("课程名称已更新", zap.Int64("course_id", course.ID))
		updated = append(updated, "name")
	}

	if wc.TermID != nil && (course.TermID == nil || *course.TermID != *wc.TermID) {
		termID := *wc.TermID
		course.TermID = &termID
		m.logger.Info("课程学期已更新", zap.Int64("course_id", course.ID), zap.Int64("term_id", termID))
		updated = append(updated, "term")
	}

	if m.softUpdate(course.ID, "date_start", &course.DateStart, wc.StartAt) {
		updated = append(updated, "date_start")
	}
	if m.softUpdate(course.ID, "date_end", &course.DateEnd, wc.ConcludeAt) {
		updated = append(updated, "date_end")
	}
	return updated
}

// softUpdate 当前值为空且仓库值非空时写入 UTC 时间
func (m *courseMerger) softUpdate(courseID int64, field string, current **time.Time, value *time.Time) bool {
	if *current != nil {
		m.logger.Info("已有值，跳过更新",
			zap.Int64("course_id", courseID),
			zap.String("field", field),
		)
		return false
	}
	if value == nil {
		return false
	}
	utc := value.UTC()
	*current = &utc
	m.logger.Info("字段已更新", zap.Int64("course_id", courseID), zap.String("field", field))
	return true
}

func (m *courseMerger) MergeAll(ctx context.Context, rc *RunContext) StageResult {
	ids := rc.CourseIDs()
	courses, err := m.repo.Course.ListByIDs(ctx, ids)
	if err != nil {
		return fatalResult(StageCourse, "", fmt.Errorf("读取课程失败: %w", err))
	}

	var out summary
	idStrs := make([]string, len(ids))
	for i, id := range ids {
		idStrs[i] = strconv.FormatInt(id, 10)
	}
	out.line("%d course(s): %s", len(courses), strings.Join(idStrs, ", "))

	var changed int64
	for i := range courses {
		course := &courses[i]
		wc, ok := rc.Course(course.ID)
		if !ok {
			continue
		}
		fields := m.Merge(course, wc)
		if len(fields) == 0 {
			continue
		}

		columns := make([]string, len(fields))
		for j, f := range fields {
			columns[j] = fieldColumns[f]
		}
		if err := m.repo.Course.UpdateFields(ctx, course, columns); err != nil {
			m.logger.Error("更新课程失败", zap.Int64("course_id", course.ID), zap.Error(err))
			return fatalResult(StageCourse, out.String(), fmt.Errorf("更新课程 %d 失败: %w", course.ID, err))
		}
		changed++
		out.line("Course %d: updated %s", course.ID, strings.Join(fields, ", "))
	}
	return succeeded(StageCourse, out.String(), changed)
}
