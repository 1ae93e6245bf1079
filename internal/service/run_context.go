package service

import (
	"sort"
	"time"
)

// WarehouseCourse 数据仓库中的课程规范记录（校验阶段的快照）
type WarehouseCourse struct {
	ID         int64
	CanvasID   int64
	TermID     *int64
	Name       string
	StartAt    *time.Time // UTC
	ConcludeAt *time.Time // UTC
}

// RunContext 单次运行的上下文，由 CourseValidator 创建后只读地传递给各阶段
// 锁定的课程集合在校验通过后不再变化
type RunContext struct {
	runID     string
	startedAt time.Time
	courseIDs []int64
	courses   map[int64]WarehouseCourse
}

// NewRunContext 以校验通过的课程快照创建运行上下文
func NewRunContext(runID string, startedAt time.Time, courses []WarehouseCourse) *RunContext {
	rc := &RunContext{
		runID:     runID,
		startedAt: startedAt.UTC(),
		courseIDs: make([]int64, 0, len(courses)),
		courses:   make(map[int64]WarehouseCourse, len(courses)),
	}
	for _, c := range courses {
		if _, dup := rc.courses[c.ID]; dup {
			continue
		}
		rc.courses[c.ID] = c
		rc.courseIDs = append(rc.courseIDs, c.ID)
	}
	sort.Slice(rc.courseIDs, func(i, j int) bool { return rc.courseIDs[i] < rc.courseIDs[j] })
	return rc
}

// RunID 运行 ID
func (rc *RunContext) RunID() string { return rc.runID }

// StartedAt 运行开始时间（UTC），水位推进使用该时间
func (rc *RunContext) StartedAt() time.Time { return rc.startedAt }

// CourseIDs 锁定课程 ID 的副本
func (rc *RunContext) CourseIDs() []int64 {
	return append([]int64(nil), rc.courseIDs...)
}

// Course 查找课程快照
func (rc *RunContext) Course(id int64) (WarehouseCourse, bool) {
	c, ok := rc.courses[id]
	return c, ok
}

// Empty 锁定集合是否为空
func (rc *RunContext) Empty() bool { return len(rc.courseIDs) == 0 }
