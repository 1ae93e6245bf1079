package service

import (
	"github.com/zqian/my-learning-analytics/internal/warehouse"
)

// TableKind 全量替换类表的类型标签
type TableKind int

const (
	KindUser TableKind = iota + 1
	KindAssignmentGroup
	KindAssignment
	KindSubmission
	KindWeightConsideration
	KindUnizinMetadata
)

func (k TableKind) String() string {
	if d, ok := tableDescriptors[k]; ok {
		return d.Table
	}
	return "unknown"
}

// SyncScope 查询范围
type SyncScope int

const (
	ScopePerCourse SyncScope = iota // 每门课程执行一次查询
	ScopeBulk                       // 整表一次查询，与课程无关
)

// TableDescriptor 单张全量替换表的同步描述
type TableDescriptor struct {
	Kind  TableKind
	Table string
	Query string
	Scope SyncScope
	// Columns 写入的目标列；查询多出的列被丢弃
	Columns []string
	// DedupeKey 去重键，为空时按整行去重
	DedupeKey []string
	// Reshape 写入前调整结果形状，courseID 在 ScopeBulk 下为 0
	Reshape func(t *warehouse.Table, courseID int64) *warehouse.Table
}

// CourseTableKinds 课程相关表的同步顺序
var CourseTableKinds = []TableKind{
	KindUser,
	KindAssignmentGroup,
	KindAssignment,
	KindSubmission,
	KindWeightConsideration,
}

var tableDescriptors = map[TableKind]TableDescriptor{
	KindUser: {
		Kind:  KindUser,
		Table: "user",
		Query: warehouse.UserQuery,
		Scope: ScopePerCourse,
		Columns: []string{
			"user_id", "name", "sis_id", "sis_name", "course_id",
			"current_grade", "final_grade", "enrollment_type", "role_status",
		},
	},
	KindAssignmentGroup: {
		Kind:    KindAssignmentGroup,
		Table:   "assignment_groups",
		Query:   warehouse.AssignmentGroupQuery,
		Scope:   ScopePerCourse,
		Columns: []string{"id", "course_id", "weight", "name", "group_points"},
	},
	KindAssignment: {
		Kind:  KindAssignment,
		Table: "assignment",
		Query: warehouse.AssignmentQuery,
		Scope: ScopePerCourse,
		Columns: []string{
			"id", "name", "due_date", "local_date", "course_id",
			"points_possible", "assignment_group_id",
		},
	},
	KindSubmission: {
		Kind:  KindSubmission,
		Table: "submission",
		Query: warehouse.SubmissionQuery,
		Scope: ScopePerCourse,
		Columns: []string{
			"id", "assignment_id", "course_id", "user_id", "score", "avg_score",
			"submitted_at", "graded_date", "grade_posted_local_date",
		},
	},
	KindWeightConsideration: {
		Kind:      KindWeightConsideration,
		Table:     "assignment_weight_consideration",
		Query:     warehouse.WeightConsiderationQuery,
		Scope:     ScopePerCourse,
		Columns:   []string{"consider_weight", "course_id"},
		DedupeKey: []string{"course_id"},
		Reshape:   pairWithCourse,
	},
	KindUnizinMetadata: {
		Kind:    KindUnizinMetadata,
		Table:   "unizin_metadata",
		Query:   warehouse.UnizinMetadataQuery,
		Scope:   ScopeBulk,
		Columns: []string{"pkey", "pvalue"},
	},
}

// Descriptor 按类型取描述；未注册的类型返回 false
func Descriptor(kind TableKind) (TableDescriptor, bool) {
	d, ok := tableDescriptors[kind]
	return d, ok
}

// pairWithCourse 权重查询只返回一个布尔列，补上课程 ID
func pairWithCourse(t *warehouse.Table, courseID int64) *warehouse.Table {
	out := warehouse.NewTable([]string{"consider_weight", "course_id"})
	for _, r := range t.Rows {
		var flag interface{}
		if len(t.Columns) > 0 {
			flag = r[t.Columns[0]]
		}
		consider, _ := warehouse.ToBool(flag)
		out.Rows = append(out.Rows, warehouse.Row{
			"consider_weight": consider,
			"course_id":       courseID,
		})
	}
	return out
}
