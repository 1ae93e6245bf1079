package model

import "time"

// AssignmentGroup 作业分组，对应 assignment_groups
type AssignmentGroup struct {
	ID          int64    `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	CourseID    int64    `gorm:"column:course_id;not null;index"           json:"course_id"`
	Weight      *float64 `gorm:"column:weight"                             json:"weight"`
	Name        string   `gorm:"type:varchar(255)"                         json:"name"`
	GroupPoints *float64 `gorm:"column:group_points"                       json:"group_points"`
}

// TableName 指定表名
func (AssignmentGroup) TableName() string { return "assignment_groups" }

// Assignment 作业，对应 assignment
type Assignment struct {
	ID                int64      `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	Name              string     `gorm:"type:varchar(255)"                         json:"name"`
	DueDate           *time.Time `gorm:"column:due_date"                           json:"due_date"`
	LocalDate         *time.Time `gorm:"column:local_date"                         json:"local_date"` // due_date 换算到 sync.time_zone
	CourseID          int64      `gorm:"column:course_id;not null;index"           json:"course_id"`
	PointsPossible    *float64   `gorm:"column:points_possible"                    json:"points_possible"`
	AssignmentGroupID *int64     `gorm:"column:assignment_group_id"                json:"assignment_group_id"`
}

// TableName 指定表名
func (Assignment) TableName() string { return "assignment" }

// WeightConsideration 课程是否按分组权重计分，对应 assignment_weight_consideration
// 每门课程一行
type WeightConsideration struct {
	CourseID       int64 `gorm:"primaryKey;autoIncrement:false;column:course_id" json:"course_id"`
	ConsiderWeight bool  `gorm:"column:consider_weight;not null"                 json:"consider_weight"`
}

// TableName 指定表名
func (WeightConsideration) TableName() string { return "assignment_weight_consideration" }
