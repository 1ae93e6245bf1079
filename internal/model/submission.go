package model

import "time"

// Submission 学生提交，对应 submission
// 成绩未发布的提交 score 为空
type Submission struct {
	ID                   int64      `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	AssignmentID         int64      `gorm:"column:assignment_id;not null;index"       json:"assignment_id"`
	CourseID             int64      `gorm:"column:course_id;not null;index"           json:"course_id"`
	UserID               int64      `gorm:"column:user_id;not null"                   json:"user_id"`
	Score                *float64   `gorm:"column:score"                              json:"score"`
	AvgScore             *float64   `gorm:"column:avg_score"                          json:"avg_score"`
	SubmittedAt          *time.Time `gorm:"column:submitted_at"                       json:"submitted_at"`
	GradedDate           *time.Time `gorm:"column:graded_date"                        json:"graded_date"`
	GradePostedLocalDate *time.Time `gorm:"column:grade_posted_local_date"            json:"grade_posted_local_date"`
}

// TableName 指定表名
func (Submission) TableName() string { return "submission" }
