package model

import "time"

// AcademicTerm 学期表，对应 academic_terms
// 只追加：已存在的学期行不再被同步任务修改
type AcademicTerm struct {
	ID        int64      `gorm:"primaryKey;autoIncrement:false;column:id" json:"id"`
	CanvasID  int64      `gorm:"column:canvas_id;not null"                 json:"canvas_id"`
	Name      string     `gorm:"type:varchar(255);not null"                json:"name"`
	DateStart *time.Time `gorm:"column:date_start"                         json:"date_start"`
	DateEnd   *time.Time `gorm:"column:date_end"                           json:"date_end"`
}

// TableName 指定表名
func (AcademicTerm) TableName() string { return "academic_terms" }
