package model

// EnrollmentUser 课程选课用户，对应 user
// 每次运行全量替换，不保留历史
type EnrollmentUser struct {
	ID             int64    `gorm:"primaryKey;autoIncrement"             json:"id"`
	UserID         int64    `gorm:"column:user_id;not null;index"        json:"user_id"`
	Name           string   `gorm:"type:varchar(255)"                    json:"name"`
	SISID          string   `gorm:"column:sis_id;type:varchar(255)"      json:"sis_id"`
	SISName        string   `gorm:"column:sis_name;type:varchar(255);index" json:"sis_name"` // 登录名
	CourseID       int64    `gorm:"column:course_id;not null;index"      json:"course_id"`
	CurrentGrade   *float64 `gorm:"column:current_grade"                 json:"current_grade"`
	FinalGrade     *float64 `gorm:"column:final_grade"                   json:"final_grade"`
	EnrollmentType string   `gorm:"type:varchar(50)"                     json:"enrollment_type"` // StudentEnrollment | TaEnrollment | TeacherEnrollment
	RoleStatus     string   `gorm:"type:varchar(50)"                     json:"role_status"`
}

// TableName 指定表名
func (EnrollmentUser) TableName() string { return "user" }
