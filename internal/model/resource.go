package model

import "time"

// Resource 资源目录，对应 resource
// resource_id 唯一，同步时按主键 upsert
type Resource struct {
	ResourceID   string `gorm:"primaryKey;type:varchar(255);column:resource_id" json:"resource_id"`
	ResourceType string `gorm:"type:varchar(255);column:resource_type"          json:"resource_type"`
	Name         string `gorm:"type:text;column:name"                           json:"name"`
}

// TableName 指定表名
func (Resource) TableName() string { return "resource" }

// ResourceAccess 资源访问事件，对应 resource_access
// 只追加；(resource_id, user_id, access_time) 在去重后唯一
type ResourceAccess struct {
	ID         int64     `gorm:"primaryKey;autoIncrement"                          json:"id"`
	ResourceID string    `gorm:"type:varchar(255);column:resource_id;not null;index" json:"resource_id"`
	UserID     int64     `gorm:"column:user_id;not null"                           json:"user_id"`
	CourseID   int64     `gorm:"column:course_id;index"                            json:"course_id"`
	AccessTime time.Time `gorm:"column:access_time;not null;index"                 json:"access_time"`
}

// TableName 指定表名
func (ResourceAccess) TableName() string { return "resource_access" }
