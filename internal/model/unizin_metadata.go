package model

// UnizinMetadata 仓库元信息键值，对应 unizin_metadata
type UnizinMetadata struct {
	Pkey   string `gorm:"primaryKey;type:varchar(64);column:pkey" json:"pkey"`
	Pvalue string `gorm:"type:varchar(255);column:pvalue"         json:"pvalue"`
}

// TableName 指定表名
func (UnizinMetadata) TableName() string { return "unizin_metadata" }
