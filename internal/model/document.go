package model

import "time"

// Document 文档库记录：collection + JSON 数据
type Document struct {
	ID         string `gorm:"primaryKey;type:varchar(36)"`
	Collection string `gorm:"type:varchar(64);index:idx_doc_collection;not null"`
	Data       []byte `gorm:"type:blob;not null"`
	// CreatedAt / UpdatedAt 服务端时间戳（等价 serverTimestamp）
	CreatedAt time.Time `gorm:"index:idx_doc_collection"`
	UpdatedAt time.Time
}

func (Document) TableName() string { return "documents" }
