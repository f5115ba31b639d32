package model

// FailedItem 逻辑错误被丢弃的外发项（死信，供人工检查/重新入队）
type FailedItem struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Meta      []byte `gorm:"type:blob;not null"`
	CreatedAt int64  `gorm:"index:idx_failed_created;not null"`
	// FailedAt 丢弃时刻（毫秒时间戳）
	FailedAt int64        `gorm:"not null"`
	Reason   string       `gorm:"type:text"`
	Files    []FailedFile `gorm:"foreignKey:ItemID;references:ID"`
}

func (FailedItem) TableName() string { return "failed_items" }

// FailedFile 死信项的附件副本
type FailedFile struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	ItemID   string `gorm:"type:varchar(36);index:idx_failed_file_item;not null"`
	Position int    `gorm:"not null"`
	Name     string `gorm:"type:varchar(255);not null"`
	MimeType string `gorm:"type:varchar(127);not null"`
	Data     []byte `gorm:"type:blob;not null"`
}

func (FailedFile) TableName() string { return "failed_files" }
