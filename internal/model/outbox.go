package model

// 外发项状态
const (
	OutboxStatusPending   = "pending"
	OutboxStatusUploading = "uploading"
)

// OutboxItem 离线缓冲的一条提交（含附件，崩溃/重启后仍在）
type OutboxItem struct {
	ID string `gorm:"primaryKey;type:varchar(36)"`
	// Meta 调用方提供的作者/内容字段，JSON 原样透传
	Meta []byte `gorm:"type:blob;not null"`
	// CreatedAt 毫秒时间戳，drain 的排序键
	CreatedAt int64        `gorm:"index:idx_outbox_created;not null"`
	Status    string       `gorm:"type:varchar(16);index;not null;default:pending"`
	Files     []OutboxFile `gorm:"foreignKey:ItemID;references:ID"`
}

func (OutboxItem) TableName() string { return "outbox_items" }

// OutboxFile 入队时捕获的原始附件字节
type OutboxFile struct {
	ID       string `gorm:"primaryKey;type:varchar(36)"`
	ItemID   string `gorm:"type:varchar(36);index:idx_outbox_file_item;not null"`
	Position int    `gorm:"not null"`
	Name     string `gorm:"type:varchar(255);not null"`
	MimeType string `gorm:"type:varchar(127);not null"`
	Data     []byte `gorm:"type:blob;not null"`
}

func (OutboxFile) TableName() string { return "outbox_files" }
