package model

import "time"

// AuditEntry 管理操作审计（setRole / updateUser 等）
type AuditEntry struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Type      string `gorm:"type:varchar(32);index;not null"`
	TargetUID string `gorm:"type:varchar(36);index;not null"`
	AdminUID  string `gorm:"type:varchar(36);not null"`
	NewRole   string `gorm:"type:varchar(16)"`
	Detail    string `gorm:"type:text"`
	CreatedAt time.Time
}

func (AuditEntry) TableName() string { return "audit_entries" }
