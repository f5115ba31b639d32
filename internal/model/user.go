package model

import "time"

// 角色与账号状态
const (
	RoleCitizen      = "ciudadano"
	RoleOrganization = "organizacion"
	RoleAdmin        = "admin"

	AccountActive    = "activo"
	AccountSuspended = "suspendido"
)

// User 用户档案（角色镜像 + 管理面板字段）
type User struct {
	ID           string `gorm:"primaryKey;type:varchar(36)"`
	Email        string `gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string `gorm:"type:varchar(255);not null"`
	Name         string `gorm:"type:varchar(255)"`
	City         string `gorm:"type:varchar(127)"`
	Phone        string `gorm:"type:varchar(32)"`
	Role         string `gorm:"type:varchar(16);index;not null;default:ciudadano"`
	AccountState string `gorm:"type:varchar(16);not null;default:activo"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (User) TableName() string { return "users" }
