package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// AuditRepository 管理操作审计
type AuditRepository interface {
	Add(ctx context.Context, entryType, targetUID, adminUID, newRole, detail string) error
	List(ctx context.Context, limit int) ([]*model.AuditEntry, error)
}

type auditRepository struct{ db *gorm.DB }

func NewAuditRepository(db *gorm.DB) (AuditRepository, error) {
	if err := db.AutoMigrate(&model.AuditEntry{}); err != nil {
		return nil, err
	}
	return &auditRepository{db: db}, nil
}

func (r *auditRepository) Add(ctx context.Context, entryType, targetUID, adminUID, newRole, detail string) error {
	return r.db.WithContext(ctx).Create(&model.AuditEntry{
		ID:        uuid.New().String(),
		Type:      entryType,
		TargetUID: targetUID,
		AdminUID:  adminUID,
		NewRole:   newRole,
		Detail:    detail,
	}).Error
}

func (r *auditRepository) List(ctx context.Context, limit int) ([]*model.AuditEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	var entries []*model.AuditEntry
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&entries).Error
	return entries, err
}
