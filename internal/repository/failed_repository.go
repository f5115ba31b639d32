package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// FailedRepository 死信表：列出、重新入队、清除
type FailedRepository interface {
	List(ctx context.Context) ([]*model.FailedItem, error)
	// Requeue 把死信项放回外发队列原位（保留原 createdAt）
	Requeue(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

type failedRepository struct{ db *gorm.DB }

func NewFailedRepository(db *gorm.DB) FailedRepository { return &failedRepository{db: db} }

func (r *failedRepository) List(ctx context.Context) ([]*model.FailedItem, error) {
	var items []*model.FailedItem
	err := r.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("failed_at DESC").
		Find(&items).Error
	return items, err
}

func (r *failedRepository) Requeue(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var failed model.FailedItem
		if err := tx.Preload("Files").Where("id = ?", id).First(&failed).Error; err != nil {
			return err
		}
		item := &model.OutboxItem{
			ID:        failed.ID,
			Meta:      failed.Meta,
			CreatedAt: failed.CreatedAt,
			Status:    model.OutboxStatusPending,
		}
		for _, f := range failed.Files {
			item.Files = append(item.Files, model.OutboxFile{
				ID:       f.ID,
				ItemID:   failed.ID,
				Position: f.Position,
				Name:     f.Name,
				MimeType: f.MimeType,
				Data:     f.Data,
			})
		}
		if err := tx.Create(item).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.FailedFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.FailedItem{}).Error
	})
}

func (r *failedRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&model.FailedFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.FailedItem{}).Error
	})
}
