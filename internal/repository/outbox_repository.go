package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/internal/outbox"
)

// OutboxRepository 外发队列持久层（SQLite/gorm 实现 outbox.Store）
type OutboxRepository struct {
	db *gorm.DB

	// 幂等初始化：并发 Open 只迁移一次
	once    sync.Once
	openErr error
}

var _ outbox.Store = (*OutboxRepository)(nil)

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Open 建表与索引；可重复、可并发调用
func (r *OutboxRepository) Open(ctx context.Context) error {
	r.once.Do(func() {
		if r.db == nil {
			r.openErr = fmt.Errorf("%w: nil db handle", outbox.ErrStorageUnavailable)
			return
		}
		err := r.db.WithContext(ctx).AutoMigrate(
			&model.OutboxItem{},
			&model.OutboxFile{},
			&model.FailedItem{},
			&model.FailedFile{},
		)
		if err != nil {
			r.openErr = fmt.Errorf("%w: %v", outbox.ErrStorageUnavailable, err)
		}
	})
	return r.openErr
}

// Put 按 id 插入或整条替换（项 + 附件在同一事务内）
func (r *OutboxRepository) Put(ctx context.Context, item *model.OutboxItem) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", item.ID).Delete(&model.OutboxFile{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", item.ID).Delete(&model.OutboxItem{}).Error; err != nil {
			return err
		}
		return tx.Create(item).Error
	})
	if err != nil {
		return fmt.Errorf("%w: put %s: %v", outbox.ErrStorage, item.ID, err)
	}
	return nil
}

// ScanOrdered 全量读取，createdAt 升序，附件按 position 排列
func (r *OutboxRepository) ScanOrdered(ctx context.Context) ([]*model.OutboxItem, error) {
	var items []*model.OutboxItem
	err := r.db.WithContext(ctx).
		Preload("Files", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("created_at ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("%w: scan: %v", outbox.ErrStorage, err)
	}
	return items, nil
}

// Delete 幂等删除（项 + 附件）
func (r *OutboxRepository) Delete(ctx context.Context, id string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("item_id = ?", id).Delete(&model.OutboxFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.OutboxItem{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: delete %s: %v", outbox.ErrStorage, id, err)
	}
	return nil
}

func (r *OutboxRepository) MarkUploading(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.OutboxStatusUploading)
}

func (r *OutboxRepository) MarkPending(ctx context.Context, id string) error {
	return r.setStatus(ctx, id, model.OutboxStatusPending)
}

func (r *OutboxRepository) setStatus(ctx context.Context, id, status string) error {
	err := r.db.WithContext(ctx).
		Model(&model.OutboxItem{}).
		Where("id = ?", id).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("%w: status %s: %v", outbox.ErrStorage, id, err)
	}
	return nil
}

// MoveToFailed 逻辑失败的项整条搬进死信表，保留附件字节供人工重投
func (r *OutboxRepository) MoveToFailed(ctx context.Context, id string, reason string) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.OutboxItem
		if err := tx.Preload("Files").Where("id = ?", id).First(&item).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return nil
			}
			return err
		}
		failed := &model.FailedItem{
			ID:        item.ID,
			Meta:      item.Meta,
			CreatedAt: item.CreatedAt,
			FailedAt:  time.Now().UnixMilli(),
			Reason:    reason,
		}
		for _, f := range item.Files {
			failed.Files = append(failed.Files, model.FailedFile{
				ID:       uuid.New().String(),
				ItemID:   item.ID,
				Position: f.Position,
				Name:     f.Name,
				MimeType: f.MimeType,
				Data:     f.Data,
			})
		}
		if err := tx.Create(failed).Error; err != nil {
			return err
		}
		if err := tx.Where("item_id = ?", id).Delete(&model.OutboxFile{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.OutboxItem{}).Error
	})
	if err != nil {
		return fmt.Errorf("%w: move to failed %s: %v", outbox.ErrStorage, id, err)
	}
	return nil
}

// Count 待处理条数
func (r *OutboxRepository) Count(ctx context.Context) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.OutboxItem{}).Count(&cnt).Error
	if err != nil {
		return 0, fmt.Errorf("%w: count: %v", outbox.ErrStorage, err)
	}
	return cnt, nil
}
