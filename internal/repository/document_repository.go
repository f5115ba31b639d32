package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// DocumentRepository 文档库（自托管模式下的 DocumentStore 实现）。
// 每条记录一个 collection 名 + JSON 数据，服务端赋创建/更新时间戳。
type DocumentRepository interface {
	Create(ctx context.Context, collection string, doc map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	// List 按创建时间倒序返回集合内全部文档
	List(ctx context.Context, collection string) ([]map[string]any, error)
	// Update 将 patch 合并进已有文档
	Update(ctx context.Context, collection, id string, patch map[string]any) error
}

type documentRepository struct{ db *gorm.DB }

func NewDocumentRepository(db *gorm.DB) (DocumentRepository, error) {
	if err := db.AutoMigrate(&model.Document{}); err != nil {
		return nil, err
	}
	return &documentRepository{db: db}, nil
}

func (r *documentRepository) Create(ctx context.Context, collection string, doc map[string]any) (string, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	now := time.Now()
	rec := &model.Document{
		ID:         uuid.New().String(),
		Collection: collection,
		Data:       data,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return "", err
	}
	return rec.ID, nil
}

func (r *documentRepository) Get(ctx context.Context, collection, id string) (map[string]any, error) {
	var rec model.Document
	err := r.db.WithContext(ctx).
		Where("collection = ? AND id = ?", collection, id).
		First(&rec).Error
	if err != nil {
		return nil, err
	}
	return decodeDocument(&rec)
}

func (r *documentRepository) List(ctx context.Context, collection string) ([]map[string]any, error) {
	var recs []model.Document
	err := r.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("created_at DESC").
		Find(&recs).Error
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(recs))
	for i := range recs {
		doc, err := decodeDocument(&recs[i])
		if err != nil {
			return nil, err
		}
		out = append(out, doc)
	}
	return out, nil
}

func (r *documentRepository) Update(ctx context.Context, collection, id string, patch map[string]any) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rec model.Document
		if err := tx.Where("collection = ? AND id = ?", collection, id).First(&rec).Error; err != nil {
			return err
		}
		var doc map[string]any
		if err := json.Unmarshal(rec.Data, &doc); err != nil {
			return err
		}
		for k, v := range patch {
			doc[k] = v
		}
		data, err := json.Marshal(doc)
		if err != nil {
			return err
		}
		return tx.Model(&rec).Updates(map[string]any{
			"data":       data,
			"updated_at": time.Now(),
		}).Error
	})
}

func decodeDocument(rec *model.Document) (map[string]any, error) {
	var doc map[string]any
	if err := json.Unmarshal(rec.Data, &doc); err != nil {
		return nil, err
	}
	doc["id"] = rec.ID
	doc["created_at"] = rec.CreatedAt
	doc["updated_at"] = rec.UpdatedAt
	return doc, nil
}
