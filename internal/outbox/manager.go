package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ecolink-dev/ecolink/internal/model"
	"github.com/ecolink-dev/ecolink/pkg/logger"
)

const defaultCollection = "actions"

// DropHook 在某项因逻辑错误被移入死信时回调（接 Sentry 等上报）
type DropHook func(item *model.OutboxItem, err error)

// Manager 外发队列管理器：入队落盘，drain 按序重放到上传方与文档库
type Manager struct {
	store      Store
	uploader   Uploader
	docs       DocumentStore
	conn       Connectivity
	collection string
	onDrop     DropHook

	// draining 互斥标志：并发 Drain 直接空转返回 0
	draining atomic.Bool
}

// Option Manager 可选配置
type Option func(*Manager)

// WithCollection 指定远端文档集合名
func WithCollection(name string) Option {
	return func(m *Manager) { m.collection = name }
}

// WithDropHook 注册死信回调
func WithDropHook(h DropHook) Option {
	return func(m *Manager) { m.onDrop = h }
}

func NewManager(store Store, uploader Uploader, docs DocumentStore, conn Connectivity, opts ...Option) *Manager {
	m := &Manager{
		store:      store,
		uploader:   uploader,
		docs:       docs,
		conn:       conn,
		collection: defaultCollection,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue 截断到前 4 个附件后整条落盘，立即返回生成的 id，不等网络。
// meta 原样透传；meta["createdAt"]（毫秒）缺省时取当前时间。
func (m *Manager) Enqueue(ctx context.Context, meta map[string]any, files []File) (string, error) {
	if len(files) > MaxAttachments {
		files = files[:MaxAttachments]
	}
	if meta == nil {
		meta = map[string]any{}
	}
	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return "", fmt.Errorf("encode meta: %w", err)
	}

	id := uuid.New().String()
	item := &model.OutboxItem{
		ID:        id,
		Meta:      metaJSON,
		CreatedAt: createdAtMillis(meta),
		Status:    model.OutboxStatusPending,
	}
	for i, f := range files {
		name := f.Name
		if name == "" {
			name = fmt.Sprintf("photo_%d", time.Now().UnixMilli())
		}
		mime := f.MimeType
		if mime == "" {
			mime = "application/octet-stream"
		}
		item.Files = append(item.Files, model.OutboxFile{
			ID:       uuid.New().String(),
			ItemID:   id,
			Position: i,
			Name:     name,
			MimeType: mime,
			Data:     f.Data,
		})
	}

	if err := m.store.Put(ctx, item); err != nil {
		return "", err
	}
	return id, nil
}

// Drain 重放全部待处理项，返回本轮成功提交并删除的条数。
// 无网络或已有 drain 在跑时直接返回 0。瞬时失败中止本轮，
// 逻辑失败移死信后继续，存储失败向上抛。
func (m *Manager) Drain(ctx context.Context) (int, error) {
	if !m.draining.CompareAndSwap(false, true) {
		return 0, nil
	}
	defer m.draining.Store(false)

	if !m.conn.Online(ctx) {
		return 0, nil
	}

	items, err := m.store.ScanOrdered(ctx)
	if err != nil {
		return 0, err
	}

	committed := 0
	for _, it := range items {
		if err := m.store.MarkUploading(ctx, it.ID); err != nil {
			return committed, err
		}

		if err := m.deliverItem(ctx, it); err != nil {
			if Classify(err) == FailureRetry || !m.conn.Online(ctx) {
				// 保住 FIFO：放回 pending，等下一次触发从头重试
				if markErr := m.store.MarkPending(ctx, it.ID); markErr != nil {
					return committed, markErr
				}
				logger.Warn("outbox drain paused on transient failure",
					zap.String("item", it.ID), zap.Error(err))
				break
			}
			if dropErr := m.discard(ctx, it, err); dropErr != nil {
				return committed, dropErr
			}
			continue
		}

		if err := m.store.Delete(ctx, it.ID); err != nil {
			return committed, err
		}
		committed++
	}
	return committed, nil
}

// Deliver 在线直投：上传附件并写远端文档，不经本地队列。
func (m *Manager) Deliver(ctx context.Context, meta map[string]any, files []File) (string, error) {
	if len(files) > MaxAttachments {
		return "", ErrTooManyFiles
	}
	var media []Media
	if len(files) > 0 {
		var err error
		media, err = m.uploader.Upload(ctx, files)
		if err != nil {
			return "", err
		}
	}
	return m.docs.Create(ctx, m.collection, m.buildDocument(metaCopy(meta), media))
}

// Pending 当前队列长度
func (m *Manager) Pending(ctx context.Context) (int64, error) {
	return m.store.Count(ctx)
}

func (m *Manager) deliverItem(ctx context.Context, it *model.OutboxItem) error {
	var meta map[string]any
	if err := json.Unmarshal(it.Meta, &meta); err != nil {
		// 本地记录损坏，重试无意义
		return fmt.Errorf("decode meta: %w", err)
	}

	var media []Media
	if len(it.Files) > 0 {
		files := make([]File, len(it.Files))
		for i, f := range it.Files {
			files[i] = File{Name: f.Name, MimeType: f.MimeType, Data: f.Data}
		}
		var err error
		media, err = m.uploader.Upload(ctx, files)
		if err != nil {
			return err
		}
	}

	_, err := m.docs.Create(ctx, m.collection, m.buildDocument(meta, media))
	return err
}

// buildDocument 组装远端文档：meta 透传 + 上传结果 + 审核标记与清零计数
func (m *Manager) buildDocument(doc map[string]any, media []Media) map[string]any {
	if doc == nil {
		doc = map[string]any{}
	}
	if media == nil {
		media = []Media{}
	}
	doc["media"] = media
	doc["validated"] = false
	doc["comments_count"] = 0
	return doc
}

func (m *Manager) discard(ctx context.Context, it *model.OutboxItem, cause error) error {
	if err := m.store.MoveToFailed(ctx, it.ID, cause.Error()); err != nil {
		return err
	}
	logger.Error("outbox item discarded after logical failure",
		zap.String("item", it.ID), zap.Error(cause))
	if m.onDrop != nil {
		m.onDrop(it, cause)
	}
	return nil
}

func metaCopy(meta map[string]any) map[string]any {
	out := make(map[string]any, len(meta)+3)
	for k, v := range meta {
		out[k] = v
	}
	return out
}

// createdAtMillis 取 meta["createdAt"]（毫秒），缺省当前时间
func createdAtMillis(meta map[string]any) int64 {
	switch v := meta["createdAt"].(type) {
	case int64:
		if v > 0 {
			return v
		}
	case int:
		if v > 0 {
			return int64(v)
		}
	case float64:
		if v > 0 {
			return int64(v)
		}
	}
	return time.Now().UnixMilli()
}
