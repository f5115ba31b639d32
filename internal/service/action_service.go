package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/internal/repository"
	"github.com/ecolink-dev/ecolink/pkg/logger"
)

// PublishResult 提交结果：在线直投返回文档 id，离线入队返回队列 id
type PublishResult struct {
	Queued     bool   `json:"queued"`
	DocumentID string `json:"document_id,omitempty"`
	QueueID    string `json:"queue_id,omitempty"`
}

// ActionService 行动发布与审核
type ActionService interface {
	// Publish 在线直投，离线（或直投遇瞬时失败）转入外发队列
	Publish(ctx context.Context, meta map[string]any, files []outbox.File) (*PublishResult, error)
	// Flush 触发一次 drain，返回本轮提交条数
	Flush(ctx context.Context) (int, error)
	PendingCount(ctx context.Context) (int64, error)
	// List 已发布行动（feed）
	List(ctx context.Context) ([]map[string]any, error)
	// Approve 组织/管理员审核通过
	Approve(ctx context.Context, id string) error
}

type actionService struct {
	manager    *outbox.Manager
	conn       outbox.Connectivity
	docs       repository.DocumentRepository
	collection string
}

func NewActionService(manager *outbox.Manager, conn outbox.Connectivity, docs repository.DocumentRepository, collection string) ActionService {
	return &actionService{manager: manager, conn: conn, docs: docs, collection: collection}
}

func (s *actionService) Publish(ctx context.Context, meta map[string]any, files []outbox.File) (*PublishResult, error) {
	if !s.conn.Online(ctx) {
		return s.enqueue(ctx, meta, files)
	}

	docID, err := s.manager.Deliver(ctx, meta, files)
	if err != nil {
		if outbox.Classify(err) == outbox.FailureRetry {
			logger.Warn("direct publish hit transient failure, queueing", zap.Error(err))
			return s.enqueue(ctx, meta, files)
		}
		return nil, err
	}
	return &PublishResult{DocumentID: docID}, nil
}

func (s *actionService) enqueue(ctx context.Context, meta map[string]any, files []outbox.File) (*PublishResult, error) {
	id, err := s.manager.Enqueue(ctx, meta, files)
	if err != nil {
		return nil, err
	}
	return &PublishResult{Queued: true, QueueID: id}, nil
}

func (s *actionService) Flush(ctx context.Context) (int, error) {
	return s.manager.Drain(ctx)
}

func (s *actionService) PendingCount(ctx context.Context) (int64, error) {
	return s.manager.Pending(ctx)
}

func (s *actionService) List(ctx context.Context) ([]map[string]any, error) {
	return s.docs.List(ctx, s.collection)
}

func (s *actionService) Approve(ctx context.Context, id string) error {
	return s.docs.Update(ctx, s.collection, id, map[string]any{"validated": true})
}
