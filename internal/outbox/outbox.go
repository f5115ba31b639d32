// Package outbox 实现离线提交的本地持久外发队列：
// 入队立即落盘返回，有网时按 createdAt 顺序逐条重放到远端。
package outbox

import (
	"context"

	"github.com/ecolink-dev/ecolink/internal/model"
)

// MaxAttachments 单条提交的附件上限
const MaxAttachments = 4

// File 入队时捕获的原始文件（名字 + MIME + 字节）
type File struct {
	Name     string
	MimeType string
	Data     []byte
}

// Media 上传成功后的描述符，与输入文件一一对应且顺序一致
type Media struct {
	URL        string `json:"url"`
	ProviderID string `json:"provider_id"`
	Width      int    `json:"width,omitempty"`
	Height     int    `json:"height,omitempty"`
	Bytes      int64  `json:"bytes,omitempty"`
	Format     string `json:"format,omitempty"`
}

// Store 持久层契约：按 id 存取、按 createdAt 升序扫描
type Store interface {
	// Open 幂等初始化（建表/建索引），并发调用只发生一次物理初始化
	Open(ctx context.Context) error
	// Put 按 id 插入或整条替换
	Put(ctx context.Context, item *model.OutboxItem) error
	// ScanOrdered 返回全部待处理项，createdAt 升序
	ScanOrdered(ctx context.Context) ([]*model.OutboxItem, error)
	// Delete 按 id 删除；删除不存在的 id 不报错
	Delete(ctx context.Context, id string) error
	// MarkUploading / MarkPending 状态迁移（崩溃恢复用）
	MarkUploading(ctx context.Context, id string) error
	MarkPending(ctx context.Context, id string) error
	// MoveToFailed 将整条项移入死信表
	MoveToFailed(ctx context.Context, id string, reason string) error
	// Count 当前待处理条数
	Count(ctx context.Context) (int64, error)
}

// Uploader 图片上传协作方；输出顺序必须与输入一致
type Uploader interface {
	Upload(ctx context.Context, files []File) ([]Media, error)
}

// DocumentStore 文档库协作方；Create 返回新文档 id
type DocumentStore interface {
	Create(ctx context.Context, collection string, doc map[string]any) (string, error)
}

// Connectivity 当前网络是否可达
type Connectivity interface {
	Online(ctx context.Context) bool
}
