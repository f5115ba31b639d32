package outbox

import "errors"

var (
	// ErrStorageUnavailable 本地持久存储无法打开
	ErrStorageUnavailable = errors.New("outbox storage unavailable")
	// ErrStorage 本地持久存储读写失败
	ErrStorage = errors.New("outbox storage failure")
	// ErrTransient 标记可重试的投递失败（网络/服务暂不可用）
	// 协作方用 %w 包装此错误即可让 drain 停止并保留队列
	ErrTransient = errors.New("transient delivery failure")
	// ErrTooManyFiles 超过单条附件上限
	ErrTooManyFiles = errors.New("too many attachments")
)
