package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/ecolink-dev/ecolink/internal/outbox"
	"github.com/ecolink-dev/ecolink/pkg/logger"
)

// Drainer 可被周期触发的队列（*outbox.Manager 即满足）
type Drainer interface {
	Drain(ctx context.Context) (int, error)
	Pending(ctx context.Context) (int64, error)
}

// DrainWatcher 周期探测连通性，恢复在线或仍有积压时触发 drain
type DrainWatcher struct {
	drainer  Drainer
	conn     outbox.Connectivity
	interval time.Duration
}

func NewDrainWatcher(drainer Drainer, conn outbox.Connectivity, interval time.Duration) *DrainWatcher {
	if interval <= 0 {
		interval = 15 * time.Second
	}
	return &DrainWatcher{drainer: drainer, conn: conn, interval: interval}
}

// Start 启动后台轮询；返回停止函数
func (w *DrainWatcher) Start() func(context.Context) error {
	stop := make(chan struct{})
	go w.loop(stop)
	return func(ctx context.Context) error {
		close(stop)
		return nil
	}
}

func (w *DrainWatcher) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	wasOnline := false
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), w.interval)
			online := w.conn.Online(ctx)
			if online {
				pending, _ := w.drainer.Pending(ctx)
				if !wasOnline || pending > 0 {
					n, err := w.drainer.Drain(ctx)
					if err != nil {
						logger.Error("background drain failed", zap.Error(err))
					} else if n > 0 {
						logger.Info("background drain committed items", zap.Int("count", n))
					}
				}
			}
			wasOnline = online
			cancel()
		}
	}
}
