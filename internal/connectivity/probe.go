package connectivity

import (
	"context"
	"net"
	"sync"
	"time"
)

// Prober TCP 拨测连通性，带短 TTL 缓存避免每次 drain 都拨号
type Prober struct {
	addr    string
	timeout time.Duration
	ttl     time.Duration

	mu     sync.Mutex
	last   bool
	lastAt time.Time
}

func NewProber(addr string) *Prober {
	return &Prober{
		addr:    addr,
		timeout: 3 * time.Second,
		ttl:     5 * time.Second,
	}
}

// Online 当前网络是否可达
func (p *Prober) Online(ctx context.Context) bool {
	p.mu.Lock()
	if time.Since(p.lastAt) < p.ttl {
		v := p.last
		p.mu.Unlock()
		return v
	}
	p.mu.Unlock()

	d := net.Dialer{Timeout: p.timeout}
	conn, err := d.DialContext(ctx, "tcp", p.addr)
	online := err == nil
	if conn != nil {
		_ = conn.Close()
	}

	p.mu.Lock()
	p.last = online
	p.lastAt = time.Now()
	p.mu.Unlock()
	return online
}
