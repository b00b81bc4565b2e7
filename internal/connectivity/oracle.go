package connectivity

import (
	"context"
	"time"

	"github.com/rdelrosario/sari-pos/pkg/redis"
)

// Oracle reports the point-in-time online/offline state. It is consulted on
// demand; callers must not cache the answer across operations.
type Oracle interface {
	HasConnectivity(ctx context.Context) bool
}

// RedisProbe answers connectivity questions by pinging the shared Redis
// endpoint with a short deadline.
type RedisProbe struct {
	pinger  redis.Pinger
	timeout time.Duration
}

// NewRedisProbe builds an oracle backed by the given pinger.
func NewRedisProbe(pinger redis.Pinger, timeout time.Duration) *RedisProbe {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &RedisProbe{pinger: pinger, timeout: timeout}
}

func (p *RedisProbe) HasConnectivity(ctx context.Context) bool {
	if p == nil || p.pinger == nil {
		return false
	}
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return p.pinger.Ping(probeCtx) == nil
}

// Static is a fixed-answer oracle used by tests and single-box deployments.
type Static bool

func (s Static) HasConnectivity(context.Context) bool {
	return bool(s)
}
