package boundary

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/cuemby/hostbroker/pkg/config"
	"github.com/cuemby/hostbroker/pkg/metrics"
)

// Limiter rate-limits boundary operations by operation name, one
// token-bucket per operation — grounded on cuemby/warren's
// pkg/ingress.Middleware.CheckRateLimit, which keys its limiter map by
// client IP; here the key is the operation name instead, since spec.md §5
// scopes rate limiting to "a boundary operation" rather than a caller.
type Limiter struct {
	cfg      config.RateLimitConfig
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewLimiter builds a Limiter from cfg. When cfg.Enabled is false, Allow
// always succeeds and no limiter state is created.
func NewLimiter(cfg config.RateLimitConfig) *Limiter {
	return &Limiter{cfg: cfg, limiters: make(map[string]*rate.Limiter)}
}

// Allow reports whether operation may proceed, consuming one token if so.
// A rejected call increments the rate-limited-requests counter; per
// spec.md §5 the rejection happens "before any state is mutated".
func (l *Limiter) Allow(operation string) bool {
	if l == nil || !l.cfg.Enabled {
		return true
	}

	l.mu.Lock()
	limiter, ok := l.limiters[operation]
	if !ok {
		limiter = rate.NewLimiter(rate.Limit(l.cfg.RequestsPerSecond), l.cfg.Burst)
		l.limiters[operation] = limiter
	}
	l.mu.Unlock()

	allowed := limiter.Allow()
	if !allowed {
		metrics.RateLimitedRequestsTotal.Inc()
	}
	return allowed
}
