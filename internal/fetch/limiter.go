package fetch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/openlawwa/lexcrawler/internal/telemetry"
)

// hostLimiter enforces the minimum inter-request delay per remote host.
// This is an external-courtesy constraint on the shared public sources, not
// a performance knob.
type hostLimiter struct {
	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	perHost  rate.Limit
}

func newHostLimiter(delay time.Duration) *hostLimiter {
	limit := rate.Inf
	if delay > 0 {
		limit = rate.Every(delay)
	}
	return &hostLimiter{
		limiters: make(map[string]*rate.Limiter),
		perHost:  limit,
	}
}

// Wait blocks until the host's next request slot, respecting ctx.
func (l *hostLimiter) Wait(ctx context.Context, rawURL string) error {
	host := Host(rawURL)

	l.mu.Lock()
	limiter, ok := l.limiters[host]
	if !ok {
		limiter = rate.NewLimiter(l.perHost, 1)
		l.limiters[host] = limiter
	}
	l.mu.Unlock()

	start := time.Now()
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("politeness wait for %s: %w", host, err)
	}
	if waited := time.Since(start); waited > time.Millisecond {
		telemetry.ObserveRateLimitDelay(host, waited)
	}
	return nil
}
