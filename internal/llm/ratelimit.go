package llm

import (
	"context"
	"sync"
	"time"

	llmclient "leadengine/internal/llm/client"
)

// rpsLimiter is a token bucket refilled lazily on each Acquire. Callers
// reserve a slot under the lock and then sleep outside it, so waiters are
// served in arrival order.
type rpsLimiter struct {
	mu       sync.Mutex
	interval time.Duration
	burst    float64
	tokens   float64
	last     time.Time
	closed   chan struct{}
	stop     sync.Once
}

// newRPSLimiter returns nil (a no-op limiter) when rps <= 0.
func newRPSLimiter(rps float64, burst int) *rpsLimiter {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = 1
	}
	interval := time.Duration(float64(time.Second) / rps)
	if interval <= 0 {
		interval = time.Millisecond
	}
	return &rpsLimiter{
		interval: interval,
		burst:    float64(burst),
		tokens:   float64(burst),
		last:     time.Now(),
		closed:   make(chan struct{}),
	}
}

// reserve takes one token, possibly driving the bucket negative, and returns
// how long the caller must wait before using it.
func (l *rpsLimiter) reserve(now time.Time) time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.tokens += float64(now.Sub(l.last)) / float64(l.interval)
	if l.tokens > l.burst {
		l.tokens = l.burst
	}
	l.last = now
	l.tokens--
	if l.tokens >= 0 {
		return 0
	}
	return time.Duration(-l.tokens * float64(l.interval))
}

// Acquire blocks until a token is available, the context ends, or the
// limiter is stopped.
func (l *rpsLimiter) Acquire(ctx context.Context) error {
	if l == nil {
		return nil
	}
	wait := l.reserve(time.Now())
	if wait <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-l.closed:
		return context.Canceled
	case <-timer.C:
		return nil
	}
}

func (l *rpsLimiter) Stop() {
	if l == nil {
		return
	}
	l.stop.Do(func() { close(l.closed) })
}

// RateLimit limits request rate. If rps <= 0 the limiter is disabled.
func RateLimit(rps float64, burst int) Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &rateLimited{passthrough: passthrough{next}, rl: newRPSLimiter(rps, burst)}
	}
}

// RateLimitRPM converts a requests-per-minute budget into RateLimit with a
// burst of one.
func RateLimitRPM(rpm int) Middleware {
	if rpm <= 0 {
		return nil
	}
	return RateLimit(float64(rpm)/60.0, 1)
}

type rateLimited struct {
	passthrough
	rl *rpsLimiter
}

func (c *rateLimited) Close() error {
	c.rl.Stop()
	return c.next.Close()
}

func (c *rateLimited) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return llmclient.Response{}, err
	}
	return c.next.Complete(ctx, req)
}

func (c *rateLimited) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	if err := c.rl.Acquire(ctx); err != nil {
		return llmclient.Response{}, err
	}
	return c.next.CompleteStream(ctx, req, onChunk)
}
