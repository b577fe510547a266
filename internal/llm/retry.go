package llm

import (
	"context"
	"time"

	llmclient "leadengine/internal/llm/client"
)

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

type RetryOption func(*retrying)

// WithSleep replaces the wait between attempts (tests record delays instead
// of sleeping).
func WithSleep(fn SleepFunc) RetryOption {
	return func(r *retrying) {
		if fn != nil {
			r.sleep = fn
		}
	}
}

// Retry makes up to maxAttempts calls with linear backoff: after failed
// attempt k it waits k*baseDelay. The last error is returned once attempts
// are exhausted. Permanent errors and context cancellation stop immediately.
// Streams pass through untouched: a retried stream needs a fresh consumer,
// which only the caller can provide.
func Retry(maxAttempts int, baseDelay time.Duration, opts ...RetryOption) Middleware {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if baseDelay <= 0 {
		baseDelay = time.Second
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		r := &retrying{passthrough: passthrough{next}, max: maxAttempts, base: baseDelay, sleep: sleepCtx}
		for _, o := range opts {
			o(r)
		}
		return r
	}
}

type retrying struct {
	passthrough
	max   int
	base  time.Duration
	sleep SleepFunc
}

func (r *retrying) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	var last error
	for i := 1; i <= r.max; i++ {
		resp, err := r.next.Complete(ctx, req)
		if err == nil {
			return resp, nil
		}
		if llmclient.IsPermanent(err) {
			return llmclient.Response{}, err
		}
		last = err
		if ctx.Err() != nil {
			return llmclient.Response{}, ctx.Err()
		}
		if err := r.sleep(ctx, time.Duration(i)*r.base); err != nil {
			return llmclient.Response{}, err
		}
	}
	return llmclient.Response{}, last
}

func (r *retrying) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	return r.next.CompleteStream(ctx, req, onChunk)
}
