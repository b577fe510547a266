package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"leadengine/internal/events"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/util/jsonutil"
)

const (
	DefaultMaxAttempts = 3
	DefaultBaseDelay   = time.Second
)

type Options struct {
	MaxAttempts int
	BaseDelay   time.Duration
	// Sleep overrides the wait between retries.
	Sleep      SleepFunc
	Logger     *log.Logger
	Bus        *events.Bus
	LedgerPath string
}

// Client is the completion channel used by scouting and pipeline stages.
//
// Complete retries the primary tier with linear backoff. CompleteWithFallback
// does the same and then makes one attempt on the fallback tier. Structured
// makes a single primary attempt and then one attempt on the fallback tier.
// Stream is a single attempt; the scout runner owns its own attempt budget.
type Client struct {
	primary  llmclient.LLMClient
	retried  llmclient.LLMClient
	fallback llmclient.LLMClient
	logger   *log.Logger
}

// New wraps primary and fallback with the standard middleware chain.
// fallback may be nil.
func New(primary, fallback llmclient.LLMClient, opts Options) *Client {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultBaseDelay
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}
	ambient := []Middleware{
		WithLogging(opts.Logger),
		WithHooks(),
		WithUsage(opts.Bus),
		WithUsageLedger(opts.LedgerPath),
	}
	c := &Client{logger: opts.Logger}
	c.primary = Wrap(primary, ambient...)
	// Retry sits outside the ambient chain so every attempt is logged and
	// accounted.
	c.retried = Wrap(c.primary, Retry(opts.MaxAttempts, opts.BaseDelay, WithSleep(opts.Sleep)))
	if fallback != nil {
		c.fallback = Wrap(fallback, ambient...)
	}
	return c
}

// NewFromRegistry builds primary and fallback clients from the catalog.
// A missing fallback level is not an error.
func NewFromRegistry(ctx context.Context, reg *InMemoryModelRegistry, provider string, primary, fallback llmclient.ModelLevel, opts Options) (*Client, error) {
	p, err := reg.BuildClient(ctx, primary, provider)
	if err != nil {
		return nil, fmt.Errorf("primary model: %w", err)
	}
	var f llmclient.LLMClient
	if fallback != "" && fallback != primary {
		f, err = reg.BuildClient(ctx, fallback, provider)
		if err != nil {
			if !errors.Is(err, ErrModelNotRegistered) {
				return nil, fmt.Errorf("fallback model: %w", err)
			}
			f = nil
		}
	}
	return New(p, f, opts), nil
}

func (c *Client) Name() string { return c.primary.Name() }

func (c *Client) Close() error {
	var errs []error
	if err := c.primary.Close(); err != nil {
		errs = append(errs, err)
	}
	if c.fallback != nil {
		if err := c.fallback.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Complete is the loud path: after the retry budget it returns the last error.
func (c *Client) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	return c.retried.Complete(ctx, req)
}

// CompleteWithFallback is Complete followed, once the primary retry budget is
// spent, by a single attempt on the fallback tier. Permanent errors on the
// primary still fall back; cancellation does not.
func (c *Client) CompleteWithFallback(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	resp, err := c.retried.Complete(ctx, req)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil || c.fallback == nil {
		return resp, err
	}
	c.logger.Printf("llm: primary %s exhausted for %s, falling back to %s: %v", c.primary.Name(), StageFrom(ctx), c.fallback.Name(), err)
	fresp, ferr := c.fallback.Complete(ctx, req)
	if ferr != nil {
		return fresp, errors.Join(err, fmt.Errorf("fallback: %w", ferr))
	}
	return fresp, nil
}

// Stream delivers chunks to onChunk in arrival order.
func (c *Client) Stream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	return c.primary.CompleteStream(ctx, req, onChunk)
}

// Structured asks for a JSON payload and decodes the first well-formed
// object or array span of the reply into out. A tier whose call fails or
// whose reply holds no decodable span counts as failed.
func (c *Client) Structured(ctx context.Context, req llmclient.Request, out any) (llmclient.Response, error) {
	resp, err := c.structuredOnce(ctx, c.primary, req, out)
	if err == nil {
		return resp, nil
	}
	if ctx.Err() != nil || c.fallback == nil {
		return resp, err
	}
	c.logger.Printf("llm: primary %s failed for %s, falling back to %s: %v", c.primary.Name(), StageFrom(ctx), c.fallback.Name(), err)
	fresp, ferr := c.structuredOnce(ctx, c.fallback, req, out)
	if ferr != nil {
		return fresp, errors.Join(err, fmt.Errorf("fallback: %w", ferr))
	}
	return fresp, nil
}

func (c *Client) structuredOnce(ctx context.Context, cli llmclient.LLMClient, req llmclient.Request, out any) (llmclient.Response, error) {
	resp, err := cli.Complete(ctx, req)
	if err != nil {
		return resp, err
	}
	if err := jsonutil.DecodeEmbedded(resp.Text, out); err != nil {
		return resp, fmt.Errorf("%s: %w", cli.Name(), err)
	}
	return resp, nil
}
