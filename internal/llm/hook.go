package llm

import (
	"context"

	llmclient "leadengine/internal/llm/client"
)

// PromptHook defines callbacks around LLM requests.
type PromptHook interface {
	Before(ctx context.Context, stage string, req llmclient.Request)
	After(ctx context.Context, stage string, resp llmclient.Response, err error)
}

type ctxKeyHook struct{}
type ctxKeyStage struct{}

// WithStage attaches the pipeline stage name to the context.
func WithStage(ctx context.Context, stage string) context.Context {
	return context.WithValue(ctx, ctxKeyStage{}, stage)
}

// WithPromptHook attaches a PromptHook to the context.
func WithPromptHook(ctx context.Context, hook PromptHook) context.Context {
	return context.WithValue(ctx, ctxKeyHook{}, hook)
}

func HookFrom(ctx context.Context) PromptHook {
	if h, ok := ctx.Value(ctxKeyHook{}).(PromptHook); ok {
		return h
	}
	return nil
}

func StageFrom(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyStage{}).(string); ok && s != "" {
		return s
	}
	return "unknown"
}

// WithHooks calls HookFrom(ctx).Before/After around each request.
// If no hook is present in the context, it is a no-op.
func WithHooks() Middleware {
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &hooked{passthrough{next}}
	}
}

type hooked struct{ passthrough }

func (h *hooked) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, StageFrom(ctx), req)
	}
	resp, err := h.next.Complete(ctx, req)
	if hook != nil {
		hook.After(ctx, StageFrom(ctx), resp, err)
	}
	return resp, err
}

func (h *hooked) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	hook := HookFrom(ctx)
	if hook != nil {
		hook.Before(ctx, StageFrom(ctx), req)
	}
	resp, err := h.next.CompleteStream(ctx, req, onChunk)
	if hook != nil {
		hook.After(ctx, StageFrom(ctx), resp, err)
	}
	return resp, err
}
