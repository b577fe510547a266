package llm

import (
	"context"
	"log"

	llmclient "leadengine/internal/llm/client"
)

// WithLogging logs request size and errors. Provide a custom logger or nil
// to use log.Default().
func WithLogging(logger *log.Logger) Middleware {
	if logger == nil {
		logger = log.Default()
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &logging{passthrough: passthrough{next}, log: logger}
	}
}

type logging struct {
	passthrough
	log *log.Logger
}

func (l *logging) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	l.log.Printf("LLM request (%s/%s): %d bytes", StageFrom(ctx), l.Name(), len(req.System)+len(req.Prompt))
	resp, err := l.next.Complete(ctx, req)
	if err != nil {
		l.log.Printf("LLM error (%s/%s): %v", StageFrom(ctx), l.Name(), err)
	}
	return resp, err
}

func (l *logging) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	l.log.Printf("LLM stream request (%s/%s): %d bytes", StageFrom(ctx), l.Name(), len(req.System)+len(req.Prompt))
	resp, err := l.next.CompleteStream(ctx, req, onChunk)
	if err != nil {
		l.log.Printf("LLM stream error (%s/%s): %v", StageFrom(ctx), l.Name(), err)
	}
	return resp, err
}
