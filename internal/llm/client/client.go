package llmclient

import "context"

// Request is one completion call. System carries the compiled agent
// instruction when the call is made on behalf of an agent.
type Request struct {
	Prompt    string
	System    string
	WebSearch bool
	// Temperature nil leaves the provider default.
	Temperature *float64
}

// Usage is the token accounting reported by the provider.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

func (u Usage) Total() int { return u.PromptTokens + u.CompletionTokens }

type Response struct {
	Text  string
	Model string
	Usage Usage
}

// LLMClient defines the interface for completion providers.
type LLMClient interface {
	Name() string
	Close() error
	CountTokens(text string) int
	TokenCapacity() int
	Complete(ctx context.Context, req Request) (Response, error)
	// CompleteStream delivers text chunks to onChunk as they arrive, in order,
	// on the calling goroutine. It returns the accumulated response.
	CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error)
}

// Temp is a convenience for building a Request temperature.
func Temp(v float64) *float64 { return &v }
