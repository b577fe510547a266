package llmclient

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// FakeReply is one scripted outcome. Chunks, when set, are what
// CompleteStream delivers; Text defaults to their concatenation.
type FakeReply struct {
	Text   string
	Chunks []string
	Err    error
}

// FakeClient replays scripted replies in order for offline runs and tests.
// Once the script is exhausted it keeps returning the last reply, or the
// Respond func when one is set.
type FakeClient struct {
	mu       sync.Mutex
	name     string
	tokenCap int
	script   []FakeReply
	calls    []Request

	// Respond, when set, answers every call not covered by the script.
	Respond func(req Request) FakeReply
}

func NewFakeClient(name string, replies ...FakeReply) *FakeClient {
	if name == "" {
		name = "fake"
	}
	return &FakeClient{name: name, tokenCap: 4096, script: replies}
}

func (f *FakeClient) Name() string { return f.name }
func (f *FakeClient) Close() error { return nil }
func (f *FakeClient) CountTokens(text string) int {
	if len(text) == 0 {
		return 0
	}
	return len(text) / 4
}
func (f *FakeClient) TokenCapacity() int { return f.tokenCap }

// Calls returns the requests seen so far.
func (f *FakeClient) Calls() []Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Request(nil), f.calls...)
}

func (f *FakeClient) next(req Request) FakeReply {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := len(f.calls)
	f.calls = append(f.calls, req)
	if n < len(f.script) {
		return f.script[n]
	}
	if f.Respond != nil {
		return f.Respond(req)
	}
	if len(f.script) > 0 {
		return f.script[len(f.script)-1]
	}
	return FakeReply{Err: errors.New("fake: no scripted reply")}
}

func (f *FakeClient) Complete(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	r := f.next(req)
	if r.Err != nil {
		return Response{}, r.Err
	}
	text := r.Text
	if text == "" {
		text = strings.Join(r.Chunks, "")
	}
	return Response{Text: text, Model: f.name, Usage: f.usage(req, text)}, nil
}

func (f *FakeClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	r := f.next(req)
	chunks := r.Chunks
	if len(chunks) == 0 && r.Text != "" {
		chunks = []string{r.Text}
	}
	var buf strings.Builder
	for _, c := range chunks {
		if err := ctx.Err(); err != nil {
			return Response{Text: buf.String(), Model: f.name}, err
		}
		buf.WriteString(c)
		if onChunk != nil {
			onChunk(c)
		}
	}
	// A scripted error after chunks models a stream that breaks midway.
	if r.Err != nil {
		return Response{Text: buf.String(), Model: f.name}, r.Err
	}
	return Response{Text: buf.String(), Model: f.name, Usage: f.usage(req, buf.String())}, nil
}

func (f *FakeClient) usage(req Request, text string) Usage {
	return Usage{PromptTokens: f.CountTokens(req.System + req.Prompt), CompletionTokens: f.CountTokens(text)}
}

// RegisterFakeModels registers one fake per level so the registry can be
// exercised without credentials.
func RegisterFakeModels(reg ModelRegistrar, fakes map[ModelLevel]*FakeClient) error {
	for level, fc := range fakes {
		fc := fc
		if err := reg.RegisterModel(ModelRegistration{
			Provider:  "fake",
			Tier:      "test",
			Model:     fc.Name(),
			Level:     level,
			MaxTokens: fc.TokenCapacity(),
			Factory: func(_ context.Context, _ int) (LLMClient, error) {
				return fc, nil
			},
		}); err != nil {
			return err
		}
	}
	return nil
}
