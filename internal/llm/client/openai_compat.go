package llmclient

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

const (
	GroqBaseURL       = "https://api.groq.com/openai/v1/chat/completions"
	OpenRouterBaseURL = "https://openrouter.ai/api/v1/chat/completions"
)

// ChatClient calls an OpenAI-compatible Chat Completions API (Groq, OpenRouter).
// See: https://console.groq.com/docs/api-reference
type ChatClient struct {
	http     *http.Client
	provider string
	apiKey   string
	model    string
	baseURL  string
	tokenCap int

	rlMu      sync.RWMutex
	rlLast    RateLimitHeaders
	rlHasLast bool
	rlHandler RateLimitHeaderHandler
}

// NewGroqClient creates a Groq client. If apiKey is empty, it falls back to GROQ_API_KEY env var.
func NewGroqClient(apiKey, model string, tokenCap int) *ChatClient {
	if apiKey == "" {
		apiKey = os.Getenv("GROQ_API_KEY")
	}
	return newChatClient("groq", GroqBaseURL, apiKey, model, tokenCap)
}

// NewOpenRouterClient creates an OpenRouter client. If apiKey is empty, it
// falls back to OPENROUTER_API_KEY.
func NewOpenRouterClient(apiKey, model string, tokenCap int) *ChatClient {
	if apiKey == "" {
		apiKey = os.Getenv("OPENROUTER_API_KEY")
	}
	return newChatClient("openrouter", OpenRouterBaseURL, apiKey, model, tokenCap)
}

func newChatClient(provider, baseURL, apiKey, model string, tokenCap int) *ChatClient {
	if tokenCap <= 0 {
		tokenCap = 6000
	}
	return &ChatClient{
		http:     &http.Client{Timeout: 120 * time.Second},
		provider: provider,
		apiKey:   apiKey,
		model:    model,
		baseURL:  baseURL,
		tokenCap: tokenCap,
	}
}

// WithBaseURL points the client at another endpoint (tests, proxies).
func (c *ChatClient) WithBaseURL(u string) *ChatClient {
	c.baseURL = u
	return c
}

func (c *ChatClient) Name() string { return c.provider + ":" + c.model }
func (c *ChatClient) Close() error { return nil }
func (c *ChatClient) CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return CountTokens(text)
}
func (c *ChatClient) TokenCapacity() int { return c.tokenCap }

func (c *ChatClient) SetRateLimitHeaderHandler(handler RateLimitHeaderHandler) {
	c.rlMu.Lock()
	defer c.rlMu.Unlock()
	c.rlHandler = handler
}

func (c *ChatClient) LastRateLimitHeaders() (RateLimitHeaders, bool) {
	c.rlMu.RLock()
	defer c.rlMu.RUnlock()
	return c.rlLast, c.rlHasLast
}

type chatReq struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature *float64      `json:"temperature,omitempty"`
	Stream      bool          `json:"stream,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type chatResp struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
	} `json:"choices"`
	Usage *chatUsage `json:"usage,omitempty"`
}

func (c *ChatClient) body(req Request, stream bool) chatReq {
	model := c.model
	// OpenRouter exposes web grounding through the :online model variant.
	if req.WebSearch && c.provider == "openrouter" && !strings.HasSuffix(model, ":online") {
		model += ":online"
	}
	msgs := make([]chatMessage, 0, 2)
	if s := strings.TrimSpace(req.System); s != "" {
		msgs = append(msgs, chatMessage{Role: "system", Content: s})
	}
	msgs = append(msgs, chatMessage{Role: "user", Content: req.Prompt})
	return chatReq{Model: model, Messages: msgs, Temperature: req.Temperature, Stream: stream}
}

func (c *ChatClient) do(ctx context.Context, body chatReq) (*http.Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if body.Stream {
		req.Header.Set("Accept", "text/event-stream")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	c.captureRateLimitHeaders(resp.Header)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		err := fmt.Errorf("%s: unexpected status %s: %s", c.provider, resp.Status, string(raw))
		// Bad requests and auth failures will not improve on retry.
		switch {
		case resp.StatusCode == http.StatusBadRequest && strings.Contains(string(raw), "context_length_exceeded"),
			resp.StatusCode == http.StatusUnauthorized,
			resp.StatusCode == http.StatusForbidden:
			return nil, NewPermanentError(err)
		}
		return nil, err
	}
	return resp, nil
}

// Complete sends a single system+user exchange and returns the assistant text.
func (c *ChatClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := c.do(ctx, c.body(req, false))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()
	var out chatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Response{}, err
	}
	if len(out.Choices) == 0 || strings.TrimSpace(out.Choices[0].Message.Content) == "" {
		return Response{}, ErrEmptyResponse
	}
	r := Response{Text: out.Choices[0].Message.Content, Model: c.model}
	if out.Usage != nil {
		r.Usage = Usage{PromptTokens: out.Usage.PromptTokens, CompletionTokens: out.Usage.CompletionTokens}
	}
	return r, nil
}

// CompleteStream reads the server-sent event stream and forwards each
// content delta to onChunk.
func (c *ChatClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	resp, err := c.do(ctx, c.body(req, true))
	if err != nil {
		return Response{}, err
	}
	defer resp.Body.Close()

	out := Response{Model: c.model}
	var buf strings.Builder
	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "[DONE]" {
			break
		}
		var ev chatResp
		if err := json.Unmarshal([]byte(data), &ev); err != nil {
			continue
		}
		if ev.Usage != nil {
			out.Usage = Usage{PromptTokens: ev.Usage.PromptTokens, CompletionTokens: ev.Usage.CompletionTokens}
		}
		if len(ev.Choices) == 0 || ev.Choices[0].Delta.Content == "" {
			continue
		}
		chunk := ev.Choices[0].Delta.Content
		buf.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	out.Text = buf.String()
	if err := sc.Err(); err != nil {
		return out, err
	}
	if out.Text == "" {
		return out, ErrEmptyResponse
	}
	return out, nil
}

func (c *ChatClient) captureRateLimitHeaders(h http.Header) {
	parsed, ok := parseRateLimitHeaders(h)
	if !ok {
		return
	}
	c.rlMu.Lock()
	c.rlLast = parsed
	c.rlHasLast = true
	handler := c.rlHandler
	c.rlMu.Unlock()
	if handler != nil {
		handler(parsed)
	}
}

func RegisterGroqModels(reg ModelRegistrar) error {
	return RegisterGroqModelsForTier(reg, "free")
}

func RegisterGroqModelsForTier(reg ModelRegistrar, tier string) error {
	tier = tierOr(tier, "free")
	boost := 1
	if tier == "developer" {
		boost = 3
	}
	// Defaults from https://console.groq.com/docs/rate-limits; accounts vary.
	models := []struct {
		name  string
		level ModelLevel
		rpm   int
	}{
		{name: "llama-3.1-8b-instant", level: ModelLevelLow, rpm: 30},
		{name: "openai/gpt-oss-20b", level: ModelLevelMiddle, rpm: 30},
		{name: "groq/compound", level: ModelLevelHigh, rpm: 15},
		{name: "openai/gpt-oss-120b", level: ModelLevelXHigh, rpm: 30},
	}
	for _, m := range models {
		modelName := m.name
		if err := reg.RegisterModel(ModelRegistration{
			Provider:  "groq",
			Tier:      tier,
			Model:     modelName,
			Level:     m.level,
			MaxTokens: 6000,
			RateLimit: &RateLimitConfig{RPM: m.rpm * boost},
			Factory: func(_ context.Context, tokenCap int) (LLMClient, error) {
				return NewGroqClient(os.Getenv("GROQ_API_KEY"), modelName, tokenCap), nil
			},
		}); err != nil {
			return err
		}
	}
	return nil
}

func RegisterOpenRouterModels(reg ModelRegistrar) error {
	models := []struct {
		name  string
		level ModelLevel
	}{
		{name: "meta-llama/llama-3.1-8b-instruct", level: ModelLevelLow},
		{name: "google/gemini-2.5-flash", level: ModelLevelMiddle},
		{name: "anthropic/claude-sonnet-4", level: ModelLevelHigh},
		{name: "openai/gpt-4.1", level: ModelLevelXHigh},
	}
	for _, m := range models {
		modelName := m.name
		if err := reg.RegisterModel(ModelRegistration{
			Provider:  "openrouter",
			Tier:      "default",
			Model:     modelName,
			Level:     m.level,
			MaxTokens: 16000,
			Factory: func(_ context.Context, tokenCap int) (LLMClient, error) {
				return NewOpenRouterClient(os.Getenv("OPENROUTER_API_KEY"), modelName, tokenCap), nil
			},
		}); err != nil {
			return err
		}
	}
	return nil
}
