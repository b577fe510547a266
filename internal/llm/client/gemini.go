package llmclient

import (
	"context"
	"os"
	"strings"

	genai "google.golang.org/genai"
)

// GeminiClient is a thin wrapper around the official genai client.
// It only focuses on the API call itself. Cross-cutting concerns
// (rate limiting, retries, logging, usage) are applied via Middleware.
type GeminiClient struct {
	cli      *genai.Client
	model    string
	tokenCap int
}

// NewGeminiClient creates a client. If apiKey is empty, genai reads
// GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGeminiClient(ctx context.Context, apiKey, model string, tokenCap int) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  strings.TrimSpace(apiKey),
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if tokenCap <= 0 {
		tokenCap = 12000
	}
	return &GeminiClient{cli: cli, model: model, tokenCap: tokenCap}, nil
}

func (g *GeminiClient) Name() string { return "Gemini:" + g.model }
func (g *GeminiClient) Close() error { return nil }
func (g *GeminiClient) CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	return CountTokens(text)
}
func (g *GeminiClient) TokenCapacity() int { return g.tokenCap }

func (g *GeminiClient) config(req Request) *genai.GenerateContentConfig {
	cfg := &genai.GenerateContentConfig{}
	if s := strings.TrimSpace(req.System); s != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: s}}}
	}
	if req.Temperature != nil {
		t := float32(*req.Temperature)
		cfg.Temperature = &t
	}
	if req.WebSearch {
		cfg.Tools = []*genai.Tool{{GoogleSearch: &genai.GoogleSearch{}}}
	}
	return cfg
}

func contents(req Request) []*genai.Content {
	return []*genai.Content{{Role: genai.RoleUser, Parts: []*genai.Part{{Text: req.Prompt}}}}
}

// Complete issues one GenerateContent call and returns the concatenated text parts.
func (g *GeminiClient) Complete(ctx context.Context, req Request) (Response, error) {
	resp, err := g.cli.Models.GenerateContent(ctx, g.model, contents(req), g.config(req))
	if err != nil {
		return Response{}, err
	}
	txt := responseText(resp)
	if strings.TrimSpace(txt) == "" {
		return Response{}, ErrEmptyResponse
	}
	return Response{Text: txt, Model: g.model, Usage: usageOf(resp)}, nil
}

// CompleteStream forwards every streamed text fragment to onChunk.
func (g *GeminiClient) CompleteStream(ctx context.Context, req Request, onChunk func(chunk string)) (Response, error) {
	var (
		buf   strings.Builder
		usage Usage
	)
	for resp, err := range g.cli.Models.GenerateContentStream(ctx, g.model, contents(req), g.config(req)) {
		if err != nil {
			return Response{Text: buf.String(), Model: g.model, Usage: usage}, err
		}
		if u := usageOf(resp); u.Total() > 0 {
			usage = u
		}
		chunk := responseText(resp)
		if chunk == "" {
			continue
		}
		buf.WriteString(chunk)
		if onChunk != nil {
			onChunk(chunk)
		}
	}
	if buf.Len() == 0 {
		return Response{Model: g.model, Usage: usage}, ErrEmptyResponse
	}
	return Response{Text: buf.String(), Model: g.model, Usage: usage}, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if p != nil {
			sb.WriteString(p.Text)
		}
	}
	return sb.String()
}

func usageOf(resp *genai.GenerateContentResponse) Usage {
	if resp == nil || resp.UsageMetadata == nil {
		return Usage{}
	}
	return Usage{
		PromptTokens:     int(resp.UsageMetadata.PromptTokenCount),
		CompletionTokens: int(resp.UsageMetadata.CandidatesTokenCount),
	}
}

func RegisterGeminiModels(reg ModelRegistrar) error {
	return RegisterGeminiModelsForTier(reg, "free")
}

func RegisterGeminiModelsForTier(reg ModelRegistrar, tier string) error {
	tier = tierOr(tier, "free")

	type geminiModel struct {
		name   string
		level  ModelLevel
		tokens int
		limit  *RateLimitConfig
	}
	limits := &RateLimitConfig{RPM: 15, RPS: 0.25, Burst: 1}
	if tier == "tier1" {
		limits = &RateLimitConfig{RPM: 60, RPS: 1, Burst: 1}
	}
	models := []geminiModel{
		{name: "gemini-2.5-flash-lite", level: ModelLevelLow, tokens: 12000, limit: limits},
		{name: "gemini-2.5-flash", level: ModelLevelMiddle, tokens: 12000, limit: limits},
		{name: "gemini-2.5-pro", level: ModelLevelHigh, tokens: 12000, limit: limits},
	}
	for _, m := range models {
		modelName := m.name
		tokens := m.tokens
		if err := reg.RegisterModel(ModelRegistration{
			Provider:  "gemini",
			Tier:      tier,
			Model:     modelName,
			Level:     m.level,
			MaxTokens: tokens,
			RateLimit: m.limit,
			Factory: func(ctx context.Context, tokenCap int) (LLMClient, error) {
				if tokenCap <= 0 {
					tokenCap = tokens
				}
				return NewGeminiClient(ctx, os.Getenv("GEMINI_API_KEY"), modelName, tokenCap)
			},
		}); err != nil {
			return err
		}
	}
	return nil
}
