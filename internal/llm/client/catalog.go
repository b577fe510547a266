package llmclient

import (
	"context"
	"strings"
	"unicode/utf8"
)

// ModelLevel is the capability bucket a stage asks for. Each provider maps
// its own models onto these buckets.
type ModelLevel string

const (
	ModelLevelLow    ModelLevel = "low"
	ModelLevelMiddle ModelLevel = "middle"
	ModelLevelHigh   ModelLevel = "high"
	ModelLevelXHigh  ModelLevel = "xhigh"
)

// ParseModelLevel accepts a level name in any case.
func ParseModelLevel(s string) (ModelLevel, bool) {
	switch l := ModelLevel(strings.ToLower(strings.TrimSpace(s))); l {
	case ModelLevelLow, ModelLevelMiddle, ModelLevelHigh, ModelLevelXHigh:
		return l, true
	}
	return "", false
}

// ClientFactory builds a client lazily, once a registration is resolved.
// tokenCap <= 0 means the registration's own MaxTokens.
type ClientFactory func(ctx context.Context, tokenCap int) (LLMClient, error)

// RateLimitConfig holds published provider quotas. Zero fields are unlimited.
type RateLimitConfig struct {
	RPM   int
	RPS   float64
	Burst int
}

// ModelRegistration is one catalog entry handed to a ModelRegistrar.
type ModelRegistration struct {
	Provider  string
	Tier      string
	Model     string
	Level     ModelLevel
	MaxTokens int
	RateLimit *RateLimitConfig
	Factory   ClientFactory
}

type ModelRegistrar interface {
	RegisterModel(spec ModelRegistration) error
}

func tierOr(tier, def string) string {
	if t := strings.ToLower(strings.TrimSpace(tier)); t != "" {
		return t
	}
	return def
}

// CountTokens estimates tokens for providers that report no usage: roughly
// four characters per token, never fewer than the word count.
func CountTokens(text string) int {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0
	}
	est := (utf8.RuneCountInString(text) + 3) / 4
	if words := len(strings.Fields(text)); words > est {
		return words
	}
	return est
}
