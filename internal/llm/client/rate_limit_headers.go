package llmclient

import (
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RateLimitHeaders represents normalized provider rate-limit signals.
type RateLimitHeaders struct {
	RetryAfterSeconds int

	LimitRequests     int
	LimitTokens       int
	RemainingRequests int
	RemainingTokens   int

	ResetRequests time.Duration
	ResetTokens   time.Duration
}

type RateLimitHeaderHandler func(headers RateLimitHeaders)

// NextWait converts the signals into how long a caller should hold off.
func (h RateLimitHeaders) NextWait() time.Duration {
	if h.RetryAfterSeconds > 0 {
		return time.Duration(h.RetryAfterSeconds) * time.Second
	}
	if h.RemainingTokens == 0 && h.ResetTokens > 0 {
		return h.ResetTokens
	}
	if h.RemainingRequests == 0 && h.ResetRequests > 0 {
		return h.ResetRequests
	}
	return 0
}

// parseRateLimitHeaders reads the x-ratelimit-* family shared by Groq and
// OpenRouter.
func parseRateLimitHeaders(h http.Header) (RateLimitHeaders, bool) {
	out := RateLimitHeaders{}
	found := false

	readInt := func(key string, dst *int) {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			return
		}
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
			found = true
		}
	}
	readDur := func(key string, dst *time.Duration) {
		v := strings.TrimSpace(h.Get(key))
		if v == "" {
			return
		}
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
			found = true
		}
	}

	readInt("retry-after", &out.RetryAfterSeconds)
	readInt("x-ratelimit-limit-requests", &out.LimitRequests)
	readInt("x-ratelimit-limit-tokens", &out.LimitTokens)
	readInt("x-ratelimit-remaining-requests", &out.RemainingRequests)
	readInt("x-ratelimit-remaining-tokens", &out.RemainingTokens)
	readDur("x-ratelimit-reset-requests", &out.ResetRequests)
	readDur("x-ratelimit-reset-tokens", &out.ResetTokens)
	return out, found
}
