package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"leadengine/internal/artifact"
	"leadengine/internal/llm"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/pipeline"
)

type Config struct {
	Addr string

	LLM      LLMConfig
	Pipeline PipelineConfig

	// StoreDSN selects the lead store; see store.Open.
	StoreDSN   string
	CacheSize  int
	AgentsFile string
	Artifact   artifact.S3Config

	Outreach OutreachConfig
}

type LLMConfig struct {
	Provider      string
	Tier          string
	PrimaryLevel  llmclient.ModelLevel
	FallbackLevel llmclient.ModelLevel
	MaxAttempts   int
	BaseDelay     time.Duration
	LedgerPath    string
}

type PipelineConfig struct {
	ChainDelay          time.Duration
	Parallelism         int
	DisableSafeDefaults bool
}

type OutreachConfig struct {
	EmailWebhookURL string
	VoiceWebhookURL string
	WebhookToken    string
}

// Load reads .env (when present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Addr:       addr(os.Getenv("PORT")),
		StoreDSN:   firstNonEmpty(env("LEAD_STORE_DSN"), "leads.json"),
		AgentsFile: env("AGENTS_FILE"),
		Artifact: artifact.S3Config{
			Endpoint:  env("ARTIFACT_S3_ENDPOINT"),
			Region:    firstNonEmpty(env("ARTIFACT_S3_REGION"), "us-east-1"),
			AccessKey: firstNonEmpty(env("ARTIFACT_S3_ACCESS_KEY"), env("MINIO_ROOT_USER")),
			SecretKey: firstNonEmpty(env("ARTIFACT_S3_SECRET_KEY"), env("MINIO_ROOT_PASSWORD")),
			Bucket:    firstNonEmpty(env("ARTIFACT_S3_BUCKET"), "leadengine-sites"),
		},
		Outreach: OutreachConfig{
			EmailWebhookURL: env("OUTREACH_EMAIL_WEBHOOK"),
			VoiceWebhookURL: env("OUTREACH_VOICE_WEBHOOK"),
			WebhookToken:    env("OUTREACH_WEBHOOK_TOKEN"),
		},
	}

	var err error
	if cfg.Artifact.UseSSL, err = boolEnv("ARTIFACT_S3_USE_SSL", true); err != nil {
		return nil, err
	}
	if cfg.CacheSize, err = intEnv("LEAD_CACHE_SIZE", 1024); err != nil {
		return nil, err
	}

	cfg.LLM = LLMConfig{
		Provider:   strings.ToLower(firstNonEmpty(env("LLM_PROVIDER"), "gemini")),
		Tier:       env("LLM_TIER"),
		LedgerPath: env("LLM_USAGE_LEDGER"),
	}
	if cfg.LLM.PrimaryLevel, err = levelEnv("LLM_PRIMARY_LEVEL", llmclient.ModelLevelHigh); err != nil {
		return nil, err
	}
	if cfg.LLM.FallbackLevel, err = levelEnv("LLM_FALLBACK_LEVEL", llmclient.ModelLevelLow); err != nil {
		return nil, err
	}
	if cfg.LLM.MaxAttempts, err = intEnv("LLM_MAX_ATTEMPTS", llm.DefaultMaxAttempts); err != nil {
		return nil, err
	}
	if cfg.LLM.BaseDelay, err = durationEnv("LLM_RETRY_BASE_DELAY", llm.DefaultBaseDelay); err != nil {
		return nil, err
	}

	if cfg.Pipeline.ChainDelay, err = durationEnv("CHAIN_DELAY", pipeline.DefaultChainDelay); err != nil {
		return nil, err
	}
	if cfg.Pipeline.Parallelism, err = intEnv("PIPELINE_PARALLELISM", 4); err != nil {
		return nil, err
	}
	if cfg.Pipeline.DisableSafeDefaults, err = boolEnv("DISABLE_SAFE_DEFAULTS", false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// APIKeyVar names the credential the provider reads.
func (c LLMConfig) APIKeyVar() string {
	switch c.Provider {
	case "groq":
		return "GROQ_API_KEY"
	case "openrouter":
		return "OPENROUTER_API_KEY"
	default:
		return "GEMINI_API_KEY"
	}
}

func addr(port string) string {
	port = strings.TrimSpace(port)
	switch {
	case port == "":
		return ":8080"
	case strings.HasPrefix(port, ":"):
		return port
	default:
		return ":" + port
	}
}

func env(key string) string { return strings.TrimSpace(os.Getenv(key)) }

func intEnv(key string, def int) (int, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

func boolEnv(key string, def bool) (bool, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("config: %s: %w", key, err)
	}
	return v, nil
}

// durationEnv accepts Go durations ("1500ms") or bare milliseconds ("1500").
func durationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	if ms, err := strconv.Atoi(raw); err == nil {
		return time.Duration(ms) * time.Millisecond, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func levelEnv(key string, def llmclient.ModelLevel) (llmclient.ModelLevel, error) {
	raw := env(key)
	if raw == "" {
		return def, nil
	}
	lvl, ok := llm.ParseLevel(raw)
	if !ok {
		return "", fmt.Errorf("config: %s: unknown model level %q", key, raw)
	}
	return lvl, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
