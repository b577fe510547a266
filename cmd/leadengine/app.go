package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	agentdir "leadengine/internal/agent"
	"leadengine/internal/artifact"
	"leadengine/internal/config"
	"leadengine/internal/events"
	"leadengine/internal/llm"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/outreach"
	"leadengine/internal/pipeline"
	"leadengine/internal/scout"
	"leadengine/internal/store"
	"leadengine/internal/types/agent"
)

// app holds the wired components for one CLI invocation or server.
type app struct {
	cfg    *config.Config
	logger *log.Logger
	bus    *events.Bus
	store  store.Store
	sites  artifact.SiteStore
	dir    *agentdir.Directory
	llm    *llm.Client
	orch   *pipeline.Orchestrator
	scout  *scout.Scout
}

type appOptions struct {
	// needLLM is false for commands that only read the store.
	needLLM bool
}

func newApp(ctx context.Context, o appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if storeDSN != "" {
		cfg.StoreDSN = storeDSN
	}
	if agentsFile != "" {
		cfg.AgentsFile = agentsFile
	}

	logger := log.New(io.Discard, "", 0)
	if verbose {
		logger = log.New(os.Stderr, "", log.LstdFlags)
	}
	a := &app{cfg: cfg, logger: logger, bus: events.NewBus()}

	origin, err := store.Open(cfg.StoreDSN)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	cached, err := store.NewCached(origin, cfg.CacheSize)
	if err != nil {
		_ = origin.Close()
		return nil, err
	}
	a.store = cached

	if cfg.Artifact.Enabled() {
		s3, err := artifact.NewS3Store(cfg.Artifact)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.sites = s3
	} else {
		a.sites = artifact.NewMemoryStore()
	}

	profiles, err := loadProfiles(ctx, cfg.AgentsFile, a.store)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.dir = agentdir.NewDirectory(profiles...)

	var completer pipeline.Completer
	if o.needLLM {
		if err := a.initLLM(ctx); err != nil {
			a.Close()
			return nil, err
		}
		completer = a.llm
	}
	a.orch = pipeline.New(completer, a.dir, pipeline.Options{
		DisableSafeDefaults: cfg.Pipeline.DisableSafeDefaults,
		ChainDelay:          cfg.Pipeline.ChainDelay,
		Parallelism:         cfg.Pipeline.Parallelism,
		Store:               a.store,
		Loader:              a.store,
		Artifacts:           a.sites,
		Logger:              logger,
		Bus:                 a.bus,
	})
	return a, nil
}

func (a *app) initLLM(ctx context.Context) error {
	cfg := a.cfg.LLM
	if v := cfg.APIKeyVar(); os.Getenv(v) == "" {
		return fmt.Errorf("%s is not set", v)
	}
	reg := llm.NewInMemoryModelRegistry()
	if err := registerProvider(reg, cfg); err != nil {
		return err
	}
	c, err := llm.NewFromRegistry(ctx, reg, cfg.Provider, cfg.PrimaryLevel, cfg.FallbackLevel, llm.Options{
		MaxAttempts: cfg.MaxAttempts,
		BaseDelay:   cfg.BaseDelay,
		Logger:      a.logger,
		Bus:         a.bus,
		LedgerPath:  cfg.LedgerPath,
	})
	if err != nil {
		return err
	}
	a.llm = c
	a.scout = scout.New(c, scout.Config{
		MaxAttempts: cfg.MaxAttempts,
		Logger:      a.logger,
		Bus:         a.bus,
	})
	return nil
}

func (a *app) Close() {
	if a.llm != nil {
		_ = a.llm.Close()
	}
	if a.store != nil {
		_ = a.store.Close()
	}
}

func registerProvider(reg *llm.InMemoryModelRegistry, c config.LLMConfig) error {
	switch c.Provider {
	case "gemini":
		return llmclient.RegisterGeminiModelsForTier(reg, c.Tier)
	case "groq":
		return llmclient.RegisterGroqModelsForTier(reg, c.Tier)
	case "openrouter":
		return llmclient.RegisterOpenRouterModels(reg)
	default:
		return fmt.Errorf("unknown LLM provider %q", c.Provider)
	}
}

// loadProfiles prefers the YAML file, then profiles saved in the store, then
// the built-in set.
func loadProfiles(ctx context.Context, path string, s store.Store) ([]agent.Profile, error) {
	if strings.TrimSpace(path) != "" {
		return agentdir.LoadFile(path)
	}
	saved, err := s.GetAgentProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("load agent profiles: %w", err)
	}
	if len(saved) > 0 {
		return saved, nil
	}
	return agentdir.Defaults(), nil
}

// agentByID resolves --agent; "" means no agent.
func (a *app) agentByID(id string) (agent.Profile, error) {
	if strings.TrimSpace(id) == "" {
		return agent.Profile{}, nil
	}
	p, ok := a.dir.Get(id)
	if !ok {
		return agent.Profile{}, fmt.Errorf("%w: %s", agentdir.ErrUnknownAgent, id)
	}
	return p, nil
}

// handoff builds the delivery side. A dry run records deliveries without
// saving the lead.
func (a *app) handoff(dryRun bool) (*pipeline.Handoff, *outreach.Recorder, error) {
	if dryRun {
		rec := &outreach.Recorder{}
		o := pipeline.New(nil, a.dir, pipeline.Options{Loader: a.store, Logger: a.logger, Bus: a.bus})
		return o.Handoff(rec, rec), rec, nil
	}
	oc := a.cfg.Outreach
	if oc.EmailWebhookURL == "" && oc.VoiceWebhookURL == "" {
		return nil, nil, fmt.Errorf("no outreach webhook configured (OUTREACH_EMAIL_WEBHOOK, OUTREACH_VOICE_WEBHOOK); use --dry-run")
	}
	var email outreach.EmailSender
	var voice outreach.VoiceCaller
	if oc.EmailWebhookURL != "" {
		email = outreach.NewWebhook(oc.EmailWebhookURL, oc.WebhookToken)
	}
	if oc.VoiceWebhookURL != "" {
		voice = outreach.NewWebhook(oc.VoiceWebhookURL, oc.WebhookToken)
	}
	return a.orch.Handoff(email, voice), nil, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
