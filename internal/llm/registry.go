package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	llmclient "leadengine/internal/llm/client"
)

// ModelProfile describes a registered model's properties.
type ModelProfile struct {
	Provider  string
	Tier      string
	Model     string
	Name      string
	Level     llmclient.ModelLevel
	MaxTokens int
	RateLimit *llmclient.RateLimitConfig
}

// RegisteredModel pairs a profile with its factory.
type RegisteredModel struct {
	Profile ModelProfile
	Factory llmclient.ClientFactory
}

var (
	ErrModelNotRegistered = errors.New("llm model profile is not registered")
	ErrModelLevelRequired = errors.New("llm model level is required")
)

// InMemoryModelRegistry stores model registrations in memory, indexed by
// level. The first model registered for a level is its default unless
// SetDefault says otherwise.
type InMemoryModelRegistry struct {
	mu       sync.RWMutex
	models   map[string]RegisteredModel
	defaults map[llmclient.ModelLevel]string
	byLevel  map[llmclient.ModelLevel][]string
}

func NewInMemoryModelRegistry() *InMemoryModelRegistry {
	return &InMemoryModelRegistry{
		models:   map[string]RegisteredModel{},
		defaults: map[llmclient.ModelLevel]string{},
		byLevel:  map[llmclient.ModelLevel][]string{},
	}
}

// ParseLevel validates a configured model level.
func ParseLevel(s string) (llmclient.ModelLevel, bool) { return llmclient.ParseModelLevel(s) }

func keyFor(provider, model string) string {
	return strings.ToLower(strings.TrimSpace(provider)) + "::" + strings.TrimSpace(model)
}

func (r *InMemoryModelRegistry) RegisterModel(spec llmclient.ModelRegistration) error {
	if spec.Factory == nil {
		return fmt.Errorf("register model: factory is nil")
	}
	level, ok := ParseLevel(string(spec.Level))
	if !ok {
		return fmt.Errorf("register model: invalid level %q", spec.Level)
	}
	provider := strings.ToLower(strings.TrimSpace(spec.Provider))
	model := strings.TrimSpace(spec.Model)
	if provider == "" || model == "" {
		return fmt.Errorf("register model: provider and model are required")
	}

	entry := RegisteredModel{
		Profile: ModelProfile{
			Provider:  provider,
			Tier:      strings.TrimSpace(spec.Tier),
			Model:     model,
			Name:      provider + ":" + model,
			Level:     level,
			MaxTokens: spec.MaxTokens,
			RateLimit: spec.RateLimit,
		},
		Factory: spec.Factory,
	}

	k := keyFor(provider, model)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[k]; !ok {
		r.byLevel[level] = append(r.byLevel[level], k)
	}
	r.models[k] = entry
	return nil
}

func (r *InMemoryModelRegistry) SetDefault(level llmclient.ModelLevel, provider, model string) error {
	level, ok := ParseLevel(string(level))
	if !ok {
		return ErrModelLevelRequired
	}
	k := keyFor(provider, model)
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.models[k]; !ok {
		return fmt.Errorf("%w: provider=%s model=%s", ErrModelNotRegistered, provider, model)
	}
	r.defaults[level] = k
	return nil
}

// Resolve finds the model for level. A non-empty provider restricts the
// search to that provider's registrations.
func (r *InMemoryModelRegistry) Resolve(level llmclient.ModelLevel, provider string) (RegisteredModel, error) {
	level, ok := ParseLevel(string(level))
	if !ok {
		return RegisteredModel{}, ErrModelLevelRequired
	}
	provider = strings.ToLower(strings.TrimSpace(provider))

	r.mu.RLock()
	defer r.mu.RUnlock()

	if k := r.defaults[level]; k != "" {
		if m, ok := r.models[k]; ok && (provider == "" || m.Profile.Provider == provider) {
			return m, nil
		}
	}
	for _, k := range r.byLevel[level] {
		m := r.models[k]
		if provider == "" || m.Profile.Provider == provider {
			return m, nil
		}
	}
	return RegisteredModel{}, fmt.Errorf("%w: provider=%q level=%s", ErrModelNotRegistered, provider, level)
}

// BuildClient creates a client for the resolved model with its catalog rate
// limits applied.
func (r *InMemoryModelRegistry) BuildClient(ctx context.Context, level llmclient.ModelLevel, provider string) (llmclient.LLMClient, error) {
	entry, err := r.Resolve(level, provider)
	if err != nil {
		return nil, err
	}
	cli, err := entry.Factory(ctx, entry.Profile.MaxTokens)
	if err != nil {
		return nil, err
	}
	if rl := entry.Profile.RateLimit; rl != nil {
		if rl.RPM > 0 {
			cli = RateLimitRPM(rl.RPM)(cli)
		}
		if rl.RPS > 0 {
			cli = RateLimit(rl.RPS, rl.Burst)(cli)
		}
	}
	return cli, nil
}
