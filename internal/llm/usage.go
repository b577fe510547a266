package llm

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"leadengine/internal/events"
	llmclient "leadengine/internal/llm/client"
)

type ctxKeyLead struct{}

// WithLeadID tags requests made on behalf of a lead so usage events can be
// attributed to it.
func WithLeadID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKeyLead{}, id)
}

func LeadIDFrom(ctx context.Context) string {
	s, _ := ctx.Value(ctxKeyLead{}).(string)
	return s
}

// WithUsage publishes a usage event per successful call to bus. The bus is
// owned by the caller; nil disables publishing.
func WithUsage(bus *events.Bus) Middleware {
	if bus == nil {
		return nil
	}
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &usageEvents{passthrough: passthrough{next}, bus: bus}
	}
}

type usageEvents struct {
	passthrough
	bus *events.Bus
}

func (u *usageEvents) publish(ctx context.Context, resp llmclient.Response) {
	model := resp.Model
	if model == "" {
		model = u.Name()
	}
	u.bus.Publish(events.Event{
		Kind:             events.KindUsage,
		LeadID:           LeadIDFrom(ctx),
		Stage:            StageFrom(ctx),
		Model:            model,
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
	})
}

func (u *usageEvents) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	resp, err := u.next.Complete(ctx, req)
	if err == nil {
		u.publish(ctx, resp)
	}
	return resp, err
}

func (u *usageEvents) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	resp, err := u.next.CompleteStream(ctx, req, onChunk)
	if err == nil {
		u.publish(ctx, resp)
	}
	return resp, err
}

// UsageLedger tracks LLM usage statistics to a JSON file.
type UsageLedger struct {
	mu   sync.Mutex
	path string
}

type usageLedgerFile struct {
	UpdatedAt string              `json:"updated_at"`
	Days      map[string]usageDay `json:"days"`
}

type usageDay struct {
	Requests int64                `json:"requests"`
	Tokens   int64                `json:"tokens"`
	Errors   int64                `json:"errors"`
	Models   map[string]usageStat `json:"models"`
}

type usageStat struct {
	Requests int64 `json:"requests"`
	Tokens   int64 `json:"tokens"`
	Errors   int64 `json:"errors"`
}

func NewUsageLedger(path string) *UsageLedger {
	return &UsageLedger{path: path}
}

// WithUsageLedger returns a middleware that tracks usage to the given path.
// An empty path disables it.
func WithUsageLedger(path string) Middleware {
	if path == "" {
		return nil
	}
	ledger := NewUsageLedger(path)
	return func(next llmclient.LLMClient) llmclient.LLMClient {
		return &usageLedgerClient{passthrough: passthrough{next}, ledger: ledger}
	}
}

type usageLedgerClient struct {
	passthrough
	ledger *UsageLedger
}

func (u *usageLedgerClient) Complete(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	resp, err := u.next.Complete(ctx, req)
	u.write(req, resp, err)
	return resp, err
}

func (u *usageLedgerClient) CompleteStream(ctx context.Context, req llmclient.Request, onChunk func(chunk string)) (llmclient.Response, error) {
	resp, err := u.next.CompleteStream(ctx, req, onChunk)
	u.write(req, resp, err)
	return resp, err
}

// write prefers provider-reported usage and falls back to an estimate.
func (u *usageLedgerClient) write(req llmclient.Request, resp llmclient.Response, err error) {
	tokens := resp.Usage.Total()
	if tokens <= 0 {
		tokens = u.CountTokens(req.System + "\n" + req.Prompt + "\n" + resp.Text)
		if tokens < 1 {
			tokens = 1
		}
	}
	u.ledger.record(u.Name(), int64(tokens), err != nil)
}

func (l *UsageLedger) record(model string, tokens int64, hasErr bool) {
	if l == nil || l.path == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	dayKey := time.Now().UTC().Format("2006-01-02")
	f := usageLedgerFile{Days: map[string]usageDay{}}
	if b, err := os.ReadFile(l.path); err == nil {
		_ = json.Unmarshal(b, &f)
		if f.Days == nil {
			f.Days = map[string]usageDay{}
		}
	}

	d := f.Days[dayKey]
	if d.Models == nil {
		d.Models = map[string]usageStat{}
	}
	d.Requests++
	d.Tokens += tokens
	m := d.Models[model]
	m.Requests++
	m.Tokens += tokens
	if hasErr {
		d.Errors++
		m.Errors++
	}
	d.Models[model] = m
	f.Days[dayKey] = d
	f.UpdatedAt = time.Now().UTC().Format(time.RFC3339)

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return
	}
	b, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return
	}
	tmp := l.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return
	}
	_ = os.Rename(tmp, l.path)
}
