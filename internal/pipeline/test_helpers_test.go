package pipeline

import (
	"context"
	"errors"
	"sync"
	"time"

	"leadengine/internal/leadstatus"
	"leadengine/internal/llm"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/store"
	"leadengine/internal/types/lead"
	"leadengine/internal/util/jsonutil"
)

// stageLLM answers by the stage tagged on the context.
type stageLLM struct {
	mu      sync.Mutex
	replies map[Stage]string
	fail    map[Stage]error
	systems map[Stage]string
	calls   map[Stage]int
}

func newStageLLM() *stageLLM {
	return &stageLLM{
		replies: map[Stage]string{
			StageResearch:    `{"owner_name":"Dana","pain_points":["no website","missed calls"],"propensity_score":80}`,
			StageCompetitors: `{"competitors":[{"name":"Best Pipes","why_winning":"ranks first"}]}`,
			StageStrategy:    "## Positioning\nFast local plumbing.",
			StageBuild:       `{"files":{"index.html":"<h1>Ace</h1>","styles.css":"h1{}"}}`,
			StageOutreach:    `{"subject":"A site for Ace","body":"We built you a site.","sms":"Built you a site"}`,
			StageAssets:      `{"proposal":"# Proposal","deal_value":"$1,500"}`,
		},
		fail:    map[Stage]error{},
		systems: map[Stage]string{},
		calls:   map[Stage]int{},
	}
}

func (f *stageLLM) answer(ctx context.Context, req llmclient.Request) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	st := Stage(llm.StageFrom(ctx))
	f.mu.Lock()
	defer f.mu.Unlock()
	f.systems[st] = req.System
	f.calls[st]++
	if err := f.fail[st]; err != nil {
		return "", err
	}
	return f.replies[st], nil
}

func (f *stageLLM) CompleteWithFallback(ctx context.Context, req llmclient.Request) (llmclient.Response, error) {
	text, err := f.answer(ctx, req)
	if err != nil {
		return llmclient.Response{}, err
	}
	return llmclient.Response{Text: text}, nil
}

func (f *stageLLM) Structured(ctx context.Context, req llmclient.Request, out any) (llmclient.Response, error) {
	text, err := f.answer(ctx, req)
	if err != nil {
		return llmclient.Response{}, err
	}
	return llmclient.Response{Text: text}, jsonutil.DecodeEmbedded(text, out)
}

func (f *stageLLM) system(st Stage) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.systems[st]
}

type memSaver struct {
	mu    sync.Mutex
	saved []lead.Lead
	err   error
}

func (m *memSaver) UpsertLead(_ context.Context, l lead.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, l)
	return nil
}

// GetLead returns the last saved copy, so memSaver also serves as a loader.
func (m *memSaver) GetLead(_ context.Context, id string) (lead.Lead, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(m.saved) - 1; i >= 0; i-- {
		if m.saved[i].ID == id {
			return m.saved[i].Clone(), nil
		}
	}
	return lead.Lead{}, store.ErrNotFound
}

func (m *memSaver) last() lead.Lead {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saved[len(m.saved)-1].Clone()
}

type memSites struct {
	mu    sync.Mutex
	sites map[string]map[string]string
}

func (m *memSites) PutSite(_ context.Context, id string, files map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sites == nil {
		m.sites = map[string]map[string]string{}
	}
	m.sites[id] = files
	return nil
}

func noSleep(context.Context, time.Duration) error { return nil }

var errBoom = errors.New("boom")

func aceLead() lead.Lead {
	return lead.Lead{
		ID:     "lead-ace",
		Name:   "Ace Plumbing",
		Phone:  "555-010-0199",
		Email:  "info@ace.test",
		Status: leadstatus.Scouted,
	}
}
