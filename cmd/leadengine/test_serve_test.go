package main

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	agentdir "leadengine/internal/agent"
	"leadengine/internal/artifact"
	"leadengine/internal/events"
	"leadengine/internal/leadstatus"
	llmclient "leadengine/internal/llm/client"
	"leadengine/internal/pipeline"
	"leadengine/internal/store"
	"leadengine/internal/types/lead"
)

// downLLM fails every call, so stages fall back to their safe defaults.
type downLLM struct{}

func (downLLM) CompleteWithFallback(context.Context, llmclient.Request) (llmclient.Response, error) {
	return llmclient.Response{}, errors.New("provider down")
}

func (downLLM) Structured(context.Context, llmclient.Request, any) (llmclient.Response, error) {
	return llmclient.Response{}, errors.New("provider down")
}

func testApp(t *testing.T) *app {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	a := &app{
		logger: logger,
		bus:    events.NewBus(),
		store:  store.NewFileStore(filepath.Join(t.TempDir(), "leads.json")),
		sites:  artifact.NewMemoryStore(),
		dir:    agentdir.NewDirectory(agentdir.Defaults()...),
	}
	a.orch = pipeline.New(downLLM{}, a.dir, pipeline.Options{
		Store:     a.store,
		Loader:    a.store,
		Artifacts: a.sites,
		Logger:    logger,
		Bus:       a.bus,
		Sleep:     func(context.Context, time.Duration) error { return nil },
	})
	return a
}

func TestServe_PipelineTriggerRunsInBackground(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.UpsertLead(ctx, lead.Lead{ID: "l1", Name: "Ace Plumbing", Phone: "5550100199", Status: leadstatus.Scouted}))

	srv := newServer(ctx, a)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/leads/l1/pipeline", "application/json", strings.NewReader(`{"agent":"researcher"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	srv.wait()

	// Research and competitors fall back; strategy has no default and stops the run.
	l, err := a.store.GetLead(ctx, "l1")
	require.NoError(t, err)
	assert.Equal(t, leadstatus.DossierReady, l.Status)
	assert.Equal(t, pipeline.DefaultPropensityScore, l.PropensityScore)
}

func TestServe_Errors(t *testing.T) {
	a := testApp(t)
	ctx := context.Background()
	require.NoError(t, a.store.UpsertLead(ctx, lead.Lead{ID: "won", Name: "Done Co", Status: leadstatus.ClosedWon}))
	srv := newServer(ctx, a)
	ts := httptest.NewServer(srv.routes())
	defer ts.Close()

	cases := []struct {
		method, path, body string
		want               int
	}{
		{http.MethodGet, "/api/leads/missing", "", http.StatusNotFound},
		{http.MethodPost, "/api/leads/missing/pipeline", "", http.StatusNotFound},
		{http.MethodPost, "/api/leads/won/pipeline", "", http.StatusConflict},
		{http.MethodPost, "/api/leads/won/pipeline", `{"stage":"deploy"}`, http.StatusBadRequest},
		{http.MethodPost, "/api/leads/won/pipeline", `{"agent":"nobody"}`, http.StatusBadRequest},
		{http.MethodGet, "/api/leads/won/site", "", http.StatusNotFound},
		{http.MethodGet, "/api/leads", "", http.StatusOK},
	}
	for _, tc := range cases {
		req, err := http.NewRequest(tc.method, ts.URL+tc.path, strings.NewReader(tc.body))
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		resp.Body.Close()
		assert.Equal(t, tc.want, resp.StatusCode, "%s %s", tc.method, tc.path)
	}
	srv.wait()
}
