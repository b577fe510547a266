package scout

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"leadengine/internal/events"
	llmclient "leadengine/internal/llm/client"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStreamer adapts a scripted client to the Streamer interface.
type fakeStreamer struct{ *llmclient.FakeClient }

func (f fakeStreamer) Stream(ctx context.Context, req llmclient.Request, onChunk func(string)) (llmclient.Response, error) {
	return f.CompleteStream(ctx, req, onChunk)
}

func quietConfig() Config {
	return Config{Logger: log.New(io.Discard, "", 0)}
}

func TestScout_RetriesWithFreshRequestAndDedupes(t *testing.T) {
	fake := llmclient.NewFakeClient("scout",
		llmclient.FakeReply{Chunks: []string{`{"name":"Ace Plumbing","phone":"555-0100"}|`, `||{"name":"Half`}, Err: errors.New("reset")},
		llmclient.FakeReply{Chunks: []string{
			`{"name":"Ace Plumbing","phone":"555-0100"}|||`,
			`{"name":"Bright Dental","email":"hi@bright.example"}|||`,
		}},
	)
	s := New(fakeStreamer{fake}, quietConfig())

	got, err := s.Collect(context.Background(), Query{Niche: "plumber", Location: "Austin"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Ace Plumbing", got[0].Name)
	assert.Equal(t, "Bright Dental", got[1].Name)

	calls := fake.Calls()
	require.Len(t, calls, 2)
	assert.True(t, calls[0].WebSearch)
	assert.Contains(t, calls[0].Prompt, "plumber businesses in Austin")
	assert.Contains(t, calls[1].Prompt, "Ace Plumbing", "retry request should ask to skip leads already found")
}

func TestScout_GivesUpAfterBudget(t *testing.T) {
	fake := llmclient.NewFakeClient("scout", llmclient.FakeReply{Err: errors.New("503")})
	cfg := quietConfig()
	cfg.MaxAttempts = 2
	s := New(fakeStreamer{fake}, cfg)

	got, err := s.Collect(context.Background(), Query{})
	require.Error(t, err)
	assert.Empty(t, got)
	assert.Len(t, fake.Calls(), 2)
}

func TestScout_LimitStopsEarly(t *testing.T) {
	fake := llmclient.NewFakeClient("scout", llmclient.FakeReply{Chunks: []string{
		`{"name":"A","phone":"5550100001"}|||`,
		`{"name":"B","phone":"5550100002"}|||`,
		`{"name":"C","phone":"5550100003"}|||`,
	}})
	s := New(fakeStreamer{fake}, quietConfig())

	got, err := s.Collect(context.Background(), Query{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestScout_BreakStopsWithoutError(t *testing.T) {
	fake := llmclient.NewFakeClient("scout", llmclient.FakeReply{Chunks: []string{
		`{"name":"A","phone":"5550100001"}|||`,
		`{"name":"B","phone":"5550100002"}|||`,
	}})
	s := New(fakeStreamer{fake}, quietConfig())

	n := 0
	for l, err := range s.Leads(context.Background(), Query{}) {
		require.NoError(t, err)
		n++
		assert.Equal(t, "A", l.Name)
		break
	}
	assert.Equal(t, 1, n)
	assert.Len(t, fake.Calls(), 1)
}

func TestScout_ExcludesKnownNamesAndPublishes(t *testing.T) {
	fake := llmclient.NewFakeClient("scout", llmclient.FakeReply{Chunks: []string{
		`{"name":"Known Co","phone":"5550100001"}|||{"name":"New Co","phone":"5550100002"}`,
	}})
	bus := events.NewBus()
	sub, cancel := bus.Subscribe(context.Background(), 8)
	defer cancel()
	cfg := quietConfig()
	cfg.Bus = bus
	s := New(fakeStreamer{fake}, cfg)

	got, err := s.Collect(context.Background(), Query{Exclude: []string{"known co"}})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "New Co", got[0].Name)
	assert.True(t, strings.Contains(fake.Calls()[0].Prompt, "known co"))

	e := <-sub
	assert.Equal(t, events.KindLeadScouted, e.Kind)
	assert.Equal(t, got[0].ID, e.LeadID)
}
