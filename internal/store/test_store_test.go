package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"leadengine/internal/leadstatus"
	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

func backends(t *testing.T) map[string]func() Store {
	dir := t.TempDir()
	return map[string]func() Store{
		"file": func() Store { return NewFileStore(filepath.Join(dir, "leads.json")) },
		"sqlite": func() Store {
			s, err := NewSQLite(filepath.Join(dir, "leads.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func sample(id string, at time.Time) lead.Lead {
	return lead.Lead{
		ID:         id,
		CreatedAt:  at,
		Name:       "Ace Plumbing " + id,
		Phone:      "555-010-0199",
		PainPoints: []string{"no website"},
		Site:       map[string]string{"index.html": "<h1>Ace</h1>"},
		Status:     leadstatus.Scouted,
	}
}

func TestStore_LeadRoundTripAndUpsert(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			require.NoError(t, s.UpsertLead(ctx, sample("a", base)))
			require.NoError(t, s.UpsertLead(ctx, sample("b", base.Add(time.Hour))))

			got, err := s.GetLead(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, "Ace Plumbing a", got.Name)
			assert.Equal(t, "<h1>Ace</h1>", got.Site["index.html"])

			updated := got
			updated.Status = leadstatus.DossierReady
			updated.OwnerName = "Dana"
			require.NoError(t, s.UpsertLead(ctx, updated))

			got, err = s.GetLead(ctx, "a")
			require.NoError(t, err)
			assert.Equal(t, leadstatus.DossierReady, got.Status)
			assert.Equal(t, "Dana", got.OwnerName)

			all, err := s.GetLeads(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "b", all[0].ID)

			require.NoError(t, s.DeleteLead(ctx, "a"))
			_, err = s.GetLead(ctx, "a")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.DeleteLead(ctx, "a"), ErrNotFound)
		})
	}
}

func TestSQLite_SchemaRetriedAfterFailure(t *testing.T) {
	s, err := NewSQLite(filepath.Join(t.TempDir(), "leads.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	l := sample("a", time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC))
	require.Error(t, s.UpsertLead(cancelled, l))

	ctx := context.Background()
	require.NoError(t, s.UpsertLead(ctx, l))
	got, err := s.GetLead(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, l.Name, got.Name)
}

func TestStore_AgentProfiles(t *testing.T) {
	ctx := context.Background()
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s := open()
			defer s.Close()

			p := agent.Profile{ID: "closer", Name: "Closer", Role: agent.RoleCloser,
				Chain: []agent.ChainLink{{Trigger: "On Outreach Ready", NextAgentID: "scout"}}}
			require.NoError(t, s.UpsertAgentProfile(ctx, agent.Profile{ID: "builder", Name: "Builder"}))
			require.NoError(t, s.UpsertAgentProfile(ctx, p))
			p.Name = "Deal Closer"
			require.NoError(t, s.UpsertAgentProfile(ctx, p))

			got, err := s.GetAgentProfiles(ctx)
			require.NoError(t, err)
			require.Len(t, got, 2)
			assert.Equal(t, "builder", got[0].ID)
			assert.Equal(t, "Deal Closer", got[1].Name)
			assert.Equal(t, p.Chain, got[1].Chain)
		})
	}
}

func TestFileStore_Reloads(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "leads.json")
	require.NoError(t, NewFileStore(path).UpsertLead(ctx, sample("a", time.Now())))

	got, err := NewFileStore(path).GetLead(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ace Plumbing a", got.Name)
}

func TestOpen_PicksBackend(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(filepath.Join(dir, "x.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open("sqlite:" + filepath.Join(dir, "x.db"))
	require.NoError(t, err)
	assert.IsType(t, &sqlStore{}, s)
	require.NoError(t, s.Close())
}

type countingStore struct {
	Store
	gets int
}

func (c *countingStore) GetLead(ctx context.Context, id string) (lead.Lead, error) {
	c.gets++
	return c.Store.GetLead(ctx, id)
}

func TestCached_ServesReadsFromCache(t *testing.T) {
	ctx := context.Background()
	origin := &countingStore{Store: NewFileStore(filepath.Join(t.TempDir(), "leads.json"))}
	c, err := NewCached(origin, 8)
	require.NoError(t, err)

	require.NoError(t, c.UpsertLead(ctx, sample("a", time.Now())))
	for i := 0; i < 3; i++ {
		got, err := c.GetLead(ctx, "a")
		require.NoError(t, err)
		got.PainPoints[0] = "mutated"
	}
	assert.Zero(t, origin.gets)

	got, err := c.GetLead(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "no website", got.PainPoints[0])

	require.NoError(t, c.DeleteLead(ctx, "a"))
	_, err = c.GetLead(ctx, "a")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, origin.gets)
}
