package store

import (
	"context"
	"errors"
	"sort"
	"strings"

	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

var ErrNotFound = errors.New("store: not found")

// Store persists leads and agent profiles. Writes are last-write-wins
// upserts keyed by id.
type Store interface {
	UpsertLead(ctx context.Context, l lead.Lead) error
	GetLead(ctx context.Context, id string) (lead.Lead, error)
	// GetLeads returns every lead, newest first.
	GetLeads(ctx context.Context) ([]lead.Lead, error)
	DeleteLead(ctx context.Context, id string) error

	UpsertAgentProfile(ctx context.Context, p agent.Profile) error
	GetAgentProfiles(ctx context.Context) ([]agent.Profile, error)

	Close() error
}

// Open picks a backend from dsn:
//
//	postgres://... or postgresql://...  Postgres
//	sqlite:<path> or *.db / *.sqlite     SQLite
//	anything else                        JSON file
//
// An empty dsn means a JSON file at ./leads.json.
func Open(dsn string) (Store, error) {
	dsn = strings.TrimSpace(dsn)
	lower := strings.ToLower(dsn)
	switch {
	case dsn == "":
		return NewFileStore("leads.json"), nil
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return NewPostgres(dsn)
	case strings.HasPrefix(lower, "sqlite:"):
		return NewSQLite(strings.TrimPrefix(dsn[len("sqlite:"):], "//"))
	case strings.HasSuffix(lower, ".db"), strings.HasSuffix(lower, ".sqlite"):
		return NewSQLite(dsn)
	default:
		return NewFileStore(dsn), nil
	}
}

func sortNewestFirst(leads []lead.Lead) {
	sort.SliceStable(leads, func(i, j int) bool {
		if !leads[i].CreatedAt.Equal(leads[j].CreatedAt) {
			return leads[i].CreatedAt.After(leads[j].CreatedAt)
		}
		return leads[i].ID < leads[j].ID
	})
}

func sortProfiles(ps []agent.Profile) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].ID < ps[j].ID })
}
