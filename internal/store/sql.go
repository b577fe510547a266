package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

// sqlStore is the database/sql backend shared by SQLite and Postgres. Rows
// hold the full record as JSON next to the columns used for listing.
type sqlStore struct {
	db       *sql.DB
	postgres bool

	schemaMu    sync.Mutex
	schemaReady bool
}

const schema = `
CREATE TABLE IF NOT EXISTS leads (
    id TEXT PRIMARY KEY,
    name TEXT NOT NULL,
    status TEXT NOT NULL,
    data TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_leads_created_at ON leads(created_at);
CREATE TABLE IF NOT EXISTS agent_profiles (
    id TEXT PRIMARY KEY,
    data TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL
);
`

func (s *sqlStore) ensureSchema(ctx context.Context) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("store: db is nil")
	}
	s.schemaMu.Lock()
	defer s.schemaMu.Unlock()
	if s.schemaReady {
		return nil
	}
	// A failure is not remembered; the next call tries again.
	for _, stmt := range strings.Split(schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("store: schema: %w", err)
		}
	}
	s.schemaReady = true
	return nil
}

// q rewrites ? placeholders to $n for Postgres.
func (s *sqlStore) q(query string) string {
	if !s.postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) UpsertLead(ctx context.Context, l lead.Lead) error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("store: lead id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(l)
	if err != nil {
		return err
	}
	created := l.CreatedAt
	if created.IsZero() {
		created = time.Now()
	}
	updated := l.UpdatedAt
	if updated.IsZero() {
		updated = created
	}
	_, err = s.db.ExecContext(ctx, s.q(`
INSERT INTO leads (id, name, status, data, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT (id)
DO UPDATE SET name=excluded.name, status=excluded.status, data=excluded.data, updated_at=excluded.updated_at
`), l.ID, l.Name, string(l.Status), string(data), created.UTC(), updated.UTC())
	return err
}

func (s *sqlStore) GetLead(ctx context.Context, id string) (lead.Lead, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return lead.Lead{}, err
	}
	var data string
	err := s.db.QueryRowContext(ctx, s.q(`SELECT data FROM leads WHERE id=?`), id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return lead.Lead{}, ErrNotFound
	}
	if err != nil {
		return lead.Lead{}, err
	}
	var l lead.Lead
	if err := json.Unmarshal([]byte(data), &l); err != nil {
		return lead.Lead{}, fmt.Errorf("store: decode lead %s: %w", id, err)
	}
	return l, nil
}

func (s *sqlStore) GetLeads(ctx context.Context) ([]lead.Lead, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM leads ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []lead.Lead
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var l lead.Lead
		if err := json.Unmarshal([]byte(data), &l); err != nil {
			return nil, fmt.Errorf("store: decode lead: %w", err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *sqlStore) DeleteLead(ctx context.Context, id string) error {
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.q(`DELETE FROM leads WHERE id=?`), id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *sqlStore) UpsertAgentProfile(ctx context.Context, p agent.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("store: agent id is required")
	}
	if err := s.ensureSchema(ctx); err != nil {
		return err
	}
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.q(`
INSERT INTO agent_profiles (id, data, updated_at)
VALUES (?, ?, ?)
ON CONFLICT (id)
DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at
`), p.ID, string(data), time.Now().UTC())
	return err
}

func (s *sqlStore) GetAgentProfiles(ctx context.Context) ([]agent.Profile, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM agent_profiles ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []agent.Profile
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var p agent.Profile
		if err := json.Unmarshal([]byte(data), &p); err != nil {
			return nil, fmt.Errorf("store: decode agent profile: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *sqlStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
