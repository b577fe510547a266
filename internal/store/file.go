package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"leadengine/internal/types/agent"
	"leadengine/internal/types/lead"
)

// FileStore keeps everything in one JSON document, rewritten on each write.
type FileStore struct {
	path string

	loadOnce sync.Once
	loadErr  error
	mu       sync.RWMutex
	leads    map[string]lead.Lead
	agents   map[string]agent.Profile
}

type fileDoc struct {
	Leads  []lead.Lead     `json:"leads"`
	Agents []agent.Profile `json:"agents,omitempty"`
}

func NewFileStore(path string) *FileStore {
	return &FileStore{
		path:   path,
		leads:  make(map[string]lead.Lead),
		agents: make(map[string]agent.Profile),
	}
}

func (s *FileStore) UpsertLead(_ context.Context, l lead.Lead) error {
	if strings.TrimSpace(l.ID) == "" {
		return fmt.Errorf("store: lead id is required")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leads[l.ID] = l.Clone()
	return s.saveLocked()
}

func (s *FileStore) GetLead(_ context.Context, id string) (lead.Lead, error) {
	if err := s.ensureLoaded(); err != nil {
		return lead.Lead{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	l, ok := s.leads[id]
	if !ok {
		return lead.Lead{}, ErrNotFound
	}
	return l.Clone(), nil
}

func (s *FileStore) GetLeads(_ context.Context) ([]lead.Lead, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]lead.Lead, 0, len(s.leads))
	for _, l := range s.leads {
		out = append(out, l.Clone())
	}
	s.mu.RUnlock()
	sortNewestFirst(out)
	return out, nil
}

func (s *FileStore) DeleteLead(_ context.Context, id string) error {
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.leads[id]; !ok {
		return ErrNotFound
	}
	delete(s.leads, id)
	return s.saveLocked()
}

func (s *FileStore) UpsertAgentProfile(_ context.Context, p agent.Profile) error {
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("store: agent id is required")
	}
	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.agents[p.ID] = p
	return s.saveLocked()
}

func (s *FileStore) GetAgentProfiles(_ context.Context) ([]agent.Profile, error) {
	if err := s.ensureLoaded(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	out := make([]agent.Profile, 0, len(s.agents))
	for _, p := range s.agents {
		out = append(out, p)
	}
	s.mu.RUnlock()
	sortProfiles(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func (s *FileStore) ensureLoaded() error {
	s.loadOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()

		data, err := os.ReadFile(s.path)
		if err != nil {
			if !errors.Is(err, os.ErrNotExist) {
				s.loadErr = fmt.Errorf("store: read %s: %w", s.path, err)
			}
			return
		}
		if len(strings.TrimSpace(string(data))) == 0 {
			return
		}
		var doc fileDoc
		if err := json.Unmarshal(data, &doc); err != nil {
			s.loadErr = fmt.Errorf("store: decode %s: %w", s.path, err)
			return
		}
		for _, l := range doc.Leads {
			s.leads[l.ID] = l
		}
		for _, p := range doc.Agents {
			s.agents[p.ID] = p
		}
	})
	return s.loadErr
}

// saveLocked replaces the document via a temp file and rename.
func (s *FileStore) saveLocked() error {
	doc := fileDoc{Leads: make([]lead.Lead, 0, len(s.leads))}
	for _, l := range s.leads {
		doc.Leads = append(doc.Leads, l)
	}
	sortNewestFirst(doc.Leads)
	for _, p := range s.agents {
		doc.Agents = append(doc.Agents, p)
	}
	sortProfiles(doc.Agents)

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
