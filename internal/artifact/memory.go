package artifact

import (
	"context"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

func (s *MemoryStore) PutSite(_ context.Context, leadID string, files map[string]string) error {
	keys := make(map[string]string, len(files))
	for name, content := range files {
		key, err := objectKey(leadID, name)
		if err != nil {
			return err
		}
		keys[key] = content
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range keys {
		s.data[k] = v
	}
	return nil
}

func (s *MemoryStore) GetSite(_ context.Context, leadID string) (map[string]string, error) {
	prefix := sitePrefix(leadID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := map[string]string{}
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out[strings.TrimPrefix(k, prefix)] = v
		}
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

func (s *MemoryStore) SiteURL(context.Context, string, string) (string, error) { return "", nil }
