package store

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"

	"leadengine/internal/types/lead"
)

const DefaultCacheSize = 1024

// Cached fronts a Store with an LRU for GetLead. Writes go through and
// refresh the cached copy.
type Cached struct {
	Store
	leads *lru.Cache[string, lead.Lead]
}

func NewCached(origin Store, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	c, err := lru.New[string, lead.Lead](size)
	if err != nil {
		return nil, err
	}
	return &Cached{Store: origin, leads: c}, nil
}

func (c *Cached) UpsertLead(ctx context.Context, l lead.Lead) error {
	if err := c.Store.UpsertLead(ctx, l); err != nil {
		c.leads.Remove(l.ID)
		return err
	}
	c.leads.Add(l.ID, l.Clone())
	return nil
}

func (c *Cached) GetLead(ctx context.Context, id string) (lead.Lead, error) {
	if l, ok := c.leads.Get(id); ok {
		return l.Clone(), nil
	}
	l, err := c.Store.GetLead(ctx, id)
	if err != nil {
		return lead.Lead{}, err
	}
	c.leads.Add(id, l.Clone())
	return l, nil
}

func (c *Cached) DeleteLead(ctx context.Context, id string) error {
	c.leads.Remove(id)
	return c.Store.DeleteLead(ctx, id)
}
