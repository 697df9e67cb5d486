package catalog

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory Store implementation used by tests and by
// local development without a catalog backend.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[int64]Product
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty in-memory product store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[int64]Product)}
}

// Seed inserts or replaces products in the store
func (s *MemoryStore) Seed(products ...Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

// GetProduct retrieves a single product by ID
func (s *MemoryStore) GetProduct(_ context.Context, id int64) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	copied := p
	return &copied, nil
}

// ListProducts retrieves products matching the filter, ordered by ID
func (s *MemoryStore) ListProducts(_ context.Context, filter ListFilter) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var include map[int64]struct{}
	if len(filter.Include) > 0 {
		include = make(map[int64]struct{}, len(filter.Include))
		for _, id := range filter.Include {
			include[id] = struct{}{}
		}
	}

	var out []Product
	for _, p := range s.products {
		if filter.Status != "" && p.Status != filter.Status {
			continue
		}
		if filter.Type != "" && p.Type != filter.Type {
			continue
		}
		if filter.SKU != "" && p.SKU != filter.SKU {
			continue
		}
		if filter.Tag != "" && !containsTag(p.Tags, filter.Tag) {
			continue
		}
		if include != nil {
			if _, ok := include[p.ID]; !ok {
				continue
			}
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// UpdateProduct applies the non-nil patch fields and returns the updated product
func (s *MemoryStore) UpdateProduct(_ context.Context, id int64, patch ProductPatch) (*Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrProductNotFound, id)
	}
	if patch.Title != nil {
		p.Title = *patch.Title
	}
	if patch.Description != nil {
		p.Description = *patch.Description
	}
	if patch.ShortDescription != nil {
		p.ShortDescription = *patch.ShortDescription
	}
	if patch.Tags != nil {
		p.Tags = append([]string(nil), (*patch.Tags)...)
	}
	s.products[id] = p
	copied := p
	return &copied, nil
}

func containsTag(tags []string, tag string) bool {
	for _, t := range tags {
		if t == tag {
			return true
		}
	}
	return false
}
