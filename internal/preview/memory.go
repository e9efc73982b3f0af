package preview

import (
	"context"
	"sync"
)

// Compile-time check that MemoryRepository implements Repository.
var _ Repository = (*MemoryRepository)(nil)

// MemoryRepository is an in-memory implementation of Repository.
// It uses a map with RWMutex for thread-safe access.
type MemoryRepository struct {
	mu       sync.RWMutex
	previews map[string]*Preview
}

// NewMemoryRepository creates a new in-memory preview repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		previews: make(map[string]*Preview),
	}
}

// Save persists a clone of p.
func (r *MemoryRepository) Save(_ context.Context, p *Preview) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.previews[p.ID] = p.Clone()
	return nil
}

// FindByID returns a clone to prevent external mutations.
func (r *MemoryRepository) FindByID(_ context.Context, id string) (*Preview, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.previews[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}
	return p.Clone(), nil
}

// Update runs fn on a clone under the write lock and stores it if fn succeeds.
func (r *MemoryRepository) Update(_ context.Context, id string, fn func(*Preview) error) (*Preview, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.previews[id]
	if !ok {
		return nil, ErrPreviewNotFound
	}

	updated := p.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	r.previews[id] = updated
	return updated.Clone(), nil
}

// Delete removes a preview from storage.
func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.previews[id]; !ok {
		return ErrPreviewNotFound
	}
	delete(r.previews, id)
	return nil
}
