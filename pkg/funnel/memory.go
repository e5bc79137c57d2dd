package funnel

import (
	"context"
	"sort"
	"sync"

	"github.com/vinizap/zapvenda/pkg/domain"
)

// MemoryRepository keeps funnels in process memory.
type MemoryRepository struct {
	mu      sync.RWMutex
	funnels map[string]Funnel
}

// NewMemoryRepository creates an empty repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{funnels: make(map[string]Funnel)}
}

func (r *MemoryRepository) Create(_ context.Context, f Funnel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funnels[f.ID]; exists {
		return domain.NewConflictError("funnel already exists")
	}
	r.funnels[f.ID] = f.Clone()
	return nil
}

func (r *MemoryRepository) Update(_ context.Context, f Funnel) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funnels[f.ID]; !exists {
		return domain.NewNotFoundError("funnel")
	}
	r.funnels[f.ID] = f.Clone()
	return nil
}

func (r *MemoryRepository) Get(_ context.Context, id string) (*Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.funnels[id]
	if !ok {
		return nil, domain.NewNotFoundError("funnel")
	}
	out := f.Clone()
	return &out, nil
}

// List returns funnels newest first.
func (r *MemoryRepository) List(_ context.Context) ([]Funnel, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Funnel, 0, len(r.funnels))
	for _, f := range r.funnels {
		result = append(result, f.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.funnels[id]; !exists {
		return domain.NewNotFoundError("funnel")
	}
	delete(r.funnels, id)
	return nil
}
