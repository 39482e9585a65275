package persona

import (
	"context"
	"sort"
	"sync"
)

// Repository defines persona storage.
type Repository interface {
	Get(ctx context.Context, id int64) (*Persona, error)
	List(ctx context.Context) ([]Persona, error)
	BulkCreate(ctx context.Context, personas []Persona) (int, error)
}

// InMemoryRepository keeps personas in a map. Used in tests and local runs
// without a database.
type InMemoryRepository struct {
	mu       sync.RWMutex
	nextID   int64
	personas map[int64]Persona
}

func NewInMemoryRepository(seed ...Persona) *InMemoryRepository {
	r := &InMemoryRepository{personas: make(map[int64]Persona)}
	_, _ = r.BulkCreate(context.Background(), seed)
	return r
}

func (r *InMemoryRepository) Get(ctx context.Context, id int64) (*Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.personas[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (r *InMemoryRepository) List(ctx context.Context) ([]Persona, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Persona, 0, len(r.personas))
	for _, p := range r.personas {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// BulkCreate stores personas. A non-zero ID is kept; otherwise one is assigned.
func (r *InMemoryRepository) BulkCreate(ctx context.Context, personas []Persona) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range personas {
		if p.ID == 0 {
			r.nextID++
			p.ID = r.nextID
		} else if p.ID > r.nextID {
			r.nextID = p.ID
		}
		r.personas[p.ID] = p
	}
	return len(personas), nil
}
