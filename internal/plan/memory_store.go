package plan

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore is an in-memory plan store for demo/development.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*Plan
}

// NewMemoryStore creates a new in-memory plan store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]*Plan)}
}

// SeedDefaults loads the built-in catalogue. Used in demo mode.
func (m *MemoryStore) SeedDefaults() {
	for _, p := range DefaultCatalogue() {
		_ = m.Create(context.Background(), p)
	}
}

func (m *MemoryStore) Create(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *MemoryStore) ListActive(_ context.Context) ([]*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []*Plan
	for _, p := range m.plans {
		if p.IsActive {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BaseMonthly.LessThan(out[j].BaseMonthly) })
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.plans[p.ID]; !ok {
		return ErrPlanNotFound
	}
	cp := *p
	m.plans[p.ID] = &cp
	return nil
}

var _ Store = (*MemoryStore)(nil)
