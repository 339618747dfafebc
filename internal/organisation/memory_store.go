package organisation

import (
	"context"
	"sync"
	"time"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// MemoryProvider keeps one company per schema name, for demo mode and
// tests.
type MemoryProvider struct {
	mu        sync.Mutex
	companies map[string]*Company
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{companies: map[string]*Company{}}
}

func (p *MemoryProvider) Company(b schema.Binding) Store {
	return &boundMemoryStore{provider: p, binding: b}
}

type boundMemoryStore struct {
	provider *MemoryProvider
	binding  schema.Binding
}

func (s *boundMemoryStore) Get(_ context.Context) (*Company, error) {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.companies[s.binding.Schema()]
	if !ok {
		return nil, ErrCompanyNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *boundMemoryStore) Create(_ context.Context, c *Company) error {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	name := s.binding.Schema()
	if _, exists := p.companies[name]; exists {
		return ErrCompanyExists
	}
	cp := *c
	p.companies[name] = &cp
	return nil
}

func (s *boundMemoryStore) Update(_ context.Context, c *Company) error {
	p := s.provider
	p.mu.Lock()
	defer p.mu.Unlock()
	name := s.binding.Schema()
	if _, exists := p.companies[name]; !exists {
		return ErrCompanyNotFound
	}
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	p.companies[name] = &cp
	return nil
}

var _ Provider = (*MemoryProvider)(nil)
