package tenant

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryStore is an in-memory tenant store for demo/development.
type MemoryStore struct {
	mu      sync.RWMutex
	tenants map[string]*Tenant // by ID
	schemas map[string]string  // schema name → ID
	domains map[string]*Domain // by hostname
}

// NewMemoryStore creates a new in-memory tenant store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tenants: make(map[string]*Tenant),
		schemas: make(map[string]string),
		domains: make(map[string]*Domain),
	}
}

func (m *MemoryStore) Create(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.schemas[t.SchemaName]; exists {
		return ErrSchemaTaken
	}

	cp := *t
	m.tenants[t.ID] = &cp
	m.schemas[t.SchemaName] = t.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	t, ok := m.tenants[id]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

func (m *MemoryStore) GetBySchema(_ context.Context, schemaName string) (*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	id, ok := m.schemas[schemaName]
	if !ok {
		return nil, ErrTenantNotFound
	}
	cp := *m.tenants[id]
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*Tenant, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Tenant, 0, len(m.tenants))
	for _, t := range m.tenants {
		cp := *t
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SchemaName < out[j].SchemaName })
	return out, nil
}

func (m *MemoryStore) Update(_ context.Context, t *Tenant) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.tenants[t.ID]; !ok {
		return ErrTenantNotFound
	}
	cp := *t
	m.tenants[t.ID] = &cp
	return nil
}

func (m *MemoryStore) AddDomain(_ context.Context, d *Domain) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	host := strings.ToLower(d.Hostname)
	if _, exists := m.domains[host]; exists {
		return ErrDomainTaken
	}
	if _, ok := m.tenants[d.TenantID]; !ok {
		return ErrTenantNotFound
	}
	cp := *d
	cp.Hostname = host
	m.domains[host] = &cp
	return nil
}

func (m *MemoryStore) GetDomain(_ context.Context, hostname string) (*Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	d, ok := m.domains[strings.ToLower(hostname)]
	if !ok {
		return nil, ErrDomainNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *MemoryStore) ListDomains(_ context.Context, tenantID string) ([]*Domain, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []*Domain
	for _, d := range m.domains {
		if d.TenantID == tenantID {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Hostname < out[j].Hostname })
	return out, nil
}

func (m *MemoryStore) RemoveDomain(_ context.Context, hostname string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	host := strings.ToLower(hostname)
	if _, ok := m.domains[host]; !ok {
		return ErrDomainNotFound
	}
	delete(m.domains, host)
	return nil
}

var _ Store = (*MemoryStore)(nil)
