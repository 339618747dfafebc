package account

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// MemoryProvider keeps a user directory per schema name, mirroring the
// isolation PostgreSQL schemas give. Used in demo mode and tests.
type MemoryProvider struct {
	mu     sync.Mutex
	stores map[string]*MemoryStore
}

func NewMemoryProvider() *MemoryProvider {
	return &MemoryProvider{stores: map[string]*MemoryStore{}}
}

func (p *MemoryProvider) Users(b schema.Binding) Store {
	return &boundMemoryStore{provider: p, binding: b}
}

func (p *MemoryProvider) store(name string) *MemoryStore {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.stores[name]
	if !ok {
		s = NewMemoryStore()
		p.stores[name] = s
	}
	return s
}

// boundMemoryStore resolves the schema at call time, not at creation,
// so nested binds on the same binding see the right directory.
type boundMemoryStore struct {
	provider *MemoryProvider
	binding  schema.Binding
}

func (s *boundMemoryStore) target() *MemoryStore {
	return s.provider.store(s.binding.Schema())
}

func (s *boundMemoryStore) Create(ctx context.Context, u *User) error {
	return s.target().Create(ctx, u)
}

func (s *boundMemoryStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.target().Get(ctx, id)
}

func (s *boundMemoryStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return s.target().GetByEmail(ctx, email)
}

func (s *boundMemoryStore) List(ctx context.Context) ([]*User, error) {
	return s.target().List(ctx)
}

func (s *boundMemoryStore) Update(ctx context.Context, u *User) error {
	return s.target().Update(ctx, u)
}

func (s *boundMemoryStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.target().Delete(ctx, id)
}

func (s *boundMemoryStore) Count(ctx context.Context) (int, error) {
	return s.target().Count(ctx)
}

// MemoryStore is one schema's in-memory user directory.
type MemoryStore struct {
	mu     sync.RWMutex
	users  map[uuid.UUID]*User
	emails map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:  map[uuid.UUID]*User{},
		emails: map[string]uuid.UUID{},
	}
}

func (m *MemoryStore) Create(_ context.Context, u *User) error {
	if err := u.ValidateProfile(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(u.Email)
	if _, taken := m.emails[email]; taken {
		return ErrEmailTaken
	}
	cp := *u
	m.users[u.ID] = &cp
	m.emails[email] = u.ID
	return nil
}

func (m *MemoryStore) Get(_ context.Context, id uuid.UUID) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *MemoryStore) GetByEmail(_ context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.emails[strings.ToLower(email)]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *m.users[id]
	return &cp, nil
}

func (m *MemoryStore) List(_ context.Context) ([]*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	users := make([]*User, 0, len(m.users))
	for _, u := range m.users {
		cp := *u
		users = append(users, &cp)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Email < users[j].Email })
	return users, nil
}

func (m *MemoryStore) Update(_ context.Context, u *User) error {
	if err := u.ValidateProfile(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.users[u.ID]
	if !ok {
		return ErrUserNotFound
	}
	newEmail := strings.ToLower(u.Email)
	oldEmail := strings.ToLower(existing.Email)
	if newEmail != oldEmail {
		if _, taken := m.emails[newEmail]; taken {
			return ErrEmailTaken
		}
		delete(m.emails, oldEmail)
		m.emails[newEmail] = u.ID
	}
	u.UpdatedAt = time.Now().UTC()
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return ErrUserNotFound
	}
	delete(m.emails, strings.ToLower(u.Email))
	delete(m.users, id)
	return nil
}

func (m *MemoryStore) Count(_ context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

var _ Store = (*MemoryStore)(nil)
var _ Provider = (*MemoryProvider)(nil)
