package schema

import (
	"context"
	"fmt"
	"sync"
)

// MemoryBinder simulates schema bindings without a database. Used in demo
// mode and in tests: the routing and admission logic observe the same
// bind/restore discipline as with PostgreSQL, minus the connection.
type MemoryBinder struct {
	public string

	mu      sync.RWMutex
	schemas map[string]bool
}

// NewMemoryBinder creates a binder that accepts any schema previously
// registered via AddSchema, plus the public schema.
func NewMemoryBinder(public string) *MemoryBinder {
	return &MemoryBinder{
		public:  public,
		schemas: map[string]bool{public: true},
	}
}

// AddSchema registers a namespace, mirroring schema provisioning.
func (b *MemoryBinder) AddSchema(name string) {
	b.mu.Lock()
	b.schemas[name] = true
	b.mu.Unlock()
}

// Public returns the shared schema name.
func (b *MemoryBinder) Public() string { return b.public }

func (b *MemoryBinder) knows(name string) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schemas[name]
}

// Bind acquires a simulated binding for name.
func (b *MemoryBinder) Bind(_ context.Context, name string) (Binding, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if !b.knows(name) {
		return nil, fmt.Errorf("schema: unknown schema %q", name)
	}
	return &memBinding{binder: b, stack: []string{name}}, nil
}

type memBinding struct {
	binder   *MemoryBinder
	stack    []string
	released bool
}

var _ Binding = (*memBinding)(nil)

func (bd *memBinding) Schema() string {
	return bd.stack[len(bd.stack)-1]
}

func (bd *memBinding) With(ctx context.Context, name string, fn func(context.Context) error) error {
	if bd.released {
		return ErrReleased
	}
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	// Nested binds observe the same registry as Bind, so a schema that
	// was never provisioned fails here exactly like it would on Postgres.
	if !bd.binder.knows(name) {
		return fmt.Errorf("schema: unknown schema %q", name)
	}
	bd.stack = append(bd.stack, name)
	defer func() {
		bd.stack = bd.stack[:len(bd.stack)-1]
	}()
	return fn(ctx)
}

func (bd *memBinding) Release(_ context.Context) error {
	bd.released = true
	return nil
}
