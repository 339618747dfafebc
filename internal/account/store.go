package account

import (
	"context"

	"github.com/google/uuid"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// Store is the user directory within one bound schema. Implementations
// never qualify table names: the binding decides which tenant's tables
// the queries hit.
type Store interface {
	Create(ctx context.Context, u *User) error
	Get(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	List(ctx context.Context) ([]*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error
	Count(ctx context.Context) (int, error)
}

// Provider hands out a Store scoped to a schema binding. The request
// middleware owns the binding's lifecycle; stores obtained here must
// not outlive it.
type Provider interface {
	Users(b schema.Binding) Store
}

// SeatSource adapts a Provider to seat counting for billing.
type SeatSource struct {
	provider Provider
}

func NewSeatSource(provider Provider) *SeatSource {
	return &SeatSource{provider: provider}
}

func (s *SeatSource) CountUsers(ctx context.Context, b schema.Binding) (int, error) {
	return s.provider.Users(b).Count(ctx)
}
