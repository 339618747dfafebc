package organisation

import (
	"context"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// Store accesses the singleton company row of one bound schema.
type Store interface {
	// Get returns the company, or ErrCompanyNotFound before first setup.
	Get(ctx context.Context) (*Company, error)
	// Create inserts the singleton; ErrCompanyExists when one is there.
	Create(ctx context.Context, c *Company) error
	// Update replaces the singleton's fields.
	Update(ctx context.Context, c *Company) error
}

// Provider hands out a Store scoped to a schema binding.
type Provider interface {
	Company(b schema.Binding) Store
}
