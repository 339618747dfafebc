package tenant

import "context"

// Store persists tenant and domain records in the shared schema.
type Store interface {
	Create(ctx context.Context, t *Tenant) error
	Get(ctx context.Context, id string) (*Tenant, error)
	GetBySchema(ctx context.Context, schemaName string) (*Tenant, error)
	List(ctx context.Context) ([]*Tenant, error)
	Update(ctx context.Context, t *Tenant) error

	AddDomain(ctx context.Context, d *Domain) error
	GetDomain(ctx context.Context, hostname string) (*Domain, error)
	ListDomains(ctx context.Context, tenantID string) ([]*Domain, error)
	RemoveDomain(ctx context.Context, hostname string) error
}
