package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedTenant(t *testing.T, store Store, schemaName string) *Tenant {
	t.Helper()
	now := time.Now().UTC()
	tn := &Tenant{
		ID:               "tnt_" + schemaName,
		SchemaName:       schemaName,
		Name:             schemaName,
		BillingFrequency: BillingMonthly,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, store.Create(context.Background(), tn))
	return tn
}

func seedDomain(t *testing.T, store Store, hostname, tenantID string) {
	t.Helper()
	require.NoError(t, store.AddDomain(context.Background(), &Domain{
		ID:        "dom_" + hostname,
		Hostname:  hostname,
		TenantID:  tenantID,
		IsPrimary: true,
		CreatedAt: time.Now().UTC(),
	}))
}

func TestResolverHeaderWins(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")
	globex := seedTenant(t, store, "globex")
	seedDomain(t, store, "app.globex.com", globex.ID)

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	// Header beats a hostname that would have resolved to another tenant.
	res, err := r.Resolve(context.Background(), "acme", "app.globex.com")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, res.Tenant.ID)
	assert.Equal(t, "header", res.Source)
}

func TestResolverHeaderNeverFallsBack(t *testing.T) {
	store := NewMemoryStore()
	globex := seedTenant(t, store, "globex")
	seedDomain(t, store, "app.globex.com", globex.ID)

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	// An unknown header fails even though the host alone would resolve.
	_, err := r.Resolve(context.Background(), "nosuch", "app.globex.com")
	require.ErrorIs(t, err, ErrNoTenant)

	// Malformed and reserved names are rejected outright.
	for _, v := range []string{"Robert'); DROP", "public", "9starts", "a.b"} {
		_, err := r.Resolve(context.Background(), v, "app.globex.com")
		assert.ErrorIs(t, err, ErrNoTenant, "header %q", v)
	}
}

func TestResolverExactDomain(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")
	seedDomain(t, store, "portal.example.com", acme.ID)

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	res, err := r.Resolve(context.Background(), "", "Portal.Example.COM:8443")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, res.Tenant.ID)
	assert.Equal(t, "domain", res.Source)
}

func TestResolverDomainBeatsSubdomain(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")
	globex := seedTenant(t, store, "globex")
	// The hostname starts with "acme" but is registered to globex.
	seedDomain(t, store, "acme.example.com", globex.ID)
	_ = acme

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	res, err := r.Resolve(context.Background(), "", "acme.example.com")
	require.NoError(t, err)
	assert.Equal(t, globex.ID, res.Tenant.ID)
	assert.Equal(t, "domain", res.Source)
}

func TestResolverSubdomainFallback(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	res, err := r.Resolve(context.Background(), "", "acme.fieldserve.io")
	require.NoError(t, err)
	assert.Equal(t, acme.ID, res.Tenant.ID)
	assert.Equal(t, "subdomain", res.Source)
}

func TestResolverMisses(t *testing.T) {
	store := NewMemoryStore()
	seedTenant(t, store, "acme")

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	cases := map[string]string{
		"unknown subdomain": "nosuch.fieldserve.io",
		"bare local host":   "localhost",
		"local with port":   "localhost:8080",
		"bare label":        "acme",
		"public label":      "public.fieldserve.io",
		"empty host":        "",
	}
	for name, host := range cases {
		_, err := r.Resolve(context.Background(), "", host)
		assert.ErrorIs(t, err, ErrNoTenant, name)
	}
}

func TestResolverLocalHostnameLabelExcluded(t *testing.T) {
	store := NewMemoryStore()
	// Even a tenant whose schema happens to be named after the local
	// hostname must not be reachable through the label fallback.
	seedTenant(t, store, "localhost")

	r := NewResolver(store, "X-Tenant", "public", "localhost")

	_, err := r.Resolve(context.Background(), "", "localhost.example.com")
	assert.ErrorIs(t, err, ErrNoTenant)

	// The explicit header still works; only hostname inference skips it.
	res, err := r.Resolve(context.Background(), "localhost", "example.com")
	require.NoError(t, err)
	assert.Equal(t, "header", res.Source)
}
