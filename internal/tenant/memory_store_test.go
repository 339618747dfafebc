package tenant

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreUniqueness(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")
	seedDomain(t, store, "acme.example.com", acme.ID)

	dup := *acme
	dup.ID = "tnt_other"
	assert.ErrorIs(t, store.Create(context.Background(), &dup), ErrSchemaTaken)

	err := store.AddDomain(context.Background(), &Domain{
		ID:        "dom_dup",
		Hostname:  "ACME.example.com",
		TenantID:  acme.ID,
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, ErrDomainTaken)
}

func TestMemoryStoreUpdateRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")

	acme.PaidSeatCount = 10
	acme.PlanID = "plan_basic"
	acme.IsSubscriptionActive = true
	require.NoError(t, store.Update(context.Background(), acme))

	got, err := store.Get(context.Background(), acme.ID)
	require.NoError(t, err)
	assert.Equal(t, 10, got.PaidSeatCount)
	assert.Equal(t, "plan_basic", got.PlanID)
	assert.True(t, got.IsSubscriptionActive)

	missing := *acme
	missing.ID = "tnt_missing"
	assert.ErrorIs(t, store.Update(context.Background(), &missing), ErrTenantNotFound)
}

func TestMemoryStoreRemoveDomain(t *testing.T) {
	store := NewMemoryStore()
	acme := seedTenant(t, store, "acme")
	seedDomain(t, store, "acme.example.com", acme.ID)

	require.NoError(t, store.RemoveDomain(context.Background(), "acme.example.com"))
	_, err := store.GetDomain(context.Background(), "acme.example.com")
	assert.ErrorIs(t, err, ErrDomainNotFound)
	assert.ErrorIs(t, store.RemoveDomain(context.Background(), "acme.example.com"), ErrDomainNotFound)
}
