package billing

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/plan"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/tenant"
)

type serviceFixture struct {
	service *Service
	tenants tenant.Store
	plans   *plan.MemoryStore
	seats   *stubSeatSource
	tenant  *tenant.Tenant
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()
	tenants := tenant.NewMemoryStore()
	plans := plan.NewMemoryStore()
	plans.SeedDefaults()

	now := time.Now().UTC()
	tn := &tenant.Tenant{
		ID:               "tnt_acme",
		SchemaName:       "acme",
		Name:             "Acme",
		BillingFrequency: tenant.BillingMonthly,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	require.NoError(t, tenants.Create(context.Background(), tn))

	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")
	seats := &stubSeatSource{counts: map[string]int{"acme": 0}}

	return &serviceFixture{
		service: NewService(tenants, plans, NewCounter(binder, seats)),
		tenants: tenants,
		plans:   plans,
		seats:   seats,
		tenant:  tn,
	}
}

func (f *serviceFixture) atTime(t time.Time) {
	f.service.now = func() time.Time { return t }
}

func TestUpdateSubscriptionMonthlyWindow(t *testing.T) {
	f := newServiceFixture(t)
	f.atTime(time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC))

	tn, err := f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingMonthly)
	require.NoError(t, err)

	assert.True(t, tn.IsSubscriptionActive)
	assert.Equal(t, "plan_basic", tn.PlanID)
	require.NotNil(t, tn.SubscriptionStart)
	require.NotNil(t, tn.SubscriptionEnd)
	assert.Equal(t, time.Date(2025, 3, 15, 10, 0, 0, 0, time.UTC), *tn.SubscriptionStart)
	assert.Equal(t, time.Date(2025, 4, 15, 10, 0, 0, 0, time.UTC), *tn.SubscriptionEnd)

	// Persisted, not just returned.
	stored, err := f.tenants.Get(context.Background(), "tnt_acme")
	require.NoError(t, err)
	assert.True(t, stored.IsSubscriptionActive)
}

func TestUpdateSubscriptionClampsMonthEnd(t *testing.T) {
	f := newServiceFixture(t)
	f.atTime(time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC))

	tn, err := f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 2, 28, 12, 0, 0, 0, time.UTC), *tn.SubscriptionEnd)

	// Leap year clamps to the 29th.
	f.atTime(time.Date(2024, 1, 31, 12, 0, 0, 0, time.UTC))
	tn, err = f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 29, 12, 0, 0, 0, time.UTC), *tn.SubscriptionEnd)
}

func TestUpdateSubscriptionYearRollover(t *testing.T) {
	f := newServiceFixture(t)
	f.atTime(time.Date(2025, 12, 10, 9, 0, 0, 0, time.UTC))

	tn, err := f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingMonthly)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 1, 10, 9, 0, 0, 0, time.UTC), *tn.SubscriptionEnd)

	tn, err = f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingYearly)
	require.NoError(t, err)
	assert.Equal(t, tenant.BillingYearly, tn.BillingFrequency)
	assert.Equal(t, time.Date(2026, 12, 10, 9, 0, 0, 0, time.UTC), *tn.SubscriptionEnd)
}

func TestUpdateSubscriptionFailures(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.service.UpdateSubscription(context.Background(), "tnt_missing", "plan_basic", tenant.BillingMonthly)
	assert.ErrorIs(t, err, tenant.ErrTenantNotFound)

	_, err = f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_missing", tenant.BillingMonthly)
	assert.ErrorIs(t, err, plan.ErrPlanNotFound)

	_, err = f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", "weekly")
	assert.ErrorIs(t, err, ErrInvalidFrequency)
}

func TestUpdatePaidSeatCountGuard(t *testing.T) {
	f := newServiceFixture(t)
	f.seats.counts["acme"] = 5

	// Increases never consult live usage.
	tn, err := f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", 10, false)
	require.NoError(t, err)
	assert.Equal(t, 10, tn.PaidSeatCount)

	// Decreasing below live usage is refused without force.
	_, err = f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", 3, false)
	assert.ErrorIs(t, err, ErrSeatDecreaseBelowUsage)

	// A decrease that stays at or above usage is fine.
	tn, err = f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", 5, false)
	require.NoError(t, err)
	assert.Equal(t, 5, tn.PaidSeatCount)

	// Force overrides the guard.
	tn, err = f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", 3, true)
	require.NoError(t, err)
	assert.Equal(t, 3, tn.PaidSeatCount)

	_, err = f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", -1, false)
	assert.ErrorIs(t, err, ErrNegativeSeats)
}

func TestBillingStatusIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	f.seats.counts["acme"] = 5
	f.atTime(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))

	_, err := f.service.UpdateSubscription(context.Background(), "tnt_acme", "plan_basic", tenant.BillingMonthly)
	require.NoError(t, err)
	_, err = f.service.UpdatePaidSeatCount(context.Background(), "tnt_acme", 5, false)
	require.NoError(t, err)

	first, err := f.service.BillingStatus(context.Background(), "tnt_acme")
	require.NoError(t, err)
	second, err := f.service.BillingStatus(context.Background(), "tnt_acme")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	assert.Equal(t, 5, first.CurrentSeats)
	assert.Equal(t, 5, first.PaidSeats)
	assert.Equal(t, 3, first.BillableSeats)
	assert.Equal(t, "79.96", first.MonthlyCost.StringFixed(2))
	assert.False(t, first.NeedsPaymentUpdate)

	// One more user than paid for flips the flag without mutating
	// anything else.
	f.seats.counts["acme"] = 6
	third, err := f.service.BillingStatus(context.Background(), "tnt_acme")
	require.NoError(t, err)
	assert.True(t, third.NeedsPaymentUpdate)
	assert.Equal(t, 6, third.CurrentSeats)
}

func TestBillingStatusWithoutPlan(t *testing.T) {
	f := newServiceFixture(t)
	f.seats.counts["acme"] = 2

	st, err := f.service.BillingStatus(context.Background(), "tnt_acme")
	require.NoError(t, err)
	assert.Empty(t, st.PlanID)
	assert.Empty(t, st.PlanName)
	assert.True(t, st.MonthlyCost.IsZero())
	assert.Equal(t, 2, st.CurrentSeats)
}
