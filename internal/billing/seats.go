// Package billing implements seat accounting and the subscription
// lifecycle for tenants. Seat counts are always read live from the
// tenant's own schema; the public schema only records what the tenant
// has paid for.
package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldserve/fieldserve/internal/metrics"
	"github.com/fieldserve/fieldserve/internal/plan"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/tenant"
	"github.com/fieldserve/fieldserve/internal/traces"
)

// SeatSource counts seat-consuming users within a bound schema. The
// account package provides the real implementation; keeping it behind
// an interface lets seat math be tested without a user store.
type SeatSource interface {
	CountUsers(ctx context.Context, b schema.Binding) (int, error)
}

// Counter computes live seat usage and the derived billing figures.
type Counter struct {
	binder schema.Binder
	source SeatSource
}

func NewCounter(binder schema.Binder, source SeatSource) *Counter {
	return &Counter{binder: binder, source: source}
}

// CurrentSeatCount counts the users in the tenant's schema. When the
// calling request already holds a binding it is reused with a nested
// bind, which restores whatever schema was active before, not public.
// Otherwise a fresh binding is taken and fully released.
func (c *Counter) CurrentSeatCount(ctx context.Context, t *tenant.Tenant) (int, error) {
	ctx, span := traces.StartSpan(ctx, "billing.seat_count",
		traces.TenantID(t.ID), traces.SchemaName(t.SchemaName))
	defer span.End()

	start := time.Now()
	defer func() {
		metrics.SeatCountDuration.Observe(time.Since(start).Seconds())
	}()

	var count int
	countFn := func(ctx context.Context, b schema.Binding) error {
		n, err := c.source.CountUsers(ctx, b)
		if err != nil {
			return fmt.Errorf("count users in %s: %w", t.SchemaName, err)
		}
		count = n
		return nil
	}

	if b, ok := schema.FromContext(ctx); ok {
		err := b.With(ctx, t.SchemaName, func(ctx context.Context) error {
			return countFn(ctx, b)
		})
		return count, err
	}

	b, err := c.binder.Bind(ctx, t.SchemaName)
	if err != nil {
		return 0, fmt.Errorf("bind %s: %w", t.SchemaName, err)
	}
	defer func() { _ = b.Release(ctx) }()
	if err := countFn(ctx, b); err != nil {
		return 0, err
	}
	return count, nil
}

// BillableSeats is the number of seats charged beyond the plan's
// included allowance, never negative.
func BillableSeats(p *plan.Plan, count int) int {
	billable := count - p.IncludedSeats
	if billable < 0 {
		return 0
	}
	return billable
}

// MonthlyCost computes the tenant's effective monthly price at the
// given seat count. Tenants without a plan cost nothing. Yearly plans
// are normalised to a per-month figure; a plan with no yearly prices
// contributes zero on the missing components.
func MonthlyCost(t *tenant.Tenant, p *plan.Plan, count int) decimal.Decimal {
	if p == nil {
		return decimal.Zero
	}
	billable := decimal.NewFromInt(int64(BillableSeats(p, count)))

	if t.BillingFrequency == tenant.BillingYearly {
		twelve := decimal.NewFromInt(12)
		base := decimal.Zero
		if p.BaseYearly.Valid {
			base = p.BaseYearly.Decimal.Div(twelve)
		}
		perSeat := decimal.Zero
		if p.PerSeatYearly.Valid {
			perSeat = p.PerSeatYearly.Decimal.Div(twelve)
		}
		return base.Add(billable.Mul(perSeat))
	}
	return p.BaseMonthly.Add(billable.Mul(p.PerSeatMonthly))
}

// NeedsPaymentUpdate reports whether live usage has outgrown what the
// tenant is paying for.
func NeedsPaymentUpdate(t *tenant.Tenant, count int) bool {
	return count > t.PaidSeatCount
}
