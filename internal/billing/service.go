package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/metrics"
	"github.com/fieldserve/fieldserve/internal/plan"
	"github.com/fieldserve/fieldserve/internal/tenant"
)

var (
	// ErrInvalidFrequency is returned for billing frequencies other
	// than monthly or yearly.
	ErrInvalidFrequency = errors.New("invalid billing frequency")
	// ErrPlanInactive is returned when subscribing to a retired plan.
	ErrPlanInactive = errors.New("plan is not active")
	// ErrSeatDecreaseBelowUsage is returned when a paid-seat decrease
	// would drop below live usage without the force flag.
	ErrSeatDecreaseBelowUsage = errors.New("paid seat count below current usage")
	// ErrNegativeSeats is returned for negative paid-seat counts.
	ErrNegativeSeats = errors.New("paid seat count must not be negative")
)

// Service owns the subscription lifecycle: a tenant moves from
// inactive to active when a subscription is set, and renewals simply
// re-run the same transition with a fresh window. Nothing here
// deactivates tenants; expiry is enforced by an external scheduler.
type Service struct {
	tenants tenant.Store
	plans   plan.Store
	counter *Counter
	now     func() time.Time
}

func NewService(tenants tenant.Store, plans plan.Store, counter *Counter) *Service {
	return &Service{
		tenants: tenants,
		plans:   plans,
		counter: counter,
		now:     time.Now,
	}
}

// UpdateSubscription assigns a plan to the tenant and opens a new
// subscription window starting today. Monthly windows end one calendar
// month later with the day clamped to the target month's length, so a
// January 31st subscription ends February 28th (or 29th).
func (s *Service) UpdateSubscription(ctx context.Context, tenantID, planID string, frequency tenant.BillingFrequency) (*tenant.Tenant, error) {
	if !tenant.ValidFrequency(frequency) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidFrequency, frequency)
	}

	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	p, err := s.plans.Get(ctx, planID)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, fmt.Errorf("%w: %s", ErrPlanInactive, planID)
	}

	start := s.now().UTC()
	var end time.Time
	if frequency == tenant.BillingYearly {
		end = addMonths(start, 12)
	} else {
		end = addMonths(start, 1)
	}

	t.PlanID = p.ID
	t.BillingFrequency = frequency
	t.SubscriptionStart = &start
	t.SubscriptionEnd = &end
	t.IsSubscriptionActive = true
	t.UpdatedAt = start
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}

	metrics.SubscriptionUpdatesTotal.WithLabelValues(string(frequency)).Inc()
	logging.L(ctx).Info("subscription updated",
		"tenant_id", t.ID, "plan_id", p.ID, "frequency", string(frequency),
		"subscription_end", end.Format(time.RFC3339))
	return t, nil
}

// UpdatePaidSeatCount sets the administrative seat ceiling. A decrease
// below live usage is refused unless force is set; forcing it is legal
// for operators but leaves the tenant flagged as needing a payment
// update, so it is logged loudly.
func (s *Service) UpdatePaidSeatCount(ctx context.Context, tenantID string, n int, force bool) (*tenant.Tenant, error) {
	if n < 0 {
		return nil, ErrNegativeSeats
	}
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	if n < t.PaidSeatCount {
		count, err := s.counter.CurrentSeatCount(ctx, t)
		if err != nil {
			return nil, err
		}
		if n < count {
			if !force {
				return nil, fmt.Errorf("%w: %d paid, %d in use", ErrSeatDecreaseBelowUsage, n, count)
			}
			logging.L(ctx).Warn("paid seats forced below live usage",
				"tenant_id", t.ID, "paid_seats", n, "current_seats", count)
		}
	}

	t.PaidSeatCount = n
	t.UpdatedAt = s.now().UTC()
	if err := s.tenants.Update(ctx, t); err != nil {
		return nil, err
	}
	logging.L(ctx).Info("paid seat count updated", "tenant_id", t.ID, "paid_seats", n)
	return t, nil
}

// Status is the billing snapshot for a tenant at one point in time.
type Status struct {
	TenantID             string          `json:"tenantId"`
	SchemaName           string          `json:"schemaName"`
	PlanID               string          `json:"planId,omitempty"`
	PlanName             string          `json:"planName,omitempty"`
	BillingFrequency     string          `json:"billingFrequency"`
	IsSubscriptionActive bool            `json:"isSubscriptionActive"`
	SubscriptionStart    *time.Time      `json:"subscriptionStart,omitempty"`
	SubscriptionEnd      *time.Time      `json:"subscriptionEnd,omitempty"`
	CurrentSeats         int             `json:"currentSeats"`
	PaidSeats            int             `json:"paidSeats"`
	BillableSeats        int             `json:"billableSeats"`
	MonthlyCost          decimal.Decimal `json:"monthlyCost"`
	NeedsPaymentUpdate   bool            `json:"needsPaymentUpdate"`
}

// BillingStatus assembles the current snapshot. It reads state and
// computes; calling it repeatedly changes nothing.
func (s *Service) BillingStatus(ctx context.Context, tenantID string) (*Status, error) {
	t, err := s.tenants.Get(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	var p *plan.Plan
	if t.PlanID != "" {
		p, err = s.plans.Get(ctx, t.PlanID)
		if err != nil && !errors.Is(err, plan.ErrPlanNotFound) {
			return nil, err
		}
	}

	count, err := s.counter.CurrentSeatCount(ctx, t)
	if err != nil {
		return nil, err
	}

	st := &Status{
		TenantID:             t.ID,
		SchemaName:           t.SchemaName,
		PlanID:               t.PlanID,
		BillingFrequency:     string(t.BillingFrequency),
		IsSubscriptionActive: t.IsSubscriptionActive,
		SubscriptionStart:    t.SubscriptionStart,
		SubscriptionEnd:      t.SubscriptionEnd,
		CurrentSeats:         count,
		PaidSeats:            t.PaidSeatCount,
		MonthlyCost:          MonthlyCost(t, p, count).Round(2),
		NeedsPaymentUpdate:   NeedsPaymentUpdate(t, count),
	}
	if p != nil {
		st.PlanName = p.Name
		st.BillableSeats = BillableSeats(p, count)
	}
	return st, nil
}

// addMonths advances by whole calendar months, clamping the day to the
// last day of the target month instead of letting it spill over the
// way time.AddDate does.
func addMonths(t time.Time, months int) time.Time {
	year, month, day := t.Date()
	first := time.Date(year, month+time.Month(months), 1, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
	last := first.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), t.Location())
}
