// Package tenant provides the tenant registry and request routing for the
// FieldServe platform. Every tenant owns a database schema; the registry
// maps selector headers and hostnames onto those schemas.
package tenant

import (
	"errors"
	"time"
)

// Errors
var (
	ErrTenantNotFound = errors.New("tenant: not found")
	ErrSchemaTaken    = errors.New("tenant: schema name already taken")
	ErrDomainNotFound = errors.New("tenant: domain not found")
	ErrDomainTaken    = errors.New("tenant: domain already bound")
)

// BillingFrequency is how often a tenant's subscription is billed.
type BillingFrequency string

const (
	BillingMonthly BillingFrequency = "monthly"
	BillingYearly  BillingFrequency = "yearly"
)

// ValidFrequency returns true if the billing frequency is recognised.
func ValidFrequency(f BillingFrequency) bool {
	return f == BillingMonthly || f == BillingYearly
}

// Tenant is a client organisation using the platform. SchemaName is both
// the routing key and the physical namespace for the tenant's own data.
//
// PaidSeatCount is an administratively set ceiling, not derived from usage;
// the automated paths never lower it below live usage.
type Tenant struct {
	ID         string `json:"id"`
	SchemaName string `json:"schemaName"`
	Name       string `json:"name"`

	PlanID                string           `json:"planId,omitempty"`
	SubscriptionStart     *time.Time       `json:"subscriptionStart,omitempty"`
	SubscriptionEnd       *time.Time       `json:"subscriptionEnd,omitempty"`
	IsSubscriptionActive  bool             `json:"isSubscriptionActive"`
	BillingFrequency      BillingFrequency `json:"billingFrequency"`
	PaidSeatCount         int              `json:"paidSeatCount"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Domain binds a hostname to exactly one tenant. IsPrimary marks the
// canonical hostname; the rest are aliases.
type Domain struct {
	ID        string    `json:"id"`
	Hostname  string    `json:"hostname"`
	TenantID  string    `json:"tenantId"`
	IsPrimary bool      `json:"isPrimary"`
	CreatedAt time.Time `json:"createdAt"`
}
