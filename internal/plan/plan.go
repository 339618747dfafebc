// Package plan provides the subscription plan catalogue.
package plan

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Errors
var (
	ErrPlanNotFound = errors.New("plan: not found")
)

// Tier identifies the pricing tier.
type Tier string

const (
	TierBasic      Tier = "basic"
	TierPro        Tier = "pro"
	TierEnterprise Tier = "enterprise"
)

// ValidTier returns true if the tier name is recognised.
func ValidTier(t Tier) bool {
	switch t {
	case TierBasic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// Plan is a priced subscription tier. The base price covers IncludedSeats
// users; seats beyond that are billed per seat. Yearly prices are optional.
// Prices are exact decimals; rounding happens only at the presentation edge.
type Plan struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Tier        Tier   `json:"tier"`
	Description string `json:"description,omitempty"`

	BaseMonthly    decimal.Decimal     `json:"baseMonthly"`
	BaseYearly     decimal.NullDecimal `json:"baseYearly,omitempty"`
	PerSeatMonthly decimal.Decimal     `json:"perSeatMonthly"`
	PerSeatYearly  decimal.NullDecimal `json:"perSeatYearly,omitempty"`

	IncludedSeats int            `json:"includedSeats"`
	IsActive      bool           `json:"isActive"`
	Features      map[string]any `json:"features,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// DefaultCatalogue returns the built-in plans used in demo mode and as
// seed data. Production catalogues live in the plans table.
func DefaultCatalogue() []*Plan {
	now := time.Now()
	dec := decimal.RequireFromString
	opt := func(s string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: dec(s), Valid: true}
	}
	return []*Plan{
		{
			ID:             "plan_basic",
			Name:           "Basic",
			Tier:           TierBasic,
			BaseMonthly:    dec("49.99"),
			BaseYearly:     opt("499.99"),
			PerSeatMonthly: dec("9.99"),
			PerSeatYearly:  opt("99.99"),
			IncludedSeats:  2,
			IsActive:       true,
			Features:       map[string]any{"helpdesk": true},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "plan_pro",
			Name:           "Pro",
			Tier:           TierPro,
			BaseMonthly:    dec("149.99"),
			BaseYearly:     opt("1499.99"),
			PerSeatMonthly: dec("7.99"),
			PerSeatYearly:  opt("79.99"),
			IncludedSeats:  10,
			IsActive:       true,
			Features:       map[string]any{"helpdesk": true, "warehouse": true},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:             "plan_enterprise",
			Name:           "Enterprise",
			Tier:           TierEnterprise,
			BaseMonthly:    dec("499.99"),
			BaseYearly:     opt("4999.99"),
			PerSeatMonthly: dec("4.99"),
			PerSeatYearly:  opt("49.99"),
			IncludedSeats:  50,
			IsActive:       true,
			Features:       map[string]any{"helpdesk": true, "warehouse": true, "finance": true},
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}
