// Package organisation holds the single Company record each tenant
// maintains about itself.
package organisation

import (
	"errors"
	"time"
)

var (
	ErrCompanyNotFound = errors.New("company not found")
	// ErrCompanyExists is returned when creating a second company;
	// each tenant has exactly one.
	ErrCompanyExists = errors.New("company already exists")
)

// Company is the tenant's own organisation. Singleton per schema.
type Company struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"addressLine1,omitempty"`
	AddressLine2 string `json:"addressLine2,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
	Country      string `json:"country,omitempty"`

	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`

	TaxNumber          string `json:"taxNumber,omitempty"`
	RegistrationNumber string `json:"registrationNumber,omitempty"`

	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`

	EstablishedDate *time.Time `json:"establishedDate,omitempty"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

// Defaults used when the record is first created.
const (
	DefaultPrimaryColor   = "#3B82F6"
	DefaultSecondaryColor = "#1E40AF"
)
