// Package account manages the per-tenant user directory. Every user
// lives in their tenant's schema; nothing in this package ever
// addresses the shared schema.
package account

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrEmailTaken      = errors.New("email already registered")
	ErrInvalidUserType = errors.New("invalid user type")
	// ErrProfileMismatch is returned when a profile variant does not
	// match the user's declared type.
	ErrProfileMismatch = errors.New("profile does not match user type")
)

// Type discriminates the closed set of user kinds.
type Type string

const (
	TypeAgent    Type = "agent"
	TypeClient   Type = "client"
	TypeEmployee Type = "employee"
)

func ValidType(t Type) bool {
	switch t {
	case TypeAgent, TypeClient, TypeEmployee:
		return true
	}
	return false
}

// Profile is the type-specific payload attached to a user. The set of
// implementations is closed: switching over them is exhaustive.
type Profile interface {
	userType() Type
}

// AgentProfile describes external field agents.
type AgentProfile struct {
	CompanyName       string `json:"companyName"`
	LicenseNumber     string `json:"licenseNumber,omitempty"`
	YearsOfExperience int    `json:"yearsOfExperience"`
}

// ClientProfile describes customer-side users.
type ClientProfile struct {
	CompanyName string     `json:"companyName"`
	Industry    string     `json:"industry,omitempty"`
	ClientSince *time.Time `json:"clientSince,omitempty"`
}

// EmployeeProfile describes internal staff.
type EmployeeProfile struct {
	Department string     `json:"department"`
	EmployeeID string     `json:"employeeId,omitempty"`
	JobTitle   string     `json:"jobTitle,omitempty"`
	StartDate  *time.Time `json:"startDate,omitempty"`
}

func (AgentProfile) userType() Type    { return TypeAgent }
func (ClientProfile) userType() Type   { return TypeClient }
func (EmployeeProfile) userType() Type { return TypeEmployee }

// Contact holds the address-book details shared by all user types.
type Contact struct {
	PhoneNumber      string     `json:"phoneNumber,omitempty"`
	EmergencyContact string     `json:"emergencyContact,omitempty"`
	EmergencyName    string     `json:"emergencyName,omitempty"`
	StreetNumber     string     `json:"streetNumber,omitempty"`
	StreetName       string     `json:"streetName,omitempty"`
	Suburb           string     `json:"suburb,omitempty"`
	City             string     `json:"city,omitempty"`
	State            string     `json:"state,omitempty"`
	PostalCode       string     `json:"postalCode,omitempty"`
	Country          string     `json:"country,omitempty"`
	DateOfBirth      *time.Time `json:"dateOfBirth,omitempty"`
}

// FunctionalGroup is a capability grouping within a tenant.
type FunctionalGroup string

const (
	GroupAdministration FunctionalGroup = "administration"
	GroupHelpdesk       FunctionalGroup = "helpdesk"
	GroupTechnician     FunctionalGroup = "technician"
	GroupAgent          FunctionalGroup = "agent"
	GroupClient         FunctionalGroup = "client"
	GroupWarehouse      FunctionalGroup = "warehouse"
	GroupAdmin          FunctionalGroup = "admin"
	GroupFinance        FunctionalGroup = "finance"
	GroupManagement     FunctionalGroup = "management"
)

// ValidGroup reports whether the code names a known functional group.
func ValidGroup(g FunctionalGroup) bool {
	switch g {
	case GroupAdministration, GroupHelpdesk, GroupTechnician, GroupAgent,
		GroupClient, GroupWarehouse, GroupAdmin, GroupFinance, GroupManagement:
		return true
	}
	return false
}

// User is one seat in a tenant. The Profile variant always matches
// Type; stores reject mismatches on write.
type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Type      Type      `json:"userType"`
	Profile   Profile   `json:"profile,omitempty"`
	Contact   *Contact  `json:"contact,omitempty"`

	Groups []FunctionalGroup `json:"groups,omitempty"`

	PasswordHash string `json:"-"`
	IsActive     bool   `json:"isActive"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// UnmarshalJSON decodes the profile variant according to the declared
// user type.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		Profile json.RawMessage `json:"profile,omitempty"`
	}{alias: (*alias)(u)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if len(aux.Profile) > 0 && string(aux.Profile) != "null" {
		p, err := unmarshalProfile(u.Type, aux.Profile)
		if err != nil {
			return err
		}
		u.Profile = p
	}
	return nil
}

// BelongsTo reports membership in a functional group.
func (u *User) BelongsTo(g FunctionalGroup) bool {
	for _, have := range u.Groups {
		if have == g {
			return true
		}
	}
	return false
}

func (u *User) isAdmin() bool { return u.BelongsTo(GroupAdmin) }

// CanAccessHelpdesk reports whether the user may open helpdesk views.
func (u *User) CanAccessHelpdesk() bool {
	return u.BelongsTo(GroupHelpdesk) || u.isAdmin()
}

// CanAccessWarehouse reports whether the user may manage stock.
func (u *User) CanAccessWarehouse() bool {
	return u.BelongsTo(GroupWarehouse) || u.isAdmin()
}

// CanAccessTechnicianTools reports whether the user may use field tools.
func (u *User) CanAccessTechnicianTools() bool {
	return u.BelongsTo(GroupTechnician) || u.isAdmin()
}

// ValidateProfile checks that the attached profile variant agrees with
// the declared user type. A nil profile is allowed.
func (u *User) ValidateProfile() error {
	if !ValidType(u.Type) {
		return ErrInvalidUserType
	}
	if u.Profile == nil {
		return nil
	}
	if u.Profile.userType() != u.Type {
		return ErrProfileMismatch
	}
	return nil
}
