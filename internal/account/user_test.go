package account

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestValidateProfile(t *testing.T) {
	u := &User{ID: uuid.New(), Type: TypeAgent}
	assert.NoError(t, u.ValidateProfile())

	u.Profile = AgentProfile{CompanyName: "Acme Realty"}
	assert.NoError(t, u.ValidateProfile())

	u.Profile = EmployeeProfile{Department: "Field Ops"}
	assert.ErrorIs(t, u.ValidateProfile(), ErrProfileMismatch)

	u.Type = "contractor"
	assert.ErrorIs(t, u.ValidateProfile(), ErrInvalidUserType)
}

func TestGroupCapabilities(t *testing.T) {
	u := &User{Groups: []FunctionalGroup{GroupTechnician}}
	assert.True(t, u.CanAccessTechnicianTools())
	assert.False(t, u.CanAccessHelpdesk())
	assert.False(t, u.CanAccessWarehouse())

	// Admins can access everything.
	admin := &User{Groups: []FunctionalGroup{GroupAdmin}}
	assert.True(t, admin.CanAccessHelpdesk())
	assert.True(t, admin.CanAccessWarehouse())
	assert.True(t, admin.CanAccessTechnicianTools())
}

func TestValidGroup(t *testing.T) {
	assert.True(t, ValidGroup(GroupFinance))
	assert.False(t, ValidGroup("janitorial"))
}
