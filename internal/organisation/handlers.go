package organisation

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Handler serves the tenant's company record. Get-or-create: reading
// before setup returns a default record without persisting it.
type Handler struct {
	provider Provider
}

func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/company", h.Get)
	r.PUT("/company", h.Update)
}

func (h *Handler) store(c *gin.Context) (Store, bool) {
	b, ok := schema.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		return nil, false
	}
	return h.provider.Company(b), true
}

func (h *Handler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	company, err := store.Get(c.Request.Context())
	if err != nil {
		if errors.Is(err, ErrCompanyNotFound) {
			c.JSON(http.StatusOK, defaultCompany())
			return
		}
		logging.L(c.Request.Context()).Error("company get failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, company)
}

type updateCompanyRequest struct {
	Name         string `json:"name" binding:"required"`
	AddressLine1 string `json:"addressLine1"`
	AddressLine2 string `json:"addressLine2"`
	City         string `json:"city"`
	State        string `json:"state"`
	PostalCode   string `json:"postalCode"`
	Country      string `json:"country"`

	Phone   string `json:"phone"`
	Email   string `json:"email"`
	Website string `json:"website"`

	TaxNumber          string `json:"taxNumber"`
	RegistrationNumber string `json:"registrationNumber"`

	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`

	EstablishedDate *time.Time `json:"establishedDate"`
}

// Update writes the singleton, creating it on first use.
func (h *Handler) Update(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	var req updateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}
	if req.Email != "" && !validation.IsValidEmail(req.Email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	company := &Company{
		Name:               validation.SanitizeString(req.Name, 255),
		AddressLine1:       req.AddressLine1,
		AddressLine2:       req.AddressLine2,
		City:               req.City,
		State:              req.State,
		PostalCode:         req.PostalCode,
		Country:            req.Country,
		Phone:              req.Phone,
		Email:              req.Email,
		Website:            req.Website,
		TaxNumber:          req.TaxNumber,
		RegistrationNumber: req.RegistrationNumber,
		PrimaryColor:       req.PrimaryColor,
		SecondaryColor:     req.SecondaryColor,
		EstablishedDate:    req.EstablishedDate,
		UpdatedAt:          now,
	}
	if company.PrimaryColor == "" {
		company.PrimaryColor = DefaultPrimaryColor
	}
	if company.SecondaryColor == "" {
		company.SecondaryColor = DefaultSecondaryColor
	}

	existing, err := store.Get(ctx)
	switch {
	case err == nil:
		company.CreatedAt = existing.CreatedAt
		err = store.Update(ctx, company)
	case errors.Is(err, ErrCompanyNotFound):
		company.CreatedAt = now
		err = store.Create(ctx, company)
	}
	if err != nil {
		logging.L(ctx).Error("company update failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, company)
}

func defaultCompany() *Company {
	return &Company{
		PrimaryColor:   DefaultPrimaryColor,
		SecondaryColor: DefaultSecondaryColor,
	}
}
