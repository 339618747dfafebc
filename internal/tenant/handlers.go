package tenant

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/idgen"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Provisioner creates the per-tenant schema and its objects. The
// PostgreSQL implementation runs CREATE SCHEMA plus the tenant DDL; the
// in-memory one registers the name with the memory binder.
type Provisioner interface {
	Provision(ctx context.Context, schemaName string) error
}

// ProvisionFunc adapts a function to the Provisioner interface.
type ProvisionFunc func(ctx context.Context, schemaName string) error

func (f ProvisionFunc) Provision(ctx context.Context, schemaName string) error {
	return f(ctx, schemaName)
}

// Handler exposes tenant onboarding and domain management. All routes
// are operator-facing and registered behind the admin middleware.
type Handler struct {
	store       Store
	provisioner Provisioner
	public      string
}

func NewHandler(store Store, provisioner Provisioner, publicSchema string) *Handler {
	return &Handler{store: store, provisioner: provisioner, public: publicSchema}
}

// RegisterAdminRoutes mounts tenant management under the given group.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/tenants", h.CreateTenant)
	r.GET("/tenants", h.ListTenants)
	r.GET("/tenants/:id", h.GetTenant)
	r.POST("/tenants/:id/domains", h.AddDomain)
	r.GET("/tenants/:id/domains", h.ListDomains)
	r.DELETE("/tenants/:id/domains/:hostname", h.RemoveDomain)
}

type createTenantRequest struct {
	SchemaName string `json:"schemaName" binding:"required"`
	Name       string `json:"name" binding:"required"`
	Hostname   string `json:"hostname"`
}

type tenantResponse struct {
	ID                   string     `json:"id"`
	SchemaName           string     `json:"schemaName"`
	Name                 string     `json:"name"`
	PlanID               string     `json:"planId,omitempty"`
	SubscriptionStart    *time.Time `json:"subscriptionStart,omitempty"`
	SubscriptionEnd      *time.Time `json:"subscriptionEnd,omitempty"`
	IsSubscriptionActive bool       `json:"isSubscriptionActive"`
	BillingFrequency     string     `json:"billingFrequency"`
	PaidSeatCount        int        `json:"paidSeatCount"`
	CreatedAt            time.Time  `json:"createdAt"`
}

func toTenantResponse(t *Tenant) tenantResponse {
	return tenantResponse{
		ID:                   t.ID,
		SchemaName:           t.SchemaName,
		Name:                 t.Name,
		PlanID:               t.PlanID,
		SubscriptionStart:    t.SubscriptionStart,
		SubscriptionEnd:      t.SubscriptionEnd,
		IsSubscriptionActive: t.IsSubscriptionActive,
		BillingFrequency:     string(t.BillingFrequency),
		PaidSeatCount:        t.PaidSeatCount,
		CreatedAt:            t.CreatedAt,
	}
}

// CreateTenant registers a tenant, provisions its schema and optionally
// attaches a primary domain in one call.
func (h *Handler) CreateTenant(c *gin.Context) {
	var req createTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}

	name := strings.ToLower(strings.TrimSpace(req.SchemaName))
	if !schema.ValidName(name) || name == h.public {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_schema_name"})
		return
	}
	if req.Hostname != "" && !validation.IsValidHostname(req.Hostname) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_hostname"})
		return
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	t := &Tenant{
		ID:               idgen.WithPrefix("tnt_"),
		SchemaName:       name,
		Name:             validation.SanitizeString(req.Name, 255),
		BillingFrequency: BillingMonthly,
		PaidSeatCount:    0,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := h.store.Create(ctx, t); err != nil {
		if errors.Is(err, ErrSchemaTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "schema_taken"})
			return
		}
		logging.L(ctx).Error("tenant create failed", "schema", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if err := h.provisioner.Provision(ctx, name); err != nil {
		logging.L(ctx).Error("schema provisioning failed", "schema", name, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "provisioning_failed"})
		return
	}

	if req.Hostname != "" {
		d := &Domain{
			ID:        idgen.WithPrefix("dom_"),
			Hostname:  strings.ToLower(req.Hostname),
			TenantID:  t.ID,
			IsPrimary: true,
			CreatedAt: now,
		}
		if err := h.store.AddDomain(ctx, d); err != nil {
			if errors.Is(err, ErrDomainTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "domain_taken"})
				return
			}
			logging.L(ctx).Error("domain attach failed", "hostname", d.Hostname, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
	}

	logging.L(ctx).Info("tenant created", "tenant_id", t.ID, "schema", name)
	c.JSON(http.StatusCreated, toTenantResponse(t))
}

func (h *Handler) ListTenants(c *gin.Context) {
	tenants, err := h.store.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("tenant list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	out := make([]tenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, toTenantResponse(t))
	}
	c.JSON(http.StatusOK, gin.H{"tenants": out})
}

func (h *Handler) GetTenant(c *gin.Context) {
	t, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, toTenantResponse(t))
}

type addDomainRequest struct {
	Hostname  string `json:"hostname" binding:"required"`
	IsPrimary bool   `json:"isPrimary"`
}

func (h *Handler) AddDomain(c *gin.Context) {
	var req addDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}
	if !validation.IsValidHostname(req.Hostname) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_hostname"})
		return
	}

	ctx := c.Request.Context()
	t, err := h.store.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	d := &Domain{
		ID:        idgen.WithPrefix("dom_"),
		Hostname:  strings.ToLower(req.Hostname),
		TenantID:  t.ID,
		IsPrimary: req.IsPrimary,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.store.AddDomain(ctx, d); err != nil {
		if errors.Is(err, ErrDomainTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "domain_taken"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusCreated, d)
}

func (h *Handler) ListDomains(c *gin.Context) {
	ctx := c.Request.Context()
	if _, err := h.store.Get(ctx, c.Param("id")); err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	domains, err := h.store.ListDomains(ctx, c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if domains == nil {
		domains = []*Domain{}
	}
	c.JSON(http.StatusOK, gin.H{"domains": domains})
}

func (h *Handler) RemoveDomain(c *gin.Context) {
	err := h.store.RemoveDomain(c.Request.Context(), c.Param("hostname"))
	if err != nil {
		if errors.Is(err, ErrDomainNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "domain_not_found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Status(http.StatusNoContent)
}
