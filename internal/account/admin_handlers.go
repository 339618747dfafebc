package account

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/tenant"
)

// AdminHandler provisions users in a tenant's schema by tenant id,
// without tenant resolution or a bearer token. A freshly onboarded
// tenant has an empty directory and nobody who can log in, so its
// first user always arrives through this surface.
type AdminHandler struct {
	provider Provider
	tenants  tenant.Store
	binder   schema.Binder
}

func NewAdminHandler(provider Provider, tenants tenant.Store, binder schema.Binder) *AdminHandler {
	return &AdminHandler{provider: provider, tenants: tenants, binder: binder}
}

// RegisterAdminRoutes mounts operator user provisioning. The group must
// be behind the admin secret.
func (h *AdminHandler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/tenants/:id/users", h.CreateUser)
}

// CreateUser handles POST /admin/v1/tenants/:id/users. The operator
// surface is not seat-gated; seat limits bind tenant self-service, and
// the operator is the one who adjusts them.
func (h *AdminHandler) CreateUser(c *gin.Context) {
	ctx := c.Request.Context()

	t, err := h.tenants.Get(ctx, c.Param("id"))
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
			return
		}
		logging.L(ctx).Error("tenant lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	b, err := h.binder.Bind(ctx, t.SchemaName)
	if err != nil {
		logging.L(ctx).Error("schema bind failed",
			"tenant_id", t.ID, "schema", t.SchemaName, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "tenant_unavailable"})
		return
	}
	defer func() {
		if err := b.Release(ctx); err != nil {
			logging.L(ctx).Error("schema release failed",
				"tenant_id", t.ID, "schema", t.SchemaName, "error", err)
		}
	}()

	u, ok := userFromRequest(c)
	if !ok {
		return
	}
	createUser(c, h.provider.Users(b), u)
}
