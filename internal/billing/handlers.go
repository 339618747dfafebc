package billing

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/plan"
	"github.com/fieldserve/fieldserve/internal/tenant"
)

// Handler exposes billing over HTTP, both tenant-facing (acting on the
// tenant resolved for the request) and operator-facing (by tenant id).
type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts tenant-scoped billing. The group must be
// behind the tenant middleware.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/billing", h.TenantBillingStatus)
	r.POST("/billing/subscription", h.TenantUpdateSubscription)
}

// RegisterAdminRoutes mounts operator billing by tenant id.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.GET("/tenants/:id/billing", h.BillingStatus)
	r.POST("/tenants/:id/subscription", h.UpdateSubscription)
	r.PUT("/tenants/:id/seats", h.UpdatePaidSeats)
}

func (h *Handler) TenantBillingStatus(c *gin.Context) {
	t, ok := tenant.Current(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		return
	}
	h.respondStatus(c, t.ID)
}

func (h *Handler) BillingStatus(c *gin.Context) {
	h.respondStatus(c, c.Param("id"))
}

func (h *Handler) respondStatus(c *gin.Context, tenantID string) {
	st, err := h.service.BillingStatus(c.Request.Context(), tenantID)
	if err != nil {
		if errors.Is(err, tenant.ErrTenantNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
			return
		}
		logging.L(c.Request.Context()).Error("billing status failed",
			"tenant_id", tenantID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.JSON(http.StatusOK, st)
}

type updateSubscriptionRequest struct {
	PlanID    string `json:"planId" binding:"required"`
	Frequency string `json:"frequency" binding:"required"`
}

func (h *Handler) TenantUpdateSubscription(c *gin.Context) {
	t, ok := tenant.Current(c)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		return
	}
	h.updateSubscription(c, t.ID)
}

func (h *Handler) UpdateSubscription(c *gin.Context) {
	h.updateSubscription(c, c.Param("id"))
}

func (h *Handler) updateSubscription(c *gin.Context, tenantID string) {
	var req updateSubscriptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	t, err := h.service.UpdateSubscription(ctx, tenantID, req.PlanID,
		tenant.BillingFrequency(req.Frequency))
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		case errors.Is(err, plan.ErrPlanNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "plan_not_found"})
		case errors.Is(err, ErrInvalidFrequency), errors.Is(err, ErrPlanInactive):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_subscription", "details": err.Error()})
		default:
			logging.L(ctx).Error("subscription update failed",
				"tenant_id", tenantID, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "subscription updated",
		"tenant":  t,
	})
}

type updateSeatsRequest struct {
	PaidSeats *int `json:"paidSeats" binding:"required"`
	Force     bool `json:"force"`
}

func (h *Handler) UpdatePaidSeats(c *gin.Context) {
	var req updateSeatsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}

	ctx := c.Request.Context()
	t, err := h.service.UpdatePaidSeatCount(ctx, c.Param("id"), *req.PaidSeats, req.Force)
	if err != nil {
		switch {
		case errors.Is(err, tenant.ErrTenantNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		case errors.Is(err, ErrNegativeSeats), errors.Is(err, ErrSeatDecreaseBelowUsage):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_seat_count", "details": err.Error()})
		default:
			logging.L(ctx).Error("seat update failed",
				"tenant_id", c.Param("id"), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "paid seat count updated",
		"paidSeats": t.PaidSeatCount,
	})
}
