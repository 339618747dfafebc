package plan

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/fieldserve/fieldserve/internal/idgen"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Handler provides HTTP endpoints for the plan catalogue.
type Handler struct {
	store Store
}

// NewHandler creates a new plan handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

// RegisterRoutes sets up the read-only catalogue route.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/plans", h.ListPlans)
}

// RegisterAdminRoutes sets up catalogue management routes.
func (h *Handler) RegisterAdminRoutes(r *gin.RouterGroup) {
	r.POST("/plans", h.CreatePlan)
	r.PATCH("/plans/:id", h.UpdatePlan)
}

// ListPlans handles GET /plans. Active plans only.
func (h *Handler) ListPlans(c *gin.Context) {
	plans, err := h.store.ListActive(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("list plans failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to list plans"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"plans": plans, "count": len(plans)})
}

type planRequest struct {
	Name           string         `json:"name" binding:"required"`
	Tier           Tier           `json:"tier" binding:"required"`
	Description    string         `json:"description"`
	BaseMonthly    string         `json:"baseMonthly" binding:"required"`
	BaseYearly     string         `json:"baseYearly"`
	PerSeatMonthly string         `json:"perSeatMonthly" binding:"required"`
	PerSeatYearly  string         `json:"perSeatYearly"`
	IncludedSeats  int            `json:"includedSeats"`
	Features       map[string]any `json:"features"`
}

// CreatePlan handles POST /admin/plans.
func (h *Handler) CreatePlan(c *gin.Context) {
	var req planRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "name, tier, and monthly prices required"})
		return
	}
	if !ValidTier(req.Tier) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_tier", "message": "tier must be basic, pro, or enterprise"})
		return
	}
	if req.IncludedSeats < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "includedSeats must not be negative"})
		return
	}

	prices, ok := parsePrices(c, req)
	if !ok {
		return
	}

	now := time.Now()
	p := &Plan{
		ID:             idgen.WithPrefix("plan_"),
		Name:           validation.SanitizeString(req.Name, 100),
		Tier:           req.Tier,
		Description:    validation.SanitizeString(req.Description, 1000),
		BaseMonthly:    prices.baseMonthly,
		BaseYearly:     prices.baseYearly,
		PerSeatMonthly: prices.perSeatMonthly,
		PerSeatYearly:  prices.perSeatYearly,
		IncludedSeats:  req.IncludedSeats,
		IsActive:       true,
		Features:       req.Features,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := h.store.Create(c.Request.Context(), p); err != nil {
		logging.L(c.Request.Context()).Error("create plan failed", "plan", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to create plan"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"plan": p})
}

// UpdatePlan handles PATCH /admin/plans/:id. Only activation state and
// descriptive fields may change; prices on a referenced plan stay fixed.
func (h *Handler) UpdatePlan(c *gin.Context) {
	p, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if err == ErrPlanNotFound {
			c.JSON(http.StatusNotFound, gin.H{"error": "not_found", "message": "plan not found"})
			return
		}
		logging.L(c.Request.Context()).Error("get plan failed", "plan", c.Param("id"), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to load plan"})
		return
	}

	var req struct {
		Name        *string         `json:"name"`
		Description *string         `json:"description"`
		IsActive    *bool           `json:"isActive"`
		Features    *map[string]any `json:"features"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "message": "invalid body"})
		return
	}

	if req.Name != nil {
		p.Name = validation.SanitizeString(*req.Name, 100)
	}
	if req.Description != nil {
		p.Description = validation.SanitizeString(*req.Description, 1000)
	}
	if req.IsActive != nil {
		p.IsActive = *req.IsActive
	}
	if req.Features != nil {
		p.Features = *req.Features
	}
	p.UpdatedAt = time.Now()

	if err := h.store.Update(c.Request.Context(), p); err != nil {
		logging.L(c.Request.Context()).Error("update plan failed", "plan", p.ID, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error", "message": "failed to update plan"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"plan": p})
}

type parsedPrices struct {
	baseMonthly    decimal.Decimal
	baseYearly     decimal.NullDecimal
	perSeatMonthly decimal.Decimal
	perSeatYearly  decimal.NullDecimal
}

func parsePrices(c *gin.Context, req planRequest) (parsedPrices, bool) {
	var out parsedPrices

	parse := func(field, value string) (decimal.Decimal, bool) {
		d, perr := decimal.NewFromString(value)
		if perr != nil || d.IsNegative() {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "invalid_price",
				"message": field + " must be a non-negative decimal",
			})
			return decimal.Decimal{}, false
		}
		return d, true
	}

	var ok bool
	if out.baseMonthly, ok = parse("baseMonthly", req.BaseMonthly); !ok {
		return out, false
	}
	if out.perSeatMonthly, ok = parse("perSeatMonthly", req.PerSeatMonthly); !ok {
		return out, false
	}
	if req.BaseYearly != "" {
		var d decimal.Decimal
		if d, ok = parse("baseYearly", req.BaseYearly); !ok {
			return out, false
		}
		out.baseYearly = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	if req.PerSeatYearly != "" {
		var d decimal.Decimal
		if d, ok = parse("perSeatYearly", req.PerSeatYearly); !ok {
			return out, false
		}
		out.perSeatYearly = decimal.NullDecimal{Decimal: d, Valid: true}
	}
	return out, true
}
