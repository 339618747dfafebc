package auth

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldserve/fieldserve/internal/account"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Handler serves login within a tenant. Credentials are checked
// against the tenant's own user directory.
type Handler struct {
	manager  *Manager
	accounts account.Provider
}

func NewHandler(manager *Manager, accounts account.Provider) *Handler {
	return &Handler{manager: manager, accounts: accounts}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/auth/login", h.Login)
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func (h *Handler) Login(c *gin.Context) {
	b, ok := schema.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		return
	}
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request"})
		return
	}

	ctx := c.Request.Context()
	u, err := h.accounts.Users(b).GetByEmail(ctx, validation.NormalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, account.ErrUserNotFound) {
			// Same answer as a wrong password, so emails cannot be
			// probed through the login route.
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
			return
		}
		logging.L(ctx).Error("login lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid_credentials"})
		return
	}
	if !u.IsActive {
		c.JSON(http.StatusForbidden, gin.H{"error": "user_inactive"})
		return
	}

	token, err := h.manager.Issue(u.ID, u.Email, b.Schema())
	if err != nil {
		logging.L(ctx).Error("token issue failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}

	logging.L(ctx).Info("user logged in", "user_id", u.ID.String())
	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  u,
	})
}
