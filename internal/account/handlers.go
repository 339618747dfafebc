package account

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/validation"
)

// Handler serves the tenant-scoped user directory. All routes assume
// the tenant middleware has bound a schema for the request.
type Handler struct {
	provider Provider
}

func NewHandler(provider Provider) *Handler {
	return &Handler{provider: provider}
}

// RegisterRoutes mounts the user CRUD routes. The register route is
// passed separately so the caller can put the admission gate in front
// of it and nothing else.
func (h *Handler) RegisterRoutes(r *gin.RouterGroup, gate ...gin.HandlerFunc) {
	create := append(append([]gin.HandlerFunc{}, gate...), h.Register)
	r.POST("/users", create...)
	r.GET("/users", h.List)
	r.GET("/users/:id", h.Get)
	r.PATCH("/users/:id", h.Update)
	r.DELETE("/users/:id", h.Delete)
	r.GET("/users/:id/profile", h.GetProfile)
}

func (h *Handler) store(c *gin.Context) (Store, bool) {
	b, ok := schema.FromContext(c.Request.Context())
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "tenant_not_found"})
		return nil, false
	}
	return h.provider.Users(b), true
}

type registerRequest struct {
	Email     string            `json:"email" binding:"required"`
	Password  string            `json:"password" binding:"required,min=8"`
	FirstName string            `json:"firstName"`
	LastName  string            `json:"lastName"`
	UserType  string            `json:"userType" binding:"required"`
	Profile   json.RawMessage   `json:"profile"`
	Contact   *Contact          `json:"contact"`
	Groups    []FunctionalGroup `json:"groups"`
}

func (h *Handler) Register(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	u, ok := userFromRequest(c)
	if !ok {
		return
	}
	createUser(c, store, u)
}

// userFromRequest parses and validates a registration payload into a
// ready-to-store User. On failure it writes the error response and
// returns false.
func userFromRequest(c *gin.Context) (*User, bool) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return nil, false
	}

	email := validation.NormalizeEmail(req.Email)
	if !validation.IsValidEmail(email) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
		return nil, false
	}
	userType := Type(req.UserType)
	if !ValidType(userType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_type"})
		return nil, false
	}
	for _, g := range req.Groups {
		if !ValidGroup(g) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_group", "details": string(g)})
			return nil, false
		}
	}

	var profile Profile
	if len(req.Profile) > 0 {
		p, err := unmarshalProfile(userType, req.Profile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile", "details": err.Error()})
			return nil, false
		}
		profile = p
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		logging.L(c.Request.Context()).Error("password hash failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return nil, false
	}

	now := time.Now().UTC()
	return &User{
		ID:           uuid.New(),
		Email:        email,
		FirstName:    validation.SanitizeString(req.FirstName, 150),
		LastName:     validation.SanitizeString(req.LastName, 150),
		Type:         userType,
		Profile:      profile,
		Contact:      req.Contact,
		Groups:       req.Groups,
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, true
}

// createUser stores u and writes the creation response.
func createUser(c *gin.Context, store Store, u *User) {
	if err := store.Create(c.Request.Context(), u); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		case errors.Is(err, ErrProfileMismatch), errors.Is(err, ErrInvalidUserType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile"})
		default:
			logging.L(c.Request.Context()).Error("user create failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}

	logging.L(c.Request.Context()).Info("user registered",
		"user_id", u.ID.String(), "user_type", string(u.Type))
	c.JSON(http.StatusCreated, u)
}

func (h *Handler) List(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	users, err := store.List(c.Request.Context())
	if err != nil {
		logging.L(c.Request.Context()).Error("user list failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	if users == nil {
		users = []*User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users})
}

func (h *Handler) Get(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	u, ok := h.lookup(c, store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) GetProfile(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	u, ok := h.lookup(c, store)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"userType": u.Type,
		"profile":  u.Profile,
		"contact":  u.Contact,
	})
}

type updateRequest struct {
	Email     *string            `json:"email"`
	FirstName *string            `json:"firstName"`
	LastName  *string            `json:"lastName"`
	Profile   json.RawMessage    `json:"profile"`
	Contact   *Contact           `json:"contact"`
	Groups    *[]FunctionalGroup `json:"groups"`
	IsActive  *bool              `json:"isActive"`
}

func (h *Handler) Update(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	u, ok := h.lookup(c, store)
	if !ok {
		return
	}
	var req updateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request", "details": err.Error()})
		return
	}

	if req.Email != nil {
		email := validation.NormalizeEmail(*req.Email)
		if !validation.IsValidEmail(email) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_email"})
			return
		}
		u.Email = email
	}
	if req.FirstName != nil {
		u.FirstName = validation.SanitizeString(*req.FirstName, 150)
	}
	if req.LastName != nil {
		u.LastName = validation.SanitizeString(*req.LastName, 150)
	}
	if len(req.Profile) > 0 {
		p, err := unmarshalProfile(u.Type, req.Profile)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_profile", "details": err.Error()})
			return
		}
		u.Profile = p
	}
	if req.Contact != nil {
		u.Contact = req.Contact
	}
	if req.Groups != nil {
		for _, g := range *req.Groups {
			if !ValidGroup(g) {
				c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_group", "details": string(g)})
				return
			}
		}
		u.Groups = *req.Groups
	}
	if req.IsActive != nil {
		u.IsActive = *req.IsActive
	}

	if err := store.Update(c.Request.Context(), u); err != nil {
		switch {
		case errors.Is(err, ErrEmailTaken):
			c.JSON(http.StatusConflict, gin.H{"error": "email_taken"})
		case errors.Is(err, ErrUserNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
		default:
			logging.L(c.Request.Context()).Error("user update failed", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		}
		return
	}
	c.JSON(http.StatusOK, u)
}

func (h *Handler) Delete(c *gin.Context) {
	store, ok := h.store(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return
	}
	if err := store.Delete(c.Request.Context(), id); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return
		}
		logging.L(c.Request.Context()).Error("user delete failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) lookup(c *gin.Context, store Store) (*User, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_user_id"})
		return nil, false
	}
	u, err := store.Get(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "user_not_found"})
			return nil, false
		}
		logging.L(c.Request.Context()).Error("user lookup failed", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
		return nil, false
	}
	return u, true
}
