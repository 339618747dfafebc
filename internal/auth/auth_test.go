package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/tenant"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestIssueAndVerify(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	id := uuid.New()

	token, err := m.Issue(id, "sam@acme.test", "acme")
	require.NoError(t, err)

	claims, err := m.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, id.String(), claims.UserID)
	assert.Equal(t, "sam@acme.test", claims.Email)
	assert.Equal(t, "acme", claims.Schema)
}

func TestVerifyRejectsExpiredAndForeign(t *testing.T) {
	m := NewManager(testSecret, time.Hour)
	token, err := m.Issue(uuid.New(), "sam@acme.test", "acme")
	require.NoError(t, err)

	// Same token against a manager with a different secret.
	other := NewManager("another-secret-another-secret-12", time.Hour)
	_, err = other.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	// Expired token.
	m.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = m.Verify(token)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = m.Verify("not.a.token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRequireAuthTenantMismatch(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(testSecret, time.Hour)
	token, err := m.Issue(uuid.New(), "sam@acme.test", "acme")
	require.NoError(t, err)

	r := gin.New()
	r.GET("/me", func(c *gin.Context) {
		// Request resolved to a different tenant than the token's.
		c.Request = c.Request.WithContext(tenant.WithTenant(c.Request.Context(),
			&tenant.Tenant{ID: "tnt_globex", SchemaName: "globex"}))
	}, RequireAuth(m), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "token_tenant_mismatch")
}

func TestRequireAuthSetsPrincipal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m := NewManager(testSecret, time.Hour)
	id := uuid.New()
	token, err := m.Issue(id, "sam@acme.test", "acme")
	require.NoError(t, err)

	var principal *Principal
	r := gin.New()
	r.GET("/me", RequireAuth(m), func(c *gin.Context) {
		p, ok := PrincipalFromContext(c.Request.Context())
		require.True(t, ok)
		principal = p
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, id, principal.UserID)

	// Missing and malformed headers are rejected.
	for _, header := range []string{"", "Bearer", "Basic xyz", "Bearer "} {
		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "header %q", header)
	}
}

func TestRequireAdminSecret(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin", RequireAdminSecret("s3cret"), func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Secret", "s3cret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("X-Admin-Secret", "wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// An empty configured secret closes the routes.
	closed := gin.New()
	closed.GET("/admin", RequireAdminSecret(""), func(c *gin.Context) { c.Status(http.StatusOK) })
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	rec = httptest.NewRecorder()
	closed.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
