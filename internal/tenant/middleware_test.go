package tenant

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/schema"
)

func newTestRouter(store Store, binder schema.Binder, handler gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	resolver := NewResolver(store, "X-Tenant", "public", "localhost")
	group := r.Group("/", Middleware(resolver, binder))
	group.GET("/whoami", handler)
	return r
}

func TestMiddlewareBindsAndReleases(t *testing.T) {
	store := NewMemoryStore()
	seedTenant(t, store, "acme")
	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")

	var seen *Tenant
	var boundSchema string
	router := newTestRouter(store, binder, func(c *gin.Context) {
		tn, ok := Current(c)
		require.True(t, ok)
		seen = tn

		b, ok := schema.FromContext(c.Request.Context())
		require.True(t, ok)
		boundSchema = b.Schema()
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant", "acme")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, "acme", seen.SchemaName)
	assert.Equal(t, "acme", boundSchema)
}

func TestMiddlewareUnknownTenantIs404(t *testing.T) {
	store := NewMemoryStore()
	binder := schema.NewMemoryBinder("public")
	router := newTestRouter(store, binder, func(c *gin.Context) {
		t.Fatal("handler must not run for unresolved tenants")
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Host = "nosuch.fieldserve.io"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMiddlewareBindFailureIs503(t *testing.T) {
	store := NewMemoryStore()
	seedTenant(t, store, "acme")
	// Tenant record exists but the binder has no such schema, as when
	// provisioning failed partway.
	binder := schema.NewMemoryBinder("public")
	router := newTestRouter(store, binder, func(c *gin.Context) {
		t.Fatal("handler must not run without a binding")
	})

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Tenant", "acme")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
