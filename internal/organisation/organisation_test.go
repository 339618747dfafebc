package organisation

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/schema"
)

func TestMemoryStoreSingleton(t *testing.T) {
	ctx := context.Background()
	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")
	binder.AddSchema("globex")
	provider := NewMemoryProvider()

	acme, err := binder.Bind(ctx, "acme")
	require.NoError(t, err)
	globex, err := binder.Bind(ctx, "globex")
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, provider.Company(acme).Create(ctx, &Company{Name: "Acme BV", CreatedAt: now, UpdatedAt: now}))

	// Second create in the same tenant fails, other tenants are free.
	assert.ErrorIs(t, provider.Company(acme).Create(ctx, &Company{Name: "Other"}), ErrCompanyExists)
	require.NoError(t, provider.Company(globex).Create(ctx, &Company{Name: "Globex", CreatedAt: now, UpdatedAt: now}))

	got, err := provider.Company(acme).Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Acme BV", got.Name)
}

func newCompanyRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")
	provider := NewMemoryProvider()

	r := gin.New()
	group := r.Group("/", func(c *gin.Context) {
		b, err := binder.Bind(c.Request.Context(), "acme")
		require.NoError(t, err)
		c.Request = c.Request.WithContext(schema.WithBinding(c.Request.Context(), b))
	})
	NewHandler(provider).RegisterRoutes(group)
	return r
}

func TestCompanyGetBeforeSetup(t *testing.T) {
	r := newCompanyRouter(t)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/company", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var c Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Empty(t, c.Name)
	assert.Equal(t, DefaultPrimaryColor, c.PrimaryColor)
}

func TestCompanyUpdateCreatesThenUpdates(t *testing.T) {
	r := newCompanyRouter(t)

	body, _ := json.Marshal(gin.H{"name": "Acme BV", "city": "Utrecht"})
	req := httptest.NewRequest(http.MethodPut, "/company", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body, _ = json.Marshal(gin.H{"name": "Acme B.V.", "primaryColor": "#FF0000"})
	req = httptest.NewRequest(http.MethodPut, "/company", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/company", nil))
	var c Company
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &c))
	assert.Equal(t, "Acme B.V.", c.Name)
	assert.Equal(t, "#FF0000", c.PrimaryColor)
}
