package plan

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalogue(t *testing.T) {
	plans := DefaultCatalogue()
	require.Len(t, plans, 3)

	byID := map[string]*Plan{}
	for _, p := range plans {
		byID[p.ID] = p
		assert.True(t, p.IsActive, p.ID)
	}

	basic := byID["plan_basic"]
	require.NotNil(t, basic)
	assert.True(t, basic.BaseMonthly.Equal(decimal.RequireFromString("49.99")))
	assert.True(t, basic.PerSeatMonthly.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 2, basic.IncludedSeats)
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	store.SeedDefaults()

	p, err := store.Get(ctx, "plan_pro")
	require.NoError(t, err)
	assert.Equal(t, TierPro, p.Tier)

	_, err = store.Get(ctx, "plan_missing")
	assert.ErrorIs(t, err, ErrPlanNotFound)

	// Deactivated plans drop out of the active listing but stay
	// retrievable for tenants still on them.
	p.IsActive = false
	require.NoError(t, store.Update(ctx, p))
	active, err := store.ListActive(ctx)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, "plan_pro", a.ID)
	}
	p, err = store.Get(ctx, "plan_pro")
	require.NoError(t, err)
	assert.False(t, p.IsActive)
}

func newPlanRouter(t *testing.T) (*gin.Engine, *MemoryStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	store := NewMemoryStore()
	store.SeedDefaults()
	h := NewHandler(store)

	r := gin.New()
	h.RegisterRoutes(r.Group("/"))
	h.RegisterAdminRoutes(r.Group("/admin"))
	return r, store
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCreatePlan(t *testing.T) {
	r, store := newPlanRouter(t)

	rec := postJSON(t, r, "/admin/plans", gin.H{
		"name":           "Starter",
		"tier":           "basic",
		"baseMonthly":    "29.99",
		"perSeatMonthly": "4.99",
		"baseYearly":     "299.90",
		"includedSeats":  1,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Plan Plan `json:"plan"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Plan.BaseYearly.Valid)
	assert.False(t, resp.Plan.PerSeatYearly.Valid)

	stored, err := store.Get(context.Background(), resp.Plan.ID)
	require.NoError(t, err)
	assert.True(t, stored.BaseMonthly.Equal(decimal.RequireFromString("29.99")))
}

func TestCreatePlanRejectsBadPrices(t *testing.T) {
	r, _ := newPlanRouter(t)

	for name, body := range map[string]gin.H{
		"malformed": {"name": "X", "tier": "basic", "baseMonthly": "abc", "perSeatMonthly": "1"},
		"negative":  {"name": "X", "tier": "basic", "baseMonthly": "-5", "perSeatMonthly": "1"},
		"bad tier":  {"name": "X", "tier": "platinum", "baseMonthly": "5", "perSeatMonthly": "1"},
	} {
		rec := postJSON(t, r, "/admin/plans", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, name)
	}
}

func TestListPlansOnlyActive(t *testing.T) {
	r, store := newPlanRouter(t)

	p, err := store.Get(context.Background(), "plan_enterprise")
	require.NoError(t, err)
	p.IsActive = false
	require.NoError(t, store.Update(context.Background(), p))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/plans", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "plan_basic")
	assert.NotContains(t, rec.Body.String(), "plan_enterprise")
}
