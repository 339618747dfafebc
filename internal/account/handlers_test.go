package account

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldserve/fieldserve/internal/schema"
)

func newHandlerFixture(t *testing.T) (*gin.Engine, *MemoryProvider) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")
	provider := NewMemoryProvider()
	handler := NewHandler(provider)

	r := gin.New()
	group := r.Group("/", func(c *gin.Context) {
		b, err := binder.Bind(c.Request.Context(), "acme")
		require.NoError(t, err)
		c.Request = c.Request.WithContext(schema.WithBinding(c.Request.Context(), b))
	})
	handler.RegisterRoutes(group)
	return r, provider
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestRegisterUser(t *testing.T) {
	r, provider := newHandlerFixture(t)

	rec := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":     "Sam@Acme.Test",
		"password":  "correct horse",
		"firstName": "Sam",
		"lastName":  "Vos",
		"userType":  "employee",
		"profile":   gin.H{"department": "Field Ops", "jobTitle": "Technician"},
		"groups":    []string{"technician"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "sam@acme.test", created.Email)
	assert.Equal(t, TypeEmployee, created.Type)

	// Stored with a bcrypt hash, never the raw password.
	binder := schema.NewMemoryBinder("public")
	binder.AddSchema("acme")
	b, err := binder.Bind(context.Background(), "acme")
	require.NoError(t, err)
	stored, err := provider.Users(b).GetByEmail(context.Background(), "sam@acme.test")
	require.NoError(t, err)
	assert.NotEmpty(t, stored.PasswordHash)
	assert.NotContains(t, stored.PasswordHash, "correct horse")
	assert.NotContains(t, rec.Body.String(), "correct horse")
}

func TestRegisterUserRejectsBadInput(t *testing.T) {
	r, _ := newHandlerFixture(t)

	cases := []struct {
		name string
		body gin.H
	}{
		{"bad email", gin.H{"email": "nope", "password": "long enough", "userType": "agent"}},
		{"short password", gin.H{"email": "a@b.test", "password": "short", "userType": "agent"}},
		{"bad type", gin.H{"email": "a@b.test", "password": "long enough", "userType": "contractor"}},
		{"bad group", gin.H{"email": "a@b.test", "password": "long enough", "userType": "agent",
			"groups": []string{"janitorial"}}},
	}
	for _, tc := range cases {
		rec := doJSON(t, r, http.MethodPost, "/users", tc.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, tc.name)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	r, _ := newHandlerFixture(t)

	body := gin.H{"email": "dup@acme.test", "password": "long enough", "userType": "client"}
	rec := doJSON(t, r, http.MethodPost, "/users", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, r, http.MethodPost, "/users", body)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAndProfile(t *testing.T) {
	r, _ := newHandlerFixture(t)

	rec := doJSON(t, r, http.MethodPost, "/users", gin.H{
		"email":    "ada@acme.test",
		"password": "long enough",
		"userType": "agent",
		"profile":  gin.H{"companyName": "Acme Realty", "yearsOfExperience": 4},
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var created User
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, r, http.MethodPatch, "/users/"+created.ID.String(), gin.H{
		"firstName": "Ada",
		"profile":   gin.H{"companyName": "Acme Realty", "yearsOfExperience": 5},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = doJSON(t, r, http.MethodGet, "/users/"+created.ID.String()+"/profile", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"yearsOfExperience":5`)

	rec = doJSON(t, r, http.MethodDelete, "/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, r, http.MethodGet, "/users/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
