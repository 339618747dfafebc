package tenant

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/traces"
)

type tenantKey struct{}

// WithTenant returns a context carrying the resolved tenant.
func WithTenant(ctx context.Context, t *Tenant) context.Context {
	return context.WithValue(ctx, tenantKey{}, t)
}

// FromContext returns the tenant resolved for this request, if any.
func FromContext(ctx context.Context) (*Tenant, bool) {
	t, ok := ctx.Value(tenantKey{}).(*Tenant)
	return t, ok
}

// Current returns the tenant for a gin request. Handlers registered
// behind Middleware can assume it is present.
func Current(c *gin.Context) (*Tenant, bool) {
	return FromContext(c.Request.Context())
}

// Middleware resolves the tenant for every request and holds a schema
// binding for the duration of the handler chain. The binding is always
// released before the response returns to the pool, whatever the
// handlers did. Resolution failures are 404s: a hostname we do not
// serve is the client's mistake, not ours.
func Middleware(resolver *Resolver, binder schema.Binder) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		res, err := resolver.Resolve(ctx, c.GetHeader(resolver.Header()), c.Request.Host)
		if err != nil {
			if errors.Is(err, ErrNoTenant) {
				c.AbortWithStatusJSON(http.StatusNotFound, gin.H{
					"error": "tenant_not_found",
				})
				return
			}
			logging.L(ctx).Error("tenant resolution failed", "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "internal_error",
			})
			return
		}

		t := res.Tenant
		ctx, span := traces.StartSpan(ctx, "tenant.bind",
			traces.TenantID(t.ID), traces.SchemaName(t.SchemaName))
		defer span.End()

		binding, err := binder.Bind(ctx, t.SchemaName)
		if err != nil {
			logging.L(ctx).Error("schema bind failed",
				"tenant_id", t.ID, "schema", t.SchemaName, "error", err)
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"error": "tenant_unavailable",
			})
			return
		}
		defer func() {
			if err := binding.Release(c.Request.Context()); err != nil {
				logging.L(ctx).Error("schema release failed",
					"tenant_id", t.ID, "schema", t.SchemaName, "error", err)
			}
		}()

		ctx = WithTenant(ctx, t)
		ctx = schema.WithBinding(ctx, binding)
		ctx = logging.WithSchema(ctx, t.SchemaName)
		ctx = logging.WithLogger(ctx, logging.FromContext(ctx).With(
			"tenant_source", res.Source))
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}
