// Package admission gates seat-consuming operations on the tenant's
// subscription state. The gate is mounted statically on the routes
// that consume seats, so the check always runs before the handler
// touches storage.
package admission

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fieldserve/fieldserve/internal/billing"
	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/metrics"
	"github.com/fieldserve/fieldserve/internal/schema"
	"github.com/fieldserve/fieldserve/internal/tenant"
)

// Gate decides whether a tenant may consume another seat.
type Gate struct {
	tenants tenant.Store
	counter *billing.Counter
	public  string
}

func NewGate(tenants tenant.Store, counter *billing.Counter, publicSchema string) *Gate {
	return &Gate{tenants: tenants, counter: counter, public: publicSchema}
}

// Guard is gin middleware for seat-consuming routes. Requests bound to
// the public schema pass untouched. A bound schema without a tenant
// record also passes: blocking on operator bookkeeping gaps would take
// a working tenant offline.
func (g *Gate) Guard() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		b, ok := schema.FromContext(ctx)
		if !ok || b.Schema() == g.public {
			c.Next()
			return
		}

		t, ok := tenant.FromContext(ctx)
		if !ok {
			var err error
			t, err = g.tenants.GetBySchema(ctx, b.Schema())
			if err != nil {
				if errors.Is(err, tenant.ErrTenantNotFound) {
					logging.L(ctx).Warn("no tenant record for bound schema, admitting",
						"schema", b.Schema())
					metrics.AdmissionDecisionsTotal.WithLabelValues("allowed").Inc()
					c.Next()
					return
				}
				logging.L(ctx).Error("admission lookup failed", "schema", b.Schema(), "error", err)
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
				return
			}
		}

		if !t.IsSubscriptionActive {
			metrics.AdmissionDecisionsTotal.WithLabelValues("inactive_subscription").Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "subscription_inactive",
				"message": "your subscription is inactive; update your subscription to add users",
			})
			return
		}

		count, err := g.counter.CurrentSeatCount(ctx, t)
		if err != nil {
			logging.L(ctx).Error("seat count failed", "tenant_id", t.ID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal_error"})
			return
		}
		if billing.NeedsPaymentUpdate(t, count) {
			metrics.AdmissionDecisionsTotal.WithLabelValues("seat_limit").Inc()
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "seat_limit_reached",
				"message": fmt.Sprintf(
					"you currently have %d users but have only paid for %d; update your subscription before adding more",
					count, t.PaidSeatCount),
			})
			return
		}

		metrics.AdmissionDecisionsTotal.WithLabelValues("allowed").Inc()
		c.Next()
	}
}
