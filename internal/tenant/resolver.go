package tenant

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/fieldserve/fieldserve/internal/logging"
	"github.com/fieldserve/fieldserve/internal/metrics"
	"github.com/fieldserve/fieldserve/internal/schema"
)

// ErrNoTenant indicates the request could not be mapped to any tenant.
// It is a routing failure, not a server fault, and callers map it to 404.
var ErrNoTenant = errors.New("no tenant for request")

// Resolution is the outcome of mapping a request to a tenant schema.
type Resolution struct {
	Tenant *Tenant
	// Source records which rule matched: "header", "domain" or "subdomain".
	Source string
}

// Resolver maps an incoming request (explicit header or hostname) to a
// tenant. The explicit header always wins and never falls back: a bad
// header is a hard failure even when the hostname would have resolved.
type Resolver struct {
	store         Store
	header        string
	publicSchema  string
	localHostname string
}

// NewResolver creates a resolver reading the given header name and
// treating localHostname (and its subdomains' parent) as non-tenant hosts.
func NewResolver(store Store, header, publicSchema, localHostname string) *Resolver {
	return &Resolver{
		store:         store,
		header:        header,
		publicSchema:  publicSchema,
		localHostname: strings.ToLower(localHostname),
	}
}

// Header returns the name of the explicit tenant header.
func (r *Resolver) Header() string {
	return r.header
}

// Resolve maps headerValue and host to a tenant. host may carry a port.
// A non-empty headerValue is authoritative: if it names an unknown or
// malformed schema the request fails with ErrNoTenant regardless of host.
func (r *Resolver) Resolve(ctx context.Context, headerValue, host string) (*Resolution, error) {
	if headerValue != "" {
		return r.resolveHeader(ctx, headerValue)
	}
	return r.resolveHost(ctx, host)
}

func (r *Resolver) resolveHeader(ctx context.Context, value string) (*Resolution, error) {
	name := strings.ToLower(strings.TrimSpace(value))
	if !schema.ValidName(name) || name == r.publicSchema {
		metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("%w: invalid tenant header %q", ErrNoTenant, value)
	}
	t, err := r.store.GetBySchema(ctx, name)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
			return nil, fmt.Errorf("%w: unknown tenant %q", ErrNoTenant, name)
		}
		return nil, err
	}
	metrics.TenantResolutionsTotal.WithLabelValues("header").Inc()
	return &Resolution{Tenant: t, Source: "header"}, nil
}

func (r *Resolver) resolveHost(ctx context.Context, host string) (*Resolution, error) {
	hostname := normalizeHost(host)
	if hostname == "" {
		metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("%w: empty hostname", ErrNoTenant)
	}

	// Exact registered domain wins over subdomain inference.
	d, err := r.store.GetDomain(ctx, hostname)
	switch {
	case err == nil:
		t, err := r.store.Get(ctx, d.TenantID)
		if err != nil {
			return nil, err
		}
		metrics.TenantResolutionsTotal.WithLabelValues("domain").Inc()
		return &Resolution{Tenant: t, Source: "domain"}, nil
	case !errors.Is(err, ErrDomainNotFound):
		return nil, err
	}

	// Fall back to the leading label as a schema name: acme.example.com
	// routes to schema "acme". The development hostname resolves nothing,
	// neither bare nor as a label (localhost.example.com).
	if hostname == r.localHostname {
		metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("%w: local hostname %q", ErrNoTenant, hostname)
	}
	label, rest, found := strings.Cut(hostname, ".")
	if !found || rest == "" || label == r.localHostname ||
		!schema.ValidName(label) || label == r.publicSchema {
		metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
		return nil, fmt.Errorf("%w: no tenant for hostname %q", ErrNoTenant, hostname)
	}
	t, err := r.store.GetBySchema(ctx, label)
	if err != nil {
		if errors.Is(err, ErrTenantNotFound) {
			metrics.TenantResolutionsTotal.WithLabelValues("miss").Inc()
			logging.L(ctx).Debug("subdomain did not match a tenant",
				"hostname", hostname, "label", label)
			return nil, fmt.Errorf("%w: no tenant for hostname %q", ErrNoTenant, hostname)
		}
		return nil, err
	}
	metrics.TenantResolutionsTotal.WithLabelValues("subdomain").Inc()
	return &Resolution{Tenant: t, Source: "subdomain"}, nil
}

func normalizeHost(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.ToLower(strings.TrimSuffix(host, "."))
}
