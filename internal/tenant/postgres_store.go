package tenant

import (
	"context"
	"database/sql"
	"strings"

	"github.com/lib/pq"
)

// PostgresStore persists tenants and domains in PostgreSQL's shared schema.
// All queries are schema-qualified so they behave identically regardless of
// which search_path the pooled connection currently carries.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed tenant store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const tenantColumns = `id, schema_name, name, plan_id, subscription_start,
	subscription_end, is_subscription_active, billing_frequency,
	paid_seat_count, created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, t *Tenant) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO public.tenants (`+tenantColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		t.ID, t.SchemaName, t.Name, nullString(t.PlanID),
		t.SubscriptionStart, t.SubscriptionEnd, t.IsSubscriptionActive,
		string(t.BillingFrequency), t.PaidSeatCount, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
			return ErrSchemaTaken
		}
		return err
	}
	return nil
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Tenant, error) {
	return scanTenant(p.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM public.tenants WHERE id = $1`, id))
}

func (p *PostgresStore) GetBySchema(ctx context.Context, schemaName string) (*Tenant, error) {
	return scanTenant(p.db.QueryRowContext(ctx, `
		SELECT `+tenantColumns+` FROM public.tenants WHERE schema_name = $1`, schemaName))
}

func (p *PostgresStore) List(ctx context.Context) ([]*Tenant, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+tenantColumns+` FROM public.tenants ORDER BY schema_name`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenantRow(rows)
		if err != nil {
			return nil, err
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, t *Tenant) error {
	result, err := p.db.ExecContext(ctx, `
		UPDATE public.tenants SET name = $1, plan_id = $2,
			subscription_start = $3, subscription_end = $4,
			is_subscription_active = $5, billing_frequency = $6,
			paid_seat_count = $7, updated_at = $8
		WHERE id = $9`,
		t.Name, nullString(t.PlanID),
		t.SubscriptionStart, t.SubscriptionEnd,
		t.IsSubscriptionActive, string(t.BillingFrequency),
		t.PaidSeatCount, t.UpdatedAt, t.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrTenantNotFound
	}
	return nil
}

func (p *PostgresStore) AddDomain(ctx context.Context, d *Domain) error {
	_, err := p.db.ExecContext(ctx, `
		INSERT INTO public.domains (id, hostname, tenant_id, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		d.ID, strings.ToLower(d.Hostname), d.TenantID, d.IsPrimary, d.CreatedAt,
	)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505":
				return ErrDomainTaken
			case "23503":
				return ErrTenantNotFound
			}
		}
		return err
	}
	return nil
}

func (p *PostgresStore) GetDomain(ctx context.Context, hostname string) (*Domain, error) {
	d := &Domain{}
	err := p.db.QueryRowContext(ctx, `
		SELECT id, hostname, tenant_id, is_primary, created_at
		FROM public.domains WHERE hostname = $1`, strings.ToLower(hostname),
	).Scan(&d.ID, &d.Hostname, &d.TenantID, &d.IsPrimary, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrDomainNotFound
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (p *PostgresStore) ListDomains(ctx context.Context, tenantID string) ([]*Domain, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT id, hostname, tenant_id, is_primary, created_at
		FROM public.domains WHERE tenant_id = $1 ORDER BY hostname`, tenantID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var domains []*Domain
	for rows.Next() {
		d := &Domain{}
		if err := rows.Scan(&d.ID, &d.Hostname, &d.TenantID, &d.IsPrimary, &d.CreatedAt); err != nil {
			return nil, err
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func (p *PostgresStore) RemoveDomain(ctx context.Context, hostname string) error {
	result, err := p.db.ExecContext(ctx, `
		DELETE FROM public.domains WHERE hostname = $1`, strings.ToLower(hostname))
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrDomainNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTenant(row *sql.Row) (*Tenant, error) {
	t, err := scanTenantRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	return t, err
}

func scanTenantRow(row rowScanner) (*Tenant, error) {
	t := &Tenant{}
	var (
		planID    sql.NullString
		start     sql.NullTime
		end       sql.NullTime
		frequency string
	)
	err := row.Scan(&t.ID, &t.SchemaName, &t.Name, &planID, &start, &end,
		&t.IsSubscriptionActive, &frequency, &t.PaidSeatCount,
		&t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if planID.Valid {
		t.PlanID = planID.String
	}
	if start.Valid {
		t.SubscriptionStart = &start.Time
	}
	if end.Valid {
		t.SubscriptionEnd = &end.Time
	}
	t.BillingFrequency = BillingFrequency(frequency)
	return t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ Store = (*PostgresStore)(nil)
