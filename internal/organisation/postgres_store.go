package organisation

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// PostgresProvider builds company stores over PostgreSQL bindings.
// The company table has a constant primary key so the singleton
// constraint is enforced by the database itself.
type PostgresProvider struct{}

func NewPostgresProvider() *PostgresProvider {
	return &PostgresProvider{}
}

type connBinding interface {
	Conn() *sql.Conn
}

func (p *PostgresProvider) Company(b schema.Binding) Store {
	cb, ok := b.(connBinding)
	if !ok {
		return &errStore{err: fmt.Errorf("organisation: binding %T carries no database connection", b)}
	}
	return &PostgresStore{conn: cb.Conn()}
}

type PostgresStore struct {
	conn *sql.Conn
}

const companyColumns = `name, address_line1, address_line2, city, state,
	postal_code, country, phone, email, website, tax_number,
	registration_number, primary_color, secondary_color,
	established_date, created_at, updated_at`

func (s *PostgresStore) Get(ctx context.Context) (*Company, error) {
	c := &Company{}
	var established sql.NullTime
	err := s.conn.QueryRowContext(ctx, `
		SELECT `+companyColumns+` FROM company WHERE id = 1`).Scan(
		&c.Name, &c.AddressLine1, &c.AddressLine2, &c.City, &c.State,
		&c.PostalCode, &c.Country, &c.Phone, &c.Email, &c.Website,
		&c.TaxNumber, &c.RegistrationNumber, &c.PrimaryColor,
		&c.SecondaryColor, &established, &c.CreatedAt, &c.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrCompanyNotFound
	}
	if err != nil {
		return nil, err
	}
	if established.Valid {
		c.EstablishedDate = &established.Time
	}
	return c, nil
}

func (s *PostgresStore) Create(ctx context.Context, c *Company) error {
	_, err := s.conn.ExecContext(ctx, `
		INSERT INTO company (id, `+companyColumns+`)
		VALUES (1, $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		c.Name, c.AddressLine1, c.AddressLine2, c.City, c.State,
		c.PostalCode, c.Country, c.Phone, c.Email, c.Website,
		c.TaxNumber, c.RegistrationNumber, c.PrimaryColor,
		c.SecondaryColor, c.EstablishedDate, c.CreatedAt, c.UpdatedAt)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrCompanyExists
	}
	return err
}

func (s *PostgresStore) Update(ctx context.Context, c *Company) error {
	c.UpdatedAt = time.Now().UTC()
	result, err := s.conn.ExecContext(ctx, `
		UPDATE company SET name = $1, address_line1 = $2, address_line2 = $3,
			city = $4, state = $5, postal_code = $6, country = $7,
			phone = $8, email = $9, website = $10, tax_number = $11,
			registration_number = $12, primary_color = $13,
			secondary_color = $14, established_date = $15, updated_at = $16
		WHERE id = 1`,
		c.Name, c.AddressLine1, c.AddressLine2, c.City, c.State,
		c.PostalCode, c.Country, c.Phone, c.Email, c.Website,
		c.TaxNumber, c.RegistrationNumber, c.PrimaryColor,
		c.SecondaryColor, c.EstablishedDate, c.UpdatedAt)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrCompanyNotFound
	}
	return nil
}

type errStore struct {
	err error
}

func (e *errStore) Get(context.Context) (*Company, error)  { return nil, e.err }
func (e *errStore) Create(context.Context, *Company) error { return e.err }
func (e *errStore) Update(context.Context, *Company) error { return e.err }

var _ Store = (*PostgresStore)(nil)
var _ Provider = (*PostgresProvider)(nil)
