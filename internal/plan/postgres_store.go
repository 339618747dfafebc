package plan

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/shopspring/decimal"
)

// PostgresStore persists plans in the shared schema in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL-backed plan store.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const planColumns = `id, name, tier, description, base_monthly, base_yearly,
	per_seat_monthly, per_seat_yearly, included_seats, is_active, features,
	created_at, updated_at`

func (p *PostgresStore) Create(ctx context.Context, pl *Plan) error {
	featuresJSON, err := json.Marshal(pl.Features)
	if err != nil {
		return err
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO plans (`+planColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		pl.ID, pl.Name, string(pl.Tier), pl.Description,
		pl.BaseMonthly, pl.BaseYearly, pl.PerSeatMonthly, pl.PerSeatYearly,
		pl.IncludedSeats, pl.IsActive, featuresJSON, pl.CreatedAt, pl.UpdatedAt,
	)
	return err
}

func (p *PostgresStore) Get(ctx context.Context, id string) (*Plan, error) {
	return scanPlan(p.db.QueryRowContext(ctx, `
		SELECT `+planColumns+` FROM plans WHERE id = $1`, id))
}

func (p *PostgresStore) ListActive(ctx context.Context) ([]*Plan, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT `+planColumns+` FROM plans
		WHERE is_active = TRUE ORDER BY base_monthly`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var plans []*Plan
	for rows.Next() {
		pl, err := scanPlanRow(rows)
		if err != nil {
			return nil, err
		}
		plans = append(plans, pl)
	}
	return plans, rows.Err()
}

func (p *PostgresStore) Update(ctx context.Context, pl *Plan) error {
	featuresJSON, err := json.Marshal(pl.Features)
	if err != nil {
		return err
	}
	result, err := p.db.ExecContext(ctx, `
		UPDATE plans SET name = $1, tier = $2, description = $3,
			base_monthly = $4, base_yearly = $5,
			per_seat_monthly = $6, per_seat_yearly = $7,
			included_seats = $8, is_active = $9, features = $10, updated_at = $11
		WHERE id = $12`,
		pl.Name, string(pl.Tier), pl.Description,
		pl.BaseMonthly, pl.BaseYearly, pl.PerSeatMonthly, pl.PerSeatYearly,
		pl.IncludedSeats, pl.IsActive, featuresJSON, pl.UpdatedAt, pl.ID,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrPlanNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPlan(row *sql.Row) (*Plan, error) {
	pl, err := scanPlanRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrPlanNotFound
	}
	return pl, err
}

func scanPlanRow(row rowScanner) (*Plan, error) {
	pl := &Plan{}
	var (
		tier         string
		desc         sql.NullString
		baseYearly   decimal.NullDecimal
		seatYearly   decimal.NullDecimal
		featuresJSON []byte
	)
	err := row.Scan(&pl.ID, &pl.Name, &tier, &desc,
		&pl.BaseMonthly, &baseYearly, &pl.PerSeatMonthly, &seatYearly,
		&pl.IncludedSeats, &pl.IsActive, &featuresJSON,
		&pl.CreatedAt, &pl.UpdatedAt)
	if err != nil {
		return nil, err
	}
	pl.Tier = Tier(tier)
	if desc.Valid {
		pl.Description = desc.String
	}
	pl.BaseYearly = baseYearly
	pl.PerSeatYearly = seatYearly
	if len(featuresJSON) > 0 {
		_ = json.Unmarshal(featuresJSON, &pl.Features)
	}
	return pl, nil
}

var _ Store = (*PostgresStore)(nil)
