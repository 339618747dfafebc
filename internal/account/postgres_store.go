package account

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/fieldserve/fieldserve/internal/schema"
)

// querier covers the read/write surface shared by *sql.Conn and
// *sql.DB. Stores run on a binding's dedicated connection so that
// unqualified table names resolve through its search_path.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type connBinding interface {
	Conn() *sql.Conn
}

// PostgresProvider builds user stores over PostgreSQL bindings.
type PostgresProvider struct{}

func NewPostgresProvider() *PostgresProvider {
	return &PostgresProvider{}
}

func (p *PostgresProvider) Users(b schema.Binding) Store {
	cb, ok := b.(connBinding)
	if !ok {
		return &errStore{err: fmt.Errorf("account: binding %T carries no database connection", b)}
	}
	return &PostgresStore{q: cb.Conn()}
}

// PostgresStore reads and writes the users table of whatever schema
// the underlying connection is currently bound to.
type PostgresStore struct {
	q querier
}

const userColumns = `id, email, first_name, last_name, user_type, profile,
	contact, groups, password_hash, is_active, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, u *User) error {
	if err := u.ValidateProfile(); err != nil {
		return err
	}
	profile, contact, err := marshalPayloads(u)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		u.ID, strings.ToLower(u.Email), u.FirstName, u.LastName, string(u.Type),
		profile, contact, pq.Array(groupStrings(u.Groups)),
		u.PasswordHash, u.IsActive, u.CreatedAt, u.UpdatedAt,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (*User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(s.q.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE email = $1`, strings.ToLower(email)))
}

func (s *PostgresStore) List(ctx context.Context) ([]*User, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+userColumns+` FROM users ORDER BY email`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []*User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, u *User) error {
	if err := u.ValidateProfile(); err != nil {
		return err
	}
	profile, contact, err := marshalPayloads(u)
	if err != nil {
		return err
	}
	u.UpdatedAt = time.Now().UTC()
	result, err := s.q.ExecContext(ctx, `
		UPDATE users SET email = $1, first_name = $2, last_name = $3,
			user_type = $4, profile = $5, contact = $6, groups = $7,
			password_hash = $8, is_active = $9, updated_at = $10
		WHERE id = $11`,
		strings.ToLower(u.Email), u.FirstName, u.LastName, string(u.Type),
		profile, contact, pq.Array(groupStrings(u.Groups)),
		u.PasswordHash, u.IsActive, u.UpdatedAt, u.ID,
	)
	if pqErr, ok := err.(*pq.Error); ok && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.q.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`).Scan(&count)
	return count, err
}

func marshalPayloads(u *User) ([]byte, []byte, error) {
	var profile []byte
	if u.Profile != nil {
		b, err := json.Marshal(u.Profile)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal profile: %w", err)
		}
		profile = b
	}
	var contact []byte
	if u.Contact != nil {
		b, err := json.Marshal(u.Contact)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal contact: %w", err)
		}
		contact = b
	}
	return profile, contact, nil
}

func groupStrings(groups []FunctionalGroup) []string {
	out := make([]string, len(groups))
	for i, g := range groups {
		out[i] = string(g)
	}
	return out
}

func scanUser(row *sql.Row) (*User, error) {
	u, err := scanUserRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	return u, err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (*User, error) {
	u := &User{}
	var (
		userType string
		profile  []byte
		contact  []byte
		groups   pq.StringArray
	)
	err := row.Scan(&u.ID, &u.Email, &u.FirstName, &u.LastName, &userType,
		&profile, &contact, &groups, &u.PasswordHash, &u.IsActive,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Type = Type(userType)
	if len(profile) > 0 {
		p, err := unmarshalProfile(u.Type, profile)
		if err != nil {
			return nil, err
		}
		u.Profile = p
	}
	if len(contact) > 0 {
		c := &Contact{}
		if err := json.Unmarshal(contact, c); err != nil {
			return nil, fmt.Errorf("unmarshal contact: %w", err)
		}
		u.Contact = c
	}
	for _, g := range groups {
		u.Groups = append(u.Groups, FunctionalGroup(g))
	}
	return u, nil
}

func unmarshalProfile(t Type, data []byte) (Profile, error) {
	switch t {
	case TypeAgent:
		var p AgentProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal agent profile: %w", err)
		}
		return p, nil
	case TypeClient:
		var p ClientProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal client profile: %w", err)
		}
		return p, nil
	case TypeEmployee:
		var p EmployeeProfile
		if err := json.Unmarshal(data, &p); err != nil {
			return nil, fmt.Errorf("unmarshal employee profile: %w", err)
		}
		return p, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserType, t)
	}
}

// errStore satisfies Store while reporting a provider-level failure
// on every call.
type errStore struct {
	err error
}

func (e *errStore) Create(context.Context, *User) error               { return e.err }
func (e *errStore) Get(context.Context, uuid.UUID) (*User, error)     { return nil, e.err }
func (e *errStore) GetByEmail(context.Context, string) (*User, error) { return nil, e.err }
func (e *errStore) List(context.Context) ([]*User, error)             { return nil, e.err }
func (e *errStore) Update(context.Context, *User) error               { return e.err }
func (e *errStore) Delete(context.Context, uuid.UUID) error           { return e.err }
func (e *errStore) Count(context.Context) (int, error)                { return 0, e.err }

var _ Store = (*PostgresStore)(nil)
var _ Provider = (*PostgresProvider)(nil)
