package schema

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"
)

// Provision creates a tenant schema and runs the given DDL statements inside
// it. The statements must be unqualified; they execute with search_path set
// to the new schema on a dedicated connection, so the pool is never left
// pointing at it. Called at tenant onboarding.
func Provision(ctx context.Context, db *sql.DB, name string, statements []string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("schema: acquire connection: %w", err)
	}
	defer func() { _ = conn.Close() }()

	quoted := pq.QuoteIdentifier(name)
	if _, err := conn.ExecContext(ctx, "CREATE SCHEMA IF NOT EXISTS "+quoted); err != nil {
		return fmt.Errorf("schema: create schema %q: %w", name, err)
	}

	if err := setSearchPath(ctx, conn, name); err != nil {
		return err
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("schema: provision %q: %w", name, err)
		}
	}

	// The connection goes back to the pool; reset it first.
	if _, err := conn.ExecContext(context.WithoutCancel(ctx), "SET search_path TO DEFAULT"); err != nil {
		_ = conn.Raw(func(any) error { return driver.ErrBadConn })
		return fmt.Errorf("schema: reset search_path after provisioning %q: %w", name, err)
	}
	return nil
}

// Drop removes a tenant schema and everything in it. Only used by tests and
// explicit administrative teardown; normal tenant removal is a soft delete.
func Drop(ctx context.Context, db *sql.DB, name string) error {
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	_, err := db.ExecContext(ctx, "DROP SCHEMA IF EXISTS "+pq.QuoteIdentifier(name)+" CASCADE")
	if err != nil {
		return fmt.Errorf("schema: drop schema %q: %w", name, err)
	}
	return nil
}
