package schema

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"

	"github.com/lib/pq"

	"github.com/fieldserve/fieldserve/internal/metrics"
)

// PGBinder binds pooled PostgreSQL connections to schemas via search_path.
type PGBinder struct {
	db     *sql.DB
	public string
}

// NewPGBinder creates a binder over the given pool. public is the shared
// schema every connection is restored to on release.
func NewPGBinder(db *sql.DB, public string) *PGBinder {
	return &PGBinder{db: db, public: public}
}

// Public returns the shared schema name.
func (b *PGBinder) Public() string { return b.public }

// Bind checks a connection out of the pool and sets its search_path to name.
// The returned binding holds the connection until Release.
func (b *PGBinder) Bind(ctx context.Context, name string) (Binding, error) {
	if !ValidName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}

	conn, err := b.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("schema: acquire connection: %w", err)
	}

	if err := setSearchPath(ctx, conn, name); err != nil {
		_ = conn.Close()
		return nil, err
	}

	metrics.SchemaBindsTotal.WithLabelValues("bound").Inc()
	return &pgBinding{binder: b, conn: conn, stack: []string{name}}, nil
}

// pgBinding is a checked-out connection with its search_path bound. The
// stack records nested binds so each Pop restores whatever was active
// immediately before the matching Push.
type pgBinding struct {
	binder   *PGBinder
	conn     *sql.Conn
	stack    []string
	released bool
}

var _ Binding = (*pgBinding)(nil)

// Conn exposes the bound connection for tenant-scoped queries.
func (bd *pgBinding) Conn() *sql.Conn { return bd.conn }

func (bd *pgBinding) Schema() string {
	return bd.stack[len(bd.stack)-1]
}

// Push rebinds the connection to name. Callers must Pop to restore the
// previously active schema; prefer With.
func (bd *pgBinding) Push(ctx context.Context, name string) error {
	if bd.released {
		return ErrReleased
	}
	if !ValidName(name) {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if err := setSearchPath(ctx, bd.conn, name); err != nil {
		return err
	}
	bd.stack = append(bd.stack, name)
	return nil
}

// Pop restores the schema that was active before the matching Push. The
// restore runs even when the request context is already cancelled: a bound
// connection must never go back to the pool carrying the pushed schema.
func (bd *pgBinding) Pop(ctx context.Context) error {
	if bd.released {
		return ErrReleased
	}
	if len(bd.stack) < 2 {
		return ErrNothingToPop
	}
	prev := bd.stack[len(bd.stack)-2]
	if err := setSearchPath(context.WithoutCancel(ctx), bd.conn, prev); err != nil {
		metrics.SchemaBindsTotal.WithLabelValues("restore_failed").Inc()
		bd.poison()
		return err
	}
	bd.stack = bd.stack[:len(bd.stack)-1]
	return nil
}

func (bd *pgBinding) With(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	if err = bd.Push(ctx, name); err != nil {
		return err
	}
	defer func() {
		if popErr := bd.Pop(ctx); popErr != nil && err == nil {
			err = popErr
		}
	}()
	return fn(ctx)
}

// Release restores the shared schema and returns the connection to the pool.
func (bd *pgBinding) Release(ctx context.Context) error {
	if bd.released {
		return nil
	}
	bd.released = true

	if err := setSearchPath(context.WithoutCancel(ctx), bd.conn, bd.binder.public); err != nil {
		// The connection could not be restored, so it must not be reused.
		// Poisoning makes the pool discard it on Close.
		metrics.SchemaBindsTotal.WithLabelValues("restore_failed").Inc()
		bd.poison()
		_ = bd.conn.Close()
		return fmt.Errorf("schema: restore search_path: %w", err)
	}

	metrics.SchemaBindsTotal.WithLabelValues("released").Inc()
	return bd.conn.Close()
}

// poison marks the underlying driver connection bad so the pool drops it
// instead of handing a mis-bound search_path to another request.
func (bd *pgBinding) poison() {
	_ = bd.conn.Raw(func(driverConn any) error {
		return driver.ErrBadConn
	})
}

func setSearchPath(ctx context.Context, conn *sql.Conn, name string) error {
	_, err := conn.ExecContext(ctx, "SET search_path TO "+pq.QuoteIdentifier(name))
	if err != nil {
		return fmt.Errorf("schema: set search_path to %q: %w", name, err)
	}
	return nil
}
