//go:build integration

package schema

import (
	"context"
	"database/sql"
	"os"
	"testing"

	_ "github.com/lib/pq"
)

func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbURL := os.Getenv("POSTGRES_URL")
	if dbURL == "" {
		t.Skip("POSTGRES_URL not set, skipping integration test")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}

	if err := db.Ping(); err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	cleanup := func() {
		ctx := context.Background()
		_ = Drop(ctx, db, "bindtest_acme")
		_ = Drop(ctx, db, "bindtest_globex")
		db.Close()
	}

	return db, cleanup
}

func currentSearchPath(t *testing.T, b Binding) string {
	t.Helper()
	pg, ok := b.(*pgBinding)
	if !ok {
		t.Fatalf("expected *pgBinding, got %T", b)
	}
	var sp string
	if err := pg.Conn().QueryRowContext(context.Background(), "SHOW search_path").Scan(&sp); err != nil {
		t.Fatalf("SHOW search_path failed: %v", err)
	}
	return sp
}

func TestPGBinder_BindSetsSearchPath(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ddl := []string{`CREATE TABLE widgets (id SERIAL PRIMARY KEY, name TEXT NOT NULL)`}
	if err := Provision(ctx, db, "bindtest_acme", ddl); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	binder := NewPGBinder(db, "public")
	b, err := binder.Bind(ctx, "bindtest_acme")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer b.Release(ctx)

	if got := b.Schema(); got != "bindtest_acme" {
		t.Errorf("Schema: got %q, want %q", got, "bindtest_acme")
	}
	if sp := currentSearchPath(t, b); sp != "bindtest_acme" {
		t.Errorf("search_path: got %q, want %q", sp, "bindtest_acme")
	}

	// Unqualified writes must land in the bound schema.
	pg := b.(*pgBinding)
	if _, err := pg.Conn().ExecContext(ctx, "INSERT INTO widgets (name) VALUES ('anvil')"); err != nil {
		t.Fatalf("insert via binding failed: %v", err)
	}
	var n int
	if err := db.QueryRowContext(ctx, "SELECT count(*) FROM bindtest_acme.widgets").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 1 {
		t.Errorf("row count: got %d, want 1", n)
	}
}

func TestPGBinder_NestedWithRestores(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ddl := []string{`CREATE TABLE widgets (id SERIAL PRIMARY KEY, name TEXT NOT NULL)`}
	for _, name := range []string{"bindtest_acme", "bindtest_globex"} {
		if err := Provision(ctx, db, name, ddl); err != nil {
			t.Fatalf("Provision %s failed: %v", name, err)
		}
	}

	binder := NewPGBinder(db, "public")
	b, err := binder.Bind(ctx, "bindtest_acme")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	defer b.Release(ctx)

	err = b.With(ctx, "bindtest_globex", func(ctx context.Context) error {
		if sp := currentSearchPath(t, b); sp != "bindtest_globex" {
			t.Errorf("inner search_path: got %q", sp)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("With failed: %v", err)
	}

	if sp := currentSearchPath(t, b); sp != "bindtest_acme" {
		t.Errorf("search_path after With: got %q, want restored %q", sp, "bindtest_acme")
	}
}

func TestPGBinder_ReleaseRestoresPublic(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	if err := Provision(ctx, db, "bindtest_acme", nil); err != nil {
		t.Fatalf("Provision failed: %v", err)
	}

	binder := NewPGBinder(db, "public")
	b, err := binder.Bind(ctx, "bindtest_acme")
	if err != nil {
		t.Fatalf("Bind failed: %v", err)
	}
	if err := b.Release(ctx); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	// A fresh checkout must start on the default search_path, never on a
	// tenant schema left over from a previous request.
	conn, err := db.Conn(ctx)
	if err != nil {
		t.Fatalf("Conn failed: %v", err)
	}
	defer conn.Close()
	var sp string
	if err := conn.QueryRowContext(ctx, "SHOW search_path").Scan(&sp); err != nil {
		t.Fatalf("SHOW search_path failed: %v", err)
	}
	if sp == "bindtest_acme" {
		t.Errorf("pooled connection still bound to tenant schema: %q", sp)
	}
}

func TestProvision_Idempotent(t *testing.T) {
	db, cleanup := setupTestDB(t)
	defer cleanup()

	ctx := context.Background()
	ddl := []string{`CREATE TABLE IF NOT EXISTS widgets (id SERIAL PRIMARY KEY)`}
	if err := Provision(ctx, db, "bindtest_acme", ddl); err != nil {
		t.Fatalf("first Provision failed: %v", err)
	}
	if err := Provision(ctx, db, "bindtest_acme", ddl); err != nil {
		t.Fatalf("second Provision failed: %v", err)
	}
}
