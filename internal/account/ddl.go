package account

// DDL creates the per-tenant account tables. Statements run with the
// freshly created schema at the head of the search_path, so names stay
// unqualified.
var DDL = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		email TEXT NOT NULL UNIQUE,
		first_name TEXT NOT NULL DEFAULT '',
		last_name TEXT NOT NULL DEFAULT '',
		user_type TEXT NOT NULL CHECK (user_type IN ('agent', 'client', 'employee')),
		profile JSONB,
		contact JSONB,
		groups TEXT[] NOT NULL DEFAULT '{}',
		password_hash TEXT NOT NULL,
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_users_user_type ON users (user_type)`,
}
