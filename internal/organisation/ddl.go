package organisation

// DDL creates the per-tenant company table. The id is fixed at 1 to
// enforce the singleton.
var DDL = []string{
	`CREATE TABLE IF NOT EXISTS company (
		id INTEGER PRIMARY KEY CHECK (id = 1),
		name TEXT NOT NULL,
		address_line1 TEXT NOT NULL DEFAULT '',
		address_line2 TEXT NOT NULL DEFAULT '',
		city TEXT NOT NULL DEFAULT '',
		state TEXT NOT NULL DEFAULT '',
		postal_code TEXT NOT NULL DEFAULT '',
		country TEXT NOT NULL DEFAULT '',
		phone TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL DEFAULT '',
		website TEXT NOT NULL DEFAULT '',
		tax_number TEXT NOT NULL DEFAULT '',
		registration_number TEXT NOT NULL DEFAULT '',
		primary_color TEXT NOT NULL DEFAULT '#3B82F6',
		secondary_color TEXT NOT NULL DEFAULT '#1E40AF',
		established_date DATE,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
}
