package storage

// schemaStatements create the roster tables when absent. They are applied in
// order by EnsureSchema.
var schemaStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS vector`,
	`CREATE EXTENSION IF NOT EXISTS pg_trgm`,
	`CREATE TABLE IF NOT EXISTS inmate (
		id SERIAL PRIMARY KEY,
		first_name TEXT NOT NULL CHECK (first_name <> ''),
		middle_name TEXT,
		last_name TEXT NOT NULL CHECK (last_name <> ''),
		affix TEXT,
		permanent_id TEXT,
		sex TEXT,
		dob DATE NOT NULL,
		arresting_agency TEXT,
		booking_date TIMESTAMP WITH TIME ZONE NOT NULL,
		booking_number TEXT,
		height TEXT,
		weight TEXT,
		race TEXT,
		eye_color TEXT,
		img_url TEXT,
		scil_sysid TEXT,
		record_visits INTEGER DEFAULT 0,
		shared INTEGER DEFAULT 0,
		embedding vector(1536),
		UNIQUE (first_name, last_name, dob, booking_date)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inmate_first_name ON inmate(first_name)`,
	`CREATE INDEX IF NOT EXISTS idx_inmate_middle_name ON inmate(middle_name)`,
	`CREATE INDEX IF NOT EXISTS idx_inmate_last_name ON inmate(last_name)`,
	`CREATE TABLE IF NOT EXISTS alias (
		id SERIAL PRIMARY KEY,
		alias TEXT UNIQUE NOT NULL CHECK (alias <> '')
	)`,
	`CREATE TABLE IF NOT EXISTS bond (
		id SERIAL PRIMARY KEY,
		inmate_id INTEGER NOT NULL REFERENCES inmate(id),
		type TEXT NOT NULL,
		amount_pennies BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE INDEX IF NOT EXISTS bond_inmate_id_idx ON bond(inmate_id)`,
	`CREATE TABLE IF NOT EXISTS charge (
		id SERIAL PRIMARY KEY,
		inmate_id INTEGER REFERENCES inmate(id),
		description TEXT,
		grade TEXT,
		offense_date TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_inmate_id ON charge(inmate_id)`,
	`CREATE TABLE IF NOT EXISTS img (
		id SERIAL PRIMARY KEY,
		inmate_id INTEGER NOT NULL REFERENCES inmate(id),
		img BYTEA
	)`,
	`CREATE INDEX IF NOT EXISTS idx_img_inmate_id ON img(inmate_id)`,
	`CREATE TABLE IF NOT EXISTS inmate_alias (
		inmate_id INTEGER NOT NULL REFERENCES inmate(id),
		alias_id INTEGER NOT NULL REFERENCES alias(id),
		PRIMARY KEY (inmate_id, alias_id)
	)`,
}
