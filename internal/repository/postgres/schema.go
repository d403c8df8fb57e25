package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

const schema = `
CREATE TABLE IF NOT EXISTS principals (
	id            TEXT PRIMARY KEY,
	role          TEXT NOT NULL,
	username      TEXT NOT NULL,
	email         TEXT NOT NULL,
	full_name     TEXT NOT NULL,
	father_name   TEXT NOT NULL DEFAULT '',
	photo         TEXT NOT NULL DEFAULT '',
	password_hash TEXT NOT NULL,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (role, username),
	UNIQUE (role, email)
);

CREATE TABLE IF NOT EXISTS clients (
	id                   TEXT PRIMARY KEY,
	client_name          TEXT NOT NULL,
	client_phone_numbers TEXT[] NOT NULL,
	email                TEXT NOT NULL DEFAULT '',
	temporary_address    TEXT NOT NULL DEFAULT '',
	permanent_address    TEXT NOT NULL DEFAULT '',
	shop_address         TEXT NOT NULL DEFAULT '',
	house_address        TEXT NOT NULL DEFAULT '',
	client_photo         TEXT NOT NULL DEFAULT '',
	shop_photo           TEXT NOT NULL DEFAULT '',
	house_photo          TEXT NOT NULL DEFAULT '',
	documents            TEXT[] NOT NULL DEFAULT '{}',
	referal_name         TEXT NOT NULL DEFAULT '',
	referal_number       TEXT NOT NULL DEFAULT '',
	google_maps_link     TEXT NOT NULL DEFAULT '',
	location_lat         DOUBLE PRECISION,
	location_lng         DOUBLE PRECISION,
	location_address     TEXT,
	created_by           TEXT NOT NULL,
	created_at           TIMESTAMPTZ NOT NULL,
	updated_at           TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS clients_phone_numbers_idx ON clients USING GIN (client_phone_numbers);

CREATE TABLE IF NOT EXISTS loans (
	id                TEXT PRIMARY KEY,
	client_id         TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	position          SERIAL,
	loan_number       TEXT NOT NULL UNIQUE,
	loan_amount       DOUBLE PRECISION NOT NULL,
	disbursed_amount  DOUBLE PRECISION NOT NULL,
	interest          DOUBLE PRECISION NOT NULL,
	interest_rate     DOUBLE PRECISION NOT NULL,
	interest_policy   TEXT NOT NULL,
	tenure_days       INTEGER NOT NULL,
	tenure_months     INTEGER NOT NULL,
	emi_type          TEXT NOT NULL,
	emi_amount        DOUBLE PRECISION NOT NULL,
	installment_count INTEGER NOT NULL,
	total_payable     DOUBLE PRECISION NOT NULL,
	total_collected   DOUBLE PRECISION NOT NULL,
	total_amount_left DOUBLE PRECISION NOT NULL,
	paid_emis         INTEGER NOT NULL,
	open_defaults     INTEGER NOT NULL,
	start_date        TIMESTAMPTZ NOT NULL,
	due_date          TIMESTAMPTZ NOT NULL,
	next_emi_date     TIMESTAMPTZ,
	status            TEXT NOT NULL,
	emi_records       JSONB NOT NULL DEFAULT '[]',
	created_by        TEXT NOT NULL DEFAULT '',
	version           INTEGER NOT NULL DEFAULT 0,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS loans_client_id_idx ON loans (client_id);

CREATE TABLE IF NOT EXISTS defaulted_emis (
	id               TEXT PRIMARY KEY,
	client_id        TEXT NOT NULL REFERENCES clients(id) ON DELETE CASCADE,
	loan_id          TEXT NOT NULL REFERENCES loans(id) ON DELETE CASCADE,
	loan_number      TEXT NOT NULL,
	amount_due       DOUBLE PRECISION NOT NULL,
	date             TIMESTAMPTZ NOT NULL,
	location_lat     DOUBLE PRECISION NOT NULL,
	location_lng     DOUBLE PRECISION NOT NULL,
	location_address TEXT NOT NULL DEFAULT '',
	recorded_by      TEXT NOT NULL,
	reason           TEXT NOT NULL,
	created_at       TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS defaulted_emis_client_id_idx ON defaulted_emis (client_id);
`

// Migrate creates the tables when they do not exist
func Migrate(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}
