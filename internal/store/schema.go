package store

import (
	"context"
	"fmt"
)

// schemaDDL creates the tables the pipeline persists to. Idempotent; ran at
// startup. Patrimony uniqueness is enforced on the normalized key column so
// "pat 001" and "PAT001" collide at the database too, not only in Go.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS locations (
		id   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		name text NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS categories (
		id   uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		name text NOT NULL UNIQUE
	)`,

	`CREATE TABLE IF NOT EXISTS import_batches (
		id            uuid PRIMARY KEY,
		file_name     text NOT NULL,
		mime_type     text,
		size_bytes    bigint NOT NULL DEFAULT 0,
		row_count     integer NOT NULL DEFAULT 0,
		created_count integer NOT NULL DEFAULT 0,
		skipped_count integer NOT NULL DEFAULT 0,
		errored_count integer NOT NULL DEFAULT 0,
		status        text NOT NULL,
		error_message text NOT NULL DEFAULT '',
		commit_result jsonb,
		created_at    timestamptz NOT NULL,
		updated_at    timestamptz NOT NULL,
		processed_at  timestamptz,
		confirmed_at  timestamptz
	)`,

	`CREATE TABLE IF NOT EXISTS import_rows (
		batch_id           uuid NOT NULL REFERENCES import_batches(id) ON DELETE CASCADE,
		row_index          integer NOT NULL,
		location_text      text NOT NULL DEFAULT '',
		description        text NOT NULL DEFAULT '',
		category_text      text NOT NULL DEFAULT '',
		patrimony_number   text NOT NULL DEFAULT '',
		serial_number      text NOT NULL DEFAULT '',
		brand              text NOT NULL DEFAULT '',
		condition          text NOT NULL DEFAULT '',
		raw_value          text NOT NULL DEFAULT '',
		notes              text NOT NULL DEFAULT '',
		value              double precision,
		location_id        uuid,
		category_id        uuid,
		location_confirmed boolean NOT NULL DEFAULT false,
		category_confirmed boolean NOT NULL DEFAULT false,
		duplicate_override boolean NOT NULL DEFAULT false,
		status             text NOT NULL,
		error_message      text NOT NULL DEFAULT '',
		asset_id           uuid,
		PRIMARY KEY (batch_id, row_index)
	)`,

	`CREATE TABLE IF NOT EXISTS assets (
		id               uuid PRIMARY KEY DEFAULT gen_random_uuid(),
		patrimony_number text NOT NULL,
		patrimony_key    text NOT NULL UNIQUE,
		description      text NOT NULL,
		serial_number    text,
		brand            text,
		condition        text,
		value            double precision,
		location_id      uuid REFERENCES locations(id),
		category_id      uuid REFERENCES categories(id),
		notes            text,
		batch_id         uuid,
		created_at       timestamptz NOT NULL DEFAULT now()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_import_rows_status ON import_rows (batch_id, status)`,
	`CREATE INDEX IF NOT EXISTS idx_assets_batch ON assets (batch_id)`,
}

// EnsureSchema creates missing tables and indexes.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if _, err := s.db.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("applying schema: %w", err)
		}
	}
	return nil
}
