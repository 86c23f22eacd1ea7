package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// migrations is the ordered schema history. Entries are append-only; the
// applied version is tracked in schema_migrations.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		email             TEXT PRIMARY KEY,
		name              TEXT NOT NULL DEFAULT '',
		key               TEXT NOT NULL,
		is_confirmed      BOOLEAN NOT NULL DEFAULT FALSE,
		is_confirmed_twice BOOLEAN NOT NULL DEFAULT FALSE,
		delivered_emails  TEXT[] NOT NULL DEFAULT '{}',
		nfc_tags          TEXT[] NOT NULL DEFAULT '{}',
		deleted_nfc_tags  TEXT[] NOT NULL DEFAULT '{}',
		created_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS workshops (
		workshop_id  TEXT PRIMARY KEY,
		email_secret TEXT NOT NULL UNIQUE,
		name         TEXT NOT NULL DEFAULT '',
		mentors      TEXT[] NOT NULL DEFAULT '{}',
		created_at   TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS workshop_members (
		workshop_id TEXT NOT NULL REFERENCES workshops(workshop_id),
		email       TEXT NOT NULL,
		joined_at   TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (workshop_id, email)
	)`,
	`CREATE TABLE IF NOT EXISTS workshop_emails (
		seq         BIGSERIAL PRIMARY KEY,
		workshop_id TEXT NOT NULL REFERENCES workshops(workshop_id),
		email_id    TEXT NOT NULL UNIQUE,
		sender      TEXT NOT NULL,
		subject     TEXT NOT NULL,
		body_text   TEXT,
		body_html   TEXT,
		raw_message TEXT,
		received_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS workshop_emails_workshop_idx ON workshop_emails (workshop_id, seq)`,
	`CREATE TABLE IF NOT EXISTS mail_errors (
		id          BIGSERIAL PRIMARY KEY,
		recipient   TEXT NOT NULL,
		sender      TEXT NOT NULL,
		subject     TEXT NOT NULL,
		detail      TEXT NOT NULL,
		occurred_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS votes (
		mac         TEXT NOT NULL,
		tag_id      TEXT NOT NULL,
		is_positive BOOLEAN NOT NULL,
		voted_at    TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (mac, tag_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sell_data (
		id      BIGSERIAL PRIMARY KEY,
		mac     TEXT NOT NULL,
		tag_id  TEXT NOT NULL,
		sold_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// Migrate brings the database schema up to date. Safe to run on every start.
func Migrate(ctx context.Context, db *sql.DB, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version INT NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var version int
	err := db.QueryRowContext(ctx, `SELECT version FROM schema_migrations`).Scan(&version)
	if err == sql.ErrNoRows {
		if _, err := db.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	for ; version < len(migrations); version++ {
		logger.Info("applying migration", "from", version, "to", version+1)
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, migrations[version]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply migration %d: %w", version+1, err)
		}
		if _, err := tx.ExecContext(ctx, `UPDATE schema_migrations SET version = $1`, version+1); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %d: %w", version+1, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %d: %w", version+1, err)
		}
	}
	return nil
}
