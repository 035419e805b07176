package postgres

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Open opens a PostgreSQL database using the pgx stdlib driver.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// Migrate runs idempotent DDL migrations for the chat schema on PostgreSQL.
func Migrate(db *sql.DB) error {
	stmts := []string{
		// Message log
		`CREATE TABLE IF NOT EXISTS messages (
			seq             BIGSERIAL    PRIMARY KEY,
			id              UUID         UNIQUE NOT NULL,
			conversation_id TEXT         NOT NULL,
			sender_id       TEXT         NOT NULL,
			type            VARCHAR(16)  NOT NULL,
			text            TEXT         NOT NULL DEFAULT '',
			media_url       TEXT         NOT NULL DEFAULT '',
			created_at      TIMESTAMPTZ  NOT NULL DEFAULT NOW(),
			status          VARCHAR(16)  NOT NULL
		)`,

		// Presence
		`CREATE TABLE IF NOT EXISTS presence (
			user_id   TEXT         PRIMARY KEY,
			status    VARCHAR(16)  NOT NULL,
			last_seen TIMESTAMPTZ  NOT NULL DEFAULT NOW()
		)`,

		// Profiles
		`CREATE TABLE IF NOT EXISTS profiles (
			user_id       TEXT          PRIMARY KEY,
			display_name  VARCHAR(100)  NOT NULL,
			photo_url     TEXT          NOT NULL DEFAULT '',
			password_hash VARCHAR(255)  NOT NULL DEFAULT '',
			created_at    TIMESTAMPTZ   NOT NULL DEFAULT NOW()
		)`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_messages_conv_created ON messages(conversation_id, created_at, seq)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_sender ON messages(sender_id)`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w\nSQL: %s", err, stmt)
		}
	}
	return nil
}
