package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresDialect implements Dialect for PostgreSQL via pgx/stdlib.
type PostgresDialect struct{}

func (d *PostgresDialect) Name() string       { return "postgres" }
func (d *PostgresDialect) DriverName() string { return "pgx" }

func (d *PostgresDialect) Placeholder(index int) string {
	return fmt.Sprintf("$%d", index)
}

func (d *PostgresDialect) NewParamBuilder() ParamBuilder {
	return &pgParamBuilder{}
}

func (d *PostgresDialect) SchemaSQL() []string {
	return splitStatements(postgresSchemaSQL)
}

func (d *PostgresDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
		case "23503":
			return fmt.Errorf("%w: %w", ErrForeignKey, err)
		}
		return err
	}
	// pgx/stdlib may wrap the error; fall back to the message
	errStr := err.Error()
	if strings.Contains(errStr, "23505") || strings.Contains(errStr, "duplicate key") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if strings.Contains(errStr, "23503") {
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return err
}

// --- PostgreSQL DDL ---

const postgresSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    name        TEXT NOT NULL,
    description TEXT,
    created_at  BIGINT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS languages (
    id   BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_languages (
    project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    language_id BIGINT NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
    PRIMARY KEY (project_id, language_id)
);

CREATE TABLE IF NOT EXISTS translation_groups (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    project_id  BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS translation_entries (
    id       BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    group_id BIGINT NOT NULL REFERENCES translation_groups(id) ON DELETE CASCADE,
    key      TEXT NOT NULL,
    comment  TEXT,
    copied   BOOLEAN NOT NULL DEFAULT false,
    UNIQUE (group_id, key)
);

CREATE TABLE IF NOT EXISTS translations (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    entry_id    BIGINT NOT NULL REFERENCES translation_entries(id) ON DELETE CASCADE,
    language_id BIGINT NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
    text        TEXT NOT NULL,
    UNIQUE (entry_id, language_id)
);

CREATE TABLE IF NOT EXISTS dialogs (
    project_id    BIGINT NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    name          TEXT NOT NULL,
    description   TEXT,
    start_section TEXT,
    created_at    BIGINT NOT NULL,
    PRIMARY KEY (project_id, id)
);

CREATE TABLE IF NOT EXISTS dialog_sections (
    id         BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    project_id BIGINT NOT NULL,
    dialog_id  TEXT NOT NULL,
    section_id TEXT NOT NULL,
    ord        INTEGER NOT NULL DEFAULT 0,
    UNIQUE (project_id, dialog_id, section_id),
    FOREIGN KEY (project_id, dialog_id) REFERENCES dialogs(project_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dialog_lines (
    id          BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
    section_id  BIGINT NOT NULL REFERENCES dialog_sections(id) ON DELETE CASCADE,
    ord         INTEGER NOT NULL DEFAULT 0,
    type        TEXT NOT NULL,
    speaker     TEXT,
    text_key    TEXT,
    background  TEXT,
    event_name  TEXT,
    event_value TEXT,
    data        TEXT
);

CREATE INDEX IF NOT EXISTS idx_dialog_lines_section ON dialog_lines (section_id, ord);
CREATE INDEX IF NOT EXISTS idx_translation_entries_group ON translation_entries (group_id)
`
