package store

import (
	"fmt"
	"strings"
)

// SQLiteDialect implements Dialect for SQLite via modernc.org/sqlite.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string       { return "sqlite" }
func (d *SQLiteDialect) DriverName() string { return "sqlite" }

func (d *SQLiteDialect) Placeholder(index int) string {
	return fmt.Sprintf("?%d", index)
}

func (d *SQLiteDialect) NewParamBuilder() ParamBuilder {
	return &sqliteParamBuilder{}
}

func (d *SQLiteDialect) SchemaSQL() []string {
	return splitStatements(sqliteSchemaSQL)
}

func (d *SQLiteDialect) MapError(err error) error {
	if err == nil {
		return nil
	}
	errStr := err.Error()
	if strings.Contains(errStr, "UNIQUE constraint failed") || strings.Contains(errStr, "constraint failed: UNIQUE") {
		return fmt.Errorf("%w: %w", ErrUniqueViolation, err)
	}
	if strings.Contains(errStr, "FOREIGN KEY constraint failed") {
		return fmt.Errorf("%w: %w", ErrForeignKey, err)
	}
	return err
}

// --- SQLite DDL ---

const sqliteSchemaSQL = `
CREATE TABLE IF NOT EXISTS projects (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    name        TEXT NOT NULL,
    description TEXT,
    created_at  INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS languages (
    id   INTEGER PRIMARY KEY AUTOINCREMENT,
    code TEXT NOT NULL UNIQUE,
    name TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS project_languages (
    project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    language_id INTEGER NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
    PRIMARY KEY (project_id, language_id)
);

CREATE TABLE IF NOT EXISTS translation_groups (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id  INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    name        TEXT NOT NULL,
    description TEXT
);

CREATE TABLE IF NOT EXISTS translation_entries (
    id       INTEGER PRIMARY KEY AUTOINCREMENT,
    group_id INTEGER NOT NULL REFERENCES translation_groups(id) ON DELETE CASCADE,
    key      TEXT NOT NULL,
    comment  TEXT,
    copied   INTEGER NOT NULL DEFAULT 0,
    UNIQUE (group_id, key)
);

CREATE TABLE IF NOT EXISTS translations (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    entry_id    INTEGER NOT NULL REFERENCES translation_entries(id) ON DELETE CASCADE,
    language_id INTEGER NOT NULL REFERENCES languages(id) ON DELETE CASCADE,
    text        TEXT NOT NULL,
    UNIQUE (entry_id, language_id)
);

CREATE TABLE IF NOT EXISTS dialogs (
    project_id    INTEGER NOT NULL REFERENCES projects(id) ON DELETE CASCADE,
    id            TEXT NOT NULL,
    name          TEXT NOT NULL,
    description   TEXT,
    start_section TEXT,
    created_at    INTEGER NOT NULL,
    PRIMARY KEY (project_id, id)
);

CREATE TABLE IF NOT EXISTS dialog_sections (
    id         INTEGER PRIMARY KEY AUTOINCREMENT,
    project_id INTEGER NOT NULL,
    dialog_id  TEXT NOT NULL,
    section_id TEXT NOT NULL,
    ord        INTEGER NOT NULL DEFAULT 0,
    UNIQUE (project_id, dialog_id, section_id),
    FOREIGN KEY (project_id, dialog_id) REFERENCES dialogs(project_id, id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS dialog_lines (
    id          INTEGER PRIMARY KEY AUTOINCREMENT,
    section_id  INTEGER NOT NULL REFERENCES dialog_sections(id) ON DELETE CASCADE,
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
