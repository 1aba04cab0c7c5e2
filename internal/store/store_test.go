package store

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/Bellian/Godot-Translation-Tool/internal/config"
)

func TestRebind(t *testing.T) {
	q := "SELECT id FROM dialogs WHERE project_id = ? AND id = ?"
	if got, want := Rebind(&PostgresDialect{}, q), "SELECT id FROM dialogs WHERE project_id = $1 AND id = $2"; got != want {
		t.Fatalf("postgres: expected %q, got %q", want, got)
	}
	if got, want := Rebind(&SQLiteDialect{}, q), "SELECT id FROM dialogs WHERE project_id = ?1 AND id = ?2"; got != want {
		t.Fatalf("sqlite: expected %q, got %q", want, got)
	}
	if got := Rebind(&PostgresDialect{}, "SELECT 1"); got != "SELECT 1" {
		t.Fatalf("expected untouched query, got %q", got)
	}
}

func TestInList(t *testing.T) {
	pb := (&PostgresDialect{}).NewParamBuilder()
	pb.Add("first")
	if got := InList(pb, []any{1, 2, 3}); got != "$2, $3, $4" {
		t.Fatalf("unexpected placeholders %q", got)
	}
	if pb.Count() != 4 || len(pb.Params()) != 4 {
		t.Fatalf("expected 4 params, got %d", pb.Count())
	}
}

func TestSQLiteMapError(t *testing.T) {
	d := &SQLiteDialect{}
	if err := d.MapError(errors.New("constraint failed: UNIQUE constraint failed: languages.code (2067)")); !errors.Is(err, ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	if err := d.MapError(errors.New("FOREIGN KEY constraint failed (787)")); !errors.Is(err, ErrForeignKey) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
	plain := errors.New("disk I/O error")
	if err := d.MapError(plain); err != plain {
		t.Fatalf("expected passthrough, got %v", err)
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(context.Background(), config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "store"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestBootstrapIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("second bootstrap: %v", err)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	_, err := s.DB.ExecContext(ctx, s.Rebind("INSERT INTO translation_groups (project_id, name) VALUES (?, ?)"), 999, "orphan")
	if !errors.Is(MapError(s.Dialect, err), ErrForeignKey) {
		t.Fatalf("expected foreign key violation, got %v", err)
	}
}

func TestWithTxRollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	boom := errors.New("boom")

	err := s.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.Rebind("INSERT INTO languages (code, name) VALUES (?, ?)"), "en", "English"); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	var n int
	if err := s.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM languages").Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected rollback, found %d languages", n)
	}
}
