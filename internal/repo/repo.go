// Package repo persists projects, translation tables and dialogs on top of
// the store, and enforces the invariants that span several tables: blank
// translations are never stored, and deleting a dialog, section or line
// removes the translation entries it owned.
package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

// ErrNothingToUpdate is returned by patch operations without any field set.
var ErrNothingToUpdate = errors.New("nothing to update")

// ValidationError rejects input before anything is written.
type ValidationError struct {
	Field   string `json:"field,omitempty"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

func notFound(what string, id any) error {
	return fmt.Errorf("%s %v: %w", what, id, store.ErrNotFound)
}

type Repo struct {
	store  *store.Store
	policy model.EntryCreationPolicy

	mu   sync.Mutex
	last int64
}

func New(s *store.Store, policy model.EntryCreationPolicy) *Repo {
	return &Repo{store: s, policy: policy}
}

// Policy is the entry creation policy used for dialog lines.
func (r *Repo) Policy() model.EntryCreationPolicy { return r.policy }

// stamp returns a strictly increasing creation timestamp in unix nanoseconds.
func (r *Repo) stamp() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := time.Now().UnixNano()
	if n <= r.last {
		n = r.last + 1
	}
	r.last = n
	return n
}

func (r *Repo) q(query string) string {
	return r.store.Rebind(query)
}

// mapErr wraps err with what, translating driver errors to store sentinels.
func (r *Repo) mapErr(what string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", what, store.MapError(r.store.Dialect, err))
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func str(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}
