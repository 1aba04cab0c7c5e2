package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

type LanguageInput struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

type LanguagePatch struct {
	Code *string `json:"code"`
	Name *string `json:"name"`
}

// ListLanguages returns every language ordered by code.
func (r *Repo) ListLanguages(ctx context.Context) ([]model.Language, error) {
	rows, err := r.store.DB.QueryContext(ctx, `SELECT id, code, name FROM languages ORDER BY code`)
	if err != nil {
		return nil, r.mapErr("list languages", err)
	}
	defer rows.Close()

	out := []model.Language{}
	for rows.Next() {
		var l model.Language
		if err := rows.Scan(&l.ID, &l.Code, &l.Name); err != nil {
			return nil, fmt.Errorf("scan language: %w", err)
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) GetLanguage(ctx context.Context, id int64) (model.Language, error) {
	var l model.Language
	err := r.store.DB.QueryRowContext(ctx, r.q(`SELECT id, code, name FROM languages WHERE id = ?`), id).
		Scan(&l.ID, &l.Code, &l.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return l, notFound("language", id)
	}
	if err != nil {
		return l, r.mapErr("get language", err)
	}
	return l, nil
}

// CreateLanguage fails with store.ErrUniqueViolation when the code exists.
func (r *Repo) CreateLanguage(ctx context.Context, in LanguageInput) (model.Language, error) {
	l := model.Language{Code: strings.TrimSpace(in.Code), Name: strings.TrimSpace(in.Name)}
	if l.Code == "" {
		return l, invalid("code", "is required")
	}
	if l.Name == "" {
		return l, invalid("name", "is required")
	}
	id, err := store.InsertID(ctx, r.store.DB,
		r.q(`INSERT INTO languages (code, name) VALUES (?, ?) RETURNING id`), l.Code, l.Name)
	if err != nil {
		return l, r.mapErr("create language", err)
	}
	l.ID = id
	return l, nil
}

func (r *Repo) UpdateLanguage(ctx context.Context, id int64, patch LanguagePatch) (model.Language, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if patch.Code != nil {
		code := strings.TrimSpace(*patch.Code)
		if code == "" {
			return model.Language{}, invalid("code", "must not be empty")
		}
		sets = append(sets, "code = "+pb.Add(code))
	}
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Language{}, invalid("name", "must not be empty")
		}
		sets = append(sets, "name = "+pb.Add(name))
	}
	if len(sets) == 0 {
		return model.Language{}, ErrNothingToUpdate
	}
	n, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf(`UPDATE languages SET %s WHERE id = %s`, strings.Join(sets, ", "), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return model.Language{}, r.mapErr("update language", err)
	}
	if n == 0 {
		return model.Language{}, notFound("language", id)
	}
	return r.GetLanguage(ctx, id)
}

// DeleteLanguage removes the language together with its translations and project links.
func (r *Repo) DeleteLanguage(ctx context.Context, id int64) error {
	n, err := store.Exec(ctx, r.store.DB, r.q(`DELETE FROM languages WHERE id = ?`), id)
	if err != nil {
		return r.mapErr("delete language", err)
	}
	if n == 0 {
		return notFound("language", id)
	}
	return nil
}
