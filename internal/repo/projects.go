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

type ProjectInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type ProjectPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func (r *Repo) ListProjects(ctx context.Context) ([]model.Project, error) {
	rows, err := r.store.DB.QueryContext(ctx, `SELECT id, name, description, created_at FROM projects ORDER BY id`)
	if err != nil {
		return nil, r.mapErr("list projects", err)
	}
	defer rows.Close()

	out := []model.Project{}
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanProject(sc scanner) (model.Project, error) {
	var (
		p    model.Project
		desc sql.NullString
	)
	if err := sc.Scan(&p.ID, &p.Name, &desc, &p.CreatedAt); err != nil {
		return p, err
	}
	p.Description = str(desc)
	return p, nil
}

// GetProject returns a project with its languages ordered by code.
func (r *Repo) GetProject(ctx context.Context, id int64) (model.Project, error) {
	return r.getProject(ctx, r.store.DB, id)
}

func (r *Repo) getProject(ctx context.Context, q store.Querier, id int64) (model.Project, error) {
	row := q.QueryRowContext(ctx, r.q(`SELECT id, name, description, created_at FROM projects WHERE id = ?`), id)
	p, err := scanProject(row)
	if errors.Is(err, sql.ErrNoRows) {
		return p, notFound("project", id)
	}
	if err != nil {
		return p, r.mapErr("get project", err)
	}
	p.Languages, err = r.projectLanguages(ctx, q, id)
	if err != nil {
		return p, err
	}
	return p, nil
}

func (r *Repo) CreateProject(ctx context.Context, in ProjectInput) (model.Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.Project{}, invalid("name", "is required")
	}
	p := model.Project{Name: name, Description: in.Description, CreatedAt: r.stamp(), Languages: []model.Language{}}
	id, err := store.InsertID(ctx, r.store.DB,
		r.q(`INSERT INTO projects (name, description, created_at) VALUES (?, ?, ?) RETURNING id`),
		p.Name, store.NullString(p.Description), p.CreatedAt)
	if err != nil {
		return p, r.mapErr("create project", err)
	}
	p.ID = id
	return p, nil
}

func (r *Repo) UpdateProject(ctx context.Context, id int64, patch ProjectPatch) (model.Project, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Project{}, invalid("name", "must not be empty")
		}
		sets = append(sets, "name = "+pb.Add(name))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+pb.Add(store.NullString(*patch.Description)))
	}
	if len(sets) == 0 {
		return model.Project{}, ErrNothingToUpdate
	}
	n, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf(`UPDATE projects SET %s WHERE id = %s`, strings.Join(sets, ", "), pb.Add(id)),
		pb.Params()...)
	if err != nil {
		return model.Project{}, r.mapErr("update project", err)
	}
	if n == 0 {
		return model.Project{}, notFound("project", id)
	}
	return r.GetProject(ctx, id)
}

// DeleteProject removes the project; groups, entries, translations, dialogs,
// sections, lines and language links cascade.
func (r *Repo) DeleteProject(ctx context.Context, id int64) error {
	n, err := store.Exec(ctx, r.store.DB, r.q(`DELETE FROM projects WHERE id = ?`), id)
	if err != nil {
		return r.mapErr("delete project", err)
	}
	if n == 0 {
		return notFound("project", id)
	}
	return nil
}

// ProjectLanguages returns the languages linked to a project, ordered by code.
func (r *Repo) ProjectLanguages(ctx context.Context, projectID int64) ([]model.Language, error) {
	return r.projectLanguages(ctx, r.store.DB, projectID)
}

func (r *Repo) projectLanguages(ctx context.Context, q store.Querier, projectID int64) ([]model.Language, error) {
	rows, err := q.QueryContext(ctx, r.q(`
		SELECT l.id, l.code, l.name
		FROM languages l
		JOIN project_languages pl ON pl.language_id = l.id
		WHERE pl.project_id = ?
		ORDER BY l.code`), projectID)
	if err != nil {
		return nil, r.mapErr("list project languages", err)
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

// AttachLanguage links a language to a project. Linking twice is a no-op.
func (r *Repo) AttachLanguage(ctx context.Context, projectID, languageID int64) error {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return err
	}
	if _, err := r.GetLanguage(ctx, languageID); err != nil {
		return err
	}
	_, err := store.Exec(ctx, r.store.DB,
		r.q(`INSERT INTO project_languages (project_id, language_id) VALUES (?, ?)`), projectID, languageID)
	if err != nil {
		err = store.MapError(r.store.Dialect, err)
		if errors.Is(err, store.ErrUniqueViolation) {
			return nil
		}
		return fmt.Errorf("attach language: %w", err)
	}
	return nil
}

// DetachLanguage removes the link; the language itself is kept.
func (r *Repo) DetachLanguage(ctx context.Context, projectID, languageID int64) error {
	n, err := store.Exec(ctx, r.store.DB,
		r.q(`DELETE FROM project_languages WHERE project_id = ? AND language_id = ?`), projectID, languageID)
	if err != nil {
		return r.mapErr("detach language", err)
	}
	if n == 0 {
		return notFound("project language", fmt.Sprintf("%d/%d", projectID, languageID))
	}
	return nil
}
