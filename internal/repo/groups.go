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

type GroupInput struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type GroupPatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// GroupSummary is a group with its translation status.
type GroupSummary struct {
	model.TranslationGroup
	EntryCount      int  `json:"entryCount"`
	HasUntranslated bool `json:"hasUntranslated"`
}

// ListGroups returns the project's groups in stored order with their
// translation status against the project's languages.
func (r *Repo) ListGroups(ctx context.Context, projectID int64) ([]GroupSummary, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	groups, err := r.loadGroups(ctx, r.store.DB, projectID, 0)
	if err != nil {
		return nil, err
	}
	langs, err := r.ProjectLanguages(ctx, projectID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, len(langs))
	for i, l := range langs {
		ids[i] = l.ID
	}

	out := make([]GroupSummary, 0, len(groups))
	for _, g := range groups {
		s := GroupSummary{EntryCount: len(g.Entries), HasUntranslated: g.HasUntranslated(ids)}
		s.TranslationGroup = g
		s.Entries = nil
		out = append(out, s)
	}
	return out, nil
}

// ProjectGroups returns every group of a project with entries and translations.
func (r *Repo) ProjectGroups(ctx context.Context, projectID int64) ([]model.TranslationGroup, error) {
	return r.loadGroups(ctx, r.store.DB, projectID, 0)
}

// GetGroup returns one group of a project with entries and translations.
func (r *Repo) GetGroup(ctx context.Context, projectID, groupID int64) (model.TranslationGroup, error) {
	groups, err := r.loadGroups(ctx, r.store.DB, projectID, groupID)
	if err != nil {
		return model.TranslationGroup{}, err
	}
	if len(groups) == 0 {
		return model.TranslationGroup{}, notFound("group", groupID)
	}
	return groups[0], nil
}

// loadGroups loads groups, entries and translations in stored order.
// groupID 0 loads every group of the project.
func (r *Repo) loadGroups(ctx context.Context, q store.Querier, projectID, groupID int64) ([]model.TranslationGroup, error) {
	filter := "g.project_id = ?"
	args := []any{projectID}
	if groupID != 0 {
		filter += " AND g.id = ?"
		args = append(args, groupID)
	}

	rows, err := q.QueryContext(ctx, r.q(`
		SELECT g.id, g.project_id, g.name, g.description
		FROM translation_groups g
		WHERE `+filter+`
		ORDER BY g.id`), args...)
	if err != nil {
		return nil, r.mapErr("list groups", err)
	}
	groups := []model.TranslationGroup{}
	index := make(map[int64]int)
	for rows.Next() {
		var (
			g    model.TranslationGroup
			desc sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.ProjectID, &g.Name, &desc); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan group: %w", err)
		}
		g.Description = str(desc)
		g.Entries = []model.TranslationEntry{}
		index[g.ID] = len(groups)
		groups = append(groups, g)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(groups) == 0 {
		return groups, nil
	}

	entries, err := r.queryEntries(ctx, q, `
		SELECT e.id, e.group_id, e.key, e.comment, e.copied
		FROM translation_entries e
		JOIN translation_groups g ON g.id = e.group_id
		WHERE `+filter+`
		ORDER BY e.id`, args...)
	if err != nil {
		return nil, err
	}
	translations, err := r.queryTranslations(ctx, q, `
		SELECT t.id, t.entry_id, t.language_id, t.text
		FROM translations t
		JOIN translation_entries e ON e.id = t.entry_id
		JOIN translation_groups g ON g.id = e.group_id
		WHERE `+filter+`
		ORDER BY t.id`, args...)
	if err != nil {
		return nil, err
	}
	attachTranslations(entries, translations)
	for _, e := range entries {
		i := index[e.GroupID]
		groups[i].Entries = append(groups[i].Entries, e)
	}
	return groups, nil
}

func (r *Repo) CreateGroup(ctx context.Context, projectID int64, in GroupInput) (model.TranslationGroup, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return model.TranslationGroup{}, invalid("name", "is required")
	}
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return model.TranslationGroup{}, err
	}
	return r.createGroup(ctx, r.store.DB, projectID, name, in.Description)
}

func (r *Repo) createGroup(ctx context.Context, q store.Querier, projectID int64, name, description string) (model.TranslationGroup, error) {
	g := model.TranslationGroup{ProjectID: projectID, Name: name, Description: description, Entries: []model.TranslationEntry{}}
	id, err := store.InsertID(ctx, q,
		r.q(`INSERT INTO translation_groups (project_id, name, description) VALUES (?, ?, ?) RETURNING id`),
		projectID, name, store.NullString(description))
	if err != nil {
		return g, r.mapErr("create group", err)
	}
	g.ID = id
	return g, nil
}

// groupByName returns the id of a project's group with the given name.
func (r *Repo) groupByName(ctx context.Context, q store.Querier, projectID int64, name string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		r.q(`SELECT id FROM translation_groups WHERE project_id = ? AND name = ? ORDER BY id LIMIT 1`),
		projectID, name).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, notFound("group", name)
	}
	if err != nil {
		return 0, r.mapErr("find group", err)
	}
	return id, nil
}

func (r *Repo) UpdateGroup(ctx context.Context, projectID, groupID int64, patch GroupPatch) (model.TranslationGroup, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.TranslationGroup{}, invalid("name", "must not be empty")
		}
		sets = append(sets, "name = "+pb.Add(name))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+pb.Add(store.NullString(*patch.Description)))
	}
	if len(sets) == 0 {
		return model.TranslationGroup{}, ErrNothingToUpdate
	}
	n, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf(`UPDATE translation_groups SET %s WHERE id = %s AND project_id = %s`,
			strings.Join(sets, ", "), pb.Add(groupID), pb.Add(projectID)),
		pb.Params()...)
	if err != nil {
		return model.TranslationGroup{}, r.mapErr("update group", err)
	}
	if n == 0 {
		return model.TranslationGroup{}, notFound("group", groupID)
	}
	return r.GetGroup(ctx, projectID, groupID)
}

// DeleteGroup removes a group with its entries and translations.
func (r *Repo) DeleteGroup(ctx context.Context, projectID, groupID int64) error {
	n, err := store.Exec(ctx, r.store.DB,
		r.q(`DELETE FROM translation_groups WHERE id = ? AND project_id = ?`), groupID, projectID)
	if err != nil {
		return r.mapErr("delete group", err)
	}
	if n == 0 {
		return notFound("group", groupID)
	}
	return nil
}
