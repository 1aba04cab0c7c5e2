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

type EntryInput struct {
	Key     string `json:"key"`
	Comment string `json:"comment"`
}

type EntryPatch struct {
	Key     *string `json:"key"`
	Comment *string `json:"comment"`
	Copied  *bool   `json:"copied"`
}

// TranslationResult reports what SetTranslation did.
type TranslationResult struct {
	Translation *model.Translation `json:"translation,omitempty"`
	Created     bool               `json:"created"`
	Deleted     bool               `json:"deleted"`
}

func (r *Repo) queryEntries(ctx context.Context, q store.Querier, query string, args ...any) ([]model.TranslationEntry, error) {
	rows, err := q.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, r.mapErr("list entries", err)
	}
	defer rows.Close()

	out := []model.TranslationEntry{}
	for rows.Next() {
		var (
			e       model.TranslationEntry
			comment sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.GroupID, &e.Key, &comment, &e.Copied); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Comment = str(comment)
		e.Translations = []model.Translation{}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repo) queryTranslations(ctx context.Context, q store.Querier, query string, args ...any) ([]model.Translation, error) {
	rows, err := q.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, r.mapErr("list translations", err)
	}
	defer rows.Close()

	out := []model.Translation{}
	for rows.Next() {
		var t model.Translation
		if err := rows.Scan(&t.ID, &t.EntryID, &t.LanguageID, &t.Text); err != nil {
			return nil, fmt.Errorf("scan translation: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func attachTranslations(entries []model.TranslationEntry, translations []model.Translation) {
	index := make(map[int64]int, len(entries))
	for i, e := range entries {
		index[e.ID] = i
	}
	for _, t := range translations {
		if i, ok := index[t.EntryID]; ok {
			entries[i].Translations = append(entries[i].Translations, t)
		}
	}
}

// ListEntries returns a group's entries with translations in stored order.
func (r *Repo) ListEntries(ctx context.Context, projectID, groupID int64) ([]model.TranslationEntry, error) {
	g, err := r.GetGroup(ctx, projectID, groupID)
	if err != nil {
		return nil, err
	}
	return g.Entries, nil
}

func (r *Repo) getEntry(ctx context.Context, q store.Querier, projectID, groupID, entryID int64) (model.TranslationEntry, error) {
	entries, err := r.queryEntries(ctx, q, `
		SELECT e.id, e.group_id, e.key, e.comment, e.copied
		FROM translation_entries e
		JOIN translation_groups g ON g.id = e.group_id
		WHERE e.id = ? AND e.group_id = ? AND g.project_id = ?`, entryID, groupID, projectID)
	if err != nil {
		return model.TranslationEntry{}, err
	}
	if len(entries) == 0 {
		return model.TranslationEntry{}, notFound("entry", entryID)
	}
	translations, err := r.queryTranslations(ctx, q,
		`SELECT id, entry_id, language_id, text FROM translations WHERE entry_id = ? ORDER BY id`, entryID)
	if err != nil {
		return model.TranslationEntry{}, err
	}
	attachTranslations(entries, translations)
	return entries[0], nil
}

func (r *Repo) GetEntry(ctx context.Context, projectID, groupID, entryID int64) (model.TranslationEntry, error) {
	return r.getEntry(ctx, r.store.DB, projectID, groupID, entryID)
}

// CreateEntry adds an entry; keys are unique within a group.
func (r *Repo) CreateEntry(ctx context.Context, projectID, groupID int64, in EntryInput) (model.TranslationEntry, error) {
	key := strings.TrimSpace(in.Key)
	if key == "" {
		return model.TranslationEntry{}, invalid("key", "is required")
	}
	if _, err := r.GetGroup(ctx, projectID, groupID); err != nil {
		return model.TranslationEntry{}, err
	}
	return r.createEntry(ctx, r.store.DB, groupID, key, in.Comment)
}

func (r *Repo) createEntry(ctx context.Context, q store.Querier, groupID int64, key, comment string) (model.TranslationEntry, error) {
	e := model.TranslationEntry{GroupID: groupID, Key: key, Comment: comment, Translations: []model.Translation{}}
	id, err := store.InsertID(ctx, q,
		r.q(`INSERT INTO translation_entries (group_id, key, comment, copied) VALUES (?, ?, ?, ?) RETURNING id`),
		groupID, key, store.NullString(comment), false)
	if err != nil {
		return e, r.mapErr("create entry", err)
	}
	e.ID = id
	return e, nil
}

// ensureEntry returns the id of the entry with key in the group, creating it if needed.
func (r *Repo) ensureEntry(ctx context.Context, q store.Querier, groupID int64, key, comment string) (int64, error) {
	var id int64
	err := q.QueryRowContext(ctx,
		r.q(`SELECT id FROM translation_entries WHERE group_id = ? AND key = ?`), groupID, key).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return 0, r.mapErr("find entry", err)
	}
	e, err := r.createEntry(ctx, q, groupID, key, comment)
	if err != nil {
		return 0, err
	}
	return e.ID, nil
}

func (r *Repo) UpdateEntry(ctx context.Context, projectID, groupID, entryID int64, patch EntryPatch) (model.TranslationEntry, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if patch.Key != nil {
		key := strings.TrimSpace(*patch.Key)
		if key == "" {
			return model.TranslationEntry{}, invalid("key", "must not be empty")
		}
		sets = append(sets, "key = "+pb.Add(key))
	}
	if patch.Comment != nil {
		sets = append(sets, "comment = "+pb.Add(store.NullString(*patch.Comment)))
	}
	if patch.Copied != nil {
		sets = append(sets, "copied = "+pb.Add(*patch.Copied))
	}
	if len(sets) == 0 {
		return model.TranslationEntry{}, ErrNothingToUpdate
	}
	if _, err := r.GetEntry(ctx, projectID, groupID, entryID); err != nil {
		return model.TranslationEntry{}, err
	}
	_, err := store.Exec(ctx, r.store.DB,
		fmt.Sprintf(`UPDATE translation_entries SET %s WHERE id = %s`, strings.Join(sets, ", "), pb.Add(entryID)),
		pb.Params()...)
	if err != nil {
		return model.TranslationEntry{}, r.mapErr("update entry", err)
	}
	return r.GetEntry(ctx, projectID, groupID, entryID)
}

func (r *Repo) DeleteEntry(ctx context.Context, projectID, groupID, entryID int64) error {
	if _, err := r.GetEntry(ctx, projectID, groupID, entryID); err != nil {
		return err
	}
	if _, err := store.Exec(ctx, r.store.DB, r.q(`DELETE FROM translation_entries WHERE id = ?`), entryID); err != nil {
		return r.mapErr("delete entry", err)
	}
	return nil
}

// SetTranslation stores text for an entry and language. Blank text deletes
// any existing translation instead of storing it.
func (r *Repo) SetTranslation(ctx context.Context, projectID, groupID, entryID, languageID int64, text string) (TranslationResult, error) {
	var res TranslationResult
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getEntry(ctx, tx, projectID, groupID, entryID); err != nil {
			return err
		}
		var err error
		res, err = r.setTranslation(ctx, tx, entryID, languageID, text)
		return err
	})
	return res, err
}

func (r *Repo) setTranslation(ctx context.Context, q store.Querier, entryID, languageID int64, text string) (TranslationResult, error) {
	if languageID == 0 {
		return TranslationResult{}, invalid("languageId", "is required")
	}
	if model.IsBlank(text) {
		n, err := store.Exec(ctx, q,
			r.q(`DELETE FROM translations WHERE entry_id = ? AND language_id = ?`), entryID, languageID)
		if err != nil {
			return TranslationResult{}, r.mapErr("delete translation", err)
		}
		return TranslationResult{Deleted: n > 0}, nil
	}

	t := &model.Translation{EntryID: entryID, LanguageID: languageID, Text: text}
	err := q.QueryRowContext(ctx,
		r.q(`UPDATE translations SET text = ? WHERE entry_id = ? AND language_id = ? RETURNING id`),
		text, entryID, languageID).Scan(&t.ID)
	if err == nil {
		return TranslationResult{Translation: t}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return TranslationResult{}, r.mapErr("update translation", err)
	}

	t.ID, err = store.InsertID(ctx, q,
		r.q(`INSERT INTO translations (entry_id, language_id, text) VALUES (?, ?, ?) RETURNING id`),
		entryID, languageID, text)
	if err != nil {
		err = store.MapError(r.store.Dialect, err)
		if errors.Is(err, store.ErrForeignKey) {
			return TranslationResult{}, notFound("language", languageID)
		}
		return TranslationResult{}, fmt.Errorf("create translation: %w", err)
	}
	return TranslationResult{Translation: t, Created: true}, nil
}
