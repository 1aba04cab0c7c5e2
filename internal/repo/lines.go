package repo

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/orderedjson"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

type LineInput struct {
	Type       string `json:"type"`
	Speaker    string `json:"speaker"`
	TextKey    string `json:"textKey"`
	Background string `json:"background"`
	EventName  string `json:"eventName"`
	EventValue string `json:"eventValue"`
	Data       string `json:"data"`
	// Order defaults to after the last line of the section.
	Order *int `json:"order"`
}

type LinePatch struct {
	Type       *string `json:"type"`
	Speaker    *string `json:"speaker"`
	TextKey    *string `json:"textKey"`
	Background *string `json:"background"`
	EventName  *string `json:"eventName"`
	EventValue *string `json:"eventValue"`
	Data       *string `json:"data"`
	Order      *int    `json:"order"`
}

func (p LinePatch) empty() bool {
	return p.Type == nil && p.Speaker == nil && p.TextKey == nil && p.Background == nil &&
		p.EventName == nil && p.EventValue == nil && p.Data == nil && p.Order == nil
}

// LineTextResult reports the key a text was stored under.
type LineTextResult struct {
	TranslationResult
	Key  string           `json:"key,omitempty"`
	Line model.DialogLine `json:"line"`
}

const lineColumns = `l.id, l.section_id, l.ord, l.type, l.speaker, l.text_key, l.background, l.event_name, l.event_value, l.data`

func (r *Repo) queryLines(ctx context.Context, q store.Querier, query string, args ...any) ([]model.DialogLine, error) {
	rows, err := q.QueryContext(ctx, r.q(query), args...)
	if err != nil {
		return nil, r.mapErr("list lines", err)
	}
	defer rows.Close()

	out := []model.DialogLine{}
	for rows.Next() {
		var (
			l   model.DialogLine
			typ string
		)
		var speaker, textKey, background, name, value, data sql.NullString
		if err := rows.Scan(&l.ID, &l.SectionID, &l.Order, &typ, &speaker, &textKey, &background, &name, &value, &data); err != nil {
			return nil, fmt.Errorf("scan line: %w", err)
		}
		l.Type = model.LineType(typ)
		l.Speaker, l.TextKey, l.Background = str(speaker), str(textKey), str(background)
		l.EventName, l.EventValue, l.Data = str(name), str(value), str(data)
		out = append(out, l)
	}
	return out, rows.Err()
}

// getLine returns a line of the dialog.
func (r *Repo) getLine(ctx context.Context, q store.Querier, projectID int64, dialogID string, lineID int64) (model.DialogLine, error) {
	lines, err := r.queryLines(ctx, q, `
		SELECT `+lineColumns+`
		FROM dialog_lines l
		JOIN dialog_sections s ON s.id = l.section_id
		WHERE l.id = ? AND s.project_id = ? AND s.dialog_id = ?`, lineID, projectID, dialogID)
	if err != nil {
		return model.DialogLine{}, err
	}
	if len(lines) == 0 {
		return model.DialogLine{}, notFound("line", lineID)
	}
	return lines[0], nil
}

func (r *Repo) GetLine(ctx context.Context, projectID int64, dialogID string, lineID int64) (model.DialogLine, error) {
	return r.getLine(ctx, r.store.DB, projectID, dialogID, lineID)
}

func (r *Repo) insertLine(ctx context.Context, q store.Querier, l *model.DialogLine) error {
	id, err := store.InsertID(ctx, q, r.q(`
		INSERT INTO dialog_lines (section_id, ord, type, speaker, text_key, background, event_name, event_value, data)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
		l.SectionID, l.Order, string(l.Type),
		store.NullString(l.Speaker), store.NullString(l.TextKey), store.NullString(l.Background),
		store.NullString(l.EventName), store.NullString(l.EventValue), store.NullString(l.Data))
	if err != nil {
		return r.mapErr("create line", err)
	}
	l.ID = id
	return nil
}

func (r *Repo) writeLine(ctx context.Context, q store.Querier, l model.DialogLine) error {
	_, err := store.Exec(ctx, q, r.q(`
		UPDATE dialog_lines
		SET ord = ?, type = ?, speaker = ?, text_key = ?, background = ?, event_name = ?, event_value = ?, data = ?
		WHERE id = ?`),
		l.Order, string(l.Type),
		store.NullString(l.Speaker), store.NullString(l.TextKey), store.NullString(l.Background),
		store.NullString(l.EventName), store.NullString(l.EventValue), store.NullString(l.Data), l.ID)
	if err != nil {
		return r.mapErr("update line", err)
	}
	return nil
}

// CreateLine appends a line to a section. Under the eager policy a dialog
// line without a text key gets a generated key and an empty entry.
func (r *Repo) CreateLine(ctx context.Context, projectID int64, dialogID string, sectionID int64, in LineInput) (model.DialogLine, error) {
	if strings.TrimSpace(in.Type) == "" {
		return model.DialogLine{}, invalid("type", "is required")
	}
	typ, err := model.ParseLineType(in.Type)
	if err != nil {
		return model.DialogLine{}, invalid("type", err.Error())
	}

	l := model.DialogLine{
		SectionID:  sectionID,
		Type:       typ,
		Speaker:    in.Speaker,
		TextKey:    in.TextKey,
		Background: in.Background,
		EventName:  in.EventName,
		EventValue: in.EventValue,
		Data:       in.Data,
	}
	if r.policy == model.EntryEager && typ == model.LineDialog && l.TextKey == "" {
		l.TextKey = model.NewLineKey()
	}

	err = r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		if _, err := r.getSection(ctx, tx, projectID, dialogID, sectionID); err != nil {
			return err
		}
		if in.Order != nil {
			l.Order = *in.Order
		} else {
			var max sql.NullInt64
			if err := tx.QueryRowContext(ctx,
				r.q(`SELECT MAX(ord) FROM dialog_lines WHERE section_id = ?`), sectionID).Scan(&max); err != nil {
				return r.mapErr("next line order", err)
			}
			if max.Valid {
				l.Order = int(max.Int64) + 1
			}
		}
		if err := r.insertLine(ctx, tx, &l); err != nil {
			return err
		}
		return r.ensureEntries(ctx, tx, d, model.TextKeys(l))
	})
	if err != nil {
		return model.DialogLine{}, err
	}
	return l, nil
}

// UpdateLine applies a partial update. Entries for keys the line no longer
// references are removed; entries for new keys are created.
func (r *Repo) UpdateLine(ctx context.Context, projectID int64, dialogID string, lineID int64, patch LinePatch) (model.DialogLine, error) {
	if patch.empty() {
		return model.DialogLine{}, ErrNothingToUpdate
	}
	var l model.DialogLine
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		old, err := r.getLine(ctx, tx, projectID, dialogID, lineID)
		if err != nil {
			return err
		}
		l = old
		if patch.Type != nil {
			typ, err := model.ParseLineType(*patch.Type)
			if err != nil {
				return invalid("type", err.Error())
			}
			l.Type = typ
		}
		set := func(dst *string, v *string) {
			if v != nil {
				*dst = *v
			}
		}
		set(&l.Speaker, patch.Speaker)
		set(&l.TextKey, patch.TextKey)
		set(&l.Background, patch.Background)
		set(&l.EventName, patch.EventName)
		set(&l.EventValue, patch.EventValue)
		set(&l.Data, patch.Data)
		if patch.Order != nil {
			l.Order = *patch.Order
		}
		if r.policy == model.EntryEager && l.Type == model.LineDialog && l.TextKey == "" && patch.TextKey == nil {
			l.TextKey = model.NewLineKey()
		}

		if err := r.writeLine(ctx, tx, l); err != nil {
			return err
		}
		if err := r.ensureEntries(ctx, tx, d, model.TextKeys(l)); err != nil {
			return err
		}
		return r.pruneEntries(ctx, tx, d, removedKeys(model.TextKeys(old), model.TextKeys(l)))
	})
	if err != nil {
		return model.DialogLine{}, err
	}
	return l, nil
}

// DeleteLine removes a line and the entries of its text keys.
func (r *Repo) DeleteLine(ctx context.Context, projectID int64, dialogID string, lineID int64) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		l, err := r.getLine(ctx, tx, projectID, dialogID, lineID)
		if err != nil {
			return err
		}
		if _, err := store.Exec(ctx, tx, r.q(`DELETE FROM dialog_lines WHERE id = ?`), lineID); err != nil {
			return r.mapErr("delete line", err)
		}
		return r.pruneEntries(ctx, tx, d, model.TextKeys(l))
	})
}

// ReorderLines sets each listed line's order to its index in lineIDs.
func (r *Repo) ReorderLines(ctx context.Context, projectID int64, dialogID string, sectionID int64, lineIDs []int64) error {
	if len(lineIDs) == 0 {
		return invalid("lineIds", "is required")
	}
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getSection(ctx, tx, projectID, dialogID, sectionID); err != nil {
			return err
		}
		lines, err := r.queryLines(ctx, tx,
			`SELECT `+lineColumns+` FROM dialog_lines l WHERE l.section_id = ?`, sectionID)
		if err != nil {
			return err
		}
		known := make(map[int64]bool, len(lines))
		for _, l := range lines {
			known[l.ID] = true
		}
		for i, id := range lineIDs {
			if !known[id] {
				return invalid("lineIds", fmt.Sprintf("line %d is not in section %d", id, sectionID))
			}
			if _, err := store.Exec(ctx, tx, r.q(`UPDATE dialog_lines SET ord = ? WHERE id = ?`), i, id); err != nil {
				return r.mapErr("reorder lines", err)
			}
		}
		return nil
	})
}

// SetLineText stores a dialog line's text for one language. Under the lazy
// policy the first non-blank text creates the line's key and entry.
func (r *Repo) SetLineText(ctx context.Context, projectID int64, dialogID string, lineID, languageID int64, text string) (LineTextResult, error) {
	var res LineTextResult
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		l, err := r.getLine(ctx, tx, projectID, dialogID, lineID)
		if err != nil {
			return err
		}
		if l.Type != model.LineDialog {
			return invalid("type", fmt.Sprintf("%s lines have no text", l.Type))
		}
		if l.TextKey == "" {
			if model.IsBlank(text) {
				res.Line = l
				return nil
			}
			l.TextKey = model.NewLineKey()
			if err := r.writeLine(ctx, tx, l); err != nil {
				return err
			}
		}
		res.Key, res.Line = l.TextKey, l
		res.TranslationResult, err = r.setKeyText(ctx, tx, d, l.TextKey, languageID, text)
		return err
	})
	return res, err
}

// SetOptionText stores the text of option index of an options line. A missing
// option key is generated on the first non-blank text.
func (r *Repo) SetOptionText(ctx context.Context, projectID int64, dialogID string, lineID int64, index int, languageID int64, text string) (LineTextResult, error) {
	var res LineTextResult
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		l, err := r.getLine(ctx, tx, projectID, dialogID, lineID)
		if err != nil {
			return err
		}
		if l.Type != model.LineOptions {
			return invalid("type", fmt.Sprintf("%s lines have no options", l.Type))
		}
		opts, err := parseOptionList(l.Data)
		if err != nil {
			return invalid("data", err.Error())
		}
		if index < 0 || index >= len(opts.items) {
			return invalid("index", fmt.Sprintf("option %d out of range", index))
		}
		opt, err := orderedjson.Parse(opts.items[index])
		if err != nil {
			return invalid("data", fmt.Sprintf("option %d is not an object", index))
		}

		key, _ := opt.String("text")
		if key == "" {
			if model.IsBlank(text) {
				res.Line = l
				return nil
			}
			key = model.NewOptionKey()
			opt.SetString("text", key)
			if opts.items[index], err = orderedjson.Marshal(opt, ""); err != nil {
				return err
			}
			if l.Data, err = opts.encode(); err != nil {
				return err
			}
			if err := r.writeLine(ctx, tx, l); err != nil {
				return err
			}
		}
		res.Key, res.Line = key, l
		res.TranslationResult, err = r.setKeyText(ctx, tx, d, key, languageID, text)
		return err
	})
	return res, err
}

// setKeyText writes a translation for a key of the dialog's group.
func (r *Repo) setKeyText(ctx context.Context, tx *sql.Tx, d model.Dialog, key string, languageID int64, text string) (TranslationResult, error) {
	groupID, err := r.ensureDialogGroup(ctx, tx, d)
	if err != nil {
		return TranslationResult{}, err
	}
	entryID, err := r.ensureEntry(ctx, tx, groupID, key, "")
	if err != nil {
		return TranslationResult{}, err
	}
	return r.setTranslation(ctx, tx, entryID, languageID, text)
}

// optionList is the options array of an options line in either stored shape.
type optionList struct {
	wrapper *orderedjson.Object // nil for a bare array
	items   []json.RawMessage
}

func parseOptionList(data string) (optionList, error) {
	trimmed := strings.TrimSpace(data)
	if trimmed == "" {
		return optionList{wrapper: orderedjson.New()}, nil
	}
	if strings.HasPrefix(trimmed, "[") {
		var items []json.RawMessage
		if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
			return optionList{}, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
		}
		return optionList{items: items}, nil
	}
	obj, err := orderedjson.Parse([]byte(trimmed))
	if err != nil {
		return optionList{}, fmt.Errorf("%w: %v", model.ErrMalformedPayload, err)
	}
	out := optionList{wrapper: obj}
	if raw, ok := obj.Raw("options"); ok {
		if err := json.Unmarshal(raw, &out.items); err != nil {
			return optionList{}, fmt.Errorf("%w: options: %v", model.ErrMalformedPayload, err)
		}
	}
	return out, nil
}

func (o optionList) encode() (string, error) {
	if o.wrapper == nil {
		enc, err := orderedjson.Marshal(o.items, "")
		return string(enc), err
	}
	if err := o.wrapper.Set("options", o.items); err != nil {
		return "", err
	}
	enc, err := orderedjson.Marshal(o.wrapper, "")
	return string(enc), err
}

// ensureEntries makes sure every key has an entry in the dialog's group.
func (r *Repo) ensureEntries(ctx context.Context, tx *sql.Tx, d model.Dialog, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	groupID, err := r.ensureDialogGroup(ctx, tx, d)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if _, err := r.ensureEntry(ctx, tx, groupID, k, ""); err != nil {
			return err
		}
	}
	return nil
}

// pruneEntries deletes the entries of candidate keys that no line of the
// dialog references any more.
func (r *Repo) pruneEntries(ctx context.Context, tx *sql.Tx, d model.Dialog, candidates []string) error {
	if len(candidates) == 0 {
		return nil
	}
	groupID, err := r.groupByName(ctx, tx, d.ProjectID, model.DialogGroupName(d.ID))
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	lines, err := r.queryLines(ctx, tx, `
		SELECT `+lineColumns+`
		FROM dialog_lines l
		JOIN dialog_sections s ON s.id = l.section_id
		WHERE s.project_id = ? AND s.dialog_id = ?`, d.ProjectID, d.ID)
	if err != nil {
		return err
	}
	referenced := make(map[string]bool)
	for _, l := range lines {
		for _, k := range model.TextKeys(l) {
			referenced[k] = true
		}
	}
	var orphans []string
	for _, k := range candidates {
		if !referenced[k] {
			orphans = append(orphans, k)
		}
	}
	return r.deleteEntries(ctx, tx, groupID, orphans)
}

// deleteEntries removes the entries with the given keys; translations cascade.
func (r *Repo) deleteEntries(ctx context.Context, q store.Querier, groupID int64, keys []string) error {
	if len(keys) == 0 {
		return nil
	}
	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = k
	}
	pb := r.store.Dialect.NewParamBuilder()
	query := fmt.Sprintf(`DELETE FROM translation_entries WHERE group_id = %s AND key IN (%s)`,
		pb.Add(groupID), store.InList(pb, values))
	if _, err := store.Exec(ctx, q, query, pb.Params()...); err != nil {
		return r.mapErr("delete entries", err)
	}
	return nil
}

// removedKeys returns the keys of before that are not in after.
func removedKeys(before, after []string) []string {
	keep := make(map[string]bool, len(after))
	for _, k := range after {
		keep[k] = true
	}
	var out []string
	for _, k := range before {
		if !keep[k] {
			out = append(out, k)
		}
	}
	return out
}
