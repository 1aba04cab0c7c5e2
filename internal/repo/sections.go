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

type SectionInput struct {
	SectionID string `json:"sectionId"`
	// Order defaults to after the last section.
	Order *int `json:"order"`
}

type SectionPatch struct {
	SectionID *string `json:"sectionId"`
	Order     *int    `json:"order"`
}

func (r *Repo) insertSection(ctx context.Context, q store.Querier, projectID int64, dialogID, sectionID string, order int) (model.DialogSection, error) {
	s := model.DialogSection{ProjectID: projectID, DialogID: dialogID, SectionID: sectionID, Order: order, Lines: []model.DialogLine{}}
	id, err := store.InsertID(ctx, q,
		r.q(`INSERT INTO dialog_sections (project_id, dialog_id, section_id, ord) VALUES (?, ?, ?, ?) RETURNING id`),
		projectID, dialogID, sectionID, order)
	if err != nil {
		return s, r.mapErr("create section", err)
	}
	s.ID = id
	return s, nil
}

// getSection returns a section row (without lines) belonging to the dialog.
func (r *Repo) getSection(ctx context.Context, q store.Querier, projectID int64, dialogID string, id int64) (model.DialogSection, error) {
	s := model.DialogSection{Lines: []model.DialogLine{}}
	err := q.QueryRowContext(ctx, r.q(`
		SELECT id, project_id, dialog_id, section_id, ord
		FROM dialog_sections
		WHERE id = ? AND project_id = ? AND dialog_id = ?`), id, projectID, dialogID).
		Scan(&s.ID, &s.ProjectID, &s.DialogID, &s.SectionID, &s.Order)
	if errors.Is(err, sql.ErrNoRows) {
		return s, notFound("section", id)
	}
	if err != nil {
		return s, r.mapErr("get section", err)
	}
	return s, nil
}

// GetSection returns a section with its lines.
func (r *Repo) GetSection(ctx context.Context, projectID int64, dialogID string, id int64) (model.DialogSection, error) {
	s, err := r.getSection(ctx, r.store.DB, projectID, dialogID, id)
	if err != nil {
		return s, err
	}
	s.Lines, err = r.queryLines(ctx, r.store.DB,
		`SELECT `+lineColumns+` FROM dialog_lines l WHERE l.section_id = ? ORDER BY l.ord, l.id`, id)
	return s, err
}

// CreateSection adds a section; section ids are unique within a dialog.
func (r *Repo) CreateSection(ctx context.Context, projectID int64, dialogID string, in SectionInput) (model.DialogSection, error) {
	sectionID := strings.TrimSpace(in.SectionID)
	if sectionID == "" {
		return model.DialogSection{}, invalid("sectionId", "is required")
	}
	var s model.DialogSection
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getDialogRow(ctx, tx, projectID, dialogID); err != nil {
			return err
		}
		order := 0
		if in.Order != nil {
			order = *in.Order
		} else {
			var max sql.NullInt64
			if err := tx.QueryRowContext(ctx,
				r.q(`SELECT MAX(ord) FROM dialog_sections WHERE project_id = ? AND dialog_id = ?`),
				projectID, dialogID).Scan(&max); err != nil {
				return r.mapErr("next section order", err)
			}
			if max.Valid {
				order = int(max.Int64) + 1
			}
		}
		var err error
		s, err = r.insertSection(ctx, tx, projectID, dialogID, sectionID, order)
		return err
	})
	return s, err
}

// UpdateSection renames or reorders a section. Renaming the start section
// moves the dialog's start reference along with it.
func (r *Repo) UpdateSection(ctx context.Context, projectID int64, dialogID string, id int64, patch SectionPatch) (model.DialogSection, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var (
		sets    []string
		renamed string
	)
	if patch.SectionID != nil {
		renamed = strings.TrimSpace(*patch.SectionID)
		if renamed == "" {
			return model.DialogSection{}, invalid("sectionId", "must not be empty")
		}
		sets = append(sets, "section_id = "+pb.Add(renamed))
	}
	if patch.Order != nil {
		sets = append(sets, "ord = "+pb.Add(*patch.Order))
	}
	if len(sets) == 0 {
		return model.DialogSection{}, ErrNothingToUpdate
	}

	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		old, err := r.getSection(ctx, tx, projectID, dialogID, id)
		if err != nil {
			return err
		}
		if _, err := store.Exec(ctx, tx,
			fmt.Sprintf(`UPDATE dialog_sections SET %s WHERE id = %s`, strings.Join(sets, ", "), pb.Add(id)),
			pb.Params()...); err != nil {
			return r.mapErr("update section", err)
		}
		if renamed == "" || renamed == old.SectionID {
			return nil
		}
		if _, err := store.Exec(ctx, tx,
			r.q(`UPDATE dialogs SET start_section = ? WHERE project_id = ? AND id = ? AND start_section = ?`),
			renamed, projectID, dialogID, old.SectionID); err != nil {
			return r.mapErr("update start section", err)
		}
		return nil
	})
	if err != nil {
		return model.DialogSection{}, err
	}
	return r.GetSection(ctx, projectID, dialogID, id)
}

// DeleteSection removes a section, its lines and the entries those lines owned.
// The dialog's start section is left as is.
func (r *Repo) DeleteSection(ctx context.Context, projectID int64, dialogID string, id int64) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.getDialogRow(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		if _, err := r.getSection(ctx, tx, projectID, dialogID, id); err != nil {
			return err
		}
		lines, err := r.queryLines(ctx, tx,
			`SELECT `+lineColumns+` FROM dialog_lines l WHERE l.section_id = ?`, id)
		if err != nil {
			return err
		}
		var keys []string
		for _, l := range lines {
			keys = append(keys, model.TextKeys(l)...)
		}
		if _, err := store.Exec(ctx, tx, r.q(`DELETE FROM dialog_lines WHERE section_id = ?`), id); err != nil {
			return r.mapErr("delete lines", err)
		}
		if _, err := store.Exec(ctx, tx, r.q(`DELETE FROM dialog_sections WHERE id = ?`), id); err != nil {
			return r.mapErr("delete section", err)
		}
		return r.pruneEntries(ctx, tx, d, keys)
	})
}
