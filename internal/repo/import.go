package repo

import (
	"context"
	"database/sql"

	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

// ImportDialog replaces a dialog's sections and lines with the content of an
// exported document. Exported keys are mapped back to the dialog group's
// entry keys; unknown keys get entries of their own.
func (r *Repo) ImportDialog(ctx context.Context, projectID int64, dialogID string, doc export.Document) (export.Imported, error) {
	var imported export.Imported
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		p, err := r.getProject(ctx, tx, projectID)
		if err != nil {
			return err
		}
		d, err := r.loadDialog(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		group, err := r.dialogGroup(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		var keys []string
		if group != nil {
			for _, e := range group.Entries {
				keys = append(keys, e.Key)
			}
		}
		imported = export.Import(doc, export.NewResolver(p.Name, d, group), keys)

		var previous []string
		for _, s := range d.Sections {
			for _, l := range s.Lines {
				previous = append(previous, model.TextKeys(l)...)
			}
		}
		if _, err := store.Exec(ctx, tx,
			r.q(`DELETE FROM dialog_sections WHERE project_id = ? AND dialog_id = ?`), projectID, dialogID); err != nil {
			return r.mapErr("clear sections", err)
		}

		var current []string
		for _, s := range imported.Sections {
			sec, err := r.insertSection(ctx, tx, projectID, dialogID, s.SectionID, s.Order)
			if err != nil {
				return err
			}
			for _, l := range s.Lines {
				l.SectionID = sec.ID
				if err := r.insertLine(ctx, tx, &l); err != nil {
					return err
				}
				current = append(current, model.TextKeys(l)...)
			}
		}
		if _, err := store.Exec(ctx, tx,
			r.q(`UPDATE dialogs SET start_section = ? WHERE project_id = ? AND id = ?`),
			store.NullString(imported.StartSection), projectID, dialogID); err != nil {
			return r.mapErr("set start section", err)
		}
		if err := r.ensureEntries(ctx, tx, d, current); err != nil {
			return err
		}
		return r.pruneEntries(ctx, tx, d, removedKeys(previous, current))
	})
	return imported, err
}
