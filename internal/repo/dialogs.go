package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

// DefaultSection is the section every new dialog starts with.
const DefaultSection = "start"

type DialogInput struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type DialogPatch struct {
	Name         *string `json:"name"`
	Description  *string `json:"description"`
	StartSection *string `json:"startSection"`
}

// DialogBundle is everything an export of one dialog needs.
type DialogBundle struct {
	Project model.Project
	Dialog  model.Dialog
	// Group is nil when the dialog's translation group does not exist.
	Group *model.TranslationGroup
}

const dialogColumns = `id, project_id, name, description, start_section, created_at`

func scanDialog(sc scanner) (model.Dialog, error) {
	var (
		d           model.Dialog
		desc, start sql.NullString
	)
	if err := sc.Scan(&d.ID, &d.ProjectID, &d.Name, &desc, &start, &d.CreatedAt); err != nil {
		return d, err
	}
	d.Description = str(desc)
	d.StartSection = str(start)
	return d, nil
}

// ListDialogs returns a project's dialogs by creation time, without sections.
func (r *Repo) ListDialogs(ctx context.Context, projectID int64) ([]model.Dialog, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	return r.listDialogs(ctx, r.store.DB, projectID)
}

func (r *Repo) listDialogs(ctx context.Context, q store.Querier, projectID int64) ([]model.Dialog, error) {
	rows, err := q.QueryContext(ctx,
		r.q(`SELECT `+dialogColumns+` FROM dialogs WHERE project_id = ? ORDER BY created_at, id`), projectID)
	if err != nil {
		return nil, r.mapErr("list dialogs", err)
	}
	defer rows.Close()

	out := []model.Dialog{}
	for rows.Next() {
		d, err := scanDialog(rows)
		if err != nil {
			return nil, fmt.Errorf("scan dialog: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// GetDialog returns a dialog with its sections and lines in persisted order.
func (r *Repo) GetDialog(ctx context.Context, projectID int64, dialogID string) (model.Dialog, error) {
	return r.loadDialog(ctx, r.store.DB, projectID, dialogID)
}

func (r *Repo) getDialogRow(ctx context.Context, q store.Querier, projectID int64, dialogID string) (model.Dialog, error) {
	row := q.QueryRowContext(ctx,
		r.q(`SELECT `+dialogColumns+` FROM dialogs WHERE project_id = ? AND id = ?`), projectID, dialogID)
	d, err := scanDialog(row)
	if errors.Is(err, sql.ErrNoRows) {
		return d, notFound("dialog", dialogID)
	}
	if err != nil {
		return d, r.mapErr("get dialog", err)
	}
	return d, nil
}

func (r *Repo) loadDialog(ctx context.Context, q store.Querier, projectID int64, dialogID string) (model.Dialog, error) {
	d, err := r.getDialogRow(ctx, q, projectID, dialogID)
	if err != nil {
		return d, err
	}
	d.Sections, err = r.loadSections(ctx, q, projectID, dialogID)
	return d, err
}

func (r *Repo) loadSections(ctx context.Context, q store.Querier, projectID int64, dialogID string) ([]model.DialogSection, error) {
	rows, err := q.QueryContext(ctx, r.q(`
		SELECT id, project_id, dialog_id, section_id, ord
		FROM dialog_sections
		WHERE project_id = ? AND dialog_id = ?
		ORDER BY ord, id`), projectID, dialogID)
	if err != nil {
		return nil, r.mapErr("list sections", err)
	}
	sections := []model.DialogSection{}
	index := make(map[int64]int)
	for rows.Next() {
		var s model.DialogSection
		if err := rows.Scan(&s.ID, &s.ProjectID, &s.DialogID, &s.SectionID, &s.Order); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan section: %w", err)
		}
		s.Lines = []model.DialogLine{}
		index[s.ID] = len(sections)
		sections = append(sections, s)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	lines, err := r.queryLines(ctx, q, `
		SELECT `+lineColumns+`
		FROM dialog_lines l
		JOIN dialog_sections s ON s.id = l.section_id
		WHERE s.project_id = ? AND s.dialog_id = ?
		ORDER BY l.ord, l.id`, projectID, dialogID)
	if err != nil {
		return nil, err
	}
	for _, l := range lines {
		i := index[l.SectionID]
		sections[i].Lines = append(sections[i].Lines, l)
	}
	return sections, nil
}

// CreateDialog creates the dialog together with its translation group and a
// "start" section, which becomes the start section.
func (r *Repo) CreateDialog(ctx context.Context, projectID int64, in DialogInput) (model.Dialog, error) {
	id := strings.TrimSpace(in.ID)
	name := strings.TrimSpace(in.Name)
	if id == "" {
		return model.Dialog{}, invalid("id", "is required")
	}
	if name == "" {
		return model.Dialog{}, invalid("name", "is required")
	}

	d := model.Dialog{
		ID:           id,
		ProjectID:    projectID,
		Name:         name,
		Description:  in.Description,
		StartSection: DefaultSection,
		CreatedAt:    r.stamp(),
	}
	err := r.store.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := r.getProject(ctx, tx, projectID); err != nil {
			return err
		}
		if _, err := store.Exec(ctx, tx, r.q(`
			INSERT INTO dialogs (project_id, id, name, description, start_section, created_at)
			VALUES (?, ?, ?, ?, ?, ?)`),
			projectID, d.ID, d.Name, store.NullString(d.Description), d.StartSection, d.CreatedAt); err != nil {
			return r.mapErr("create dialog", err)
		}
		if _, err := r.createGroup(ctx, tx, projectID, model.DialogGroupName(d.ID), model.DialogGroupDescription(d.Name)); err != nil {
			return err
		}
		s, err := r.insertSection(ctx, tx, projectID, d.ID, DefaultSection, 0)
		if err != nil {
			return err
		}
		d.Sections = []model.DialogSection{s}
		return nil
	})
	if err != nil {
		return model.Dialog{}, err
	}
	return d, nil
}

func (r *Repo) UpdateDialog(ctx context.Context, projectID int64, dialogID string, patch DialogPatch) (model.Dialog, error) {
	pb := r.store.Dialect.NewParamBuilder()
	var sets []string
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return model.Dialog{}, invalid("name", "must not be empty")
		}
		sets = append(sets, "name = "+pb.Add(name))
	}
	if patch.Description != nil {
		sets = append(sets, "description = "+pb.Add(store.NullString(*patch.Description)))
	}
	if patch.StartSection != nil {
		sets = append(sets, "start_section = "+pb.Add(store.NullString(*patch.StartSection)))
	}
	if len(sets) == 0 {
		return model.Dialog{}, ErrNothingToUpdate
	}

	d, err := r.GetDialog(ctx, projectID, dialogID)
	if err != nil {
		return model.Dialog{}, err
	}
	if patch.StartSection != nil && *patch.StartSection != "" {
		if _, ok := d.Section(*patch.StartSection); !ok {
			return model.Dialog{}, invalid("startSection", fmt.Sprintf("section %q does not exist", *patch.StartSection))
		}
	}
	_, err = store.Exec(ctx, r.store.DB,
		fmt.Sprintf(`UPDATE dialogs SET %s WHERE project_id = %s AND id = %s`,
			strings.Join(sets, ", "), pb.Add(projectID), pb.Add(dialogID)),
		pb.Params()...)
	if err != nil {
		return model.Dialog{}, r.mapErr("update dialog", err)
	}
	return r.GetDialog(ctx, projectID, dialogID)
}

// DeleteDialog removes lines, their entries, sections, the dialog and its
// translation group in one transaction.
func (r *Repo) DeleteDialog(ctx context.Context, projectID int64, dialogID string) error {
	return r.store.WithTx(ctx, func(tx *sql.Tx) error {
		d, err := r.loadDialog(ctx, tx, projectID, dialogID)
		if err != nil {
			return err
		}
		groupID, err := r.groupByName(ctx, tx, projectID, model.DialogGroupName(d.ID))
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return err
		}

		var keys []string
		for _, s := range d.Sections {
			for _, l := range s.Lines {
				keys = append(keys, model.TextKeys(l)...)
			}
		}
		if _, err := store.Exec(ctx, tx, r.q(`
			DELETE FROM dialog_lines WHERE section_id IN (
				SELECT id FROM dialog_sections WHERE project_id = ? AND dialog_id = ?)`),
			projectID, dialogID); err != nil {
			return r.mapErr("delete lines", err)
		}
		if groupID != 0 {
			if err := r.deleteEntries(ctx, tx, groupID, keys); err != nil {
				return err
			}
		}
		if _, err := store.Exec(ctx, tx,
			r.q(`DELETE FROM dialog_sections WHERE project_id = ? AND dialog_id = ?`), projectID, dialogID); err != nil {
			return r.mapErr("delete sections", err)
		}
		if _, err := store.Exec(ctx, tx,
			r.q(`DELETE FROM dialogs WHERE project_id = ? AND id = ?`), projectID, dialogID); err != nil {
			return r.mapErr("delete dialog", err)
		}
		if groupID != 0 {
			if _, err := store.Exec(ctx, tx, r.q(`DELETE FROM translation_groups WHERE id = ?`), groupID); err != nil {
				return r.mapErr("delete dialog group", err)
			}
		}
		return nil
	})
}

// DialogSectionIDs returns the distinct section ids used across a project's
// dialogs, sorted.
func (r *Repo) DialogSectionIDs(ctx context.Context, projectID int64) ([]string, error) {
	if _, err := r.GetProject(ctx, projectID); err != nil {
		return nil, err
	}
	rows, err := r.store.DB.QueryContext(ctx,
		r.q(`SELECT DISTINCT section_id FROM dialog_sections WHERE project_id = ?`), projectID)
	if err != nil {
		return nil, r.mapErr("list section ids", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan section id: %w", err)
		}
		out = append(out, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}

// dialogGroup returns the dialog's translation group, or nil if it is gone.
func (r *Repo) dialogGroup(ctx context.Context, q store.Querier, projectID int64, dialogID string) (*model.TranslationGroup, error) {
	id, err := r.groupByName(ctx, q, projectID, model.DialogGroupName(dialogID))
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	groups, err := r.loadGroups(ctx, q, projectID, id)
	if err != nil || len(groups) == 0 {
		return nil, err
	}
	return &groups[0], nil
}

// ensureDialogGroup returns the id of the dialog's group, recreating it if missing.
func (r *Repo) ensureDialogGroup(ctx context.Context, q store.Querier, d model.Dialog) (int64, error) {
	id, err := r.groupByName(ctx, q, d.ProjectID, model.DialogGroupName(d.ID))
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return 0, err
	}
	g, err := r.createGroup(ctx, q, d.ProjectID, model.DialogGroupName(d.ID), model.DialogGroupDescription(d.Name))
	if err != nil {
		return 0, err
	}
	return g.ID, nil
}

// DialogExport loads a dialog with its project and translation group.
func (r *Repo) DialogExport(ctx context.Context, projectID int64, dialogID string) (DialogBundle, error) {
	var (
		b   DialogBundle
		err error
	)
	if b.Project, err = r.GetProject(ctx, projectID); err != nil {
		return b, err
	}
	if b.Dialog, err = r.GetDialog(ctx, projectID, dialogID); err != nil {
		return b, err
	}
	b.Group, err = r.dialogGroup(ctx, r.store.DB, projectID, dialogID)
	return b, err
}

// ProjectDialogExports loads every dialog of a project by creation time.
func (r *Repo) ProjectDialogExports(ctx context.Context, projectID int64) (model.Project, []DialogBundle, error) {
	p, err := r.GetProject(ctx, projectID)
	if err != nil {
		return p, nil, err
	}
	dialogs, err := r.listDialogs(ctx, r.store.DB, projectID)
	if err != nil {
		return p, nil, err
	}
	out := make([]DialogBundle, 0, len(dialogs))
	for _, d := range dialogs {
		b := DialogBundle{Project: p}
		if b.Dialog, err = r.GetDialog(ctx, projectID, d.ID); err != nil {
			return p, nil, err
		}
		if b.Group, err = r.dialogGroup(ctx, r.store.DB, projectID, d.ID); err != nil {
			return p, nil, err
		}
		out = append(out, b)
	}
	return p, out, nil
}

// ProjectCSVData loads what the CSV export needs: the project with its
// languages and every group with entries and translations.
func (r *Repo) ProjectCSVData(ctx context.Context, projectID int64) (model.Project, []model.TranslationGroup, error) {
	p, err := r.GetProject(ctx, projectID)
	if err != nil {
		return p, nil, err
	}
	groups, err := r.ProjectGroups(ctx, projectID)
	return p, groups, err
}
