package repo

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/Bellian/Godot-Translation-Tool/internal/config"
	"github.com/Bellian/Godot-Translation-Tool/internal/export"
	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/store"
)

func newTestRepo(t *testing.T, policy model.EntryCreationPolicy) *Repo {
	t.Helper()
	s, err := store.New(context.Background(), config.DatabaseConfig{Driver: "sqlite", Path: t.TempDir(), Name: "repo"})
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(s.Close)
	return New(s, policy)
}

type fixture struct {
	project model.Project
	en, fr  model.Language
	dialog  model.Dialog
}

func setup(t *testing.T, r *Repo) fixture {
	t.Helper()
	ctx := context.Background()
	var f fixture
	var err error
	if f.project, err = r.CreateProject(ctx, ProjectInput{Name: "Game"}); err != nil {
		t.Fatalf("create project: %v", err)
	}
	if f.en, err = r.CreateLanguage(ctx, LanguageInput{Code: "en", Name: "English"}); err != nil {
		t.Fatalf("create language: %v", err)
	}
	if f.fr, err = r.CreateLanguage(ctx, LanguageInput{Code: "fr", Name: "French"}); err != nil {
		t.Fatalf("create language: %v", err)
	}
	for _, l := range []model.Language{f.fr, f.en} {
		if err := r.AttachLanguage(ctx, f.project.ID, l.ID); err != nil {
			t.Fatalf("attach language: %v", err)
		}
	}
	if f.dialog, err = r.CreateDialog(ctx, f.project.ID, DialogInput{ID: "d1", Name: "Intro"}); err != nil {
		t.Fatalf("create dialog: %v", err)
	}
	return f
}

func dialogGroupID(t *testing.T, r *Repo, projectID int64, dialogID string) int64 {
	t.Helper()
	id, err := r.groupByName(context.Background(), r.store.DB, projectID, model.DialogGroupName(dialogID))
	if err != nil {
		t.Fatalf("dialog group: %v", err)
	}
	return id
}

func TestProjectLanguages(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	p, err := r.GetProject(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("get project: %v", err)
	}
	if len(p.Languages) != 2 || p.Languages[0].Code != "en" || p.Languages[1].Code != "fr" {
		t.Fatalf("expected languages ordered by code, got %+v", p.Languages)
	}
	if err := r.AttachLanguage(ctx, f.project.ID, f.en.ID); err != nil {
		t.Fatalf("attaching twice should be a no-op, got %v", err)
	}

	if err := r.DetachLanguage(ctx, f.project.ID, f.fr.ID); err != nil {
		t.Fatalf("detach: %v", err)
	}
	if _, err := r.GetLanguage(ctx, f.fr.ID); err != nil {
		t.Fatalf("detaching must keep the language: %v", err)
	}
	if err := r.DetachLanguage(ctx, f.project.ID, f.fr.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	if _, err := r.CreateLanguage(ctx, LanguageInput{Code: "en", Name: "Again"}); !errors.Is(err, store.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
}

func TestPatchWithoutFields(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	f := setup(t, r)
	if _, err := r.UpdateProject(context.Background(), f.project.ID, ProjectPatch{}); !errors.Is(err, ErrNothingToUpdate) {
		t.Fatalf("expected ErrNothingToUpdate, got %v", err)
	}
}

func TestValidationBeforeWrite(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	var verr *ValidationError
	if _, err := r.CreateEntry(ctx, f.project.ID, groupID, EntryInput{Key: "  "}); !errors.As(err, &verr) || verr.Field != "key" {
		t.Fatalf("expected key validation error, got %v", err)
	}
	if _, err := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{}); !errors.As(err, &verr) || verr.Field != "type" {
		t.Fatalf("expected type validation error, got %v", err)
	}
	if _, err := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{Type: "monologue"}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for unknown type, got %v", err)
	}
}

func TestBlankTranslationIsNeverStored(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	// languages 3 to 5
	for _, code := range []string{"de", "es", "it"} {
		if _, err := r.CreateLanguage(ctx, LanguageInput{Code: code, Name: code}); err != nil {
			t.Fatalf("create language: %v", err)
		}
	}
	lang5, err := r.GetLanguage(ctx, 5)
	if err != nil {
		t.Fatalf("language 5: %v", err)
	}

	g, err := r.CreateGroup(ctx, f.project.ID, GroupInput{Name: "UI"})
	if err != nil {
		t.Fatalf("create group: %v", err)
	}
	e, err := r.CreateEntry(ctx, f.project.ID, g.ID, EntryInput{Key: "hello"})
	if err != nil {
		t.Fatalf("create entry: %v", err)
	}

	res, err := r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, lang5.ID, "   ")
	if err != nil {
		t.Fatalf("set blank: %v", err)
	}
	if res.Translation != nil || res.Created || res.Deleted {
		t.Fatalf("blank text on an untranslated entry should do nothing, got %+v", res)
	}

	res, err = r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, lang5.ID, "Hallo")
	if err != nil || !res.Created {
		t.Fatalf("expected created translation, got %+v, %v", res, err)
	}
	res, err = r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, lang5.ID, "Hallo!")
	if err != nil || res.Created || res.Translation == nil || res.Translation.Text != "Hallo!" {
		t.Fatalf("expected updated translation, got %+v, %v", res, err)
	}

	res, err = r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, lang5.ID, "\t ")
	if err != nil || !res.Deleted {
		t.Fatalf("expected deleted translation, got %+v, %v", res, err)
	}
	got, err := r.GetEntry(ctx, f.project.ID, g.ID, e.ID)
	if err != nil {
		t.Fatalf("get entry: %v", err)
	}
	if _, ok := got.TranslationFor(lang5.ID); ok {
		t.Fatalf("expected no translation row for language 5, got %+v", got.Translations)
	}
}

func TestGroupUntranslatedStatus(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	g, _ := r.CreateGroup(ctx, f.project.ID, GroupInput{Name: "UI"})
	e, _ := r.CreateEntry(ctx, f.project.ID, g.ID, EntryInput{Key: "hello"})
	if _, err := r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, f.en.ID, "Hi"); err != nil {
		t.Fatalf("set en: %v", err)
	}

	status := func() GroupSummary {
		t.Helper()
		groups, err := r.ListGroups(ctx, f.project.ID)
		if err != nil {
			t.Fatalf("list groups: %v", err)
		}
		for _, s := range groups {
			if s.ID == g.ID {
				return s
			}
		}
		t.Fatalf("group %d not listed", g.ID)
		return GroupSummary{}
	}
	if s := status(); !s.HasUntranslated || s.EntryCount != 1 {
		t.Fatalf("expected untranslated group with one entry, got %+v", s)
	}
	if _, err := r.SetTranslation(ctx, f.project.ID, g.ID, e.ID, f.fr.ID, "Salut"); err != nil {
		t.Fatalf("set fr: %v", err)
	}
	if s := status(); s.HasUntranslated {
		t.Fatalf("expected fully translated group, got %+v", s)
	}
}

func TestCreateDialog(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	if f.dialog.StartSection != "start" || len(f.dialog.Sections) != 1 || f.dialog.Sections[0].SectionID != "start" {
		t.Fatalf("unexpected new dialog %+v", f.dialog)
	}
	g, err := r.GetGroup(ctx, f.project.ID, dialogGroupID(t, r, f.project.ID, "d1"))
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if g.Name != "Dialog_d1" || g.Description != "Translations for dialog Intro" {
		t.Fatalf("unexpected dialog group %+v", g)
	}

	if _, err := r.CreateDialog(ctx, f.project.ID, DialogInput{ID: "d1", Name: "Copy"}); !errors.Is(err, store.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}
	groups, _ := r.ProjectGroups(ctx, f.project.ID)
	if len(groups) != 1 {
		t.Fatalf("failed create must not leave a group behind, got %d groups", len(groups))
	}

	other, _ := r.CreateProject(ctx, ProjectInput{Name: "Other"})
	if _, err := r.CreateDialog(ctx, other.ID, DialogInput{ID: "d1", Name: "Intro"}); err != nil {
		t.Fatalf("dialog ids are per project: %v", err)
	}
	if _, err := r.CreateDialog(ctx, 999, DialogInput{ID: "x", Name: "x"}); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected project not found, got %v", err)
	}
}

func TestUpdateDialogStartSection(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	missing := "nowhere"
	var verr *ValidationError
	if _, err := r.UpdateDialog(ctx, f.project.ID, "d1", DialogPatch{StartSection: &missing}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"}); err != nil {
		t.Fatalf("create section: %v", err)
	}
	end := "end"
	d, err := r.UpdateDialog(ctx, f.project.ID, "d1", DialogPatch{StartSection: &end})
	if err != nil || d.StartSection != "end" {
		t.Fatalf("expected start section end, got %+v, %v", d, err)
	}
}

func TestSections(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	end, err := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"})
	if err != nil {
		t.Fatalf("create section: %v", err)
	}
	if end.Order != 1 {
		t.Fatalf("expected order 1, got %d", end.Order)
	}
	if _, err := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"}); !errors.Is(err, store.ErrUniqueViolation) {
		t.Fatalf("expected unique violation, got %v", err)
	}

	start := f.dialog.Sections[0]
	renamed := "opening"
	if _, err := r.UpdateSection(ctx, f.project.ID, "d1", start.ID, SectionPatch{SectionID: &renamed}); err != nil {
		t.Fatalf("rename: %v", err)
	}
	d, _ := r.GetDialog(ctx, f.project.ID, "d1")
	if d.StartSection != "opening" {
		t.Fatalf("renaming the start section should move the start reference, got %q", d.StartSection)
	}

	ids, err := r.DialogSectionIDs(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("section ids: %v", err)
	}
	if strings.Join(ids, ",") != "end,opening" {
		t.Fatalf("unexpected section ids %v", ids)
	}
}

func TestEagerLineCreatesEntry(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	l, err := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{Type: "dialog", Speaker: "Amy"})
	if err != nil {
		t.Fatalf("create line: %v", err)
	}
	if !strings.HasPrefix(l.TextKey, "dialog_line_") {
		t.Fatalf("expected generated key, got %q", l.TextKey)
	}
	g, _ := r.GetGroup(ctx, f.project.ID, groupID)
	e, ok := g.Entry(l.TextKey)
	if !ok {
		t.Fatalf("expected entry for %q", l.TextKey)
	}
	if len(e.Translations) != 0 {
		t.Fatalf("eager entries start untranslated, got %+v", e.Translations)
	}

	res, err := r.SetLineText(ctx, f.project.ID, "d1", l.ID, f.en.ID, "Hello")
	if err != nil || !res.Created || res.Key != l.TextKey {
		t.Fatalf("unexpected set text result %+v, %v", res, err)
	}
}

func TestLazyLineCreatesEntryOnFirstText(t *testing.T) {
	r := newTestRepo(t, model.EntryLazy)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	l, err := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{Type: "dialog"})
	if err != nil {
		t.Fatalf("create line: %v", err)
	}
	if l.TextKey != "" {
		t.Fatalf("lazy lines start without a key, got %q", l.TextKey)
	}

	res, err := r.SetLineText(ctx, f.project.ID, "d1", l.ID, f.en.ID, "  ")
	if err != nil || res.Key != "" {
		t.Fatalf("blank text must not create a key, got %+v, %v", res, err)
	}
	if g, _ := r.GetGroup(ctx, f.project.ID, groupID); len(g.Entries) != 0 {
		t.Fatalf("expected no entries, got %+v", g.Entries)
	}

	res, err = r.SetLineText(ctx, f.project.ID, "d1", l.ID, f.en.ID, "Hello")
	if err != nil || !strings.HasPrefix(res.Key, "dialog_line_") || !res.Created {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	got, _ := r.GetLine(ctx, f.project.ID, "d1", l.ID)
	if got.TextKey != res.Key {
		t.Fatalf("line key not stored: %q vs %q", got.TextKey, res.Key)
	}
}

func TestOptionText(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	l, err := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{
		Type: "options",
		Data: `{"options":[{"text":"","nextSection":"a","extra":1},{"text":"kept","nextSection":"b"}]}`,
	})
	if err != nil {
		t.Fatalf("create line: %v", err)
	}
	var verr *ValidationError
	if _, err := r.SetOptionText(ctx, f.project.ID, "d1", l.ID, 2, f.en.ID, "x"); !errors.As(err, &verr) {
		t.Fatalf("expected index validation error, got %v", err)
	}

	res, err := r.SetOptionText(ctx, f.project.ID, "d1", l.ID, 0, f.en.ID, "Go left")
	if err != nil || !strings.HasPrefix(res.Key, "dialog_option_") {
		t.Fatalf("unexpected result %+v, %v", res, err)
	}
	want := `{"options":[{"text":"` + res.Key + `","nextSection":"a","extra":1},{"text":"kept","nextSection":"b"}]}`
	if res.Line.Data != want {
		t.Fatalf("option data\nexpected %s\ngot      %s", want, res.Line.Data)
	}
	g, _ := r.GetGroup(ctx, f.project.ID, groupID)
	if _, ok := g.Entry("kept"); !ok {
		t.Fatal("explicit option keys should have entries")
	}
	if _, ok := g.Entry(res.Key); !ok {
		t.Fatal("generated option key should have an entry")
	}
}

func TestLineChangesPruneEntries(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")
	sectionID := f.dialog.Sections[0].ID

	l, _ := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "dialog", TextKey: "line_1"})
	shared, _ := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "dialog", TextKey: "line_2"})
	if _, err := r.SetLineText(ctx, f.project.ID, "d1", l.ID, f.en.ID, "Hi"); err != nil {
		t.Fatalf("set text: %v", err)
	}

	newKey := "line_3"
	if _, err := r.UpdateLine(ctx, f.project.ID, "d1", l.ID, LinePatch{TextKey: &newKey}); err != nil {
		t.Fatalf("update line: %v", err)
	}
	g, _ := r.GetGroup(ctx, f.project.ID, groupID)
	if _, ok := g.Entry("line_1"); ok {
		t.Fatal("entry of the replaced key should be removed")
	}
	if _, ok := g.Entry("line_3"); !ok {
		t.Fatal("entry of the new key should exist")
	}

	if err := r.DeleteLine(ctx, f.project.ID, "d1", l.ID); err != nil {
		t.Fatalf("delete line: %v", err)
	}
	g, _ = r.GetGroup(ctx, f.project.ID, groupID)
	if _, ok := g.Entry("line_3"); ok {
		t.Fatal("deleting a line must delete its entry")
	}
	if _, ok := g.Entry("line_2"); !ok {
		t.Fatal("other lines' entries must survive")
	}
	if _, err := r.GetLine(ctx, f.project.ID, "d1", shared.ID); err != nil {
		t.Fatalf("other line: %v", err)
	}
}

func TestReorderLines(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	sectionID := f.dialog.Sections[0].ID

	a, _ := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "event", EventName: "a"})
	b, _ := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "event", EventName: "b"})
	if a.Order != 0 || b.Order != 1 {
		t.Fatalf("expected appended orders 0 and 1, got %d and %d", a.Order, b.Order)
	}
	if err := r.ReorderLines(ctx, f.project.ID, "d1", sectionID, []int64{b.ID, a.ID}); err != nil {
		t.Fatalf("reorder: %v", err)
	}
	s, _ := r.GetSection(ctx, f.project.ID, "d1", sectionID)
	if s.Lines[0].ID != b.ID || s.Lines[1].ID != a.ID {
		t.Fatalf("unexpected order %+v", s.Lines)
	}

	var verr *ValidationError
	if err := r.ReorderLines(ctx, f.project.ID, "d1", sectionID, []int64{999}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestDeleteSectionRemovesLineEntries(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	end, _ := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"})
	l, _ := r.CreateLine(ctx, f.project.ID, "d1", end.ID, LineInput{Type: "dialog"})
	if err := r.DeleteSection(ctx, f.project.ID, "d1", end.ID); err != nil {
		t.Fatalf("delete section: %v", err)
	}
	if _, err := r.GetLine(ctx, f.project.ID, "d1", l.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected line gone, got %v", err)
	}
	if g, _ := r.GetGroup(ctx, f.project.ID, groupID); len(g.Entries) != 0 {
		t.Fatalf("expected entries gone, got %+v", g.Entries)
	}
}

func TestDeleteDialogCascades(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	groupID := dialogGroupID(t, r, f.project.ID, "d1")

	l, _ := r.CreateLine(ctx, f.project.ID, "d1", f.dialog.Sections[0].ID, LineInput{Type: "dialog"})
	if _, err := r.SetLineText(ctx, f.project.ID, "d1", l.ID, f.en.ID, "Hi"); err != nil {
		t.Fatalf("set text: %v", err)
	}
	if err := r.DeleteDialog(ctx, f.project.ID, "d1"); err != nil {
		t.Fatalf("delete dialog: %v", err)
	}
	if _, err := r.GetDialog(ctx, f.project.ID, "d1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected dialog gone, got %v", err)
	}
	if _, err := r.GetGroup(ctx, f.project.ID, groupID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected group gone, got %v", err)
	}
	var n int
	if err := r.store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM translations").Scan(&n); err != nil || n != 0 {
		t.Fatalf("expected no translations left, got %d (%v)", n, err)
	}
	if err := r.DeleteDialog(ctx, f.project.ID, "d1"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
}

func TestDeleteProjectCascades(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)

	if err := r.DeleteProject(ctx, f.project.ID); err != nil {
		t.Fatalf("delete project: %v", err)
	}
	for _, table := range []string{"dialogs", "dialog_sections", "translation_groups", "project_languages"} {
		var n int
		if err := r.store.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil || n != 0 {
			t.Fatalf("expected %s empty, got %d (%v)", table, n, err)
		}
	}
	langs, _ := r.ListLanguages(ctx)
	if len(langs) != 2 {
		t.Fatalf("languages are shared and must survive, got %d", len(langs))
	}
}

func TestExportLoaders(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	sectionID := f.dialog.Sections[0].ID

	if _, err := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "dialog", Speaker: "Amy", TextKey: "line_1"}); err != nil {
		t.Fatalf("create line: %v", err)
	}
	if _, err := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "nextSection", Data: `{"nextSection":"end"}`}); err != nil {
		t.Fatalf("create line: %v", err)
	}
	if _, err := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"}); err != nil {
		t.Fatalf("create section: %v", err)
	}

	b, err := r.DialogExport(ctx, f.project.ID, "d1")
	if err != nil {
		t.Fatalf("dialog export: %v", err)
	}
	data, err := export.Marshal(export.Dialog(b.Project.Name, b.Dialog, b.Group))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	key := export.BuildExportedKey("Game", "Dialog_d1", "line_1")
	if !strings.Contains(string(data), `"text": "`+key+`"`) || !strings.Contains(string(data), `"nextSection": "end"`) {
		t.Fatalf("unexpected export:\n%s", data)
	}

	if _, err := r.CreateDialog(ctx, f.project.ID, DialogInput{ID: "d2", Name: "Second"}); err != nil {
		t.Fatalf("create dialog: %v", err)
	}
	_, bundles, err := r.ProjectDialogExports(ctx, f.project.ID)
	if err != nil || len(bundles) != 2 || bundles[0].Dialog.ID != "d1" || bundles[1].Dialog.ID != "d2" {
		t.Fatalf("expected dialogs by creation time, got %d bundles, %v", len(bundles), err)
	}

	p, groups, err := r.ProjectCSVData(ctx, f.project.ID)
	if err != nil {
		t.Fatalf("csv data: %v", err)
	}
	csv := export.ProjectCSV(p.Name, groups, p.Languages)
	if !strings.HasPrefix(csv, "keys,en,fr\n"+key+",,") {
		t.Fatalf("unexpected csv:\n%s", csv)
	}
}

func TestImportDialogRoundTrip(t *testing.T) {
	r := newTestRepo(t, model.EntryEager)
	ctx := context.Background()
	f := setup(t, r)
	sectionID := f.dialog.Sections[0].ID

	l, _ := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "dialog", Speaker: "Amy"})
	if _, err := r.CreateLine(ctx, f.project.ID, "d1", sectionID, LineInput{Type: "nextSection", Data: `{"nextSection":"end"}`}); err != nil {
		t.Fatalf("create line: %v", err)
	}
	if _, err := r.CreateSection(ctx, f.project.ID, "d1", SectionInput{SectionID: "end"}); err != nil {
		t.Fatalf("create section: %v", err)
	}
	b, _ := r.DialogExport(ctx, f.project.ID, "d1")
	doc := export.Dialog(b.Project.Name, b.Dialog, b.Group)

	imported, err := r.ImportDialog(ctx, f.project.ID, "d1", doc)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if len(imported.Unresolved) != 0 {
		t.Fatalf("expected every key resolved, got %v", imported.Unresolved)
	}
	d, _ := r.GetDialog(ctx, f.project.ID, "d1")
	if strings.Join(d.SectionIDs(), ",") != "start,end" || len(d.Sections[0].Lines) != 2 {
		t.Fatalf("unexpected structure after import %+v", d)
	}
	if d.Sections[0].Lines[0].TextKey != l.TextKey {
		t.Fatalf("expected key %q, got %q", l.TextKey, d.Sections[0].Lines[0].TextKey)
	}
	g, _ := r.GetGroup(ctx, f.project.ID, dialogGroupID(t, r, f.project.ID, "d1"))
	if len(g.Entries) != 1 {
		t.Fatalf("expected the single line entry to survive, got %+v", g.Entries)
	}
}
