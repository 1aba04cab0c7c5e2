// Package model holds the entities of a localization project: languages,
// translation groups with their entries, and branching dialogs made of
// sections and lines.
package model

import "strings"

type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	CreatedAt   int64  `json:"createdAt"`

	Languages []Language `json:"languages,omitempty"`
}

// Language is shared across projects through the project/language link.
type Language struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
	Name string `json:"name"`
}

type TranslationGroup struct {
	ID          int64              `json:"id"`
	ProjectID   int64              `json:"projectId"`
	Name        string             `json:"name"`
	Description string             `json:"description,omitempty"`
	Entries     []TranslationEntry `json:"entries,omitempty"`
}

type TranslationEntry struct {
	ID           int64         `json:"id"`
	GroupID      int64         `json:"groupId"`
	Key          string        `json:"key"`
	Comment      string        `json:"comment,omitempty"`
	Copied       bool          `json:"copied"`
	Translations []Translation `json:"translations,omitempty"`
}

// Translation is one language's text for an entry. Blank text is never stored;
// an untranslated entry simply has no row for that language.
type Translation struct {
	ID         int64  `json:"id"`
	EntryID    int64  `json:"entryId"`
	LanguageID int64  `json:"languageId"`
	Text       string `json:"text"`
}

type Dialog struct {
	ID           string          `json:"id"`
	ProjectID    int64           `json:"projectId"`
	Name         string          `json:"name"`
	Description  string          `json:"description,omitempty"`
	StartSection string          `json:"startSection,omitempty"`
	CreatedAt    int64           `json:"createdAt"`
	Sections     []DialogSection `json:"sections,omitempty"`
}

type DialogSection struct {
	ID        int64        `json:"id"`
	ProjectID int64        `json:"projectId"`
	DialogID  string       `json:"dialogId"`
	SectionID string       `json:"sectionId"`
	Order     int          `json:"order"`
	Lines     []DialogLine `json:"lines"`
}

type DialogLine struct {
	ID         int64    `json:"id"`
	SectionID  int64    `json:"sectionId"`
	Order      int      `json:"order"`
	Type       LineType `json:"type"`
	Speaker    string   `json:"speaker,omitempty"`
	TextKey    string   `json:"textKey,omitempty"`
	Background string   `json:"background,omitempty"`
	EventName  string   `json:"eventName,omitempty"`
	EventValue string   `json:"eventValue,omitempty"`
	Data       string   `json:"data,omitempty"`
}

// DialogGroupName is the name of the translation group owned by a dialog.
func DialogGroupName(dialogID string) string {
	return "Dialog_" + dialogID
}

// DialogGroupDescription is the description given to a dialog's group on creation.
func DialogGroupDescription(dialogName string) string {
	return "Translations for dialog " + dialogName
}

// IsBlank reports whether a translation text would be stored as absent.
func IsBlank(text string) bool {
	return strings.TrimSpace(text) == ""
}

// HasUntranslated reports whether any entry of the group lacks a translation
// for one of the given languages.
func (g TranslationGroup) HasUntranslated(languageIDs []int64) bool {
	for _, e := range g.Entries {
		for _, id := range languageIDs {
			if _, ok := e.TranslationFor(id); !ok {
				return true
			}
		}
	}
	return false
}

// TranslationFor returns the entry's translation for languageID.
func (e TranslationEntry) TranslationFor(languageID int64) (Translation, bool) {
	for _, t := range e.Translations {
		if t.LanguageID == languageID {
			return t, true
		}
	}
	return Translation{}, false
}

// Entry looks up an entry by key.
func (g TranslationGroup) Entry(key string) (TranslationEntry, bool) {
	for _, e := range g.Entries {
		if e.Key == key {
			return e, true
		}
	}
	return TranslationEntry{}, false
}

// Section looks up a section by its logical id. The last match wins when
// ids are duplicated.
func (d Dialog) Section(sectionID string) (DialogSection, bool) {
	var (
		found DialogSection
		ok    bool
	)
	for _, s := range d.Sections {
		if s.SectionID == sectionID {
			found, ok = s, true
		}
	}
	return found, ok
}

// SectionIDs returns the logical ids of the dialog's sections in order.
func (d Dialog) SectionIDs() []string {
	ids := make([]string, 0, len(d.Sections))
	for _, s := range d.Sections {
		ids = append(ids, s.SectionID)
	}
	return ids
}
