package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf16"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/orderedjson"
)

// Document is the portable form of one dialog.
type Document struct {
	StartSection string    `json:"startSection"`
	Sections     []Section `json:"sections"`
}

type Section struct {
	ID    string                `json:"id"`
	Lines []*orderedjson.Object `json:"lines"`
}

// Resolver maps entry keys of one translation group to exported keys.
type Resolver struct {
	ProjectName string
	GroupName   string
}

// Key returns the exported key for an entry key of the resolver's group.
func (r Resolver) Key(entryKey string) string {
	return BuildExportedKey(r.ProjectName, r.GroupName, entryKey)
}

// NewResolver builds the resolver for a dialog. group may be nil, in which
// case the dialog's default group name is used.
func NewResolver(projectName string, dialog model.Dialog, group *model.TranslationGroup) Resolver {
	name := model.DialogGroupName(dialog.ID)
	if group != nil && group.Name != "" {
		name = group.Name
	}
	return Resolver{ProjectName: projectName, GroupName: name}
}

// Dialog builds the export document of a dialog whose sections and lines are
// already in persisted order.
func Dialog(projectName string, dialog model.Dialog, group *model.TranslationGroup) Document {
	r := NewResolver(projectName, dialog, group)
	doc := Document{
		StartSection: dialog.StartSection,
		Sections:     make([]Section, 0, len(dialog.Sections)),
	}
	for _, s := range dialog.Sections {
		sec := Section{ID: s.SectionID, Lines: make([]*orderedjson.Object, 0, len(s.Lines))}
		for _, l := range s.Lines {
			sec.Lines = append(sec.Lines, Line(r, l))
		}
		doc.Sections = append(doc.Sections, sec)
	}
	return doc
}

// Line builds the exported object of a single line. Empty fields are
// omitted. Data members are merged over the base fields. Arrays and strings
// contribute one member per index and other scalars nothing; data that does
// not parse, or is null, is kept verbatim under "data".
func Line(r Resolver, l model.DialogLine) *orderedjson.Object {
	out := orderedjson.New()
	out.SetString("type", string(l.Type))
	if l.Speaker != "" {
		out.SetString("speaker", l.Speaker)
	}
	if l.TextKey != "" {
		out.SetString("text", r.Key(l.TextKey))
	}
	if l.Background != "" {
		out.SetString("background", l.Background)
	}
	if l.EventName != "" {
		out.SetString("name", l.EventName)
	}
	if l.EventValue != "" {
		out.SetString("value", l.EventValue)
	}
	if l.Data == "" {
		return out
	}

	parsed, err := orderedjson.Parse([]byte(l.Data))
	switch {
	case err == nil:
		mapOptionTexts(parsed, r.Key)
		out.Merge(parsed)
	case errors.Is(err, orderedjson.ErrNotObject) && mergeIndexed(out, l.Data):
	default:
		out.SetString("data", l.Data)
	}
	out.IndexKeysFirst()
	return out
}

// mergeIndexed merges a non-object JSON value into out. It reports false
// for null, which has no members to merge.
func mergeIndexed(out *orderedjson.Object, data string) bool {
	raw := bytes.TrimSpace([]byte(data))
	switch raw[0] {
	case 'n':
		return false
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return false
		}
		for i, item := range items {
			out.SetRaw(strconv.Itoa(i), item)
		}
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return false
		}
		// one member per UTF-16 code unit
		i := 0
		for _, r := range s {
			if r1, r2 := utf16.EncodeRune(r); r1 != unicode.ReplacementChar {
				out.SetRaw(strconv.Itoa(i), json.RawMessage(fmt.Sprintf(`"\u%04x"`, r1)))
				out.SetRaw(strconv.Itoa(i+1), json.RawMessage(fmt.Sprintf(`"\u%04x"`, r2)))
				i += 2
				continue
			}
			out.SetString(strconv.Itoa(i), string(r))
			i++
		}
	}
	return true
}

// mapOptionTexts rewrites each option's text with fn. Options that are not
// objects, or whose text is not a non-empty string, are left untouched.
func mapOptionTexts(payload *orderedjson.Object, fn func(string) string) {
	raw, ok := payload.Raw("options")
	if !ok {
		return
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return
	}
	for i, item := range items {
		opt, err := orderedjson.Parse(item)
		if err != nil {
			continue
		}
		text, ok := opt.String("text")
		if !ok || text == "" {
			continue
		}
		opt.SetString("text", fn(text))
		if enc, err := orderedjson.Marshal(opt, ""); err == nil {
			items[i] = enc
		}
	}
	if enc, err := orderedjson.Marshal(items, ""); err == nil {
		payload.SetRaw("options", enc)
	}
}

// Marshal encodes a document with a two-space indent.
func Marshal(doc Document) ([]byte, error) {
	return orderedjson.Marshal(doc, "  ")
}

// Filename is the download name of a dialog's export.
func Filename(dialogID string) string {
	return dialogID + ".json"
}
