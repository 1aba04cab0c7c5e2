package export

import (
	"encoding/json"
	"fmt"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
	"github.com/Bellian/Godot-Translation-Tool/internal/orderedjson"
)

// ParseDocument decodes an exported dialog document.
func ParseDocument(data []byte) (Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return Document{}, fmt.Errorf("decode dialog document: %w", err)
	}
	return doc, nil
}

// Imported is a dialog structure rebuilt from an export document.
type Imported struct {
	StartSection string
	Sections     []model.DialogSection
	// Unresolved lists exported keys that match no entry of the group.
	// They are kept verbatim as text keys.
	Unresolved []string
}

var lineColumns = map[string]bool{
	"type": true, "speaker": true, "text": true, "background": true, "name": true, "value": true,
}

// Import reverses Dialog: exported keys are mapped back to the entry keys of
// the resolver's group by recomputing BuildExportedKey for every known key.
func Import(doc Document, r Resolver, entryKeys []string) Imported {
	reverse := make(map[string]string, len(entryKeys))
	for _, k := range entryKeys {
		reverse[r.Key(k)] = k
	}
	seen := make(map[string]bool)
	out := Imported{StartSection: doc.StartSection}
	lookup := func(exported string) string {
		if k, ok := reverse[exported]; ok {
			return k
		}
		if !seen[exported] {
			seen[exported] = true
			out.Unresolved = append(out.Unresolved, exported)
		}
		return exported
	}

	for si, s := range doc.Sections {
		sec := model.DialogSection{SectionID: s.ID, Order: si, Lines: []model.DialogLine{}}
		for _, obj := range s.Lines {
			if obj == nil {
				continue
			}
			line := importLine(obj, lookup)
			line.Order = len(sec.Lines)
			sec.Lines = append(sec.Lines, line)
		}
		out.Sections = append(out.Sections, sec)
	}
	return out
}

func importLine(obj *orderedjson.Object, lookup func(string) string) model.DialogLine {
	var line model.DialogLine
	t, _ := obj.String("type")
	line.Type = model.LineType(t)
	line.Speaker, _ = obj.String("speaker")
	line.Background, _ = obj.String("background")
	line.EventName, _ = obj.String("name")
	line.EventValue, _ = obj.String("value")
	if text, ok := obj.String("text"); ok && text != "" {
		line.TextKey = lookup(text)
	}

	extra := orderedjson.New()
	for _, k := range obj.Keys() {
		if lineColumns[k] {
			continue
		}
		raw, _ := obj.Raw(k)
		extra.SetRaw(k, raw)
	}
	if extra.Len() == 0 {
		return line
	}
	if extra.Len() == 1 {
		if raw, ok := extra.String("data"); ok {
			line.Data = raw
			return line
		}
	}
	mapOptionTexts(extra, lookup)
	if enc, err := orderedjson.Marshal(extra, ""); err == nil {
		line.Data = string(enc)
	}
	return line
}
