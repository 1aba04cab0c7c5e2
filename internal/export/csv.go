package export

import (
	"slices"
	"strings"
	"unicode/utf16"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
)

// ProjectCSV renders the translation table of a project: a "keys" column
// with the exported key of every entry (groups and entries in stored order)
// and one column per language, ordered by language code.
func ProjectCSV(projectName string, groups []model.TranslationGroup, languages []model.Language) string {
	langs := slices.Clone(languages)
	slices.SortStableFunc(langs, func(a, b model.Language) int {
		return strings.Compare(a.Code, b.Code)
	})

	header := make([]string, 0, len(langs)+1)
	header = append(header, "keys")
	for _, l := range langs {
		header = append(header, l.Code)
	}

	lines := []string{csvRow(header)}
	for _, g := range groups {
		for _, e := range g.Entries {
			row := make([]string, 0, len(langs)+1)
			row = append(row, BuildExportedKey(projectName, g.Name, e.Key))
			for _, l := range langs {
				t, _ := e.TranslationFor(l.ID)
				row = append(row, t.Text)
			}
			lines = append(lines, csvRow(row))
		}
	}
	return strings.Join(lines, "\n")
}

func csvRow(fields []string) string {
	escaped := make([]string, len(fields))
	for i, f := range fields {
		escaped[i] = escapeCSV(f)
	}
	return strings.Join(escaped, ",")
}

// escapeCSV quotes a field only when it contains a quote, comma or line break.
func escapeCSV(field string) string {
	if !strings.ContainsAny(field, "\",\n\r") {
		return field
	}
	return `"` + strings.ReplaceAll(field, `"`, `""`) + `"`
}

// CSVFilename replaces every character outside [A-Za-z0-9-_.] in the
// project name with '_' and appends ".csv".
func CSVFilename(projectName string) string {
	var b strings.Builder
	for _, r := range projectName {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			n := utf16.RuneLen(r)
			if n < 1 {
				n = 1
			}
			b.WriteString(strings.Repeat("_", n))
		}
	}
	name := b.String()
	if name == "" {
		name = "export"
	}
	return name + ".csv"
}
