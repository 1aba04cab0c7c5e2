// Package export turns dialogs and translation tables into the artifacts
// consumed by the game: per-dialog JSON documents, a ZIP of every dialog of
// a project and a CSV translation table.
package export

import (
	"strings"
	"unicode"
	"unicode/utf16"
)

// BuildExportedKey joins project, group and entry key with underscores,
// upper-cases the result and replaces every character outside [A-Z0-9]
// with '_'. Characters outside the basic multilingual plane become two
// underscores so the key keeps the UTF-16 length of its input.
func BuildExportedKey(projectName, groupName, entryKey string) string {
	raw := projectName + "_" + groupName + "_" + entryKey

	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		u := unicode.ToUpper(r)
		if (u >= 'A' && u <= 'Z') || (u >= '0' && u <= '9') {
			b.WriteRune(u)
			continue
		}
		n := utf16.RuneLen(r)
		if n < 1 {
			n = 1
		}
		b.WriteString(strings.Repeat("_", n))
	}
	return b.String()
}
