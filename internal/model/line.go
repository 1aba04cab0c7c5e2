package model

import (
	"fmt"

	"github.com/google/uuid"
)

// LineType identifies what a dialog line does.
type LineType string

const (
	LineDialog         LineType = "dialog"
	LineOptions        LineType = "options"
	LineEvent          LineType = "event"
	LineShowBackground LineType = "showBackground"
	LineSwitch         LineType = "switch"
	LineNextSection    LineType = "nextSection"
)

var lineTypes = []LineType{LineDialog, LineOptions, LineEvent, LineShowBackground, LineSwitch, LineNextSection}

// LineTypes returns every known line type.
func LineTypes() []LineType {
	out := make([]LineType, len(lineTypes))
	copy(out, lineTypes)
	return out
}

// Valid reports whether t is a known line type.
func (t LineType) Valid() bool {
	for _, lt := range lineTypes {
		if t == lt {
			return true
		}
	}
	return false
}

// ParseLineType validates a line type string.
func ParseLineType(s string) (LineType, error) {
	t := LineType(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown line type %q", s)
	}
	return t, nil
}

// Translatable reports whether lines of this type own translation entries.
func (t LineType) Translatable() bool {
	return t == LineDialog || t == LineOptions
}

// EntryCreationPolicy decides when a dialog line's translation entry is created.
type EntryCreationPolicy int

const (
	// EntryEager creates the entry together with the line.
	EntryEager EntryCreationPolicy = iota
	// EntryLazy creates the entry when the first non-blank text is saved.
	EntryLazy
)

func (p EntryCreationPolicy) String() string {
	if p == EntryLazy {
		return "lazy"
	}
	return "eager"
}

// ParseEntryCreationPolicy accepts "eager" (or empty) and "lazy".
func ParseEntryCreationPolicy(s string) (EntryCreationPolicy, error) {
	switch s {
	case "", "eager":
		return EntryEager, nil
	case "lazy":
		return EntryLazy, nil
	}
	return EntryEager, fmt.Errorf("unknown entry creation policy %q", s)
}

// NewLineKey generates an entry key for a dialog line's text.
func NewLineKey() string {
	return "dialog_line_" + uuid.NewString()
}

// NewOptionKey generates an entry key for an option's text.
func NewOptionKey() string {
	return "dialog_option_" + uuid.NewString()
}
