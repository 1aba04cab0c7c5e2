package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrMalformedPayload marks a line whose data does not decode for its type.
var ErrMalformedPayload = errors.New("malformed payload")

// Condition gates an option or a switch branch.
type Condition struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Payload is the typed view of a line, decoded from its storage columns by
// DecodePayload.
type Payload interface {
	LineType() LineType
}

type DialogPayload struct {
	Speaker string
	TextKey string
}

type EventPayload struct {
	Name  string
	Value string
}

type BackgroundPayload struct {
	Path string
}

type NextSectionPayload struct {
	NextSection string `json:"nextSection"`
}

type Option struct {
	Text        string     `json:"text"`
	NextSection string     `json:"nextSection"`
	Condition   *Condition `json:"condition,omitempty"`
}

type OptionsPayload struct {
	Options []Option `json:"options"`
}

type SwitchCase struct {
	Value       json.RawMessage `json:"value,omitempty"`
	NextSection string          `json:"nextSection"`
}

// SwitchPayload covers both stored shapes: the simple {condition, nextSection}
// form written by editors and the older {cases, default} form.
type SwitchPayload struct {
	Condition   *Condition   `json:"condition,omitempty"`
	NextSection string       `json:"nextSection,omitempty"`
	Cases       []SwitchCase `json:"cases,omitempty"`
	Default     string       `json:"default,omitempty"`
}

func (DialogPayload) LineType() LineType      { return LineDialog }
func (EventPayload) LineType() LineType       { return LineEvent }
func (BackgroundPayload) LineType() LineType  { return LineShowBackground }
func (NextSectionPayload) LineType() LineType { return LineNextSection }
func (OptionsPayload) LineType() LineType     { return LineOptions }
func (SwitchPayload) LineType() LineType      { return LineSwitch }

// IsCaseList reports whether the payload uses the cases/default shape.
func (p SwitchPayload) IsCaseList() bool {
	return len(p.Cases) > 0 || p.Default != ""
}

// DecodePayload returns the typed payload of a line.
func DecodePayload(line DialogLine) (Payload, error) {
	switch line.Type {
	case LineDialog:
		return DialogPayload{Speaker: line.Speaker, TextKey: line.TextKey}, nil
	case LineEvent:
		return EventPayload{Name: line.EventName, Value: line.EventValue}, nil
	case LineShowBackground:
		return BackgroundPayload{Path: line.Background}, nil
	case LineNextSection:
		var p NextSectionPayload
		if err := decodeData(line.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	case LineOptions:
		return decodeOptions(line.Data)
	case LineSwitch:
		var p SwitchPayload
		if err := decodeData(line.Data, &p); err != nil {
			return nil, err
		}
		return p, nil
	}
	return nil, fmt.Errorf("unknown line type %q", line.Type)
}

func decodeData(data string, dst any) error {
	if strings.TrimSpace(data) == "" {
		return nil
	}
	if err := json.Unmarshal([]byte(data), dst); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return nil
}

// decodeOptions accepts {"options": [...]} as well as a bare array.
func decodeOptions(data string) (OptionsPayload, error) {
	trimmed := strings.TrimSpace(data)
	if strings.HasPrefix(trimmed, "[") {
		var opts []Option
		if err := decodeData(trimmed, &opts); err != nil {
			return OptionsPayload{}, err
		}
		return OptionsPayload{Options: opts}, nil
	}
	var p OptionsPayload
	if err := decodeData(trimmed, &p); err != nil {
		return OptionsPayload{}, err
	}
	return p, nil
}

// TextKeys returns every translation key a line references: its textKey and,
// for options lines, each option's text.
func TextKeys(line DialogLine) []string {
	var keys []string
	if line.TextKey != "" {
		keys = append(keys, line.TextKey)
	}
	if line.Type != LineOptions {
		return keys
	}
	p, err := decodeOptions(line.Data)
	if err != nil {
		return keys
	}
	for _, o := range p.Options {
		if o.Text != "" {
			keys = append(keys, o.Text)
		}
	}
	return keys
}
