// Package lint reports structural problems in a dialog: missing or
// duplicated sections, jumps to nowhere, unresolved translation keys and
// conditions or events the game does not understand.
package lint

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
)

type Severity string

const (
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

type Finding struct {
	Severity Severity `json:"severity"`
	Code     string   `json:"code"`
	Section  string   `json:"section,omitempty"`
	LineID   int64    `json:"lineId,omitempty"`
	Message  string   `json:"message"`
}

// Input is everything a dialog is checked against.
type Input struct {
	Dialog model.Dialog
	// Group is the dialog's translation group; nil means it has no entries.
	Group *model.TranslationGroup
	// ProjectSections are the section ids of every dialog in the project.
	ProjectSections []string
	Policy          model.EntryCreationPolicy
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityError {
			return true
		}
	}
	return false
}

type checker struct {
	cat      *Catalogue
	in       Input
	sections map[string]int
	keys     map[string]bool
	findings []Finding
}

// Check runs every rule against the dialog and returns findings in
// section and line order.
func (c *Catalogue) Check(in Input) []Finding {
	ch := &checker{
		cat:      c,
		in:       in,
		sections: make(map[string]int),
		keys:     make(map[string]bool),
		findings: []Finding{},
	}
	if in.Group != nil {
		for _, e := range in.Group.Entries {
			ch.keys[e.Key] = true
		}
	}
	for _, s := range in.Dialog.Sections {
		ch.sections[s.SectionID]++
	}

	ch.checkStart()
	for _, s := range in.Dialog.Sections {
		if ch.sections[s.SectionID] > 1 {
			ch.add(SeverityError, "duplicate_section", s.SectionID, 0, fmt.Sprintf("section id %q is used %d times", s.SectionID, ch.sections[s.SectionID]))
		}
		for _, l := range s.Lines {
			ch.checkLine(s.SectionID, l)
		}
	}
	return ch.findings
}

func (ch *checker) add(sev Severity, code, section string, lineID int64, msg string) {
	ch.findings = append(ch.findings, Finding{Severity: sev, Code: code, Section: section, LineID: lineID, Message: msg})
}

func (ch *checker) checkStart() {
	start := ch.in.Dialog.StartSection
	if start == "" {
		if len(ch.in.Dialog.Sections) > 0 {
			ch.add(SeverityWarning, "no_start_section", "", 0, "dialog has no start section")
		}
		return
	}
	if ch.sections[start] == 0 {
		ch.add(SeverityError, "unknown_start_section", start, 0, fmt.Sprintf("start section %q does not exist", start))
	}
}

func (ch *checker) checkLine(section string, l model.DialogLine) {
	if !l.Type.Valid() {
		ch.add(SeverityError, "unknown_line_type", section, l.ID, fmt.Sprintf("unknown line type %q", l.Type))
		return
	}

	for _, key := range model.TextKeys(l) {
		if !ch.keys[key] {
			ch.add(SeverityError, "unresolved_key", section, l.ID, fmt.Sprintf("translation key %q has no entry in the dialog group", key))
		}
	}
	if l.Type == model.LineDialog && l.TextKey == "" && ch.in.Policy == model.EntryEager {
		ch.add(SeverityWarning, "missing_text", section, l.ID, "dialog line has no text key")
	}

	p, err := model.DecodePayload(l)
	if err != nil {
		if errors.Is(err, model.ErrMalformedPayload) {
			ch.add(SeverityError, "malformed_payload", section, l.ID, err.Error())
			return
		}
		ch.add(SeverityError, "invalid_line", section, l.ID, err.Error())
		return
	}

	switch v := p.(type) {
	case model.NextSectionPayload:
		if v.NextSection == "" {
			ch.add(SeverityWarning, "missing_target", section, l.ID, "next section line has no target")
			return
		}
		ch.checkTarget(section, l.ID, v.NextSection)
	case model.OptionsPayload:
		if len(v.Options) == 0 {
			ch.add(SeverityWarning, "empty_options", section, l.ID, "options line has no options")
		}
		for i, o := range v.Options {
			if o.NextSection != "" {
				ch.checkTarget(section, l.ID, o.NextSection)
			}
			if o.Condition != nil {
				ch.checkCondition(section, l.ID, *o.Condition, fmt.Sprintf("option %d", i+1))
			}
		}
	case model.SwitchPayload:
		if v.NextSection != "" {
			ch.checkTarget(section, l.ID, v.NextSection)
		}
		for _, cs := range v.Cases {
			ch.checkTarget(section, l.ID, cs.NextSection)
		}
		if v.Default != "" {
			ch.checkTarget(section, l.ID, v.Default)
		}
		if v.Condition != nil {
			ch.checkCondition(section, l.ID, *v.Condition, "switch")
		}
		if v.NextSection == "" && !v.IsCaseList() {
			ch.add(SeverityWarning, "missing_target", section, l.ID, "switch line has no target")
		}
	case model.EventPayload:
		ch.checkEvent(section, l.ID, v)
	}
}

func (ch *checker) checkTarget(section string, lineID int64, target string) {
	if ch.sections[target] == 0 {
		ch.add(SeverityWarning, "dangling_target", section, lineID, fmt.Sprintf("target section %q does not exist", target))
	}
}

func (ch *checker) checkCondition(section string, lineID int64, cond model.Condition, where string) {
	rule, ok := ch.cat.condition(cond.Type)
	if !ok {
		ch.add(SeverityWarning, "unknown_condition", section, lineID, fmt.Sprintf("%s: unknown condition type %q", where, cond.Type))
		return
	}
	ch.checkValue(section, lineID, rule, cond.Value, "invalid_condition_value", where)
}

func (ch *checker) checkEvent(section string, lineID int64, ev model.EventPayload) {
	if ev.Name == "" {
		ch.add(SeverityWarning, "missing_event", section, lineID, "event line has no event name")
		return
	}
	rule, ok := ch.cat.event(ev.Name)
	if !ok {
		ch.add(SeverityWarning, "unknown_event", section, lineID, fmt.Sprintf("unknown event %q", ev.Name))
		return
	}
	ch.checkValue(section, lineID, rule, ev.Value, "invalid_event_value", "event "+ev.Name)
}

func (ch *checker) checkValue(section string, lineID int64, rule *Rule, value, code, where string) {
	sections := ch.in.ProjectSections
	if sections == nil {
		sections = ch.in.Dialog.SectionIDs()
	}
	ok, err := rule.check(value, ch.cat.Emotions, sections)
	if err != nil {
		ch.add(SeverityError, "rule_error", section, lineID, err.Error())
		return
	}
	if ok {
		return
	}
	msg := rule.Message
	if msg == "" {
		msg = "invalid value"
	}
	ch.add(SeverityWarning, code, section, lineID, fmt.Sprintf("%s: %q: %s", where, value, msg))
}

// SortedSections returns the sorted unique section ids of the given dialogs.
func SortedSections(dialogs []model.Dialog) []string {
	seen := make(map[string]bool)
	out := []string{}
	for _, d := range dialogs {
		for _, s := range d.Sections {
			if !seen[s.SectionID] {
				seen[s.SectionID] = true
				out = append(out, s.SectionID)
			}
		}
	}
	slices.Sort(out)
	return out
}
