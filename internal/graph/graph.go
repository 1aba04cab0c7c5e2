// Package graph derives the section-to-section flow of a dialog: one node
// per section and one link per jump found in the lines' payloads.
package graph

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/Bellian/Godot-Translation-Tool/internal/model"
)

type Graph struct {
	Nodes []Node `json:"nodes"`
	Links []Link `json:"links"`
}

type Node struct {
	ID      string `json:"id"`
	Label   string `json:"label"`
	IsStart bool   `json:"isStart"`
	Lines   []Line `json:"lines"`
}

type Line struct {
	ID      int64          `json:"id"`
	Type    model.LineType `json:"type"`
	Speaker string         `json:"speaker,omitempty"`
	TextKey string         `json:"textKey,omitempty"`
	Order   int            `json:"order"`
	Data    string         `json:"data,omitempty"`
	Label   string         `json:"label"`
}

// Link is a jump from one section to another. SourceLineID is the line the
// jump originates from.
type Link struct {
	Source       string `json:"source"`
	Target       string `json:"target"`
	Label        string `json:"label,omitempty"`
	SourceLineID int64  `json:"sourceLineId,omitempty"`
}

// Extract builds the graph of the given sections. Links whose target is not
// a known section are dropped, as are links from payloads that do not parse.
func Extract(sections []model.DialogSection, startSection string) Graph {
	g := Graph{Nodes: make([]Node, 0, len(sections)), Links: []Link{}}
	known := make(map[string]bool, len(sections))

	for _, s := range sections {
		n := Node{
			ID:      s.SectionID,
			Label:   s.SectionID,
			IsStart: s.SectionID == startSection,
			Lines:   make([]Line, 0, len(s.Lines)),
		}
		for _, l := range s.Lines {
			n.Lines = append(n.Lines, Line{
				ID:      l.ID,
				Type:    l.Type,
				Speaker: l.Speaker,
				TextKey: l.TextKey,
				Order:   l.Order,
				Data:    l.Data,
				Label:   LineLabel(l),
			})
		}
		g.Nodes = append(g.Nodes, n)
		known[s.SectionID] = true
	}

	for _, s := range sections {
		for _, l := range s.Lines {
			for _, j := range jumps(l) {
				if !known[j.target] {
					continue
				}
				g.Links = append(g.Links, Link{
					Source:       s.SectionID,
					Target:       j.target,
					Label:        j.label,
					SourceLineID: l.ID,
				})
			}
		}
	}
	return g
}

type jump struct {
	target string
	label  string
}

func jumps(l model.DialogLine) []jump {
	if l.Data == "" {
		return nil
	}
	switch l.Type {
	case model.LineNextSection:
		obj, ok := parseObject(l.Data)
		if !ok {
			// legacy rows store the bare section id
			return []jump{{target: strings.TrimSpace(l.Data)}}
		}
		if target, ok := stringField(obj, "nextSection"); ok {
			return []jump{{target: target}}
		}
	case model.LineOptions:
		var out []jump
		for i, item := range optionItems(l.Data) {
			opt, ok := parseObject(string(item))
			if !ok {
				continue
			}
			if target, ok := stringField(opt, "nextSection"); ok {
				out = append(out, jump{target: target, label: "option " + strconv.Itoa(i+1)})
			}
		}
		return out
	case model.LineSwitch:
		obj, ok := parseObject(l.Data)
		if !ok {
			return nil
		}
		var out []jump
		if target, ok := stringField(obj, "nextSection"); ok {
			out = append(out, jump{target: target, label: conditionLabel(obj)})
		}
		for _, c := range arrayField(obj, "cases") {
			cs, ok := parseObject(string(c))
			if !ok {
				continue
			}
			if target, ok := stringField(cs, "nextSection"); ok {
				out = append(out, jump{target: target, label: "case: " + caseValue(cs["value"])})
			}
		}
		if target, ok := stringField(obj, "default"); ok {
			out = append(out, jump{target: target, label: "default"})
		}
		return out
	}
	return nil
}

// LineLabel is the one-line summary of a line shown inside its node.
func LineLabel(l model.DialogLine) string {
	switch l.Type {
	case model.LineDialog:
		label := ""
		if l.Speaker != "" {
			label = l.Speaker + ": "
		}
		if l.TextKey != "" {
			label += "[" + l.TextKey + "]"
		}
		return label
	case model.LineNextSection:
		if l.Data == "" {
			break
		}
		if obj, ok := parseObject(l.Data); ok {
			if target, ok := stringField(obj, "nextSection"); ok {
				return "→ " + target
			}
		}
		return "→ " + strings.TrimSpace(l.Data)
	case model.LineSwitch, model.LineOptions:
		if l.Data == "" {
			break
		}
		var targets []string
		for _, j := range jumps(l) {
			if j.label == "default" {
				targets = append(targets, "default: "+j.target)
				continue
			}
			targets = append(targets, j.target)
		}
		if len(targets) == 0 {
			break
		}
		if l.Type == model.LineSwitch {
			if obj, ok := parseObject(l.Data); ok {
				if target, ok := stringField(obj, "nextSection"); ok {
					return "switch → " + target
				}
			}
			return "switch → " + strings.Join(targets, ", ")
		}
		return "options → " + strings.Join(targets, ", ")
	}
	return string(l.Type)
}

func parseObject(data string) (map[string]json.RawMessage, bool) {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal([]byte(data), &obj); err != nil || obj == nil {
		return nil, false
	}
	return obj, true
}

// stringField returns a non-empty string member.
func stringField(obj map[string]json.RawMessage, key string) (string, bool) {
	raw, ok := obj[key]
	if !ok {
		return "", false
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil || s == "" {
		return "", false
	}
	return s, true
}

func arrayField(obj map[string]json.RawMessage, key string) []json.RawMessage {
	raw, ok := obj[key]
	if !ok {
		return nil
	}
	var items []json.RawMessage
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	return items
}

// optionItems accepts a bare array as well as an object with an options array.
func optionItems(data string) []json.RawMessage {
	var items []json.RawMessage
	if err := json.Unmarshal([]byte(data), &items); err == nil {
		return items
	}
	if obj, ok := parseObject(data); ok {
		return arrayField(obj, "options")
	}
	return nil
}

// conditionLabel labels the direct jump of a switch: "if <type>" whenever a
// condition is set, even one whose type has not been picked yet.
func conditionLabel(obj map[string]json.RawMessage) string {
	raw, ok := obj["condition"]
	if !ok || !truthy(raw) {
		return "switch"
	}
	cond, ok := parseObject(string(raw))
	if !ok {
		return "if undefined"
	}
	t, ok := cond["type"]
	return "if " + displayValue(t, ok)
}

// caseValue renders a case value, "?" when it is missing or null.
func caseValue(raw json.RawMessage) string {
	if raw == nil || strings.TrimSpace(string(raw)) == "null" {
		return "?"
	}
	return displayValue(raw, true)
}

// displayValue renders a JSON value the way string interpolation in the
// editor does: strings bare, numbers in shortest form, arrays comma joined.
func displayValue(raw json.RawMessage, present bool) string {
	if !present {
		return "undefined"
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return strings.TrimSpace(string(raw))
	}
	return formatValue(v, false)
}

func formatValue(v any, inArray bool) string {
	switch x := v.(type) {
	case nil:
		if inArray {
			return ""
		}
		return "null"
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		return formatNumber(x)
	case []any:
		parts := make([]string, len(x))
		for i, item := range x {
			parts[i] = formatValue(item, true)
		}
		return strings.Join(parts, ",")
	default:
		return "[object Object]"
	}
}

func formatNumber(f float64) string {
	abs := math.Abs(f)
	if f == 0 {
		return "0"
	}
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	s = strings.Replace(s, "e-0", "e-", 1)
	return strings.Replace(s, "e+0", "e+", 1)
}

// truthy mirrors the falsy JSON values: null, false, 0 and "".
func truthy(raw json.RawMessage) bool {
	switch strings.TrimSpace(string(raw)) {
	case "", "null", "false", "0", `""`:
		return false
	}
	return true
}
