package lint

import (
	_ "embed"
	"fmt"

	"github.com/BurntSushi/toml"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

//go:embed default_catalogue.toml
var defaultCatalogue string

// Catalogue lists the condition types and events a dialog may use, each
// with an optional expression validating its value.
type Catalogue struct {
	Emotions   []string `toml:"emotions"`
	Conditions []*Rule  `toml:"condition"`
	Events     []*Rule  `toml:"event"`
}

type Rule struct {
	Name    string `toml:"name"`
	Valid   string `toml:"valid"`
	Message string `toml:"message"`

	program *vm.Program
}

// DefaultCatalogue returns the built-in catalogue.
func DefaultCatalogue() *Catalogue {
	c, err := ParseCatalogue(defaultCatalogue)
	if err != nil {
		panic(fmt.Sprintf("built-in lint catalogue: %v", err))
	}
	return c
}

// LoadCatalogue reads a catalogue from a TOML file.
func LoadCatalogue(path string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.DecodeFile(path, &c); err != nil {
		return nil, fmt.Errorf("read catalogue %s: %w", path, err)
	}
	if err := c.compile(); err != nil {
		return nil, fmt.Errorf("catalogue %s: %w", path, err)
	}
	return &c, nil
}

// ParseCatalogue decodes a catalogue from TOML text.
func ParseCatalogue(data string) (*Catalogue, error) {
	var c Catalogue
	if _, err := toml.Decode(data, &c); err != nil {
		return nil, fmt.Errorf("decode catalogue: %w", err)
	}
	if err := c.compile(); err != nil {
		return nil, err
	}
	return &c, nil
}

func exprEnv() map[string]any {
	return map[string]any{
		"value":    "",
		"emotions": []string{},
		"sections": []string{},
	}
}

func (c *Catalogue) compile() error {
	for _, group := range [][]*Rule{c.Conditions, c.Events} {
		for _, r := range group {
			if r.Name == "" {
				return fmt.Errorf("rule without name")
			}
			if r.Valid == "" {
				continue
			}
			prog, err := expr.Compile(r.Valid, expr.Env(exprEnv()), expr.AsBool())
			if err != nil {
				return fmt.Errorf("compile %s: %w", r.Name, err)
			}
			r.program = prog
		}
	}
	return nil
}

func (c *Catalogue) condition(name string) (*Rule, bool) {
	return find(c.Conditions, name)
}

func (c *Catalogue) event(name string) (*Rule, bool) {
	return find(c.Events, name)
}

func find(rules []*Rule, name string) (*Rule, bool) {
	for _, r := range rules {
		if r.Name == name {
			return r, true
		}
	}
	return nil, false
}

// check evaluates the rule against value. A rule without expression accepts anything.
func (r *Rule) check(value string, emotions, sections []string) (bool, error) {
	if r.program == nil {
		return true, nil
	}
	env := map[string]any{
		"value":    value,
		"emotions": emotions,
		"sections": sections,
	}
	out, err := expr.Run(r.program, env)
	if err != nil {
		return false, fmt.Errorf("rule %s: %w", r.Name, err)
	}
	ok, _ := out.(bool)
	return ok, nil
}
