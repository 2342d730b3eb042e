// Package preset provides declarative extraction presets.
//
// A preset is a YAML document listing rules that replace individual slots of
// an extracted record. Presets do not run code: each rule selects a tag, an
// optional indicator filter and subfields, and optionally reshapes the value
// with a regular expression, article stripping or classification.
package preset

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/marcx/pkg/extract"
	"github.com/coolbeans/marcx/pkg/marc"
	"github.com/coolbeans/marcx/pkg/yamlschema"
)

//go:embed schema.json
var schemaJSON []byte

var documentSchema = yamlschema.MustCompile("preset.json", schemaJSON)

// Occurrence selection modes.
const (
	OccurrenceFirst = "first"
	OccurrenceAll   = "all"
)

// DefaultSeparator joins selected subfields when a rule sets no separator.
const DefaultSeparator = " "

// occurrenceSeparator joins values when a rule selects every occurrence.
const occurrenceSeparator = ", "

// Preset is one extraction preset document.
type Preset struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version" json:"version"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules" json:"rules"`

	// Source is the file the preset was loaded from, if any.
	Source string `yaml:"-" json:"-"`

	compiled []compiledRule
}

// Rule replaces one slot.
type Rule struct {
	// Field is the target slot, as an interchange key or a slug.
	Field string `yaml:"field" json:"field"`

	Tag        string  `yaml:"tag,omitempty" json:"tag,omitempty"`
	Indicators string  `yaml:"indicators,omitempty" json:"indicators,omitempty"`
	Subfields  string  `yaml:"subfields,omitempty" json:"subfields,omitempty"`
	Separator  *string `yaml:"separator,omitempty" json:"separator,omitempty"`

	// Value is a constant used when Tag is empty, or when the tag yields
	// nothing.
	Value string `yaml:"value,omitempty" json:"value,omitempty"`

	// Pattern reshapes the selected text: the first capture group, or the
	// whole match when the pattern has no groups.
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`

	StripArticle bool   `yaml:"strip_article,omitempty" json:"strip_article,omitempty"`
	Classify     bool   `yaml:"classify,omitempty" json:"classify,omitempty"`
	Occurrence   string `yaml:"occurrence,omitempty" json:"occurrence,omitempty"`
}

type compiledRule struct {
	Rule
	field      extract.Field
	indicators string
	codes      []rune
	separator  string
	pattern    *regexp.Regexp
}

// Parse validates data against the preset schema, decodes it and compiles
// the result.
func Parse(data []byte) (*Preset, error) {
	if err := documentSchema.ValidateYAML(data); err != nil {
		return nil, err
	}

	var p Preset
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := p.Compile(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the preset for semantic errors the schema cannot express.
func (p *Preset) Validate() error {
	if errs := ValidateRules(p); len(errs) > 0 {
		return errs
	}
	return nil
}

// Compile resolves field names and compiles rule patterns.
func (p *Preset) Compile() error {
	compiled := make([]compiledRule, 0, len(p.Rules))
	for i, rule := range p.Rules {
		field, err := extract.ParseField(rule.Field)
		if err != nil {
			return fmt.Errorf("rule %d: %w", i, err)
		}

		cr := compiledRule{
			Rule:       rule,
			field:      field,
			indicators: normalizeIndicators(rule.Indicators),
			codes:      []rune(rule.Subfields),
			separator:  DefaultSeparator,
		}
		if rule.Separator != nil {
			cr.separator = *rule.Separator
		}
		if rule.Pattern != "" {
			re, err := regexp.Compile(rule.Pattern)
			if err != nil {
				return fmt.Errorf("compiling rule %d pattern %q: %w", i, rule.Pattern, err)
			}
			cr.pattern = re
		}
		compiled = append(compiled, cr)
	}
	p.compiled = compiled
	return nil
}

// IsCompiled returns true if the preset has been compiled.
func (p *Preset) IsCompiled() bool {
	return p.compiled != nil
}

// Override returns the preset as an extract.Override named "name@version".
func (p *Preset) Override() extract.Override {
	return override{p}
}

type override struct{ preset *Preset }

func (o override) Name() string {
	return o.preset.Name + "@" + o.preset.Version
}

func (o override) OverrideExtract(tk extract.Toolkit, fields marc.Fields) (extract.Partial, error) {
	return o.preset.Extract(tk, fields)
}

// Extract evaluates the rules against fields. Rules are applied in order and
// a later rule replaces an earlier rule's slot.
func (p *Preset) Extract(tk extract.Toolkit, fields marc.Fields) (extract.Partial, error) {
	if !p.IsCompiled() {
		return nil, fmt.Errorf("preset %q is not compiled", p.Name)
	}

	partial := make(extract.Partial)
	for _, rule := range p.compiled {
		value, ok := rule.evaluate(tk, fields)
		if !ok {
			continue
		}
		partial[rule.field] = extract.Found(value)
		if rule.Classify {
			partial[extract.LocationCode] = extract.LocationSlot(tk.Classify(value))
		}
	}
	return partial, nil
}

func (r compiledRule) evaluate(tk extract.Toolkit, fields marc.Fields) (string, bool) {
	if r.Tag == "" {
		return r.Value, true
	}

	var values []string
	for _, content := range fields.Get(r.Tag) {
		if r.indicators != "" && normalizeIndicators(marc.Indicators(content)) != r.indicators {
			continue
		}
		value, ok := r.pick(tk, content)
		if !ok {
			continue
		}
		values = append(values, value)
		if r.Occurrence != OccurrenceAll {
			break
		}
	}

	if len(values) == 0 {
		if r.Value != "" {
			return r.Value, true
		}
		return "", false
	}
	return strings.Join(values, occurrenceSeparator), true
}

func (r compiledRule) pick(tk extract.Toolkit, content string) (string, bool) {
	var parts []string
	if len(r.codes) == 0 {
		for _, sf := range marc.Subfields(content) {
			if v := strings.TrimSpace(sf.Value); v != "" {
				parts = append(parts, v)
			}
		}
	} else {
		for _, code := range r.codes {
			if v := tk.Subfield(content, code); v != "" {
				parts = append(parts, v)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, r.separator))

	if r.pattern != nil {
		m := r.pattern.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		text = m[0]
		if len(m) > 1 {
			text = m[1]
		}
		text = strings.TrimSpace(text)
	}
	if r.StripArticle {
		text = tk.StripLeadingArticle(text)
	}
	return text, text != ""
}

func normalizeIndicators(s string) string {
	return strings.NewReplacer(" ", "", "#", "").Replace(s)
}
