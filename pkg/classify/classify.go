// Package classify maps call numbers to special shelving location codes.
//
// A Classifier holds an ordered list of half-open ranges. Rules are
// evaluated top to bottom and the first rule containing the value wins, so a
// narrow rule listed before a broad bucket takes precedence over it.
package classify

import (
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
)

// UnparseableLabel is reported when a value has no leading class number.
const UnparseableLabel = "DDC 추출 오류"

// Rule assigns Label to values in [Low, High).
type Rule struct {
	Low   float64 `yaml:"low" json:"low"`
	High  float64 `yaml:"high" json:"high"`
	Label string  `yaml:"label" json:"label"`
	Note  string  `yaml:"note,omitempty" json:"note,omitempty"`
}

// Contains reports whether v falls inside the rule's half-open range.
func (r Rule) Contains(v float64) bool {
	return v >= r.Low && v < r.High
}

// Outcome describes how a value was classified.
type Outcome int

const (
	// Matched means a rule contained the value.
	Matched Outcome = iota
	// NoMatch means the value parsed but no rule contained it.
	NoMatch
	// Unparseable means the value has no leading class number.
	Unparseable
)

func (o Outcome) String() string {
	switch o {
	case Matched:
		return "matched"
	case NoMatch:
		return "no_match"
	case Unparseable:
		return "unparseable"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the classification of one value.
type Result struct {
	Input   string  `json:"input"`
	Value   float64 `json:"value"`
	Label   string  `json:"label"`
	Rule    int     `json:"rule"` // index of the matching rule, -1 if none
	Outcome Outcome `json:"outcome"`
}

// ErrInvalidRule is wrapped by errors returned from New for malformed rules.
var ErrInvalidRule = errors.New("invalid range rule")

// Classifier evaluates an ordered rule table. It is immutable and safe for
// concurrent use.
type Classifier struct {
	rules         []Rule
	leadingNumber *regexp.Regexp
}

// New validates rules and returns a Classifier that evaluates them in the
// given order.
func New(rules []Rule) (*Classifier, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: table has no rules", ErrInvalidRule)
	}
	for i, r := range rules {
		switch {
		case math.IsNaN(r.Low) || math.IsNaN(r.High) || math.IsInf(r.Low, 0) || math.IsInf(r.High, 0):
			return nil, fmt.Errorf("%w: rule %d has a non-finite bound", ErrInvalidRule, i)
		case r.Low >= r.High:
			return nil, fmt.Errorf("%w: rule %d has low %v >= high %v", ErrInvalidRule, i, r.Low, r.High)
		case r.Label == "":
			return nil, fmt.Errorf("%w: rule %d has no label", ErrInvalidRule, i)
		}
	}

	return &Classifier{
		rules:         append([]Rule(nil), rules...),
		leadingNumber: regexp.MustCompile(`^(\d+(?:\.\d+)?)`),
	}, nil
}

// MustNew is like New but panics on a malformed table.
func MustNew(rules []Rule) *Classifier {
	c, err := New(rules)
	if err != nil {
		panic(err)
	}
	return c
}

// Rules returns a copy of the rule table in evaluation order.
func (c *Classifier) Rules() []Rule {
	return append([]Rule(nil), c.rules...)
}

// Classify parses the leading class number of value (for example 823.92 in
// "823.92R353m") and returns the first rule containing it.
func (c *Classifier) Classify(value string) Result {
	result := Result{Input: value, Rule: -1}

	m := c.leadingNumber.FindStringSubmatch(value)
	if m == nil {
		result.Outcome = Unparseable
		result.Label = UnparseableLabel
		return result
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		result.Outcome = Unparseable
		result.Label = UnparseableLabel
		return result
	}
	result.Value = v

	for i, r := range c.rules {
		if r.Contains(v) {
			result.Rule = i
			result.Label = r.Label
			result.Outcome = Matched
			return result
		}
	}
	result.Outcome = NoMatch
	return result
}

// Label returns the location code for value: the matching rule's label,
// UnparseableLabel, or "" when no rule matched.
func (c *Classifier) Label(value string) string {
	return c.Classify(value).Label
}
