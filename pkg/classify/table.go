package classify

import (
	_ "embed"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/coolbeans/marcx/pkg/yamlschema"
)

// Table is the on-disk form of a rule table.
type Table struct {
	Name        string `yaml:"name" json:"name"`
	Version     string `yaml:"version,omitempty" json:"version,omitempty"`
	Description string `yaml:"description,omitempty" json:"description,omitempty"`
	Rules       []Rule `yaml:"rules" json:"rules"`
}

//go:embed ranges.yaml
var defaultTableYAML []byte

//go:embed schema.json
var tableSchemaJSON []byte

var tableSchema = yamlschema.MustCompile("range-table.json", tableSchemaJSON)

var (
	defaultOnce       sync.Once
	defaultClassifier *Classifier
)

// Default returns the classifier for the built-in special shelving table.
// It panics if the embedded table is malformed.
func Default() *Classifier {
	defaultOnce.Do(func() {
		table, err := ParseTable(defaultTableYAML)
		if err != nil {
			panic(fmt.Sprintf("classify: embedded range table: %v", err))
		}
		defaultClassifier = MustNew(table.Rules)
	})
	return defaultClassifier
}

// DefaultTable returns the raw YAML of the built-in table.
func DefaultTable() []byte {
	return append([]byte(nil), defaultTableYAML...)
}

// ParseTable validates a YAML rule table against the table schema and
// decodes it. Rule order is preserved as written.
func ParseTable(data []byte) (*Table, error) {
	if err := tableSchema.ValidateYAML(data); err != nil {
		return nil, err
	}
	var table Table
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("decoding range table: %w", err)
	}
	return &table, nil
}

// LoadFile reads a YAML rule table and builds a Classifier from it.
func LoadFile(path string) (*Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading range table: %w", err)
	}
	table, err := ParseTable(data)
	if err != nil {
		return nil, fmt.Errorf("range table %s: %w", path, err)
	}
	c, err := New(table.Rules)
	if err != nil {
		return nil, fmt.Errorf("range table %s: %w", path, err)
	}
	return c, nil
}
