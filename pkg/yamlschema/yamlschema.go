// Package yamlschema validates YAML documents against JSON Schemas.
package yamlschema

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// Schema is a compiled JSON Schema. It is safe for concurrent use.
type Schema struct {
	name   string
	schema *jsonschema.Schema
}

// Compile compiles a draft-07 schema. name identifies the schema in errors.
func Compile(name string, schemaJSON []byte) (*Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	if err := compiler.AddResource(name, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("loading schema %s: %w", name, err)
	}
	schema, err := compiler.Compile(name)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}
	return &Schema{name: name, schema: schema}, nil
}

// MustCompile is like Compile but panics on error. It is meant for schemas
// embedded in the binary.
func MustCompile(name string, schemaJSON []byte) *Schema {
	s, err := Compile(name, schemaJSON)
	if err != nil {
		panic(err)
	}
	return s
}

// ValidateYAML decodes data and validates the result against the schema.
func (s *Schema) ValidateYAML(data []byte) error {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parsing YAML: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("document is empty")
	}

	// The validator expects JSON values, so normalise through encoding/json:
	// YAML integers become float64 and mappings become map[string]any.
	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("converting YAML to JSON: %w", err)
	}

	if err := s.schema.Validate(value); err != nil {
		return fmt.Errorf("document does not match schema %s: %w", s.name, err)
	}
	return nil
}
