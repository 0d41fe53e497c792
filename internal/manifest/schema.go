package manifest

import (
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"gopkg.in/yaml.v3"
)

// Schema is a topic's payload JSON Schema, resolved once when the manifest is
// decoded.
type Schema struct {
	def      *jsonschema.Schema
	resolved *jsonschema.Resolved
}

// NewSchema resolves def for validation.
func NewSchema(def *jsonschema.Schema) (*Schema, error) {
	if def == nil {
		return nil, nil
	}
	resolved, err := def.Resolve(nil)
	if err != nil {
		return nil, fmt.Errorf("resolve payload schema: %w", err)
	}
	return &Schema{def: def, resolved: resolved}, nil
}

// ParseSchema decodes and resolves a JSON Schema document.
func ParseSchema(data []byte) (*Schema, error) {
	var def jsonschema.Schema
	if err := json.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("decode payload schema: %w", err)
	}
	return NewSchema(&def)
}

// MustParseSchema is ParseSchema for literals known to be valid.
func MustParseSchema(doc string) *Schema {
	s, err := ParseSchema([]byte(doc))
	if err != nil {
		panic(err)
	}
	return s
}

// Definition returns the underlying schema.
func (s *Schema) Definition() *jsonschema.Schema {
	if s == nil {
		return nil
	}
	return s.def
}

// Required lists the required top-level keys.
func (s *Schema) Required() []string {
	if s == nil || s.def == nil {
		return nil
	}
	return s.def.Required
}

// Validate checks payload against the schema. The payload is normalized
// through JSON first so typed maps and structs validate like decoded JSON.
func (s *Schema) Validate(payload any) error {
	if s == nil || s.resolved == nil {
		return nil
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("payload is not JSON-encodable: %w", err)
	}
	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("payload is not JSON-encodable: %w", err)
	}
	return s.resolved.Validate(instance)
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	parsed, err := ParseSchema(data)
	if err != nil {
		return err
	}
	*s = *parsed
	return nil
}

func (s *Schema) UnmarshalYAML(node *yaml.Node) error {
	var raw any
	if err := node.Decode(&raw); err != nil {
		return err
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("decode payload schema: %w", err)
	}
	return s.UnmarshalJSON(data)
}

func (s *Schema) MarshalJSON() ([]byte, error) {
	if s == nil || s.def == nil {
		return []byte("null"), nil
	}
	return json.Marshal(s.def)
}
