package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nfrund/sequencer/internal/source"
)

var validate = validator.New()

// Decode unmarshals data into v, choosing YAML for .yaml/.yml paths and JSON otherwise.
func Decode(p string, data []byte, v any) error {
	switch strings.ToLower(path.Ext(p)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s: %w", p, err)
		}
	default:
		if err := json.Unmarshal(data, v); err != nil {
			return fmt.Errorf("decode %s: %w", p, err)
		}
	}
	return nil
}

// yamlVariant returns the .yaml sibling of a .json document path.
func yamlVariant(p string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + ".yaml"
}

// Load decodes the document at p through src. Each tier is asked for the JSON
// document and then its YAML sibling; a tier whose copy is missing or does not
// decode is skipped. v is only written by a successful decode.
func Load(ctx context.Context, src source.Source, p string, v any) error {
	target := reflect.ValueOf(v)
	if target.Kind() != reflect.Pointer || target.IsNil() {
		return fmt.Errorf("load %s: target must be a non-nil pointer", p)
	}
	return source.ReadDecoded(ctx, src, func(name string, data []byte) error {
		fresh := reflect.New(target.Elem().Type())
		if err := Decode(name, data, fresh.Interface()); err != nil {
			return err
		}
		target.Elem().Set(fresh.Elem())
		return nil
	}, p, yamlVariant(p))
}

// ValidPlugins drops manifest entries that fail validation and reports them.
func ValidPlugins(entries []PluginEntry) (valid []PluginEntry, invalid []error) {
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			invalid = append(invalid, fmt.Errorf("plugin[%d] %q: %w", i, e.ID, err))
			continue
		}
		valid = append(valid, e)
	}
	return valid, invalid
}

// ValidateTopic checks a topic definition's routes.
func ValidateTopic(def TopicDef) error {
	return validate.Struct(def)
}

// ValidateRoute checks that both route fields are present.
func ValidateRoute(r Route) error {
	return validate.Struct(r)
}
