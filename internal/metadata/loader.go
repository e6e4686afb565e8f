package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// FormSource yields the persisted list of saved forms.
type FormSource interface {
	LoadForms(ctx context.Context) ([]FormSchema, error)
}

// LoadAll reads all saved forms from src and populates the registry.
func LoadAll(ctx context.Context, src FormSource, reg *Registry) error {
	forms, err := src.LoadForms(ctx)
	if err != nil {
		return fmt.Errorf("load forms: %w", err)
	}
	reg.Load(forms)

	log.Info().Int("forms", len(forms)).Msg("loaded saved forms into registry")
	return nil
}

// DecodeSchema reads a form schema written as YAML or JSON and validates it.
func DecodeSchema(r io.Reader) (*FormSchema, error) {
	var schema FormSchema
	if err := decodeDocument(r, &schema); err != nil {
		return nil, fmt.Errorf("decode schema: %w", err)
	}
	if schema.Fields == nil {
		schema.Fields = []FormField{}
	}
	if err := schema.Validate(); err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &schema, nil
}

// DecodeValues reads a field id -> value snapshot written as YAML or JSON.
func DecodeValues(r io.Reader) (map[string]any, error) {
	values := make(map[string]any)
	if err := decodeDocument(r, &values); err != nil {
		return nil, fmt.Errorf("decode values: %w", err)
	}
	return values, nil
}

// decodeDocument parses YAML (a superset of JSON) into a generic tree and
// re-encodes it as JSON so the json struct tags stay the single source of
// truth for field names.
func decodeDocument(r io.Reader, out any) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return err
	}
	if doc == nil {
		return nil
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}
