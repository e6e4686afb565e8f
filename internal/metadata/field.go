package metadata

import (
	"errors"
	"fmt"
	"strings"
)

// FieldType is the closed set of input kinds a form field can take.
type FieldType string

const (
	FieldText     FieldType = "text"
	FieldNumber   FieldType = "number"
	FieldTextarea FieldType = "textarea"
	FieldSelect   FieldType = "select"
	FieldRadio    FieldType = "radio"
	FieldCheckbox FieldType = "checkbox"
	FieldDate     FieldType = "date"
)

var fieldTypes = []FieldType{
	FieldText, FieldNumber, FieldTextarea, FieldSelect, FieldRadio, FieldCheckbox, FieldDate,
}

// AllFieldTypes returns every field type in declaration order.
func AllFieldTypes() []FieldType {
	out := make([]FieldType, len(fieldTypes))
	copy(out, fieldTypes)
	return out
}

// Valid reports whether t is one of the known field types.
func (t FieldType) Valid() bool {
	switch t {
	case FieldText, FieldNumber, FieldTextarea, FieldSelect, FieldRadio, FieldCheckbox, FieldDate:
		return true
	default:
		return false
	}
}

// IsTextual reports whether length limits apply to the type.
func (t FieldType) IsTextual() bool {
	return t == FieldText || t == FieldTextarea
}

// IsStringValued reports whether values of this type are validated as strings.
func (t FieldType) IsStringValued() bool {
	switch t {
	case FieldText, FieldTextarea, FieldSelect, FieldRadio:
		return true
	case FieldNumber, FieldCheckbox, FieldDate:
		return false
	default:
		return false
	}
}

// HasOptions reports whether the type draws its value from Options.
func (t FieldType) HasOptions() bool {
	return t == FieldSelect || t == FieldRadio
}

// ValidationRules are the optional constraints attached to a field.
// A zero value means the rule is not enforced.
type ValidationRules struct {
	Required  bool `json:"required,omitempty" yaml:"required,omitempty"`
	MinLength int  `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength int  `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Email     bool `json:"email,omitempty" yaml:"email,omitempty"`
	Password  bool `json:"password,omitempty" yaml:"password,omitempty"`
}

// DerivedConfig marks a field as computed from ParentFields via Formula.
// Formula is a registered name (age, concat, sum, average) or an arithmetic
// template that references parent ids as identifiers.
type DerivedConfig struct {
	ParentFields []string `json:"parentFields" yaml:"parentFields"`
	Formula      string   `json:"formula" yaml:"formula"`
}

// Clone returns an independent copy.
func (d *DerivedConfig) Clone() *DerivedConfig {
	if d == nil {
		return nil
	}
	parents := make([]string, len(d.ParentFields))
	copy(parents, d.ParentFields)
	return &DerivedConfig{ParentFields: parents, Formula: d.Formula}
}

type FormField struct {
	ID           string          `json:"id" yaml:"id"`
	Type         FieldType       `json:"type" yaml:"type"`
	Label        string          `json:"label" yaml:"label"`
	Required     bool            `json:"required" yaml:"required"`
	DefaultValue any             `json:"defaultValue,omitempty" yaml:"defaultValue,omitempty"`
	Options      []string        `json:"options,omitempty" yaml:"options,omitempty"`
	Validation   ValidationRules `json:"validation" yaml:"validation"`
	Derived      *DerivedConfig  `json:"derived,omitempty" yaml:"derived,omitempty"`
}

var (
	ErrMissingFieldID   = errors.New("field id is required")
	ErrUnknownFieldType = errors.New("unknown field type")
	ErrMissingOptions   = errors.New("options are required")
)

// NewField builds a field of the given type with the defaults the form
// builder uses when a field is first added.
func NewField(id string, t FieldType) FormField {
	f := FormField{
		ID:    id,
		Type:  t,
		Label: fmt.Sprintf("New %s Field", titleCase(string(t))),
	}
	if t.HasOptions() {
		f.Options = []string{"Option 1", "Option 2"}
	}
	return f
}

// IsDerived returns true if the field's value is computed rather than entered.
func (f FormField) IsDerived() bool {
	return f.Derived != nil
}

// Validate checks the structural invariants of a single field.
func (f FormField) Validate() error {
	if strings.TrimSpace(f.ID) == "" {
		return ErrMissingFieldID
	}
	if !f.Type.Valid() {
		return fmt.Errorf("field %s: %w: %q", f.ID, ErrUnknownFieldType, f.Type)
	}
	if f.Type.HasOptions() && len(f.Options) == 0 {
		return fmt.Errorf("field %s: %w for %s fields", f.ID, ErrMissingOptions, f.Type)
	}
	return nil
}

// Clone returns a deep copy of the field.
func (f FormField) Clone() FormField {
	out := f
	if f.Options != nil {
		out.Options = make([]string, len(f.Options))
		copy(out.Options, f.Options)
	}
	out.Derived = f.Derived.Clone()
	return out
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
