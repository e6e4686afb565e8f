package metadata

import (
	"errors"
	"fmt"
	"time"
)

var ErrDuplicateFieldID = errors.New("duplicate field id")

// FormSchema is an ordered list of field definitions plus identity.
type FormSchema struct {
	ID        string      `json:"id" yaml:"id"`
	Name      string      `json:"name" yaml:"name"`
	Fields    []FormField `json:"fields" yaml:"fields"`
	CreatedAt time.Time   `json:"createdAt" yaml:"createdAt"`
}

// NewFormSchema returns an empty, unnamed form.
func NewFormSchema(id string, now time.Time) FormSchema {
	return FormSchema{ID: id, Fields: []FormField{}, CreatedAt: now.UTC()}
}

// GetField returns a pointer to the field with the given id, or nil.
func (s *FormSchema) GetField(id string) *FormField {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return &s.Fields[i]
		}
	}
	return nil
}

// FieldIndex returns the position of the field with the given id, or -1.
func (s *FormSchema) FieldIndex(id string) int {
	for i := range s.Fields {
		if s.Fields[i].ID == id {
			return i
		}
	}
	return -1
}

// HasField returns true if the schema has a field with the given id.
func (s *FormSchema) HasField(id string) bool {
	return s.FieldIndex(id) >= 0
}

// DerivedFields returns the derived fields in schema order.
func (s *FormSchema) DerivedFields() []FormField {
	var out []FormField
	for _, f := range s.Fields {
		if f.IsDerived() {
			out = append(out, f)
		}
	}
	return out
}

// ParentCandidates returns the fields that fieldID may derive from:
// every non-derived field other than itself.
func (s *FormSchema) ParentCandidates(fieldID string) []FormField {
	var out []FormField
	for _, f := range s.Fields {
		if f.ID == fieldID || f.IsDerived() {
			continue
		}
		out = append(out, f)
	}
	return out
}

// Validate checks every field and that ids are unique.
func (s *FormSchema) Validate() error {
	seen := make(map[string]bool, len(s.Fields))
	for _, f := range s.Fields {
		if err := f.Validate(); err != nil {
			return err
		}
		if seen[f.ID] {
			return fmt.Errorf("%w: %s", ErrDuplicateFieldID, f.ID)
		}
		seen[f.ID] = true
	}
	return nil
}

// Clone returns a deep copy, safe to mutate independently of s.
func (s FormSchema) Clone() FormSchema {
	out := s
	out.Fields = make([]FormField, len(s.Fields))
	for i, f := range s.Fields {
		out.Fields[i] = f.Clone()
	}
	return out
}
