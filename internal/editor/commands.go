package editor

import (
	"errors"
	"fmt"
	"strings"

	"formcraft/internal/metadata"
)

var (
	ErrUnknownField    = errors.New("unknown field")
	ErrDuplicateField  = errors.New("duplicate field id")
	ErrIndexOutOfRange = errors.New("field index out of range")
	ErrUnnamedForm     = errors.New("form name is required")
	ErrEmptyForm       = errors.New("form has no fields")
	ErrUnknownForm     = errors.New("unknown form")
	ErrUnknownCommand  = errors.New("unknown command")
)

// Command is one edit to the builder state. The set is closed.
type Command interface {
	Kind() string
	apply(s *State, env Env) error
}

// NewForm discards the current form and starts an empty one.
type NewForm struct{}

func (NewForm) Kind() string { return "new_form" }

func (NewForm) apply(s *State, env Env) error {
	s.CurrentForm = metadata.NewFormSchema(env.NewID(), env.Now())
	return nil
}

type SetName struct {
	Name string `json:"name"`
}

func (SetName) Kind() string { return "set_name" }

func (c SetName) apply(s *State, _ Env) error {
	s.CurrentForm.Name = c.Name
	return nil
}

// AddField appends a field. An empty ID is generated; an empty label and
// missing options get the builder's defaults for the type.
type AddField struct {
	Field metadata.FormField `json:"field"`
}

func (AddField) Kind() string { return "add_field" }

func (c AddField) apply(s *State, env Env) error {
	f := c.Field.Clone()
	if f.ID == "" {
		f.ID = env.NewID()
	}
	defaults := metadata.NewField(f.ID, f.Type)
	if f.Label == "" {
		f.Label = defaults.Label
	}
	if len(f.Options) == 0 {
		f.Options = defaults.Options
	}
	if err := f.Validate(); err != nil {
		return err
	}
	if s.CurrentForm.HasField(f.ID) {
		return fmt.Errorf("%w: %s", ErrDuplicateField, f.ID)
	}
	s.CurrentForm.Fields = append(s.CurrentForm.Fields, f)
	return nil
}

// FieldPatch is a partial field update; nil members are left alone.
type FieldPatch struct {
	Type         *metadata.FieldType       `json:"type,omitempty"`
	Label        *string                   `json:"label,omitempty"`
	Required     *bool                     `json:"required,omitempty"`
	DefaultValue *any                      `json:"defaultValue,omitempty"`
	Options      *[]string                 `json:"options,omitempty"`
	Validation   *metadata.ValidationRules `json:"validation,omitempty"`
	Derived      *metadata.DerivedConfig   `json:"derived,omitempty"`
	ClearDerived bool                      `json:"clearDerived,omitempty"`
}

func (p FieldPatch) mergeInto(f metadata.FormField) metadata.FormField {
	if p.Type != nil {
		f.Type = *p.Type
	}
	if p.Label != nil {
		f.Label = *p.Label
	}
	if p.Required != nil {
		f.Required = *p.Required
	}
	if p.DefaultValue != nil {
		f.DefaultValue = *p.DefaultValue
	}
	if p.Options != nil {
		f.Options = append([]string(nil), (*p.Options)...)
	}
	if p.Validation != nil {
		f.Validation = *p.Validation
	}
	if p.Derived != nil {
		f.Derived = p.Derived.Clone()
	}
	if p.ClearDerived {
		f.Derived = nil
	}
	return f
}

type UpdateField struct {
	ID    string     `json:"id"`
	Patch FieldPatch `json:"patch"`
}

func (UpdateField) Kind() string { return "update_field" }

func (c UpdateField) apply(s *State, _ Env) error {
	i := s.CurrentForm.FieldIndex(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, c.ID)
	}
	f := c.Patch.mergeInto(s.CurrentForm.Fields[i])
	if err := f.Validate(); err != nil {
		return err
	}
	s.CurrentForm.Fields[i] = f
	return nil
}

type DeleteField struct {
	ID string `json:"id"`
}

func (DeleteField) Kind() string { return "delete_field" }

func (c DeleteField) apply(s *State, _ Env) error {
	i := s.CurrentForm.FieldIndex(c.ID)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrUnknownField, c.ID)
	}
	s.CurrentForm.Fields = append(s.CurrentForm.Fields[:i], s.CurrentForm.Fields[i+1:]...)
	return nil
}

// ReorderField moves the field at From so that it ends up at To.
type ReorderField struct {
	From int `json:"from"`
	To   int `json:"to"`
}

func (ReorderField) Kind() string { return "reorder_field" }

func (c ReorderField) apply(s *State, _ Env) error {
	fields := s.CurrentForm.Fields
	n := len(fields)
	if c.From < 0 || c.From >= n || c.To < 0 || c.To >= n {
		return fmt.Errorf("%w: move %d to %d with %d fields", ErrIndexOutOfRange, c.From, c.To, n)
	}
	moved := fields[c.From]
	rest := append(fields[:c.From:c.From], fields[c.From+1:]...)
	out := make([]metadata.FormField, 0, n)
	out = append(out, rest[:c.To]...)
	out = append(out, moved)
	out = append(out, rest[c.To:]...)
	s.CurrentForm.Fields = out
	return nil
}

// SaveCurrent snapshots the current form into the saved list under a fresh
// id and timestamp, then starts a new empty form.
type SaveCurrent struct{}

func (SaveCurrent) Kind() string { return "save_current" }

func (SaveCurrent) apply(s *State, env Env) error {
	if strings.TrimSpace(s.CurrentForm.Name) == "" {
		return ErrUnnamedForm
	}
	if len(s.CurrentForm.Fields) == 0 {
		return ErrEmptyForm
	}
	if err := s.CurrentForm.Validate(); err != nil {
		return err
	}
	saved := s.CurrentForm.Clone()
	saved.ID = env.NewID()
	saved.CreatedAt = env.Now().UTC()
	s.SavedForms = append(s.SavedForms, saved)
	s.CurrentForm = metadata.NewFormSchema(env.NewID(), env.Now())
	return nil
}

// LoadForm replaces the current form with a copy of Form.
type LoadForm struct {
	Form metadata.FormSchema `json:"form"`
}

func (LoadForm) Kind() string { return "load_form" }

func (c LoadForm) apply(s *State, _ Env) error {
	if err := c.Form.Validate(); err != nil {
		return err
	}
	s.CurrentForm = c.Form.Clone()
	if s.CurrentForm.Fields == nil {
		s.CurrentForm.Fields = []metadata.FormField{}
	}
	return nil
}

type DeleteForm struct {
	ID string `json:"id"`
}

func (DeleteForm) Kind() string { return "delete_form" }

func (c DeleteForm) apply(s *State, _ Env) error {
	for i, f := range s.SavedForms {
		if f.ID == c.ID {
			s.SavedForms = append(s.SavedForms[:i], s.SavedForms[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownForm, c.ID)
}
