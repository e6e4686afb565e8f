package metadata

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestFieldType_Valid(t *testing.T) {
	for _, ft := range AllFieldTypes() {
		if !ft.Valid() {
			t.Fatalf("expected %s to be valid", ft)
		}
	}
	if FieldType("color").Valid() {
		t.Fatal("expected unknown type to be invalid")
	}
	if len(AllFieldTypes()) != 7 {
		t.Fatalf("expected 7 field types, got %d", len(AllFieldTypes()))
	}
}

func TestFieldType_Classes(t *testing.T) {
	if !FieldText.IsTextual() || !FieldTextarea.IsTextual() {
		t.Fatal("text and textarea must be textual")
	}
	if FieldSelect.IsTextual() || FieldNumber.IsTextual() {
		t.Fatal("select and number must not be textual")
	}
	if !FieldRadio.IsStringValued() || FieldCheckbox.IsStringValued() || FieldDate.IsStringValued() {
		t.Fatal("unexpected string-valued classification")
	}
	if !FieldSelect.HasOptions() || !FieldRadio.HasOptions() || FieldText.HasOptions() {
		t.Fatal("unexpected options classification")
	}
}

func TestNewField_Defaults(t *testing.T) {
	f := NewField("f1", FieldSelect)
	if f.Label != "New Select Field" {
		t.Fatalf("expected label 'New Select Field', got %q", f.Label)
	}
	if diff := cmp.Diff([]string{"Option 1", "Option 2"}, f.Options); diff != "" {
		t.Fatalf("options mismatch (-want +got):\n%s", diff)
	}
	if f.Required || f.IsDerived() {
		t.Fatal("new field must be optional and not derived")
	}

	text := NewField("f2", FieldText)
	if text.Options != nil {
		t.Fatalf("text field must not carry options, got %v", text.Options)
	}
	if err := text.Validate(); err != nil {
		t.Fatalf("expected new text field to be valid: %v", err)
	}
}

func TestFormField_Validate(t *testing.T) {
	cases := []struct {
		name  string
		field FormField
		want  error
	}{
		{"missing id", FormField{Type: FieldText}, ErrMissingFieldID},
		{"unknown type", FormField{ID: "a", Type: "color"}, ErrUnknownFieldType},
		{"radio without options", FormField{ID: "a", Type: FieldRadio}, ErrMissingOptions},
		{"select with options", FormField{ID: "a", Type: FieldSelect, Options: []string{"x"}}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.field.Validate()
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestFormSchema_ValidateDuplicateIDs(t *testing.T) {
	s := FormSchema{Fields: []FormField{
		{ID: "a", Type: FieldText},
		{ID: "a", Type: FieldNumber},
	}}
	if err := s.Validate(); !errors.Is(err, ErrDuplicateFieldID) {
		t.Fatalf("expected ErrDuplicateFieldID, got %v", err)
	}
}

func TestFormSchema_CloneIsIndependent(t *testing.T) {
	s := FormSchema{
		ID:        "form-1",
		Name:      "Signup",
		CreatedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Fields: []FormField{
			{ID: "color", Type: FieldSelect, Options: []string{"red", "blue"}},
			{ID: "full", Type: FieldText, Derived: &DerivedConfig{ParentFields: []string{"first"}, Formula: "concat"}},
		},
	}
	c := s.Clone()
	if diff := cmp.Diff(s, c); diff != "" {
		t.Fatalf("clone differs (-orig +clone):\n%s", diff)
	}

	c.Fields[0].Options[0] = "green"
	c.Fields[1].Derived.ParentFields[0] = "last"
	c.Fields = append(c.Fields, FormField{ID: "extra", Type: FieldText})

	if s.Fields[0].Options[0] != "red" {
		t.Fatal("mutating clone options leaked into original")
	}
	if s.Fields[1].Derived.ParentFields[0] != "first" {
		t.Fatal("mutating clone derived config leaked into original")
	}
	if len(s.Fields) != 2 {
		t.Fatal("appending to clone leaked into original")
	}
}

func TestFormSchema_ParentCandidates(t *testing.T) {
	s := FormSchema{Fields: []FormField{
		{ID: "first", Type: FieldText},
		{ID: "last", Type: FieldText},
		{ID: "full", Type: FieldText, Derived: &DerivedConfig{Formula: "concat"}},
	}}
	var ids []string
	for _, f := range s.ParentCandidates("last") {
		ids = append(ids, f.ID)
	}
	if diff := cmp.Diff([]string{"first"}, ids); diff != "" {
		t.Fatalf("candidates mismatch (-want +got):\n%s", diff)
	}
	if got := len(s.DerivedFields()); got != 1 {
		t.Fatalf("expected 1 derived field, got %d", got)
	}
}

func TestDecodeSchema_YAML(t *testing.T) {
	doc := `
id: signup
name: Signup
createdAt: 2024-05-01T10:00:00Z
fields:
  - id: email
    type: text
    label: Email
    required: true
    validation:
      required: true
      email: true
  - id: plan
    type: select
    label: Plan
    options: [free, pro]
  - id: total
    type: number
    label: Total
    derived:
      parentFields: [a, b]
      formula: sum
`
	s, err := DecodeSchema(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if s.Name != "Signup" || len(s.Fields) != 3 {
		t.Fatalf("unexpected schema: %+v", s)
	}
	if !s.Fields[0].Validation.Email || !s.Fields[0].Validation.Required {
		t.Fatal("expected email validation to be decoded")
	}
	if s.Fields[2].Derived == nil || s.Fields[2].Derived.Formula != "sum" {
		t.Fatalf("expected derived config, got %+v", s.Fields[2].Derived)
	}
	if !s.CreatedAt.Equal(time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected createdAt: %v", s.CreatedAt)
	}
}

func TestDecodeSchema_JSONAndInvalid(t *testing.T) {
	good := `{"id":"x","name":"X","fields":[{"id":"a","type":"checkbox","label":"A","required":false,"validation":{}}]}`
	if _, err := DecodeSchema(strings.NewReader(good)); err != nil {
		t.Fatalf("expected JSON schema to decode: %v", err)
	}

	bad := `{"id":"x","fields":[{"id":"a","type":"radio","label":"A","validation":{}}]}`
	if _, err := DecodeSchema(strings.NewReader(bad)); !errors.Is(err, ErrMissingOptions) {
		t.Fatalf("expected ErrMissingOptions, got %v", err)
	}
}

func TestDecodeValues(t *testing.T) {
	values, err := DecodeValues(strings.NewReader("first: Ada\nage: 36\nagree: true\n"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	want := map[string]any{"first": "Ada", "age": float64(36), "agree": true}
	if diff := cmp.Diff(want, values); diff != "" {
		t.Fatalf("values mismatch (-want +got):\n%s", diff)
	}
}
