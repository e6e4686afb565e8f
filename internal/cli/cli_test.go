package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const contactSchema = `
name: Contact
fields:
  - id: first
    type: text
    label: First name
    validation:
      required: true
  - id: last
    type: text
    label: Last name
  - id: full
    type: text
    label: Full name
    derived:
      parentFields: [first, last]
      formula: concat
`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// run executes formctl with args against a config that stores forms under
// dir and returns stdout.
func run(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	cfg := writeFile(t, dir, "app.yaml", "storage:\n  driver: local\n  local_path: "+filepath.Join(dir, "blobs")+"\nlog:\n  level: error\n")

	cmd := NewRootCmd()
	out := new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(new(bytes.Buffer))
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func TestValidateCommand(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "contact.yaml", contactSchema)
	values := writeFile(t, dir, "values.yaml", "first: Ada\nlast: Lovelace\n")

	out, err := run(t, dir, "validate", schema, values)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "Ada Lovelace") {
		t.Errorf("output should contain derived full name, got: %s", out)
	}

	out, err = run(t, dir, "validate", schema, "-o", "json")
	if !errors.Is(err, errValidationFailed) {
		t.Fatalf("expected validation failure with defaults, got %v", err)
	}
	var res struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json output: %v\n%s", err, out)
	}
	if res.Errors["first"] == "" {
		t.Errorf("expected error on first, got %v", res.Errors)
	}
}

func TestValidateCommand_BadSchema(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "bad.yaml", "fields:\n  - id: x\n    type: color\n")
	if _, err := run(t, dir, "validate", schema); err == nil {
		t.Fatal("expected error for unknown field type")
	}
}

func TestEvaluateCommand(t *testing.T) {
	dir := t.TempDir()

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"sum", []string{"sum", "-p", "a=1", "-p", "b=2"}, "3"},
		{"template", []string{"price * qty", "-p", "price=2.5", "-p", "qty=4"}, "10"},
		{"concat", []string{"concat", "-p", "a=Hello", "-p", "b=World"}, "Hello World"},
		{"unsafe", []string{"a + alert(1)", "-p", "a=1"}, `""`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, dir, append([]string{"evaluate"}, tt.args...)...)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			first := strings.SplitN(out, "\n", 2)[0]
			if first != tt.want {
				t.Errorf("expected %q, got %q", tt.want, first)
			}
		})
	}
}

func TestEvaluateCommand_JSONAndBadParent(t *testing.T) {
	dir := t.TempDir()
	out, err := run(t, dir, "evaluate", "x * 2", "-p", "x=21", "-o", "json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var res map[string]any
	if err := json.Unmarshal([]byte(out), &res); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if res["value"] != float64(42) {
		t.Errorf("expected 42, got %v", res["value"])
	}

	if _, err := run(t, dir, "evaluate", "sum", "-p", "novalue"); err == nil {
		t.Error("expected error for parent without value")
	}
	if _, err := run(t, dir, "evaluate", "age", "-p", "dob:color=2000-01-01"); err == nil {
		t.Error("expected error for unknown parent type")
	}
}

func TestLintCommand(t *testing.T) {
	dir := t.TempDir()
	clean := writeFile(t, dir, "contact.yaml", contactSchema)
	out, err := run(t, dir, "lint", clean)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "No problems found") {
		t.Errorf("expected clean lint, got: %s", out)
	}

	broken := writeFile(t, dir, "broken.yaml", `
name: Broken
fields:
  - id: a
    type: number
    derived:
      parentFields: [a]
      formula: sum
`)
	out, err = run(t, dir, "lint", broken)
	if !errors.Is(err, errLintFailed) {
		t.Fatalf("expected lint failure, got %v", err)
	}
	if !strings.Contains(out, "self_parent") {
		t.Errorf("expected self_parent finding, got: %s", out)
	}
}

func TestFormsCommands(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "contact.yaml", contactSchema)

	out, err := run(t, dir, "forms", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, "No saved forms") {
		t.Errorf("expected empty list, got: %s", out)
	}

	out, err = run(t, dir, "forms", "import", schema, "-o", "json")
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	var saved struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := json.Unmarshal([]byte(out), &saved); err != nil {
		t.Fatalf("invalid json: %v\n%s", err, out)
	}
	if saved.ID == "" || saved.Name != "Contact" {
		t.Fatalf("unexpected saved form %+v", saved)
	}

	out, err = run(t, dir, "forms", "list")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !strings.Contains(out, saved.ID) || !strings.Contains(out, "Contact") {
		t.Errorf("expected saved form in list, got: %s", out)
	}

	out, err = run(t, dir, "forms", "show", saved.ID)
	if err != nil {
		t.Fatalf("show: %v", err)
	}
	if !strings.Contains(out, "name: Contact") || !strings.Contains(out, "formula: concat") {
		t.Errorf("expected yaml form, got: %s", out)
	}

	if _, err := run(t, dir, "forms", "delete", saved.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := run(t, dir, "forms", "show", saved.ID); err == nil {
		t.Error("expected error showing deleted form")
	}
	if _, err := run(t, dir, "forms", "delete", saved.ID); err == nil {
		t.Error("expected error deleting unknown form")
	}
}

func TestFormsImport_RequiresName(t *testing.T) {
	dir := t.TempDir()
	schema := writeFile(t, dir, "unnamed.yaml", "fields:\n  - id: a\n    type: text\n")
	if _, err := run(t, dir, "forms", "import", schema); err == nil {
		t.Fatal("expected error importing unnamed form")
	}
}

func TestRootCommand_UnknownOutput(t *testing.T) {
	dir := t.TempDir()
	if _, err := run(t, dir, "lint", "x.yaml", "-o", "xml"); err == nil {
		t.Fatal("expected error for unknown output format")
	}
}
