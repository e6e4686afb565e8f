package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"formcraft/internal/engine"
	"formcraft/internal/metadata"
)

var errValidationFailed = errors.New("validation failed")

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <schema> [values]",
		Short: "Compute derived fields and validate a value snapshot",
		Long: `Run one value-change event against a form schema.

Derived fields are recomputed from the snapshot and every field is
validated. Without a values file the schema's defaults are used.
Schema and values may be YAML or JSON.`,
		Example: `  formctl validate contact.yaml values.yaml
  formctl validate contact.json -o json`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readSchema(args[0])
			if err != nil {
				return err
			}
			var values map[string]any
			if len(args) == 2 {
				if values, err = readValues(args[1]); err != nil {
					return err
				}
			} else {
				values = engine.DefaultValues(schema.Fields)
			}

			res := engine.NewRuntime(nil).Apply(cmd.Context(), schema.Fields, values)
			if err := renderResult(getRenderer(cmd), schema, res); err != nil {
				return err
			}
			if !res.Valid() {
				return fmt.Errorf("%w: %d field(s) invalid", errValidationFailed, len(res.Errors))
			}
			return nil
		},
	}
}

func renderResult(r *renderer, schema *metadata.FormSchema, res engine.Result) error {
	if r.isJSON() {
		return r.json(res)
	}
	rows := make([]table.Row, 0, len(schema.Fields))
	for _, f := range schema.Fields {
		kind := string(f.Type)
		if f.IsDerived() {
			kind += " (derived)"
		}
		rows = append(rows, table.Row{f.ID, kind, formatValue(res.Values[f.ID]), res.Errors[f.ID]})
	}
	r.table(table.Row{"Field", "Type", "Value", "Error"}, rows)
	for _, d := range res.Diagnostics {
		r.line("%s: %s", d.Severity, d.Message)
	}
	return nil
}

func readSchema(path string) (*metadata.FormSchema, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schema: %w", err)
	}
	defer f.Close()
	return metadata.DecodeSchema(f)
}

func readValues(path string) (map[string]any, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open values: %w", err)
	}
	defer f.Close()
	return metadata.DecodeValues(f)
}
