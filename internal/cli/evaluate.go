package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"formcraft/internal/engine"
	"formcraft/internal/metadata"
)

// EvaluateOptions holds options for the evaluate command.
type EvaluateOptions struct {
	Parents []string // id=value or id:type=value
	Schema  string
}

// NewEvaluateCommand creates the evaluate command.
func NewEvaluateCommand() *cobra.Command {
	opts := &EvaluateOptions{}
	cmd := &cobra.Command{
		Use:   "evaluate <formula>",
		Short: "Evaluate a derived-field formula",
		Long: `Evaluate a registered formula (age, concat, sum, average) or an
arithmetic template against parent values.

Parents are given in order as id=value. A parent type can be added as
id:type=value; age uses the first date-typed parent. With --schema the
field types come from the schema instead.`,
		Example: `  formctl evaluate sum --parent a=1 --parent b=2
  formctl evaluate "price * qty" --parent price=2.5 --parent qty=4
  formctl evaluate age --parent dob:date=2000-06-15`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parents, fields, err := parseParents(opts.Parents)
			if err != nil {
				return err
			}
			if opts.Schema != "" {
				schema, err := readSchema(opts.Schema)
				if err != nil {
					return err
				}
				fields = schema.Fields
			}

			value, evalErr := engine.NewEvaluator().Compute(args[0], parents, fields)
			if evalErr != nil {
				value = ""
			}

			r := getRenderer(cmd)
			if r.isJSON() {
				out := map[string]any{"formula": args[0], "value": value}
				if evalErr != nil {
					out["error"] = evalErr.Error()
				}
				return r.json(out)
			}
			r.line("%s", formatValue(value))
			if evalErr != nil {
				r.line("error: %v", evalErr)
			}
			return nil
		},
	}

	cmd.Flags().StringArrayVarP(&opts.Parents, "parent", "p", nil, "Parent value as id=value or id:type=value (repeatable)")
	cmd.Flags().StringVar(&opts.Schema, "schema", "", "Schema file supplying field types")
	return cmd
}

func parseParents(specs []string) (engine.ParentValues, []metadata.FormField, error) {
	var (
		parents engine.ParentValues
		fields  []metadata.FormField
	)
	for _, spec := range specs {
		key, value, ok := strings.Cut(spec, "=")
		if !ok || key == "" {
			return nil, nil, fmt.Errorf("invalid parent %q, want id=value", spec)
		}
		id, typ, typed := strings.Cut(key, ":")
		ft := metadata.FieldText
		if typed {
			ft = metadata.FieldType(typ)
			if !ft.Valid() {
				return nil, nil, fmt.Errorf("parent %s: unknown field type %q", id, typ)
			}
		}
		parents = parents.Set(id, value)
		fields = append(fields, metadata.FormField{ID: id, Type: ft})
	}
	return parents, fields, nil
}
