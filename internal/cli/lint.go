package cli

import (
	"errors"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"formcraft/internal/engine"
)

var errLintFailed = errors.New("derived field errors found")

// NewLintCommand creates the lint command.
func NewLintCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <schema>",
		Short: "Report derived-field wiring problems in a schema",
		Long: `Inspect derived fields without evaluating them.

Reports parents that do not exist, fields that list themselves, derived
fields fed by other derived fields (which lag one change behind), cycles
and template tokens that are not parents. Exits non-zero when any error
is found.`,
		Example: `  formctl lint contact.yaml
  formctl lint contact.yaml -o json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readSchema(args[0])
			if err != nil {
				return err
			}
			diags := engine.DiagnoseDerived(schema.Fields, nil)

			r := getRenderer(cmd)
			if r.isJSON() {
				if diags == nil {
					diags = []engine.Diagnostic{}
				}
				if err := r.json(diags); err != nil {
					return err
				}
			} else if len(diags) == 0 {
				r.line("No problems found")
			} else {
				rows := make([]table.Row, 0, len(diags))
				for _, d := range diags {
					rows = append(rows, table.Row{d.Severity, d.Field, d.Code, d.Message})
				}
				r.table(table.Row{"Severity", "Field", "Code", "Message"}, rows)
			}

			if engine.HasErrors(diags) {
				return errLintFailed
			}
			return nil
		},
	}
}
