package cli

import (
	"fmt"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"formcraft/internal/editor"
	"formcraft/internal/metadata"
	"formcraft/internal/store"
)

// NewFormsCommand creates the forms command group.
func NewFormsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "forms",
		Short: "Manage saved forms in the configured store",
	}
	cmd.AddCommand(newFormsListCommand())
	cmd.AddCommand(newFormsShowCommand())
	cmd.AddCommand(newFormsImportCommand())
	cmd.AddCommand(newFormsDeleteCommand())
	return cmd
}

// openSession opens the configured store and loads the saved forms.
func openSession(cmd *cobra.Command) (*editor.Session, func(), error) {
	cfg := getConfig(cmd.Context())
	blobs, closeFn, err := store.OpenBlobStore(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	repo := store.NewFormRepository(blobs, cfg.Forms.StorageKey)
	sess := editor.NewSession(cmd.Context(), repo, metadata.NewRegistry(), editor.DefaultEnv())
	return sess, closeFn, nil
}

func newFormsListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved forms",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, closeFn, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			forms := sess.State().SavedForms
			r := getRenderer(cmd)
			if r.isJSON() {
				return r.json(forms)
			}
			if len(forms) == 0 {
				r.line("No saved forms")
				return nil
			}
			rows := make([]table.Row, 0, len(forms))
			for _, f := range forms {
				rows = append(rows, table.Row{f.ID, f.Name, len(f.Fields), f.CreatedAt.Format(time.RFC3339)})
			}
			r.table(table.Row{"ID", "Name", "Fields", "Created"}, rows)
			return nil
		},
	}
}

func newFormsShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved form as YAML (or JSON with -o json)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			form, ok := sess.State().SavedForm(args[0])
			if !ok {
				return fmt.Errorf("%w: %s", editor.ErrUnknownForm, args[0])
			}
			r := getRenderer(cmd)
			if r.isJSON() {
				return r.json(form)
			}
			return r.yaml(form)
		},
	}
}

func newFormsImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <schema>",
		Short: "Save a schema file as a new saved form",
		Long: `Load a schema file into the builder and save it, exactly as the
builder's save does: the form needs a name and at least one field and
is stored under a fresh id.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := readSchema(args[0])
			if err != nil {
				return err
			}
			sess, closeFn, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			ctx := cmd.Context()
			if _, err := sess.Dispatch(ctx, editor.LoadForm{Form: *schema}); err != nil {
				return err
			}
			state, err := sess.Dispatch(ctx, editor.SaveCurrent{})
			if err != nil {
				return err
			}
			saved := state.SavedForms[len(state.SavedForms)-1]

			r := getRenderer(cmd)
			if r.isJSON() {
				return r.json(saved)
			}
			r.line("Saved %q as %s", saved.Name, saved.ID)
			return nil
		},
	}
}

func newFormsDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a saved form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, closeFn, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if _, err := sess.Dispatch(cmd.Context(), editor.DeleteForm{ID: args[0]}); err != nil {
				return err
			}
			r := getRenderer(cmd)
			if r.isJSON() {
				return r.json(map[string]any{"id": args[0], "deleted": true})
			}
			r.line("Deleted %s", args[0])
			return nil
		},
	}
}
