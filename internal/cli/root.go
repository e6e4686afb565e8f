// Package cli provides the formctl command-line interface.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"formcraft/internal/config"
	"formcraft/internal/logging"
)

var Version = "0.1.0"

type configKey struct{}

type rendererKey struct{}

// NewRootCmd creates the formctl root command.
func NewRootCmd() *cobra.Command {
	var (
		cfgFile string
		format  string
	)

	rootCmd := &cobra.Command{
		Use:   "formctl",
		Short: "formctl - validate, evaluate and manage form schemas",
		Long: `formctl works with the same form schemas the form builder saves.

It validates value snapshots against a schema, evaluates derived-field
formulas, reports derived-field wiring problems and manages the saved
forms in the configured store.`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
				return nil
			}
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())

			if format != "" && format != formatTable && format != formatJSON {
				return fmt.Errorf("unknown output format %q (want table or json)", format)
			}
			r := newRenderer(cmd.OutOrStdout(), format)

			ctx := context.WithValue(cmd.Context(), configKey{}, cfg)
			ctx = context.WithValue(ctx, rendererKey{}, r)
			cmd.SetContext(ctx)
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./app.yaml)")
	rootCmd.PersistentFlags().StringVarP(&format, "output", "o", "", "Output format (table|json)")
	_ = rootCmd.RegisterFlagCompletionFunc("output", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{formatTable, formatJSON}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(NewValidateCommand())
	rootCmd.AddCommand(NewEvaluateCommand())
	rootCmd.AddCommand(NewLintCommand())
	rootCmd.AddCommand(NewFormsCommand())

	return rootCmd
}

// Execute runs the root command.
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func getConfig(ctx context.Context) *config.Config {
	if c, ok := ctx.Value(configKey{}).(*config.Config); ok {
		return c
	}
	return &config.Config{}
}

func getRenderer(cmd *cobra.Command) *renderer {
	if r, ok := cmd.Context().Value(rendererKey{}).(*renderer); ok {
		return r
	}
	return newRenderer(cmd.OutOrStdout(), formatTable)
}
