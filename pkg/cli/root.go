// Package cli implements the ekaya-query command line: validating a query
// catalog, printing the SQL a request assembles to, and running queries.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"syscall"

	"github.com/spf13/cobra"

	// Datasource adapters register themselves on import.
	_ "github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource/mssql"
	_ "github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource/mysql"
	_ "github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource/postgres"
	_ "github.com/ekaya-inc/ekaya-query/pkg/adapters/datasource/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath  string
	CatalogPath string // overrides engine.catalog_path
	Format      string // "text" | "json"
	Version     string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command.
func NewRootCommand(version string) *cobra.Command {
	opts := &RootOptions{Version: version}

	cmd := &cobra.Command{
		Use:           "ekaya-query",
		Short:         "Run declarative parameterized queries",
		Long:          "Validate a YAML query catalog, inspect the SQL it assembles and execute its queries against a datasource.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			return nil
		},
	}

	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return WrapExitError(ExitCommandError, "invalid flags", err)
	})

	cmd.PersistentFlags().StringVarP(&opts.ConfigPath, "config", "c", "", "config file (default config.yaml when present)")
	cmd.PersistentFlags().StringVar(&opts.CatalogPath, "catalog", "", "query catalog file (overrides engine.catalog_path)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewSQLCommand(opts))
	cmd.AddCommand(NewRunCommand(opts))
	cmd.AddCommand(NewEncryptCommand(opts))

	return cmd
}

// Execute runs the command line and returns the process exit code.
func Execute(version string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return run(ctx, NewRootCommand(version), os.Args[1:], os.Stderr)
}

func run(ctx context.Context, cmd *cobra.Command, args []string, stderr io.Writer) int {
	cmd.SetArgs(args)
	if err := cmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return GetExitCode(err)
	}
	return ExitSuccess
}
