package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-query/pkg/apperrors"
)

// NewSQLCommand creates the sql command, which prints the statements a
// request assembles to without connecting to the datasource.
func NewSQLCommand(rootOpts *RootOptions) *cobra.Command {
	var reqFlags requestFlags

	cmd := &cobra.Command{
		Use:   "sql <query>",
		Short: "Print the SQL a request assembles to",
		Long: `Assemble a query for the given parameters, filters, sorts and page and print
the resulting SQL in named and bound form, with its count query when the
request is paginated. Nothing is executed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSQL(cmd, rootOpts, &reqFlags, args[0])
		},
	}

	reqFlags.register(cmd)
	return cmd
}

func runSQL(cmd *cobra.Command, opts *RootOptions, reqFlags *requestFlags, name string) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	s, err := openSession(cmd.Context(), opts, false)
	if err != nil {
		formatter.writeError(err)
		return err
	}
	defer s.Close()

	def, ok := s.engine.Definition(name)
	if !ok {
		err := WrapExitError(ExitCommandError, "unknown query", apperrors.NewNotFoundError(name))
		formatter.writeError(err)
		return err
	}
	req, err := reqFlags.build(def)
	if err != nil {
		err = WrapExitError(ExitCommandError, "invalid request", err)
		formatter.writeError(err)
		return err
	}

	plan, err := s.engine.Assemble(cmd.Context(), name, req)
	if err != nil {
		err = WrapExitError(ExitFailure, "request rejected", err)
		formatter.writeError(err)
		return err
	}

	if formatter.json() {
		return formatter.writeJSON(plan)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "-- %s (%s)\n%s\n\n", plan.Query, plan.Dialect, plan.SQL)
	fmt.Fprintf(w, "-- bound\n%s\n", plan.BoundSQL)
	writeArgs(w, plan.Args)
	if plan.CountSQL != "" {
		fmt.Fprintf(w, "\n-- count\n%s\n", plan.BoundCountSQL)
		writeArgs(w, plan.CountArgs)
	}
	return nil
}

func writeArgs(w io.Writer, args []any) {
	for i, a := range args {
		fmt.Fprintf(w, "-- $%d = %s\n", i+1, cell(a))
	}
}
