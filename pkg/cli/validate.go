package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// QueryInfo summarizes one catalog query.
type QueryInfo struct {
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	Dialect        string `json:"dialect"`
	Params         int    `json:"params"`
	Criteria       int    `json:"criteria"`
	Attributes     int    `json:"attributes"`
	MetadataCached bool   `json:"metadata_cached"`
}

// ValidationResult is the output of the validate command.
type ValidationResult struct {
	Valid     bool        `json:"valid"`
	Connected bool        `json:"connected"`
	Queries   []QueryInfo `json:"queries"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	var connect bool

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the query catalog",
		Long: `Load the configuration and the query catalog and build every query definition.

With --connect the datasource is opened as well and each query's metadata
probe is run, so column mismatches surface before the first execution.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, connect)
		},
	}

	cmd.Flags().BoolVar(&connect, "connect", false, "connect to the datasource and prewarm metadata")
	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, connect bool) error {
	formatter := newFormatter(opts, cmd.OutOrStdout())

	s, err := openSession(cmd.Context(), opts, connect)
	if err != nil {
		formatter.writeError(err)
		return err
	}
	defer s.Close()

	result := ValidationResult{Valid: true, Connected: connect}
	for _, def := range s.queries {
		result.Queries = append(result.Queries, QueryInfo{
			Name:           def.Name(),
			Description:    def.Description(),
			Dialect:        def.Dialect(),
			Params:         len(def.Params()),
			Criteria:       len(def.Criteria()),
			Attributes:     len(def.Attributes()),
			MetadataCached: s.engine.Cache(def.Name()).IsInitialized(),
		})
	}

	if formatter.json() {
		return formatter.writeJSON(result)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "✓ Catalog valid: %d query(ies)\n\n", len(result.Queries))
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "QUERY\tDIALECT\tPARAMS\tCRITERIA\tATTRIBUTES\tMETADATA")
	for _, q := range result.Queries {
		status := "live"
		if q.MetadataCached {
			status = "cached"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\n", q.Name, q.Dialect, q.Params, q.Criteria, q.Attributes, status)
	}
	return tw.Flush()
}
