package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/ekaya-inc/ekaya-query/pkg/models"
)

// Response is the JSON envelope written by every command in json format.
type Response struct {
	Status string `json:"status"` // "ok" or "error"
	Data   any    `json:"data,omitempty"`
	Error  string `json:"error,omitempty"`
}

// outputFormatter writes command results as JSON or as aligned text.
type outputFormatter struct {
	format string
	w      io.Writer
}

func newFormatter(opts *RootOptions, w io.Writer) *outputFormatter {
	return &outputFormatter{format: opts.Format, w: w}
}

func (f *outputFormatter) json() bool {
	return f.format == "json"
}

// writeJSON encodes data inside an "ok" envelope.
func (f *outputFormatter) writeJSON(data any) error {
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	return enc.Encode(Response{Status: "ok", Data: data})
}

// writeError reports a failed command. Text output is left to the caller,
// which prints the returned error on stderr.
func (f *outputFormatter) writeError(err error) {
	if !f.json() {
		return
	}
	enc := json.NewEncoder(f.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(Response{Status: "error", Error: err.Error()})
}

// writeResult renders result rows as a table, followed by aggregates and
// metadata when present.
func (f *outputFormatter) writeResult(def *models.QueryDefinition, result *models.Result) error {
	if f.json() {
		return f.writeJSON(result)
	}

	names := def.AttributeNames()
	tw := tabwriter.NewWriter(f.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(names, "\t"))
	for _, row := range result.Rows {
		cells := make([]string, len(names))
		for i, n := range names {
			cells[i] = cell(row.Value(n))
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintf(f.w, "\n%d row(s)", len(result.Rows))
	if result.TotalCount != nil {
		fmt.Fprintf(f.w, " of %d", *result.TotalCount)
	}
	fmt.Fprintln(f.w)

	if len(result.Aggregates) > 0 {
		keys := make([]string, 0, len(result.Aggregates))
		for k := range result.Aggregates {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(f.w, "%s: %s\n", k, cell(result.Aggregates[k]))
		}
	}

	if md := result.Metadata; md != nil {
		fmt.Fprintf(f.w, "execution %s (%s, stage %s, cache used: %t, %s)\n",
			md.ExecutionID, md.Dialect, md.Stage, md.CacheUsed, md.Timings.Total)
		for _, c := range md.AppliedCriteria {
			fmt.Fprintf(f.w, "  criteria %s (%s)\n", c.Name, c.Reason)
		}
		for _, af := range md.AppliedFilters {
			fmt.Fprintf(f.w, "  filter %s\n", af.SQL)
		}
	}
	return nil
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case time.Time:
		return x.Format(time.RFC3339)
	case []byte:
		return fmt.Sprintf("<%d bytes>", len(x))
	}
	return fmt.Sprint(v)
}
