package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	domainerr "folio/internal/domain/errors"
	"folio/internal/ingest"
	"folio/internal/source"
)

type checkReport struct {
	Documents int          `json:"documents"`
	Valid     int          `json:"valid"`
	Issues    []checkIssue `json:"issues"`
}

type checkIssue struct {
	ID     string   `json:"id"`
	Fields []string `json:"fields,omitempty"`
	Error  string   `json:"error"`
}

func newCheckCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Parse every post and report the ones that would be excluded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			opt := ingest.Options{
				Location:       a.cfg.Location(),
				WordsPerMinute: a.cfg.Content.WordsPerMinute,
			}
			if a.index != nil {
				opt.Cache = a.index
			}
			res, err := ingest.Load(cmd.Context(), source.NewFS(a.cfg.Content.Dir, a.cfg.Content.Extensions...), opt)
			if err != nil {
				return err
			}

			report := newCheckReport(res)
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(report); err != nil {
					return err
				}
			} else {
				printCheckReport(cmd.OutOrStdout(), report)
			}
			if len(report.Issues) > 0 {
				return withExit(1, fmt.Errorf("%d invalid document(s)", len(report.Issues)))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the report as JSON")
	return cmd
}

func newCheckReport(res ingest.Result) checkReport {
	r := checkReport{
		Documents: len(res.Posts) + len(res.Issues),
		Valid:     len(res.Posts),
		Issues:    make([]checkIssue, 0, len(res.Issues)),
	}
	for _, is := range res.Issues {
		ci := checkIssue{ID: is.ID, Error: is.Err.Error()}
		var inv *domainerr.InvalidDocumentError
		if errors.As(is.Err, &inv) {
			ci.Fields = inv.Violations.Fields()
		}
		r.Issues = append(r.Issues, ci)
	}
	return r
}

func printCheckReport(w io.Writer, r checkReport) {
	for _, is := range r.Issues {
		fmt.Fprintf(w, "✗ %s: %s\n", is.ID, is.Error)
	}
	fmt.Fprintf(w, "%d of %d document(s) valid\n", r.Valid, r.Documents)
}
