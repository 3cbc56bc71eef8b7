// Package report renders a sampling run for the console.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
	"github.com/ministryofjustice/probation-case-sampler/internal/sizing"
)

// PrintSummary writes the run totals and the per-category breakdown.
func PrintSummary(w io.Writer, r *sampler.Report) {
	fmt.Fprintln(w, "Case Sample Summary")
	fmt.Fprintln(w, strings.Repeat("-", 19))
	fmt.Fprintf(w, "Run:          %s\n", r.ID)
	fmt.Fprintf(w, "Generated:    %s\n", r.Timestamp.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Requested:    %d (+%.2f%% buffer = %d)\n", r.Requested, r.Buffer, r.Target)
	fmt.Fprintf(w, "Eligible:     %d\n", r.Eligible)
	fmt.Fprintf(w, "Selected:     %d\n", r.Selected())
	if short := r.Shortfall(); short > 0 {
		fmt.Fprintf(w, "Shortfall:    %d\n", short)
	}
	fmt.Fprintf(w, "Max per RO:   %d\n", r.MaxPerAgent)

	if len(r.Results) == 0 {
		fmt.Fprintln(w, "\nNo eligible cases.")
		return
	}
	fmt.Fprintln(w, "\nBy Stratum")
	fmt.Fprintln(w, strings.Repeat("-", 10))
	for _, res := range r.Results {
		fmt.Fprintf(w, "%s: %d selected of %d allocated (%s%% of population, %d available)\n",
			res.Category, len(res.Rows), res.Size.Count(),
			sizing.FormatPercentage(res.Size.Percentage()), res.Size.Ceiling())
	}
}

// PrintRows lists selected cases, at most topN unless showAll is set.
func PrintRows(w io.Writer, r *sampler.Report, topN int, showAll bool) {
	rows := r.Rows()
	if len(rows) == 0 {
		fmt.Fprintln(w, "\nNo cases selected.")
		return
	}
	fmt.Fprintln(w, "\nSelected Cases")
	fmt.Fprintln(w, strings.Repeat("-", 14))
	limit := len(rows)
	if !showAll && topN > 0 && topN < limit {
		limit = topN
	}
	for _, row := range rows[:limit] {
		fmt.Fprintf(w, "%s. %s | %s %s | Cluster: %s | LDU: %s | RO: %s\n",
			row.Number, row.CRN, row.FirstName, row.FamilyName, row.Cluster, row.Unit, row.Agent)
	}
	if limit < len(rows) {
		fmt.Fprintf(w, "... %d more\n", len(rows)-limit)
	}
}
