package report

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ministryofjustice/probation-case-sampler/internal/sampler"
)

// View picks the exported shape of a report.
func View(r *sampler.Report, detail bool) any {
	if detail {
		return sampler.Analyse(r)
	}
	return sampler.Summarize(r)
}

// EncodeJSON writes v as indented JSON.
func EncodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("unable to write JSON output: %w", err)
	}
	return nil
}

// WriteJSON creates path and writes the chosen view of r to it.
func WriteJSON(path string, r *sampler.Report, detail bool) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create JSON output: %w", err)
	}
	return closeAfter(file, EncodeJSON(file, View(r, detail)))
}

// closeAfter closes c and reports its error unless err is already set.
func closeAfter(c io.Closer, err error) error {
	if cerr := c.Close(); cerr != nil && err == nil {
		return fmt.Errorf("unable to close JSON output: %w", cerr)
	}
	return err
}
