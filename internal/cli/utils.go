// Package cli renders run summaries and history listings for the docimg command line.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/hyperjump/docimg/internal/models"
	"github.com/hyperjump/docimg/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// maxMessageLen bounds failure messages in text output.
const maxMessageLen = 160

// ParseOutputFormat validates an --output-format value. Empty means text.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// WriteSummary writes a run summary to w in the given format.
func WriteSummary(w io.Writer, summary *models.RunSummary, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, summary)
	}
	writeSummaryText(w, summary)
	return nil
}

func writeSummaryText(w io.Writer, s *models.RunSummary) {
	for _, d := range s.Documents {
		name := filepath.Base(d.Path)
		switch {
		case d.Failed():
			continue
		case d.Skipped:
			fmt.Fprintf(w, "%s: skipped (%s)\n", name, d.SkipReason)
		case d.Matched == 0:
			fmt.Fprintf(w, "%s: no images\n", name)
		default:
			fmt.Fprintf(w, "%s: %s -> %s\n", name, utils.Plural(d.Written, "image"), strings.Join(d.Files, ", "))
		}
	}
	if len(s.Failures) > 0 {
		fmt.Fprintf(w, "\n%s:\n", utils.Plural(len(s.Failures), "failure"))
		for _, f := range s.Failures {
			fmt.Fprintf(w, "  [%s] %s\n", f.Kind, utils.Truncate(f.Message, maxMessageLen))
		}
	}
	if s.ImagesExtracted > 0 {
		fmt.Fprintf(w, "\nProcessing complete! Extracted %s from %s into %s.\n",
			utils.Plural(s.ImagesExtracted, "image"), utils.Plural(s.DocumentsWithImages, "document"), s.OutputDir)
		return
	}
	fmt.Fprintln(w, "\nProcessing complete! No images found.")
}

// WriteRuns writes a page of run history to w in the given format.
func WriteRuns(w io.Writer, runs []*models.RunSummary, total int64, format OutputFormat) error {
	if format == OutputJSON {
		if runs == nil {
			runs = []*models.RunSummary{}
		}
		return writeJSON(w, map[string]interface{}{"runs": runs, "total": total})
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded.")
		return nil
	}
	fmt.Fprintf(w, "Showing %d of %s\n\n", len(runs), utils.Plural(int(total), "run"))
	for _, r := range runs {
		fmt.Fprintf(w, "%s  %s  %s from %s, %s\n",
			r.RunID,
			r.StartedAt.Local().Format(time.DateTime),
			utils.Plural(r.ImagesExtracted, "image"),
			utils.Plural(r.DocumentsProcessed, "document"),
			utils.Plural(len(r.Failures), "failure"))
		fmt.Fprintf(w, "    %s -> %s\n", utils.Truncate(strings.Join(r.Inputs, ", "), maxMessageLen), r.OutputDir)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
