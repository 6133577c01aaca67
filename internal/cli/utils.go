// Package cli renders resumatch command output.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/hyperjump/resumatch/internal/indexer"
	"github.com/hyperjump/resumatch/internal/models"
	"github.com/hyperjump/resumatch/pkg/utils"
)

// OutputFormat is the format for command output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// ParseOutputFormat accepts "text", "json" or "" (text).
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch OutputFormat(strings.ToLower(strings.TrimSpace(s))) {
	case "", OutputText:
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	}
	return "", fmt.Errorf("unknown output format %q (want text or json)", s)
}

// WriteMatchResults writes a match response to w in the given format.
func WriteMatchResults(w io.Writer, response *models.MatchResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, response)
	}
	fmt.Fprintf(w, "\nFound %d matches in %dms (metric: %s)\n\n", response.Total, response.QueryTime, response.Metric)
	for _, m := range response.Matches {
		fmt.Fprintf(w, "%3d. %-40s %s\n", m.Rank, m.ResumeID, formatScore(m.Score, response.Metric))
		if m.FilePath != "" {
			fmt.Fprintf(w, "     %s\n", utils.Truncate(m.FilePath, 72))
		}
	}
	if response.Total == 0 {
		fmt.Fprintln(w, "No resumes matched.")
	}
	return nil
}

func formatScore(score float64, metric string) string {
	if metric == "l2" {
		return fmt.Sprintf("distance %.4f", score)
	}
	return fmt.Sprintf("similarity %.4f", score)
}

// WriteStatus writes index status to w.
func WriteStatus(w io.Writer, status *models.StatusResponse, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, status)
	}
	state := "consistent"
	if !status.Consistent {
		state = "INCONSISTENT"
	}
	fmt.Fprintf(w, "Resumes:         %d\n", status.Resumes)
	fmt.Fprintf(w, "Index vectors:   %d (%s, %s)\n", status.IndexSize, status.IndexType, status.Metric)
	fmt.Fprintf(w, "Ledger ids:      %d (%d pending)\n", status.LedgerLen, status.PendingLedger)
	if status.BackupLen >= 0 {
		fmt.Fprintf(w, "Backup vectors:  %d\n", status.BackupLen)
	}
	fmt.Fprintf(w, "Embedding model: %s (%d dims)\n", status.EmbeddingModel, status.Dimensions)
	fmt.Fprintf(w, "Disk usage:      %s\n", FormatBytes(status.DiskUsageBytes))
	fmt.Fprintf(w, "State:           %s\n", state)
	return nil
}

// WriteIndexResults writes per-file outcomes of a directory index run and a summary line.
func WriteIndexResults(w io.Writer, results []indexer.FileResult, format OutputFormat) error {
	if format == OutputJSON {
		type row struct {
			Path     string `json:"path"`
			ResumeID string `json:"resume_id"`
			Position int    `json:"position"`
			Skipped  bool   `json:"skipped,omitempty"`
			Error    string `json:"error,omitempty"`
		}
		rows := make([]row, 0, len(results))
		for _, r := range results {
			out := row{Path: r.Path, ResumeID: r.ResumeID, Position: r.Position, Skipped: r.Skipped}
			if r.Err != nil {
				out.Error = r.Err.Error()
			}
			rows = append(rows, out)
		}
		return writeJSON(w, rows)
	}
	var indexed, skipped, failed int
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
			fmt.Fprintf(w, "FAIL  %s: %v\n", r.Path, r.Err)
		case r.Skipped:
			skipped++
			fmt.Fprintf(w, "SKIP  %s (already indexed as %s)\n", r.Path, r.ResumeID)
		default:
			indexed++
			fmt.Fprintf(w, "OK    %s -> %s @%d\n", r.Path, r.ResumeID, r.Position)
		}
	}
	fmt.Fprintf(w, "\n%d indexed, %d skipped, %d failed\n", indexed, skipped, failed)
	return nil
}

// WriteInsights writes an insight summary as aligned label/value lines.
func WriteInsights(w io.Writer, fields []models.InsightField, format OutputFormat) error {
	if format == OutputJSON {
		return writeJSON(w, fields)
	}
	width := 0
	for _, f := range fields {
		width = max(width, len(f.Label))
	}
	for _, f := range fields {
		fmt.Fprintf(w, "%-*s  %s\n", width+1, f.Label+":", f.Value)
	}
	return nil
}

// FormatBytes renders n with a binary unit suffix.
func FormatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
