package cmd

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"

	"github.com/dbsmedya/goanonymize/internal/anonymizer"
)

// renderTable writes rows under headers with columns padded to their
// widest cell. Widths are measured in terminal cells.
func renderTable(w io.Writer, headers []string, rows [][]string) {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if cw := runewidth.StringWidth(cell); i < len(widths) && cw > widths[i] {
				widths[i] = cw
			}
		}
	}

	line := func(cells []string) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = runewidth.FillRight(cell, widths[i])
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	line(headers)
	sep := make([]string, len(headers))
	for i := range headers {
		sep[i] = strings.Repeat("-", widths[i])
	}
	line(sep)
	for _, row := range rows {
		line(row)
	}
}

func statusText(s anonymizer.Status) string {
	switch s {
	case anonymizer.StatusCompleted:
		return color.Green.Sprint(string(s))
	case anonymizer.StatusAborted:
		return color.Yellow.Sprint(string(s))
	default:
		return color.Red.Sprint(string(s))
	}
}

func printReport(w io.Writer, r *anonymizer.Report) {
	fmt.Fprintf(w, "\n=== Anonymization %s ===\n", statusText(r.Status))
	fmt.Fprintf(w, "Run ID:      %s\n", r.RunID)
	fmt.Fprintf(w, "Environment: %s\n", r.Environment)
	fmt.Fprintf(w, "Duration:    %s\n", r.Duration.Round(time.Millisecond))

	if len(r.Models) > 0 {
		fmt.Fprintln(w)
		rows := make([][]string, 0, len(r.Models))
		for _, m := range r.Models {
			rows = append(rows, []string{
				m.Model,
				m.Table,
				humanize.Comma(m.Processed) + " / " + humanize.Comma(m.Total),
				humanize.Comma(int64(m.Chunks)),
				m.Duration.Round(time.Millisecond).String(),
			})
		}
		renderTable(w, []string{"MODEL", "TABLE", "RECORDS", "CHUNKS", "DURATION"}, rows)
	}

	fmt.Fprintf(w, "\nTotal records: %s in %s chunk(s)\n",
		humanize.Comma(r.TotalRecords()), humanize.Comma(int64(r.TotalChunks())))
	if r.FailedModel != "" {
		fmt.Fprintf(w, "Failed model:  %s\n", r.FailedModel)
	}
	if r.Err != nil {
		fmt.Fprintf(w, "Error:         %v\n", r.Err)
	}
}

func printEstimate(w io.Writer, env string, restricted bool, res *anonymizer.EstimateResult) {
	fmt.Fprintf(w, "\n=== Dry Run ===\n")
	fmt.Fprintf(w, "Environment: %s", env)
	if restricted {
		fmt.Fprint(w, color.Yellow.Sprint(" (restricted: confirmation required)"))
	}
	fmt.Fprintf(w, "\nChunk size:  %s\n\n", humanize.Comma(int64(res.ChunkSize)))

	rows := make([][]string, 0, len(res.Models))
	for i, m := range res.Models {
		prio := ""
		if m.Priority {
			prio = "yes"
		}
		rows = append(rows, []string{
			fmt.Sprintf("%d", i+1),
			m.Model,
			m.Table,
			prio,
			humanize.Comma(m.Records),
			humanize.Comma(m.Chunks),
			fmt.Sprintf("%d", m.Relations),
		})
	}
	renderTable(w, []string{"#", "MODEL", "TABLE", "PRIORITY", "RECORDS", "CHUNKS", "RELATIONS"}, rows)

	fmt.Fprintf(w, "\nTotal: %s records in %s chunk(s). No changes were made.\n",
		humanize.Comma(res.TotalRecords()), humanize.Comma(res.TotalChunks()))
}
