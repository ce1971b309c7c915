package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/rewired-gh/drawcast/internal/models"
	"github.com/rewired-gh/drawcast/internal/tracker"
)

// printReport writes a human-readable report
func printReport(w io.Writer, report tracker.Report, showPoints bool) {
	fmt.Fprintf(w, "As of %s, score %d, mode %s\n", models.FormatDate(report.AsOf), report.Score, report.Mode)
	fmt.Fprintln(w, strings.Repeat("-", 60))

	for _, res := range report.Results {
		fmt.Fprintf(w, "%-20s %s\n", res.Category, res.Verdict)
		fmt.Fprintf(w, "  rounds: %d, latest %s at %d\n", res.Rounds, models.FormatDate(res.Latest.Date), res.Latest.Score)

		if !showPoints {
			continue
		}
		for _, p := range res.Projection {
			marker := " "
			if p.IsForecast {
				marker = "*"
			}
			fmt.Fprintf(w, "  %s %s %6.0f\n", marker, models.FormatDate(p.Date), p.Value)
		}
	}
}

func printJSON(w io.Writer, report tracker.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
