package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"gopkg.in/yaml.v3"

	"github.com/tvrank/tvrank/internal/config"
	"github.com/tvrank/tvrank/internal/title"
)

// renderRecords writes records to w in the requested format. JSON and
// YAML render the full title.Record shape (encoding/json is stdlib,
// the only reasonable choice for the format itself; YAML uses
// gopkg.in/yaml.v3, already present in the dependency graph via
// viper). Table rendering uses stdlib text/tabwriter — no pack repo
// carries a terminal table library, so this is the justified
// standard-library case recorded in the grounding ledger.
func renderRecords(w io.Writer, records []title.Record, format config.OutputFormat) error {
	switch format {
	case config.OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	case config.OutputYAML:
		enc := yaml.NewEncoder(w)
		defer enc.Close()
		return enc.Encode(records)
	default:
		return renderTable(w, records)
	}
}

func renderTable(w io.Writer, records []title.Record) error {
	if len(records) == 0 {
		fmt.Fprintln(w, "no results")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tTITLE\tYEAR\tSCORE\tVOTES")
	for _, r := range records {
		year := "-"
		if r.StartYear != nil {
			year = fmt.Sprintf("%d", *r.StartYear)
		}
		score, votes := "-", "-"
		if r.Rating != nil {
			score = fmt.Sprintf("%.1f", float64(r.Rating.Score)/10)
			votes = fmt.Sprintf("%d", r.Rating.Votes)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n", r.Id, r.Type, r.Title(), year, score, votes)
	}
	return tw.Flush()
}
