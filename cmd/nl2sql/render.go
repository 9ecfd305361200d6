package main

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/Yotam17/nl2sql/internal/models"
	"github.com/Yotam17/nl2sql/internal/pipeline"
)

// render formats a finished run for a terminal.
func render(s *pipeline.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", color.BlueString("intent:"), s.Intent)
	fmt.Fprintf(&b, "%s %s\n", color.BlueString("sql:"), s.SQL)

	for _, n := range s.Notices {
		fmt.Fprintf(&b, "%s %s\n", color.YellowString("notice:"), n)
	}

	if s.Blocked() {
		fmt.Fprintln(&b, color.RedString("blocked by guardrails"))
		for _, r := range s.Reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
		return b.String()
	}

	if s.FilePath != "" {
		fmt.Fprintf(&b, "%s %s\n", color.GreenString("saved:"), s.FilePath)
	}

	b.WriteString("\n")
	b.WriteString(formatRows(s.Rows))
	return b.String()
}

func formatRows(rows []models.Row) string {
	if len(rows) == 0 {
		return "_No rows_\n"
	}

	var b strings.Builder
	columns := rows[0].Keys()

	alignment := make([]tw.Align, len(columns))
	for i := range alignment {
		alignment[i] = tw.AlignNone
	}

	table := tablewriter.NewTable(&b,
		tablewriter.WithRenderer(renderer.NewMarkdown()),
		tablewriter.WithAlignment(alignment),
		tablewriter.WithHeaderAutoFormat(tw.Off),
	)
	table.Header(columns)

	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, v := range row.Values() {
			if i < len(cells) {
				cells[i] = formatValue(v)
			}
		}
		table.Append(cells)
	}
	table.Render()

	fmt.Fprintf(&b, "\n_%d rows_\n", len(rows))
	return b.String()
}

func formatValue(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.2f", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
