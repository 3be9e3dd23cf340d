package main

import (
	"fmt"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"lyricsync/internal/cue"
)

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

// renderTable draws rows with rounded borders on a terminal and plain ASCII
// otherwise, so piped output stays greppable.
func renderTable(headers []string, rows [][]string, aligns []columnAlignment, terminal bool) string {
	columns := len(headers)
	if columns == 0 {
		return ""
	}

	tw := table.NewWriter()
	if terminal {
		tw.SetStyle(table.StyleRounded)
	} else {
		tw.SetStyle(table.StyleDefault)
	}

	header := make(table.Row, columns)
	for i := 0; i < columns; i++ {
		header[i] = headers[i]
	}
	tw.AppendHeader(header)

	for _, row := range rows {
		r := make(table.Row, columns)
		for i := 0; i < columns; i++ {
			if i < len(row) {
				r[i] = row[i]
			} else {
				r[i] = ""
			}
		}
		tw.AppendRow(r)
	}

	columnConfigs := make([]table.ColumnConfig, 0, columns)
	for i := 0; i < columns; i++ {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		columnConfigs = append(columnConfigs, table.ColumnConfig{
			Number:      i + 1,
			Align:       align,
			AlignHeader: text.AlignLeft,
		})
	}
	tw.SetColumnConfigs(columnConfigs)

	return tw.Render()
}

func renderDiagnostics(diags []cue.Diagnostic, terminal bool) string {
	if len(diags) == 0 {
		return "No diagnostics"
	}
	rows := make([][]string, 0, len(diags))
	for _, d := range diags {
		line := "-"
		if d.Line >= 0 {
			line = fmt.Sprintf("%d", d.Line+1)
		}
		score := ""
		if d.Score != 0 {
			score = fmt.Sprintf("%.2f", d.Score)
		}
		rows = append(rows, []string{line, string(d.Kind), score, d.Message})
	}
	return renderTable([]string{"Line", "Kind", "Score", "Detail"}, rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignLeft}, terminal)
}

func renderCues(cues []cue.Cue, terminal bool) string {
	rows := make([][]string, 0, len(cues))
	for _, c := range cues {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Ordinal),
			fmt.Sprintf("%.2f", c.Start()),
			fmt.Sprintf("%.2f", c.End()),
			strings.TrimSpace(c.Text),
		})
	}
	return renderTable([]string{"#", "Start", "End", "Text"}, rows,
		[]columnAlignment{alignRight, alignRight, alignRight, alignLeft}, terminal)
}
