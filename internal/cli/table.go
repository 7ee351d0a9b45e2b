package cli

import (
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

// renderTable draws a rounded table. Columns listed in rightAligned hold
// numbers and are right-aligned; headers always align left.
func renderTable(headers []string, rows [][]string, rightAligned ...string) string {
	if len(headers) == 0 {
		return ""
	}
	right := make(map[string]bool, len(rightAligned))
	for _, h := range rightAligned {
		right[h] = true
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(toRow(headers, len(headers)))
	for _, row := range rows {
		tw.AppendRow(toRow(row, len(headers)))
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i, h := range headers {
		cc := table.ColumnConfig{Number: i + 1, AlignHeader: text.AlignLeft}
		if right[h] {
			cc.Align = text.AlignRight
		}
		configs = append(configs, cc)
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// toRow pads or cuts cells to n columns.
func toRow(cells []string, n int) table.Row {
	r := make(table.Row, n)
	for i := range r {
		r[i] = ""
		if i < len(cells) {
			r[i] = cells[i]
		}
	}
	return r
}
