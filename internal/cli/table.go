package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
)

const tablePadding = 2

// table lays out list output in aligned columns. Every row has as many
// cells as there are headers, and a cell never spans lines.
type table struct {
	headers []string
	rows    [][]string
}

func newTable(headers ...string) *table {
	return &table{headers: headers}
}

// addRow pads short rows with empty cells and drops cells past the last
// header.
func (t *table) addRow(cells ...string) {
	width := len(t.headers)
	if width == 0 {
		width = len(cells)
	}
	row := make([]string, width)
	for i := 0; i < width && i < len(cells); i++ {
		row[i] = flattenCell(cells[i])
	}
	t.rows = append(t.rows, row)
}

func (t *table) render(out io.Writer) error {
	writer := tabwriter.NewWriter(out, 0, 0, tablePadding, ' ', tabwriter.StripEscape)
	if len(t.headers) > 0 {
		fmt.Fprintln(writer, strings.Join(t.headers, "\t"))
	}
	for _, row := range t.rows {
		fmt.Fprintln(writer, strings.Join(row, "\t"))
	}
	return writer.Flush()
}

func writeTable(out io.Writer, headers []string, rows [][]string) error {
	t := newTable(headers...)
	for _, row := range rows {
		t.addRow(row...)
	}
	return t.render(out)
}

var cellReplacer = strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ", "\t", " ")

// flattenCell keeps say lines and event payloads on a single table line.
func flattenCell(s string) string {
	return cellReplacer.Replace(s)
}

func formatYesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}

func truncateText(s string, limit int) string {
	runes := []rune(s)
	if limit <= 3 || len(runes) <= limit {
		return s
	}
	return string(runes[:limit-3]) + "..."
}
