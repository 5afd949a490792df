package export

import "strings"

// buildCSV renders the dataset as CSV text: a header line followed by one
// line per row, LF-joined, with no trailing newline. Cells containing a
// comma, quote, or line break are wrapped in double quotes with inner quotes
// doubled. Group labels are dropped; grouping only affects row order.
func buildCSV(ds Dataset) []byte {
	var b strings.Builder

	writeCSVRow(&b, ds.Headers)
	for _, g := range ds.Groups {
		for _, row := range g.Rows {
			b.WriteByte('\n')
			writeCSVRow(&b, row)
		}
	}

	return []byte(b.String())
}

func writeCSVRow(b *strings.Builder, row []string) {
	for i, cell := range row {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(escapeCSVCell(cell))
	}
}

// escapeCSVCell applies standard CSV quoting.
func escapeCSVCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n\r") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
