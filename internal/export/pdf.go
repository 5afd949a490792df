package export

import (
	"bytes"
	"fmt"

	"github.com/go-pdf/fpdf"
)

// buildPDF renders the dataset as a printable PDF report: title, generation
// timestamp, record count, and a table with a shaded header row repeated on
// every page. Non-empty group labels render as bold section rows.
func buildPDF(ds Dataset) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetAutoPageBreak(true, 15)

	colWidth := tableColWidth(pdf, len(ds.Headers))

	header := func() {
		pdf.SetFont("Helvetica", "B", 8)
		pdf.SetFillColor(221, 235, 247)
		for _, h := range ds.Headers {
			pdf.CellFormat(colWidth, 7, h, "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.SetHeaderFunc(func() {
		if pdf.PageNo() > 1 {
			header()
		}
	})

	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 14)
	pdf.CellFormat(0, 9, ds.Title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 5, fmt.Sprintf("Generated %s", now().Format("2006-01-02 15:04")), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 5, fmt.Sprintf("%d records", ds.RowCount()), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	header()

	for _, g := range ds.Groups {
		if g.Label != "" {
			pdf.SetFont("Helvetica", "B", 8)
			pdf.CellFormat(colWidth*float64(len(ds.Headers)), 6, g.Label, "1", 1, "L", false, 0, "")
		}
		pdf.SetFont("Helvetica", "", 8)
		for _, row := range g.Rows {
			for i := 0; i < len(ds.Headers); i++ {
				cell := ""
				if i < len(row) {
					cell = row[i]
				}
				pdf.CellFormat(colWidth, 6, cell, "1", 0, "L", false, 0, "")
			}
			pdf.Ln(-1)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// tableColWidth splits the printable width evenly across the columns.
func tableColWidth(pdf *fpdf.Fpdf, columns int) float64 {
	if columns == 0 {
		return 0
	}
	pageWidth, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	return (pageWidth - left - right) / float64(columns)
}
