package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// buildExcel renders the dataset as a real .xlsx workbook with a single
// worksheet: a bold header row, then one row per record in dataset order.
// Non-empty group labels render as a merged section row ahead of their rows.
func buildExcel(ds Dataset) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	if ds.Title != "" {
		if err := f.SetSheetName(sheet, ds.Title); err != nil {
			return nil, fmt.Errorf("rename sheet: %w", err)
		}
	}
	name := f.GetSheetName(0)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"DDEBF7"}},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}
	groupStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return nil, fmt.Errorf("group style: %w", err)
	}

	rowNum := 1
	if err := setStringRow(f, name, rowNum, ds.Headers); err != nil {
		return nil, err
	}
	if len(ds.Headers) > 0 {
		start, _ := excelize.CoordinatesToCellName(1, rowNum)
		end, _ := excelize.CoordinatesToCellName(len(ds.Headers), rowNum)
		if err := f.SetCellStyle(name, start, end, headerStyle); err != nil {
			return nil, fmt.Errorf("apply header style: %w", err)
		}
	}

	for _, g := range ds.Groups {
		if g.Label != "" {
			rowNum++
			cell, _ := excelize.CoordinatesToCellName(1, rowNum)
			if err := f.SetCellStr(name, cell, g.Label); err != nil {
				return nil, fmt.Errorf("group label: %w", err)
			}
			if err := f.SetCellStyle(name, cell, cell, groupStyle); err != nil {
				return nil, fmt.Errorf("apply group style: %w", err)
			}
		}
		for _, row := range g.Rows {
			rowNum++
			if err := setStringRow(f, name, rowNum, row); err != nil {
				return nil, err
			}
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

// setStringRow writes cells as strings so values survive unmodified, the
// same blank-for-missing contract the CSV output follows.
func setStringRow(f *excelize.File, sheet string, rowNum int, cells []string) error {
	for i, cell := range cells {
		ref, err := excelize.CoordinatesToCellName(i+1, rowNum)
		if err != nil {
			return fmt.Errorf("cell reference: %w", err)
		}
		if err := f.SetCellStr(sheet, ref, cell); err != nil {
			return fmt.Errorf("set cell %s: %w", ref, err)
		}
	}
	return nil
}
