// Package export turns tabular fleet data into downloadable artifacts.
//
// Three formats sit behind one interface: CSV text, real .xlsx workbooks
// (excelize), and real PDF documents (fpdf). Whatever the format, the
// contract is the same: identical headers, identical row order, blank cells
// for missing values, and filenames of the form {dataset}-{YYYY-MM-DD}.{ext}.
package export

import (
	"errors"
	"fmt"
	"time"
)

// Format selects the output encoding for an export.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "excel"
	FormatPDF   Format = "pdf"
)

// ErrUnsupportedFormat is returned when a format outside csv/excel/pdf is
// requested.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// ErrUnknownDataset is returned when an export is requested for a dataset
// name that does not exist.
var ErrUnknownDataset = errors.New("unknown export dataset")

// ErrUnknownGrouping is returned for a group_by value outside the known set.
var ErrUnknownGrouping = errors.New("unknown group_by")

// now is stubbed in tests that pin the filename date stamp.
var now = time.Now

// Ext returns the file extension for the format, without the dot.
func (f Format) Ext() string {
	switch f {
	case FormatCSV:
		return "csv"
	case FormatExcel:
		return "xlsx"
	case FormatPDF:
		return "pdf"
	}
	return ""
}

// ContentType returns the MIME type served with the artifact.
func (f Format) ContentType() string {
	switch f {
	case FormatCSV:
		return "text/csv"
	case FormatExcel:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatPDF:
		return "application/pdf"
	}
	return "application/octet-stream"
}

// Valid reports whether the format is one of csv, excel, or pdf.
func (f Format) Valid() bool {
	switch f {
	case FormatCSV, FormatExcel, FormatPDF:
		return true
	}
	return false
}

// RowGroup is a run of rows sharing one group label. Ungrouped datasets hold
// a single group with an empty label; the label only renders in formats that
// support section rows (xlsx, pdf).
type RowGroup struct {
	Label string
	Rows  [][]string
}

// Dataset is a flat table ready for building: an ordered header row plus row
// groups. Name is the filename stem, Title the human heading used by the
// xlsx and pdf builders.
type Dataset struct {
	Name    string
	Title   string
	Headers []string
	Groups  []RowGroup
}

// NewDataset wraps rows in a single unlabeled group.
func NewDataset(name, title string, headers []string, rows [][]string) Dataset {
	return Dataset{
		Name:    name,
		Title:   title,
		Headers: headers,
		Groups:  []RowGroup{{Rows: rows}},
	}
}

// RowCount returns the number of data rows across all groups.
func (d Dataset) RowCount() int {
	n := 0
	for _, g := range d.Groups {
		n += len(g.Rows)
	}
	return n
}

// Artifact is a finished export ready for download.
type Artifact struct {
	Filename    string
	ContentType string
	Content     []byte
}

// Build renders the dataset in the requested format.
func Build(ds Dataset, format Format) (*Artifact, error) {
	var (
		content []byte
		err     error
	)
	switch format {
	case FormatCSV:
		content = buildCSV(ds)
	case FormatExcel:
		content, err = buildExcel(ds)
	case FormatPDF:
		content, err = buildPDF(ds)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
	}
	if err != nil {
		return nil, fmt.Errorf("build %s export: %w", format, err)
	}

	return &Artifact{
		Filename:    fmt.Sprintf("%s-%s.%s", ds.Name, now().Format("2006-01-02"), format.Ext()),
		ContentType: format.ContentType(),
		Content:     content,
	}, nil
}
