// Package importer reads reference and system files into raw rows the
// reconciliation normalizer understands.
package importer

import (
	"fmt"
	"path/filepath"
	"strings"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

// Result is the outcome of reading one file. A non-empty Errors means the
// file could not be used and Rows is empty.
type Result struct {
	Format    domain.FileType             `json:"format"`
	HeaderRow int                         `json:"header_row,omitempty"`
	Columns   map[reconcile.Column]string `json:"columns,omitempty"`
	Rows      []reconcile.RawRow          `json:"-"`
	Warnings  []string                    `json:"warnings"`
	Errors    []string                    `json:"errors"`
}

// Success reports whether the file produced usable rows.
func (r *Result) Success() bool { return len(r.Errors) == 0 }

func (r *Result) fail(format string, args ...any) *Result {
	r.Rows = []reconcile.RawRow{}
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
	return r
}

// Importer reads spreadsheets and SAF-T files. It is safe for concurrent use.
type Importer struct {
	catalog *reconcile.Catalog
}

// New creates an Importer. The catalog maps SAF-T tax percentages to VAT bands.
func New(catalog *reconcile.Catalog) *Importer {
	return &Importer{catalog: catalog}
}

// FileTypeOf maps a filename to a supported file type.
func FileTypeOf(filename string) (domain.FileType, error) {
	ext := strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
	ft, ok := domain.AllowedExtensions[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", domain.ErrUnsupportedFileType, filepath.Ext(filename))
	}
	return ft, nil
}

// Import reads data according to the extension of filename. Only an
// unsupported extension is returned as an error; every other problem with
// the file is reported in Result.Errors.
func (im *Importer) Import(data []byte, filename string, kind domain.ReconciliationType) (*Result, error) {
	ft, err := FileTypeOf(filename)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Format:   ft,
		Rows:     []reconcile.RawRow{},
		Warnings: []string{},
		Errors:   []string{},
	}
	if len(data) == 0 {
		return res.fail("%s is empty", filepath.Base(filename)), nil
	}

	if ft == domain.FileTypeXML {
		return im.importSAFT(res, data, kind), nil
	}

	var grid [][]string
	switch ft {
	case domain.FileTypeXLSX:
		grid, err = readXLSX(data)
	case domain.FileTypeXLS:
		grid, err = readXLS(data)
	default:
		grid, err = readCSV(data)
	}
	if err != nil {
		return res.fail("cannot read %s: %v", filepath.Base(filename), err), nil
	}
	return fromGrid(res, grid, kind), nil
}

func fromGrid(res *Result, grid [][]string, kind domain.ReconciliationType) *Result {
	if isBlankGrid(grid) {
		return res.fail("file has no data")
	}

	hdr, ok := detectHeader(grid, kind)
	if !ok {
		return res.fail("no header row found in the first %d rows: a NIF column is required", headerScanRows)
	}
	res.HeaderRow = hdr.row + 1
	res.Columns = make(map[reconcile.Column]string, len(hdr.cols))
	for col, idx := range hdr.cols {
		res.Columns[col] = strings.TrimSpace(grid[hdr.row][idx])
	}
	for _, fz := range hdr.fuzzy {
		res.Warnings = append(res.Warnings, fmt.Sprintf("header %q read as %s", fz.header, fz.column))
	}
	for _, f := range reconcile.FieldsFor(kind) {
		if _, ok := hdr.cols[reconcile.AmountColumn(f)]; !ok {
			res.Warnings = append(res.Warnings, fmt.Sprintf("no column found for %s: values default to 0", f))
		}
	}

	for i := hdr.row + 1; i < len(grid); i++ {
		line := grid[i]
		if isBlankRow(line) {
			continue
		}
		row := reconcile.RawRow{Line: i + 1, Cells: make(map[reconcile.Column]string, len(hdr.cols))}
		for col, idx := range hdr.cols {
			if idx < len(line) {
				row.Cells[col] = line[idx]
			}
		}
		if hdr.sourceID >= 0 && hdr.sourceID < len(line) {
			row.SourceID = strings.TrimSpace(line[hdr.sourceID])
		}
		res.Rows = append(res.Rows, row)
	}
	if len(res.Rows) == 0 {
		return res.fail("file has a header but no data rows")
	}
	return res
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func isBlankGrid(grid [][]string) bool {
	for _, row := range grid {
		if !isBlankRow(row) {
			return false
		}
	}
	return true
}
