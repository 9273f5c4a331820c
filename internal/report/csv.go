package report

import (
	"encoding/csv"
	"io"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

// BOM is written first so Excel on Windows opens the file as UTF-8.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// CSV statuses for unmatched rows, next to the reconcile match statuses.
const (
	statusMissing = "missing"
	statusExtra   = "extra"
)

// CSVWriter writes one row per NIF of a result.
type CSVWriter struct {
	csv    *csv.Writer
	fields []reconcile.Field
}

// NewCSVWriter creates a CSVWriter for the fields of kind.
func NewCSVWriter(w io.Writer, kind domain.ReconciliationType) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w), fields: reconcile.FieldsFor(kind)}
}

// Columns returns the header row: NIF, name, status, delta, then a
// reference and a system column per field.
func (w *CSVWriter) Columns() []string {
	cols := []string{"NIF", "Name", "Status", "Delta"}
	for _, f := range w.fields {
		cols = append(cols, "Reference "+FieldLabel(f), "System "+FieldLabel(f))
	}
	return cols
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(w.Columns())
}

// WriteResult writes matches, then missing, then extra records.
func (w *CSVWriter) WriteResult(res *reconcile.Result) error {
	for _, m := range res.Matches {
		row := w.row(m.NIF(), m.DisplayName(), string(m.Status), formatMoney(m.TotalDelta))
		row = w.amounts(row, &m.Excel.Fields, &m.Extracted.Fields)
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	for _, r := range res.Missing {
		row := w.amounts(w.row(r.NIF, r.Name, statusMissing, ""), &r.Fields, nil)
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	for _, r := range res.Extra {
		row := w.amounts(w.row(r.NIF, r.Name, statusExtra, ""), nil, &r.Fields)
		if err := w.csv.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func (w *CSVWriter) row(nif, name, status, delta string) []string {
	row := make([]string, 4, 4+2*len(w.fields))
	row[0], row[1], row[2], row[3] = nif, name, status, delta
	return row
}

// amounts appends the field pairs; a nil side leaves its cells empty.
func (w *CSVWriter) amounts(row []string, excel, system *reconcile.Fields) []string {
	for _, f := range w.fields {
		var e, s string
		if excel != nil {
			e = formatMoney(excel.Get(f))
		}
		if system != nil {
			s = formatMoney(system.Get(f))
		}
		row = append(row, e, s)
	}
	return row
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// WriteCSV writes the BOM, the header and every row of res.
func WriteCSV(out io.Writer, res *reconcile.Result) error {
	if _, err := out.Write(BOM); err != nil {
		return err
	}
	w := NewCSVWriter(out, res.Type)
	if err := w.WriteHeader(); err != nil {
		return err
	}
	if err := w.WriteResult(res); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}
