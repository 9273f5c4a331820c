package reconcile

import (
	"fmt"
	"strings"

	"recontab/internal/domain"
)

// Column is a canonical column of an imported row.
type Column string

const (
	ColumnNIF            Column = "nif"
	ColumnName           Column = "name"
	ColumnDate           Column = "document_date"
	ColumnDirection      Column = "direction"
	ColumnIncomeCategory Column = "income_category"
)

// AmountColumn returns the column carrying a monetary field.
func AmountColumn(f Field) Column { return Column(f) }

// RawRow is one input row before coercion, keyed by canonical column.
// Line is the 1-based position in the source file; SourceID identifies the
// originating system record, when there is one.
type RawRow struct {
	Line     int
	SourceID string
	Cells    map[Column]string
}

// Get returns the trimmed cell for col.
func (r RawRow) Get(col Column) string {
	return strings.TrimSpace(r.Cells[col])
}

// NormalizeResult is the outcome of normalizing one side of a run. When
// Success is false, Records is empty and Errors explains why.
type NormalizeResult[R Record] struct {
	Success  bool     `json:"success"`
	Records  []R      `json:"records"`
	Warnings []string `json:"warnings"`
	Errors   []string `json:"errors"`
}

// Normalizer turns raw rows into records. It reads the catalog only.
type Normalizer struct {
	catalog *Catalog
}

// NewNormalizer creates a Normalizer backed by catalog.
func NewNormalizer(catalog *Catalog) *Normalizer {
	return &Normalizer{catalog: catalog}
}

// NormalizeExcel coerces reference rows into ExcelRecords.
func (n *Normalizer) NormalizeExcel(rows []RawRow, kind domain.ReconciliationType) NormalizeResult[ExcelRecord] {
	return normalize(n, rows, kind, "reference", func(row RawRow, f Fields) ExcelRecord {
		return ExcelRecord{Fields: f, Lines: []int{row.Line}}
	})
}

// NormalizeExtracted coerces system rows into ExtractedRecords.
func (n *Normalizer) NormalizeExtracted(rows []RawRow, kind domain.ReconciliationType) NormalizeResult[ExtractedRecord] {
	return normalize(n, rows, kind, "system", func(row RawRow, f Fields) ExtractedRecord {
		var ids []string
		if row.SourceID != "" {
			ids = []string{row.SourceID}
		}
		return ExtractedRecord{Fields: f, SourceIDs: ids}
	})
}

func normalize[R Record](n *Normalizer, rows []RawRow, kind domain.ReconciliationType, side string, build func(RawRow, Fields) R) NormalizeResult[R] {
	res := NormalizeResult[R]{Records: []R{}, Warnings: []string{}, Errors: []string{}}
	if len(rows) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s data has no rows", side))
		return res
	}

	for _, row := range rows {
		f, warnings, ok := n.fields(row, kind)
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("%s row %d: %s", side, row.Line, w))
		}
		if ok {
			res.Records = append(res.Records, build(row, f))
		}
	}

	if len(res.Records) == 0 {
		res.Errors = append(res.Errors, fmt.Sprintf("%s data has no valid rows: none of the %d rows has a usable NIF", side, len(rows)))
		return res
	}
	res.Success = true
	return res
}

func (n *Normalizer) fields(row RawRow, kind domain.ReconciliationType) (Fields, []string, bool) {
	var warnings []string

	nif := CoerceNIF(row.Get(ColumnNIF))
	if !nif.OK() {
		warnings = append(warnings, nif.Warning)
	}
	if nif.Value == "" {
		return Fields{}, warnings, false
	}

	f := Fields{
		NIF:  nif.Value,
		Name: row.Get(ColumnName),
	}

	date := CoerceDate(row.Get(ColumnDate))
	if !date.OK() {
		warnings = append(warnings, date.Warning)
	}
	f.DocumentDate = date.Value

	for _, field := range FieldsFor(kind) {
		amount := CoerceAmount(row.Get(AmountColumn(field)))
		if !amount.OK() {
			warnings = append(warnings, fmt.Sprintf("%s: %s", field, amount.Warning))
		}
		f.Amounts.set(field, amount.Value)
	}

	if kind.IncludesIVA() {
		f.Direction = parseDirection(row.Get(ColumnDirection))
	}
	if kind.IncludesModelo10() {
		code := strings.ToUpper(row.Get(ColumnIncomeCategory))
		if code != "" {
			if _, ok := n.catalog.Category(code); !ok {
				warnings = append(warnings, fmt.Sprintf("unknown income category %q", code))
			}
		}
		f.IncomeCategory = code
	}
	return f, warnings, true
}

// parseDirection maps empty or unrecognised values to deductible.
func parseDirection(raw string) domain.InvoiceDirection {
	switch strings.ToLower(raw) {
	case "liquidated", "liquidado", "liquidada", "l", "venda", "vendas", "sale", "sales", "output":
		return domain.DirectionLiquidated
	}
	return domain.DirectionDeductible
}
