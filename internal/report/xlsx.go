package report

import (
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"recontab/internal/reconcile"
)

// Workbook sheet names, in tab order.
const (
	SheetSummary       = "Summary"
	SheetMatches       = "Matches"
	SheetMissing       = "Missing"
	SheetExtra         = "Extra"
	SheetDiscrepancies = "Discrepancies"
)

type sheetWriter struct {
	f      *excelize.File
	bold   int
	money  int
	sheet  string
	rowNum int
}

func (s *sheetWriter) use(sheet string) {
	s.sheet, s.rowNum = sheet, 0
}

func (s *sheetWriter) row(cells ...any) error {
	s.rowNum++
	cell, err := excelize.CoordinatesToCellName(1, s.rowNum)
	if err != nil {
		return err
	}
	return s.f.SetSheetRow(s.sheet, cell, &cells)
}

func (s *sheetWriter) header(cells ...any) error {
	if err := s.row(cells...); err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(len(cells), s.rowNum)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.sheet, "A1", last, s.bold)
}

// moneyColumns formats columns from..to (1-based) of the current sheet.
func (s *sheetWriter) moneyColumns(from, to int) error {
	if s.rowNum < 2 || from > to {
		return nil
	}
	first, err := excelize.CoordinatesToCellName(from, 2)
	if err != nil {
		return err
	}
	last, err := excelize.CoordinatesToCellName(to, s.rowNum)
	if err != nil {
		return err
	}
	return s.f.SetCellStyle(s.sheet, first, last, s.money)
}

func money(d decimal.Decimal) float64 {
	return d.Round(2).InexactFloat64()
}

// WriteXLSX writes a workbook with one sheet per section of the result.
func WriteXLSX(w io.Writer, meta Meta, res *reconcile.Result) error {
	f := excelize.NewFile()
	defer f.Close()

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("report: xlsx style: %w", err)
	}
	moneyFmt := "#,##0.00"
	moneyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: &moneyFmt})
	if err != nil {
		return fmt.Errorf("report: xlsx style: %w", err)
	}

	if err := f.SetSheetName(f.GetSheetName(0), SheetSummary); err != nil {
		return fmt.Errorf("report: xlsx: %w", err)
	}
	for _, name := range []string{SheetMatches, SheetMissing, SheetExtra, SheetDiscrepancies} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("report: xlsx: %w", err)
		}
	}

	s := &sheetWriter{f: f, bold: bold, money: moneyStyle}
	for _, write := range []func(*sheetWriter, Meta, *reconcile.Result) error{
		xlsxSummary, xlsxMatches, xlsxMissing, xlsxExtra, xlsxDiscrepancies,
	} {
		if err := write(s, meta, res); err != nil {
			return fmt.Errorf("report: xlsx: %w", err)
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("report: xlsx write: %w", err)
	}
	return nil
}

func xlsxSummary(s *sheetWriter, meta Meta, res *reconcile.Result) error {
	s.use(SheetSummary)
	sum := res.Summary
	rows := [][]any{
		{"Type", TypeLabel(res.Type)},
		{"Client", meta.ClientName},
		{"Client NIF", meta.ClientNIF},
		{"Period start", formatDate(meta.Period.Start)},
		{"Period end", formatDate(meta.Period.End)},
		{"Tolerance", money(res.Tolerance)},
		{"Zero delta", res.IsZeroDelta},
		{"Expected (reference)", sum.TotalExpected},
		{"Extracted (system)", sum.TotalExtracted},
		{"Perfect", sum.Perfect},
		{"Within tolerance", sum.WithinTolerance},
		{"Discrepancies", sum.Discrepancies},
		{"Missing", sum.Missing},
		{"Extra", sum.Extra},
		{"Field mismatches", sum.FieldMismatches},
		{"Match rate (%)", sum.MatchRate},
	}
	if err := s.header("Item", "Value"); err != nil {
		return err
	}
	for _, r := range rows {
		if err := s.row(r...); err != nil {
			return err
		}
	}

	var pairs [][]any
	if b := res.IVA; b != nil {
		for _, band := range b.Bands {
			pairs = append(pairs, pairCells(fmt.Sprintf("%s %s%%", FieldLabel(band.Field), band.Rate), band.TotalPair))
		}
		pairs = append(pairs,
			pairCells("VAT total", b.VATTotal),
			pairCells("Document total", b.DocumentTotal),
			pairCells("Deductible VAT", b.Deductible),
			pairCells("Liquidated VAT", b.Liquidated),
			pairCells("Balance", b.Balance),
		)
	}
	if b := res.Modelo10; b != nil {
		pairs = append(pairs, pairCells("Gross income", b.Gross), pairCells("Withholding", b.Withholding))
		for _, c := range b.Categories {
			pairs = append(pairs,
				pairCells(fmt.Sprintf("%s %s gross", c.Code, c.Label), c.Gross),
				pairCells(fmt.Sprintf("%s %s withheld", c.Code, c.Label), c.Withholding),
			)
		}
	}
	if len(pairs) == 0 {
		return nil
	}
	if err := s.row(); err != nil {
		return err
	}
	if err := s.row("Totals", "Reference", "System", "Delta", "Status"); err != nil {
		return err
	}
	for _, p := range pairs {
		if err := s.row(p...); err != nil {
			return err
		}
	}
	return nil
}

func pairCells(label string, p reconcile.TotalPair) []any {
	return []any{label, money(p.Excel), money(p.System), money(p.Delta), string(p.Status)}
}

func xlsxMatches(s *sheetWriter, _ Meta, res *reconcile.Result) error {
	s.use(SheetMatches)
	fields := reconcile.FieldsFor(res.Type)
	head := []any{"NIF", "Name", "Status", "Delta", "Field mismatch"}
	for _, f := range fields {
		head = append(head, "Reference "+FieldLabel(f), "System "+FieldLabel(f))
	}
	if err := s.header(head...); err != nil {
		return err
	}
	for _, m := range res.Matches {
		cells := []any{m.NIF(), m.DisplayName(), string(m.Status), money(m.TotalDelta), m.FieldMismatch}
		for _, f := range fields {
			cells = append(cells, money(m.Excel.Get(f)), money(m.Extracted.Get(f)))
		}
		if err := s.row(cells...); err != nil {
			return err
		}
	}
	if err := s.moneyColumns(4, 4); err != nil {
		return err
	}
	return s.moneyColumns(6, len(head))
}

func unmatchedSheet(s *sheetWriter, sheet string, res *reconcile.Result, records []reconcile.Fields) error {
	s.use(sheet)
	fields := reconcile.FieldsFor(res.Type)
	head := []any{"NIF", "Name", "Date"}
	for _, f := range fields {
		head = append(head, FieldLabel(f))
	}
	if err := s.header(head...); err != nil {
		return err
	}
	for _, r := range records {
		date := ""
		if r.DocumentDate != nil {
			date = formatDate(*r.DocumentDate)
		}
		cells := []any{r.NIF, r.Name, date}
		for _, f := range fields {
			cells = append(cells, money(r.Get(f)))
		}
		if err := s.row(cells...); err != nil {
			return err
		}
	}
	return s.moneyColumns(4, len(head))
}

func xlsxMissing(s *sheetWriter, _ Meta, res *reconcile.Result) error {
	return unmatchedSheet(s, SheetMissing, res, fieldsOf(res.Missing))
}

func xlsxExtra(s *sheetWriter, _ Meta, res *reconcile.Result) error {
	return unmatchedSheet(s, SheetExtra, res, fieldsOf(res.Extra))
}

func xlsxDiscrepancies(s *sheetWriter, _ Meta, res *reconcile.Result) error {
	s.use(SheetDiscrepancies)
	if err := s.header("NIF", "Name", "Field", "Reference", "System", "Delta", "Severity"); err != nil {
		return err
	}
	for _, d := range res.Discrepancies {
		err := s.row(d.NIF, d.Name, FieldLabel(d.Field), money(d.ExcelValue), money(d.SystemValue), money(d.Delta), string(d.Severity))
		if err != nil {
			return err
		}
	}
	return s.moneyColumns(4, 6)
}
