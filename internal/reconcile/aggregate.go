package reconcile

import (
	"sort"

	"github.com/shopspring/decimal"

	"recontab/internal/domain"
)

// Thresholds are the two limits a run classifies against.
type Thresholds struct {
	Tolerance         decimal.Decimal
	CriticalThreshold decimal.Decimal
}

// Aggregate assembles the result of a run from classified matches and the
// unmatched records of both sides.
func Aggregate(
	kind domain.ReconciliationType,
	matches []MatchedRecord,
	missing []ExcelRecord,
	extra []ExtractedRecord,
	th Thresholds,
	catalog *Catalog,
) *Result {
	if matches == nil {
		matches = []MatchedRecord{}
	}
	if missing == nil {
		missing = []ExcelRecord{}
	}
	if extra == nil {
		extra = []ExtractedRecord{}
	}

	res := &Result{
		Type:              kind,
		Tolerance:         th.Tolerance,
		CriticalThreshold: th.CriticalThreshold,
		Matches:           matches,
		Missing:           missing,
		Extra:             extra,
		Summary:           Summarize(matches, len(missing), len(extra)),
		Discrepancies:     Discrepancies(kind, matches, th),
	}
	res.IsZeroDelta = res.Summary.IsZeroDelta

	excelSide, systemSide := sides(matches, missing, extra)
	if kind.IncludesIVA() {
		res.IVA = ivaBreakdown(excelSide, systemSide, th.Tolerance, catalog)
	}
	if kind.IncludesModelo10() {
		res.Modelo10 = modelo10Breakdown(excelSide, systemSide, th.Tolerance, catalog)
	}
	return res
}

// Summarize counts statuses and derives the match rate, which is relative
// to the reference set. An empty reference set counts as fully matched.
func Summarize(matches []MatchedRecord, missing, extra int) Summary {
	s := Summary{
		TotalExpected:  len(matches) + missing,
		TotalExtracted: len(matches) + extra,
		Missing:        missing,
		Extra:          extra,
	}
	for _, m := range matches {
		switch m.Status {
		case StatusPerfect:
			s.Perfect++
		case StatusWithinTolerance:
			s.WithinTolerance++
		default:
			s.Discrepancies++
		}
		if m.FieldMismatch {
			s.FieldMismatches++
		}
	}

	s.MatchRate = 100
	if s.TotalExpected > 0 {
		s.MatchRate = int(decimal.NewFromInt(int64(100 * (s.Perfect + s.WithinTolerance))).
			Div(decimal.NewFromInt(int64(s.TotalExpected))).
			Round(0).
			IntPart())
	}
	s.IsZeroDelta = missing == 0 && extra == 0 && s.Perfect == len(matches)
	return s
}

// Discrepancies lists, for every pair classified as a discrepancy, each
// relevant field whose delta exceeds tolerance. Should no single field
// exceed it (VAT bands drifting together), the field with the largest
// delta is reported. The list is sorted by delta, largest first.
func Discrepancies(kind domain.ReconciliationType, matches []MatchedRecord, th Thresholds) []Discrepancy {
	out := []Discrepancy{}
	for _, m := range matches {
		if m.Status != StatusDiscrepancy {
			continue
		}
		var worst *FieldDelta
		found := false
		for i := range m.FieldDeltas {
			fd := m.FieldDeltas[i]
			if worst == nil || fd.Delta.GreaterThan(worst.Delta) {
				worst = &m.FieldDeltas[i]
			}
			if fd.Delta.GreaterThan(th.Tolerance) {
				out = append(out, newDiscrepancy(m, fd, th))
				found = true
			}
		}
		if !found && worst != nil {
			out = append(out, newDiscrepancy(m, *worst, th))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Delta.Cmp(out[j].Delta); c != 0 {
			return c > 0
		}
		if out[i].NIF != out[j].NIF {
			return out[i].NIF < out[j].NIF
		}
		return fieldIndex(out[i].Field) < fieldIndex(out[j].Field)
	})
	return out
}

func newDiscrepancy(m MatchedRecord, fd FieldDelta, th Thresholds) Discrepancy {
	sev := SeverityError
	if fd.Delta.GreaterThan(th.CriticalThreshold) {
		sev = SeverityCritical
	}
	return Discrepancy{
		NIF:         m.NIF(),
		Name:        m.DisplayName(),
		Field:       fd.Field,
		ExcelValue:  fd.Excel,
		SystemValue: fd.System,
		Delta:       fd.Delta,
		Severity:    sev,
	}
}

// sides flattens the result back into the two record sets: the reference
// side is matched plus missing, the system side matched plus extra.
func sides(matches []MatchedRecord, missing []ExcelRecord, extra []ExtractedRecord) (excel, system []Fields) {
	excel = make([]Fields, 0, len(matches)+len(missing))
	system = make([]Fields, 0, len(matches)+len(extra))
	for _, m := range matches {
		excel = append(excel, m.Excel.Fields)
		system = append(system, m.Extracted.Fields)
	}
	for _, r := range missing {
		excel = append(excel, r.Fields)
	}
	for _, r := range extra {
		system = append(system, r.Fields)
	}
	return excel, system
}

func sumFields(records []Fields, keep func(Fields) bool) Amounts {
	var total Amounts
	for _, f := range records {
		if keep == nil || keep(f) {
			total = total.Plus(f.Amounts)
		}
	}
	return total
}

func ivaBreakdown(excel, system []Fields, tolerance decimal.Decimal, catalog *Catalog) *IVABreakdown {
	e, s := sumFields(excel, nil), sumFields(system, nil)

	bands := make([]VATBand, 0, 3)
	for _, f := range []Field{FieldVATStandard, FieldVATIntermediate, FieldVATReduced} {
		rate, _ := catalog.RateFor(f)
		bands = append(bands, VATBand{Field: f, Rate: rate, TotalPair: newTotalPair(e.Get(f), s.Get(f), tolerance)})
	}

	isDeductible := func(f Fields) bool { return f.Direction != domain.DirectionLiquidated }
	isLiquidated := func(f Fields) bool { return f.Direction == domain.DirectionLiquidated }
	eDed, sDed := sumFields(excel, isDeductible).VAT(), sumFields(system, isDeductible).VAT()
	eLiq, sLiq := sumFields(excel, isLiquidated).VAT(), sumFields(system, isLiquidated).VAT()

	return &IVABreakdown{
		Region:        catalog.Region(),
		Bands:         bands,
		VATTotal:      newTotalPair(e.VAT(), s.VAT(), tolerance),
		DocumentTotal: newTotalPair(e.TotalAmount, s.TotalAmount, tolerance),
		Deductible:    newTotalPair(eDed, sDed, tolerance),
		Liquidated:    newTotalPair(eLiq, sLiq, tolerance),
		Balance:       newTotalPair(eLiq.Sub(eDed), sLiq.Sub(sDed), tolerance),
	}
}

func modelo10Breakdown(excel, system []Fields, tolerance decimal.Decimal, catalog *Catalog) *Modelo10Breakdown {
	e, s := sumFields(excel, nil), sumFields(system, nil)
	out := &Modelo10Breakdown{
		Gross:       newTotalPair(e.GrossAmount, s.GrossAmount, tolerance),
		Withholding: newTotalPair(e.WithholdingAmount, s.WithholdingAmount, tolerance),
		UniqueNIFs:  NIFCount{Excel: countNIFs(excel), System: countNIFs(system)},
		Categories:  []CategoryTotals{},
	}

	seen := map[string]bool{}
	for _, f := range excel {
		seen[f.IncomeCategory] = true
	}
	for _, f := range system {
		seen[f.IncomeCategory] = true
	}

	categoryTotals := func(code, label string) CategoryTotals {
		inCategory := func(f Fields) bool { return f.IncomeCategory == code }
		ce, cs := sumFields(excel, inCategory), sumFields(system, inCategory)
		return CategoryTotals{
			Code:        code,
			Label:       label,
			Gross:       newTotalPair(ce.GrossAmount, cs.GrossAmount, tolerance),
			Withholding: newTotalPair(ce.WithholdingAmount, cs.WithholdingAmount, tolerance),
		}
	}

	for _, ic := range catalog.Categories() {
		if seen[ic.Code] {
			out.Categories = append(out.Categories, categoryTotals(ic.Code, ic.Label))
			delete(seen, ic.Code)
		}
	}
	// codes outside the catalog, blank first
	var unknown []string
	for code := range seen {
		unknown = append(unknown, code)
	}
	sort.Strings(unknown)
	for _, code := range unknown {
		label := "Unclassified"
		if code != "" {
			label = "Unknown category"
		}
		out.Categories = append(out.Categories, categoryTotals(code, label))
	}
	return out
}

func countNIFs(records []Fields) int {
	nifs := make(map[string]struct{}, len(records))
	for _, f := range records {
		nifs[f.NIF] = struct{}{}
	}
	return len(nifs)
}
