package reconcile

import (
	"github.com/shopspring/decimal"

	"recontab/internal/domain"
)

// Status classifies a delta against the tolerance.
type Status string

const (
	StatusPerfect         Status = "perfect"
	StatusWithinTolerance Status = "within_tolerance"
	StatusDiscrepancy     Status = "discrepancy"
)

// StatusFor applies the tolerance rule: zero is perfect, anything up to and
// including tolerance is within tolerance, the rest is a discrepancy.
func StatusFor(delta, tolerance decimal.Decimal) Status {
	switch {
	case delta.IsZero():
		return StatusPerfect
	case delta.LessThanOrEqual(tolerance):
		return StatusWithinTolerance
	default:
		return StatusDiscrepancy
	}
}

// FieldDelta compares one monetary field of a matched pair.
type FieldDelta struct {
	Field  Field           `json:"field"`
	Excel  decimal.Decimal `json:"excel_value"`
	System decimal.Decimal `json:"system_value"`
	Delta  decimal.Decimal `json:"delta"`
	Status Status          `json:"status"`
}

// Classification is the verdict on a matched pair.
type Classification struct {
	Status      Status          `json:"status"`
	TotalDelta  decimal.Decimal `json:"total_delta"`
	FieldDeltas []FieldDelta    `json:"field_deltas"`
}

// Classify compares a matched pair. Status depends only on the primary
// amount: the document total for IVA and the gross amount for Modelo 10.
// For ambos the larger of the two primary deltas decides. FieldDeltas
// reports every relevant field on its own.
func Classify(excel ExcelRecord, extracted ExtractedRecord, kind domain.ReconciliationType, tolerance decimal.Decimal) Classification {
	fields := FieldsFor(kind)
	deltas := make([]FieldDelta, 0, len(fields))
	for _, f := range fields {
		e, s := excel.Get(f), extracted.Get(f)
		d := e.Sub(s).Abs()
		deltas = append(deltas, FieldDelta{
			Field:  f,
			Excel:  e,
			System: s,
			Delta:  d,
			Status: StatusFor(d, tolerance),
		})
	}

	var total decimal.Decimal
	switch kind {
	case domain.ReconciliationIVA:
		total = ivaPrimaryDelta(excel.Amounts, extracted.Amounts)
	case domain.ReconciliationModelo10:
		total = excel.GrossAmount.Sub(extracted.GrossAmount).Abs()
	default:
		total = decimal.Max(
			ivaPrimaryDelta(excel.Amounts, extracted.Amounts),
			excel.GrossAmount.Sub(extracted.GrossAmount).Abs(),
		)
	}

	return Classification{
		Status:      StatusFor(total, tolerance),
		TotalDelta:  total,
		FieldDeltas: deltas,
	}
}

// ivaPrimaryDelta compares document totals, or the summed VAT bands when
// neither side carries a total.
func ivaPrimaryDelta(e, s Amounts) decimal.Decimal {
	if e.TotalAmount.IsZero() && s.TotalAmount.IsZero() {
		return e.VAT().Sub(s.VAT()).Abs()
	}
	return e.TotalAmount.Sub(s.TotalAmount).Abs()
}
