package reconcile

import (
	"github.com/shopspring/decimal"

	"recontab/internal/domain"
)

// MatchedRecord is a classified pair. FieldMismatch is set when the pair is
// perfect on its primary amount but some sub-field is not.
type MatchedRecord struct {
	Excel     ExcelRecord     `json:"excel"`
	Extracted ExtractedRecord `json:"extracted"`
	Classification
	FieldMismatch bool `json:"field_mismatch"`
}

// NIF returns the join key of the pair.
func (m MatchedRecord) NIF() string { return m.Excel.NIF }

// DisplayName prefers the reference name.
func (m MatchedRecord) DisplayName() string {
	if m.Excel.Name != "" {
		return m.Excel.Name
	}
	return m.Extracted.Name
}

// Severity ranks a discrepancy.
type Severity string

const (
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Discrepancy is one field of a matched pair whose delta exceeds tolerance.
type Discrepancy struct {
	NIF         string          `json:"nif"`
	Name        string          `json:"name,omitempty"`
	Field       Field           `json:"field"`
	ExcelValue  decimal.Decimal `json:"excel_value"`
	SystemValue decimal.Decimal `json:"system_value"`
	Delta       decimal.Decimal `json:"delta"`
	Severity    Severity        `json:"severity"`
}

// Summary holds the counts of a run.
type Summary struct {
	TotalExpected   int  `json:"total_expected"`
	TotalExtracted  int  `json:"total_extracted"`
	Perfect         int  `json:"perfect"`
	WithinTolerance int  `json:"within_tolerance"`
	Discrepancies   int  `json:"discrepancies"`
	Missing         int  `json:"missing"`
	Extra           int  `json:"extra"`
	FieldMismatches int  `json:"field_mismatches"`
	MatchRate       int  `json:"match_rate"`
	IsZeroDelta     bool `json:"is_zero_delta"`
}

// TotalPair compares a reference-side total with a system-side total.
type TotalPair struct {
	Excel  decimal.Decimal `json:"excel"`
	System decimal.Decimal `json:"system"`
	Delta  decimal.Decimal `json:"delta"`
	Status Status          `json:"status"`
}

func newTotalPair(excel, system, tolerance decimal.Decimal) TotalPair {
	d := excel.Sub(system).Abs()
	return TotalPair{Excel: excel, System: system, Delta: d, Status: StatusFor(d, tolerance)}
}

// VATBand is the comparison of one IVA rate band.
type VATBand struct {
	Field Field           `json:"field"`
	Rate  decimal.Decimal `json:"rate"`
	TotalPair
}

// IVABreakdown rolls up the VAT side of a run.
type IVABreakdown struct {
	Region        Region    `json:"region"`
	Bands         []VATBand `json:"bands"`
	VATTotal      TotalPair `json:"vat_total"`
	DocumentTotal TotalPair `json:"document_total"`
	Deductible    TotalPair `json:"deductible"`
	Liquidated    TotalPair `json:"liquidated"`
	Balance       TotalPair `json:"balance"`
}

// NIFCount counts distinct NIFs on each side.
type NIFCount struct {
	Excel  int `json:"excel"`
	System int `json:"system"`
}

// CategoryTotals rolls up one Modelo 10 income category.
type CategoryTotals struct {
	Code        string    `json:"code"`
	Label       string    `json:"label"`
	Gross       TotalPair `json:"gross"`
	Withholding TotalPair `json:"withholding"`
}

// Modelo10Breakdown rolls up the withholding side of a run.
type Modelo10Breakdown struct {
	Gross       TotalPair        `json:"gross"`
	Withholding TotalPair        `json:"withholding"`
	UniqueNIFs  NIFCount         `json:"unique_nifs"`
	Categories  []CategoryTotals `json:"categories"`
}

// Result is the full output of a reconciliation. Slices are never nil.
type Result struct {
	Type              domain.ReconciliationType `json:"type"`
	Tolerance         decimal.Decimal           `json:"tolerance"`
	CriticalThreshold decimal.Decimal           `json:"critical_threshold"`
	Matches           []MatchedRecord           `json:"matches"`
	Missing           []ExcelRecord             `json:"missing"`
	Extra             []ExtractedRecord         `json:"extra"`
	Summary           Summary                   `json:"summary"`
	IVA               *IVABreakdown             `json:"iva_recon,omitempty"`
	Modelo10          *Modelo10Breakdown        `json:"modelo10_recon,omitempty"`
	Discrepancies     []Discrepancy             `json:"discrepancies"`
	IsZeroDelta       bool                      `json:"is_zero_delta"`
}
