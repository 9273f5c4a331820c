package reconcile

import (
	"time"

	"github.com/shopspring/decimal"

	"recontab/internal/domain"
)

// Field names a monetary field compared by the engine.
type Field string

const (
	FieldTotalAmount       Field = "total_amount"
	FieldVATStandard       Field = "vat_standard"
	FieldVATIntermediate   Field = "vat_intermediate"
	FieldVATReduced        Field = "vat_reduced"
	FieldGrossAmount       Field = "gross_amount"
	FieldWithholdingAmount Field = "withholding_amount"
)

var (
	ivaFields      = []Field{FieldTotalAmount, FieldVATStandard, FieldVATIntermediate, FieldVATReduced}
	modelo10Fields = []Field{FieldGrossAmount, FieldWithholdingAmount}
	allFields      = append(append([]Field{}, ivaFields...), modelo10Fields...)
)

// FieldsFor returns the monetary fields compared for a reconciliation type, in report order.
func FieldsFor(kind domain.ReconciliationType) []Field {
	switch kind {
	case domain.ReconciliationIVA:
		return ivaFields
	case domain.ReconciliationModelo10:
		return modelo10Fields
	default:
		return allFields
	}
}

func fieldIndex(f Field) int {
	for i, candidate := range allFields {
		if candidate == f {
			return i
		}
	}
	return len(allFields)
}

// Amounts holds every monetary field a record can carry. Fields that do not
// apply to a reconciliation type stay zero.
type Amounts struct {
	TotalAmount       decimal.Decimal `json:"total_amount"`
	VATStandard       decimal.Decimal `json:"vat_standard"`
	VATIntermediate   decimal.Decimal `json:"vat_intermediate"`
	VATReduced        decimal.Decimal `json:"vat_reduced"`
	GrossAmount       decimal.Decimal `json:"gross_amount"`
	WithholdingAmount decimal.Decimal `json:"withholding_amount"`
}

// Get returns the value of f.
func (a Amounts) Get(f Field) decimal.Decimal {
	switch f {
	case FieldTotalAmount:
		return a.TotalAmount
	case FieldVATStandard:
		return a.VATStandard
	case FieldVATIntermediate:
		return a.VATIntermediate
	case FieldVATReduced:
		return a.VATReduced
	case FieldGrossAmount:
		return a.GrossAmount
	case FieldWithholdingAmount:
		return a.WithholdingAmount
	}
	return decimal.Zero
}

func (a *Amounts) set(f Field, v decimal.Decimal) {
	switch f {
	case FieldTotalAmount:
		a.TotalAmount = v
	case FieldVATStandard:
		a.VATStandard = v
	case FieldVATIntermediate:
		a.VATIntermediate = v
	case FieldVATReduced:
		a.VATReduced = v
	case FieldGrossAmount:
		a.GrossAmount = v
	case FieldWithholdingAmount:
		a.WithholdingAmount = v
	}
}

// Plus returns the field-wise sum of a and b.
func (a Amounts) Plus(b Amounts) Amounts {
	return Amounts{
		TotalAmount:       a.TotalAmount.Add(b.TotalAmount),
		VATStandard:       a.VATStandard.Add(b.VATStandard),
		VATIntermediate:   a.VATIntermediate.Add(b.VATIntermediate),
		VATReduced:        a.VATReduced.Add(b.VATReduced),
		GrossAmount:       a.GrossAmount.Add(b.GrossAmount),
		WithholdingAmount: a.WithholdingAmount.Add(b.WithholdingAmount),
	}
}

// VAT returns the sum of the three VAT bands.
func (a Amounts) VAT() decimal.Decimal {
	return a.VATStandard.Add(a.VATIntermediate).Add(a.VATReduced)
}

// Fields is the shape shared by both sides of a reconciliation.
type Fields struct {
	NIF          string     `json:"nif"`
	Name         string     `json:"name,omitempty"`
	DocumentDate *time.Time `json:"document_date,omitempty"`
	Amounts
	Direction      domain.InvoiceDirection `json:"direction,omitempty"`
	IncomeCategory string                  `json:"income_category,omitempty"`
}

// merge folds o into f: amounts are summed, the earliest date wins and the
// first non-empty descriptive value is kept.
func (f Fields) merge(o Fields) Fields {
	out := f
	out.Amounts = f.Amounts.Plus(o.Amounts)
	if out.Name == "" {
		out.Name = o.Name
	}
	if o.DocumentDate != nil && (out.DocumentDate == nil || o.DocumentDate.Before(*out.DocumentDate)) {
		d := *o.DocumentDate
		out.DocumentDate = &d
	}
	if out.Direction == "" {
		out.Direction = o.Direction
	}
	if out.IncomeCategory == "" {
		out.IncomeCategory = o.IncomeCategory
	}
	return out
}

// Side identifies which input list a record came from.
type Side string

const (
	SideExcel     Side = "excel"
	SideExtracted Side = "extracted"
)

// Record is implemented by ExcelRecord and ExtractedRecord.
type Record interface {
	Common() Fields
	Side() Side
}

// ExcelRecord is a row of the user-supplied reference file.
type ExcelRecord struct {
	Fields
	Lines []int `json:"lines,omitempty"`
}

// Common returns the shared fields.
func (r ExcelRecord) Common() Fields { return r.Fields }

// Side returns SideExcel.
func (r ExcelRecord) Side() Side { return SideExcel }

func (r ExcelRecord) merged(o ExcelRecord) ExcelRecord {
	return ExcelRecord{
		Fields: r.Fields.merge(o.Fields),
		Lines:  append(append([]int{}, r.Lines...), o.Lines...),
	}
}

// ExtractedRecord is a record the system already holds.
type ExtractedRecord struct {
	Fields
	SourceIDs []string `json:"source_ids,omitempty"`
}

// Common returns the shared fields.
func (r ExtractedRecord) Common() Fields { return r.Fields }

// Side returns SideExtracted.
func (r ExtractedRecord) Side() Side { return SideExtracted }

func (r ExtractedRecord) merged(o ExtractedRecord) ExtractedRecord {
	return ExtractedRecord{
		Fields:    r.Fields.merge(o.Fields),
		SourceIDs: append(append([]string{}, r.SourceIDs...), o.SourceIDs...),
	}
}
