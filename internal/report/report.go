// Package report renders reconciliation results as a plain-text audit
// report, CSV or an XLSX workbook.
package report

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

// DefaultPreviewLimit caps each list in the text report.
const DefaultPreviewLimit = 20

// Meta describes the run a result belongs to.
type Meta struct {
	RunID       string
	ClientName  string
	ClientNIF   string
	Period      domain.Period
	GeneratedAt time.Time
	Warnings    []string
}

// Options tunes the text report.
type Options struct {
	PreviewLimit int
}

func (o Options) limit() int {
	if o.PreviewLimit <= 0 {
		return DefaultPreviewLimit
	}
	return o.PreviewLimit
}

// Preview returns at most n items and the number left out.
func Preview[T any](items []T, n int) ([]T, int) {
	if n < 0 || len(items) <= n {
		return items, 0
	}
	return items[:n], len(items) - n
}

// TypeLabel is the human name of a reconciliation type.
func TypeLabel(kind domain.ReconciliationType) string {
	switch kind {
	case domain.ReconciliationIVA:
		return "IVA"
	case domain.ReconciliationModelo10:
		return "Modelo 10"
	case domain.ReconciliationAmbos:
		return "IVA + Modelo 10"
	}
	return string(kind)
}

var fieldLabels = map[reconcile.Field]string{
	reconcile.FieldTotalAmount:       "Total",
	reconcile.FieldVATStandard:       "VAT standard",
	reconcile.FieldVATIntermediate:   "VAT intermediate",
	reconcile.FieldVATReduced:        "VAT reduced",
	reconcile.FieldGrossAmount:       "Gross income",
	reconcile.FieldWithholdingAmount: "Withholding",
}

// FieldLabel is the column title of a monetary field.
func FieldLabel(f reconcile.Field) string {
	if l, ok := fieldLabels[f]; ok {
		return l
	}
	return string(f)
}

func formatMoney(d decimal.Decimal) string {
	return d.StringFixed(2)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// primaryAmount is the amount shown for an unmatched record.
func primaryAmount(kind domain.ReconciliationType, f reconcile.Fields) decimal.Decimal {
	if kind == domain.ReconciliationModelo10 {
		return f.GrossAmount
	}
	if f.TotalAmount.IsZero() {
		return f.VAT()
	}
	return f.TotalAmount
}

var (
	unsafeChars      = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	multiUnderscore  = regexp.MustCompile(`_{2,}`)
	maxFilenameChars = 100
)

// SanitizeFilename makes name safe for a Content-Disposition header:
// accents are dropped, other unsafe characters become underscores and the
// result is capped at 100 characters.
func SanitizeFilename(name string) string {
	if folded, _, err := transform.String(transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC), name); err == nil {
		name = folded
	}
	s := unsafeChars.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > maxFilenameChars {
		s = s[:maxFilenameChars]
	}
	return s
}

// BuildFilename returns {client}_{type}_{YYYY-MM-DD}.{format}.
func BuildFilename(clientName string, kind domain.ReconciliationType, format domain.ReportFormat, at time.Time) string {
	base := SanitizeFilename(clientName)
	if base == "" {
		base = "reconciliation"
	}
	return fmt.Sprintf("%s_%s_%s.%s", base, kind, at.Format("2006-01-02"), format)
}
