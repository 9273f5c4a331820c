package reconcile_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal, msgAndArgs ...interface{}) {
	t.Helper()
	assert.Truef(t, dec(want).Equal(got), "want %s, got %s %v", want, got.String(), msgAndArgs)
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func ivaExcel(nif, total string) reconcile.ExcelRecord {
	return reconcile.ExcelRecord{Fields: reconcile.Fields{
		NIF:       nif,
		Amounts:   reconcile.Amounts{TotalAmount: dec(total)},
		Direction: domain.DirectionDeductible,
	}}
}

func ivaExtracted(nif, total string) reconcile.ExtractedRecord {
	return reconcile.ExtractedRecord{Fields: reconcile.Fields{
		NIF:       nif,
		Amounts:   reconcile.Amounts{TotalAmount: dec(total)},
		Direction: domain.DirectionDeductible,
	}}
}

func grossExcel(nif, gross, withheld string) reconcile.ExcelRecord {
	return reconcile.ExcelRecord{Fields: reconcile.Fields{
		NIF:     nif,
		Amounts: reconcile.Amounts{GrossAmount: dec(gross), WithholdingAmount: dec(withheld)},
	}}
}

func grossExtracted(nif, gross, withheld string) reconcile.ExtractedRecord {
	return reconcile.ExtractedRecord{Fields: reconcile.Fields{
		NIF:     nif,
		Amounts: reconcile.Amounts{GrossAmount: dec(gross), WithholdingAmount: dec(withheld)},
	}}
}

func newEngine(t *testing.T) *reconcile.Engine {
	t.Helper()
	e, err := reconcile.NewEngine(reconcile.DefaultOptions())
	require.NoError(t, err)
	return e
}

func run(t *testing.T, kind domain.ReconciliationType, excel []reconcile.ExcelRecord, extracted []reconcile.ExtractedRecord) *reconcile.Result {
	t.Helper()
	res, err := newEngine(t).Reconcile(kind, excel, extracted)
	require.NoError(t, err)
	return res
}
