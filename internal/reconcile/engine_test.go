package reconcile_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

func TestEngine_PerfectScenario(t *testing.T) {
	res := run(t, domain.ReconciliationIVA,
		[]reconcile.ExcelRecord{ivaExcel("123456789", "100.00")},
		[]reconcile.ExtractedRecord{ivaExtracted("123456789", "100.00")},
	)

	require.Len(t, res.Matches, 1)
	assert.Equal(t, reconcile.StatusPerfect, res.Matches[0].Status)
	assert.Equal(t, 100, res.Summary.MatchRate)
	assert.True(t, res.IsZeroDelta)
	assert.True(t, res.Summary.IsZeroDelta)
	assert.Empty(t, res.Discrepancies)
	assert.NotNil(t, res.IVA)
	assert.Nil(t, res.Modelo10)
}

func TestEngine_DiscrepancyScenario(t *testing.T) {
	res := run(t, domain.ReconciliationModelo10,
		[]reconcile.ExcelRecord{grossExcel("123456789", "1000.00", "0")},
		[]reconcile.ExtractedRecord{grossExtracted("123456789", "998.50", "0")},
	)

	require.Len(t, res.Matches, 1)
	m := res.Matches[0]
	assert.Equal(t, reconcile.StatusDiscrepancy, m.Status)
	assertDecimal(t, "1.50", m.TotalDelta)

	require.Len(t, res.Discrepancies, 1)
	d := res.Discrepancies[0]
	assert.Equal(t, "123456789", d.NIF)
	assert.Equal(t, reconcile.FieldGrossAmount, d.Field)
	assertDecimal(t, "1.50", d.Delta)
	assertDecimal(t, "1000", d.ExcelValue)
	assertDecimal(t, "998.5", d.SystemValue)
	assert.Equal(t, reconcile.SeverityCritical, d.Severity)
	assert.False(t, res.IsZeroDelta)
	assert.Equal(t, 0, res.Summary.MatchRate)
	assert.Nil(t, res.IVA)
	assert.NotNil(t, res.Modelo10)
}

func TestEngine_MissingAndExtraScenario(t *testing.T) {
	res := run(t, domain.ReconciliationIVA,
		[]reconcile.ExcelRecord{ivaExcel("111111111", "10")},
		[]reconcile.ExtractedRecord{ivaExtracted("222222222", "10")},
	)

	assert.Empty(t, res.Matches)
	require.Len(t, res.Missing, 1)
	assert.Equal(t, "111111111", res.Missing[0].NIF)
	require.Len(t, res.Extra, 1)
	assert.Equal(t, "222222222", res.Extra[0].NIF)
	assert.Equal(t, 0, res.Summary.MatchRate)
	assert.False(t, res.IsZeroDelta)
}

func TestEngine_EmptyReferenceSetIsFullyMatched(t *testing.T) {
	res := run(t, domain.ReconciliationIVA, nil, nil)

	assert.Equal(t, 0, res.Summary.TotalExpected)
	assert.Equal(t, 100, res.Summary.MatchRate)
	assert.True(t, res.IsZeroDelta)
	assert.NotNil(t, res.Matches)
	assert.NotNil(t, res.Missing)
	assert.NotNil(t, res.Extra)
	assert.NotNil(t, res.Discrepancies)

	onlyExtra := run(t, domain.ReconciliationIVA, nil, []reconcile.ExtractedRecord{ivaExtracted("123456789", "5")})
	assert.Equal(t, 100, onlyExtra.Summary.MatchRate)
	assert.False(t, onlyExtra.IsZeroDelta)
}

func TestEngine_ToleranceBoundary(t *testing.T) {
	res := run(t, domain.ReconciliationIVA,
		[]reconcile.ExcelRecord{ivaExcel("123456789", "50.01"), ivaExcel("501964843", "50.02")},
		[]reconcile.ExtractedRecord{ivaExtracted("123456789", "50.00"), ivaExtracted("501964843", "50.00")},
	)

	require.Len(t, res.Matches, 2)
	assert.Equal(t, reconcile.StatusWithinTolerance, res.Matches[0].Status)
	assert.Equal(t, reconcile.StatusDiscrepancy, res.Matches[1].Status)
	assert.Equal(t, 1, res.Summary.WithinTolerance)
	assert.Equal(t, 1, res.Summary.Discrepancies)
	assert.Equal(t, 50, res.Summary.MatchRate)
	assert.False(t, res.IsZeroDelta)

	require.Len(t, res.Discrepancies, 1)
	assert.Equal(t, "501964843", res.Discrepancies[0].NIF)
	assert.Equal(t, reconcile.SeverityError, res.Discrepancies[0].Severity)
}

func TestEngine_ZeroDeltaWithIdenticalSets(t *testing.T) {
	var excel []reconcile.ExcelRecord
	var extracted []reconcile.ExtractedRecord
	for i, nif := range []string{"123456789", "501964843", "500100144", "999999990"} {
		amount := fmt.Sprintf("%d.%02d", 100*(i+1), 7*i)
		e := ivaExcel(nif, amount)
		e.VATStandard = dec("23.00")
		s := ivaExtracted(nif, amount)
		s.VATStandard = dec("23.00")
		excel = append(excel, e)
		extracted = append(extracted, s)
	}

	res := run(t, domain.ReconciliationIVA, excel, extracted)

	assert.True(t, res.IsZeroDelta)
	for _, m := range res.Matches {
		assert.Equal(t, reconcile.StatusPerfect, m.Status)
		assert.False(t, m.FieldMismatch)
	}
	assert.Equal(t, 4, res.Summary.Perfect)
	assert.Equal(t, 100, res.Summary.MatchRate)
}

func TestEngine_PartitionInvariant(t *testing.T) {
	excel := []reconcile.ExcelRecord{
		ivaExcel("123456789", "1"), ivaExcel("123456789", "2"),
		ivaExcel("501964843", "3"), ivaExcel("500100144", "4"),
		ivaExcel("100000002", "5"),
	}
	extracted := []reconcile.ExtractedRecord{
		ivaExtracted("123456789", "3"), ivaExtracted("999999990", "1"),
		ivaExtracted("999999990", "1"), ivaExtracted("500100144", "4.5"),
		ivaExtracted("200000004", "2"), ivaExtracted("300000006", "2"),
	}

	res := run(t, domain.ReconciliationIVA, excel, extracted)

	distinct := func(nifs []string) int {
		set := map[string]bool{}
		for _, n := range nifs {
			set[n] = true
		}
		return len(set)
	}
	var excelNIFs, extractedNIFs []string
	for _, r := range excel {
		excelNIFs = append(excelNIFs, r.NIF)
	}
	for _, r := range extracted {
		extractedNIFs = append(extractedNIFs, r.NIF)
	}

	assert.Equal(t, distinct(excelNIFs), len(res.Matches)+len(res.Missing))
	assert.Equal(t, distinct(extractedNIFs), len(res.Matches)+len(res.Extra))
	assert.Equal(t, 2, len(res.Matches))
	assert.Equal(t, 2, len(res.Missing))
	assert.Equal(t, 3, len(res.Extra))
}

func TestEngine_Idempotent(t *testing.T) {
	excel := []reconcile.ExcelRecord{
		ivaExcel("123456789", "10.00"), ivaExcel("501964843", "7.77"),
		ivaExcel("500100144", "3.10"), ivaExcel("123456789", "0.50"),
	}
	extracted := []reconcile.ExtractedRecord{
		ivaExtracted("500100144", "3.00"), ivaExtracted("123456789", "10.50"),
		ivaExtracted("999999990", "1.00"),
	}
	e := newEngine(t)

	first, err := e.Reconcile(domain.ReconciliationAmbos, excel, extracted)
	require.NoError(t, err)
	second, err := e.Reconcile(domain.ReconciliationAmbos, excel, extracted)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestEngine_FieldMismatchFlag(t *testing.T) {
	e := ivaExcel("123456789", "123.00")
	e.VATStandard = dec("23.00")
	s := ivaExtracted("123456789", "123.00")
	s.VATReduced = dec("23.00")

	res := run(t, domain.ReconciliationIVA, []reconcile.ExcelRecord{e}, []reconcile.ExtractedRecord{s})

	require.Len(t, res.Matches, 1)
	assert.Equal(t, reconcile.StatusPerfect, res.Matches[0].Status)
	assert.True(t, res.Matches[0].FieldMismatch)
	assert.Equal(t, 1, res.Summary.FieldMismatches)
	assert.True(t, res.IsZeroDelta)
	assert.Empty(t, res.Discrepancies)
}

func TestEngine_RejectsUnknownType(t *testing.T) {
	_, err := newEngine(t).Reconcile(domain.ReconciliationType("irs"), nil, nil)
	assert.ErrorIs(t, err, domain.ErrInvalidReconciliationType)
}

func TestNewEngine_Validation(t *testing.T) {
	opts := reconcile.DefaultOptions()
	opts.Tolerance = dec("-0.01")
	_, err := reconcile.NewEngine(opts)
	assert.ErrorIs(t, err, domain.ErrInvalidTolerance)

	opts = reconcile.DefaultOptions()
	opts.CriticalThreshold = dec("0.001")
	_, err = reconcile.NewEngine(opts)
	assert.ErrorIs(t, err, domain.ErrInvalidTolerance)

	opts = reconcile.DefaultOptions()
	opts.Catalog = nil
	_, err = reconcile.NewEngine(opts)
	assert.Error(t, err)
}

func TestEngine_WithTolerance(t *testing.T) {
	e := newEngine(t)

	loose, err := e.WithTolerance(dec("0.50"))
	require.NoError(t, err)
	assertDecimal(t, "0.50", loose.Tolerance())
	assertDecimal(t, "0.01", e.Tolerance())

	res, err := loose.Reconcile(domain.ReconciliationIVA,
		[]reconcile.ExcelRecord{ivaExcel("123456789", "10.00")},
		[]reconcile.ExtractedRecord{ivaExtracted("123456789", "10.40")})
	require.NoError(t, err)
	assert.Equal(t, reconcile.StatusWithinTolerance, res.Matches[0].Status)
	assertDecimal(t, "0.50", res.Tolerance)

	_, err = e.WithTolerance(dec("5"))
	assert.ErrorIs(t, err, domain.ErrInvalidTolerance)
}
