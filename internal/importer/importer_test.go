package importer_test

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/charmap"

	"recontab/internal/domain"
	"recontab/internal/importer"
	"recontab/internal/reconcile"
)

func newImporter() *importer.Importer {
	return importer.New(reconcile.MustCatalog(reconcile.RegionMainland))
}

var (
	colTotal    = reconcile.AmountColumn(reconcile.FieldTotalAmount)
	colStandard = reconcile.AmountColumn(reconcile.FieldVATStandard)
	colReduced  = reconcile.AmountColumn(reconcile.FieldVATReduced)
	colGross    = reconcile.AmountColumn(reconcile.FieldGrossAmount)
)

func TestImport_CSV_HeaderAfterTitleRows(t *testing.T) {
	data := strings.Join([]string{
		"Faturas comunicadas à AT",
		"",
		"NIF;Nome;Data;Total;IVA 23%;IVA 13%;IVA 6%",
		"123456789;Empresa A;15/01/2024;1.230,00;230,00;0;0",
		";;;;;;",
		"501964843;Empresa B;2024-01-20;106,00;0;0;6,00",
	}, "\n")

	res, err := newImporter().Import([]byte(data), "faturas.csv", domain.ReconciliationIVA)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Errors)

	assert.Equal(t, domain.FileTypeCSV, res.Format)
	assert.Equal(t, 3, res.HeaderRow)
	assert.Equal(t, "IVA 23%", res.Columns[colStandard])
	require.Len(t, res.Rows, 2)

	first := res.Rows[0]
	assert.Equal(t, 4, first.Line)
	assert.Equal(t, "123456789", first.Get(reconcile.ColumnNIF))
	assert.Equal(t, "Empresa A", first.Get(reconcile.ColumnName))
	assert.Equal(t, "1.230,00", first.Get(colTotal))
	assert.Equal(t, "230,00", first.Get(colStandard))

	assert.Equal(t, 6, res.Rows[1].Line)
	assert.Equal(t, "6,00", res.Rows[1].Get(colReduced))

	// direction has no column, which is not an amount and gives no warning
	assert.Empty(t, res.Warnings)
}

func TestImport_CSV_CommaDelimitedWithBOM(t *testing.T) {
	data := "\xEF\xBB\xBFnif,name,gross_amount,withholding_amount,income_category,id\n" +
		"123456789,Ana Silva,1000.00,250.00,B,w-1\n"

	res, err := newImporter().Import([]byte(data), "system.csv", domain.ReconciliationModelo10)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Errors)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, "123456789", row.Get(reconcile.ColumnNIF))
	assert.Equal(t, "1000.00", row.Get(colGross))
	assert.Equal(t, "B", row.Get(reconcile.ColumnIncomeCategory))
	assert.Equal(t, "w-1", row.SourceID)
}

func TestImport_CSV_Windows1252(t *testing.T) {
	utf := "Nº Contribuinte;Designação;Rendimento bruto;Retenção na fonte\n" +
		"123456789;João Conceição;500,00;125,00\n"
	data, err := charmap.Windows1252.NewEncoder().Bytes([]byte(utf))
	require.NoError(t, err)

	res, err := newImporter().Import(data, "m10.csv", domain.ReconciliationModelo10)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Errors)
	require.Len(t, res.Rows, 1)

	assert.Equal(t, "João Conceição", res.Rows[0].Get(reconcile.ColumnName))
	assert.Equal(t, "125,00", res.Rows[0].Get(reconcile.AmountColumn(reconcile.FieldWithholdingAmount)))
}

func TestImport_CSV_FuzzyHeader(t *testing.T) {
	data := "Contribuint;Nome;Total\n123456789;Empresa A;100,00\n"

	res, err := newImporter().Import([]byte(data), "ref.csv", domain.ReconciliationIVA)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Errors)

	assert.Equal(t, "Contribuint", res.Columns[reconcile.ColumnNIF])
	assert.Contains(t, res.Warnings, `header "Contribuint" read as nif`)
	assert.Contains(t, res.Warnings, "no column found for vat_standard: values default to 0")
	assert.Equal(t, "123456789", res.Rows[0].Get(reconcile.ColumnNIF))
}

func TestImport_StructuralErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
		want string
	}{
		{"empty file", "", "empty"},
		{"blank rows only", ";;\n;;\n", "no data"},
		{"no NIF header", "foo;bar\n1;2\n", "no header row"},
		{"header without rows", "NIF;Total\n", "no data rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := newImporter().Import([]byte(tt.data), "ref.csv", domain.ReconciliationIVA)
			require.NoError(t, err)
			assert.False(t, res.Success())
			assert.Empty(t, res.Rows)
			require.Len(t, res.Errors, 1)
			assert.Contains(t, res.Errors[0], tt.want)
		})
	}
}

func TestImport_UnsupportedExtension(t *testing.T) {
	_, err := newImporter().Import([]byte("x"), "ref.pdf", domain.ReconciliationIVA)
	assert.ErrorIs(t, err, domain.ErrUnsupportedFileType)
}

func TestImport_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"Relatório de compras"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{"NIF", "Fornecedor", "Data", "Valor total", "IVA 23"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{123456789, "Empresa A", 45306, 1230.5, 230.5}))
	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	res, err := newImporter().Import(buf.Bytes(), "Compras.XLSX", domain.ReconciliationIVA)
	require.NoError(t, err)
	require.True(t, res.Success(), res.Errors)
	assert.Equal(t, domain.FileTypeXLSX, res.Format)
	assert.Equal(t, 2, res.HeaderRow)
	require.Len(t, res.Rows, 1)

	row := res.Rows[0]
	assert.Equal(t, 3, row.Line)
	assert.Equal(t, "123456789", row.Get(reconcile.ColumnNIF))
	assert.Equal(t, "45306", row.Get(reconcile.ColumnDate))
	assert.Equal(t, "1230.5", row.Get(colTotal))

	norm := reconcile.NewNormalizer(reconcile.MustCatalog("")).NormalizeExcel(res.Rows, domain.ReconciliationIVA)
	require.True(t, norm.Success)
	rec := norm.Records[0]
	require.NotNil(t, rec.DocumentDate)
	assert.Equal(t, "2024-01-15", rec.DocumentDate.Format("2006-01-02"))
	assert.Equal(t, "1230.5", rec.TotalAmount.String())
	assert.Equal(t, []int{3}, rec.Lines)
}

func TestImport_CorruptWorkbook(t *testing.T) {
	res, err := newImporter().Import([]byte("not a zip"), "ref.xlsx", domain.ReconciliationIVA)
	require.NoError(t, err)
	assert.False(t, res.Success())
	assert.Contains(t, res.Errors[0], "cannot read ref.xlsx")
}

func TestImport_ConcurrentAccentedHeaders(t *testing.T) {
	data := []byte("Nº Contribuinte;Designação;Data de Emissão;Valor Total;IVA à Taxa Normal\n" +
		"123456789;Construções Conceição;15/01/2024;123,00;23,00\n")
	imp := newImporter()

	var wg sync.WaitGroup
	for g := 0; g < 16; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				res, err := imp.Import(data, "faturas.csv", domain.ReconciliationIVA)
				if !assert.NoError(t, err) || !assert.True(t, res.Success(), res.Errors) {
					return
				}
				assert.Equal(t, "Nº Contribuinte", res.Columns[reconcile.ColumnNIF])
				assert.Equal(t, "IVA à Taxa Normal", res.Columns[colStandard])
				assert.Len(t, res.Rows, 1)
			}
		}()
	}
	wg.Wait()
}
