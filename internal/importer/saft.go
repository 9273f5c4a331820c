package importer

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/encoding/charmap"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

// auditFile is the subset of a SAF-T PT file needed to rebuild the VAT
// liquidated on sales. Tags carry no namespace so every schema version
// (1.03, 1.04) decodes.
type auditFile struct {
	XMLName   xml.Name       `xml:"AuditFile"`
	Customers []saftCustomer `xml:"MasterFiles>Customer"`
	Invoices  []saftInvoice  `xml:"SourceDocuments>SalesInvoices>Invoice"`
}

type saftCustomer struct {
	CustomerID    string `xml:"CustomerID"`
	CustomerTaxID string `xml:"CustomerTaxID"`
	CompanyName   string `xml:"CompanyName"`
}

type saftInvoice struct {
	InvoiceNo   string     `xml:"InvoiceNo"`
	Status      string     `xml:"DocumentStatus>InvoiceStatus"`
	InvoiceDate string     `xml:"InvoiceDate"`
	InvoiceType string     `xml:"InvoiceType"`
	CustomerID  string     `xml:"CustomerID"`
	Lines       []saftLine `xml:"Line"`
	GrossTotal  string     `xml:"DocumentTotals>GrossTotal"`
}

type saftLine struct {
	DebitAmount   string `xml:"DebitAmount"`
	CreditAmount  string `xml:"CreditAmount"`
	TaxPercentage string `xml:"Tax>TaxPercentage"`
}

const saftCancelled = "A"

func (im *Importer) importSAFT(res *Result, data []byte, kind domain.ReconciliationType) *Result {
	if !kind.IncludesIVA() {
		return res.fail("SAF-T files carry sales invoices only and cannot feed a %s reconciliation", kind)
	}

	var af auditFile
	dec := xml.NewDecoder(bytes.NewReader(data))
	dec.CharsetReader = charsetReader
	if err := dec.Decode(&af); err != nil {
		return res.fail("invalid SAF-T file: %v", err)
	}
	if len(af.Invoices) == 0 {
		return res.fail("SAF-T file has no sales invoices")
	}

	customers := make(map[string]saftCustomer, len(af.Customers))
	for _, c := range af.Customers {
		customers[c.CustomerID] = c
	}

	for i, inv := range af.Invoices {
		if strings.EqualFold(strings.TrimSpace(inv.Status), saftCancelled) {
			continue
		}
		row, warnings := im.saftRow(inv, customers)
		row.Line = i + 1
		for _, w := range warnings {
			res.Warnings = append(res.Warnings, fmt.Sprintf("invoice %s: %s", inv.InvoiceNo, w))
		}
		res.Rows = append(res.Rows, row)
	}
	if len(res.Rows) == 0 {
		return res.fail("SAF-T file has no invoices that are not cancelled")
	}
	return res
}

func (im *Importer) saftRow(inv saftInvoice, customers map[string]saftCustomer) (reconcile.RawRow, []string) {
	var warnings []string
	cust, ok := customers[inv.CustomerID]
	if !ok {
		warnings = append(warnings, fmt.Sprintf("customer %q not found in master files", inv.CustomerID))
	}

	// credit notes reduce the VAT liquidated
	sign := decimal.NewFromInt(1)
	if strings.EqualFold(inv.InvoiceType, "NC") {
		sign = sign.Neg()
	}

	var bands reconcile.Amounts
	hundred := decimal.NewFromInt(100)
	for _, l := range inv.Lines {
		base := parseSAFTAmount(l.CreditAmount).Sub(parseSAFTAmount(l.DebitAmount)).Abs().Mul(sign)
		pct := parseSAFTAmount(l.TaxPercentage)
		if pct.IsZero() {
			continue
		}
		band, ok := im.catalog.BandFor(pct)
		if !ok {
			warnings = append(warnings, fmt.Sprintf("tax rate %s%% is not a %s rate", pct, im.catalog.Region()))
			continue
		}
		bands = bands.Plus(amountIn(band, base.Mul(pct).Div(hundred)))
	}

	cells := map[reconcile.Column]string{
		reconcile.ColumnNIF:       cust.CustomerTaxID,
		reconcile.ColumnName:      cust.CompanyName,
		reconcile.ColumnDate:      inv.InvoiceDate,
		reconcile.ColumnDirection: string(domain.DirectionLiquidated),
	}
	cells[reconcile.AmountColumn(reconcile.FieldTotalAmount)] = parseSAFTAmount(inv.GrossTotal).Mul(sign).StringFixed(2)
	for _, f := range []reconcile.Field{reconcile.FieldVATStandard, reconcile.FieldVATIntermediate, reconcile.FieldVATReduced} {
		cells[reconcile.AmountColumn(f)] = bands.Get(f).Round(2).StringFixed(2)
	}
	return reconcile.RawRow{SourceID: inv.InvoiceNo, Cells: cells}, warnings
}

func amountIn(f reconcile.Field, v decimal.Decimal) reconcile.Amounts {
	var a reconcile.Amounts
	switch f {
	case reconcile.FieldVATStandard:
		a.VATStandard = v
	case reconcile.FieldVATIntermediate:
		a.VATIntermediate = v
	case reconcile.FieldVATReduced:
		a.VATReduced = v
	}
	return a
}

func parseSAFTAmount(s string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero
	}
	return d
}

// charsetReader handles the Windows-1252 declarations some invoicing
// software still emits.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	case "iso-8859-1", "latin1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	}
	return nil, fmt.Errorf("unsupported charset %s", strconv.Quote(label))
}
