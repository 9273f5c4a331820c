package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

const rule = "----------------------------------------------------------------"

// textWriter accumulates the first write error so section renderers stay linear.
type textWriter struct {
	w   *bufio.Writer
	err error
}

func (t *textWriter) printf(format string, args ...any) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

func (t *textWriter) section(title string) {
	t.printf("\n%s\n%s\n", title, strings.Repeat("-", len(title)))
}

// table renders aligned rows of tab-separated cells.
func (t *textWriter) table(rows [][]string) {
	if t.err != nil {
		return
	}
	tw := tabwriter.NewWriter(t.w, 0, 0, 2, ' ', 0)
	for _, r := range rows {
		if _, err := fmt.Fprintln(tw, "  "+strings.Join(r, "\t")+"\t"); err != nil {
			t.err = err
			return
		}
	}
	t.err = tw.Flush()
}

func (t *textWriter) more(n int) {
	if n > 0 {
		t.printf("  ... and %d more\n", n)
	}
}

// WriteText renders the audit report of a run.
func WriteText(w io.Writer, meta Meta, res *reconcile.Result, opts Options) error {
	t := &textWriter{w: bufio.NewWriter(w)}
	limit := opts.limit()

	t.printf("RECONCILIATION REPORT: %s\n%s\n", TypeLabel(res.Type), rule)
	if meta.ClientName != "" || meta.ClientNIF != "" {
		t.printf("Client:     %s", meta.ClientName)
		if meta.ClientNIF != "" {
			t.printf(" (NIF %s)", meta.ClientNIF)
		}
		t.printf("\n")
	}
	if meta.Period.Valid() {
		t.printf("Period:     %s to %s\n", formatDate(meta.Period.Start), formatDate(meta.Period.End))
	}
	t.printf("Tolerance:  %s (critical above %s)\n", formatMoney(res.Tolerance), formatMoney(res.CriticalThreshold))
	if meta.RunID != "" {
		t.printf("Run:        %s\n", meta.RunID)
	}
	if !meta.GeneratedAt.IsZero() {
		t.printf("Generated:  %s\n", meta.GeneratedAt.UTC().Format("2006-01-02 15:04 MST"))
	}
	if res.IsZeroDelta {
		t.printf("\nRESULT: ZERO DELTA\n")
	} else {
		t.printf("\nRESULT: DIFFERENCES FOUND\n")
	}

	writeSummary(t, res.Summary)
	if res.IVA != nil {
		writeIVA(t, res.IVA)
	}
	if res.Modelo10 != nil {
		writeModelo10(t, res.Modelo10)
	}
	writeDiscrepancies(t, res.Discrepancies, limit)
	writeUnmatched(t, "MISSING FROM SYSTEM", res.Type, fieldsOf(res.Missing), limit)
	writeUnmatched(t, "EXTRA IN SYSTEM", res.Type, fieldsOf(res.Extra), limit)

	if len(meta.Warnings) > 0 {
		t.section(fmt.Sprintf("WARNINGS (%d)", len(meta.Warnings)))
		shown, more := Preview(meta.Warnings, limit)
		for _, warning := range shown {
			t.printf("  %s\n", warning)
		}
		t.more(more)
	}

	if t.err != nil {
		return t.err
	}
	return t.w.Flush()
}

func writeSummary(t *textWriter, s reconcile.Summary) {
	t.section("SUMMARY")
	t.table([][]string{
		{"Expected (reference)", fmt.Sprint(s.TotalExpected)},
		{"Extracted (system)", fmt.Sprint(s.TotalExtracted)},
		{"Perfect", fmt.Sprint(s.Perfect)},
		{"Within tolerance", fmt.Sprint(s.WithinTolerance)},
		{"Discrepancies", fmt.Sprint(s.Discrepancies)},
		{"Missing", fmt.Sprint(s.Missing)},
		{"Extra", fmt.Sprint(s.Extra)},
		{"Field mismatches", fmt.Sprint(s.FieldMismatches)},
		{"Match rate", fmt.Sprintf("%d%%", s.MatchRate)},
	})
}

func pairRow(label string, p reconcile.TotalPair) []string {
	return []string{label, formatMoney(p.Excel), formatMoney(p.System), formatMoney(p.Delta), string(p.Status)}
}

var pairHeader = []string{"", "Reference", "System", "Delta", "Status"}

func writeIVA(t *textWriter, b *reconcile.IVABreakdown) {
	t.section(fmt.Sprintf("IVA BREAKDOWN (%s)", b.Region))
	rows := [][]string{pairHeader}
	for _, band := range b.Bands {
		rows = append(rows, pairRow(fmt.Sprintf("%s %s%%", FieldLabel(band.Field), band.Rate), band.TotalPair))
	}
	rows = append(rows,
		pairRow("VAT total", b.VATTotal),
		pairRow("Document total", b.DocumentTotal),
		pairRow("Deductible VAT", b.Deductible),
		pairRow("Liquidated VAT", b.Liquidated),
		pairRow("Balance", b.Balance),
	)
	t.table(rows)
}

func writeModelo10(t *textWriter, b *reconcile.Modelo10Breakdown) {
	t.section("MODELO 10 BREAKDOWN")
	rows := [][]string{pairHeader, pairRow("Gross income", b.Gross), pairRow("Withholding", b.Withholding)}
	for _, c := range b.Categories {
		label := c.Code
		if label == "" {
			label = "-"
		}
		rows = append(rows,
			pairRow(fmt.Sprintf("%s %s gross", label, c.Label), c.Gross),
			pairRow(fmt.Sprintf("%s %s withheld", label, c.Label), c.Withholding),
		)
	}
	t.table(rows)
	t.printf("  Distinct NIFs: %d reference, %d system\n", b.UniqueNIFs.Excel, b.UniqueNIFs.System)
}

func writeDiscrepancies(t *textWriter, ds []reconcile.Discrepancy, limit int) {
	t.section(fmt.Sprintf("DISCREPANCIES (%d)", len(ds)))
	if len(ds) == 0 {
		t.printf("  none\n")
		return
	}
	shown, more := Preview(ds, limit)
	rows := [][]string{{"NIF", "Name", "Field", "Reference", "System", "Delta", "Severity"}}
	for _, d := range shown {
		rows = append(rows, []string{
			d.NIF, d.Name, FieldLabel(d.Field),
			formatMoney(d.ExcelValue), formatMoney(d.SystemValue), formatMoney(d.Delta),
			string(d.Severity),
		})
	}
	t.table(rows)
	t.more(more)
}

func writeUnmatched(t *textWriter, title string, kind domain.ReconciliationType, records []reconcile.Fields, limit int) {
	t.section(fmt.Sprintf("%s (%d)", title, len(records)))
	if len(records) == 0 {
		t.printf("  none\n")
		return
	}
	shown, more := Preview(records, limit)
	rows := [][]string{{"NIF", "Name", "Amount"}}
	for _, f := range shown {
		rows = append(rows, []string{f.NIF, f.Name, formatMoney(primaryAmount(kind, f))})
	}
	t.table(rows)
	t.more(more)
}

func fieldsOf[R reconcile.Record](records []R) []reconcile.Fields {
	out := make([]reconcile.Fields, len(records))
	for i, r := range records {
		out[i] = r.Common()
	}
	return out
}
