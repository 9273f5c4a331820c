package importer

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/schollz/closestmatch"
	"github.com/texttheater/golang-levenshtein/levenshtein"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

const headerScanRows = 40

// sourceIDColumn is not a reconcile column: it fills RawRow.SourceID.
const sourceIDColumn reconcile.Column = "source_id"

// columnAliases lists the folded header spellings of each column, as found
// in AT portal exports, accounting package exports and hand-made sheets.
var columnAliases = map[reconcile.Column][]string{
	reconcile.ColumnNIF: {
		"NIF", "NIPC", "NIF NIPC", "CONTRIBUINTE", "N CONTRIBUINTE", "NUMERO CONTRIBUINTE",
		"NUMERO DE CONTRIBUINTE", "NIF ADQUIRENTE", "NIF EMITENTE", "NIF FORNECEDOR",
		"NIF CLIENTE", "NIF BENEFICIARIO", "NIF DO BENEFICIARIO", "TAX ID", "TAXID", "VAT NUMBER",
		"COUNTERPARTY NIF", "BENEFICIARY NIF",
	},
	reconcile.ColumnName: {
		"NOME", "DESIGNACAO", "DENOMINACAO", "ENTIDADE", "FORNECEDOR", "CLIENTE", "BENEFICIARIO",
		"RAZAO SOCIAL", "NOME ADQUIRENTE", "NOME EMITENTE", "COUNTERPARTY NAME", "BENEFICIARY NAME",
	},
	reconcile.ColumnDate: {
		"DATA", "DATA DOCUMENTO", "DATA DO DOCUMENTO", "DATA EMISSAO", "DATA DE EMISSAO",
		"DATA PAGAMENTO", "DATA DE PAGAMENTO", "DATE", "PAYMENT DATE",
	},
	reconcile.ColumnDirection: {
		"SENTIDO", "DIRECAO", "TIPO OPERACAO", "TIPO DE OPERACAO", "COMPRA VENDA",
	},
	reconcile.ColumnIncomeCategory: {
		"CATEGORIA", "CATEGORIA RENDIMENTO", "CATEGORIA DE RENDIMENTO", "TIPO RENDIMENTO",
		"TIPO DE RENDIMENTO", "CATEGORY",
	},
	reconcile.AmountColumn(reconcile.FieldTotalAmount): {
		"TOTAL", "VALOR TOTAL", "TOTAL DOCUMENTO", "TOTAL DO DOCUMENTO", "VALOR", "AMOUNT",
	},
	reconcile.AmountColumn(reconcile.FieldVATStandard): {
		"IVA 23", "IVA 22", "IVA 16", "IVA NORMAL", "IVA TAXA NORMAL", "IVA A TAXA NORMAL",
	},
	reconcile.AmountColumn(reconcile.FieldVATIntermediate): {
		"IVA 13", "IVA 12", "IVA 9", "IVA INTERMEDIA", "IVA TAXA INTERMEDIA", "IVA A TAXA INTERMEDIA",
	},
	reconcile.AmountColumn(reconcile.FieldVATReduced): {
		"IVA 6", "IVA 5", "IVA 4", "IVA REDUZIDA", "IVA TAXA REDUZIDA", "IVA A TAXA REDUZIDA",
	},
	reconcile.AmountColumn(reconcile.FieldGrossAmount): {
		"RENDIMENTO", "RENDIMENTO BRUTO", "RENDIMENTOS", "VALOR BRUTO", "BRUTO", "GROSS",
	},
	reconcile.AmountColumn(reconcile.FieldWithholdingAmount): {
		"RETENCAO", "RETENCOES", "RETENCAO NA FONTE", "VALOR RETIDO", "IMPOSTO RETIDO", "WITHHOLDING",
	},
	sourceIDColumn: {"ID", "SOURCE ID"},
}

var nonAlnum = regexp.MustCompile(`[^A-Z0-9]+`)

// stripAccents returns a fresh transformer on every call: a Chain keeps
// buffer state and must not be shared between goroutines.
func stripAccents() transform.Transformer {
	return transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
}

// fold reduces a header to upper-case ASCII words: "Nº Contribuinte" and
// "n.º contribuinte" both become "N CONTRIBUINTE".
func fold(s string) string {
	out, _, err := transform.String(stripAccents(), s)
	if err != nil {
		out = s
	}
	out = nonAlnum.ReplaceAllString(strings.ToUpper(out), " ")
	return strings.TrimSpace(out)
}

// columnsFor lists the columns worth looking for in a kind of run.
func columnsFor(kind domain.ReconciliationType) []reconcile.Column {
	cols := []reconcile.Column{reconcile.ColumnNIF, reconcile.ColumnName, reconcile.ColumnDate, sourceIDColumn}
	if kind.IncludesIVA() {
		cols = append(cols, reconcile.ColumnDirection)
	}
	if kind.IncludesModelo10() {
		cols = append(cols, reconcile.ColumnIncomeCategory)
	}
	for _, f := range reconcile.FieldsFor(kind) {
		cols = append(cols, reconcile.AmountColumn(f))
	}
	return cols
}

type fuzzyHit struct {
	header string
	column reconcile.Column
}

type header struct {
	row      int
	cols     map[reconcile.Column]int
	sourceID int
	fuzzy    []fuzzyHit
}

// detectHeader scans the first rows for the one mapping the most columns.
// A row qualifies only if it maps the NIF column; ties go to the earlier row.
func detectHeader(grid [][]string, kind domain.ReconciliationType) (header, bool) {
	aliases := aliasIndex(columnsFor(kind))

	var best header
	found := false
	for i := 0; i < len(grid) && i < headerScanRows; i++ {
		h := mapHeader(grid[i], aliases)
		if _, ok := h.cols[reconcile.ColumnNIF]; !ok {
			continue
		}
		if !found || len(h.cols) > len(best.cols) {
			h.row = i
			best, found = h, true
		}
	}
	if !found {
		return header{}, false
	}

	best.sourceID = -1
	if idx, ok := best.cols[sourceIDColumn]; ok {
		best.sourceID = idx
		delete(best.cols, sourceIDColumn)
	}
	return best, true
}

// aliasIndex maps each folded alias, including the column's own name, to
// its column.
func aliasIndex(cols []reconcile.Column) map[string]reconcile.Column {
	idx := make(map[string]reconcile.Column)
	for _, col := range cols {
		idx[fold(string(col))] = col
		for _, a := range columnAliases[col] {
			idx[a] = col
		}
	}
	return idx
}

// mapHeader assigns cells to columns by exact alias first. Cells left over
// are matched fuzzily against the aliases of columns still unassigned.
func mapHeader(row []string, aliases map[string]reconcile.Column) header {
	h := header{cols: make(map[reconcile.Column]int)}
	var pending []int
	for i, cell := range row {
		key := fold(cell)
		if key == "" {
			continue
		}
		col, ok := aliases[key]
		if !ok {
			pending = append(pending, i)
			continue
		}
		if _, taken := h.cols[col]; !taken {
			h.cols[col] = i
		}
	}
	if len(pending) == 0 {
		return h
	}

	var candidates []string
	for a, col := range aliases {
		if _, taken := h.cols[col]; !taken {
			candidates = append(candidates, a)
		}
	}
	if len(candidates) == 0 {
		return h
	}
	sort.Strings(candidates)
	cm := closestmatch.New(candidates, []int{2, 3})
	for _, i := range pending {
		key := fold(row[i])
		guess, ok := bestGuess(key, cm.ClosestN(key, fuzzyCandidates))
		if !ok {
			continue
		}
		col := aliases[guess]
		if _, taken := h.cols[col]; taken {
			continue
		}
		h.cols[col] = i
		h.fuzzy = append(h.fuzzy, fuzzyHit{header: row[i], column: col})
	}
	return h
}

const fuzzyCandidates = 5

// bestGuess keeps the proposal with the smallest edit distance and accepts
// it within one edit per three characters of the alias.
func bestGuess(key string, proposals []string) (string, bool) {
	best, bestDist := "", -1
	for _, p := range proposals {
		if p == "" {
			continue
		}
		d := levenshtein.DistanceForStrings([]rune(key), []rune(p), levenshtein.DefaultOptions)
		if bestDist < 0 || d < bestDist || (d == bestDist && p < best) {
			best, bestDist = p, d
		}
	}
	if bestDist < 0 || bestDist > len([]rune(best))/3 {
		return "", false
	}
	return best, true
}
