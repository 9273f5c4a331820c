package reconcile

import (
	"fmt"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
)

// Coercion is the outcome of tolerant parsing: a usable value, plus a warning
// when the input could not be read and Value fell back to its default.
type Coercion[T any] struct {
	Value   T
	Warning string
}

// OK reports whether the raw input was read without falling back.
func (c Coercion[T]) OK() bool { return c.Warning == "" }

var currencyReplacer = strings.NewReplacer("€", "", "EUR", "", "eur", "", "Eur", "")

// CoerceAmount parses a monetary cell written in Portuguese or plain
// notation. A comma marks the decimal separator, in which case dots are
// thousands separators. Unreadable input yields zero with a warning.
func CoerceAmount(raw string) Coercion[decimal.Decimal] {
	s := currencyReplacer.Replace(raw)
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	if s == "" {
		return Coercion[decimal.Decimal]{Value: decimal.Zero}
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}

	switch {
	case strings.Contains(s, ","):
		s = strings.ReplaceAll(s, ".", "")
		s = strings.Replace(s, ",", ".", 1)
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	}

	v, err := decimal.NewFromString(s)
	if err != nil {
		return Coercion[decimal.Decimal]{
			Value:   decimal.Zero,
			Warning: fmt.Sprintf("amount %q is not a number, using 0", strings.TrimSpace(raw)),
		}
	}
	if negative {
		v = v.Neg()
	}
	return Coercion[decimal.Decimal]{Value: v}
}

var dateLayouts = []string{
	"2006-1-2",
	"2-1-2006",
	"2/1/2006",
	"20060102",
}

// excelSerial captures the day part; a fraction is the time of day.
var excelSerial = regexp.MustCompile(`^(\d{5})(\.\d+)?$`)

// excelEpoch is day zero of the 1900 date system as spreadsheets count it.
var excelEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// CoerceDate parses YYYY-MM-DD, DD-MM-YYYY, DD/MM/YYYY, YYYYMMDD and
// spreadsheet serial dates. Unreadable input yields nil with a warning.
func CoerceDate(raw string) Coercion[*time.Time] {
	s := strings.TrimSpace(raw)
	if s == "" {
		return Coercion[*time.Time]{}
	}
	// timestamps such as 2024-03-01T00:00:00Z or "2024-03-01 00:00:00"
	if len(s) > 10 && s[4] == '-' && (s[10] == 'T' || s[10] == ' ') {
		s = s[:10]
	}

	if m := excelSerial.FindStringSubmatch(s); m != nil {
		var days int
		_, _ = fmt.Sscanf(m[1], "%d", &days)
		d := excelEpoch.AddDate(0, 0, days)
		return Coercion[*time.Time]{Value: &d}
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return Coercion[*time.Time]{Value: &t}
		}
	}
	return Coercion[*time.Time]{Warning: fmt.Sprintf("date %q not recognised, leaving it empty", s)}
}

// CoerceNIF cleans a tax identifier. An empty Value means the row has no
// usable key and must be dropped; the warning then says why. A Portuguese
// NIF with a bad check digit is kept with a warning.
func CoerceNIF(raw string) Coercion[string] {
	s := strings.ToUpper(strings.TrimSpace(raw))
	// spreadsheets sometimes store the NIF as a float
	s = strings.TrimSuffix(strings.TrimSuffix(s, ".0"), ",0")
	s = strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || r == '.' || r == '-' || r == '/' {
			return -1
		}
		return r
	}, s)
	s = strings.TrimPrefix(s, "PT")

	if s == "" {
		return Coercion[string]{Warning: "empty NIF, row skipped"}
	}
	if strings.Trim(s, "0") == "" {
		return Coercion[string]{Warning: fmt.Sprintf("NIF %q is all zeros, row skipped", strings.TrimSpace(raw))}
	}
	if len(s) == 9 && isDigits(s) && !ValidNIF(s) {
		return Coercion[string]{Value: s, Warning: fmt.Sprintf("NIF %s fails the check digit", s)}
	}
	return Coercion[string]{Value: s}
}

// ValidNIF reports whether s is a nine-digit Portuguese NIF with a correct
// modulo 11 check digit.
func ValidNIF(s string) bool {
	if len(s) != 9 || !isDigits(s) {
		return false
	}
	sum := 0
	for i := 0; i < 8; i++ {
		sum += int(s[i]-'0') * (9 - i)
	}
	check := 11 - sum%11
	if check >= 10 {
		check = 0
	}
	return int(s[8]-'0') == check
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
