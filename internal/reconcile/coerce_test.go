package reconcile_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recontab/internal/reconcile"
)

func TestCoerceAmount(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		warning bool
	}{
		{"portuguese thousands and decimal", "1.234,56", "1234.56", false},
		{"currency and spaces", "€ 1 234,56", "1234.56", false},
		{"currency suffix", "100 EUR", "100", false},
		{"plain decimal point", "1234.56", "1234.56", false},
		{"decimal comma only", "1,5", "1.5", false},
		{"dots as thousands without comma", "1.234.567", "1234567", false},
		{"single dot stays decimal", "1.234", "1.234", false},
		{"parenthesised negative", "(10,00)", "-10", false},
		{"leading minus", "-5", "-5", false},
		{"non-breaking space", "2\u00a0500,00", "2500", false},
		{"empty is zero without warning", "", "0", false},
		{"blank is zero without warning", "   ", "0", false},
		{"text falls back to zero", "abc", "0", true},
		{"two commas fall back to zero", "12,34,56", "0", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.CoerceAmount(tt.raw)
			assertDecimal(t, tt.want, got.Value)
			assert.Equal(t, tt.warning, !got.OK(), got.Warning)
		})
	}
}

func TestCoerceDate(t *testing.T) {
	march15 := time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name    string
		raw     string
		want    *time.Time
		warning bool
	}{
		{"iso", "2024-03-15", &march15, false},
		{"portuguese dashes", "15-03-2024", &march15, false},
		{"portuguese slashes", "15/03/2024", &march15, false},
		{"compact", "20240315", &march15, false},
		{"iso timestamp", "2024-03-15T10:30:00Z", &march15, false},
		{"spreadsheet serial", "45366", &march15, false},
		{"spreadsheet serial with time of day", "45366.5", &march15, false},
		{"spreadsheet serial just before midnight", "45366.999988426", &march15, false},
		{"serial with dangling dot", "45366.", nil, true},
		{"unpadded day and month", "5/3/2024", date(2024, time.March, 5), false},
		{"empty", "", nil, false},
		{"impossible day", "31/02/2024", nil, true},
		{"free text", "ontem", nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.CoerceDate(tt.raw)
			assert.Equal(t, tt.warning, !got.OK(), got.Warning)
			if tt.want == nil {
				assert.Nil(t, got.Value)
				return
			}
			require.NotNil(t, got.Value)
			assert.True(t, tt.want.Equal(*got.Value), "want %s, got %s", tt.want, got.Value)
		})
	}
}

func TestCoerceNIF(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    string
		warning bool
	}{
		{"valid", "123456789", "123456789", false},
		{"country prefix and spaces", "PT 123 456 789", "123456789", false},
		{"stored as float", "501964843.0", "501964843", false},
		{"bad check digit is kept", "111111111", "111111111", true},
		{"foreign identifier", "ESB12345678", "ESB12345678", false},
		{"empty is dropped", "", "", true},
		{"all zeros is dropped", "000000000", "", true},
		{"zero is dropped", "0", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := reconcile.CoerceNIF(tt.raw)
			assert.Equal(t, tt.want, got.Value)
			assert.Equal(t, tt.warning, !got.OK(), got.Warning)
		})
	}
}

func TestValidNIF(t *testing.T) {
	for _, nif := range []string{"123456789", "501964843", "500100144", "999999990"} {
		assert.True(t, reconcile.ValidNIF(nif), nif)
	}
	for _, nif := range []string{"111111111", "987654321", "12345678", "12345678A", ""} {
		assert.False(t, reconcile.ValidNIF(nif), nif)
	}
}
