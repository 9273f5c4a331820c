package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ivaHeader = "NIF;Nome;Data;Total;IVA 23%;IVA 13%;IVA 6%\n"

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRun_ZeroDelta(t *testing.T) {
	rows := ivaHeader +
		"123456789;Empresa A;15/01/2024;1.230,00;230,00;0;0\n" +
		"501964843;Empresa B;20/01/2024;106,00;0;0;6,00\n"
	ref := writeFile(t, "ref.csv", rows)
	sys := writeFile(t, "sys.csv", rows)

	var stdout, stderr bytes.Buffer
	code := run([]string{"-type", "iva", "-reference", ref, "-extracted", sys, "-client", "Padaria Central"}, &stdout, &stderr)

	assert.Equal(t, exitOK, code, stderr.String())
	assert.Contains(t, stdout.String(), "RESULT: ZERO DELTA")
	assert.Contains(t, stdout.String(), "Client:     Padaria Central")
}

func TestRun_DifferencesAsJSON(t *testing.T) {
	ref := writeFile(t, "ref.csv", ivaHeader+
		"123456789;Empresa A;15/01/2024;1.230,00;230,00;0;0\n"+
		"501964843;Empresa B;20/01/2024;106,00;0;0;6,00\n")
	sys := writeFile(t, "sys.csv", ivaHeader+
		"123456789;Empresa A;15/01/2024;1.235,00;235,00;0;0\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-reference", ref, "-extracted", sys, "-format", "json"}, &stdout, &stderr)
	require.Equal(t, exitDifferences, code, stderr.String())

	var out struct {
		Result struct {
			IsZeroDelta bool `json:"is_zero_delta"`
			Summary     struct {
				Discrepancies int `json:"discrepancies"`
				Missing       int `json:"missing"`
			} `json:"summary"`
		} `json:"result"`
		Warnings []string `json:"warnings"`
	}
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &out))
	assert.False(t, out.Result.IsZeroDelta)
	assert.Equal(t, 1, out.Result.Summary.Discrepancies)
	assert.Equal(t, 1, out.Result.Summary.Missing)
	assert.NotNil(t, out.Warnings)
}

func TestRun_WithinCustomTolerance(t *testing.T) {
	ref := writeFile(t, "ref.csv", ivaHeader+"123456789;Empresa A;15/01/2024;100,00;23,00;0;0\n")
	sys := writeFile(t, "sys.csv", ivaHeader+"123456789;Empresa A;15/01/2024;100,50;23,00;0;0\n")

	var stdout, stderr bytes.Buffer
	code := run([]string{"-reference", ref, "-extracted", sys, "-tolerance", "1"}, &stdout, &stderr)
	assert.Equal(t, exitOK, code, stderr.String())
}

func TestRun_StructuralErrors(t *testing.T) {
	good := writeFile(t, "ok.csv", ivaHeader+"123456789;Empresa A;15/01/2024;100,00;23,00;0;0\n")
	headerOnly := writeFile(t, "empty.csv", ivaHeader)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing reference", []string{"-extracted", good}, "-reference and -extracted are required"},
		{"bad type", []string{"-type", "irs", "-reference", good, "-extracted", good}, "reconciliation type"},
		{"bad format", []string{"-format", "pdf", "-reference", good, "-extracted", good}, "unknown format"},
		{"bad tolerance", []string{"-tolerance", "abc", "-reference", good, "-extracted", good}, "tolerance"},
		{"bad region", []string{"-region", "galiza", "-reference", good, "-extracted", good}, "reconcile:"},
		{"unreadable file", []string{"-reference", filepath.Join(t.TempDir(), "nope.csv"), "-extracted", good}, "nope.csv"},
		{"no data rows", []string{"-reference", headerOnly, "-extracted", good}, "no data rows"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var stdout, stderr bytes.Buffer
			code := run(tt.args, &stdout, &stderr)
			assert.Equal(t, exitStructural, code)
			assert.Contains(t, stderr.String(), tt.want)
			assert.Empty(t, stdout.String())
		})
	}
}
