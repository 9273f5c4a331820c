// Command reconcile compares a reference file against a system export
// offline and prints the audit report.
//
// Exit status is 0 for a zero-delta result, 1 when either file cannot be
// used and 2 when differences were found.
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"recontab/internal/config"
	"recontab/internal/domain"
	"recontab/internal/importer"
	"recontab/internal/logger"
	"recontab/internal/reconcile"
	"recontab/internal/report"
)

const (
	exitOK          = 0
	exitStructural  = 1
	exitDifferences = 2
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

type options struct {
	kind      domain.ReconciliationType
	reference string
	extracted string
	tolerance decimal.Decimal
	critical  decimal.Decimal
	region    reconcile.Region
	format    string
	client    string
	preview   int
	logLevel  string
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("reconcile", flag.ContinueOnError)
	fs.SetOutput(stderr)

	kind := fs.String("type", "iva", "reconciliation type: iva, modelo10 or ambos")
	reference := fs.String("reference", "", "reference file (xlsx, xls, csv, txt or SAF-T xml)")
	extracted := fs.String("extracted", "", "system export to compare against")
	tolerance := fs.String("tolerance", reconcile.DefaultTolerance.String(), "absolute tolerance in euros")
	critical := fs.String("critical", reconcile.DefaultCriticalThreshold.String(), "delta above which a discrepancy is critical")
	region := fs.String("region", string(reconcile.RegionMainland), "IVA region: continente, madeira or acores")
	format := fs.String("format", "text", "output format: text or json")
	client := fs.String("client", "", "client name shown in the report header")
	preview := fs.Int("preview", report.DefaultPreviewLimit, "maximum entries listed per report section")
	logLevel := fs.String("log-level", "warn", "log level for diagnostics on stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	opts := &options{
		kind:      domain.ReconciliationType(strings.ToLower(*kind)),
		reference: *reference,
		extracted: *extracted,
		region:    reconcile.Region(*region),
		format:    strings.ToLower(*format),
		client:    *client,
		preview:   *preview,
		logLevel:  *logLevel,
	}
	if opts.reference == "" || opts.extracted == "" {
		return nil, errors.New("-reference and -extracted are required")
	}
	if !opts.kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReconciliationType, *kind)
	}
	if opts.format != "text" && opts.format != "json" {
		return nil, fmt.Errorf("unknown format %q", *format)
	}

	var err error
	if opts.tolerance, err = decimal.NewFromString(*tolerance); err != nil {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidTolerance, *tolerance)
	}
	if opts.critical, err = decimal.NewFromString(*critical); err != nil {
		return nil, fmt.Errorf("%w: critical %q", domain.ErrInvalidTolerance, *critical)
	}
	return opts, nil
}

func run(args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintln(stderr, "reconcile:", err)
		}
		return exitStructural
	}

	zl, err := logger.New(config.LogConfig{Level: opts.logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	defer func() { _ = zl.Sync() }()

	catalog, err := reconcile.NewCatalog(opts.region)
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	engine, err := reconcile.NewEngine(reconcile.Options{
		Tolerance:         opts.tolerance,
		CriticalThreshold: opts.critical,
		Catalog:           catalog,
	})
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	imp := importer.New(catalog)

	var warnings []string
	refRows, err := load(imp, opts.reference, opts.kind, &warnings)
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	sysRows, err := load(imp, opts.extracted, opts.kind, &warnings)
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}

	normalizer := engine.Normalizer()
	excel := normalizer.NormalizeExcel(refRows, opts.kind)
	extracted := normalizer.NormalizeExtracted(sysRows, opts.kind)
	warnings = append(warnings, excel.Warnings...)
	warnings = append(warnings, extracted.Warnings...)
	if !excel.Success || !extracted.Success {
		for _, msg := range append(excel.Errors, extracted.Errors...) {
			fmt.Fprintln(stderr, "reconcile:", msg)
		}
		return exitStructural
	}

	res, err := engine.Reconcile(opts.kind, excel.Records, extracted.Records)
	if err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	zl.Debug("reconciled",
		zap.Int("reference", len(excel.Records)),
		zap.Int("system", len(extracted.Records)),
		zap.Bool("zero_delta", res.IsZeroDelta),
		zap.Int("warnings", len(warnings)),
	)

	if err := write(stdout, opts, res, warnings); err != nil {
		fmt.Fprintln(stderr, "reconcile:", err)
		return exitStructural
	}
	if !res.IsZeroDelta {
		return exitDifferences
	}
	return exitOK
}

// load reads one file and collects its warnings. Structural problems are
// returned as a single error.
func load(imp *importer.Importer, path string, kind domain.ReconciliationType, warnings *[]string) ([]reconcile.RawRow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	res, err := imp.Import(data, path, kind)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	for _, w := range res.Warnings {
		*warnings = append(*warnings, fmt.Sprintf("%s: %s", path, w))
	}
	if !res.Success() {
		return nil, fmt.Errorf("%s: %s", path, strings.Join(res.Errors, "; "))
	}
	return res.Rows, nil
}

type jsonOutput struct {
	Result   *reconcile.Result `json:"result"`
	Warnings []string          `json:"warnings"`
}

func write(w io.Writer, opts *options, res *reconcile.Result, warnings []string) error {
	if opts.format == "json" {
		if warnings == nil {
			warnings = []string{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(jsonOutput{Result: res, Warnings: warnings})
	}
	meta := report.Meta{ClientName: opts.client, Warnings: warnings}
	return report.WriteText(w, meta, res, report.Options{PreviewLimit: opts.preview})
}
