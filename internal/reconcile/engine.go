// Package reconcile compares a reference record set against the records the
// system holds, keyed by NIF, and reports matches, gaps and deltas.
//
// Everything here is synchronous and free of I/O. Each call works on its own
// inputs and returns a fresh result, so an Engine is safe for concurrent use.
package reconcile

import (
	"fmt"

	"github.com/shopspring/decimal"

	"recontab/internal/domain"
)

var (
	// DefaultTolerance absorbs one cent of rounding.
	DefaultTolerance = decimal.RequireFromString("0.01")
	// DefaultCriticalThreshold marks discrepancies above one euro as critical.
	DefaultCriticalThreshold = decimal.RequireFromString("1.00")
)

// Options configures an Engine.
type Options struct {
	Tolerance         decimal.Decimal
	CriticalThreshold decimal.Decimal
	Catalog           *Catalog
}

// DefaultOptions returns the default thresholds with the mainland catalog.
func DefaultOptions() Options {
	return Options{
		Tolerance:         DefaultTolerance,
		CriticalThreshold: DefaultCriticalThreshold,
		Catalog:           MustCatalog(RegionMainland),
	}
}

// Engine runs the match, classify and aggregate pipeline.
type Engine struct {
	th         Thresholds
	catalog    *Catalog
	normalizer *Normalizer
}

// NewEngine validates opts and creates an Engine.
func NewEngine(opts Options) (*Engine, error) {
	if opts.Catalog == nil {
		return nil, fmt.Errorf("reconcile.NewEngine: catalog is required")
	}
	if err := validateThresholds(opts.Tolerance, opts.CriticalThreshold); err != nil {
		return nil, fmt.Errorf("reconcile.NewEngine: %w", err)
	}
	return &Engine{
		th:         Thresholds{Tolerance: opts.Tolerance, CriticalThreshold: opts.CriticalThreshold},
		catalog:    opts.Catalog,
		normalizer: NewNormalizer(opts.Catalog),
	}, nil
}

func validateThresholds(tolerance, critical decimal.Decimal) error {
	if tolerance.IsNegative() {
		return fmt.Errorf("%w: tolerance %s is negative", domain.ErrInvalidTolerance, tolerance)
	}
	if critical.LessThan(tolerance) {
		return fmt.Errorf("%w: critical threshold %s is below tolerance %s", domain.ErrInvalidTolerance, critical, tolerance)
	}
	return nil
}

// WithTolerance returns a copy of e using a different tolerance.
func (e *Engine) WithTolerance(tolerance decimal.Decimal) (*Engine, error) {
	if err := validateThresholds(tolerance, e.th.CriticalThreshold); err != nil {
		return nil, err
	}
	cp := *e
	cp.th.Tolerance = tolerance
	return &cp, nil
}

// Tolerance returns the configured tolerance.
func (e *Engine) Tolerance() decimal.Decimal { return e.th.Tolerance }

// Catalog returns the tax tables the engine was built with.
func (e *Engine) Catalog() *Catalog { return e.catalog }

// Normalizer returns the normalizer sharing the engine's catalog.
func (e *Engine) Normalizer() *Normalizer { return e.normalizer }

// Reconcile matches, classifies and aggregates the two record sets.
func (e *Engine) Reconcile(kind domain.ReconciliationType, excel []ExcelRecord, extracted []ExtractedRecord) (*Result, error) {
	if !kind.IsValid() {
		return nil, fmt.Errorf("%w: %q", domain.ErrInvalidReconciliationType, kind)
	}

	buckets := Match(excel, extracted)
	matches := make([]MatchedRecord, 0, len(buckets.Pairs))
	for _, p := range buckets.Pairs {
		c := Classify(p.Excel, p.Extracted, kind, e.th.Tolerance)
		matches = append(matches, MatchedRecord{
			Excel:          p.Excel,
			Extracted:      p.Extracted,
			Classification: c,
			FieldMismatch:  c.Status == StatusPerfect && hasImperfectField(c.FieldDeltas),
		})
	}
	return Aggregate(kind, matches, buckets.Missing, buckets.Extra, e.th, e.catalog), nil
}

func hasImperfectField(deltas []FieldDelta) bool {
	for _, fd := range deltas {
		if fd.Status != StatusPerfect {
			return true
		}
	}
	return false
}
