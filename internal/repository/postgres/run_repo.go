package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"recontab/internal/domain"
	"recontab/internal/port"
)

type runRepo struct {
	db *sqlx.DB
}

// NewRunRepo creates a new PostgreSQL-backed RunRepository.
func NewRunRepo(db *sqlx.DB) port.RunRepository {
	return &runRepo{db: db}
}

func (r *runRepo) Create(ctx context.Context, run *domain.ReconciliationRun) error {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()

	query := `INSERT INTO reconciliation_runs
		(id, tenant_id, client_id, file_id, type, period_start, period_end, tolerance, status,
		 is_zero_delta, match_rate, summary, result, warnings, errors, report_key, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := r.db.ExecContext(ctx, query,
		run.ID, run.TenantID, run.ClientID, run.FileID, run.Type, run.PeriodStart, run.PeriodEnd,
		run.Tolerance, run.Status, run.IsZeroDelta, run.MatchRate,
		jsonOr(run.Summary, "{}"), jsonOr(run.Result, "{}"), jsonOr(run.Warnings, "[]"), jsonOr(run.Errors, "[]"),
		run.ReportKey, run.CreatedBy, run.CreatedAt)
	if err != nil {
		return fmt.Errorf("runRepo.Create: %w", err)
	}
	return nil
}

func (r *runRepo) GetByID(ctx context.Context, tenantID, runID uuid.UUID) (*domain.ReconciliationRun, error) {
	var run domain.ReconciliationRun
	err := r.db.GetContext(ctx, &run,
		"SELECT * FROM reconciliation_runs WHERE id = $1 AND tenant_id = $2", runID, tenantID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrRunNotFound
		}
		return nil, fmt.Errorf("runRepo.GetByID: %w", err)
	}
	return &run, nil
}

// listColumns leaves out the result document, which only GetByID loads.
const listColumns = `id, tenant_id, client_id, file_id, type, period_start, period_end, tolerance, status,
	is_zero_delta, match_rate, summary, '{}'::jsonb AS result, warnings, errors, report_key, created_by, created_at`

func (r *runRepo) ListByTenant(ctx context.Context, tenantID uuid.UUID, filter port.RunFilter, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	where := "tenant_id = $1"
	args := []any{tenantID}
	if filter.ClientID != nil {
		where += " AND client_id = $2"
		args = append(args, *filter.ClientID)
	}

	var total int
	err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) FROM reconciliation_runs WHERE "+where, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("runRepo.ListByTenant count: %w", err)
	}

	n := len(args)
	query := fmt.Sprintf(
		"SELECT %s FROM reconciliation_runs WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d",
		listColumns, where, n+1, n+2)
	var runs []domain.ReconciliationRun
	if err := r.db.SelectContext(ctx, &runs, query, append(args, limit, offset)...); err != nil {
		return nil, 0, fmt.Errorf("runRepo.ListByTenant: %w", err)
	}
	return runs, total, nil
}

// jsonOr substitutes def for an empty document; JSONB columns are NOT NULL.
func jsonOr(b []byte, def string) string {
	if len(b) == 0 {
		return def
	}
	return string(b)
}
