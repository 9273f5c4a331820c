package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"recontab/internal/domain"
	"recontab/internal/port"
)

type sourceRecordRepo struct {
	db *sqlx.DB
}

// NewSourceRecordRepo creates a new PostgreSQL-backed SourceRecordRepository.
func NewSourceRecordRepo(db *sqlx.DB) port.SourceRecordRepository {
	return &sourceRecordRepo{db: db}
}

// ListInvoices returns the client's invoices dated inside the period, oldest first.
func (r *sourceRecordRepo) ListInvoices(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceInvoice, error) {
	invoices := []domain.SourceInvoice{}
	err := r.db.SelectContext(ctx, &invoices,
		`SELECT id, counterparty_nif, counterparty_name, document_date, direction,
		        total_amount, vat_standard, vat_intermediate, vat_reduced
		 FROM invoices
		 WHERE tenant_id = $1 AND client_id = $2 AND document_date BETWEEN $3 AND $4
		 ORDER BY document_date ASC, id ASC`,
		tenantID, clientID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("sourceRecordRepo.ListInvoices: %w", err)
	}
	return invoices, nil
}

// ListWithholdings returns the client's withholding lines paid inside the period, oldest first.
func (r *sourceRecordRepo) ListWithholdings(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceWithholding, error) {
	lines := []domain.SourceWithholding{}
	err := r.db.SelectContext(ctx, &lines,
		`SELECT id, beneficiary_nif, beneficiary_name, payment_date, income_category,
		        gross_amount, withholding_amount
		 FROM withholdings
		 WHERE tenant_id = $1 AND client_id = $2 AND payment_date BETWEEN $3 AND $4
		 ORDER BY payment_date ASC, id ASC`,
		tenantID, clientID, period.Start, period.End)
	if err != nil {
		return nil, fmt.Errorf("sourceRecordRepo.ListWithholdings: %w", err)
	}
	return lines, nil
}
