package port

import (
	"context"

	"github.com/google/uuid"

	"recontab/internal/domain"
)

// TenantRepository defines the contract for tenant lookups.
type TenantRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Tenant, error)
	GetBySlug(ctx context.Context, slug string) (*domain.Tenant, error)
}

// UserRepository defines the contract for user lookups.
// All query methods include tenantID to enforce tenant isolation at the data layer.
type UserRepository interface {
	GetByID(ctx context.Context, tenantID, userID uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, tenantID uuid.UUID, email string) (*domain.User, error)
}

// ClientRepository defines the contract for client persistence.
type ClientRepository interface {
	Create(ctx context.Context, client *domain.Client) error
	GetByID(ctx context.Context, tenantID, clientID uuid.UUID) (*domain.Client, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, offset, limit int) ([]domain.Client, int, error)
}

// SourceRecordRepository reads the documents the system already holds for
// a client. These form the extracted side of a reconciliation.
type SourceRecordRepository interface {
	ListInvoices(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceInvoice, error)
	ListWithholdings(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceWithholding, error)
}

// FileMetaRepository defines the contract for file metadata persistence.
// All query methods include tenantID for tenant isolation.
type FileMetaRepository interface {
	Create(ctx context.Context, meta *domain.FileMeta) error
	GetByID(ctx context.Context, tenantID, fileID uuid.UUID) (*domain.FileMeta, error)
	UpdateStatus(ctx context.Context, tenantID, fileID uuid.UUID, status domain.FileStatus) error
}

// RunFilter narrows a run listing. A nil ClientID lists every client.
type RunFilter struct {
	ClientID *uuid.UUID
}

// RunRepository defines the contract for reconciliation run persistence.
type RunRepository interface {
	Create(ctx context.Context, run *domain.ReconciliationRun) error
	GetByID(ctx context.Context, tenantID, runID uuid.UUID) (*domain.ReconciliationRun, error)
	ListByTenant(ctx context.Context, tenantID uuid.UUID, filter RunFilter, offset, limit int) ([]domain.ReconciliationRun, int, error)
}
