package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tenant represents an accounting firm using the service.
type Tenant struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Slug      string    `db:"slug" json:"slug"`
	IsActive  bool      `db:"is_active" json:"is_active"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// User represents an accountant belonging to a tenant.
type User struct {
	ID           uuid.UUID `db:"id" json:"id"`
	TenantID     uuid.UUID `db:"tenant_id" json:"tenant_id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	FullName     string    `db:"full_name" json:"full_name"`
	Role         UserRole  `db:"role" json:"role"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// Client is a company whose books the tenant keeps.
type Client struct {
	ID        uuid.UUID `db:"id" json:"id"`
	TenantID  uuid.UUID `db:"tenant_id" json:"tenant_id"`
	NIF       string    `db:"nif" json:"nif"`
	Name      string    `db:"name" json:"name"`
	Email     string    `db:"email" json:"email"`
	CreatedBy uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FileMeta stores metadata about an uploaded reference file.
type FileMeta struct {
	ID           uuid.UUID  `db:"id" json:"id"`
	TenantID     uuid.UUID  `db:"tenant_id" json:"tenant_id"`
	UploadedBy   uuid.UUID  `db:"uploaded_by" json:"uploaded_by"`
	FileName     string     `db:"file_name" json:"file_name"`
	OriginalName string     `db:"original_name" json:"original_name"`
	FileType     FileType   `db:"file_type" json:"file_type"`
	FileSize     int64      `db:"file_size" json:"file_size"`
	S3Bucket     string     `db:"s3_bucket" json:"s3_bucket"`
	S3Key        string     `db:"s3_key" json:"s3_key"`
	ContentType  string     `db:"content_type" json:"content_type"`
	Status       FileStatus `db:"status" json:"status"`
	CreatedAt    time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time  `db:"updated_at" json:"updated_at"`
}

// Period is an inclusive date range.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether both bounds are set and Start is not after End.
func (p Period) Valid() bool {
	return !p.Start.IsZero() && !p.End.IsZero() && !p.Start.After(p.End)
}

// SourceInvoice is an invoice the system already holds for a client, as read for IVA reconciliation.
type SourceInvoice struct {
	ID               uuid.UUID        `db:"id"`
	CounterpartyNIF  string           `db:"counterparty_nif"`
	CounterpartyName string           `db:"counterparty_name"`
	DocumentDate     *time.Time       `db:"document_date"`
	Direction        InvoiceDirection `db:"direction"`
	TotalAmount      decimal.Decimal  `db:"total_amount"`
	VATStandard      decimal.Decimal  `db:"vat_standard"`
	VATIntermediate  decimal.Decimal  `db:"vat_intermediate"`
	VATReduced       decimal.Decimal  `db:"vat_reduced"`
}

// SourceWithholding is a withholding line the system holds for a client, as read for Modelo 10 reconciliation.
type SourceWithholding struct {
	ID                uuid.UUID       `db:"id"`
	BeneficiaryNIF    string          `db:"beneficiary_nif"`
	BeneficiaryName   string          `db:"beneficiary_name"`
	PaymentDate       *time.Time      `db:"payment_date"`
	IncomeCategory    string          `db:"income_category"`
	GrossAmount       decimal.Decimal `db:"gross_amount"`
	WithholdingAmount decimal.Decimal `db:"withholding_amount"`
}

// ReconciliationRun is the persisted outcome of one reconciliation.
// Result holds the full engine output as JSON and is empty for failed runs.
type ReconciliationRun struct {
	ID          uuid.UUID          `db:"id" json:"id"`
	TenantID    uuid.UUID          `db:"tenant_id" json:"tenant_id"`
	ClientID    uuid.UUID          `db:"client_id" json:"client_id"`
	FileID      *uuid.UUID         `db:"file_id" json:"file_id,omitempty"`
	Type        ReconciliationType `db:"type" json:"type"`
	PeriodStart time.Time          `db:"period_start" json:"period_start"`
	PeriodEnd   time.Time          `db:"period_end" json:"period_end"`
	Tolerance   decimal.Decimal    `db:"tolerance" json:"tolerance"`
	Status      RunStatus          `db:"status" json:"status"`
	IsZeroDelta bool               `db:"is_zero_delta" json:"is_zero_delta"`
	MatchRate   int                `db:"match_rate" json:"match_rate"`
	Summary     json.RawMessage    `db:"summary" json:"summary,omitempty"`
	Result      json.RawMessage    `db:"result" json:"result,omitempty"`
	Warnings    json.RawMessage    `db:"warnings" json:"warnings,omitempty"`
	Errors      json.RawMessage    `db:"errors" json:"errors,omitempty"`
	ReportKey   string             `db:"report_key" json:"-"`
	CreatedBy   uuid.UUID          `db:"created_by" json:"created_by"`
	CreatedAt   time.Time          `db:"created_at" json:"created_at"`
}
