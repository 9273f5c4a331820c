package port

import (
	"context"

	"github.com/google/uuid"

	"recontab/internal/domain"
	"recontab/internal/reconcile"
)

// ReportEmail is the notification sent when a run completes.
type ReportEmail struct {
	ToEmail    string
	ToName     string
	RunID      uuid.UUID
	ClientName string
	Type       domain.ReconciliationType
	Period     domain.Period
	Summary    reconcile.Summary
	ReportURL  string
}

// EmailSender defines the contract for sending emails.
type EmailSender interface {
	SendReconciliationReport(ctx context.Context, msg ReportEmail) error
}
