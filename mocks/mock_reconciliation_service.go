package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"recontab/internal/domain"
	"recontab/internal/service"
)

// MockReconciliationService is a mock implementation of service.ReconciliationService.
type MockReconciliationService struct {
	mock.Mock
}

func (m *MockReconciliationService) Run(ctx context.Context, input service.RunInput) (*domain.ReconciliationRun, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationRun), args.Error(1)
}

func (m *MockReconciliationService) Get(ctx context.Context, tenantID, runID uuid.UUID) (*domain.ReconciliationRun, error) {
	args := m.Called(ctx, tenantID, runID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ReconciliationRun), args.Error(1)
}

func (m *MockReconciliationService) List(ctx context.Context, tenantID uuid.UUID, clientID *uuid.UUID, offset, limit int) ([]domain.ReconciliationRun, int, error) {
	args := m.Called(ctx, tenantID, clientID, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.ReconciliationRun), args.Int(1), args.Error(2)
}

func (m *MockReconciliationService) Export(ctx context.Context, tenantID, runID uuid.UUID, format domain.ReportFormat) (*service.ExportedReport, error) {
	args := m.Called(ctx, tenantID, runID, format)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.ExportedReport), args.Error(1)
}
