package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"recontab/internal/domain"
)

// MockSourceRecordRepo is a mock implementation of port.SourceRecordRepository.
type MockSourceRecordRepo struct {
	mock.Mock
}

func (m *MockSourceRecordRepo) ListInvoices(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceInvoice, error) {
	args := m.Called(ctx, tenantID, clientID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceInvoice), args.Error(1)
}

func (m *MockSourceRecordRepo) ListWithholdings(ctx context.Context, tenantID, clientID uuid.UUID, period domain.Period) ([]domain.SourceWithholding, error) {
	args := m.Called(ctx, tenantID, clientID, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SourceWithholding), args.Error(1)
}
