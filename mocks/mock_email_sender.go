package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"recontab/internal/port"
)

// MockEmailSender is a mock implementation of port.EmailSender.
type MockEmailSender struct {
	mock.Mock
}

func (m *MockEmailSender) SendReconciliationReport(ctx context.Context, msg port.ReportEmail) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}
