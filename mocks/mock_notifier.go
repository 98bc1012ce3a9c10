package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"reportverify/internal/domain"
)

// MockNotifier is a mock implementation of port.Notifier.
type MockNotifier struct {
	mock.Mock
}

func (m *MockNotifier) SendRunReport(ctx context.Context, toEmail string, run *domain.VerificationRun) error {
	args := m.Called(ctx, toEmail, run)
	return args.Error(0)
}
