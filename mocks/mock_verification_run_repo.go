package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"reportverify/internal/domain"
)

// MockVerificationRunRepo is a mock implementation of port.VerificationRunRepository.
type MockVerificationRunRepo struct {
	mock.Mock
}

func (m *MockVerificationRunRepo) Create(ctx context.Context, run *domain.VerificationRun) error {
	args := m.Called(ctx, run)
	return args.Error(0)
}

func (m *MockVerificationRunRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRun), args.Error(1)
}

func (m *MockVerificationRunRepo) List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.VerificationRun), args.Int(1), args.Error(2)
}

func (m *MockVerificationRunRepo) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
