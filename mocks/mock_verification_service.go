package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"reportverify/internal/domain"
	"reportverify/internal/service"
)

// MockVerificationService is a mock implementation of service.VerificationService.
type MockVerificationService struct {
	mock.Mock
}

func (m *MockVerificationService) VerifyUpload(ctx context.Context, input service.VerifyUploadInput) (*domain.VerificationRun, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRun), args.Error(1)
}

func (m *MockVerificationService) VerifyStored(ctx context.Context, input service.VerifyStoredInput) (*domain.VerificationRun, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRun), args.Error(1)
}

func (m *MockVerificationService) Get(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.VerificationRun), args.Error(1)
}

func (m *MockVerificationService) List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.VerificationRun), args.Int(1), args.Error(2)
}

func (m *MockVerificationService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockVerificationService) SourceURL(ctx context.Context, id uuid.UUID, kind domain.SourceKind) (string, error) {
	args := m.Called(ctx, id, kind)
	return args.String(0), args.Error(1)
}
