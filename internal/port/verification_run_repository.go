package port

import (
	"context"

	"github.com/google/uuid"

	"reportverify/internal/domain"
)

// VerificationRunRepository defines the contract for verification run persistence.
// Runs are immutable once created.
type VerificationRunRepository interface {
	Create(ctx context.Context, run *domain.VerificationRun) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.VerificationRun, error)
	List(ctx context.Context, filter domain.RunFilter) ([]domain.VerificationRun, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
