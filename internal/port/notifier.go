package port

import (
	"context"

	"reportverify/internal/domain"
)

// Notifier delivers the outcome of a verification run to a person.
type Notifier interface {
	SendRunReport(ctx context.Context, toEmail string, run *domain.VerificationRun) error
}
