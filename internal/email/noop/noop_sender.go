package noop

import (
	"context"

	"go.uber.org/zap"

	"reportverify/internal/domain"
	"reportverify/internal/email"
	"reportverify/internal/port"
)

type noopSender struct {
	appURL string
	logger *zap.Logger
}

// NewNoopSender creates a Notifier that logs run reports instead of sending them.
func NewNoopSender(appURL string, logger *zap.Logger) port.Notifier {
	return &noopSender{appURL: appURL, logger: logger}
}

func (s *noopSender) SendRunReport(_ context.Context, toEmail string, run *domain.VerificationRun) error {
	msg := email.RunReport(run, s.appURL)
	s.logger.Info("noop email: run report",
		zap.String("to", toEmail),
		zap.String("subject", msg.Subject),
		zap.Stringer("run_id", run.ID),
	)
	return nil
}
