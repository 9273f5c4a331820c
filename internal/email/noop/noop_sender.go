package noop

import (
	"context"

	"go.uber.org/zap"

	"recontab/internal/email"
	"recontab/internal/port"
)

type noopSender struct {
	frontendURL string
	log         *zap.Logger
}

// NewNoopSender creates an EmailSender that only logs what it would send.
func NewNoopSender(frontendURL string, log *zap.Logger) port.EmailSender {
	return &noopSender{frontendURL: frontendURL, log: log}
}

func (s *noopSender) SendReconciliationReport(_ context.Context, msg port.ReportEmail) error {
	content := email.BuildReportContent(msg, s.frontendURL)
	s.log.Info("noop email: reconciliation report",
		zap.String("to", msg.ToEmail),
		zap.String("subject", content.Subject),
		zap.String("run_id", msg.RunID.String()),
		zap.String("run_url", email.RunURL(s.frontendURL, msg)),
	)
	return nil
}
