package email

import (
	"context"
	"log/slog"
)

// LogSender stands in for Client when Postmark is not configured. It logs
// the token instead of emailing it, which is only acceptable outside
// production.
type LogSender struct {
	logger *slog.Logger
}

func NewLogSender(logger *slog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) SendConfirmation(ctx context.Context, to Recipient, token string) error {
	s.logger.InfoContext(ctx, "email not configured, confirmation token generated", "email", to.Email, "token", token)
	return nil
}

func (s *LogSender) SendPasswordReset(ctx context.Context, to Recipient, token string) error {
	s.logger.InfoContext(ctx, "email not configured, password reset token generated", "email", to.Email, "token", token)
	return nil
}
