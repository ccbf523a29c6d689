package mail

import (
	"context"
	"log/slog"
)

// Sender is the email delivery collaborator. Actual delivery lives
// outside this service; the auth core only needs somewhere to hand a
// message to.
type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes outbound mail to the log instead of the wire. Used
// in development and in tests.
type LogSender struct {
	Logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	l := s.Logger
	if l == nil {
		l = slog.Default()
	}
	l.Info("mail out", "to", to, "subject", subject, "body", body)
	return nil
}
