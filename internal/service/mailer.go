package service

import (
	"context"
	"log/slog"
)

// Mailer delivers verification links.
type Mailer interface {
	SendVerification(ctx context.Context, to, link string) error
}

// LogMailer writes the link to the log instead of sending mail. It is the
// only Mailer the server ships with; local development reads links from the
// console.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (m *LogMailer) SendVerification(ctx context.Context, to, link string) error {
	m.logger.InfoContext(ctx, "verification email",
		slog.String("to", to),
		slog.String("link", link),
	)
	return nil
}
