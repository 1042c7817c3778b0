package notification

import (
	"context"
	"log/slog"

	"messenger/domain"
)

// LogNotifier only logs notifications. It is used when no SMTP relay is configured.
type LogNotifier struct {
	log *slog.Logger
}

func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n domain.Notification) error {
	l.log.Info("New message notification",
		"message_id", n.MessageID,
		"to", n.RecipientEmail,
		"from", n.SenderName,
		"subject", mailSubject(n))
	return nil
}
