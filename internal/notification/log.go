package notification

import (
	"context"

	"growly/internal/pkg/logger"
)

// LogSender writes messages to the log instead of sending them. Used in
// development when no mail transport is configured.
type LogSender struct {
	log logger.Logger
}

func NewLogSender(log logger.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Channel() string { return ChannelLog }

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.Info("email not sent (no transport configured)",
		"to", msg.To,
		"subject", msg.Subject,
		"body", msg.Text,
	)
	return nil
}
