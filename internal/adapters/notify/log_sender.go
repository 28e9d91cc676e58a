package notify

import (
	"context"

	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// LogSender writes notifications to the application log
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a new log sender
func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger}
}

// Send logs the notification at warn level
func (s *LogSender) Send(ctx context.Context, n *core.Notification) error {
	s.logger.Warn("High risk listing notification",
		zap.String("subject", n.Subject),
		zap.String("body", n.Body))
	return nil
}
