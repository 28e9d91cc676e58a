package factory

import (
	"fmt"

	"github.com/mikey/authenticity-guardian/internal/adapters/notify"
	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"go.uber.org/zap"
)

// NotifierFactory creates notification senders based on configuration
type NotifierFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewNotifierFactory creates a new notifier factory
func NewNotifierFactory(cfg *config.Config, logger *zap.Logger) *NotifierFactory {
	return &NotifierFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateNotifier creates a notification sender. It returns nil when
// notifications are turned off.
func (f *NotifierFactory) CreateNotifier() (core.NotificationSender, error) {
	notifyType := f.cfg.GetString("notify.type")
	f.logger.Info("Creating notifier", zap.String("type", notifyType))

	switch notifyType {
	case "none":
		return nil, nil
	case "log":
		return notify.NewLogSender(f.logger), nil
	case "smtp":
		s, err := notify.NewSMTPSender(f.cfg.GetSMTP(), f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case "redis":
		s, err := notify.NewRedisSender(f.cfg.GetNotifyRedis(), f.cfg.GetString("notify.redis.channel"), f.logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported notifier type: %s", notifyType)
	}
}
