package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mikey/authenticity-guardian/internal/config"
	"github.com/mikey/authenticity-guardian/internal/core"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// redisMessage is the payload published for each notification
type redisMessage struct {
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
}

// RedisSender publishes notifications to a Redis channel
type RedisSender struct {
	client  *redis.Client
	channel string
	logger  *zap.Logger
}

// NewRedisSender connects to Redis and returns a publisher for channel
func NewRedisSender(cfg config.RedisConfig, channel string, logger *zap.Logger) (*RedisSender, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisSender{
		client:  client,
		channel: channel,
		logger:  logger,
	}, nil
}

// Send publishes the notification as JSON
func (s *RedisSender) Send(ctx context.Context, n *core.Notification) error {
	msgJSON, err := json.Marshal(redisMessage{
		Subject:   n.Subject,
		Body:      n.Body,
		Timestamp: time.Now().Unix(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	receivers, err := s.client.Publish(ctx, s.channel, msgJSON).Result()
	if err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	s.logger.Debug("Published notification", zap.String("channel", s.channel), zap.Int64("receivers", receivers))
	return nil
}

// Close closes the Redis connection
func (s *RedisSender) Close() error {
	return s.client.Close()
}
