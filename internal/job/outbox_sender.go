package job

import (
	"context"
	"time"

	"realestate/internal/logger"
	"realestate/internal/model"

	"go.uber.org/zap"
)

// OutboxRelayStore is the part of the outbox repository the relay drives.
type OutboxRelayStore interface {
	GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error)
	MarkSent(ctx context.Context, id int64) error
	IncrementRetryCount(ctx context.Context, id int64, cause string) error
	MarkAsFailed(ctx context.Context, id int64, cause string) error
}

// Publisher is satisfied by *mq.Producer.
type Publisher interface {
	SendMessage(topic, key, value string) error
}

// OutboxSender relays pending outbox rows to Kafka.
type OutboxSender struct {
	outbox     OutboxRelayStore
	publisher  Publisher
	maxRetries int
	stopCh     chan struct{}
	interval   time.Duration
	batchSize  int
}

func NewOutboxSender(outbox OutboxRelayStore, publisher Publisher, maxRetries int) *OutboxSender {
	return &OutboxSender{
		outbox:     outbox,
		publisher:  publisher,
		maxRetries: maxRetries,
		stopCh:     make(chan struct{}),
		interval:   100 * time.Millisecond,
		batchSize:  100,
	}
}

func (s *OutboxSender) Start(ctx context.Context) {
	logger.Info("[OutboxSender] started")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("[OutboxSender] context done, exiting")
			return
		case <-s.stopCh:
			logger.Info("[OutboxSender] stopped")
			return
		case <-ticker.C:
			s.processPendingMessages(ctx)
		}
	}
}

func (s *OutboxSender) Stop() {
	close(s.stopCh)
}

func (s *OutboxSender) processPendingMessages(ctx context.Context) {
	messages, err := s.outbox.GetPendingMessages(ctx, s.batchSize)
	if err != nil {
		logger.Error(err, zap.String("job", "OutboxSender"))
		return
	}

	for _, msg := range messages {
		s.sendMessage(ctx, msg)
	}
}

func (s *OutboxSender) sendMessage(ctx context.Context, msg *model.OutboxMessage) {
	err := s.publisher.SendMessage(msg.Topic, msg.MessageKey, msg.Payload)
	if err == nil {
		if err := s.outbox.MarkSent(ctx, msg.ID); err != nil {
			logger.Error(err, zap.String("job", "OutboxSender"), zap.Int64("id", msg.ID))
			return
		}
		logger.Debug("[OutboxSender] message sent",
			zap.Int64("id", msg.ID),
			zap.String("topic", msg.Topic),
			zap.String("key", msg.MessageKey))
		return
	}

	logger.Warn("[OutboxSender] send failed", zap.Int64("id", msg.ID), zap.Error(err))
	cause := model.TruncateOutboxError(err)

	if msg.RetryCount+1 >= s.maxRetries {
		if err := s.outbox.MarkAsFailed(ctx, msg.ID, cause); err != nil {
			logger.Error(err, zap.String("job", "OutboxSender"), zap.Int64("id", msg.ID))
			return
		}
		logger.Warn("[OutboxSender] retries exhausted, marked failed", zap.Int64("id", msg.ID))
		return
	}

	if err := s.outbox.IncrementRetryCount(ctx, msg.ID, cause); err != nil {
		logger.Error(err, zap.String("job", "OutboxSender"), zap.Int64("id", msg.ID))
	}
}
