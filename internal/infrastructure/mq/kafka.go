package mq

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realestate/internal/config"
	"realestate/internal/logger"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
)

// Producer publishes job messages.
type Producer struct {
	producer sarama.SyncProducer
}

func NewProducer(cfg *config.KafkaConfig) (*Producer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Producer.RequiredAcks = sarama.WaitForAll
	kafkaConfig.Producer.Retry.Max = 3
	kafkaConfig.Producer.Return.Successes = true

	producer, err := sarama.NewSyncProducer(cfg.Brokers, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}

	logger.Info("kafka producer created", zap.Strings("brokers", cfg.Brokers))
	return &Producer{producer: producer}, nil
}

// NewProducerFrom wraps an existing sarama producer.
func NewProducerFrom(p sarama.SyncProducer) *Producer {
	return &Producer{producer: p}
}

func (p *Producer) SendMessage(topic, key, value string) error {
	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.StringEncoder(value),
	}

	_, _, err := p.producer.SendMessage(msg)
	return err
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// ============================================================================
// Consumer group
// ============================================================================
//
// A partition is handled one message at a time, in offset order. After the
// handler returns:
//   - nil: mark and move on.
//   - an error: log, mark and move on. The handler has already recorded its
//     own failure state, e.g. a config moved to failed.
//   - an error wrapping ErrRetry: run the same message again with backoff
//     until it clears or the session ends. It is never marked.
//
// Marking commits the offset, and committing a later offset would skip an
// unmarked one. A retryable message therefore blocks its partition. If the
// session ends first, the group redelivers it.
// ============================================================================

// ErrRetry tells the consumer a message failed for a transient reason.
var ErrRetry = errors.New("retry later")

// Retry wraps err so the consumer redelivers the message.
func Retry(err error) error {
	return fmt.Errorf("%w: %w", ErrRetry, err)
}

// HandlerFunc processes one message.
type HandlerFunc func(ctx context.Context, msg *sarama.ConsumerMessage) error

type Consumer struct {
	group   sarama.ConsumerGroup
	topic   string
	handler *groupHandler
}

func NewConsumer(cfg *config.KafkaConfig, topic string, name string, fn HandlerFunc) (*Consumer, error) {
	kafkaConfig := sarama.NewConfig()
	kafkaConfig.Consumer.Offsets.Initial = sarama.OffsetOldest
	kafkaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID+"-"+name, kafkaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer group: %w", err)
	}

	return &Consumer{
		group:   group,
		topic:   topic,
		handler: newGroupHandler(name, fn),
	}, nil
}

// Run consumes until ctx is cancelled, rejoining the group after rebalances.
func (c *Consumer) Run(ctx context.Context) error {
	logger.Info(fmt.Sprintf("[%s] consumer started", c.handler.name), zap.String("topic", c.topic))
	for {
		err := c.group.Consume(ctx, []string{c.topic}, c.handler)
		if errors.Is(err, sarama.ErrClosedConsumerGroup) {
			return nil
		}
		if err != nil {
			logger.Error(err, zap.String("job", c.handler.name))
		}
		if ctx.Err() != nil {
			logger.Info(fmt.Sprintf("[%s] consumer stopped", c.handler.name))
			return nil
		}
	}
}

func (c *Consumer) Close() error {
	return c.group.Close()
}

type groupHandler struct {
	name    string
	fn      HandlerFunc
	backOff func() backoff.BackOff
}

func newGroupHandler(name string, fn HandlerFunc) *groupHandler {
	return &groupHandler{
		name: name,
		fn:   fn,
		backOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 500 * time.Millisecond
			b.MaxInterval = 30 * time.Second
			b.MaxElapsedTime = 0
			return b
		},
	}
}

func (h *groupHandler) Setup(sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case msg, ok := <-claim.Messages():
			if !ok {
				return nil
			}
			if !h.handle(session.Context(), msg) {
				return nil
			}
			session.MarkMessage(msg, "")
		case <-session.Context().Done():
			return nil
		}
	}
}

// handle runs fn on msg and reports whether msg may be marked.
func (h *groupHandler) handle(ctx context.Context, msg *sarama.ConsumerMessage) bool {
	var last error
	attempt := 0
	op := func() error {
		attempt++
		last = h.fn(ctx, msg)
		if last != nil && !errors.Is(last, ErrRetry) {
			return backoff.Permanent(last)
		}
		return last
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn(fmt.Sprintf("[%s] message deferred", h.name),
			zap.String("key", string(msg.Key)),
			zap.Int64("offset", msg.Offset),
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
	}

	if err := backoff.RetryNotify(op, backoff.WithContext(h.backOff(), ctx), notify); err == nil {
		return true
	}
	if errors.Is(last, ErrRetry) {
		// session ended while the message was still deferred
		return false
	}
	logger.Error(last,
		zap.String("job", h.name),
		zap.String("key", string(msg.Key)),
		zap.Int64("offset", msg.Offset))
	return true
}
