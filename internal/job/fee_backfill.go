package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/service"

	"github.com/IBM/sarama"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobFeeBackfill = "fee_backfill"
	jobFeeUpdate   = "fee_update"

	// ZeroFee is written for records whose account paid no gas.
	ZeroFee = "0"
)

var errEmptyFee = errors.New("ledger returned no fee")

// FeeBackfillProvider stamps new records with the default fee and queues
// them for the real one.
type FeeBackfillProvider struct {
	stores     *service.Stores
	topic      string
	batchSize  int
	defaultFee string
}

func NewFeeBackfillProvider(stores *service.Stores, topic string, batchSize int, defaultFee string) *FeeBackfillProvider {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &FeeBackfillProvider{
		stores:     stores,
		topic:      topic,
		batchSize:  batchSize,
		defaultFee: defaultFee,
	}
}

// Run drains every record without a fee.
func (p *FeeBackfillProvider) Run(ctx context.Context) {
	queued := 0
	for ctx.Err() == nil {
		records, err := p.stores.Transactions.ListMissingFee(ctx, p.batchSize)
		if err != nil {
			logger.Error(err, zap.String("job", "FeeBackfillProvider"))
			return
		}
		if len(records) == 0 {
			break
		}

		claimed := 0
		for _, t := range records {
			if err := p.enqueue(ctx, t); err != nil {
				metrics.JobMessagesTotal.WithLabelValues(jobFeeBackfill, "error").Inc()
				logger.Warn("[FeeBackfillProvider] enqueue failed",
					zap.Int64("transaction_id", t.ID), zap.Error(err))
				continue
			}
			metrics.JobMessagesTotal.WithLabelValues(jobFeeBackfill, "queued").Inc()
			claimed++
		}
		queued += claimed

		if claimed == 0 {
			break
		}
	}

	if queued > 0 {
		logger.Info("[FeeBackfillProvider] queued fee lookups", zap.Int("count", queued))
	}
}

func (p *FeeBackfillProvider) enqueue(ctx context.Context, t *model.Transaction) error {
	msg, err := model.NewOutboxMessage(p.topic, t.ID, model.TransactionFeeJob{TransactionID: t.ID})
	if err != nil {
		return err
	}

	return p.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := p.stores.Transactions.UpdateGasFee(ctx, tx, t.ID, t.TransactionType, p.defaultFee); err != nil {
			return fmt.Errorf("set default fee: %w", err)
		}
		if err := p.stores.Outbox.Create(ctx, tx, msg); err != nil {
			return fmt.Errorf("write outbox message: %w", err)
		}
		return nil
	})
}

// FeeLookup is satisfied by *ledger.Client.
type FeeLookup interface {
	TransactionFee(ctx context.Context, txID string) (string, error)
}

// FeeRecordStore is the part of the transaction repository the consumer needs.
type FeeRecordStore interface {
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	UpdateGasFee(ctx context.Context, tx *gorm.DB, id int64, txType model.TransactionType, fee string) error
}

// FeeBackfillConsumer replaces the default fee with the one the ledger charged.
type FeeBackfillConsumer struct {
	records    FeeRecordStore
	ledger     FeeLookup
	attempts   int
	retryDelay time.Duration
}

func NewFeeBackfillConsumer(records FeeRecordStore, l FeeLookup) *FeeBackfillConsumer {
	return &FeeBackfillConsumer{
		records:    records,
		ledger:     l,
		attempts:   5,
		retryDelay: time.Second,
	}
}

// Handle is an mq.HandlerFunc.
func (c *FeeBackfillConsumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var job model.TransactionFeeJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		metrics.JobMessagesTotal.WithLabelValues(jobFeeUpdate, "invalid").Inc()
		return fmt.Errorf("decode fee job: %w", err)
	}

	t, err := c.records.GetByID(ctx, job.TransactionID)
	if err != nil {
		metrics.JobMessagesTotal.WithLabelValues(jobFeeUpdate, "error").Inc()
		return fmt.Errorf("get transaction %d: %w", job.TransactionID, err)
	}

	txType, fee, ok := c.resolve(ctx, t)
	if !ok {
		metrics.JobMessagesTotal.WithLabelValues(jobFeeUpdate, "kept_default").Inc()
		return nil
	}
	if err := c.records.UpdateGasFee(ctx, nil, t.ID, txType, fee); err != nil {
		metrics.JobMessagesTotal.WithLabelValues(jobFeeUpdate, "error").Inc()
		return fmt.Errorf("update fee of transaction %d: %w", t.ID, err)
	}

	metrics.JobMessagesTotal.WithLabelValues(jobFeeUpdate, "done").Inc()
	return nil
}

// resolve picks the billed type and fee of t. ok is false when the ledger
// never answered and the default fee should stay.
func (c *FeeBackfillConsumer) resolve(ctx context.Context, t *model.Transaction) (model.TransactionType, string, bool) {
	if base, isNoFee := t.TransactionType.BaseType(); isNoFee {
		return base, ZeroFee, true
	}
	if !t.Status || t.TransactionType.IsReceiveSide() {
		return t.TransactionType, ZeroFee, true
	}

	fee, err := c.lookup(ctx, t.TransactionID)
	if err != nil {
		logger.WarnCtx(ctx, "[FeeBackfillConsumer] fee lookup failed, keeping default",
			zap.Int64("id", t.ID),
			zap.String("transaction_id", t.TransactionID),
			zap.Error(err))
		return t.TransactionType, "", false
	}
	return t.TransactionType, fee, true
}

func (c *FeeBackfillConsumer) lookup(ctx context.Context, txID string) (string, error) {
	var fee string
	op := func() error {
		var err error
		fee, err = c.ledger.TransactionFee(ctx, txID)
		if err != nil {
			return err
		}
		if fee == "" {
			return errEmptyFee
		}
		return nil
	}

	attempts := c.attempts
	if attempts < 1 {
		attempts = 1
	}
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.retryDelay), uint64(attempts-1)),
		ctx,
	)
	if err := backoff.Retry(op, policy); err != nil {
		return "", err
	}
	return fee, nil
}
