package job

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"realestate/internal/infrastructure/mq"
	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/service"

	"github.com/IBM/sarama"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	jobAuctionExpiry     = "auction_expiry"
	jobAuctionSettlement = "auction_settlement"
)

// ============================================================================
// Auction expiry
// ============================================================================
//
// Provider (cron): page active auctions past their end time and claim each
// one under its NFT lock:
//
//	BEGIN
//	  UPDATE nft_selling_configs SET status = 'processing' WHERE id = ? AND status = 'active'
//	  INSERT INTO outbox_message (topic = update_expired_offer, key = config id)
//	COMMIT
//
// Holding the lock means the claim never lands in the middle of a seller's
// early end, cancel or a winning bid on the same NFT. Whichever runs second
// sees the config out of active and backs off. A config whose NFT is busy is
// left active for the next pass.
//
// Consumer (Kafka): settle the claimed config. Transient failures are handed
// back to the consumer group for redelivery.
// ============================================================================

// AuctionExpiryProvider moves ended auctions to processing and queues them
// for settlement.
type AuctionExpiryProvider struct {
	stores    *service.Stores
	locker    service.Locker
	topic     string
	batchSize int
	now       func() time.Time
}

func NewAuctionExpiryProvider(stores *service.Stores, locker service.Locker, topic string, batchSize int) *AuctionExpiryProvider {
	if batchSize <= 0 {
		batchSize = 20
	}
	return &AuctionExpiryProvider{
		stores:    stores,
		locker:    locker,
		topic:     topic,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run drains every auction that has ended. Claimed configs leave the active
// status, so each page picks up where the last one stopped.
func (p *AuctionExpiryProvider) Run(ctx context.Context) {
	queued := 0
	for ctx.Err() == nil {
		configs, err := p.stores.Configs.ListExpiredAuctions(ctx, p.now(), p.batchSize)
		if err != nil {
			logger.Error(err, zap.String("job", "AuctionExpiryProvider"))
			return
		}
		if len(configs) == 0 {
			break
		}

		claimed := 0
		for _, cfg := range configs {
			if err := p.enqueue(ctx, cfg); err != nil {
				metrics.JobMessagesTotal.WithLabelValues(jobAuctionExpiry, "error").Inc()
				logger.Warn("[AuctionExpiryProvider] enqueue failed",
					zap.Int64("selling_config_id", cfg.ID), zap.Error(err))
				continue
			}
			metrics.JobMessagesTotal.WithLabelValues(jobAuctionExpiry, "queued").Inc()
			claimed++
		}
		queued += claimed

		// nothing moved, the same page would come back
		if claimed == 0 {
			break
		}
	}

	if queued > 0 {
		logger.Info("[AuctionExpiryProvider] queued expired auctions", zap.Int("count", queued))
	}
}

func (p *AuctionExpiryProvider) enqueue(ctx context.Context, cfg *model.SellingConfig) error {
	msg, err := model.NewOutboxMessage(p.topic, cfg.ID, model.ExpiredAuctionJob{SellingConfigID: cfg.ID})
	if err != nil {
		return err
	}

	unlock, err := p.locker.Lock(ctx, cfg.NFTID)
	if err != nil {
		return fmt.Errorf("lock nft %d: %w", cfg.NFTID, err)
	}
	defer unlock()

	return p.stores.DB.Transaction(func(tx *gorm.DB) error {
		err := p.stores.Configs.UpdateStatus(ctx, tx, cfg.ID,
			model.SellingConfigStatusActive, model.SellingConfigStatusProcessing)
		if err != nil {
			return fmt.Errorf("claim config: %w", err)
		}
		if err := p.stores.Outbox.Create(ctx, tx, msg); err != nil {
			return fmt.Errorf("write outbox message: %w", err)
		}
		return nil
	})
}

// AuctionSettler is satisfied by *service.MarketService.
type AuctionSettler interface {
	SettleExpiredAuction(ctx context.Context, configID int64) error
}

// AuctionExpiryConsumer settles the auctions queued by the provider.
type AuctionExpiryConsumer struct {
	settler AuctionSettler
}

func NewAuctionExpiryConsumer(settler AuctionSettler) *AuctionExpiryConsumer {
	return &AuctionExpiryConsumer{settler: settler}
}

// Handle is an mq.HandlerFunc.
func (c *AuctionExpiryConsumer) Handle(ctx context.Context, msg *sarama.ConsumerMessage) error {
	var job model.ExpiredAuctionJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		metrics.JobMessagesTotal.WithLabelValues(jobAuctionSettlement, "invalid").Inc()
		return fmt.Errorf("decode expired auction job: %w", err)
	}

	if err := c.settler.SettleExpiredAuction(ctx, job.SellingConfigID); err != nil {
		if errors.Is(err, service.ErrSettlementDeferred) {
			metrics.JobMessagesTotal.WithLabelValues(jobAuctionSettlement, "deferred").Inc()
			return mq.Retry(err)
		}
		metrics.JobMessagesTotal.WithLabelValues(jobAuctionSettlement, "error").Inc()
		return err
	}

	metrics.JobMessagesTotal.WithLabelValues(jobAuctionSettlement, "done").Inc()
	return nil
}
