package repository

import (
	"context"
	"time"

	"realestate/internal/model"

	"gorm.io/gorm"
)

// OutboxRepository stores queued jobs until the relay publishes them.
type OutboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{db: db}
}

// Create enqueues msg, inside tx when the caller is mid transaction.
func (r *OutboxRepository) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Create(msg).Error
}

// GetPendingMessages returns the oldest unpublished jobs first.
func (r *OutboxRepository) GetPendingMessages(ctx context.Context, limit int) ([]*model.OutboxMessage, error) {
	var messages []*model.OutboxMessage
	err := r.db.WithContext(ctx).
		Where("status = ?", model.OutboxStatusPending).
		Order("id ASC").
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	now := time.Now()
	return r.pending(ctx, id).Updates(map[string]interface{}{
		"status":     model.OutboxStatusSent,
		"sent_at":    &now,
		"last_error": "",
	}).Error
}

// IncrementRetryCount records a failed publish and leaves the job pending.
func (r *OutboxRepository) IncrementRetryCount(ctx context.Context, id int64, cause string) error {
	return r.pending(ctx, id).Updates(map[string]interface{}{
		"retry_count": gorm.Expr("retry_count + 1"),
		"last_error":  cause,
	}).Error
}

// MarkAsFailed records the last failed publish and parks the job.
func (r *OutboxRepository) MarkAsFailed(ctx context.Context, id int64, cause string) error {
	return r.pending(ctx, id).Updates(map[string]interface{}{
		"status":      model.OutboxStatusFailed,
		"retry_count": gorm.Expr("retry_count + 1"),
		"last_error":  cause,
	}).Error
}

// pending scopes a write to a job the relay still owns.
func (r *OutboxRepository) pending(ctx context.Context, id int64) *gorm.DB {
	return r.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("id = ? AND status = ?", id, model.OutboxStatusPending)
}
