package repository

import (
	"context"
	"errors"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

func (r *BidRepository) Create(ctx context.Context, tx *gorm.DB, bid *model.Bid) error {
	if tx == nil {
		tx = r.db
	}
	if bid.ID == 0 {
		bid.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(bid).Error
}

// GetWinning returns the highest bid on a config, or nil when there is none.
func (r *BidRepository) GetWinning(ctx context.Context, configID int64) (*model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("selling_config_id = ?", configID).
		Order("price DESC").
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

// GetUserBid returns the caller's standing bid on a config, or nil.
func (r *BidRepository) GetUserBid(ctx context.Context, configID, userID int64) (*model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).
		Where("selling_config_id = ? AND user_id = ?", configID, userID).
		First(&bid).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &bid, nil
}

func (r *BidRepository) UpdatePrice(ctx context.Context, tx *gorm.DB, id int64, price decimal.Decimal) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ?", id).
		Update("price", price).Error
}

func (r *BidRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, status string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Bid{}).
		Where("id = ?", id).
		Update("status", status).Error
}

// ListByConfig pages a config's bids, highest first.
func (r *BidRepository) ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Bid, int64, error) {
	var bids []*model.Bid
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Bid{}).Where("selling_config_id = ?", configID)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("price DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&bids).Error

	return bids, total, err
}
