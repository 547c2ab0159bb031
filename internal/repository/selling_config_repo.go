package repository

import (
	"context"
	"errors"
	"time"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"gorm.io/gorm"
)

type SellingConfigRepository struct {
	db *gorm.DB
}

func NewSellingConfigRepository(db *gorm.DB) *SellingConfigRepository {
	return &SellingConfigRepository{db: db}
}

func (r *SellingConfigRepository) Create(ctx context.Context, tx *gorm.DB, cfg *model.SellingConfig) error {
	if tx == nil {
		tx = r.db
	}
	if cfg.ID == 0 {
		cfg.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(cfg).Error
}

func (r *SellingConfigRepository) GetByID(ctx context.Context, id int64) (*model.SellingConfig, error) {
	var cfg model.SellingConfig
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSellingConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// GetActiveByNFTID returns the NFT's single active listing.
func (r *SellingConfigRepository) GetActiveByNFTID(ctx context.Context, nftID int64) (*model.SellingConfig, error) {
	var cfg model.SellingConfig
	err := r.db.WithContext(ctx).
		Where("nft_id = ? AND status = ?", nftID, model.SellingConfigStatusActive).
		Order("created_at DESC").
		First(&cfg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSellingConfigNotFound
		}
		return nil, err
	}
	return &cfg, nil
}

// ListActiveByNFTIDs returns the active listing of each NFT that has one.
func (r *SellingConfigRepository) ListActiveByNFTIDs(ctx context.Context, nftIDs []int64) (map[int64]*model.SellingConfig, error) {
	result := make(map[int64]*model.SellingConfig, len(nftIDs))
	if len(nftIDs) == 0 {
		return result, nil
	}

	var cfgs []*model.SellingConfig
	err := r.db.WithContext(ctx).
		Where("nft_id IN ? AND status = ?", nftIDs, model.SellingConfigStatusActive).
		Find(&cfgs).Error
	if err != nil {
		return nil, err
	}
	for _, c := range cfgs {
		result[c.NFTID] = c
	}
	return result, nil
}

// UpdateStatus moves a config from one status to another. The WHERE clause
// on the current status makes concurrent settlements lose with
// ErrStatusConflict instead of double-applying.
func (r *SellingConfigRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanTransitionTo(fromStatus, toStatus) {
		return ErrInvalidTransition
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.SellingConfig{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Updates(map[string]interface{}{
			"status":  toStatus,
			"version": gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// ListExpiredAuctions pages active auctions whose end time is before now.
func (r *SellingConfigRepository) ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.SellingConfig, error) {
	var cfgs []*model.SellingConfig
	err := r.db.WithContext(ctx).
		Where("type = ? AND status = ? AND end_time < ?",
			model.SellingConfigTypeBid, model.SellingConfigStatusActive, now).
		Order("end_time ASC").
		Limit(limit).
		Find(&cfgs).Error
	return cfgs, err
}
