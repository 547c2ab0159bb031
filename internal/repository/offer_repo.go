package repository

import (
	"context"
	"errors"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"gorm.io/gorm"
)

type OfferRepository struct {
	db *gorm.DB
}

func NewOfferRepository(db *gorm.DB) *OfferRepository {
	return &OfferRepository{db: db}
}

func (r *OfferRepository) Create(ctx context.Context, tx *gorm.DB, offer *model.Offer) error {
	if tx == nil {
		tx = r.db
	}
	if offer.ID == 0 {
		offer.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(offer).Error
}

func (r *OfferRepository) GetByID(ctx context.Context, id int64) (*model.Offer, error) {
	var offer model.Offer
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOfferNotFound
		}
		return nil, err
	}
	return &offer, nil
}

// GetLatestByUser returns the user's most recent offer on a config, or nil.
func (r *OfferRepository) GetLatestByUser(ctx context.Context, configID, userID int64) (*model.Offer, error) {
	var offer model.Offer
	err := r.db.WithContext(ctx).
		Where("selling_config_id = ? AND user_id = ?", configID, userID).
		Order("created_at DESC").
		First(&offer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &offer, nil
}

// ListPendingByConfig returns every offer on a config still in created.
func (r *OfferRepository) ListPendingByConfig(ctx context.Context, configID int64) ([]*model.Offer, error) {
	var offers []*model.Offer
	err := r.db.WithContext(ctx).
		Where("selling_config_id = ? AND status = ?", configID, model.OfferStatusCreated).
		Find(&offers).Error
	return offers, err
}

func (r *OfferRepository) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	if !model.CanOfferTransitionTo(fromStatus, toStatus) {
		return ErrInvalidTransition
	}

	if tx == nil {
		tx = r.db
	}

	result := tx.WithContext(ctx).
		Model(&model.Offer{}).
		Where("id = ? AND status = ?", id, fromStatus).
		Update("status", toStatus)

	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return ErrStatusConflict
	}

	return nil
}

// ListByConfig pages a config's pending offers, highest first. The total
// counts every offer on the config.
func (r *OfferRepository) ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Offer, int64, error) {
	var offers []*model.Offer
	var total int64

	err := r.db.WithContext(ctx).
		Model(&model.Offer{}).
		Where("selling_config_id = ?", configID).
		Count(&total).Error
	if err != nil {
		return nil, 0, err
	}

	err = r.db.WithContext(ctx).
		Where("selling_config_id = ? AND status = ?", configID, model.OfferStatusCreated).
		Order("price DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&offers).Error

	return offers, total, err
}
