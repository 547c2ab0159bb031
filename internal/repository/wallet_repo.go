package repository

import (
	"context"
	"errors"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"gorm.io/gorm"
)

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) Create(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) error {
	if tx == nil {
		tx = r.db
	}
	if wallet.ID == 0 {
		wallet.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(wallet).Error
}

func (r *WalletRepository) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	return r.first(ctx, "user_id = ?", userID)
}

func (r *WalletRepository) GetByAccountID(ctx context.Context, accountID string) (*model.Wallet, error) {
	return r.first(ctx, "account_id = ?", accountID)
}

func (r *WalletRepository) first(ctx context.Context, query string, arg interface{}) (*model.Wallet, error) {
	var wallet model.Wallet
	err := r.db.WithContext(ctx).Where(query, arg).First(&wallet).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrWalletNotFound
		}
		return nil, err
	}
	return &wallet, nil
}
