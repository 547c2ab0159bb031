package repository

import (
	"context"
	"errors"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"gorm.io/gorm"
)

type TransactionRepository struct {
	db *gorm.DB
}

func NewTransactionRepository(db *gorm.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

func (r *TransactionRepository) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	if tx == nil {
		tx = r.db
	}
	if trans.ID == 0 {
		trans.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(trans).Error
}

func (r *TransactionRepository) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTransactionNotFound
		}
		return nil, err
	}
	return &trans, nil
}

// ListByAccount pages an account's records newest first. An empty types
// slice means every type.
func (r *TransactionRepository) ListByAccount(ctx context.Context, accountID string, types []model.TransactionType, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).Model(&model.Transaction{}).Where("account_id = ?", accountID)
	if len(types) > 0 {
		query = query.Where("transaction_type IN ?", types)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// ListSaleHistory pages the successful ownership changes of a token.
func (r *TransactionRepository) ListSaleHistory(ctx context.Context, tokenID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	var transactions []*model.Transaction
	var total int64

	query := r.db.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("token_id = ? AND transaction_type IN ? AND status = ?", tokenID, model.SaleHistoryTypes, true)

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset(page, pageSize)).
		Limit(pageSize).
		Find(&transactions).Error

	return transactions, total, err
}

// GetLatestWithFee returns the newest record carrying a positive gas fee, or nil.
func (r *TransactionRepository) GetLatestWithFee(ctx context.Context) (*model.Transaction, error) {
	var trans model.Transaction
	err := r.db.WithContext(ctx).
		Where("gas_fee IS NOT NULL AND CAST(gas_fee AS DECIMAL(36,18)) > 0").
		Order("created_at DESC").
		First(&trans).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trans, nil
}

// ListMissingFee returns records whose gas fee has not been estimated yet.
func (r *TransactionRepository) ListMissingFee(ctx context.Context, limit int) ([]*model.Transaction, error) {
	var transactions []*model.Transaction
	err := r.db.WithContext(ctx).
		Where("gas_fee IS NULL").
		Order("created_at ASC").
		Limit(limit).
		Find(&transactions).Error
	return transactions, err
}

// UpdateGasFee writes the fee and, for NoFee variants, the billed type.
func (r *TransactionRepository) UpdateGasFee(ctx context.Context, tx *gorm.DB, id int64, txType model.TransactionType, fee string) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"transaction_type": txType,
			"gas_fee":          fee,
		}).Error
}
