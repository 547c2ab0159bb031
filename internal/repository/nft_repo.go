package repository

import (
	"context"
	"errors"

	"realestate/internal/model"
	"realestate/pkg/idgen"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type NFTRepository struct {
	db *gorm.DB
}

func NewNFTRepository(db *gorm.DB) *NFTRepository {
	return &NFTRepository{db: db}
}

// MarketplaceFilter narrows the marketplace listing. Sort fields take "asc"
// or "desc"; anything else leaves that key out of the ORDER BY.
type MarketplaceFilter struct {
	Search          string
	SellTypes       []string
	FromPrice       *decimal.Decimal
	ToPrice         *decimal.Decimal
	OnlyUserID      int64
	SortByCreatedAt string
	SortByPrice     string
	SortByEndTime   string
	SortByPoint     string
	Page            int
	PageSize        int
}

// OwnerFilter narrows a wallet's NFT list.
type OwnerFilter struct {
	Search       string
	IncludeOnMKP bool
	Page         int
	PageSize     int
}

func (r *NFTRepository) Create(ctx context.Context, tx *gorm.DB, nft *model.NFT) error {
	if tx == nil {
		tx = r.db
	}
	if nft.ID == 0 {
		nft.ID = idgen.NextID()
	}
	return tx.WithContext(ctx).Create(nft).Error
}

// Save writes every column of nft.
func (r *NFTRepository) Save(ctx context.Context, tx *gorm.DB, nft *model.NFT) error {
	if tx == nil {
		tx = r.db
	}
	return tx.WithContext(ctx).Save(nft).Error
}

func (r *NFTRepository) GetByID(ctx context.Context, id int64) (*model.NFT, error) {
	var nft model.NFT
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&nft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNFTNotFound
		}
		return nil, err
	}
	return &nft, nil
}

func (r *NFTRepository) GetByTokenID(ctx context.Context, tokenID int64) (*model.NFT, error) {
	var nft model.NFT
	err := r.db.WithContext(ctx).Where("token_id = ?", tokenID).First(&nft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNFTNotFound
		}
		return nil, err
	}
	return &nft, nil
}

// GetLatest returns the NFT with the highest token id, or nil when none exist.
func (r *NFTRepository) GetLatest(ctx context.Context) (*model.NFT, error) {
	var nft model.NFT
	err := r.db.WithContext(ctx).Order("token_id DESC").First(&nft).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &nft, nil
}

func (r *NFTRepository) ListMarketplace(ctx context.Context, f MarketplaceFilter) ([]*model.NFT, int64, error) {
	var nfts []*model.NFT
	var total int64

	query := r.db.WithContext(ctx).Model(&model.NFT{}).
		Where("sale_status = ?", model.SellingConfigStatusActive)

	if len(f.SellTypes) > 0 {
		query = query.Where("put_sale_type IN ?", f.SellTypes)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("(name LIKE ? OR owner_name LIKE ?)", like, like)
	}
	if f.FromPrice != nil {
		query = query.Where("price >= ?", *f.FromPrice)
	}
	if f.ToPrice != nil {
		query = query.Where("price <= ?", *f.ToPrice)
	}
	if f.OnlyUserID != 0 {
		query = query.Where("user_id = ?", f.OnlyUserID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if dir := sortDirection(f.SortByCreatedAt); dir != "" {
		query = query.Order("put_sale_time " + dir)
	}
	if dir := sortDirection(f.SortByPrice); dir != "" {
		query = query.Order("price " + dir)
	}
	if dir := sortDirection(f.SortByEndTime); dir != "" {
		query = query.Order("put_sale_type ASC").Order("end_date " + dir)
	}
	if dir := sortDirection(f.SortByPoint); dir != "" {
		query = query.Order("point " + dir)
	}

	err := query.
		Offset(offset(f.Page, f.PageSize)).
		Limit(f.PageSize).
		Find(&nfts).Error

	return nfts, total, err
}

// ListByOwner lists the NFTs held by a wallet address, newest first.
func (r *NFTRepository) ListByOwner(ctx context.Context, ownerAddress string, f OwnerFilter) ([]*model.NFT, int64, error) {
	var nfts []*model.NFT
	var total int64

	query := r.db.WithContext(ctx).Model(&model.NFT{}).Where("owner_address = ?", ownerAddress)
	if !f.IncludeOnMKP {
		query = query.Where("sale_status <> ?", model.SellingConfigStatusActive)
	}
	if f.Search != "" {
		query = query.Where("name LIKE ?", "%"+f.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := query.
		Order("created_at DESC").
		Offset(offset(f.Page, f.PageSize)).
		Limit(f.PageSize).
		Find(&nfts).Error

	return nfts, total, err
}

// TotalPointByOwner sums the points of every NFT the user owns.
func (r *NFTRepository) TotalPointByOwner(ctx context.Context, userID int64) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := r.db.WithContext(ctx).
		Model(&model.NFT{}).
		Select("SUM(point)").
		Where("user_id = ?", userID).
		Row().
		Scan(&total)
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}

func sortDirection(s string) string {
	switch s {
	case "asc", "ASC", "1":
		return "ASC"
	case "desc", "DESC", "-1":
		return "DESC"
	}
	return ""
}

func offset(page, pageSize int) int {
	if page < 1 {
		page = 1
	}
	return (page - 1) * pageSize
}
