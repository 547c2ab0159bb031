package service

import (
	"context"
	"fmt"
	"time"

	"realestate/internal/logger"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Paged is one page of a list plus the total across pages.
type Paged[T any] struct {
	Items []T
	Total int64
	Page  int
	Limit int
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func parseOptionalDecimal(s string) (*decimal.Decimal, error) {
	if s == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, badRequest(MsgInvalidAmount)
	}
	return &d, nil
}

// ============================================================================
// Marketplace
// ============================================================================

type MarketplaceQuery struct {
	Search          string   `form:"search"`
	SellTypes       []string `form:"sellTypes"`
	FromPrice       string   `form:"fromPrice"`
	ToPrice         string   `form:"toPrice"`
	SortByCreatedAt string   `form:"sortByCreatedAt"`
	SortByPrice     string   `form:"sortByPrice"`
	SortByEndTime   string   `form:"sortByEndTime"`
	SortByPoint     string   `form:"sortByPoint"`
	IsMyNFT         bool     `form:"isMyNFT"`
	Page            int      `form:"page"`
	Limit           int      `form:"limit"`
}

// ListedNFT is an NFT card with the listing it is currently under.
type ListedNFT struct {
	*model.NFT
	SalesType       *model.SalesType `json:"salesType"`
	SellingConfigID *int64           `json:"sellingConfigId"`
}

func (s *MarketService) Marketplace(ctx context.Context, userID int64, q *MarketplaceQuery) (*Paged[*ListedNFT], error) {
	page, limit := normalizePage(q.Page, q.Limit)
	from, err := parseOptionalDecimal(q.FromPrice)
	if err != nil {
		return nil, err
	}
	to, err := parseOptionalDecimal(q.ToPrice)
	if err != nil {
		return nil, err
	}

	f := repository.MarketplaceFilter{
		Search:          q.Search,
		SellTypes:       q.SellTypes,
		FromPrice:       from,
		ToPrice:         to,
		SortByCreatedAt: q.SortByCreatedAt,
		SortByPrice:     q.SortByPrice,
		SortByEndTime:   q.SortByEndTime,
		SortByPoint:     q.SortByPoint,
		Page:            page,
		PageSize:        limit,
	}
	if q.IsMyNFT {
		f.OnlyUserID = userID
	}

	nfts, total, err := s.stores.NFTs.ListMarketplace(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list marketplace: %w", err)
	}
	items, err := s.withListings(ctx, nfts)
	if err != nil {
		return nil, err
	}
	return &Paged[*ListedNFT]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// withListings attaches each NFT's active selling config.
func (c *core) withListings(ctx context.Context, nfts []*model.NFT) ([]*ListedNFT, error) {
	ids := make([]int64, 0, len(nfts))
	for _, n := range nfts {
		ids = append(ids, n.ID)
	}
	configs, err := c.stores.Configs.ListActiveByNFTIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list active configs: %w", err)
	}

	items := make([]*ListedNFT, 0, len(nfts))
	for _, n := range nfts {
		item := &ListedNFT{NFT: n}
		if cfg, ok := configs[n.ID]; ok {
			id := cfg.ID
			item.SalesType = model.NewSalesType(cfg.Type)
			item.SellingConfigID = &id
		}
		items = append(items, item)
	}
	return items, nil
}

// ============================================================================
// Offers and bids
// ============================================================================

type OfferItem struct {
	Offer     *model.Offer         `json:"offer"`
	UserOffer *model.PublicProfile `json:"userOffer"`
}

type BidItem struct {
	Bid     *model.Bid           `json:"bid"`
	UserBid *model.PublicProfile `json:"userBid"`
}

func (s *MarketService) activeConfigOf(ctx context.Context, nftID int64) (*model.SellingConfig, error) {
	cfg, err := s.stores.Configs.GetActiveByNFTID(ctx, nftID)
	if err != nil {
		if isNotFound(err) {
			return nil, badRequest(MsgNoSellingConfig)
		}
		return nil, fmt.Errorf("get active config of nft %d: %w", nftID, err)
	}
	return cfg, nil
}

func (s *MarketService) profiles(ctx context.Context, userIDs []int64) (map[int64]*model.User, error) {
	users, err := s.stores.Users.ListByIDs(ctx, userIDs)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func profileOf(users map[int64]*model.User, id int64) *model.PublicProfile {
	if u, ok := users[id]; ok {
		return u.Profile()
	}
	return nil
}

func (s *MarketService) ListOffers(ctx context.Context, nftID int64, page, limit int) (*Paged[*OfferItem], error) {
	page, limit = normalizePage(page, limit)
	cfg, err := s.activeConfigOf(ctx, nftID)
	if err != nil {
		return nil, err
	}
	offers, total, err := s.stores.Offers.ListByConfig(ctx, cfg.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list offers of config %d: %w", cfg.ID, err)
	}

	ids := make([]int64, 0, len(offers))
	for _, o := range offers {
		ids = append(ids, o.UserID)
	}
	users, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*OfferItem, 0, len(offers))
	for _, o := range offers {
		items = append(items, &OfferItem{Offer: o, UserOffer: profileOf(users, o.UserID)})
	}
	return &Paged[*OfferItem]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

func (s *MarketService) ListBids(ctx context.Context, nftID int64, page, limit int) (*Paged[*BidItem], error) {
	page, limit = normalizePage(page, limit)
	cfg, err := s.activeConfigOf(ctx, nftID)
	if err != nil {
		return nil, err
	}
	bids, total, err := s.stores.Bids.ListByConfig(ctx, cfg.ID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list bids of config %d: %w", cfg.ID, err)
	}

	ids := make([]int64, 0, len(bids))
	for _, b := range bids {
		ids = append(ids, b.UserID)
	}
	users, err := s.profiles(ctx, ids)
	if err != nil {
		return nil, err
	}

	items := make([]*BidItem, 0, len(bids))
	for _, b := range bids {
		items = append(items, &BidItem{Bid: b, UserBid: profileOf(users, b.UserID)})
	}
	return &Paged[*BidItem]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ============================================================================
// Sale history and fees
// ============================================================================

type SaleHistoryItem struct {
	Name      string          `json:"name"`
	CreatedAt time.Time       `json:"createdAt"`
	Price     decimal.Decimal `json:"price"`
}

func (s *MarketService) SaleHistory(ctx context.Context, nftID int64, page, limit int) (*Paged[*SaleHistoryItem], error) {
	page, limit = normalizePage(page, limit)
	nft, err := s.nftOf(ctx, nftID)
	if err != nil {
		return nil, err
	}
	records, total, err := s.stores.Transactions.ListSaleHistory(ctx, nft.TokenID, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list sale history of token %d: %w", nft.TokenID, err)
	}

	items := make([]*SaleHistoryItem, 0, len(records))
	for _, r := range records {
		item := &SaleHistoryItem{Name: r.AccountID, CreatedAt: r.CreatedAt}
		content, err := r.DecodedContent()
		if err != nil {
			logger.WarnCtx(ctx, "undecodable transaction content",
				zap.Int64("id", r.ID), zap.Error(err))
		} else {
			item.Price = model.AbsPrice(content)
		}
		items = append(items, item)
	}
	return &Paged[*SaleHistoryItem]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

type FeeEstimate struct {
	GasFee            string `json:"gasFee"`
	RoyaltyPercentage int    `json:"royaltyPercentage"`
}

// EstimateFee reports the last observed gas fee, cached.
func (s *MarketService) EstimateFee(ctx context.Context) (*FeeEstimate, error) {
	fee, ok, err := s.feeCache.Get(ctx)
	if err != nil {
		logger.WarnCtx(ctx, "fee cache unavailable", zap.Error(err))
	}
	if !ok {
		fee = s.defaultGasFee
		latest, err := s.stores.Transactions.GetLatestWithFee(ctx)
		if err != nil {
			return nil, fmt.Errorf("get latest fee: %w", err)
		}
		if latest != nil && latest.GasFee != nil {
			fee = *latest.GasFee
		}
		if err := s.feeCache.Set(ctx, fee); err != nil {
			logger.WarnCtx(ctx, "cache fee estimate", zap.Error(err))
		}
	}
	return &FeeEstimate{GasFee: fee, RoyaltyPercentage: RoyaltyPercentage}, nil
}
