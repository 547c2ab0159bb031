package service

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"realestate/internal/ledger"
	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MarketService struct {
	core
	feeCache      FeeCache
	defaultGasFee string
}

func NewMarketService(stores *Stores, l Ledger, locker Locker, vault KeyVault, points *PointService, feeCache FeeCache, defaultGasFee string) *MarketService {
	return &MarketService{
		core:          newCore(stores, l, locker, vault, points),
		feeCache:      feeCache,
		defaultGasFee: defaultGasFee,
	}
}

type SellFixedPriceRequest struct {
	NFTID int64           `json:"nftId" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

type ConfigAuctionRequest struct {
	NFTID        int64           `json:"nftId" binding:"required"`
	EndTime      time.Time       `json:"endTime" binding:"required"`
	WinningPrice decimal.Decimal `json:"winningPrice"`
	StartPrice   decimal.Decimal `json:"startPrice"`
}

type TurnOnOfferRequest struct {
	NFTID int64           `json:"nftId" binding:"required"`
	Price decimal.Decimal `json:"price"`
}

// listing carries what differs between the three listing kinds.
type listing struct {
	configType  string
	spender     ledger.Contract
	senderType  model.TransactionType
	price       decimal.Decimal
	putOnLedger func(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error)
	decorate    func(nft *model.NFT, cfg *model.SellingConfig)
}

// ============================================================================
// Listings
// ============================================================================

func (s *MarketService) SellFixedPrice(ctx context.Context, userID int64, req *SellFixedPriceRequest) (*model.SellingConfig, error) {
	if !req.Price.IsPositive() {
		return nil, badRequest(MsgInvalidAmount)
	}
	return s.list(ctx, userID, req.NFTID, listing{
		configType: model.SellingConfigTypeFixedPrice,
		spender:    ledger.ContractMarketplace,
		senderType: model.TxSaleAtFixedPrice,
		price:      req.Price,
		putOnLedger: func(ctx context.Context, sg ledger.Signer, tokenID int64) (*ledger.Result, error) {
			return s.ledger.PutOnMarketplace(ctx, sg, tokenID, req.Price)
		},
		decorate: func(nft *model.NFT, cfg *model.SellingConfig) {
			cfg.Price = req.Price
		},
	})
}

func (s *MarketService) ConfigAuction(ctx context.Context, userID int64, req *ConfigAuctionRequest) (*model.SellingConfig, error) {
	if !req.StartPrice.IsPositive() || req.WinningPrice.IsNegative() {
		return nil, badRequest(MsgInvalidAmount)
	}
	winningPrice := req.WinningPrice
	if winningPrice.IsZero() {
		// no buy-now price
		winningPrice = DefaultWinningPrice
	}
	if req.StartPrice.GreaterThanOrEqual(winningPrice) {
		return nil, badRequest(MsgStartPriceTooHigh)
	}
	start := s.now()
	end := req.EndTime

	return s.list(ctx, userID, req.NFTID, listing{
		configType: model.SellingConfigTypeBid,
		spender:    ledger.ContractAuction,
		senderType: model.TxSaleNFTWithAuction,
		price:      req.StartPrice,
		putOnLedger: func(ctx context.Context, sg ledger.Signer, tokenID int64) (*ledger.Result, error) {
			return s.ledger.CreateAuction(ctx, sg, tokenID, req.StartPrice, winningPrice, start, end)
		},
		decorate: func(nft *model.NFT, cfg *model.SellingConfig) {
			nft.EndDate = &end
			nft.WinningPrice = winningPrice
			cfg.StartTime = &start
			cfg.EndTime = &end
			cfg.MinPrice = req.StartPrice
			cfg.WinningPrice = winningPrice
		},
	})
}

func (s *MarketService) TurnOnOffer(ctx context.Context, userID int64, req *TurnOnOfferRequest) (*model.SellingConfig, error) {
	if !req.Price.IsPositive() {
		return nil, badRequest(MsgInvalidAmount)
	}
	return s.list(ctx, userID, req.NFTID, listing{
		configType: model.SellingConfigTypeOffer,
		spender:    ledger.ContractMarketplace,
		senderType: model.TxSaleNFTWithOffer,
		price:      req.Price,
		putOnLedger: func(ctx context.Context, sg ledger.Signer, tokenID int64) (*ledger.Result, error) {
			return s.ledger.PutOnMarketplace(ctx, sg, tokenID, req.Price)
		},
		decorate: func(nft *model.NFT, cfg *model.SellingConfig) {
			nft.WinningPrice = req.Price
			cfg.Price = req.Price
		},
	})
}

// list runs the shared listing flow: owner and single-listing checks, NFT
// approval, the ledger listing call, then the NFT snapshot and a new config.
func (s *MarketService) list(ctx context.Context, userID, nftID int64, l listing) (*model.SellingConfig, error) {
	unlock, err := s.lockNFT(ctx, nftID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	nft, err := s.nftOf(ctx, nftID)
	if err != nil {
		return nil, err
	}
	if nft.UserID != userID {
		return nil, badRequest(MsgNotOwnerOfNFT)
	}

	active, err := s.stores.Configs.GetActiveByNFTID(ctx, nftID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("get active config of nft %d: %w", nftID, err)
	}
	if active != nil {
		return nil, badRequest(MsgNFTListed)
	}

	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	owner, err := s.userOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return nil, err
	}

	if err := s.approveNFT(ctx, signer, l.spender, nft.TokenID); err != nil {
		return nil, err
	}
	res, err := l.putOnLedger(ctx, signer, nft.TokenID)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordSender(ctx, res, l.senderType, w.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: decimal.Zero}, "", ""); err != nil {
		return nil, err
	}

	ownerName := nft.OwnerName
	if owner != nil {
		ownerName = owner.FullName()
	}
	nft.PutOnSale(l.configType, l.price, ownerName, s.now())

	cfg := &model.SellingConfig{
		NFTID:    nft.ID,
		UserID:   userID,
		Type:     l.configType,
		Status:   model.SellingConfigStatusActive,
		Currency: model.CurrencyREAL,
	}
	l.decorate(nft, cfg)

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		if err := s.stores.Configs.Create(ctx, tx, cfg); err != nil {
			return fmt.Errorf("create selling config: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "nft listed",
		zap.Int64("nft_id", nft.ID),
		zap.String("type", l.configType),
		zap.String("price", l.price.String()))
	return cfg, nil
}

// ============================================================================
// Fixed price
// ============================================================================

func (s *MarketService) BuyAtFixedPrice(ctx context.Context, userID, configID int64) (*model.NFT, error) {
	pre, err := s.configOf(ctx, configID, http.StatusBadRequest)
	if err != nil {
		if isBizError(err) {
			return nil, badRequest(MsgSellingConfigNotActive)
		}
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.configOf(ctx, configID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive() || cfg.Type != model.SellingConfigTypeFixedPrice {
		return nil, badRequest(MsgSellingConfigNotActive)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return nil, err
	}
	if nft.UserID == userID {
		return nil, badRequest(MsgCurrentOwner)
	}

	buyerWallet, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	sellerWallet, err := s.walletOf(ctx, cfg.UserID)
	if err != nil {
		return nil, err
	}
	buyerUser, err := s.userOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	buyer, err := s.signerOf(buyerWallet)
	if err != nil {
		return nil, err
	}

	price := cfg.Price
	if err := s.approveToken(ctx, buyer, ledger.ContractMarketplace, price); err != nil {
		return nil, err
	}
	res, err := s.ledger.Buy(ctx, buyer, nft.TokenID, price)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordSender(ctx, res, model.TxPurchasedNFT, buyerWallet.AccountID, tokenRef(nft.TokenID),
		model.Acquisition{Price: price.Neg(), Point: nft.Point, TokenName: nft.Name}, "", ""); err != nil {
		return nil, err
	}

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.saveRecord(ctx, tx, res, model.TxReceiveTokenFromSaleAtFixedPrice, sellerWallet.AccountID, tokenRef(nft.TokenID),
			model.Settlement{Price: price, Point: nft.Point.Neg(), Royalty: Royalty(price)}); err != nil {
			return err
		}
		if err := s.points.moveNFTPoints(ctx, tx, nft, cfg.UserID, userID); err != nil {
			return fmt.Errorf("move points: %w", err)
		}
		nft.TransferTo(buyerWallet, buyerUser)
		nft.TakeOffSale()
		if err := s.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return s.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, model.SellingConfigStatusActive, model.SellingConfigStatusInactive)
	})
	if err != nil {
		return nil, fmt.Errorf("apply purchase of config %d: %w", cfg.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(metrics.SettlementFixedPrice).Inc()
	return nft, nil
}

// ============================================================================
// Cancellation
// ============================================================================

func (s *MarketService) CancelSellingConfig(ctx context.Context, userID, configID int64) error {
	pre, err := s.configOf(ctx, configID, http.StatusNotFound)
	if err != nil {
		return err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.configOf(ctx, configID, http.StatusNotFound)
	if err != nil {
		return err
	}
	if cfg.UserID != userID {
		return badRequest(MsgNotOwnerOfSellingConfig)
	}
	if !cfg.IsActive() {
		return badRequest(MsgSellingConfigNotActive)
	}
	if cfg.Type == model.SellingConfigTypeBid && cfg.Ended(s.now()) {
		return badRequest(MsgAuctionEnded)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return err
	}
	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return err
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return err
	}

	if cfg.Type == model.SellingConfigTypeBid {
		return s.cancelAuction(ctx, cfg, nft, signer, model.SellingConfigStatusActive)
	}

	pending, err := s.stores.Offers.ListPendingByConfig(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("list pending offers of config %d: %w", cfg.ID, err)
	}
	refunds, err := s.offerWallets(ctx, pending)
	if err != nil {
		return err
	}

	res, err := s.ledger.PutOffMarketplace(ctx, signer, nft.TokenID)
	if err != nil {
		return err
	}
	if _, err := s.recordSender(ctx, res, model.TxCancelSaleAtFixedPrice, w.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: decimal.Zero}, "", ""); err != nil {
		return err
	}

	return s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.refundOffers(ctx, tx, res, nft, pending, refunds); err != nil {
			return err
		}
		nft.SaleStatus = model.SellingConfigStatusInactive
		if err := s.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return s.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, model.SellingConfigStatusActive, model.SellingConfigStatusInactive)
	})
}

// offerWallets loads the wallet of every bidder in offers, keyed by user.
func (s *MarketService) offerWallets(ctx context.Context, offers []*model.Offer) (map[int64]*model.Wallet, error) {
	wallets := make(map[int64]*model.Wallet, len(offers))
	for _, o := range offers {
		if _, ok := wallets[o.UserID]; ok {
			continue
		}
		w, err := s.walletOf(ctx, o.UserID)
		if err != nil {
			return nil, err
		}
		wallets[o.UserID] = w
	}
	return wallets, nil
}

// ============================================================================
// Mint
// ============================================================================

const (
	defaultNFTImage           = "https://klaytn22184.s3.amazonaws.com/minhnv1/1680090886148-istockphoto-1026205392-612x612.jpg"
	defaultPropertyAddress    = "KLAYTN"
	defaultAgentName          = "Agent name"
	defaultCustomer           = "Customer"
	defaultNFTNamePrefix      = "KLAYTN NFT"
	defaultListingWindowMilli = 86400
)

type MintRequest struct {
	Name            string           `json:"name"`
	Images          string           `json:"images"`
	PropertyAddress string           `json:"propertyAddress"`
	SalesPrice      *decimal.Decimal `json:"salesPrice"`
	SalesDate       *time.Time       `json:"salesDate"`
	EndDate         *time.Time       `json:"endDate"`
	Price           *decimal.Decimal `json:"price"`
	Point           *decimal.Decimal `json:"point"`
	WinningPrice    *decimal.Decimal `json:"winningPrice"`
	AgentName       string           `json:"agentName"`
	Customer        string           `json:"customer"`
	TokenID         int64            `json:"tokenId"`
	NFTType         string           `json:"nftType" binding:"omitempty,oneof=client agent referral"`
	OwnerName       string           `json:"ownerName"`
}

// Mint creates a new NFT for the caller, signed by the treasury.
func (s *MarketService) Mint(ctx context.Context, userID int64, req *MintRequest) (*model.NFT, error) {
	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	end := now.Add(defaultListingWindowMilli * time.Millisecond)
	nft := &model.NFT{
		UserID:          userID,
		NFTType:         model.NFTTypeClient,
		Images:          defaultNFTImage,
		PropertyAddress: defaultPropertyAddress,
		ContractAddress: s.ledger.ContractAddress(ledger.ContractNFT),
		AgentName:       defaultAgentName,
		Customer:        defaultCustomer,
		SalesPrice:      decimal.NewFromInt(10),
		SalesDate:       &now,
		EndDate:         &end,
		Price:           decimal.NewFromInt(1),
		Point:           decimal.NewFromInt(1),
		WinningPrice:    decimal.NewFromInt(1),
		SaleStatus:      model.SellingConfigStatusInactive,
		TokenID:         1,
		OwnerAccountID:  w.AccountID,
		OwnerAddress:    w.Address,
	}
	applyMintRequest(nft, req)
	if nft.OwnerName == "" {
		owner, err := s.userOf(ctx, userID)
		if err != nil {
			return nil, err
		}
		if owner != nil {
			nft.OwnerName = owner.FullName()
		}
	}

	latest, err := s.stores.NFTs.GetLatest(ctx)
	if err != nil {
		return nil, fmt.Errorf("get latest nft: %w", err)
	}
	if latest != nil {
		nft.TokenID += latest.TokenID
	}
	nft.Name = fmt.Sprintf("%s %d", defaultNFTNamePrefix, nft.TokenID)
	if req.Name != "" {
		nft.Name = req.Name
	}

	treasury := s.ledger.Treasury()
	res, err := s.ledger.Mint(ctx, w.Address)
	if err != nil {
		return nil, err
	}
	if res.Status && res.Serial > 0 {
		nft.TokenID = res.Serial
	}
	if _, err := s.recordSender(ctx, res, model.TxTransferNFT, treasury.AccountID, tokenRef(nft.TokenID),
		model.PointMovement{Point: nft.Point.Neg(), Name: nft.Name}, "", ""); err != nil {
		return nil, err
	}
	nft.TransactionID = res.TransactionID

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.saveRecord(ctx, tx, res, model.TxReceiveNFT, w.AccountID, tokenRef(nft.TokenID),
			model.PointMovement{Point: nft.Point, Name: nft.Name}); err != nil {
			return err
		}
		if err := s.stores.NFTs.Create(ctx, tx, nft); err != nil {
			return fmt.Errorf("create nft: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "nft minted",
		zap.Int64("nft_id", nft.ID),
		zap.Int64("token_id", nft.TokenID),
		zap.Int64("user_id", userID))
	return nft, nil
}

func applyMintRequest(nft *model.NFT, req *MintRequest) {
	if req.NFTType != "" {
		nft.NFTType = req.NFTType
	}
	if req.OwnerName != "" {
		nft.OwnerName = req.OwnerName
	}
	if req.Images != "" {
		nft.Images = req.Images
	}
	if req.PropertyAddress != "" {
		nft.PropertyAddress = req.PropertyAddress
	}
	if req.SalesPrice != nil {
		nft.SalesPrice = *req.SalesPrice
	}
	if req.SalesDate != nil {
		nft.SalesDate = req.SalesDate
	}
	if req.EndDate != nil {
		nft.EndDate = req.EndDate
	}
	if req.Price != nil {
		nft.Price = *req.Price
	}
	if req.Point != nil {
		nft.Point = *req.Point
	}
	if req.WinningPrice != nil {
		nft.WinningPrice = *req.WinningPrice
	}
	if req.AgentName != "" {
		nft.AgentName = req.AgentName
	}
	if req.Customer != "" {
		nft.Customer = req.Customer
	}
	if req.TokenID > 0 {
		nft.TokenID = req.TokenID
	}
}
