package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"realestate/internal/ledger"
	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type MakeBidRequest struct {
	SellingConfigID int64           `json:"sellingConfigId" binding:"required"`
	Price           decimal.Decimal `json:"price"`
}

// MakeBid places or raises the caller's bid. A bid reaching the winning
// price settles the auction on the spot.
func (s *MarketService) MakeBid(ctx context.Context, userID int64, req *MakeBidRequest) (*model.Bid, error) {
	if !req.Price.IsPositive() {
		return nil, badRequest(MsgInvalidAmount)
	}
	pre, err := s.configOf(ctx, req.SellingConfigID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.configOf(ctx, req.SellingConfigID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	if cfg.Ended(s.now()) {
		return nil, badRequest(MsgAuctionEnded)
	}
	if !cfg.IsActive() || cfg.Type != model.SellingConfigTypeBid {
		return nil, badRequest(MsgNoSellingConfig)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return nil, err
	}
	if req.Price.LessThanOrEqual(nft.Price) {
		return nil, badRequest(MsgPriceMustBeHigher)
	}

	bidderWallet, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	bidder, err := s.signerOf(bidderWallet)
	if err != nil {
		return nil, err
	}

	previous, err := s.stores.Bids.GetWinning(ctx, cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("get winning bid of config %d: %w", cfg.ID, err)
	}
	var previousWallet *model.Wallet
	if previous != nil {
		if previousWallet, err = s.walletOf(ctx, previous.UserID); err != nil {
			return nil, err
		}
	}

	if err := s.approveToken(ctx, bidder, ledger.ContractAuction, req.Price); err != nil {
		return nil, err
	}
	res, err := s.ledger.PlaceBid(ctx, bidder, nft.TokenID, req.Price)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordSender(ctx, res, model.TxSendAuction, bidderWallet.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: req.Price.Neg()}, "", ""); err != nil {
		return nil, err
	}

	bid, err := s.stores.Bids.GetUserBid(ctx, cfg.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("get bid of user %d: %w", userID, err)
	}

	wins := req.Price.GreaterThanOrEqual(nft.WinningPrice)
	var sellerWallet *model.Wallet
	var buyer *model.User
	if wins {
		if sellerWallet, err = s.walletOf(ctx, cfg.UserID); err != nil {
			return nil, err
		}
		if buyer, err = s.userOf(ctx, userID); err != nil {
			return nil, err
		}
	}

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if previous != nil {
			if err := s.saveRecord(ctx, tx, res, model.TxReceiveTokenByLossBid, previousWallet.AccountID, tokenRef(nft.TokenID),
				model.TokenMovement{Price: previous.Price}); err != nil {
				return err
			}
		}

		if bid != nil {
			if err := s.stores.Bids.UpdatePrice(ctx, tx, bid.ID, req.Price); err != nil {
				return fmt.Errorf("raise bid: %w", err)
			}
			bid.Price = req.Price
		} else {
			bid = &model.Bid{
				NFTID:           nft.ID,
				SellingConfigID: cfg.ID,
				UserID:          userID,
				Price:           req.Price,
				Currency:        model.CurrencyREAL,
				Status:          model.BidStatusCreated,
			}
			if err := s.stores.Bids.Create(ctx, tx, bid); err != nil {
				return fmt.Errorf("create bid: %w", err)
			}
		}

		nft.Price = req.Price
		if wins {
			if err := s.settleOnBid(ctx, tx, res, cfg, nft, bid, bidderWallet, sellerWallet, buyer); err != nil {
				return err
			}
		}
		if err := s.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			logger.WarnCtx(ctx, "auction closed while bid was placed",
				zap.Int64("config_id", cfg.ID), zap.Int64("user_id", userID))
			return nil, badRequest(MsgNoSellingConfig)
		}
		return nil, fmt.Errorf("apply bid on config %d: %w", cfg.ID, err)
	}

	if wins {
		metrics.SettlementsTotal.WithLabelValues(metrics.SettlementAuctionEager).Inc()
	}
	return bid, nil
}

// settleOnBid hands the NFT to a bidder who met the winning price. The
// config CAS keeps it from racing the expiry sweep.
func (s *MarketService) settleOnBid(ctx context.Context, tx *gorm.DB, res *ledger.Result, cfg *model.SellingConfig, nft *model.NFT, bid *model.Bid, buyerWallet, sellerWallet *model.Wallet, buyer *model.User) error {
	if err := s.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, model.SellingConfigStatusActive, model.SellingConfigStatusInactive); err != nil {
		return err
	}
	if err := s.saveRecord(ctx, tx, res, model.TxReceiveNFTFromAuctionNoFee, buyerWallet.AccountID, tokenRef(nft.TokenID),
		model.Acquisition{Price: decimal.Zero, Point: nft.Point}); err != nil {
		return err
	}
	if err := s.saveRecord(ctx, tx, res, model.TxReceiveTokenFromAuctionNoFee, sellerWallet.AccountID, tokenRef(nft.TokenID),
		model.Settlement{Price: bid.Price, Point: nft.Point.Neg(), Royalty: Royalty(bid.Price)}); err != nil {
		return err
	}
	if err := s.points.moveNFTPoints(ctx, tx, nft, cfg.UserID, bid.UserID); err != nil {
		return fmt.Errorf("move points: %w", err)
	}
	if err := s.stores.Bids.UpdateStatus(ctx, tx, bid.ID, model.BidStatusDone); err != nil {
		return fmt.Errorf("close winning bid: %w", err)
	}
	nft.TransferTo(buyerWallet, buyer)
	nft.SaleStatus = model.SellingConfigStatusInactive
	return nil
}

type EndAuctionRequest struct {
	SellingConfigID int64 `json:"sellingConfigId" binding:"required"`
}

// EarlyEndAuction lets the seller close an auction before its end time.
// Once the end time has passed the auction belongs to the expiry sweep.
func (s *MarketService) EarlyEndAuction(ctx context.Context, userID, configID int64) error {
	pre, err := s.configOf(ctx, configID, http.StatusBadRequest)
	if err != nil {
		return err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return err
	}
	defer unlock()

	cfg, err := s.configOf(ctx, configID, http.StatusBadRequest)
	if err != nil {
		return err
	}
	if cfg.UserID != userID || cfg.Type != model.SellingConfigTypeBid || !cfg.IsActive() {
		return badRequest(MsgNoSellingConfig)
	}
	if cfg.Ended(s.now()) {
		return badRequest(MsgAuctionEnded)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return err
	}
	return s.settleAuction(ctx, cfg, nft, model.SellingConfigStatusActive, metrics.SettlementAuctionEnd)
}

// ============================================================================
// Expired auction settlement
// ============================================================================
//
// The sweep claims an ended auction by moving its config active -> processing
// under the NFT lock, in the same DB transaction that queues the job. The
// consumer lands here with the config in processing:
//
//   processing -> inactive   settled or cancelled on the ledger
//   processing -> failed     the ledger or the local apply rejected it
//
// Anything that only means "not now" (the NFT lock is held, the DB is
// unreachable) returns ErrSettlementDeferred and leaves the config in
// processing, so a redelivered job can finish the work. A config found in any
// other status was already handled and the job is dropped.
// ============================================================================

// SettleExpiredAuction closes an auction the expiry sweep moved to
// processing.
func (s *MarketService) SettleExpiredAuction(ctx context.Context, configID int64) error {
	pre, err := s.expiredConfigOf(ctx, configID)
	if err != nil {
		return err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return fmt.Errorf("lock nft of expired auction %d: %w: %w", configID, ErrSettlementDeferred, err)
	}
	defer unlock()

	cfg, err := s.expiredConfigOf(ctx, configID)
	if err != nil {
		return err
	}
	if cfg.Status != model.SellingConfigStatusProcessing {
		logger.InfoCtx(ctx, "[AuctionExpiry] config already handled, skip",
			zap.Int64("config_id", cfg.ID), zap.String("status", cfg.Status))
		return nil
	}

	nft, err := s.stores.NFTs.GetByID(ctx, cfg.NFTID)
	if err == nil {
		err = s.settleAuction(ctx, cfg, nft, model.SellingConfigStatusProcessing, metrics.SettlementAuctionSweep)
	}
	if err != nil {
		if ferr := s.stores.Configs.UpdateStatus(ctx, nil, cfg.ID, model.SellingConfigStatusProcessing, model.SellingConfigStatusFailed); ferr != nil {
			logger.ErrorCtx(ctx, ferr, zap.Int64("config_id", cfg.ID))
		}
		return fmt.Errorf("settle expired auction %d: %w", cfg.ID, err)
	}
	return nil
}

// expiredConfigOf loads a queued config. Only a missing row is final.
func (s *MarketService) expiredConfigOf(ctx context.Context, configID int64) (*model.SellingConfig, error) {
	cfg, err := s.stores.Configs.GetByID(ctx, configID)
	if err != nil {
		if errors.Is(err, repository.ErrSellingConfigNotFound) {
			return nil, fmt.Errorf("get selling config %d: %w", configID, err)
		}
		return nil, fmt.Errorf("get selling config %d: %w: %w", configID, ErrSettlementDeferred, err)
	}
	return cfg, nil
}
