package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"realestate/internal/ledger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type MakeOfferRequest struct {
	SellingConfigID int64           `json:"sellingConfigId" binding:"required"`
	Price           decimal.Decimal `json:"price"`
	Description     string          `json:"description"`
}

type OfferRequest struct {
	OfferID int64 `json:"offerId" binding:"required"`
}

// MakeOffer escrows price against an offer listing. An offer at or above the
// asking price is approved on the owner's behalf right away.
func (s *MarketService) MakeOffer(ctx context.Context, userID int64, req *MakeOfferRequest) (*model.Offer, error) {
	if !req.Price.IsPositive() {
		return nil, badRequest(MsgInvalidAmount)
	}
	pre, err := s.configOf(ctx, req.SellingConfigID, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	cfg, err := s.configOf(ctx, req.SellingConfigID, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if !cfg.IsActive() {
		return nil, badRequest(MsgSellingConfigNotActive)
	}
	if cfg.Type != model.SellingConfigTypeOffer {
		return nil, badRequest(MsgSellingConfigNotOffer)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return nil, err
	}

	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return nil, err
	}

	// only the amount above the caller's last offer needs a new allowance
	latest, err := s.stores.Offers.GetLatestByUser(ctx, cfg.ID, userID)
	if err != nil {
		return nil, fmt.Errorf("get latest offer of user %d: %w", userID, err)
	}
	allowance := req.Price
	if latest != nil {
		allowance = req.Price.Sub(latest.Price)
	}
	if allowance.IsPositive() {
		if err := s.approveToken(ctx, signer, ledger.ContractMarketplace, allowance); err != nil {
			return nil, err
		}
	}

	res, err := s.ledger.MakeOffer(ctx, signer, nft.TokenID, req.Price)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordSender(ctx, res, model.TxSendOffer, w.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: req.Price.Neg()}, "", ""); err != nil {
		return nil, err
	}

	offer := &model.Offer{
		NFTID:           nft.ID,
		SellingConfigID: cfg.ID,
		UserID:          userID,
		Price:           req.Price,
		Description:     req.Description,
		Currency:        model.CurrencyREAL,
		Status:          model.OfferStatusCreated,
	}
	if err := s.stores.Offers.Create(ctx, nil, offer); err != nil {
		return nil, fmt.Errorf("create offer: %w", err)
	}

	if req.Price.GreaterThanOrEqual(nft.Price) {
		if err := s.approveOffer(ctx, nft.UserID, offer); err != nil {
			return nil, err
		}
	}
	return offer, nil
}

// CancelOffer withdraws the caller's pending offer and releases its escrow.
func (s *MarketService) CancelOffer(ctx context.Context, userID, offerID int64) (*model.Offer, error) {
	pre, err := s.offerOf(ctx, offerID, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	offer, err := s.offerOf(ctx, offerID, http.StatusNotFound)
	if err != nil {
		return nil, err
	}
	if offer.Status == model.OfferStatusCancelled {
		return nil, badRequest(MsgOfferCancelled)
	}
	if offer.UserID != userID {
		return nil, badRequest(MsgNotOwnerOfOffer)
	}
	if offer.Status != model.OfferStatusCreated {
		return nil, badRequest(MsgOfferNotFound)
	}
	nft, err := s.nftOf(ctx, offer.NFTID)
	if err != nil {
		return nil, err
	}
	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return nil, err
	}

	res, err := s.ledger.CancelOffer(ctx, signer, nft.TokenID)
	if err != nil {
		return nil, err
	}
	if _, err := s.recordSender(ctx, res, model.TxCancelSaleWithOffer, w.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: offer.Price}, "", ""); err != nil {
		return nil, err
	}

	if err := s.stores.Offers.UpdateStatus(ctx, nil, offer.ID, model.OfferStatusCreated, model.OfferStatusCancelled); err != nil {
		return nil, fmt.Errorf("cancel offer %d: %w", offer.ID, err)
	}
	offer.Status = model.OfferStatusCancelled
	return offer, nil
}

// ApproveOffer sells the NFT to the offer's bidder.
func (s *MarketService) ApproveOffer(ctx context.Context, userID, offerID int64) (*model.Offer, error) {
	pre, err := s.offerOf(ctx, offerID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	offer, err := s.offerOf(ctx, offerID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	if err := s.approveOffer(ctx, userID, offer); err != nil {
		return nil, err
	}
	return offer, nil
}

// approveOffer runs the sale with the NFT's lock already held.
func (s *MarketService) approveOffer(ctx context.Context, userID int64, offer *model.Offer) error {
	if offer.Status != model.OfferStatusCreated {
		return badRequest(MsgOfferNotFound)
	}
	cfg, err := s.configOf(ctx, offer.SellingConfigID, http.StatusBadRequest)
	if err != nil {
		return err
	}
	if cfg.UserID != userID {
		return badRequest(MsgNotOwnerOfSellingConfig)
	}
	if !cfg.IsActive() {
		return badRequest(MsgSellingConfigNotActive)
	}
	nft, err := s.nftOf(ctx, cfg.NFTID)
	if err != nil {
		return err
	}

	sellerWallet, err := s.walletOf(ctx, userID)
	if err != nil {
		return err
	}
	buyerWallet, err := s.walletOf(ctx, offer.UserID)
	if err != nil {
		return err
	}
	buyer, err := s.userOf(ctx, offer.UserID)
	if err != nil {
		return err
	}
	seller, err := s.signerOf(sellerWallet)
	if err != nil {
		return err
	}

	pending, err := s.stores.Offers.ListPendingByConfig(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("list pending offers of config %d: %w", cfg.ID, err)
	}
	losers := make([]*model.Offer, 0, len(pending))
	for _, o := range pending {
		if o.ID != offer.ID {
			losers = append(losers, o)
		}
	}
	refunds, err := s.offerWallets(ctx, losers)
	if err != nil {
		return err
	}

	res, err := s.ledger.AcceptOffer(ctx, seller, nft.TokenID, buyerWallet.Address)
	if err != nil {
		return err
	}
	price := offer.Price
	if _, err := s.recordSender(ctx, res, model.TxApproveOffer, sellerWallet.AccountID, tokenRef(nft.TokenID),
		model.Settlement{Price: price, Point: nft.Point.Neg(), Royalty: Royalty(price)}, "", ""); err != nil {
		return err
	}

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := s.saveRecord(ctx, tx, res, model.TxReceiveNFTFromOffer, buyerWallet.AccountID, tokenRef(nft.TokenID),
			model.Acquisition{Price: price.Neg(), Point: nft.Point}); err != nil {
			return err
		}
		if err := s.refundOffers(ctx, tx, res, nft, losers, refunds); err != nil {
			return err
		}
		if err := s.points.moveNFTPoints(ctx, tx, nft, userID, offer.UserID); err != nil {
			return fmt.Errorf("move points: %w", err)
		}
		if err := s.stores.Offers.UpdateStatus(ctx, tx, offer.ID, model.OfferStatusCreated, model.OfferStatusApproved); err != nil {
			return fmt.Errorf("approve offer %d: %w", offer.ID, err)
		}
		nft.WinningPrice = price
		nft.SaleStatus = model.SellingConfigStatusInactive
		nft.TransferTo(buyerWallet, buyer)
		if err := s.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return s.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, model.SellingConfigStatusActive, model.SellingConfigStatusInactive)
	})
	if err != nil {
		return fmt.Errorf("apply offer %d: %w", offer.ID, err)
	}

	offer.Status = model.OfferStatusApproved
	metrics.SettlementsTotal.WithLabelValues(metrics.SettlementOffer).Inc()
	return nil
}

// refundOffers records the escrow returned to every losing bidder and closes
// their offers.
func (s *MarketService) refundOffers(ctx context.Context, tx *gorm.DB, res *ledger.Result, nft *model.NFT, offers []*model.Offer, wallets map[int64]*model.Wallet) error {
	for _, o := range offers {
		if err := s.saveRecord(ctx, tx, res, model.TxCancelSaleWithOfferNoFee, wallets[o.UserID].AccountID, tokenRef(nft.TokenID),
			model.TokenMovement{Price: o.Price}); err != nil {
			return err
		}
		if err := s.stores.Offers.UpdateStatus(ctx, tx, o.ID, model.OfferStatusCreated, model.OfferStatusCancelled); err != nil {
			return fmt.Errorf("close offer %d: %w", o.ID, err)
		}
	}
	return nil
}

// RejectOffer declines an offer without touching the ledger.
func (s *MarketService) RejectOffer(ctx context.Context, userID, offerID int64) (*model.Offer, error) {
	pre, err := s.offerOf(ctx, offerID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	unlock, err := s.lockNFT(ctx, pre.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	offer, err := s.offerOf(ctx, offerID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	cfg, err := s.configOf(ctx, offer.SellingConfigID, http.StatusBadRequest)
	if err != nil {
		return nil, err
	}
	if cfg.UserID != userID {
		return nil, badRequest(MsgNotOwnerOfSellingConfig)
	}

	err = s.stores.Offers.UpdateStatus(ctx, nil, offer.ID, model.OfferStatusCreated, model.OfferStatusRejected)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) || errors.Is(err, repository.ErrStatusConflict) {
			return nil, badRequest(MsgOfferNotFound)
		}
		return nil, fmt.Errorf("reject offer %d: %w", offer.ID, err)
	}
	offer.Status = model.OfferStatusRejected
	return offer, nil
}

func (s *MarketService) offerOf(ctx context.Context, offerID int64, status int) (*model.Offer, error) {
	offer, err := s.stores.Offers.GetByID(ctx, offerID)
	if err != nil {
		if errors.Is(err, repository.ErrOfferNotFound) {
			return nil, &BizError{Status: status, Message: MsgOfferNotFound}
		}
		return nil, fmt.Errorf("get offer %d: %w", offerID, err)
	}
	return offer, nil
}
