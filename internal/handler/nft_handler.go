package handler

import (
	"realestate/internal/service"
	"realestate/pkg/response"

	"github.com/gin-gonic/gin"
)

type buyRequest struct {
	SellingConfigID int64 `json:"NFTSellingConfig" binding:"required"`
}

type sellingConfigRequest struct {
	SellingConfigID int64 `json:"sellingConfigId" binding:"required"`
}

// Marketplace
// GET /api/v1/nft/NFT-market-place
func (h *Handler) Marketplace(c *gin.Context) {
	var q service.MarketplaceQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.market.Marketplace(c.Request.Context(), userIDFrom(c), &q)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgMarketplaceOK, page)
}

// Mint
// POST /api/v1/nft/mint-nft
func (h *Handler) Mint(c *gin.Context) {
	var req service.MintRequest
	if !bindJSON(c, &req) {
		return
	}
	nft, err := h.market.Mint(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgMintOK, nft)
}

// SellFixedPrice
// POST /api/v1/nft/config-sell
func (h *Handler) SellFixedPrice(c *gin.Context) {
	var req service.SellFixedPriceRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.market.SellFixedPrice(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgSellFixedPriceOK, cfg)
}

// BuyAtFixedPrice
// POST /api/v1/nft/buy-NFT-at-fixed-price
func (h *Handler) BuyAtFixedPrice(c *gin.Context) {
	var req buyRequest
	if !bindJSON(c, &req) {
		return
	}
	nft, err := h.market.BuyAtFixedPrice(c.Request.Context(), userIDFrom(c), req.SellingConfigID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgBuyOK, nft)
}

// ConfigAuction
// POST /api/v1/nft/config-auction
func (h *Handler) ConfigAuction(c *gin.Context) {
	var req service.ConfigAuctionRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.market.ConfigAuction(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgConfigAuctionOK, cfg)
}

// EndAuction
// POST /api/v1/nft/end-auction
func (h *Handler) EndAuction(c *gin.Context) {
	var req service.EndAuctionRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.market.EarlyEndAuction(c.Request.Context(), userIDFrom(c), req.SellingConfigID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgEndAuctionOK, nil)
}

// CancelConfig
// POST /api/v1/nft/cancel-config
func (h *Handler) CancelConfig(c *gin.Context) {
	var req sellingConfigRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.market.CancelSellingConfig(c.Request.Context(), userIDFrom(c), req.SellingConfigID); err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgCancelConfigOK, nil)
}

// ============================================================================
// Offers
// ============================================================================

// ListOffers
// GET /api/v1/nft/list-offer?NFTId=1&page=1&limit=10
func (h *Handler) ListOffers(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.market.ListOffers(c.Request.Context(), q.NFTID, q.Page, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgListOfferOK, page)
}

// TurnOnOffer
// POST /api/v1/nft/config-offer
func (h *Handler) TurnOnOffer(c *gin.Context) {
	var req service.TurnOnOfferRequest
	if !bindJSON(c, &req) {
		return
	}
	cfg, err := h.market.TurnOnOffer(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgConfigOfferOK, cfg)
}

// MakeOffer
// POST /api/v1/nft/make-offer
func (h *Handler) MakeOffer(c *gin.Context) {
	var req service.MakeOfferRequest
	if !bindJSON(c, &req) {
		return
	}
	offer, err := h.market.MakeOffer(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgMakeOfferOK, offer)
}

// CancelOffer
// POST /api/v1/nft/cancel-offer
func (h *Handler) CancelOffer(c *gin.Context) {
	var req service.OfferRequest
	if !bindJSON(c, &req) {
		return
	}
	offer, err := h.market.CancelOffer(c.Request.Context(), userIDFrom(c), req.OfferID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgCancelOfferOK, offer)
}

// ApproveOffer
// POST /api/v1/nft/approve-offer
func (h *Handler) ApproveOffer(c *gin.Context) {
	var req service.OfferRequest
	if !bindJSON(c, &req) {
		return
	}
	offer, err := h.market.ApproveOffer(c.Request.Context(), userIDFrom(c), req.OfferID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgApproveOfferOK, offer)
}

// RejectOffer
// POST /api/v1/nft/reject-offer
func (h *Handler) RejectOffer(c *gin.Context) {
	var req service.OfferRequest
	if !bindJSON(c, &req) {
		return
	}
	offer, err := h.market.RejectOffer(c.Request.Context(), userIDFrom(c), req.OfferID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgRejectOfferOK, offer)
}

// ============================================================================
// Auctions, history and fees
// ============================================================================

// MakeBid
// POST /api/v1/nft/make-bid
func (h *Handler) MakeBid(c *gin.Context) {
	var req service.MakeBidRequest
	if !bindJSON(c, &req) {
		return
	}
	bid, err := h.market.MakeBid(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgMakeBidOK, bid)
}

// ListBids
// GET /api/v1/nft/list-bid?NFTId=1&page=1&limit=10
func (h *Handler) ListBids(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.market.ListBids(c.Request.Context(), q.NFTID, q.Page, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgListBidOK, page)
}

// SaleHistory
// GET /api/v1/nft/sale-history?NFTId=1&page=1&limit=10
func (h *Handler) SaleHistory(c *gin.Context) {
	var q pageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.market.SaleHistory(c.Request.Context(), q.NFTID, q.Page, q.Limit)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgSaleHistoryOK, page)
}

// EstimateFee
// GET /api/v1/nft/estimate-fee
func (h *Handler) EstimateFee(c *gin.Context) {
	fee, err := h.market.EstimateFee(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgEstimateFeeOK, fee)
}
