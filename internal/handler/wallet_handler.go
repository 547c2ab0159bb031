package handler

import (
	"realestate/internal/service"
	"realestate/pkg/response"

	"github.com/gin-gonic/gin"
)

type nftDetailQuery struct {
	NFTID int64 `form:"NFTId" binding:"required"`
}

// SendToken
// POST /api/v1/wallet/sent-token
func (h *Handler) SendToken(c *gin.Context) {
	var req service.SendTokenRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.wallets.SendToken(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgSendTokenOK, record)
}

// SendNFT
// POST /api/v1/wallet/sent-NFT
func (h *Handler) SendNFT(c *gin.Context) {
	var req service.SendNFTRequest
	if !bindJSON(c, &req) {
		return
	}
	record, err := h.wallets.SendNFT(c.Request.Context(), userIDFrom(c), &req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Created(c, service.MsgSendNFTOK, record)
}

// MyWallet opens the caller's wallet on first use.
// GET /api/v1/wallet/my-wallet
func (h *Handler) MyWallet(c *gin.Context) {
	w, err := h.wallets.GetOrCreate(c.Request.Context(), userIDFrom(c))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgWalletOK, w)
}

// ViewNFTs
// GET /api/v1/wallet/view-NFT?search=&isContainMKP=true&page=1&limit=10
func (h *Handler) ViewNFTs(c *gin.Context) {
	var q service.ViewNFTsQuery
	if !bindQuery(c, &q) {
		return
	}
	page, err := h.wallets.ViewNFTs(c.Request.Context(), userIDFrom(c), &q)
	if err != nil {
		fail(c, err)
		return
	}
	writePage(c, service.MsgViewNFTsOK, page)
}

// ViewNFTDetail
// GET /api/v1/wallet/view-NFT-detail?NFTId=1
func (h *Handler) ViewNFTDetail(c *gin.Context) {
	var q nftDetailQuery
	if !bindQuery(c, &q) {
		return
	}
	detail, err := h.wallets.ViewNFTDetail(c.Request.Context(), q.NFTID)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, service.MsgViewNFTDetailOK, detail)
}
