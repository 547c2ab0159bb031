package service

import (
	"errors"
	"net/http"
)

// ErrSettlementDeferred marks a settlement that could not start yet. The
// config keeps its status and the job is expected to be retried.
var ErrSettlementDeferred = errors.New("settlement deferred")

// BizError is a rule violation reported to the client as is.
type BizError struct {
	Status  int
	Message string
}

func (e *BizError) Error() string {
	return e.Message
}

func (e *BizError) HTTPStatus() int {
	return e.Status
}

func badRequest(msg string) *BizError {
	return &BizError{Status: http.StatusBadRequest, Message: msg}
}

func notFound(msg string) *BizError {
	return &BizError{Status: http.StatusNotFound, Message: msg}
}

func unauthorized(msg string) *BizError {
	return &BizError{Status: http.StatusUnauthorized, Message: msg}
}

// ============================================================================
// Error messages
// ============================================================================

const (
	MsgInvalidAmount             = "Invalid amount entered."
	MsgNFTNotFound               = "NFT not found."
	MsgNotOwnerOfNFT             = "Not the owner of the NFT."
	MsgNFTListed                 = "NFT listed on exchange."
	MsgStartPriceTooHigh         = "Your starting price cannot be lower than your winning price."
	MsgNoSellingConfig           = "No selling config found."
	MsgSellingConfigNotActive    = "Selling config not active."
	MsgSellingConfigNotOffer     = "Selling config not of offer type."
	MsgNotOwnerOfSellingConfig   = "Not the owner of the selling config."
	MsgOfferNotFound             = "Offer not found."
	MsgOfferCancelled            = "Offer has been cancelled."
	MsgNotOwnerOfOffer           = "Not the owner of the offer."
	MsgCurrentOwner              = "Current owner of the NFT."
	MsgAuctionEnded              = "Auction Ended"
	MsgPriceMustBeHigher         = "Price must be higher than the current bid."
	MsgApproveNFTFailed          = "Not enough of token balance"
	MsgApproveTokenFailed        = "approveToken - Not enough of token balance"
	MsgNFTBusy                   = "Another operation on this NFT is in progress. Please try again."
	MsgMinimumSendToken          = "The minimum transfer amount is 5 REAL. Please try again."
	MsgReceiveWalletNotFound     = "Receiving wallet not found."
	MsgSameWallet                = "Error: Unable to send to the same wallet address"
	MsgNFTCurrentlySelling       = "Unable to send NFT because it is currently for sale."
	MsgNotEnoughTokenForTransfer = "Not enough token balance for transfer"
	MsgWalletNotFound            = "Wallet not found."
	MsgGetDetailFailed           = "Get detail failed"
	MsgUserNotFound              = "User not found."
	MsgEmailTaken                = "Email already registered."
	MsgInvalidCredentials        = "Invalid email or password."
	MsgInvalidPointType          = "Invalid point type."
)

// ============================================================================
// Success messages
// ============================================================================

const (
	MsgSellFixedPriceOK  = "NFT selling configuration at fixed price set successfully."
	MsgConfigAuctionOK   = "NFT bidding configuration set successfully."
	MsgConfigOfferOK     = "NFT offer configuration set successfully."
	MsgMakeOfferOK       = "Offer made successfully."
	MsgCancelConfigOK    = "Selling configuration cancelled successfully."
	MsgCancelOfferOK     = "Offer cancelled successfully."
	MsgApproveOfferOK    = "Offer approved successfully."
	MsgRejectOfferOK     = "Offer rejected successfully."
	MsgBuyOK             = "NFT purchased successfully."
	MsgMarketplaceOK     = "NFTs in exchange retrieved successfully."
	MsgMakeBidOK         = "NFT bid made successfully."
	MsgListOfferOK       = "Offer list retrieved successfully."
	MsgListBidOK         = "Bid list retrieved successfully."
	MsgSaleHistoryOK     = "Sales history retrieved successfully."
	MsgEndAuctionOK      = "Auction ended successfully."
	MsgEstimateFeeOK     = "Fee estimate successful."
	MsgMintOK            = "NFT minted successfully."
	MsgWalletOK          = "Wallet retrieved successfully."
	MsgSendTokenOK       = "Token sent successfully."
	MsgSendNFTOK         = "NFT sent successfully."
	MsgViewNFTsOK        = "NFTs retrieved successfully."
	MsgViewNFTDetailOK   = "NFT detail retrieved successfully."
	MsgActivityListOK    = "Activity list retrieved successfully."
	MsgActivityDetailOK  = "Activity details retrieved successfully."
	MsgRegisterOK        = "Registered successfully."
	MsgLoginOK           = "Logged in successfully."
	MsgProfileOK         = "User information retrieved successfully."
	MsgLeaderboardOK     = "Leaderboard retrieved successfully."
)
