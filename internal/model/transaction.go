package model

import (
	"time"

	"gorm.io/datatypes"
)

// ============================================================================
// Transaction types
// ============================================================================

type TransactionType string

const (
	// fixed price
	TxPurchasedNFT                     TransactionType = "PurchasedNFT"
	TxSaleAtFixedPrice                 TransactionType = "SaleAtFixedPrice"
	TxReceiveTokenFromSaleAtFixedPrice TransactionType = "ReceiveTokenFromSaleAtFixedPrice"
	TxCancelSaleAtFixedPrice           TransactionType = "CancelSaleAtFixedPrice"

	// offer
	TxSaleNFTWithOffer         TransactionType = "SaleNFTWithOffer"
	TxSendOffer                TransactionType = "SendOffer"
	TxApproveOffer             TransactionType = "ApproveOffer"
	TxReceiveNFTFromOffer      TransactionType = "ReceiveNFTFromOffer"
	TxCancelSaleWithOffer      TransactionType = "CancelSaleWithOffer"
	TxCancelSaleWithOfferNoFee TransactionType = "CancelSaleWithOfferNoFee"

	// auction
	TxSaleNFTWithAuction           TransactionType = "SaleNFTWithAuction"
	TxSendAuction                  TransactionType = "SendAuction"
	TxEarlyFinishAuction           TransactionType = "EarlyFinishAuction"
	TxReceiveTokenFromAuction      TransactionType = "ReceiveTokenFromAuction"
	TxReceiveNFTFromAuction        TransactionType = "ReceiveNFTFromAuction"
	TxCancelSaleAuction            TransactionType = "CancelSaleAuction"
	TxReceiveTokenByLossBid        TransactionType = "ReceiveTokenByLossBid"
	TxReceiveTokenFromAuctionNoFee TransactionType = "ReceiveTokenFromAuctionNoFee"
	TxReceiveNFTFromAuctionNoFee   TransactionType = "ReceiveNFTFromAuctionNoFee"

	// transfers
	TxReceiveToken  TransactionType = "ReceiveToken"
	TxTransferNFT   TransactionType = "TransferNFT"
	TxTransferToken TransactionType = "TransferToken"
	TxReceiveNFT    TransactionType = "ReceiveNFT"

	// allowances
	TxApproveNFT   TransactionType = "ApproveNFT"
	TxApproveToken TransactionType = "ApproveToken"

	// rewards
	TxReceiveTokenFromLearning   TransactionType = "ReceiveTokenFromLearning"
	TxSendTokenForLearner        TransactionType = "SendTokenForLearner"
	TxSendTokenForEstimation     TransactionType = "SendTokenForEstimation"
	TxReceiveTokenFromEstimation TransactionType = "ReceiveTokenFromEstimation"
)

var transactionDescriptions = map[TransactionType]string{
	TxPurchasedNFT:                     "Buyer buy the NFT",
	TxSaleAtFixedPrice:                 "Listed NFT for fixed price",
	TxReceiveTokenFromSaleAtFixedPrice: "Seller receive token form the transaction (Royalty 5%)",
	TxCancelSaleAtFixedPrice:           "Seller cancel the selling in the marketplace",
	TxSaleNFTWithOffer:                 "Seller push NFT with offer option to marketplace",
	TxSendOffer:                        "Buyer send the offer to seller",
	TxApproveOffer:                     "Seller approve the offer (Royalty 5%)",
	TxReceiveNFTFromOffer:              "Buyer receives NFT from the offer",
	TxCancelSaleWithOffer:              "Seller cancel the selling with offer",
	TxSaleNFTWithAuction:               "Listed NFT for auction",
	TxSendAuction:                      "Submit Bid",
	TxEarlyFinishAuction:               "Seller end the auction before the ending time",
	TxReceiveTokenFromAuction:          "Seller receive token once the auction is finish (Charge royalty and gas for the seller)",
	TxReceiveNFTFromAuction:            "Receive NFT from Auction",
	TxCancelSaleAuction:                "Seller cancel",
	TxReceiveToken:                     "Receive",
	TxTransferNFT:                      "Send NFT",
	TxTransferToken:                    "Send",
	TxReceiveNFT:                       "Receive NFT Transfer",
	TxApproveNFT:                       "Approved",
	TxApproveToken:                     "Contract Interaction",
	TxReceiveTokenFromLearning:         "Learn to Earn",
	TxSendTokenForLearner:              "Send token for learner",
	TxSendTokenForEstimation:           "Send token for estimation",
	TxReceiveTokenFromEstimation:       "Receive token from estimation",
	TxReceiveTokenByLossBid:            "Someone put higher price than your in auction. Buyer receive back token",
}

// Description is the activity feed label. NoFee variants read as their base type.
func (t TransactionType) Description() string {
	if base, ok := t.BaseType(); ok {
		t = base
	}
	return transactionDescriptions[t]
}

// BaseType maps a fee-free variant onto the type it is billed as.
func (t TransactionType) BaseType() (TransactionType, bool) {
	switch t {
	case TxCancelSaleWithOfferNoFee:
		return TxCancelSaleWithOffer, true
	case TxReceiveTokenFromAuctionNoFee:
		return TxReceiveTokenFromAuction, true
	case TxReceiveNFTFromAuctionNoFee:
		return TxReceiveNFTFromAuction, true
	}
	return t, false
}

// IsReceiveSide reports types recorded for the passive party of a ledger
// call. The passive party pays no gas.
func (t TransactionType) IsReceiveSide() bool {
	switch t {
	case TxReceiveTokenByLossBid,
		TxReceiveTokenFromSaleAtFixedPrice,
		TxReceiveNFTFromOffer,
		TxReceiveNFTFromAuction,
		TxReceiveToken,
		TxReceiveNFT,
		TxReceiveTokenFromLearning,
		TxReceiveTokenFromEstimation:
		return true
	}
	return false
}

// SaleHistoryTypes are the records that mark an NFT changing hands.
var SaleHistoryTypes = []TransactionType{
	TxReceiveNFT,
	TxReceiveNFTFromAuction,
	TxReceiveNFTFromOffer,
	TxPurchasedNFT,
}

// ============================================================================
// Transaction entity
// ============================================================================

// Transaction mirrors one party's side of a ledger operation. Rows are
// append-only; only GasFee (and the NoFee type rename) is written later.
type Transaction struct {
	ID              int64           `gorm:"primaryKey;autoIncrement:false" json:"id"`
	TransactionID   string          `gorm:"type:varchar(128);index" json:"transactionId"`
	TransactionType TransactionType `gorm:"type:varchar(64);index;not null" json:"transactionType"`
	AccountID       string          `gorm:"type:varchar(64);index;not null" json:"accountId"`
	TokenID         *int64          `gorm:"index" json:"tokenId"`
	Content         datatypes.JSON  `gorm:"not null" json:"content"`
	Status          bool            `gorm:"not null" json:"status"`
	Message         string          `gorm:"type:varchar(512)" json:"message"`
	Memo            string          `gorm:"type:varchar(512)" json:"memo"`
	GasFee          *string         `gorm:"type:varchar(64);index" json:"gasFee"`
	CreatedAt       time.Time       `gorm:"autoCreateTime;index" json:"createdAt"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Transaction) TableName() string {
	return "transactions"
}
