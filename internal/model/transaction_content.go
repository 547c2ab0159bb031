package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrUnknownTransactionType = errors.New("unknown transaction type")
	ErrContentKindMismatch    = errors.New("content does not match transaction type")
)

// ContentKind tags the payload shape carried by a transaction type.
type ContentKind string

const (
	KindSettlement    ContentKind = "settlement"
	KindAcquisition   ContentKind = "acquisition"
	KindTokenMovement ContentKind = "token_movement"
	KindPointMovement ContentKind = "point_movement"
)

// TransactionContent is one of Settlement, Acquisition, TokenMovement or
// PointMovement.
type TransactionContent interface {
	Kind() ContentKind
}

// Settlement is the seller's side of a completed sale.
type Settlement struct {
	Price     decimal.Decimal `json:"price"`
	Point     decimal.Decimal `json:"point"`
	Royalty   decimal.Decimal `json:"royalty"`
	TokenName string          `json:"tokenName,omitempty"`
}

// Acquisition is the buyer's side of a completed sale.
type Acquisition struct {
	Price     decimal.Decimal `json:"price"`
	Point     decimal.Decimal `json:"point"`
	TokenName string          `json:"tokenName,omitempty"`
}

// TokenMovement is a signed token delta with no ownership change.
type TokenMovement struct {
	Price decimal.Decimal `json:"price"`
}

// PointMovement is an NFT leaving or entering a wallet outside a sale.
type PointMovement struct {
	Point decimal.Decimal `json:"point"`
	Name  string          `json:"name,omitempty"`
}

func (Settlement) Kind() ContentKind    { return KindSettlement }
func (Acquisition) Kind() ContentKind   { return KindAcquisition }
func (TokenMovement) Kind() ContentKind { return KindTokenMovement }
func (PointMovement) Kind() ContentKind { return KindPointMovement }

// KindOf returns the payload shape for t.
func KindOf(t TransactionType) (ContentKind, error) {
	switch t {
	case TxReceiveTokenFromSaleAtFixedPrice,
		TxApproveOffer,
		TxReceiveTokenFromAuction,
		TxReceiveTokenFromAuctionNoFee:
		return KindSettlement, nil
	case TxPurchasedNFT,
		TxReceiveNFTFromOffer,
		TxReceiveNFTFromAuction,
		TxReceiveNFTFromAuctionNoFee:
		return KindAcquisition, nil
	case TxTransferNFT,
		TxReceiveNFT:
		return KindPointMovement, nil
	case TxSaleAtFixedPrice,
		TxCancelSaleAtFixedPrice,
		TxSaleNFTWithOffer,
		TxSendOffer,
		TxCancelSaleWithOffer,
		TxCancelSaleWithOfferNoFee,
		TxSaleNFTWithAuction,
		TxSendAuction,
		TxEarlyFinishAuction,
		TxCancelSaleAuction,
		TxReceiveTokenByLossBid,
		TxReceiveToken,
		TxTransferToken,
		TxApproveNFT,
		TxApproveToken,
		TxReceiveTokenFromLearning,
		TxSendTokenForLearner,
		TxSendTokenForEstimation,
		TxReceiveTokenFromEstimation:
		return KindTokenMovement, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTransactionType, t)
}

// DecodeContent parses raw into the payload shape registered for t.
func DecodeContent(t TransactionType, raw []byte) (TransactionContent, error) {
	kind, err := KindOf(t)
	if err != nil {
		return nil, err
	}

	var content TransactionContent
	switch kind {
	case KindSettlement:
		var c Settlement
		err = json.Unmarshal(raw, &c)
		content = c
	case KindAcquisition:
		var c Acquisition
		err = json.Unmarshal(raw, &c)
		content = c
	case KindTokenMovement:
		var c TokenMovement
		err = json.Unmarshal(raw, &c)
		content = c
	case KindPointMovement:
		var c PointMovement
		err = json.Unmarshal(raw, &c)
		content = c
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s content: %w", t, err)
	}
	return content, nil
}

// SetContent encodes c after checking it is the shape t expects.
func (t *Transaction) SetContent(c TransactionContent) error {
	kind, err := KindOf(t.TransactionType)
	if err != nil {
		return err
	}
	if c.Kind() != kind {
		return fmt.Errorf("%w: %s wants %s, got %s", ErrContentKindMismatch, t.TransactionType, kind, c.Kind())
	}
	raw, err := json.Marshal(c)
	if err != nil {
		return err
	}
	t.Content = raw
	return nil
}

// DecodedContent decodes the stored payload.
func (t *Transaction) DecodedContent() (TransactionContent, error) {
	return DecodeContent(t.TransactionType, t.Content)
}

// AbsPrice is the unsigned price carried by c. PointMovement carries none.
func AbsPrice(c TransactionContent) decimal.Decimal {
	switch v := c.(type) {
	case Settlement:
		return v.Price.Abs()
	case Acquisition:
		return v.Price.Abs()
	case TokenMovement:
		return v.Price.Abs()
	}
	return decimal.Zero
}
