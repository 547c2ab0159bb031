package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"realestate/internal/logger"
	"realestate/internal/model"
	"realestate/internal/repository"

	"go.uber.org/zap"
)

type ActivityService struct {
	stores *Stores
}

func NewActivityService(stores *Stores) *ActivityService {
	return &ActivityService{stores: stores}
}

type ActivityQuery struct {
	Types []string `form:"types"`
	Page  int      `form:"page"`
	Limit int      `form:"limit"`
}

// Activity is one wallet transaction as shown in the activity feed.
type Activity struct {
	ID                     int64                    `json:"id"`
	TransactionID          string                   `json:"transactionId"`
	TransactionType        model.TransactionType    `json:"transactionType"`
	TransactionDescription string                   `json:"transactionDescription"`
	AccountID              string                   `json:"accountId"`
	TokenID                *int64                   `json:"tokenId"`
	Content                model.TransactionContent `json:"content"`
	Status                 bool                     `json:"status"`
	Memo                   string                   `json:"memo"`
	GasFee                 *string                  `json:"gasFee"`
	NFTName                string                   `json:"nftName,omitempty"`
	CreatedAt              time.Time                `json:"createdAt"`
	UpdatedAt              time.Time                `json:"updatedAt"`
}

func toActivity(ctx context.Context, t *model.Transaction) *Activity {
	a := &Activity{
		ID:                     t.ID,
		TransactionID:          t.TransactionID,
		TransactionType:        t.TransactionType,
		TransactionDescription: t.TransactionType.Description(),
		AccountID:              t.AccountID,
		TokenID:                t.TokenID,
		Status:                 t.Status,
		Memo:                   t.Memo,
		GasFee:                 t.GasFee,
		CreatedAt:              t.CreatedAt,
		UpdatedAt:              t.UpdatedAt,
	}
	content, err := t.DecodedContent()
	if err != nil {
		logger.WarnCtx(ctx, "undecodable transaction content",
			zap.Int64("id", t.ID), zap.Error(err))
	} else {
		a.Content = content
	}
	return a
}

// ListActivities returns the caller's wallet history, newest first.
func (s *ActivityService) ListActivities(ctx context.Context, userID int64, q *ActivityQuery) (*Paged[*Activity], error) {
	page, limit := normalizePage(q.Page, q.Limit)
	w, err := s.stores.Wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return &Paged[*Activity]{Items: []*Activity{}, Page: page, Limit: limit}, nil
		}
		return nil, fmt.Errorf("get wallet of user %d: %w", userID, err)
	}

	types := make([]model.TransactionType, 0, len(q.Types))
	for _, t := range q.Types {
		types = append(types, model.TransactionType(t))
	}
	records, total, err := s.stores.Transactions.ListByAccount(ctx, w.AccountID, types, page, limit)
	if err != nil {
		return nil, fmt.Errorf("list transactions of %s: %w", w.AccountID, err)
	}

	items := make([]*Activity, 0, len(records))
	for _, r := range records {
		items = append(items, toActivity(ctx, r))
	}
	return &Paged[*Activity]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// ActivityDetail returns one transaction, named after its NFT when it has one.
func (s *ActivityService) ActivityDetail(ctx context.Context, id int64) (*Activity, error) {
	t, err := s.stores.Transactions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrTransactionNotFound) {
			return nil, badRequest(MsgGetDetailFailed)
		}
		return nil, fmt.Errorf("get transaction %d: %w", id, err)
	}

	a := toActivity(ctx, t)
	if t.TokenID != nil {
		nft, err := s.stores.NFTs.GetByTokenID(ctx, *t.TokenID)
		if err != nil && !errors.Is(err, repository.ErrNFTNotFound) {
			return nil, fmt.Errorf("get nft of token %d: %w", *t.TokenID, err)
		}
		if nft != nil {
			a.NFTName = nft.Name
		}
	}
	return a, nil
}
