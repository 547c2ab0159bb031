package service

import (
	"context"
	"errors"
	"fmt"

	"realestate/internal/ledger"
	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MinSendToken is the smallest token transfer accepted.
var MinSendToken = decimal.NewFromInt(5)

type WalletService struct {
	core
}

func NewWalletService(stores *Stores, l Ledger, locker Locker, vault KeyVault, points *PointService) *WalletService {
	return &WalletService{core: newCore(stores, l, locker, vault, points)}
}

type SendTokenRequest struct {
	AccountID string          `json:"accountId" binding:"required"`
	Amount    decimal.Decimal `json:"amount"`
	Memo      string          `json:"memo"`
}

type SendNFTRequest struct {
	NFTID          int64  `json:"nftId" binding:"required"`
	ReceiveAccount string `json:"receiveAccount" binding:"required"`
	Memo           string `json:"memo"`
}

type ViewNFTsQuery struct {
	Search       string `form:"search"`
	IsContainMKP bool   `form:"isContainMKP"`
	Page         int    `form:"page"`
	Limit        int    `form:"limit"`
}

// GetOrCreate returns the caller's wallet, opening a ledger account on first
// use. Point is the total of the NFTs the user holds.
func (s *WalletService) GetOrCreate(ctx context.Context, userID int64) (*model.Wallet, error) {
	w, err := s.stores.Wallets.GetByUserID(ctx, userID)
	if err == nil {
		point, err := s.stores.NFTs.TotalPointByOwner(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("sum points of user %d: %w", userID, err)
		}
		w.Point = point
		return w, nil
	}
	if !errors.Is(err, repository.ErrWalletNotFound) {
		return nil, fmt.Errorf("get wallet of user %d: %w", userID, err)
	}

	account, err := s.ledger.CreateAccount(ctx)
	if err != nil {
		return nil, fmt.Errorf("create ledger account: %w", err)
	}
	encrypted, err := s.vault.Encrypt(account.PrivateKey)
	if err != nil {
		return nil, fmt.Errorf("encrypt wallet key: %w", err)
	}

	w = &model.Wallet{
		UserID:      userID,
		AccountID:   account.AccountID,
		Address:     account.Address,
		PrivateKey:  encrypted,
		PublicKey:   account.PublicKey,
		CreatedTxID: account.TransactionID,
		Point:       decimal.Zero,
	}
	if err := s.stores.Wallets.Create(ctx, nil, w); err != nil {
		return nil, fmt.Errorf("save wallet: %w", err)
	}

	logger.InfoCtx(ctx, "wallet created",
		zap.Int64("user_id", userID),
		zap.String("account_id", w.AccountID))
	return w, nil
}

// SendToken moves payment tokens to another wallet.
func (s *WalletService) SendToken(ctx context.Context, userID int64, req *SendTokenRequest) (*model.Transaction, error) {
	if req.Amount.LessThan(MinSendToken) {
		return nil, badRequest(MsgMinimumSendToken)
	}
	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.receiverOf(ctx, req.AccountID)
	if err != nil {
		return nil, err
	}
	if w.AccountID == receiver.AccountID {
		return nil, badRequest(MsgSameWallet)
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return nil, err
	}

	if err := s.approveToken(ctx, signer, ledger.ContractToken, req.Amount); err != nil {
		return nil, err
	}
	res, err := s.ledger.TransferToken(ctx, signer, receiver.Address, req.Amount)
	if err != nil {
		return nil, err
	}
	sent, err := s.recordSender(ctx, res, model.TxTransferToken, w.AccountID, nil,
		model.TokenMovement{Price: req.Amount.Neg()}, req.Memo, MsgNotEnoughTokenForTransfer)
	if err != nil {
		return nil, err
	}

	received, err := newRecord(res, model.TxReceiveToken, receiver.AccountID, nil, model.TokenMovement{Price: req.Amount})
	if err != nil {
		return nil, err
	}
	received.Memo = req.Memo
	if err := s.stores.Transactions.Create(ctx, nil, received); err != nil {
		return nil, fmt.Errorf("save %s record: %w", model.TxReceiveToken, err)
	}
	return sent, nil
}

// SendNFT gives an unlisted NFT to another wallet.
func (s *WalletService) SendNFT(ctx context.Context, userID int64, req *SendNFTRequest) (*model.Transaction, error) {
	unlock, err := s.lockNFT(ctx, req.NFTID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	w, err := s.walletOf(ctx, userID)
	if err != nil {
		return nil, err
	}
	receiver, err := s.receiverOf(ctx, req.ReceiveAccount)
	if err != nil {
		return nil, err
	}
	if w.AccountID == receiver.AccountID {
		return nil, badRequest(MsgSameWallet)
	}
	nft, err := s.nftOf(ctx, req.NFTID)
	if err != nil {
		return nil, err
	}

	active, err := s.stores.Configs.GetActiveByNFTID(ctx, nft.ID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("get active config of nft %d: %w", nft.ID, err)
	}
	if active != nil {
		return nil, badRequest(MsgNFTCurrentlySelling)
	}
	if nft.UserID != userID {
		return nil, badRequest(MsgNotOwnerOfNFT)
	}

	receiverUser, err := s.userOf(ctx, receiver.UserID)
	if err != nil {
		return nil, err
	}
	signer, err := s.signerOf(w)
	if err != nil {
		return nil, err
	}

	if err := s.approveNFT(ctx, signer, ledger.ContractNFT, nft.TokenID); err != nil {
		return nil, err
	}
	res, err := s.ledger.TransferNFT(ctx, signer, receiver.Address, nft.TokenID)
	if err != nil {
		return nil, err
	}
	sent, err := s.recordSender(ctx, res, model.TxTransferNFT, w.AccountID, tokenRef(nft.TokenID),
		model.PointMovement{Point: nft.Point.Neg(), Name: nft.Name}, req.Memo, "")
	if err != nil {
		return nil, err
	}

	err = s.stores.DB.Transaction(func(tx *gorm.DB) error {
		received, err := newRecord(res, model.TxReceiveNFT, receiver.AccountID, tokenRef(nft.TokenID),
			model.PointMovement{Point: nft.Point, Name: nft.Name})
		if err != nil {
			return err
		}
		received.Memo = req.Memo
		if err := s.stores.Transactions.Create(ctx, tx, received); err != nil {
			return fmt.Errorf("save %s record: %w", model.TxReceiveNFT, err)
		}
		if err := s.points.moveNFTPoints(ctx, tx, nft, userID, receiver.UserID); err != nil {
			return fmt.Errorf("move points: %w", err)
		}
		nft.TransferTo(receiver, receiverUser)
		return s.stores.NFTs.Save(ctx, tx, nft)
	})
	if err != nil {
		return nil, fmt.Errorf("apply nft %d transfer: %w", nft.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(metrics.SettlementTransfer).Inc()
	return sent, nil
}

func (s *WalletService) receiverOf(ctx context.Context, accountID string) (*model.Wallet, error) {
	w, err := s.stores.Wallets.GetByAccountID(ctx, accountID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, badRequest(MsgReceiveWalletNotFound)
		}
		return nil, fmt.Errorf("get wallet %s: %w", accountID, err)
	}
	return w, nil
}

// ViewNFTs lists the NFTs held by the caller's wallet.
func (s *WalletService) ViewNFTs(ctx context.Context, userID int64, q *ViewNFTsQuery) (*Paged[*ListedNFT], error) {
	page, limit := normalizePage(q.Page, q.Limit)
	w, err := s.stores.Wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return &Paged[*ListedNFT]{Items: []*ListedNFT{}, Page: page, Limit: limit}, nil
		}
		return nil, fmt.Errorf("get wallet of user %d: %w", userID, err)
	}

	nfts, total, err := s.stores.NFTs.ListByOwner(ctx, w.Address, repository.OwnerFilter{
		Search:       q.Search,
		IncludeOnMKP: q.IsContainMKP,
		Page:         page,
		PageSize:     limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list nfts of %s: %w", w.Address, err)
	}
	items, err := s.withListings(ctx, nfts)
	if err != nil {
		return nil, err
	}
	return &Paged[*ListedNFT]{Items: items, Total: total, Page: page, Limit: limit}, nil
}

// NFTDetail is one NFT with its listing and owner.
type NFTDetail struct {
	*ListedNFT
	Owner *model.PublicProfile `json:"owner"`
}

func (s *WalletService) ViewNFTDetail(ctx context.Context, nftID int64) (*NFTDetail, error) {
	nft, err := s.nftOf(ctx, nftID)
	if err != nil {
		return nil, err
	}
	listed, err := s.withListings(ctx, []*model.NFT{nft})
	if err != nil {
		return nil, err
	}
	detail := &NFTDetail{ListedNFT: listed[0]}

	owner, err := s.userOf(ctx, nft.UserID)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		detail.Owner = owner.Profile()
	}
	return detail, nil
}
