package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"realestate/internal/infrastructure/lock"
	"realestate/internal/ledger"
	"realestate/internal/logger"
	"realestate/internal/metrics"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Every state-changing operation on an NFT runs in the same order:
//
//  1. take the NFT's lock and re-read the config under it
//  2. call the ledger with the acting party's signer
//  3. save the acting party's record outside any transaction, even when
//     the ledger refused the call
//  4. apply the counterparties' records, points and status changes in one
//     DB transaction, with status moves done as compare-and-set
//
// A failure after step 2 leaves the ledger ahead of the database. The sender
// record from step 3 is what reconciliation starts from.

// RoyaltyPercentage is the platform cut of every sale.
const RoyaltyPercentage = 5

// DefaultWinningPrice stands in for an auction with no buy-now price.
var DefaultWinningPrice = decimal.NewFromInt(6_000_000_000_000)

func Royalty(price decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(RoyaltyPercentage)).Div(decimal.NewFromInt(100))
}

// core holds what every ledger-backed operation needs: the stores, the
// ledger, per-NFT locking and key decryption.
type core struct {
	stores *Stores
	ledger Ledger
	locker Locker
	vault  KeyVault
	points *PointService
	now    func() time.Time
}

func newCore(stores *Stores, l Ledger, locker Locker, vault KeyVault, points *PointService) core {
	return core{
		stores: stores,
		ledger: l,
		locker: locker,
		vault:  vault,
		points: points,
		now:    time.Now,
	}
}

// lockNFT takes the NFT's single-writer lock.
func (c *core) lockNFT(ctx context.Context, nftID int64) (func(), error) {
	unlock, err := c.locker.Lock(ctx, nftID)
	if err != nil {
		if errors.Is(err, lock.ErrLockFailed) {
			return nil, &BizError{Status: http.StatusConflict, Message: MsgNFTBusy}
		}
		return nil, err
	}
	return unlock, nil
}

func (c *core) walletOf(ctx context.Context, userID int64) (*model.Wallet, error) {
	w, err := c.stores.Wallets.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrWalletNotFound) {
			return nil, badRequest(MsgWalletNotFound)
		}
		return nil, fmt.Errorf("get wallet of user %d: %w", userID, err)
	}
	return w, nil
}

func (c *core) nftOf(ctx context.Context, nftID int64) (*model.NFT, error) {
	nft, err := c.stores.NFTs.GetByID(ctx, nftID)
	if err != nil {
		if errors.Is(err, repository.ErrNFTNotFound) {
			return nil, badRequest(MsgNFTNotFound)
		}
		return nil, fmt.Errorf("get nft %d: %w", nftID, err)
	}
	return nft, nil
}

// configOf loads a selling config; a miss is reported with status.
func (c *core) configOf(ctx context.Context, configID int64, status int) (*model.SellingConfig, error) {
	cfg, err := c.stores.Configs.GetByID(ctx, configID)
	if err != nil {
		if errors.Is(err, repository.ErrSellingConfigNotFound) {
			return nil, &BizError{Status: status, Message: MsgNoSellingConfig}
		}
		return nil, fmt.Errorf("get selling config %d: %w", configID, err)
	}
	return cfg, nil
}

// userOf loads a profile. A missing profile leaves ownerName untouched.
func (c *core) userOf(ctx context.Context, userID int64) (*model.User, error) {
	u, err := c.stores.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get user %d: %w", userID, err)
	}
	return u, nil
}

// signerOf decrypts the wallet key into a per-call signer.
func (c *core) signerOf(w *model.Wallet) (ledger.Signer, error) {
	key, err := c.vault.Decrypt(w.PrivateKey)
	if err != nil {
		return ledger.Signer{}, fmt.Errorf("decrypt key of wallet %s: %w", w.AccountID, err)
	}
	return ledger.NewSigner(w.AccountID, key)
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrSellingConfigNotFound) ||
		errors.Is(err, repository.ErrNFTNotFound) ||
		errors.Is(err, repository.ErrOfferNotFound) ||
		errors.Is(err, repository.ErrWalletNotFound) ||
		errors.Is(err, repository.ErrUserNotFound) ||
		errors.Is(err, repository.ErrTransactionNotFound)
}

func isBizError(err error) bool {
	var biz *BizError
	return errors.As(err, &biz)
}

// ============================================================================
// Transaction records
// ============================================================================

func tokenRef(tokenID int64) *int64 {
	return &tokenID
}

// newRecord mirrors one party's side of a ledger call.
func newRecord(res *ledger.Result, txType model.TransactionType, accountID string, tokenID *int64, content model.TransactionContent) (*model.Transaction, error) {
	rec := &model.Transaction{
		TransactionID:   res.TransactionID,
		TransactionType: txType,
		AccountID:       accountID,
		TokenID:         tokenID,
		Status:          res.Status,
		Message:         res.Message,
	}
	if err := rec.SetContent(content); err != nil {
		return nil, err
	}
	return rec, nil
}

// recordSender persists the acting party's record whatever the outcome, then
// reports a ledger-side failure as a 400 carrying failMsg (the ledger
// message when empty).
func (c *core) recordSender(ctx context.Context, res *ledger.Result, txType model.TransactionType, accountID string, tokenID *int64, content model.TransactionContent, memo, failMsg string) (*model.Transaction, error) {
	rec, err := newRecord(res, txType, accountID, tokenID, content)
	if err != nil {
		return nil, err
	}
	rec.Memo = memo
	if err := c.stores.Transactions.Create(ctx, nil, rec); err != nil {
		return nil, fmt.Errorf("save %s record: %w", txType, err)
	}
	if !res.Status {
		if failMsg == "" {
			failMsg = res.Message
		}
		logger.WarnCtx(ctx, "ledger call failed",
			zap.String("type", string(txType)),
			zap.String("account", accountID),
			zap.String("message", res.Message))
		return rec, badRequest(failMsg)
	}
	return rec, nil
}

// saveRecord writes a passive party's record inside tx.
func (c *core) saveRecord(ctx context.Context, tx *gorm.DB, res *ledger.Result, txType model.TransactionType, accountID string, tokenID *int64, content model.TransactionContent) error {
	rec, err := newRecord(res, txType, accountID, tokenID, content)
	if err != nil {
		return err
	}
	if err := c.stores.Transactions.Create(ctx, tx, rec); err != nil {
		return fmt.Errorf("save %s record: %w", txType, err)
	}
	return nil
}

func (c *core) approveNFT(ctx context.Context, s ledger.Signer, spender ledger.Contract, tokenID int64) error {
	res, err := c.ledger.ApproveNFT(ctx, s, spender, tokenID)
	if err != nil {
		return err
	}
	_, err = c.recordSender(ctx, res, model.TxApproveNFT, s.AccountID, tokenRef(tokenID),
		model.TokenMovement{Price: decimal.Zero}, "", MsgApproveNFTFailed)
	return err
}

func (c *core) approveToken(ctx context.Context, s ledger.Signer, spender ledger.Contract, amount decimal.Decimal) error {
	res, err := c.ledger.ApproveToken(ctx, s, spender, amount)
	if err != nil {
		return err
	}
	_, err = c.recordSender(ctx, res, model.TxApproveToken, s.AccountID, nil,
		model.TokenMovement{Price: amount}, "", MsgApproveTokenFailed)
	return err
}

// ============================================================================
// Auction settlement
// ============================================================================

// settleAuction closes cfg's auction for good. With a winning bid it completes
// the auction on the ledger and hands the NFT to the highest bidder; without
// one it cancels the auction. The config leaves fromStatus for inactive.
// The caller holds the NFT's lock.
func (c *core) settleAuction(ctx context.Context, cfg *model.SellingConfig, nft *model.NFT, fromStatus, kind string) error {
	sellerWallet, err := c.walletOf(ctx, cfg.UserID)
	if err != nil {
		return err
	}
	seller, err := c.signerOf(sellerWallet)
	if err != nil {
		return err
	}

	winning, err := c.stores.Bids.GetWinning(ctx, cfg.ID)
	if err != nil {
		return fmt.Errorf("get winning bid of config %d: %w", cfg.ID, err)
	}

	if winning == nil {
		return c.cancelAuction(ctx, cfg, nft, seller, fromStatus)
	}

	buyerWallet, err := c.walletOf(ctx, winning.UserID)
	if err != nil {
		return err
	}
	buyer, err := c.userOf(ctx, winning.UserID)
	if err != nil {
		return err
	}

	res, err := c.ledger.CompleteAuction(ctx, seller, nft.TokenID)
	if err != nil {
		return err
	}

	price := winning.Price
	if _, err := c.recordSender(ctx, res, model.TxReceiveTokenFromAuction, sellerWallet.AccountID, tokenRef(nft.TokenID),
		model.Settlement{Price: price, Point: nft.Point.Neg(), Royalty: Royalty(price)}, "", ""); err != nil {
		return err
	}

	err = c.stores.DB.Transaction(func(tx *gorm.DB) error {
		if err := c.saveRecord(ctx, tx, res, model.TxReceiveNFTFromAuction, buyerWallet.AccountID, tokenRef(nft.TokenID),
			model.Acquisition{Price: price.Neg(), Point: nft.Point}); err != nil {
			return err
		}
		if err := c.points.moveNFTPoints(ctx, tx, nft, cfg.UserID, winning.UserID); err != nil {
			return fmt.Errorf("move points: %w", err)
		}
		if err := c.stores.Bids.UpdateStatus(ctx, tx, winning.ID, model.BidStatusDone); err != nil {
			return fmt.Errorf("close winning bid: %w", err)
		}
		nft.TransferTo(buyerWallet, buyer)
		nft.Price = price
		nft.SaleStatus = model.SellingConfigStatusInactive
		if err := c.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return c.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, fromStatus, model.SellingConfigStatusInactive)
	})
	if err != nil {
		return fmt.Errorf("apply auction %d settlement: %w", cfg.ID, err)
	}

	metrics.SettlementsTotal.WithLabelValues(kind).Inc()
	logger.InfoCtx(ctx, "auction settled",
		zap.Int64("config_id", cfg.ID),
		zap.Int64("token_id", nft.TokenID),
		zap.Int64("winner", winning.UserID),
		zap.String("price", price.String()))
	return nil
}

// cancelAuction withdraws a bidless auction from the ledger.
func (c *core) cancelAuction(ctx context.Context, cfg *model.SellingConfig, nft *model.NFT, seller ledger.Signer, fromStatus string) error {
	res, err := c.ledger.CancelAuction(ctx, seller, nft.TokenID)
	if err != nil {
		return err
	}
	if _, err := c.recordSender(ctx, res, model.TxCancelSaleAuction, seller.AccountID, tokenRef(nft.TokenID),
		model.TokenMovement{Price: decimal.Zero}, "", ""); err != nil {
		return err
	}

	return c.stores.DB.Transaction(func(tx *gorm.DB) error {
		nft.SaleStatus = model.SellingConfigStatusInactive
		nft.Price = decimal.Zero
		if err := c.stores.NFTs.Save(ctx, tx, nft); err != nil {
			return fmt.Errorf("save nft: %w", err)
		}
		return c.stores.Configs.UpdateStatus(ctx, tx, cfg.ID, fromStatus, model.SellingConfigStatusInactive)
	})
}
