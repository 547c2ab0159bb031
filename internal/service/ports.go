package service

import (
	"context"
	"database/sql"
	"time"

	"realestate/internal/ledger"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// TxRunner runs fc inside one database transaction. *gorm.DB satisfies it.
type TxRunner interface {
	Transaction(fc func(tx *gorm.DB) error, opts ...*sql.TxOptions) error
}

type UserStore interface {
	Create(ctx context.Context, user *model.User) error
	GetByID(ctx context.Context, id int64) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error)
}

type WalletStore interface {
	Create(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) error
	GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error)
	GetByAccountID(ctx context.Context, accountID string) (*model.Wallet, error)
}

type NFTStore interface {
	Create(ctx context.Context, tx *gorm.DB, nft *model.NFT) error
	Save(ctx context.Context, tx *gorm.DB, nft *model.NFT) error
	GetByID(ctx context.Context, id int64) (*model.NFT, error)
	GetByTokenID(ctx context.Context, tokenID int64) (*model.NFT, error)
	GetLatest(ctx context.Context) (*model.NFT, error)
	ListMarketplace(ctx context.Context, f repository.MarketplaceFilter) ([]*model.NFT, int64, error)
	ListByOwner(ctx context.Context, ownerAddress string, f repository.OwnerFilter) ([]*model.NFT, int64, error)
	TotalPointByOwner(ctx context.Context, userID int64) (decimal.Decimal, error)
}

type SellingConfigStore interface {
	Create(ctx context.Context, tx *gorm.DB, cfg *model.SellingConfig) error
	GetByID(ctx context.Context, id int64) (*model.SellingConfig, error)
	GetActiveByNFTID(ctx context.Context, nftID int64) (*model.SellingConfig, error)
	ListActiveByNFTIDs(ctx context.Context, nftIDs []int64) (map[int64]*model.SellingConfig, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error
	ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.SellingConfig, error)
}

type BidStore interface {
	Create(ctx context.Context, tx *gorm.DB, bid *model.Bid) error
	GetWinning(ctx context.Context, configID int64) (*model.Bid, error)
	GetUserBid(ctx context.Context, configID, userID int64) (*model.Bid, error)
	UpdatePrice(ctx context.Context, tx *gorm.DB, id int64, price decimal.Decimal) error
	UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, status string) error
	ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Bid, int64, error)
}

type OfferStore interface {
	Create(ctx context.Context, tx *gorm.DB, offer *model.Offer) error
	GetByID(ctx context.Context, id int64) (*model.Offer, error)
	GetLatestByUser(ctx context.Context, configID, userID int64) (*model.Offer, error)
	ListPendingByConfig(ctx context.Context, configID int64) ([]*model.Offer, error)
	UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error
	ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Offer, int64, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error
	GetByID(ctx context.Context, id int64) (*model.Transaction, error)
	ListByAccount(ctx context.Context, accountID string, types []model.TransactionType, page, pageSize int) ([]*model.Transaction, int64, error)
	ListSaleHistory(ctx context.Context, tokenID int64, page, pageSize int) ([]*model.Transaction, int64, error)
	GetLatestWithFee(ctx context.Context) (*model.Transaction, error)
	ListMissingFee(ctx context.Context, limit int) ([]*model.Transaction, error)
	UpdateGasFee(ctx context.Context, tx *gorm.DB, id int64, txType model.TransactionType, fee string) error
}

type PointStore interface {
	Add(ctx context.Context, tx *gorm.DB, userID int64, pointType string, delta decimal.Decimal) error
	ListByUser(ctx context.Context, userID int64) ([]*model.UserPoint, error)
	Leaderboard(ctx context.Context, pointType string, limit int) ([]*model.LeaderboardEntry, error)
}

type OutboxStore interface {
	Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error
}

// Ledger is the contract surface of *ledger.Client the services drive.
type Ledger interface {
	Treasury() ledger.Signer
	ContractAddress(ct ledger.Contract) string
	CreateAccount(ctx context.Context) (*ledger.Account, error)
	Mint(ctx context.Context, toAddress string) (*ledger.Result, error)
	TransferNFT(ctx context.Context, s ledger.Signer, toAddress string, tokenID int64) (*ledger.Result, error)
	TransferToken(ctx context.Context, s ledger.Signer, toAddress string, amount decimal.Decimal) (*ledger.Result, error)
	ApproveNFT(ctx context.Context, s ledger.Signer, spender ledger.Contract, tokenID int64) (*ledger.Result, error)
	ApproveToken(ctx context.Context, s ledger.Signer, spender ledger.Contract, amount decimal.Decimal) (*ledger.Result, error)
	PutOnMarketplace(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error)
	PutOffMarketplace(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error)
	Buy(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error)
	MakeOffer(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error)
	AcceptOffer(ctx context.Context, s ledger.Signer, tokenID int64, buyerAddress string) (*ledger.Result, error)
	CancelOffer(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error)
	CreateAuction(ctx context.Context, s ledger.Signer, tokenID int64, minPrice, winningPrice decimal.Decimal, start, end time.Time) (*ledger.Result, error)
	CancelAuction(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error)
	PlaceBid(ctx context.Context, s ledger.Signer, tokenID int64, amount decimal.Decimal) (*ledger.Result, error)
	CompleteAuction(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error)
	TransactionFee(ctx context.Context, txID string) (string, error)
}

// Locker serializes state changes per NFT.
type Locker interface {
	Lock(ctx context.Context, nftID int64) (func(), error)
}

type FeeCache interface {
	Get(ctx context.Context) (string, bool, error)
	Set(ctx context.Context, fee string) error
}

// KeyVault encrypts wallet private keys at rest.
type KeyVault interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Stores bundles the persistence ports shared by the services and jobs.
type Stores struct {
	DB           TxRunner
	Users        UserStore
	Wallets      WalletStore
	NFTs         NFTStore
	Configs      SellingConfigStore
	Bids         BidStore
	Offers       OfferStore
	Transactions TransactionStore
	Points       PointStore
	Outbox       OutboxStore
}

func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		DB:           db,
		Users:        repository.NewUserRepository(db),
		Wallets:      repository.NewWalletRepository(db),
		NFTs:         repository.NewNFTRepository(db),
		Configs:      repository.NewSellingConfigRepository(db),
		Bids:         repository.NewBidRepository(db),
		Offers:       repository.NewOfferRepository(db),
		Transactions: repository.NewTransactionRepository(db),
		Points:       repository.NewUserPointRepository(db),
		Outbox:       repository.NewOutboxRepository(db),
	}
}
