package service

import (
	"context"
	"database/sql"
	"time"

	"realestate/internal/ledger"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"gorm.io/gorm"
)

// get returns the i-th mocked value as T, or T's zero value for nil.
func get[T any](args mock.Arguments, i int) T {
	v, _ := args.Get(i).(T)
	return v
}

// fakeTx runs the callback without a database; stores receive a nil tx.
type fakeTx struct{ calls int }

func (f *fakeTx) Transaction(fc func(tx *gorm.DB) error, _ ...*sql.TxOptions) error {
	f.calls++
	return fc(nil)
}

type MockUserStore struct{ mock.Mock }
type MockWalletStore struct{ mock.Mock }
type MockNFTStore struct{ mock.Mock }
type MockConfigStore struct{ mock.Mock }
type MockBidStore struct{ mock.Mock }
type MockOfferStore struct{ mock.Mock }
type MockTransactionStore struct{ mock.Mock }
type MockPointStore struct{ mock.Mock }
type MockOutboxStore struct{ mock.Mock }
type MockLedger struct{ mock.Mock }
type MockLocker struct{ mock.Mock }
type MockFeeCache struct{ mock.Mock }
type MockVault struct{ mock.Mock }

// ============================================================================
// Stores
// ============================================================================

func (m *MockUserStore) Create(ctx context.Context, user *model.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	return get[*model.User](args, 0), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	return get[*model.User](args, 0), args.Error(1)
}

func (m *MockUserStore) ListByIDs(ctx context.Context, ids []int64) (map[int64]*model.User, error) {
	args := m.Called(ctx, ids)
	return get[map[int64]*model.User](args, 0), args.Error(1)
}

func (m *MockWalletStore) Create(ctx context.Context, tx *gorm.DB, wallet *model.Wallet) error {
	return m.Called(ctx, tx, wallet).Error(0)
}

func (m *MockWalletStore) GetByUserID(ctx context.Context, userID int64) (*model.Wallet, error) {
	args := m.Called(ctx, userID)
	return get[*model.Wallet](args, 0), args.Error(1)
}

func (m *MockWalletStore) GetByAccountID(ctx context.Context, accountID string) (*model.Wallet, error) {
	args := m.Called(ctx, accountID)
	return get[*model.Wallet](args, 0), args.Error(1)
}

func (m *MockNFTStore) Create(ctx context.Context, tx *gorm.DB, nft *model.NFT) error {
	return m.Called(ctx, tx, nft).Error(0)
}

func (m *MockNFTStore) Save(ctx context.Context, tx *gorm.DB, nft *model.NFT) error {
	return m.Called(ctx, tx, nft).Error(0)
}

func (m *MockNFTStore) GetByID(ctx context.Context, id int64) (*model.NFT, error) {
	args := m.Called(ctx, id)
	return get[*model.NFT](args, 0), args.Error(1)
}

func (m *MockNFTStore) GetByTokenID(ctx context.Context, tokenID int64) (*model.NFT, error) {
	args := m.Called(ctx, tokenID)
	return get[*model.NFT](args, 0), args.Error(1)
}

func (m *MockNFTStore) GetLatest(ctx context.Context) (*model.NFT, error) {
	args := m.Called(ctx)
	return get[*model.NFT](args, 0), args.Error(1)
}

func (m *MockNFTStore) ListMarketplace(ctx context.Context, f repository.MarketplaceFilter) ([]*model.NFT, int64, error) {
	args := m.Called(ctx, f)
	return get[[]*model.NFT](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockNFTStore) ListByOwner(ctx context.Context, ownerAddress string, f repository.OwnerFilter) ([]*model.NFT, int64, error) {
	args := m.Called(ctx, ownerAddress, f)
	return get[[]*model.NFT](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockNFTStore) TotalPointByOwner(ctx context.Context, userID int64) (decimal.Decimal, error) {
	args := m.Called(ctx, userID)
	return get[decimal.Decimal](args, 0), args.Error(1)
}

func (m *MockConfigStore) Create(ctx context.Context, tx *gorm.DB, cfg *model.SellingConfig) error {
	return m.Called(ctx, tx, cfg).Error(0)
}

func (m *MockConfigStore) GetByID(ctx context.Context, id int64) (*model.SellingConfig, error) {
	args := m.Called(ctx, id)
	return get[*model.SellingConfig](args, 0), args.Error(1)
}

func (m *MockConfigStore) GetActiveByNFTID(ctx context.Context, nftID int64) (*model.SellingConfig, error) {
	args := m.Called(ctx, nftID)
	return get[*model.SellingConfig](args, 0), args.Error(1)
}

func (m *MockConfigStore) ListActiveByNFTIDs(ctx context.Context, nftIDs []int64) (map[int64]*model.SellingConfig, error) {
	args := m.Called(ctx, nftIDs)
	return get[map[int64]*model.SellingConfig](args, 0), args.Error(1)
}

func (m *MockConfigStore) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	return m.Called(ctx, tx, id, fromStatus, toStatus).Error(0)
}

func (m *MockConfigStore) ListExpiredAuctions(ctx context.Context, now time.Time, limit int) ([]*model.SellingConfig, error) {
	args := m.Called(ctx, now, limit)
	return get[[]*model.SellingConfig](args, 0), args.Error(1)
}

func (m *MockBidStore) Create(ctx context.Context, tx *gorm.DB, bid *model.Bid) error {
	return m.Called(ctx, tx, bid).Error(0)
}

func (m *MockBidStore) GetWinning(ctx context.Context, configID int64) (*model.Bid, error) {
	args := m.Called(ctx, configID)
	return get[*model.Bid](args, 0), args.Error(1)
}

func (m *MockBidStore) GetUserBid(ctx context.Context, configID, userID int64) (*model.Bid, error) {
	args := m.Called(ctx, configID, userID)
	return get[*model.Bid](args, 0), args.Error(1)
}

func (m *MockBidStore) UpdatePrice(ctx context.Context, tx *gorm.DB, id int64, price decimal.Decimal) error {
	return m.Called(ctx, tx, id, price).Error(0)
}

func (m *MockBidStore) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, status string) error {
	return m.Called(ctx, tx, id, status).Error(0)
}

func (m *MockBidStore) ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Bid, int64, error) {
	args := m.Called(ctx, configID, page, pageSize)
	return get[[]*model.Bid](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockOfferStore) Create(ctx context.Context, tx *gorm.DB, offer *model.Offer) error {
	return m.Called(ctx, tx, offer).Error(0)
}

func (m *MockOfferStore) GetByID(ctx context.Context, id int64) (*model.Offer, error) {
	args := m.Called(ctx, id)
	return get[*model.Offer](args, 0), args.Error(1)
}

func (m *MockOfferStore) GetLatestByUser(ctx context.Context, configID, userID int64) (*model.Offer, error) {
	args := m.Called(ctx, configID, userID)
	return get[*model.Offer](args, 0), args.Error(1)
}

func (m *MockOfferStore) ListPendingByConfig(ctx context.Context, configID int64) ([]*model.Offer, error) {
	args := m.Called(ctx, configID)
	return get[[]*model.Offer](args, 0), args.Error(1)
}

func (m *MockOfferStore) UpdateStatus(ctx context.Context, tx *gorm.DB, id int64, fromStatus, toStatus string) error {
	return m.Called(ctx, tx, id, fromStatus, toStatus).Error(0)
}

func (m *MockOfferStore) ListByConfig(ctx context.Context, configID int64, page, pageSize int) ([]*model.Offer, int64, error) {
	args := m.Called(ctx, configID, page, pageSize)
	return get[[]*model.Offer](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockTransactionStore) Create(ctx context.Context, tx *gorm.DB, trans *model.Transaction) error {
	return m.Called(ctx, tx, trans).Error(0)
}

func (m *MockTransactionStore) GetByID(ctx context.Context, id int64) (*model.Transaction, error) {
	args := m.Called(ctx, id)
	return get[*model.Transaction](args, 0), args.Error(1)
}

func (m *MockTransactionStore) ListByAccount(ctx context.Context, accountID string, types []model.TransactionType, page, pageSize int) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, accountID, types, page, pageSize)
	return get[[]*model.Transaction](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockTransactionStore) ListSaleHistory(ctx context.Context, tokenID int64, page, pageSize int) ([]*model.Transaction, int64, error) {
	args := m.Called(ctx, tokenID, page, pageSize)
	return get[[]*model.Transaction](args, 0), get[int64](args, 1), args.Error(2)
}

func (m *MockTransactionStore) GetLatestWithFee(ctx context.Context) (*model.Transaction, error) {
	args := m.Called(ctx)
	return get[*model.Transaction](args, 0), args.Error(1)
}

func (m *MockTransactionStore) ListMissingFee(ctx context.Context, limit int) ([]*model.Transaction, error) {
	args := m.Called(ctx, limit)
	return get[[]*model.Transaction](args, 0), args.Error(1)
}

func (m *MockTransactionStore) UpdateGasFee(ctx context.Context, tx *gorm.DB, id int64, txType model.TransactionType, fee string) error {
	return m.Called(ctx, tx, id, txType, fee).Error(0)
}

func (m *MockPointStore) Add(ctx context.Context, tx *gorm.DB, userID int64, pointType string, delta decimal.Decimal) error {
	return m.Called(ctx, tx, userID, pointType, delta).Error(0)
}

func (m *MockPointStore) ListByUser(ctx context.Context, userID int64) ([]*model.UserPoint, error) {
	args := m.Called(ctx, userID)
	return get[[]*model.UserPoint](args, 0), args.Error(1)
}

func (m *MockPointStore) Leaderboard(ctx context.Context, pointType string, limit int) ([]*model.LeaderboardEntry, error) {
	args := m.Called(ctx, pointType, limit)
	return get[[]*model.LeaderboardEntry](args, 0), args.Error(1)
}

func (m *MockOutboxStore) Create(ctx context.Context, tx *gorm.DB, msg *model.OutboxMessage) error {
	return m.Called(ctx, tx, msg).Error(0)
}

// ============================================================================
// Ledger and infrastructure
// ============================================================================

func (m *MockLedger) Treasury() ledger.Signer {
	return get[ledger.Signer](m.Called(), 0)
}

func (m *MockLedger) ContractAddress(ct ledger.Contract) string {
	return m.Called(ct).String(0)
}

func (m *MockLedger) CreateAccount(ctx context.Context) (*ledger.Account, error) {
	args := m.Called(ctx)
	return get[*ledger.Account](args, 0), args.Error(1)
}

func (m *MockLedger) result(args mock.Arguments) (*ledger.Result, error) {
	return get[*ledger.Result](args, 0), args.Error(1)
}

func (m *MockLedger) Mint(ctx context.Context, toAddress string) (*ledger.Result, error) {
	return m.result(m.Called(ctx, toAddress))
}

func (m *MockLedger) TransferNFT(ctx context.Context, s ledger.Signer, toAddress string, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, toAddress, tokenID))
}

func (m *MockLedger) TransferToken(ctx context.Context, s ledger.Signer, toAddress string, amount decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, toAddress, amount.String()))
}

func (m *MockLedger) ApproveNFT(ctx context.Context, s ledger.Signer, spender ledger.Contract, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, spender, tokenID))
}

func (m *MockLedger) ApproveToken(ctx context.Context, s ledger.Signer, spender ledger.Contract, amount decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, spender, amount.String()))
}

func (m *MockLedger) PutOnMarketplace(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, price.String()))
}

func (m *MockLedger) PutOffMarketplace(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID))
}

func (m *MockLedger) Buy(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, price.String()))
}

func (m *MockLedger) MakeOffer(ctx context.Context, s ledger.Signer, tokenID int64, price decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, price.String()))
}

func (m *MockLedger) AcceptOffer(ctx context.Context, s ledger.Signer, tokenID int64, buyerAddress string) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, buyerAddress))
}

func (m *MockLedger) CancelOffer(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID))
}

func (m *MockLedger) CreateAuction(ctx context.Context, s ledger.Signer, tokenID int64, minPrice, winningPrice decimal.Decimal, start, end time.Time) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, minPrice.String(), winningPrice.String(), start, end))
}

func (m *MockLedger) CancelAuction(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID))
}

func (m *MockLedger) PlaceBid(ctx context.Context, s ledger.Signer, tokenID int64, amount decimal.Decimal) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID, amount.String()))
}

func (m *MockLedger) CompleteAuction(ctx context.Context, s ledger.Signer, tokenID int64) (*ledger.Result, error) {
	return m.result(m.Called(ctx, s.AccountID, tokenID))
}

func (m *MockLedger) TransactionFee(ctx context.Context, txID string) (string, error) {
	args := m.Called(ctx, txID)
	return args.String(0), args.Error(1)
}

func (m *MockLocker) Lock(ctx context.Context, nftID int64) (func(), error) {
	args := m.Called(ctx, nftID)
	return get[func()](args, 0), args.Error(1)
}

func (m *MockFeeCache) Get(ctx context.Context) (string, bool, error) {
	args := m.Called(ctx)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockFeeCache) Set(ctx context.Context, fee string) error {
	return m.Called(ctx, fee).Error(0)
}

func (m *MockVault) Encrypt(plaintext string) (string, error) {
	args := m.Called(plaintext)
	return args.String(0), args.Error(1)
}

func (m *MockVault) Decrypt(ciphertext string) (string, error) {
	args := m.Called(ciphertext)
	return args.String(0), args.Error(1)
}

// ============================================================================
// Fixture
// ============================================================================

// testKey is a throwaway secp256k1 key every wallet decrypts to.
const testKey = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"

type fixture struct {
	tx      *fakeTx
	users   *MockUserStore
	wallets *MockWalletStore
	nfts    *MockNFTStore
	configs *MockConfigStore
	bids    *MockBidStore
	offers  *MockOfferStore
	trans   *MockTransactionStore
	points  *MockPointStore
	outbox  *MockOutboxStore
	ledger  *MockLedger
	locker  *MockLocker
	cache   *MockFeeCache
	vault   *MockVault
	unlocks int
}

func newFixture() *fixture {
	return &fixture{
		tx:      &fakeTx{},
		users:   new(MockUserStore),
		wallets: new(MockWalletStore),
		nfts:    new(MockNFTStore),
		configs: new(MockConfigStore),
		bids:    new(MockBidStore),
		offers:  new(MockOfferStore),
		trans:   new(MockTransactionStore),
		points:  new(MockPointStore),
		outbox:  new(MockOutboxStore),
		ledger:  new(MockLedger),
		locker:  new(MockLocker),
		cache:   new(MockFeeCache),
		vault:   new(MockVault),
	}
}

func (f *fixture) stores() *Stores {
	return &Stores{
		DB:           f.tx,
		Users:        f.users,
		Wallets:      f.wallets,
		NFTs:         f.nfts,
		Configs:      f.configs,
		Bids:         f.bids,
		Offers:       f.offers,
		Transactions: f.trans,
		Points:       f.points,
		Outbox:       f.outbox,
	}
}

func (f *fixture) market(now time.Time) *MarketService {
	s := NewMarketService(f.stores(), f.ledger, f.locker, f.vault, NewPointService(f.points), f.cache, "1.072")
	s.now = func() time.Time { return now }
	return s
}

func (f *fixture) wallet() *WalletService {
	return NewWalletService(f.stores(), f.ledger, f.locker, f.vault, NewPointService(f.points))
}

// grantLock makes nftID's lock available and counts releases.
func (f *fixture) grantLock(nftID int64) {
	f.locker.On("Lock", mock.Anything, nftID).Return(func() { f.unlocks++ }, nil)
}

// withWallet registers a wallet for userID whose key decrypts to testKey.
func (f *fixture) withWallet(userID int64, accountID, address string) *model.Wallet {
	w := &model.Wallet{UserID: userID, AccountID: accountID, Address: address, PrivateKey: "enc-" + accountID}
	f.wallets.On("GetByUserID", mock.Anything, userID).Return(w, nil)
	f.vault.On("Decrypt", w.PrivateKey).Return(testKey, nil).Maybe()
	return w
}

func (f *fixture) assertAll(t mock.TestingT) {
	for _, m := range []interface{ AssertExpectations(mock.TestingT) bool }{
		f.users, f.wallets, f.nfts, f.configs, f.bids, f.offers, f.trans, f.points, f.outbox, f.ledger, f.locker, f.cache, f.vault,
	} {
		m.AssertExpectations(t)
	}
}

func ok(txID string) *ledger.Result {
	return &ledger.Result{TransactionID: txID, Status: true, Message: "SUCCESS"}
}

func failed(txID, msg string) *ledger.Result {
	return &ledger.Result{TransactionID: txID, Status: false, Message: msg}
}

// dec matches a decimal argument by value.
func dec(s string) interface{} {
	want := decimal.RequireFromString(s)
	return mock.MatchedBy(func(d decimal.Decimal) bool { return d.Equal(want) })
}
