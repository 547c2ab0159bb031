package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"realestate/internal/infrastructure/lock"
	"realestate/internal/ledger"
	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func assertBizError(t *testing.T, err error, status int, msg string) {
	t.Helper()
	var biz *BizError
	require.True(t, errors.As(err, &biz), "expected BizError, got %v", err)
	assert.Equal(t, status, biz.Status)
	assert.Equal(t, msg, biz.Message)
}

func TestMarketService_SellFixedPrice_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		price      decimal.Decimal
		setupMocks func(f *fixture)
		wantStatus int
		wantMsg    string
	}{
		{
			name:       "non positive price",
			price:      decimal.Zero,
			setupMocks: func(f *fixture) {},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MsgInvalidAmount,
		},
		{
			name:  "nft busy",
			price: decimal.NewFromInt(25),
			setupMocks: func(f *fixture) {
				f.locker.On("Lock", mock.Anything, int64(7)).Return(nil, lock.ErrLockFailed)
			},
			wantStatus: http.StatusConflict,
			wantMsg:    MsgNFTBusy,
		},
		{
			name:  "nft missing",
			price: decimal.NewFromInt(25),
			setupMocks: func(f *fixture) {
				f.grantLock(7)
				f.nfts.On("GetByID", mock.Anything, int64(7)).Return(nil, repository.ErrNFTNotFound)
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MsgNFTNotFound,
		},
		{
			name:  "caller does not own the nft",
			price: decimal.NewFromInt(25),
			setupMocks: func(f *fixture) {
				f.grantLock(7)
				f.nfts.On("GetByID", mock.Anything, int64(7)).Return(&model.NFT{ID: 7, UserID: 99}, nil)
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MsgNotOwnerOfNFT,
		},
		{
			name:  "already listed",
			price: decimal.NewFromInt(25),
			setupMocks: func(f *fixture) {
				f.grantLock(7)
				f.nfts.On("GetByID", mock.Anything, int64(7)).Return(&model.NFT{ID: 7, UserID: 1}, nil)
				f.configs.On("GetActiveByNFTID", mock.Anything, int64(7)).Return(&model.SellingConfig{ID: 3}, nil)
			},
			wantStatus: http.StatusBadRequest,
			wantMsg:    MsgNFTListed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			_, err := f.market(testNow).SellFixedPrice(context.Background(), 1, &SellFixedPriceRequest{NFTID: 7, Price: tt.price})

			assertBizError(t, err, tt.wantStatus, tt.wantMsg)
			f.assertAll(t)
			f.ledger.AssertNotCalled(t, "ApproveNFT", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

// listable prepares an unlisted NFT 7 (token 100) owned by user 1.
func listable(f *fixture) *model.NFT {
	nft := &model.NFT{ID: 7, UserID: 1, TokenID: 100, OwnerName: "old name"}
	f.grantLock(7)
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(nft, nil)
	f.configs.On("GetActiveByNFTID", mock.Anything, int64(7)).Return(nil, repository.ErrSellingConfigNotFound)
	f.withWallet(1, "0.0.1", "0xseller")
	f.users.On("GetByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, FirstName: "Ann", LastName: "Lee"}, nil)
	return nft
}

func TestMarketService_SellFixedPrice(t *testing.T) {
	f := newFixture()
	nft := listable(f)
	f.ledger.On("ApproveNFT", mock.Anything, "0.0.1", ledger.ContractMarketplace, int64(100)).Return(ok("tx-approve"), nil)
	f.ledger.On("PutOnMarketplace", mock.Anything, "0.0.1", int64(100), "25").Return(ok("tx-list"), nil)
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.nfts.On("Save", mock.Anything, mock.Anything, nft).Return(nil)
	f.configs.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*model.SellingConfig")).Return(nil)

	cfg, err := f.market(testNow).SellFixedPrice(context.Background(), 1, &SellFixedPriceRequest{NFTID: 7, Price: decimal.NewFromInt(25)})

	require.NoError(t, err)
	assert.Equal(t, model.SellingConfigTypeFixedPrice, cfg.Type)
	assert.Equal(t, model.SellingConfigStatusActive, cfg.Status)
	assert.True(t, cfg.Price.Equal(decimal.NewFromInt(25)))
	assert.Equal(t, model.SellingConfigStatusActive, nft.SaleStatus)
	assert.Equal(t, "Ann Lee", nft.OwnerName)
	assert.Equal(t, testNow, *nft.PutSaleTime)
	assert.Equal(t, 1, f.tx.calls)
	assert.Equal(t, 1, f.unlocks)
	f.trans.AssertNumberOfCalls(t, "Create", 2)
	f.assertAll(t)
}

func TestMarketService_SellFixedPrice_LedgerRejectsApproval(t *testing.T) {
	f := newFixture()
	listable(f)
	f.ledger.On("ApproveNFT", mock.Anything, "0.0.1", ledger.ContractMarketplace, int64(100)).
		Return(failed("tx-approve", "INSUFFICIENT_PAYER_BALANCE"), nil)

	var saved *model.Transaction
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).
		Run(func(args mock.Arguments) { saved = args.Get(2).(*model.Transaction) })

	_, err := f.market(testNow).SellFixedPrice(context.Background(), 1, &SellFixedPriceRequest{NFTID: 7, Price: decimal.NewFromInt(25)})

	assertBizError(t, err, http.StatusBadRequest, MsgApproveNFTFailed)
	require.NotNil(t, saved)
	assert.False(t, saved.Status)
	assert.Equal(t, model.TxApproveNFT, saved.TransactionType)
	assert.Equal(t, "tx-approve", saved.TransactionID)
	f.ledger.AssertNotCalled(t, "PutOnMarketplace", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Zero(t, f.tx.calls)
	assert.Equal(t, 1, f.unlocks)
}

func TestMarketService_ConfigAuction_Validation(t *testing.T) {
	tests := []struct {
		name    string
		req     ConfigAuctionRequest
		wantMsg string
	}{
		{name: "zero start price", req: ConfigAuctionRequest{NFTID: 7, StartPrice: decimal.Zero}, wantMsg: MsgInvalidAmount},
		{name: "negative winning price", req: ConfigAuctionRequest{NFTID: 7, StartPrice: decimal.NewFromInt(1), WinningPrice: decimal.NewFromInt(-1)}, wantMsg: MsgInvalidAmount},
		{name: "start above winning", req: ConfigAuctionRequest{NFTID: 7, StartPrice: decimal.NewFromInt(50), WinningPrice: decimal.NewFromInt(40)}, wantMsg: MsgStartPriceTooHigh},
		{name: "start equals winning", req: ConfigAuctionRequest{NFTID: 7, StartPrice: decimal.NewFromInt(40), WinningPrice: decimal.NewFromInt(40)}, wantMsg: MsgStartPriceTooHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			_, err := f.market(testNow).ConfigAuction(context.Background(), 1, &tt.req)
			assertBizError(t, err, http.StatusBadRequest, tt.wantMsg)
			f.locker.AssertNotCalled(t, "Lock", mock.Anything, mock.Anything)
		})
	}
}

func TestMarketService_ConfigAuction_DefaultWinningPrice(t *testing.T) {
	f := newFixture()
	nft := listable(f)
	end := testNow.Add(48 * time.Hour)
	f.ledger.On("ApproveNFT", mock.Anything, "0.0.1", ledger.ContractAuction, int64(100)).Return(ok("tx-approve"), nil)
	f.ledger.On("CreateAuction", mock.Anything, "0.0.1", int64(100), "10", DefaultWinningPrice.String(), testNow, end).
		Return(ok("tx-auction"), nil)
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.nfts.On("Save", mock.Anything, mock.Anything, nft).Return(nil)
	f.configs.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	cfg, err := f.market(testNow).ConfigAuction(context.Background(), 1, &ConfigAuctionRequest{
		NFTID:      7,
		EndTime:    end,
		StartPrice: decimal.NewFromInt(10),
	})

	require.NoError(t, err)
	assert.Equal(t, model.SellingConfigTypeBid, cfg.Type)
	assert.True(t, cfg.WinningPrice.Equal(DefaultWinningPrice))
	assert.True(t, cfg.MinPrice.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, end, *cfg.EndTime)
	assert.True(t, nft.WinningPrice.Equal(DefaultWinningPrice))
	assert.True(t, nft.Price.Equal(decimal.NewFromInt(10)))
	f.assertAll(t)
}

// fixedPriceSale prepares config 5 selling NFT 7 (token 100, 3 agent points)
// from user 1 at 25, and a buyer wallet for user 2.
func fixedPriceSale(f *fixture) (*model.SellingConfig, *model.NFT) {
	cfg := &model.SellingConfig{
		ID:     5,
		NFTID:  7,
		UserID: 1,
		Type:   model.SellingConfigTypeFixedPrice,
		Status: model.SellingConfigStatusActive,
		Price:  decimal.NewFromInt(25),
	}
	nft := &model.NFT{ID: 7, UserID: 1, TokenID: 100, Point: decimal.NewFromInt(3), NFTType: model.NFTTypeAgent, SaleStatus: model.SellingConfigStatusActive}
	f.configs.On("GetByID", mock.Anything, int64(5)).Return(cfg, nil)
	f.grantLock(7)
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(nft, nil)
	f.withWallet(2, "0.0.2", "0xbuyer")
	f.withWallet(1, "0.0.1", "0xseller")
	f.users.On("GetByID", mock.Anything, int64(2)).Return(&model.User{ID: 2, FirstName: "Bo", LastName: "Kim"}, nil)
	f.ledger.On("ApproveToken", mock.Anything, "0.0.2", ledger.ContractMarketplace, "25").Return(ok("tx-allow"), nil)
	f.ledger.On("Buy", mock.Anything, "0.0.2", int64(100), "25").Return(ok("tx-buy"), nil)
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.points.On("Add", mock.Anything, mock.Anything, int64(2), model.PointTypeAgent, dec("3")).Return(nil)
	f.points.On("Add", mock.Anything, mock.Anything, int64(1), model.PointTypeAgent, dec("-3")).Return(nil)
	f.nfts.On("Save", mock.Anything, mock.Anything, nft).Return(nil)
	return cfg, nft
}

func TestMarketService_BuyAtFixedPrice(t *testing.T) {
	f := newFixture()
	_, nft := fixedPriceSale(f)
	f.configs.On("UpdateStatus", mock.Anything, mock.Anything, int64(5), model.SellingConfigStatusActive, model.SellingConfigStatusInactive).Return(nil)

	got, err := f.market(testNow).BuyAtFixedPrice(context.Background(), 2, 5)

	require.NoError(t, err)
	assert.Same(t, nft, got)
	assert.Equal(t, int64(2), nft.UserID)
	assert.Equal(t, "0.0.2", nft.OwnerAccountID)
	assert.Equal(t, "0xbuyer", nft.OwnerAddress)
	assert.Equal(t, "Bo Kim", nft.OwnerName)
	assert.Equal(t, model.SellingConfigStatusInactive, nft.SaleStatus)
	assert.True(t, nft.Price.IsZero())
	// allowance, purchase and the seller's proceeds
	f.trans.AssertNumberOfCalls(t, "Create", 3)
	assert.Equal(t, 1, f.unlocks)
	f.assertAll(t)
}

func TestMarketService_BuyAtFixedPrice_LostRace(t *testing.T) {
	f := newFixture()
	fixedPriceSale(f)
	f.configs.On("UpdateStatus", mock.Anything, mock.Anything, int64(5), model.SellingConfigStatusActive, model.SellingConfigStatusInactive).
		Return(repository.ErrStatusConflict)

	_, err := f.market(testNow).BuyAtFixedPrice(context.Background(), 2, 5)

	assert.ErrorIs(t, err, repository.ErrStatusConflict)
	assert.Equal(t, 1, f.unlocks)
}

func TestMarketService_BuyAtFixedPrice_Rejected(t *testing.T) {
	tests := []struct {
		name       string
		userID     int64
		setupMocks func(f *fixture)
		wantMsg    string
	}{
		{
			name:   "unknown config",
			userID: 2,
			setupMocks: func(f *fixture) {
				f.configs.On("GetByID", mock.Anything, int64(5)).Return(nil, repository.ErrSellingConfigNotFound)
			},
			wantMsg: MsgSellingConfigNotActive,
		},
		{
			name:   "config no longer active",
			userID: 2,
			setupMocks: func(f *fixture) {
				f.configs.On("GetByID", mock.Anything, int64(5)).Return(&model.SellingConfig{
					ID: 5, NFTID: 7, Type: model.SellingConfigTypeFixedPrice, Status: model.SellingConfigStatusInactive,
				}, nil)
				f.grantLock(7)
			},
			wantMsg: MsgSellingConfigNotActive,
		},
		{
			name:   "config is an auction",
			userID: 2,
			setupMocks: func(f *fixture) {
				f.configs.On("GetByID", mock.Anything, int64(5)).Return(&model.SellingConfig{
					ID: 5, NFTID: 7, Type: model.SellingConfigTypeBid, Status: model.SellingConfigStatusActive,
				}, nil)
				f.grantLock(7)
			},
			wantMsg: MsgSellingConfigNotActive,
		},
		{
			name:   "buyer already owns the nft",
			userID: 1,
			setupMocks: func(f *fixture) {
				f.configs.On("GetByID", mock.Anything, int64(5)).Return(&model.SellingConfig{
					ID: 5, NFTID: 7, UserID: 1, Type: model.SellingConfigTypeFixedPrice, Status: model.SellingConfigStatusActive,
				}, nil)
				f.grantLock(7)
				f.nfts.On("GetByID", mock.Anything, int64(7)).Return(&model.NFT{ID: 7, UserID: 1}, nil)
			},
			wantMsg: MsgCurrentOwner,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			_, err := f.market(testNow).BuyAtFixedPrice(context.Background(), tt.userID, 5)

			assertBizError(t, err, http.StatusBadRequest, tt.wantMsg)
			f.ledger.AssertNotCalled(t, "Buy", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestMarketService_CancelSellingConfig_FixedPrice(t *testing.T) {
	f := newFixture()
	cfg := &model.SellingConfig{ID: 5, NFTID: 7, UserID: 1, Type: model.SellingConfigTypeFixedPrice, Status: model.SellingConfigStatusActive}
	nft := &model.NFT{ID: 7, UserID: 1, TokenID: 100, SaleStatus: model.SellingConfigStatusActive}
	f.configs.On("GetByID", mock.Anything, int64(5)).Return(cfg, nil)
	f.grantLock(7)
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(nft, nil)
	f.withWallet(1, "0.0.1", "0xseller")
	f.offers.On("ListPendingByConfig", mock.Anything, int64(5)).Return([]*model.Offer{}, nil)
	f.ledger.On("PutOffMarketplace", mock.Anything, "0.0.1", int64(100)).Return(ok("tx-off"), nil)
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	f.nfts.On("Save", mock.Anything, mock.Anything, nft).Return(nil)
	f.configs.On("UpdateStatus", mock.Anything, mock.Anything, int64(5), model.SellingConfigStatusActive, model.SellingConfigStatusInactive).Return(nil)

	err := f.market(testNow).CancelSellingConfig(context.Background(), 1, 5)

	require.NoError(t, err)
	assert.Equal(t, model.SellingConfigStatusInactive, nft.SaleStatus)
	f.assertAll(t)
}

func TestMarketService_CancelSellingConfig_NotOwner(t *testing.T) {
	f := newFixture()
	f.configs.On("GetByID", mock.Anything, int64(5)).Return(&model.SellingConfig{
		ID: 5, NFTID: 7, UserID: 1, Status: model.SellingConfigStatusActive,
	}, nil)
	f.grantLock(7)

	err := f.market(testNow).CancelSellingConfig(context.Background(), 2, 5)

	assertBizError(t, err, http.StatusBadRequest, MsgNotOwnerOfSellingConfig)
}

func TestMarketService_CancelSellingConfig_Auction(t *testing.T) {
	t.Run("cancels on the ledger and closes the listing", func(t *testing.T) {
		f := newFixture()
		_, nft := runningAuction(f)
		f.withWallet(1, "0.0.1", "0xseller")
		f.ledger.On("CancelAuction", mock.Anything, "0.0.1", int64(100)).Return(ok("tx-cancel"), nil)
		var records []*model.Transaction
		f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).
			Run(func(args mock.Arguments) { records = append(records, args.Get(2).(*model.Transaction)) })
		f.nfts.On("Save", mock.Anything, mock.Anything, nft).Return(nil)
		f.configs.On("UpdateStatus", mock.Anything, mock.Anything, int64(9), model.SellingConfigStatusActive, model.SellingConfigStatusInactive).Return(nil)

		err := f.market(testNow).CancelSellingConfig(context.Background(), 1, 9)

		require.NoError(t, err)
		assert.Equal(t, model.SellingConfigStatusInactive, nft.SaleStatus)
		assert.True(t, nft.Price.IsZero())
		require.Len(t, records, 1)
		assert.Equal(t, model.TxCancelSaleAuction, records[0].TransactionType)
		assert.Equal(t, "0.0.1", records[0].AccountID)
		f.offers.AssertNotCalled(t, "ListPendingByConfig", mock.Anything, mock.Anything)
		f.ledger.AssertNotCalled(t, "PutOffMarketplace", mock.Anything, mock.Anything, mock.Anything)
		f.assertAll(t)
	})

	t.Run("ledger refuses the cancel", func(t *testing.T) {
		f := newFixture()
		runningAuction(f)
		f.withWallet(1, "0.0.1", "0xseller")
		f.ledger.On("CancelAuction", mock.Anything, "0.0.1", int64(100)).Return(failed("tx-cancel", "AUCTION_HAS_BIDS"), nil)
		f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		err := f.market(testNow).CancelSellingConfig(context.Background(), 1, 9)

		assertBizError(t, err, http.StatusBadRequest, "AUCTION_HAS_BIDS")
		f.nfts.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
		f.configs.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestMarketService_Mint(t *testing.T) {
	agentPoint := decimal.NewFromInt(5)

	tests := []struct {
		name        string
		latest      *model.NFT
		req         MintRequest
		serial      int64
		wantTokenID int64
		wantName    string
		wantOwner   string
		wantPoint   string
	}{
		{
			name:        "first token",
			wantTokenID: 1,
			wantName:    "KLAYTN NFT 1",
			wantOwner:   "Ann Lee",
			wantPoint:   "1",
		},
		{
			name:        "follows the latest token",
			latest:      &model.NFT{TokenID: 41},
			wantTokenID: 42,
			wantName:    "KLAYTN NFT 42",
			wantOwner:   "Ann Lee",
			wantPoint:   "1",
		},
		{
			name:        "requested offset",
			latest:      &model.NFT{TokenID: 41},
			req:         MintRequest{TokenID: 3},
			wantTokenID: 44,
			wantName:    "KLAYTN NFT 44",
			wantOwner:   "Ann Lee",
			wantPoint:   "1",
		},
		{
			name:        "ledger serial wins",
			latest:      &model.NFT{TokenID: 41},
			serial:      57,
			wantTokenID: 57,
			wantName:    "KLAYTN NFT 42",
			wantOwner:   "Ann Lee",
			wantPoint:   "1",
		},
		{
			name:        "caller supplied details",
			latest:      &model.NFT{TokenID: 41},
			req:         MintRequest{Name: "Villa", OwnerName: "Lee Realty", NFTType: model.NFTTypeAgent, Point: &agentPoint},
			wantTokenID: 42,
			wantName:    "Villa",
			wantOwner:   "Lee Realty",
			wantPoint:   "5",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			f.withWallet(1, "0.0.1", "0xowner")
			f.ledger.On("ContractAddress", ledger.ContractNFT).Return("0xnft")
			f.users.On("GetByID", mock.Anything, int64(1)).Return(&model.User{ID: 1, FirstName: "Ann", LastName: "Lee"}, nil).Maybe()
			f.nfts.On("GetLatest", mock.Anything).Return(tt.latest, nil)
			f.ledger.On("Treasury").Return(ledger.Signer{AccountID: "0.0.2"})
			f.ledger.On("Mint", mock.Anything, "0xowner").Return(&ledger.Result{TransactionID: "tx-mint", Status: true, Serial: tt.serial}, nil)
			var records []*model.Transaction
			f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil).
				Run(func(args mock.Arguments) { records = append(records, args.Get(2).(*model.Transaction)) })
			f.nfts.On("Create", mock.Anything, mock.Anything, mock.AnythingOfType("*model.NFT")).Return(nil)

			nft, err := f.market(testNow).Mint(context.Background(), 1, &tt.req)

			require.NoError(t, err)
			assert.Equal(t, tt.wantTokenID, nft.TokenID)
			assert.Equal(t, tt.wantName, nft.Name)
			assert.Equal(t, tt.wantOwner, nft.OwnerName)
			assert.Equal(t, "tx-mint", nft.TransactionID)
			assert.Equal(t, "0xowner", nft.OwnerAddress)
			assert.Equal(t, "0xnft", nft.ContractAddress)
			assert.Equal(t, model.SellingConfigStatusInactive, nft.SaleStatus)

			require.Len(t, records, 2)
			wantPoint := decimal.RequireFromString(tt.wantPoint)
			for i, want := range []struct {
				txType  model.TransactionType
				account string
				point   decimal.Decimal
			}{
				{model.TxTransferNFT, "0.0.2", wantPoint.Neg()},
				{model.TxReceiveNFT, "0.0.1", wantPoint},
			} {
				assert.Equal(t, want.txType, records[i].TransactionType)
				assert.Equal(t, want.account, records[i].AccountID)
				require.NotNil(t, records[i].TokenID)
				assert.Equal(t, tt.wantTokenID, *records[i].TokenID)
				content, err := records[i].DecodedContent()
				require.NoError(t, err)
				assert.True(t, content.(model.PointMovement).Point.Equal(want.point), "record %d point", i)
			}
			f.assertAll(t)
		})
	}
}

func TestMarketService_Mint_LedgerFailure(t *testing.T) {
	f := newFixture()
	f.withWallet(1, "0.0.1", "0xowner")
	f.ledger.On("ContractAddress", ledger.ContractNFT).Return("0xnft")
	f.users.On("GetByID", mock.Anything, int64(1)).Return(nil, repository.ErrUserNotFound)
	f.nfts.On("GetLatest", mock.Anything).Return(nil, nil)
	f.ledger.On("Treasury").Return(ledger.Signer{AccountID: "0.0.2"})
	f.ledger.On("Mint", mock.Anything, "0xowner").Return(failed("tx-mint", "INSUFFICIENT_PAYER_BALANCE"), nil)
	f.trans.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	_, err := f.market(testNow).Mint(context.Background(), 1, &MintRequest{})

	assertBizError(t, err, http.StatusBadRequest, "INSUFFICIENT_PAYER_BALANCE")
	f.trans.AssertNumberOfCalls(t, "Create", 1)
	f.nfts.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarketService_EstimateFee(t *testing.T) {
	fee := "0.9"
	tests := []struct {
		name       string
		setupMocks func(f *fixture)
		wantFee    string
	}{
		{
			name: "cache hit",
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything).Return("2.5", true, nil)
			},
			wantFee: "2.5",
		},
		{
			name: "cache miss reads the latest fee",
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything).Return("", false, nil)
				f.trans.On("GetLatestWithFee", mock.Anything).Return(&model.Transaction{GasFee: &fee}, nil)
				f.cache.On("Set", mock.Anything, "0.9").Return(nil)
			},
			wantFee: "0.9",
		},
		{
			name: "no fee recorded yet",
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything).Return("", false, nil)
				f.trans.On("GetLatestWithFee", mock.Anything).Return(nil, nil)
				f.cache.On("Set", mock.Anything, "1.072").Return(nil)
			},
			wantFee: "1.072",
		},
		{
			name: "cache down",
			setupMocks: func(f *fixture) {
				f.cache.On("Get", mock.Anything).Return("", false, errors.New("redis: connection refused"))
				f.trans.On("GetLatestWithFee", mock.Anything).Return(&model.Transaction{GasFee: &fee}, nil)
				f.cache.On("Set", mock.Anything, "0.9").Return(errors.New("redis: connection refused"))
			},
			wantFee: "0.9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			tt.setupMocks(f)

			got, err := f.market(testNow).EstimateFee(context.Background())

			require.NoError(t, err)
			assert.Equal(t, tt.wantFee, got.GasFee)
			assert.Equal(t, RoyaltyPercentage, got.RoyaltyPercentage)
			f.assertAll(t)
		})
	}
}

func TestRoyalty(t *testing.T) {
	assert.True(t, Royalty(decimal.NewFromInt(200)).Equal(decimal.NewFromInt(10)))
	assert.True(t, Royalty(decimal.RequireFromString("2.5")).Equal(decimal.RequireFromString("0.125")))
}
