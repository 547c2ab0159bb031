package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"realestate/internal/model"
	"realestate/internal/repository"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// history builds a successful ledger record carrying c.
func history(t *testing.T, id int64, txType model.TransactionType, account string, c model.TransactionContent) *model.Transaction {
	t.Helper()
	rec := &model.Transaction{
		ID:              id,
		TransactionID:   "tx-history",
		TransactionType: txType,
		AccountID:       account,
		Status:          true,
		CreatedAt:       testNow.Add(-time.Duration(id) * time.Hour),
	}
	require.NoError(t, rec.SetContent(c))
	return rec
}

func TestMarketService_Marketplace(t *testing.T) {
	from := decimal.NewFromInt(5)
	to := decimal.NewFromInt(50)

	tests := []struct {
		name       string
		query      MarketplaceQuery
		wantFilter repository.MarketplaceFilter
	}{
		{
			name:       "defaults",
			query:      MarketplaceQuery{},
			wantFilter: repository.MarketplaceFilter{Page: 1, PageSize: 10},
		},
		{
			name: "own listings in a price range",
			query: MarketplaceQuery{
				Search:      "villa",
				SellTypes:   []string{model.SellingConfigTypeBid},
				FromPrice:   "5",
				ToPrice:     "50",
				SortByPrice: "desc",
				IsMyNFT:     true,
				Page:        2,
				Limit:       500,
			},
			wantFilter: repository.MarketplaceFilter{
				Search:      "villa",
				SellTypes:   []string{model.SellingConfigTypeBid},
				FromPrice:   &from,
				ToPrice:     &to,
				SortByPrice: "desc",
				OnlyUserID:  1,
				Page:        2,
				PageSize:    100,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			listed := &model.NFT{ID: 7, Name: "Villa"}
			unlisted := &model.NFT{ID: 8, Name: "Loft"}
			f.nfts.On("ListMarketplace", mock.Anything, mock.MatchedBy(func(got repository.MarketplaceFilter) bool {
				return assert.ObjectsAreEqualValues(tt.wantFilter.SellTypes, got.SellTypes) &&
					got.Search == tt.wantFilter.Search &&
					got.OnlyUserID == tt.wantFilter.OnlyUserID &&
					got.Page == tt.wantFilter.Page &&
					got.PageSize == tt.wantFilter.PageSize &&
					got.SortByPrice == tt.wantFilter.SortByPrice &&
					sameBound(got.FromPrice, tt.wantFilter.FromPrice) &&
					sameBound(got.ToPrice, tt.wantFilter.ToPrice)
			})).Return([]*model.NFT{listed, unlisted}, int64(2), nil)
			f.configs.On("ListActiveByNFTIDs", mock.Anything, []int64{7, 8}).Return(map[int64]*model.SellingConfig{
				7: {ID: 9, NFTID: 7, Type: model.SellingConfigTypeBid},
			}, nil)

			page, err := f.market(testNow).Marketplace(context.Background(), 1, &tt.query)

			require.NoError(t, err)
			assert.Equal(t, int64(2), page.Total)
			require.Len(t, page.Items, 2)
			assert.Equal(t, &model.SalesType{Key: model.SellingConfigTypeBid, Title: "Auction"}, page.Items[0].SalesType)
			require.NotNil(t, page.Items[0].SellingConfigID)
			assert.Equal(t, int64(9), *page.Items[0].SellingConfigID)
			assert.Nil(t, page.Items[1].SalesType)
			assert.Nil(t, page.Items[1].SellingConfigID)
			f.assertAll(t)
		})
	}
}

func sameBound(got, want *decimal.Decimal) bool {
	if got == nil || want == nil {
		return got == nil && want == nil
	}
	return got.Equal(*want)
}

func TestMarketService_Marketplace_BadPrice(t *testing.T) {
	f := newFixture()

	_, err := f.market(testNow).Marketplace(context.Background(), 1, &MarketplaceQuery{FromPrice: "cheap"})

	assertBizError(t, err, http.StatusBadRequest, MsgInvalidAmount)
	f.nfts.AssertNotCalled(t, "ListMarketplace", mock.Anything, mock.Anything)
}

func TestMarketService_ListOffersAndBids(t *testing.T) {
	users := map[int64]*model.User{
		2: {ID: 2, FirstName: "Bo", LastName: "Kim"},
	}

	t.Run("offers carry the bidder profile", func(t *testing.T) {
		f := newFixture()
		f.configs.On("GetActiveByNFTID", mock.Anything, int64(7)).Return(&model.SellingConfig{ID: 8, NFTID: 7}, nil)
		f.offers.On("ListByConfig", mock.Anything, int64(8), 1, 10).Return([]*model.Offer{
			{ID: 4, UserID: 2, Price: decimal.NewFromInt(35)},
			{ID: 5, UserID: 3, Price: decimal.NewFromInt(30)},
		}, int64(2), nil)
		f.users.On("ListByIDs", mock.Anything, []int64{2, 3}).Return(users, nil)

		page, err := f.market(testNow).ListOffers(context.Background(), 7, 0, 0)

		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Bo", page.Items[0].UserOffer.FirstName)
		assert.Nil(t, page.Items[1].UserOffer)
		assert.Equal(t, int64(2), page.Total)
	})

	t.Run("bids carry the bidder profile", func(t *testing.T) {
		f := newFixture()
		f.configs.On("GetActiveByNFTID", mock.Anything, int64(7)).Return(&model.SellingConfig{ID: 9, NFTID: 7}, nil)
		f.bids.On("ListByConfig", mock.Anything, int64(9), 2, 5).Return([]*model.Bid{
			{ID: 3, UserID: 2, Price: decimal.NewFromInt(30)},
		}, int64(6), nil)
		f.users.On("ListByIDs", mock.Anything, []int64{2}).Return(users, nil)

		page, err := f.market(testNow).ListBids(context.Background(), 7, 2, 5)

		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, int64(2), page.Items[0].UserBid.ID)
		assert.Equal(t, 2, page.Page)
		assert.Equal(t, 5, page.Limit)
		assert.Equal(t, int64(6), page.Total)
	})

	rejected := []struct {
		name string
		list func(s *MarketService) error
	}{
		{name: "offers", list: func(s *MarketService) error {
			_, err := s.ListOffers(context.Background(), 7, 1, 10)
			return err
		}},
		{name: "bids", list: func(s *MarketService) error {
			_, err := s.ListBids(context.Background(), 7, 1, 10)
			return err
		}},
	}
	for _, tt := range rejected {
		t.Run(tt.name+" without an active listing", func(t *testing.T) {
			f := newFixture()
			f.configs.On("GetActiveByNFTID", mock.Anything, int64(7)).Return(nil, repository.ErrSellingConfigNotFound)

			err := tt.list(f.market(testNow))

			assertBizError(t, err, http.StatusBadRequest, MsgNoSellingConfig)
			f.users.AssertNotCalled(t, "ListByIDs", mock.Anything, mock.Anything)
		})
	}
}

func TestMarketService_SaleHistory(t *testing.T) {
	f := newFixture()
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(&model.NFT{ID: 7, TokenID: 100}, nil)

	broken := &model.Transaction{ID: 4, TransactionType: model.TxPurchasedNFT, AccountID: "0.0.5", Content: []byte(`{"price":`)}
	f.trans.On("ListSaleHistory", mock.Anything, int64(100), 1, 10).Return([]*model.Transaction{
		history(t, 1, model.TxPurchasedNFT, "0.0.2", model.Acquisition{Price: decimal.NewFromInt(-30), Point: decimal.NewFromInt(2)}),
		history(t, 2, model.TxReceiveNFTFromOffer, "0.0.3", model.Acquisition{Price: decimal.RequireFromString("-12.5"), Point: decimal.NewFromInt(2)}),
		history(t, 3, model.TxReceiveNFT, "0.0.4", model.PointMovement{Point: decimal.NewFromInt(2), Name: "Villa"}),
		broken,
	}, int64(4), nil)

	page, err := f.market(testNow).SaleHistory(context.Background(), 7, 0, 0)

	require.NoError(t, err)
	require.Len(t, page.Items, 4)
	tests := []struct {
		name      string
		wantName  string
		wantPrice string
	}{
		{name: "purchase shows the unsigned price", wantName: "0.0.2", wantPrice: "30"},
		{name: "accepted offer", wantName: "0.0.3", wantPrice: "12.5"},
		{name: "mint or transfer has no price", wantName: "0.0.4", wantPrice: "0"},
		{name: "undecodable content has no price", wantName: "0.0.5", wantPrice: "0"},
	}
	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := page.Items[i]
			assert.Equal(t, tt.wantName, item.Name)
			assert.True(t, item.Price.Equal(decimal.RequireFromString(tt.wantPrice)), "got %s", item.Price)
		})
	}
	assert.Equal(t, testNow.Add(-time.Hour), page.Items[0].CreatedAt)
}

func TestMarketService_SaleHistory_UnknownNFT(t *testing.T) {
	f := newFixture()
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(nil, repository.ErrNFTNotFound)

	_, err := f.market(testNow).SaleHistory(context.Background(), 7, 1, 10)

	assertBizError(t, err, http.StatusBadRequest, MsgNFTNotFound)
	f.trans.AssertNotCalled(t, "ListSaleHistory", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMarketService_SaleHistory_StoreDown(t *testing.T) {
	f := newFixture()
	f.nfts.On("GetByID", mock.Anything, int64(7)).Return(&model.NFT{ID: 7, TokenID: 100}, nil)
	f.trans.On("ListSaleHistory", mock.Anything, int64(100), 1, 10).Return(nil, int64(0), errors.New("db gone"))

	_, err := f.market(testNow).SaleHistory(context.Background(), 7, 1, 10)

	assert.Error(t, err)
	assert.False(t, isBizError(err))
}
