package repository

import (
	"context"
	"testing"

	"realestate/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	db, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      sqlDB,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	return db, mock
}

func TestSellingConfigRepository_UpdateStatus(t *testing.T) {
	tests := []struct {
		name     string
		from, to string
		affected int64
		expectDB bool
		wantErr  error
	}{
		{name: "settles active config", from: model.SellingConfigStatusActive, to: model.SellingConfigStatusInactive, affected: 1, expectDB: true},
		{name: "sweep claims config", from: model.SellingConfigStatusActive, to: model.SellingConfigStatusProcessing, affected: 1, expectDB: true},
		{name: "lost the race", from: model.SellingConfigStatusActive, to: model.SellingConfigStatusInactive, affected: 0, expectDB: true, wantErr: ErrStatusConflict},
		{name: "terminal status", from: model.SellingConfigStatusInactive, to: model.SellingConfigStatusActive, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock := setupMockDB(t)
			repo := NewSellingConfigRepository(db)

			if tt.expectDB {
				mock.ExpectExec("UPDATE `nft_selling_configs` SET").
					WillReturnResult(sqlmock.NewResult(0, tt.affected))
			}

			err := repo.UpdateStatus(context.Background(), nil, 42, tt.from, tt.to)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestOfferRepository_UpdateStatus_Conflict(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewOfferRepository(db)

	mock.ExpectExec("UPDATE `offers` SET").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), nil, 7, model.OfferStatusCreated, model.OfferStatusCancelled)
	assert.ErrorIs(t, err, ErrStatusConflict)

	err = repo.UpdateStatus(context.Background(), nil, 7, model.OfferStatusApproved, model.OfferStatusCancelled)
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSellingConfigRepository_GetByID_NotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewSellingConfigRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `nft_selling_configs`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	cfg, err := repo.GetByID(context.Background(), 1)
	assert.Nil(t, cfg)
	assert.ErrorIs(t, err, ErrSellingConfigNotFound)
}

func TestBidRepository_GetWinning_None(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewBidRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `bids`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	bid, err := repo.GetWinning(context.Background(), 1)
	assert.NoError(t, err)
	assert.Nil(t, bid)
}

func TestNFTRepository_TotalPointByOwner(t *testing.T) {
	t.Run("sums points", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewNFTRepository(db)

		mock.ExpectQuery("SELECT SUM\\(point\\) FROM `nfts`").
			WithArgs(int64(9)).
			WillReturnRows(sqlmock.NewRows([]string{"SUM(point)"}).AddRow("12.5"))

		total, err := repo.TotalPointByOwner(context.Background(), 9)
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("12.5").Equal(total))
	})

	t.Run("no nfts", func(t *testing.T) {
		db, mock := setupMockDB(t)
		repo := NewNFTRepository(db)

		mock.ExpectQuery("SELECT SUM\\(point\\) FROM `nfts`").
			WillReturnRows(sqlmock.NewRows([]string{"SUM(point)"}).AddRow(nil))

		total, err := repo.TotalPointByOwner(context.Background(), 9)
		require.NoError(t, err)
		assert.True(t, total.IsZero())
	})
}

func TestUserPointRepository_Add_Upserts(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserPointRepository(db)

	mock.ExpectExec("INSERT INTO `user_points` .* ON DUPLICATE KEY UPDATE").
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.Add(context.Background(), nil, 3, model.PointTypeAgent, decimal.NewFromInt(-2))
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOutboxRepository_RelayWrites(t *testing.T) {
	t.Run("mark sent only touches pending rows", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("UPDATE `outbox_message` SET .* WHERE id = \\? AND status = \\?").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewOutboxRepository(db).MarkSent(context.Background(), 7)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("failed publish keeps the cause", func(t *testing.T) {
		db, mock := setupMockDB(t)
		mock.ExpectExec("UPDATE `outbox_message` SET .*`last_error`=\\?.*`retry_count`=retry_count \\+ 1").
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := NewOutboxRepository(db).IncrementRetryCount(context.Background(), 7, "broker down")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
