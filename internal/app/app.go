package app

import (
	"context"
	"fmt"
	"time"

	"realestate/internal/config"
	"realestate/internal/infrastructure/cache"
	"realestate/internal/infrastructure/database"
	"realestate/internal/infrastructure/lock"
	"realestate/internal/ledger"
	"realestate/internal/logger"
	"realestate/internal/service"
	"realestate/pkg/idgen"
	"realestate/pkg/keyvault"

	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// App is the dependency graph shared by the server and worker binaries.
type App struct {
	Cfg    *config.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Ledger *ledger.Client
	Stores *service.Stores
	Locker *lock.NFTLocker

	Points   *service.PointService
	Market   *service.MarketService
	Wallets  *service.WalletService
	Users    *service.UserService
	Activity *service.ActivityService
	Auth     *service.AuthService
}

// New loads configPath and connects every backing service. name tags the
// process in Sentry. lockTTL bounds how long one holder may keep an NFT
// locked.
func New(ctx context.Context, configPath, name string, lockTTL time.Duration) (*App, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, err
	}

	if err := logger.Initialize(logger.Config{
		Debug:     cfg.Log.Debug,
		SentryDSN: cfg.Log.SentryDSN,
		Tags:      map[string]string{"service": name},
	}); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	if err := idgen.Init(cfg.Server.WorkerID); err != nil {
		return nil, fmt.Errorf("init id generator: %w", err)
	}

	db, err := database.InitMySQL(&cfg.MySQL, cfg.Log.Debug)
	if err != nil {
		return nil, err
	}

	rdb, err := cache.InitRedis(&cfg.Redis)
	if err != nil {
		return nil, err
	}

	l, err := ledger.Dial(ctx, cfg.Ledger.RPCURL, ledger.Config{
		ChainID:        cfg.Ledger.ChainID,
		TreasuryKey:    cfg.Ledger.TreasuryKey,
		InitialBalance: cfg.Ledger.InitialBalance,
		Contracts: ledger.Contracts{
			NFT:         cfg.Ledger.Contracts.NFT,
			Token:       cfg.Ledger.Contracts.Token,
			Marketplace: cfg.Ledger.Contracts.Marketplace,
			Auction:     cfg.Ledger.Contracts.Auction,
		},
	})
	if err != nil {
		return nil, err
	}

	vault, err := keyvault.New(cfg.Wallet.Secret)
	if err != nil {
		return nil, fmt.Errorf("init key vault: %w", err)
	}

	stores := service.NewStores(db)
	auth, err := service.NewAuthService(stores.Users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, err
	}
	locker := lock.NewNFTLocker(rdb, lockTTL)
	points := service.NewPointService(stores.Points)

	return &App{
		Cfg:      cfg,
		DB:       db,
		Redis:    rdb,
		Ledger:   l,
		Stores:   stores,
		Locker:   locker,
		Points:   points,
		Market:   service.NewMarketService(stores, l, locker, vault, points, cache.NewFeeCache(rdb, cfg.Business.FeeCacheTTL), cfg.Business.DefaultGasFee),
		Wallets:  service.NewWalletService(stores, l, locker, vault, points),
		Users:    service.NewUserService(stores.Users, points),
		Activity: service.NewActivityService(stores),
		Auth:     auth,
	}, nil
}

// Close releases the connections New opened.
func (a *App) Close() {
	if err := a.Redis.Close(); err != nil {
		logger.Error(err)
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Flush(2 * time.Second)
}
