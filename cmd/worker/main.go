package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"realestate/internal/app"
	"realestate/internal/infrastructure/mq"
	"realestate/internal/job"
	"realestate/internal/logger"

	"go.uber.org/zap"
)

const (
	roleAuctionProvider = "auction-provider"
	roleAuctionConsumer = "auction-consumer"
	roleFeeProvider     = "fee-provider"
	roleFeeConsumer     = "fee-consumer"
	roleAll             = "all"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to the config file")
	role := flag.String("role", roleAll, "auction-provider|auction-consumer|fee-provider|fee-consumer|all")
	flag.Parse()

	switch *role {
	case roleAuctionProvider, roleAuctionConsumer, roleFeeProvider, roleFeeConsumer, roleAll:
	default:
		fmt.Fprintf(os.Stderr, "unknown role %q\n", *role)
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// settlement holds the NFT across several ledger calls
	a, err := app.New(ctx, *configPath, "worker-"+*role, 60*time.Second)
	if err != nil {
		fmt.Fprintf(os.Stderr, "startup failed: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()
	cfg := a.Cfg

	runs := func(r string) bool { return *role == roleAll || *role == r }

	scheduler := job.NewScheduler(ctx)
	if runs(roleAuctionProvider) {
		p := job.NewAuctionExpiryProvider(a.Stores, a.Locker, cfg.Kafka.Topic.ExpiredAuction, cfg.Business.SweepBatchSize)
		if err := scheduler.Add("AuctionExpiryProvider", cfg.Business.SweepCron, p.Run); err != nil {
			logger.Fatal("schedule auction provider", zap.Error(err))
		}
	}
	if runs(roleFeeProvider) {
		p := job.NewFeeBackfillProvider(a.Stores, cfg.Kafka.Topic.TransactionFee, cfg.Business.SweepBatchSize, cfg.Business.DefaultGasFee)
		if err := scheduler.Add("FeeBackfillProvider", cfg.Business.FeeCron, p.Run); err != nil {
			logger.Fatal("schedule fee provider", zap.Error(err))
		}
	}
	scheduler.Start()

	var consumers []*mq.Consumer
	if runs(roleAuctionConsumer) {
		c := job.NewAuctionExpiryConsumer(a.Market)
		consumer, err := mq.NewConsumer(&cfg.Kafka, cfg.Kafka.Topic.ExpiredAuction, "AuctionExpiryConsumer", c.Handle)
		if err != nil {
			logger.Fatal("auction consumer", zap.Error(err))
		}
		consumers = append(consumers, consumer)
	}
	if runs(roleFeeConsumer) {
		c := job.NewFeeBackfillConsumer(a.Stores.Transactions, a.Ledger)
		consumer, err := mq.NewConsumer(&cfg.Kafka, cfg.Kafka.Topic.TransactionFee, "FeeBackfillConsumer", c.Handle)
		if err != nil {
			logger.Fatal("fee consumer", zap.Error(err))
		}
		consumers = append(consumers, consumer)
	}

	var wg sync.WaitGroup
	for _, consumer := range consumers {
		wg.Add(1)
		go func(c *mq.Consumer) {
			defer wg.Done()
			if err := c.Run(ctx); err != nil {
				logger.Error(err)
			}
		}(consumer)
	}

	logger.Info("worker started", zap.String("role", *role))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("worker shutting down")
	cancel()
	scheduler.Stop()
	for _, c := range consumers {
		if err := c.Close(); err != nil {
			logger.Error(err)
		}
	}
	wg.Wait()
	logger.Info("worker stopped")
}
