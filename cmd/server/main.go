package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/Libertai/libertai-inference/internal/auth"
	cfgpkg "github.com/Libertai/libertai-inference/internal/config"
	"github.com/Libertai/libertai-inference/internal/credits"
	basechain "github.com/Libertai/libertai-inference/internal/ingest/base"
	solchain "github.com/Libertai/libertai-inference/internal/ingest/solana"
	"github.com/Libertai/libertai-inference/internal/pricing"
	"github.com/Libertai/libertai-inference/internal/server"
	"github.com/Libertai/libertai-inference/internal/store"
	"github.com/Libertai/libertai-inference/internal/webhook/thirdweb"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	solana "github.com/gagliardetto/solana-go"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	cfg := cfgpkg.Load()

	db := store.OpenSQLite(cfg.Database.SQLiteDSN)
	store.AutoMigrate(db)
	repo := store.NewRepository(db)

	eventHub := server.NewEventHub(logger.Named("events"))
	bonuses := map[store.Provider]float64{}
	if cfg.Credits.SolPaymentBonus > 0 {
		bonuses[store.ProviderSOLSolana] = cfg.Credits.SolPaymentBonus
	}
	creditsSvc := credits.NewService(repo, logger.Named("credits"), eventHub, bonuses)
	authSvc := auth.NewService(cfg.Auth)
	prices := pricing.NewClient(cfg.Pricing.BaseURL, cfg.Pricing.Timeout, cfg.Pricing.CacheTTL, logger.Named("pricing"))

	var basePoller *basechain.Poller
	if cfg.Base.Enabled {
		ethClient, err := ethclient.Dial(cfg.Base.RPCURL)
		if err != nil {
			logger.Fatal("connect base rpc", zap.Error(err))
		}
		basePoller = basechain.NewPoller(basechain.Config{
			Contract:        common.HexToAddress(cfg.Base.PaymentProcessor),
			ColdStartWindow: cfg.Base.ColdStartWindow,
			ReorgOffset:     cfg.Base.ReorgOffset,
			PollTimeout:     cfg.Base.PollTimeout,
		}, ethClient, creditsSvc, prices, logger.Named("base"))
	}

	var solanaPoller *solchain.Poller
	if cfg.Solana.Enabled {
		program, err := solana.PublicKeyFromBase58(cfg.Solana.PaymentProgram)
		if err != nil {
			logger.Fatal("parse solana payment program", zap.Error(err))
		}
		solanaPoller = solchain.NewPoller(solchain.Config{
			Program:        program,
			SignatureLimit: cfg.Solana.SignatureLimit,
			PollTimeout:    cfg.Solana.PollTimeout,
		}, solchain.NewClient(cfg.Solana.RPCURL), creditsSvc, prices, logger.Named("solana"))
	}

	webhookH := thirdweb.NewHandler(thirdweb.Config{
		WebhookSecret:       cfg.Thirdweb.WebhookSecret,
		PaymentProcessor:    cfg.Thirdweb.PaymentProcessor,
		ExpectedTokenSymbol: cfg.Thirdweb.ExpectedTokenSymbol,
		ExpectedChainID:     cfg.Thirdweb.ExpectedChainID,
	}, creditsSvc, logger.Named("thirdweb"))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sched := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
		cron.Recover(cron.DefaultLogger),
	))
	if basePoller != nil {
		scheduleEvery(sched, logger, "base poll", cfg.Base.PollInterval, func() error {
			_, err := basePoller.Poll(ctx)
			return err
		})
	}
	if solanaPoller != nil {
		scheduleEvery(sched, logger, "solana poll", cfg.Solana.PollInterval, func() error {
			_, err := solanaPoller.Poll(ctx)
			return err
		})
	}
	scheduleEvery(sched, logger, "expire credits", cfg.Credits.SweepInterval, func() error {
		_, err := creditsSvc.ExpireCredits(ctx)
		return err
	})
	sched.Start()
	defer sched.Stop()

	var baseTrigger, solanaTrigger server.ChainPoller
	if basePoller != nil {
		baseTrigger = basePoller
	}
	if solanaPoller != nil {
		solanaTrigger = solanaPoller
	}
	r := server.NewRouter(cfg, authSvc, creditsSvc, webhookH, eventHub, baseTrigger, solanaTrigger)
	srv := server.NewHTTP(cfg.Server.HTTPAddr, r)

	go eventHub.Run(ctx)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("http server", zap.Error(err))
		}
	}()
	logger.Info("server started", zap.String("addr", cfg.Server.HTTPAddr))

	<-ctx.Done()
	shutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Stop(shutdown)
}

func scheduleEvery(sched *cron.Cron, logger *zap.Logger, name string, interval time.Duration, run func() error) {
	if interval <= 0 {
		return
	}
	_, err := sched.AddFunc("@every "+interval.String(), func() {
		if err := run(); err != nil {
			logger.Warn("scheduled job failed", zap.String("job", name), zap.Error(err))
		}
	})
	if err != nil {
		logger.Fatal("schedule job", zap.String("job", name), zap.Error(err))
	}
}
