package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"trainhub-billing/internal/config"
	"trainhub-billing/internal/domain/ports/adapter"
	gwAdapters "trainhub-billing/internal/infra/adapters/gateway"
	"trainhub-billing/internal/infra/adapters/notify"
	pg "trainhub-billing/internal/infra/db/postgres"
	httpapi "trainhub-billing/internal/infra/http"
	"trainhub-billing/internal/infra/logging"
	"trainhub-billing/internal/infra/metrics"
	red "trainhub-billing/internal/infra/redis"
	"trainhub-billing/internal/infra/sched"
	"trainhub-billing/internal/usecase"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	if cfg.Runtime.Dev {
		logger.Warn().Msg("developer mode enabled")
	}

	metrics.MustRegister()

	// ---- Postgres ----
	if err := pg.RunMigrations(cfg.Database.URL); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}
	pool, err := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("postgres connect failed")
	}
	defer pool.Close()

	// ---- Redis ----
	redisClient, err := red.NewClient(ctx, &cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connect failed")
	}
	defer redisClient.Close()
	locker := red.NewLocker(redisClient)

	// ---- Repositories ----
	payRepo := pg.NewPaymentRepo(pool)
	subRepo := pg.NewSubscriptionRepo(pool)
	pkgRepo := pg.NewPackageRepo(pool)
	ledgerRepo := pg.NewLedgerRepo(pool)
	tm := pg.NewTxManager(pool)

	// ---- Gateways ----
	gateways := map[string]adapter.GatewayAdapter{}
	if cfg.Gateways.Paymob.APIKey != "" {
		pm, err := gwAdapters.NewPaymobGateway(
			cfg.Gateways.Paymob.APIKey,
			cfg.Gateways.Paymob.HMACSecret,
			cfg.Gateways.Paymob.IntegrationID,
			cfg.Gateways.Paymob.IframeID,
			cfg.Gateways.Paymob.BaseURL,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("paymob gateway init failed")
		}
		gateways[pm.Name()] = pm
	}
	if cfg.Gateways.PayPal.ClientID != "" {
		pp, err := gwAdapters.NewPayPalGateway(
			cfg.Gateways.PayPal.ClientID,
			cfg.Gateways.PayPal.Secret,
			cfg.Gateways.PayPal.WebhookID,
			cfg.Gateways.PayPal.ReturnURL,
			cfg.Gateways.PayPal.Sandbox,
		)
		if err != nil {
			logger.Fatal().Err(err).Msg("paypal gateway init failed")
		}
		gateways[pp.Name()] = pp
	}

	// ---- Notifier ----
	var notifier adapter.Notifier = notify.NewLogNotifier(logger)
	if cfg.Alerts.TelegramToken != "" {
		alerter, err := notify.NewTelegramAlerter(cfg.Alerts.TelegramToken, cfg.Alerts.TelegramChatID, notifier, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("telegram alerter init failed")
		}
		notifier = alerter
	}

	// ---- Use cases ----
	gwList := make([]adapter.GatewayAdapter, 0, len(gateways))
	for _, g := range gateways {
		gwList = append(gwList, g)
	}
	reconcileUC := usecase.NewReconcileUseCase(payRepo, subRepo, pkgRepo, ledgerRepo, tm, locker, notifier, cfg.Reconcile.Timeout, logger)
	checkoutUC := usecase.NewCheckoutUseCase(payRepo, subRepo, pkgRepo, tm, gwList, logger)
	subUC := usecase.NewSubscriptionUseCase(subRepo, tm, logger)
	statsUC := usecase.NewStatsUseCase(payRepo, logger)

	// ---- Workers ----
	expiry := sched.NewExpiryWorker(cfg.Scheduler.ExpiryInterval, subUC, logger)
	go func() { _ = expiry.Run(ctx) }()
	reaper := sched.NewCheckoutReaper(payRepo, cfg.Scheduler.ReaperInterval, cfg.Scheduler.CheckoutMaxAge, logger)
	go func() { _ = reaper.Run(ctx) }()

	// ---- HTTP ----
	srv := httpapi.NewServer(cfg, gateways, reconcileUC, checkoutUC, subUC, statsUC, logger)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("http server stopped")
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	logger.Info().Msg("shutdown requested")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown error")
	}
}
