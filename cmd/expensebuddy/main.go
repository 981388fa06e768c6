package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"golang.org/x/sync/errgroup"

	"expensebuddy/internal/backend"
	"expensebuddy/internal/cli"
	"expensebuddy/internal/config"
	apphttp "expensebuddy/internal/http"
	"expensebuddy/internal/ledger"
	applog "expensebuddy/internal/log"
	"expensebuddy/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).Validate)
	logger = logger.WithComponent(applog.ComponentApp)
	logger.Info("Starting expensebuddy", "backend", cfg.DataBackend, "port", cfg.Port)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Server stopped with error", applog.NewFields().WithError(err, applog.ErrorTypeInternal).ToSlice()...)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := backend.NewFactory(logger)
	res, err := factory.CreateBackend(ctx, backendCfg)
	if err != nil {
		return err
	}
	if res.Cleanup != nil {
		defer func() {
			if err := res.Cleanup(); err != nil {
				logger.Warn("Backend cleanup failed", applog.FieldError, err.Error())
			}
		}()
	}

	engine := ledger.New(res.Store, ledger.WithLogger(logger))
	if err := engine.Open(ctx); err != nil {
		return err
	}

	svc := services.NewLedgerService(engine, factory.NewPublisher(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue), logger)
	defer svc.Close()

	srv, err := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Logger:             logger,
		Currency:           cfg.Currency,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		ReportCacheSize:    cfg.ReportCacheSize,
		ReportCacheTTL:     cfg.ReportCacheTTL,
		Ready:              res.Ready,
	})
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("HTTP server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cli.GracefulShutdown(gctx, logger, cfg.ShutdownTimeout, srv.Shutdown)
	})
	return g.Wait()
}
