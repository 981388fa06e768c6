package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"time"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"expensebuddy/internal/amqp"
	"expensebuddy/internal/cli"
	"expensebuddy/internal/config"
	applog "expensebuddy/internal/log"
	"expensebuddy/internal/sheets"
	gsheet "expensebuddy/internal/sheets/google"
	"expensebuddy/internal/sheets/memory"
	"expensebuddy/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg, logger := cli.LoadAndValidateConfig((*config.Config).ValidateWorker)
	logger = logger.WithComponent(applog.ComponentWorker)
	logger.Info("Starting buddy-sheets-worker", "queue", cfg.AMQPQueue)

	ctx, cancel := cli.SignalContext(context.Background(), logger)
	defer cancel()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.NewFields().WithError(err, applog.ErrorTypeInternal).ToSlice()...)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *applog.Logger) error {
	mirror, err := newMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(mirror, logger)
	if err := syncWorker.StartupCheck(ctx); err != nil {
		// The consumer retries on its own; a cold sheet is not fatal.
		logger.Error("Startup check failed", applog.NewFields().WithOperation(applog.OpStartup).WithError(err, applog.ErrorTypeNetwork).ToSlice()...)
	}

	health := &http.Server{
		Addr:              ":" + cfg.WorkerHealthPort,
		Handler:           healthRouter(syncWorker),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := client.ConsumeEvents(gctx, syncWorker.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		logger.Info("Health endpoint listening", "addr", health.Addr)
		if err := health.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return cli.GracefulShutdown(gctx, logger, cfg.ShutdownTimeout, health.Shutdown)
	})
	return g.Wait()
}

// newMirror returns the Google Sheets client, or an in-memory sheet when no
// spreadsheet is configured so the pipeline can run locally.
func newMirror(ctx context.Context, cfg *config.Config, logger *applog.Logger) (sheets.Mirror, error) {
	if cfg.GoogleSpreadsheetID == "" {
		logger.Warn("GOOGLE_SPREADSHEET_ID not set, mirroring to memory only")
		return memory.New(), nil
	}
	return gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsFile: cfg.GoogleCredentialsFile,
		CredentialsJSON: cfg.GoogleCredentialsJSON,
	}, logger)
}

func healthRouter(w *worker.SyncWorker) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Get("/healthz", func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusOK)
		_, _ = rw.Write([]byte("ok"))
	})
	r.Get("/stats", func(rw http.ResponseWriter, _ *http.Request) {
		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(w.Stats())
	})
	return r
}
