package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"tracker/internal/amqp"
	"tracker/internal/cli"
	"tracker/internal/config"
	applog "tracker/internal/log"
	"tracker/internal/sheets"
	gsheet "tracker/internal/sheets/google"
	"tracker/internal/sheets/memory"
	"tracker/internal/worker"
)

const reconcileInterval = time.Hour

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(applog.ComponentWorker)

	logger.Info("Starting tracker-worker")

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the worker")
		os.Exit(1)
	}

	sink, err := newSink(cfg)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", applog.FieldError, err)
		os.Exit(1)
	}

	var loader worker.SnapshotLoader
	if cfg.DataBackend == config.BackendSQLite {
		repo := cli.InitSQLite(logger, cfg.SQLiteDBPath)
		defer repo.Close()
		loader = repo
	} else {
		logger.Info("Startup reconciliation disabled for the memory backend")
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", applog.FieldError, err)
		os.Exit(1)
	}
	defer client.Close()

	syncWorker := worker.NewSyncWorker(sink, loader)

	ctx, done := cli.GracefulShutdown(logger, 15*time.Second, nil)

	logger.Info("Performing startup sync check")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", applog.FieldError, err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(gctx, syncWorker.HandleEvent)
	})
	if loader != nil {
		g.Go(func() error {
			ticker := time.NewTicker(reconcileInterval)
			defer ticker.Stop()
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-ticker.C:
					if err := syncWorker.StartupSyncCheck(gctx); err != nil {
						logger.Error("Periodic reconciliation failed", applog.FieldError, err)
					}
				}
			}
		})
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	<-done
	logger.Info("Worker stopped gracefully")
}

// newSink mirrors into Google Sheets when a spreadsheet is configured and
// into process memory otherwise.
func newSink(cfg *config.Config) (sheets.TransactionSink, error) {
	if cfg.GoogleSpreadsheetID == "" {
		return memory.New(), nil
	}
	client, err := gsheet.New(context.Background(), gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		ExpensesSheet:   cfg.GoogleExpensesSheet,
		IncomeSheet:     cfg.GoogleIncomeSheet,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	})
	if err != nil {
		return nil, err
	}
	return client, nil
}
