package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"tracker/internal/backend"
	"tracker/internal/cli"
	"tracker/internal/core"
	apphttp "tracker/internal/http"
	applog "tracker/internal/log"
	"tracker/internal/services"
)

type pinger interface {
	Ping(ctx context.Context) error
}

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", applog.FieldError, err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to create backend", applog.FieldError, err, "backend", backendCfg.Type)
		os.Exit(1)
	}

	svc := services.NewLedgerService(result.Ledger, result.Store, result.Publisher)

	opts := apphttp.Options{
		TransactionsFile: cfg.TransactionsFile,
		MaxUploadBytes:   cfg.MaxUploadBytes,
		Formatter:        core.NewFormatter(cfg.CurrencySymbol, cfg.Locale),
		ReportCacheTTL:   cfg.ReportCacheTTL,
		Logger:           logger,
	}
	if p, ok := result.Store.(pinger); ok {
		opts.Ready = p.Ping
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, opts)
	srv.ReadTimeout = 30 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	_, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
		if err := result.Cleanup(); err != nil {
			logger.Error("Backend cleanup error", applog.FieldError, err)
		}
	})

	logger.Info("Starting tracker server",
		"port", cfg.Port,
		"backend", backendCfg.Type,
		"expenses", result.Ledger.Len(core.KindExpense),
		"incomes", result.Ledger.Len(core.KindIncome))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	<-done
	logger.Info("Server stopped gracefully")
}
