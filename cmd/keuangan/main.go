package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"keuangan/internal/cli"
	"keuangan/internal/config"
	apphttp "keuangan/internal/http"
	"keuangan/internal/log"
	"keuangan/internal/services"
	"keuangan/internal/storage"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	flushSentry := cli.InitSentry(logger, cfg)
	defer flushSentry()

	ctx, stop := cli.ShutdownContext()
	defer stop()

	db := cli.InitStorage(ctx, logger, cfg)
	defer db.Close()

	var publisher services.Publisher
	amqpClient, err := cli.InitAMQP(ctx, logger, cfg)
	if err != nil {
		// The API stays usable without events.
		logger.Error("Failed to connect to AMQP, change events disabled", log.FieldError, err.Error())
	} else if amqpClient != nil {
		defer amqpClient.Close()
		publisher = amqpClient
	}

	entries := services.NewEntryService(storage.NewEntryRepository(db, logger), publisher, logger)
	types := services.NewTypeService(storage.NewTypeRepository(db, logger), publisher, logger)

	srv := apphttp.NewServer(cfg.Addr(), apphttp.Options{
		APIPrefix:         cfg.APIPrefix,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		RateLimitRPS:      cfg.RateLimitRPS,
		RateLimitBurst:    cfg.RateLimitBurst,
	}, entries, types, db, logger)
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting keuangan server", log.FieldOperation, log.OpStartup, "addr", cfg.Addr(), "api_prefix", cfg.APIPrefix)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", log.FieldError, err.Error())
		flushSentry()
		os.Exit(1)
	}

	m := srv.Metrics()
	logger.Info("Server stopped gracefully", log.FieldOperation, log.OpShutdown,
		"total_requests", m.TotalRequests,
		"server_errors", m.ServerErrors,
		"db_wait_count", db.Stats().WaitCount)
}
