package main

import (
	"context"
	"errors"
	"os"

	"golang.org/x/sync/errgroup"

	"keuangan/internal/backend"
	"keuangan/internal/cli"
	"keuangan/internal/config"
	"keuangan/internal/log"
	"keuangan/internal/storage"
	"keuangan/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	logger.Info("Starting keuangan-worker", log.FieldOperation, log.OpStartup)

	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).ValidateWorker)

	flushSentry := cli.InitSentry(logger, cfg)
	defer flushSentry()

	ctx, stop := cli.ShutdownContext()
	defer stop()

	db := cli.InitStorage(ctx, logger, cfg)
	defer db.Close()

	mirrorCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid mirror configuration", log.FieldError, err.Error())
		os.Exit(1)
	}
	sheet, err := backend.NewFactory(logger).CreateBackend(ctx, mirrorCfg)
	if err != nil {
		logger.Error("Failed to initialize mirror target", log.FieldError, err.Error())
		os.Exit(1)
	}

	amqpClient, err := cli.InitAMQP(ctx, logger, cfg)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err.Error())
		os.Exit(1)
	}
	defer amqpClient.Close()

	mirror := worker.NewMirrorWorker(storage.NewEntryRepository(db, logger), sheet, logger)

	// Catch up on anything missed while the worker was down.
	if err := mirror.StartupSync(ctx); err != nil {
		logger.LogError(ctx, "Startup mirror failed", err, log.OpStartup, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := amqpClient.Consume(gctx, mirror.HandleEvent)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	if cfg.MirrorInterval > 0 {
		g.Go(func() error {
			return mirror.RunPeriodic(gctx, cfg.MirrorInterval)
		})
	}

	if err := g.Wait(); err != nil {
		logger.Error("Worker stopped with error", log.FieldError, err.Error())
		flushSentry()
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully", log.FieldOperation, log.OpShutdown)
}
