package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"lifeledger/internal/amqp"
	"lifeledger/internal/cache"
	"lifeledger/internal/cli"
	"lifeledger/internal/config"
	apphttp "lifeledger/internal/http"
	"lifeledger/internal/ledger"
	"lifeledger/internal/log"
	"lifeledger/internal/reports"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	var srv *apphttp.Server
	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if srv == nil {
			return
		}
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	})

	store := cli.InitStore(ctx, logger, cfg)
	defer func() {
		if err := store.Cleanup(); err != nil {
			logger.Error("Failed to close snapshot store", "error", err)
		}
	}()

	opts := []ledger.Option{
		ledger.WithStrictFunds(cfg.StrictFunds),
		ledger.WithLogger(log.Default(log.ComponentLedger)),
	}

	// AMQP is optional; without it the spreadsheet mirror is not fed.
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without change events", "error", err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, ledger.WithNotifier(amqpClient))
			logger.Info("AMQP change events enabled",
				"exchange", cfg.AMQPExchange,
				"queue", cfg.AMQPQueue)
		}
	} else {
		logger.Info("AMQP disabled - no change events will be published")
	}

	engine := ledger.New(store.Store, opts...)
	if err := engine.Load(ctx); err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}

	svc := reports.NewService(engine, cfg.ReportCacheSize, cfg.ReportCacheTTL)
	engine.Subscribe(svc.Invalidate)

	caches := cache.NewManager()
	caches.Register("reports", svc.Cache())
	caches.StartCleanup(time.Minute)
	defer caches.Stop()

	srv = apphttp.NewServer(":"+cfg.Port, engine, svc)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting ledger server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"version", engine.Version())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		runPoster(gctx, logger, engine, cfg)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// runPoster posts due subscription charges every POSTER_INTERVAL until ctx ends.
func runPoster(ctx context.Context, logger *log.Logger, engine *ledger.Engine, cfg *config.Config) {
	ticker := time.NewTicker(cfg.PosterInterval)
	defer ticker.Stop()
	audit := log.NewStructuredLogger(logger)

	logger.Info("Subscription poster configured", "interval", cfg.PosterInterval)
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			posted, err := engine.PostDueSubscriptions(ctx)
			if err != nil {
				audit.LogFailure(ctx, "Periodic posting failed", err, log.ComponentPoster, log.OpPost)
				continue
			}
			logger.Info("Periodic posting complete",
				"posted", len(posted),
				"next_check", now.Add(cfg.PosterInterval).Format("15:04:05"))
		}
	}
}
