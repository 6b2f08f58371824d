package main

import (
	"context"
	"os"

	"lifeledger/internal/amqp"
	"lifeledger/internal/cli"
	"lifeledger/internal/core"
	"lifeledger/internal/ledger"
	"lifeledger/internal/log"
)

// subscription-poster loads the ledger once, which posts every due
// subscription charge, and exits. Intended for cron.
func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), log.ComponentPoster)
	cfg := cli.LoadAndValidateConfig(logger)
	ctx := context.Background()

	store := cli.InitStore(ctx, logger, cfg)
	defer store.Cleanup()

	opts := []ledger.Option{ledger.WithLogger(log.Default(log.ComponentPoster))}
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, postings will not be mirrored", "error", err)
		} else {
			defer amqpClient.Close()
			opts = append(opts, ledger.WithNotifier(amqpClient))
		}
	}

	engine := ledger.New(store.Store, opts...)

	posted := 0
	engine.Subscribe(func(_ context.Context, _ int64, changes []core.Change) {
		for _, c := range changes {
			if c.Kind == core.TransactionCreated {
				posted++
			}
		}
	})

	if err := engine.Load(ctx); err != nil {
		logger.Error("Failed to load ledger", "error", err)
		os.Exit(1)
	}

	logger.Info("Subscription posting complete",
		"posted", posted,
		"version", engine.Version())
}
