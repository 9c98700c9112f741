package main

import (
	"context"
	"errors"
	"time"

	"budgetbook/internal/amqp"
	"budgetbook/internal/cli"
	"budgetbook/internal/log"
	"budgetbook/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg, log.ComponentWorker)
	logger.Info("Starting budgetbook-exporter")

	if !cfg.ExportEnabled() {
		cli.Fatal(logger, "Exporter needs a broker", errors.New("AMQP_URL is not set"))
	}

	store := cli.OpenStore(logger, cfg)
	defer store.Close()

	sink := cli.OpenSink(context.Background(), logger, cfg)

	amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		cli.Fatal(logger, "Failed to initialize AMQP client", err)
	}
	defer amqpClient.Close()

	exports := worker.NewExportWorker(sink, store, logger)
	consume := func(ctx context.Context) error {
		err := amqpClient.ConsumeExports(ctx, exports.HandleExportMessage)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	}
	if err := cli.Run(logger, 30*time.Second, consume, nil); err != nil {
		cli.Fatal(logger, "Message consumption failed", err)
	}
	logger.Info("Exporter stopped")
}
