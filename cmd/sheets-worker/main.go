// Command sheets-worker consumes change events from AMQP and appends them
// to the Google Sheets change journal.
package main

import (
	"context"
	"errors"
	"os"

	"expenses/internal/amqp"
	"expenses/internal/cli"
	"expenses/internal/log"
	gsheet "expenses/internal/sheets/google"
	"expenses/internal/worker"
)

func main() {
	cli.LoadEnvFile()
	boot := log.New(log.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := cfg.ValidateJournal(); err != nil {
		logger.Error("Configuration validation failed", log.FieldError, err)
		os.Exit(1)
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	journal, err := gsheet.NewWithCredentials(ctx, cfg.GoogleSpreadsheetID, cfg.GoogleSheetName, gsheet.Credentials{
		JSON: cfg.GoogleCredentialsJSON,
		File: cfg.GoogleCredentialsFile,
	}, logger)
	if err != nil {
		logger.Error("Failed to initialize Google Sheets client", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID, "sheet", cfg.GoogleSheetName)

	consumer, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", log.FieldError, err)
		os.Exit(1)
	}
	defer consumer.Close()

	w := worker.NewJournalWorker(journal, logger)
	if err := w.Run(ctx, consumer); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Journal worker failed", log.FieldError, err)
		os.Exit(1)
	}
	logger.Info("Journal worker stopped gracefully")
}
