// Package backend builds the store behind the reference API from
// configuration.
package backend

import (
	"context"
	"fmt"

	"expenses/internal/amqp"
	"expenses/internal/log"
	"expenses/internal/services"
	"expenses/internal/storage"
	"expenses/internal/storage/memory"
	"expenses/internal/storage/postgres"
	"expenses/internal/storage/sqlite"
)

// CleanupFunc represents a cleanup function for resources
type CleanupFunc func() error

// Result contains the ready service and the function releasing its resources.
type Result struct {
	Service *services.ExpenseService
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory struct {
	logger *log.Logger
}

func NewFactory(logger *log.Logger) *Factory {
	if logger == nil {
		logger = log.Discard()
	}
	return &Factory{logger: logger.WithComponent(log.ComponentBackend)}
}

// Create opens the configured repository, seeds default categories, and
// connects the optional AMQP publisher.
func (f *Factory) Create(ctx context.Context, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	repo, err := f.openRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	// AMQP is optional: without it the API still works, events are skipped.
	var publisher services.Publisher
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, f.logger)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, continuing without change events", log.FieldError, err)
		} else {
			publisher = amqpClient
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				log.FieldExchange, cfg.AMQPExchange,
				log.FieldQueue, cfg.AMQPQueue)
		}
	}

	svc := services.NewExpenseService(repo, publisher, f.logger)
	if err := svc.Seed(ctx); err != nil {
		svc.Close()
		if amqpClient != nil {
			amqpClient.Close()
		}
		return nil, fmt.Errorf("seed categories: %w", err)
	}

	f.logger.InfoContext(ctx, "Initialized backend",
		log.FieldBackend, cfg.Type,
		"amqp_enabled", publisher != nil)

	return &Result{
		Service: svc,
		Cleanup: func() error {
			if amqpClient != nil {
				amqpClient.Close()
			}
			return svc.Close()
		},
	}, nil
}

func (f *Factory) openRepository(ctx context.Context, cfg Config) (storage.Repository, error) {
	switch cfg.Type {
	case SQLiteBackend:
		repo, err := sqlite.Open(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened SQLite repository", "db_path", cfg.SQLiteDBPath)
		return repo, nil
	case PostgresBackend:
		repo, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Postgres repository: %w", err)
		}
		f.logger.InfoContext(ctx, "Opened Postgres repository")
		return repo, nil
	case MemoryBackend:
		dataDir := cfg.DataDirectory
		if dataDir == "" {
			dataDir = "data"
		}
		f.logger.InfoContext(ctx, "Initialized memory backend", "data_directory", dataDir)
		return memory.NewFromFiles(dataDir), nil
	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
