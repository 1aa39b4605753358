// Command expensed serves the /api REST backend over the configured store.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"expenses/internal/api"
	"expenses/internal/backend"
	"expenses/internal/cli"
	"expenses/internal/log"
	"expenses/internal/middleware/security"
)

func main() {
	cli.LoadEnvFile()
	boot := log.New(log.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", log.FieldError, err)
		os.Exit(1)
	}

	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	res, err := backend.NewFactory(logger).Create(initCtx, bc)
	cancel()
	if err != nil {
		logger.Error("Failed to initialize backend", log.FieldError, err, log.FieldBackend, bc.Type)
		os.Exit(1)
	}
	defer func() {
		if err := res.Cleanup(); err != nil {
			logger.Error("Backend cleanup failed", log.FieldError, err)
		}
	}()

	handler, err := api.NewRouter(res.Service, api.Config{
		AllowedOrigins: cfg.CORSAllowedOrigins,
		TrustedProxies: security.DefaultTrustedProxies,
	}, logger)
	if err != nil {
		logger.Error("Failed to create router", log.FieldError, err)
		os.Exit(1)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.APIPort,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 16,
	}

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting expense API",
		log.FieldOperation, log.OpStartup,
		"port", cfg.APIPort,
		log.FieldBackend, bc.Type)
	if err := cli.Serve(ctx, logger, srv, 30*time.Second); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.APIPort)
		return
	}
	logger.Info("Server stopped gracefully")
}
