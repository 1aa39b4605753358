// Command dashboard serves the expense dashboard web UI on top of the
// /api REST backend.
package main

import (
	"os"
	"time"

	"expenses/internal/cli"
	"expenses/internal/client"
	apphttp "expenses/internal/http"
	"expenses/internal/log"
)

func main() {
	cli.LoadEnvFile()
	boot := log.New(log.DefaultConfig())
	cfg := cli.LoadAndValidateConfig(boot)
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	api := client.New(cfg.APIBaseURL,
		client.WithTimeout(cfg.APITimeout),
		client.WithLogger(logger))

	hc := apphttp.DefaultConfig()
	hc.Addr = ":" + cfg.Port
	hc.SessionTTL = cfg.SessionTTL
	hc.MaxSessions = cfg.MaxSessions

	srv, err := apphttp.NewServer(hc, api, logger)
	if err != nil {
		logger.Error("Failed to create dashboard server", log.FieldError, err)
		os.Exit(1)
	}
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 30 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB
	srv.Start()

	ctx, stop := cli.SignalContext()
	defer stop()

	logger.Info("Starting dashboard server",
		log.FieldOperation, log.OpStartup,
		"port", cfg.Port,
		"api_base_url", cfg.APIBaseURL)
	if err := cli.Serve(ctx, logger, srv, 30*time.Second); err != nil {
		logger.Error("Server error", log.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}
