package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/pikicariks/rain-detection-system/db"
	"github.com/pikicariks/rain-detection-system/internal/api"
	"github.com/pikicariks/rain-detection-system/internal/config"
	"github.com/pikicariks/rain-detection-system/internal/dashboard"
	"github.com/pikicariks/rain-detection-system/internal/device"
	"github.com/pikicariks/rain-detection-system/internal/env"
	"github.com/pikicariks/rain-detection-system/internal/logging"
	"github.com/pikicariks/rain-detection-system/internal/metrics"
	"github.com/pikicariks/rain-detection-system/internal/notifications"
	"github.com/pikicariks/rain-detection-system/internal/orchestrator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	logging.Init(cfg.LogLevel, cfg.LogFile)
	env.Cfg = cfg

	log.Info().
		Str("device_url", cfg.Device.BaseURL).
		Str("database", cfg.Database.Path).
		Msg("Starting rain station backend")

	metrics.Init()
	notifications.Init()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer database.Close()

	client := device.NewClient(cfg.Device.BaseURL, time.Duration(cfg.Device.TimeoutSeconds)*time.Second)
	orch := orchestrator.New(database, client)
	agg := dashboard.NewAggregator(database, client, cfg.Dashboard.RecentLogs)

	server := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port),
		Handler: api.NewServer(database, orch, agg).Routes(),
	}

	go func() {
		log.Info().Str("address", server.Addr).Msg("Starting REST API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}
}
