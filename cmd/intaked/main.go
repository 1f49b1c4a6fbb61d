// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openfoto/intake/internal/api"
	"github.com/openfoto/intake/internal/config"
	"github.com/openfoto/intake/internal/flow"
	intakelog "github.com/openfoto/intake/internal/log"
	"github.com/openfoto/intake/internal/store"
	"github.com/openfoto/intake/internal/tracker"
)

var (
	version   = "v0.3.0"
	commit    = "none"
	buildDate = "unknown"
)

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("intaked %s (commit: %s, built: %s)\n", version, commit, buildDate)
		os.Exit(0)
	}

	cfg := config.FromEnv()
	intakelog.Configure(intakelog.Config{
		Level:   cfg.LogLevel,
		Service: "intaked",
	})
	logger := intakelog.WithComponent("daemon")

	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	client, err := store.New(store.Config{
		Addr:          cfg.RedisAddr,
		Password:      cfg.RedisPassword,
		DB:            cfg.RedisDB,
		RetryAttempts: cfg.RetryAttempts,
		RetryBackoff:  cfg.RetryBackoff,
		OpTimeout:     cfg.OpTimeout,
	}, intakelog.WithComponent("store"))
	if err != nil {
		logger.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("state store unavailable")
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn().Err(err).Msg("closing state store")
		}
	}()

	eventLog := flow.NewEventLog(client, intakelog.WithComponent("eventlog"))
	repo := tracker.New(client, flow.DispatchTrigger{Log: eventLog}, intakelog.WithComponent("tracker"))
	server := api.NewServer(repo, eventLog, cfg, intakelog.WithComponent("api"))

	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(client),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info().
			Str("addr", cfg.ListenAddr).
			Str("version", version).
			Msg("intake service listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}
	logger.Info().Msg("intake service stopped")
}
