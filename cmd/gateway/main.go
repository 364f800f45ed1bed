// Package main is the gateway entry point.
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

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/term"

	"github.com/veilsearch/gateway/internal/config"
	"github.com/veilsearch/gateway/internal/conversation"
	"github.com/veilsearch/gateway/internal/gateway"
	"github.com/veilsearch/gateway/internal/monitoring"
	"github.com/veilsearch/gateway/internal/orchestrator"
	"github.com/veilsearch/gateway/internal/transport"
	"github.com/veilsearch/gateway/internal/utils"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "", "path to config.yaml (optional)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version)
		return
	}

	// .env is optional; real env always wins.
	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg.Logging)

	log.Info().
		Str("aggregator", cfg.Aggregator.URL).
		Str("completion_model", cfg.Completion.Model).
		Str("completion_key", utils.MaskKey(cfg.Completion.APIKey)).
		Msg("configuration loaded")

	metrics := monitoring.NewMetricsCollector()
	client, err := transport.New(cfg.Aggregator.URL, cfg.Proxy.URL, cfg.Proxy.Timeout.Std(),
		transport.WithRetryNotify(metrics.RecordTransportRetry))
	if err != nil {
		log.Fatal().Err(err).Msg("transport setup failed")
	}

	sessions := conversation.NewManager(cfg.Sessions.TTL.Std(), cfg.Sessions.SweepInterval.Std())
	defer sessions.Close()

	orch := orchestrator.New(cfg.Completion, cfg.Search.SummarySourceLimit)
	gw := gateway.New(cfg, client, orch, sessions, metrics)

	errCh := make(chan error, 1)
	go func() {
		if err := gw.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		log.Fatal().Err(err).Msg("server failed")
	case sig := <-sigCh:
		log.Info().Str("signal", sig.String()).Msg("shutting down")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := gw.Stop(ctx); err != nil {
		log.Error().Err(err).Msg("shutdown error")
	}
}

// setupLogging configures the global zerolog logger. Console output when
// attached to a terminal or when forced via config, JSON otherwise.
func setupLogging(cfg config.LoggingConfig) {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.Pretty || term.IsTerminal(int(os.Stdout.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}
}
