// Command adslot starts the ad slot rendering service.
//
// The service fetches placements from the EmpowerLocal ad network for the
// requested zones and returns ready-to-insert HTML: tracking pixels, the
// creative body and the stylesheet that hides the pixels. Slot outcomes are
// optionally published to Kafka for operators.
//
// Usage:
//
//	go run ./cmd/adslot [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/adserve"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/events"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/markup"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/server/handler"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/server/router"
	"github.com/EmpowerLocal/empowerlocal-ad-components/internal/slot"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/config"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/health"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/kafka"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/logger"
	"github.com/EmpowerLocal/empowerlocal-ad-components/pkg/metrics"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting adslot service",
		"port", cfg.Server.Port,
		"adserve_url", cfg.AdServe.BaseURL,
		"placement_id", cfg.AdServe.PlacementID,
		"kafka_enabled", cfg.Kafka.Enabled,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(nil)
	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port)
		defer shutdownMetrics(context.Background())
	}

	client, err := adserve.NewClient(cfg.AdServe, nil)
	if err != nil {
		slog.Error("failed to build ad network client", "error", err)
		os.Exit(1)
	}

	checker := health.NewChecker()

	var tracker events.Tracker = events.Nop{}
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka)
		defer producer.Close()
		collector := events.NewCollector(producer, cfg.Kafka.BufferSize, m)
		collector.Start(context.Background())
		defer collector.Close()
		tracker = collector
		checker.Register("kafka", health.FromError(producer.Check, true))
	}

	var policy markup.Policy = markup.Trusted{}
	if cfg.Slot.Sanitize {
		policy = markup.NewSanitized()
	}

	h := handler.New(slot.Options{
		Fetcher:        client,
		Policy:         policy,
		Tracker:        tracker,
		Metrics:        m,
		DefaultKeyword: cfg.Slot.DefaultKeyword,
		DiscardStale:   cfg.Slot.DiscardStale,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router.New(h, checker, m, cfg.Server.RequestTimeout),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("adslot service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
	// ListenAndServe returns as soon as Shutdown starts. In-flight requests
	// still track outcomes, so the collector must outlive the drain.
	<-shutdownDone

	slog.Info("adslot service stopped")
}
