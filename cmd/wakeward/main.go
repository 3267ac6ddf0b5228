// cmd/wakeward/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"wakeward/internal/config"
	"wakeward/internal/database"
	"wakeward/internal/inventory"
	"wakeward/internal/metrics"
	"wakeward/internal/netcheck"
	"wakeward/internal/power"
	"wakeward/internal/wake"
	"wakeward/internal/wakelog"
	"wakeward/internal/web"
)

func main() {
	configFile := flag.String("config", "config.yaml", "Configuration file path")
	version := flag.Bool("version", false, "Show version information")
	flag.Parse()

	if *version {
		fmt.Printf("wakeward %s (%s, %s)\n", web.Version, web.GitCommit, web.BuildTime)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	setupLogging(cfg.Logging)

	logrus.WithFields(logrus.Fields{
		"config_file": *configFile,
		"port":        cfg.Server.Port,
		"hosts":       len(cfg.Hosts),
	}).Info("Starting wakeward")

	// Initialize database
	store, err := database.NewBoltStore(cfg.Database.Path)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Reconcile the configured inventory into the store
	accepted, err := inventory.Sync(ctx, store, cfg.Hosts)
	if err != nil {
		logrus.Fatalf("Failed to sync host inventory: %v", err)
	}
	logrus.WithField("hosts", accepted).Info("Host inventory synced")

	metricsCollector := metrics.NewCollector(store)
	collector := wakelog.NewCollector(store)
	prober := netcheck.NewSystemProber()

	classifier := power.NewClassifier(prober, collector, metricsCollector, power.Options{
		Timeout:           cfg.Probe.Timeout,
		TCPPort:           cfg.Probe.TCPPort,
		DebounceThreshold: cfg.Probe.DebounceThreshold,
	})

	sender := wake.NewSender(cfg.Wake.BroadcastAddr, cfg.Wake.Port)

	watcher := wake.NewWatcher(store, classifier, sender, collector, metricsCollector, wake.WatcherOptions{
		ConfirmDeadline: cfg.Wake.ConfirmDeadline,
		ConfirmInterval: cfg.Wake.ConfirmInterval,
		MaxRetries:      cfg.Wake.MaxRetries,
		RetryBackoff:    cfg.Wake.RetryBackoff,
	})

	webServer := web.NewServer(cfg, store, classifier, watcher, collector, prober, metricsCollector)

	// Start services
	go classifier.Run(ctx, store, cfg.Probe.Interval)
	go watcher.Run(ctx)
	go collector.RunRetention(ctx, cfg.Database.HistoryRetention, cfg.Database.CleanupInterval)

	if cfg.Wake.ListenPort > 0 {
		listener := wake.NewListener(cfg.Wake.ListenPort, store, watcher, metricsCollector)
		if err := listener.Start(ctx); err != nil {
			logrus.Fatalf("Failed to start wake trigger listener: %v", err)
		}
		defer listener.Stop()
	}

	if err := webServer.Start(ctx); err != nil {
		logrus.Fatalf("Failed to start web server: %v", err)
	}

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	logrus.WithField("signal", sig).Info("Received shutdown signal")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := webServer.Stop(shutdownCtx); err != nil {
		logrus.WithError(err).Error("Web server shutdown failed")
	}

	// Give in-flight wake workflows time to record their outcome
	time.Sleep(2 * time.Second)
	logrus.Info("Shutdown complete")
}

func setupLogging(cfg config.LoggingConfig) {
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)

	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}
}
