package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/config"
	"github.com/carebridge/phi-sentinel/internal/export"
	"github.com/carebridge/phi-sentinel/internal/logger"
	"github.com/carebridge/phi-sentinel/internal/monitor"
	"github.com/carebridge/phi-sentinel/internal/pipeline"
	"github.com/carebridge/phi-sentinel/internal/store"
)

var (
	version = "0.1.0"
	commit  = "dev"
	date    = "unknown"
)

func main() {
	// Parse command line flags
	var (
		configPath  = flag.String("config", "", "Path to configuration file")
		showVersion = flag.Bool("version", false, "Show version information")
		inputFile   = flag.String("input", "", "Input file with export records (CSV, JSON lines, or Parquet)")
		archiveFile = flag.String("archive", "", "Parquet archive for successful payloads (overrides config)")
		rateLimit   = flag.Float64("rate", 0, "Records per second limit (overrides config, 0 uses config)")
		noStore     = flag.Bool("no-store", false, "Skip the PostgreSQL payload store")
		serve       = flag.Bool("serve-monitor", false, "Serve the monitor endpoint during the run")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("deid-export %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	if *inputFile == "" {
		fmt.Fprintln(os.Stderr, "Usage: deid-export -input <file> [-archive <file>] [-rate <n>]")
		os.Exit(1)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	if *archiveFile != "" {
		cfg.Pipeline.ArchivePath = *archiveFile
	}
	if *rateLimit > 0 {
		cfg.Pipeline.RecordsPerSec = *rateLimit
	}

	// Initialize logger
	loggerConfig := logger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
	}
	if cfg.Logging.File.Enabled {
		loggerConfig.File = &logger.FileConfig{
			Enabled:  cfg.Logging.File.Enabled,
			Path:     cfg.Logging.File.Path,
			MaxSize:  cfg.Logging.File.MaxSize,
			MaxAge:   cfg.Logging.File.MaxAge,
			Compress: cfg.Logging.File.Compress,
		}
	}

	log, err := logger.New(loggerConfig)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("Starting deid-export",
		zap.String("version", version),
		zap.String("commit", commit),
		zap.String("input", *inputFile))

	strategy, err := buildStrategy(cfg)
	if err != nil {
		log.Fatal("Failed to build token strategy", zap.Error(err))
	}
	exporter := export.NewExporter(strategy, log)

	var payloadStore *store.Store
	if !*noStore {
		payloadStore, err = store.NewStore(&cfg.Database, log)
		if err != nil {
			log.Fatal("Failed to connect to payload store", zap.Error(err))
		}
		defer payloadStore.Close()
	}

	var hub *monitor.Hub
	var monitorSrv *monitor.Server
	if *serve || cfg.Monitor.Enabled {
		hub = monitor.NewHub(log)
		go hub.Run()

		monitorSrv = monitor.NewServer(hub, &cfg.Monitor, log)
		go func() {
			if err := monitorSrv.Start(); err != nil {
				log.Error("Monitor server error", zap.Error(err))
			}
		}()
	}

	p := pipeline.NewPipeline(exporter, payloadStore, hub, &cfg.Pipeline, log)

	// Cancel the run on SIGINT/SIGTERM
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-shutdown
		log.Info("Shutdown signal received", zap.String("signal", sig.String()))
		cancel()
	}()

	result, err := p.ProcessFile(ctx, *inputFile)
	if err != nil {
		log.Error("Export run failed", zap.Error(err))
	}

	if monitorSrv != nil {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		if err := monitorSrv.Shutdown(shutdownCtx); err != nil {
			log.Error("Failed to shutdown monitor gracefully", zap.Error(err))
		}
	}

	summary, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(summary))

	if err != nil {
		os.Exit(1)
	}
}

// buildStrategy wires the configured token strategy. The HMAC pepper comes
// from the environment only.
func buildStrategy(cfg *config.Config) (export.TokenStrategy, error) {
	switch cfg.Export.Strategy {
	case "rolling":
		return export.NewRollingHashStrategy(), nil
	case "hmac":
		pepper := os.Getenv(cfg.Export.PepperEnv)
		if pepper == "" {
			return nil, fmt.Errorf("hmac strategy requires %s to be set", cfg.Export.PepperEnv)
		}
		return export.NewHMACStrategy([]byte(pepper))
	default:
		return nil, fmt.Errorf("unknown export strategy: %s", cfg.Export.Strategy)
	}
}
