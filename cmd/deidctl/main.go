package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/carebridge/phi-sentinel/internal/config"
	"github.com/carebridge/phi-sentinel/internal/logger"
	"github.com/carebridge/phi-sentinel/internal/redact"
	"github.com/carebridge/phi-sentinel/internal/vault"
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
		inputPath   = flag.String("input", "", "Input text file (default: stdin)")
		outputPath  = flag.String("output", "", "Output file (default: stdout)")
		mapPath     = flag.String("map", "", "Rehydration map JSON file (written on anonymize, read on rehydrate)")
		useVault    = flag.Bool("vault", false, "Store/fetch the rehydration map in the Redis vault instead of a file")
		docID       = flag.String("doc-id", "", "Vault document id (required for -rehydrate -vault)")
		rehydrate   = flag.Bool("rehydrate", false, "Rehydrate a previously anonymized file")
		showStats   = flag.Bool("stats", false, "Print redaction stats to stderr")
	)
	flag.Parse()

	// Show version and exit
	if *showVersion {
		fmt.Printf("deidctl %s (commit: %s, built: %s)\n", version, commit, date)
		os.Exit(0)
	}

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
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

	text, err := readInput(*inputPath)
	if err != nil {
		log.Fatal("Failed to read input", zap.Error(err))
	}

	redactor, err := redact.New(cfg.Redactor, log)
	if err != nil {
		log.Fatal("Failed to create redactor", zap.Error(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var output string
	if *rehydrate {
		output, err = runRehydrate(ctx, cfg, log, redactor, text, *mapPath, *useVault, *docID)
	} else {
		output, err = runAnonymize(ctx, cfg, log, redactor, text, *mapPath, *useVault, *showStats)
	}
	if err != nil {
		log.Fatal("Operation failed", zap.Error(err))
	}

	if err := writeOutput(*outputPath, output); err != nil {
		log.Fatal("Failed to write output", zap.Error(err))
	}
}

func runAnonymize(ctx context.Context, cfg *config.Config, log *logger.Logger, redactor *redact.Redactor, text, mapPath string, useVault, showStats bool) (string, error) {
	if !cfg.Redactor.Enabled {
		log.Warn("Redaction disabled in config, passing text through")
		return text, nil
	}

	result := redactor.Anonymize(text)

	if showStats {
		stats, _ := json.MarshalIndent(result.Stats, "", "  ")
		fmt.Fprintln(os.Stderr, string(stats))
	}

	switch {
	case useVault:
		v, err := vault.New(&cfg.Vault, log)
		if err != nil {
			return "", err
		}
		defer v.Close()

		docID, err := v.Put(ctx, result.RehydrationMap)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(os.Stderr, "document id: %s\n", docID)

	case mapPath != "":
		data, err := json.MarshalIndent(result.RehydrationMap, "", "  ")
		if err != nil {
			return "", err
		}
		if err := os.WriteFile(mapPath, data, 0600); err != nil {
			return "", fmt.Errorf("failed to write rehydration map: %w", err)
		}

	default:
		// No persistence requested: redaction is irreversible
		log.Warn("No map destination given, rehydration will not be possible")
	}

	return result.RedactedText, nil
}

func runRehydrate(ctx context.Context, cfg *config.Config, log *logger.Logger, redactor *redact.Redactor, text, mapPath string, useVault bool, docID string) (string, error) {
	var mapping redact.RehydrationMap

	switch {
	case useVault:
		if docID == "" {
			return "", fmt.Errorf("-doc-id is required with -vault")
		}
		v, err := vault.New(&cfg.Vault, log)
		if err != nil {
			return "", err
		}
		defer v.Close()

		mapping, err = v.Get(ctx, docID)
		if err != nil {
			return "", err
		}

	case mapPath != "":
		data, err := os.ReadFile(mapPath)
		if err != nil {
			return "", fmt.Errorf("failed to read rehydration map: %w", err)
		}
		if err := json.Unmarshal(data, &mapping); err != nil {
			return "", fmt.Errorf("failed to parse rehydration map: %w", err)
		}

	default:
		return "", fmt.Errorf("rehydrate requires -map or -vault")
	}

	return redactor.Rehydrate(text, mapping), nil
}

func readInput(path string) (string, error) {
	if path == "" {
		data, err := io.ReadAll(os.Stdin)
		return string(data), err
	}
	data, err := os.ReadFile(path)
	return string(data), err
}

func writeOutput(path, text string) error {
	if path == "" {
		_, err := fmt.Print(text)
		return err
	}
	return os.WriteFile(path, []byte(text), 0600)
}
