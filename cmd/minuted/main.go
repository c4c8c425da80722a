// Minuted is a meeting-transcript daemon. It accepts raw transcripts over
// HTTP, extracts assigned tasks, reconciles assignees against a company
// roster, persists everything to SQLite, and drafts notification emails.
//
// Configuration is loaded from a YAML file and MINUTED_-prefixed environment
// variables. See internal/config for details.
//
// Usage:
//
//	# Start server with defaults
//	minuted
//
//	# Configure via flags and environment
//	MINUTED_EXTRACTION_API_KEY=... minuted -config /etc/minuted/config.yaml
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/minuted/internal/config"
	"github.com/fyrsmithlabs/minuted/internal/extraction"
	minutedhttp "github.com/fyrsmithlabs/minuted/internal/http"
	"github.com/fyrsmithlabs/minuted/internal/logging"
	"github.com/fyrsmithlabs/minuted/internal/pipeline"
	"github.com/fyrsmithlabs/minuted/internal/roster"
	"github.com/fyrsmithlabs/minuted/internal/store"
)

// Version information (set via ldflags during build)
var (
	version   = "dev"
	gitCommit = "unknown"
	buildDate = "unknown"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	if args := flag.Args(); len(args) > 0 {
		switch args[0] {
		case "version":
			printVersion()
			os.Exit(0)
		default:
			fmt.Fprintf(os.Stderr, "Unknown command: %s\n", args[0])
			fmt.Fprintf(os.Stderr, "\nUsage:\n")
			fmt.Fprintf(os.Stderr, "  minuted           Start the minuted daemon\n")
			fmt.Fprintf(os.Stderr, "  minuted version   Show version information\n")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		log.Printf("Received signal %v, shutting down gracefully...", sig)
		cancel()
	}()

	if err := run(ctx, *configPath); err != nil {
		log.Fatalf("Server error: %v", err)
	}

	log.Println("Server shutdown complete")
}

func printVersion() {
	fmt.Printf("minuted by Fyrsmith Labs\n")
	fmt.Printf("Version:    %s\n", version)
	fmt.Printf("Commit:     %s\n", gitCommit)
	fmt.Printf("Build Date: %s\n", buildDate)
}

// run wires everything and blocks until ctx is cancelled.
//
//  1. Loads and validates configuration
//  2. Initializes the logger
//  3. Opens the SQLite store and runs migrations
//  4. Builds the extraction completer (or the no-op one when unconfigured)
//  5. Assembles the transcript pipeline
//  6. Starts the HTTP server and shuts it down gracefully on cancellation
func run(ctx context.Context, configPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.NewLogger(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync() // Best-effort sync on shutdown
	}()

	logger.Info("Starting minuted",
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port),
		zap.String("db", cfg.Store.Path))

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	completer, err := extraction.NewCompleter(ctx, cfg.Extraction)
	if err != nil {
		return fmt.Errorf("failed to initialize extraction provider: %w", err)
	}

	var aiExtractor extraction.Extractor
	if completer.Available() {
		aiExtractor = extraction.NewAIExtractor(completer)
		logger.Info("AI extraction enabled",
			zap.String("provider", cfg.Extraction.Provider),
			zap.String("model", cfg.Extraction.Model))
	} else {
		logger.Info("AI extraction disabled, using heuristic parser only")
	}

	pipe, err := pipeline.New(pipeline.Config{
		Storage:      st,
		Resolver:     roster.NewResolver(st, logger),
		AI:           aiExtractor,
		DraftClient:  completer,
		Logger:       logger,
		Metrics:      pipeline.NewMetrics(prometheus.DefaultRegisterer),
		StageTimeout: time.Duration(cfg.Pipeline.StageTimeout) * time.Second,
	})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}

	srv, err := minutedhttp.NewServer(pipe, logger,
		&minutedhttp.Config{Host: cfg.Server.Host, Port: cfg.Server.Port},
		minutedhttp.NewMetrics(prometheus.DefaultRegisterer))
	if err != nil {
		return fmt.Errorf("failed to build http server: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
