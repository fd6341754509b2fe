// Command extract pulls Salesforce object data and writes it locally as
// parquet and csv files, one pair per object declared in the schema file.
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

	"github.com/google/uuid"

	"github.com/ignite/salesforce-extract/internal/config"
	"github.com/ignite/salesforce-extract/internal/extract"
	"github.com/ignite/salesforce-extract/internal/pkg/logger"
	"github.com/ignite/salesforce-extract/internal/salesforce"
	"github.com/ignite/salesforce-extract/internal/schema"
	"github.com/ignite/salesforce-extract/internal/upload"
	"github.com/ignite/salesforce-extract/internal/writer"
)

func main() {
	var (
		configPath = flag.String("config", "config.yaml", "Config file path")
		schemaPath = flag.String("schema", "schema.json", "Schema file path (objects, fields, types)")
		execType   = flag.String("exec-type", extract.ExecNormal, "Extraction strategy: BULK or NORMAL")
		outputPath = flag.String("output", "", "Output directory (overrides config)")
		workers    = flag.Int("workers", 0, "Concurrent object extractions (overrides config)")
		logLevel   = flag.String("log-level", "info", "Log level: debug, info, warn, error")
	)
	flag.Parse()

	logger.SetLevel(logger.ParseLevel(*logLevel))
	log.Println("Starting Salesforce extract...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *outputPath != "" {
		cfg.Output.Path = *outputPath
	}
	if *workers > 0 {
		cfg.Extract.Workers = *workers
	}

	// Fail fast: the schema must be valid before any remote call.
	specs, err := schema.Load(*schemaPath)
	if err != nil {
		log.Fatalf("Failed to load schema: %v", err)
	}
	logger.Info("schema loaded", "objects", len(specs), "schema", *schemaPath)

	w, err := writer.New(cfg.Output.Path)
	if err != nil {
		log.Fatalf("Failed to prepare output directory: %v", err)
	}

	client := salesforce.NewClient(cfg.Salesforce, cfg.Extract.PageRetries)
	if err := client.WaitForSession(ctx, 3, 2*time.Second); err != nil {
		log.Fatalf("Failed to authenticate with Salesforce: %v", err)
	}
	logger.Info("authenticated with Salesforce", "login_url", cfg.Salesforce.LoginURL)

	factory, err := extract.NewFactory(*execType, client, cfg)
	if err != nil {
		log.Fatalf("Invalid exec type: %v", err)
	}

	coord := &extract.Coordinator{
		Workers:     cfg.Extract.Workers,
		NewStrategy: factory,
		Writer:      w,
	}

	runID := uuid.NewString()
	start := time.Now()
	logger.Info("extraction run starting",
		"run_id", runID, "exec_type", *execType, "workers", cfg.Extract.Workers, "output", cfg.Output.Path)

	outcomes := coord.RunAll(ctx, specs)

	failed := extract.FailedCount(outcomes)
	printSummary(outcomes, runID, time.Since(start))

	if failed == 0 && cfg.Upload.Enabled {
		uploader, err := upload.New(ctx, cfg.Upload)
		if err != nil {
			log.Fatalf("Failed to initialize S3 upload: %v", err)
		}
		n, err := uploader.UploadDir(ctx, w.Dir())
		if err != nil {
			log.Fatalf("Failed to upload output files: %v", err)
		}
		logger.Info("output uploaded", "files", n, "bucket", cfg.Upload.Bucket)
	}

	if failed > 0 {
		os.Exit(1)
	}
}

// printSummary enumerates per-object outcomes, then the run totals.
func printSummary(outcomes []extract.Outcome, runID string, elapsed time.Duration) {
	var rows, warnings int64
	failed := 0
	for _, o := range outcomes {
		rows += o.Rows
		warnings += o.Warnings
		if o.Status == extract.StatusFailed {
			failed++
			fmt.Printf("  %-10s %-30s error=%v\n", o.Status, o.Object, o.Err)
			continue
		}
		fmt.Printf("  %-10s %-30s rows=%d warnings=%d\n", o.Status, o.Object, o.Rows, o.Warnings)
	}

	logger.Info("extraction run finished",
		"run_id", runID,
		"objects", len(outcomes),
		"failed", failed,
		"rows", rows,
		"warnings", warnings,
		"elapsed", elapsed.Round(time.Millisecond).String())
	log.Printf("--- Run took %s ---", elapsed.Round(time.Millisecond))
}
