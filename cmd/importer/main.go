package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"

	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/pipeline"
	"aem-import-pipeline/internal/store"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the configuration file")
	limit := flag.Int("limit", 0, "max rows to process (0 = all)")
	flag.Parse()

	// .env may carry AEM credentials; missing file is fine
	godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("cannot start without configuration: %v", err)
	}

	// stop between rows on Ctrl-C, never mid-row
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.GetBool("run.watch_config", false) {
		if err := cfg.Watch(ctx); err != nil {
			log.Printf("⚠️ config watcher disabled: %v", err)
		}
	}

	if dbPath := cfg.GetString("run.history_db", ""); dbPath != "" {
		if err := store.InitDB(dbPath); err != nil {
			log.Fatalf("cannot open run history db: %v", err)
		}
	}

	p, err := pipeline.New(cfg)
	if err != nil {
		log.Fatalf("cannot build pipeline: %v", err)
	}

	runID := uuid.New().String()
	report, err := p.Run(ctx, runID, *limit)
	if err != nil {
		log.Fatalf("import run failed: %v", err)
	}

	pipeline.PrintReport(report)

	if report.Summary().Failed > 0 && cfg.GetBool("run.fail_on_error", false) {
		os.Exit(1)
	}
}
