package main

import (
	"flag"
	"log"

	_ "aem-import-pipeline/docs"
	"aem-import-pipeline/internal/api"
	"aem-import-pipeline/internal/api/handler"
	"aem-import-pipeline/internal/config"
	"aem-import-pipeline/internal/store"
	"aem-import-pipeline/pkg/router"

	"github.com/joho/godotenv"
)

func main() {
	cfgPath := flag.String("config", "config.yaml", "path to the configuration file")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("cannot start without configuration: %v", err)
	}

	if err := store.InitDB(cfg.GetString("run.history_db", "imports.db")); err != nil {
		log.Fatalf("cannot open run history db: %v", err)
	}

	r := router.New()
	api.RegisterRoutes(r, handler.NewImportHandler(cfg))

	r.Start(*addr)
}
