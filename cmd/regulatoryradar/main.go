package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/mcbuckeye/regulatoryradar/internal/app"
	"github.com/mcbuckeye/regulatoryradar/internal/config"
	"github.com/mcbuckeye/regulatoryradar/internal/infrastructure/storage"
	"github.com/mcbuckeye/regulatoryradar/internal/logging"
)

func main() {
	once := flag.Bool("once", false, "run a single scrape and exit")
	flag.Parse()

	_ = godotenv.Load()

	cfg := config.Load()
	logger := logging.New(cfg.Logging.Level)

	db, err := storage.Open(cfg.Database.DSN)
	if err != nil {
		logger.Error("database unavailable", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application := app.New(cfg, db, logger)

	if *once {
		if err := application.RunOnce(ctx); err != nil {
			logger.Error("scrape failed", "error", err)
			os.Exit(1)
		}
		return
	}

	if err := application.Run(ctx); err != nil {
		logger.Error("application stopped", "error", err)
		os.Exit(1)
	}
}
