package main

import (
	"flag"
	"fmt"

	"github.com/danh/tracktide/internal/api"
	"github.com/danh/tracktide/internal/config"
	"github.com/danh/tracktide/internal/logger"
	"github.com/danh/tracktide/internal/metadata"
	"github.com/danh/tracktide/internal/warehouse"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.GetDefault().WithError(err).Fatal("Failed to load config")
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "tracktide-api",
		LogFile:     cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	logger.SetDefaultLogger(appLogger)

	db, err := warehouse.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}

	store := metadata.NewStore(db, cfg.Pipeline.LogTable)
	router := api.SetupRouter(store, cfg.Server.Mode)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	appLogger.WithField("addr", addr).Info("Starting run-history API")
	if err := router.Run(addr); err != nil {
		appLogger.WithError(err).Fatal("Server exited")
	}
}
