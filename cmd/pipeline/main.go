package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/danh/tracktide/internal/archive"
	"github.com/danh/tracktide/internal/config"
	"github.com/danh/tracktide/internal/logger"
	"github.com/danh/tracktide/internal/pipeline"
	"github.com/danh/tracktide/internal/spotify"
	"github.com/danh/tracktide/internal/warehouse"
	"github.com/robfig/cron/v3"
)

func main() {
	configPath := flag.String("config", "", "Path to config file")
	once := flag.Bool("once", false, "Run the pipeline once and exit instead of scheduling")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.GetDefault().WithError(err).Fatal("Failed to load config")
	}

	appLogger := logger.New(&logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		ServiceName: "tracktide-pipeline",
		LogFile:     cfg.Logging.File,
		MaxSizeMB:   cfg.Logging.MaxSizeMB,
		MaxBackups:  cfg.Logging.MaxBackups,
		MaxAgeDays:  cfg.Logging.MaxAgeDays,
	})
	logger.SetDefaultLogger(appLogger)

	// Reject a bad strategy at startup, before any run is scheduled
	strategy, err := warehouse.ParseStrategy(cfg.Pipeline.LoadStrategy)
	if err != nil {
		appLogger.WithError(err).Fatal("Invalid load strategy")
	}

	schemas, err := pipeline.DefaultRegistry()
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to build schema registry")
	}

	db, err := warehouse.InitDB(&cfg.Database)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to initialize database")
	}
	loader := warehouse.NewLoader(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var archiver pipeline.SnapshotArchiver
	if cfg.Archive.Enabled {
		store, err := archive.NewS3Store(&archive.S3Config{
			Endpoint:  cfg.Archive.Endpoint,
			AccessKey: cfg.Archive.AccessKey,
			SecretKey: cfg.Archive.SecretKey,
			UseSSL:    cfg.Archive.UseSSL,
			Bucket:    cfg.Archive.Bucket,
			Region:    cfg.Archive.Region,
		})
		if err != nil {
			appLogger.WithError(err).Fatal("Failed to initialize snapshot store")
		}
		if err := store.EnsureBucket(ctx); err != nil {
			appLogger.WithError(err).Fatal("Failed to ensure snapshot bucket")
		}
		archiver = archive.NewSnapshotWriter(store)
	}

	// A fresh API client per invocation keeps the token valid across long
	// scheduling horizons.
	runOnce := func() {
		runCtx := logger.SetPipeline(ctx, cfg.Pipeline.Name)

		tokens := spotify.NewAccessTokenClient(
			cfg.Spotify.ClientID,
			cfg.Spotify.ClientSecret,
			cfg.Spotify.AccountsURL,
		)
		client, err := spotify.NewClient(runCtx, tokens, cfg.Spotify.BaseURL,
			spotify.WithPageSize(cfg.Spotify.PageSize))
		if err != nil {
			appLogger.WithError(err).Error("Failed to create API client, skipping run")
			return
		}

		runner := &pipeline.Runner{
			Pipeline:   cfg.Pipeline.Name,
			PlaylistID: cfg.Pipeline.PlaylistID,
			Strategy:   strategy,
			Source:     client,
			Loader:     loader,
			DB:         db,
			Schemas:    schemas,
			SQLFolder:  cfg.Pipeline.SQLFolder,
			Archive:    archiver,
		}

		// A failed run is recorded in the metadata store and must never
		// take down the scheduling loop.
		if err := runner.Run(runCtx, db, cfg.Pipeline.LogTable, cfg.Pipeline); err != nil {
			appLogger.WithError(err).Error("Pipeline run failed")
		}
	}

	if *once {
		runOnce()
		return
	}

	appLogger.WithFields(logger.Fields{
		"pipeline":    cfg.Pipeline.Name,
		"run_seconds": cfg.Pipeline.RunSeconds,
		"strategy":    string(strategy),
	}).Info("Starting pipeline scheduler")

	scheduler := cron.New()
	if _, err := scheduler.AddFunc(fmt.Sprintf("@every %ds", cfg.Pipeline.RunSeconds), runOnce); err != nil {
		appLogger.WithError(err).Fatal("Failed to schedule pipeline")
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	appLogger.Info("Received shutdown signal, stopping scheduler")
	cancel()
	<-scheduler.Stop().Done()
}
