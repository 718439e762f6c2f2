package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"covid-risk-areas/config"
	"covid-risk-areas/scraper/bendibao"
	"covid-risk-areas/server"
	"covid-risk-areas/services"
	"covid-risk-areas/storage"
	"covid-risk-areas/utils"
)

func main() {
	once := flag.Bool("once", false, "scrape once, print the report and exit")
	export := flag.String("export", "", "write the workbook of the latest snapshot to `path` and exit")
	flag.Parse()

	logger := utils.NewLogger()
	cfg := config.Load()

	logger.Info("=== COVID risk area service starting ===")
	logger.Info("Config — store: %s | sources: %d | every %v | concurrency: %d",
		cfg.StoreDriver, len(cfg.SourceURLs), cfg.PollInterval(), cfg.MaxConcurrency)

	store, err := openStore(cfg, logger)
	if err != nil {
		logger.Error("Failed to open %s store: %v", cfg.StoreDriver, err)
		os.Exit(1)
	}
	defer store.Close()

	if *export != "" {
		if err := exportLatest(store, cfg, logger, *export); err != nil {
			logger.Error("Export failed: %v", err)
			os.Exit(1)
		}
		return
	}

	csvWriter, err := storage.NewRawCSVWriter(cfg.CSVOutputPath)
	if err != nil {
		logger.Error("Failed to create CSV writer: %v", err)
		os.Exit(1)
	}
	defer csvWriter.Close()

	poller := services.NewPoller(
		bendibao.New(cfg, logger),
		services.NewCleaner(logger),
		store,
		csvWriter,
		logger,
		cfg.CompareLimit,
	)

	if *once {
		if err := runOnce(poller, store, cfg, logger); err != nil {
			logger.Error("Scrape failed: %v", err)
			os.Exit(1)
		}
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go poller.Start(ctx, cfg.PollInterval())

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.NewServer(store, logger, cfg.CompareLimit, cfg.SnapshotLimit).Routes(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("API listening on %s", cfg.ListenAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("listen: %v", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed: %v", err)
	}
}

func openStore(cfg *config.Config, logger *utils.Logger) (storage.Store, error) {
	var (
		base storage.Store
		err  error
	)
	switch cfg.StoreDriver {
	case config.DriverJSON:
		var js *storage.JSONStore
		if js, err = storage.NewJSONStore(cfg.DataDir); err == nil {
			base = js.WithLogger(logger)
		}
	case config.DriverPostgres:
		base, err = storage.NewPostgresStore(cfg.DSN())
	case config.DriverSQLite:
		base, err = storage.NewSQLiteStore(cfg.SQLitePath)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
	if err != nil {
		return nil, err
	}

	rdb := storage.OpenRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		logger.Info("Redis cache enabled at %s (ttl %v)", cfg.RedisAddr, cfg.CacheTTL)
	}
	return storage.NewCachedStore(base, rdb, cfg.CacheTTL, cfg.SnapshotLimit, logger), nil
}

func runOnce(poller *services.Poller, store storage.Store, cfg *config.Config, logger *utils.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if _, err := poller.RunOnce(ctx); err != nil {
		return err
	}

	snaps, _, err := services.LatestWithFixes(ctx, store, cfg.CompareLimit)
	if err != nil {
		return err
	}
	current, source, err := services.SelectPair(snaps, 0)
	if err != nil {
		return err
	}

	stats := services.NewStatisticService(logger)
	stats.Print(stats.Generate(current, source))

	fmt.Printf("  Done. Raw CSV → %s | Snapshots → %s store\n\n", cfg.CSVOutputPath, cfg.StoreDriver)
	return nil
}

func exportLatest(store storage.Store, cfg *config.Config, logger *utils.Logger, path string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	snaps, _, err := services.LatestWithFixes(ctx, store, cfg.CompareLimit)
	if err != nil {
		return err
	}
	current, source, err := services.SelectPair(snaps, 0)
	if err != nil {
		return err
	}

	book, err := services.ToExcel(services.NewStatisticService(logger).Generate(current, source))
	if err != nil {
		return err
	}
	defer book.Close()

	if err := book.SaveAs(path); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	if err := store.MarkDownloaded(ctx, current.Create); err != nil {
		logger.Warn("Failed to mark snapshot %d exported: %v", current.Create, err)
	}
	logger.Info("Workbook for %s written to %s", services.ExcelFilename(current.CreatedAt()), path)
	return nil
}
