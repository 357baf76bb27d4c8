package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/driftwood/internal/config"
	"github.com/sydlexius/driftwood/internal/library"
	"github.com/sydlexius/driftwood/internal/logging"
	"github.com/sydlexius/driftwood/internal/provider/offline"
	"github.com/sydlexius/driftwood/internal/scraper"
	"github.com/sydlexius/driftwood/internal/ui"
	"github.com/sydlexius/driftwood/internal/version"
	"github.com/sydlexius/driftwood/internal/watcher"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "version":
			fmt.Println("driftwood " + version.Version)
			return
		case "watch":
			if err := run(true); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		case "scan":
			// Fall through to the default run.
		}
	}

	if err := run(false); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(watch bool) error {
	configPath := os.Getenv("DW_CONFIG_PATH")
	if configPath == "" {
		configPath = "/data/driftwood/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, logCloser := logging.New(cfg.Logging)
	if logCloser != nil {
		defer logCloser.Close() //nolint:errcheck
	}
	slog.SetDefault(logger)
	logger.Info("driftwood starting",
		slog.String("version", version.Version),
		slog.String("platform", cfg.Library.Platform),
		slog.String("rom_dir", cfg.Library.ROMDir))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	lib := library.New(cfg.Library.ROMDir, cfg.Library.Extensions, cfg.AssetDirs(), logger)

	filter, err := scraper.NewFilter(cfg.Filter.SkipBIOS, cfg.Filter.MAMESetFiles, logger)
	if err != nil {
		return fmt.Errorf("building filter: %w", err)
	}

	var runtime *scraper.ProviderRuntime
	if cfg.Providers.OfflineDBPath != "" {
		p, err := offline.New(cfg.Providers.OfflineDBPath, logger)
		if err != nil {
			return fmt.Errorf("opening offline provider: %w", err)
		}
		defer p.Close() //nolint:errcheck
		runtime = scraper.NewRuntime(p, cfg.RuntimeOptions(), logger)
	} else {
		logger.Info("no provider configured, scraping from local data only")
	}

	console := ui.NewConsole()
	go func() {
		<-ctx.Done()
		console.Cancel()
	}()

	scan := func(ctx context.Context) error {
		scanID := uuid.NewString()
		scanLogger := logger.With(slog.String("scan_id", scanID))
		started := time.Now()

		items, err := lib.Items()
		if err != nil {
			return fmt.Errorf("enumerating library: %w", err)
		}

		engine := scraper.NewEngine(scraper.EngineOptions{
			Settings:        cfg.Settings(),
			Library:         lib,
			Filter:          filter,
			MetadataRuntime: runtime,
			AssetRuntime:    runtime,
			Progress:        console,
			Prompter:        console,
			Notifier:        console,
		}, scanLogger)

		result, err := engine.Run(ctx, items, cfg.Library.Platform)
		if err != nil {
			return err
		}
		scanLogger.Info("scan finished",
			slog.Int("processed", result.Processed),
			slog.Int("skipped", result.Skipped),
			slog.Int("failed", result.Failed),
			slog.Bool("canceled", result.Canceled),
			slog.Duration("elapsed", time.Since(started)))
		return nil
	}

	if err := scan(ctx); err != nil {
		return err
	}
	if !watch {
		return nil
	}

	w := watcher.NewService(
		cfg.Library.ROMDir,
		cfg.Library.Extensions,
		time.Duration(cfg.Watch.DebounceMS)*time.Millisecond,
		scan,
		logger,
	)
	return w.Start(ctx)
}
