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

	"github.com/rewired-gh/drawcast/internal/config"
	"github.com/rewired-gh/drawcast/internal/feed"
	"github.com/rewired-gh/drawcast/internal/logger"
	"github.com/rewired-gh/drawcast/internal/projection"
	"github.com/rewired-gh/drawcast/internal/storage"
	"github.com/rewired-gh/drawcast/internal/telegram"
	"github.com/rewired-gh/drawcast/internal/tracker"
)

var configPath = flag.String("config", "configs/config.yaml", "Path to configuration file")

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format)
	logger.Info("Configuration loaded from %s", *configPath)

	mode, err := projection.ParseMode(cfg.Profile.Mode)
	if err != nil {
		logger.Fatal("Invalid projection mode: %v", err)
	}
	profile := tracker.Profile{
		Score:      cfg.Profile.Score,
		Mode:       mode,
		Categories: cfg.Profile.Categories,
		Lookback:   cfg.Profile.Lookback,
	}

	store, err := storage.New(cfg.Storage.MaxRoundsPerCategory, cfg.Storage.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize storage: %v", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close storage: %v", err)
		}
	}()

	feedClient := feed.NewClient(cfg.Feed.URL, cfg.Feed.Timeout, feed.ClientConfig{
		MaxRetries:     cfg.Feed.MaxRetries,
		RetryDelayBase: cfg.Feed.RetryDelayBase,
	})

	trk := tracker.New(store)

	var telegramClient *telegram.Client
	if cfg.Telegram.Enabled {
		telegramClient, err = telegram.NewClient(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.MaxRetries, cfg.Telegram.RetryDelayBase)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram client: %v", err)
		}
		logger.Info("Telegram client initialized successfully")
	} else {
		logger.Debug("Telegram notifications disabled")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, cleaning up...")
		cancel()
	}()

	logger.Info("Starting drawcast service (interval: %v, score: %d, mode: %s, lookback: %v)",
		cfg.Feed.PollInterval, profile.Score, profile.Mode, profile.Lookback)
	logger.Debug("Tracked categories: %v", profile.Categories)

	ticker := time.NewTicker(cfg.Feed.PollInterval)
	defer ticker.Stop()

	consecutiveFailures := 0

	handleCycleResult := func(err error) {
		if err != nil {
			consecutiveFailures++
			logger.Error("Polling cycle failed: %v", err)
			if consecutiveFailures == 1 && telegramClient != nil {
				if sendErr := telegramClient.SendError(err); sendErr != nil {
					logger.Warn("Failed to send error notification to Telegram: %v", sendErr)
				}
			}
			return
		}
		if consecutiveFailures > 0 && telegramClient != nil {
			if sendErr := telegramClient.SendRecovery(consecutiveFailures); sendErr != nil {
				logger.Warn("Failed to send recovery notification to Telegram: %v", sendErr)
			}
		}
		consecutiveFailures = 0
	}

	logger.Debug("Running initial polling cycle")
	handleCycleResult(runCycle(ctx, feedClient, trk, store, telegramClient, profile))

	for {
		select {
		case <-ctx.Done():
			logger.Info("Service stopped")
			return

		case <-ticker.C:
			logger.Debug("Starting scheduled polling cycle")
			handleCycleResult(runCycle(ctx, feedClient, trk, store, telegramClient, profile))
		}
	}
}

func runCycle(
	ctx context.Context,
	feedClient *feed.Client,
	trk *tracker.Tracker,
	store *storage.Storage,
	telegramClient *telegram.Client,
	profile tracker.Profile,
) error {
	startTime := time.Now()
	logger.Info("Starting polling cycle")

	f, err := feedClient.Fetch(ctx)
	if err != nil {
		return err
	}

	added, err := store.AddRounds(ctx, f.Rounds)
	if err != nil {
		return fmt.Errorf("failed to store rounds: %w", err)
	}
	newSnapshots := 0
	for i := range f.Snapshots {
		ok, err := store.AddSnapshot(ctx, &f.Snapshots[i])
		if err != nil {
			logger.Warn("Failed to add snapshot %s: %v", f.Snapshots[i].AsOf.Format("2006-01-02"), err)
			continue
		}
		if ok {
			newSnapshots++
		}
	}
	logger.Info("Fetched %d rounds (%d new) and %d distributions (%d new)",
		len(f.Rounds), added, len(f.Snapshots), newSnapshots)

	// Evaluate only the retained history.
	removed, err := store.RotateRounds(ctx)
	if err != nil {
		logger.Warn("Failed to rotate rounds: %v", err)
	} else if removed > 0 {
		logger.Debug("Rotated %d old rounds", removed)
	}

	report, catErrs, err := trk.EvaluateStored(ctx, profile, time.Time{})
	if err != nil {
		return fmt.Errorf("failed to evaluate: %w", err)
	}
	for _, catErr := range catErrs {
		logger.Warn("Failed to evaluate category %s: %v", catErr.Category, catErr.Err)
	}
	for _, res := range report.Results {
		logger.Info("%s: %s", res.Category, res.Verdict)
	}

	changed := trk.FilterChanged(report.Results)
	if len(changed) == 0 {
		logger.Info("No verdict changes this cycle")
	} else if telegramClient != nil {
		logger.Debug("Sending %d changed verdicts to Telegram", len(changed))
		if err := telegramClient.Send(report, changed); err != nil {
			logger.Error("Failed to send Telegram notification: %v", err)
		} else {
			logger.Info("Sent Telegram notification with %d verdicts", len(changed))
			trk.RecordNotified(changed)
		}
	} else {
		logger.Debug("Verdicts changed but Telegram notifications disabled")
		trk.RecordNotified(changed)
	}

	logger.Info("Polling cycle completed in %v", time.Since(startTime))
	return nil
}
