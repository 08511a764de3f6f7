package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"MomentumRotator/internal/broker"
	"MomentumRotator/internal/collector"
	"MomentumRotator/internal/config"
	"MomentumRotator/internal/logger"
	"MomentumRotator/internal/notifier"
	"MomentumRotator/internal/recorder"
	"MomentumRotator/internal/scheduler"
	"MomentumRotator/internal/server"
	"MomentumRotator/internal/strategy"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the decision loop, the HTTP API and the Telegram bot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, _ := cmd.Flags().GetString("config")
			return run(cmd.Context(), path)
		},
	}
}

func loadConfig(path string) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(path)
	if err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, zerolog.Nop(), fmt.Errorf("config validation: %w", err)
	}
	log := logger.New(logger.Config{Level: cfg.Log.Level, Pretty: cfg.Log.Pretty})
	return cfg, log, nil
}

func run(parent context.Context, cfgPath string) error {
	cfg, log, err := loadConfig(cfgPath)
	if err != nil {
		return err
	}
	log.Info().Str("config", cfgPath).Msg("MomentumRotator starting")

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	timeout := time.Duration(cfg.Feed.TimeoutSec) * time.Second
	rest := collector.NewBinanceFetcher(cfg.Feed.BaseURL, cfg.Proxy, timeout)

	// Universe
	var selector *collector.Selector
	if cfg.UniverseSelection.Auto {
		selector = &collector.Selector{
			Source:         rest,
			Quote:          cfg.Feed.QuoteAsset,
			Size:           cfg.UniverseSelection.Size,
			MinQuoteVolume: cfg.UniverseSelection.MinQuoteVolume,
			Fallback:       cfg.Strategy.Universe,
			Log:            log,
		}
		cfg.Strategy.Universe = selector.Select(ctx)
	}
	log.Info().Strs("universe", cfg.Strategy.Universe).Msg("universe")

	// Price feed
	var fetcher collector.Fetcher = rest
	if cfg.Feed.Source == "stream" {
		sf := collector.NewStreamFetcher(cfg.Feed.StreamURL, cfg.Proxy, log)
		go func() {
			if err := sf.Run(ctx); err != nil && ctx.Err() == nil {
				log.Error().Err(err).Msg("stream feed stopped")
			}
		}()
		fetcher = sf
	}
	log.Info().Str("source", fetcher.Name()).Msg("price feed")
	col := collector.NewCollector(fetcher, cfg.Feed.QuoteAsset, cfg.Strategy.Universe, timeout, log)
	go col.Run(ctx)

	// Paper broker
	var paper *broker.Paper
	state, ok, err := broker.LoadState(cfg.StateFile)
	switch {
	case err != nil:
		return fmt.Errorf("load broker state: %w", err)
	case ok:
		paper = broker.Restore(state)
		log.Info().Str("asset", state.Holdings.Asset).Float64("last_equity", state.LastEquity).Msg("broker state restored")
	default:
		paper = broker.NewPaper(cfg.Strategy.StartingBalance)
		log.Info().Float64("balance", cfg.Strategy.StartingBalance).Msg("new paper account")
	}

	// Recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath, log)
		if err != nil {
			log.Warn().Err(err).Msg("init sqlite recorder failed, using noop")
		} else {
			rec = sr
		}
	}
	defer rec.Close()

	// Notifier
	var (
		note notifier.Notifier = notifier.NoopNotifier{}
		tg   *notifier.TelegramNotifier
	)
	if cfg.Telegram.BotToken != "" {
		tg = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		note = tg
	}

	eng := strategy.New(cfg.Strategy, paper, log)
	sched := scheduler.NewScheduler(eng, paper, col, note, rec, scheduler.Options{
		UpdateInterval: cfg.Strategy.UpdateInterval(),
		ReportCron:     cfg.Report.Cron,
		UniverseCron:   cfg.UniverseSelection.RefreshCron,
		ReportDir:      cfg.Report.Dir,
		StateFile:      cfg.StateFile,
		StartBalance:   paper.State().StartBalance,
	}, log)
	sched.Selector = selector
	if err := sched.RegisterAll(); err != nil {
		return fmt.Errorf("register cron tasks: %w", err)
	}
	sched.Start()
	defer sched.Stop()
	sched.AnnounceStartup(cfg.Strategy.Universe)

	if tg != nil {
		go tg.StartPolling(ctx, sched.HandleCommand)
		log.Info().Msg("Telegram polling started")
	}

	srv := server.New(server.Config{Addr: cfg.Server.Addr, Log: log, Service: sched, History: rec})
	go func() {
		if err := srv.Start(); err != nil {
			log.Error().Err(err).Msg("HTTP server failed")
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn().Err(err).Msg("HTTP server shutdown")
		}
	}()

	log.Info().Msg("MomentumRotator is running. Press Ctrl+C to stop.")
	if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
		return err
	}
	log.Info().Msg("shutdown signal received, stopping...")
	return nil
}
