package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pump-detector/alerts"
	"pump-detector/api"
	"pump-detector/backtest"
	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/engine"
	"pump-detector/runner"
)

func main() {
	once := flag.Bool("once", false, "run a single analysis tick, then exit")
	interval := flag.Int("interval", 0, "minutes between analysis ticks (0 uses ENGINE_ANALYSIS_INTERVAL)")
	flag.Parse()

	cfg := config.LoadFromEnv()

	port, err := strconv.Atoi(cfg.DatabasePort)
	if err != nil {
		port = 5432
	}
	db, err := database.Connect(cfg.DatabaseHost, port, cfg.DatabaseName, cfg.DatabaseUser, cfg.DatabasePassword)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	store := database.NewStore(db)
	if err := store.InitSchema(); err != nil {
		log.Fatalf("❌ Schema migration failed: %v", err)
	}

	base := engine.DefaultConfig()
	base.MinSignalCount = cfg.Engine.MinSignalCount
	base.HighThreshold = cfg.Engine.HighThreshold
	base.MediumThreshold = cfg.Engine.MediumThreshold
	base.CriticalWindowMinSignals = cfg.Engine.CriticalWindowMinSignals
	engineCfg := engine.LoadConfig(store, base)

	eng := engine.New(store, engineCfg)
	alerter := alerts.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	tickEvery := time.Duration(cfg.Engine.AnalysisIntervalMinutes) * time.Minute
	if *interval > 0 {
		tickEvery = time.Duration(*interval) * time.Minute
	}

	run := runner.New(store, eng, alerter, tickEvery, engineCfg.MinSignalCount)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := run.RunOnce(ctx); err != nil {
			log.Fatalf("❌ Analysis tick failed: %v", err)
		}
		return
	}

	// The dashboard reads candidates and metrics through this surface
	server := api.NewServer(store, backtest.DefaultMetricsPath)
	go func() {
		if err := server.Start(cfg.APIHost, cfg.APIPort); err != nil {
			log.Printf("⚠️  API server stopped: %v", err)
		}
	}()

	if err := run.Run(ctx); err != nil {
		log.Fatal(err)
	}
}
