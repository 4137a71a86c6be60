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
	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/watcher"
)

func main() {
	once := flag.Bool("once", false, "run a single watch pass, then exit")
	interval := flag.Int("interval", 0, "minutes between passes (0 uses WATCHER_INTERVAL_MINUTES)")
	spotThreshold := flag.Float64("spot-threshold", 0, "spot volume ratio trigger (0 uses WATCHER_SPOT_THRESHOLD)")
	futuresThreshold := flag.Float64("futures-threshold", 0, "futures volume ratio trigger (0 uses WATCHER_FUTURES_THRESHOLD)")
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
	alerter := alerts.NewTelegramAlerter(cfg.Telegram.BotToken, cfg.Telegram.ChatID)

	watchCfg := watcher.Config{
		SpotThreshold:    cfg.Watcher.SpotThreshold,
		FuturesThreshold: cfg.Watcher.FuturesThreshold,
		Cooldown:         time.Duration(cfg.Watcher.CooldownHours) * time.Hour,
	}
	if *spotThreshold > 0 {
		watchCfg.SpotThreshold = *spotThreshold
	}
	if *futuresThreshold > 0 {
		watchCfg.FuturesThreshold = *futuresThreshold
	}

	w := watcher.New(store, alerter, watchCfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		fired, err := w.RunOnce(ctx)
		if err != nil {
			log.Fatalf("❌ Watch pass failed: %v", err)
		}
		log.Printf("👀 Watch pass complete, %d alerts fired", fired)
		return
	}

	watchEvery := time.Duration(cfg.Watcher.IntervalMinutes) * time.Minute
	if *interval > 0 {
		watchEvery = time.Duration(*interval) * time.Minute
	}
	if err := w.Run(ctx, watchEvery); err != nil {
		log.Fatal(err)
	}
}
