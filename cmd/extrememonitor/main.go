package main

import (
	"flag"
	"log"
	"strconv"
	"time"

	"pump-detector/alerts"
	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/monitor"
)

func main() {
	lookback := flag.Int("lookback", 60, "minutes of detected_at history to scan")
	dryRun := flag.Bool("dry-run", false, "log alerts instead of sending them")
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

	m := monitor.New(store, alerter, time.Duration(*lookback)*time.Minute, *dryRun)
	sent, err := m.Run()
	if err != nil {
		log.Fatalf("❌ Co-occurrence scan failed: %v", err)
	}
	log.Printf("📊 Scan complete, %d alerts", sent)
}
