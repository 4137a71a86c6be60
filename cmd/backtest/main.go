package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"pump-detector/backtest"
	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/engine"
)

func main() {
	metricsPath := flag.String("metrics", backtest.DefaultMetricsPath, "where to write the metrics JSON")
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

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bt := backtest.New(store, eng, engineCfg)
	metrics, err := bt.Run(ctx)
	if err != nil {
		log.Fatalf("❌ Backtest failed: %v", err)
	}
	if err := backtest.WriteMetrics(metrics, *metricsPath); err != nil {
		log.Fatalf("❌ %v", err)
	}
}
