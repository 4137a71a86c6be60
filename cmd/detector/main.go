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

	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/detector"
	"pump-detector/helpers"
)

func main() {
	historical := flag.Bool("historical", false, "backfill signals over the configured history window, then exit")
	once := flag.Bool("once", false, "run a single live detection cycle, then exit")
	interval := flag.Int("interval", 60, "minutes between live detection cycles")
	flag.Parse()

	cfg := config.LoadFromEnv()

	port, err := strconv.Atoi(cfg.DatabasePort)
	if err != nil {
		port = 5432
	}
	gormDB, err := database.Connect(cfg.DatabaseHost, port, cfg.DatabaseName, cfg.DatabaseUser, cfg.DatabasePassword)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer gormDB.Close()

	// Detection writes into the pump schema; make sure it exists
	store := database.NewStore(gormDB)
	if err := store.InitSchema(); err != nil {
		log.Fatalf("❌ Schema migration failed: %v", err)
	}

	db, err := database.NewConnection(database.ConnConfig{
		Host:     cfg.DatabaseHost,
		Port:     cfg.DatabasePort,
		User:     cfg.DatabaseUser,
		Password: cfg.DatabasePassword,
		DBName:   cfg.DatabaseName,
	})
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	det := detector.New(db, store, detector.Config{
		MinSpikeRatio:  cfg.Detection.MinSpikeRatio,
		LookbackHours:  cfg.Detection.LookbackHours,
		BatchHours:     cfg.Detection.BatchHours,
		HistoryDays:    cfg.Detection.HistoryDays,
		MarketCapFloor: cfg.Detection.MarketCapFloor,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *historical {
		if _, err := det.RunHistorical(ctx); err != nil {
			log.Fatalf("❌ Historical detection failed: %v", err)
		}
		return
	}
	if *once {
		inserted, err := det.RunCycle(ctx)
		if err != nil {
			log.Fatalf("❌ Detection cycle failed: %v", err)
		}
		log.Printf("✅ Cycle complete: %d new signals", inserted)
		return
	}

	cycleEvery := time.Duration(*interval) * time.Minute
	log.Printf("🔍 Spike detector started (every %s)", cycleEvery)
	for {
		if _, err := det.RunCycle(ctx); err != nil {
			log.Printf("⚠️  Detection cycle failed: %v", err)
		}
		if !helpers.SleepContext(ctx, cycleEvery) {
			log.Println("🔍 Spike detector stopped")
			return
		}
	}
}
