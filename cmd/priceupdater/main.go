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

	"pump-detector/cache"
	"pump-detector/config"
	"pump-detector/database"
	"pump-detector/exchange"
	"pump-detector/priceupdater"
)

func main() {
	once := flag.Bool("once", false, "refresh prices once, then exit")
	interval := flag.Int("interval", 5, "minutes between refreshes")
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

	// Redis is optional; a failed connection degrades to uncached fetches
	redis := cache.NewRedisClient(cfg.RedisHost, cfg.RedisPort, cfg.RedisPassword)
	defer redis.Close()

	updater := priceupdater.New(store, exchange.NewClient(), redis)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := updater.RunOnce(ctx); err != nil {
			log.Fatalf("❌ Price update failed: %v", err)
		}
		return
	}
	if err := updater.Run(ctx, time.Duration(*interval)*time.Minute); err != nil {
		log.Fatal(err)
	}
}
