// Package priceupdater refreshes the live price and 24h change on ACTIVE
// candidates from the exchange ticker snapshot.
package priceupdater

import (
	"context"
	"fmt"
	"log"
	"time"

	"pump-detector/cache"
	"pump-detector/database"
	"pump-detector/exchange"
	"pump-detector/helpers"
)

const (
	tickerCacheKey = "binance:ticker24h"
	tickerCacheTTL = 5 * time.Minute
)

// CandidateStore is the slice of the store the updater needs
type CandidateStore interface {
	ListActiveCandidates(filter database.CandidateFilter) ([]database.PumpCandidate, error)
	UpdateCandidatePrice(id int64, price, change24h float64, now time.Time) error
}

// TickerSource fetches the exchange snapshot
type TickerSource interface {
	FetchTickers(ctx context.Context) ([]exchange.Ticker, error)
}

// Updater writes ticker prices onto candidates. A fetch failure skips the
// cycle; candidates keep their prior prices.
type Updater struct {
	store  CandidateStore
	source TickerSource
	redis  *cache.RedisClient
}

// New creates a price updater; redis may be nil
func New(store CandidateStore, source TickerSource, redis *cache.RedisClient) *Updater {
	return &Updater{store: store, source: source, redis: redis}
}

// Run loops with the given interval until cancelled
func (u *Updater) Run(ctx context.Context, interval time.Duration) error {
	log.Printf("💱 Price updater started (every %s)", interval)

	for {
		if err := u.RunOnce(ctx); err != nil {
			log.Printf("⚠️  Price update failed: %v", err)
		}
		if !helpers.SleepContext(ctx, interval) {
			log.Println("💱 Price updater stopped")
			return nil
		}
	}
}

// RunOnce refreshes every ACTIVE candidate present in the ticker snapshot
func (u *Updater) RunOnce(ctx context.Context) error {
	tickers, err := u.snapshot(ctx)
	if err != nil {
		return err
	}

	bySymbol := make(map[string]exchange.Ticker, len(tickers))
	for _, t := range tickers {
		bySymbol[t.Symbol] = t
	}

	candidates, err := u.store.ListActiveCandidates(database.CandidateFilter{})
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	updated := 0
	for _, candidate := range candidates {
		ticker, ok := bySymbol[candidate.Symbol]
		if !ok {
			continue
		}
		price, okPrice := ticker.Price()
		change, okChange := ticker.ChangePercent()
		if !okPrice || !okChange {
			continue
		}
		if err := u.store.UpdateCandidatePrice(candidate.ID, price, change, now); err != nil {
			log.Printf("⚠️  %s: %v", candidate.Symbol, err)
			continue
		}
		updated++
	}

	log.Printf("💱 Prices refreshed for %d/%d candidates", updated, len(candidates))
	return nil
}

// snapshot serves the ticker list from Redis when fresh, otherwise fetches
// and refills the cache
func (u *Updater) snapshot(ctx context.Context) ([]exchange.Ticker, error) {
	if u.redis != nil {
		var cached []exchange.Ticker
		if err := u.redis.Get(ctx, tickerCacheKey, &cached); err == nil && len(cached) > 0 {
			return cached, nil
		}
	}

	tickers, err := u.source.FetchTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("ticker snapshot: %w", err)
	}

	if u.redis != nil {
		if err := u.redis.Set(ctx, tickerCacheKey, tickers, tickerCacheTTL); err != nil {
			log.Printf("⚠️  Ticker cache write failed: %v", err)
		}
	}
	return tickers, nil
}
