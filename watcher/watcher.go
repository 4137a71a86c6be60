// Package watcher monitors high-confidence candidates on the 1-hour
// timeframe and fires a breakout alert when spot and futures volume surge
// on the same candle.
package watcher

import (
	"context"
	"fmt"
	"log"
	"time"

	"pump-detector/alerts"
	"pump-detector/database"
	"pump-detector/helpers"
)

// CandidateSource is the slice of the store the watcher needs
type CandidateSource interface {
	ListActiveCandidates(filter database.CandidateFilter) ([]database.PumpCandidate, error)
	FindPair(symbol string, contractTypeID int) (*database.TradingPair, error)
	LatestClosedCandles(tradingPairID int64, intervalID, n int) ([]database.Candle, error)
}

// Notifier delivers breakout alerts
type Notifier interface {
	SendMessage(message string) error
}

// Config holds watcher thresholds
type Config struct {
	SpotThreshold    float64
	FuturesThreshold float64
	Cooldown         time.Duration
}

// Watcher checks HIGH-confidence candidates for a dual-market volume surge.
// The cooldown map is process-local; a restart loses cooldown history, which
// is acceptable at this alert rate.
type Watcher struct {
	src       CandidateSource
	notifier  Notifier
	cfg       Config
	cooldowns map[string]time.Time
	now       func() time.Time
}

// New creates a breakout watcher
func New(src CandidateSource, notifier Notifier, cfg Config) *Watcher {
	return &Watcher{
		src:       src,
		notifier:  notifier,
		cfg:       cfg,
		cooldowns: make(map[string]time.Time),
		now:       time.Now,
	}
}

// Run loops until cancelled
func (w *Watcher) Run(ctx context.Context, interval time.Duration) error {
	log.Printf("👀 Breakout watcher started (every %s, spot ≥%.1fx, futures ≥%.1fx)",
		interval, w.cfg.SpotThreshold, w.cfg.FuturesThreshold)

	for {
		if _, err := w.RunOnce(ctx); err != nil {
			log.Printf("⚠️  Watcher tick failed: %v", err)
			if !helpers.SleepContext(ctx, database.ReconnectDelay) {
				return nil
			}
		}
		if !helpers.SleepContext(ctx, interval) {
			log.Println("👀 Breakout watcher stopped")
			return nil
		}
	}
}

// RunOnce checks every HIGH-confidence candidate and returns how many
// alerts fired
func (w *Watcher) RunOnce(ctx context.Context) (int, error) {
	candidates, err := w.src.ListActiveCandidates(database.CandidateFilter{
		Confidence: database.ConfidenceHigh,
	})
	if err != nil {
		return 0, fmt.Errorf("list candidates: %w", err)
	}

	fired := 0
	for _, candidate := range candidates {
		if ctx.Err() != nil {
			return fired, nil
		}
		triggered, err := w.checkCandidate(&candidate)
		if err != nil {
			log.Printf("⚠️  %s: %v", candidate.Symbol, err)
			continue
		}
		if triggered {
			fired++
		}
	}
	return fired, nil
}

// checkCandidate compares the latest two closed 1h candles on both sides.
// Missing pairs or candles skip the symbol silently.
func (w *Watcher) checkCandidate(candidate *database.PumpCandidate) (bool, error) {
	spotRatio, spotCandle, ok, err := w.volumeRatio(candidate.Symbol, database.ContractTypeSpot)
	if err != nil || !ok {
		return false, err
	}
	futuresRatio, _, ok, err := w.volumeRatio(candidate.Symbol, database.ContractTypeFutures)
	if err != nil || !ok {
		return false, err
	}

	if spotRatio < w.cfg.SpotThreshold || futuresRatio < w.cfg.FuturesThreshold {
		return false, nil
	}

	now := w.now()
	if last, seen := w.cooldowns[candidate.Symbol]; seen && now.Sub(last) < w.cfg.Cooldown {
		return false, nil
	}

	log.Printf("🚨 BREAKOUT: %s spot %.2fx futures %.2fx", candidate.Symbol, spotRatio, futuresRatio)
	message := alerts.FormatBreakoutAlert(candidate, spotRatio, futuresRatio,
		w.cfg.SpotThreshold, w.cfg.FuturesThreshold, spotCandle.OpenTimeUTC())
	if err := w.notifier.SendMessage(message); err != nil {
		log.Printf("⚠️  Breakout alert failed for %s: %v", candidate.Symbol, err)
	}

	w.cooldowns[candidate.Symbol] = now
	return true, nil
}

// volumeRatio returns current/previous closed-candle quote volume for one
// market side; ok is false when the pair or either candle is missing
func (w *Watcher) volumeRatio(symbol string, contractTypeID int) (float64, database.Candle, bool, error) {
	pair, err := w.src.FindPair(symbol, contractTypeID)
	if err != nil {
		return 0, database.Candle{}, false, err
	}
	if pair == nil {
		return 0, database.Candle{}, false, nil
	}

	candles, err := w.src.LatestClosedCandles(pair.ID, database.Interval1h, 2)
	if err != nil {
		return 0, database.Candle{}, false, err
	}
	if len(candles) < 2 {
		return 0, database.Candle{}, false, nil
	}

	current, previous := candles[0], candles[1]
	if previous.QuoteVolume <= 0 {
		return 0, current, true, nil
	}
	return current.QuoteVolume / previous.QuoteVolume, current, true, nil
}
