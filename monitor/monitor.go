// Package monitor finds candles where both the spot and the futures signal
// hit EXTREME at the same timestamp and fires a one-shot alert per pair.
package monitor

import (
	"fmt"
	"log"
	"time"

	"pump-detector/alerts"
	"pump-detector/database"
)

// OccurrenceSource is the slice of the store the monitor needs
type OccurrenceSource interface {
	ListExtremeCoOccurrences(detectedSince time.Time) ([]database.CoOccurrence, error)
}

// Notifier delivers double-EXTREME alerts
type Notifier interface {
	SendMessage(message string) error
}

// Monitor runs once per detector cycle. De-duplication across invocations
// relies on the detected_at window, not on state.
type Monitor struct {
	src      OccurrenceSource
	notifier Notifier
	lookback time.Duration
	dryRun   bool
}

// New creates a co-occurrence monitor
func New(src OccurrenceSource, notifier Notifier, lookback time.Duration, dryRun bool) *Monitor {
	return &Monitor{
		src:      src,
		notifier: notifier,
		lookback: lookback,
		dryRun:   dryRun,
	}
}

// Run performs one scan and returns how many alerts were emitted
func (m *Monitor) Run() (int, error) {
	occurrences, err := m.src.ListExtremeCoOccurrences(time.Now().UTC().Add(-m.lookback))
	if err != nil {
		return 0, fmt.Errorf("find co-occurrences: %w", err)
	}

	if len(occurrences) == 0 {
		log.Println("📊 No new double EXTREME signals found")
		return 0, nil
	}

	sent := 0
	for _, occ := range occurrences {
		message := alerts.FormatDoubleExtremeAlert(occ)
		if m.dryRun {
			log.Printf("🔍 [DRY RUN] Would send alert for %s:\n%s", occ.Symbol, message)
			sent++
			continue
		}
		if err := m.notifier.SendMessage(message); err != nil {
			log.Printf("⚠️  Alert failed for %s: %v", occ.Symbol, err)
			continue
		}
		log.Printf("✅ Alert sent for %s", occ.Symbol)
		sent++
	}
	return sent, nil
}
