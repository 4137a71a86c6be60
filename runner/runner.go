// Package runner drives the periodic analysis cycle: expire stale
// candidates, pick busy symbols, score them, persist the results and fire
// alerts for actionable ones.
package runner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"pump-detector/alerts"
	"pump-detector/database"
	"pump-detector/engine"
	"pump-detector/helpers"
)

// Runner owns one analysis loop. Partial work inside a tick is never
// retried; the next tick recomputes from scratch.
type Runner struct {
	store      *database.Store
	engine     *engine.Engine
	alerter    *alerts.TelegramAlerter
	interval   time.Duration
	minSignals int
}

// New creates an analysis runner
func New(store *database.Store, eng *engine.Engine, alerter *alerts.TelegramAlerter, interval time.Duration, minSignals int) *Runner {
	return &Runner{
		store:      store,
		engine:     eng,
		alerter:    alerter,
		interval:   interval,
		minSignals: minSignals,
	}
}

// Run loops until the context is cancelled. A storage failure parks the
// loop for a minute and probes connectivity before the next tick.
func (r *Runner) Run(ctx context.Context) error {
	log.Printf("📊 Analysis runner started (every %s)", r.interval)

	for {
		if err := r.RunOnce(ctx); err != nil {
			log.Printf("⚠️  Analysis tick failed: %v", err)
			if !r.waitHealthy(ctx) {
				return nil
			}
		}
		if !helpers.SleepContext(ctx, r.interval) {
			log.Println("📊 Analysis runner stopped")
			return nil
		}
	}
}

// RunOnce executes a single analysis tick
func (r *Runner) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	expired, err := r.store.ExpireStaleCandidates(now)
	if err != nil {
		return fmt.Errorf("expire candidates: %w", err)
	}
	if expired > 0 {
		log.Printf("🗑️  Expired %d stale candidates", expired)
	}

	symbols, err := r.store.SymbolsToAnalyze(r.minSignals, now.Add(-database.AnalysisWindow))
	if err != nil {
		return fmt.Errorf("select symbols: %w", err)
	}

	analyzed := 0
	actionable := 0
	for _, activity := range symbols {
		if ctx.Err() != nil {
			return nil
		}
		result, err := r.processSymbol(activity.Symbol, now)
		if err != nil {
			// Per-symbol failures become skips; the tick continues
			log.Printf("⚠️  %s: %v", activity.Symbol, err)
			continue
		}
		if result == nil {
			continue
		}
		analyzed++
		if result.IsActionable {
			actionable++
		}
	}

	log.Printf("📊 Tick complete: %d symbols scanned, %d candidates, %d actionable",
		len(symbols), analyzed, actionable)
	return nil
}

// processSymbol scores one symbol and persists the outcome: candidate row,
// snapshot blob, evidence links and, when actionable, an alert
func (r *Runner) processSymbol(symbol string, now time.Time) (*engine.Result, error) {
	result, err := r.engine.Analyze(symbol, now)
	if err != nil {
		return nil, fmt.Errorf("analyze: %w", err)
	}
	if result == nil {
		return nil, nil
	}

	candidate := candidateFromResult(result)
	candidateID, err := r.store.UpsertCandidate(candidate, now)
	if err != nil {
		return nil, err
	}

	detail, err := json.Marshal(result.Detail)
	if err != nil {
		return nil, fmt.Errorf("marshal detail: %w", err)
	}
	if err := r.store.WriteSnapshot(candidateID, detail, now); err != nil {
		return nil, err
	}

	if err := r.store.ReplaceCandidateSignals(candidateID, evidenceLinks(result.Signals)); err != nil {
		return nil, err
	}

	if result.IsActionable {
		log.Printf("🚨 ACTIONABLE: %s score=%.2f pattern=%s", result.Symbol, result.Score, result.PatternType)
		if err := r.alerter.SendMessage(alerts.FormatCandidateAlert(candidate)); err != nil {
			// Dispatch failure never rolls back the database write
			log.Printf("⚠️  Telegram alert failed for %s: %v", result.Symbol, err)
		}
	}
	return result, nil
}

// waitHealthy sleeps a minute between connectivity probes; false when the
// context was cancelled
func (r *Runner) waitHealthy(ctx context.Context) bool {
	for {
		if !helpers.SleepContext(ctx, database.ReconnectDelay) {
			return false
		}
		if err := r.store.HealthCheck(); err == nil {
			log.Println("✅ Storage reachable again")
			return true
		}
		log.Println("⚠️  Storage still unreachable, retrying in 60s")
	}
}

// candidateFromResult maps an engine judgment onto the persisted candidate
// shape. Lifecycle fields are filled in by the store on upsert.
func candidateFromResult(result *engine.Result) *database.PumpCandidate {
	return &database.PumpCandidate{
		Symbol:                result.Symbol,
		TradingPairID:         result.TradingPairID,
		Confidence:            result.Confidence,
		Score:                 result.Score,
		PatternType:           result.PatternType,
		TotalSignals:          result.TotalSignals,
		ExtremeSignals:        result.ExtremeSignals,
		CriticalWindowSignals: result.CriticalWindowSignals,
		ETAHours:              result.ETAHours,
		IsActionable:          result.IsActionable,
		PumpPhase:             result.PumpPhase,
		PriceChangeFromFirst:  result.PriceChangeFromFirst,
		PriceChange24h:        result.PriceChange24h,
		HoursSinceLastPump:    result.HoursSinceLastPump,
	}
}

// evidenceLinks weights each signal by strength
func evidenceLinks(signals []database.RawSignal) []database.SignalLink {
	links := make([]database.SignalLink, 0, len(signals))
	for _, s := range signals {
		links = append(links, database.SignalLink{
			SignalID:  s.ID,
			Relevance: relevanceFor(s.SignalStrength),
		})
	}
	return links
}

// relevanceFor maps strength onto a link relevance score
func relevanceFor(strength string) float64 {
	switch strength {
	case database.StrengthExtreme:
		return 1.0
	case database.StrengthVeryStrong:
		return 0.8
	case database.StrengthStrong:
		return 0.6
	case database.StrengthMedium:
		return 0.4
	default:
		return 0.2
	}
}
