package engine

import (
	"time"

	"pump-detector/database"
)

// phaseResult carries the lifecycle classification and its price metrics
type phaseResult struct {
	phase              string
	changeFromFirst    float64
	change24h          float64
	hoursSinceLastPump *int
}

// classifyPhase places the symbol in its pump lifecycle. The base price is
// the earliest signal's price, or the labeled pump's start price when one
// exists; the current price is the latest signal's price. Signals arrive
// sorted descending by timestamp.
//
// Missing or non-positive prices zero the metrics and default the phase to
// EARLY_SIGNAL.
func classifyPhase(signals []database.RawSignal, lastPump *database.KnownPumpEvent, asOf time.Time) phaseResult {
	result := phaseResult{phase: database.PhaseEarlySignal}
	if len(signals) == 0 {
		return result
	}

	if lastPump != nil {
		hours := int(asOf.Sub(lastPump.PumpStart).Hours())
		result.hoursSinceLastPump = &hours
	}

	latest := signals[0]
	earliest := signals[len(signals)-1]

	var base float64
	if lastPump != nil && lastPump.StartPrice > 0 {
		base = lastPump.StartPrice
	} else if earliest.PriceAtSignal != nil {
		base = *earliest.PriceAtSignal
	}

	if latest.PriceAtSignal == nil || base <= 0 {
		return result
	}
	current := *latest.PriceAtSignal

	result.changeFromFirst = round2((current - base) / base * 100)

	// 24h reference: the newest signal at least 24h old; without one the
	// 24h change falls back to the change from first
	result.change24h = result.changeFromFirst
	for _, s := range signals {
		if asOf.Sub(s.SignalTimestamp).Hours() >= 24 {
			if s.PriceAtSignal != nil && *s.PriceAtSignal > 0 {
				result.change24h = round2((current - *s.PriceAtSignal) / *s.PriceAtSignal * 100)
			}
			break
		}
	}

	switch {
	case result.changeFromFirst > 15 &&
		result.hoursSinceLastPump != nil && *result.hoursSinceLastPump < 72 &&
		result.change24h < 5:
		result.phase = database.PhasePostPumpCooling
	case result.hoursSinceLastPump != nil && *result.hoursSinceLastPump > 168 &&
		result.change24h > 10:
		result.phase = database.PhaseSecondWavePotential
	default:
		result.phase = database.PhaseEarlySignal
	}
	return result
}
