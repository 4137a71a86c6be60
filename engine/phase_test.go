package engine

import (
	"testing"
	"time"

	"pump-detector/database"
)

// phaseSignals builds a minimal descending-sorted signal set with prices:
// latest at 2h, a 24h+ reference at 26h, earliest at 100h
func phaseSignals(latest, reference, earliest float64) []database.RawSignal {
	return []database.RawSignal{
		testSignal(3, "XYZUSDT", database.StrengthStrong, 2, floatPtr(latest)),
		testSignal(2, "XYZUSDT", database.StrengthStrong, 26, floatPtr(reference)),
		testSignal(1, "XYZUSDT", database.StrengthStrong, 100, floatPtr(earliest)),
	}
}

func TestClassifyPhasePostPumpCooling(t *testing.T) {
	lastPump := &database.KnownPumpEvent{
		PumpStart:  asOf.Add(-48 * time.Hour),
		StartPrice: 1.00,
	}

	got := classifyPhase(phaseSignals(1.25, 1.24, 1.00), lastPump, asOf)

	if got.phase != database.PhasePostPumpCooling {
		t.Errorf("phase = %s, want POST_PUMP_COOLING", got.phase)
	}
	if got.changeFromFirst != 25.0 {
		t.Errorf("changeFromFirst = %.2f, want 25.00", got.changeFromFirst)
	}
	if got.change24h != 0.81 {
		t.Errorf("change24h = %.2f, want 0.81", got.change24h)
	}
	if got.hoursSinceLastPump == nil || *got.hoursSinceLastPump != 48 {
		t.Errorf("hoursSinceLastPump = %v, want 48", got.hoursSinceLastPump)
	}
}

func TestClassifyPhaseSecondWave(t *testing.T) {
	lastPump := &database.KnownPumpEvent{
		PumpStart:  asOf.Add(-200 * time.Hour),
		StartPrice: 1.00,
	}

	got := classifyPhase(phaseSignals(1.25, 1.05, 1.00), lastPump, asOf)

	if got.phase != database.PhaseSecondWavePotential {
		t.Errorf("phase = %s, want SECOND_WAVE_POTENTIAL", got.phase)
	}
	if got.change24h <= 10 {
		t.Errorf("change24h = %.2f, want > 10", got.change24h)
	}
}

func TestClassifyPhaseDefaultsToEarlySignal(t *testing.T) {
	// No known pump, modest move
	got := classifyPhase(phaseSignals(1.05, 1.02, 1.00), nil, asOf)
	if got.phase != database.PhaseEarlySignal {
		t.Errorf("phase = %s, want EARLY_SIGNAL", got.phase)
	}
	if got.hoursSinceLastPump != nil {
		t.Errorf("hoursSinceLastPump = %v, want nil", got.hoursSinceLastPump)
	}
}

func TestClassifyPhaseMissingPrices(t *testing.T) {
	signals := []database.RawSignal{
		testSignal(2, "XYZUSDT", database.StrengthStrong, 2, nil),
		testSignal(1, "XYZUSDT", database.StrengthStrong, 100, nil),
	}

	got := classifyPhase(signals, nil, asOf)

	if got.phase != database.PhaseEarlySignal {
		t.Errorf("phase = %s, want EARLY_SIGNAL", got.phase)
	}
	if got.changeFromFirst != 0 || got.change24h != 0 {
		t.Errorf("price metrics = (%.2f, %.2f), want zeros",
			got.changeFromFirst, got.change24h)
	}
}

func TestClassifyPhaseNoSignals(t *testing.T) {
	got := classifyPhase(nil, nil, asOf)
	if got.phase != database.PhaseEarlySignal {
		t.Errorf("phase = %s, want EARLY_SIGNAL", got.phase)
	}
}

func TestClassifyPhaseWithout24hReference(t *testing.T) {
	// All signals fresh: 24h change falls back to the change from first
	signals := []database.RawSignal{
		testSignal(2, "XYZUSDT", database.StrengthStrong, 2, floatPtr(1.10)),
		testSignal(1, "XYZUSDT", database.StrengthStrong, 10, floatPtr(1.00)),
	}

	got := classifyPhase(signals, nil, asOf)

	if got.change24h != got.changeFromFirst {
		t.Errorf("change24h = %.2f, want fallback to changeFromFirst %.2f",
			got.change24h, got.changeFromFirst)
	}
}
