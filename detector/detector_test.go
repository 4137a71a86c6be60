package detector

import (
	"database/sql"
	"testing"
	"time"

	"pump-detector/database"
)

func TestSignalFromSpike(t *testing.T) {
	candleTime := time.Date(2025, 7, 1, 8, 0, 0, 0, time.UTC)
	detectedAt := time.Date(2025, 7, 1, 9, 30, 0, 0, time.UTC)

	spike := spikeRow{
		tradingPairID: 42,
		symbol:        "EVTUSDT",
		candleTime:    candleTime,
		closePrice:    1.234,
		volume:        980_000,
		baseline7d:    sql.NullFloat64{Float64: 160_000, Valid: true},
		baseline14d:   sql.NullFloat64{Float64: 200_000, Valid: true},
		baseline30d:   sql.NullFloat64{}, // partial window
		spikeRatio7d:  6.12,
		spikeRatio14d: 4.9,
		spikeRatio30d: 0,
	}

	signal := signalFromSpike(spike, database.MarketSideSpot, detectedAt)

	if signal.TradingPairID != 42 || signal.Symbol != "EVTUSDT" {
		t.Errorf("identity fields lost: %+v", signal)
	}
	if signal.MarketSide != database.MarketSideSpot {
		t.Errorf("MarketSide = %s, want SPOT", signal.MarketSide)
	}
	if !signal.SignalTimestamp.Equal(candleTime) || !signal.DetectedAt.Equal(detectedAt) {
		t.Errorf("timestamps lost: %+v", signal)
	}
	if signal.Baseline7d == nil || *signal.Baseline7d != 160_000 {
		t.Errorf("Baseline7d = %v, want 160000", signal.Baseline7d)
	}
	if signal.Baseline30d != nil {
		t.Errorf("Baseline30d = %v, want nil for a partial window", signal.Baseline30d)
	}
	if signal.SignalStrength != database.StrengthExtreme {
		t.Errorf("SignalStrength = %s, want EXTREME for 6.12x", signal.SignalStrength)
	}
	if signal.PriceAtSignal == nil || *signal.PriceAtSignal != 1.234 {
		t.Errorf("PriceAtSignal = %v, want 1.234", signal.PriceAtSignal)
	}
	if signal.DetectorVersion != database.DetectorVersion {
		t.Errorf("DetectorVersion = %s, want %s", signal.DetectorVersion, database.DetectorVersion)
	}
}

func TestSignalFromSpikePointersAreIndependent(t *testing.T) {
	spike := spikeRow{
		baseline7d:  sql.NullFloat64{Float64: 100, Valid: true},
		baseline14d: sql.NullFloat64{Float64: 100, Valid: true},
	}
	a := signalFromSpike(spike, database.MarketSideSpot, time.Now().UTC())
	b := signalFromSpike(spike, database.MarketSideFutures, time.Now().UTC())

	*a.Baseline7d = 999
	if *b.Baseline7d != 100 {
		t.Error("signals share baseline storage")
	}
	*a.PriceAtSignal = 999
	if *b.PriceAtSignal != 0 {
		t.Error("signals share price storage")
	}
}
