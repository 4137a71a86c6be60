package engine

import (
	"encoding/json"
	"math"
	"reflect"
	"sort"
	"testing"
	"time"

	"pump-detector/database"
)

// fakeSource serves a fixed signal set, honoring the window and the
// descending sort the store guarantees
type fakeSource struct {
	signals  []database.RawSignal
	lastPump *database.KnownPumpEvent
}

func (f *fakeSource) ListSignalsForSymbol(symbol string, from, to time.Time) ([]database.RawSignal, error) {
	var out []database.RawSignal
	for _, s := range f.signals {
		if s.Symbol == symbol && !s.SignalTimestamp.Before(from) && s.SignalTimestamp.Before(to) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].SignalTimestamp.After(out[j].SignalTimestamp)
	})
	return out, nil
}

func (f *fakeSource) LastKnownPumpBefore(symbol string, t time.Time) (*database.KnownPumpEvent, error) {
	return f.lastPump, nil
}

var asOf = time.Date(2025, 7, 1, 12, 0, 0, 0, time.UTC)

func floatPtr(v float64) *float64 { return &v }

// testSignal builds a signal hoursBefore hours before asOf. Sides alternate
// with the running id so both markets stay balanced.
func testSignal(id int64, symbol, strength string, hoursBefore float64, price *float64) database.RawSignal {
	side := database.MarketSideSpot
	if id%2 == 0 {
		side = database.MarketSideFutures
	}
	return database.RawSignal{
		ID:              id,
		TradingPairID:   42,
		Symbol:          symbol,
		MarketSide:      side,
		SignalTimestamp: asOf.Add(-time.Duration(hoursBefore * float64(time.Hour))),
		SignalStrength:  strength,
		PriceAtSignal:   price,
	}
}

// denseSignalSet is 16 signals over 7 days: 3 MEDIUM far out, 4 VERY_STRONG
// in the 48-72h window, 3 EXTREME in 24-48h, 6 STRONG fresh
func denseSignalSet(symbol string) []database.RawSignal {
	type entry struct {
		strength    string
		hoursBefore float64
		price       *float64
	}
	entries := []entry{
		{database.StrengthMedium, 100, floatPtr(1.00)},
		{database.StrengthMedium, 90, floatPtr(1.02)},
		{database.StrengthMedium, 80, floatPtr(1.05)},
		{database.StrengthVeryStrong, 68, floatPtr(1.08)},
		{database.StrengthVeryStrong, 64, floatPtr(1.10)},
		{database.StrengthVeryStrong, 60, floatPtr(1.12)},
		{database.StrengthVeryStrong, 56, floatPtr(1.15)},
		{database.StrengthExtreme, 40, floatPtr(1.18)},
		{database.StrengthExtreme, 36, floatPtr(1.20)},
		{database.StrengthExtreme, 30, floatPtr(1.24)},
		{database.StrengthStrong, 12, floatPtr(1.24)},
		{database.StrengthStrong, 10, floatPtr(1.25)},
		{database.StrengthStrong, 8, floatPtr(1.25)},
		{database.StrengthStrong, 6, floatPtr(1.25)},
		{database.StrengthStrong, 4, floatPtr(1.25)},
		{database.StrengthStrong, 2, floatPtr(1.25)},
	}
	signals := make([]database.RawSignal, 0, len(entries))
	for i, e := range entries {
		signals = append(signals, testSignal(int64(i+1), symbol, e.strength, e.hoursBefore, e.price))
	}
	return signals
}

func TestAnalyzeBelowMinimumReturnsNone(t *testing.T) {
	var signals []database.RawSignal
	for i := 0; i < 9; i++ {
		signals = append(signals, testSignal(int64(i+1), "ABCUSDT", database.StrengthStrong, float64(i*10+1), nil))
	}
	eng := New(&fakeSource{signals: signals}, DefaultConfig())

	result, err := eng.Analyze("ABCUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result != nil {
		t.Fatalf("expected no candidate for 9 signals, got score %.2f", result.Score)
	}
}

func TestAnalyzeHighActionable(t *testing.T) {
	eng := New(&fakeSource{signals: denseSignalSet("XYZUSDT")}, DefaultConfig())

	result, err := eng.Analyze("XYZUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected a candidate")
	}

	if result.TotalSignals != 16 {
		t.Errorf("TotalSignals = %d, want 16", result.TotalSignals)
	}
	if result.ExtremeSignals != 3 {
		t.Errorf("ExtremeSignals = %d, want 3", result.ExtremeSignals)
	}
	if result.CriticalWindowSignals != 4 {
		t.Errorf("CriticalWindowSignals = %d, want 4", result.CriticalWindowSignals)
	}
	if math.Abs(result.Detail.Factors.SignalCount-97.32) > 0.01 {
		t.Errorf("F1 = %.2f, want ~97.32", result.Detail.Factors.SignalCount)
	}
	if result.Detail.Factors.TimeDistribution != 90 {
		t.Errorf("F2 = %.2f, want 90", result.Detail.Factors.TimeDistribution)
	}
	if math.Abs(result.Detail.Factors.SignalStrength-67.92) > 0.01 {
		t.Errorf("F3 = %.2f, want ~67.92", result.Detail.Factors.SignalStrength)
	}
	if result.Detail.Factors.Escalation != 80 {
		t.Errorf("F4 = %.2f, want 80", result.Detail.Factors.Escalation)
	}
	if result.Detail.Factors.Balance != 100 {
		t.Errorf("F5 = %.2f, want 100", result.Detail.Factors.Balance)
	}
	if math.Abs(result.Score-88.01) > 0.01 {
		t.Errorf("Score = %.2f, want 88.01", result.Score)
	}
	if result.Confidence != database.ConfidenceHigh {
		t.Errorf("Confidence = %s, want HIGH", result.Confidence)
	}
	if result.PatternType != database.PatternExtremePrecursor {
		t.Errorf("PatternType = %s, want EXTREME_PRECURSOR", result.PatternType)
	}
	if !result.IsActionable {
		t.Error("expected actionable candidate")
	}
	if result.ETAHours == nil || *result.ETAHours != 60 {
		t.Errorf("ETAHours = %v, want 60", result.ETAHours)
	}
	if result.PumpPhase != database.PhaseEarlySignal {
		t.Errorf("PumpPhase = %s, want EARLY_SIGNAL without a known pump", result.PumpPhase)
	}
}

func TestAnalyzeActionableNeedsDenseCriticalWindow(t *testing.T) {
	// Drop one critical-window signal: 3 remaining is below the gate even
	// though confidence stays HIGH
	signals := denseSignalSet("XYZUSDT")
	var trimmed []database.RawSignal
	for _, s := range signals {
		h := asOf.Sub(s.SignalTimestamp).Hours()
		if h == 56 {
			continue
		}
		trimmed = append(trimmed, s)
	}
	eng := New(&fakeSource{signals: trimmed}, DefaultConfig())

	result, err := eng.Analyze("XYZUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected a candidate")
	}
	if result.CriticalWindowSignals != 3 {
		t.Fatalf("CriticalWindowSignals = %d, want 3", result.CriticalWindowSignals)
	}
	if result.Confidence != database.ConfidenceHigh {
		t.Fatalf("Confidence = %s, want HIGH", result.Confidence)
	}
	if result.IsActionable {
		t.Error("candidate with 3 critical-window signals must not be actionable")
	}
	if result.PatternType != database.PatternStrongPrecursor {
		t.Errorf("PatternType = %s, want STRONG_PRECURSOR", result.PatternType)
	}
}

func TestAnalyzePostPumpCooling(t *testing.T) {
	src := &fakeSource{
		signals: denseSignalSet("XYZUSDT"),
		lastPump: &database.KnownPumpEvent{
			Symbol:     "XYZUSDT",
			PumpStart:  asOf.Add(-48 * time.Hour),
			StartPrice: 1.00,
		},
	}
	eng := New(src, DefaultConfig())

	result, err := eng.Analyze("XYZUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if result == nil {
		t.Fatal("expected a candidate")
	}
	if result.PriceChangeFromFirst != 25.0 {
		t.Errorf("PriceChangeFromFirst = %.2f, want 25.00", result.PriceChangeFromFirst)
	}
	if result.PriceChange24h >= 5 {
		t.Errorf("PriceChange24h = %.2f, want < 5", result.PriceChange24h)
	}
	if result.HoursSinceLastPump == nil || *result.HoursSinceLastPump != 48 {
		t.Errorf("HoursSinceLastPump = %v, want 48", result.HoursSinceLastPump)
	}
	if result.PumpPhase != database.PhasePostPumpCooling {
		t.Errorf("PumpPhase = %s, want POST_PUMP_COOLING", result.PumpPhase)
	}
	// Cooling does not touch the actionable gate
	if !result.IsActionable {
		t.Error("cooling candidate should still be actionable")
	}
}

func TestAnalyzeDeterminism(t *testing.T) {
	src := &fakeSource{signals: denseSignalSet("XYZUSDT")}
	eng := New(src, DefaultConfig())

	first, err := eng.Analyze("XYZUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	second, err := eng.Analyze("XYZUSDT", asOf)
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Error("two analyses of the same store state differ")
	}

	firstJSON, err := json.Marshal(first.Detail)
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	secondJSON, err := json.Marshal(second.Detail)
	if err != nil {
		t.Fatalf("marshal detail: %v", err)
	}
	if string(firstJSON) != string(secondJSON) {
		t.Error("snapshot detail is not byte-identical across runs")
	}
}

func TestConfidenceTierBoundaries(t *testing.T) {
	eng := New(&fakeSource{}, DefaultConfig())
	tests := []struct {
		score float64
		want  string
	}{
		{75.00, database.ConfidenceHigh},
		{74.99, database.ConfidenceMedium},
		{50.00, database.ConfidenceMedium},
		{49.99, ""},
		{100.00, database.ConfidenceHigh},
		{0.00, ""},
	}
	for _, tt := range tests {
		if got := eng.confidenceFor(tt.score); got != tt.want {
			t.Errorf("confidenceFor(%.2f) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestPatternPrecedence(t *testing.T) {
	tests := []struct {
		name     string
		extremes int
		critical int
		score    float64
		total    int
		want     string
	}{
		{"extreme precursor", 2, 4, 80, 16, database.PatternExtremePrecursor},
		{"strong precursor", 1, 3, 80, 16, database.PatternStrongPrecursor},
		{"medium precursor", 0, 0, 60, 12, database.PatternMediumPrecursor},
		{"early pattern", 0, 0, 55, 11, database.PatternEarlyPattern},
		{"extreme wins over strong", 3, 5, 90, 20, database.PatternExtremePrecursor},
		{"one extreme not enough for extreme pattern", 1, 5, 90, 20, database.PatternStrongPrecursor},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := patternFor(tt.extremes, tt.critical, tt.score, tt.total); got != tt.want {
				t.Errorf("patternFor(%d, %d, %.0f, %d) = %s, want %s",
					tt.extremes, tt.critical, tt.score, tt.total, got, tt.want)
			}
		})
	}
}

func TestETATable(t *testing.T) {
	tests := []struct {
		name     string
		critical int
		score    float64
		want     *int
	}{
		{"dense critical window", 5, 50, intPtr(48)},
		{"critical 4", 4, 50, intPtr(60)},
		{"critical 3", 3, 50, intPtr(60)},
		{"critical 1", 1, 50, intPtr(72)},
		{"no critical but strong score", 0, 70, intPtr(96)},
		{"nothing to estimate", 0, 69.99, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := etaFor(tt.critical, tt.score)
			if (got == nil) != (tt.want == nil) {
				t.Fatalf("etaFor(%d, %.2f) = %v, want %v", tt.critical, tt.score, got, tt.want)
			}
			if got != nil && *got != *tt.want {
				t.Errorf("etaFor(%d, %.2f) = %d, want %d", tt.critical, tt.score, *got, *tt.want)
			}
		})
	}
}

func TestScoreBalance(t *testing.T) {
	mk := func(spot, futures int) []database.RawSignal {
		var signals []database.RawSignal
		for i := 0; i < spot; i++ {
			signals = append(signals, database.RawSignal{MarketSide: database.MarketSideSpot})
		}
		for i := 0; i < futures; i++ {
			signals = append(signals, database.RawSignal{MarketSide: database.MarketSideFutures})
		}
		return signals
	}

	if got := scoreBalance(mk(8, 8)); got != 100 {
		t.Errorf("balanced = %.2f, want 100", got)
	}
	if got := scoreBalance(mk(4, 8)); got != 75 {
		t.Errorf("half balanced = %.2f, want 75", got)
	}
	if got := scoreBalance(mk(5, 0)); got != 30 {
		t.Errorf("one side = %.2f, want 30", got)
	}
	if got := scoreBalance(nil); got != 0 {
		t.Errorf("no signals = %.2f, want 0", got)
	}
}

func intPtr(v int) *int { return &v }
