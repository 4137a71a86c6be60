package backtest

import (
	"context"
	"testing"
	"time"

	"pump-detector/database"
	"pump-detector/engine"
)

var pumpStart = time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

type fakeStore struct {
	pumps   []database.KnownPumpEvent
	rows    []*database.BacktestResult
	cleared bool
}

func (f *fakeStore) ListKnownPumps() ([]database.KnownPumpEvent, error) {
	return f.pumps, nil
}

func (f *fakeStore) ClearBacktestResults() error {
	f.cleared = true
	f.rows = nil
	return nil
}

func (f *fakeStore) WriteBacktestResult(row *database.BacktestResult) error {
	f.rows = append(f.rows, row)
	return nil
}

// stubAnalyzer detects only at one exact analysis time
type stubAnalyzer struct {
	detectAt time.Time
}

func (s *stubAnalyzer) Analyze(symbol string, asOf time.Time) (*engine.Result, error) {
	if !asOf.Equal(s.detectAt) {
		return nil, nil
	}
	eta := 48
	return &engine.Result{
		Symbol:                symbol,
		Score:                 81.5,
		Confidence:            database.ConfidenceHigh,
		PatternType:           database.PatternStrongPrecursor,
		TotalSignals:          14,
		ExtremeSignals:        2,
		CriticalWindowSignals: 5,
		ETAHours:              &eta,
		IsActionable:          true,
	}, nil
}

func TestBacktestSingleDetectionWindow(t *testing.T) {
	store := &fakeStore{
		pumps: []database.KnownPumpEvent{{
			ID:        7,
			Symbol:    "EVTUSDT",
			PumpStart: pumpStart,
		}},
	}
	analyzer := &stubAnalyzer{detectAt: pumpStart.Add(-48 * time.Hour)}
	bt := New(store, analyzer, engine.DefaultConfig())

	metrics, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if !store.cleared {
		t.Error("prior backtest rows were not cleared")
	}
	if len(store.rows) != 5 {
		t.Fatalf("got %d rows, want 5", len(store.rows))
	}

	for _, row := range store.rows {
		wantDetected := row.HoursBeforePump == 48
		if row.WasDetected != wantDetected {
			t.Errorf("offset %d: WasDetected = %v, want %v",
				row.HoursBeforePump, row.WasDetected, wantDetected)
		}
		wantClass := database.ClassificationFN
		if wantDetected {
			wantClass = database.ClassificationTP
		}
		if row.Classification != wantClass {
			t.Errorf("offset %d: Classification = %s, want %s",
				row.HoursBeforePump, row.Classification, wantClass)
		}
		if row.KnownPumpID != 7 || row.Symbol != "EVTUSDT" {
			t.Errorf("row identity wrong: %+v", row)
		}
		if row.ConfigSnapshot == "" || row.ConfigSnapshot == "{}" {
			t.Errorf("offset %d: empty config snapshot", row.HoursBeforePump)
		}
	}

	if metrics.Overall.TP != 1 || metrics.Overall.FN != 4 {
		t.Errorf("overall = TP %d FN %d, want 1/4", metrics.Overall.TP, metrics.Overall.FN)
	}
	if metrics.Overall.Recall != 0.2 {
		t.Errorf("recall = %.2f, want 0.20", metrics.Overall.Recall)
	}
	if metrics.TotalProbes != 5 || metrics.TotalEvents != 1 {
		t.Errorf("totals = %d probes / %d events, want 5/1", metrics.TotalProbes, metrics.TotalEvents)
	}

	offset48 := metrics.ByOffset["48"]
	if offset48.Detected != 1 || offset48.Rate != 1.0 {
		t.Errorf("offset 48 = %+v, want detected 1 rate 1.0", offset48)
	}
	offset72 := metrics.ByOffset["72"]
	if offset72.Detected != 0 || offset72.Rate != 0 {
		t.Errorf("offset 72 = %+v, want nothing detected", offset72)
	}

	high := metrics.ByConfidence[database.ConfidenceHigh]
	if high.Count != 1 || high.AvgScore != 81.5 {
		t.Errorf("HIGH group = %+v, want count 1 avg 81.5", high)
	}
}

func TestBacktestDetectedRowCarriesEngineOutput(t *testing.T) {
	store := &fakeStore{
		pumps: []database.KnownPumpEvent{{ID: 1, Symbol: "EVTUSDT", PumpStart: pumpStart}},
	}
	analyzer := &stubAnalyzer{detectAt: pumpStart.Add(-48 * time.Hour)}
	bt := New(store, analyzer, engine.DefaultConfig())

	if _, err := bt.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	var detected *database.BacktestResult
	for _, row := range store.rows {
		if row.WasDetected {
			detected = row
		}
	}
	if detected == nil {
		t.Fatal("no detected row")
	}
	if detected.Confidence == nil || *detected.Confidence != database.ConfidenceHigh {
		t.Errorf("Confidence = %v, want HIGH", detected.Confidence)
	}
	if detected.Score == nil || *detected.Score != 81.5 {
		t.Errorf("Score = %v, want 81.5", detected.Score)
	}
	if !detected.IsActionable || detected.CriticalWindowSignals != 5 {
		t.Errorf("engine counters lost: %+v", detected)
	}
}

func TestBacktestEmptyCorpus(t *testing.T) {
	store := &fakeStore{}
	bt := New(store, &stubAnalyzer{}, engine.DefaultConfig())

	metrics, err := bt.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if metrics.TotalProbes != 0 {
		t.Errorf("probes = %d, want 0", metrics.TotalProbes)
	}
	// Division guards: everything zero, nothing NaN
	if metrics.Overall.Recall != 0 || metrics.Overall.Precision != 0 || metrics.Overall.Accuracy != 0 {
		t.Errorf("zero-corpus metrics not guarded: %+v", metrics.Overall)
	}
}
