package priceupdater

import (
	"context"
	"testing"
	"time"

	"pump-detector/database"
	"pump-detector/exchange"
)

type fakeStore struct {
	candidates []database.PumpCandidate
	updates    map[int64]float64
}

func (f *fakeStore) ListActiveCandidates(filter database.CandidateFilter) ([]database.PumpCandidate, error) {
	return f.candidates, nil
}

func (f *fakeStore) UpdateCandidatePrice(id int64, price, change24h float64, now time.Time) error {
	if f.updates == nil {
		f.updates = make(map[int64]float64)
	}
	f.updates[id] = price
	return nil
}

type fakeSource struct {
	tickers []exchange.Ticker
	calls   int
}

func (f *fakeSource) FetchTickers(ctx context.Context) ([]exchange.Ticker, error) {
	f.calls++
	return f.tickers, nil
}

func TestRunOnceUpdatesMatchingCandidates(t *testing.T) {
	store := &fakeStore{
		candidates: []database.PumpCandidate{
			{ID: 1, Symbol: "EVTUSDT"},
			{ID: 2, Symbol: "MISSINGUSDT"},
			{ID: 3, Symbol: "BADUSDT"},
		},
	}
	source := &fakeSource{
		tickers: []exchange.Ticker{
			{Symbol: "EVTUSDT", LastPrice: "1.2345", PriceChangePercent: "8.2"},
			{Symbol: "BADUSDT", LastPrice: "not-a-number", PriceChangePercent: "1.0"},
			{Symbol: "OTHERUSDT", LastPrice: "9.99", PriceChangePercent: "0.1"},
		},
	}

	u := New(store, source, nil)
	if err := u.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce failed: %v", err)
	}

	if len(store.updates) != 1 {
		t.Fatalf("got %d updates, want 1", len(store.updates))
	}
	if store.updates[1] != 1.2345 {
		t.Errorf("price = %v, want 1.2345", store.updates[1])
	}
}

func TestRunOnceWithoutRedisFetchesEveryTime(t *testing.T) {
	store := &fakeStore{}
	source := &fakeSource{}

	u := New(store, source, nil)
	for i := 0; i < 3; i++ {
		if err := u.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce failed: %v", err)
		}
	}
	if source.calls != 3 {
		t.Errorf("fetch calls = %d, want 3 without a cache", source.calls)
	}
}
