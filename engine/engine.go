// Package engine scores a symbol's 7-day raw-signal window into a pump
// candidate: five-factor score, confidence tier, pattern label, ETA and
// lifecycle phase. Analyze is pure over its inputs so the backtester can
// replay it at arbitrary points in time.
package engine

import (
	"math"
	"sort"
	"time"

	"pump-detector/database"
)

// meanActionableSignalCount is the empirically observed mean signal count
// across actionable pumps. Part of the model calibration, not a tunable.
const meanActionableSignalCount = 16.44

// SignalSource supplies the engine's two read paths. The store implements
// it; the backtester and tests substitute their own.
type SignalSource interface {
	ListSignalsForSymbol(symbol string, from, to time.Time) ([]database.RawSignal, error)
	LastKnownPumpBefore(symbol string, t time.Time) (*database.KnownPumpEvent, error)
}

// Weights are the five factor weights of the scoring model
type Weights struct {
	SignalCount      float64 `json:"signal_count"`
	TimeDistribution float64 `json:"time_distribution"`
	SignalStrength   float64 `json:"signal_strength"`
	Escalation       float64 `json:"escalation"`
	Balance          float64 `json:"balance"`
}

// Config holds engine thresholds and weights
type Config struct {
	MinSignalCount           int     `json:"min_signal_count"`
	HighThreshold            float64 `json:"high_threshold"`
	MediumThreshold          float64 `json:"medium_threshold"`
	CriticalWindowMinSignals int     `json:"critical_window_min_signals"`
	Weights                  Weights `json:"weights"`
}

// DefaultConfig returns the code-side defaults
func DefaultConfig() Config {
	return Config{
		MinSignalCount:           10,
		HighThreshold:            75.0,
		MediumThreshold:          50.0,
		CriticalWindowMinSignals: 4,
		Weights: Weights{
			SignalCount:      0.40,
			TimeDistribution: 0.25,
			SignalStrength:   0.20,
			Escalation:       0.10,
			Balance:          0.05,
		},
	}
}

// LoadConfig starts from base and applies pump.detector_config overrides.
// Consulted once at construction; no hot reload.
func LoadConfig(store *database.Store, base Config) Config {
	cfg := base
	cfg.MinSignalCount = store.ConfigInt("min_signal_count", cfg.MinSignalCount)
	cfg.HighThreshold = store.ConfigFloat("high_confidence_threshold", cfg.HighThreshold)
	cfg.MediumThreshold = store.ConfigFloat("medium_confidence_threshold", cfg.MediumThreshold)
	cfg.CriticalWindowMinSignals = store.ConfigInt("critical_window_min_signals", cfg.CriticalWindowMinSignals)
	return cfg
}

// FactorScores are the raw per-factor scores before weighting
type FactorScores struct {
	SignalCount      float64 `json:"signal_count"`
	TimeDistribution float64 `json:"time_distribution"`
	SignalStrength   float64 `json:"signal_strength"`
	Escalation       float64 `json:"escalation"`
	Balance          float64 `json:"balance"`
}

// Detail is the full analysis evidence stored as a snapshot next to every
// candidate write
type Detail struct {
	AsOf             time.Time      `json:"as_of"`
	TotalSignals     int            `json:"total_signals"`
	Weights          Weights        `json:"weights"`
	Factors          FactorScores   `json:"factor_scores"`
	StrengthCounts   map[string]int `json:"strength_counts"`
	MarketSideCounts map[string]int `json:"market_side_counts"`
	TimeBuckets      map[string]int `json:"time_buckets"`
}

// Result is the engine's judgment about one symbol at one point in time
type Result struct {
	Symbol                string
	TradingPairID         int64
	Score                 float64
	Confidence            string
	PatternType           string
	TotalSignals          int
	ExtremeSignals        int
	CriticalWindowSignals int
	ETAHours              *int
	IsActionable          bool
	PumpPhase             string
	PriceChangeFromFirst  float64
	PriceChange24h        float64
	HoursSinceLastPump    *int
	Signals               []database.RawSignal
	Detail                Detail
}

// Engine scores symbols. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	src SignalSource
	cfg Config
}

// New creates an engine over a signal source
func New(src SignalSource, cfg Config) *Engine {
	return &Engine{src: src, cfg: cfg}
}

// Analyze scores the symbol's signals in the 7 days before asOf.
// Returns nil when the symbol does not reach the minimum signal count or
// scores below the MEDIUM threshold; such symbols are never persisted.
func (e *Engine) Analyze(symbol string, asOf time.Time) (*Result, error) {
	signals, err := e.src.ListSignalsForSymbol(symbol, asOf.Add(-database.AnalysisWindow), asOf)
	if err != nil {
		return nil, err
	}

	n := len(signals)
	if n < e.cfg.MinSignalCount {
		return nil, nil
	}

	buckets, critical := bucketByAge(signals, asOf)

	factors := FactorScores{
		SignalCount:      scoreSignalCount(n),
		TimeDistribution: scoreTimeDistribution(buckets, critical),
		SignalStrength:   scoreStrength(signals),
		Escalation:       scoreEscalation(signals),
		Balance:          scoreBalance(signals),
	}

	w := e.cfg.Weights
	score := w.SignalCount*factors.SignalCount +
		w.TimeDistribution*factors.TimeDistribution +
		w.SignalStrength*factors.SignalStrength +
		w.Escalation*factors.Escalation +
		w.Balance*factors.Balance
	score = round2(clamp(score, 0, 100))

	confidence := e.confidenceFor(score)
	if confidence == "" {
		return nil, nil
	}

	extremes := countStrength(signals, database.StrengthExtreme)
	pattern := patternFor(extremes, critical, score, n)
	eta := etaFor(critical, score)

	lastPump, err := e.src.LastKnownPumpBefore(symbol, asOf)
	if err != nil {
		return nil, err
	}
	phase := classifyPhase(signals, lastPump, asOf)

	actionable := confidence == database.ConfidenceHigh &&
		critical >= e.cfg.CriticalWindowMinSignals

	return &Result{
		Symbol:                symbol,
		TradingPairID:         signals[0].TradingPairID,
		Score:                 score,
		Confidence:            confidence,
		PatternType:           pattern,
		TotalSignals:          n,
		ExtremeSignals:        extremes,
		CriticalWindowSignals: critical,
		ETAHours:              eta,
		IsActionable:          actionable,
		PumpPhase:             phase.phase,
		PriceChangeFromFirst:  phase.changeFromFirst,
		PriceChange24h:        phase.change24h,
		HoursSinceLastPump:    phase.hoursSinceLastPump,
		Signals:               signals,
		Detail: Detail{
			AsOf:             asOf,
			TotalSignals:     n,
			Weights:          w,
			Factors:          factors,
			StrengthCounts:   strengthHistogram(signals),
			MarketSideCounts: sideHistogram(signals),
			TimeBuckets:      buckets,
		},
	}, nil
}

// confidenceFor maps a score to its tier; empty below MEDIUM
func (e *Engine) confidenceFor(score float64) string {
	switch {
	case score >= e.cfg.HighThreshold:
		return database.ConfidenceHigh
	case score >= e.cfg.MediumThreshold:
		return database.ConfidenceMedium
	default:
		return ""
	}
}

// F1: how close the window is to the mean signal count of past actionable pumps
func scoreSignalCount(n int) float64 {
	return math.Min(100, float64(n)/meanActionableSignalCount*100)
}

// bucketByAge partitions signals by hours before asOf and counts the
// critical 48-72h window
func bucketByAge(signals []database.RawSignal, asOf time.Time) (map[string]int, int) {
	buckets := map[string]int{
		"0-24": 0, "24-48": 0, "48-72": 0, "72-96": 0, "96-120": 0, "120+": 0,
	}
	for _, s := range signals {
		h := asOf.Sub(s.SignalTimestamp).Hours()
		switch {
		case h < 24:
			buckets["0-24"]++
		case h < 48:
			buckets["24-48"]++
		case h < 72:
			buckets["48-72"]++
		case h < 96:
			buckets["72-96"]++
		case h < 120:
			buckets["96-120"]++
		default:
			buckets["120+"]++
		}
	}
	return buckets, buckets["48-72"]
}

// F2: density of the critical window; with an empty critical window a mild
// score is granted for fresh activity
func scoreTimeDistribution(buckets map[string]int, critical int) float64 {
	switch {
	case critical >= 5:
		return 100
	case critical == 4:
		return 90
	case critical == 3:
		return 70
	case critical == 2:
		return 50
	case critical == 1:
		return 30
	default:
		return math.Min(40, 5*float64(buckets["0-24"]+buckets["24-48"]))
	}
}

// F3: strength-weighted ratio with an EXTREME bonus
func scoreStrength(signals []database.RawSignal) float64 {
	extremes := countStrength(signals, database.StrengthExtreme)
	veryStrong := countStrength(signals, database.StrengthVeryStrong)
	strong := countStrength(signals, database.StrengthStrong)

	weighted := float64(3*extremes + 2*veryStrong + strong)
	maxPossible := float64(3 * len(signals))
	score := weighted / maxPossible * 100

	if extremes >= 3 {
		score += 20
	} else if extremes >= 2 {
		score += 10
	}
	return clamp(score, 0, 100)
}

// F4: signal density of the newer half against the older half
func scoreEscalation(signals []database.RawSignal) float64 {
	r := escalationRatio(signals)
	switch {
	case r >= 2.0:
		return 100
	case r >= 1.5:
		return 80
	case r >= 1.0:
		return 60
	default:
		return 40
	}
}

func escalationRatio(signals []database.RawSignal) float64 {
	if len(signals) < 3 {
		return 1
	}

	sorted := make([]database.RawSignal, len(signals))
	copy(sorted, signals)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].SignalTimestamp.Before(sorted[j].SignalTimestamp)
	})

	mid := len(sorted) / 2
	densityA := signalDensity(sorted[:mid])
	densityB := signalDensity(sorted[mid:])
	if densityA == 0 {
		return 0
	}
	return densityB / densityA
}

// signalDensity is signals per hour over the half's span, with a one hour
// floor so single-candle halves stay finite
func signalDensity(half []database.RawSignal) float64 {
	if len(half) == 0 {
		return 0
	}
	span := half[len(half)-1].SignalTimestamp.Sub(half[0].SignalTimestamp).Hours()
	return float64(len(half)) / math.Max(1, span)
}

// F5: bonus for balanced presence on both market sides
func scoreBalance(signals []database.RawSignal) float64 {
	spot := 0
	futures := 0
	for _, s := range signals {
		switch s.MarketSide {
		case database.MarketSideSpot:
			spot++
		case database.MarketSideFutures:
			futures++
		}
	}

	switch {
	case spot > 0 && futures > 0:
		lo, hi := float64(spot), float64(futures)
		if lo > hi {
			lo, hi = hi, lo
		}
		return 50 + 50*lo/hi
	case spot > 0 || futures > 0:
		return 30
	default:
		return 0
	}
}

// patternFor labels the precursor mix, strictest rule first
func patternFor(extremes, critical int, score float64, total int) string {
	switch {
	case extremes >= 2 && critical >= 4:
		return database.PatternExtremePrecursor
	case extremes >= 1 && critical >= 3:
		return database.PatternStrongPrecursor
	case score >= 60 && total >= 12:
		return database.PatternMediumPrecursor
	default:
		return database.PatternEarlyPattern
	}
}

// etaFor estimates hours until the pump from critical-window density
func etaFor(critical int, score float64) *int {
	var eta int
	switch {
	case critical >= 5:
		eta = 48
	case critical >= 3:
		eta = 60
	case critical >= 1:
		eta = 72
	case score >= 70:
		eta = 96
	default:
		return nil
	}
	return &eta
}

func countStrength(signals []database.RawSignal, strength string) int {
	count := 0
	for _, s := range signals {
		if s.SignalStrength == strength {
			count++
		}
	}
	return count
}

func strengthHistogram(signals []database.RawSignal) map[string]int {
	histogram := make(map[string]int)
	for _, s := range signals {
		histogram[s.SignalStrength]++
	}
	return histogram
}

func sideHistogram(signals []database.RawSignal) map[string]int {
	histogram := make(map[string]int)
	for _, s := range signals {
		histogram[s.MarketSide]++
	}
	return histogram
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
