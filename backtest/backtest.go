// Package backtest replays the detection engine at fixed offsets before
// each labeled pump and aggregates classification metrics.
package backtest

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"pump-detector/database"
	"pump-detector/engine"
)

// Offsets are the probe distances in hours before each pump start
var Offsets = []int{72, 60, 48, 36, 24}

// DefaultMetricsPath is the conventional artifact location the dashboard reads
const DefaultMetricsPath = "/tmp/pump_analysis/backtest_metrics.json"

// Analyzer is the engine surface the backtester drives. Tests substitute a
// stub with a scripted answer.
type Analyzer interface {
	Analyze(symbol string, asOf time.Time) (*engine.Result, error)
}

// ResultStore is the slice of the store the backtester needs
type ResultStore interface {
	ListKnownPumps() ([]database.KnownPumpEvent, error)
	ClearBacktestResults() error
	WriteBacktestResult(row *database.BacktestResult) error
}

// OverallMetrics are the corpus-level classification counts and rates.
// FP and TN stay zero until non-pump probes are added to the corpus.
type OverallMetrics struct {
	TP        int     `json:"tp"`
	FP        int     `json:"fp"`
	FN        int     `json:"fn"`
	TN        int     `json:"tn"`
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Accuracy  float64 `json:"accuracy"`
}

// OffsetMetrics is the detection rate at one probe distance
type OffsetMetrics struct {
	Total    int     `json:"total"`
	Detected int     `json:"detected"`
	Rate     float64 `json:"rate"`
}

// GroupMetrics are count and average score per confidence tier or pattern
type GroupMetrics struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

// Metrics is the JSON artifact emitted for the dashboard
type Metrics struct {
	GeneratedAt  time.Time                `json:"generated_at"`
	TotalEvents  int                      `json:"total_events"`
	TotalProbes  int                      `json:"total_probes"`
	Overall      OverallMetrics           `json:"overall"`
	ByOffset     map[string]OffsetMetrics `json:"by_offset"`
	ByConfidence map[string]GroupMetrics  `json:"by_confidence"`
	ByPattern    map[string]GroupMetrics  `json:"by_pattern"`
}

// Backtester drives the engine across the labeled corpus
type Backtester struct {
	store      ResultStore
	analyzer   Analyzer
	configJSON string
}

// New creates a backtester; the engine config is snapshotted into every row
func New(store ResultStore, analyzer Analyzer, cfg engine.Config) *Backtester {
	snapshot, err := json.Marshal(cfg)
	if err != nil {
		snapshot = []byte("{}")
	}
	return &Backtester{
		store:      store,
		analyzer:   analyzer,
		configJSON: string(snapshot),
	}
}

// Run clears prior rows, probes every (pump, offset) combination and
// returns the aggregated metrics. Probe failures are skipped, leaving a
// partial but well-formed result.
func (b *Backtester) Run(ctx context.Context) (*Metrics, error) {
	if err := b.store.ClearBacktestResults(); err != nil {
		return nil, err
	}

	pumps, err := b.store.ListKnownPumps()
	if err != nil {
		return nil, err
	}
	log.Printf("📊 Backtesting %d known pumps at offsets %v", len(pumps), Offsets)

	agg := newAggregator()
	for _, pump := range pumps {
		for _, offset := range Offsets {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}

			analysisTime := pump.PumpStart.Add(-time.Duration(offset) * time.Hour)
			result, err := b.analyzer.Analyze(pump.Symbol, analysisTime)
			if err != nil {
				log.Printf("⚠️  %s at -%dh: %v", pump.Symbol, offset, err)
				continue
			}

			row := buildRow(pump, offset, analysisTime, result, b.configJSON)
			if err := b.store.WriteBacktestResult(row); err != nil {
				return nil, err
			}
			agg.add(row)
		}
	}

	metrics := agg.metrics(len(pumps))
	log.Printf("✅ Backtest complete: recall %.2f over %d probes",
		metrics.Overall.Recall, metrics.TotalProbes)
	return metrics, nil
}

// buildRow converts one probe into its persisted shape. Every labeled pump
// is a known positive, so detection means TP and a miss means FN.
func buildRow(pump database.KnownPumpEvent, offset int, analysisTime time.Time, result *engine.Result, configJSON string) *database.BacktestResult {
	row := &database.BacktestResult{
		KnownPumpID:     pump.ID,
		Symbol:          pump.Symbol,
		HoursBeforePump: offset,
		AnalysisTime:    analysisTime,
		WasDetected:     result != nil,
		Classification:  database.ClassificationFN,
		ConfigSnapshot:  configJSON,
	}
	if result != nil {
		row.Classification = database.ClassificationTP
		row.Confidence = &result.Confidence
		row.Score = &result.Score
		row.PatternType = &result.PatternType
		row.IsActionable = result.IsActionable
		row.TotalSignals = result.TotalSignals
		row.ExtremeSignals = result.ExtremeSignals
		row.CriticalWindowSignals = result.CriticalWindowSignals
	}
	return row
}

// WriteMetrics emits the metrics JSON at the given path
func WriteMetrics(metrics *Metrics, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("WriteMetrics: %w", err)
	}
	data, err := json.MarshalIndent(metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("WriteMetrics: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("WriteMetrics: %w", err)
	}
	log.Printf("✅ Metrics written to %s", path)
	return nil
}

// aggregator accumulates metric counters while rows are written
type aggregator struct {
	overall      OverallMetrics
	byOffset     map[string]OffsetMetrics
	confCount    map[string]int
	confScore    map[string]float64
	patternCount map[string]int
	patternScore map[string]float64
	probes       int
}

func newAggregator() *aggregator {
	return &aggregator{
		byOffset:     make(map[string]OffsetMetrics),
		confCount:    make(map[string]int),
		confScore:    make(map[string]float64),
		patternCount: make(map[string]int),
		patternScore: make(map[string]float64),
	}
}

func (a *aggregator) add(row *database.BacktestResult) {
	a.probes++

	key := fmt.Sprintf("%d", row.HoursBeforePump)
	offset := a.byOffset[key]
	offset.Total++
	if row.WasDetected {
		offset.Detected++
	}
	a.byOffset[key] = offset

	switch row.Classification {
	case database.ClassificationTP:
		a.overall.TP++
	case database.ClassificationFP:
		a.overall.FP++
	case database.ClassificationFN:
		a.overall.FN++
	case database.ClassificationTN:
		a.overall.TN++
	}

	if row.Confidence != nil && row.Score != nil {
		a.confCount[*row.Confidence]++
		a.confScore[*row.Confidence] += *row.Score
	}
	if row.PatternType != nil && row.Score != nil {
		a.patternCount[*row.PatternType]++
		a.patternScore[*row.PatternType] += *row.Score
	}
}

func (a *aggregator) metrics(totalEvents int) *Metrics {
	o := a.overall
	o.Precision = safeDiv(float64(o.TP), float64(o.TP+o.FP))
	o.Recall = safeDiv(float64(o.TP), float64(o.TP+o.FN))
	o.F1 = safeDiv(2*o.Precision*o.Recall, o.Precision+o.Recall)
	o.Accuracy = safeDiv(float64(o.TP+o.TN), float64(a.probes))

	for key, om := range a.byOffset {
		om.Rate = safeDiv(float64(om.Detected), float64(om.Total))
		a.byOffset[key] = om
	}

	byConfidence := make(map[string]GroupMetrics, len(a.confCount))
	for tier, count := range a.confCount {
		byConfidence[tier] = GroupMetrics{
			Count:    count,
			AvgScore: safeDiv(a.confScore[tier], float64(count)),
		}
	}
	byPattern := make(map[string]GroupMetrics, len(a.patternCount))
	for pattern, count := range a.patternCount {
		byPattern[pattern] = GroupMetrics{
			Count:    count,
			AvgScore: safeDiv(a.patternScore[pattern], float64(count)),
		}
	}

	return &Metrics{
		GeneratedAt:  time.Now().UTC(),
		TotalEvents:  totalEvents,
		TotalProbes:  a.probes,
		Overall:      o,
		ByOffset:     a.byOffset,
		ByConfidence: byConfidence,
		ByPattern:    byPattern,
	}
}

func safeDiv(numerator, denominator float64) float64 {
	if denominator == 0 {
		return 0
	}
	return numerator / denominator
}
