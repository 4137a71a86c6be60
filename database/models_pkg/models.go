package models

import "time"

// RawSignal represents a single anomalous volume bucket found by the spike
// detector. One row exists per (pair, candle open, market side); rows are
// append-only and never mutated after insert.
//
// Key Fields:
//   - SignalTimestamp: Open time of the candle that spiked (indexed)
//   - MarketSide: SPOT or FUTURES
//   - Baseline7d/14d/30d: Mean quote-volume over the prior 42/84/180 candles;
//     null when fewer prior candles exist for the pair
//   - SpikeRatio7d/14d/30d: Volume divided by the matching baseline (0 when
//     the baseline is null or zero)
//   - SignalStrength: Pure function of max(SpikeRatio7d, SpikeRatio14d)
//   - DetectorVersion: Version tag of the detector that emitted the row
type RawSignal struct {
	ID              int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradingPairID   int64     `gorm:"not null;uniqueIndex:uq_raw_signal,priority:1" json:"trading_pair_id"`
	Symbol          string    `gorm:"size:20;index;not null" json:"symbol"`
	MarketSide      string    `gorm:"size:10;not null;uniqueIndex:uq_raw_signal,priority:3" json:"market_side"` // SPOT, FUTURES
	SignalTimestamp time.Time `gorm:"index;not null;uniqueIndex:uq_raw_signal,priority:2" json:"signal_timestamp"`
	DetectedAt      time.Time `gorm:"index;not null" json:"detected_at"`
	Volume          float64   `gorm:"type:decimal(30,8);not null" json:"volume"`
	Baseline7d      *float64  `gorm:"type:decimal(30,8)" json:"baseline_7d,omitempty"`
	Baseline14d     *float64  `gorm:"type:decimal(30,8)" json:"baseline_14d,omitempty"`
	Baseline30d     *float64  `gorm:"type:decimal(30,8)" json:"baseline_30d,omitempty"`
	SpikeRatio7d    float64   `gorm:"type:decimal(12,4);not null" json:"spike_ratio_7d"`
	SpikeRatio14d   float64   `gorm:"type:decimal(12,4);not null" json:"spike_ratio_14d"`
	SpikeRatio30d   float64   `gorm:"type:decimal(12,4);not null" json:"spike_ratio_30d"`
	SignalStrength  string    `gorm:"size:15;index;not null" json:"signal_strength"` // EXTREME, VERY_STRONG, STRONG, MEDIUM, WEAK
	PriceAtSignal   *float64  `gorm:"type:decimal(30,10)" json:"price_at_signal,omitempty"`
	DetectorVersion string    `gorm:"size:10" json:"detector_version"`
}

// TableName specifies the table name for RawSignal
func (RawSignal) TableName() string {
	return "pump.raw_signals"
}

// PumpCandidate is the current aggregate judgment about a symbol.
// At most one ACTIVE row exists per symbol; a candidate expires once its
// FirstDetectedAt is older than seven days.
//
// Key Fields:
//   - Confidence: HIGH or MEDIUM (scores below MEDIUM are never persisted)
//   - Score: Weighted five-factor score in [0, 100], two decimals
//   - CriticalWindowSignals: Signals inside the 48-72h precursor window
//   - IsActionable: HIGH confidence plus a dense critical window
//   - PumpPhase: EARLY_SIGNAL, POST_PUMP_COOLING or SECOND_WAVE_POTENTIAL
//   - ActualPrice/PriceUpdatedAt: Maintained by the price updater, not the engine
type PumpCandidate struct {
	ID                    int64      `gorm:"primaryKey;autoIncrement" json:"id"`
	Symbol                string     `gorm:"size:20;index;not null" json:"symbol"`
	TradingPairID         int64      `gorm:"not null" json:"trading_pair_id"`
	FirstDetectedAt       time.Time  `gorm:"index;not null" json:"first_detected_at"`
	LastUpdatedAt         time.Time  `gorm:"not null" json:"last_updated_at"`
	Confidence            string     `gorm:"size:10;not null" json:"confidence"`
	Score                 float64    `gorm:"type:decimal(5,2);not null" json:"score"`
	PatternType           string     `gorm:"size:20;not null" json:"pattern_type"`
	TotalSignals          int        `gorm:"not null" json:"total_signals"`
	ExtremeSignals        int        `gorm:"not null" json:"extreme_signals"`
	CriticalWindowSignals int        `gorm:"not null" json:"critical_window_signals"`
	ETAHours              *int       `json:"eta_hours,omitempty"`
	IsActionable          bool       `gorm:"not null" json:"is_actionable"`
	PumpPhase             string     `gorm:"size:25;not null" json:"pump_phase"`
	PriceChangeFromFirst  float64    `gorm:"type:decimal(10,2)" json:"price_change_from_first"`
	PriceChange24h        float64    `gorm:"type:decimal(10,2)" json:"price_change_24h"`
	HoursSinceLastPump    *int       `json:"hours_since_last_pump,omitempty"`
	Status                string     `gorm:"size:10;index;not null" json:"status"` // ACTIVE, EXPIRED
	ActualPrice           *float64   `gorm:"type:decimal(30,10)" json:"actual_price,omitempty"`
	PriceUpdatedAt        *time.Time `json:"price_updated_at,omitempty"`
}

// TableName specifies the table name for PumpCandidate
func (PumpCandidate) TableName() string {
	return "pump.pump_candidates"
}

// AnalysisSnapshot stores the full analysis detail as JSON at the moment of a
// candidate write. Append-only; kept for auditability and never read back.
type AnalysisSnapshot struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CandidateID int64     `gorm:"index;not null" json:"candidate_id"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	Detail      string    `gorm:"type:jsonb;not null" json:"detail"`
}

// TableName specifies the table name for AnalysisSnapshot
func (AnalysisSnapshot) TableName() string {
	return "pump.analysis_snapshots"
}

// CandidateSignal links a candidate to one of its evidence signals.
// The link set is rewritten on every candidate update.
type CandidateSignal struct {
	ID             int64   `gorm:"primaryKey;autoIncrement" json:"id"`
	CandidateID    int64   `gorm:"not null;uniqueIndex:uq_candidate_signal,priority:1" json:"candidate_id"`
	SignalID       int64   `gorm:"not null;uniqueIndex:uq_candidate_signal,priority:2" json:"signal_id"`
	RelevanceScore float64 `gorm:"type:decimal(3,2);not null" json:"relevance_score"`
}

// TableName specifies the table name for CandidateSignal
func (CandidateSignal) TableName() string {
	return "pump.candidate_signals"
}

// KnownPumpEvent is one entry of the labeled pump corpus used by the
// backtester. The corpus is immutable from the pipeline's point of view.
type KnownPumpEvent struct {
	ID                int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	TradingPairID     int64     `gorm:"not null" json:"trading_pair_id"`
	Symbol            string    `gorm:"size:20;index;not null" json:"symbol"`
	PumpStart         time.Time `gorm:"index;not null" json:"pump_start"`
	StartPrice        float64   `gorm:"type:decimal(30,10)" json:"start_price"`
	HighPrice         float64   `gorm:"type:decimal(30,10)" json:"high_price"`
	PriceAfter24h     float64   `gorm:"type:decimal(30,10)" json:"price_after_24h"`
	MaxGain24h        float64   `gorm:"type:decimal(10,2)" json:"max_gain_24h"`
	PumpDurationHours int       `json:"pump_duration_hours"`
}

// TableName specifies the table name for KnownPumpEvent
func (KnownPumpEvent) TableName() string {
	return "pump.known_pump_events"
}

// BacktestResult records one engine time-travel probe: a known pump replayed
// at a fixed offset before its start. Unique per (pump, offset).
type BacktestResult struct {
	ID                    int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	KnownPumpID           int64     `gorm:"not null;uniqueIndex:uq_backtest_probe,priority:1" json:"known_pump_id"`
	Symbol                string    `gorm:"size:20;index;not null" json:"symbol"`
	HoursBeforePump       int       `gorm:"not null;uniqueIndex:uq_backtest_probe,priority:2" json:"hours_before_pump"`
	AnalysisTime          time.Time `gorm:"not null" json:"analysis_time"`
	WasDetected           bool      `gorm:"not null" json:"was_detected"`
	Confidence            *string   `gorm:"size:10" json:"confidence,omitempty"`
	Score                 *float64  `gorm:"type:decimal(5,2)" json:"score,omitempty"`
	PatternType           *string   `gorm:"size:20" json:"pattern_type,omitempty"`
	IsActionable          bool      `gorm:"not null" json:"is_actionable"`
	TotalSignals          int       `gorm:"not null" json:"total_signals"`
	ExtremeSignals        int       `gorm:"not null" json:"extreme_signals"`
	CriticalWindowSignals int       `gorm:"not null" json:"critical_window_signals"`
	Classification        string    `gorm:"size:2;not null" json:"classification"` // TP, FP, FN, TN
	ConfigSnapshot        string    `gorm:"type:jsonb" json:"config_snapshot"`
}

// TableName specifies the table name for BacktestResult
func (BacktestResult) TableName() string {
	return "pump.backtest_results"
}

// DetectorConfigEntry is one key of the typed configuration store consulted
// at engine construction time. Hot reload is not supported.
type DetectorConfigEntry struct {
	Key         string    `gorm:"primaryKey;size:50;column:config_key" json:"config_key"`
	Value       string    `gorm:"size:100;column:config_value;not null" json:"config_value"`
	ValueType   string    `gorm:"size:10;not null" json:"value_type"` // int, float, bool, string
	Description string    `gorm:"size:200" json:"description"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TableName specifies the table name for DetectorConfigEntry
func (DetectorConfigEntry) TableName() string {
	return "pump.detector_config"
}

// Candle is the ingester-owned OHLCV table. The pipeline is a reader-only
// client; OpenTime is milliseconds since epoch.
type Candle struct {
	TradingPairID int64   `gorm:"primaryKey" json:"trading_pair_id"`
	IntervalID    int     `gorm:"primaryKey;column:interval_id" json:"interval_id"`
	OpenTime      int64   `gorm:"primaryKey;column:open_time" json:"open_time"`
	Open          float64 `gorm:"type:decimal(30,10)" json:"open"`
	High          float64 `gorm:"type:decimal(30,10)" json:"high"`
	Low           float64 `gorm:"type:decimal(30,10)" json:"low"`
	Close         float64 `gorm:"type:decimal(30,10)" json:"close"`
	QuoteVolume   float64 `gorm:"column:quote_volume;type:decimal(30,8)" json:"quote_volume"`
	IsClosed      bool    `gorm:"column:is_closed" json:"is_closed"`
}

// TableName specifies the table name for Candle
func (Candle) TableName() string {
	return "candles"
}

// OpenTimeUTC converts the millisecond epoch open time to time.Time
func (c Candle) OpenTimeUTC() time.Time {
	return time.UnixMilli(c.OpenTime).UTC()
}

// TradingPair is the exchange pair registry, read-only for the pipeline.
// A symbol may have both a spot and a futures row sharing the base asset.
type TradingPair struct {
	ID             int64  `gorm:"primaryKey" json:"id"`
	Symbol         string `gorm:"size:20;column:symbol" json:"symbol"`
	ExchangeID     int    `gorm:"column:exchange_id" json:"exchange_id"`
	ContractTypeID int    `gorm:"column:contract_type_id" json:"contract_type_id"` // 1=Futures, 2=Spot
	IsActive       bool   `gorm:"column:is_active" json:"is_active"`
	TokenID        int64  `gorm:"column:token_id" json:"token_id"`
}

// TableName specifies the table name for TradingPair
func (TradingPair) TableName() string {
	return "trading_pairs"
}
