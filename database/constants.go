package database

import "time"

// External table identifiers (candle ingester conventions)
const (
	ExchangeBinance = 1

	ContractTypeFutures = 1
	ContractTypeSpot    = 2

	// Candle interval identifiers in public.candles
	Interval1h = 3
	Interval4h = 4
)

// Market sides for raw signals
const (
	MarketSideSpot    = "SPOT"
	MarketSideFutures = "FUTURES"
)

// Signal strength labels, ordered strongest first
const (
	StrengthExtreme    = "EXTREME"
	StrengthVeryStrong = "VERY_STRONG"
	StrengthStrong     = "STRONG"
	StrengthMedium     = "MEDIUM"
	StrengthWeak       = "WEAK"
)

// Confidence tiers
const (
	ConfidenceHigh   = "HIGH"
	ConfidenceMedium = "MEDIUM"
	ConfidenceLow    = "LOW"
)

// Pattern types
const (
	PatternExtremePrecursor = "EXTREME_PRECURSOR"
	PatternStrongPrecursor  = "STRONG_PRECURSOR"
	PatternMediumPrecursor  = "MEDIUM_PRECURSOR"
	PatternEarlyPattern     = "EARLY_PATTERN"
)

// Pump lifecycle phases
const (
	PhaseEarlySignal         = "EARLY_SIGNAL"
	PhasePostPumpCooling     = "POST_PUMP_COOLING"
	PhaseSecondWavePotential = "SECOND_WAVE_POTENTIAL"
)

// Candidate statuses
const (
	StatusActive  = "ACTIVE"
	StatusExpired = "EXPIRED"
)

// Backtest classifications
const (
	ClassificationTP = "TP"
	ClassificationFP = "FP"
	ClassificationFN = "FN"
	ClassificationTN = "TN"
)

// Baseline window sizes: number of prior 4h candles per horizon.
// A baseline is null unless the full window is available.
const (
	BaselineCandles7d  = 42
	BaselineCandles14d = 84
	BaselineCandles30d = 180
)

// Candidate lifecycle
const (
	CandidateTTL      = 7 * 24 * time.Hour
	AnalysisWindow    = 7 * 24 * time.Hour
	ReconnectDelay    = 60 * time.Second
	HTTPClientTimeout = 10 * time.Second
)

// DetectorVersion tags every emitted raw signal
const DetectorVersion = "v2.0"
