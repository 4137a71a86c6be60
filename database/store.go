package database

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store exposes the typed storage operations shared by all schedulers.
// Each method is a single transactional unit; callers do not retry
// synchronously, the surrounding loop sleeps and reconnects instead.
type Store struct {
	db *gorm.DB
}

// NewStore creates a new store on top of an established connection
func NewStore(database *Database) *Store {
	return &Store{db: database.DB()}
}

// SignalLink is one entry of a candidate's evidence link set
type SignalLink struct {
	SignalID  int64
	Relevance float64
}

// SymbolActivity summarizes recent signal counts for one symbol
type SymbolActivity struct {
	Symbol         string
	TotalSignals   int
	ExtremeSignals int
}

// CandidateFilter narrows ListActiveCandidates
type CandidateFilter struct {
	Confidence string // empty matches all tiers
}

// CoOccurrence is a same-candle EXTREME spike on both market sides
type CoOccurrence struct {
	Symbol          string
	SignalTimestamp time.Time
	SpotRatio       float64
	FuturesRatio    float64
	SpotVolume      float64
	FuturesVolume   float64
}

// HealthCheck probes connectivity with a trivial read
func (s *Store) HealthCheck() error {
	if err := s.db.Exec("SELECT 1").Error; err != nil {
		return fmt.Errorf("HealthCheck: %w", err)
	}
	return nil
}

// ============================================================================
// Detector configuration
// ============================================================================

func (s *Store) configValue(key string) (string, string, bool) {
	var entry DetectorConfigEntry
	err := s.db.Where("config_key = ?", key).First(&entry).Error
	if err != nil {
		return "", "", false
	}
	return entry.Value, entry.ValueType, true
}

// ConfigInt reads an int key from pump.detector_config, falling back to the
// default on a missing row or a type mismatch
func (s *Store) ConfigInt(key string, defaultValue int) int {
	value, valueType, ok := s.configValue(key)
	if !ok {
		return defaultValue
	}
	if v, ok := parseConfigInt(value, valueType); ok {
		return v
	}
	return defaultValue
}

// ConfigFloat reads a float key with a default
func (s *Store) ConfigFloat(key string, defaultValue float64) float64 {
	value, valueType, ok := s.configValue(key)
	if !ok {
		return defaultValue
	}
	if v, ok := parseConfigFloat(value, valueType); ok {
		return v
	}
	return defaultValue
}

// ConfigBool reads a bool key with a default
func (s *Store) ConfigBool(key string, defaultValue bool) bool {
	value, valueType, ok := s.configValue(key)
	if !ok {
		return defaultValue
	}
	if v, ok := parseConfigBool(value, valueType); ok {
		return v
	}
	return defaultValue
}

// ConfigString reads a string key with a default
func (s *Store) ConfigString(key string, defaultValue string) string {
	value, valueType, ok := s.configValue(key)
	if !ok || valueType != "string" {
		return defaultValue
	}
	return value
}

func parseConfigInt(value, valueType string) (int, bool) {
	if valueType != "int" {
		return 0, false
	}
	v, err := strconv.Atoi(value)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseConfigFloat(value, valueType string) (float64, bool) {
	// int values are acceptable where a float is expected
	if valueType != "float" && valueType != "int" {
		return 0, false
	}
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func parseConfigBool(value, valueType string) (bool, bool) {
	if valueType != "bool" {
		return false, false
	}
	v, err := strconv.ParseBool(value)
	if err != nil {
		return false, false
	}
	return v, true
}

// ============================================================================
// Raw signals
// ============================================================================

// InsertRawSignal persists a detector signal. A collision on the
// (pair, timestamp, side) uniqueness key returns ErrAlreadyExists;
// the caller treats that as "already present".
func (s *Store) InsertRawSignal(signal *RawSignal) error {
	result := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "trading_pair_id"},
			{Name: "signal_timestamp"},
			{Name: "market_side"},
		},
		DoNothing: true,
	}).Create(signal)
	if result.Error != nil {
		return fmt.Errorf("InsertRawSignal: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrAlreadyExists
	}
	return nil
}

// ListSignalsForSymbol returns the symbol's signals in [from, to) sorted
// descending by signal timestamp
func (s *Store) ListSignalsForSymbol(symbol string, from, to time.Time) ([]RawSignal, error) {
	var signals []RawSignal
	err := s.db.
		Where("symbol = ? AND signal_timestamp >= ? AND signal_timestamp < ?", symbol, from, to).
		Order("signal_timestamp DESC").
		Find(&signals).Error
	if err != nil {
		return nil, fmt.Errorf("ListSignalsForSymbol: %w", err)
	}
	return signals, nil
}

// SymbolsToAnalyze returns symbols with at least minSignals signals since the
// given time, ordered by (extreme count, total count) descending
func (s *Store) SymbolsToAnalyze(minSignals int, since time.Time) ([]SymbolActivity, error) {
	var rows []SymbolActivity
	err := s.db.Raw(`
		SELECT symbol,
		       COUNT(*) AS total_signals,
		       COUNT(*) FILTER (WHERE signal_strength = 'EXTREME') AS extreme_signals
		FROM pump.raw_signals
		WHERE signal_timestamp >= ?
		GROUP BY symbol
		HAVING COUNT(*) >= ?
		ORDER BY extreme_signals DESC, total_signals DESC`,
		since, minSignals).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("SymbolsToAnalyze: %w", err)
	}
	return rows, nil
}

// ListExtremeCoOccurrences finds candles where both the spot and the futures
// signal are EXTREME and at least one side was detected after the cutoff
func (s *Store) ListExtremeCoOccurrences(detectedSince time.Time) ([]CoOccurrence, error) {
	var rows []CoOccurrence
	err := s.db.Raw(`
		SELECT sp.symbol,
		       sp.signal_timestamp,
		       sp.spike_ratio_7d AS spot_ratio,
		       fu.spike_ratio_7d AS futures_ratio,
		       sp.volume AS spot_volume,
		       fu.volume AS futures_volume
		FROM pump.raw_signals sp
		JOIN pump.raw_signals fu
		  ON fu.symbol = sp.symbol
		 AND fu.signal_timestamp = sp.signal_timestamp
		WHERE sp.market_side = 'SPOT'
		  AND fu.market_side = 'FUTURES'
		  AND sp.signal_strength = 'EXTREME'
		  AND fu.signal_strength = 'EXTREME'
		  AND (sp.detected_at >= ? OR fu.detected_at >= ?)
		ORDER BY sp.signal_timestamp DESC`,
		detectedSince, detectedSince).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListExtremeCoOccurrences: %w", err)
	}
	return rows, nil
}

// ============================================================================
// Candidates
// ============================================================================

// UpsertCandidate writes the aggregate judgment for a symbol. An existing
// ACTIVE row is updated in place keeping its FirstDetectedAt; otherwise a
// fresh ACTIVE row is inserted. Returns the candidate id.
func (s *Store) UpsertCandidate(candidate *PumpCandidate, now time.Time) (int64, error) {
	var id int64
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var existing PumpCandidate
		err := tx.Where("symbol = ? AND status = ?", candidate.Symbol, StatusActive).
			First(&existing).Error
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		if errors.Is(err, gorm.ErrRecordNotFound) {
			candidate.FirstDetectedAt = now
			candidate.LastUpdatedAt = now
			candidate.Status = StatusActive
			if err := tx.Create(candidate).Error; err != nil {
				return err
			}
			id = candidate.ID
			return nil
		}

		candidate.ID = existing.ID
		candidate.FirstDetectedAt = existing.FirstDetectedAt
		candidate.LastUpdatedAt = now
		candidate.Status = StatusActive
		// Prices maintained by the price updater survive the rewrite
		candidate.ActualPrice = existing.ActualPrice
		candidate.PriceUpdatedAt = existing.PriceUpdatedAt
		if err := tx.Save(candidate).Error; err != nil {
			return err
		}
		id = existing.ID
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("UpsertCandidate: %w", err)
	}
	return id, nil
}

// WriteSnapshot appends the analysis detail blob for a candidate write
func (s *Store) WriteSnapshot(candidateID int64, detail json.RawMessage, now time.Time) error {
	snapshot := AnalysisSnapshot{
		CandidateID: candidateID,
		CreatedAt:   now,
		Detail:      string(detail),
	}
	if err := s.db.Create(&snapshot).Error; err != nil {
		return fmt.Errorf("WriteSnapshot: %w", err)
	}
	return nil
}

// ReplaceCandidateSignals rewrites the candidate's evidence link set under
// one transaction so readers never observe an empty set for an ACTIVE row
func (s *Store) ReplaceCandidateSignals(candidateID int64, links []SignalLink) error {
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("candidate_id = ?", candidateID).
			Delete(&CandidateSignal{}).Error; err != nil {
			return err
		}
		if len(links) == 0 {
			return nil
		}
		rows := make([]CandidateSignal, 0, len(links))
		for _, link := range links {
			rows = append(rows, CandidateSignal{
				CandidateID:    candidateID,
				SignalID:       link.SignalID,
				RelevanceScore: link.Relevance,
			})
		}
		return tx.Create(&rows).Error
	})
	if err != nil {
		return fmt.Errorf("ReplaceCandidateSignals: %w", err)
	}
	return nil
}

// ExpireStaleCandidates retires ACTIVE candidates first detected more than
// seven days ago and returns how many rows changed
func (s *Store) ExpireStaleCandidates(now time.Time) (int64, error) {
	result := s.db.Model(&PumpCandidate{}).
		Where("status = ? AND first_detected_at < ?", StatusActive, now.Add(-CandidateTTL)).
		Updates(map[string]interface{}{
			"status":          StatusExpired,
			"last_updated_at": now,
		})
	if result.Error != nil {
		return 0, fmt.Errorf("ExpireStaleCandidates: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ListActiveCandidates returns ACTIVE candidates matching the filter,
// strongest score first
func (s *Store) ListActiveCandidates(filter CandidateFilter) ([]PumpCandidate, error) {
	var candidates []PumpCandidate
	query := s.db.Where("status = ?", StatusActive).Order("score DESC")
	if filter.Confidence != "" {
		query = query.Where("confidence = ?", filter.Confidence)
	}
	if err := query.Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("ListActiveCandidates: %w", err)
	}
	return candidates, nil
}

// UpdateCandidatePrice stores the latest exchange ticker data for a candidate
func (s *Store) UpdateCandidatePrice(id int64, price, change24h float64, now time.Time) error {
	err := s.db.Model(&PumpCandidate{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"actual_price":     price,
			"price_change_24h": change24h,
			"price_updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("UpdateCandidatePrice: %w", err)
	}
	return nil
}

// ============================================================================
// Known pumps and backtesting
// ============================================================================

// ListKnownPumps loads the labeled pump corpus, oldest first
func (s *Store) ListKnownPumps() ([]KnownPumpEvent, error) {
	var pumps []KnownPumpEvent
	if err := s.db.Order("pump_start ASC").Find(&pumps).Error; err != nil {
		return nil, fmt.Errorf("ListKnownPumps: %w", err)
	}
	return pumps, nil
}

// LastKnownPumpBefore returns the most recent labeled pump for the symbol
// strictly before t, or nil when the corpus has none
func (s *Store) LastKnownPumpBefore(symbol string, t time.Time) (*KnownPumpEvent, error) {
	var pump KnownPumpEvent
	err := s.db.Where("symbol = ? AND pump_start < ?", symbol, t).
		Order("pump_start DESC").
		First(&pump).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("LastKnownPumpBefore: %w", err)
	}
	return &pump, nil
}

// ClearBacktestResults removes all prior backtest rows
func (s *Store) ClearBacktestResults() error {
	if err := s.db.Exec("DELETE FROM pump.backtest_results").Error; err != nil {
		return fmt.Errorf("ClearBacktestResults: %w", err)
	}
	return nil
}

// WriteBacktestResult persists one time-travel probe; re-running an offset
// overwrites the previous row
func (s *Store) WriteBacktestResult(row *BacktestResult) error {
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{
			{Name: "known_pump_id"},
			{Name: "hours_before_pump"},
		},
		UpdateAll: true,
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("WriteBacktestResult: %w", err)
	}
	return nil
}

// ============================================================================
// External read-only tables
// ============================================================================

// FindPair resolves an active pair on the target exchange by symbol and
// contract type; nil when the exchange does not list that side
func (s *Store) FindPair(symbol string, contractTypeID int) (*TradingPair, error) {
	var pair TradingPair
	err := s.db.Where(
		"symbol = ? AND contract_type_id = ? AND exchange_id = ? AND is_active = true",
		symbol, contractTypeID, ExchangeBinance).
		First(&pair).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("FindPair: %w", err)
	}
	return &pair, nil
}

// LatestClosedCandles returns the n most recent closed candles for a pair
// and interval, newest first
func (s *Store) LatestClosedCandles(tradingPairID int64, intervalID, n int) ([]Candle, error) {
	var candles []Candle
	err := s.db.Where(
		"trading_pair_id = ? AND interval_id = ? AND is_closed = true",
		tradingPairID, intervalID).
		Order("open_time DESC").
		Limit(n).
		Find(&candles).Error
	if err != nil {
		return nil, fmt.Errorf("LatestClosedCandles: %w", err)
	}
	return candles, nil
}
