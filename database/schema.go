package database

import (
	"fmt"
	"log"
)

// InitSchema creates the pump schema, migrates the owned tables and applies
// the constraints AutoMigrate cannot express (partial unique indexes).
// External tables (candles, trading_pairs, tokens, cmc_crypto) are never
// touched here.
func (s *Store) InitSchema() error {
	if err := s.db.Exec("CREATE SCHEMA IF NOT EXISTS pump").Error; err != nil {
		return fmt.Errorf("InitSchema: create schema: %w", err)
	}

	if err := s.db.AutoMigrate(
		&RawSignal{},
		&PumpCandidate{},
		&AnalysisSnapshot{},
		&CandidateSignal{},
		&KnownPumpEvent{},
		&BacktestResult{},
		&DetectorConfigEntry{},
	); err != nil {
		return fmt.Errorf("InitSchema: migrate: %w", err)
	}

	// One ACTIVE candidate per symbol. Partial indexes are outside
	// AutoMigrate's vocabulary, so this stays raw SQL.
	indexes := []string{
		`CREATE UNIQUE INDEX IF NOT EXISTS uq_active_candidate
		   ON pump.pump_candidates (symbol) WHERE status = 'ACTIVE'`,
		`CREATE INDEX IF NOT EXISTS idx_raw_signals_symbol_time
		   ON pump.raw_signals (symbol, signal_timestamp DESC)`,
	}
	for _, stmt := range indexes {
		if err := s.db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("InitSchema: index: %w", err)
		}
	}

	log.Println("✅ Pump schema initialized")
	return nil
}
