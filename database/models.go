// Package database provides storage access for the pump-precursor detection
// pipeline.
//
// This package includes:
//   - GORM-backed connection management for the pump schema tables
//   - A raw database/sql connection used by the window-function heavy
//     detector queries
//   - The Store type exposing every typed operation the schedulers need
//
// Key Concepts:
//   - The pipeline owns the pump schema (raw_signals, pump_candidates,
//     analysis_snapshots, candidate_signals, known_pump_events,
//     backtest_results, detector_config)
//   - candles, trading_pairs, tokens and cmc_crypto live in public and are
//     written by the candle ingester; the pipeline only reads them
//   - Schedulers coordinate exclusively through database state
//
// Data Models:
//
//	All data models (RawSignal, PumpCandidate, KnownPumpEvent, etc.) are
//	defined in the models_pkg package to avoid circular import dependencies.
package database

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	models "pump-detector/database/models_pkg"
)

// Database holds the GORM database connection and provides access to the underlying DB instance.
// It serves as the central connection point for all typed storage operations.
type Database struct {
	db *gorm.DB
}

// DB returns the underlying GORM database instance for direct access when needed.
func (d *Database) DB() *gorm.DB {
	return d.db
}

// Connect establishes database connection using GORM.
// An empty password selects peer authentication: the DSN then carries only
// the database name and the local socket is used.
func Connect(host string, port int, dbname, user, password string) (*Database, error) {
	var dsn string
	if password == "" {
		dsn = fmt.Sprintf("dbname=%s sslmode=disable", dbname)
	} else {
		dsn = fmt.Sprintf("host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
			host, port, dbname, user, password)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Silent logging for production
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Database{db: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ============================================================================
// Type Aliases
// ============================================================================

// These type aliases let callers work with the database package directly
// without importing models_pkg.

type RawSignal = models.RawSignal
type PumpCandidate = models.PumpCandidate
type AnalysisSnapshot = models.AnalysisSnapshot
type CandidateSignal = models.CandidateSignal
type KnownPumpEvent = models.KnownPumpEvent
type BacktestResult = models.BacktestResult
type DetectorConfigEntry = models.DetectorConfigEntry
type Candle = models.Candle
type TradingPair = models.TradingPair
