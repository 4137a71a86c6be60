// Package detector scans 4-hour candles for anomalous volume spikes and
// turns them into strength-tagged raw signals.
package detector

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"time"

	"pump-detector/database"
)

// Config holds detector parameters
type Config struct {
	MinSpikeRatio  float64
	LookbackHours  int // live mode candle lookback
	BatchHours     int // historical backfill slice size
	HistoryDays    int // historical backfill depth
	MarketCapFloor float64
}

// Detector computes baseline means and spike ratios per candle and emits
// raw signals. The window-function query does not map onto the ORM and runs
// on a raw connection; signal persistence goes through the store.
type Detector struct {
	db    *database.DB
	store *database.Store
	cfg   Config
}

// New creates a spike detector
func New(db *database.DB, store *database.Store, cfg Config) *Detector {
	return &Detector{db: db, store: store, cfg: cfg}
}

// spikeRow is one candidate spike returned by the detection query
type spikeRow struct {
	tradingPairID int64
	symbol        string
	candleTime    time.Time
	closePrice    float64
	volume        float64
	baseline7d    sql.NullFloat64
	baseline14d   sql.NullFloat64
	baseline30d   sql.NullFloat64
	spikeRatio7d  float64
	spikeRatio14d float64
	spikeRatio30d float64
}

// Baselines need the full prior window per horizon; a partial window yields
// NULL so the spike ratio collapses to zero and the row is filtered out.
// The universe filter (active Binance pair, no meme coins, market cap floor)
// is part of the fetch predicate.
const detectQuery = `
WITH recent_candles AS (
    SELECT
        c.trading_pair_id,
        tp.symbol,
        to_timestamp(c.open_time / 1000.0) AS candle_time,
        c.close AS close_price,
        c.quote_volume AS volume,
        CASE WHEN COUNT(*) OVER w7 >= 42
             THEN AVG(c.quote_volume) OVER w7 END AS baseline_7d,
        CASE WHEN COUNT(*) OVER w14 >= 84
             THEN AVG(c.quote_volume) OVER w14 END AS baseline_14d,
        CASE WHEN COUNT(*) OVER w30 >= 180
             THEN AVG(c.quote_volume) OVER w30 END AS baseline_30d
    FROM public.candles c
    INNER JOIN public.trading_pairs tp ON c.trading_pair_id = tp.id
    WHERE tp.exchange_id = $1
      AND tp.is_active = true
      AND tp.contract_type_id = $2
      AND c.interval_id = $3
      AND to_timestamp(c.open_time / 1000.0) >= $4
      AND to_timestamp(c.open_time / 1000.0) < $5
      AND NOT public.is_meme_coin(tp.id)
      AND EXISTS (
          SELECT 1 FROM public.tokens t
          JOIN public.cmc_crypto cmc ON t.cmc_token_id = cmc.cmc_token_id
          WHERE t.id = tp.token_id AND cmc.market_cap >= $6
      )
    WINDOW
        w7  AS (PARTITION BY c.trading_pair_id ORDER BY c.open_time
                ROWS BETWEEN 42 PRECEDING AND 1 PRECEDING),
        w14 AS (PARTITION BY c.trading_pair_id ORDER BY c.open_time
                ROWS BETWEEN 84 PRECEDING AND 1 PRECEDING),
        w30 AS (PARTITION BY c.trading_pair_id ORDER BY c.open_time
                ROWS BETWEEN 180 PRECEDING AND 1 PRECEDING)
),
spike_data AS (
    SELECT
        trading_pair_id,
        symbol,
        candle_time,
        close_price,
        volume,
        baseline_7d,
        baseline_14d,
        baseline_30d,
        CASE WHEN baseline_7d  > 0 THEN volume / baseline_7d  ELSE 0 END AS spike_ratio_7d,
        CASE WHEN baseline_14d > 0 THEN volume / baseline_14d ELSE 0 END AS spike_ratio_14d,
        CASE WHEN baseline_30d > 0 THEN volume / baseline_30d ELSE 0 END AS spike_ratio_30d
    FROM recent_candles
    WHERE baseline_7d IS NOT NULL
      AND candle_time >= $7
      AND candle_time < $5
)
SELECT *
FROM spike_data
WHERE spike_ratio_7d >= $8
ORDER BY spike_ratio_7d DESC`

// RunCycle scans the live lookback window on both market sides and returns
// the number of new signals
func (d *Detector) RunCycle(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	windowStart := now.Add(-time.Duration(d.cfg.LookbackHours) * time.Hour)
	return d.runWindow(ctx, windowStart, now)
}

// RunHistorical backfills signals over the configured history depth in
// bounded time slices so a single query never loads a month of candles
func (d *Detector) RunHistorical(ctx context.Context) (int, error) {
	now := time.Now().UTC()
	start := now.Add(-time.Duration(d.cfg.HistoryDays) * 24 * time.Hour)
	batch := time.Duration(d.cfg.BatchHours) * time.Hour

	total := 0
	for batchStart := start; batchStart.Before(now); batchStart = batchStart.Add(batch) {
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
		batchEnd := batchStart.Add(batch)
		if batchEnd.After(now) {
			batchEnd = now
		}

		log.Printf("📊 Backfill batch %s — %s",
			batchStart.Format("2006-01-02 15:04"), batchEnd.Format("2006-01-02 15:04"))

		inserted, err := d.runWindow(ctx, batchStart, batchEnd)
		if err != nil {
			return total, err
		}
		total += inserted
	}

	log.Printf("✅ Backfill complete: %d new signals", total)
	return total, nil
}

func (d *Detector) runWindow(ctx context.Context, windowStart, windowEnd time.Time) (int, error) {
	total := 0
	sides := []struct {
		marketSide     string
		contractTypeID int
	}{
		{database.MarketSideFutures, database.ContractTypeFutures},
		{database.MarketSideSpot, database.ContractTypeSpot},
	}
	for _, side := range sides {
		inserted, err := d.detectSide(ctx, side.marketSide, side.contractTypeID, windowStart, windowEnd)
		if err != nil {
			return total, err
		}
		total += inserted
	}
	return total, nil
}

// detectSide finds spikes for one market side and persists them. Re-running
// over an overlapping window is safe: rows collide on the uniqueness key and
// are skipped by the database.
func (d *Detector) detectSide(ctx context.Context, marketSide string, contractTypeID int, windowStart, windowEnd time.Time) (int, error) {
	// Baseline priors reach back 30 days before the window
	loadStart := windowStart.Add(-30 * 24 * time.Hour)

	rows, err := d.db.GetConn().QueryContext(ctx, detectQuery,
		database.ExchangeBinance,
		contractTypeID,
		database.Interval4h,
		loadStart,
		windowEnd,
		d.cfg.MarketCapFloor,
		windowStart,
		d.cfg.MinSpikeRatio,
	)
	if err != nil {
		return 0, fmt.Errorf("detectSide %s: query: %w", marketSide, err)
	}
	defer rows.Close()

	var spikes []spikeRow
	for rows.Next() {
		var r spikeRow
		if err := rows.Scan(
			&r.tradingPairID, &r.symbol, &r.candleTime, &r.closePrice, &r.volume,
			&r.baseline7d, &r.baseline14d, &r.baseline30d,
			&r.spikeRatio7d, &r.spikeRatio14d, &r.spikeRatio30d,
		); err != nil {
			return 0, fmt.Errorf("detectSide %s: scan: %w", marketSide, err)
		}
		spikes = append(spikes, r)
	}
	if err := rows.Err(); err != nil {
		return 0, fmt.Errorf("detectSide %s: rows: %w", marketSide, err)
	}

	if len(spikes) == 0 {
		return 0, nil
	}

	detectedAt := time.Now().UTC()
	inserted := 0
	for _, spike := range spikes {
		signal := signalFromSpike(spike, marketSide, detectedAt)

		err := d.store.InsertRawSignal(signal)
		if errors.Is(err, database.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return inserted, fmt.Errorf("detectSide %s: %w", marketSide, err)
		}

		inserted++
		if signal.SignalStrength == database.StrengthExtreme {
			log.Printf("🚨 EXTREME spike: %s %s %.2fx at %s",
				spike.symbol, marketSide, spike.spikeRatio7d,
				spike.candleTime.Format("2006-01-02 15:04"))
		}
	}

	log.Printf("📊 %s: %d spikes found, %d new signals", marketSide, len(spikes), inserted)
	return inserted, nil
}

// signalFromSpike maps a query row onto the persisted signal shape.
// A NULL baseline stays nil; the candle close becomes the signal price.
func signalFromSpike(spike spikeRow, marketSide string, detectedAt time.Time) *database.RawSignal {
	price := spike.closePrice
	return &database.RawSignal{
		TradingPairID:   spike.tradingPairID,
		Symbol:          spike.symbol,
		MarketSide:      marketSide,
		SignalTimestamp: spike.candleTime,
		DetectedAt:      detectedAt,
		Volume:          spike.volume,
		Baseline7d:      nullToPtr(spike.baseline7d),
		Baseline14d:     nullToPtr(spike.baseline14d),
		Baseline30d:     nullToPtr(spike.baseline30d),
		SpikeRatio7d:    spike.spikeRatio7d,
		SpikeRatio14d:   spike.spikeRatio14d,
		SpikeRatio30d:   spike.spikeRatio30d,
		SignalStrength:  ClassifyStrength(spike.spikeRatio7d, spike.spikeRatio14d),
		PriceAtSignal:   &price,
		DetectorVersion: database.DetectorVersion,
	}
}

func nullToPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	value := v.Float64
	return &value
}
