package recorder

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"PairSentinel/internal/model"

	log "github.com/sirupsen/logrus"
)

// Dialect names a supported SQL backend.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

// SQLStore implements Store on database/sql for SQLite and Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	mu      sync.Mutex
}

func newSQLStore(db *sql.DB, dialect Dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, dialect: dialect}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLStore) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS pair_metrics (
			pair               TEXT PRIMARY KEY,
			sector             TEXT,
			correlation        DOUBLE PRECISION NOT NULL,
			psd                DOUBLE PRECISION NOT NULL,
			lsd                DOUBLE PRECISION,
			ppr                DOUBLE PRECISION NOT NULL,
			lpr                DOUBLE PRECISION NOT NULL,
			lfd                DOUBLE PRECISION NOT NULL,
			lfsd               DOUBLE PRECISION NOT NULL,
			two_sd             DOUBLE PRECISION NOT NULL,
			two_point_seven_sd DOUBLE PRECISION NOT NULL,
			three_sd           DOUBLE PRECISION NOT NULL,
			mtm                DOUBLE PRECISION NOT NULL,
			last_updated       BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_pair_metrics_corr ON pair_metrics(correlation)`,

		`CREATE TABLE IF NOT EXISTS price_series (
			symbol       TEXT PRIMARY KEY,
			data         TEXT NOT NULL,
			last_updated BIGINT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS instruments (
			symbol TEXT PRIMARY KEY,
			sector TEXT NOT NULL,
			quotes TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_instruments_sector ON instruments(sector)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %q: %w", stmt[:40], err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders to $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) UpsertMetrics(ctx context.Context, m *model.PairMetrics) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var lsd sql.NullFloat64
	if !math.IsNaN(m.LSD) && !math.IsInf(m.LSD, 0) {
		lsd = sql.NullFloat64{Float64: m.LSD, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, s.rebind(`INSERT INTO pair_metrics
		(pair, sector, correlation, psd, lsd, ppr, lpr, lfd, lfsd,
		 two_sd, two_point_seven_sd, three_sd, mtm, last_updated)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT (pair) DO UPDATE SET
			sector = excluded.sector,
			correlation = excluded.correlation,
			psd = excluded.psd,
			lsd = excluded.lsd,
			ppr = excluded.ppr,
			lpr = excluded.lpr,
			lfd = excluded.lfd,
			lfsd = excluded.lfsd,
			two_sd = excluded.two_sd,
			two_point_seven_sd = excluded.two_point_seven_sd,
			three_sd = excluded.three_sd,
			mtm = excluded.mtm,
			last_updated = excluded.last_updated`),
		m.Pair, m.Sector, m.Correlation, m.PSD, lsd, m.PPR, m.LPR, m.LFD, m.LFSD,
		m.TwoSD, m.TwoPointSevenSD, m.ThreeSD, m.MTM, m.LastUpdated.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert metrics %s: %w", m.Pair, err)
	}
	return nil
}

func (s *SQLStore) FindMetrics(ctx context.Context, filter MetricsFilter) ([]model.PairMetrics, error) {
	var (
		where []string
		args  []any
	)
	if filter.MinCorrelation != nil {
		where = append(where, "correlation >= ?")
		args = append(args, *filter.MinCorrelation)
	}
	if filter.MaxCorrelation != nil {
		where = append(where, "correlation <= ?")
		args = append(args, *filter.MaxCorrelation)
	}
	if filter.Sector != "" {
		where = append(where, "sector = ?")
		args = append(args, filter.Sector)
	}
	query := `SELECT pair, sector, correlation, psd, lsd, ppr, lpr, lfd, lfsd,
		two_sd, two_point_seven_sd, three_sd, mtm, last_updated FROM pair_metrics`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY pair"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query metrics: %w", err)
	}
	defer rows.Close()

	out := make([]model.PairMetrics, 0)
	for rows.Next() {
		var (
			m       model.PairMetrics
			sector  sql.NullString
			lsd     sql.NullFloat64
			updated int64
		)
		if err := rows.Scan(&m.Pair, &sector, &m.Correlation, &m.PSD, &lsd, &m.PPR, &m.LPR,
			&m.LFD, &m.LFSD, &m.TwoSD, &m.TwoPointSevenSD, &m.ThreeSD, &m.MTM, &updated); err != nil {
			return nil, fmt.Errorf("scan metrics: %w", err)
		}
		m.Sector = sector.String
		m.LSD = math.NaN()
		if lsd.Valid {
			m.LSD = lsd.Float64
		}
		m.LastUpdated = time.UnixMilli(updated)
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *SQLStore) FindSeries(ctx context.Context, symbol string) (*model.CacheEntry, error) {
	var (
		data    string
		updated int64
	)
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT data, last_updated FROM price_series WHERE symbol = ?`), symbol).
		Scan(&data, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query series %s: %w", symbol, err)
	}
	entry := &model.CacheEntry{Symbol: symbol, LastUpdated: time.UnixMilli(updated)}
	if err := json.Unmarshal([]byte(data), &entry.Series); err != nil {
		return nil, fmt.Errorf("decode series %s: %w", symbol, err)
	}
	return entry, nil
}

func (s *SQLStore) UpsertSeries(ctx context.Context, symbol string, series model.PriceSeries, updatedAt time.Time) error {
	data, err := json.Marshal(series)
	if err != nil {
		return fmt.Errorf("encode series %s: %w", symbol, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO price_series (symbol, data, last_updated)
		VALUES (?,?,?)
		ON CONFLICT (symbol) DO UPDATE SET data = excluded.data, last_updated = excluded.last_updated`),
		symbol, string(data), updatedAt.UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("upsert series %s: %w", symbol, err)
	}
	return nil
}

func (s *SQLStore) ReplaceInstruments(ctx context.Context, instruments []model.Instrument) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM instruments`); err != nil {
		return fmt.Errorf("clear instruments: %w", err)
	}
	stmt, err := tx.PrepareContext(ctx, s.rebind(`INSERT INTO instruments (symbol, sector, quotes) VALUES (?,?,?)`))
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, inst := range instruments {
		quotes, err := json.Marshal(inst.Quotes)
		if err != nil {
			return fmt.Errorf("encode quotes %s: %w", inst.Symbol, err)
		}
		if _, err := stmt.ExecContext(ctx, inst.Symbol, inst.Sector, string(quotes)); err != nil {
			return fmt.Errorf("insert instrument %s: %w", inst.Symbol, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit instruments: %w", err)
	}
	log.Infof("[recorder] replaced instrument universe with %d instruments", len(instruments))
	return nil
}

func (s *SQLStore) FindInstrument(ctx context.Context, symbol string) (*model.Instrument, error) {
	var inst model.Instrument
	var quotes string
	err := s.db.QueryRowContext(ctx, s.rebind(`SELECT symbol, sector, quotes FROM instruments WHERE symbol = ?`), symbol).
		Scan(&inst.Symbol, &inst.Sector, &quotes)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query instrument %s: %w", symbol, err)
	}
	if err := json.Unmarshal([]byte(quotes), &inst.Quotes); err != nil {
		return nil, fmt.Errorf("decode quotes %s: %w", symbol, err)
	}
	return &inst, nil
}

func (s *SQLStore) ListInstruments(ctx context.Context, sector string) ([]model.Instrument, error) {
	query := `SELECT symbol, sector, quotes FROM instruments`
	var args []any
	if sector != "" {
		query += " WHERE sector = ?"
		args = append(args, sector)
	}
	query += " ORDER BY sector, symbol"

	rows, err := s.db.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		return nil, fmt.Errorf("query instruments: %w", err)
	}
	defer rows.Close()

	out := make([]model.Instrument, 0)
	for rows.Next() {
		var inst model.Instrument
		var quotes string
		if err := rows.Scan(&inst.Symbol, &inst.Sector, &quotes); err != nil {
			return nil, fmt.Errorf("scan instrument: %w", err)
		}
		if err := json.Unmarshal([]byte(quotes), &inst.Quotes); err != nil {
			return nil, fmt.Errorf("decode quotes %s: %w", inst.Symbol, err)
		}
		out = append(out, inst)
	}
	return out, rows.Err()
}

func (s *SQLStore) Close() error {
	log.Infof("[recorder] closing %s store", s.dialect)
	return s.db.Close()
}
