package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	createSchemaSQL = `CREATE TABLE IF NOT EXISTS run_logs (
        id               BIGSERIAL PRIMARY KEY,
        ts               TIMESTAMPTZ NOT NULL,
        signature        TEXT NOT NULL,
        accounts_closed  INT NOT NULL,
        amount_reclaimed NUMERIC NOT NULL,
        wallet           TEXT NOT NULL,
        chain            TEXT NOT NULL,
        status           TEXT NOT NULL,
        error            TEXT
    );
    CREATE TABLE IF NOT EXISTS run_totals (
        id                 INT PRIMARY KEY DEFAULT 1,
        last_run           TIMESTAMPTZ,
        lifetime_reclaimed NUMERIC NOT NULL DEFAULT 0,
        lifetime_closed    BIGINT NOT NULL DEFAULT 0
    );
    INSERT INTO run_totals (id) VALUES (1) ON CONFLICT (id) DO NOTHING;`

	insertRunSQL = `INSERT INTO run_logs (
        ts, signature, accounts_closed, amount_reclaimed, wallet, chain, status, error
    ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8);`

	updateTotalsSQL = `UPDATE run_totals
    SET last_run = $1,
        lifetime_reclaimed = lifetime_reclaimed + $2,
        lifetime_closed    = lifetime_closed + $3
    WHERE id = 1;`

	touchLastRunSQL = `UPDATE run_totals SET last_run = $1 WHERE id = 1;`

	pruneRunsSQL = `DELETE FROM run_logs
    WHERE id NOT IN (SELECT id FROM run_logs ORDER BY ts DESC, id DESC LIMIT $1);`

	selectTotalsSQL = `SELECT last_run, lifetime_reclaimed, lifetime_closed FROM run_totals WHERE id = 1;`

	selectRecentRunsSQL = `SELECT ts, signature, accounts_closed, amount_reclaimed, wallet, chain, status, COALESCE(error, '')
    FROM run_logs ORDER BY ts DESC, id DESC LIMIT $1;`
)

// PoolConfig encapsulates PostgreSQL connectivity for the ledger.
type PoolConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// NewPool configures a PostgreSQL connection pool from runtime settings.
func NewPool(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("ledger dsn is required")
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse ledger dsn: %w", err)
	}

	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = int32(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}
	return pool, nil
}

// PostgresLedger persists run history in PostgreSQL. Lifetime totals live
// in their own single-row table so pruning old entries never touches them.
type PostgresLedger struct {
	pool   *pgxpool.Pool
	logger zerolog.Logger
}

// NewPostgresLedger 构造数据库账本。
func NewPostgresLedger(pool *pgxpool.Pool, logger zerolog.Logger) *PostgresLedger {
	return &PostgresLedger{
		pool:   pool,
		logger: logger.With().Str("component", "pg_ledger").Logger(),
	}
}

// EnsureSchema creates the ledger tables when missing.
func (l *PostgresLedger) EnsureSchema(ctx context.Context) error {
	if l.pool == nil {
		return errors.New("ledger pool not configured")
	}
	_, err := l.pool.Exec(ctx, createSchemaSQL)
	return err
}

// Close releases the underlying pool resources.
func (l *PostgresLedger) Close() {
	if l == nil || l.pool == nil {
		return
	}
	l.pool.Close()
}

// Load reads recent entries and lifetime totals. Query failures degrade to
// a fresh history.
func (l *PostgresLedger) Load(ctx context.Context) (History, error) {
	h := NewHistory()
	if l.pool == nil {
		return h, nil
	}

	var lastRun *time.Time
	var reclaimed string
	var closed int64
	err := l.pool.QueryRow(ctx, selectTotalsSQL).Scan(&lastRun, &reclaimed, &closed)
	switch {
	case err == nil:
		h.LastRun = lastRun
		h.LifetimeClosed = closed
		if d, perr := decimal.NewFromString(reclaimed); perr == nil {
			h.LifetimeReclaimed = d
		}
	case errors.Is(err, pgx.ErrNoRows):
		// Fresh database.
	default:
		l.logger.Warn().Err(err).Msg("could not load run totals, starting fresh")
		return NewHistory(), nil
	}

	rows, err := l.pool.Query(ctx, selectRecentRunsSQL, MaxEntries)
	if err != nil {
		l.logger.Warn().Err(err).Msg("could not load run entries")
		return h, nil
	}
	defer rows.Close()

	for rows.Next() {
		var e Entry
		var amount string
		if err := rows.Scan(&e.Timestamp, &e.SignatureOrHash, &e.AccountsClosed, &amount, &e.WalletAddress, &e.Chain, &e.Status, &e.Error); err != nil {
			l.logger.Warn().Err(err).Msg("skip unreadable run entry")
			continue
		}
		if d, perr := decimal.NewFromString(amount); perr == nil {
			e.AmountReclaimed = d
		}
		h.Entries = append(h.Entries, e)
	}
	return h, nil
}

// Append records one run, rolls the totals, and prunes beyond the cap.
func (l *PostgresLedger) Append(ctx context.Context, entry Entry) (History, error) {
	if l.pool == nil {
		return NewHistory(), errors.New("ledger pool not configured")
	}

	tx, err := l.pool.Begin(ctx)
	if err != nil {
		return History{}, fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback(ctx)

	var errMsg interface{}
	if entry.Error != "" {
		errMsg = entry.Error
	}

	if _, err := tx.Exec(ctx, insertRunSQL,
		entry.Timestamp,
		entry.SignatureOrHash,
		entry.AccountsClosed,
		entry.AmountReclaimed.String(),
		entry.WalletAddress,
		entry.Chain,
		string(entry.Status),
		errMsg,
	); err != nil {
		return History{}, fmt.Errorf("insert run entry: %w", err)
	}

	if entry.Status == StatusSuccess || entry.Status == StatusPartial {
		if _, err := tx.Exec(ctx, updateTotalsSQL, entry.Timestamp, entry.AmountReclaimed.String(), entry.AccountsClosed); err != nil {
			return History{}, fmt.Errorf("update run totals: %w", err)
		}
	} else {
		if _, err := tx.Exec(ctx, touchLastRunSQL, entry.Timestamp); err != nil {
			return History{}, fmt.Errorf("update last run: %w", err)
		}
	}

	if _, err := tx.Exec(ctx, pruneRunsSQL, MaxEntries); err != nil {
		return History{}, fmt.Errorf("prune run entries: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return History{}, fmt.Errorf("commit ledger tx: %w", err)
	}

	return l.Load(ctx)
}

var _ Ledger = (*PostgresLedger)(nil)
