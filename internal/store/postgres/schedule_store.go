// Package postgres provides a Postgres-backed schedule store.
//
// Expected schema:
//
//	CREATE TABLE schedule_records (
//	    id UUID PRIMARY KEY,
//	    url TEXT NOT NULL,
//	    priority TEXT NOT NULL,
//	    frequency TEXT NOT NULL,
//	    custom_interval_minutes INT NOT NULL DEFAULT 0,
//	    next_run_at TIMESTAMPTZ NOT NULL,
//	    last_run_at TIMESTAMPTZ,
//	    status TEXT NOT NULL,
//	    owner_id TEXT NOT NULL DEFAULT '',
//	    error_text TEXT NOT NULL DEFAULT '',
//	    created_at TIMESTAMPTZ NOT NULL
//	);
//	CREATE INDEX schedule_records_due_idx ON schedule_records (status, next_run_at);
package postgres

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rankrocket/rankrocket-crawler/internal/seo"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

const recordColumns = "id, url, priority, frequency, custom_interval_minutes, next_run_at, last_run_at, status, owner_id, error_text, created_at"

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Table           string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// ScheduleStore persists schedule records in Postgres. Single-statement
// updates give the read-modify-write atomicity the scheduler needs.
type ScheduleStore struct {
	pool  pgxPool
	table string
}

// NewScheduleStore creates a Postgres-backed ScheduleStore from config.
func NewScheduleStore(ctx context.Context, cfg Config) (*ScheduleStore, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("database.dsn is required")
	}
	table := cfg.Table
	if table == "" {
		table = "schedule_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &ScheduleStore{pool: pool, table: table}, nil
}

// NewScheduleStoreWithPool constructs a store from an existing pool
// (primarily for testing).
func NewScheduleStoreWithPool(pool pgxPool, table string) (*ScheduleStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if table == "" {
		table = "schedule_records"
	}
	if !validTableName.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	return &ScheduleStore{pool: pool, table: table}, nil
}

// Close releases the underlying pool resources.
func (s *ScheduleStore) Close() {
	s.pool.Close()
}

// Create inserts a new schedule record.
func (s *ScheduleStore) Create(ctx context.Context, rec seo.ScheduleRecord) error {
	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)",
		s.table, recordColumns,
	)
	_, err := s.pool.Exec(ctx, query,
		rec.ID,
		rec.URL,
		string(rec.Priority),
		string(rec.Frequency),
		rec.CustomIntervalMinutes,
		rec.NextRunAt,
		rec.LastRunAt,
		string(rec.Status),
		rec.OwnerID,
		rec.ErrorText,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert schedule record: %w", err)
	}
	return nil
}

// Get fetches one record by ID.
func (s *ScheduleStore) Get(ctx context.Context, id string) (seo.ScheduleRecord, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", recordColumns, s.table)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return seo.ScheduleRecord{}, seo.ErrNotFound
	}
	if err != nil {
		return seo.ScheduleRecord{}, fmt.Errorf("get schedule record: %w", err)
	}
	return rec, nil
}

// List returns records matching status (all when empty), by NextRunAt.
func (s *ScheduleStore) List(ctx context.Context, status seo.ScheduleStatus) ([]seo.ScheduleRecord, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		query := fmt.Sprintf("SELECT %s FROM %s ORDER BY next_run_at", recordColumns, s.table)
		rows, err = s.pool.Query(ctx, query)
	} else {
		query := fmt.Sprintf("SELECT %s FROM %s WHERE status = $1 ORDER BY next_run_at", recordColumns, s.table)
		rows, err = s.pool.Query(ctx, query, string(status))
	}
	if err != nil {
		return nil, fmt.Errorf("list schedule records: %w", err)
	}
	return collectRecords(rows)
}

// ClaimDue flips due scheduled records to queued in one statement and
// returns them; a record can never be claimed by two ticks.
func (s *ScheduleStore) ClaimDue(ctx context.Context, now time.Time) ([]seo.ScheduleRecord, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET status = $1 WHERE status = $2 AND next_run_at <= $3 RETURNING %s",
		s.table, recordColumns,
	)
	rows, err := s.pool.Query(ctx, query,
		string(seo.ScheduleStatusQueued),
		string(seo.ScheduleStatusScheduled),
		now,
	)
	if err != nil {
		return nil, fmt.Errorf("claim due records: %w", err)
	}
	return collectRecords(rows)
}

// MarkQueued moves a scheduled record to queued.
func (s *ScheduleStore) MarkQueued(ctx context.Context, id string) error {
	query := fmt.Sprintf("UPDATE %s SET status = $2 WHERE id = $1 AND status = $3", s.table)
	tag, err := s.pool.Exec(ctx, query, id,
		string(seo.ScheduleStatusQueued),
		string(seo.ScheduleStatusScheduled),
	)
	if err != nil {
		return fmt.Errorf("mark queued: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either unknown or already moved on; Get disambiguates.
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// MarkProcessing transitions queued -> processing, returning the record as
// it now stands. Non-queued records come back unchanged for the caller to
// skip.
func (s *ScheduleStore) MarkProcessing(ctx context.Context, id string, _ time.Time) (seo.ScheduleRecord, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET status = $2 WHERE id = $1 AND status = $3 RETURNING %s",
		s.table, recordColumns,
	)
	rec, err := scanRecord(s.pool.QueryRow(ctx, query, id,
		string(seo.ScheduleStatusProcessing),
		string(seo.ScheduleStatusQueued),
	))
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return seo.ScheduleRecord{}, fmt.Errorf("mark processing: %w", err)
	}
	return s.Get(ctx, id)
}

// CompleteCycle finalizes one run in a single statement: recurring records
// return to scheduled with the planner's NextRunAt, one-shot records land on
// their terminal status.
func (s *ScheduleStore) CompleteCycle(
	ctx context.Context,
	id string,
	final seo.ScheduleStatus,
	errText string,
	lastRunAt time.Time,
	nextRunAt *time.Time,
) error {
	var (
		query string
		tag   pgconn.CommandTag
		err   error
	)
	if nextRunAt != nil {
		query = fmt.Sprintf(
			"UPDATE %s SET status = $2, last_run_at = $3, next_run_at = $4, error_text = $5 WHERE id = $1",
			s.table,
		)
		tag, err = s.pool.Exec(ctx, query, id,
			string(seo.ScheduleStatusScheduled), lastRunAt, *nextRunAt, errText)
	} else {
		query = fmt.Sprintf(
			"UPDATE %s SET status = $2, last_run_at = $3, error_text = $4 WHERE id = $1",
			s.table,
		)
		tag, err = s.pool.Exec(ctx, query, id, string(final), lastRunAt, errText)
	}
	if err != nil {
		return fmt.Errorf("complete cycle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return seo.ErrNotFound
	}
	return nil
}

// Cancel marks a record cancelled unless it is processing or terminal.
func (s *ScheduleStore) Cancel(ctx context.Context, id string) error {
	query := fmt.Sprintf(
		"UPDATE %s SET status = $2 WHERE id = $1 AND status IN ($3, $4)",
		s.table,
	)
	tag, err := s.pool.Exec(ctx, query, id,
		string(seo.ScheduleStatusCancelled),
		string(seo.ScheduleStatusScheduled),
		string(seo.ScheduleStatusQueued),
	)
	if err != nil {
		return fmt.Errorf("cancel schedule record: %w", err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := s.Get(ctx, id); err != nil {
			return err
		}
		return seo.ErrNotCancellable
	}
	return nil
}

// CountByStatus tallies records per status.
func (s *ScheduleStore) CountByStatus(ctx context.Context) (map[seo.ScheduleStatus]int, error) {
	query := fmt.Sprintf("SELECT status, COUNT(*) FROM %s GROUP BY status", s.table)
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()

	counts := make(map[seo.ScheduleStatus]int)
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		counts[seo.ScheduleStatus(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}
	return counts, nil
}

func scanRecord(row pgx.Row) (seo.ScheduleRecord, error) {
	var (
		rec      seo.ScheduleRecord
		priority string
		freq     string
		status   string
	)
	err := row.Scan(
		&rec.ID,
		&rec.URL,
		&priority,
		&freq,
		&rec.CustomIntervalMinutes,
		&rec.NextRunAt,
		&rec.LastRunAt,
		&status,
		&rec.OwnerID,
		&rec.ErrorText,
		&rec.CreatedAt,
	)
	if err != nil {
		return seo.ScheduleRecord{}, err
	}
	rec.Priority = seo.Priority(priority)
	rec.Frequency = seo.Frequency(freq)
	rec.Status = seo.ScheduleStatus(status)
	return rec, nil
}

func collectRecords(rows pgx.Rows) ([]seo.ScheduleRecord, error) {
	defer rows.Close()
	var out []seo.ScheduleRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan schedule record: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate schedule records: %w", err)
	}
	return out, nil
}
