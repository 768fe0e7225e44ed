// Package store implements core.Store on PostgreSQL and in memory.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/tabingest/internal/core"
)

const (
	pgUniqueViolation  = "23505"
	identifierIndex    = "ingest_records_identifier_key"
	maxUpsertRaceRetry = 1
)

// PoolConfig holds connection pool settings.
type PoolConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// Connect opens and pings a pgx pool.
func Connect(ctx context.Context, cfg PoolConfig) (*pgxpool.Pool, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = int32(cfg.MaxConns)
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = int32(cfg.MinConns)
	}
	if cfg.MaxConnLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxConnLifetime
	}
	if cfg.MaxConnIdleTime > 0 {
		poolConfig.MaxConnIdleTime = cfg.MaxConnIdleTime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// PostgresStore persists records, staged rows and sessions in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) FindByNaturalKey(ctx context.Context, kind core.EntityKind, key string) (core.Fields, bool, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx,
		`SELECT data FROM ingest_records WHERE kind = $1 AND natural_key = $2`,
		string(kind), key,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select record: %w", err)
	}

	var fields core.Fields
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, false, fmt.Errorf("decode record: %w", err)
	}
	return fields, true, nil
}

// errInsertRace means another transaction inserted the same key first.
var errInsertRace = errors.New("concurrent insert")

// Upsert locks the existing row, merges incoming fields over it and writes
// the result in one transaction. The identifier is never replaced once set.
func (s *PostgresStore) Upsert(ctx context.Context, kind core.EntityKind, key string, fields core.Fields) (core.UpsertOutcome, error) {
	for attempt := 0; ; attempt++ {
		outcome, err := s.upsertOnce(ctx, kind, key, fields)
		if errors.Is(err, errInsertRace) && attempt < maxUpsertRaceRetry {
			continue
		}
		return outcome, err
	}
}

func (s *PostgresStore) upsertOnce(ctx context.Context, kind core.EntityKind, key string, fields core.Fields) (core.UpsertOutcome, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	var raw []byte
	existing := core.Fields{}
	found := true
	err = tx.QueryRow(ctx,
		`SELECT data FROM ingest_records WHERE kind = $1 AND natural_key = $2 FOR UPDATE`,
		string(kind), key,
	).Scan(&raw)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		found = false
	case err != nil:
		return 0, fmt.Errorf("lock record: %w", err)
	default:
		if err := json.Unmarshal(raw, &existing); err != nil {
			return 0, fmt.Errorf("decode record: %w", err)
		}
	}

	merged := core.MergeFields(existing, fields, core.IdentifierField)
	data, err := json.Marshal(merged)
	if err != nil {
		return 0, fmt.Errorf("encode record: %w", err)
	}

	var identifier *string
	if id := merged[core.IdentifierField]; id != "" && isAsset(kind) {
		identifier = &id
	}

	outcome := core.OutcomeUpdated
	if found {
		_, err = tx.Exec(ctx,
			`UPDATE ingest_records SET data = $3, identifier = $4, updated_at = now()
			 WHERE kind = $1 AND natural_key = $2`,
			string(kind), key, data, identifier,
		)
	} else {
		outcome = core.OutcomeInserted
		var tag pgconn.CommandTag
		tag, err = tx.Exec(ctx,
			`INSERT INTO ingest_records (kind, natural_key, identifier, data)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (kind, natural_key) DO NOTHING`,
			string(kind), key, identifier, data,
		)
		if err == nil && tag.RowsAffected() == 0 {
			return 0, errInsertRace
		}
	}
	if err != nil {
		if isIdentifierViolation(err) {
			return 0, fmt.Errorf("%w: %s", core.ErrIdentifierTaken, merged[core.IdentifierField])
		}
		return 0, fmt.Errorf("write record: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return outcome, nil
}

func isIdentifierViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == identifierIndex
}

func (s *PostgresStore) Stage(ctx context.Context, row core.StagedRow) error {
	partial, err := json.Marshal(row.Partial)
	if err != nil {
		return fmt.Errorf("encode partial: %w", err)
	}
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return fmt.Errorf("staged row id: %w", err)
	}
	sessionID, err := uuid.Parse(row.SessionID)
	if err != nil {
		return fmt.Errorf("staged row session id: %w", err)
	}
	labels := row.Labels
	if labels == nil {
		labels = []string{}
	}
	unmapped := row.Unmapped
	if unmapped == nil {
		unmapped = []string{}
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO staged_rows (id, session_id, kind, source_id, row_index, payload, labels, unmapped, partial, staged_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, sessionID, string(row.Kind), row.SourceID, row.RowIndex,
		row.Payload, labels, unmapped, partial, row.StagedAt,
	)
	if err != nil {
		return fmt.Errorf("insert staged row: %w", err)
	}
	return nil
}

// NextIdentifier bumps the (site, category) counter under a row lock. The
// counter never falls behind the highest identifier already stored, so
// codes imported from files are never handed out again.
func (s *PostgresStore) NextIdentifier(ctx context.Context, site, category string) (string, error) {
	prefix := core.IdentifierPrefix(site, category)
	pattern := "^" + regexp.QuoteMeta(prefix) + "-[0-9]+$"

	var seq int
	err := s.pool.QueryRow(ctx, `
		WITH seed AS (
			SELECT COALESCE(MAX(substring(identifier FROM '([0-9]+)$')::int), 0) AS max_seq
			FROM ingest_records
			WHERE identifier ~ $3
		)
		INSERT INTO asset_identifier_counters AS c (site, category, last_seq)
		SELECT $1, $2, seed.max_seq + 1 FROM seed
		ON CONFLICT (site, category) DO UPDATE
		SET last_seq = GREATEST(c.last_seq, EXCLUDED.last_seq - 1) + 1
		RETURNING last_seq`,
		site, category, pattern,
	).Scan(&seq)
	if err != nil {
		return "", fmt.Errorf("next identifier for %s: %w", prefix, err)
	}
	return core.FormatIdentifier(site, category, seq), nil
}

func (s *PostgresStore) SaveSession(ctx context.Context, session core.ImportSession) error {
	enc := func(v any) []byte {
		b, err := json.Marshal(v)
		if err != nil || string(b) == "null" {
			return []byte("[]")
		}
		return b
	}
	id, err := uuid.Parse(session.ID)
	if err != nil {
		return fmt.Errorf("session id: %w", err)
	}
	byKind, err := json.Marshal(session.ByKind)
	if err != nil {
		return fmt.Errorf("encode session counts: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO import_sessions (id, target, source_label, actor,
			total, inserted, updated, staged, errored, duplicates,
			by_kind, errors, staged_rows, file_errors, warnings, started_at, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		id, session.Target, session.SourceLabel, session.Actor,
		session.Total, session.Inserted, session.Updated, session.Staged, session.Errored, session.Duplicates,
		byKind, enc(session.Errors), enc(session.StagedRows), enc(session.FileErrors), enc(session.Warnings),
		session.StartedAt, session.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListStaged(ctx context.Context, filter core.StagedFilter) ([]core.StagedRow, error) {
	var (
		where []string
		args  []any
	)
	if filter.Kind != "" {
		args = append(args, string(filter.Kind))
		where = append(where, fmt.Sprintf("kind = $%d", len(args)))
	}
	if filter.SessionID != "" {
		args = append(args, filter.SessionID)
		where = append(where, fmt.Sprintf("session_id = $%d::uuid", len(args)))
	}

	query := `SELECT id::text, session_id::text, kind, source_id, row_index, payload, labels, unmapped, partial, staged_at
		FROM staged_rows`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY staged_at DESC, row_index"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query staged rows: %w", err)
	}
	defer rows.Close()

	var out []core.StagedRow
	for rows.Next() {
		var (
			r       core.StagedRow
			kind    string
			partial []byte
		)
		if err := rows.Scan(&r.ID, &r.SessionID, &kind, &r.SourceID, &r.RowIndex,
			&r.Payload, &r.Labels, &r.Unmapped, &partial, &r.StagedAt); err != nil {
			return nil, fmt.Errorf("scan staged row: %w", err)
		}
		r.Kind = core.EntityKind(kind)
		if len(partial) > 0 {
			if err := json.Unmarshal(partial, &r.Partial); err != nil {
				return nil, fmt.Errorf("decode partial: %w", err)
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
