package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "github.com/jackc/pgx/v5/stdlib"
)

const (
	createTableSQL = `CREATE TABLE IF NOT EXISTS audit_log (
	id             TEXT PRIMARY KEY,
	actor_id       TEXT NOT NULL,
	action         TEXT NOT NULL,
	module         TEXT NOT NULL,
	entity_type    TEXT NOT NULL DEFAULT '',
	entity_id      TEXT,
	unit_id        TEXT,
	ip             TEXT NOT NULL DEFAULT '',
	user_agent     TEXT,
	result         TEXT NOT NULL,
	severity       TEXT NOT NULL,
	metadata       JSONB NOT NULL DEFAULT '{}'::jsonb,
	correlation_id TEXT,
	created_at     TIMESTAMPTZ NOT NULL
)`
	createOrderIndexSQL = `CREATE INDEX IF NOT EXISTS audit_log_created_idx ON audit_log (created_at, id)`
	createUnitIndexSQL  = `CREATE INDEX IF NOT EXISTS audit_log_unit_idx ON audit_log (unit_id, created_at)`

	insertEntrySQL = `INSERT INTO audit_log (id, actor_id, action, module, entity_type, entity_id, unit_id, ip, user_agent, result, severity, metadata, correlation_id, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	selectEntriesSQL = `SELECT id, actor_id, action, module, entity_type, entity_id, unit_id, ip, user_agent, result, severity, metadata, correlation_id, created_at FROM audit_log`
)

// PostgresConfig tunes the connection pool opened by [OpenPostgres].
type PostgresConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// OpenPostgres opens a pgx-backed *sql.DB and verifies connectivity.
func OpenPostgres(ctx context.Context, cfg PostgresConfig) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DSN) == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("pgx", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return db, nil
}

// PostgresStore keeps entries in the audit_log table. It issues INSERT and SELECT
// only.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore wraps an open database handle.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Init creates the table and indexes if they do not exist.
func (s *PostgresStore) Init(ctx context.Context) error {
	for _, stmt := range []string{createTableSQL, createOrderIndexSQL, createUnitIndexSQL} {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("%w: init schema: %v", ErrStorage, err)
		}
	}
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, e Entry) error {
	metadata, err := json.Marshal(e.Metadata)
	if err != nil {
		return fmt.Errorf("encode audit metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, insertEntrySQL,
		e.ID,
		e.ActorID,
		e.Action,
		e.Module,
		e.EntityType,
		nullString(e.EntityID),
		nullString(e.UnitID),
		e.IP,
		nullString(e.UserAgent),
		string(e.Result),
		string(e.Severity),
		metadata,
		nullString(e.CorrelationID),
		e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", ErrStorage, err)
	}
	return nil
}

func (s *PostgresStore) Candidates(ctx context.Context, pf Prefilter) ([]Entry, error) {
	query, args := buildCandidatesQuery(pf)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: select: %v", ErrStorage, err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var (
			e                                        Entry
			entityID, unitID, userAgent, correlation sql.NullString
			result, severity                         string
			metadata                                 []byte
		)
		if err := rows.Scan(
			&e.ID, &e.ActorID, &e.Action, &e.Module, &e.EntityType,
			&entityID, &unitID, &e.IP, &userAgent,
			&result, &severity, &metadata, &correlation, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: scan: %v", ErrStorage, err)
		}
		e.EntityID = entityID.String
		e.UnitID = unitID.String
		e.UserAgent = userAgent.String
		e.CorrelationID = correlation.String
		e.Result = Result(result)
		e.Severity = Severity(severity)
		e.CreatedAt = e.CreatedAt.UTC()
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &e.Metadata); err != nil {
				return nil, fmt.Errorf("%w: decode metadata: %v", ErrStorage, err)
			}
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: rows: %v", ErrStorage, err)
	}
	return out, nil
}

func buildCandidatesQuery(pf Prefilter) (string, []any) {
	var (
		where []string
		args  []any
	)
	add := func(column string, value any) {
		args = append(args, value)
		where = append(where, column+" $"+strconv.Itoa(len(args)))
	}

	if pf.UnitID != "" {
		add("unit_id =", pf.UnitID)
	}
	if pf.ActorID != "" {
		add("actor_id =", pf.ActorID)
	}
	if pf.Result != "" {
		add("result =", string(pf.Result))
	}
	if pf.Severity != "" {
		add("severity =", string(pf.Severity))
	}
	if pf.EntityType != "" {
		add("entity_type =", pf.EntityType)
	}
	if pf.EntityID != "" {
		add("entity_id =", pf.EntityID)
	}
	if pf.CorrelationID != "" {
		add("correlation_id =", pf.CorrelationID)
	}
	if !pf.From.IsZero() {
		add("created_at >=", pf.From)
	}
	if !pf.To.IsZero() {
		add("created_at <=", pf.To)
	}

	query := selectEntriesSQL
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	return query + " ORDER BY created_at ASC, id ASC", args
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
