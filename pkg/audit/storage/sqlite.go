package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/archivist/pkg/audit"
)

// SQLiteStore implements audit.Store on SQLite.
type SQLiteStore struct {
	db     *sql.DB
	config *Config
	driver string
	logger *slog.Logger
}

// NewSQLiteStore opens the database, enables WAL mode if configured and
// creates the schema.
func NewSQLiteStore(cfg *Config) (*SQLiteStore, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	driver := cfg.Driver
	if driver == "" {
		driver = DriverModernc
	}

	logger := slog.Default().With("component", "audit.storage.sqlite")

	db, err := sql.Open(driver, dsn(driver, cfg))
	if err != nil {
		return nil, audit.NewStorageError(driver, "open", err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}

	s := &SQLiteStore{
		db:     db,
		config: cfg,
		driver: driver,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite store initialized",
		"driver", driver,
		"path", cfg.Path,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// dsn builds a driver-specific DSN carrying the busy timeout so that every
// pooled connection gets it.
func dsn(driver string, cfg *Config) string {
	ms := cfg.BusyTimeout.Milliseconds()
	if ms <= 0 {
		return cfg.Path
	}
	if driver == DriverMattn {
		return fmt.Sprintf("%s?_busy_timeout=%d", cfg.Path, ms)
	}
	return fmt.Sprintf("%s?_pragma=busy_timeout(%d)", cfg.Path, ms)
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return audit.NewStorageError(s.driver, "enable_wal", err)
		}
		s.logger.Debug("WAL mode enabled")
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return audit.NewStorageError(s.driver, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return audit.NewStorageError(s.driver, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return audit.NewStorageError(s.driver, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return audit.NewStorageError(s.driver, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	s.logger.Debug("schema version verified", "version", version)
	return nil
}

// Save inserts a record, assigning a UUID when it has no ID.
func (s *SQLiteStore) Save(ctx context.Context, record *audit.Record) (*audit.Record, error) {
	rec := record.Clone()
	if err := rec.Normalize(); err != nil {
		return nil, err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, event_type, severity, user_id, target_id, description, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.EventType, string(rec.Severity),
		nullable(rec.UserID), nullable(rec.TargetID), nullable(rec.Description),
		rec.CreatedAt.UnixNano(),
	)
	if err != nil {
		return nil, audit.NewStorageError(s.driver, "save", err)
	}

	return rec, nil
}

// FindByID returns the record with the given ID or audit.ErrNotFound.
func (s *SQLiteStore) FindByID(ctx context.Context, id string) (*audit.Record, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM audit_logs WHERE id = ?", id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, audit.ErrNotFound
	}
	if err != nil {
		return nil, audit.NewStorageError(s.driver, "find_by_id", err)
	}
	return rec, nil
}

// FindBetween returns records with start <= CreatedAt < end, oldest first.
func (s *SQLiteStore) FindBetween(ctx context.Context, start, end time.Time) ([]*audit.Record, error) {
	return s.query(ctx, "find_between",
		"SELECT "+selectColumns+" FROM audit_logs WHERE created_at >= ? AND created_at < ? ORDER BY created_at ASC, id ASC",
		start.UnixNano(), end.UnixNano())
}

// FindAll returns every record, oldest first.
func (s *SQLiteStore) FindAll(ctx context.Context) ([]*audit.Record, error) {
	return s.query(ctx, "find_all",
		"SELECT "+selectColumns+" FROM audit_logs ORDER BY created_at ASC, id ASC")
}

// Search returns records matching the filter, newest first.
func (s *SQLiteStore) Search(ctx context.Context, filter *audit.Filter, page audit.Page) ([]*audit.Record, error) {
	where, args := buildWhereClause(filter)

	limit := page.Limit
	if limit <= 0 {
		limit = DefaultPageLimit
	}
	offset := page.Offset
	if offset < 0 {
		offset = 0
	}

	q := "SELECT " + selectColumns + " FROM audit_logs" + where +
		" ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	return s.query(ctx, "search", q, args...)
}

// Count returns the number of records matching the filter.
func (s *SQLiteStore) Count(ctx context.Context, filter *audit.Filter) (int64, error) {
	where, args := buildWhereClause(filter)

	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_logs"+where, args...).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError(s.driver, "count", err)
	}
	return count, nil
}

// FindLatest returns up to limit records, newest first.
func (s *SQLiteStore) FindLatest(ctx context.Context, limit int) ([]*audit.Record, error) {
	return s.Search(ctx, nil, audit.Page{Limit: limit})
}

// CountBefore returns the number of records with CreatedAt < before.
func (s *SQLiteStore) CountBefore(ctx context.Context, before time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM audit_logs WHERE created_at < ?", before.UnixNano()).Scan(&count)
	if err != nil {
		return 0, audit.NewStorageError(s.driver, "count_before", err)
	}
	return count, nil
}

// DeleteBefore removes records with CreatedAt < before.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, before time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM audit_logs WHERE created_at < ?", before.UnixNano())
	if err != nil {
		return 0, audit.NewStorageError(s.driver, "delete_before", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, audit.NewStorageError(s.driver, "delete_before", err)
	}

	s.logger.Info("deleted audit records", "before", before, "count", n)
	return n, nil
}

// deleteBatch bounds the number of bound parameters per DELETE statement.
const deleteBatch = 500

// DeleteIDs removes the records with the given IDs in one transaction.
func (s *SQLiteStore) DeleteIDs(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, audit.NewStorageError(s.driver, "delete_ids", err)
	}
	defer tx.Rollback()

	var deleted int64
	for start := 0; start < len(ids); start += deleteBatch {
		batch := ids[start:min(start+deleteBatch, len(ids))]
		args := make([]any, len(batch))
		for i, id := range batch {
			args[i] = id
		}
		q := "DELETE FROM audit_logs WHERE id IN (?" + strings.Repeat(", ?", len(batch)-1) + ")"
		result, err := tx.ExecContext(ctx, q, args...)
		if err != nil {
			return 0, audit.NewStorageError(s.driver, "delete_ids", err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return 0, audit.NewStorageError(s.driver, "delete_ids", err)
		}
		deleted += n
	}

	if err := tx.Commit(); err != nil {
		return 0, audit.NewStorageError(s.driver, "delete_ids", err)
	}
	s.logger.Info("deleted audit records", "count", deleted)
	return deleted, nil
}

// Ping checks database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return audit.NewStorageError(s.driver, "ping", err)
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return audit.NewStorageError(s.driver, "close", err)
	}
	s.logger.Info("SQLite store closed")
	return nil
}

func (s *SQLiteStore) query(ctx context.Context, op, q string, args ...any) ([]*audit.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, audit.NewStorageError(s.driver, op, err)
	}
	defer rows.Close()

	records := []*audit.Record{}
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, audit.NewStorageError(s.driver, op, err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, audit.NewStorageError(s.driver, op, err)
	}
	return records, nil
}

// buildWhereClause builds a SQL WHERE clause from filter fields.
func buildWhereClause(filter *audit.Filter) (string, []any) {
	if filter == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if filter.StartTime != nil {
		conditions = append(conditions, "created_at >= ?")
		args = append(args, filter.StartTime.UnixNano())
	}
	if filter.EndTime != nil {
		conditions = append(conditions, "created_at < ?")
		args = append(args, filter.EndTime.UnixNano())
	}
	if filter.EventType != "" {
		conditions = append(conditions, "event_type = ?")
		args = append(args, filter.EventType)
	}
	if filter.Severity != "" {
		conditions = append(conditions, "severity = ?")
		args = append(args, string(filter.Severity))
	}
	if filter.UserID != "" {
		conditions = append(conditions, "user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.TargetID != "" {
		conditions = append(conditions, "target_id = ?")
		args = append(args, filter.TargetID)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*audit.Record, error) {
	var (
		rec       audit.Record
		severity  string
		createdAt int64
	)
	if err := row.Scan(&rec.ID, &rec.EventType, &severity, &rec.UserID, &rec.TargetID, &rec.Description, &createdAt); err != nil {
		return nil, err
	}
	rec.Severity = audit.Severity(severity)
	rec.CreatedAt = time.Unix(0, createdAt).UTC()
	return &rec, nil
}

// nullable converts empty optional strings to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
