package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"

	"mercator-hq/covenant/pkg/evidence"
)

// Driver names registered by the two SQLite packages.
const (
	DriverModernc = "sqlite"  // modernc.org/sqlite, pure Go
	DriverMattn   = "sqlite3" // github.com/mattn/go-sqlite3, cgo
)

// SQLiteConfig contains configuration for the SQLite storage backend.
type SQLiteConfig struct {
	// Driver is DriverModernc or DriverMattn.
	// Default: DriverModernc
	Driver string

	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Driver:       DriverModernc,
		Path:         "data/evidence.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStorage implements evidence.Storage on SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// NewSQLiteStorage opens (creating if needed) the database and applies the
// schema.
func NewSQLiteStorage(cfg *SQLiteConfig, logger *slog.Logger) (*SQLiteStorage, error) {
	if cfg == nil {
		cfg = DefaultSQLiteConfig()
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverModernc
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "evidence.storage.sqlite")

	dsn, err := dataSourceName(cfg)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "open", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
		db.SetMaxIdleConns(cfg.MaxOpenConns)
	}

	s := &SQLiteStorage{
		db:     db,
		config: cfg,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Info("SQLite storage initialized",
		"path", cfg.Path,
		"driver", cfg.Driver,
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// dataSourceName builds a DSN carrying the per-connection pragmas. The two
// drivers spell pragmas differently.
func dataSourceName(cfg *SQLiteConfig) (string, error) {
	if cfg.Path == "" {
		return "", fmt.Errorf("database path is empty")
	}
	ms := cfg.BusyTimeout.Milliseconds()
	params := url.Values{}

	switch cfg.Driver {
	case DriverModernc:
		params.Add("_pragma", fmt.Sprintf("busy_timeout(%d)", ms))
		if cfg.WALMode {
			params.Add("_pragma", "journal_mode(WAL)")
		}
	case DriverMattn:
		params.Set("_busy_timeout", fmt.Sprint(ms))
		if cfg.WALMode {
			params.Set("_journal_mode", "WAL")
		}
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q (want %q or %q)", cfg.Driver, DriverModernc, DriverMattn)
	}

	return "file:" + cfg.Path + "?" + params.Encode(), nil
}

func (s *SQLiteStorage) initialize() error {
	if _, err := s.db.Exec(Schema); err != nil {
		return evidence.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return evidence.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version sql.NullInt64
	if err := s.db.QueryRow(GetSchemaVersion).Scan(&version); err != nil {
		return evidence.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version.Int64 != SchemaVersion {
		return evidence.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version.Int64))
	}

	s.logger.Debug("schema version verified", "version", version.Int64)
	return nil
}

// Store inserts record.
func (s *SQLiteStorage) Store(ctx context.Context, record *evidence.Record) error {
	var traceContext any
	if len(record.TraceContext) > 0 {
		b, err := json.Marshal(record.TraceContext)
		if err != nil {
			return evidence.NewStorageError("sqlite", "store", err)
		}
		traceContext = string(b)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO evidence (
			id, evaluation_id, schema_id, contract_version, constraint_id, severity, expression,
			document_hash, document, previous, evaluation_timestamp, result, error_kind, error_message,
			trace_context, recorded_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		record.ID, record.EvaluationID, record.SchemaID, record.ContractVersion, record.ConstraintID,
		record.Severity, record.Expression,
		record.DocumentHash, nullableJSON(record.Document), nullableJSON(record.Previous),
		record.EvaluationTimestamp, string(record.Result),
		nullableString(record.ErrorKind), nullableString(record.ErrorMessage),
		traceContext, record.RecordedAt.UnixNano(),
	)
	if err != nil {
		return evidence.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// Get returns the record with the given ID.
func (s *SQLiteStorage) Get(ctx context.Context, id string) (*evidence.Record, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectColumns+" FROM evidence WHERE id = ?", id)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "get", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, evidence.NewStorageError("sqlite", "get", err)
		}
		return nil, evidence.ErrNotFound
	}
	record, err := scanRow(rows)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "scan", err)
	}
	return record, nil
}

// Query retrieves evidence records matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *evidence.Query) ([]*evidence.Record, error) {
	sqlQuery, args := selectQuery(query)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	records := []*evidence.Record{}
	for rows.Next() {
		record, err := scanRow(rows)
		if err != nil {
			return nil, evidence.NewStorageError("sqlite", "scan", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, evidence.NewStorageError("sqlite", "query", err)
	}
	return records, nil
}

// QueryStream streams the matching records row by row.
func (s *SQLiteStorage) QueryStream(ctx context.Context, query *evidence.Query) (<-chan *evidence.Record, <-chan error, error) {
	recordsCh := make(chan *evidence.Record, 100)
	errCh := make(chan error, 1)

	sqlQuery, args := selectQuery(query)

	go func() {
		defer close(recordsCh)
		defer close(errCh)

		rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
		if err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
			return
		}
		defer rows.Close()

		for rows.Next() {
			record, err := scanRow(rows)
			if err != nil {
				errCh <- evidence.NewStorageError("sqlite", "scan", err)
				return
			}

			select {
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			case recordsCh <- record:
			}
		}

		if err := rows.Err(); err != nil {
			errCh <- evidence.NewStorageError("sqlite", "query_stream", err)
		}
	}()

	return recordsCh, errCh, nil
}

// Count returns the number of evidence records matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM evidence"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, evidence.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// Delete removes evidence records matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *evidence.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM evidence"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, evidence.NewStorageError("sqlite", "delete", err)
	}
	return count, nil
}

// Close closes the database.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return evidence.NewStorageError("sqlite", "close", err)
	}
	s.logger.Info("SQLite storage closed")
	return nil
}

func selectQuery(query *evidence.Query) (string, []any) {
	whereClause, args := buildWhereClause(query)

	var b strings.Builder
	b.WriteString("SELECT " + selectColumns + " FROM evidence")
	if whereClause != "" {
		b.WriteString(" WHERE " + whereClause)
	}

	order := "DESC"
	if query != nil && strings.EqualFold(query.SortOrder, "asc") {
		order = "ASC"
	}
	fmt.Fprintf(&b, " ORDER BY recorded_at %s, id ASC", order)

	if query != nil && query.Limit > 0 {
		fmt.Fprintf(&b, " LIMIT %d", query.Limit)
		if query.Offset > 0 {
			fmt.Fprintf(&b, " OFFSET %d", query.Offset)
		}
	} else if query != nil && query.Offset > 0 {
		fmt.Fprintf(&b, " LIMIT -1 OFFSET %d", query.Offset)
	}
	return b.String(), args
}

// buildWhereClause returns the conditions (without "WHERE") and their
// arguments.
func buildWhereClause(query *evidence.Query) (string, []any) {
	if query == nil {
		return "", nil
	}

	var conditions []string
	var args []any

	if query.StartTime != nil {
		conditions = append(conditions, "recorded_at >= ?")
		args = append(args, query.StartTime.UnixNano())
	}
	if query.EndTime != nil {
		conditions = append(conditions, "recorded_at <= ?")
		args = append(args, query.EndTime.UnixNano())
	}
	if query.SchemaID != "" {
		conditions = append(conditions, "schema_id = ?")
		args = append(args, query.SchemaID)
	}
	if query.ConstraintID != "" {
		conditions = append(conditions, "constraint_id = ?")
		args = append(args, query.ConstraintID)
	}
	if query.EvaluationID != "" {
		conditions = append(conditions, "evaluation_id = ?")
		args = append(args, query.EvaluationID)
	}
	if query.Result != "" {
		conditions = append(conditions, "result = ?")
		args = append(args, string(query.Result))
	}

	return strings.Join(conditions, " AND "), args
}

func scanRow(rows *sql.Rows) (*evidence.Record, error) {
	var (
		record                        evidence.Record
		result                        string
		document, previous            sql.NullString
		errorKind, errorMsg, traceCtx sql.NullString
		recordedAt                    int64
	)

	err := rows.Scan(
		&record.ID, &record.EvaluationID, &record.SchemaID, &record.ContractVersion, &record.ConstraintID,
		&record.Severity, &record.Expression,
		&record.DocumentHash, &document, &previous, &record.EvaluationTimestamp, &result,
		&errorKind, &errorMsg, &traceCtx, &recordedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Result = evidence.Result(result)
	if document.Valid {
		record.Document = json.RawMessage(document.String)
	}
	if previous.Valid {
		record.Previous = json.RawMessage(previous.String)
	}
	record.ErrorKind = errorKind.String
	record.ErrorMessage = errorMsg.String
	if traceCtx.Valid && traceCtx.String != "" {
		if err := json.Unmarshal([]byte(traceCtx.String), &record.TraceContext); err != nil {
			return nil, fmt.Errorf("decode trace context: %w", err)
		}
	}
	record.RecordedAt = time.Unix(0, recordedAt).UTC()

	return &record, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
