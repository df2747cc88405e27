package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	_ "modernc.org/sqlite"

	"optable/adscript/pkg/analytics"
	"optable/adscript/pkg/config"
)

// SQLiteStorage implements the Storage interface using SQLite.
type SQLiteStorage struct {
	db     *sql.DB
	config *config.StorageConfig
	logger *slog.Logger
}

// NewSQLiteStorage creates a new SQLite storage backend. It initializes the
// database schema and enables WAL mode if configured.
func NewSQLiteStorage(cfg *config.StorageConfig) (*SQLiteStorage, error) {
	if cfg == nil {
		defaults := config.NewDefaultConfig()
		cfg = &defaults.Analytics.Storage
	}

	logger := slog.Default().With("component", "analytics.storage.sqlite")

	db, err := sql.Open("sqlite", cfg.Path)
	if err != nil {
		return nil, analytics.NewStorageError("sqlite", "open", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)

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
		"wal_mode", cfg.WALMode,
		"max_open_conns", cfg.MaxOpenConns,
	)

	return s, nil
}

// initialize sets up the database schema and enables WAL mode.
func (s *SQLiteStorage) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return analytics.NewStorageError("sqlite", "enable_wal", err)
		}
	}

	busyTimeoutMs := s.config.BusyTimeout.Milliseconds()
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", busyTimeoutMs)); err != nil {
		return analytics.NewStorageError("sqlite", "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return analytics.NewStorageError("sqlite", "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return analytics.NewStorageError("sqlite", "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && err != sql.ErrNoRows {
		return analytics.NewStorageError("sqlite", "get_schema_version", err)
	}
	if version != SchemaVersion {
		return analytics.NewStorageError("sqlite", "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}

	return nil
}

const insertEvent = `
	INSERT INTO events (
		id, event_type, server_time, client_time, client_ip, caller_id, script_url, data
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
`

// Store persists a single event.
func (s *SQLiteStorage) Store(ctx context.Context, event *analytics.Event) error {
	if err := event.Validate(); err != nil {
		return analytics.NewStorageError("sqlite", "store", err)
	}

	args, err := insertArgs(event)
	if err != nil {
		return analytics.NewStorageError("sqlite", "store", err)
	}

	if _, err := s.db.ExecContext(ctx, insertEvent, args...); err != nil {
		return analytics.NewStorageError("sqlite", "store", err)
	}
	return nil
}

// StoreBatch persists a batch of events in one transaction. The batch is
// all-or-nothing; any failure rolls back the whole batch.
func (s *SQLiteStorage) StoreBatch(ctx context.Context, events []*analytics.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return analytics.NewStorageError("sqlite", "store_batch", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertEvent)
	if err != nil {
		tx.Rollback()
		return analytics.NewStorageError("sqlite", "store_batch", err)
	}
	defer stmt.Close()

	for _, e := range events {
		if err := e.Validate(); err != nil {
			tx.Rollback()
			return analytics.NewStorageError("sqlite", "store_batch", err)
		}
		args, err := insertArgs(e)
		if err != nil {
			tx.Rollback()
			return analytics.NewStorageError("sqlite", "store_batch", err)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			tx.Rollback()
			return analytics.NewStorageError("sqlite", "store_batch", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return analytics.NewStorageError("sqlite", "store_batch", err)
	}
	return nil
}

// Query retrieves events matching the query filters.
func (s *SQLiteStorage) Query(ctx context.Context, query *analytics.Query) ([]*analytics.Event, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT id, event_type, server_time, client_time, client_ip, caller_id, script_url, data FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	sortBy := "server_time"
	switch query.SortBy {
	case "event_type", "caller_id", "server_time":
		sortBy = query.SortBy
	}
	sortOrder := "DESC"
	if query.SortOrder == "asc" {
		sortOrder = "ASC"
	}
	sqlQuery += fmt.Sprintf(" ORDER BY %s %s", sortBy, sortOrder)

	limit := 100
	if query.Limit > 0 {
		limit = query.Limit
	}
	sqlQuery += fmt.Sprintf(" LIMIT %d", limit)
	if query.Offset > 0 {
		sqlQuery += fmt.Sprintf(" OFFSET %d", query.Offset)
	}

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, analytics.NewStorageError("sqlite", "query", err)
	}
	defer rows.Close()

	events := []*analytics.Event{}
	for rows.Next() {
		e, err := scanRow(rows)
		if err != nil {
			return nil, analytics.NewStorageError("sqlite", "scan", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, analytics.NewStorageError("sqlite", "query", err)
	}

	return events, nil
}

// Count returns the number of events matching the query filters.
func (s *SQLiteStorage) Count(ctx context.Context, query *analytics.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT COUNT(*) FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	var count int64
	if err := s.db.QueryRowContext(ctx, sqlQuery, args...).Scan(&count); err != nil {
		return 0, analytics.NewStorageError("sqlite", "count", err)
	}
	return count, nil
}

// CountByType returns event counts grouped by event type.
func (s *SQLiteStorage) CountByType(ctx context.Context, query *analytics.Query) ([]analytics.TypeCount, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "SELECT event_type, COUNT(*) FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}
	sqlQuery += " GROUP BY event_type ORDER BY COUNT(*) DESC"

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		return nil, analytics.NewStorageError("sqlite", "count_by_type", err)
	}
	defer rows.Close()

	counts := []analytics.TypeCount{}
	for rows.Next() {
		var tc analytics.TypeCount
		if err := rows.Scan(&tc.EventType, &tc.Count); err != nil {
			return nil, analytics.NewStorageError("sqlite", "scan", err)
		}
		counts = append(counts, tc)
	}
	if err := rows.Err(); err != nil {
		return nil, analytics.NewStorageError("sqlite", "count_by_type", err)
	}

	return counts, nil
}

// Delete removes events matching the query filters.
func (s *SQLiteStorage) Delete(ctx context.Context, query *analytics.Query) (int64, error) {
	whereClause, args := buildWhereClause(query)

	sqlQuery := "DELETE FROM events"
	if whereClause != "" {
		sqlQuery += " WHERE " + whereClause
	}

	result, err := s.db.ExecContext(ctx, sqlQuery, args...)
	if err != nil {
		return 0, analytics.NewStorageError("sqlite", "delete", err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, analytics.NewStorageError("sqlite", "delete", err)
	}

	s.logger.Debug("events deleted", "count", deleted)
	return deleted, nil
}

// LatestServerTime returns the newest stored server timestamp, or the zero
// time when the store is empty.
func (s *SQLiteStorage) LatestServerTime(ctx context.Context) (time.Time, error) {
	var latest time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT server_time FROM events ORDER BY server_time DESC LIMIT 1").Scan(&latest)
	if err == sql.ErrNoRows {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, analytics.NewStorageError("sqlite", "latest_server_time", err)
	}
	return latest, nil
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	if err := s.db.Close(); err != nil {
		return analytics.NewStorageError("sqlite", "close", err)
	}
	return nil
}

// buildWhereClause constructs the WHERE clause and argument list from query
// filters. It returns an empty clause when no filters are set.
func buildWhereClause(q *analytics.Query) (string, []interface{}) {
	if q == nil {
		return "", nil
	}

	var clauses []string
	var args []interface{}

	if q.StartTime != nil {
		clauses = append(clauses, "server_time >= ?")
		args = append(args, *q.StartTime)
	}
	if q.EndTime != nil {
		clauses = append(clauses, "server_time <= ?")
		args = append(args, *q.EndTime)
	}
	if q.EventType != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, q.EventType)
	}
	if q.CallerID != "" {
		clauses = append(clauses, "caller_id = ?")
		args = append(args, q.CallerID)
	}
	if q.ScriptURL != "" {
		clauses = append(clauses, "script_url = ?")
		args = append(args, q.ScriptURL)
	}

	if len(clauses) == 0 {
		return "", nil
	}

	where := clauses[0]
	for _, c := range clauses[1:] {
		where += " AND " + c
	}
	return where, args
}

func insertArgs(e *analytics.Event) ([]interface{}, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, err
	}

	var clientTime interface{}
	if !e.ClientTime.IsZero() {
		clientTime = e.ClientTime
	}

	return []interface{}{
		e.ID, e.EventType, e.ServerTime, clientTime,
		nullable(e.ClientIP), nullable(e.CallerID), nullable(e.ScriptURL),
		string(data),
	}, nil
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func scanRow(rows *sql.Rows) (*analytics.Event, error) {
	var (
		e          analytics.Event
		clientTime sql.NullTime
		clientIP   sql.NullString
		callerID   sql.NullString
		scriptURL  sql.NullString
		data       sql.NullString
	)

	err := rows.Scan(&e.ID, &e.EventType, &e.ServerTime, &clientTime,
		&clientIP, &callerID, &scriptURL, &data)
	if err != nil {
		return nil, err
	}

	if clientTime.Valid {
		e.ClientTime = clientTime.Time
	}
	e.ClientIP = clientIP.String
	e.CallerID = callerID.String
	e.ScriptURL = scriptURL.String

	if data.Valid && data.String != "" && data.String != "null" {
		if err := json.Unmarshal([]byte(data.String), &e.Data); err != nil {
			return nil, err
		}
	}

	return &e, nil
}
