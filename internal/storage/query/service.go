package query

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
)

// Service runs queries over record files with an in-memory DuckDB.
type Service struct {
	mu sync.RWMutex

	db *sql.DB

	// Statistics
	stats ServiceStats
}

// Options configures the query service.
type Options struct {
	// MemoryLimit caps DuckDB memory, e.g. "512MB". Empty keeps the
	// DuckDB default.
	MemoryLimit string
}

// SensorSummary is the per-sensor aggregate of one or more record files.
type SensorSummary struct {
	SensorID   string
	SensorType string
	Count      int64
	Min        float64
	Max        float64
	Mean       float64
	FirstTs    int64
	LastTs     int64
}

// New creates a new query service.
func New(opts Options) (*Service, error) {
	// Open in-memory DuckDB database
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	if opts.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", escape(opts.MemoryLimit)))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{db: db}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Summarize aggregates the records of paths per sensor, ordered by sensor ID.
func (s *Service) Summarize(ctx context.Context, paths ...string) ([]SensorSummary, error) {
	if len(paths) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT
			sensor_id,
			any_value(sensor_type),
			count(*),
			min(value), max(value), avg(value),
			min(timestamp), max(timestamp)
		FROM read_parquet(%s)
		GROUP BY sensor_id
		ORDER BY sensor_id
	`, fileList(paths))

	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []SensorSummary
	for rows.Next() {
		var r SensorSummary
		if err := rows.Scan(
			&r.SensorID, &r.SensorType,
			&r.Count,
			&r.Min, &r.Max, &r.Mean,
			&r.FirstTs, &r.LastTs,
		); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.record(int64(len(results)))
	return results, nil
}

// CountRows returns the total number of records in paths.
func (s *Service) CountRows(ctx context.Context, paths ...string) (int64, error) {
	if len(paths) == 0 {
		return 0, nil
	}

	rows, err := s.query(ctx, fmt.Sprintf("SELECT count(*) FROM read_parquet(%s)", fileList(paths)))
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scan row: %w", err)
		}
	}
	s.record(1)
	return n, rows.Err()
}

// OrderViolations counts rows of a single file whose timestamp is lower
// than the timestamp of the row stored before it.
func (s *Service) OrderViolations(ctx context.Context, path string) (int64, error) {
	query := fmt.Sprintf(`
		SELECT count(*) FROM (
			SELECT timestamp < lag(timestamp) OVER (ORDER BY file_row_number) AS backwards
			FROM read_parquet(%s, file_row_number = true)
		) WHERE backwards
	`, fileList([]string{path}))

	rows, err := s.query(ctx, query)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	var n int64
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, fmt.Errorf("scan row: %w", err)
		}
	}
	s.record(1)
	return n, rows.Err()
}

func (s *Service) query(ctx context.Context, query string) (*sql.Rows, error) {
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		s.mu.Lock()
		s.stats.Errors++
		s.mu.Unlock()
		return nil, fmt.Errorf("duckdb query: %w", err)
	}
	return rows, nil
}

func (s *Service) record(rows int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += rows
}

// Stats returns query statistics.
func (s *Service) Stats() ServiceStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

// ServiceStats holds service statistics.
type ServiceStats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
}

// ExecuteSQL executes a raw SQL query using DuckDB.
// This is useful for ad-hoc queries and debugging.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	rows, err := s.query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.record(int64(len(results)))
	return results, rows.Err()
}

// fileList renders paths as a DuckDB list literal.
func fileList(paths []string) string {
	quoted := make([]string, len(paths))
	for i, p := range paths {
		quoted[i] = "'" + escape(p) + "'"
	}
	return "[" + strings.Join(quoted, ", ") + "]"
}

func escape(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
