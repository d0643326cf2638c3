package metrics

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// OperationMetric records metadata for a single engine operation
// (availability check, reconcile, settle, clip).
type OperationMetric struct {
	Operation   string
	HouseholdID string
	ItemCount   int
	FailedCount int
	LatencyMS   int64
	Timestamp   time.Time
}

// Store handles persistence of metrics to SQLite.
type Store struct {
	db *sql.DB
}

// NewStore initializes the Store with an existing database connection.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Record saves a metric to the database.
func (s *Store) Record(m OperationMetric) error {
	ts := m.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(context.Background(), `
		INSERT INTO operation_metrics (operation, household_id, item_count, failed_count, latency_ms, timestamp)
		VALUES (?, ?, ?, ?, ?, ?)`,
		m.Operation, m.HouseholdID, m.ItemCount, m.FailedCount, m.LatencyMS, ts)
	if err != nil {
		return fmt.Errorf("failed to record operation metric: %w", err)
	}
	return nil
}

// DailyUsage represents operation totals for a single day.
type DailyUsage struct {
	Date            string
	Operation       string
	TotalItems      int
	TotalFailed     int
	TotalExecutions int
}

// GetDailyUsage retrieves per-operation totals for the last N days.
func (s *Store) GetDailyUsage(days int) ([]DailyUsage, error) {
	since := time.Now().AddDate(0, 0, -days).UTC()
	rows, err := s.db.QueryContext(context.Background(), `
		SELECT date(timestamp) AS day, operation,
		       SUM(item_count), SUM(failed_count), COUNT(*)
		FROM operation_metrics
		WHERE timestamp >= ?
		GROUP BY day, operation
		ORDER BY day DESC, operation`,
		since)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily usage: %w", err)
	}
	defer rows.Close()

	var results []DailyUsage
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.Operation, &u.TotalItems, &u.TotalFailed, &u.TotalExecutions); err != nil {
			return nil, fmt.Errorf("failed to scan daily usage row: %w", err)
		}
		results = append(results, u)
	}
	return results, rows.Err()
}
