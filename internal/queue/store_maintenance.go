package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strconv"
	"time"
)

// Stats counts items per status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM queue_items GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	defer rows.Close()

	counts := map[Status]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("queue stats: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// Health folds Stats into the buckets shown by `queue health`. Ready
// statuses between stages (scripted, narrated, sourced) count toward Total
// only.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	counts, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	var h HealthSummary
	for status, n := range counts {
		h.Total += n
		switch {
		case status == StatusPending:
			h.Pending += n
		case status == StatusFailed:
			h.Failed += n
		case status == StatusReview:
			h.Review += n
		case status == StatusCompleted:
			h.Completed += n
		case IsProcessingStatus(status):
			h.Processing += n
		}
	}
	return h, nil
}

// DatabaseHealth is the result of CheckHealth.
type DatabaseHealth struct {
	DBPath           string
	DatabaseExists   bool
	DatabaseReadable bool
	SchemaVersion    string
	TableExists      bool
	MissingColumns   []string
	IntegrityCheck   bool
	TotalItems       int
	Error            string
}

// CheckHealth inspects the database file: that it opens, carries the
// expected schema version and columns, and passes PRAGMA integrity_check.
// Problems found inside the database are reported in the result; the error
// is reserved for failures to inspect it at all.
func (s *Store) CheckHealth(ctx context.Context) (DatabaseHealth, error) {
	h := DatabaseHealth{DBPath: s.path}
	if _, err := os.Stat(s.path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return h, nil
		}
		return h, fmt.Errorf("queue health: %w", err)
	}
	h.DatabaseExists = true

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	fail := func(step string, err error) (DatabaseHealth, error) {
		h.Error = fmt.Sprintf("%s: %v", step, err)
		return h, fmt.Errorf("queue health: %s: %w", step, err)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fail("read schema version", err)
	}
	h.DatabaseReadable = true
	h.SchemaVersion = strconv.Itoa(version)
	if version != schemaVersion {
		h.Error = fmt.Sprintf("schema version %d, expected %d", version, schemaVersion)
	}

	rows, err := s.db.QueryContext(ctx, "SELECT name FROM pragma_table_info('queue_items')")
	if err != nil {
		return fail("list columns", err)
	}
	var present []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return fail("list columns", err)
		}
		present = append(present, name)
	}
	rows.Close()
	h.TableExists = len(present) > 0
	for _, c := range itemColumns {
		if !slices.Contains(present, c.name) {
			h.MissingColumns = append(h.MissingColumns, c.name)
		}
	}

	if h.TableExists {
		if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM queue_items").Scan(&h.TotalItems); err != nil {
			return fail("count items", err)
		}
	}

	var verdict string
	if err := s.db.QueryRowContext(ctx, "PRAGMA integrity_check").Scan(&verdict); err != nil {
		return fail("integrity check", err)
	}
	h.IntegrityCheck = verdict == "ok"
	return h, nil
}
