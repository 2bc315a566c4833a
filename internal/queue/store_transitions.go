package queue

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// mutate loads the items in statuses inside one write transaction, lets
// change edit each one and writes back those it reports as changed.
func (s *Store) mutate(ctx context.Context, statuses []Status, change func(*Item) bool) (int64, error) {
	var changed int64
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		changed = 0
		rows, err := tx.QueryContext(ctx,
			selectItems+" WHERE status IN ("+placeholders(len(statuses))+")", anySlice(statuses)...)
		if err != nil {
			return err
		}
		var items []*Item
		for rows.Next() {
			item, err := scanItem(rows)
			if err != nil {
				rows.Close()
				return err
			}
			items = append(items, item)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		now := time.Now().UTC()
		for _, item := range items {
			if !change(item) {
				continue
			}
			item.UpdatedAt = now
			if _, err := tx.ExecContext(ctx, updateItem, updateArgs(item)...); err != nil {
				return err
			}
			changed++
		}
		return nil
	})
	return changed, err
}

// ResetStuckProcessing rolls every in-flight item back to the ready status
// its stage consumes. The daemon calls it on start, when nothing can still be
// working on those items.
func (s *Store) ResetStuckProcessing(ctx context.Context) (int64, error) {
	n, err := s.mutate(ctx, processingStatuses(), func(item *Item) bool {
		return item.rollback("Reset from stuck processing")
	})
	if err != nil {
		return 0, fmt.Errorf("reset stuck items: %w", err)
	}
	return n, nil
}

// ReclaimStaleProcessing rolls back in-flight items whose heartbeat is older
// than cutoff. Statuses narrows the sweep; empty means every processing
// status. Items that never sent a heartbeat are left alone.
func (s *Store) ReclaimStaleProcessing(ctx context.Context, cutoff time.Time, statuses ...Status) (int64, error) {
	targets := processingStatuses()
	if len(statuses) > 0 {
		targets = targets[:0]
		for _, status := range statuses {
			if IsProcessingStatus(status) {
				targets = append(targets, status)
			}
		}
		if len(targets) == 0 {
			return 0, nil
		}
	}
	n, err := s.mutate(ctx, targets, func(item *Item) bool {
		if item.LastHeartbeat == nil || !item.LastHeartbeat.Before(cutoff) {
			return false
		}
		return item.rollback("Reclaimed from stale processing")
	})
	if err != nil {
		return 0, fmt.Errorf("reclaim stale items: %w", err)
	}
	return n, nil
}

// UpdateHeartbeat stamps an in-flight item as still alive.
func (s *Store) UpdateHeartbeat(ctx context.Context, id int64) error {
	now := time.Now().UTC()
	if _, err := s.exec(ctx, `UPDATE queue_items SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		stamp{&now}, stamp{&now}, id); err != nil {
		return fmt.Errorf("heartbeat %d: %w", id, err)
	}
	return nil
}

// RetryFailed sends failed and review items back to the stage after their
// last stored artifact (see Item.ResumeStatus). No ids means all of them.
func (s *Store) RetryFailed(ctx context.Context, ids ...int64) (int64, error) {
	wanted := make(map[int64]bool, len(ids))
	for _, id := range ids {
		wanted[id] = true
	}
	n, err := s.mutate(ctx, []Status{StatusFailed, StatusReview}, func(item *Item) bool {
		if len(wanted) > 0 && !wanted[item.ID] {
			return false
		}
		item.Status = item.ResumeStatus()
		item.ErrorMessage = ""
		item.NeedsReview = false
		item.ReviewReason = ""
		item.LastHeartbeat = nil
		item.SetProgress("Retry requested", "", 0)
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("retry items: %w", err)
	}
	return n, nil
}

// FailActive fails every in-flight item with reason. The daemon calls it on
// shutdown so interrupted jobs show up as retryable.
func (s *Store) FailActive(ctx context.Context, reason string) (int64, error) {
	n, err := s.mutate(ctx, processingStatuses(), func(item *Item) bool {
		item.SetFailed(StatusFailed, reason)
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("fail active items: %w", err)
	}
	return n, nil
}
