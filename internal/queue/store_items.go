package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ErrEmptyTopic is returned when a job is submitted without a topic.
var ErrEmptyTopic = errors.New("topic is required")

// NewItem enqueues a pending job. Blank voice, orientation and clip source
// stay blank and are filled from configuration when a stage runs.
func (s *Store) NewItem(ctx context.Context, req NewItemRequest) (*Item, error) {
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return nil, ErrEmptyTopic
	}
	now := time.Now().UTC()
	item := &Item{
		RequestID:     uuid.NewString(),
		Topic:         topic,
		Voice:         strings.TrimSpace(req.Voice),
		Orientation:   strings.ToLower(strings.TrimSpace(req.Orientation)),
		ClipSource:    strings.ToLower(strings.TrimSpace(req.ClipSource)),
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		ProgressStage: "Queued",
	}
	res, err := s.exec(ctx, insertItem, insertArgs(item)...)
	if err != nil {
		return nil, fmt.Errorf("enqueue %q: %w", topic, err)
	}
	if item.ID, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("enqueue %q: %w", topic, err)
	}
	return item, nil
}

// GetByID returns the item or nil when no row has that id.
func (s *Store) GetByID(ctx context.Context, id int64) (*Item, error) {
	return s.one(ctx, "id", id)
}

// GetByRequestID looks an item up by its public UUID; nil when absent.
func (s *Store) GetByRequestID(ctx context.Context, requestID string) (*Item, error) {
	return s.one(ctx, "request_id", requestID)
}

func (s *Store) one(ctx context.Context, key string, value any) (*Item, error) {
	item, err := scanItem(s.db.QueryRowContext(ctx, selectItems+" WHERE "+key+" = ?", value))
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("load item by %s: %w", key, err)
	}
	return item, nil
}

// Update writes every mutable column of item and bumps UpdatedAt.
func (s *Store) Update(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("update item: nil item")
	}
	item.UpdatedAt = time.Now().UTC()
	if _, err := s.exec(ctx, updateItem, updateArgs(item)...); err != nil {
		return fmt.Errorf("update item %d: %w", item.ID, err)
	}
	return nil
}

// UpdateProgress writes only the progress columns, leaving the heartbeat the
// workflow updates concurrently untouched.
func (s *Store) UpdateProgress(ctx context.Context, item *Item) error {
	if item == nil {
		return errors.New("update progress: nil item")
	}
	item.UpdatedAt = time.Now().UTC()
	_, err := s.exec(ctx,
		`UPDATE queue_items SET progress_stage = ?, progress_percent = ?, progress_message = ?, updated_at = ? WHERE id = ?`,
		text{&item.ProgressStage}, item.ProgressPercent, text{&item.ProgressMessage}, stamp{&item.UpdatedAt}, item.ID,
	)
	if err != nil {
		return fmt.Errorf("update progress %d: %w", item.ID, err)
	}
	return nil
}

// List returns items oldest first, restricted to statuses when any are given.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Item, error) {
	return s.query(ctx, statuses, "")
}

// NextForStatuses returns the oldest item in any of statuses, or nil.
func (s *Store) NextForStatuses(ctx context.Context, statuses ...Status) (*Item, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	items, err := s.query(ctx, statuses, " LIMIT 1")
	if err != nil || len(items) == 0 {
		return nil, err
	}
	return items[0], nil
}

func (s *Store) query(ctx context.Context, statuses []Status, suffix string) ([]*Item, error) {
	q := selectItems
	if len(statuses) > 0 {
		q += " WHERE status IN (" + placeholders(len(statuses)) + ")"
	}
	rows, err := s.db.QueryContext(ctx, q+" ORDER BY created_at, id"+suffix, anySlice(statuses)...)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	var items []*Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("list items: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

// Remove deletes one item and reports whether it existed.
func (s *Store) Remove(ctx context.Context, id int64) (bool, error) {
	n, err := s.delete(ctx, "WHERE id = ?", id)
	return n > 0, err
}

// ClearCompleted deletes completed items.
func (s *Store) ClearCompleted(ctx context.Context) (int64, error) {
	return s.delete(ctx, "WHERE status = ?", StatusCompleted)
}

// ClearFailed deletes failed and review items.
func (s *Store) ClearFailed(ctx context.Context) (int64, error) {
	return s.delete(ctx, "WHERE status IN (?, ?)", StatusFailed, StatusReview)
}

// Clear empties the queue.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	return s.delete(ctx, "")
}

func (s *Store) delete(ctx context.Context, where string, args ...any) (int64, error) {
	res, err := s.exec(ctx, strings.TrimSpace("DELETE FROM queue_items "+where), args...)
	if err != nil {
		return 0, fmt.Errorf("delete items: %w", err)
	}
	return res.RowsAffected()
}
