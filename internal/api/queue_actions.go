package api

import (
	"context"

	"scenecast/internal/queue"
)

// QueueActionService is what per-item retry and remove need from the queue.
type QueueActionService interface {
	Describe(ctx context.Context, id int64) (*QueueItem, error)
	Retry(ctx context.Context, ids []int64) (int64, error)
	Remove(ctx context.Context, ids []int64) (int64, error)
}

type RetryItemOutcome string

const (
	RetryItemUpdated   RetryItemOutcome = "retried"
	RetryItemNotFound  RetryItemOutcome = "not_found"
	RetryItemNotFailed RetryItemOutcome = "not_failed"
)

type RetryItemResult struct {
	ID        int64            `json:"id"`
	Outcome   RetryItemOutcome `json:"outcome"`
	NewStatus string           `json:"newStatus,omitempty"`
}

type RetryItemsResult struct {
	UpdatedCount int64             `json:"updatedCount"`
	Items        []RetryItemResult `json:"items"`
}

type RemoveItemOutcome string

const (
	RemoveItemRemoved    RemoveItemOutcome = "removed"
	RemoveItemNotFound   RemoveItemOutcome = "not_found"
	RemoveItemInProgress RemoveItemOutcome = "in_progress"
)

type RemoveItemResult struct {
	ID      int64             `json:"id"`
	Outcome RemoveItemOutcome `json:"outcome"`
}

type RemoveItemsResult struct {
	RemovedCount int64              `json:"removedCount"`
	Items        []RemoveItemResult `json:"items"`
}

// forEachItem looks every id up and hands visit the job, nil when it does
// not exist. The first error stops the walk.
func forEachItem(ctx context.Context, svc QueueActionService, ids []int64, visit func(id int64, item *QueueItem) error) error {
	for _, id := range ids {
		item, err := svc.Describe(ctx, id)
		if err != nil {
			return err
		}
		if err := visit(id, item); err != nil {
			return err
		}
	}
	return nil
}

// RetryItemsByID retries only failed or review jobs and reports the status
// each one resumes from.
func RetryItemsByID(ctx context.Context, svc QueueActionService, ids []int64) (RetryItemsResult, error) {
	result := RetryItemsResult{Items: make([]RetryItemResult, 0, len(ids))}
	err := forEachItem(ctx, svc, ids, func(id int64, item *QueueItem) error {
		entry := RetryItemResult{ID: id, Outcome: RetryItemNotFound}
		defer func() { result.Items = append(result.Items, entry) }()
		if item == nil {
			return nil
		}
		entry.Outcome = RetryItemNotFailed
		if status, _ := queue.ParseStatus(item.Status); status != queue.StatusFailed && status != queue.StatusReview {
			return nil
		}
		n, err := svc.Retry(ctx, []int64{id})
		if err != nil || n == 0 {
			return err
		}
		result.UpdatedCount += n
		entry.Outcome = RetryItemUpdated
		if after, err := svc.Describe(ctx, id); err == nil && after != nil {
			entry.NewStatus = after.Status
		}
		return nil
	})
	if err != nil {
		return RetryItemsResult{}, err
	}
	return result, nil
}

// RemoveItemsByID removes jobs one by one. Jobs a stage is working on are
// left alone.
func RemoveItemsByID(ctx context.Context, svc QueueActionService, ids []int64) (RemoveItemsResult, error) {
	result := RemoveItemsResult{Items: make([]RemoveItemResult, 0, len(ids))}
	err := forEachItem(ctx, svc, ids, func(id int64, item *QueueItem) error {
		entry := RemoveItemResult{ID: id, Outcome: RemoveItemNotFound}
		defer func() { result.Items = append(result.Items, entry) }()
		if item == nil {
			return nil
		}
		if queue.IsProcessingStatus(queue.Status(item.Status)) {
			entry.Outcome = RemoveItemInProgress
			return nil
		}
		n, err := svc.Remove(ctx, []int64{id})
		if err != nil || n == 0 {
			return err
		}
		result.RemovedCount += n
		entry.Outcome = RemoveItemRemoved
		return nil
	})
	if err != nil {
		return RemoveItemsResult{}, err
	}
	return result, nil
}
