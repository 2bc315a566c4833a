package api

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"scenecast/internal/clips"
	"scenecast/internal/config"
	"scenecast/internal/queue"
)

// ErrInvalidRequest marks submissions rejected before reaching the store.
var ErrInvalidRequest = errors.New("invalid request")

// QueueStore abstracts the queue persistence the API needs.
type QueueStore interface {
	List(ctx context.Context, statuses ...queue.Status) ([]*queue.Item, error)
	Stats(ctx context.Context) (map[queue.Status]int, error)
	GetByID(ctx context.Context, id int64) (*queue.Item, error)
	NewItem(ctx context.Context, req queue.NewItemRequest) (*queue.Item, error)
	RetryFailed(ctx context.Context, ids ...int64) (int64, error)
	Remove(ctx context.Context, id int64) (bool, error)
}

// QueueService exposes queue operations returning API DTOs.
type QueueService struct {
	store QueueStore
}

// NewQueueService constructs a QueueService around the provided store.
func NewQueueService(store QueueStore) *QueueService {
	if store == nil {
		return nil
	}
	return &QueueService{store: store}
}

// List returns jobs filtered by status.
func (s *QueueService) List(ctx context.Context, statuses ...queue.Status) ([]QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	items, err := s.store.List(ctx, statuses...)
	if err != nil {
		return nil, err
	}
	return FromQueueItems(items), nil
}

// Stats returns queue counts keyed by status string.
func (s *QueueService) Stats(ctx context.Context) (map[string]int, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	return MergeQueueStats(stats), nil
}

// Describe fetches a single job with its script and timeline.
func (s *QueueService) Describe(ctx context.Context, id int64) (*QueueItem, error) {
	if s == nil || s.store == nil {
		return nil, nil
	}
	item, err := s.store.GetByID(ctx, id)
	if err != nil || item == nil {
		return nil, err
	}
	dto := FromQueueItemDetail(item)
	return &dto, nil
}

// Submit validates and enqueues a job.
func (s *QueueService) Submit(ctx context.Context, req SubmitJobRequest) (QueueItem, error) {
	if s == nil || s.store == nil {
		return QueueItem{}, errors.New("queue store unavailable")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return QueueItem{}, fmt.Errorf("%w: topic is required", ErrInvalidRequest)
	}
	orientation := strings.TrimSpace(req.Orientation)
	if orientation != "" {
		parsed, err := clips.ParseOrientation(orientation)
		if err != nil {
			return QueueItem{}, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
		}
		orientation = string(parsed)
	}
	source := strings.ToLower(strings.TrimSpace(req.ClipSource))
	switch source {
	case "", config.ClipSourceStock, config.ClipSourceGenerated:
	default:
		return QueueItem{}, fmt.Errorf("%w: clip source must be %q or %q", ErrInvalidRequest, config.ClipSourceStock, config.ClipSourceGenerated)
	}

	item, err := s.store.NewItem(ctx, queue.NewItemRequest{
		Topic:       topic,
		Voice:       req.Voice,
		Orientation: orientation,
		ClipSource:  source,
	})
	if err != nil {
		return QueueItem{}, err
	}
	return FromQueueItem(item), nil
}

// Retry moves failed or review jobs back to the stage after their last
// stored artifact.
func (s *QueueService) Retry(ctx context.Context, ids []int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	return s.store.RetryFailed(ctx, ids...)
}

// Remove deletes the given jobs.
func (s *QueueService) Remove(ctx context.Context, ids []int64) (int64, error) {
	if s == nil || s.store == nil {
		return 0, errors.New("queue store unavailable")
	}
	var removed int64
	for _, id := range ids {
		ok, err := s.store.Remove(ctx, id)
		if err != nil {
			return removed, err
		}
		if ok {
			removed++
		}
	}
	return removed, nil
}
