package api

import (
	"cmp"
	"slices"
	"time"
)

// SortQueueItemsNewestFirst orders jobs by CreatedAt descending, breaking
// ties by ID descending. The input is not modified.
func SortQueueItemsNewestFirst(items []QueueItem) []QueueItem {
	if len(items) == 0 {
		return nil
	}
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b QueueItem) int {
		if c := ParseQueueTime(b.CreatedAt).Compare(ParseQueueTime(a.CreatedAt)); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return sorted
}

// ParseQueueTime parses an API timestamp; unparseable values yield the zero
// time.
func ParseQueueTime(value string) time.Time {
	if value == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t
	}
	return time.Time{}
}
