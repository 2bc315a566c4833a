package api

import (
	"encoding/json"
	"maps"
	"slices"
	"strings"
	"time"

	"scenecast/internal/queue"
	"scenecast/internal/workflow"
)

func formatStamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(dateTimeFormat)
}

// FromQueueItem is the list view of a job: everything except the script
// and timeline, which only FromQueueItemDetail carries.
func FromQueueItem(item *queue.Item) QueueItem {
	if item == nil {
		return QueueItem{}
	}
	stage := item.Status.StageKey()
	progress := QueueProgress{Stage: item.ProgressStage, Percent: item.ProgressPercent, Message: item.ProgressMessage}
	if progress.Stage == "" {
		progress.Stage = stage
	}
	return QueueItem{
		ID:              item.ID,
		RequestID:       item.RequestID,
		Topic:           item.Topic,
		Voice:           item.Voice,
		Orientation:     item.Orientation,
		ClipSource:      item.ClipSource,
		Status:          string(item.Status),
		Stage:           stage,
		Progress:        progress,
		ErrorMessage:    item.ErrorMessage,
		DurationSeconds: item.DurationSeconds,
		OutputFile:      item.OutputFile,
		CreatedAt:       formatStamp(item.CreatedAt),
		UpdatedAt:       formatStamp(item.UpdatedAt),
		NeedsReview:     item.NeedsReview,
		ReviewReason:    item.ReviewReason,
	}
}

// FromQueueItemDetail adds the script and, when it is valid JSON, the
// stored timeline.
func FromQueueItemDetail(item *queue.Item) QueueItem {
	dto := FromQueueItem(item)
	if item == nil {
		return dto
	}
	dto.Script = item.ScriptText
	if raw := []byte(strings.TrimSpace(item.TimelineJSON)); len(raw) > 0 && json.Valid(raw) {
		dto.Timeline = raw
	}
	return dto
}

// FromQueueItems maps FromQueueItem over items; empty input gives nil.
func FromQueueItems(items []*queue.Item) []QueueItem {
	var out []QueueItem
	for _, item := range items {
		out = append(out, FromQueueItem(item))
	}
	return out
}

// FromStatusSummary flattens the workflow summary, listing stage health
// sorted by stage name.
func FromStatusSummary(summary workflow.StatusSummary) WorkflowStatus {
	wf := WorkflowStatus{
		Running:     summary.Running,
		QueueStats:  MergeQueueStats(summary.QueueStats),
		LastError:   summary.LastError,
		StageHealth: []StageHealth{},
	}
	for _, name := range slices.Sorted(maps.Keys(summary.StageHealth)) {
		h := summary.StageHealth[name]
		wf.StageHealth = append(wf.StageHealth, StageHealth{Name: name, Ready: h.Ready, Detail: h.Detail})
	}
	if summary.LastItem != nil {
		last := FromQueueItem(summary.LastItem)
		wf.LastItem = &last
	}
	return wf
}

// MergeQueueStats keys counts by status name with a zero for every status
// that has no items.
func MergeQueueStats(stats map[queue.Status]int) map[string]int {
	all := queue.AllStatuses()
	out := make(map[string]int, len(all))
	for _, status := range all {
		out[string(status)] = stats[status]
	}
	return out
}
