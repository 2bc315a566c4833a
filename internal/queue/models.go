package queue

import (
	"strings"
	"time"
)

// Status represents the lifecycle of a queue item.
type Status string

const (
	StatusPending   Status = "pending"
	StatusScripting Status = "scripting"
	StatusScripted  Status = "scripted"
	StatusNarrating Status = "narrating"
	StatusNarrated  Status = "narrated"
	StatusSourcing  Status = "sourcing"
	StatusSourced   Status = "sourced"
	StatusRendering Status = "rendering"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusReview    Status = "review"
)

// DaemonStopReason is the error recorded on jobs interrupted by daemon shutdown.
const DaemonStopReason = "Daemon stopped"

// allStatuses is in pipeline order.
var allStatuses = []Status{
	StatusPending, StatusScripting, StatusScripted, StatusNarrating, StatusNarrated,
	StatusSourcing, StatusSourced, StatusRendering, StatusCompleted, StatusFailed, StatusReview,
}

// stageInput maps each processing status to the ready status its stage
// consumes. Rolling an interrupted item back means returning it there.
var stageInput = map[Status]Status{
	StatusScripting: StatusPending,
	StatusNarrating: StatusScripted,
	StatusSourcing:  StatusNarrated,
	StatusRendering: StatusSourced,
}

func processingStatuses() []Status {
	out := make([]Status, 0, len(stageInput))
	for _, status := range allStatuses {
		if _, ok := stageInput[status]; ok {
			out = append(out, status)
		}
	}
	return out
}

// HealthSummary buckets item counts for `scenecast queue health`.
type HealthSummary struct {
	Total      int
	Pending    int
	Processing int
	Failed     int
	Review     int
	Completed  int
}

// Item represents one short-video job persisted in SQLite. Stage artifacts
// are stored on the item so a failed job resumes from the last finished
// stage.
type Item struct {
	ID              int64
	RequestID       string
	Topic           string
	Voice           string
	Orientation     string
	ClipSource      string
	Status          Status
	ScriptText      string
	AudioFile       string
	CaptionsJSON    string
	CaptionsFile    string
	DurationSeconds float64
	WindowsJSON     string
	TimelineJSON    string
	OutputFile      string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ProgressStage   string
	ProgressPercent float64
	ProgressMessage string
	LastHeartbeat   *time.Time
	NeedsReview     bool
	ReviewReason    string
}

// NewItemRequest describes a job to enqueue.
type NewItemRequest struct {
	Topic       string
	Voice       string
	Orientation string
	ClipSource  string
}

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	status := Status(strings.ToLower(strings.TrimSpace(value)))
	for _, known := range allStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

// IsProcessing reports whether a stage is working on the item.
func (i Item) IsProcessing() bool { return IsProcessingStatus(i.Status) }

// IsProcessingStatus reports whether status belongs to a running stage.
func IsProcessingStatus(status Status) bool {
	_, ok := stageInput[status]
	return ok
}

// rollback returns an in-flight item to its stage's input status and clears
// progress. It reports false for items that are not in flight.
func (i *Item) rollback(reason string) bool {
	ready, ok := stageInput[i.Status]
	if !ok {
		return false
	}
	i.Status = ready
	i.LastHeartbeat = nil
	i.SetProgress(reason, "", 0)
	return true
}

// IsTerminal reports whether no stage will pick the item up again without
// an explicit retry.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusReview
}

// InitProgress resets progress fields for a new stage.
func (i *Item) InitProgress(stage, message string) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = 0
	i.ErrorMessage = ""
}

// SetProgress updates all three progress fields atomically.
func (i *Item) SetProgress(stage, message string, percent float64) {
	i.ProgressStage = stage
	i.ProgressMessage = message
	i.ProgressPercent = percent
}

// SetProgressComplete sets progress to 100% with the given stage and message.
func (i *Item) SetProgressComplete(stage, message string) {
	i.SetProgress(stage, message, 100)
}

// SetFailed moves the item to status (failed or review) with message.
func (i *Item) SetFailed(status Status, message string) {
	if status != StatusReview {
		status = StatusFailed
	}
	i.Status = status
	i.ErrorMessage = message
	i.ProgressPercent = 0
	i.ProgressMessage = message
	i.LastHeartbeat = nil
	if status == StatusReview {
		i.NeedsReview = true
		i.ReviewReason = message
		i.ProgressStage = "Needs review"
		return
	}
	i.ProgressStage = "Failed"
}

// ResumeStatus returns the ready status a retry should restart from, based
// on which stage artifacts are present.
func (i Item) ResumeStatus() Status {
	switch {
	case strings.TrimSpace(i.TimelineJSON) != "":
		return StatusSourced
	case strings.TrimSpace(i.CaptionsJSON) != "" && strings.TrimSpace(i.AudioFile) != "":
		return StatusNarrated
	case strings.TrimSpace(i.ScriptText) != "":
		return StatusScripted
	default:
		return StatusPending
	}
}

// StageKey returns the stage identifier used in API/CLI presentation.
func (s Status) StageKey() string {
	switch s {
	case "":
		return ""
	case StatusPending:
		return "queued"
	case StatusScripting, StatusScripted:
		return "scripting"
	case StatusNarrating, StatusNarrated:
		return "narration"
	case StatusSourcing, StatusSourced:
		return "footage"
	case StatusRendering:
		return "render"
	case StatusCompleted:
		return "final"
	case StatusFailed, StatusReview:
		return string(s)
	default:
		return ""
	}
}
