package api

import "encoding/json"

// dateTimeFormat is used for RFC3339 timestamps in API payloads.
const dateTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// QueueItem describes a job in a transport-friendly format.
type QueueItem struct {
	ID              int64           `json:"id"`
	RequestID       string          `json:"requestId"`
	Topic           string          `json:"topic"`
	Voice           string          `json:"voice,omitempty"`
	Orientation     string          `json:"orientation"`
	ClipSource      string          `json:"clipSource"`
	Status          string          `json:"status"`
	Stage           string          `json:"stage"`
	Progress        QueueProgress   `json:"progress"`
	ErrorMessage    string          `json:"errorMessage,omitempty"`
	DurationSeconds float64         `json:"durationSeconds,omitempty"`
	OutputFile      string          `json:"outputFile,omitempty"`
	CreatedAt       string          `json:"createdAt,omitempty"`
	UpdatedAt       string          `json:"updatedAt,omitempty"`
	NeedsReview     bool            `json:"needsReview"`
	ReviewReason    string          `json:"reviewReason,omitempty"`
	Script          string          `json:"script,omitempty"`
	Timeline        json.RawMessage `json:"timeline,omitempty"`
}

// QueueProgress captures stage progress information for a job.
type QueueProgress struct {
	Stage   string  `json:"stage"`
	Percent float64 `json:"percent"`
	Message string  `json:"message"`
}

// WorkflowStatus summarizes workflow execution state.
type WorkflowStatus struct {
	Running     bool           `json:"running"`
	QueueStats  map[string]int `json:"queueStats"`
	LastError   string         `json:"lastError,omitempty"`
	LastItem    *QueueItem     `json:"lastItem,omitempty"`
	StageHealth []StageHealth  `json:"stageHealth"`
}

// StageHealth mirrors readiness reporting for workflow stages.
type StageHealth struct {
	Name   string `json:"name"`
	Ready  bool   `json:"ready"`
	Detail string `json:"detail,omitempty"`
}

// DependencyStatus captures availability of an external binary.
type DependencyStatus struct {
	Name        string `json:"name"`
	Command     string `json:"command"`
	Description string `json:"description"`
	Optional    bool   `json:"optional"`
	Available   bool   `json:"available"`
	Detail      string `json:"detail,omitempty"`
}

// DaemonStatus aggregates daemon runtime information for API consumers.
type DaemonStatus struct {
	Running      bool               `json:"running"`
	PID          int                `json:"pid"`
	QueueDBPath  string             `json:"queueDbPath"`
	LockFilePath string             `json:"lockFilePath"`
	Workflow     WorkflowStatus     `json:"workflow"`
	Dependencies []DependencyStatus `json:"dependencies"`
}

// SubmitJobRequest is the body of POST /api/jobs.
type SubmitJobRequest struct {
	Topic       string `json:"topic"`
	Voice       string `json:"voice,omitempty"`
	Orientation string `json:"orientation,omitempty"`
	ClipSource  string `json:"clipSource,omitempty"`
}

// QueueListResponse wraps a collection of jobs.
type QueueListResponse struct {
	Items []QueueItem `json:"items"`
}

// QueueItemResponse wraps a single job.
type QueueItemResponse struct {
	Item QueueItem `json:"item"`
}

// ErrorResponse is returned with every non-2xx API status.
type ErrorResponse struct {
	Error string `json:"error"`
}
