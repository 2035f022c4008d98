package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const (
	JobStatusPending    = "pending"
	JobStatusProcessing = "processing"
	JobStatusCompleted  = "completed"
	JobStatusFailed     = "failed"
)

// GenerationJob is one asynchronous unit of question-generation work.
// Terminal states are completed and failed; a terminal job never changes
// again, so repeated status reads return identical payloads.
type GenerationJob struct {
	ID           uuid.UUID       `json:"id"`
	UserID       uuid.UUID       `json:"user_id"`
	Request      json.RawMessage `json:"request"`
	Status       string          `json:"status"`
	Questions    json.RawMessage `json:"questions,omitempty"`
	TotalChunks  int             `json:"total_chunks"`
	ProcessingMs int64           `json:"processing_time_ms"`
	RetryCount   int             `json:"retry_count"`
	MaxRetries   int             `json:"max_retries"`
	ErrorMessage *string         `json:"error_message"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at"`
}

func (j *GenerationJob) Terminal() bool {
	return j.Status == JobStatusCompleted || j.Status == JobStatusFailed
}

// GenerationResult is the payload embedded in a completed status response.
type GenerationResult struct {
	Questions      json.RawMessage `json:"questions"`
	TotalChunks    int             `json:"totalChunks"`
	ProcessingTime int64           `json:"processingTime"`
}

// GenerationStatus is the wire shape of GET /api/status/{jobId}.
type GenerationStatus struct {
	JobID  string            `json:"jobId"`
	Status string            `json:"status"`
	Result *GenerationResult `json:"result,omitempty"`
	Error  string            `json:"error,omitempty"`
}

// PendingJob tracks the one in-flight generation a client may resume
// polling after a reload.
type PendingJob struct {
	JobID     uuid.UUID `json:"job_id"`
	StartedAt time.Time `json:"started_at"`
}

// API error response envelope
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
