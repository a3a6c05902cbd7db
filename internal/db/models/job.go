package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Database field name constants used by repositories
const (
	// JobCreatedAtField is the database field name for the job creation timestamp
	JobCreatedAtField = "created_at"
	// JobUpdatedAtField is the database field name for the job update timestamp
	JobUpdatedAtField = "updated_at"
	// JobStatusField is the database field name for the job status
	JobStatusField = "status"
	// JobAttemptsField is the database field name for the attempt counter
	JobAttemptsField = "attempts"
	// JobImagesField is the database field name for the produced artifacts
	JobImagesField = "images"
	// JobErrorKindField is the database field name for the failure classification
	JobErrorKindField = "error_kind"
	// JobErrorMsgField is the database field name for the failure detail
	JobErrorMsgField = "error_msg"
)

// JobIDPrefix is prepended to every generated job ID
const JobIDPrefix = "bn_"

// JobStatus represents the current state of a job in the system
type JobStatus int

// Job status constants
const (
	// JobStatusUnknown represents an unknown or invalid job status
	JobStatusUnknown JobStatus = iota
	// JobStatusQueued indicates the job is waiting for a worker slot
	JobStatusQueued
	// JobStatusRunning indicates the job is being executed against the model service
	JobStatusRunning
	// JobStatusCompleted indicates the job has finished successfully
	JobStatusCompleted
	// JobStatusFailed indicates the job has failed to complete
	JobStatusFailed
)

var jobStatusNames = []string{
	"unknown",
	"queued",
	"running",
	"completed",
	"failed",
}

// ParseJobStatus converts a string representation of a job status to JobStatus type
func ParseJobStatus(str string) (JobStatus, error) {
	for i, status := range jobStatusNames {
		if status == str {
			return JobStatus(i), nil
		}
	}
	return JobStatusUnknown, fmt.Errorf("invalid job status: %s", str)
}

func (s JobStatus) String() string {
	if int(s) < 0 || int(s) >= len(jobStatusNames) {
		return jobStatusNames[JobStatusUnknown]
	}
	return jobStatusNames[s]
}

// IsTerminal reports whether the status accepts no further transitions.
func (s JobStatus) IsTerminal() bool {
	return s == JobStatusCompleted || s == JobStatusFailed
}

// MarshalJSON implements the json.Marshaler interface for JobStatus
func (s JobStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON implements the json.Unmarshaler interface for JobStatus
func (s *JobStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	status, err := ParseJobStatus(str)
	if err != nil {
		return err
	}

	*s = status
	return nil
}

// ValidTransition reports whether the state machine permits moving from one
// status to another. The only edge that skips Running is user cancellation
// of a job that never started an attempt.
func ValidTransition(from, to JobStatus) bool {
	switch from {
	case JobStatusQueued:
		return to == JobStatusRunning || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusRunning || to == JobStatusCompleted || to == JobStatusFailed
	default:
		return false
	}
}

// JobKind distinguishes fresh generations from edits of an existing image
type JobKind string

// Job kind constants
const (
	// JobKindGenerate creates a new image from a text prompt
	JobKindGenerate JobKind = "generate"
	// JobKindEdit modifies an existing source image guided by a text prompt
	JobKindEdit JobKind = "edit"
)

// ErrorKind classifies why a job failed
type ErrorKind string

// Error kind constants
const (
	// ErrorKindNone means the job has not failed
	ErrorKindNone ErrorKind = ""
	// ErrorKindTransient is a retryable failure (timeout, rate limit, 5xx)
	ErrorKindTransient ErrorKind = "transient"
	// ErrorKindExhausted means transient failures persisted past the attempt bound
	ErrorKindExhausted ErrorKind = "transient_exhausted"
	// ErrorKindPermanent is a failure that will not succeed on retry
	ErrorKindPermanent ErrorKind = "permanent"
	// ErrorKindCancelled is a user-initiated abort
	ErrorKindCancelled ErrorKind = "cancelled"
	// ErrorKindUnknown is an unrecognized failure; the engine fails closed
	// and treats it as permanent
	ErrorKindUnknown ErrorKind = "unknown"
)

// Params is the immutable snapshot of generation parameters taken at
// submission time. Later configuration changes never affect a created job.
type Params struct {
	Model       string `json:"model"`
	AspectRatio string `json:"aspect_ratio"`
	Size        string `json:"size"`
	NumImages   int    `json:"num_images"`
	// InputData holds the base64-encoded source image for edit jobs so a
	// resumed job never re-reads the filesystem.
	InputData string `json:"input_data,omitempty" gorm:"type:text"`
	InputMIME string `json:"input_mime,omitempty"`
}

// Image is one produced artifact. Data is cleared by the front end once the
// artifact has been written to Path.
type Image struct {
	Index    int    `json:"index"`
	MIMEType string `json:"mime_type"`
	Data     string `json:"data,omitempty"`
	Path     string `json:"path,omitempty"`
}

// Images is the ordered artifact list, stored as a JSON column
type Images []Image

// Value implements driver.Valuer for database storage
func (i Images) Value() (driver.Value, error) {
	if i == nil {
		i = Images{}
	}
	b, err := json.Marshal(i)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for database retrieval
func (i *Images) Scan(value interface{}) error {
	if value == nil {
		*i = Images{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, i)
	case string:
		return json.Unmarshal([]byte(v), i)
	default:
		return fmt.Errorf("unsupported type for Images: %T", value)
	}
}

// Job represents one tracked image generation or edit request and its full
// lifecycle record
type Job struct {
	ID          string    `json:"id" gorm:"primaryKey"`
	Kind        JobKind   `json:"kind" gorm:"not null;index"`
	Prompt      string    `json:"prompt" gorm:"not null;type:text"`
	SourceImage string    `json:"source_image,omitempty" gorm:"type:text"`
	Params      Params    `json:"params" gorm:"embedded;embeddedPrefix:param_"`
	Status      JobStatus `json:"status" gorm:"index"`
	Attempts    int       `json:"attempts" gorm:"not null;default:0"`
	Images      Images    `json:"images" gorm:"type:text"`
	ErrorKind   ErrorKind `json:"error_kind,omitempty"`
	ErrorMsg    string    `json:"error,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewJobID generates a fresh short job identifier, e.g. "bn_1a2b3c4d".
func NewJobID() string {
	return JobIDPrefix + uuid.NewString()[:8]
}

// NewGenerateJob builds a queued generation job with an immutable parameter
// snapshot.
func NewGenerateJob(prompt string, params Params) *Job {
	now := time.Now().UTC()
	return &Job{
		ID:        NewJobID(),
		Kind:      JobKindGenerate,
		Prompt:    prompt,
		Params:    params,
		Status:    JobStatusQueued,
		Images:    Images{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewEditJob builds a queued edit job. sourceImage is the original path kept
// for display; the resolved bytes travel in params.InputData.
func NewEditJob(prompt, sourceImage string, params Params) *Job {
	job := NewGenerateJob(prompt, params)
	job.Kind = JobKindEdit
	job.SourceImage = sourceImage
	return job
}

// PromptPreview returns the prompt truncated for table display.
func (j *Job) PromptPreview(maxLen int) string {
	if len(j.Prompt) <= maxLen {
		return j.Prompt
	}
	if maxLen <= 3 {
		return j.Prompt[:maxLen]
	}
	return j.Prompt[:maxLen-3] + "..."
}
