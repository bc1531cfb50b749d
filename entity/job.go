package entity

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// JobState represents the lifecycle stage of a focus session job
type JobState string

const (
	JobStateCreated       JobState = "CREATED"
	JobStateProcessing    JobState = "PROCESSING"
	JobStateProcessed     JobState = "PROCESSED"
	JobStateUploadPending JobState = "UPLOAD_PENDING"
	JobStateCompleted     JobState = "COMPLETED"
	JobStateFailed        JobState = "FAILED"
)

// IsValid reports whether s is one of the known states.
func (s JobState) IsValid() bool {
	switch s {
	case JobStateCreated, JobStateProcessing, JobStateProcessed,
		JobStateUploadPending, JobStateCompleted, JobStateFailed:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions can happen.
func (s JobState) IsTerminal() bool {
	return s == JobStateCompleted || s == JobStateFailed
}

// IsInFlight reports whether a backend call is (or was, before a crash) running.
func (s JobState) IsInFlight() bool {
	return s == JobStateProcessing || s == JobStateUploadPending
}

// CanTransitionTo enforces the forward-only state machine edges.
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobStateCreated:
		return next == JobStateProcessing
	case JobStateProcessing:
		return next == JobStateProcessed || next == JobStateFailed
	case JobStateProcessed:
		return next == JobStateUploadPending
	case JobStateUploadPending:
		return next == JobStateCompleted || next == JobStateFailed
	default:
		return false
	}
}

// LogEntry is one timestamped line of a job's processing log
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

func (e LogEntry) String() string {
	return fmt.Sprintf("[%s] %s", e.Timestamp.UTC().Format(time.RFC3339), e.Message)
}

// StorageLocation is a durable, externally reachable address for an uploaded artifact
type StorageLocation struct {
	URL         string    `json:"url"`
	Bucket      string    `json:"bucket,omitempty"`
	Key         string    `json:"key,omitempty"`
	Size        int64     `json:"size"`
	ContentType string    `json:"contentType"`
	ETag        string    `json:"etag,omitempty"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// Job is one focus session plus its processing/upload lifecycle
type Job struct {
	ID               string                     `json:"id"`
	OwnerID          string                     `json:"ownerId"`
	StartTime        time.Time                  `json:"startTime"`
	EndTime          time.Time                  `json:"endTime"`
	MediaRef         string                     `json:"mediaRef"`
	DurationMinutes  int                        `json:"durationMinutes"`
	State            JobState                   `json:"state"`
	Logs             []LogEntry                 `json:"logs"`
	Artifacts        map[string]string          `json:"artifacts,omitempty"`
	StorageLocations map[string]StorageLocation `json:"storageLocations,omitempty"`
	ProcessedAt      *time.Time                 `json:"processedAt,omitempty"`
	FinishedAt       *time.Time                 `json:"finishedAt,omitempty"`
	CreatedAt        time.Time                  `json:"createdAt"`
	UpdatedAt        time.Time                  `json:"updatedAt"`
}

// NewJob validates the submitted fields and returns a job in CREATED state.
// The id is left empty; the store assigns it.
func NewJob(ownerID string, start, end time.Time, mediaRef string, now time.Time) (*Job, error) {
	ownerID = strings.TrimSpace(ownerID)
	mediaRef = strings.TrimSpace(mediaRef)

	var missing []string
	if ownerID == "" {
		missing = append(missing, "ownerId")
	}
	if start.IsZero() {
		missing = append(missing, "startTime")
	}
	if end.IsZero() {
		missing = append(missing, "endTime")
	}
	if mediaRef == "" {
		missing = append(missing, "mediaRef")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{
			Field:   strings.Join(missing, ","),
			Message: "Missing required fields: " + strings.Join(missing, ", "),
		}
	}

	job := &Job{
		OwnerID:   ownerID,
		MediaRef:  mediaRef,
		State:     JobStateCreated,
		Logs:      []LogEntry{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := job.SetWindow(start, end); err != nil {
		return nil, err
	}
	return job, nil
}

// SetWindow sets the session window and recomputes DurationMinutes.
func (j *Job) SetWindow(start, end time.Time) error {
	if !start.Before(end) {
		return &ValidationError{Field: "endTime", Message: "End time must be after start time"}
	}
	j.StartTime = start
	j.EndTime = end
	j.DurationMinutes = RoundMinutes(end.Sub(start))
	return nil
}

// RoundMinutes rounds a positive duration to whole minutes, half up.
func RoundMinutes(d time.Duration) int {
	return int((d + 30*time.Second) / time.Minute)
}

// AppendLog adds a log line; existing entries are never touched.
func (j *Job) AppendLog(at time.Time, message string) {
	j.Logs = append(j.Logs, LogEntry{Timestamp: at, Message: message})
	j.UpdatedAt = at
}

// Transition moves the job to next, stamping the stage timestamps.
func (j *Job) Transition(next JobState, at time.Time) error {
	if !j.State.CanTransitionTo(next) {
		return errors.Newf("invalid transition: %s -> %s", j.State, next)
	}
	j.State = next
	j.UpdatedAt = at
	switch {
	case next == JobStateProcessed:
		t := at
		j.ProcessedAt = &t
	case next.IsTerminal():
		t := at
		j.FinishedAt = &t
	}
	return nil
}

// ArtifactNames returns the artifact keys in sorted order.
func (j *Job) ArtifactNames() []string {
	names := make([]string, 0, len(j.Artifacts))
	for name := range j.Artifacts {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clone returns a deep copy so callers cannot alias store-owned data.
func (j *Job) Clone() *Job {
	if j == nil {
		return nil
	}
	c := *j
	c.Logs = append(make([]LogEntry, 0, len(j.Logs)), j.Logs...)
	if j.Artifacts != nil {
		c.Artifacts = make(map[string]string, len(j.Artifacts))
		for k, v := range j.Artifacts {
			c.Artifacts[k] = v
		}
	}
	if j.StorageLocations != nil {
		c.StorageLocations = make(map[string]StorageLocation, len(j.StorageLocations))
		for k, v := range j.StorageLocations {
			c.StorageLocations[k] = v
		}
	}
	if j.ProcessedAt != nil {
		t := *j.ProcessedAt
		c.ProcessedAt = &t
	}
	if j.FinishedAt != nil {
		t := *j.FinishedAt
		c.FinishedAt = &t
	}
	return &c
}

// JobOrder selects the createdAt sort direction for listings
type JobOrder string

const (
	JobOrderNewestFirst JobOrder = "desc"
	JobOrderOldestFirst JobOrder = "asc"
)

const (
	DefaultJobListLimit = 50
	MaxJobListLimit     = 200
)

// JobFilter narrows a job listing
type JobFilter struct {
	OwnerID string
	State   JobState
	Limit   int
	Order   JobOrder
}

// Normalized applies the default limit, the hard cap and the default order.
func (f JobFilter) Normalized() JobFilter {
	if f.Limit <= 0 {
		f.Limit = DefaultJobListLimit
	}
	if f.Limit > MaxJobListLimit {
		f.Limit = MaxJobListLimit
	}
	if f.Order != JobOrderOldestFirst {
		f.Order = JobOrderNewestFirst
	}
	return f
}

// Matches reports whether job passes the owner and state filters.
func (f JobFilter) Matches(job *Job) bool {
	if f.OwnerID != "" && job.OwnerID != f.OwnerID {
		return false
	}
	if f.State != "" && job.State != f.State {
		return false
	}
	return true
}
