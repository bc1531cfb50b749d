package pipeline

import (
	"time"

	"github.com/tnqbao/gau-focus-service/entity"
)

// LogReport is the processing history of one job
type LogReport struct {
	JobID                      string            `json:"jobId"`
	OwnerID                    string            `json:"ownerId"`
	MediaRef                   string            `json:"mediaRef"`
	State                      entity.JobState   `json:"state"`
	Logs                       []entity.LogEntry `json:"logs"`
	LogCount                   int               `json:"logCount"`
	DurationMinutes            int               `json:"durationMinutes"`
	CreatedAt                  time.Time         `json:"createdAt"`
	ProcessedAt                *time.Time        `json:"processedAt"`
	FinishedAt                 *time.Time        `json:"finishedAt"`
	TotalProcessingTimeSeconds *int64            `json:"totalProcessingTimeSeconds"`
	LastUpdated                time.Time         `json:"lastUpdated"`
}

func NewLogReport(job *entity.Job) *LogReport {
	logs := job.Logs
	if logs == nil {
		logs = []entity.LogEntry{}
	}

	report := &LogReport{
		JobID:           job.ID,
		OwnerID:         job.OwnerID,
		MediaRef:        job.MediaRef,
		State:           job.State,
		Logs:            logs,
		LogCount:        len(logs),
		DurationMinutes: job.DurationMinutes,
		CreatedAt:       job.CreatedAt,
		ProcessedAt:     job.ProcessedAt,
		FinishedAt:      job.FinishedAt,
		LastUpdated:     job.UpdatedAt,
	}

	end := job.FinishedAt
	if end == nil {
		end = job.ProcessedAt
	}
	if end != nil {
		secs := int64((end.Sub(job.CreatedAt) + 500*time.Millisecond) / time.Second)
		report.TotalProcessingTimeSeconds = &secs
	}
	return report
}
