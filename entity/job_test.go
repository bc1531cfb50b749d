package entity

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var base = time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

func TestRoundMinutes(t *testing.T) {
	tests := []struct {
		name string
		d    time.Duration
		want int
	}{
		{"ninety seconds rounds up", 90 * time.Second, 2},
		{"half minute rounds up", 30 * time.Second, 1},
		{"just under half rounds down", 29 * time.Second, 0},
		{"hour and a half", 90 * time.Minute, 90},
		{"89.4 minutes", 89*time.Minute + 24*time.Second, 89},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RoundMinutes(tt.d))
		})
	}
}

func TestNewJob(t *testing.T) {
	job, err := NewJob(" u1 ", base, base.Add(90*time.Minute), " clip.mp4 ", base)
	require.NoError(t, err)

	assert.Equal(t, "u1", job.OwnerID)
	assert.Equal(t, "clip.mp4", job.MediaRef)
	assert.Equal(t, 90, job.DurationMinutes)
	assert.Equal(t, JobStateCreated, job.State)
	assert.Empty(t, job.ID)
	assert.NotNil(t, job.Logs)
}

func TestNewJobValidation(t *testing.T) {
	tests := []struct {
		name    string
		owner   string
		start   time.Time
		end     time.Time
		media   string
		message string
	}{
		{"missing owner", "  ", base, base.Add(time.Minute), "clip.mp4", "Missing required fields: ownerId"},
		{"missing media and end", "u1", base, time.Time{}, "", "Missing required fields: endTime, mediaRef"},
		{"empty window", "u1", base, base, "clip.mp4", "End time must be after start time"},
		{"inverted window", "u1", base.Add(time.Hour), base, "clip.mp4", "End time must be after start time"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := NewJob(tt.owner, tt.start, tt.end, tt.media, base)
			require.Error(t, err)
			assert.Nil(t, job)
			assert.True(t, errors.Is(err, ErrValidation))

			var verr *ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, tt.message, verr.Message)
		})
	}
}

func TestTransition(t *testing.T) {
	job, err := NewJob("u1", base, base.Add(time.Hour), "clip.mp4", base)
	require.NoError(t, err)

	require.NoError(t, job.Transition(JobStateProcessing, base.Add(time.Second)))
	require.Error(t, job.Transition(JobStateCompleted, base.Add(2*time.Second)))
	assert.Equal(t, JobStateProcessing, job.State)

	require.NoError(t, job.Transition(JobStateProcessed, base.Add(3*time.Second)))
	require.NotNil(t, job.ProcessedAt)
	assert.Equal(t, base.Add(3*time.Second), *job.ProcessedAt)

	require.NoError(t, job.Transition(JobStateUploadPending, base.Add(4*time.Second)))
	require.NoError(t, job.Transition(JobStateCompleted, base.Add(5*time.Second)))
	require.NotNil(t, job.FinishedAt)
	assert.True(t, job.State.IsTerminal())

	for _, next := range []JobState{JobStateCreated, JobStateProcessing, JobStateFailed} {
		assert.Error(t, job.Transition(next, base), "terminal job moved to %s", next)
	}
}

func TestStateMachineEdges(t *testing.T) {
	assert.True(t, JobStateProcessing.CanTransitionTo(JobStateFailed))
	assert.True(t, JobStateUploadPending.CanTransitionTo(JobStateFailed))
	assert.False(t, JobStateProcessed.CanTransitionTo(JobStateFailed))
	assert.False(t, JobStateCreated.CanTransitionTo(JobStateCompleted))
	assert.False(t, JobState("DONE").IsValid())
	assert.True(t, JobStateUploadPending.IsInFlight())
	assert.False(t, JobStateProcessed.IsInFlight())
}

func TestCloneDoesNotAlias(t *testing.T) {
	job, err := NewJob("u1", base, base.Add(time.Hour), "clip.mp4", base)
	require.NoError(t, err)
	job.AppendLog(base, "first")
	job.Artifacts = map[string]string{"audio": "audio_clip.mp3"}
	job.StorageLocations = map[string]StorageLocation{"audio": {URL: "https://example"}}
	processed := base
	job.ProcessedAt = &processed

	c := job.Clone()
	c.Logs[0].Message = "changed"
	c.AppendLog(base, "second")
	c.Artifacts["audio"] = "other"
	c.StorageLocations["audio"] = StorageLocation{}
	*c.ProcessedAt = base.Add(time.Hour)

	assert.Equal(t, "first", job.Logs[0].Message)
	assert.Len(t, job.Logs, 1)
	assert.Equal(t, "audio_clip.mp3", job.Artifacts["audio"])
	assert.Equal(t, "https://example", job.StorageLocations["audio"].URL)
	assert.Equal(t, base, *job.ProcessedAt)
}

func TestJobFilter(t *testing.T) {
	f := JobFilter{}.Normalized()
	assert.Equal(t, DefaultJobListLimit, f.Limit)
	assert.Equal(t, JobOrderNewestFirst, f.Order)

	f = JobFilter{Limit: 1000, Order: JobOrderOldestFirst}.Normalized()
	assert.Equal(t, MaxJobListLimit, f.Limit)
	assert.Equal(t, JobOrderOldestFirst, f.Order)

	job := &Job{OwnerID: "u1", State: JobStateCompleted}
	assert.True(t, JobFilter{}.Matches(job))
	assert.True(t, JobFilter{OwnerID: "u1", State: JobStateCompleted}.Matches(job))
	assert.False(t, JobFilter{OwnerID: "u2"}.Matches(job))
	assert.False(t, JobFilter{State: JobStateFailed}.Matches(job))
}

func TestArtifactNamesSorted(t *testing.T) {
	job := &Job{Artifacts: map[string]string{"compressed": "a", "audio": "b"}}
	assert.Equal(t, []string{"audio", "compressed"}, job.ArtifactNames())
}
