package pipeline

import (
	"context"

	"github.com/tnqbao/gau-focus-service/entity"
)

// Processor turns a job's media into named artifacts. Implementations must be
// safe for concurrent jobs and must not touch the job store.
type Processor interface {
	Process(ctx context.Context, job *entity.Job) (*ProcessingResult, error)
}

type ProcessingResult struct {
	Artifacts map[string]string
	Logs      []string
}

// Uploader stores artifacts and returns where each one ended up. Artifacts it
// could not place are reported in Failed, never dropped.
type Uploader interface {
	Upload(ctx context.Context, jobID string, artifacts map[string]string) (*UploadResult, error)
}

type UploadResult struct {
	Locations map[string]entity.StorageLocation
	Failed    map[string]string // artifact name -> reason
	Logs      []string
}

// Dispatcher hands a job to whatever will run it, in this process or elsewhere.
type Dispatcher interface {
	// Dispatch schedules a Run of a CREATED job.
	Dispatch(ctx context.Context, jobID string) error
	// DispatchResume schedules a Resume of a job left in flight.
	DispatchResume(ctx context.Context, jobID string) error
}

// Store is the job persistence the coordinator depends on.
type Store interface {
	Create(ctx context.Context, job *entity.Job) (string, error)
	Get(ctx context.Context, id string) (*entity.Job, error)
	Update(ctx context.Context, id string, mutate func(*entity.Job) error) (*entity.Job, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error)
}

type Logger interface {
	InfoWithContextf(ctx context.Context, format string, args ...interface{})
	WarningWithContextf(ctx context.Context, format string, args ...interface{})
	ErrorWithContextf(ctx context.Context, err error, format string, args ...interface{})
}

type discardLogger struct{}

func (discardLogger) InfoWithContextf(context.Context, string, ...interface{}) {}
func (discardLogger) WarningWithContextf(context.Context, string, ...interface{}) {}
func (discardLogger) ErrorWithContextf(context.Context, error, string, ...interface{}) {}
