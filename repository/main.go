package repository

import (
	"context"

	"github.com/tnqbao/gau-focus-service/entity"
	"github.com/tnqbao/gau-focus-service/infra"
)

// JobStore is the durable record of focus session jobs.
type JobStore interface {
	// Create assigns job.ID when empty and persists the job.
	Create(ctx context.Context, job *entity.Job) (string, error)
	Get(ctx context.Context, id string) (*entity.Job, error)
	// Update applies mutate atomically; a mutation error leaves the record untouched.
	Update(ctx context.Context, id string, mutate func(*entity.Job) error) (*entity.Job, error)
	List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error)
}

type Repository struct {
	JobRepo JobStore
}

// InitRepository picks the gorm store when Postgres is wired, the memory store otherwise.
func InitRepository(infra *infra.Infra) *Repository {
	if infra.Postgres == nil {
		return NewRepository(NewMemoryJobRepository())
	}

	jobRepo := NewJobRepository(infra.Postgres.DB)
	if err := jobRepo.Migrate(); err != nil {
		panic("Failed to migrate job table: " + err.Error())
	}
	return NewRepository(jobRepo)
}

func NewRepository(jobRepo JobStore) *Repository {
	return &Repository{JobRepo: jobRepo}
}
