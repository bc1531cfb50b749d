package repository

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/tnqbao/gau-focus-service/entity"
)

type memoryJobEntry struct {
	mu  sync.Mutex
	job *entity.Job
	seq uint64
}

// MemoryJobRepository keeps jobs in process memory. Each record has its own
// lock so updates to different jobs never contend.
type MemoryJobRepository struct {
	mu   sync.RWMutex
	jobs map[string]*memoryJobEntry
	seq  uint64
}

func NewMemoryJobRepository() *MemoryJobRepository {
	return &MemoryJobRepository{jobs: make(map[string]*memoryJobEntry)}
}

func (r *MemoryJobRepository) Create(ctx context.Context, job *entity.Job) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.jobs[job.ID]; exists {
		return "", entity.NewConflictError("job %s already exists", job.ID)
	}
	r.seq++
	r.jobs[job.ID] = &memoryJobEntry{job: job.Clone(), seq: r.seq}
	return job.ID, nil
}

func (r *MemoryJobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := r.entry(id)
	if !ok {
		return nil, entity.NewNotFoundError(id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.job.Clone(), nil
}

func (r *MemoryJobRepository) Update(ctx context.Context, id string, mutate func(*entity.Job) error) (*entity.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	entry, ok := r.entry(id)
	if !ok {
		return nil, entity.NewNotFoundError(id)
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	working := entry.job.Clone()
	if err := mutate(working); err != nil {
		return nil, err
	}
	working.ID = id
	entry.job = working
	return working.Clone(), nil
}

func (r *MemoryJobRepository) List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filter = filter.Normalized()

	type listed struct {
		job *entity.Job
		seq uint64
	}

	r.mu.RLock()
	entries := make([]*memoryJobEntry, 0, len(r.jobs))
	for _, entry := range r.jobs {
		entries = append(entries, entry)
	}
	r.mu.RUnlock()

	matched := make([]listed, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		if filter.Matches(entry.job) {
			matched = append(matched, listed{job: entry.job.Clone(), seq: entry.seq})
		}
		entry.mu.Unlock()
	}

	sort.Slice(matched, func(i, j int) bool {
		a, b := matched[i], matched[j]
		if !a.job.CreatedAt.Equal(b.job.CreatedAt) {
			if filter.Order == entity.JobOrderOldestFirst {
				return a.job.CreatedAt.Before(b.job.CreatedAt)
			}
			return a.job.CreatedAt.After(b.job.CreatedAt)
		}
		if filter.Order == entity.JobOrderOldestFirst {
			return a.seq < b.seq
		}
		return a.seq > b.seq
	})

	if len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	jobs := make([]*entity.Job, 0, len(matched))
	for _, m := range matched {
		jobs = append(jobs, m.job)
	}
	return jobs, nil
}

func (r *MemoryJobRepository) entry(id string) (*memoryJobEntry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	entry, ok := r.jobs[id]
	return entry, ok
}
