package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tnqbao/gau-focus-service/entity"
)

type focusJobRecord struct {
	ID               string         `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID          string         `gorm:"type:varchar(255);not null;index" json:"owner_id"`
	StartTime        time.Time      `gorm:"not null" json:"start_time"`
	EndTime          time.Time      `gorm:"not null" json:"end_time"`
	MediaRef         string         `gorm:"type:text;not null" json:"media_ref"`
	DurationMinutes  int            `gorm:"not null" json:"duration_minutes"`
	State            string         `gorm:"type:varchar(32);not null;index" json:"state"`
	Logs             datatypes.JSON `gorm:"not null" json:"logs"`
	Artifacts        datatypes.JSON `gorm:"not null" json:"artifacts"`
	StorageLocations datatypes.JSON `gorm:"not null" json:"storage_locations"`
	ProcessedAt      *time.Time     `json:"processed_at"`
	FinishedAt       *time.Time     `json:"finished_at"`
	CreatedAt        time.Time      `gorm:"autoCreateTime:false;index" json:"created_at"`
	UpdatedAt        time.Time      `gorm:"autoUpdateTime:false" json:"updated_at"`
}

func (focusJobRecord) TableName() string {
	return "focus_jobs"
}

func newFocusJobRecord(job *entity.Job) (*focusJobRecord, error) {
	logs := job.Logs
	if logs == nil {
		logs = []entity.LogEntry{}
	}
	logsJSON, err := json.Marshal(logs)
	if err != nil {
		return nil, errors.Wrap(err, "encode logs")
	}

	artifacts := job.Artifacts
	if artifacts == nil {
		artifacts = map[string]string{}
	}
	artifactsJSON, err := json.Marshal(artifacts)
	if err != nil {
		return nil, errors.Wrap(err, "encode artifacts")
	}

	locations := job.StorageLocations
	if locations == nil {
		locations = map[string]entity.StorageLocation{}
	}
	locationsJSON, err := json.Marshal(locations)
	if err != nil {
		return nil, errors.Wrap(err, "encode storage locations")
	}

	return &focusJobRecord{
		ID:               job.ID,
		OwnerID:          job.OwnerID,
		StartTime:        job.StartTime,
		EndTime:          job.EndTime,
		MediaRef:         job.MediaRef,
		DurationMinutes:  job.DurationMinutes,
		State:            string(job.State),
		Logs:             datatypes.JSON(logsJSON),
		Artifacts:        datatypes.JSON(artifactsJSON),
		StorageLocations: datatypes.JSON(locationsJSON),
		ProcessedAt:      job.ProcessedAt,
		FinishedAt:       job.FinishedAt,
		CreatedAt:        job.CreatedAt,
		UpdatedAt:        job.UpdatedAt,
	}, nil
}

func (r *focusJobRecord) toEntity() (*entity.Job, error) {
	job := &entity.Job{
		ID:              r.ID,
		OwnerID:         r.OwnerID,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		MediaRef:        r.MediaRef,
		DurationMinutes: r.DurationMinutes,
		State:           entity.JobState(r.State),
		Logs:            []entity.LogEntry{},
		ProcessedAt:     r.ProcessedAt,
		FinishedAt:      r.FinishedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}

	if len(r.Logs) > 0 {
		if err := json.Unmarshal(r.Logs, &job.Logs); err != nil {
			return nil, errors.Wrapf(err, "decode logs of job %s", r.ID)
		}
	}
	if len(r.Artifacts) > 0 {
		if err := json.Unmarshal(r.Artifacts, &job.Artifacts); err != nil {
			return nil, errors.Wrapf(err, "decode artifacts of job %s", r.ID)
		}
		if len(job.Artifacts) == 0 {
			job.Artifacts = nil
		}
	}
	if len(r.StorageLocations) > 0 {
		if err := json.Unmarshal(r.StorageLocations, &job.StorageLocations); err != nil {
			return nil, errors.Wrapf(err, "decode storage locations of job %s", r.ID)
		}
		if len(job.StorageLocations) == 0 {
			job.StorageLocations = nil
		}
	}
	return job, nil
}

// mutationError carries a caller's mutation failure out of the transaction
// so it is not reported as a storage outage.
type mutationError struct {
	err error
}

func (e *mutationError) Error() string { return e.err.Error() }

// JobRepository stores jobs in Postgres through gorm
type JobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) *JobRepository {
	return &JobRepository{db: db}
}

func (r *JobRepository) Migrate() error {
	return r.db.AutoMigrate(&focusJobRecord{})
}

func (r *JobRepository) Create(ctx context.Context, job *entity.Job) (string, error) {
	if job.ID == "" {
		job.ID = uuid.NewString()
	}

	record, err := newFocusJobRecord(job)
	if err != nil {
		return "", err
	}

	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(record)
	if result.Error != nil {
		return "", &entity.StorageError{Op: "create", Err: result.Error}
	}
	if result.RowsAffected == 0 {
		return "", entity.NewConflictError("job %s already exists", job.ID)
	}
	return job.ID, nil
}

func (r *JobRepository) Get(ctx context.Context, id string) (*entity.Job, error) {
	var record focusJobRecord
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&record).Error; err != nil {
		return nil, translateError("get", id, err)
	}
	job, err := record.toEntity()
	if err != nil {
		return nil, &entity.StorageError{Op: "get", Err: err}
	}
	return job, nil
}

// Update locks the row for the duration of the mutation
func (r *JobRepository) Update(ctx context.Context, id string, mutate func(*entity.Job) error) (*entity.Job, error) {
	var updated *entity.Job

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record focusJobRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(&record).Error; err != nil {
			return err
		}

		job, err := record.toEntity()
		if err != nil {
			return err
		}
		if err := mutate(job); err != nil {
			return &mutationError{err: err}
		}
		job.ID = record.ID

		next, err := newFocusJobRecord(job)
		if err != nil {
			return err
		}
		if err := tx.Save(next).Error; err != nil {
			return err
		}

		updated = job
		return nil
	})
	if err != nil {
		return nil, translateError("update", id, err)
	}
	return updated, nil
}

func (r *JobRepository) List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error) {
	filter = filter.Normalized()

	query := r.db.WithContext(ctx).Model(&focusJobRecord{})
	if filter.OwnerID != "" {
		query = query.Where("owner_id = ?", filter.OwnerID)
	}
	if filter.State != "" {
		query = query.Where("state = ?", string(filter.State))
	}

	direction := "DESC"
	if filter.Order == entity.JobOrderOldestFirst {
		direction = "ASC"
	}

	var records []focusJobRecord
	err := query.Order("created_at " + direction).Order("id " + direction).Limit(filter.Limit).Find(&records).Error
	if err != nil {
		return nil, &entity.StorageError{Op: "list", Err: err}
	}

	jobs := make([]*entity.Job, 0, len(records))
	for i := range records {
		job, err := records[i].toEntity()
		if err != nil {
			return nil, &entity.StorageError{Op: "list", Err: err}
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func translateError(op, id string, err error) error {
	var mErr *mutationError
	if errors.As(err, &mErr) {
		return mErr.err
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return entity.NewNotFoundError(id)
	}
	return &entity.StorageError{Op: op, Err: err}
}
