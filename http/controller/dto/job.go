package dto

import (
	"time"

	"github.com/tnqbao/gau-focus-service/entity"
)

// CreateFocusSessionRequestDTO accepts both the current field names and the
// legacy userId/mediaFilePath ones.
type CreateFocusSessionRequestDTO struct {
	OwnerID       string    `json:"ownerId"`
	UserID        string    `json:"userId"`
	StartTime     time.Time `json:"startTime"`
	EndTime       time.Time `json:"endTime"`
	MediaRef      string    `json:"mediaRef"`
	MediaFilePath string    `json:"mediaFilePath"`
}

func (r CreateFocusSessionRequestDTO) Owner() string {
	if r.OwnerID != "" {
		return r.OwnerID
	}
	return r.UserID
}

func (r CreateFocusSessionRequestDTO) Media() string {
	if r.MediaRef != "" {
		return r.MediaRef
	}
	return r.MediaFilePath
}

type FocusSessionResponseDTO struct {
	ID               string                            `json:"id"`
	OwnerID          string                            `json:"ownerId"`
	DurationMinutes  int                               `json:"durationMinutes"`
	State            entity.JobState                   `json:"state"`
	StorageLocations map[string]entity.StorageLocation `json:"storageLocations"`
	CreatedAt        time.Time                         `json:"createdAt"`
}

func NewFocusSessionResponse(job *entity.Job) FocusSessionResponseDTO {
	locations := job.StorageLocations
	if locations == nil {
		locations = map[string]entity.StorageLocation{}
	}
	return FocusSessionResponseDTO{
		ID:               job.ID,
		OwnerID:          job.OwnerID,
		DurationMinutes:  job.DurationMinutes,
		State:            job.State,
		StorageLocations: locations,
		CreatedAt:        job.CreatedAt,
	}
}
