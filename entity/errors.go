package entity

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrConflict           = errors.New("job conflict")
	ErrNotFound           = errors.New("job not found")
	ErrStorageUnavailable = errors.New("job storage unavailable")
	ErrProcessing         = errors.New("processing failed")
	ErrUpload             = errors.New("upload failed")
)

const (
	StageProcessing = "processing"
	StageUpload     = "upload"

	ReasonTimeout = "Timeout"
)

// ValidationError reports a rejected submission field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// StageError is a failure of the processing or upload backend.
type StageError struct {
	Stage  string
	Reason string
	Err    error
}

func NewProcessingError(reason string, err error) *StageError {
	return &StageError{Stage: StageProcessing, Reason: reason, Err: err}
}

func NewUploadError(reason string, err error) *StageError {
	return &StageError{Stage: StageUpload, Reason: reason, Err: err}
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s failed: %s: %v", e.Stage, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s failed: %s", e.Stage, e.Reason)
}

func (e *StageError) Is(target error) bool {
	switch target {
	case ErrProcessing:
		return e.Stage == StageProcessing
	case ErrUpload:
		return e.Stage == StageUpload
	}
	return false
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// StorageError wraps a failure of the job store backend.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("job store %s: %v", e.Op, e.Err)
}

func (e *StorageError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewConflictError wraps ErrConflict with a description of the clash.
func NewConflictError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrConflict, format, args...)
}

// NewNotFoundError wraps ErrNotFound with the missing id.
func NewNotFoundError(id string) error {
	return errors.Wrapf(ErrNotFound, "job %s", id)
}
