package entity

import (
	stderrors "errors"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
)

func TestStageErrorMatching(t *testing.T) {
	cause := stderrors.New("disk full")
	perr := NewProcessingError("ffmpeg crashed", cause)
	uerr := NewUploadError(ReasonTimeout, nil)

	assert.True(t, errors.Is(perr, ErrProcessing))
	assert.False(t, errors.Is(perr, ErrUpload))
	assert.True(t, stderrors.Is(perr, cause))
	assert.True(t, stderrors.Is(uerr, ErrUpload))
	assert.Equal(t, "upload failed: Timeout", uerr.Error())

	wrapped := errors.Wrapf(uerr, "job %s", "abc")
	var stage *StageError
	assert.True(t, errors.As(wrapped, &stage))
	assert.Equal(t, StageUpload, stage.Stage)
}

func TestStorageErrorMatching(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := errors.Wrap(&StorageError{Op: "get", Err: cause}, "load job")

	assert.True(t, errors.Is(err, ErrStorageUnavailable))
	assert.True(t, stderrors.Is(err, cause))
	assert.False(t, errors.Is(err, ErrNotFound))
}

func TestConflictAndNotFound(t *testing.T) {
	assert.True(t, errors.Is(NewConflictError("job %s is %s", "j1", JobStateProcessing), ErrConflict))
	assert.True(t, stderrors.Is(NewNotFoundError("j1"), ErrNotFound))
	assert.True(t, errors.Is(&ValidationError{Message: "x"}, ErrValidation))
}
