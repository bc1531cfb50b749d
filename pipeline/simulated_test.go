package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tnqbao/gau-focus-service/entity"
)

func TestSimulatedProcessorOutput(t *testing.T) {
	p := NewSimulatedProcessor("", 0)
	result, err := p.Process(context.Background(), &entity.Job{ID: "j1", MediaRef: "videos/session.mov"})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		ArtifactCompressed: "compressed_videos/session.mov",
		ArtifactAudio:      "audio_videos/session.mp3",
	}, result.Artifacts)
	assert.Equal(t, []string{
		"Starting media processing for videos/session.mov",
		"FFmpeg: Analyzing media file: videos/session.mov",
		"FFmpeg: Compressing video... Quality: 720p",
		"FFmpeg: Extracting audio track... Format: MP3",
		"FFmpeg: Processing completed successfully",
	}, result.Logs)
}

func TestSimulatedProcessorHonorsContext(t *testing.T) {
	p := NewSimulatedProcessor("1080p", time.Hour)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := p.Process(ctx, &entity.Job{MediaRef: "clip.mp4"})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestSimulatedProcessorRejectsEmptyMedia(t *testing.T) {
	_, err := NewSimulatedProcessor("720p", 0).Process(context.Background(), &entity.Job{})
	assert.True(t, errors.Is(err, entity.ErrProcessing))
}
