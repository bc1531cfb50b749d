package pipeline

import (
	"context"
	"path"
	"strings"
	"time"

	"github.com/tnqbao/gau-focus-service/entity"
)

const (
	ArtifactCompressed = "compressed"
	ArtifactAudio      = "audio"
)

// SimulatedProcessor fakes an FFmpeg run: it emits the usual progress lines
// and names the outputs after the input, without reading any media.
type SimulatedProcessor struct {
	Quality     string
	AudioFormat string
	Delay       time.Duration
}

func NewSimulatedProcessor(quality string, delay time.Duration) *SimulatedProcessor {
	if quality == "" {
		quality = "720p"
	}
	return &SimulatedProcessor{Quality: quality, AudioFormat: "mp3", Delay: delay}
}

func (p *SimulatedProcessor) Process(ctx context.Context, job *entity.Job) (*ProcessingResult, error) {
	if job.MediaRef == "" {
		return nil, entity.NewProcessingError("media reference is empty", nil)
	}

	if p.Delay > 0 {
		timer := time.NewTimer(p.Delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	format := p.AudioFormat
	if format == "" {
		format = "mp3"
	}

	return &ProcessingResult{
		Artifacts: map[string]string{
			ArtifactCompressed: "compressed_" + job.MediaRef,
			ArtifactAudio:      "audio_" + replaceExt(job.MediaRef, "."+format),
		},
		Logs: []string{
			"Starting media processing for " + job.MediaRef,
			"FFmpeg: Analyzing media file: " + job.MediaRef,
			"FFmpeg: Compressing video... Quality: " + p.Quality,
			"FFmpeg: Extracting audio track... Format: " + strings.ToUpper(format),
			"FFmpeg: Processing completed successfully",
		},
	}, nil
}

func replaceExt(name, ext string) string {
	return strings.TrimSuffix(name, path.Ext(name)) + ext
}
