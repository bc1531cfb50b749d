package pipeline

import (
	"context"

	"github.com/tnqbao/gau-focus-service/entity"
)

// LocalDispatcher runs dispatched jobs on goroutines in this process
type LocalDispatcher struct {
	coordinator *Coordinator
}

func NewLocalDispatcher(coordinator *Coordinator) *LocalDispatcher {
	return &LocalDispatcher{coordinator: coordinator}
}

func (d *LocalDispatcher) Dispatch(ctx context.Context, jobID string) error {
	d.spawn(ctx, "run", jobID, d.coordinator.Run)
	return nil
}

func (d *LocalDispatcher) DispatchResume(ctx context.Context, jobID string) error {
	d.spawn(ctx, "resume", jobID, d.coordinator.Resume)
	return nil
}

func (d *LocalDispatcher) spawn(ctx context.Context, mode, jobID string, drive func(context.Context, string) (*entity.Job, error)) {
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := drive(runCtx, jobID); err != nil {
			d.coordinator.logger.WarningWithContextf(runCtx, "[Pipeline] Background %s of job %s ended with error: %v", mode, jobID, err)
		}
	}()
}
