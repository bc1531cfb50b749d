package pipeline

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tnqbao/gau-focus-service/entity"
)

var errStageTimeout = errors.New("stage timed out")

// JobSpec is what a caller submits to start a focus session job
type JobSpec struct {
	OwnerID   string
	StartTime time.Time
	EndTime   time.Time
	MediaRef  string
}

type Options struct {
	ProcessTimeout time.Duration // zero disables the deadline
	UploadTimeout  time.Duration
	Dispatcher     Dispatcher // defaults to a LocalDispatcher
	Logger         Logger
	Now            func() time.Time
}

// Coordinator drives jobs through Processing then Upload, persisting every
// transition before starting the next stage. At most one run per job is in
// flight in this process.
type Coordinator struct {
	store      Store
	processor  Processor
	uploader   Uploader
	dispatcher Dispatcher
	logger     Logger
	registry   *registry
	metrics    *pipelineMetrics
	tracer     trace.Tracer
	now        func() time.Time

	processTimeout time.Duration
	uploadTimeout  time.Duration
}

func NewCoordinator(store Store, processor Processor, uploader Uploader, opts Options) *Coordinator {
	c := &Coordinator{
		store:          store,
		processor:      processor,
		uploader:       uploader,
		dispatcher:     opts.Dispatcher,
		logger:         opts.Logger,
		registry:       newRegistry(),
		metrics:        newPipelineMetrics(otel.Meter(instrumentationName)),
		tracer:         otel.Tracer(instrumentationName),
		now:            opts.Now,
		processTimeout: opts.ProcessTimeout,
		uploadTimeout:  opts.UploadTimeout,
	}
	if c.logger == nil {
		c.logger = discardLogger{}
	}
	if c.now == nil {
		c.now = func() time.Time { return time.Now().UTC() }
	}
	if c.dispatcher == nil {
		c.dispatcher = &LocalDispatcher{coordinator: c}
	}
	return c
}

// Submit validates spec, creates the job and drives it to a terminal state.
// The run is detached from ctx: if the caller goes away Submit returns
// ctx.Err() with the CREATED snapshot and the run still completes.
func (c *Coordinator) Submit(ctx context.Context, spec JobSpec) (*entity.Job, error) {
	job, err := c.create(ctx, spec, false)
	if err != nil {
		return nil, err
	}
	return c.detach(ctx, job, c.Run)
}

// SubmitAsync validates and creates the job, hands it to the dispatcher and
// returns the CREATED snapshot.
func (c *Coordinator) SubmitAsync(ctx context.Context, spec JobSpec) (*entity.Job, error) {
	job, err := c.create(ctx, spec, true)
	if err != nil {
		return nil, err
	}

	if err := c.dispatcher.Dispatch(ctx, job.ID); err != nil {
		c.logger.ErrorWithContextf(ctx, err, "[Pipeline] Failed to dispatch job %s", job.ID)
		return job, errors.Wrapf(err, "dispatch job %s", job.ID)
	}
	return job, nil
}

// Run drives a CREATED job. A job that is already running, here or per the
// store, or that has moved past CREATED yields Conflict and is left untouched.
func (c *Coordinator) Run(ctx context.Context, id string) (*entity.Job, error) {
	if !c.registry.acquire(id) {
		return nil, entity.NewConflictError("job %s is already running", id)
	}
	defer c.registry.release(id)

	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State != entity.JobStateCreated {
		return nil, entity.NewConflictError("job %s is %s", id, job.State)
	}

	return c.drive(ctx, job)
}

// Resume re-drives a non-terminal job from the stage recorded in the store,
// for jobs orphaned by a crash mid-run. Like Submit, the run outlives ctx.
func (c *Coordinator) Resume(ctx context.Context, id string) (*entity.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() {
		return nil, entity.NewConflictError("job %s is already %s", id, job.State)
	}
	return c.detach(ctx, job, c.resume)
}

func (c *Coordinator) resume(ctx context.Context, id string) (*entity.Job, error) {
	if !c.registry.acquire(id) {
		return nil, entity.NewConflictError("job %s is already running", id)
	}
	defer c.registry.release(id)

	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() {
		return nil, entity.NewConflictError("job %s is already %s", id, job.State)
	}

	c.logger.InfoWithContextf(ctx, "[Pipeline] Resuming job %s from %s", id, job.State)
	return c.drive(ctx, job)
}

// detach runs drive under a context that ignores the caller's cancellation.
// If ctx ends first it returns ctx.Err() with the snapshot and the run goes on.
func (c *Coordinator) detach(ctx context.Context, snapshot *entity.Job, drive func(context.Context, string) (*entity.Job, error)) (*entity.Job, error) {
	type outcome struct {
		job *entity.Job
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		job, err := drive(context.WithoutCancel(ctx), snapshot.ID)
		done <- outcome{job: job, err: err}
	}()

	select {
	case out := <-done:
		return out.job, out.err
	case <-ctx.Done():
		c.logger.WarningWithContextf(ctx, "[Pipeline] Caller left before job %s finished; run continues", snapshot.ID)
		return snapshot, ctx.Err()
	}
}

// ResumeAsync checks the job can be resumed and hands it to the dispatcher
func (c *Coordinator) ResumeAsync(ctx context.Context, id string) (*entity.Job, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.State.IsTerminal() {
		return nil, entity.NewConflictError("job %s is already %s", id, job.State)
	}
	if err := c.dispatcher.DispatchResume(ctx, id); err != nil {
		return job, errors.Wrapf(err, "dispatch resume of job %s", id)
	}
	return job, nil
}

func (c *Coordinator) Get(ctx context.Context, id string) (*entity.Job, error) {
	return c.store.Get(ctx, id)
}

func (c *Coordinator) List(ctx context.Context, filter entity.JobFilter) ([]*entity.Job, error) {
	return c.store.List(ctx, filter)
}

// Logs returns the job's log history with timing details
func (c *Coordinator) Logs(ctx context.Context, id string) (*LogReport, error) {
	job, err := c.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return NewLogReport(job), nil
}

// ActiveRuns is the number of runs in flight in this process
func (c *Coordinator) ActiveRuns() int {
	return c.registry.size()
}

func (c *Coordinator) create(ctx context.Context, spec JobSpec, async bool) (*entity.Job, error) {
	job, err := entity.NewJob(spec.OwnerID, spec.StartTime, spec.EndTime, spec.MediaRef, c.now())
	if err != nil {
		return nil, err
	}
	if _, err := c.store.Create(ctx, job); err != nil {
		return nil, errors.Wrap(err, "create job")
	}

	c.metrics.recordSubmitted(ctx, async)
	c.logger.InfoWithContextf(ctx, "[Pipeline] Created job %s for owner %s (%d min, media %s)",
		job.ID, job.OwnerID, job.DurationMinutes, job.MediaRef)
	return job.Clone(), nil
}

func (c *Coordinator) drive(ctx context.Context, job *entity.Job) (*entity.Job, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.run", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.String("job.start_state", string(job.State)),
	))
	defer span.End()

	var err error
	for !job.State.IsTerminal() {
		switch job.State {
		case entity.JobStateCreated:
			job, err = c.advance(ctx, job.ID, entity.JobStateProcessing, "Processing started")
		case entity.JobStateProcessing:
			job, err = c.process(ctx, job)
		case entity.JobStateProcessed:
			job, err = c.advance(ctx, job.ID, entity.JobStateUploadPending,
				fmt.Sprintf("Upload started for %d artifacts", len(job.Artifacts)))
		case entity.JobStateUploadPending:
			job, err = c.upload(ctx, job)
		default:
			err = errors.Newf("job %s has unknown state %q", job.ID, job.State)
		}

		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if job != nil && job.State.IsTerminal() {
				c.metrics.recordFinished(ctx, job.State)
			}
			return job, err
		}
	}

	c.metrics.recordFinished(ctx, job.State)
	c.logger.InfoWithContextf(ctx, "[Pipeline] Job %s finished as %s", job.ID, job.State)
	return job, nil
}

// advance persists a plain state change plus one log line
func (c *Coordinator) advance(ctx context.Context, id string, next entity.JobState, message string) (*entity.Job, error) {
	return c.store.Update(ctx, id, func(job *entity.Job) error {
		now := c.now()
		if err := transition(job, next, now); err != nil {
			return err
		}
		job.AppendLog(now, message)
		return nil
	})
}

func (c *Coordinator) process(ctx context.Context, job *entity.Job) (*entity.Job, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.process", trace.WithAttributes(attribute.String("job.id", job.ID)))
	defer span.End()

	started := time.Now()
	input := job.Clone()
	result, err := runStage(ctx, c.processTimeout, func(stageCtx context.Context) (*ProcessingResult, error) {
		return c.processor.Process(stageCtx, input)
	})
	elapsed := time.Since(started).Seconds()

	if err != nil && ctx.Err() != nil && !errors.Is(err, errStageTimeout) {
		// the caller is gone; leave the job in flight so Resume can pick it up
		c.metrics.recordStage(ctx, entity.StageProcessing, "abandoned", elapsed)
		return nil, err
	}
	if err == nil && (result == nil || len(result.Artifacts) == 0) {
		err = entity.NewProcessingError("no artifacts produced", nil)
	}
	if err != nil {
		stageErr := asStageError(entity.StageProcessing, err)
		span.RecordError(stageErr)
		span.SetStatus(codes.Error, stageErr.Reason)
		c.metrics.recordStage(ctx, entity.StageProcessing, "failure", elapsed)

		var logs []string
		if result != nil {
			logs = result.Logs
		}
		return c.fail(ctx, job.ID, stageErr, logs)
	}
	c.metrics.recordStage(ctx, entity.StageProcessing, "success", elapsed)

	artifacts := make(map[string]string, len(result.Artifacts))
	for name, ref := range result.Artifacts {
		artifacts[name] = ref
	}

	return c.store.Update(ctx, job.ID, func(j *entity.Job) error {
		now := c.now()
		if err := transition(j, entity.JobStateProcessed, now); err != nil {
			return err
		}
		for _, line := range result.Logs {
			j.AppendLog(now, line)
		}
		j.Artifacts = artifacts
		return nil
	})
}

func (c *Coordinator) upload(ctx context.Context, job *entity.Job) (*entity.Job, error) {
	ctx, span := c.tracer.Start(ctx, "pipeline.upload", trace.WithAttributes(
		attribute.String("job.id", job.ID),
		attribute.Int("job.artifacts", len(job.Artifacts)),
	))
	defer span.End()

	started := time.Now()
	input := make(map[string]string, len(job.Artifacts))
	for name, ref := range job.Artifacts {
		input[name] = ref
	}
	result, err := runStage(ctx, c.uploadTimeout, func(stageCtx context.Context) (*UploadResult, error) {
		return c.uploader.Upload(stageCtx, job.ID, input)
	})
	completedAt := c.now()
	elapsed := time.Since(started).Seconds()

	if err != nil && ctx.Err() != nil && !errors.Is(err, errStageTimeout) {
		c.metrics.recordStage(ctx, entity.StageUpload, "abandoned", elapsed)
		return nil, err
	}
	if err == nil {
		err = checkUpload(job.Artifacts, result, completedAt)
	}
	if err != nil {
		stageErr := asStageError(entity.StageUpload, err)
		span.RecordError(stageErr)
		span.SetStatus(codes.Error, stageErr.Reason)
		c.metrics.recordStage(ctx, entity.StageUpload, "failure", elapsed)

		var logs []string
		if result != nil {
			logs = result.Logs
		}
		return c.fail(ctx, job.ID, stageErr, logs)
	}
	c.metrics.recordStage(ctx, entity.StageUpload, "success", elapsed)

	locations := make(map[string]entity.StorageLocation, len(job.Artifacts))
	for name := range job.Artifacts {
		locations[name] = result.Locations[name]
	}

	return c.store.Update(ctx, job.ID, func(j *entity.Job) error {
		if err := transition(j, entity.JobStateCompleted, completedAt); err != nil {
			return err
		}
		for _, line := range result.Logs {
			j.AppendLog(completedAt, line)
		}
		j.StorageLocations = locations
		j.AppendLog(completedAt, fmt.Sprintf("Upload completed: %d artifacts stored", len(locations)))
		return nil
	})
}

// fail records FAILED with the stage's reason and hands the stage error back
func (c *Coordinator) fail(ctx context.Context, id string, stageErr *entity.StageError, logs []string) (*entity.Job, error) {
	c.logger.ErrorWithContextf(ctx, stageErr, "[Pipeline] Job %s %s failed: %s", id, stageErr.Stage, stageErr.Reason)

	failed, err := c.store.Update(ctx, id, func(job *entity.Job) error {
		now := c.now()
		if err := transition(job, entity.JobStateFailed, now); err != nil {
			return err
		}
		for _, line := range logs {
			job.AppendLog(now, line)
		}
		job.AppendLog(now, fmt.Sprintf("%s failed: %s", stageErr.Stage, stageErr.Reason))
		return nil
	})
	if err != nil {
		return nil, errors.WithSecondaryError(errors.Wrapf(err, "record failure of job %s", id), stageErr)
	}
	return failed, stageErr
}

func transition(job *entity.Job, next entity.JobState, at time.Time) error {
	if !job.State.CanTransitionTo(next) {
		return entity.NewConflictError("job %s cannot move from %s to %s", job.ID, job.State, next)
	}
	return job.Transition(next, at)
}

func asStageError(stage string, err error) *entity.StageError {
	var stageErr *entity.StageError
	if errors.As(err, &stageErr) && stageErr.Stage == stage {
		return stageErr
	}
	if errors.Is(err, errStageTimeout) {
		return &entity.StageError{Stage: stage, Reason: entity.ReasonTimeout, Err: err}
	}
	return &entity.StageError{Stage: stage, Reason: err.Error(), Err: err}
}

// checkUpload fails the stage unless every artifact has a usable location
func checkUpload(artifacts map[string]string, result *UploadResult, completedAt time.Time) error {
	if result == nil {
		return entity.NewUploadError("uploader returned no result", nil)
	}

	failed := make(map[string]string, len(result.Failed))
	for name, reason := range result.Failed {
		failed[name] = reason
	}
	for name := range artifacts {
		if _, reported := failed[name]; reported {
			continue
		}
		loc, ok := result.Locations[name]
		switch {
		case !ok:
			failed[name] = "no storage location returned"
		case loc.URL == "":
			failed[name] = "empty storage location"
		case !loc.ExpiresAt.After(completedAt):
			failed[name] = "storage location expired before completion"
		}
	}
	if len(failed) == 0 {
		return nil
	}

	names := make([]string, 0, len(failed))
	for name := range failed {
		names = append(names, name)
	}
	sort.Strings(names)
	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, name+": "+failed[name])
	}
	return entity.NewUploadError("partial upload ("+strings.Join(parts, "; ")+")", nil)
}

// runStage calls a backend with the stage deadline applied. The call runs in
// its own goroutine so a backend that ignores ctx cannot hold the job past
// the deadline.
func runStage[T any](ctx context.Context, timeout time.Duration, call func(context.Context) (T, error)) (T, error) {
	stageCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		stageCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type outcome struct {
		value T
		err   error
	}
	done := make(chan outcome, 1)
	go func() {
		value, err := call(stageCtx)
		done <- outcome{value: value, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && ctx.Err() == nil && errors.Is(stageCtx.Err(), context.DeadlineExceeded) {
			return out.value, errStageTimeout
		}
		return out.value, out.err
	case <-stageCtx.Done():
		var zero T
		if err := ctx.Err(); err != nil {
			return zero, err
		}
		return zero, errStageTimeout
	}
}
