package controller

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"

	"github.com/tnqbao/gau-focus-service/entity"
	"github.com/tnqbao/gau-focus-service/http/controller/dto"
	"github.com/tnqbao/gau-focus-service/pipeline"
	"github.com/tnqbao/gau-focus-service/utils"
)

func (ctrl *Controller) CreateFocusSession(c *gin.Context) {
	ctx := c.Request.Context()

	var req dto.CreateFocusSessionRequestDTO
	if err := c.ShouldBindJSON(&req); err != nil {
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[FocusSession] Failed to bind JSON: %v", err)
		utils.JSON400(c, "Invalid request payload")
		return
	}

	owner := req.Owner()
	if owner == "" {
		owner = utils.GetUserIDFromContext(c)
	}
	spec := pipeline.JobSpec{
		OwnerID:   owner,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		MediaRef:  req.Media(),
	}

	if c.Query("async") == "true" {
		job, err := ctrl.Coordinator.SubmitAsync(ctx, spec)
		if err != nil {
			ctrl.respondError(c, job, err)
			return
		}
		ctrl.Infra.Logger.InfoWithContextf(ctx, "[FocusSession] Queued session %s for owner %s", job.ID, job.OwnerID)
		utils.JSON202(c, gin.H{
			"message": "Focus session created, processing in background",
			"data":    dto.NewFocusSessionResponse(job),
		})
		return
	}

	job, err := ctrl.Coordinator.Submit(ctx, spec)
	if err != nil {
		ctrl.respondError(c, job, err)
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[FocusSession] Session %s for owner %s completed", job.ID, job.OwnerID)
	utils.JSON201(c, gin.H{
		"message": "Focus session created and processed successfully",
		"data":    dto.NewFocusSessionResponse(job),
	})
}

func (ctrl *Controller) ListFocusSessions(c *gin.Context) {
	ctx := c.Request.Context()

	filter := entity.JobFilter{
		OwnerID: c.Query("ownerId"),
	}
	if filter.OwnerID == "" {
		filter.OwnerID = c.Query("userId")
	}

	if raw := c.Query("state"); raw != "" {
		state := entity.JobState(strings.ToUpper(raw))
		if !state.IsValid() {
			utils.JSON400(c, "Invalid state filter: "+raw)
			return
		}
		filter.State = state
	}

	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			utils.JSON400(c, "limit must be a non-negative integer")
			return
		}
		filter.Limit = limit
	}

	switch order := strings.ToLower(c.Query("order")); order {
	case "", string(entity.JobOrderNewestFirst):
		filter.Order = entity.JobOrderNewestFirst
	case string(entity.JobOrderOldestFirst):
		filter.Order = entity.JobOrderOldestFirst
	default:
		utils.JSON400(c, "order must be asc or desc")
		return
	}

	jobs, err := ctrl.Coordinator.List(ctx, filter)
	if err != nil {
		ctrl.respondError(c, nil, err)
		return
	}

	utils.JSON200(c, gin.H{
		"count": len(jobs),
		"data":  jobs,
	})
}

func (ctrl *Controller) GetFocusSession(c *gin.Context) {
	job, err := ctrl.Coordinator.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		ctrl.respondError(c, nil, err)
		return
	}
	utils.JSON200(c, gin.H{"data": job})
}

func (ctrl *Controller) GetFocusSessionLogs(c *gin.Context) {
	report, err := ctrl.Coordinator.Logs(c.Request.Context(), c.Param("id"))
	if err != nil {
		ctrl.respondError(c, nil, err)
		return
	}
	utils.JSON200(c, gin.H{"data": report})
}

func (ctrl *Controller) ResumeFocusSession(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	if c.Query("async") == "true" {
		job, err := ctrl.Coordinator.ResumeAsync(ctx, id)
		if err != nil {
			ctrl.respondError(c, job, err)
			return
		}
		utils.JSON202(c, gin.H{
			"message": "Focus session resume scheduled",
			"data":    dto.NewFocusSessionResponse(job),
		})
		return
	}

	ctrl.Infra.Logger.InfoWithContextf(ctx, "[FocusSession] Resuming session %s", id)
	job, err := ctrl.Coordinator.Resume(ctx, id)
	if err != nil {
		ctrl.respondError(c, job, err)
		return
	}
	utils.JSON200(c, gin.H{
		"message": "Focus session resumed",
		"data":    dto.NewFocusSessionResponse(job),
	})
}

// respondError maps pipeline and store errors onto the response envelope.
// job is the latest snapshot, when there is one.
func (ctrl *Controller) respondError(c *gin.Context, job *entity.Job, err error) {
	ctx := c.Request.Context()

	var validationErr *entity.ValidationError
	var stageErr *entity.StageError
	switch {
	case errors.As(err, &validationErr):
		utils.JSON400(c, validationErr.Message)
	case errors.Is(err, entity.ErrNotFound):
		utils.JSON404(c, "Focus session not found")
	case errors.Is(err, entity.ErrConflict):
		ctrl.Infra.Logger.WarningWithContextf(ctx, "[FocusSession] Conflict: %v", err)
		utils.JSON409(c, "Focus session is already being processed or finished")
	case errors.As(err, &stageErr):
		extra := gin.H{"error": stageErr.Error()}
		if job != nil {
			extra["data"] = dto.NewFocusSessionResponse(job)
		}
		utils.JSONError(c, http.StatusBadGateway, "Focus session "+stageErr.Stage+" failed", extra)
	case errors.Is(err, entity.ErrStorageUnavailable):
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[FocusSession] Job store unavailable")
		utils.JSON503(c, "Job storage is temporarily unavailable")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		extra := gin.H{}
		if job != nil {
			extra["data"] = dto.NewFocusSessionResponse(job)
		}
		utils.JSONError(c, http.StatusServiceUnavailable, "Request ended before processing finished; processing continues", extra)
	default:
		ctrl.Infra.Logger.ErrorWithContextf(ctx, err, "[FocusSession] Unexpected error")
		utils.JSON500(c, "Internal server error")
	}
}
