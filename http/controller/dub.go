package controller

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidlingo/dub-orchestrator/entity"
	"github.com/vidlingo/dub-orchestrator/http/controller/dto"
	"github.com/vidlingo/dub-orchestrator/infra/produce"
	"github.com/vidlingo/dub-orchestrator/utils"
)

var errNoJobHistory = errors.New("video has no dub jobs")

// SubmitDub creates a dub job for a video and enqueues it.
func (ctrl *Controller) SubmitDub(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid video id")
		return
	}

	var req dto.SubmitDubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	ctrl.submitAndRespond(c, videoID, req)
}

func (ctrl *Controller) submitAndRespond(c *gin.Context, videoID uuid.UUID, req dto.SubmitDubRequest) {
	ctx := c.Request.Context()

	video, err := ctrl.videos.FindByID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "Video not found")
			return
		}
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to load video %s", videoID)
		utils.JSON500(c, "Failed to load video")
		return
	}

	if video.SourceURL == "" {
		utils.JSON404(c, "Video has no source media")
		return
	}

	sourceLang := req.SourceLanguage
	if sourceLang == "" {
		sourceLang = video.SourceLanguage
	}
	quality := req.Quality
	if quality == "" {
		quality = "1080p"
	}

	// Conditional status flip is the admission lock: it fails when any
	// job for this video is still active.
	priorStatus := video.DubStatus
	claimed, err := ctrl.videos.SetDubStatusIfInactive(videoID, entity.DubStatusQueued)
	if err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Admission check failed for video %s", videoID)
		utils.JSON500(c, "Failed to submit dub job")
		return
	}
	if !claimed {
		utils.JSON409(c, "A dub job is already active for this video")
		return
	}

	job := &entity.DubJob{
		ID:                  uuid.New(),
		VideoID:             videoID,
		SourceLanguage:      sourceLang,
		TargetLanguage:      req.TargetLanguage,
		KeepBackgroundAudio: req.KeepBackgroundAudio,
		VoiceID:             req.VoiceID,
		Quality:             quality,
		GenerateSubtitles:   req.GenerateSubtitles,
		GenerateHLS:         req.GenerateHLS,
		Status:              entity.DubStatusQueued,
		Progress:            0,
		MaxRetries:          ctrl.Config.EnvConfig.Pipeline.MaxRetries,
		QueuedAt:            ctrl.now(),
	}

	if err := ctrl.jobs.Create(job); err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to create job record for video %s", videoID)
		_ = ctrl.videos.UpdateDubStatus(videoID, priorStatus)
		utils.JSON500(c, "Failed to submit dub job")
		return
	}

	msg := produce.DubJobMessage{
		JobID:   job.ID.String(),
		VideoID: videoID.String(),
		Attempt: 1,
	}
	if err := ctrl.queue.PublishDubJob(ctx, msg); err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to enqueue job %s", job.ID)
		failedAt := ctrl.now()
		job.Status = entity.DubStatusFailed
		job.FailedAt = &failedAt
		job.ErrorMessage = "failed to enqueue dub job"
		_ = ctrl.jobs.Save(job)
		_ = ctrl.videos.UpdateDubStatus(videoID, entity.DubStatusFailed)
		utils.JSON500(c, "Failed to enqueue dub job")
		return
	}

	ctrl.logger.InfoWithContextf(ctx, "[Dub] Job %s queued for video %s (%s -> %s)",
		job.ID, videoID, sourceLang, req.TargetLanguage)

	utils.JSON202(c, dto.SubmitDubResponse{
		JobID:            job.ID.String(),
		Status:           string(job.Status),
		EstimatedSeconds: ctrl.Config.EnvConfig.Pipeline.EstimateSec,
	})
}

// GetVideoDubStatus returns the latest job projection for a video.
func (ctrl *Controller) GetVideoDubStatus(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid video id")
		return
	}

	job, err := ctrl.jobs.FindLatestByVideoID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "No dub job found for this video")
			return
		}
		ctrl.logger.ErrorWithContextf(c.Request.Context(), err, "[Dub] Failed to load latest job for video %s", videoID)
		utils.JSON500(c, "Failed to load dub status")
		return
	}

	utils.JSON200(c, ctrl.toProjection(job))
}

// GetDubJob returns a single job projection.
func (ctrl *Controller) GetDubJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id")
		return
	}

	job, err := ctrl.jobs.FindByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "Dub job not found")
			return
		}
		ctrl.logger.ErrorWithContextf(c.Request.Context(), err, "[Dub] Failed to load job %s", jobID)
		utils.JSON500(c, "Failed to load dub job")
		return
	}

	utils.JSON200(c, ctrl.toProjection(job))
}

// ListDubJobs returns a page of jobs, newest queued first.
func (ctrl *Controller) ListDubJobs(c *gin.Context) {
	status := entity.DubStatus(c.Query("status"))
	if status != "" && !status.IsValid() {
		utils.JSON400(c, "Invalid status filter")
		return
	}

	limit, err := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if err != nil || limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	offset, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if err != nil || offset < 0 {
		offset = 0
	}

	jobs, total, err := ctrl.jobs.List(status, limit, offset)
	if err != nil {
		ctrl.logger.ErrorWithContextf(c.Request.Context(), err, "[Dub] Failed to list jobs")
		utils.JSON500(c, "Failed to list dub jobs")
		return
	}

	projections := make([]dto.DubJobProjection, 0, len(jobs))
	for i := range jobs {
		projections = append(projections, ctrl.toProjection(&jobs[i]))
	}

	utils.JSON200(c, dto.ListDubJobsResponse{Total: total, Jobs: projections})
}

// CancelDub cancels the latest job for a video and removes its artifacts.
func (ctrl *Controller) CancelDub(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid video id")
		return
	}

	ctx := c.Request.Context()
	if err := ctrl.cancelVideo(c, videoID); err != nil {
		if errors.Is(err, errNoJobHistory) {
			utils.JSON404(c, "No dub job found for this video")
			return
		}
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to cancel dub for video %s", videoID)
		utils.JSON500(c, "Failed to cancel dub job")
		return
	}

	utils.JSON200(c, gin.H{"message": "Dub job cancelled"})
}

// cancelVideo forces the latest non-terminal job to failed, best-effort
// removes the queued work item, deletes stored artifacts and resets the
// mirrored fields. Claimed work items keep running to their own outcome;
// whichever write lands last wins.
func (ctrl *Controller) cancelVideo(c *gin.Context, videoID uuid.UUID) error {
	ctx := c.Request.Context()

	job, err := ctrl.jobs.FindLatestByVideoID(videoID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errNoJobHistory
		}
		return err
	}

	if !job.Status.IsTerminal() {
		failedAt := ctrl.now()
		job.Status = entity.DubStatusFailed
		job.FailedAt = &failedAt
		job.ErrorMessage = "cancelled by user"
		if err := ctrl.jobs.Save(job); err != nil {
			return err
		}

		if err := ctrl.cancels.MarkDubCancelled(ctx, job.ID.String()); err != nil {
			ctrl.logger.WarningWithContextf(ctx, "[Dub] Failed to mark job %s cancelled in queue: %v", job.ID, err)
		}
	}

	if err := ctrl.artifacts.DeleteObjectsWithPrefix(ctx, artifactPrefix(videoID)); err != nil {
		ctrl.logger.WarningWithContextf(ctx, "[Dub] Failed to delete artifacts for video %s: %v", videoID, err)
	}

	if err := ctrl.videos.ClearDubResults(videoID, entity.DubStatusCancelled); err != nil {
		return err
	}

	ctrl.logger.InfoWithContextf(ctx, "[Dub] Cancelled dub for video %s (job %s)", videoID, job.ID)
	return nil
}

// RetryDubJob re-arms a failed job for one manual attempt with no further
// automatic retries.
func (ctrl *Controller) RetryDubJob(c *gin.Context) {
	jobID, err := uuid.Parse(c.Param("job_id"))
	if err != nil {
		utils.JSON400(c, "Invalid job id")
		return
	}

	ctx := c.Request.Context()

	job, err := ctrl.jobs.FindByID(jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.JSON404(c, "Dub job not found")
			return
		}
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to load job %s", jobID)
		utils.JSON500(c, "Failed to load dub job")
		return
	}

	if job.Status != entity.DubStatusFailed {
		utils.JSON409(c, "Only failed jobs can be retried")
		return
	}

	claimed, err := ctrl.videos.SetDubStatusIfInactive(job.VideoID, entity.DubStatusQueued)
	if err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Admission check failed for video %s", job.VideoID)
		utils.JSON500(c, "Failed to retry dub job")
		return
	}
	if !claimed {
		utils.JSON409(c, "A dub job is already active for this video")
		return
	}

	job.Status = entity.DubStatusQueued
	job.Progress = 0
	job.CurrentStep = ""
	job.StartedAt = nil
	job.CompletedAt = nil
	job.FailedAt = nil
	job.ErrorMessage = ""
	job.ErrorDetail = ""
	job.QueuedAt = ctrl.now()

	// One fresh attempt with no automatic retries behind it. Jobs that
	// failed permanently may still have retry budget left, so the count is
	// pinned to the budget rather than just incremented.
	job.RetryCount++
	if job.RetryCount < job.MaxRetries {
		job.RetryCount = job.MaxRetries
	}

	if err := ctrl.jobs.Save(job); err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to re-arm job %s", jobID)
		utils.JSON500(c, "Failed to retry dub job")
		return
	}

	// retry_count has met the budget, so a failure of this attempt goes
	// terminal instead of re-queueing.
	msg := produce.DubJobMessage{
		JobID:   job.ID.String(),
		VideoID: job.VideoID.String(),
		Attempt: job.RetryCount + 1,
	}
	if err := ctrl.queue.PublishDubJob(ctx, msg); err != nil {
		ctrl.logger.ErrorWithContextf(ctx, err, "[Dub] Failed to enqueue retry for job %s", jobID)
		utils.JSON500(c, "Failed to enqueue dub job")
		return
	}

	ctrl.logger.InfoWithContextf(ctx, "[Dub] Job %s re-queued manually (attempt %d)", job.ID, job.RetryCount+1)

	utils.JSON202(c, dto.SubmitDubResponse{
		JobID:            job.ID.String(),
		Status:           string(job.Status),
		EstimatedSeconds: ctrl.Config.EnvConfig.Pipeline.EstimateSec,
	})
}

// RegenerateDub is Cancel (ignoring missing history) followed by Submit.
func (ctrl *Controller) RegenerateDub(c *gin.Context) {
	videoID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		utils.JSON400(c, "Invalid video id")
		return
	}

	var req dto.SubmitDubRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSON400(c, "Invalid request: "+err.Error())
		return
	}

	if err := ctrl.cancelVideo(c, videoID); err != nil && !errors.Is(err, errNoJobHistory) {
		ctrl.logger.ErrorWithContextf(c.Request.Context(), err, "[Dub] Regenerate: cancel step failed for video %s", videoID)
		utils.JSON500(c, "Failed to regenerate dub")
		return
	}

	ctrl.submitAndRespond(c, videoID, req)
}

func (ctrl *Controller) toProjection(job *entity.DubJob) dto.DubJobProjection {
	p := dto.DubJobProjection{
		JobID:          job.ID.String(),
		VideoID:        job.VideoID.String(),
		Status:         string(job.Status),
		Progress:       job.Progress,
		CurrentStep:    job.CurrentStep,
		RetryCount:     job.RetryCount,
		MaxRetries:     job.MaxRetries,
		QueuedAt:       job.QueuedAt,
		StartedAt:      job.StartedAt,
		CompletedAt:    job.CompletedAt,
		FailedAt:       job.FailedAt,
		DubbedVideoURL: job.DubbedVideoURL,
		HLSPlaylistURL: job.HLSPlaylistURL,
		SubtitlesURL:   job.SubtitlesURL,
		ThumbnailURL:   job.ThumbnailURL,
		ErrorMessage:   job.ErrorMessage,
	}

	if job.StartedAt != nil && !job.Status.IsTerminal() {
		remaining := ctrl.Config.EnvConfig.Pipeline.EstimateSec - int(ctrl.now().Sub(*job.StartedAt).Seconds())
		if remaining < 0 {
			remaining = 0
		}
		p.EstimatedRemainingSec = &remaining
	}

	return p
}

func artifactPrefix(videoID uuid.UUID) string {
	return "dubs/" + videoID.String() + "/"
}
