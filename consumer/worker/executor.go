package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/engine"
	"github.com/vidlingo/dub-orchestrator/entity"
	"github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/infra/produce"
)

// Background music is lowered to this fraction of its level under the dubbed
// voice track.
const backgroundDuckingLevel = 0.2

type jobStore interface {
	Save(job *entity.DubJob) error
	SetStage(id uuid.UUID, status entity.DubStatus, step string) error
	MarkStarted(id uuid.UUID, startedAt time.Time) error
	IncrementRetry(id uuid.UUID, errorMessage string) error
}

type videoStore interface {
	UpdateDubStatus(id uuid.UUID, status entity.DubStatus) error
	UpdateDubResults(id uuid.UUID, job *entity.DubJob) error
}

type artifactStore interface {
	PutFile(ctx context.Context, key, filePath, contentType, cacheControl string) (string, error)
	DeleteObjectsWithPrefix(ctx context.Context, prefix string) error
}

type retryQueue interface {
	PublishDubJobRetry(ctx context.Context, msg produce.DubJobMessage, delay time.Duration) error
}

// Outcome is the terminal result of one processing attempt.
type Outcome int

const (
	OutcomeCompleted Outcome = iota
	OutcomeRetryScheduled
	OutcomeFailed
)

// Executor runs the dub pipeline for one job at a time. Every attempt gets
// its own scratch directory which is removed whatever the outcome.
type Executor struct {
	cfg     *config.EnvConfig
	engines *engine.Set

	jobs      jobStore
	videos    videoStore
	artifacts artifactStore
	retry     retryQueue
	logger    *infra.LoggerClient

	tracer trace.Tracer

	jobsCompleted metric.Int64Counter
	jobsRetried   metric.Int64Counter
	jobsFailed    metric.Int64Counter
	stageDuration metric.Float64Histogram

	now func() time.Time
}

func NewExecutor(
	cfg *config.EnvConfig,
	engines *engine.Set,
	jobs jobStore,
	videos videoStore,
	artifacts artifactStore,
	retry retryQueue,
	logger *infra.LoggerClient,
) *Executor {
	meter := otel.Meter("dub-orchestrator/worker")
	jobsCompleted, _ := meter.Int64Counter("dub.jobs.completed")
	jobsRetried, _ := meter.Int64Counter("dub.jobs.retried")
	jobsFailed, _ := meter.Int64Counter("dub.jobs.failed")
	stageDuration, _ := meter.Float64Histogram("dub.stage.duration_seconds")

	return &Executor{
		cfg:           cfg,
		engines:       engines,
		jobs:          jobs,
		videos:        videos,
		artifacts:     artifacts,
		retry:         retry,
		logger:        logger,
		tracer:        otel.Tracer("dub-orchestrator/worker"),
		jobsCompleted: jobsCompleted,
		jobsRetried:   jobsRetried,
		jobsFailed:    jobsFailed,
		stageDuration: stageDuration,
		now:           time.Now,
	}
}

// Execute runs one attempt of the job to a terminal outcome. It never returns
// an error to the caller: every failure path is resolved here, either into a
// scheduled retry or into the failed state.
func (e *Executor) Execute(ctx context.Context, job *entity.DubJob, video *entity.Video) Outcome {
	start := e.now()
	job.StartedAt = &start
	if err := e.jobs.MarkStarted(job.ID, start); err != nil {
		return e.handleFailure(ctx, job, fmt.Errorf("mark started: %w", err))
	}

	workDir, err := os.MkdirTemp(e.cfg.Pipeline.WorkDir, "dub-"+job.ID.String()+"-")
	if err != nil {
		return e.handleFailure(ctx, job, fmt.Errorf("create work dir: %w", err))
	}
	defer func() {
		if err := os.RemoveAll(workDir); err != nil {
			e.logger.WarningWithContextf(ctx, "[Dub Worker] Failed to remove work dir %s: %v", workDir, err)
		}
	}()

	if err := e.runPipeline(ctx, job, video, workDir); err != nil {
		return e.handleFailure(ctx, job, err)
	}

	completedAt := e.now()
	job.Status = entity.DubStatusCompleted
	job.Progress = entity.DubStatusCompleted.Progress()
	job.CurrentStep = ""
	job.CompletedAt = &completedAt
	job.ErrorMessage = ""
	job.ErrorDetail = ""
	job.ProcessingTimeMS = completedAt.Sub(start).Milliseconds()

	if err := e.jobs.Save(job); err != nil {
		return e.handleFailure(ctx, job, fmt.Errorf("persist completion: %w", err))
	}
	if err := e.videos.UpdateDubResults(job.VideoID, job); err != nil {
		e.logger.ErrorWithContextf(ctx, err, "[Dub Worker] Failed to mirror results onto video %s", job.VideoID)
	}

	e.jobsCompleted.Add(ctx, 1)
	e.logger.InfoWithContextf(ctx, "[Dub Worker] Job %s completed in %dms", job.ID, job.ProcessingTimeMS)
	return OutcomeCompleted
}

func (e *Executor) runPipeline(ctx context.Context, job *entity.DubJob, video *entity.Video, workDir string) error {
	var (
		download  *engine.DownloadResult
		audioPath string
		voicePath string
		musicPath string
	)

	err := e.stage(ctx, job, entity.DubStatusDownloading, "download source video", func(ctx context.Context) error {
		var err error
		download, err = e.engines.Downloader.Download(ctx, video.SourceURL, workDir)
		return err
	})
	if err != nil {
		return err
	}

	err = e.stage(ctx, job, entity.DubStatusExtractingAudio, "extract audio track", func(ctx context.Context) error {
		var err error
		audioPath, err = e.engines.Extractor.ExtractAudio(ctx, download.Path, workDir)
		return err
	})
	if err != nil {
		return err
	}

	voicePath = audioPath
	if job.KeepBackgroundAudio {
		err = e.stage(ctx, job, entity.DubStatusSeparatingAudio, "separate voice from background", func(ctx context.Context) error {
			sep, err := e.engines.Separator.Separate(ctx, audioPath, workDir)
			if err != nil {
				return err
			}
			voicePath = sep.VoicePath
			musicPath = sep.MusicPath
			return nil
		})
		if err != nil {
			return err
		}
	}

	var transcript *engine.Transcript
	err = e.stage(ctx, job, entity.DubStatusTranscribing, "transcribe speech", func(ctx context.Context) error {
		var err error
		transcript, err = e.engines.Transcriber.Transcribe(ctx, voicePath, job.SourceLanguage)
		if err != nil {
			return err
		}
		if len(transcript.Segments) == 0 && transcript.Text == "" {
			return engine.Permanent(errors.New("no speech detected in source audio"))
		}
		return nil
	})
	if err != nil {
		return err
	}

	sourceLang := job.SourceLanguage
	if sourceLang == "" {
		sourceLang = transcript.Language
	}

	var (
		translatedText     string
		translatedSegments []entity.SpeechSegment
		subtitlePath       string
	)
	err = e.stage(ctx, job, entity.DubStatusTranslating, "translate transcript", func(ctx context.Context) error {
		var err error
		translatedText, err = e.engines.Translator.Translate(ctx, transcript.Text, sourceLang, job.TargetLanguage)
		if err != nil {
			return err
		}

		translatedSegments = make([]entity.SpeechSegment, len(transcript.Segments))
		copy(translatedSegments, transcript.Segments)
		for i := range translatedSegments {
			if translatedSegments[i].Text == "" {
				continue
			}
			translated, err := e.engines.Translator.Translate(ctx, translatedSegments[i].Text, sourceLang, job.TargetLanguage)
			if err != nil {
				return err
			}
			translatedSegments[i].Text = translated
		}

		if job.GenerateSubtitles {
			subtitlePath = filepath.Join(workDir, "subtitles.vtt")
			if err := os.WriteFile(subtitlePath, []byte(buildWebVTT(translatedSegments)), 0o644); err != nil {
				return fmt.Errorf("write subtitles: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var dubbedVoicePath string
	err = e.stage(ctx, job, entity.DubStatusGeneratingVoice, "synthesize dubbed voice", func(ctx context.Context) error {
		var err error
		dubbedVoicePath, err = e.engines.Synthesizer.Synthesize(ctx, translatedText, job.VoiceID, translatedSegments, workDir)
		return err
	})
	if err != nil {
		return err
	}

	var mixedPath string
	err = e.stage(ctx, job, entity.DubStatusMixingAudio, "mix dubbed audio", func(ctx context.Context) error {
		var err error
		mixedPath, err = e.engines.Mixer.Mix(ctx, dubbedVoicePath, musicPath, backgroundDuckingLevel, workDir)
		return err
	})
	if err != nil {
		return err
	}

	var encoded *engine.EncodeResult
	err = e.stage(ctx, job, entity.DubStatusEncodingVideo, "encode dubbed video", func(ctx context.Context) error {
		var err error
		encoded, err = e.engines.Encoder.Encode(ctx, download.Path, mixedPath, job.Quality, workDir)
		return err
	})
	if err != nil {
		return err
	}

	// Thumbnail extraction is opportunistic; a failure is logged and the
	// pipeline carries on without one.
	thumbnailPath, err := e.engines.Thumbnailer.ExtractThumbnail(ctx, encoded.Path, download.Meta.DurationSec/4, workDir)
	if err != nil {
		e.logger.WarningWithContextf(ctx, "[Dub Worker] Thumbnail extraction failed for job %s: %v", job.ID, err)
		thumbnailPath = ""
	}

	var hls *engine.HLSResult
	if job.GenerateHLS {
		err = e.stage(ctx, job, entity.DubStatusGeneratingHLS, "package HLS rendition", func(ctx context.Context) error {
			var err error
			hls, err = e.engines.Packager.PackageHLS(ctx, encoded.Path, workDir)
			return err
		})
		if err != nil {
			return err
		}
	}

	err = e.stage(ctx, job, entity.DubStatusUploading, "upload artifacts", func(ctx context.Context) error {
		return e.uploadArtifacts(ctx, job, encoded.Path, thumbnailPath, subtitlePath, hls)
	})
	if err != nil {
		return err
	}

	job.VideoMeta = datatypes.NewJSONType(encoded.Meta)
	job.AudioMeta = datatypes.NewJSONType(entity.AudioMetadata{
		Transcript:     transcript.Text,
		TranslatedText: translatedText,
		VoiceID:        job.VoiceID,
		Segments:       translatedSegments,
	})

	return nil
}

func (e *Executor) uploadArtifacts(ctx context.Context, job *entity.DubJob, videoPath, thumbnailPath, subtitlePath string, hls *engine.HLSResult) error {
	prefix := "dubs/" + job.VideoID.String() + "/"
	longLived := "public, max-age=31536000"

	videoURL, err := e.artifacts.PutFile(ctx, prefix+"video.mp4", videoPath, "video/mp4", longLived)
	if err != nil {
		return fmt.Errorf("upload video: %w", err)
	}
	job.DubbedVideoURL = videoURL

	if thumbnailPath != "" {
		thumbnailURL, err := e.artifacts.PutFile(ctx, prefix+"thumbnail.jpg", thumbnailPath, "image/jpeg", longLived)
		if err != nil {
			e.logger.WarningWithContextf(ctx, "[Dub Worker] Thumbnail upload failed for job %s: %v", job.ID, err)
		} else {
			job.ThumbnailURL = thumbnailURL
		}
	}

	if subtitlePath != "" {
		subtitlesURL, err := e.artifacts.PutFile(ctx, prefix+"subtitles.vtt", subtitlePath, "text/vtt", longLived)
		if err != nil {
			return fmt.Errorf("upload subtitles: %w", err)
		}
		job.SubtitlesURL = subtitlesURL
	}

	if hls != nil {
		for _, segmentPath := range hls.SegmentPaths {
			key := prefix + "hls/" + filepath.Base(segmentPath)
			if _, err := e.artifacts.PutFile(ctx, key, segmentPath, "video/mp2t", longLived); err != nil {
				return fmt.Errorf("upload HLS segment: %w", err)
			}
		}
		playlistURL, err := e.artifacts.PutFile(ctx, prefix+"hls/playlist.m3u8", hls.PlaylistPath, "application/vnd.apple.mpegurl", "no-cache")
		if err != nil {
			return fmt.Errorf("upload HLS playlist: %w", err)
		}
		job.HLSPlaylistURL = playlistURL
	}

	return nil
}

// stage moves the job to a pipeline stage, mirrors the status onto the video
// and runs fn under the per-stage timeout inside its own span.
func (e *Executor) stage(ctx context.Context, job *entity.DubJob, status entity.DubStatus, step string, fn func(ctx context.Context) error) error {
	if err := e.jobs.SetStage(job.ID, status, step); err != nil {
		return fmt.Errorf("%s: advance stage: %w", step, err)
	}
	job.Status = status
	job.Progress = status.Progress()
	job.CurrentStep = step

	if err := e.videos.UpdateDubStatus(job.VideoID, status); err != nil {
		e.logger.WarningWithContextf(ctx, "[Dub Worker] Failed to mirror status %s onto video %s: %v", status, job.VideoID, err)
	}

	ctx, span := e.tracer.Start(ctx, "dub."+string(status))
	defer span.End()

	stageCtx, cancel := context.WithTimeout(ctx, time.Duration(e.cfg.Pipeline.StageTimeoutSec)*time.Second)
	defer cancel()

	e.logger.InfoWithContextf(ctx, "[Dub Worker] Job %s: %s", job.ID, step)

	begin := e.now()
	err := fn(stageCtx)
	e.stageDuration.Record(ctx, e.now().Sub(begin).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, step)
		return fmt.Errorf("%s: %w", step, err)
	}
	return nil
}

// handleFailure resolves a failed attempt: transient errors under the retry
// budget are re-queued with exponential backoff, everything else goes to the
// failed state.
func (e *Executor) handleFailure(ctx context.Context, job *entity.DubJob, cause error) Outcome {
	if engine.IsPermanent(cause) {
		e.logger.ErrorWithContextf(ctx, cause, "[Dub Worker] Job %s failed permanently", job.ID)
		return e.fail(ctx, job, cause)
	}

	if err := e.jobs.IncrementRetry(job.ID, cause.Error()); err != nil {
		e.logger.ErrorWithContextf(ctx, err, "[Dub Worker] Failed to record retry for job %s", job.ID)
		return e.fail(ctx, job, cause)
	}
	job.RetryCount++
	job.ErrorMessage = cause.Error()

	if job.RetryCount >= job.MaxRetries {
		e.logger.ErrorWithContextf(ctx, cause, "[Dub Worker] Job %s exhausted retries (%d/%d)", job.ID, job.RetryCount, job.MaxRetries)
		return e.fail(ctx, job, cause)
	}

	delay := time.Duration(e.cfg.Pipeline.RetryBaseDelayMS) * time.Millisecond << (job.RetryCount - 1)
	msg := produce.DubJobMessage{
		JobID:   job.ID.String(),
		VideoID: job.VideoID.String(),
		Attempt: job.RetryCount + 1,
	}
	if err := e.retry.PublishDubJobRetry(ctx, msg, delay); err != nil {
		e.logger.ErrorWithContextf(ctx, err, "[Dub Worker] Failed to schedule retry for job %s", job.ID)
		return e.fail(ctx, job, cause)
	}

	if err := e.jobs.SetStage(job.ID, entity.DubStatusQueued, ""); err != nil {
		e.logger.ErrorWithContextf(ctx, err, "[Dub Worker] Failed to re-queue job %s", job.ID)
	}
	job.Status = entity.DubStatusQueued
	job.Progress = 0
	job.CurrentStep = ""
	if err := e.videos.UpdateDubStatus(job.VideoID, entity.DubStatusQueued); err != nil {
		e.logger.WarningWithContextf(ctx, "[Dub Worker] Failed to mirror re-queue onto video %s: %v", job.VideoID, err)
	}

	e.jobsRetried.Add(ctx, 1)
	e.logger.WarningWithContextf(ctx, "[Dub Worker] Job %s retry %d/%d scheduled in %s: %v",
		job.ID, job.RetryCount, job.MaxRetries, delay, cause)
	return OutcomeRetryScheduled
}

func (e *Executor) fail(ctx context.Context, job *entity.DubJob, cause error) Outcome {
	failedAt := e.now()
	job.Status = entity.DubStatusFailed
	job.FailedAt = &failedAt
	job.ErrorMessage = cause.Error()
	job.ErrorDetail = fmt.Sprintf("stage=%s attempt=%d: %v", job.CurrentStep, job.RetryCount+1, cause)

	if err := e.jobs.Save(job); err != nil {
		e.logger.ErrorWithContextf(ctx, err, "[Dub Worker] Failed to persist failure of job %s", job.ID)
	}
	if err := e.videos.UpdateDubStatus(job.VideoID, entity.DubStatusFailed); err != nil {
		e.logger.WarningWithContextf(ctx, "[Dub Worker] Failed to mirror failure onto video %s: %v", job.VideoID, err)
	}

	// Partially uploaded artifacts from the failed attempt are removed so
	// the prefix only ever holds a complete result set.
	if err := e.artifacts.DeleteObjectsWithPrefix(ctx, "dubs/"+job.VideoID.String()+"/"); err != nil {
		e.logger.WarningWithContextf(ctx, "[Dub Worker] Failed to clean artifacts for job %s: %v", job.ID, err)
	}

	e.jobsFailed.Add(ctx, 1)
	return OutcomeFailed
}
