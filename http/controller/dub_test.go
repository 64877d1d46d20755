package controller

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/entity"
	"github.com/vidlingo/dub-orchestrator/http/controller/dto"
	"github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/infra/produce"
)

type fakeJobs struct {
	jobs      map[uuid.UUID]*entity.DubJob
	createErr error
}

func newFakeJobs() *fakeJobs {
	return &fakeJobs{jobs: map[uuid.UUID]*entity.DubJob{}}
}

func (f *fakeJobs) Create(job *entity.DubJob) error {
	if f.createErr != nil {
		return f.createErr
	}
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) Save(job *entity.DubJob) error {
	cp := *job
	f.jobs[job.ID] = &cp
	return nil
}

func (f *fakeJobs) FindByID(id uuid.UUID) (*entity.DubJob, error) {
	job, ok := f.jobs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *job
	return &cp, nil
}

func (f *fakeJobs) FindLatestByVideoID(videoID uuid.UUID) (*entity.DubJob, error) {
	var latest *entity.DubJob
	for _, job := range f.jobs {
		if job.VideoID != videoID {
			continue
		}
		if latest == nil || job.QueuedAt.After(latest.QueuedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *latest
	return &cp, nil
}

func (f *fakeJobs) List(status entity.DubStatus, limit, offset int) ([]entity.DubJob, int64, error) {
	var all []entity.DubJob
	for _, job := range f.jobs {
		if status != "" && job.Status != status {
			continue
		}
		all = append(all, *job)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].QueuedAt.After(all[j].QueuedAt) })

	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type fakeVideos struct {
	videos  map[uuid.UUID]*entity.Video
	cleared []entity.DubStatus
}

func newFakeVideos() *fakeVideos {
	return &fakeVideos{videos: map[uuid.UUID]*entity.Video{}}
}

func (f *fakeVideos) FindByID(id uuid.UUID) (*entity.Video, error) {
	video, ok := f.videos[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := *video
	return &cp, nil
}

func (f *fakeVideos) SetDubStatusIfInactive(id uuid.UUID, status entity.DubStatus) (bool, error) {
	video, ok := f.videos[id]
	if !ok {
		return false, nil
	}
	if video.DubStatus.IsActive() {
		return false, nil
	}
	video.DubStatus = status
	return true, nil
}

func (f *fakeVideos) UpdateDubStatus(id uuid.UUID, status entity.DubStatus) error {
	if video, ok := f.videos[id]; ok {
		video.DubStatus = status
	}
	return nil
}

func (f *fakeVideos) ClearDubResults(id uuid.UUID, status entity.DubStatus) error {
	video, ok := f.videos[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	video.DubStatus = status
	video.DubbedVideoURL = ""
	video.HLSPlaylistURL = ""
	video.SubtitlesURL = ""
	video.ThumbnailURL = ""
	f.cleared = append(f.cleared, status)
	return nil
}

type fakeQueue struct {
	msgs []produce.DubJobMessage
	err  error
}

func (f *fakeQueue) PublishDubJob(ctx context.Context, msg produce.DubJobMessage) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

type fakeArtifacts struct {
	deletedPrefixes []string
}

func (f *fakeArtifacts) DeleteObjectsWithPrefix(ctx context.Context, prefix string) error {
	f.deletedPrefixes = append(f.deletedPrefixes, prefix)
	return nil
}

type fakeCancels struct {
	marked []string
}

func (f *fakeCancels) MarkDubCancelled(ctx context.Context, jobID string) error {
	f.marked = append(f.marked, jobID)
	return nil
}

type controllerFixture struct {
	ctrl      *Controller
	router    *gin.Engine
	jobs      *fakeJobs
	videos    *fakeVideos
	queue     *fakeQueue
	artifacts *fakeArtifacts
	cancels   *fakeCancels
	now       time.Time
}

func newControllerFixture(t *testing.T) *controllerFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.EnvConfig{}
	cfg.Pipeline.MaxRetries = 3
	cfg.Pipeline.EstimateSec = 600

	f := &controllerFixture{
		jobs:      newFakeJobs(),
		videos:    newFakeVideos(),
		queue:     &fakeQueue{},
		artifacts: &fakeArtifacts{},
		cancels:   &fakeCancels{},
		now:       time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}

	f.ctrl = &Controller{
		Config:    &config.Config{EnvConfig: cfg},
		jobs:      f.jobs,
		videos:    f.videos,
		queue:     f.queue,
		artifacts: f.artifacts,
		cancels:   f.cancels,
		logger:    infra.NewTestLoggerClient(),
		now:       func() time.Time { return f.now },
	}

	r := gin.New()
	r.POST("/dub/videos/:id/submit", f.ctrl.SubmitDub)
	r.GET("/dub/videos/:id/status", f.ctrl.GetVideoDubStatus)
	r.DELETE("/dub/videos/:id", f.ctrl.CancelDub)
	r.POST("/dub/videos/:id/regenerate", f.ctrl.RegenerateDub)
	r.GET("/dub/jobs", f.ctrl.ListDubJobs)
	r.GET("/dub/jobs/:job_id", f.ctrl.GetDubJob)
	r.POST("/dub/jobs/:job_id/retry", f.ctrl.RetryDubJob)
	f.router = r

	return f
}

func (f *controllerFixture) addVideo(status entity.DubStatus) *entity.Video {
	video := &entity.Video{
		ID:             uuid.New(),
		SourceURL:      "https://videos.test/source.mp4",
		SourceLanguage: "en",
		DubStatus:      status,
	}
	f.videos.videos[video.ID] = video
	return video
}

func (f *controllerFixture) addJob(videoID uuid.UUID, status entity.DubStatus) *entity.DubJob {
	job := &entity.DubJob{
		ID:             uuid.New(),
		VideoID:        videoID,
		SourceLanguage: "en",
		TargetLanguage: "es",
		Quality:        "1080p",
		Status:         status,
		Progress:       status.Progress(),
		MaxRetries:     3,
		QueuedAt:       f.now.Add(-10 * time.Minute),
	}
	f.jobs.jobs[job.ID] = job
	return job
}

func (f *controllerFixture) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		data, _ := json.Marshal(body)
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestSubmitDubQueuesJob(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/submit",
		dto.SubmitDubRequest{TargetLanguage: "es"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp dto.SubmitDubResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == "" || resp.Status != string(entity.DubStatusQueued) {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.EstimatedSeconds != 600 {
		t.Fatalf("estimated seconds = %d, want 600", resp.EstimatedSeconds)
	}

	if len(f.queue.msgs) != 1 {
		t.Fatalf("published messages = %d, want 1", len(f.queue.msgs))
	}
	if f.queue.msgs[0].Attempt != 1 {
		t.Fatalf("first attempt = %d, want 1", f.queue.msgs[0].Attempt)
	}
	if f.videos.videos[video.ID].DubStatus != entity.DubStatusQueued {
		t.Fatalf("video status = %s, want queued", f.videos.videos[video.ID].DubStatus)
	}

	jobID := uuid.MustParse(resp.JobID)
	job := f.jobs.jobs[jobID]
	if job == nil {
		t.Fatal("job record was not created")
	}
	if job.MaxRetries != 3 {
		t.Fatalf("max retries = %d, want 3", job.MaxRetries)
	}
	if job.SourceLanguage != "en" {
		t.Fatalf("source language = %q, want video default", job.SourceLanguage)
	}
	if job.Quality != "1080p" {
		t.Fatalf("quality = %q, want 1080p default", job.Quality)
	}
}

func TestSubmitDubConflictWhenActive(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusTranscribing)

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/submit",
		dto.SubmitDubRequest{TargetLanguage: "es"})

	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
	if len(f.queue.msgs) != 0 {
		t.Fatal("nothing should be enqueued on conflict")
	}
}

func TestSubmitDubAllowedAfterTerminal(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusCompleted)

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/submit",
		dto.SubmitDubRequest{TargetLanguage: "fr"})

	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
}

func TestSubmitDubVideoNotFound(t *testing.T) {
	f := newControllerFixture(t)

	w := f.do(http.MethodPost, "/dub/videos/"+uuid.NewString()+"/submit",
		dto.SubmitDubRequest{TargetLanguage: "es"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestSubmitDubRequiresTargetLanguage(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/submit",
		dto.SubmitDubRequest{})

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestSubmitDubRejectsVideoWithoutSource(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")
	f.videos.videos[video.ID].SourceURL = ""

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/submit",
		dto.SubmitDubRequest{TargetLanguage: "es"})

	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetVideoDubStatusReturnsLatestJob(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusTranslating)
	old := f.addJob(video.ID, entity.DubStatusFailed)
	old.QueuedAt = f.now.Add(-2 * time.Hour)
	job := f.addJob(video.ID, entity.DubStatusTranslating)
	started := f.now.Add(-100 * time.Second)
	job.StartedAt = &started

	w := f.do(http.MethodGet, "/dub/videos/"+video.ID.String()+"/status", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var p dto.DubJobProjection
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if p.JobID != job.ID.String() {
		t.Fatalf("returned job %s, want latest %s", p.JobID, job.ID)
	}
	if p.Progress != entity.DubStatusTranslating.Progress() {
		t.Fatalf("progress = %d, want %d", p.Progress, entity.DubStatusTranslating.Progress())
	}
	if p.EstimatedRemainingSec == nil {
		t.Fatal("estimated remaining seconds missing for running job")
	}
	if *p.EstimatedRemainingSec != 500 {
		t.Fatalf("estimated remaining = %d, want 500", *p.EstimatedRemainingSec)
	}
}

func TestGetVideoDubStatusNotFound(t *testing.T) {
	f := newControllerFixture(t)
	w := f.do(http.MethodGet, "/dub/videos/"+uuid.NewString()+"/status", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestGetDubJobNotFound(t *testing.T) {
	f := newControllerFixture(t)
	w := f.do(http.MethodGet, "/dub/jobs/"+uuid.NewString(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestListDubJobs(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")
	f.addJob(video.ID, entity.DubStatusCompleted)
	f.addJob(uuid.New(), entity.DubStatusFailed)

	w := f.do(http.MethodGet, "/dub/jobs?status=failed", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp dto.ListDubJobsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Total != 1 || len(resp.Jobs) != 1 {
		t.Fatalf("total = %d, jobs = %d, want 1/1", resp.Total, len(resp.Jobs))
	}
	if resp.Jobs[0].Status != string(entity.DubStatusFailed) {
		t.Fatalf("job status = %s, want failed", resp.Jobs[0].Status)
	}
}

func TestListDubJobsRejectsUnknownStatus(t *testing.T) {
	f := newControllerFixture(t)
	w := f.do(http.MethodGet, "/dub/jobs?status=rendering", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestCancelDubClearsVideoMirror(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusEncodingVideo)
	video.DubbedVideoURL = "https://cdn.test/old.mp4"
	job := f.addJob(video.ID, entity.DubStatusEncodingVideo)

	w := f.do(http.MethodDelete, "/dub/videos/"+video.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	stored := f.jobs.jobs[job.ID]
	if stored.Status != entity.DubStatusFailed {
		t.Fatalf("job status = %s, want failed", stored.Status)
	}
	if stored.ErrorMessage != "cancelled by user" {
		t.Fatalf("error message = %q", stored.ErrorMessage)
	}
	if len(f.cancels.marked) != 1 || f.cancels.marked[0] != job.ID.String() {
		t.Fatalf("cancel marker = %v, want [%s]", f.cancels.marked, job.ID)
	}
	wantPrefix := "dubs/" + video.ID.String() + "/"
	if len(f.artifacts.deletedPrefixes) != 1 || f.artifacts.deletedPrefixes[0] != wantPrefix {
		t.Fatalf("deleted prefixes = %v", f.artifacts.deletedPrefixes)
	}
	if f.videos.videos[video.ID].DubStatus != entity.DubStatusCancelled {
		t.Fatalf("video status = %s, want cancelled", f.videos.videos[video.ID].DubStatus)
	}
	if f.videos.videos[video.ID].DubbedVideoURL != "" {
		t.Fatal("mirrored video URL was not cleared")
	}
}

func TestCancelDubTerminalJobStillCleansUp(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusCompleted)
	job := f.addJob(video.ID, entity.DubStatusCompleted)

	w := f.do(http.MethodDelete, "/dub/videos/"+video.ID.String(), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	// Terminal jobs keep their state; only artifacts and the mirror go.
	if f.jobs.jobs[job.ID].Status != entity.DubStatusCompleted {
		t.Fatalf("job status = %s, want completed untouched", f.jobs.jobs[job.ID].Status)
	}
	if len(f.cancels.marked) != 0 {
		t.Fatal("terminal job should not be marked cancelled in the queue")
	}
	if len(f.artifacts.deletedPrefixes) != 1 {
		t.Fatalf("deleted prefixes = %v", f.artifacts.deletedPrefixes)
	}
}

func TestCancelDubNoHistory(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")
	w := f.do(http.MethodDelete, "/dub/videos/"+video.ID.String(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRetryDubJobRequiresFailedState(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusCompleted)
	job := f.addJob(video.ID, entity.DubStatusCompleted)

	w := f.do(http.MethodPost, "/dub/jobs/"+job.ID.String()+"/retry", nil)
	if w.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409: %s", w.Code, w.Body.String())
	}
}

func TestRetryDubJobReArmsFailedJob(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusFailed)
	job := f.addJob(video.ID, entity.DubStatusFailed)
	job.RetryCount = 3
	job.ErrorMessage = "encoder crashed"
	failedAt := f.now.Add(-time.Hour)
	job.FailedAt = &failedAt

	w := f.do(http.MethodPost, "/dub/jobs/"+job.ID.String()+"/retry", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	stored := f.jobs.jobs[job.ID]
	if stored.Status != entity.DubStatusQueued {
		t.Fatalf("job status = %s, want queued", stored.Status)
	}
	if stored.RetryCount != 4 {
		t.Fatalf("retry count = %d, want 4", stored.RetryCount)
	}
	if stored.Progress != 0 || stored.ErrorMessage != "" || stored.FailedAt != nil {
		t.Fatalf("job was not reset: %+v", stored)
	}
	if len(f.queue.msgs) != 1 {
		t.Fatalf("published messages = %d, want 1", len(f.queue.msgs))
	}
	if f.queue.msgs[0].Attempt != 5 {
		t.Fatalf("attempt = %d, want 5", f.queue.msgs[0].Attempt)
	}
	if f.videos.videos[video.ID].DubStatus != entity.DubStatusQueued {
		t.Fatalf("video status = %s, want queued", f.videos.videos[video.ID].DubStatus)
	}
}

func TestRetryDubJobPinsBudgetAfterPermanentFailure(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusFailed)
	job := f.addJob(video.ID, entity.DubStatusFailed)
	// Permanent failures go terminal without touching the retry count.
	job.RetryCount = 0
	job.ErrorMessage = "source returned 404"

	w := f.do(http.MethodPost, "/dub/jobs/"+job.ID.String()+"/retry", nil)
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	stored := f.jobs.jobs[job.ID]
	if stored.RetryCount < stored.MaxRetries {
		t.Fatalf("retry count = %d, must be pinned to budget %d so the next failure is terminal",
			stored.RetryCount, stored.MaxRetries)
	}
	if f.queue.msgs[0].Attempt != stored.RetryCount+1 {
		t.Fatalf("attempt = %d, want %d", f.queue.msgs[0].Attempt, stored.RetryCount+1)
	}
}

func TestRetryDubJobNotFound(t *testing.T) {
	f := newControllerFixture(t)
	w := f.do(http.MethodPost, "/dub/jobs/"+uuid.NewString()+"/retry", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

func TestRegenerateDubReplacesExistingResult(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo(entity.DubStatusCompleted)
	video.DubbedVideoURL = "https://cdn.test/old.mp4"
	old := f.addJob(video.ID, entity.DubStatusCompleted)

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/regenerate",
		dto.SubmitDubRequest{TargetLanguage: "de"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}

	var resp dto.SubmitDubResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.JobID == old.ID.String() {
		t.Fatal("regenerate must create a fresh job")
	}
	if len(f.artifacts.deletedPrefixes) != 1 {
		t.Fatalf("old artifacts were not deleted: %v", f.artifacts.deletedPrefixes)
	}
	newJob := f.jobs.jobs[uuid.MustParse(resp.JobID)]
	if newJob == nil || newJob.TargetLanguage != "de" {
		t.Fatalf("new job missing or wrong config: %+v", newJob)
	}
	if f.videos.videos[video.ID].DubStatus != entity.DubStatusQueued {
		t.Fatalf("video status = %s, want queued", f.videos.videos[video.ID].DubStatus)
	}
}

func TestRegenerateDubWithoutHistoryBehavesLikeSubmit(t *testing.T) {
	f := newControllerFixture(t)
	video := f.addVideo("")

	w := f.do(http.MethodPost, "/dub/videos/"+video.ID.String()+"/regenerate",
		dto.SubmitDubRequest{TargetLanguage: "es"})
	if w.Code != http.StatusAccepted {
		t.Fatalf("status = %d, want 202: %s", w.Code, w.Body.String())
	}
	if len(f.queue.msgs) != 1 {
		t.Fatalf("published messages = %d, want 1", len(f.queue.msgs))
	}
}
