package controller

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/vidlingo/dub-orchestrator/config"
	"github.com/vidlingo/dub-orchestrator/entity"
	"github.com/vidlingo/dub-orchestrator/infra"
	"github.com/vidlingo/dub-orchestrator/infra/produce"
	"github.com/vidlingo/dub-orchestrator/repository"
)

type jobStore interface {
	Create(job *entity.DubJob) error
	Save(job *entity.DubJob) error
	FindByID(id uuid.UUID) (*entity.DubJob, error)
	FindLatestByVideoID(videoID uuid.UUID) (*entity.DubJob, error)
	List(status entity.DubStatus, limit, offset int) ([]entity.DubJob, int64, error)
}

type videoStore interface {
	FindByID(id uuid.UUID) (*entity.Video, error)
	SetDubStatusIfInactive(id uuid.UUID, status entity.DubStatus) (bool, error)
	UpdateDubStatus(id uuid.UUID, status entity.DubStatus) error
	ClearDubResults(id uuid.UUID, status entity.DubStatus) error
}

type dubQueue interface {
	PublishDubJob(ctx context.Context, msg produce.DubJobMessage) error
}

type artifactStore interface {
	DeleteObjectsWithPrefix(ctx context.Context, prefix string) error
}

type cancelMarker interface {
	MarkDubCancelled(ctx context.Context, jobID string) error
}

type healthChecker interface {
	Health(ctx context.Context) error
}

type Controller struct {
	Config     *config.Config
	Infra      *infra.Infra
	Repository *repository.Repository

	jobs      jobStore
	videos    videoStore
	queue     dubQueue
	artifacts artifactStore
	cancels   cancelMarker
	health    healthChecker
	logger    *infra.LoggerClient
	now       func() time.Time
}

func NewController(config *config.Config, infra *infra.Infra, repo *repository.Repository) *Controller {
	if repo == nil {
		panic("Failed to initialize Repository")
	}
	return &Controller{
		Config:     config,
		Infra:      infra,
		Repository: repo,
		jobs:       repo.DubJobRepo,
		videos:     repo.VideoRepo,
		queue:      infra.Produce.DubService,
		artifacts:  infra.Minio,
		cancels:    infra.Redis,
		health:     infra.Minio,
		logger:     infra.Logger,
		now:        time.Now,
	}
}
