package repository

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vidlingo/dub-orchestrator/entity"
)

type DubJobRepository struct {
	db *gorm.DB
}

func NewDubJobRepository(db *gorm.DB) *DubJobRepository {
	return &DubJobRepository{db: db}
}

func (r *DubJobRepository) Create(job *entity.DubJob) error {
	return r.db.Create(job).Error
}

func (r *DubJobRepository) Save(job *entity.DubJob) error {
	return r.db.Save(job).Error
}

func (r *DubJobRepository) FindByID(id uuid.UUID) (*entity.DubJob, error) {
	var job entity.DubJob
	err := r.db.Where("id = ?", id).First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindLatestByVideoID returns the most recently queued job for the video.
func (r *DubJobRepository) FindLatestByVideoID(videoID uuid.UUID) (*entity.DubJob, error) {
	var job entity.DubJob
	err := r.db.Where("video_id = ?", videoID).Order("queued_at DESC").First(&job).Error
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// List returns a page of jobs, newest queued first, optionally filtered by
// status, along with the total count for the filter.
func (r *DubJobRepository) List(status entity.DubStatus, limit, offset int) ([]entity.DubJob, int64, error) {
	query := r.db.Model(&entity.DubJob{})
	if status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var jobs []entity.DubJob
	err := query.Order("queued_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error
	if err != nil {
		return nil, 0, err
	}
	return jobs, total, nil
}

// SetStage moves the job to a pipeline stage and its fixed checkpoint.
func (r *DubJobRepository) SetStage(id uuid.UUID, status entity.DubStatus, step string) error {
	return r.db.Model(&entity.DubJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":       status,
		"progress":     status.Progress(),
		"current_step": step,
	}).Error
}

func (r *DubJobRepository) MarkStarted(id uuid.UUID, startedAt time.Time) error {
	return r.db.Model(&entity.DubJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"started_at": startedAt,
	}).Error
}

// IncrementRetry bumps retry_count and records the latest error ahead of a
// delayed re-delivery.
func (r *DubJobRepository) IncrementRetry(id uuid.UUID, errorMessage string) error {
	return r.db.Model(&entity.DubJob{}).Where("id = ?", id).Updates(map[string]interface{}{
		"retry_count":   gorm.Expr("retry_count + 1"),
		"error_message": errorMessage,
	}).Error
}
