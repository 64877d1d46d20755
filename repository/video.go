package repository

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/vidlingo/dub-orchestrator/entity"
)

type VideoRepository struct {
	db *gorm.DB
}

func NewVideoRepository(db *gorm.DB) *VideoRepository {
	return &VideoRepository{db: db}
}

func (r *VideoRepository) FindByID(id uuid.UUID) (*entity.Video, error) {
	var video entity.Video
	err := r.db.Where("id = ?", id).First(&video).Error
	if err != nil {
		return nil, err
	}
	return &video, nil
}

// SetDubStatusIfInactive is the admission check-and-set: it flips the
// mirrored status in one conditional UPDATE so two concurrent submissions
// cannot both pass. Returns false when an active job already holds the slot.
func (r *VideoRepository) SetDubStatusIfInactive(id uuid.UUID, status entity.DubStatus) (bool, error) {
	result := r.db.Model(&entity.Video{}).
		Where("id = ?", id).
		Where("dub_status IS NULL OR dub_status IN ?", []entity.DubStatus{
			"", entity.DubStatusCompleted, entity.DubStatusFailed, entity.DubStatusCancelled,
		}).
		Update("dub_status", status)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *VideoRepository) UpdateDubStatus(id uuid.UUID, status entity.DubStatus) error {
	return r.db.Model(&entity.Video{}).Where("id = ?", id).Update("dub_status", status).Error
}

// UpdateDubResults mirrors a completed job's outcome onto the video.
func (r *VideoRepository) UpdateDubResults(id uuid.UUID, job *entity.DubJob) error {
	return r.db.Model(&entity.Video{}).Where("id = ?", id).Updates(map[string]interface{}{
		"dub_status":       job.Status,
		"dubbed_video_url": job.DubbedVideoURL,
		"hls_playlist_url": job.HLSPlaylistURL,
		"subtitles_url":    job.SubtitlesURL,
		"thumbnail_url":    job.ThumbnailURL,
		"video_meta":       job.VideoMeta,
	}).Error
}

// ClearDubResults empties the mirrored result fields; used by cancellation.
func (r *VideoRepository) ClearDubResults(id uuid.UUID, status entity.DubStatus) error {
	return r.db.Model(&entity.Video{}).Where("id = ?", id).Updates(map[string]interface{}{
		"dub_status":       status,
		"dubbed_video_url": "",
		"hls_playlist_url": "",
		"subtitles_url":    "",
		"thumbnail_url":    "",
		"video_meta":       datatypes.JSONType[entity.VideoMetadata]{},
	}).Error
}
