package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Video is the catalog entity that owns the original upload. It is created
// by the product service; this service only reads it and mirrors the latest
// dub outcome onto it.
type Video struct {
	ID             uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	OwnerID        uuid.UUID `json:"owner_id" gorm:"type:uuid;not null;index"`
	Title          string    `json:"title" gorm:"type:varchar(512)"`
	SourceURL      string    `json:"source_url" gorm:"type:varchar(1024)"`
	SourceLanguage string    `json:"source_language" gorm:"type:varchar(16)"`

	DubStatus      DubStatus `json:"dub_status" gorm:"type:varchar(32);index"`
	DubbedVideoURL string    `json:"dubbed_video_url" gorm:"type:varchar(1024)"`
	HLSPlaylistURL string    `json:"hls_playlist_url" gorm:"type:varchar(1024)"`
	SubtitlesURL   string    `json:"subtitles_url" gorm:"type:varchar(1024)"`
	ThumbnailURL   string    `json:"thumbnail_url" gorm:"type:varchar(1024)"`

	VideoMeta datatypes.JSONType[VideoMetadata] `json:"video_metadata"`

	CreatedAt time.Time `json:"created_at" gorm:"not null;autoCreateTime"`
	UpdatedAt time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (Video) TableName() string {
	return "videos"
}
