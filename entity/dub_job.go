package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type VideoMetadata struct {
	DurationSec float64 `json:"duration_sec"`
	Width       int     `json:"width"`
	Height      int     `json:"height"`
	SizeBytes   int64   `json:"size_bytes"`
	Format      string  `json:"format"`
}

type SpeechSegment struct {
	StartSec float64 `json:"start_sec"`
	EndSec   float64 `json:"end_sec"`
	Text     string  `json:"text"`
}

type AudioMetadata struct {
	Transcript     string          `json:"transcript"`
	TranslatedText string          `json:"translated_text"`
	VoiceID        string          `json:"voice_id"`
	Segments       []SpeechSegment `json:"segments"`
}

type DubJob struct {
	ID      uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	VideoID uuid.UUID `json:"video_id" gorm:"type:uuid;not null;index"`

	// Immutable once the job is created.
	SourceLanguage      string `json:"source_language" gorm:"type:varchar(16);not null"`
	TargetLanguage      string `json:"target_language" gorm:"type:varchar(16);not null"`
	KeepBackgroundAudio bool   `json:"keep_background_audio" gorm:"not null"`
	VoiceID             string `json:"voice_id" gorm:"type:varchar(64)"`
	Quality             string `json:"quality" gorm:"type:varchar(16)"`
	GenerateSubtitles   bool   `json:"generate_subtitles" gorm:"not null"`
	GenerateHLS         bool   `json:"generate_hls" gorm:"not null"`

	Status      DubStatus `json:"status" gorm:"type:varchar(32);not null;index"`
	Progress    int       `json:"progress" gorm:"not null"`
	CurrentStep string    `json:"current_step" gorm:"type:varchar(64)"`
	RetryCount  int       `json:"retry_count" gorm:"not null"`
	MaxRetries  int       `json:"max_retries" gorm:"not null"`

	QueuedAt    time.Time  `json:"queued_at" gorm:"not null;index"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`
	FailedAt    *time.Time `json:"failed_at"`

	DubbedVideoURL string `json:"dubbed_video_url" gorm:"type:varchar(1024)"`
	HLSPlaylistURL string `json:"hls_playlist_url" gorm:"type:varchar(1024)"`
	SubtitlesURL   string `json:"subtitles_url" gorm:"type:varchar(1024)"`
	ThumbnailURL   string `json:"thumbnail_url" gorm:"type:varchar(1024)"`

	VideoMeta datatypes.JSONType[VideoMetadata] `json:"video_metadata"`
	AudioMeta datatypes.JSONType[AudioMetadata] `json:"audio_metadata"`

	ErrorMessage     string `json:"error_message" gorm:"type:text"`
	ErrorDetail      string `json:"error_detail" gorm:"type:text"`
	ProcessingTimeMS int64  `json:"processing_time_ms"`
}

func (DubJob) TableName() string {
	return "dub_jobs"
}
