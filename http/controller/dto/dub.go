package dto

import "time"

type SubmitDubRequest struct {
	SourceLanguage      string `json:"source_language"`
	TargetLanguage      string `json:"target_language" binding:"required"`
	KeepBackgroundAudio bool   `json:"keep_background_audio"`
	VoiceID             string `json:"voice_id"`
	Quality             string `json:"quality" binding:"omitempty,oneof=480p 720p 1080p"`
	GenerateSubtitles   bool   `json:"generate_subtitles"`
	GenerateHLS         bool   `json:"generate_hls"`
}

type SubmitDubResponse struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	EstimatedSeconds int    `json:"estimated_seconds"`
}

type DubJobProjection struct {
	JobID          string     `json:"job_id"`
	VideoID        string     `json:"video_id"`
	Status         string     `json:"status"`
	Progress       int        `json:"progress"`
	CurrentStep    string     `json:"current_step,omitempty"`
	RetryCount     int        `json:"retry_count"`
	MaxRetries     int        `json:"max_retries"`
	QueuedAt       time.Time  `json:"queued_at"`
	StartedAt      *time.Time `json:"started_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	FailedAt       *time.Time `json:"failed_at,omitempty"`
	DubbedVideoURL string     `json:"dubbed_video_url,omitempty"`
	HLSPlaylistURL string     `json:"hls_playlist_url,omitempty"`
	SubtitlesURL   string     `json:"subtitles_url,omitempty"`
	ThumbnailURL   string     `json:"thumbnail_url,omitempty"`
	ErrorMessage   string     `json:"error_message,omitempty"`

	// Populated only while the job is started and non-terminal. Derived
	// from elapsed time against a fixed total estimate, so it is an
	// approximation, not a contract.
	EstimatedRemainingSec *int `json:"estimated_remaining_sec,omitempty"`
}

type ListDubJobsResponse struct {
	Total int64              `json:"total"`
	Jobs  []DubJobProjection `json:"jobs"`
}
